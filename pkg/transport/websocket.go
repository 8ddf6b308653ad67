// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/Thermoquad/edubot/pkg/packet"
)

// WebSocketConfig describes a WebSocket bridge endpoint
type WebSocketConfig struct {
	URL           string
	Username      string
	Password      string
	SkipSSLVerify bool
}

// WebSocket carries raw 20-byte frames in binary messages through a
// network bridge. It is a Poller.
type WebSocket struct {
	cfg    WebSocketConfig
	logger *zap.SugaredLogger

	writeMu   sync.Mutex
	conn      *websocket.Conn
	connected atomic.Bool

	frames chan []byte
	errs   chan error
	done   chan struct{}
}

var _ Poller = (*WebSocket)(nil)

// NewWebSocket creates a WebSocket transport. The URL is validated on Connect.
func NewWebSocket(cfg WebSocketConfig, logger *zap.SugaredLogger) *WebSocket {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &WebSocket{cfg: cfg, logger: logger}
}

// Name returns a description of the link
func (w *WebSocket) Name() string {
	return "websocket " + w.cfg.URL
}

// Connect dials the bridge with HTTP Basic auth and starts the read pump
func (w *WebSocket) Connect(ctx context.Context) error {
	if w.connected.Load() {
		return nil
	}

	u, err := url.Parse(w.cfg.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: w.cfg.SkipSSLVerify,
		}
	}

	headers := http.Header{}
	if w.cfg.Username != "" && w.cfg.Password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(w.cfg.Username + ":" + w.cfg.Password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(dialCtx, w.cfg.URL, headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("WebSocket connection failed: %w", err)
	}

	w.conn = conn
	w.frames = make(chan []byte, 64)
	w.errs = make(chan error, 1)
	w.done = make(chan struct{})
	w.connected.Store(true)

	go w.readPump(conn, w.frames, w.errs, w.done)

	w.logger.Debugw("websocket connected", "url", w.cfg.URL)
	return nil
}

// readPump forwards binary messages until the connection fails
func (w *WebSocket) readPump(conn *websocket.Conn, frames chan<- []byte, errs chan<- error, done <-chan struct{}) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			w.connected.Store(false)
			errs <- err
			return
		}

		// Only binary messages carry frames
		if messageType != websocket.BinaryMessage {
			continue
		}

		select {
		case frames <- data:
		case <-done:
			return
		}
	}
}

// Disconnect closes the connection
func (w *WebSocket) Disconnect() error {
	if !w.connected.Swap(false) {
		return nil
	}
	close(w.done)

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return w.conn.Close()
}

// IsConnected reports whether the connection is up
func (w *WebSocket) IsConnected() bool {
	return w.connected.Load()
}

// WriteFrame sends one frame as a binary message
func (w *WebSocket) WriteFrame(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !w.connected.Load() {
		return ErrNotConnected
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = w.conn.SetWriteDeadline(deadline)
		defer w.conn.SetWriteDeadline(time.Time{})
	}
	if err := w.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// ReadFrame returns the next binary message. Messages that are not exactly
// one frame long are reported as *FrameError.
func (w *WebSocket) ReadFrame(ctx context.Context) ([]byte, error) {
	if w.frames == nil {
		return nil, ErrNotConnected
	}

	select {
	case data := <-w.frames:
		if len(data) != packet.FrameSize {
			return nil, &FrameError{Err: fmt.Errorf("%w: message of %d bytes", packet.ErrInvalidLength, len(data))}
		}
		return data, nil
	case err := <-w.errs:
		w.logger.Debugw("websocket read failed", "error", err)
		return nil, ErrClosed
	case <-w.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
