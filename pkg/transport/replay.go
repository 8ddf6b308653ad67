// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/Thermoquad/edubot/pkg/capture"
)

// ReplayConfig configures a Replay transport
type ReplayConfig struct {
	// Open returns the capture stream
	Open func() (io.ReadCloser, error)

	// Realtime paces frames with their recorded spacing
	Realtime bool

	// Clock used for pacing; nil means wall time
	Clock clock.Clock
}

// Replay feeds the inbound frames of a capture back as if a robot sent them.
// Outbound frames are accepted and dropped. It is a Poller.
type Replay struct {
	cfg    ReplayConfig
	logger *zap.SugaredLogger

	mu        sync.Mutex
	src       io.ReadCloser
	reader    *capture.Reader
	last      time.Time
	connected atomic.Bool
	written   atomic.Int64
}

var _ Poller = (*Replay)(nil)

// NewReplay creates a replay transport
func NewReplay(cfg ReplayConfig, logger *zap.SugaredLogger) *Replay {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Replay{cfg: cfg, logger: logger}
}

// NewReplayFile creates a replay transport reading a capture file
func NewReplayFile(path string, realtime bool, logger *zap.SugaredLogger) *Replay {
	return NewReplay(ReplayConfig{
		Open:     func() (io.ReadCloser, error) { return os.Open(path) },
		Realtime: realtime,
	}, logger)
}

// Connect opens the capture and validates its header
func (r *Replay) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.connected.Load() {
		return nil
	}

	src, err := r.cfg.Open()
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	reader, err := capture.NewReader(src)
	if err != nil {
		src.Close()
		return err
	}

	r.src = src
	r.reader = reader
	r.last = time.Time{}
	r.connected.Store(true)
	return nil
}

// Disconnect closes the capture
func (r *Replay) Disconnect() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.connected.Swap(false) {
		return nil
	}
	return r.src.Close()
}

// IsConnected reports whether frames remain to be replayed
func (r *Replay) IsConnected() bool {
	return r.connected.Load()
}

// WriteFrame drops the frame
func (r *Replay) WriteFrame(ctx context.Context, frame []byte) error {
	if !r.connected.Load() {
		return ErrNotConnected
	}
	r.written.Inc()
	return nil
}

// Written returns the number of frames sent to the replay
func (r *Replay) Written() int64 {
	return r.written.Load()
}

// ReadFrame returns the next inbound frame of the capture. The link reports
// ErrClosed after the last record.
func (r *Replay) ReadFrame(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.connected.Load() {
		return nil, ErrClosed
	}

	for {
		rec, err := r.reader.Next()
		if errors.Is(err, io.EOF) {
			r.connected.Store(false)
			r.src.Close()
			return nil, ErrClosed
		}
		if err != nil {
			return nil, err
		}
		if rec.Direction != capture.Inbound {
			continue
		}

		if r.cfg.Realtime && !r.last.IsZero() {
			if err := r.sleep(ctx, rec.Timestamp().Sub(r.last)); err != nil {
				return nil, err
			}
		}
		r.last = rec.Timestamp()
		return rec.Frame, nil
	}
}

func (r *Replay) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := r.cfg.Clock.Timer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
