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

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/Thermoquad/edubot/pkg/packet"
)

// Opener opens the byte stream behind a Stream transport
type Opener func() (io.ReadWriteCloser, error)

// Stream carries hex line framed packets over a byte stream
// (serial port, USB CDC or stdio). It is a Poller.
type Stream struct {
	name   string
	open   Opener
	logger *zap.SugaredLogger

	mu        sync.Mutex // guards rw, reads, done and writes
	rw        io.ReadWriteCloser
	reads     chan streamRead
	done      chan struct{}
	connected atomic.Bool
}

// streamRead is one decoded frame, or the fault that produced none
type streamRead struct {
	frame []byte
	err   error
}

var _ Poller = (*Stream)(nil)

// NewStream creates a stream transport. The opener is called on Connect.
func NewStream(name string, open Opener, logger *zap.SugaredLogger) *Stream {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Stream{
		name:   name,
		open:   open,
		logger: logger,
	}
}

type stdio struct {
	io.Reader
	io.Writer
}

func (stdio) Close() error { return nil }

// NewStdio treats the process's stdin/stdout as the robot link
func NewStdio(logger *zap.SugaredLogger) *Stream {
	return NewStream("stdio", func() (io.ReadWriteCloser, error) {
		return stdio{Reader: os.Stdin, Writer: os.Stdout}, nil
	}, logger)
}

// Name returns a description of the link
func (s *Stream) Name() string {
	return s.name
}

// Connect opens the underlying stream
func (s *Stream) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected.Load() {
		return nil
	}
	if s.rw != nil {
		// Stream dropped by the far end; release it before reopening
		_ = s.closeLocked()
	}

	rw, err := s.open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", s.name, err)
	}
	s.rw = rw
	s.reads = make(chan streamRead, 64)
	s.done = make(chan struct{})
	s.connected.Store(true)

	go s.readPump(rw, s.reads, s.done)

	s.logger.Debugw("stream connected", "link", s.name)
	return nil
}

// Disconnect closes the underlying stream
func (s *Stream) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected.Store(false)
	if s.rw == nil {
		return nil
	}
	return s.closeLocked()
}

// closeLocked stops the read pump and closes the stream. s.mu must be held.
func (s *Stream) closeLocked() error {
	close(s.done)
	err := s.rw.Close()
	s.rw = nil
	return err
}

// IsConnected reports whether the stream is open
func (s *Stream) IsConnected() bool {
	return s.connected.Load()
}

// WriteFrame writes one frame as a hex line
func (s *Stream) WriteFrame(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected.Load() {
		return ErrNotConnected
	}
	if _, err := s.rw.Write(packet.EncodeLine(frame)); err != nil {
		return fmt.Errorf("write to %s: %w", s.name, err)
	}
	return nil
}

// readPump decodes the stream until it fails or done is closed. Reads that
// return no data (serial read timeouts) are retried. A blocked read on a
// stream that cannot be interrupted, like stdin, outlives Disconnect.
func (s *Stream) readPump(r io.Reader, reads chan<- streamRead, done <-chan struct{}) {
	decoder := packet.NewLineDecoder()
	buf := make([]byte, 256)

	deliver := func(res streamRead) bool {
		select {
		case reads <- res:
			return true
		case <-done:
			return false
		}
	}

	for {
		n, err := r.Read(buf)
		if err != nil {
			deliver(streamRead{err: err})
			return
		}

		var bad error
		decoded := 0
		for _, b := range buf[:n] {
			frame, err := decoder.FeedByte(b)
			if err != nil {
				bad = err
				continue
			}
			if frame != nil {
				decoded++
				if !deliver(streamRead{frame: frame}) {
					return
				}
			}
		}
		if bad != nil && decoded == 0 {
			if !deliver(streamRead{err: &FrameError{Err: bad}}) {
				return
			}
		}

		select {
		case <-done:
			return
		default:
		}
	}
}

// ReadFrame returns the next frame received on the stream
func (s *Stream) ReadFrame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	reads, done := s.reads, s.done
	s.mu.Unlock()

	if !s.connected.Load() {
		return nil, ErrClosed
	}

	select {
	case res := <-reads:
		if res.err == nil {
			return res.frame, nil
		}
		var fe *FrameError
		if errors.As(res.err, &fe) {
			return nil, res.err
		}
		s.lost(done)
		if errors.Is(res.err, io.EOF) {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("read from %s: %w", s.name, res.err)
	case <-done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// lost marks the connection behind done as dropped
func (s *Stream) lost(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == done {
		s.connected.Store(false)
	}
}
