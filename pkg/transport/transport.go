// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport moves 20-byte frames between the host and a robot.
//
// Every transport implements Transport. A transport additionally implements
// either Poller, when the caller must pull frames with a read loop, or
// Notifier, when frames are pushed to a callback as they arrive.
package transport

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when writing to a transport that is not connected
	ErrNotConnected = errors.New("transport: not connected")

	// ErrClosed is returned by ReadFrame once the link has gone away
	ErrClosed = errors.New("transport: closed")
)

// Transport is the link contract shared by every robot connection
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool
	WriteFrame(ctx context.Context, frame []byte) error
}

// Poller is a transport whose frames are pulled by a read loop
type Poller interface {
	Transport

	// ReadFrame blocks until one frame is received. Framing faults are
	// reported as *FrameError and the link stays usable.
	ReadFrame(ctx context.Context) ([]byte, error)
}

// Notifier is a transport that pushes each received frame to a callback
type Notifier interface {
	Transport

	// OnFrame sets the receive callback. It must be called before Connect.
	OnFrame(fn func(frame []byte))
}

// FrameError reports bytes that did not form a frame
type FrameError struct {
	Err error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("transport: bad frame: %v", e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}
