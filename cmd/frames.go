// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/Thermoquad/edubot/pkg/transport"
)

// FrameResult is one frame read from a link, or the fault reading it.
// A *transport.FrameError leaves the link usable; any other error ends the stream.
type FrameResult struct {
	Frame []byte
	Err   error
}

// OpenFrameStream connects the selected link and streams every frame it
// receives without driving the robot. The channel is closed once the link
// fails or ctx is done.
func OpenFrameStream(ctx context.Context) (*Link, <-chan FrameResult, error) {
	link, err := OpenTransport()
	if err != nil {
		return nil, nil, err
	}

	frames := make(chan FrameResult, 64)
	send := func(r FrameResult) bool {
		select {
		case frames <- r:
			return true
		case <-ctx.Done():
			return false
		}
	}

	// Callbacks may still fire after the stream ends
	var mu sync.Mutex
	closed := false
	closeFrames := func() {
		mu.Lock()
		defer mu.Unlock()
		closed = true
		close(frames)
	}

	notifier, eventMode := link.Transport.(transport.Notifier)
	if eventMode {
		notifier.OnFrame(func(frame []byte) {
			mu.Lock()
			defer mu.Unlock()
			if !closed {
				send(FrameResult{Frame: frame})
			}
		})
	}

	if err := link.Connect(ctx); err != nil {
		return nil, nil, multierr.Append(err, link.Close())
	}

	if eventMode {
		go func() {
			defer closeFrames()
			ticker := time.NewTicker(250 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if !link.IsConnected() {
						mu.Lock()
						send(FrameResult{Err: transport.ErrClosed})
						mu.Unlock()
						return
					}
				}
			}
		}()
		return link, frames, nil
	}

	poller, ok := link.Transport.(transport.Poller)
	if !ok {
		return nil, nil, multierr.Append(errors.New("link can neither poll nor notify"), link.Close())
	}
	go func() {
		defer close(frames)
		for {
			frame, err := poller.ReadFrame(ctx)
			if ctx.Err() != nil {
				return
			}
			if !send(FrameResult{Frame: frame, Err: err}) {
				return
			}
			var frameErr *transport.FrameError
			if err != nil && !errors.As(err, &frameErr) {
				return
			}
		}
	}()
	return link, frames, nil
}
