// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package completion correlates outbound requests with their responses.
//
// Each in-flight request registers a single-shot slot keyed by
// (device, command, sequence). The first response carrying that key fills
// the slot and removes it; later responses with the same key are ignored.
package completion

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/Thermoquad/edubot/pkg/packet"
)

// ErrTimeout is returned when no response arrives before the deadline
var ErrTimeout = errors.New("completion: response timeout")

// Key identifies one in-flight request
type Key struct {
	Device   uint8
	Command  uint8
	Sequence uint8
}

// KeyOf returns the correlation key carried by a packet
func KeyOf(p *packet.Packet) Key {
	return Key{Device: p.Device(), Command: p.Command(), Sequence: p.Sequence()}
}

// Pending is a single-shot slot that is filled at most once
type Pending struct {
	key  Key
	done chan *packet.Packet
}

// Key returns the key the slot was registered under
func (p *Pending) Key() Key {
	return p.key
}

// Registry maps keys of in-flight requests to their pending slots.
// Safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	pending map[Key]*Pending
	clock   clock.Clock
}

// NewRegistry creates an empty registry. A nil clock uses wall time.
func NewRegistry(clk clock.Clock) *Registry {
	if clk == nil {
		clk = clock.New()
	}
	return &Registry{
		pending: make(map[Key]*Pending),
		clock:   clk,
	}
}

// Register creates a slot for key. It must be called before the request frame
// is written. A stale slot under the same key is replaced.
func (r *Registry) Register(key Key) *Pending {
	p := &Pending{key: key, done: make(chan *packet.Packet, 1)}

	r.mu.Lock()
	r.pending[key] = p
	r.mu.Unlock()

	return p
}

// Complete fills the slot matching the packet's key and removes it.
// Returns false if no request was waiting for this packet.
func (r *Registry) Complete(pkt *packet.Packet) bool {
	key := KeyOf(pkt)

	r.mu.Lock()
	p, ok := r.pending[key]
	if ok {
		delete(r.pending, key)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	p.done <- pkt
	return true
}

// Await suspends until the slot is filled, the timeout elapses or ctx is
// done. A timeout of zero or less waits on ctx alone. On timeout or
// cancellation the slot is evicted so a late response is counted as
// unmatched instead of completing a reused key.
func (r *Registry) Await(ctx context.Context, p *Pending, timeout time.Duration) (*packet.Packet, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := r.clock.Timer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case pkt := <-p.done:
		return pkt, nil
	case <-expired:
		r.Cancel(p)
		return nil, ErrTimeout
	case <-ctx.Done():
		r.Cancel(p)
		return nil, ctx.Err()
	}
}

// Cancel evicts the slot if it is still registered
func (r *Registry) Cancel(p *Pending) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending[p.key] == p {
		delete(r.pending, p.key)
	}
}

// Len returns the number of in-flight requests
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
