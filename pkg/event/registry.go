// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package event fans notifications out to user-registered handlers.
//
// Handlers are registered per notification endpoint together with a
// Condition. When a notification arrives every matching handler is started
// in its own goroutine, in registration order. A handler whose previous run
// has not returned is skipped for that notification; runs are never queued.
package event

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/Thermoquad/edubot/pkg/packet"
)

// Handler is a user callback. A returned error is logged and otherwise ignored.
type Handler func(ctx context.Context) error

// Entry is one registered handler and its run state
type Entry struct {
	cond    Condition
	handler Handler
	running atomic.Bool
}

// Running reports whether the handler is currently executing
func (e *Entry) Running() bool {
	return e.running.Load()
}

// Registry holds the handler lists of one robot instance.
// Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[packet.Endpoint][]*Entry
	play    []*Entry

	logger *zap.SugaredLogger
	wg     sync.WaitGroup
}

// NewRegistry creates an empty registry. A nil logger disables logging.
func NewRegistry(logger *zap.SugaredLogger) *Registry {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Registry{
		entries: make(map[packet.Endpoint][]*Entry),
		logger:  logger,
	}
}

// Register appends a handler for notifications on ep. A nil condition is
// treated as Always.
func (r *Registry) Register(ep packet.Endpoint, cond Condition, h Handler) *Entry {
	if cond == nil {
		cond = Always
	}
	e := &Entry{cond: cond, handler: h}

	r.mu.Lock()
	r.entries[ep] = append(r.entries[ep], e)
	r.mu.Unlock()

	return e
}

// OnPlay appends a handler started once when the program begins
func (r *Registry) OnPlay(h Handler) *Entry {
	e := &Entry{cond: Always, handler: h}

	r.mu.Lock()
	r.play = append(r.play, e)
	r.mu.Unlock()

	return e
}

// Count returns the number of handlers registered for ep
func (r *Registry) Count(ep packet.Endpoint) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries[ep])
}

// Dispatch starts every handler registered for ep whose condition matches
// the reading and which is not already running. It does not wait for the
// handlers and returns the number started.
func (r *Registry) Dispatch(ctx context.Context, ep packet.Endpoint, reading Reading) int {
	return r.dispatch(ctx, ep, reading, nil)
}

// DispatchWait is Dispatch followed by a wait for the handlers it started
func (r *Registry) DispatchWait(ctx context.Context, ep packet.Endpoint, reading Reading) int {
	var wg sync.WaitGroup
	started := r.dispatch(ctx, ep, reading, &wg)
	wg.Wait()
	return started
}

func (r *Registry) dispatch(ctx context.Context, ep packet.Endpoint, reading Reading, wg *sync.WaitGroup) int {
	r.mu.RLock()
	entries := r.entries[ep]
	r.mu.RUnlock()

	started := 0
	for _, e := range entries {
		if !e.cond.Match(reading) {
			continue
		}
		if r.start(ctx, ep.String(), e, wg) {
			started++
		}
	}
	return started
}

// StartPlay starts every play handler that is not already running
func (r *Registry) StartPlay(ctx context.Context) int {
	r.mu.RLock()
	entries := r.play
	r.mu.RUnlock()

	started := 0
	for _, e := range entries {
		if r.start(ctx, "play", e, nil) {
			started++
		}
	}
	return started
}

// Wait blocks until every started handler has returned
func (r *Registry) Wait() {
	r.wg.Wait()
}

func (r *Registry) start(ctx context.Context, name string, e *Entry, wg *sync.WaitGroup) bool {
	if !e.running.CompareAndSwap(false, true) {
		r.logger.Debugw("handler still running, notification dropped", "event", name)
		return false
	}

	r.wg.Add(1)
	if wg != nil {
		wg.Add(1)
	}
	go func() {
		defer r.wg.Done()
		if wg != nil {
			defer wg.Done()
		}
		defer e.running.Store(false)

		if err := r.invoke(ctx, e.handler); err != nil {
			r.logger.Warnw("event handler failed", "event", name, "error", err)
		}
	}()
	return true
}

func (r *Registry) invoke(ctx context.Context, h Handler) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()
	return h(ctx)
}
