// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package completion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/Thermoquad/edubot/pkg/packet"
)

func mustPacket(t *testing.T, dev, cmd, seq uint8, payload []byte) *packet.Packet {
	t.Helper()
	p, err := packet.New(dev, cmd, seq, payload)
	if err != nil {
		t.Fatalf("packet.New error: %v", err)
	}
	return p
}

type awaitResult struct {
	pkt *packet.Packet
	err error
}

func TestRegistry_CompleteUnblocksAwait(t *testing.T) {
	r := NewRegistry(clock.NewMock())
	key := Key{Device: 1, Command: 8, Sequence: 7}
	pending := r.Register(key)

	done := make(chan awaitResult, 1)
	go func() {
		pkt, err := r.Await(context.Background(), pending, 5*time.Second)
		done <- awaitResult{pkt, err}
	}()

	resp := mustPacket(t, 1, 8, 7, nil)
	if !r.Complete(resp) {
		t.Fatal("Complete() should match the pending entry")
	}

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("Await error: %v", res.err)
		}
		if res.pkt != resp {
			t.Error("Await returned a different packet")
		}
	case <-time.After(time.Second):
		t.Fatal("Await did not return after Complete")
	}

	if r.Len() != 0 {
		t.Errorf("registry should be empty, has %d entries", r.Len())
	}
}

func TestRegistry_CompleteBeforeAwait(t *testing.T) {
	r := NewRegistry(clock.NewMock())
	pending := r.Register(Key{Device: 0, Command: 2, Sequence: 1})
	r.Complete(mustPacket(t, 0, 2, 1, []byte("Root")))

	pkt, err := r.Await(context.Background(), pending, time.Second)
	if err != nil || pkt == nil {
		t.Fatalf("Await() = %v, %v", pkt, err)
	}
}

func TestRegistry_FirstCompleteWins(t *testing.T) {
	r := NewRegistry(nil)
	pending := r.Register(Key{Device: 1, Command: 12, Sequence: 3})

	first := mustPacket(t, 1, 12, 3, []byte{1})
	second := mustPacket(t, 1, 12, 3, []byte{2})

	if !r.Complete(first) {
		t.Fatal("first Complete() should match")
	}
	if r.Complete(second) {
		t.Error("second Complete() should be a no-op")
	}

	pkt, err := r.Await(context.Background(), pending, time.Second)
	if err != nil {
		t.Fatalf("Await error: %v", err)
	}
	if pkt != first {
		t.Error("Await should return the first response")
	}
}

func TestRegistry_CompleteUnknownKey(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(Key{Device: 1, Command: 8, Sequence: 1})
	if r.Complete(mustPacket(t, 1, 8, 2, nil)) {
		t.Error("Complete() with a different sequence should not match")
	}
	if r.Len() != 1 {
		t.Errorf("pending entry should remain, Len() = %d", r.Len())
	}
}

func TestRegistry_IndependentKeys(t *testing.T) {
	r := NewRegistry(nil)
	keys := []Key{
		{Device: 1, Command: 8, Sequence: 10},
		{Device: 1, Command: 8, Sequence: 11},
		{Device: 1, Command: 12, Sequence: 10},
		{Device: 5, Command: 4, Sequence: 10},
	}

	var wg sync.WaitGroup
	results := make([]*packet.Packet, len(keys))
	for i, key := range keys {
		pending := r.Register(key)
		wg.Add(1)
		go func(i int, p *Pending) {
			defer wg.Done()
			results[i], _ = r.Await(context.Background(), p, 5*time.Second)
		}(i, pending)
	}

	// Respond in reverse order
	for i := len(keys) - 1; i >= 0; i-- {
		k := keys[i]
		r.Complete(mustPacket(t, k.Device, k.Command, k.Sequence, []byte{byte(i)}))
	}
	wg.Wait()

	for i, pkt := range results {
		if pkt == nil {
			t.Fatalf("request %d got no response", i)
		}
		if KeyOf(pkt) != keys[i] || pkt.Payload()[0] != byte(i) {
			t.Errorf("request %d got response for %+v", i, KeyOf(pkt))
		}
	}
}

func TestRegistry_TimeoutWithMockClock(t *testing.T) {
	mock := clock.NewMock()
	r := NewRegistry(mock)
	timeout := 3 * time.Second
	start := mock.Now()
	pending := r.Register(Key{Device: 1, Command: 8, Sequence: 0})

	done := make(chan awaitResult, 1)
	go func() {
		pkt, err := r.Await(context.Background(), pending, timeout)
		done <- awaitResult{pkt, err}
	}()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case res := <-done:
			if !errors.Is(res.err, ErrTimeout) {
				t.Fatalf("expected ErrTimeout, got %v", res.err)
			}
			if res.pkt != nil {
				t.Error("timed out Await should return a nil packet")
			}
			if elapsed := mock.Now().Sub(start); elapsed < timeout {
				t.Errorf("timed out after %v, before the %v deadline", elapsed, timeout)
			}
			if r.Len() != 0 {
				t.Error("timed out entry should be evicted")
			}
			return
		case <-deadline:
			t.Fatal("Await never timed out")
		case <-time.After(time.Millisecond):
			mock.Add(100 * time.Millisecond)
		}
	}
}

func TestRegistry_TimeoutBoundedOvershoot(t *testing.T) {
	r := NewRegistry(nil)
	pending := r.Register(Key{Device: 0, Command: 14, Sequence: 9})

	timeout := 50 * time.Millisecond
	start := time.Now()
	_, err := r.Await(context.Background(), pending, timeout)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed < timeout {
		t.Errorf("returned after %v, before timeout", elapsed)
	}
	if elapsed > timeout+time.Second {
		t.Errorf("returned after %v, overshoot too large", elapsed)
	}
}

func TestRegistry_LateResponseAfterTimeout(t *testing.T) {
	r := NewRegistry(nil)
	key := Key{Device: 1, Command: 8, Sequence: 4}
	pending := r.Register(key)

	if _, err := r.Await(context.Background(), pending, time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if r.Complete(mustPacket(t, 1, 8, 4, nil)) {
		t.Error("late response should not match an evicted entry")
	}
}

func TestRegistry_CancelKeepsReusedKey(t *testing.T) {
	r := NewRegistry(nil)
	key := Key{Device: 1, Command: 8, Sequence: 4}
	stale := r.Register(key)
	fresh := r.Register(key)

	r.Cancel(stale)
	if r.Len() != 1 {
		t.Fatal("cancelling a replaced entry should not evict its successor")
	}
	r.Complete(mustPacket(t, 1, 8, 4, nil))
	if pkt, err := r.Await(context.Background(), fresh, time.Second); err != nil || pkt == nil {
		t.Errorf("fresh entry not completed: %v, %v", pkt, err)
	}
}

func TestRegistry_ContextCancel(t *testing.T) {
	r := NewRegistry(nil)
	pending := r.Register(Key{Device: 5, Command: 4, Sequence: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Await(ctx, pending, 0)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if r.Len() != 0 {
		t.Error("cancelled entry should be evicted")
	}
}
