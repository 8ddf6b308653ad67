// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/atomic"

	"github.com/Thermoquad/edubot/pkg/packet"
)

// ============================================================
// Condition Tests
// ============================================================

func TestFlags_Match(t *testing.T) {
	tests := []struct {
		name     string
		cond     Flags
		reading  []bool
		expected bool
	}{
		{"empty fires on left", Flags{}, []bool{true, false}, true},
		{"empty fires on right", Flags{}, []bool{false, true}, true},
		{"empty ignores release", Flags{}, []bool{false, false}, false},
		{"left only, left pressed", Flags{true, false}, []bool{true, false}, true},
		{"left only, right pressed", Flags{true, false}, []bool{false, true}, false},
		{"both declared, left pressed", Flags{true, true}, []bool{true, false}, true},
		{"both declared, right pressed", Flags{true, true}, []bool{false, true}, true},
		{"both declared, none pressed", Flags{true, true}, []bool{false, false}, false},
		{"none declared", Flags{false, false}, []bool{true, true}, false},
		{"touch back-left", Flags{false, false, true, false}, []bool{false, false, true, false}, true},
		{"short condition", Flags{true}, []bool{false, false, false, true}, false},
		{"long condition", Flags{false, false, false, true}, []bool{false, true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cond.Match(Reading{Flags: tt.reading})
			if got != tt.expected {
				t.Errorf("Match(%v) = %v, want %v", tt.reading, got, tt.expected)
			}
		})
	}
}

func TestZoneColors(t *testing.T) {
	cells := make([]uint8, 32)
	for i := 16; i < 32; i++ {
		cells[i] = 2
	}

	zones := ZoneColors(cells, 2)
	if zones[0] != 0 || zones[1] != 2 {
		t.Errorf("ZoneColors(2) = %v, want [0 2]", zones)
	}

	zones = ZoneColors(cells, 1)
	if zones[0] != 0 {
		t.Errorf("tie should resolve to lowest ID, got %d", zones[0])
	}

	zones = ZoneColors(cells, 4)
	if len(zones) != 4 || zones[1] != 0 || zones[2] != 2 {
		t.Errorf("ZoneColors(4) = %v", zones)
	}
}

func TestColors_Match(t *testing.T) {
	cells := make([]uint8, 32)
	for i := range cells {
		if i >= 24 {
			cells[i] = 4
		}
	}
	reading := Reading{Colors: cells}

	tests := []struct {
		name     string
		cond     Colors
		expected bool
	}{
		{"empty", Colors{}, true},
		{"last zone blue", Colors{ColorSkip, ColorSkip, ColorSkip, 4}, true},
		{"first zone white", Colors{0, ColorSkip, ColorSkip, ColorSkip}, true},
		{"first zone red", Colors{2, ColorSkip, ColorSkip, ColorSkip}, false},
		{"all skip", Colors{ColorSkip, ColorSkip}, false},
		{"any zone matches", Colors{1, 1, 1, 4}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cond.Match(reading); got != tt.expected {
				t.Errorf("Match() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLight_Match(t *testing.T) {
	if !Light(5).Match(Reading{Light: 5}) {
		t.Error("equal state should match")
	}
	if Light(5).Match(Reading{Light: 6}) {
		t.Error("different state should not match")
	}
}

// ============================================================
// Registry Tests
// ============================================================

func TestRegistry_DispatchMatching(t *testing.T) {
	r := NewRegistry(nil)
	var left, wildcard, right atomic.Int32

	r.Register(packet.BumperEvent, Flags{true, false}, func(context.Context) error { left.Inc(); return nil })
	r.Register(packet.BumperEvent, Flags{}, func(context.Context) error { wildcard.Inc(); return nil })
	r.Register(packet.BumperEvent, Flags{false, true}, func(context.Context) error { right.Inc(); return nil })

	started := r.Dispatch(context.Background(), packet.BumperEvent, Reading{Flags: []bool{true, false}})
	r.Wait()

	if started != 2 {
		t.Errorf("started %d handlers, want 2", started)
	}
	if left.Load() != 1 || wildcard.Load() != 1 || right.Load() != 0 {
		t.Errorf("calls left=%d wildcard=%d right=%d", left.Load(), wildcard.Load(), right.Load())
	}
}

func TestRegistry_WildcardFiresEveryActivation(t *testing.T) {
	r := NewRegistry(nil)
	var calls atomic.Int32
	r.Register(packet.TouchEvent, Flags{}, func(context.Context) error { calls.Inc(); return nil })

	for _, flags := range [][]bool{
		{true, false, false, false},
		{false, true, false, false},
		{false, false, true, false},
		{false, false, false, true},
	} {
		r.Dispatch(context.Background(), packet.TouchEvent, Reading{Flags: flags})
		r.Wait()
	}

	if calls.Load() != 4 {
		t.Errorf("wildcard fired %d times, want 4", calls.Load())
	}
}

func TestRegistry_InclusiveOrFiresOnSubset(t *testing.T) {
	r := NewRegistry(nil)
	var calls atomic.Int32
	r.Register(packet.BumperEvent, Flags{true, true}, func(context.Context) error { calls.Inc(); return nil })

	r.Dispatch(context.Background(), packet.BumperEvent, Reading{Flags: []bool{false, true}})
	r.Wait()

	if calls.Load() != 1 {
		t.Error("handler for both bumpers should fire on a single bumper")
	}
}

func TestRegistry_AtMostOneRun(t *testing.T) {
	r := NewRegistry(nil)
	release := make(chan struct{})
	entered := make(chan struct{}, 10)
	var concurrent, peak, calls atomic.Int32

	entry := r.Register(packet.BatteryEvent, nil, func(context.Context) error {
		n := concurrent.Inc()
		if n > peak.Load() {
			peak.Store(n)
		}
		calls.Inc()
		entered <- struct{}{}
		<-release
		concurrent.Dec()
		return nil
	})

	if r.Dispatch(context.Background(), packet.BatteryEvent, Reading{}) != 1 {
		t.Fatal("first notification should start the handler")
	}
	<-entered

	if !entry.Running() {
		t.Error("entry should report running")
	}
	for i := 0; i < 5; i++ {
		if r.Dispatch(context.Background(), packet.BatteryEvent, Reading{}) != 0 {
			t.Error("notification during a run should be dropped")
		}
	}

	close(release)
	r.Wait()

	if calls.Load() != 1 || peak.Load() != 1 {
		t.Errorf("calls=%d peak=%d, want 1 and 1", calls.Load(), peak.Load())
	}

	// Runs again once idle
	r.Dispatch(context.Background(), packet.BatteryEvent, Reading{})
	r.Wait()
	if calls.Load() != 2 {
		t.Errorf("handler should run again after returning, calls=%d", calls.Load())
	}
}

func TestRegistry_HandlersRunConcurrently(t *testing.T) {
	r := NewRegistry(nil)
	var wg sync.WaitGroup
	wg.Add(2)
	barrier := func(context.Context) error {
		wg.Done()
		wg.Wait()
		return nil
	}
	r.Register(packet.StopButtonEvent, nil, barrier)
	r.Register(packet.StopButtonEvent, nil, barrier)

	done := make(chan struct{})
	go func() {
		r.Dispatch(context.Background(), packet.StopButtonEvent, Reading{})
		r.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handlers did not run concurrently")
	}
}

func TestRegistry_ErrorAndPanicAreContained(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(packet.CliffEvent, nil, func(context.Context) error { return errors.New("boom") })
	entry := r.Register(packet.CliffEvent, nil, func(context.Context) error { panic("boom") })

	r.Dispatch(context.Background(), packet.CliffEvent, Reading{})
	r.Wait()

	if entry.Running() {
		t.Error("panicking handler should be marked idle")
	}
}

func TestRegistry_StartPlay(t *testing.T) {
	r := NewRegistry(nil)
	var calls atomic.Int32
	r.OnPlay(func(context.Context) error { calls.Inc(); return nil })
	r.OnPlay(func(context.Context) error { calls.Inc(); return nil })

	if n := r.StartPlay(context.Background()); n != 2 {
		t.Errorf("StartPlay() = %d, want 2", n)
	}
	r.Wait()
	if calls.Load() != 2 {
		t.Errorf("play handlers ran %d times", calls.Load())
	}
	if r.Count(packet.BumperEvent) != 0 {
		t.Error("play handlers should not appear under notification endpoints")
	}
}

func TestRegistry_DispatchWait(t *testing.T) {
	r := NewRegistry(nil)
	var finished atomic.Bool
	r.Register(packet.StopButtonEvent, nil, func(context.Context) error {
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
		return nil
	})

	if n := r.DispatchWait(context.Background(), packet.StopButtonEvent, Reading{}); n != 1 {
		t.Fatalf("DispatchWait() = %d, want 1", n)
	}
	if !finished.Load() {
		t.Error("DispatchWait returned before the handler finished")
	}
}
