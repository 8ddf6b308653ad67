// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"testing"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/Thermoquad/edubot/pkg/packet"
	"github.com/Thermoquad/edubot/pkg/transport"
)

// ============================================================
// Uptime Formatting Tests
// ============================================================

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		ms   uint64
		want string
	}{
		{0, "0 seconds"},
		{999, "0 seconds"},
		{1000, "1 second"},
		{61000, "1 minute and 1 second"},
		{120000, "2 minutes"},
		{3723000, "1 hour, 2 minutes, and 3 seconds"},
		{90061000, "1 day, 1 hour, 1 minute, and 1 second"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatUptime(tt.ms); got != tt.want {
				t.Errorf("formatUptime(%d) = %q, want %q", tt.ms, got, tt.want)
			}
		})
	}
}

// ============================================================
// Frame Tracker Tests
// ============================================================

func encodeFrame(t *testing.T, ep packet.Endpoint, payload []byte) []byte {
	t.Helper()
	frame, err := packet.Encode(ep.Device, ep.Command, 0, payload)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	return frame
}

func TestFrameTrackerSync(t *testing.T) {
	tracker := &frameTracker{stats: packet.NewStatistics()}

	corrupt := encodeFrame(t, packet.BatteryEvent, []byte{0, 0, 0, 1, 0x0F, 0xA0, 80})
	corrupt[len(corrupt)-1] ^= 0xFF

	// Garbage before the first valid frame is skipped silently
	p, decodeErr, synced := tracker.track(FrameResult{Frame: corrupt})
	if p != nil || decodeErr != nil || synced {
		t.Fatalf("pre-sync track() = %v, %v, %v", p, decodeErr, synced)
	}
	if tracker.invalidSkips != 1 {
		t.Errorf("invalidSkips = %d, want 1", tracker.invalidSkips)
	}

	p, decodeErr, synced = tracker.track(FrameResult{Frame: encodeFrame(t, packet.BatteryEvent, nil)})
	if p == nil || decodeErr != nil || !synced {
		t.Fatalf("first valid track() = %v, %v, %v", p, decodeErr, synced)
	}

	_, _, synced = tracker.track(FrameResult{Frame: encodeFrame(t, packet.GetName, nil)})
	if synced {
		t.Error("second valid frame reported sync again")
	}

	// After sync, errors are surfaced and counted
	_, decodeErr, _ = tracker.track(FrameResult{Frame: corrupt})
	if !errors.Is(decodeErr, packet.ErrCRCMismatch) {
		t.Errorf("post-sync decodeErr = %v, want ErrCRCMismatch", decodeErr)
	}
	_, decodeErr, _ = tracker.track(FrameResult{Err: &transport.FrameError{Err: errors.New("bad hex")}})
	if decodeErr == nil {
		t.Error("post-sync frame error not surfaced")
	}

	s := tracker.stats.Snapshot()
	if s.TotalFrames != 4 || s.ValidFrames != 2 || s.CRCErrors != 1 {
		t.Errorf("stats = %d total, %d valid, %d crc; want 4, 2, 1", s.TotalFrames, s.ValidFrames, s.CRCErrors)
	}
	if s.Notifications != 1 || s.Responses != 1 {
		t.Errorf("notifications = %d, responses = %d; want 1, 1", s.Notifications, s.Responses)
	}
}

func TestLinkFailure(t *testing.T) {
	if linkFailure(FrameResult{Frame: make([]byte, packet.FrameSize)}) {
		t.Error("frame reported as link failure")
	}
	if linkFailure(FrameResult{Err: &transport.FrameError{Err: errors.New("short")}}) {
		t.Error("frame error reported as link failure")
	}
	if !linkFailure(FrameResult{Err: transport.ErrClosed}) {
		t.Error("ErrClosed not reported as link failure")
	}
}

func TestRobotUptime(t *testing.T) {
	p, err := packet.NewFor(packet.BumperEvent, 0, []byte{0, 0, 0x03, 0xE8, 0x80})
	if err != nil {
		t.Fatalf("NewFor() error = %v", err)
	}
	if ms, ok := robotUptime(p); !ok || ms != 1000 {
		t.Errorf("robotUptime() = %d, %v; want 1000, true", ms, ok)
	}

	p, _ = packet.NewFor(packet.StopButtonEvent, 0, nil)
	if _, ok := robotUptime(p); ok {
		t.Error("stop event should carry no uptime")
	}
}

// ============================================================
// Control TUI Tests
// ============================================================

func TestDriveSpeed(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{"", defaultDriveSpeed, false},
		{"25", 25, false},
		{"50", maxDriveSpeed, false},
		{"0", 0, true},
		{"-5", 0, true},
		{"51", 0, true},
		{"fast", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			in := textinput.New()
			in.Placeholder = "10"
			in.SetValue(tt.input)
			m := &controlModel{speedInput: in}

			got, err := m.driveSpeed()
			if (err != nil) != tt.wantErr {
				t.Fatalf("driveSpeed() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("driveSpeed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultActions(t *testing.T) {
	seen := make(map[string]bool)
	for _, a := range defaultActions() {
		if a.run == nil {
			t.Errorf("action %q has no routine", a.name)
		}
		if seen[a.name] {
			t.Errorf("duplicate action %q", a.name)
		}
		seen[a.name] = true
	}
	if len(seen) == 0 {
		t.Error("no actions defined")
	}
}
