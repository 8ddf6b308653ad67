// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package packet

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// ============================================================
// CRC Tests
// ============================================================

func TestCalculateCRC_Empty(t *testing.T) {
	crc := CalculateCRC([]byte{})
	if crc != crcInitial {
		t.Errorf("CRC of empty data should be initial value, got 0x%02X", crc)
	}
}

func TestCalculateCRC_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint8
	}{
		{
			name:     "ASCII '123456789'",
			data:     []byte("123456789"),
			expected: 0xF4, // Standard CRC-8 (poly 0x07) check value
		},
		{
			name:     "single zero byte",
			data:     []byte{0x00},
			expected: 0x00,
		},
		{
			name:     "single 0x01",
			data:     []byte{0x01},
			expected: 0x07,
		},
		{
			name:     "single 0x80",
			data:     []byte{0x80},
			expected: 0x89,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crc := CalculateCRC(tt.data)
			if crc != tt.expected {
				t.Errorf("CRC mismatch: expected 0x%02X, got 0x%02X", tt.expected, crc)
			}
		})
	}
}

func TestCalculateCRC_Deterministic(t *testing.T) {
	data := []byte{0x01, 0x08, 0x05, 0x00, 0x00, 0x00, 0xA0}
	if CalculateCRC(data) != CalculateCRC(data) {
		t.Error("CRC should be deterministic")
	}
}

// ============================================================
// Encode / Decode Tests
// ============================================================

func TestEncode_FrameLayout(t *testing.T) {
	frame, err := Encode(1, 8, 42, []byte{0x00, 0x00, 0x00, 0xA0})
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if len(frame) != FrameSize {
		t.Fatalf("frame length = %d, want %d", len(frame), FrameSize)
	}
	if frame[0] != 1 || frame[1] != 8 || frame[2] != 42 {
		t.Errorf("header = % X, want 01 08 2A", frame[:3])
	}
	if !bytes.Equal(frame[3:7], []byte{0x00, 0x00, 0x00, 0xA0}) {
		t.Errorf("payload prefix = % X", frame[3:7])
	}
	for i := 7; i < 19; i++ {
		if frame[i] != 0 {
			t.Errorf("payload byte %d = 0x%02X, want zero padding", i, frame[i])
		}
	}
	if frame[19] != CalculateCRC(frame[:19]) {
		t.Errorf("crc byte = 0x%02X, want 0x%02X", frame[19], CalculateCRC(frame[:19]))
	}
}

func TestEncode_PayloadTooLarge(t *testing.T) {
	_, err := Encode(0, 1, 0, make([]byte, PayloadSize+1))
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		device  uint8
		command uint8
		seq     uint8
		payload []byte
	}{
		{name: "empty payload", device: 0, command: 3, seq: 0},
		{name: "move 16cm", device: 1, command: 8, seq: 7, payload: []byte{0, 0, 0, 160}},
		{name: "full payload", device: 5, command: 4, seq: 255, payload: []byte("sixteen bytes!!!")},
		{name: "high device", device: 100, command: 1, seq: 128, payload: []byte{192, 168, 1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Encode(tt.device, tt.command, tt.seq, tt.payload)
			if err != nil {
				t.Fatalf("Encode error: %v", err)
			}
			p, err := Decode(frame)
			if err != nil {
				t.Fatalf("Decode error: %v", err)
			}
			if p.Device() != tt.device || p.Command() != tt.command || p.Sequence() != tt.seq {
				t.Errorf("header = (%d,%d,%d), want (%d,%d,%d)",
					p.Device(), p.Command(), p.Sequence(), tt.device, tt.command, tt.seq)
			}
			want := make([]byte, PayloadSize)
			copy(want, tt.payload)
			if !bytes.Equal(p.Payload(), want) {
				t.Errorf("payload = % X, want % X", p.Payload(), want)
			}
			if !p.CheckCRC() {
				t.Error("decoded packet should have a valid CRC")
			}
			if !bytes.Equal(p.Bytes(), frame) {
				t.Errorf("re-encoded frame differs: % X vs % X", p.Bytes(), frame)
			}
		})
	}
}

func TestDecode_InvalidLength(t *testing.T) {
	for _, n := range []int{0, 1, 19, 21, 40} {
		_, err := Decode(make([]byte, n))
		if !errors.Is(err, ErrInvalidLength) {
			t.Errorf("length %d: expected ErrInvalidLength, got %v", n, err)
		}
	}
}

func TestDecode_SingleBitFlipDetected(t *testing.T) {
	frame, err := Encode(12, 0, 3, []byte{0, 0, 0x12, 0x34, 0x80})
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	for bit := 0; bit < FrameSize*8; bit++ {
		corrupted := append([]byte(nil), frame...)
		corrupted[bit/8] ^= 0x80 >> (bit % 8)
		if _, err := Decode(corrupted); !errors.Is(err, ErrCRCMismatch) {
			t.Errorf("bit %d flipped: expected ErrCRCMismatch, got %v", bit, err)
		}
	}
}

func TestPacket_PayloadIsCopy(t *testing.T) {
	p, err := New(0, 1, 0, []byte("Root"))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	payload := p.Payload()
	payload[0] = 'X'
	if p.Payload()[0] != 'R' {
		t.Error("mutating Payload() result should not change the packet")
	}
}

func TestNewFor(t *testing.T) {
	p, err := NewFor(DriveArc, 9, nil)
	if err != nil {
		t.Fatalf("NewFor error: %v", err)
	}
	if p.Endpoint() != DriveArc {
		t.Errorf("Endpoint() = %v, want %v", p.Endpoint(), DriveArc)
	}
}

// ============================================================
// Line Decoder Tests
// ============================================================

func feedLine(t *testing.T, d *LineDecoder, line []byte) (*Packet, error) {
	t.Helper()
	var (
		p   *Packet
		err error
	)
	for _, b := range line {
		p, err = d.DecodeByte(b)
		if p != nil || err != nil {
			return p, err
		}
	}
	return nil, nil
}

func TestLineDecoder_RoundTrip(t *testing.T) {
	frame, _ := Encode(14, 0, 1, []byte{0, 0, 0, 0, 0x0E, 0x10, 87})
	line := EncodeLine(frame)

	if len(line) != HexFrameSize+1 || line[len(line)-1] != '\n' {
		t.Fatalf("EncodeLine produced %q", line)
	}

	d := NewLineDecoder()
	p, err := feedLine(t, d, line)
	if err != nil {
		t.Fatalf("DecodeByte error: %v", err)
	}
	if p == nil {
		t.Fatal("expected a packet after newline")
	}
	if p.Endpoint() != BatteryEvent {
		t.Errorf("Endpoint() = %v, want %v", p.Endpoint(), BatteryEvent)
	}
}

func TestLineDecoder_LeadingNoiseAndCRLF(t *testing.T) {
	frame, _ := Encode(0, 2, 5, []byte("Root"))
	line := append([]byte("garbage"), EncodeLine(frame)...)
	line = append(line[:len(line)-1], '\r', '\n')

	p, err := feedLine(t, NewLineDecoder(), line)
	if err != nil {
		t.Fatalf("DecodeByte error: %v", err)
	}
	if p == nil || p.Sequence() != 5 {
		t.Fatalf("expected packet with seq 5, got %v", p)
	}
}

func TestLineDecoder_ShortLine(t *testing.T) {
	_, err := feedLine(t, NewLineDecoder(), []byte("0102\n"))
	if !errors.Is(err, ErrInvalidLength) {
		t.Errorf("expected ErrInvalidLength, got %v", err)
	}
}

func TestLineDecoder_CorruptLine(t *testing.T) {
	frame, _ := Encode(12, 0, 0, []byte{0, 0, 0, 0, 0x80})
	frame[5] ^= 0x01
	_, err := feedLine(t, NewLineDecoder(), EncodeLine(frame))
	if !errors.Is(err, ErrCRCMismatch) {
		t.Errorf("expected ErrCRCMismatch, got %v", err)
	}
}

func TestLineDecoder_RecoversAfterError(t *testing.T) {
	d := NewLineDecoder()
	if _, err := feedLine(t, d, []byte("zz\n")); err == nil {
		t.Fatal("expected error for short line")
	}
	frame, _ := Encode(17, 0, 2, []byte{0, 0, 0, 0, 0x40})
	p, err := feedLine(t, d, EncodeLine(frame))
	if err != nil || p == nil {
		t.Fatalf("decoder did not recover: %v, %v", p, err)
	}
}

func TestLineDecoder_LongNoiseIsBounded(t *testing.T) {
	d := NewLineDecoder()
	noise := bytes.Repeat([]byte("a"), 4*maxLineBuffer)
	frame, _ := Encode(20, 0, 0, []byte{0, 0, 0, 0, 1})
	p, err := feedLine(t, d, append(noise, EncodeLine(frame)...))
	if err != nil || p == nil {
		t.Fatalf("expected packet after noise, got %v, %v", p, err)
	}
	if cap(d.buffer) > 2*maxLineBuffer {
		t.Errorf("buffer grew to %d", cap(d.buffer))
	}
}

// ============================================================
// Formatter / Statistics Tests
// ============================================================

func TestFormatEndpoint(t *testing.T) {
	if got := FormatEndpoint(BumperEvent); got != "BUMPER_EVENT" {
		t.Errorf("FormatEndpoint(BumperEvent) = %q", got)
	}
	if got := FormatEndpoint(Endpoint{200, 200}); got != "UNKNOWN" {
		t.Errorf("FormatEndpoint(unknown) = %q", got)
	}
}

func TestFormatPacket_Bumper(t *testing.T) {
	p, _ := New(12, 0, 1, []byte{0, 0, 0, 0, 0x80})
	out := FormatPacket(p)
	if !strings.Contains(out, "BUMPER_EVENT") || !strings.Contains(out, "Left: true, Right: false") {
		t.Errorf("unexpected format output: %q", out)
	}
}

func TestStatistics_RecordDecode(t *testing.T) {
	s := NewStatistics()
	s.RecordDecode(nil)
	s.RecordDecode(ErrCRCMismatch)
	s.RecordDecode(ErrInvalidLength)
	s.RecordDecode(errors.New("bad hex"))
	s.RecordNotification()
	s.RecordResponse()
	s.RecordSent()

	snap := s.Snapshot()
	if snap.TotalFrames != 4 || snap.ValidFrames != 1 || snap.CRCErrors != 1 ||
		snap.LengthErrors != 1 || snap.DecodeErrors != 1 {
		t.Errorf("unexpected counters: %+v", snap)
	}
	if !strings.Contains(s.String(), "CRC Errors") {
		t.Error("String() should include CRC errors when present")
	}

	s.Reset()
	if s.Snapshot().TotalFrames != 0 {
		t.Error("Reset() should clear counters")
	}
}

// ============================================================
// Validator Tests
// ============================================================

func TestValidatePacket(t *testing.T) {
	tests := []struct {
		name    string
		ep      Endpoint
		payload []byte
		want    []AnomalyType
	}{
		{"battery ok", BatteryEvent, []byte{0, 0, 0, 0, 0x0F, 0xA0, 85}, nil},
		{"battery over 100", BatteryEvent, []byte{0, 0, 0, 0, 0x0F, 0xA0, 101}, []AnomalyType{AnomalyInvalidValue}},
		{"light state ok", LightEvent, []byte{0, 0, 0, 0, 6}, nil},
		{"light state invalid", LightEvent, []byte{0, 0, 0, 0, 3}, []AnomalyType{AnomalyInvalidValue}},
		{"stall motor and cause invalid", MotorStallEvent, []byte{0, 0, 0, 0, 3, 9},
			[]AnomalyType{AnomalyInvalidValue, AnomalyInvalidValue}},
		{"unknown endpoint", Endpoint{42, 42}, nil, []AnomalyType{AnomalyUnknownEndpoint}},
		{"command response", SetLights, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewFor(tt.ep, 0, tt.payload)
			if err != nil {
				t.Fatalf("NewFor() error = %v", err)
			}

			got := ValidatePacket(p)
			if len(got) != len(tt.want) {
				t.Fatalf("ValidatePacket() = %v, want %d issues", got, len(tt.want))
			}
			for i, v := range got {
				if v.Type != tt.want[i] {
					t.Errorf("issue %d type = %v, want %v", i, v.Type, tt.want[i])
				}
				if v.Error() == "" {
					t.Errorf("issue %d has no message", i)
				}
			}
		})
	}
}
