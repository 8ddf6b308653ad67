// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package packet

import (
	"encoding/hex"
	"fmt"
)

// LineDecoder reassembles hex-encoded frames from a serial byte stream.
// Each frame is 40 hex characters terminated by a newline.
type LineDecoder struct {
	buffer []byte
}

// NewLineDecoder creates a new hex line decoder
func NewLineDecoder() *LineDecoder {
	return &LineDecoder{
		buffer: make([]byte, 0, maxLineBuffer),
	}
}

// Reset discards any partially received line
func (d *LineDecoder) Reset() {
	d.buffer = d.buffer[:0]
}

// DecodeByte processes a single byte from the stream.
// Returns a completed packet, or nil if the line is incomplete.
// Returns an error if a terminated line does not hold a valid frame.
func (d *LineDecoder) DecodeByte(b byte) (*Packet, error) {
	frame, err := d.FeedByte(b)
	if frame == nil || err != nil {
		return nil, err
	}
	return Decode(frame)
}

// FeedByte is DecodeByte without the CRC check. It returns the raw 20-byte
// frame once a line is terminated.
func (d *LineDecoder) FeedByte(b byte) ([]byte, error) {
	if b != LineTerminator {
		if len(d.buffer) >= maxLineBuffer {
			// Keep only the tail; a frame is always the last 40 characters
			n := copy(d.buffer, d.buffer[len(d.buffer)-HexFrameSize:])
			d.buffer = d.buffer[:n]
		}
		d.buffer = append(d.buffer, b)
		return nil, nil
	}

	line := d.buffer
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	defer d.Reset()

	if len(line) < HexFrameSize {
		return nil, fmt.Errorf("%w: short line of %d characters", ErrInvalidLength, len(line))
	}

	frame := make([]byte, FrameSize)
	if _, err := hex.Decode(frame, line[len(line)-HexFrameSize:]); err != nil {
		return nil, fmt.Errorf("invalid hex line: %w", err)
	}
	return frame, nil
}

// EncodeLine converts a 20-byte frame into its hex line form
func EncodeLine(frame []byte) []byte {
	line := make([]byte, hex.EncodedLen(len(frame))+1)
	hex.Encode(line, frame)
	line[len(line)-1] = LineTerminator
	return line
}
