// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package packet

import (
	"fmt"
	"time"
)

// Packet represents one decoded or outbound robot frame
type Packet struct {
	device    uint8
	command   uint8
	sequence  uint8
	payload   [PayloadSize]byte
	crc       uint8
	timestamp time.Time
}

// New creates an outbound packet. The payload is zero-padded to 16 bytes and
// the CRC is computed immediately.
func New(device, command, sequence uint8, payload []byte) (*Packet, error) {
	if len(payload) > PayloadSize {
		return nil, fmt.Errorf("%w: got %d", ErrPayloadTooLarge, len(payload))
	}
	p := &Packet{
		device:    device,
		command:   command,
		sequence:  sequence,
		timestamp: time.Now(),
	}
	copy(p.payload[:], payload)
	p.crc = CalculateCRC(p.header())
	return p, nil
}

// NewFor creates an outbound packet addressed to an endpoint
func NewFor(ep Endpoint, sequence uint8, payload []byte) (*Packet, error) {
	return New(ep.Device, ep.Command, sequence, payload)
}

// Encode builds the 20-byte wire frame for the given fields
func Encode(device, command, sequence uint8, payload []byte) ([]byte, error) {
	p, err := New(device, command, sequence, payload)
	if err != nil {
		return nil, err
	}
	return p.Bytes(), nil
}

// Decode parses a 20-byte frame. Frames of any other length are rejected with
// ErrInvalidLength; a stored CRC that does not match the first 19 bytes is
// reported with ErrCRCMismatch.
func Decode(frame []byte) (*Packet, error) {
	if len(frame) != FrameSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLength, len(frame))
	}

	p := &Packet{
		device:    frame[0],
		command:   frame[1],
		sequence:  frame[2],
		crc:       frame[crcOffset],
		timestamp: time.Now(),
	}
	copy(p.payload[:], frame[HeaderSize:crcOffset])

	if calculated := CalculateCRC(frame[:crcOffset]); calculated != p.crc {
		return nil, fmt.Errorf("%w: expected 0x%02X, got 0x%02X", ErrCRCMismatch, calculated, p.crc)
	}
	return p, nil
}

// header returns the 19 bytes covered by the CRC
func (p *Packet) header() []byte {
	buf := make([]byte, crcOffset)
	buf[0] = p.device
	buf[1] = p.command
	buf[2] = p.sequence
	copy(buf[HeaderSize:], p.payload[:])
	return buf
}

// Bytes returns the 20-byte wire frame
func (p *Packet) Bytes() []byte {
	buf := make([]byte, FrameSize)
	copy(buf, p.header())
	buf[crcOffset] = p.crc
	return buf
}

// Device returns the device byte
func (p *Packet) Device() uint8 {
	return p.device
}

// Command returns the command byte
func (p *Packet) Command() uint8 {
	return p.command
}

// Sequence returns the sequence byte
func (p *Packet) Sequence() uint8 {
	return p.sequence
}

// Endpoint returns the packet's (device, command) pair
func (p *Packet) Endpoint() Endpoint {
	return Endpoint{Device: p.device, Command: p.command}
}

// Payload returns a copy of the 16-byte payload
func (p *Packet) Payload() []byte {
	out := make([]byte, PayloadSize)
	copy(out, p.payload[:])
	return out
}

// CRC returns the packet's stored CRC
func (p *Packet) CRC() uint8 {
	return p.crc
}

// CheckCRC reports whether the stored CRC matches the packet contents
func (p *Packet) CheckCRC() bool {
	return p.crc == CalculateCRC(p.header())
}

// Timestamp returns the packet's creation or decode time
func (p *Packet) Timestamp() time.Time {
	return p.timestamp
}

// String implements fmt.Stringer
func (p *Packet) String() string {
	return fmt.Sprintf("Packet [%3d, %3d, %3d]: %x", p.device, p.command, p.sequence, p.payload[:])
}
