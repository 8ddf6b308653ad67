// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture stores frames exchanged with a robot as a CBOR sequence.
//
// A capture file is a Header item followed by one Record per frame:
//
//	Header: ["edubot-capture", version, created_unix_ns]
//	Record: [time_unix_ns, direction, frame]
package capture

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/Thermoquad/edubot/pkg/packet"
)

// Magic identifies capture files
const Magic = "edubot-capture"

// Version is the capture format version written by Writer
const Version = 1

// ErrBadHeader is returned when a stream does not start with a capture header
var ErrBadHeader = errors.New("capture: not a capture stream")

// Direction of a captured frame relative to the host
type Direction uint8

const (
	// Inbound frames were received from the robot
	Inbound Direction = 0
	// Outbound frames were sent to the robot
	Outbound Direction = 1
)

func (d Direction) String() string {
	if d == Outbound {
		return "TX"
	}
	return "RX"
}

// Header is the first item of a capture stream
type Header struct {
	_       struct{} `cbor:",toarray"`
	Magic   string
	Version uint
	Created int64
}

// Record is one captured frame
type Record struct {
	_         struct{} `cbor:",toarray"`
	Time      int64
	Direction Direction
	Frame     []byte
}

// Timestamp returns the capture time of the record
func (r Record) Timestamp() time.Time {
	return time.Unix(0, r.Time)
}

// Writer appends records to a capture stream. Safe for concurrent use.
type Writer struct {
	mu  sync.Mutex
	enc *cbor.Encoder
	now func() time.Time
}

// NewWriter writes the capture header to w and returns a record writer
func NewWriter(w io.Writer) (*Writer, error) {
	cw := &Writer{enc: cbor.NewEncoder(w), now: time.Now}

	header := Header{Magic: Magic, Version: Version, Created: cw.now().UnixNano()}
	if err := cw.enc.Encode(header); err != nil {
		return nil, fmt.Errorf("write capture header: %w", err)
	}
	return cw, nil
}

// Write appends one frame
func (w *Writer) Write(dir Direction, frame []byte) error {
	if len(frame) != packet.FrameSize {
		return fmt.Errorf("%w: got %d", packet.ErrInvalidLength, len(frame))
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	rec := Record{Time: w.now().UnixNano(), Direction: dir, Frame: frame}
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("write capture record: %w", err)
	}
	return nil
}

// Reader reads records from a capture stream
type Reader struct {
	dec    *cbor.Decoder
	header Header
}

// NewReader reads and validates the capture header
func NewReader(r io.Reader) (*Reader, error) {
	cr := &Reader{dec: cbor.NewDecoder(r)}

	if err := cr.dec.Decode(&cr.header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	if cr.header.Magic != Magic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadHeader, cr.header.Magic)
	}
	if cr.header.Version > Version {
		return nil, fmt.Errorf("capture: unsupported version %d", cr.header.Version)
	}
	return cr, nil
}

// Header returns the stream header
func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next record, or io.EOF at the end of the stream
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("read capture record: %w", err)
	}
	return rec, nil
}

// ReadAll returns every remaining record
func (r *Reader) ReadAll() ([]Record, error) {
	var records []Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
}
