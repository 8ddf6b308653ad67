// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package packet

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Statistics tracks link statistics and error rates.
// Safe for concurrent use.
type Statistics struct {
	mu sync.Mutex

	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames   uint64
	ValidFrames   uint64
	CRCErrors     uint64
	LengthErrors  uint64
	DecodeErrors  uint64
	Notifications uint64
	Responses     uint64
	Unmatched     uint64
	SentFrames    uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// Snapshot is a point-in-time copy of the counters
type Snapshot struct {
	Elapsed       time.Duration
	TotalFrames   uint64
	ValidFrames   uint64
	CRCErrors     uint64
	LengthErrors  uint64
	DecodeErrors  uint64
	Notifications uint64
	Responses     uint64
	Unmatched     uint64
	SentFrames    uint64
	FrameRate     float64
	ErrorRate     float64
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// RecordDecode counts a received frame and its decode outcome
func (s *Statistics) RecordDecode(decodeErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.TotalFrames++
	s.LastUpdateTime = time.Now()

	switch {
	case decodeErr == nil:
		s.ValidFrames++
	case errors.Is(decodeErr, ErrCRCMismatch):
		s.CRCErrors++
	case errors.Is(decodeErr, ErrInvalidLength):
		s.LengthErrors++
	default:
		s.DecodeErrors++
	}
}

// RecordNotification counts a frame routed to the event registry
func (s *Statistics) RecordNotification() {
	s.mu.Lock()
	s.Notifications++
	s.mu.Unlock()
}

// RecordResponse counts a frame that completed a pending request
func (s *Statistics) RecordResponse() {
	s.mu.Lock()
	s.Responses++
	s.mu.Unlock()
}

// RecordUnmatched counts a valid frame that matched neither table
func (s *Statistics) RecordUnmatched() {
	s.mu.Lock()
	s.Unmatched++
	s.mu.Unlock()
}

// RecordSent counts an outbound frame
func (s *Statistics) RecordSent() {
	s.mu.Lock()
	s.SentFrames++
	s.mu.Unlock()
}

// Snapshot calculates rates and returns a copy of the counters
func (s *Statistics) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := time.Since(s.StartTime)
	if secs := elapsed.Seconds(); secs > 0 {
		s.FrameRate = float64(s.TotalFrames) / secs
		s.ErrorRate = float64(s.CRCErrors+s.LengthErrors+s.DecodeErrors) / secs
	}

	return Snapshot{
		Elapsed:       elapsed,
		TotalFrames:   s.TotalFrames,
		ValidFrames:   s.ValidFrames,
		CRCErrors:     s.CRCErrors,
		LengthErrors:  s.LengthErrors,
		DecodeErrors:  s.DecodeErrors,
		Notifications: s.Notifications,
		Responses:     s.Responses,
		Unmatched:     s.Unmatched,
		SentFrames:    s.SentFrames,
		FrameRate:     s.FrameRate,
		ErrorRate:     s.ErrorRate,
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	snap := s.Snapshot()

	var validPercent, crcErrorPercent float64
	if snap.TotalFrames > 0 {
		validPercent = float64(snap.ValidFrames) * 100.0 / float64(snap.TotalFrames)
		crcErrorPercent = float64(snap.CRCErrors) * 100.0 / float64(snap.TotalFrames)
	}

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", snap.Elapsed.Seconds())
	result += fmt.Sprintf("Frames Received: %8d\n", snap.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", snap.ValidFrames, validPercent)
	result += fmt.Sprintf("Frames Sent:     %8d\n", snap.SentFrames)

	if snap.CRCErrors > 0 {
		result += fmt.Sprintf("CRC Errors:      %8d (%.1f%%)\n", snap.CRCErrors, crcErrorPercent)
	}
	if snap.LengthErrors > 0 {
		result += fmt.Sprintf("Length Errors:   %8d\n", snap.LengthErrors)
	}
	if snap.DecodeErrors > 0 {
		result += fmt.Sprintf("Decode Errors:   %8d\n", snap.DecodeErrors)
	}

	result += fmt.Sprintf("Notifications:   %8d\n", snap.Notifications)
	result += fmt.Sprintf("Responses:       %8d\n", snap.Responses)
	if snap.Unmatched > 0 {
		result += fmt.Sprintf("Unmatched:       %8d\n", snap.Unmatched)
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", snap.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", snap.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.StartTime = now
	s.LastUpdateTime = now
	s.TotalFrames = 0
	s.ValidFrames = 0
	s.CRCErrors = 0
	s.LengthErrors = 0
	s.DecodeErrors = 0
	s.Notifications = 0
	s.Responses = 0
	s.Unmatched = 0
	s.SentFrames = 0
	s.FrameRate = 0
	s.ErrorRate = 0
}
