// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package robot

import (
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/Thermoquad/edubot/pkg/packet"
)

var (
	// ErrNotRunning is returned by commands issued outside of Play
	ErrNotRunning = errors.New("robot: not running")

	// ErrAlreadyPlaying is returned when Play is called more than once
	ErrAlreadyPlaying = errors.New("robot: program already running")
)

// DefaultTimeout is the baseline wait for a command response
const DefaultTimeout = 3 * time.Second

// Options configures a robot instance
type Options struct {
	// Logger receives dispatcher diagnostics; nil disables logging
	Logger *zap.SugaredLogger

	// Clock drives command timeouts and waits; nil means wall time
	Clock clock.Clock

	// DefaultTimeout is the baseline command timeout
	DefaultTimeout time.Duration

	// FirmwarePose makes Root take its pose from the robot instead of
	// integrating commanded movements locally
	FirmwarePose bool

	// Statistics collects link counters; nil allocates a private tracker
	Statistics *packet.Statistics
}

// DefaultOptions returns the options used when none are given
func DefaultOptions() Options {
	return Options{
		Logger:         zap.NewNop().Sugar(),
		Clock:          clock.New(),
		DefaultTimeout: DefaultTimeout,
		Statistics:     packet.NewStatistics(),
	}
}

// withDefaults fills unset fields from DefaultOptions
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Logger == nil {
		o.Logger = def.Logger
	}
	if o.Clock == nil {
		o.Clock = def.Clock
	}
	if o.DefaultTimeout <= 0 {
		o.DefaultTimeout = def.DefaultTimeout
	}
	if o.Statistics == nil {
		o.Statistics = def.Statistics
	}
	return o
}
