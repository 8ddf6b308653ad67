// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package robot

// State is the lifecycle stage of a robot program
type State int32

const (
	// Idle robots have not been played yet
	Idle State = iota
	// Connecting robots are opening their transport
	Connecting
	// Running robots accept commands and dispatch notifications
	Running
	// Stopping robots saw the stop button; responses are still matched
	// but notifications no longer start handlers
	Stopping
	// Disconnected robots have finished their program
	Disconnected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Disconnected:
		return "disconnected"
	}
	return "unknown"
}

// active reports whether the dispatcher is processing frames
func (s State) active() bool {
	return s == Running || s == Stopping
}
