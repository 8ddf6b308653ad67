// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package robot

import (
	"github.com/Thermoquad/edubot/pkg/event"
	"github.com/Thermoquad/edubot/pkg/packet"
)

// Handlers run in their own goroutine with the program context. A handler
// that is still running when its event fires again misses that event.

// WhenPlay registers a handler started once when Play begins
func (r *Robot) WhenPlay(h Handler) {
	r.events.OnPlay(h)
}

// WhenStop registers a handler for the stop button. Play waits for these
// handlers before it ends the program.
func (r *Robot) WhenStop(h Handler) {
	r.events.Register(packet.StopButtonEvent, event.Always, h)
}

// WhenMotorStalled registers a handler for motor stalls
func (r *Robot) WhenMotorStalled(h Handler) {
	r.events.Register(packet.MotorStallEvent, event.Always, h)
}

// WhenBumped registers a handler for the bumpers. The condition is
// [left, right]; an empty condition fires on any bump.
func (r *Robot) WhenBumped(cond event.Flags, h Handler) {
	r.events.Register(packet.BumperEvent, cond, h)
}

// WhenTouched registers a handler for the touch sensors. The condition is
// [front-left, front-right, back-left, back-right]; an empty condition
// fires on any touch.
func (r *Robot) WhenTouched(cond event.Flags, h Handler) {
	r.events.Register(packet.TouchEvent, cond, h)
}

// WhenCliffSensor registers a handler for the cliff sensor. The condition
// is [cliff]; an empty condition fires whenever a cliff is detected.
func (r *Robot) WhenCliffSensor(cond event.Flags, h Handler) {
	r.events.Register(packet.CliffEvent, cond, h)
}

// WhenBattery registers a handler for battery level changes
func (r *Robot) WhenBattery(h Handler) {
	r.events.Register(packet.BatteryEvent, event.Always, h)
}
