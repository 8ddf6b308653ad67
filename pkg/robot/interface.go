// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package robot

import (
	"context"
	"fmt"
	"time"

	"github.com/Thermoquad/edubot/pkg/event"
	"github.com/Thermoquad/edubot/pkg/packet"
	"github.com/Thermoquad/edubot/pkg/transport"
)

// Controller is the command surface shared by every robot family
type Controller interface {
	// Lifecycle
	Play(ctx context.Context) error
	Close() error
	State() State
	Statistics() *packet.Statistics
	Wait(ctx context.Context, d time.Duration) error

	// General
	Stop(ctx context.Context) error
	GetVersions(ctx context.Context, board uint8) (Versions, error)
	SetName(ctx context.Context, name string) error
	GetName(ctx context.Context) (string, error)
	GetSerialNumber(ctx context.Context) (string, error)
	GetSKU(ctx context.Context) (string, error)
	GetBatteryLevel(ctx context.Context) (Battery, error)

	// Motion
	SetWheelSpeeds(ctx context.Context, left, right float64) error
	Move(ctx context.Context, distance float64) error
	TurnLeft(ctx context.Context, angle float64) error
	TurnRight(ctx context.Context, angle float64) error
	Arc(ctx context.Context, direction int, angle, radius float64) error
	NavigateTo(ctx context.Context, x, y float64, heading *float64) error
	ResetNavigation(ctx context.Context) error
	Position(ctx context.Context) (Pose, error)
	Pose() Pose

	// Lights and sound
	SetLights(ctx context.Context, animation, red, green, blue int) error
	PlayNote(ctx context.Context, frequency, duration float64) error
	StopSound(ctx context.Context) error
	Say(ctx context.Context, phrase string) error

	// Sensors
	Bumpers() Bumpers
	TouchSensors() TouchSensors
	CliffSensor() CliffSensor
	Battery() Battery
	MotorStall() MotorStall

	// Events
	WhenPlay(h Handler)
	WhenStop(h Handler)
	WhenBumped(cond event.Flags, h Handler)
	WhenTouched(cond event.Flags, h Handler)
	WhenCliffSensor(cond event.Flags, h Handler)
	WhenMotorStalled(h Handler)
	WhenBattery(h Handler)
}

// Ensure both families implement Controller
var (
	_ Controller = (*Root)(nil)
	_ Controller = (*Create3)(nil)
)

// Robot families
const (
	FamilyRoot    = "root"
	FamilyCreate3 = "create3"
)

// New creates a robot of the named family on t
func New(family string, t transport.Transport, opts Options) (Controller, error) {
	switch family {
	case FamilyRoot:
		return NewRoot(t, opts), nil
	case FamilyCreate3:
		return NewCreate3(t, opts), nil
	}
	return nil, fmt.Errorf("unknown robot family %q (want %s or %s)", family, FamilyRoot, FamilyCreate3)
}
