// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package robot

import (
	"context"
	"encoding/binary"
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/Thermoquad/edubot/pkg/event"
	"github.com/Thermoquad/edubot/pkg/packet"
	"github.com/Thermoquad/edubot/pkg/transport"
)

// Marker positions
const (
	MarkerUp    = 0
	MarkerDown  = 1
	MarkerErase = 2
)

// Light sensor states
const (
	LightUnknown               = 0
	LightDark                  = 4
	LightRightBrighterThanLeft = 5
	LightLeftBrighterThanRight = 6
	LightBright                = 7
)

// Gravity compensation modes
const (
	GravityOff        = 0
	GravityOn         = 1
	GravityWhenMarker = 2
)

// Color IDs reported by the color sensor
const (
	ColorWhite = 0
	ColorBlack = 1
	ColorRed   = 2
	ColorGreen = 3
	ColorBlue  = 4

	// ColorAny leaves a zone out of a color condition
	ColorAny = event.ColorSkip
)

// Color sensor lighting
const (
	ColorLightingOff   = 0
	ColorLightingRed   = 1
	ColorLightingGreen = 2
	ColorLightingBlue  = 3
	ColorLightingAll   = 4
)

// Color sensor value formats
const (
	ColorFormatADCCounts  = 0
	ColorFormatMillivolts = 1
)

// Color sensor banks of eight cells
const (
	ColorSensors0To7   = 0
	ColorSensors8To15  = 1
	ColorSensors16To23 = 2
	ColorSensors24To31 = 3
)

// Root is the drawing robot: marker and eraser, a 32-cell color sensor,
// ambient light sensors and an accelerometer. Its pose is integrated from
// commanded movements unless Options.FirmwarePose is set.
type Root struct {
	*Robot

	firmwarePose bool

	poseMu sync.Mutex
	pose   Pose

	sensorMu sync.RWMutex
	colors   []uint8
	light    LightSensors
}

// NewRoot creates a Root robot on t
func NewRoot(t transport.Transport, opts Options) *Root {
	r := &Root{
		Robot: newRobot(t, opts),
		pose:  HomePose,
	}
	r.firmwarePose = r.opts.FirmwarePose

	r.notifications[packet.ColorEvent] = r.decodeColors
	r.notifications[packet.LightEvent] = r.decodeLight

	r.hooks = motionHooks{
		moved:  r.moved,
		turned: r.turned,
		arced:  r.arced,
		stop:   r.ResetNavigation,
	}
	return r
}

// ============================================================
// Pose
// ============================================================

func (r *Root) moved(resp *packet.Packet, distance float64) {
	r.updatePose(resp, func(p *Pose) { p.Move(distance) })
}

func (r *Root) turned(resp *packet.Packet, left float64) {
	r.updatePose(resp, func(p *Pose) { p.TurnLeft(left) })
}

func (r *Root) arced(resp *packet.Packet, left, radius float64) {
	r.updatePose(resp, func(p *Pose) { p.Arc(left, radius) })
}

// updatePose applies a commanded movement, or with firmware pose copies the
// pose carried by the response. A timed out firmware movement leaves the
// pose unchanged.
func (r *Root) updatePose(resp *packet.Packet, local func(*Pose)) {
	r.poseMu.Lock()
	defer r.poseMu.Unlock()

	if !r.firmwarePose {
		local(&r.pose)
		return
	}
	if resp != nil {
		r.pose = parsePose(resp.Payload())
	}
}

// Pose returns the current pose estimate
func (r *Root) Pose() Pose {
	r.poseMu.Lock()
	defer r.poseMu.Unlock()
	return r.pose
}

// Position returns the pose. With firmware pose the robot is queried.
func (r *Root) Position(ctx context.Context) (Pose, error) {
	if !r.firmwarePose {
		return r.Pose(), nil
	}
	resp, err := r.request(ctx, packet.GetPosition, nil, r.opts.DefaultTimeout)
	if err != nil {
		return Pose{}, err
	}
	pose := parsePose(resp.Payload())

	r.poseMu.Lock()
	r.pose = pose
	r.poseMu.Unlock()

	return pose, nil
}

// ResetNavigation moves the origin to the current position, heading 90
func (r *Root) ResetNavigation(ctx context.Context) error {
	r.poseMu.Lock()
	r.pose = HomePose
	r.poseMu.Unlock()

	if r.firmwarePose {
		return r.send(ctx, packet.ResetPosition, nil)
	}
	return nil
}

// NavigateTo turns toward (x, y), drives there and, when heading is given,
// turns to face it
func (r *Root) NavigateTo(ctx context.Context, x, y float64, heading *float64) error {
	mv := MovementTo(r.Pose(), x, y)
	if err := r.TurnLeft(ctx, mv.Angle); err != nil {
		return err
	}
	if err := r.Move(ctx, mv.Distance); err != nil {
		return err
	}
	if heading != nil {
		return r.TurnLeft(ctx, MinimizeAngle(*heading-r.Pose().Heading))
	}
	return nil
}

// ============================================================
// Marker and motors
// ============================================================

// SetMarker moves the marker and eraser. It is a no-op while motors are
// disabled.
func (r *Root) SetMarker(ctx context.Context, position int) error {
	payload := []byte{uint8(lo.Clamp(position, MarkerUp, MarkerErase))}
	return r.motion(ctx, packet.SetMarker, payload, r.opts.DefaultTimeout, nil)
}

// SetGravityCompensation configures vertical driving compensation; amount
// is a percentage between 0 and 300
func (r *Root) SetGravityCompensation(ctx context.Context, mode int, amount float64) error {
	payload := []byte{uint8(lo.Clamp(mode, GravityOff, GravityWhenMarker))}
	payload = binary.BigEndian.AppendUint16(payload, uint16(lo.Clamp(toInt32(amount, 10), 0, 3000)))
	return r.send(ctx, packet.GravityCompensation, payload)
}

// ============================================================
// Sensors
// ============================================================

func (r *Root) decodeColors(p *packet.Packet) event.Reading {
	colors := parseColors(p.Payload())

	r.sensorMu.Lock()
	r.colors = colors
	r.sensorMu.Unlock()

	return event.Reading{Colors: colors}
}

func (r *Root) decodeLight(p *packet.Packet) event.Reading {
	light := parseLight(p.Payload())

	r.sensorMu.Lock()
	r.light = light
	r.sensorMu.Unlock()

	return event.Reading{Light: light.State}
}

// Colors returns the color IDs of the last scan, one per cell
func (r *Root) Colors() []uint8 {
	r.sensorMu.RLock()
	defer r.sensorMu.RUnlock()
	return slices.Clone(r.colors)
}

// LightSensors returns the last reported light sensor state
func (r *Root) LightSensors() LightSensors {
	r.sensorMu.RLock()
	defer r.sensorMu.RUnlock()
	return r.light
}

// GetColorValues reads the raw values of one bank of eight color cells
func (r *Root) GetColorValues(ctx context.Context, bank, lighting, format int) ([8]uint16, error) {
	var values [8]uint16
	payload := []byte{
		uint8(lo.Clamp(bank, ColorSensors0To7, ColorSensors24To31)),
		uint8(lo.Clamp(lighting, ColorLightingOff, ColorLightingAll)),
		uint8(lo.Clamp(format, ColorFormatADCCounts, ColorFormatMillivolts)),
	}
	resp, err := r.request(ctx, packet.GetColorData, payload, r.opts.DefaultTimeout)
	if err != nil {
		return values, err
	}
	data := resp.Payload()
	for i := range values {
		values[i] = binary.BigEndian.Uint16(data[2*i:])
	}
	return values, nil
}

// GetLightValues queries the ambient light sensors
func (r *Root) GetLightValues(ctx context.Context) (left, right uint16, err error) {
	resp, err := r.request(ctx, packet.GetLightValues, nil, r.opts.DefaultTimeout)
	if err != nil {
		return 0, 0, err
	}
	data := resp.Payload()
	return binary.BigEndian.Uint16(data[4:6]), binary.BigEndian.Uint16(data[6:8]), nil
}

// GetAccelerometer reads one accelerometer sample
func (r *Root) GetAccelerometer(ctx context.Context) (Accelerometer, error) {
	resp, err := r.request(ctx, packet.GetAccelerometer, nil, r.opts.DefaultTimeout)
	if err != nil {
		return Accelerometer{}, err
	}
	data := resp.Payload()
	return Accelerometer{
		X: int16(binary.BigEndian.Uint16(data[4:6])),
		Y: int16(binary.BigEndian.Uint16(data[6:8])),
		Z: int16(binary.BigEndian.Uint16(data[8:10])),
	}, nil
}

// ============================================================
// Events
// ============================================================

// WhenColorScanned registers a handler for color scans. Each condition
// entry is a zone of the sensor; use ColorAny for zones that do not matter.
// An empty condition fires on every scan.
func (r *Root) WhenColorScanned(cond event.Colors, h Handler) {
	r.events.Register(packet.ColorEvent, cond, h)
}

// WhenLightSeen registers a handler fired when the light state becomes state
func (r *Root) WhenLightSeen(state uint8, h Handler) {
	r.events.Register(packet.LightEvent, event.Light(state), h)
}

func (r *Root) String() string {
	return fmt.Sprintf("Root %s pose %s", r.State(), r.Pose())
}
