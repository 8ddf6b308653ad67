// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package robot

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/Thermoquad/edubot/pkg/packet"
)

// MaxWheelSpeed is the wheel speed limit in mm/s
const MaxWheelSpeed = 500

// Arc directions
const (
	DirLeft  = 0
	DirRight = 1
)

// Light animations
const (
	LightsOff   = 0
	LightsOn    = 1
	LightsBlink = 2
	LightsSpin  = 3
)

// EventMask is the 128-bit event enable bitfield, one bit per device
type EventMask [packet.PayloadSize]byte

// toInt32 scales v and truncates toward zero, saturating at the int32 range
func toInt32(v, scale float64) int32 {
	return int32(lo.Clamp(v*scale, math.MinInt32, math.MaxInt32))
}

func be32(values ...int32) []byte {
	buf := make([]byte, 0, 4*len(values))
	for _, v := range values {
		buf = binary.BigEndian.AppendUint32(buf, uint32(v))
	}
	return buf
}

// ============================================================
// General
// ============================================================

// Stop halts the motors and resets the robot. It also clears the
// motors-disabled fault raised by a stall.
func (r *Robot) Stop(ctx context.Context) error {
	if r.hooks.stop != nil {
		if err := r.hooks.stop(ctx); err != nil {
			return err
		}
	}
	if err := r.send(ctx, packet.StopReset, nil); err != nil {
		return err
	}
	r.motorsDisabled.Store(false)
	return nil
}

// RequestDisconnect asks the robot to drop the BLE link
func (r *Robot) RequestDisconnect(ctx context.Context) error {
	return r.send(ctx, packet.Disconnect, nil)
}

// EnableEvents turns on notifications for the devices set in mask
func (r *Robot) EnableEvents(ctx context.Context, mask EventMask) error {
	return r.send(ctx, packet.EnableEvents, mask[:])
}

// DisableEvents turns off notifications for the devices set in mask
func (r *Robot) DisableEvents(ctx context.Context, mask EventMask) error {
	return r.send(ctx, packet.DisableEvents, mask[:])
}

// GetEnabledEvents returns the enabled notification mask
func (r *Robot) GetEnabledEvents(ctx context.Context) (EventMask, error) {
	var mask EventMask
	resp, err := r.request(ctx, packet.GetEnabledEvents, nil, r.opts.DefaultTimeout)
	if err != nil {
		return mask, err
	}
	copy(mask[:], resp.Payload())
	return mask, nil
}

// GetVersions returns the version numbers of one board
func (r *Robot) GetVersions(ctx context.Context, board uint8) (Versions, error) {
	resp, err := r.request(ctx, packet.GetVersions, []byte{board}, r.opts.DefaultTimeout)
	if err != nil {
		return Versions{}, err
	}
	return parseVersions(resp.Payload()), nil
}

// SetName renames the robot. Names longer than 16 UTF-8 bytes are cut at a
// rune boundary.
func (r *Robot) SetName(ctx context.Context, name string) error {
	for len(name) > packet.PayloadSize {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return r.send(ctx, packet.SetName, []byte(name))
}

// GetName returns the robot's advertised name
func (r *Robot) GetName(ctx context.Context) (string, error) {
	resp, err := r.request(ctx, packet.GetName, nil, r.opts.DefaultTimeout)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(resp.Payload()), "\x00"), nil
}

// GetSerialNumber returns the serial number. Robots whose serial is not
// valid UTF-8 get its uppercase hex form.
func (r *Robot) GetSerialNumber(ctx context.Context) (string, error) {
	resp, err := r.request(ctx, packet.GetSerialNumber, nil, r.opts.DefaultTimeout)
	if err != nil {
		return "", err
	}
	payload := resp.Payload()
	if serial := bytes.TrimRight(payload, "\x00"); utf8.Valid(serial) {
		return string(serial), nil
	}
	return fmt.Sprintf("%X", payload), nil
}

// GetSKU returns the product SKU
func (r *Robot) GetSKU(ctx context.Context) (string, error) {
	resp, err := r.request(ctx, packet.GetSKU, nil, r.opts.DefaultTimeout)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(resp.Payload()), "\x00"), nil
}

// GetBatteryLevel queries the battery and updates the cached level
func (r *Robot) GetBatteryLevel(ctx context.Context) (Battery, error) {
	resp, err := r.request(ctx, packet.GetBatteryLevel, nil, r.opts.DefaultTimeout)
	if err != nil {
		return Battery{}, err
	}
	b := parseBattery(resp.Payload())

	r.mu.Lock()
	r.battery = b
	r.mu.Unlock()

	return b, nil
}

// ============================================================
// Motion
// ============================================================

func wheelSpeed(cmPerSec float64) int32 {
	return lo.Clamp(toInt32(cmPerSec, 10), -MaxWheelSpeed, MaxWheelSpeed)
}

// SetWheelSpeeds sets both wheel speeds in cm/s
func (r *Robot) SetWheelSpeeds(ctx context.Context, left, right float64) error {
	if r.motorsDisabled.Load() {
		return nil
	}
	return r.send(ctx, packet.SetWheelSpeeds, be32(wheelSpeed(left), wheelSpeed(right)))
}

// SetLeftSpeed sets the left wheel speed in cm/s
func (r *Robot) SetLeftSpeed(ctx context.Context, speed float64) error {
	if r.motorsDisabled.Load() {
		return nil
	}
	return r.send(ctx, packet.SetLeftSpeed, be32(wheelSpeed(speed)))
}

// SetRightSpeed sets the right wheel speed in cm/s
func (r *Robot) SetRightSpeed(ctx context.Context, speed float64) error {
	if r.motorsDisabled.Load() {
		return nil
	}
	return r.send(ctx, packet.SetRightSpeed, be32(wheelSpeed(speed)))
}

// Move drives straight for distance cm; negative distances drive backwards.
// It returns once the robot reports the move finished.
func (r *Robot) Move(ctx context.Context, distance float64) error {
	return r.motion(ctx, packet.DriveDistance, be32(toInt32(distance, 10)), r.timeout(distance/10),
		func(resp *packet.Packet) {
			if r.hooks.moved != nil {
				r.hooks.moved(resp, distance)
			}
		})
}

// TurnRight rotates clockwise by angle degrees
func (r *Robot) TurnRight(ctx context.Context, angle float64) error {
	return r.motion(ctx, packet.RotateAngle, be32(toInt32(angle, 10)), r.timeout(angle/100),
		func(resp *packet.Packet) {
			if r.hooks.turned != nil {
				r.hooks.turned(resp, -angle)
			}
		})
}

// TurnLeft rotates counter-clockwise by angle degrees
func (r *Robot) TurnLeft(ctx context.Context, angle float64) error {
	return r.TurnRight(ctx, -angle)
}

// Arc drives along a circle of radius cm for angle degrees. DirRight turns
// clockwise.
func (r *Robot) Arc(ctx context.Context, direction int, angle, radius float64) error {
	if direction == DirLeft {
		angle, radius = -angle, -radius
	}
	payload := be32(toInt32(angle, 10), toInt32(radius, 10))
	return r.motion(ctx, packet.DriveArc, payload, r.timeout(radius*angle/573),
		func(resp *packet.Packet) {
			if r.hooks.arced != nil {
				r.hooks.arced(resp, -angle, math.Abs(radius))
			}
		})
}

// ArcLeft drives a counter-clockwise arc
func (r *Robot) ArcLeft(ctx context.Context, angle, radius float64) error {
	return r.Arc(ctx, DirLeft, angle, radius)
}

// ArcRight drives a clockwise arc
func (r *Robot) ArcRight(ctx context.Context, angle, radius float64) error {
	return r.Arc(ctx, DirRight, angle, radius)
}

// ============================================================
// Lights
// ============================================================

// SetLights sets the light ring animation and color
func (r *Robot) SetLights(ctx context.Context, animation, red, green, blue int) error {
	payload := []byte{
		uint8(lo.Clamp(animation, LightsOff, LightsSpin)),
		uint8(lo.Clamp(red, 0, 255)),
		uint8(lo.Clamp(green, 0, 255)),
		uint8(lo.Clamp(blue, 0, 255)),
	}
	return r.send(ctx, packet.SetLights, payload)
}

// SetLightsRGB lights the ring in a steady color
func (r *Robot) SetLightsRGB(ctx context.Context, red, green, blue int) error {
	return r.SetLights(ctx, LightsOn, red, green, blue)
}

// SetLightsOff turns the ring off
func (r *Robot) SetLightsOff(ctx context.Context) error {
	return r.SetLights(ctx, LightsOff, 0, 0, 0)
}

// SetLightsBlinkRGB blinks the ring
func (r *Robot) SetLightsBlinkRGB(ctx context.Context, red, green, blue int) error {
	return r.SetLights(ctx, LightsBlink, red, green, blue)
}

// SetLightsSpinRGB spins the ring
func (r *Robot) SetLightsSpinRGB(ctx context.Context, red, green, blue int) error {
	return r.SetLights(ctx, LightsSpin, red, green, blue)
}

// ============================================================
// Sound
// ============================================================

// PlayNote plays a tone of frequency Hz for duration seconds and returns
// once it has finished
func (r *Robot) PlayNote(ctx context.Context, frequency, duration float64) error {
	payload := make([]byte, 0, 6)
	payload = binary.BigEndian.AppendUint32(payload, uint32(lo.Clamp(math.Abs(frequency), 0, math.MaxUint32)))
	payload = binary.BigEndian.AppendUint16(payload, uint16(lo.Clamp(math.Abs(duration)*1000, 0, math.MaxUint16)))

	_, err := r.request(ctx, packet.PlayNote, payload, r.timeout(duration))
	return err
}

// StopSound silences the speaker. A Say in progress sends no further
// chunks and returns without waiting for the robot to finish speaking.
func (r *Robot) StopSound(ctx context.Context) error {
	r.sayMu.Lock()
	if r.stopSay != nil {
		r.stopSay()
	}
	r.sayMu.Unlock()
	return r.send(ctx, packet.StopSound, nil)
}

// Say speaks phrase. Text longer than one payload is sent in 16-byte chunks;
// only the last chunk is awaited. StopSound ends it early with a nil error.
func (r *Robot) Say(ctx context.Context, phrase string) error {
	sayCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.sayMu.Lock()
	r.stopSay = cancel
	r.sayMu.Unlock()

	stopped := func() bool {
		return sayCtx.Err() != nil && ctx.Err() == nil
	}

	chunks := lo.Chunk([]byte(phrase), packet.PayloadSize)
	for i, chunk := range chunks {
		if stopped() {
			return nil
		}
		if i < len(chunks)-1 {
			if err := r.send(sayCtx, packet.SayPhrase, chunk); err != nil {
				return err
			}
			continue
		}
		_, err := r.request(sayCtx, packet.SayPhrase, chunk, r.timeout(float64(len(chunk))))
		if err != nil && stopped() {
			return nil
		}
		return err
	}
	return nil
}

// ============================================================
// Sensor getters
// ============================================================

// Bumpers returns the last reported bumper state
func (r *Robot) Bumpers() Bumpers {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bumpers
}

// TouchSensors returns the last reported touch sensor state
func (r *Robot) TouchSensors() TouchSensors {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.touch
}

// CliffSensor returns the last reported cliff state
func (r *Robot) CliffSensor() CliffSensor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cliff
}

// Battery returns the last reported battery level
func (r *Robot) Battery() Battery {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.battery
}

// MotorStall returns the last reported motor stall
func (r *Robot) MotorStall() MotorStall {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stall
}
