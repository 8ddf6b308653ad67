// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package robot

import (
	"encoding/binary"
	"fmt"
	"math"
	"net/netip"
)

// Bumpers is the state of the front bumpers
type Bumpers struct {
	Left  bool
	Right bool
}

// Notification payloads start with a 4-byte big-endian timestamp (ms);
// sensor data follows from byte 4.
func parseBumpers(p []byte) Bumpers {
	return Bumpers{
		Left:  p[4]&0x80 != 0,
		Right: p[4]&0x40 != 0,
	}
}

func (b Bumpers) flags() []bool {
	return []bool{b.Left, b.Right}
}

// TouchSensors is the state of the four top touch sensors
type TouchSensors struct {
	FrontLeft  bool
	FrontRight bool
	BackLeft   bool
	BackRight  bool
}

func parseTouch(p []byte) TouchSensors {
	return TouchSensors{
		FrontLeft:  p[4]&0x80 != 0,
		FrontRight: p[4]&0x40 != 0,
		BackRight:  p[4]&0x20 != 0,
		BackLeft:   p[4]&0x10 != 0,
	}
}

// flags returns the sensors in condition order
func (t TouchSensors) flags() []bool {
	return []bool{t.FrontLeft, t.FrontRight, t.BackLeft, t.BackRight}
}

// CliffSensor reports whether the robot is over a cliff. The robot disables
// its own motors while this is set.
type CliffSensor struct {
	Cliff bool
}

// Battery is the battery level
type Battery struct {
	Millivolts uint16
	Percent    uint8
}

func parseBattery(p []byte) Battery {
	return Battery{
		Millivolts: binary.BigEndian.Uint16(p[4:6]),
		Percent:    p[6],
	}
}

// Motor identifiers reported by a stall
const (
	MotorLeft   = 0
	MotorRight  = 1
	MotorMarker = 2
)

// Stall causes
const (
	StallNone         = 0
	StallOverCurrent  = 1
	StallUnderCurrent = 2
	StallUnderSpeed   = 3
	StallSaturatedPID = 4
	StallTimeout      = 5
)

// MotorStall describes the last motor stall
type MotorStall struct {
	Motor uint8
	Cause uint8
}

// LightSensors is the state of Root's ambient light sensors
type LightSensors struct {
	State uint8
	Left  uint16
	Right uint16
}

func parseLight(p []byte) LightSensors {
	return LightSensors{
		State: p[4],
		Left:  binary.BigEndian.Uint16(p[5:7]),
		Right: binary.BigEndian.Uint16(p[7:9]),
	}
}

// ColorCells is the number of cells in Root's color sensor
const ColorCells = 32

// parseColors unpacks 16 bytes into 32 color IDs, high nibble first
func parseColors(p []byte) []uint8 {
	colors := make([]uint8, 0, ColorCells)
	for _, b := range p {
		colors = append(colors, b>>4, b&0x0F)
	}
	return colors
}

// DockingSensor is the state of Create 3's dock detectors
type DockingSensor struct {
	Contacts bool
	IR       [3]uint8
}

func parseDocking(p []byte) DockingSensor {
	return DockingSensor{
		Contacts: p[4] != 0,
		IR:       [3]uint8{p[5], p[6], p[7]},
	}
}

// Versions holds the version numbers of one board
type Versions struct {
	Board           uint8
	FirmwareMajor   uint8
	FirmwareMinor   uint8
	HardwareMajor   uint8
	HardwareMinor   uint8
	BootloaderMajor uint8
	BootloaderMinor uint8
	ProtocolMajor   uint8
	ProtocolMinor   uint8
}

// Boards that answer a version query
const (
	BoardMain  = 0xA5
	BoardColor = 0xC6
)

func parseVersions(p []byte) Versions {
	return Versions{
		Board:           p[0],
		FirmwareMajor:   p[1],
		FirmwareMinor:   p[2],
		HardwareMajor:   p[3],
		HardwareMinor:   p[4],
		BootloaderMajor: p[5],
		BootloaderMinor: p[6],
		ProtocolMajor:   p[7],
		ProtocolMinor:   p[8],
	}
}

func (v Versions) String() string {
	return fmt.Sprintf("board 0x%02X: firmware %d.%d, hardware %d.%d, bootloader %d.%d, protocol %d.%d",
		v.Board, v.FirmwareMajor, v.FirmwareMinor, v.HardwareMajor, v.HardwareMinor,
		v.BootloaderMajor, v.BootloaderMinor, v.ProtocolMajor, v.ProtocolMinor)
}

// Accelerometer is one accelerometer sample in milli-g
type Accelerometer struct {
	X, Y, Z int16
}

// IPv4Addresses are the addresses of Create 3's network interfaces
type IPv4Addresses struct {
	WLAN0 netip.Addr
	WLAN1 netip.Addr
	USB0  netip.Addr
}

func parseIPv4(p []byte) IPv4Addresses {
	return IPv4Addresses{
		WLAN0: netip.AddrFrom4([4]byte(p[0:4])),
		WLAN1: netip.AddrFrom4([4]byte(p[4:8])),
		USB0:  netip.AddrFrom4([4]byte(p[8:12])),
	}
}

// IRProximity holds Create 3's IR proximity readings
type IRProximity struct {
	Timestamp uint32
	Sensors   []uint16
}

func parseIRProximity(p []byte) IRProximity {
	ir := IRProximity{Timestamp: binary.BigEndian.Uint32(p[0:4])}
	for off := 4; off+2 <= len(p); off += 2 {
		ir.Sensors = append(ir.Sensors, binary.BigEndian.Uint16(p[off:off+2]))
	}
	return ir
}

// parsePackedIRProximity unpacks seven 12-bit readings: the high 8 bits are
// bytes 5..11 and the low nibbles are packed into bytes 12..15
func parsePackedIRProximity(p []byte) IRProximity {
	ir := IRProximity{Timestamp: binary.BigEndian.Uint32(p[0:4])}
	for i := 0; i < 7; i++ {
		nibble := p[12+i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		ir.Sensors = append(ir.Sensors, uint16(p[5+i])<<4|uint16(nibble&0x0F))
	}
	return ir
}

// Dock status and result codes
const (
	DockStatusSucceeded = 0
	DockStatusAborted   = 1
	DockStatusCanceled  = 2

	DockResultUndocked = 0
	DockResultDocked   = 1
)

// DockResult is the outcome of a dock or undock action
type DockResult struct {
	Timestamp uint32
	Status    uint8
	Result    uint8
}

func parseDockResult(p []byte) DockResult {
	return DockResult{
		Timestamp: binary.BigEndian.Uint32(p[0:4]),
		Status:    p[4],
		Result:    p[5],
	}
}

// DockingValues is a docking sensor query result
type DockingValues struct {
	Timestamp uint32
	DockingSensor
}

func parseDockingValues(p []byte) DockingValues {
	return DockingValues{
		Timestamp:     binary.BigEndian.Uint32(p[0:4]),
		DockingSensor: parseDocking(p),
	}
}

// Pose is a position in centimeters and a heading in degrees.
// Heading 90 points along +Y.
type Pose struct {
	X       float64
	Y       float64
	Heading float64
}

// HomePose is the pose after a navigation reset
var HomePose = Pose{X: 0, Y: 0, Heading: 90}

// Move advances the pose along its heading
func (p *Pose) Move(distance float64) {
	h := radians(p.Heading)
	p.X += distance * math.Cos(h)
	p.Y += distance * math.Sin(h)
}

// TurnLeft rotates the pose counter-clockwise
func (p *Pose) TurnLeft(angle float64) {
	p.Heading = normalizeHeading(p.Heading + angle)
}

// Arc follows a circle of the given radius, turning counter-clockwise for a
// positive angle
func (p *Pose) Arc(angle, radius float64) {
	side := math.Pi / 2
	if angle < 0 {
		side = -side
	}
	h := radians(p.Heading)
	cx := p.X + radius*math.Cos(h+side)
	cy := p.Y + radius*math.Sin(h+side)

	end := h + radians(angle)
	p.X = cx + radius*math.Cos(end-side)
	p.Y = cy + radius*math.Sin(end-side)
	p.Heading = normalizeHeading(p.Heading + angle)
}

func (p Pose) String() string {
	return fmt.Sprintf("(%.1f, %.1f) %.1f°", p.X, p.Y, p.Heading)
}

// parsePose reads a firmware pose: timestamp, x and y in mm, heading in
// decidegrees
func parsePose(p []byte) Pose {
	return Pose{
		X:       float64(int32(binary.BigEndian.Uint32(p[4:8]))) / 10,
		Y:       float64(int32(binary.BigEndian.Uint32(p[8:12]))) / 10,
		Heading: float64(int16(binary.BigEndian.Uint16(p[12:14]))) / 10,
	}
}

// Movement is the turn and straight drive that reach a point
type Movement struct {
	Distance float64
	Angle    float64
}

// MovementTo computes the movement from pose to (x, y)
func MovementTo(from Pose, x, y float64) Movement {
	dx, dy := x-from.X, y-from.Y
	return Movement{
		Distance: math.Hypot(dx, dy),
		Angle:    MinimizeAngle(degrees(math.Atan2(dy, dx)) - from.Heading),
	}
}

// MinimizeAngle maps an angle into [-180, 180]
func MinimizeAngle(angle float64) float64 {
	for angle > 180 {
		angle -= 360
	}
	for angle < -180 {
		angle += 360
	}
	return angle
}

func normalizeHeading(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }
