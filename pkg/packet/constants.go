// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package packet implements the 20-byte robot frame used by the educational
// robots: device, command and sequence bytes, a zero-padded 16-byte payload
// and a trailing CRC-8.
//
// Frames travel raw over BLE and as 40 hex characters plus a newline over
// serial, USB and stdio links. LineDecoder handles the latter.
package packet

import "errors"

// Frame layout
const (
	FrameSize   = 20
	HeaderSize  = 3
	PayloadSize = 16
	crcOffset   = FrameSize - 1
)

// Hex line framing (serial, USB, stdio)
const (
	LineTerminator = '\n'
	HexFrameSize   = FrameSize * 2
	maxLineBuffer  = 128
)

// CRC-8 configuration
const (
	crcPolynomial = 0x07
	crcInitial    = 0x00
)

// Sentinel errors
var (
	ErrInvalidLength   = errors.New("packet: frame must be exactly 20 bytes")
	ErrCRCMismatch     = errors.New("packet: crc mismatch")
	ErrPayloadTooLarge = errors.New("packet: payload exceeds 16 bytes")
)

// Endpoint identifies a protocol endpoint by its device and command bytes.
type Endpoint struct {
	Device  uint8
	Command uint8
}

// Device numbers
const (
	DevGeneral      = 0
	DevMotors       = 1
	DevMarker       = 2
	DevLights       = 3
	DevColorSensor  = 4
	DevSound        = 5
	DevIRProximity  = 11
	DevBumpers      = 12
	DevLightSensors = 13
	DevBattery      = 14
	DevAccel        = 16
	DevTouch        = 17
	DevDocking      = 19
	DevCliff        = 20
	DevConnectivity = 100
)

// General (device 0)
var (
	GetVersions      = Endpoint{DevGeneral, 0}
	SetName          = Endpoint{DevGeneral, 1}
	GetName          = Endpoint{DevGeneral, 2}
	StopReset        = Endpoint{DevGeneral, 3}
	StopButtonEvent  = Endpoint{DevGeneral, 4}
	Disconnect       = Endpoint{DevGeneral, 6}
	EnableEvents     = Endpoint{DevGeneral, 7}
	DisableEvents    = Endpoint{DevGeneral, 9}
	GetEnabledEvents = Endpoint{DevGeneral, 11}
	GetSerialNumber  = Endpoint{DevGeneral, 14}
	GetSKU           = Endpoint{DevGeneral, 15}
)

// Motors (device 1)
var (
	SetWheelSpeeds      = Endpoint{DevMotors, 4}
	SetLeftSpeed        = Endpoint{DevMotors, 6}
	SetRightSpeed       = Endpoint{DevMotors, 7}
	DriveDistance       = Endpoint{DevMotors, 8}
	RotateAngle         = Endpoint{DevMotors, 12}
	GravityCompensation = Endpoint{DevMotors, 13}
	ResetPosition       = Endpoint{DevMotors, 15}
	GetPosition         = Endpoint{DevMotors, 16}
	NavigateTo          = Endpoint{DevMotors, 17}
	Dock                = Endpoint{DevMotors, 19}
	Undock              = Endpoint{DevMotors, 20}
	DriveArc            = Endpoint{DevMotors, 27}
	MotorStallEvent     = Endpoint{DevMotors, 29}
)

// Marker, lights, sound
var (
	SetMarker    = Endpoint{DevMarker, 0}
	SetLights    = Endpoint{DevLights, 2}
	PlayNote     = Endpoint{DevSound, 0}
	StopSound    = Endpoint{DevSound, 1}
	SayPhrase    = Endpoint{DevSound, 4}
	GetColorData = Endpoint{DevColorSensor, 1}
	ColorEvent   = Endpoint{DevColorSensor, 2}
)

// Sensors
var (
	GetIRProximity       = Endpoint{DevIRProximity, 1}
	GetPackedIRProximity = Endpoint{DevIRProximity, 2}
	BumperEvent          = Endpoint{DevBumpers, 0}
	LightEvent           = Endpoint{DevLightSensors, 0}
	GetLightValues       = Endpoint{DevLightSensors, 1}
	BatteryEvent         = Endpoint{DevBattery, 0}
	GetBatteryLevel      = Endpoint{DevBattery, 1}
	GetAccelerometer     = Endpoint{DevAccel, 1}
	TouchEvent           = Endpoint{DevTouch, 0}
	DockingEvent         = Endpoint{DevDocking, 0}
	GetDockingValues     = Endpoint{DevDocking, 1}
	CliffEvent           = Endpoint{DevCliff, 0}
	GetIPv4Addresses     = Endpoint{DevConnectivity, 1}
)
