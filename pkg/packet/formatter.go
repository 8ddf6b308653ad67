// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package packet

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// endpointNames maps endpoints to their human-readable names
var endpointNames = map[Endpoint]string{
	// General
	GetVersions:      "GET_VERSIONS",
	SetName:          "SET_NAME",
	GetName:          "GET_NAME",
	StopReset:        "STOP_AND_RESET",
	StopButtonEvent:  "STOP_BUTTON_EVENT",
	Disconnect:       "DISCONNECT",
	EnableEvents:     "ENABLE_EVENTS",
	DisableEvents:    "DISABLE_EVENTS",
	GetEnabledEvents: "GET_ENABLED_EVENTS",
	GetSerialNumber:  "GET_SERIAL_NUMBER",
	GetSKU:           "GET_SKU",

	// Motors
	SetWheelSpeeds:      "SET_WHEEL_SPEEDS",
	SetLeftSpeed:        "SET_LEFT_SPEED",
	SetRightSpeed:       "SET_RIGHT_SPEED",
	DriveDistance:       "DRIVE_DISTANCE",
	RotateAngle:         "ROTATE_ANGLE",
	GravityCompensation: "SET_GRAVITY_COMPENSATION",
	ResetPosition:       "RESET_POSITION",
	GetPosition:         "GET_POSITION",
	NavigateTo:          "NAVIGATE_TO",
	Dock:                "DOCK",
	Undock:              "UNDOCK",
	DriveArc:            "DRIVE_ARC",
	MotorStallEvent:     "MOTOR_STALL_EVENT",

	// Actuators
	SetMarker:    "SET_MARKER",
	SetLights:    "SET_LIGHTS",
	PlayNote:     "PLAY_NOTE",
	StopSound:    "STOP_SOUND",
	SayPhrase:    "SAY_PHRASE",
	GetColorData: "GET_COLOR_DATA",
	ColorEvent:   "COLOR_EVENT",

	// Sensors
	GetIRProximity:       "GET_IR_PROXIMITY",
	GetPackedIRProximity: "GET_PACKED_IR_PROXIMITY",
	BumperEvent:          "BUMPER_EVENT",
	LightEvent:           "LIGHT_EVENT",
	GetLightValues:       "GET_LIGHT_VALUES",
	BatteryEvent:         "BATTERY_EVENT",
	GetBatteryLevel:      "GET_BATTERY_LEVEL",
	GetAccelerometer:     "GET_ACCELEROMETER",
	TouchEvent:           "TOUCH_EVENT",
	DockingEvent:         "DOCKING_EVENT",
	GetDockingValues:     "GET_DOCKING_VALUES",
	CliffEvent:           "CLIFF_EVENT",
	GetIPv4Addresses:     "GET_IPV4_ADDRESSES",
}

// FormatEndpoint returns the human-readable name for an endpoint
func FormatEndpoint(ep Endpoint) string {
	if name, ok := endpointNames[ep]; ok {
		return name
	}
	return "UNKNOWN"
}

// String implements fmt.Stringer
func (ep Endpoint) String() string {
	return fmt.Sprintf("%s (%d,%d)", FormatEndpoint(ep), ep.Device, ep.Command)
}

// FormatPacket formats a packet into a human-readable string
func FormatPacket(p *Packet) string {
	timestamp := p.timestamp.Format("15:04:05.000")
	result := fmt.Sprintf("[%s] %s seq=%d crc=0x%02X\n", timestamp, p.Endpoint(), p.sequence, p.crc)
	return result + FormatPayload(p.Endpoint(), p.payload[:])
}

// FormatPayload decodes the payload of well-known notifications and falls
// back to a hex dump for everything else
func FormatPayload(ep Endpoint, payload []byte) string {
	switch ep {
	case BumperEvent:
		return fmt.Sprintf("  Left: %v, Right: %v\n", payload[4]&0x80 != 0, payload[4]&0x40 != 0)

	case TouchEvent:
		return fmt.Sprintf("  Front-left: %v, Front-right: %v, Back-left: %v, Back-right: %v\n",
			payload[4]&0x80 != 0, payload[4]&0x40 != 0, payload[4]&0x10 != 0, payload[4]&0x20 != 0)

	case CliffEvent:
		return fmt.Sprintf("  Cliff: %v\n", payload[4] != 0)

	case BatteryEvent:
		return fmt.Sprintf("  Battery: %d mV, %d%%\n", binary.BigEndian.Uint16(payload[4:6]), payload[6])

	case MotorStallEvent:
		return fmt.Sprintf("  Motor: %d, Cause: %d\n", payload[4], payload[5])

	case LightEvent:
		return fmt.Sprintf("  State: %d, Left: %d, Right: %d\n",
			payload[4], binary.BigEndian.Uint16(payload[5:7]), binary.BigEndian.Uint16(payload[7:9]))

	case DockingEvent:
		return fmt.Sprintf("  Contacts: %d, IR: %d %d %d\n", payload[4], payload[5], payload[6], payload[7])

	case StopButtonEvent:
		return "  (stop button)\n"
	}

	// Default: hex dump
	var sb strings.Builder
	sb.WriteString("  Payload: ")
	for _, b := range payload {
		fmt.Fprintf(&sb, "%02X ", b)
	}
	sb.WriteString("\n")
	return sb.String()
}
