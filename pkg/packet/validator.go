// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package packet

import "fmt"

// AnomalyType represents different types of frame anomalies
type AnomalyType int

const (
	AnomalyUnknownEndpoint AnomalyType = iota
	AnomalyInvalidValue
)

// ValidationError represents a frame validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]any
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// Light sensor states reported by LIGHT_EVENT
var validLightStates = map[uint8]bool{0: true, 4: true, 5: true, 6: true, 7: true}

// ValidatePacket detects anomalies in a frame that passed its CRC check.
// Returns a slice of validation errors (empty if the frame is plausible).
func ValidatePacket(p *Packet) []ValidationError {
	errors := []ValidationError{}
	ep := p.Endpoint()

	if _, known := endpointNames[ep]; !known {
		errors = append(errors, ValidationError{
			Type:    AnomalyUnknownEndpoint,
			Message: fmt.Sprintf("Unknown endpoint device=%d command=%d", ep.Device, ep.Command),
			Details: map[string]any{"device": ep.Device, "command": ep.Command},
		})
		return errors
	}

	switch ep {
	case BatteryEvent, GetBatteryLevel:
		if percent := p.payload[6]; percent > 100 {
			errors = append(errors, ValidationError{
				Type:    AnomalyInvalidValue,
				Message: fmt.Sprintf("Battery percent=%d (max 100)", percent),
				Details: map[string]any{"percent": percent},
			})
		}

	case LightEvent:
		if state := p.payload[4]; !validLightStates[state] {
			errors = append(errors, ValidationError{
				Type:    AnomalyInvalidValue,
				Message: fmt.Sprintf("Invalid light state=%d", state),
				Details: map[string]any{"state": state},
			})
		}

	case MotorStallEvent:
		if motor := p.payload[4]; motor > 2 {
			errors = append(errors, ValidationError{
				Type:    AnomalyInvalidValue,
				Message: fmt.Sprintf("Invalid stalled motor=%d (max 2)", motor),
				Details: map[string]any{"motor": motor},
			})
		}
		if cause := p.payload[5]; cause > 5 {
			errors = append(errors, ValidationError{
				Type:    AnomalyInvalidValue,
				Message: fmt.Sprintf("Invalid stall cause=%d (max 5)", cause),
				Details: map[string]any{"cause": cause},
			})
		}
	}

	return errors
}
