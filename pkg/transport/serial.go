// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// DefaultBaudRate is the robot's USB serial speed
const DefaultBaudRate = 115200

// serialReadTimeout bounds each blocking read so ReadFrame can observe
// context cancellation
const serialReadTimeout = 100 * time.Millisecond

// NewSerial creates a stream transport over a serial port (8N1)
func NewSerial(portName string, baudRate int, logger *zap.SugaredLogger) *Stream {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	name := fmt.Sprintf("serial %s @ %d baud", portName, baudRate)

	return NewStream(name, func() (io.ReadWriteCloser, error) {
		mode := &serial.Mode{
			BaudRate: baudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}

		port, err := serial.Open(portName, mode)
		if err != nil {
			return nil, err
		}
		if err := port.SetReadTimeout(serialReadTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("set read timeout: %w", err)
		}
		return port, nil
	}, logger)
}

// ListSerialPorts returns the serial ports present on the system
func ListSerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}
