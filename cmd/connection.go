// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"go.uber.org/multierr"
	"golang.org/x/term"

	"github.com/Thermoquad/edubot/internal/config"
	"github.com/Thermoquad/edubot/internal/logging"
	"github.com/Thermoquad/edubot/pkg/capture"
	"github.com/Thermoquad/edubot/pkg/robot"
	"github.com/Thermoquad/edubot/pkg/transport"
)

// Link is an opened transport plus the resources behind it
type Link struct {
	transport.Transport

	// Description is a human readable summary of the link
	Description string

	capture *os.File
}

// Close disconnects the transport and closes any capture file
func (l *Link) Close() error {
	err := l.Disconnect()
	if l.capture != nil {
		err = multierr.Append(err, l.capture.Close())
	}
	return err
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw, ok := config.Password(); ok {
		return pw, nil
	}

	// Prompt user for password (hide input)
	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr) // newline after password
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr) // newline after password
	return string(passwordBytes), nil
}

// newTransport builds the transport selected by the connection flags
func newTransport() (transport.Transport, string, error) {
	logger := logging.L()

	if replayFile != "" {
		return transport.NewReplayFile(replayFile, realtime, logger), fmt.Sprintf("Replay: %s", replayFile), nil
	}

	if wsURL != "" {
		password := ""
		if wsUsername != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		ws := transport.NewWebSocket(transport.WebSocketConfig{
			URL:           wsURL,
			Username:      wsUsername,
			Password:      password,
			SkipSSLVerify: wsNoSSLVerify,
		}, logger)
		return ws, fmt.Sprintf("WebSocket: %s", wsURL), nil
	}

	if port := config.String(portName, config.EnvPort, ""); port != "" {
		return transport.NewSerial(port, baudRate, logger), fmt.Sprintf("Serial: %s @ %d baud", port, baudRate), nil
	}

	if useStdio {
		return transport.NewStdio(logger), "Stdio", nil
	}

	name := config.String(bleName, config.EnvBLEName, "")
	if name != "" {
		if name == bleFirstRobot {
			name = ""
		}
		ble := transport.NewBLE(name, logger)
		return ble, fmt.Sprintf("BLE: %s", ble.Name()), nil
	}

	return nil, "", errors.New("one of --port, --url, --ble, --stdio or --replay must be specified")
}

// OpenTransport builds the selected transport, wrapping it with a capture
// recorder when --record is given. The transport is not connected yet.
func OpenTransport() (*Link, error) {
	t, desc, err := newTransport()
	if err != nil {
		return nil, err
	}

	link := &Link{Transport: t, Description: desc}
	if recordFile == "" {
		return link, nil
	}

	f, err := os.Create(recordFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create capture file: %w", err)
	}
	w, err := capture.NewWriter(f)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to start capture: %w", err), f.Close())
	}

	link.Transport = transport.Record(t, w, logging.L())
	link.Description += fmt.Sprintf(" (recording to %s)", recordFile)
	link.capture = f
	return link, nil
}

// ConnectTransport opens and connects the selected transport
func ConnectTransport(ctx context.Context) (*Link, error) {
	link, err := OpenTransport()
	if err != nil {
		return nil, err
	}
	if err := link.Connect(ctx); err != nil {
		return nil, multierr.Append(fmt.Errorf("%s: %w", link.Description, err), link.Close())
	}
	return link, nil
}

// robotOptions returns robot options resolved from flags and environment
func robotOptions() robot.Options {
	return robot.Options{
		Logger:         logging.L(),
		DefaultTimeout: config.Duration(timeout, config.EnvTimeout, robot.DefaultTimeout),
		FirmwarePose:   firmwarePose || config.Bool(config.EnvFirmwarePose),
	}
}

// OpenRobot builds a robot of the selected family on a fresh link.
// The robot connects the link itself when Play starts.
func OpenRobot() (robot.Controller, *Link, error) {
	link, err := OpenTransport()
	if err != nil {
		return nil, nil, err
	}

	r, err := robot.New(config.String(family, config.EnvFamily, config.DefaultFamily), link.Transport, robotOptions())
	if err != nil {
		return nil, nil, multierr.Append(err, link.Close())
	}
	return r, link, nil
}

// RunProgram plays program on the selected robot and returns when it ends,
// the robot's stop button is pressed, or ctx is cancelled
func RunProgram(ctx context.Context, program func(ctx context.Context, r robot.Controller) error) error {
	r, link, err := OpenRobot()
	if err != nil {
		return err
	}
	defer func() {
		if link.capture != nil {
			_ = link.capture.Close()
		}
	}()

	logging.L().Infow("connecting", "link", link.Description)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var programErr error
	r.WhenPlay(func(ctx context.Context) error {
		defer cancel()
		programErr = program(ctx, r)
		if errors.Is(programErr, context.Canceled) {
			programErr = nil
		}
		return programErr
	})

	err = r.Play(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return multierr.Append(programErr, err)
}
