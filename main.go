// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Edubot - Educational Robot Protocol Tool
//
// A CLI tool for driving, monitoring and decoding the 20-byte frame
// protocol spoken by educational robots over BLE, serial and WebSocket.

package main

import (
	"os"

	"github.com/Thermoquad/edubot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
