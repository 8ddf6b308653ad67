// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/edubot/pkg/transport"
)

var (
	discoveryTimeout int
	discoverySerial  bool
)

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Discover robots over BLE and list serial ports",
	Long: `Scan for robots advertising the robot identification service over BLE.

Each robot is listed once, with its advertised name, address and signal
strength. With --serial the available serial ports are listed instead.

Examples:
  # Find nearby robots
  edubot discovery

  # Then connect to one by name
  edubot info --ble "Root-A1B2"

Exit codes:
  0 - Discovery successful (at least one robot or port found)
  1 - Discovery failed (nothing found before timeout)
  2 - Adapter error`,
	RunE: runDiscovery,
}

func init() {
	rootCmd.AddCommand(discoveryCmd)
	discoveryCmd.Flags().IntVar(&discoveryTimeout, "wait", 5, "Seconds to scan for robots")
	discoveryCmd.Flags().BoolVar(&discoverySerial, "serial", false, "List serial ports instead of scanning BLE")
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	if discoverySerial {
		return listSerialPorts()
	}

	fmt.Printf("Edubot - Robot Discovery\n")
	fmt.Printf("Timeout: %d seconds\n\n", discoveryTimeout)

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(discoveryTimeout)*time.Second)
	defer cancel()

	found := 0
	err := transport.Scan(ctx, func(adv transport.Advertisement) {
		found++
		fmt.Printf("Robot found:\n")
		fmt.Printf("  Name: %s\n", adv.Name)
		fmt.Printf("  Address: %s\n", adv.Address)
		fmt.Printf("  RSSI: %d dBm\n", adv.RSSI)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Scan error: %v\n", err)
		os.Exit(2)
	}

	// Summary
	fmt.Printf("\n--- Discovery summary ---\n")
	fmt.Printf("Robots found: %d\n", found)

	if found == 0 {
		fmt.Printf("No robots discovered. Check that the robot is on and not connected elsewhere.\n")
		os.Exit(1)
	}
	return nil
}

func listSerialPorts() error {
	ports, err := transport.ListSerialPorts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Port enumeration error: %v\n", err)
		os.Exit(2)
	}

	if len(ports) == 0 {
		fmt.Printf("No serial ports found\n")
		os.Exit(1)
	}
	for _, port := range ports {
		fmt.Println(port)
	}
	return nil
}
