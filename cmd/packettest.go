// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/edubot/pkg/packet"
	"github.com/Thermoquad/edubot/pkg/robot"
	"github.com/Thermoquad/edubot/pkg/transport"
)

var (
	packetTestTimeout int
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test connection by waiting for a valid robot frame",
	Long: `Wait for a valid robot frame on the connection until timeout.

This command connects over the selected link and sends a version query, then
waits for any valid frame. Malformed lines and frames that fail the CRC check
are counted and skipped.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "wait", 10, "Seconds to wait for a frame")
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(packetTestTimeout)*time.Second)
	defer cancel()

	link, frames, err := OpenFrameStream(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer link.Close()

	fmt.Printf("Edubot - Packet Test\n")
	fmt.Printf("Connection: %s\n", link.Description)
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)
	fmt.Printf("Waiting for valid frame...\n\n")

	// Prompt a response in case the robot is otherwise silent
	if frame, err := packet.Encode(packet.GetVersions.Device, packet.GetVersions.Command, 0, []byte{robot.BoardMain}); err == nil {
		if err := link.WriteFrame(ctx, frame); err != nil {
			fmt.Fprintf(os.Stderr, "Write error: %v\n", err)
		}
	}

	invalid := 0
	for res := range frames {
		if res.Err != nil {
			var frameErr *transport.FrameError
			if errors.As(res.Err, &frameErr) {
				invalid++
				continue
			}
			fmt.Fprintf(os.Stderr, "Read error: %v\n", res.Err)
			os.Exit(2)
		}

		p, err := packet.Decode(res.Frame)
		if err != nil {
			invalid++
			continue
		}

		if invalid > 0 {
			fmt.Printf("(skipped %d invalid frames before sync)\n", invalid)
		}
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Endpoint: %s\n", p.Endpoint())
		fmt.Printf("  Sequence: %d\n", p.Sequence())
		fmt.Printf("  CRC: 0x%02X\n", p.CRC())
		os.Exit(0)
	}

	fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", packetTestTimeout)
	os.Exit(1)
	return nil
}
