// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/edubot/pkg/packet"
	"github.com/Thermoquad/edubot/pkg/transport"
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw frame log in human-readable format",
	Long: `Continuously decode and display robot frames as they arrive.

Each frame is shown with its timestamp, endpoint, sequence number and CRC,
followed by the decoded payload of well-known notifications or a hex dump.
The robot is never commanded, so another program can drive it meanwhile.

Works with every link, including --replay for captured sessions.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
}

func runRawLog(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	link, frames, err := OpenFrameStream(ctx)
	if err != nil {
		return err
	}
	defer link.Close()

	fmt.Printf("Edubot - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", link.Description)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	for res := range frames {
		if res.Err != nil {
			var frameErr *transport.FrameError
			if errors.As(res.Err, &frameErr) {
				fmt.Printf("[ERROR] %v\n", res.Err)
				continue
			}
			if errors.Is(res.Err, transport.ErrClosed) {
				fmt.Println("Connection closed")
				return nil
			}
			return res.Err
		}

		p, err := packet.Decode(res.Frame)
		if err != nil {
			fmt.Printf("[ERROR] %v\n", err)
			continue
		}
		fmt.Print(packet.FormatPacket(p))
	}
	return nil
}
