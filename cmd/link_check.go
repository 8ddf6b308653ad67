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

	"github.com/Thermoquad/edubot/pkg/transport"
)

var linkCheckCmd = &cobra.Command{
	Use:   "link_check",
	Short: "Test raw link stability",
	Long: `Hold the link open without commanding the robot.

This command connects and just waits, logging any frames received or errors
encountered. Useful for debugging connection stability issues.

Exit codes:
  0 - Test completed normally
  1 - Test failed
  2 - Connection error`,
	RunE: runLinkCheck,
}

var linkCheckDuration int

func init() {
	rootCmd.AddCommand(linkCheckCmd)
	linkCheckCmd.Flags().IntVar(&linkCheckDuration, "duration", 30, "Test duration in seconds")
}

func runLinkCheck(cmd *cobra.Command, args []string) error {
	duration := time.Duration(linkCheckDuration) * time.Second
	ctx, cancel := context.WithTimeout(cmd.Context(), duration)
	defer cancel()

	link, frames, err := OpenFrameStream(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer link.Close()

	fmt.Printf("Link Stability Test\n")
	fmt.Printf("Connection: %s\n", link.Description)
	fmt.Printf("Duration: %d seconds\n\n", linkCheckDuration)
	fmt.Printf("Listening for frames...\n\n")

	start := time.Now()
	framesReceived := 0
	badFrames := 0

	heartbeat := time.NewTicker(time.Second)
	defer heartbeat.Stop()

	results := func(verdict string) {
		fmt.Printf("\n--- Test Results ---\n")
		fmt.Printf("Duration: %v\n", time.Since(start).Round(time.Second))
		fmt.Printf("Frames received: %d\n", framesReceived)
		fmt.Printf("Bad frames: %d\n", badFrames)
		fmt.Printf("Result: %s\n", verdict)
	}

	for {
		select {
		case res, ok := <-frames:
			if !ok {
				results("PASSED (connection stable)")
				return nil
			}
			now := time.Now().Format("15:04:05.000")
			var frameErr *transport.FrameError
			switch {
			case res.Err == nil:
				framesReceived++
				fmt.Printf("[%s] Received frame: %x\n", now, res.Frame)
			case errors.As(res.Err, &frameErr):
				badFrames++
				fmt.Printf("[%s] Bad frame: %v\n", now, res.Err)
			default:
				fmt.Printf("\n[%s] Connection error: %v\n", now, res.Err)
				results("FAILED (connection error)")
				os.Exit(1)
			}

		case <-heartbeat.C:
			// Just a heartbeat to show the test is running
			remaining := (duration - time.Since(start)).Seconds()
			fmt.Printf("[%s] Still connected... (%.0fs remaining)\n",
				time.Now().Format("15:04:05.000"), max(remaining, 0))
		}
	}
}
