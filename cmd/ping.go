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

	"github.com/Thermoquad/edubot/pkg/completion"
	"github.com/Thermoquad/edubot/pkg/robot"
)

var (
	pingCount int
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure command round trips with version queries",
	Long: `Send version queries to the robot's main board and time each response.

This command tests bidirectional communication over the selected link:
  - The link connects (and authenticates, for WebSocket)
  - The robot accepts commands
  - Responses are matched to their requests

Use --timeout to change how long each query may wait.

Exit codes:
  0 - All pings successful
  1 - One or more pings failed/timed out
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings to send")
}

func runPing(cmd *cobra.Command, args []string) error {
	successCount := 0
	failCount := 0

	err := RunProgram(cmd.Context(), func(ctx context.Context, r robot.Controller) error {
		fmt.Printf("Edubot - Ping Test\n")
		fmt.Printf("Count: %d pings\n\n", pingCount)

		for i := 1; i <= pingCount; i++ {
			fmt.Printf("Ping %d/%d: ", i, pingCount)

			start := time.Now()
			v, err := r.GetVersions(ctx, robot.BoardMain)
			switch {
			case err == nil:
				fmt.Printf("firmware %d.%d, rtt=%v\n", v.FirmwareMajor, v.FirmwareMinor,
					time.Since(start).Round(time.Millisecond))
				successCount++
			case errors.Is(err, completion.ErrTimeout):
				fmt.Printf("TIMEOUT (no response)\n")
				failCount++
			case ctx.Err() != nil:
				return ctx.Err()
			default:
				fmt.Printf("FAILED: %v\n", err)
				failCount++
			}

			// Small delay between pings
			if i < pingCount {
				if err := r.Wait(ctx, 100*time.Millisecond); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil && successCount+failCount == 0 {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}

	// Summary
	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d pings sent, %d responses received, %.0f%% packet loss\n",
		successCount+failCount, successCount, float64(failCount)/float64(max(successCount+failCount, 1))*100)

	if failCount > 0 || err != nil {
		os.Exit(1)
	}
	return nil
}
