// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/edubot/pkg/robot"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show robot identity, firmware versions and battery",
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunProgram(cmd.Context(), printInfo)
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename NAME",
	Short: "Set the robot's advertised name",
	Long: `Set the name the robot advertises over BLE.

Names longer than 16 bytes are cut at the last whole character that fits.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunProgram(cmd.Context(), func(ctx context.Context, r robot.Controller) error {
			if err := r.SetName(ctx, args[0]); err != nil {
				return err
			}
			name, err := r.GetName(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Name: %s\n", name)
			return nil
		})
	},
}

var navigateCmd = &cobra.Command{
	Use:   "navigate X Y [HEADING]",
	Short: "Drive to a position in centimeters, optionally ending at a heading",
	Long: `Drive to (X, Y) relative to where the robot started, in centimeters.

Root turns toward the target and drives straight to it. Create 3 plans the
route itself. When HEADING is given the robot finally turns to face it, in
degrees counterclockwise from the positive X axis.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runNavigate,
}

var ipCmd = &cobra.Command{
	Use:   "ip",
	Short: "Show Create 3 network addresses",
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunProgram(cmd.Context(), func(ctx context.Context, r robot.Controller) error {
			c3, ok := r.(*robot.Create3)
			if !ok {
				return fmt.Errorf("ip requires --family %s", robot.FamilyCreate3)
			}
			addrs, err := c3.GetIPv4Addresses(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("wlan0: %s\n", addrs.WLAN0)
			fmt.Printf("wlan1: %s\n", addrs.WLAN1)
			fmt.Printf("usb0:  %s\n", addrs.USB0)
			return nil
		})
	},
}

var dockCmd = &cobra.Command{
	Use:   "dock",
	Short: "Send Create 3 to its dock",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDocking(cmd.Context(), (*robot.Create3).Dock)
	},
}

var undockCmd = &cobra.Command{
	Use:   "undock",
	Short: "Back Create 3 off its dock",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDocking(cmd.Context(), (*robot.Create3).Undock)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(navigateCmd)
	rootCmd.AddCommand(ipCmd)
	rootCmd.AddCommand(dockCmd)
	rootCmd.AddCommand(undockCmd)
}

func printInfo(ctx context.Context, r robot.Controller) error {
	name, err := r.GetName(ctx)
	if err != nil {
		return err
	}
	serial, err := r.GetSerialNumber(ctx)
	if err != nil {
		return err
	}
	sku, err := r.GetSKU(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Name:    %s\n", name)
	fmt.Printf("Serial:  %s\n", serial)
	fmt.Printf("SKU:     %s\n", sku)

	for _, board := range []uint8{robot.BoardMain, robot.BoardColor} {
		v, err := r.GetVersions(ctx, board)
		if err != nil {
			// Create 3 has no color board
			if board != robot.BoardMain {
				continue
			}
			return err
		}
		fmt.Printf("Board:   %s\n", v)
	}

	battery, err := r.GetBatteryLevel(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Battery: %d%% (%d mV)\n", battery.Percent, battery.Millivolts)
	return nil
}

func runNavigate(cmd *cobra.Command, args []string) error {
	coords := make([]float64, len(args))
	for i, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("invalid coordinate %q: %w", arg, err)
		}
		coords[i] = v
	}

	var heading *float64
	if len(coords) == 3 {
		heading = &coords[2]
	}

	return RunProgram(cmd.Context(), func(ctx context.Context, r robot.Controller) error {
		if err := r.NavigateTo(ctx, coords[0], coords[1], heading); err != nil {
			return err
		}
		pose, err := r.Position(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Pose: %s\n", pose)
		return nil
	})
}

func runDocking(ctx context.Context, action func(*robot.Create3, context.Context) (robot.DockResult, error)) error {
	return RunProgram(ctx, func(ctx context.Context, r robot.Controller) error {
		c3, ok := r.(*robot.Create3)
		if !ok {
			return fmt.Errorf("docking requires --family %s", robot.FamilyCreate3)
		}
		res, err := action(c3, ctx)
		if err != nil {
			return err
		}

		status := "succeeded"
		switch res.Status {
		case robot.DockStatusAborted:
			status = "aborted"
		case robot.DockStatusCanceled:
			status = "canceled"
		}
		docked := res.Result == robot.DockResultDocked
		fmt.Printf("Action %s, docked: %v\n", status, docked)
		return nil
	})
}
