// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/edubot/internal/config"
	"github.com/Thermoquad/edubot/internal/logging"
)

// bleFirstRobot is the --ble value used when no name is given
const bleFirstRobot = "*"

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Other links
	bleName    string
	useStdio   bool
	replayFile string
	recordFile string
	realtime   bool

	// Robot flags
	family       string
	timeout      time.Duration
	firmwarePose bool
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "edubot",
	Short: "Educational Robot Protocol Tool",
	Long: `Edubot - A CLI tool for driving and inspecting educational robots.

Talks the 20-byte robot frame protocol over any supported link and provides
commands for querying robot information, driving, live monitoring and
offline replay of captured sessions.

Connection modes:
  Serial:    --port /dev/ttyACM0 [--baud 115200]
  BLE:       --ble [name]
  WebSocket: --url ws://host/path [--username user]
  Stdio:     --stdio
  Replay:    --replay session.cap [--realtime]

Any live link can be captured with --record session.cap.

For WebSocket authentication, the password is read from the EDUBOT_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.

EDUBOT_PORT, EDUBOT_BLE_NAME, EDUBOT_FAMILY, EDUBOT_TIMEOUT and
EDUBOT_LOG_LEVEL provide defaults for the matching flags.`,
	Version: "1.0.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(config.String(logLevel, config.EnvLogLevel, config.DefaultLogLevel))
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	SilenceUsage: true,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Other links
	rootCmd.PersistentFlags().StringVar(&bleName, "ble", "", "Connect over BLE to the named robot (first robot if no name)")
	rootCmd.PersistentFlags().Lookup("ble").NoOptDefVal = bleFirstRobot
	rootCmd.PersistentFlags().BoolVar(&useStdio, "stdio", false, "Exchange hex frames over stdin/stdout")
	rootCmd.PersistentFlags().StringVar(&replayFile, "replay", "", "Replay a capture file instead of connecting")
	rootCmd.PersistentFlags().BoolVar(&realtime, "realtime", false, "Replay with the captured timing")
	rootCmd.PersistentFlags().StringVar(&recordFile, "record", "", "Capture every frame to a file")

	// Robot flags
	rootCmd.PersistentFlags().StringVarP(&family, "family", "f", "", "Robot family: root or create3")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Command response timeout (default 3s)")
	rootCmd.PersistentFlags().BoolVar(&firmwarePose, "firmware-pose", false, "Root: take the pose from the robot")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
