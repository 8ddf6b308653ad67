// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/edubot/pkg/packet"
	"github.com/Thermoquad/edubot/pkg/transport"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var errorDetectionCmd = &cobra.Command{
	Use:   "error_detection",
	Short: "Detect and analyze malformed frames and errors",
	Long: `Track frame errors, malformed data, and anomalous values with statistics.

This command validates each frame and detects:
  - Malformed lines (bad hex, wrong length)
  - CRC errors
  - Frames for endpoints the robots do not define
  - Anomalous sensor values (battery above 100%, impossible light state,
    unknown stalled motor)

By default, only errors are displayed. Use --show-all to display valid frames too.

Frames are validated in real-time, with errors highlighted immediately and
periodic statistics summaries displayed at configurable intervals.`,
	RunE: runErrorDetection,
}

func init() {
	rootCmd.AddCommand(errorDetectionCmd)
	errorDetectionCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	errorDetectionCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	errorDetectionCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

// notificationEndpoints are the endpoints robots send unprompted
var notificationEndpoints = map[packet.Endpoint]bool{
	packet.StopButtonEvent: true,
	packet.MotorStallEvent: true,
	packet.ColorEvent:      true,
	packet.BumperEvent:     true,
	packet.LightEvent:      true,
	packet.BatteryEvent:    true,
	packet.TouchEvent:      true,
	packet.DockingEvent:    true,
	packet.CliffEvent:      true,
}

// validateFrame returns the anomaly messages for a frame
func validateFrame(p *packet.Packet) []string {
	var issues []string
	for _, v := range packet.ValidatePacket(p) {
		issues = append(issues, v.Message)
	}
	return issues
}

// robotUptime returns the robot clock carried by a notification, in ms
func robotUptime(p *packet.Packet) (uint64, bool) {
	if !notificationEndpoints[p.Endpoint()] || p.Endpoint() == packet.StopButtonEvent {
		return 0, false
	}
	return uint64(binary.BigEndian.Uint32(p.Payload()[0:4])), true
}

// printDecodeError prints a decode error in highlighted format
func printDecodeError(err error) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31mDECODE ERROR:\033[0m %v\n", timestamp, err)
	fmt.Printf("  >>> FRAME DROPPED <<<\n\n")
}

// printValidationErrors prints validation errors for a frame
func printValidationErrors(p *packet.Packet, issues []string) {
	timestamp := p.Timestamp().Format("15:04:05.000")

	fmt.Printf("[%s] \033[1;33mVALIDATION ERROR:\033[0m %s\n", timestamp, p.Endpoint())
	fmt.Printf("  CRC: \033[1;32mOK\033[0m\n")
	for i, issue := range issues {
		fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, issue)
	}
	fmt.Print(packet.FormatPayload(p.Endpoint(), p.Payload()))
	fmt.Printf("  >>> FRAME REJECTED <<<\n\n")
}

// frameTracker classifies frames and holds off decode errors until the
// first valid frame, since a link joined mid-line yields garbage first
type frameTracker struct {
	stats        *packet.Statistics
	synchronized bool
	invalidSkips int
}

// track returns the decoded frame, or nil when there is nothing to show
func (t *frameTracker) track(res FrameResult) (p *packet.Packet, decodeErr error, synced bool) {
	if res.Err == nil {
		p, decodeErr = packet.Decode(res.Frame)
	} else {
		decodeErr = res.Err
	}

	if decodeErr != nil {
		if !t.synchronized {
			t.invalidSkips++
			return nil, nil, false
		}
		t.stats.RecordDecode(decodeErr)
		return nil, decodeErr, false
	}

	synced = !t.synchronized
	t.synchronized = true
	t.stats.RecordDecode(nil)
	if notificationEndpoints[p.Endpoint()] {
		t.stats.RecordNotification()
	} else {
		t.stats.RecordResponse()
	}
	return p, nil, synced
}

func runErrorDetection(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	link, frames, err := OpenFrameStream(ctx)
	if err != nil {
		return err
	}
	defer link.Close()

	if useTUI {
		return runTUIMode(ctx, link, frames)
	}
	return runTextMode(link, frames)
}

// linkFailure reports whether a stream result ends the link
func linkFailure(res FrameResult) bool {
	var frameErr *transport.FrameError
	return res.Err != nil && !errors.As(res.Err, &frameErr)
}

// runTUIMode runs error detection in TUI mode
func runTUIMode(ctx context.Context, link *Link, frames <-chan FrameResult) error {
	m := initialModel(link.Description, statsInterval, showAll)
	p := tea.NewProgram(m, tea.WithContext(ctx))

	go func() {
		tracker := &frameTracker{stats: m.stats}
		for res := range frames {
			if linkFailure(res) {
				p.Send(linkLostMsg{err: res.Err})
				return
			}
			pkt, decodeErr, synced := tracker.track(res)
			if synced {
				p.Send(syncMsg{invalidFrames: tracker.invalidSkips})
			}
			if pkt == nil && decodeErr == nil {
				continue
			}
			var issues []string
			if pkt != nil {
				issues = validateFrame(pkt)
			}
			p.Send(frameMsg{packet: pkt, decodeErr: decodeErr, issues: issues})
		}
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runTextMode runs error detection in text mode
func runTextMode(link *Link, frames <-chan FrameResult) error {
	fmt.Printf("Edubot - Error Detection Mode\n")
	fmt.Printf("Connection: %s\n", link.Description)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	tracker := &frameTracker{stats: packet.NewStatistics()}

	// Statistics ticker
	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case res, ok := <-frames:
			if !ok {
				fmt.Print(tracker.stats.String())
				return nil
			}
			if linkFailure(res) {
				fmt.Print(tracker.stats.String())
				return res.Err
			}

			p, decodeErr, synced := tracker.track(res)
			if synced {
				if tracker.invalidSkips > 0 {
					fmt.Printf("[SYNC] Synchronized after skipping %d invalid frames\n\n", tracker.invalidSkips)
				} else {
					fmt.Printf("[SYNC] Synchronized\n\n")
				}
			}
			if decodeErr != nil {
				printDecodeError(decodeErr)
				continue
			}
			if p == nil {
				continue
			}

			// Print frame or error based on mode
			if issues := validateFrame(p); len(issues) > 0 {
				printValidationErrors(p, issues)
			} else if showAll {
				fmt.Print(packet.FormatPacket(p))
			}

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(tracker.stats.String())
			fmt.Println()
		}
	}
}
