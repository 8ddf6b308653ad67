// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/edubot/pkg/capture"
	"github.com/Thermoquad/edubot/pkg/packet"
)

var dumpCmd = &cobra.Command{
	Use:   "dump FILE",
	Short: "Print the frames of a capture file",
	Long: `Decode a capture written with --record and print every frame with its
direction and offset from the start of the capture.

To feed a capture back through a command instead, use --replay.`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := capture.NewReader(f)
	if err != nil {
		return err
	}

	header := r.Header()
	created := time.Unix(0, header.Created)
	fmt.Printf("Capture: %s (version %d)\n", args[0], header.Version)
	fmt.Printf("Created: %s\n\n", created.Format(time.RFC3339))

	stats := packet.NewStatistics()
	sent := 0
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		offset := rec.Timestamp().Sub(created)
		p, decodeErr := packet.Decode(rec.Frame)
		if rec.Direction == capture.Outbound {
			sent++
		} else {
			stats.RecordDecode(decodeErr)
		}
		if decodeErr != nil {
			fmt.Printf("%s +%-10v [ERROR] %v\n", rec.Direction, offset.Round(time.Millisecond), decodeErr)
			continue
		}
		fmt.Printf("%s +%-10v %s seq=%d\n", rec.Direction, offset.Round(time.Millisecond), p.Endpoint(), p.Sequence())
		fmt.Print(packet.FormatPayload(p.Endpoint(), p.Payload()))
	}

	snap := stats.Snapshot()
	fmt.Printf("\n%d frames sent, %d received (%d valid, %d CRC errors)\n",
		sent, snap.TotalFrames, snap.ValidFrames, snap.CRCErrors)
	return nil
}
