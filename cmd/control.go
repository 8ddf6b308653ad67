// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/edubot/internal/logging"
	"github.com/Thermoquad/edubot/pkg/robot"
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive TUI for driving a robot",
	Long: `Drive and monitor a robot via an interactive terminal UI.

Features:
  - Keyboard driving (arrow keys or WASD, space to stop)
  - Canned actions (shapes, sounds, lights, navigation)
  - Speech from a text field
  - Real-time sensor and pose display
  - Link statistics and event logging
  - Automatic reconnection on connection loss

Tab switches between the action list, the drive pad and the text fields.

Supports every link; the robot family is chosen with --family.`,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
}

// robotManager runs the robot program and replaces the robot when its link
// drops or its stop button ends the program
type robotManager struct {
	ctx      context.Context
	mu       sync.RWMutex
	robot    robot.Controller
	connInfo string
	p        *tea.Program
	done     chan struct{}
}

func (rm *robotManager) current() robot.Controller {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.robot
}

func (rm *robotManager) setRobot(r robot.Controller, connInfo string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.robot = r
	rm.connInfo = connInfo
}

func runControl(cmd *cobra.Command, args []string) error {
	// Build the initial robot; its link connects when the program plays
	r, link, err := OpenRobot()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	rm := &robotManager{
		ctx:      ctx,
		robot:    r,
		connInfo: link.Description,
		done:     make(chan struct{}),
	}

	m := initialControlModel(rm, link.Description)

	// Create TUI program with alt screen and mouse support
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	rm.p = p

	go rm.runLoop()

	_, runErr := p.Run()

	// Stop the program and wait for the robot to be released
	cancel()
	<-rm.done

	if runErr != nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	return nil
}

// runLoop plays the current robot until ctx is done, reconnecting whenever
// a program ends on its own
func (rm *robotManager) runLoop() {
	defer close(rm.done)

	backoff := time.Second
	for {
		r := rm.current()

		started := make(chan struct{})
		rm.watch(r, started)

		err := r.Play(rm.ctx)
		if rm.ctx.Err() != nil {
			return
		}

		// A program that got going earns a fresh backoff
		select {
		case <-started:
			backoff = time.Second
		default:
		}

		rm.p.Send(connectionLostMsg{err: err})
		logging.L().Infow("robot program ended", "error", err)

		var ok bool
		if backoff, ok = rm.reconnect(backoff); !ok {
			return
		}
	}
}

// watch forwards robot notifications to the TUI event log
func (rm *robotManager) watch(r robot.Controller, started chan struct{}) {
	logEvent := func(message string, isError bool) robot.Handler {
		return func(ctx context.Context) error {
			rm.p.Send(robotEventMsg{message: message, isError: isError})
			return nil
		}
	}

	r.WhenPlay(func(ctx context.Context) error {
		close(started)
		rm.p.Send(robotEventMsg{message: "Program started"})
		return nil
	})
	r.WhenStop(logEvent("Stop button pressed", false))
	r.WhenMotorStalled(func(ctx context.Context) error {
		stall := r.MotorStall()
		rm.p.Send(robotEventMsg{
			message: fmt.Sprintf("Motor %d stalled (cause %d), motion disabled until stop", stall.Motor, stall.Cause),
			isError: true,
		})
		return nil
	})
	r.WhenBumped(nil, func(ctx context.Context) error {
		b := r.Bumpers()
		rm.p.Send(robotEventMsg{message: fmt.Sprintf("Bumpers: left=%v right=%v", b.Left, b.Right)})
		return nil
	})
	r.WhenTouched(nil, func(ctx context.Context) error {
		t := r.TouchSensors()
		rm.p.Send(robotEventMsg{message: fmt.Sprintf("Touch: FL=%v FR=%v BL=%v BR=%v",
			t.FrontLeft, t.FrontRight, t.BackLeft, t.BackRight)})
		return nil
	})
	r.WhenCliffSensor(nil, logEvent("Cliff detected", true))

	if c3, ok := r.(*robot.Create3); ok {
		c3.WhenDockingSensor(func(ctx context.Context) error {
			d := c3.DockingSensor()
			rm.p.Send(robotEventMsg{message: fmt.Sprintf("Dock: contacts=%v IR=%v", d.Contacts, d.IR)})
			return nil
		})
	}
}

// reconnect attempts to rebuild the robot with exponential backoff.
// Returns the next backoff and false if shutdown was requested.
func (rm *robotManager) reconnect(backoff time.Duration) (time.Duration, bool) {
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-rm.ctx.Done():
			return backoff, false
		case <-time.After(backoff):
		}

		// Exponential backoff
		backoff = min(backoff*2, maxBackoff)

		r, link, err := OpenRobot()
		if err != nil {
			logging.L().Warnw("reconnect failed", "error", err)
			continue
		}

		rm.setRobot(r, link.Description)
		rm.p.Send(reconnectedMsg{connInfo: link.Description})
		return backoff, true
	}
}
