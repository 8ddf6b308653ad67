// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/edubot/pkg/robot"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	defaultDriveSpeed = 10.0 // cm/s
	maxDriveSpeed     = robot.MaxWheelSpeed / 10.0
)

// Focus states
const (
	focusActions = iota
	focusDrive
	focusSpeedInput
	focusSayInput
	focusCount
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// action is a canned robot routine
type action struct {
	name string
	desc string
	run  func(ctx context.Context, r robot.Controller) error
}

// Implement list.Item interface
func (a action) Title() string       { return a.name }
func (a action) Description() string { return a.desc }
func (a action) FilterValue() string { return a.name }

// sensorSnapshot is the robot state shown in the telemetry panel
type sensorSnapshot struct {
	state    robot.State
	pose     robot.Pose
	battery  robot.Battery
	bumpers  robot.Bumpers
	touch    robot.TouchSensors
	cliff    robot.CliffSensor
	disabled bool

	// Root only
	light  *robot.LightSensors
	colors []uint8

	// Create 3 only
	dock *robot.DockingSensor
}

// controlModel is the Bubble Tea model for the control TUI
type controlModel struct {
	// Robot manager (for sending commands and reconnection)
	robotMgr *robotManager
	connInfo string

	// Actions
	actions    []action
	actionList list.Model
	busy       string

	// Monitoring (reused from tui.go patterns)
	errorLog      []errorLogEntry
	maxLogEntries int
	sensors       sensorSnapshot

	// Control
	speedInput   textinput.Model
	sayInput     textinput.Model
	focusedField int
	driving      string

	// UI state
	width          int
	height         int
	quitting       bool
	connectionLost bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type controlTickMsg time.Time

type robotEventMsg struct {
	message string
	isError bool
}

type commandDoneMsg struct {
	name    string
	err     error
	elapsed time.Duration
	action  bool
}

type connectionLostMsg struct {
	err error
}

type reconnectedMsg struct {
	connInfo string
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

// defaultActions are the routines offered in the action list
func defaultActions() []action {
	home := robot.HomePose.Heading
	return []action{
		{"Drive square", "16 cm sides", func(ctx context.Context, r robot.Controller) error {
			for i := 0; i < 4; i++ {
				if err := r.Move(ctx, 16); err != nil {
					return err
				}
				if err := r.TurnLeft(ctx, 90); err != nil {
					return err
				}
			}
			return nil
		}},
		{"Spin", "One full turn right", func(ctx context.Context, r robot.Controller) error {
			return r.TurnRight(ctx, 360)
		}},
		{"Circle", "Arc left around a 10 cm radius", func(ctx context.Context, r robot.Controller) error {
			return r.Arc(ctx, robot.DirLeft, 360, 10)
		}},
		{"Navigate home", "Return to the start pose", func(ctx context.Context, r robot.Controller) error {
			return r.NavigateTo(ctx, 0, 0, &home)
		}},
		{"Reset navigation", "Make here the start pose", func(ctx context.Context, r robot.Controller) error {
			return r.ResetNavigation(ctx)
		}},
		{"Play A4", "440 Hz for half a second", func(ctx context.Context, r robot.Controller) error {
			return r.PlayNote(ctx, 440, 0.5)
		}},
		{"Lights: green spin", "Spinning green lights", func(ctx context.Context, r robot.Controller) error {
			return r.SetLights(ctx, robot.LightsSpin, 0, 255, 0)
		}},
		{"Lights: red blink", "Blinking red lights", func(ctx context.Context, r robot.Controller) error {
			return r.SetLights(ctx, robot.LightsBlink, 255, 0, 0)
		}},
		{"Lights: off", "Turn the lights off", func(ctx context.Context, r robot.Controller) error {
			return r.SetLights(ctx, robot.LightsOff, 0, 0, 0)
		}},
		{"Battery", "Query the battery level", func(ctx context.Context, r robot.Controller) error {
			_, err := r.GetBatteryLevel(ctx)
			return err
		}},
	}
}

func initialControlModel(robotMgr *robotManager, connInfo string) controlModel {
	// Initialize text input for drive speed
	speed := textinput.New()
	speed.Placeholder = strconv.FormatFloat(defaultDriveSpeed, 'f', -1, 64)
	speed.CharLimit = 5
	speed.Width = 10

	// Initialize text input for speech
	say := textinput.New()
	say.Placeholder = "Hello!"
	say.CharLimit = 120
	say.Width = 30

	actions := defaultActions()
	items := make([]list.Item, len(actions))
	for i, a := range actions {
		items[i] = a
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	actionList := list.New(items, delegate, 30, 10)
	actionList.Title = "Actions"
	actionList.SetShowStatusBar(false)
	actionList.SetShowHelp(false)
	actionList.SetFilteringEnabled(false)

	return controlModel{
		robotMgr:      robotMgr,
		connInfo:      connInfo,
		actions:       actions,
		actionList:    actionList,
		errorLog:      make([]errorLogEntry, 0),
		maxLogEntries: 100,
		speedInput:    speed,
		sayInput:      say,
		focusedField:  focusActions,
		width:         80,
		height:        24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	return controlTickCmd()
}

func controlTickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return controlTickMsg(t)
	})
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		return m.handleMouseMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateListSize()

	case controlTickMsg:
		m.sensors = readSensors(m.robotMgr.current())
		return m, controlTickCmd()

	case robotEventMsg:
		m.addLogEntry(msg.message, msg.isError)

	case commandDoneMsg:
		if msg.action {
			m.busy = ""
		}
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("%s failed: %v", msg.name, msg.err), true)
		} else if msg.action {
			m.addLogEntry(fmt.Sprintf("%s done in %v", msg.name, msg.elapsed.Round(time.Millisecond)), false)
		}

	case connectionLostMsg:
		m.connectionLost = true
		m.busy = ""
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Connection lost (%v) - reconnecting...", msg.err), true)
		} else {
			m.addLogEntry("Program ended - reconnecting...", false)
		}

	case reconnectedMsg:
		m.connectionLost = false
		m.connInfo = msg.connInfo
		m.addLogEntry("Reconnected", false)
	}

	// Update child components
	var cmd tea.Cmd
	switch m.focusedField {
	case focusSpeedInput:
		m.speedInput, cmd = m.speedInput.Update(msg)
		cmds = append(cmds, cmd)
	case focusSayInput:
		m.sayInput, cmd = m.sayInput.Update(msg)
		cmds = append(cmds, cmd)
	case focusActions:
		m.actionList, cmd = m.actionList.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	typing := m.focusedField == focusSpeedInput || m.focusedField == focusSayInput

	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "q":
		if !typing {
			m.quitting = true
			return m, tea.Quit
		}

	case "tab":
		return m.cycleFocus(1), nil

	case "shift+tab":
		return m.cycleFocus(-1), nil

	case "enter":
		return m.handleEnter()

	case "esc":
		m.driving = "stop"
		return m, m.command("Stop", false, func(ctx context.Context, r robot.Controller) error {
			return r.Stop(ctx)
		})
	}

	switch m.focusedField {
	case focusDrive:
		return m.handleDriveKey(msg)

	case focusActions:
		var cmd tea.Cmd
		m.actionList, cmd = m.actionList.Update(msg)
		return m, cmd

	case focusSpeedInput:
		var cmd tea.Cmd
		m.speedInput, cmd = m.speedInput.Update(msg)
		return m, cmd

	case focusSayInput:
		var cmd tea.Cmd
		m.sayInput, cmd = m.sayInput.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleDriveKey maps drive pad keys to wheel speeds
func (m *controlModel) handleDriveKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	speed, err := m.driveSpeed()
	if err != nil {
		m.addLogEntry(err.Error(), true)
		return m, nil
	}

	var left, right float64
	switch msg.String() {
	case "up", "w":
		left, right = speed, speed
		m.driving = "forward"
	case "down", "s":
		left, right = -speed, -speed
		m.driving = "backward"
	case "left", "a":
		left, right = -speed/2, speed/2
		m.driving = "left"
	case "right", "d":
		left, right = speed/2, -speed/2
		m.driving = "right"
	case " ":
		m.driving = "stop"
		return m, m.command("Stop", false, func(ctx context.Context, r robot.Controller) error {
			return r.Stop(ctx)
		})
	default:
		return m, nil
	}

	return m, m.command("Drive", false, func(ctx context.Context, r robot.Controller) error {
		return r.SetWheelSpeeds(ctx, left, right)
	})
}

func (m *controlModel) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}

	// For now, pass mouse events to the list
	m.actionList, _ = m.actionList.Update(msg)

	return m, nil
}

func (m *controlModel) cycleFocus(delta int) *controlModel {
	m.focusedField = (m.focusedField + delta + focusCount) % focusCount

	// Update focus state
	m.speedInput.Blur()
	m.sayInput.Blur()
	switch m.focusedField {
	case focusSpeedInput:
		m.speedInput.Focus()
	case focusSayInput:
		m.sayInput.Focus()
	}

	return m
}

func (m *controlModel) handleEnter() (tea.Model, tea.Cmd) {
	// Don't allow control commands while connection is lost
	if m.connectionLost {
		m.addLogEntry("Cannot send command: connection lost", true)
		return m, nil
	}

	switch m.focusedField {
	case focusActions:
		idx := m.actionList.Index()
		if idx < 0 || idx >= len(m.actions) {
			return m, nil
		}
		return m.startAction(m.actions[idx])

	case focusSayInput:
		phrase := m.sayInput.Value()
		if phrase == "" {
			phrase = m.sayInput.Placeholder
		}
		m.sayInput.Reset()
		return m.startAction(action{
			name: fmt.Sprintf("Say %q", phrase),
			run: func(ctx context.Context, r robot.Controller) error {
				return r.Say(ctx, phrase)
			},
		})

	case focusSpeedInput:
		if speed, err := m.driveSpeed(); err != nil {
			m.addLogEntry(err.Error(), true)
		} else {
			m.addLogEntry(fmt.Sprintf("Drive speed set to %.1f cm/s", speed), false)
		}
	}

	return m, nil
}

func (m controlModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	focusedBoxStyle := boxStyle.
		BorderForeground(lipgloss.Color("12"))

	// Header
	s.WriteString(titleStyle.Render("EDUBOT CONTROL"))
	s.WriteString(" ")
	connStatus := m.connInfo
	if m.connectionLost {
		connStatus = warningStyle.Render("RECONNECTING...")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | q=quit Tab=switch Esc=stop", connStatus)))
	s.WriteString("\n\n")

	// Layout: left panel (actions) | right panel (control)
	leftWidth := 30
	rightWidth := m.width - leftWidth - 6

	listStyle := boxStyle.Width(leftWidth)
	if m.focusedField == focusActions {
		listStyle = focusedBoxStyle.Width(leftWidth)
	}
	actionPanel := listStyle.Render(m.actionList.View())

	controlStyle := boxStyle.Width(rightWidth)
	if m.focusedField != focusActions {
		controlStyle = focusedBoxStyle.Width(rightWidth)
	}
	controlPanel := controlStyle.Render(m.renderControlPanel(statsLabelStyle, statsValueStyle, headerStyle, warningStyle))

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, actionPanel, " ", controlPanel))
	s.WriteString("\n\n")

	// Statistics bar
	s.WriteString(m.renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle))
	s.WriteString("\n\n")

	// Sensors
	s.WriteString(m.renderTelemetry(statsLabelStyle, statsValueStyle, errorStyle, boxStyle))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(m.renderEventLog(statsLabelStyle, warningStyle, boxStyle))

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func (m controlModel) renderControlPanel(statsLabelStyle, statsValueStyle, headerStyle, warningStyle lipgloss.Style) string {
	var s strings.Builder

	s.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Robot:"), statsValueStyle.Render(m.sensors.state.String())))
	if m.busy != "" {
		s.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Running:"), warningStyle.Render(m.busy)))
	}
	s.WriteString("\n")

	// Drive pad
	pad := "Drive pad: arrows/WASD, space=stop"
	if m.focusedField == focusDrive {
		s.WriteString(warningStyle.Render("> " + pad))
	} else {
		s.WriteString(headerStyle.Render("  " + pad))
	}
	if m.driving != "" {
		s.WriteString(fmt.Sprintf(" [%s]", m.driving))
	}
	s.WriteString("\n\n")

	// Speed field
	s.WriteString(statsLabelStyle.Render("Speed (cm/s): "))
	s.WriteString(renderInput(m.speedInput, m.focusedField == focusSpeedInput))
	s.WriteString("\n")

	// Say field
	s.WriteString(statsLabelStyle.Render("Say: "))
	s.WriteString(renderInput(m.sayInput, m.focusedField == focusSayInput))

	return s.String()
}

// renderInput shows a text input, or its value as plain text when unfocused
func renderInput(in textinput.Model, focused bool) string {
	if focused {
		return in.View()
	}
	val := in.Value()
	if val == "" {
		val = in.Placeholder
	}
	return fmt.Sprintf("[%s]", val)
}

func (m controlModel) renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle lipgloss.Style) string {
	r := m.robotMgr.current()
	if r == nil {
		return ""
	}
	snap := r.Statistics().Snapshot()

	var validPercent, errorPercent float64
	if snap.TotalFrames > 0 {
		validPercent = float64(snap.ValidFrames) * 100.0 / float64(snap.TotalFrames)
		totalErrors := snap.CRCErrors + snap.LengthErrors + snap.DecodeErrors
		errorPercent = float64(totalErrors) * 100.0 / float64(snap.TotalFrames)
	}

	errors := statsValueStyle.Render("0.0%")
	if errorPercent > 0 {
		errors = errorStyle.Render(fmt.Sprintf("%.1f%%", errorPercent))
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s  %s %s",
		statsLabelStyle.Render("Rx:"), statsValueStyle.Render(fmt.Sprintf("%d", snap.TotalFrames)),
		statsLabelStyle.Render("Tx:"), statsValueStyle.Render(fmt.Sprintf("%d", snap.SentFrames)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%.1f%%", validPercent)),
		statsLabelStyle.Render("Errors:"), errors,
		statsLabelStyle.Render("Unmatched:"), statsValueStyle.Render(fmt.Sprintf("%d", snap.Unmatched)),
		statsLabelStyle.Render("Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f fr/s", snap.FrameRate)),
	)

	return boxStyle.Width(m.width - 4).Render(content)
}

func (m controlModel) renderTelemetry(statsLabelStyle, statsValueStyle, errorStyle, boxStyle lipgloss.Style) string {
	sn := m.sensors

	var content strings.Builder
	content.WriteString(statsLabelStyle.Render("SENSORS"))
	content.WriteString(" | ")

	content.WriteString(fmt.Sprintf("%s %s  ", statsLabelStyle.Render("Pose:"), statsValueStyle.Render(sn.pose.String())))
	content.WriteString(fmt.Sprintf("%s %s  ", statsLabelStyle.Render("Battery:"),
		statsValueStyle.Render(fmt.Sprintf("%d%% %dmV", sn.battery.Percent, sn.battery.Millivolts))))
	content.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Bumpers:"),
		statsValueStyle.Render(fmt.Sprintf("L=%v R=%v", sn.bumpers.Left, sn.bumpers.Right))))

	content.WriteString(fmt.Sprintf("%s %s  ", statsLabelStyle.Render("Touch:"),
		statsValueStyle.Render(fmt.Sprintf("FL=%v FR=%v BL=%v BR=%v",
			sn.touch.FrontLeft, sn.touch.FrontRight, sn.touch.BackLeft, sn.touch.BackRight))))
	if sn.cliff.Cliff {
		content.WriteString(errorStyle.Render("CLIFF  "))
	}
	if sn.disabled {
		content.WriteString(errorStyle.Render("MOTORS DISABLED  "))
	}

	if sn.light != nil {
		content.WriteString(fmt.Sprintf("\n%s %s  ", statsLabelStyle.Render("Light:"),
			statsValueStyle.Render(fmt.Sprintf("state=%d L=%d R=%d", sn.light.State, sn.light.Left, sn.light.Right))))
	}
	if len(sn.colors) > 0 {
		var cells strings.Builder
		for _, c := range sn.colors {
			cells.WriteString(colorGlyph(c))
		}
		content.WriteString(fmt.Sprintf("%s %s", statsLabelStyle.Render("Colors:"), cells.String()))
	}
	if sn.dock != nil {
		content.WriteString(fmt.Sprintf("\n%s %s", statsLabelStyle.Render("Dock:"),
			statsValueStyle.Render(fmt.Sprintf("contacts=%v IR=%v", sn.dock.Contacts, sn.dock.IR))))
	}

	return boxStyle.Width(m.width - 4).Render(content.String())
}

// colorGlyph renders one color sensor cell
func colorGlyph(c uint8) string {
	colors := map[uint8]string{
		robot.ColorWhite: "15",
		robot.ColorBlack: "0",
		robot.ColorRed:   "9",
		robot.ColorGreen: "10",
		robot.ColorBlue:  "12",
	}
	code, ok := colors[c]
	if !ok {
		return "·"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(code)).Render("█")
}

func (m controlModel) renderEventLog(statsLabelStyle, warningStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("EVENTS"))
	s.WriteString("\n")

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyleLocal := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	// Calculate available height for log
	logHeight := min(8, len(m.errorLog))
	startIdx := max(len(m.errorLog)-logHeight, 0)

	if len(m.errorLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.errorLog); i++ {
			entry := m.errorLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyleLocal
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(timestamp),
				style.Render(icon),
				entry.message))
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}

//////////////////////////////////////////////////////////////
// Data Processing
//////////////////////////////////////////////////////////////

// readSensors copies the latest readings from the robot
func readSensors(r robot.Controller) sensorSnapshot {
	if r == nil {
		return sensorSnapshot{}
	}

	sn := sensorSnapshot{
		state:   r.State(),
		pose:    r.Pose(),
		battery: r.Battery(),
		bumpers: r.Bumpers(),
		touch:   r.TouchSensors(),
		cliff:   r.CliffSensor(),
	}

	switch bot := r.(type) {
	case *robot.Root:
		sn.disabled = bot.MotorsDisabled()
		light := bot.LightSensors()
		sn.light = &light
		sn.colors = bot.Colors()
	case *robot.Create3:
		sn.disabled = bot.MotorsDisabled()
		dock := bot.DockingSensor()
		sn.dock = &dock
	}
	return sn
}

//////////////////////////////////////////////////////////////
// Commands
//////////////////////////////////////////////////////////////

// command runs fn against the current robot off the UI goroutine
func (m *controlModel) command(name string, isAction bool, fn func(ctx context.Context, r robot.Controller) error) tea.Cmd {
	rm := m.robotMgr
	return func() tea.Msg {
		start := time.Now()
		err := fn(rm.ctx, rm.current())
		if err == nil && !isAction {
			return nil
		}
		return commandDoneMsg{name: name, err: err, elapsed: time.Since(start), action: isAction}
	}
}

// startAction runs one action at a time
func (m *controlModel) startAction(a action) (tea.Model, tea.Cmd) {
	if m.busy != "" {
		m.addLogEntry(fmt.Sprintf("Busy with %s", m.busy), true)
		return m, nil
	}
	m.busy = a.name
	m.addLogEntry(fmt.Sprintf("Started %s", a.name), false)
	return m, m.command(a.name, true, a.run)
}

// driveSpeed parses the speed field
func (m *controlModel) driveSpeed() (float64, error) {
	speedStr := m.speedInput.Value()
	if speedStr == "" {
		speedStr = m.speedInput.Placeholder
	}

	speed, err := strconv.ParseFloat(speedStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid speed value: %s", speedStr)
	}
	if speed <= 0 || speed > maxDriveSpeed {
		return 0, fmt.Errorf("speed must be above 0 and at most %.0f cm/s", maxDriveSpeed)
	}
	return speed, nil
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *controlModel) addLogEntry(message string, isError bool) {
	entry := errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.errorLog = append(m.errorLog, entry)

	if len(m.errorLog) > m.maxLogEntries {
		m.errorLog = m.errorLog[len(m.errorLog)-m.maxLogEntries:]
	}
}

func (m *controlModel) updateListSize() {
	// Adjust list size based on terminal size
	listHeight := max(m.height/3, 5)
	m.actionList.SetSize(28, listHeight)
}
