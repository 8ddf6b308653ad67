// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package robot

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/Thermoquad/edubot/pkg/event"
	"github.com/Thermoquad/edubot/pkg/packet"
	"github.com/Thermoquad/edubot/pkg/transport"
)

// Dock and undock wait much longer than other commands
const (
	DockTimeout   = 60 * time.Second
	UndockTimeout = 30 * time.Second
)

// navigateTurnAllowance covers the rotations around a navigate command
const navigateTurnAllowance = 4

// Create3 is the ROS 2 based robot: docking, IR proximity and network
// interfaces. Its pose always comes from the robot.
type Create3 struct {
	*Robot

	poseMu sync.Mutex
	pose   Pose

	dockMu  sync.RWMutex
	docking DockingSensor
}

// NewCreate3 creates a Create 3 robot on t
func NewCreate3(t transport.Transport, opts Options) *Create3 {
	c := &Create3{
		Robot: newRobot(t, opts),
		pose:  HomePose,
	}

	c.notifications[packet.DockingEvent] = c.decodeDocking

	c.hooks = motionHooks{
		moved:  func(resp *packet.Packet, _ float64) { c.updatePose(resp) },
		turned: func(resp *packet.Packet, _ float64) { c.updatePose(resp) },
		arced:  func(resp *packet.Packet, _, _ float64) { c.updatePose(resp) },
	}
	return c
}

// updatePose copies the pose reported in a movement response
func (c *Create3) updatePose(resp *packet.Packet) {
	if resp == nil {
		return
	}
	pose := parsePose(resp.Payload())

	c.poseMu.Lock()
	c.pose = pose
	c.poseMu.Unlock()
}

// Pose returns the last pose reported by the robot
func (c *Create3) Pose() Pose {
	c.poseMu.Lock()
	defer c.poseMu.Unlock()
	return c.pose
}

// Position queries the robot's pose
func (c *Create3) Position(ctx context.Context) (Pose, error) {
	resp, err := c.request(ctx, packet.GetPosition, nil, c.opts.DefaultTimeout)
	if err != nil {
		return Pose{}, err
	}
	c.updatePose(resp)
	return c.Pose(), nil
}

// ResetNavigation moves the robot's origin to its current position
func (c *Create3) ResetNavigation(ctx context.Context) error {
	if err := c.send(ctx, packet.ResetPosition, nil); err != nil {
		return err
	}

	c.poseMu.Lock()
	c.pose = HomePose
	c.poseMu.Unlock()

	return nil
}

// NavigateTo drives to (x, y) cm using the robot's own planner. When heading
// is given the robot finishes facing it.
func (c *Create3) NavigateTo(ctx context.Context, x, y float64, heading *float64) error {
	h := int16(-1)
	if heading != nil {
		h = int16(lo.Clamp(toInt32(*heading, 10), 0, 3599))
	}

	payload := be32(toInt32(x, 10), toInt32(y, 10))
	payload = binary.BigEndian.AppendUint16(payload, uint16(h))

	timeout := c.timeout(math.Hypot(x, y)/10 + navigateTurnAllowance)
	return c.motion(ctx, packet.NavigateTo, payload, timeout, c.updatePose)
}

// Dock drives onto the dock
func (c *Create3) Dock(ctx context.Context) (DockResult, error) {
	resp, err := c.request(ctx, packet.Dock, nil, DockTimeout)
	if err != nil {
		return DockResult{}, err
	}
	return parseDockResult(resp.Payload()), nil
}

// Undock backs off the dock
func (c *Create3) Undock(ctx context.Context) (DockResult, error) {
	resp, err := c.request(ctx, packet.Undock, nil, UndockTimeout)
	if err != nil {
		return DockResult{}, err
	}
	return parseDockResult(resp.Payload()), nil
}

// GetDockingValues queries the dock detectors
func (c *Create3) GetDockingValues(ctx context.Context) (DockingValues, error) {
	resp, err := c.request(ctx, packet.GetDockingValues, nil, c.opts.DefaultTimeout)
	if err != nil {
		return DockingValues{}, err
	}
	values := parseDockingValues(resp.Payload())

	c.dockMu.Lock()
	c.docking = values.DockingSensor
	c.dockMu.Unlock()

	return values, nil
}

// DockingSensor returns the last reported dock detector state
func (c *Create3) DockingSensor() DockingSensor {
	c.dockMu.RLock()
	defer c.dockMu.RUnlock()
	return c.docking
}

func (c *Create3) decodeDocking(p *packet.Packet) event.Reading {
	d := parseDocking(p.Payload())

	c.dockMu.Lock()
	c.docking = d
	c.dockMu.Unlock()

	return event.Reading{}
}

// GetIPv4Addresses returns the addresses of the robot's network interfaces
func (c *Create3) GetIPv4Addresses(ctx context.Context) (IPv4Addresses, error) {
	resp, err := c.request(ctx, packet.GetIPv4Addresses, nil, c.opts.DefaultTimeout)
	if err != nil {
		return IPv4Addresses{}, err
	}
	return parseIPv4(resp.Payload()), nil
}

// GetIRProximity returns the six IR proximity readings
func (c *Create3) GetIRProximity(ctx context.Context) (IRProximity, error) {
	resp, err := c.request(ctx, packet.GetIRProximity, nil, c.opts.DefaultTimeout)
	if err != nil {
		return IRProximity{}, err
	}
	return parseIRProximity(resp.Payload()), nil
}

// GetPackedIRProximity returns the seven 12-bit IR proximity readings
func (c *Create3) GetPackedIRProximity(ctx context.Context) (IRProximity, error) {
	resp, err := c.request(ctx, packet.GetPackedIRProximity, nil, c.opts.DefaultTimeout)
	if err != nil {
		return IRProximity{}, err
	}
	return parsePackedIRProximity(resp.Payload()), nil
}

// WhenDockingSensor registers a handler for dock detector changes
func (c *Create3) WhenDockingSensor(h Handler) {
	c.events.Register(packet.DockingEvent, event.Always, h)
}

func (c *Create3) String() string {
	return fmt.Sprintf("Create3 %s pose %s", c.State(), c.Pose())
}
