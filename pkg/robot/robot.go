// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package robot drives educational robots over the 20-byte frame protocol.
//
// A Robot owns one transport, one completion registry and one event
// registry. Play connects, resets the robot, starts the play handlers and
// then dispatches every received frame: notifications go to the event
// registry, responses complete the pending command that carries the same
// (device, command, sequence) key. Root and Create3 extend the shared base
// with family specific commands and sensors.
package robot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Thermoquad/edubot/pkg/completion"
	"github.com/Thermoquad/edubot/pkg/event"
	"github.com/Thermoquad/edubot/pkg/packet"
	"github.com/Thermoquad/edubot/pkg/transport"
)

// linkCheckInterval is how often an event mode link is checked for loss
const linkCheckInterval = 250 * time.Millisecond

// Handler is a user callback started by an event
type Handler = event.Handler

// decodeFunc updates sensor state from a notification and returns the
// reading its conditions are matched against
type decodeFunc func(p *packet.Packet) event.Reading

// motionHooks let a family track pose and extend stop
type motionHooks struct {
	moved  func(resp *packet.Packet, distance float64)
	turned func(resp *packet.Packet, left float64)
	arced  func(resp *packet.Packet, left, radius float64)
	stop   func(ctx context.Context) error
}

// Robot is the state machine shared by every robot family
type Robot struct {
	transport transport.Transport
	opts      Options
	logger    *zap.SugaredLogger
	clock     clock.Clock
	stats     *packet.Statistics

	responses     *completion.Registry
	events        *event.Registry
	notifications map[packet.Endpoint]decodeFunc
	hooks         motionHooks

	seq            atomic.Uint32
	state          atomic.Int32
	motorsDisabled atomic.Bool

	sayMu   sync.Mutex
	stopSay context.CancelFunc

	runMu       sync.Mutex
	runCtx      context.Context
	cancel      context.CancelFunc
	done        chan struct{}
	finishErr   error
	stopPressed chan struct{}

	mu      sync.RWMutex
	bumpers Bumpers
	touch   TouchSensors
	cliff   CliffSensor
	battery Battery
	stall   MotorStall
}

func newRobot(t transport.Transport, opts Options) *Robot {
	opts = opts.withDefaults()
	r := &Robot{
		transport:   t,
		opts:        opts,
		logger:      opts.Logger,
		clock:       opts.Clock,
		stats:       opts.Statistics,
		responses:   completion.NewRegistry(opts.Clock),
		events:      event.NewRegistry(opts.Logger),
		runCtx:      context.Background(),
		stopPressed: make(chan struct{}),
	}

	r.notifications = map[packet.Endpoint]decodeFunc{
		packet.MotorStallEvent: r.decodeStall,
		packet.BumperEvent:     r.decodeBumpers,
		packet.BatteryEvent:    r.decodeBattery,
		packet.TouchEvent:      r.decodeTouch,
		packet.CliffEvent:      r.decodeCliff,
	}
	return r
}

// State returns the lifecycle state
func (r *Robot) State() State {
	return State(r.state.Load())
}

// Statistics returns the link counters
func (r *Robot) Statistics() *packet.Statistics {
	return r.stats
}

// MotorsDisabled reports whether a motor stall has disabled motion commands
func (r *Robot) MotorsDisabled() bool {
	return r.motorsDisabled.Load()
}

// nextSeq returns the current sequence number and advances it, wrapping at 256
func (r *Robot) nextSeq() uint8 {
	return uint8(r.seq.Inc() - 1)
}

func (r *Robot) context() context.Context {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	return r.runCtx
}

// Play runs the robot program. It connects the transport, resets the robot,
// starts every play handler once and then dispatches received frames until
// ctx is done, the link drops or the stop button has been handled. The
// transport is disconnected on return.
func (r *Robot) Play(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Close must never see Connecting without the means to stop it
	r.runMu.Lock()
	if !r.state.CompareAndSwap(int32(Idle), int32(Connecting)) {
		r.runMu.Unlock()
		return ErrAlreadyPlaying
	}
	done := make(chan struct{})
	defer close(done)
	r.runCtx, r.cancel, r.done = runCtx, cancel, done
	r.runMu.Unlock()

	notifier, eventMode := r.transport.(transport.Notifier)
	poller, pollMode := r.transport.(transport.Poller)
	if !eventMode && !pollMode {
		r.state.Store(int32(Disconnected))
		return fmt.Errorf("transport %T can neither poll nor notify", r.transport)
	}
	if eventMode {
		notifier.OnFrame(r.handleFrame)
	}

	if !r.transport.IsConnected() {
		if err := r.transport.Connect(runCtx); err != nil {
			r.state.Store(int32(Disconnected))
			return fmt.Errorf("connect: %w", err)
		}
	}
	r.state.Store(int32(Running))
	r.logger.Infow("program started", "event_mode", eventMode)

	// Always start from a reset robot
	if err := r.Stop(runCtx); err != nil {
		r.logger.Warnw("initial stop failed", "error", err)
	}

	r.events.StartPlay(runCtx)

	loopCtx, stopLoop := context.WithCancel(runCtx)
	defer stopLoop()

	g, gctx := errgroup.WithContext(loopCtx)
	g.Go(func() error {
		defer stopLoop()
		if eventMode {
			return r.watchLink(gctx)
		}
		return r.readLoop(gctx, poller)
	})
	g.Go(func() error {
		select {
		case <-r.stopPressed:
			r.logger.Infow("stop button pressed")
			r.events.DispatchWait(runCtx, packet.StopButtonEvent, event.Reading{})
			stopLoop()
		case <-gctx.Done():
		}
		return nil
	})
	err := g.Wait()

	cancel()
	r.events.Wait()

	err = multierr.Append(err, r.finish())

	r.runMu.Lock()
	r.finishErr = err
	r.runMu.Unlock()

	r.logger.Infow("program finished", "error", err)
	return err
}

// readLoop decodes and dispatches frames from a polled transport
func (r *Robot) readLoop(ctx context.Context, p transport.Poller) error {
	for {
		frame, err := p.ReadFrame(ctx)
		if err != nil {
			var fe *transport.FrameError
			switch {
			case errors.As(err, &fe):
				r.stats.RecordDecode(fe.Err)
				r.logger.Debugw("dropping malformed frame", "error", fe.Err)
				continue
			case errors.Is(err, transport.ErrClosed), ctx.Err() != nil:
				return nil
			default:
				return fmt.Errorf("read frame: %w", err)
			}
		}
		r.handleFrame(frame)
	}
}

// watchLink waits while an event mode transport stays connected
func (r *Robot) watchLink(ctx context.Context) error {
	ticker := r.clock.Ticker(linkCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !r.transport.IsConnected() {
				return nil
			}
		}
	}
}

// handleFrame classifies one received frame as a notification or a
// response. Corrupt and unmatched frames are counted and dropped.
func (r *Robot) handleFrame(frame []byte) {
	state := r.State()
	if !state.active() {
		return
	}

	pkt, err := packet.Decode(frame)
	r.stats.RecordDecode(err)
	if err != nil {
		r.logger.Debugw("dropping corrupt frame", "error", err)
		return
	}

	ep := pkt.Endpoint()
	if ep == packet.StopButtonEvent {
		r.stats.RecordNotification()
		r.pressStop()
		return
	}

	if decode, ok := r.notifications[ep]; ok {
		r.stats.RecordNotification()
		reading := decode(pkt)
		if state == Running {
			r.events.Dispatch(r.context(), ep, reading)
		}
		return
	}

	if r.responses.Complete(pkt) {
		r.stats.RecordResponse()
		return
	}

	r.stats.RecordUnmatched()
	r.logger.Debugw("unmatched frame", "endpoint", ep.String(), "seq", pkt.Sequence())
}

func (r *Robot) pressStop() {
	if r.state.CompareAndSwap(int32(Running), int32(Stopping)) {
		close(r.stopPressed)
	}
}

// finish resets a robot that is still running and disconnects
func (r *Robot) finish() error {
	var err error
	if r.State() == Running && r.transport.IsConnected() {
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.DefaultTimeout)
		err = r.Stop(ctx)
		cancel()
	}
	err = multierr.Append(err, r.transport.Disconnect())
	r.state.Store(int32(Disconnected))
	return err
}

// Close ends a running program and waits for Play to return. A robot that
// was never played just has its transport disconnected.
func (r *Robot) Close() error {
	r.runMu.Lock()
	switch r.State() {
	case Idle:
		r.state.Store(int32(Disconnected))
		r.runMu.Unlock()
		return r.transport.Disconnect()
	case Disconnected:
		defer r.runMu.Unlock()
		return r.finishErr
	}
	cancel, done := r.cancel, r.done
	r.runMu.Unlock()

	cancel()
	<-done

	r.runMu.Lock()
	defer r.runMu.Unlock()
	return r.finishErr
}

// HandOver yields to other goroutines. Handlers that loop without issuing
// commands call it on every iteration; it returns ctx's error once the
// program is over.
func HandOver(ctx context.Context) error {
	runtime.Gosched()
	return ctx.Err()
}

// Wait pauses for d or until ctx is done
func (r *Robot) Wait(ctx context.Context, d time.Duration) error {
	timer := r.clock.Timer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ============================================================
// Command plumbing
// ============================================================

// write encodes and sends one frame
func (r *Robot) write(ctx context.Context, ep packet.Endpoint, seq uint8, payload []byte) error {
	if !r.State().active() {
		return ErrNotRunning
	}
	if !r.transport.IsConnected() {
		return transport.ErrNotConnected
	}

	frame, err := packet.Encode(ep.Device, ep.Command, seq, payload)
	if err != nil {
		return err
	}
	if err := r.transport.WriteFrame(ctx, frame); err != nil {
		return fmt.Errorf("%s: %w", ep, err)
	}
	r.stats.RecordSent()
	return nil
}

// send issues a command that has no response
func (r *Robot) send(ctx context.Context, ep packet.Endpoint, payload []byte) error {
	return r.write(ctx, ep, r.nextSeq(), payload)
}

// issue registers a completion and then sends the command
func (r *Robot) issue(ctx context.Context, ep packet.Endpoint, payload []byte) (*completion.Pending, error) {
	seq := r.nextSeq()
	pending := r.responses.Register(completion.Key{Device: ep.Device, Command: ep.Command, Sequence: seq})

	if err := r.write(ctx, ep, seq, payload); err != nil {
		r.responses.Cancel(pending)
		return nil, err
	}
	return pending, nil
}

// await waits for the response to an issued command
func (r *Robot) await(ctx context.Context, ep packet.Endpoint, pending *completion.Pending, timeout time.Duration) (*packet.Packet, error) {
	resp, err := r.responses.Await(ctx, pending, timeout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ep, err)
	}
	return resp, nil
}

// request issues a command and waits for its response
func (r *Robot) request(ctx context.Context, ep packet.Endpoint, payload []byte, timeout time.Duration) (*packet.Packet, error) {
	pending, err := r.issue(ctx, ep, payload)
	if err != nil {
		return nil, err
	}
	return r.await(ctx, ep, pending, timeout)
}

// motion issues a movement command. It is a no-op while motors are disabled.
// apply runs once the command was sent, with the response or nil on timeout.
func (r *Robot) motion(ctx context.Context, ep packet.Endpoint, payload []byte, timeout time.Duration, apply func(*packet.Packet)) error {
	if r.motorsDisabled.Load() {
		return nil
	}

	pending, err := r.issue(ctx, ep, payload)
	if err != nil {
		return err
	}
	resp, err := r.await(ctx, ep, pending, timeout)
	if apply != nil {
		apply(resp)
	}
	return err
}

// timeout extends the default timeout by a number of seconds
func (r *Robot) timeout(extraSeconds float64) time.Duration {
	return r.opts.DefaultTimeout + time.Duration(math.Abs(extraSeconds)*float64(time.Second))
}

// ============================================================
// Notification decoders
// ============================================================

func (r *Robot) decodeStall(p *packet.Packet) event.Reading {
	payload := p.Payload()
	r.motorsDisabled.Store(true)

	r.mu.Lock()
	r.stall = MotorStall{Motor: payload[4], Cause: payload[5]}
	r.mu.Unlock()

	r.logger.Warnw("motor stall, motion disabled until stop", "motor", payload[4], "cause", payload[5])
	return event.Reading{}
}

func (r *Robot) decodeBumpers(p *packet.Packet) event.Reading {
	b := parseBumpers(p.Payload())

	r.mu.Lock()
	r.bumpers = b
	r.mu.Unlock()

	return event.Reading{Flags: b.flags()}
}

func (r *Robot) decodeTouch(p *packet.Packet) event.Reading {
	t := parseTouch(p.Payload())

	r.mu.Lock()
	r.touch = t
	r.mu.Unlock()

	return event.Reading{Flags: t.flags()}
}

func (r *Robot) decodeCliff(p *packet.Packet) event.Reading {
	c := CliffSensor{Cliff: p.Payload()[4] != 0}

	r.mu.Lock()
	r.cliff = c
	r.mu.Unlock()

	return event.Reading{Flags: []bool{c.Cliff}}
}

func (r *Robot) decodeBattery(p *packet.Packet) event.Reading {
	b := parseBattery(p.Payload())

	r.mu.Lock()
	r.battery = b
	r.mu.Unlock()

	return event.Reading{}
}
