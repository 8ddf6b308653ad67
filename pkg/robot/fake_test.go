// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package robot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Thermoquad/edubot/pkg/packet"
	"github.com/Thermoquad/edubot/pkg/transport"
)

// fakeDevice is a polled transport that plays the robot's side of the link.
// Commands whose endpoint has a reply payload are answered with the same
// device, command and sequence.
type fakeDevice struct {
	mu        sync.Mutex
	connected bool
	written   []*packet.Packet
	replies   map[packet.Endpoint][]byte
	answers   map[packet.Endpoint]func(*packet.Packet) bool

	// connectGate, when set, holds Connect until it is closed
	connectGate chan struct{}

	inbox     chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		replies: make(map[packet.Endpoint][]byte),
		inbox:   make(chan []byte, 512),
		closed:  make(chan struct{}),
	}
}

func (f *fakeDevice) Connect(ctx context.Context) error {
	if f.connectGate != nil {
		select {
		case <-f.connectGate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakeDevice) Disconnect() error {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()

	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeDevice) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeDevice) WriteFrame(_ context.Context, frame []byte) error {
	pkt, err := packet.Decode(frame)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.written = append(f.written, pkt)
	payload, ok := f.replies[pkt.Endpoint()]
	if answer := f.answers[pkt.Endpoint()]; ok && answer != nil {
		ok = answer(pkt)
	}
	f.mu.Unlock()

	if ok {
		reply, err := packet.Encode(pkt.Device(), pkt.Command(), pkt.Sequence(), payload)
		if err != nil {
			return err
		}
		f.inbox <- reply
	}
	return nil
}

func (f *fakeDevice) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-f.inbox:
		return frame, nil
	case <-f.closed:
		return nil, transport.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// reply makes the device answer ep with payload
func (f *fakeDevice) reply(ep packet.Endpoint, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[ep] = payload
}

// replyIf makes the device answer ep with payload, but only the frames
// for which answer returns true
func (f *fakeDevice) replyIf(ep packet.Endpoint, payload []byte, answer func(*packet.Packet) bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[ep] = payload
	if f.answers == nil {
		f.answers = make(map[packet.Endpoint]func(*packet.Packet) bool)
	}
	f.answers[ep] = answer
}

// push delivers an unsolicited frame to the host
func (f *fakeDevice) push(frame []byte) {
	f.inbox <- frame
}

// sent returns the frames written to ep
func (f *fakeDevice) sent(ep packet.Endpoint) []*packet.Packet {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*packet.Packet
	for _, p := range f.written {
		if p.Endpoint() == ep {
			out = append(out, p)
		}
	}
	return out
}

// fakeNotifier is an event mode transport that answers GetName
type fakeNotifier struct {
	mu        sync.Mutex
	connected bool
	onFrame   func([]byte)
	name      string
}

func (f *fakeNotifier) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakeNotifier) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *fakeNotifier) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeNotifier) OnFrame(fn func([]byte)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onFrame = fn
}

func (f *fakeNotifier) WriteFrame(_ context.Context, frame []byte) error {
	pkt, err := packet.Decode(frame)
	if err != nil {
		return err
	}
	if pkt.Endpoint() != packet.GetName {
		return nil
	}

	reply, err := packet.Encode(pkt.Device(), pkt.Command(), pkt.Sequence(), []byte(f.name))
	if err != nil {
		return err
	}
	f.mu.Lock()
	fn := f.onFrame
	f.mu.Unlock()

	go fn(reply)
	return nil
}

func mustFrame(t *testing.T, ep packet.Endpoint, seq uint8, payload []byte) []byte {
	t.Helper()
	frame, err := packet.Encode(ep.Device, ep.Command, seq, payload)
	if err != nil {
		t.Fatalf("packet.Encode error: %v", err)
	}
	return frame
}

// notification builds a notification frame: zero timestamp, then data
func notification(t *testing.T, ep packet.Endpoint, data ...byte) []byte {
	t.Helper()
	return mustFrame(t, ep, 0, append(make([]byte, 4), data...))
}

// eventually polls cond for up to two seconds
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// player runs Play in the background
type player struct {
	cancel context.CancelFunc
	done   chan error
}

// play starts r and waits until its reset frame has been sent
func play(t *testing.T, r interface {
	Play(context.Context) error
	State() State
}, dev *fakeDevice) *player {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	p := &player{cancel: cancel, done: make(chan error, 1)}

	go func() { p.done <- r.Play(ctx) }()

	eventually(t, "program start", func() bool {
		return r.State() == Running && (dev == nil || len(dev.sent(packet.StopReset)) > 0)
	})
	t.Cleanup(func() {
		cancel()
		<-p.done
	})
	return p
}

// stop cancels the program and returns Play's result
func (p *player) stop(t *testing.T) error {
	t.Helper()
	p.cancel()
	select {
	case err := <-p.done:
		p.done <- err
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Play did not return")
		return nil
	}
}

// wait returns Play's result once it ends by itself
func (p *player) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-p.done:
		p.done <- err
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Play did not return")
		return nil
	}
}
