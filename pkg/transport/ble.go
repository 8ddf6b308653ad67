// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"
)

// BLE service and characteristic UUIDs advertised by the robots
const (
	RootIDServiceUUID    = "48c5d828-ac2a-442d-97a3-0c9822b04979"
	UARTServiceUUID      = "6e400001-b5a3-f393-e0a9-e50e24dcca9e"
	TXCharacteristicUUID = "6e400002-b5a3-f393-e0a9-e50e24dcca9e"
	RXCharacteristicUUID = "6e400003-b5a3-f393-e0a9-e50e24dcca9e"
)

// mustBLEUUID converts a canonical UUID string for the bluetooth stack
func mustBLEUUID(s string) bluetooth.UUID {
	return bluetooth.NewUUID(uuid.MustParse(s))
}

var (
	rootIDService = mustBLEUUID(RootIDServiceUUID)
	uartService   = mustBLEUUID(UARTServiceUUID)
	txChar        = mustBLEUUID(TXCharacteristicUUID)
	rxChar        = mustBLEUUID(RXCharacteristicUUID)
)

// Advertisement is a robot seen during a BLE scan
type Advertisement struct {
	Name    string
	Address string
	RSSI    int16
}

// BLE exchanges raw frames over the Nordic UART service. Received frames
// are delivered through the OnFrame callback, so BLE is a Notifier.
type BLE struct {
	name    string
	adapter *bluetooth.Adapter
	logger  *zap.SugaredLogger

	mu         sync.Mutex
	tx         bluetooth.DeviceCharacteristic
	disconnect func() error
	onFrame    func([]byte)
	connected  atomic.Bool
}

var _ Notifier = (*BLE)(nil)

// NewBLE creates a BLE transport. An empty name connects to the first robot
// advertising the Root ID service.
func NewBLE(name string, logger *zap.SugaredLogger) *BLE {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &BLE{
		name:    name,
		adapter: bluetooth.DefaultAdapter,
		logger:  logger,
	}
}

// Name returns a description of the link
func (b *BLE) Name() string {
	if b.name == "" {
		return "ble (first robot)"
	}
	return "ble " + b.name
}

// OnFrame sets the receive callback
func (b *BLE) OnFrame(fn func(frame []byte)) {
	b.mu.Lock()
	b.onFrame = fn
	b.mu.Unlock()
}

// Connect scans for the robot, connects and subscribes to the RX characteristic
func (b *BLE) Connect(ctx context.Context) error {
	if b.connected.Load() {
		return nil
	}
	if err := b.adapter.Enable(); err != nil {
		return fmt.Errorf("enable bluetooth adapter: %w", err)
	}

	var target bluetooth.ScanResult
	found := false
	err := scan(ctx, b.adapter, func(result bluetooth.ScanResult) bool {
		if b.name != "" {
			found = result.LocalName() == b.name
		} else {
			found = result.HasServiceUUID(rootIDService)
		}
		if found {
			target = result
		}
		return found
	})
	if err != nil {
		return err
	}
	if !found {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("no robot found")
	}

	b.logger.Infow("connecting", "name", target.LocalName(), "address", target.Address.String())

	device, err := b.adapter.Connect(target.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("connect %s: %w", target.Address.String(), err)
	}

	services, err := device.DiscoverServices([]bluetooth.UUID{uartService})
	if err != nil || len(services) == 0 {
		device.Disconnect()
		return fmt.Errorf("UART service not found: %v", err)
	}
	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{txChar, rxChar})
	if err != nil || len(chars) < 2 {
		device.Disconnect()
		return fmt.Errorf("UART characteristics not found: %v", err)
	}

	var tx, rx bluetooth.DeviceCharacteristic
	for _, c := range chars {
		switch c.UUID() {
		case txChar:
			tx = c
		case rxChar:
			rx = c
		}
	}

	if err := rx.EnableNotifications(b.receive); err != nil {
		device.Disconnect()
		return fmt.Errorf("enable notifications: %w", err)
	}

	b.mu.Lock()
	b.tx = tx
	b.disconnect = device.Disconnect
	b.mu.Unlock()
	b.connected.Store(true)
	return nil
}

func (b *BLE) receive(buf []byte) {
	b.mu.Lock()
	fn := b.onFrame
	b.mu.Unlock()

	if fn != nil {
		// The stack reuses buf after the callback returns
		fn(append([]byte(nil), buf...))
	}
}

// Disconnect drops the BLE connection
func (b *BLE) Disconnect() error {
	if !b.connected.Swap(false) {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disconnect()
}

// IsConnected reports whether the robot is connected
func (b *BLE) IsConnected() bool {
	return b.connected.Load()
}

// WriteFrame writes one raw frame to the TX characteristic
func (b *BLE) WriteFrame(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !b.connected.Load() {
		return ErrNotConnected
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.tx.WriteWithoutResponse(frame); err != nil {
		return fmt.Errorf("ble write: %w", err)
	}
	return nil
}

// Scan lists robots advertising the Root ID service until ctx is done
func Scan(ctx context.Context, fn func(Advertisement)) error {
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return fmt.Errorf("enable bluetooth adapter: %w", err)
	}

	seen := make(map[string]bool)
	return scan(ctx, adapter, func(result bluetooth.ScanResult) bool {
		addr := result.Address.String()
		if result.HasServiceUUID(rootIDService) && !seen[addr] {
			seen[addr] = true
			fn(Advertisement{Name: result.LocalName(), Address: addr, RSSI: result.RSSI})
		}
		return false
	})
}

// scan runs a BLE scan until match returns true or ctx is done.
// Cancelling ctx during the scan ends it without error.
func scan(ctx context.Context, adapter *bluetooth.Adapter, match func(bluetooth.ScanResult) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		adapter.StopScan()
	})
	defer stop()

	err := adapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
		if match(result) {
			a.StopScan()
		}
	})
	if err != nil {
		return fmt.Errorf("ble scan: %w", err)
	}
	return nil
}
