// go-rflink
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-rflink.
//
// go-rflink is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-rflink is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-rflink; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package rflink

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// SentPacket is one transmission recorded by MockTransceiver
type SentPacket struct {
	At        time.Time
	Data      []byte
	PowerCode uint16
}

// MockTransceiver is an in-memory transceiver for tests. Frames injected with
// InjectFrame are returned by Receive in order; transmissions are recorded and
// published on Sent. It implements TransceiverContext natively so cancellation
// never leaves a goroutine behind.
type MockTransceiver struct {
	txErr     error
	openErr   error
	tuneErr   error
	regErr    error
	frames    chan []byte
	sent      chan SentPacket
	closed    chan struct{}
	packets   []SentPacket
	timeout   time.Duration
	mu        sync.Mutex
	opens     atomic.Int64
	tunes     atomic.Int64
	closes    atomic.Int64
	overlaps  atomic.Int64
	regValue  uint32
	frequency uint32
	lastReg   uint16
	txStatus  TxStatus
	failNext  int
	receiving atomic.Bool
	sending   atomic.Bool
	isClosed  bool
}

// NewMockTransceiver creates a mock that completes every transmit
func NewMockTransceiver() *MockTransceiver {
	return &MockTransceiver{
		frames:   make(chan []byte, 64),
		sent:     make(chan SentPacket, 1024),
		closed:   make(chan struct{}),
		txStatus: TxStatusDone,
	}
}

// InjectFrame queues payload as a received packet with the given RSSI
func (m *MockTransceiver) InjectFrame(payload []byte, rssi int8) {
	entry := make([]byte, 0, len(payload)+appendedBytes)
	entry = append(entry, byte(len(payload)))
	entry = append(entry, payload...)
	entry = append(entry, byte(rssi), 0x80)
	m.frames <- entry
}

// InjectRaw queues a receive entry exactly as given
func (m *MockTransceiver) InjectRaw(entry []byte) {
	m.frames <- append([]byte(nil), entry...)
}

// Sent publishes every transmitted packet
func (m *MockTransceiver) Sent() <-chan SentPacket {
	return m.sent
}

// SentPackets returns a copy of all transmitted packets
func (m *MockTransceiver) SentPackets() []SentPacket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentPacket(nil), m.packets...)
}

// SetOpenError makes Open fail with err
func (m *MockTransceiver) SetOpenError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr = err
}

// SetTuneError makes Tune fail with err
func (m *MockTransceiver) SetTuneError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tuneErr = err
}

// SetTransmitResult sets the result of every following transmit
func (m *MockTransceiver) SetTransmitResult(status TxStatus, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txStatus = status
	m.txErr = err
}

// FailNextTransmits makes the next n transmits report TxStatusFailed
func (m *MockTransceiver) FailNextTransmits(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = n
}

// SetRegister sets the value returned by ReadRegister
func (m *MockTransceiver) SetRegister(value uint32, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regValue = value
	m.regErr = err
}

// LastRegister returns the address of the last register read
func (m *MockTransceiver) LastRegister() uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastReg
}

// Frequency returns the last tuned frequency
func (m *MockTransceiver) Frequency() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frequency
}

// Opens returns how many times Open succeeded
func (m *MockTransceiver) Opens() int64 { return m.opens.Load() }

// Tunes returns how many times Tune succeeded
func (m *MockTransceiver) Tunes() int64 { return m.tunes.Load() }

// Closes returns how many times Close was called
func (m *MockTransceiver) Closes() int64 { return m.closes.Load() }

// Overlaps returns how often receive and transmit were active together
func (m *MockTransceiver) Overlaps() int64 { return m.overlaps.Load() }

// Open implements Transceiver
func (m *MockTransceiver) Open(RadioSetup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return m.openErr
	}
	if m.isClosed {
		m.closed = make(chan struct{})
		m.isClosed = false
	}
	m.opens.Add(1)
	return nil
}

// Tune implements Transceiver
func (m *MockTransceiver) Tune(frequencyHz uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tuneErr != nil {
		return m.tuneErr
	}
	m.frequency = frequencyHz
	m.tunes.Add(1)
	return nil
}

// Receive implements Transceiver
func (m *MockTransceiver) Receive(entry []byte) (int, error) {
	m.mu.Lock()
	timeout := m.timeout
	m.mu.Unlock()

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	n, err := m.ReceiveContext(ctx, entry)
	if err != nil && ctx.Err() != nil {
		return 0, NewTimeoutError("receive", "mock")
	}
	return n, err
}

// ReceiveContext implements TransceiverContext
func (m *MockTransceiver) ReceiveContext(ctx context.Context, entry []byte) (int, error) {
	m.receiving.Store(true)
	defer m.receiving.Store(false)
	if m.sending.Load() {
		m.overlaps.Add(1)
	}

	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-closed:
		return 0, ErrClosed
	case f := <-m.frames:
		if len(f) > len(entry) {
			return 0, NewDataTooLargeError("receive", "mock")
		}
		return copy(entry, f), nil
	}
}

// Transmit implements Transceiver
func (m *MockTransceiver) Transmit(pkt []byte, powerCode uint16) (TxStatus, error) {
	return m.TransmitContext(context.Background(), pkt, powerCode)
}

// TransmitContext implements TransceiverContext
func (m *MockTransceiver) TransmitContext(ctx context.Context, pkt []byte, powerCode uint16) (TxStatus, error) {
	m.sending.Store(true)
	defer m.sending.Store(false)
	if m.receiving.Load() {
		m.overlaps.Add(1)
	}
	if err := ctx.Err(); err != nil {
		return TxStatusUnknown, err
	}

	p := SentPacket{
		At:        time.Now(),
		Data:      append([]byte(nil), pkt...),
		PowerCode: powerCode,
	}

	m.mu.Lock()
	if m.isClosed {
		m.mu.Unlock()
		return TxStatusUnknown, ErrClosed
	}
	m.packets = append(m.packets, p)
	status, err := m.txStatus, m.txErr
	if m.failNext > 0 {
		m.failNext--
		status, err = TxStatusFailed, nil
	}
	m.mu.Unlock()

	select {
	case m.sent <- p:
	default:
	}
	return status, err
}

// ReadRegister implements Transceiver
func (m *MockTransceiver) ReadRegister(addr uint16) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastReg = addr
	if m.regErr != nil {
		return 0, m.regErr
	}
	return m.regValue, nil
}

// SetTimeout implements Transceiver
func (m *MockTransceiver) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return nil
}

// Close unblocks pending receives and marks the mock closed until the next Open
func (m *MockTransceiver) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes.Add(1)
	if !m.isClosed {
		m.isClosed = true
		close(m.closed)
	}
	return nil
}

// Type returns TransceiverMock
func (*MockTransceiver) Type() TransceiverType {
	return TransceiverMock
}

var _ TransceiverContext = (*MockTransceiver)(nil)
