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

// Package sim provides an in-memory half-duplex radio.
//
// The simulated radio can either listen or transmit, never both. Frames
// "on the air" are injected with Inject and kept in a small ring buffer;
// when the ring is full the oldest frame is lost, as it would be on a radio
// whose FIFO overflowed. Transmissions are recorded and published on Sent.
package sim

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	rflink "github.com/ZaparooProject/go-rflink"
)

// DefaultRingSize is the number of frames the simulated FIFO holds
const DefaultRingSize = 8

// statusCRCOK is the status byte the radio appends to a good packet
const statusCRCOK = 0x80

const (
	stateIdle int32 = iota
	stateReceiving
	stateTransmitting
)

// Transmission is one packet the simulated radio sent
type Transmission struct {
	At        time.Time
	Data      []byte
	PowerCode uint16
}

// Radio implements rflink.TransceiverContext in memory
type Radio struct {
	closed    chan struct{}
	avail     chan struct{}
	sent      chan Transmission
	ring      [][]byte
	log       []Transmission
	setup     rflink.RadioSetup
	timeout   time.Duration
	mu        sync.Mutex
	head      int
	count     int
	dropped   int
	failNext  int
	frequency uint32
	state     atomic.Int32
	lqi       uint8
	open      bool
}

// New returns a closed radio with a ring of size frames (DefaultRingSize if
// size < 1).
func New(size int) *Radio {
	if size < 1 {
		size = DefaultRingSize
	}
	closed := make(chan struct{})
	close(closed)
	return &Radio{
		closed: closed,
		avail:  make(chan struct{}, 1),
		sent:   make(chan Transmission, 256),
		ring:   make([][]byte, size),
	}
}

// Inject puts one frame on the air as if the peer had sent payload and the
// radio measured rssi.
func (r *Radio) Inject(payload []byte, rssi int8) {
	entry := make([]byte, 0, len(payload)+3)
	entry = append(entry, byte(len(payload)))
	entry = append(entry, payload...)
	entry = append(entry, byte(rssi), statusCRCOK)

	r.mu.Lock()
	tail := (r.head + r.count) % len(r.ring)
	if r.count == len(r.ring) {
		r.head = (r.head + 1) % len(r.ring)
		r.dropped++
	} else {
		r.count++
	}
	r.ring[tail] = entry
	r.mu.Unlock()

	select {
	case r.avail <- struct{}{}:
	default:
	}
}

// Pending returns how many injected frames have not been received
func (r *Radio) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Dropped returns how many frames were lost to a full ring
func (r *Radio) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Sent publishes every transmission. Slow readers lose transmissions from the
// channel but not from SentLog.
func (r *Radio) Sent() <-chan Transmission {
	return r.sent
}

// SentLog returns a copy of every transmission so far
func (r *Radio) SentLog() []Transmission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Transmission(nil), r.log...)
}

// SetLinkQuality sets the value the LQI register reports
func (r *Radio) SetLinkQuality(lqi uint8) {
	r.mu.Lock()
	r.lqi = lqi
	r.mu.Unlock()
}

// FailNextTransmit makes the next n transmissions report TxStatusFailed.
// Failed packets never reach the air.
func (r *Radio) FailNextTransmit(n int) {
	r.mu.Lock()
	r.failNext = n
	r.mu.Unlock()
}

// Setup returns the configuration of the last Open
func (r *Radio) Setup() rflink.RadioSetup {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setup
}

// Frequency returns the tuned frequency
func (r *Radio) Frequency() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frequency
}

// Open implements rflink.Transceiver
func (r *Radio) Open(setup rflink.RadioSetup) error {
	if setup.MaxPacketLength < 1 || setup.MaxPacketLength > 255 {
		return rflink.ErrInvalidParameter
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setup = setup
	r.frequency = setup.FrequencyHz
	if !r.open {
		r.closed = make(chan struct{})
		r.open = true
	}
	return nil
}

// Tune implements rflink.Transceiver
func (r *Radio) Tune(frequencyHz uint32) error {
	if frequencyHz == 0 {
		return rflink.ErrInvalidParameter
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return rflink.ErrNotOpen
	}
	r.frequency = frequencyHz
	return nil
}

// Receive implements rflink.Transceiver
func (r *Radio) Receive(entry []byte) (int, error) {
	r.mu.Lock()
	timeout := r.timeout
	r.mu.Unlock()

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	n, err := r.ReceiveContext(ctx, entry)
	if err != nil && ctx.Err() != nil {
		return 0, rflink.NewTimeoutError("receive", "sim")
	}
	return n, err
}

// ReceiveContext listens until a frame is on the air or ctx is done
func (r *Radio) ReceiveContext(ctx context.Context, entry []byte) (int, error) {
	if !r.state.CompareAndSwap(stateIdle, stateReceiving) {
		return 0, rflink.NewRadioError("receive", "sim", rflink.ErrBusy, rflink.ErrorTypeTransient)
	}
	defer r.state.Store(stateIdle)

	for {
		r.mu.Lock()
		if !r.open {
			r.mu.Unlock()
			return 0, rflink.ErrClosed
		}
		closed := r.closed
		if r.count > 0 {
			f := r.ring[r.head]
			r.ring[r.head] = nil
			r.head = (r.head + 1) % len(r.ring)
			r.count--
			r.mu.Unlock()
			if len(f) > len(entry) {
				return 0, rflink.NewDataTooLargeError("receive", "sim")
			}
			return copy(entry, f), nil
		}
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-closed:
			return 0, rflink.ErrClosed
		case <-r.avail:
		}
	}
}

// Transmit implements rflink.Transceiver
func (r *Radio) Transmit(pkt []byte, powerCode uint16) (rflink.TxStatus, error) {
	return r.TransmitContext(context.Background(), pkt, powerCode)
}

// TransmitContext puts pkt on the air
func (r *Radio) TransmitContext(ctx context.Context, pkt []byte, powerCode uint16) (rflink.TxStatus, error) {
	if err := ctx.Err(); err != nil {
		return rflink.TxStatusUnknown, err
	}
	if !r.state.CompareAndSwap(stateIdle, stateTransmitting) {
		return rflink.TxStatusUnknown, rflink.NewRadioError("transmit", "sim", rflink.ErrBusy, rflink.ErrorTypeTransient)
	}
	defer r.state.Store(stateIdle)

	r.mu.Lock()
	if !r.open {
		r.mu.Unlock()
		return rflink.TxStatusUnknown, rflink.ErrClosed
	}
	if len(pkt) > r.setup.MaxPacketLength {
		r.mu.Unlock()
		return rflink.TxStatusUnknown, rflink.NewDataTooLargeError("transmit", "sim")
	}
	if r.failNext > 0 {
		r.failNext--
		r.mu.Unlock()
		return rflink.TxStatusFailed, nil
	}
	tx := Transmission{
		At:        time.Now(),
		Data:      append([]byte(nil), pkt...),
		PowerCode: powerCode,
	}
	r.log = append(r.log, tx)
	r.mu.Unlock()

	select {
	case r.sent <- tx:
	default:
	}
	return rflink.TxStatusDone, nil
}

// ReadRegister implements rflink.Transceiver. Every address reads the link
// quality; the simulator has no other registers.
func (r *Radio) ReadRegister(uint16) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return 0, rflink.ErrNotOpen
	}
	return uint32(r.lqi), nil
}

// SetTimeout implements rflink.Transceiver
func (r *Radio) SetTimeout(timeout time.Duration) error {
	if timeout < 0 {
		return rflink.ErrInvalidParameter
	}
	r.mu.Lock()
	r.timeout = timeout
	r.mu.Unlock()
	return nil
}

// Close stops the radio. A pending receive returns ErrClosed.
func (r *Radio) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open {
		r.open = false
		close(r.closed)
	}
	return nil
}

// Type returns rflink.TransceiverSim
func (*Radio) Type() rflink.TransceiverType {
	return rflink.TransceiverSim
}

var _ rflink.TransceiverContext = (*Radio)(nil)
