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
	"fmt"
	"time"
)

// Transceiver defines the interface to the physical radio. It is implemented
// by the UART bridge, the SPI CC1101 driver and the in-memory simulator.
//
// Receive writes one data entry into entry using the layout
//
//	+--------+-----------+--------+--------+
//	| length |  payload  |  RSSI  | status |
//	+--------+-----------+--------+--------+
//	| 1 byte | 0-N bytes | 1 byte | 1 byte |
//	+--------+-----------+--------+--------+
//
// and returns the number of bytes written. The caller owns entry and reuses it
// for the next call, so a driver must not retain it.
type Transceiver interface {
	// Open acquires the radio and applies the setup
	Open(setup RadioSetup) error

	// Tune programs the frequency synthesizer
	Tune(frequencyHz uint32) error

	// Receive blocks until one packet is received or the timeout expires
	Receive(entry []byte) (int, error)

	// Transmit sends pkt at the given power encoding and blocks until done
	Transmit(pkt []byte, powerCode uint16) (TxStatus, error)

	// ReadRegister reads a radio register; ErrNotSupported if unavailable
	ReadRegister(addr uint16) (uint32, error)

	// SetTimeout sets the deadline applied to blocking operations (0 = none)
	SetTimeout(timeout time.Duration) error

	// Close releases the radio
	Close() error

	// Type returns the transceiver type
	Type() TransceiverType
}

// RadioSetup is the one-time configuration applied when the radio is opened
type RadioSetup struct {
	FrequencyHz     uint32
	PowerCode       uint16
	MaxPacketLength int
}

// TransceiverType represents the kind of transceiver backend
type TransceiverType string

const (
	// TransceiverUART represents a radio bridge on a serial port
	TransceiverUART TransceiverType = "uart"
	// TransceiverSPI represents a radio chip on an SPI bus
	TransceiverSPI TransceiverType = "spi"
	// TransceiverSim represents the in-memory simulator
	TransceiverSim TransceiverType = "sim"
	// TransceiverMock represents a mock transceiver for testing
	TransceiverMock TransceiverType = "mock"
)

// TxStatus is the completion status reported for a transmission
type TxStatus uint8

const (
	// TxStatusUnknown means the driver reported nothing usable
	TxStatusUnknown TxStatus = iota
	// TxStatusDone means the packet went out completely
	TxStatusDone
	// TxStatusAborted means the transmission was cut short
	TxStatusAborted
	// TxStatusFailed means the radio reported an error
	TxStatusFailed
)

// OK reports whether the transmission completed
func (s TxStatus) OK() bool {
	return s == TxStatusDone
}

func (s TxStatus) String() string {
	switch s {
	case TxStatusDone:
		return "done"
	case TxStatusAborted:
		return "aborted"
	case TxStatusFailed:
		return "failed"
	case TxStatusUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// TransceiverWithRetry wraps a Transceiver and retries the configuration
// operations (Open, Tune, ReadRegister) on retryable errors. Receive and
// Transmit pass straight through: a reply is never retransmitted.
type TransceiverWithRetry struct {
	transceiver Transceiver
	withContext TransceiverContext
	config      *RetryConfig
}

// NewTransceiverWithRetry creates a new transceiver wrapper with retry logic
func NewTransceiverWithRetry(transceiver Transceiver, config *RetryConfig) *TransceiverWithRetry {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &TransceiverWithRetry{
		transceiver: transceiver,
		withContext: AsTransceiverContext(transceiver),
		config:      config,
	}
}

// Open opens the radio, retrying transient failures
func (t *TransceiverWithRetry) Open(setup RadioSetup) error {
	return RetryWithConfig(context.Background(), t.config, func() error {
		return t.transceiver.Open(setup)
	})
}

// Tune programs the synthesizer, retrying transient failures
func (t *TransceiverWithRetry) Tune(frequencyHz uint32) error {
	return RetryWithConfig(context.Background(), t.config, func() error {
		return t.transceiver.Tune(frequencyHz)
	})
}

// Receive passes through to the underlying transceiver
func (t *TransceiverWithRetry) Receive(entry []byte) (int, error) {
	n, err := t.transceiver.Receive(entry)
	if err != nil {
		return n, fmt.Errorf("receive: %w", err)
	}
	return n, nil
}

// Transmit passes through to the underlying transceiver
func (t *TransceiverWithRetry) Transmit(pkt []byte, powerCode uint16) (TxStatus, error) {
	status, err := t.transceiver.Transmit(pkt, powerCode)
	if err != nil {
		return status, fmt.Errorf("transmit: %w", err)
	}
	return status, nil
}

// ReceiveContext passes through to the underlying transceiver
func (t *TransceiverWithRetry) ReceiveContext(ctx context.Context, entry []byte) (int, error) {
	n, err := t.withContext.ReceiveContext(ctx, entry)
	if err != nil {
		return n, fmt.Errorf("receive: %w", err)
	}
	return n, nil
}

// TransmitContext passes through to the underlying transceiver
func (t *TransceiverWithRetry) TransmitContext(ctx context.Context, pkt []byte, powerCode uint16) (TxStatus, error) {
	status, err := t.withContext.TransmitContext(ctx, pkt, powerCode)
	if err != nil {
		return status, fmt.Errorf("transmit: %w", err)
	}
	return status, nil
}

// ReadRegister reads a register, retrying transient failures
func (t *TransceiverWithRetry) ReadRegister(addr uint16) (uint32, error) {
	var value uint32
	err := RetryWithConfig(context.Background(), t.config, func() error {
		var err error
		value, err = t.transceiver.ReadRegister(addr)
		return err
	})
	return value, err
}

// SetTimeout sets the timeout on the underlying transceiver
func (t *TransceiverWithRetry) SetTimeout(timeout time.Duration) error {
	if err := t.transceiver.SetTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set timeout on underlying transceiver: %w", err)
	}
	return nil
}

// Close closes the underlying transceiver
func (t *TransceiverWithRetry) Close() error {
	if err := t.transceiver.Close(); err != nil {
		return fmt.Errorf("failed to close underlying transceiver: %w", err)
	}
	return nil
}

// Type returns the underlying transceiver type
func (t *TransceiverWithRetry) Type() TransceiverType {
	return t.transceiver.Type()
}

// SetRetryConfig updates the retry configuration
func (t *TransceiverWithRetry) SetRetryConfig(config *RetryConfig) {
	t.config = config
}

var _ Transceiver = (*TransceiverWithRetry)(nil)

var _ TransceiverContext = (*TransceiverWithRetry)(nil)
