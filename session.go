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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ZaparooProject/go-rflink/frame"
)

// Handle identifies an open radio session. The zero Handle is never valid.
type Handle uint32

// RadioConfig is the transmit configuration applied to the next reply
type RadioConfig struct {
	Power         frame.PowerLevel
	PayloadLength int
}

// InboundFrame is one received packet copied out of the receive queue:
// the payload followed by the RSSI byte, plus the radio status byte.
type InboundFrame struct {
	data   [frame.LengthLimit + 1]byte
	n      int
	Status byte
}

// Bytes returns payload || RSSI
func (f *InboundFrame) Bytes() []byte {
	return f.data[:f.n]
}

// Decode parses the frame's fixed fields
func (f *InboundFrame) Decode() (frame.Inbound, error) {
	return frame.DecodeInbound(f.Bytes())
}

// Session is the shared radio session. Both link tasks open it; the first
// Open does the work and later calls return the same Handle. Every driver call
// is serialized by radioMu, so the radio is never asked to receive and
// transmit at once.
type Session struct {
	driver TransceiverContext
	config *Config
	logger *slog.Logger
	queue  *rxQueue

	mu         sync.Mutex
	handle     Handle
	lastHandle Handle
	tuned      bool
	radio      RadioConfig

	radioMu sync.Mutex

	opens atomic.Int64
	tunes atomic.Int64
}

// NewSession creates a session over driver. Nothing touches the radio until Open.
func NewSession(driver Transceiver, config *Config, logger *slog.Logger) (*Session, error) {
	if driver == nil {
		return nil, errors.New("transceiver cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		driver: AsTransceiverContext(driver),
		config: config,
		logger: logger,
		radio: RadioConfig{
			Power:         frame.PowerDefault,
			PayloadLength: config.MaxPayloadLength,
		},
	}, nil
}

// Open opens the radio and defines the receive queue. It is idempotent: once
// open, further calls return the same Handle without touching the driver.
// Failures are fatal.
func (s *Session) Open(ctx context.Context) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != 0 {
		return s.handle, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("open cancelled: %w", err)
	}

	queue, err := defineQueue(make([]byte, s.config.rxBufferSize()), s.config.RxQueueEntries, s.config.rxEntrySize())
	if err != nil {
		return 0, fatal("define receive queue", err)
	}

	setup := RadioSetup{
		FrequencyHz:     s.config.FrequencyHz,
		PowerCode:       s.config.PowerCode(s.radio.Power),
		MaxPacketLength: s.config.MaxPayloadLength,
	}
	s.radioMu.Lock()
	err = s.driver.Open(setup)
	s.radioMu.Unlock()
	if err != nil {
		return 0, fatal("open radio", err)
	}

	s.queue = queue
	s.lastHandle++
	s.handle = s.lastHandle
	s.tuned = false
	s.opens.Add(1)
	s.logger.Debug("radio session opened",
		"transceiver", s.driver.Type(),
		"handle", s.handle,
		"rx_entries", s.config.RxQueueEntries)
	return s.handle, nil
}

// SetFrequency programs the synthesizer. Only the first call after Open
// reaches the driver.
func (s *Session) SetFrequency(ctx context.Context, h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(h); err != nil {
		return err
	}
	if s.tuned {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("tune cancelled: %w", err)
	}

	s.radioMu.Lock()
	err := s.driver.Tune(s.config.FrequencyHz)
	s.radioMu.Unlock()
	if err != nil {
		return fmt.Errorf("tune to %d Hz: %w", s.config.FrequencyHz, err)
	}

	s.tuned = true
	s.tunes.Add(1)
	s.logger.Debug("radio tuned", "frequency_hz", s.config.FrequencyHz)
	return nil
}

// ReceiveOne blocks until one packet arrives, copies it out of the receive
// queue and recycles the entry.
func (s *Session) ReceiveOne(ctx context.Context, h Handle) (InboundFrame, error) {
	queue, err := s.check(h)
	if err != nil {
		return InboundFrame{}, err
	}

	rxCtx := ctx
	if s.config.ReceiveTimeout > 0 {
		var cancel context.CancelFunc
		rxCtx, cancel = context.WithTimeout(ctx, s.config.ReceiveTimeout)
		defer cancel()
	}

	s.radioMu.Lock()
	defer s.radioMu.Unlock()

	entry := queue.entry()
	defer queue.next()

	n, err := s.driver.ReceiveContext(rxCtx, entry)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return InboundFrame{}, NewTimeoutError("receive", "")
		}
		return InboundFrame{}, err
	}

	return copyEntry(entry[:n])
}

// copyEntry converts a len|payload|rssi|status entry into an InboundFrame
func copyEntry(entry []byte) (InboundFrame, error) {
	var f InboundFrame
	if len(entry) < appendedBytes {
		return f, fmt.Errorf("%w: entry of %d bytes", frame.ErrShortFrame, len(entry))
	}
	payloadLen := int(entry[0])
	if 1+payloadLen+2 > len(entry) {
		return f, fmt.Errorf("%w: entry claims %d payload bytes, holds %d",
			frame.ErrShortFrame, payloadLen, len(entry)-appendedBytes)
	}
	f.n = copy(f.data[:], entry[1:1+payloadLen+1])
	f.Status = entry[1+payloadLen+1]
	return f, nil
}

// TransmitOne sends pkt with the current power level. pkt is cut to the
// configured payload length.
func (s *Session) TransmitOne(ctx context.Context, h Handle, pkt []byte) (TxStatus, error) {
	_, status, err := s.transmit(ctx, h, pkt)
	return status, err
}

// transmit is TransmitOne that also returns the radio configuration the
// packet went out with
func (s *Session) transmit(ctx context.Context, h Handle, pkt []byte) (RadioConfig, TxStatus, error) {
	s.mu.Lock()
	if err := s.checkLocked(h); err != nil {
		s.mu.Unlock()
		return RadioConfig{}, TxStatusUnknown, err
	}
	radio := s.radio
	s.mu.Unlock()

	if len(pkt) > radio.PayloadLength {
		pkt = pkt[:radio.PayloadLength]
	}

	txCtx := ctx
	if s.config.TransmitTimeout > 0 {
		var cancel context.CancelFunc
		txCtx, cancel = context.WithTimeout(ctx, s.config.TransmitTimeout)
		defer cancel()
	}

	s.radioMu.Lock()
	defer s.radioMu.Unlock()

	status, err := s.driver.TransmitContext(txCtx, pkt, s.config.PowerCode(radio.Power))
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return radio, status, NewTimeoutError("transmit", "")
	}
	return radio, status, err
}

// ReadLinkQuality reads the link quality register. Drivers that cannot
// supply it yield 0.
func (s *Session) ReadLinkQuality(ctx context.Context, h Handle) (byte, error) {
	if _, err := s.check(h); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("read link quality cancelled: %w", err)
	}

	s.radioMu.Lock()
	value, err := s.driver.ReadRegister(s.config.LQIRegister)
	s.radioMu.Unlock()

	if errors.Is(err, ErrNotSupported) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read link quality register 0x%04X: %w", s.config.LQIRegister, err)
	}
	return byte(value), nil
}

// SetPowerLevel selects the power used by the next transmit
func (s *Session) SetPowerLevel(level frame.PowerLevel) {
	s.mu.Lock()
	s.radio.Power = level
	s.mu.Unlock()
}

// SetPayloadLength sets the length of the next transmit, clamped to
// [1, MaxPayloadLength]. It returns the length applied.
func (s *Session) SetPayloadLength(n int) int {
	n = frame.ClampLength(n, s.config.MaxPayloadLength)
	s.mu.Lock()
	s.radio.PayloadLength = n
	s.mu.Unlock()
	return n
}

// RadioConfig returns a snapshot of the transmit configuration
func (s *Session) RadioConfig() RadioConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.radio
}

// Config returns the session configuration
func (s *Session) Config() *Config {
	return s.config
}

// Opens returns how many times the driver was actually opened
func (s *Session) Opens() int64 {
	return s.opens.Load()
}

// Tunes returns how many times the driver was actually tuned
func (s *Session) Tunes() int64 {
	return s.tunes.Load()
}

// Close closes the driver. A later Open starts a new session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == 0 {
		return nil
	}
	s.handle = 0
	s.tuned = false
	s.queue = nil

	// Close is not serialized with radioMu: it must be able to unblock a
	// receive that is still waiting.
	if err := s.driver.Close(); err != nil {
		return fmt.Errorf("close radio: %w", err)
	}
	return nil
}

func (s *Session) check(h Handle) (*rxQueue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(h); err != nil {
		return nil, err
	}
	return s.queue, nil
}

func (s *Session) checkLocked(h Handle) error {
	if s.handle == 0 {
		return ErrNotOpen
	}
	if h != s.handle {
		return ErrInvalidHandle
	}
	return nil
}
