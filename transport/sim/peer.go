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

package sim

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/ZaparooProject/go-rflink/frame"
)

// PeerStats counts what a Peer saw
type PeerStats struct {
	Requests int
	Replies  int
	Missed   int
}

// Peer is the remote node. It sends one request, waits for the reply and
// then sends the next, cycling through power codes and lengths.
type Peer struct {
	radio    *Radio
	logger   *slog.Logger
	rng      *rand.Rand
	stats    PeerStats
	Interval time.Duration
	Timeout  time.Duration
	Address  byte
	Control  byte
	RSSI     int8
}

// NewPeer returns a peer talking to radio. seed makes the request sequence
// reproducible.
func NewPeer(radio *Radio, logger *slog.Logger, seed uint64) *Peer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Peer{
		radio:    radio,
		logger:   logger,
		rng:      rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)),
		Interval: 100 * time.Millisecond,
		Timeout:  time.Second,
		Address:  0x02,
		Control:  0x04,
		RSSI:     -60,
	}
}

// Request puts one request on the air
func (p *Peer) Request(powerCode, length byte, rssi int8) {
	p.radio.Inject(frame.EncodeInbound(frame.Inbound{
		Address:         p.Address,
		Control:         p.Control,
		PowerCode:       powerCode,
		RequestedLength: length,
		RSSI:            rssi,
	})[:frame.InboundHeaderSize], rssi)
	p.stats.Requests++
}

// Run sends requests until ctx is done and returns ctx.Err()
func (p *Peer) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		powerCode := byte(p.rng.IntN(256))
		if p.rng.IntN(2) == 0 {
			powerCode = frame.HighPowerSentinel
		}
		length := byte(frame.MinLength + p.rng.IntN(frame.LengthLimit))
		rssi := p.RSSI - int8(p.rng.IntN(20))

		p.Request(powerCode, length, rssi)
		if err := p.awaitReply(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Stats returns the counters. Not safe while Run is active.
func (p *Peer) Stats() PeerStats {
	return p.stats
}

func (p *Peer) awaitReply(ctx context.Context) error {
	timer := time.NewTimer(p.Timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		p.stats.Missed++
		p.logger.Warn("peer: no reply", "requests", p.stats.Requests)
	case tx := <-p.radio.Sent():
		p.stats.Replies++
		p.logger.Debug("peer: reply", "len", len(tx.Data), "power", tx.PowerCode)
	}
	return nil
}
