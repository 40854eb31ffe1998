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
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/go-rflink/frame"
)

// LinkMetrics is a snapshot of the link's operational counters
type LinkMetrics struct {
	Cycles              int64            // Completed replies
	FramesReceived      int64            // Packets handed up by the radio
	ShortFrames         int64            // Packets too short to decode
	ReceiveErrors       int64            // Driver receive failures
	ReceiveTimeouts     int64            // Listens that hit ReceiveTimeout
	TxFailuresIgnored   int64            // Transmit results that were not OK
	LastTransmitLatency time.Duration    // Duration of the last transmit
	LastReplyLength     int              // Length of the last reply
	LastRSSI            int8             // RSSI of the last decoded frame
	LastLinkQuality     byte             // LQI stamped on the last reply
	LastPower           frame.PowerLevel // Power level of the last reply
}

// CycleReport describes one completed request/reply exchange
type CycleReport struct {
	ReceivedAt  time.Time
	Err         error
	Reply       []byte
	Inbound     frame.Inbound
	Cycle       int64
	Latency     time.Duration
	Power       frame.PowerLevel // level the reply went out with
	Status      TxStatus
	PowerCode   uint16
	LinkQuality byte
}

// TxFailure is passed to the transmit failure hook
type TxFailure struct {
	Err    error
	Cycle  int64
	Status TxStatus
}

// linkCounters holds the atomic counters behind LinkMetrics
type linkCounters struct {
	cycles              atomic.Int64
	framesReceived      atomic.Int64
	shortFrames         atomic.Int64
	receiveErrors       atomic.Int64
	receiveTimeouts     atomic.Int64
	txFailuresIgnored   atomic.Int64
	lastTransmitLatency atomic.Int64 // in nanoseconds
	lastReplyLength     atomic.Int64
	lastRSSI            atomic.Int32
	lastLinkQuality     atomic.Uint32
	lastPower           atomic.Uint32
}

func (c *linkCounters) snapshot() LinkMetrics {
	return LinkMetrics{
		Cycles:              c.cycles.Load(),
		FramesReceived:      c.framesReceived.Load(),
		ShortFrames:         c.shortFrames.Load(),
		ReceiveErrors:       c.receiveErrors.Load(),
		ReceiveTimeouts:     c.receiveTimeouts.Load(),
		TxFailuresIgnored:   c.txFailuresIgnored.Load(),
		LastTransmitLatency: time.Duration(c.lastTransmitLatency.Load()),
		LastReplyLength:     int(c.lastReplyLength.Load()),
		LastRSSI:            int8(c.lastRSSI.Load()),
		LastLinkQuality:     byte(c.lastLinkQuality.Load()),
		LastPower:           frame.PowerLevel(c.lastPower.Load()),
	}
}
