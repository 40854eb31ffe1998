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

// Package frame provides the fixed-offset wire layout exchanged with the peer node.
//
// Inbound frames carry the peer's request; outbound frames carry this node's
// status reply. Every field sits at a fixed byte offset and the layout must be
// reproduced byte for byte to interoperate with existing peer hardware.
package frame

// Inbound field offsets
const (
	InboundAddressIndex = 0 // Peer identifier, informational only
	InboundControlIndex = 1 // LED/status toggle bitmask
	InboundPowerIndex   = 2 // Requested power code
	InboundLengthIndex  = 3 // Requested reply length

	// InboundHeaderSize is the number of payload bytes the decoder reads
	InboundHeaderSize = 4

	// RSSISize is the size of the RSSI byte appended after the payload
	RSSISize = 1

	// MinInboundSize is the smallest buffer DecodeInbound accepts (header + RSSI)
	MinInboundSize = InboundHeaderSize + RSSISize
)

// Outbound field offsets
const (
	OutboundAddressIndex  = 0
	OutboundControlIndex  = 1
	OutboundDeviceIDIndex = 2
	OutboundRSSIIndex     = 3
	OutboundLQIIndex      = 4

	// OutboundHeaderSize is the number of leading bytes that carry fields
	OutboundHeaderSize = 5
)

// Protocol constants
const (
	// HighPowerSentinel is the only power code that selects the high power level
	HighPowerSentinel = 0xC3

	// FillerByte pads the outbound frame after the header ('U')
	FillerByte = 0x55

	// MaxLength is the longest frame the radio accepts with the default setup
	MaxLength = 62

	// MinLength is the shortest outbound frame ever produced
	MinLength = 1

	// LengthLimit bounds any configured maximum (one length byte on air)
	LengthLimit = 255
)
