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

package frame

import "fmt"

// Inbound holds the decoded request fields of a received frame.
type Inbound struct {
	Address         byte
	Control         byte
	PowerCode       byte
	RequestedLength byte
	RSSI            int8
}

// Power returns the transmit power level requested by the frame
func (in Inbound) Power() PowerLevel {
	return PowerLevelFromCode(in.PowerCode)
}

// String returns a compact description used in logs
func (in Inbound) String() string {
	return fmt.Sprintf("addr=%02X ctrl=%02X power=%02X(%s) len=%d rssi=%d",
		in.Address, in.Control, in.PowerCode, in.Power(), in.RequestedLength, in.RSSI)
}

// DecodeInbound reads the request fields from buf.
//
// buf is the received payload with the RSSI byte appended, so the RSSI is
// always the last byte. Payload bytes between the header and the RSSI are
// ignored. No validation is done beyond the length check.
func DecodeInbound(buf []byte) (Inbound, error) {
	if len(buf) < MinInboundSize {
		return Inbound{}, fmt.Errorf("%w: got %d bytes, need %d", ErrShortFrame, len(buf), MinInboundSize)
	}

	return Inbound{
		Address:         buf[InboundAddressIndex],
		Control:         buf[InboundControlIndex],
		PowerCode:       buf[InboundPowerIndex],
		RequestedLength: buf[InboundLengthIndex],
		RSSI:            int8(buf[len(buf)-RSSISize]),
	}, nil
}

// EncodeInbound builds a request frame as a peer would send it, with the
// RSSI byte appended the way the radio delivers it. Used by simulators.
func EncodeInbound(in Inbound) []byte {
	return []byte{
		in.Address,
		in.Control,
		in.PowerCode,
		in.RequestedLength,
		byte(in.RSSI),
	}
}
