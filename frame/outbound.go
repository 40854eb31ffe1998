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

// OutboundFields are the header values carried by a reply frame.
type OutboundFields struct {
	Address     byte
	Control     byte
	DeviceID    byte
	RSSIEcho    byte
	LinkQuality byte
}

// EchoRSSI returns the sign-inverted RSSI as stored in the reply.
// Negation wraps like a byte, so -128 echoes as 0x80.
func EchoRSSI(rssi int8) byte {
	return -byte(rssi)
}

// ClampLength bounds a requested length to [MinLength, maxLength].
func ClampLength(requested, maxLength int) int {
	if requested < MinLength {
		return MinLength
	}
	if requested > maxLength {
		return maxLength
	}
	return requested
}

// EncodeOutbound builds a reply of exactly length bytes, clamped to
// [MinLength, MaxLength]. Header fields beyond the clamped length are dropped.
func EncodeOutbound(fields OutboundFields, length int) []byte {
	buf := make([]byte, ClampLength(length, MaxLength))
	writeOutbound(buf, fields)
	return buf
}

func writeOutbound(buf []byte, fields OutboundFields) {
	header := [OutboundHeaderSize]byte{
		OutboundAddressIndex:  fields.Address,
		OutboundControlIndex:  fields.Control,
		OutboundDeviceIDIndex: fields.DeviceID,
		OutboundRSSIIndex:     fields.RSSIEcho,
		OutboundLQIIndex:      fields.LinkQuality,
	}
	n := copy(buf, header[:])
	for i := n; i < len(buf); i++ {
		buf[i] = FillerByte
	}
}

// Outbound is the single long-lived reply buffer. Its capacity is fixed at
// construction and SetLength only moves the visible length within it.
type Outbound struct {
	buf    []byte
	length int
}

// NewOutbound allocates a reply buffer of maxLength bytes with the constant
// fields written and the length set to maxLength. The buffer must be able to
// hold every header field even though shorter replies may be sent from it.
func NewOutbound(fields OutboundFields, maxLength int) (*Outbound, error) {
	if maxLength < OutboundHeaderSize || maxLength > LengthLimit {
		return nil, fmt.Errorf("%w: %d (valid range %d-%d)",
			ErrInvalidLength, maxLength, OutboundHeaderSize, LengthLimit)
	}
	o := &Outbound{
		buf:    make([]byte, maxLength),
		length: maxLength,
	}
	writeOutbound(o.buf, fields)
	return o, nil
}

// SetRSSIEcho stores the sign-inverted RSSI of the most recent inbound frame
func (o *Outbound) SetRSSIEcho(rssi int8) {
	o.buf[OutboundRSSIIndex] = EchoRSSI(rssi)
}

// SetLinkQuality stamps the link-quality metric read before transmission
func (o *Outbound) SetLinkQuality(lqi byte) {
	o.buf[OutboundLQIIndex] = lqi
}

// SetLength clamps n to the buffer capacity and returns the applied length
func (o *Outbound) SetLength(n int) int {
	o.length = ClampLength(n, len(o.buf))
	return o.length
}

// Len returns the current reply length
func (o *Outbound) Len() int {
	return o.length
}

// Cap returns the fixed maximum reply length
func (o *Outbound) Cap() int {
	return len(o.buf)
}

// Bytes returns the reply as it goes on air. The slice aliases the buffer and
// is only valid until the next mutation.
func (o *Outbound) Bytes() []byte {
	return o.buf[:o.length]
}

// Fields returns the header values currently held in the buffer
func (o *Outbound) Fields() OutboundFields {
	return OutboundFields{
		Address:     o.buf[OutboundAddressIndex],
		Control:     o.buf[OutboundControlIndex],
		DeviceID:    o.buf[OutboundDeviceIDIndex],
		RSSIEcho:    o.buf[OutboundRSSIIndex],
		LinkQuality: o.buf[OutboundLQIIndex],
	}
}
