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

// Package bridge implements the checksummed framing spoken by the radio
// bridge firmware over a serial line.
//
// Every frame is
//
//	00 00 FF LEN LCS TFI CMD ARGS... DCS 00
//
// where LEN counts TFI, CMD and ARGS, LCS makes LEN+LCS zero and DCS makes
// the sum of TFI..ARGS plus DCS zero. Host frames use TFI 0xD4, bridge
// replies use 0xD5 and answer CMD with CMD+1.
package bridge

import "errors"

// Frame direction
const (
	HostToRadio = 0xD4
	RadioToHost = 0xD5
)

// Frame markers
const (
	Preamble   = 0x00
	StartCode1 = 0x00
	StartCode2 = 0xFF
	Postamble  = 0x00
)

// Size limits
const (
	MaxDataLength = 255 // LEN is one byte
	Overhead      = 7   // preamble, start code, LEN, LCS, DCS, postamble
)

// Commands understood by the bridge firmware
const (
	CmdOpen         = 0x01 // freq u32, power u16, max length u8
	CmdTune         = 0x02 // freq u32
	CmdReceive      = 0x03 // timeout ms u32, 0 waits forever
	CmdTransmit     = 0x04 // power u16, packet
	CmdReadRegister = 0x05 // addr u16
	CmdAbort        = 0x06 // leave receive, return to idle
	CmdClose        = 0x07
)

// Result codes leading every reply payload
const (
	ResultOK          = 0x00
	ResultTimeout     = 0x01
	ResultUnsupported = 0x02
	ResultError       = 0x03
)

// ACK and NACK frames
var (
	AckFrame  = []byte{0x00, 0x00, 0xFF, 0x00, 0xFF, 0x00}
	NackFrame = []byte{0x00, 0x00, 0xFF, 0xFF, 0x00, 0x00}
)

// Parse errors
var (
	ErrIncomplete     = errors.New("incomplete frame")
	ErrLengthChecksum = errors.New("length checksum mismatch")
	ErrDataChecksum   = errors.New("data checksum mismatch")
	ErrUnexpectedTFI  = errors.New("unexpected frame identifier")
	ErrTooLarge       = errors.New("frame data too large")
)

// Kind tells data frames from flow control frames
type Kind int

const (
	KindData Kind = iota
	KindAck
	KindNack
)

// Frame is one parsed bridge frame
type Frame struct {
	// Data holds CMD and ARGS, without TFI
	Data []byte
	TFI  byte
	Kind Kind
}

// Command returns the command or reply code
func (f Frame) Command() byte {
	if len(f.Data) == 0 {
		return 0
	}
	return f.Data[0]
}

// Payload returns the bytes after the command code
func (f Frame) Payload() []byte {
	if len(f.Data) < 2 {
		return nil
	}
	return f.Data[1:]
}
