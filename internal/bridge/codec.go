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

package bridge

import (
	"bytes"
	"fmt"
)

// BuildFrame encodes a host command
func BuildFrame(cmd byte, args []byte) ([]byte, error) {
	return buildFrame(HostToRadio, cmd, args)
}

// BuildReply encodes a bridge reply to cmd. Used by simulators and tests.
func BuildReply(cmd byte, payload []byte) ([]byte, error) {
	return buildFrame(RadioToHost, cmd+1, payload)
}

func buildFrame(tfi, cmd byte, args []byte) ([]byte, error) {
	dataLen := 2 + len(args)
	if dataLen > MaxDataLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, dataLen)
	}

	frm := make([]byte, 0, Overhead+dataLen)
	frm = append(frm, Preamble, StartCode1, StartCode2,
		byte(dataLen), CalculateLengthChecksum(byte(dataLen)),
		tfi, cmd)
	frm = append(frm, args...)

	sum := tfi + cmd + CalculateChecksum(args)
	return append(frm, ^sum+1, Postamble), nil
}

// ParseFrame decodes the first frame in buf. It returns the number of bytes
// consumed, which includes any noise before the start code and, on checksum
// errors, the damaged frame itself. ErrIncomplete means more input is needed
// and nothing should be consumed beyond n.
func ParseFrame(buf []byte) (frm Frame, n int, err error) {
	start := bytes.Index(buf, []byte{StartCode1, StartCode2})
	if start < 0 {
		// keep a trailing 0x00 that may begin the next start code
		if len(buf) > 0 && buf[len(buf)-1] == StartCode1 {
			return frm, len(buf) - 1, ErrIncomplete
		}
		return frm, len(buf), ErrIncomplete
	}

	off := start + 2
	if len(buf) < off+2 {
		return frm, start, ErrIncomplete
	}

	length, lcs := buf[off], buf[off+1]
	switch {
	case length == 0x00 && lcs == 0xFF:
		return Frame{Kind: KindAck}, skipPostamble(buf, off+2), nil
	case length == 0xFF && lcs == 0x00:
		return Frame{Kind: KindNack}, skipPostamble(buf, off+2), nil
	case length+lcs != 0:
		// drop the start code and resync on the next one
		return frm, off, ErrLengthChecksum
	case length < 1:
		return frm, off + 2, ErrLengthChecksum
	}

	end := off + 2 + int(length) + 1
	if len(buf) < end {
		return frm, start, ErrIncomplete
	}

	body := buf[off+2 : end]
	if ValidateChecksum(body) {
		return frm, skipPostamble(buf, end), ErrDataChecksum
	}

	frm = Frame{
		Kind: KindData,
		TFI:  body[0],
		Data: append([]byte(nil), body[1:len(body)-1]...),
	}
	return frm, skipPostamble(buf, end), nil
}

// ParseReply decodes the first frame in buf and checks it is a bridge reply
func ParseReply(buf []byte) (Frame, int, error) {
	frm, n, err := ParseFrame(buf)
	if err != nil || frm.Kind != KindData {
		return frm, n, err
	}
	if frm.TFI != RadioToHost {
		return frm, n, fmt.Errorf("%w: 0x%02X", ErrUnexpectedTFI, frm.TFI)
	}
	return frm, n, nil
}

func skipPostamble(buf []byte, i int) int {
	if i < len(buf) && buf[i] == Postamble {
		return i + 1
	}
	return i
}
