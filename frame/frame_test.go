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

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeOutbound_FieldsAtOffsets(t *testing.T) {
	t.Parallel()

	fields := OutboundFields{
		Address:     0x01,
		Control:     0x04,
		DeviceID:    'd',
		RSSIEcho:    40,
		LinkQuality: 0x7F,
	}
	want := []byte{fields.Address, fields.Control, fields.DeviceID, fields.RSSIEcho, fields.LinkQuality}

	for length := MinLength; length <= MaxLength; length++ {
		encoded := EncodeOutbound(fields, length)
		require.Len(t, encoded, length)

		header := min(length, OutboundHeaderSize)
		assert.Equal(t, want[:header], encoded[:header], "length %d", length)

		for i := OutboundHeaderSize; i < length; i++ {
			assert.Equal(t, byte(FillerByte), encoded[i], "filler at offset %d, length %d", i, length)
		}
	}
}

func TestEncodeOutbound_LengthClamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		requested int
		wantLen   int
	}{
		{name: "zero yields minimum frame", requested: 0, wantLen: MinLength},
		{name: "negative yields minimum frame", requested: -7, wantLen: MinLength},
		{name: "one byte", requested: 1, wantLen: 1},
		{name: "header only", requested: OutboundHeaderSize, wantLen: OutboundHeaderSize},
		{name: "maximum", requested: MaxLength, wantLen: MaxLength},
		{name: "one over maximum", requested: MaxLength + 1, wantLen: MaxLength},
		{name: "far over maximum", requested: 255, wantLen: MaxLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			encoded := EncodeOutbound(OutboundFields{Address: 0x01}, tt.requested)
			assert.Len(t, encoded, tt.wantLen)
			assert.Equal(t, byte(0x01), encoded[0])
		})
	}
}

func TestPowerLevelFromCode_Exhaustive(t *testing.T) {
	t.Parallel()

	for v := 0; v <= 0xFF; v++ {
		in, err := DecodeInbound([]byte{0x01, 0x02, byte(v), 10, 0xD8})
		require.NoError(t, err)

		if v == 0xC3 {
			assert.Equal(t, PowerHigh, in.Power(), "code %02X", v)
		} else {
			assert.Equal(t, PowerDefault, in.Power(), "code %02X", v)
		}
	}
}

func TestDecodeInbound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		buf     []byte
		want    Inbound
		wantErr bool
	}{
		{
			name:    "nil buffer",
			buf:     nil,
			wantErr: true,
		},
		{
			name:    "header without RSSI",
			buf:     []byte{0x01, 0x02, 0xC3, 10},
			wantErr: true,
		},
		{
			name: "minimum frame",
			buf:  []byte{0x01, 0x02, 0xC3, 10, 0xD8},
			want: Inbound{Address: 0x01, Control: 0x02, PowerCode: 0xC3, RequestedLength: 10, RSSI: -40},
		},
		{
			name: "extra payload before RSSI",
			buf:  []byte{0x07, 0x08, 0x00, 30, 0xAA, 0xBB, 0xCC, 0x9C},
			want: Inbound{Address: 0x07, Control: 0x08, PowerCode: 0x00, RequestedLength: 30, RSSI: -100},
		},
		{
			name: "positive RSSI",
			buf:  []byte{0x01, 0x00, 0x00, 0, 0x05},
			want: Inbound{Address: 0x01, RSSI: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := DecodeInbound(tt.buf)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrShortFrame)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeInbound_DecodesBack(t *testing.T) {
	t.Parallel()

	in := Inbound{Address: 0x01, Control: 0x02, PowerCode: 0xC3, RequestedLength: 10, RSSI: -40}
	got, err := DecodeInbound(EncodeInbound(in))
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestEchoRSSI(t *testing.T) {
	t.Parallel()

	assert.Equal(t, byte(40), EchoRSSI(-40))
	assert.Equal(t, byte(0), EchoRSSI(0))
	assert.Equal(t, byte(0xF6), EchoRSSI(10))
	assert.Equal(t, byte(127), EchoRSSI(-127))
	assert.Equal(t, byte(0x80), EchoRSSI(-128))
}

func TestOutbound_MutateInPlace(t *testing.T) {
	t.Parallel()

	fields := OutboundFields{Address: 0x01, Control: 0x04, DeviceID: 'd'}
	out, err := NewOutbound(fields, MaxLength)
	require.NoError(t, err)

	assert.Equal(t, MaxLength, out.Len())
	assert.Equal(t, MaxLength, out.Cap())
	assert.Equal(t, fields, out.Fields())

	out.SetRSSIEcho(-40)
	out.SetLinkQuality(0x33)
	assert.Equal(t, 10, out.SetLength(10))

	got := out.Bytes()
	require.Len(t, got, 10)
	assert.Equal(t, []byte{0x01, 0x04, 'd', 40, 0x33}, got[:OutboundHeaderSize])
	assert.Equal(t, bytes.Repeat([]byte{FillerByte}, 5), got[OutboundHeaderSize:])

	// Growing again exposes the untouched filler, never more than the capacity
	assert.Equal(t, MaxLength, out.SetLength(200))
	assert.Len(t, out.Bytes(), MaxLength)
	assert.Equal(t, MinLength, out.SetLength(0))
	assert.Equal(t, []byte{0x01}, out.Bytes())
}

func TestNewOutbound_InvalidCapacity(t *testing.T) {
	t.Parallel()

	for _, n := range []int{-1, 0, 1, OutboundHeaderSize - 1, LengthLimit + 1} {
		_, err := NewOutbound(OutboundFields{}, n)
		require.ErrorIs(t, err, ErrInvalidLength, "capacity %d", n)
	}

	_, err := NewOutbound(OutboundFields{}, LengthLimit)
	require.NoError(t, err)
}
