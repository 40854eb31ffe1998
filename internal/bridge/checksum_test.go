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

import "testing"

func TestCalculateChecksum(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data []byte
		want byte
	}{
		{name: "empty data", data: []byte{}, want: 0},
		{name: "single byte", data: []byte{0x42}, want: 0x42},
		{name: "overflow handling", data: []byte{0xFF, 0x01}, want: 0x00},
		{name: "tune command", data: []byte{0xD4, 0x02, 0x00, 0x1B, 0xBC, 0x33}, want: 0xE0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CalculateChecksum(tt.data); got != tt.want {
				t.Errorf("CalculateChecksum() = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestValidateChecksum(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		data     []byte
		wantNack bool
	}{
		{name: "valid checksum (zero sum)", data: []byte{0x10, 0xF0}, wantNack: false},
		{name: "invalid checksum", data: []byte{0x10, 0x20}, wantNack: true},
		{name: "empty data", data: []byte{}, wantNack: false},
		{name: "open reply with DCS", data: []byte{0xD5, 0x02, 0x00, 0x29}, wantNack: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ValidateChecksum(tt.data); got != tt.wantNack {
				t.Errorf("ValidateChecksum() = %v, want %v", got, tt.wantNack)
			}
		})
	}
}

func TestCalculateDataChecksum(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data []byte
		tfi  byte
		want byte
	}{
		{name: "close command", tfi: HostToRadio, data: []byte{CmdClose}, want: 0x25},
		{name: "empty data", tfi: HostToRadio, data: []byte{}, want: 0x2C},
		{name: "read register", tfi: HostToRadio, data: []byte{CmdReadRegister, 0x68, 0x52}, want: 0x6D},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CalculateDataChecksum(tt.tfi, tt.data); got != tt.want {
				t.Errorf("CalculateDataChecksum() = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestCalculateLengthChecksum(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		length byte
		want   byte
	}{
		{name: "length 2", length: 0x02, want: 0xFE},
		{name: "length 255", length: 0xFF, want: 0x01},
		{name: "length 0", length: 0x00, want: 0x00},
		{name: "length 16", length: 0x10, want: 0xF0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CalculateLengthChecksum(tt.length); got != tt.want {
				t.Errorf("CalculateLengthChecksum() = %#x, want %#x", got, tt.want)
			}
		})
	}
}
