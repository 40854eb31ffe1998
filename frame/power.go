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

// PowerLevel is one of the two discrete transmit power levels.
type PowerLevel uint8

const (
	// PowerDefault is selected for every code other than HighPowerSentinel
	PowerDefault PowerLevel = iota
	// PowerHigh is selected only by HighPowerSentinel
	PowerHigh
)

// String returns a human-readable name for the level
func (p PowerLevel) String() string {
	switch p {
	case PowerHigh:
		return "high"
	case PowerDefault:
		return "default"
	default:
		return "unknown"
	}
}

// PowerLevelFromCode maps a requested power code to a level.
// Exactly one code selects PowerHigh; anything else, garbled data included,
// falls back to PowerDefault.
func PowerLevelFromCode(code byte) PowerLevel {
	if code == HighPowerSentinel {
		return PowerHigh
	}
	return PowerDefault
}
