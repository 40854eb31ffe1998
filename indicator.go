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

// LED identifies a status light on the board
type LED uint8

const (
	// LEDReceive toggles after each decoded frame
	LEDReceive LED = iota
	// LEDTransmit toggles after each transmit attempt
	LEDTransmit
)

func (l LED) String() string {
	switch l {
	case LEDReceive:
		return "rx"
	case LEDTransmit:
		return "tx"
	default:
		return "unknown"
	}
}

// Indicator drives the board status lights. Init runs once before the link
// starts; a failure there is fatal.
type Indicator interface {
	Init() error
	Toggle(led LED)
}

type nopIndicator struct{}

func (nopIndicator) Init() error { return nil }

func (nopIndicator) Toggle(LED) {}
