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

// Package indicator provides status LED implementations of rflink.Indicator
package indicator

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	rflink "github.com/ZaparooProject/go-rflink"
)

// Nop is an indicator without hardware
type Nop struct{}

// Init implements rflink.Indicator
func (Nop) Init() error { return nil }

// Toggle implements rflink.Indicator
func (Nop) Toggle(rflink.LED) {}

// GPIO drives one output pin per LED. A LED without a pin is skipped.
type GPIO struct {
	pins   map[rflink.LED]gpio.PinOut
	names  map[rflink.LED]string
	levels map[rflink.LED]gpio.Level
	mu     sync.Mutex
}

// NewGPIO returns an indicator for the named pins ("" leaves a LED unwired).
// Pins are looked up in Init.
func NewGPIO(rxPin, txPin string) *GPIO {
	names := map[rflink.LED]string{}
	if rxPin != "" {
		names[rflink.LEDReceive] = rxPin
	}
	if txPin != "" {
		names[rflink.LEDTransmit] = txPin
	}
	return &GPIO{names: names}
}

// NewGPIOWithPins returns an indicator over pins that are already resolved
func NewGPIOWithPins(pins map[rflink.LED]gpio.PinOut) *GPIO {
	return &GPIO{pins: pins}
}

// Init resolves the pins and drives every LED low
func (g *GPIO) Init() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pins == nil {
		if _, err := host.Init(); err != nil {
			return fmt.Errorf("failed to initialize periph host: %w", err)
		}
		g.pins = make(map[rflink.LED]gpio.PinOut, len(g.names))
		for led, name := range g.names {
			p := gpioreg.ByName(name)
			if p == nil {
				return fmt.Errorf("%s LED: pin %q not found", led, name)
			}
			g.pins[led] = p
		}
	}

	g.levels = make(map[rflink.LED]gpio.Level, len(g.pins))
	for led, p := range g.pins {
		if err := p.Out(gpio.Low); err != nil {
			return fmt.Errorf("%s LED: %w", led, err)
		}
		g.levels[led] = gpio.Low
	}
	return nil
}

// Toggle flips the LED. Pin errors are ignored; a stuck LED must never
// stall the link.
func (g *GPIO) Toggle(led rflink.LED) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.pins[led]
	if !ok || g.levels == nil {
		return
	}
	level := !g.levels[led]
	if err := p.Out(level); err != nil {
		rflink.Debugf("%s LED: %v", led, err)
		return
	}
	g.levels[led] = level
}

var (
	_ rflink.Indicator = Nop{}
	_ rflink.Indicator = (*GPIO)(nil)
)
