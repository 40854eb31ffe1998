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

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	rflink "github.com/ZaparooProject/go-rflink"
	"github.com/ZaparooProject/go-rflink/detection"
	_ "github.com/ZaparooProject/go-rflink/detection/spi"
	_ "github.com/ZaparooProject/go-rflink/detection/uart"
	"github.com/ZaparooProject/go-rflink/transport/sim"
	"github.com/ZaparooProject/go-rflink/transport/spi"
	"github.com/ZaparooProject/go-rflink/transport/uart"
)

const (
	transportSim  = "sim"
	transportUART = "uart"
	transportSPI  = "spi"
)

// radioFlags select and address the transceiver
type radioFlags struct {
	transport string
	device    string
	spiBus    string
	gdo0      string
}

// newTransceiver opens the transceiver the flags name. With no transport
// and no device the first detected radio is used. The simulator is returned
// separately so the caller can attach a peer to it.
func newTransceiver(ctx context.Context, f radioFlags, cfg *rflink.Config) (rflink.Transceiver, *sim.Radio, error) {
	switch strings.ToLower(f.transport) {
	case transportSim:
		r := sim.New(0)
		return r, r, nil
	case transportUART:
		if f.device == "" {
			dev, err := detectFirst(ctx, transportUART)
			if err != nil {
				return nil, nil, err
			}
			f.device = dev.Path
		}
		t, err := uart.New(f.device)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create UART transport: %w", err)
		}
		return t, nil, nil
	case transportSPI:
		bus := f.spiBus
		if bus == "" {
			bus = f.device
		}
		if f.gdo0 == "" {
			return nil, nil, errors.New("spi transport needs --gdo0")
		}
		t, err := spi.New(bus, f.gdo0)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create SPI transport: %w", err)
		}
		cfg.LQIRegister = spi.LQIRegister
		return t, nil, nil
	case "":
		if f.device != "" {
			return newTransceiver(ctx, radioFlags{transport: guessTransport(f.device), device: f.device,
				spiBus: f.spiBus, gdo0: f.gdo0}, cfg)
		}
		dev, err := detectFirst(ctx, "")
		if err != nil {
			return nil, nil, err
		}
		return newTransceiver(ctx, radioFlags{transport: dev.Transport, device: dev.Path,
			spiBus: dev.Path, gdo0: f.gdo0}, cfg)
	default:
		return nil, nil, fmt.Errorf("unsupported transport type: %s", f.transport)
	}
}

// guessTransport picks the transport from a device path
func guessTransport(path string) string {
	if strings.Contains(strings.ToLower(path), "spi") {
		return transportSPI
	}
	return transportUART
}

// detectFirst returns the best probed device, optionally of one transport
func detectFirst(ctx context.Context, transport string) (detection.DeviceInfo, error) {
	opts := detection.DefaultOptions()
	opts.Mode = detection.Safe
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	devices, err := detection.DetectAllContext(ctx, &opts)
	if err != nil {
		return detection.DeviceInfo{}, err
	}
	for _, d := range devices {
		if d.Confidence == detection.High && (transport == "" || d.Transport == transport) {
			return d, nil
		}
	}
	return detection.DeviceInfo{}, detection.ErrNoDevicesFound
}
