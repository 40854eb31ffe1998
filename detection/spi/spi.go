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

// Package spi registers a detector for CC1101 radios on SPI buses.
// Import it for its side effect.
package spi

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/ZaparooProject/go-rflink/detection"
	cc1101 "github.com/ZaparooProject/go-rflink/transport/spi"
)

const probeClock = physic.MegaHertz

// Hooks replaced in tests
var (
	supported = runtime.GOOS == "linux"
	hostInit  = func() error {
		_, err := host.Init()
		return err
	}
	listBuses = spireg.All
	probeBus  = probe
)

type detector struct{}

// New returns the SPI bus detector
func New() detection.Detector {
	return &detector{}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns "spi"
func (*detector) Transport() string {
	return "spi"
}

// Detect lists SPI buses. In Passive mode every bus rates Low since nothing
// can be known without talking to it; in Safe mode the VERSION register is
// read and a CC1101 rates High. Buses that answer with another chip are
// dropped.
func (*detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	if !supported {
		return nil, detection.ErrUnsupportedPlatform
	}
	if err := hostInit(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	var devices []detection.DeviceInfo
	for _, ref := range listBuses() {
		if err := ctx.Err(); err != nil {
			return devices, detection.ErrDetectionTimeout
		}
		if detection.IsPathIgnored(ref.Name, opts.IgnorePaths) {
			continue
		}

		dev := detection.DeviceInfo{
			Transport:  "spi",
			Path:       ref.Name,
			Name:       "SPI bus " + ref.Name,
			Confidence: detection.Low,
			Metadata:   map[string]string{"bus": strconv.Itoa(ref.Number)},
		}

		if opts.Mode == detection.Safe {
			version, ok, err := probeBus(ref)
			if err != nil {
				dev.Metadata["probe"] = err.Error()
			} else {
				if !ok {
					continue
				}
				dev.Name = "CC1101 on " + ref.Name
				dev.Confidence = detection.High
				dev.Metadata["version"] = fmt.Sprintf("0x%02X", version)
			}
		}
		devices = append(devices, dev)
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

func probe(ref *spireg.Ref) (byte, bool, error) {
	port, err := ref.Open()
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = port.Close() }()

	c, err := port.Connect(probeClock, spi.Mode0, 8)
	if err != nil {
		return 0, false, err
	}
	return cc1101.ChipVersion(c)
}
