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

// Package uart registers a detector for radio bridges on serial ports.
// Import it for its side effect:
//
//	import _ "github.com/ZaparooProject/go-rflink/detection/uart"
package uart

import (
	"context"
	"strings"
	"time"

	"go.bug.st/serial/enumerator"

	"github.com/ZaparooProject/go-rflink/detection"
	"github.com/ZaparooProject/go-rflink/transport/uart"
)

const probeTimeout = 500 * time.Millisecond

// listPorts and probePort are replaced in tests
var (
	listPorts = enumerator.GetDetailedPortsList
	probePort = probe
)

// namePatterns are port names that usually belong to USB serial bridges
var namePatterns = []string{
	"ttyacm",
	"ttyusb",
	"usbmodem",
	"usbserial",
	"slab_usbtouart",
}

type detector struct{}

// New returns the serial port detector
func New() detection.Detector {
	return &detector{}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns "uart"
func (*detector) Transport() string {
	return "uart"
}

// Detect lists serial ports. Known bridge USB IDs rate Medium, plausible
// names Low; in Safe mode every candidate is probed and a bridge that
// answers rates High.
func (*detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, err
	}

	var devices []detection.DeviceInfo
	for _, p := range ports {
		if err := ctx.Err(); err != nil {
			return devices, detection.ErrDetectionTimeout
		}

		dev, ok := candidate(p)
		if !ok || detection.IsPathIgnored(dev.Path, opts.IgnorePaths) {
			continue
		}
		if vidpid := dev.Metadata["vidpid"]; vidpid != "" && detection.IsBlocked(vidpid, opts.Blocklist) {
			continue
		}

		if opts.Mode == detection.Safe {
			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			err := probePort(probeCtx, dev.Path)
			cancel()
			if err != nil {
				dev.Metadata["probe"] = err.Error()
			} else {
				dev.Confidence = detection.High
				dev.Metadata["probe"] = "ok"
			}
		}
		devices = append(devices, dev)
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

// candidate rates one enumerated port
func candidate(p *enumerator.PortDetails) (detection.DeviceInfo, bool) {
	dev := detection.DeviceInfo{
		Transport:  "uart",
		Path:       p.Name,
		Name:       p.Name,
		Confidence: detection.Low,
		Metadata:   map[string]string{},
	}

	if p.IsUSB {
		vidpid := detection.FormatVIDPID(p.VID, p.PID)
		dev.Metadata["vidpid"] = vidpid
		if p.SerialNumber != "" {
			dev.Metadata["serial"] = p.SerialNumber
		}
		if p.Product != "" {
			dev.Name = p.Product
		}
		if bridge, ok := detection.KnownBridges[vidpid]; ok {
			dev.Name = bridge
			dev.Confidence = detection.Medium
			return dev, true
		}
	}

	lower := strings.ToLower(p.Name)
	for _, pattern := range namePatterns {
		if strings.Contains(lower, pattern) {
			return dev, true
		}
	}
	return dev, false
}

func probe(ctx context.Context, path string) error {
	t, err := uart.New(path)
	if err != nil {
		return err
	}
	defer func() { _ = t.Close() }()
	return t.Probe(ctx)
}
