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

package spi

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/spi/spireg"

	"github.com/ZaparooProject/go-rflink/detection"
)

type probeResult struct {
	err     error
	version byte
	ok      bool
}

func stubBuses(t *testing.T, results map[string]probeResult) {
	t.Helper()
	savedSupported, savedInit, savedList, savedProbe := supported, hostInit, listBuses, probeBus
	supported = true
	hostInit = func() error { return nil }
	listBuses = func() []*spireg.Ref {
		return []*spireg.Ref{{Name: "SPI0.0", Number: 0}, {Name: "SPI1.0", Number: 1}}
	}
	probeBus = func(ref *spireg.Ref) (byte, bool, error) {
		r := results[ref.Name]
		return r.version, r.ok, r.err
	}
	t.Cleanup(func() {
		supported, hostInit, listBuses, probeBus = savedSupported, savedInit, savedList, savedProbe
	})
}

//nolint:paralleltest // swaps package hooks
func TestDetectPassiveListsBuses(t *testing.T) {
	stubBuses(t, nil)

	opts := detection.DefaultOptions()
	devices, err := New().Detect(context.Background(), &opts)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, detection.Low, devices[0].Confidence)
	assert.Equal(t, "1", devices[1].Metadata["bus"])
}

//nolint:paralleltest // swaps package hooks
func TestDetectSafeKeepsRadios(t *testing.T) {
	stubBuses(t, map[string]probeResult{
		"SPI0.0": {version: 0x14, ok: true},
		"SPI1.0": {version: 0x99},
	})

	opts := detection.DefaultOptions()
	opts.Mode = detection.Safe
	devices, err := New().Detect(context.Background(), &opts)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, detection.High, devices[0].Confidence)
	assert.Equal(t, "0x14", devices[0].Metadata["version"])
}

//nolint:paralleltest // swaps package hooks
func TestDetectSafeProbeError(t *testing.T) {
	stubBuses(t, map[string]probeResult{
		"SPI0.0": {err: errors.New("permission denied")},
		"SPI1.0": {err: errors.New("permission denied")},
	})

	opts := detection.DefaultOptions()
	opts.Mode = detection.Safe
	opts.IgnorePaths = []string{"SPI1.0"}
	devices, err := New().Detect(context.Background(), &opts)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, detection.Low, devices[0].Confidence)
	assert.Equal(t, "permission denied", devices[0].Metadata["probe"])
}

//nolint:paralleltest // swaps package hooks
func TestDetectUnsupported(t *testing.T) {
	stubBuses(t, nil)
	supported = false

	opts := detection.DefaultOptions()
	_, err := New().Detect(context.Background(), &opts)
	assert.ErrorIs(t, err, detection.ErrUnsupportedPlatform)
}
