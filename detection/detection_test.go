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

package detection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	err       error
	transport string
	devices   []DeviceInfo
}

func (f *fakeDetector) Transport() string { return f.transport }

func (f *fakeDetector) Detect(context.Context, *Options) ([]DeviceInfo, error) {
	return f.devices, f.err
}

// Tests touching the registry are not parallel.
func withDetectors(t *testing.T, ds ...Detector) {
	t.Helper()
	registryMu.Lock()
	saved := registry
	registry = map[string]Detector{}
	registryMu.Unlock()
	for _, d := range ds {
		RegisterDetector(d)
	}
	t.Cleanup(func() {
		registryMu.Lock()
		registry = saved
		registryMu.Unlock()
	})
}

func TestIsPathIgnored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		devicePath  string
		ignorePaths []string
		expected    bool
	}{
		{name: "empty ignore list", devicePath: "/dev/ttyUSB0", ignorePaths: []string{}},
		{name: "empty device path", devicePath: "", ignorePaths: []string{"/dev/ttyUSB0"}},
		{name: "exact match", devicePath: "/dev/ttyACM0", ignorePaths: []string{"/dev/ttyACM0"}, expected: true},
		{name: "windows port", devicePath: "com4", ignorePaths: []string{"COM4"}, expected: true},
		{name: "case insensitive", devicePath: "/dev/ttyACM0", ignorePaths: []string{"/DEV/TTYACM0"}, expected: true},
		{name: "no match", devicePath: "/dev/ttyACM1", ignorePaths: []string{"/dev/ttyACM0"}},
		{
			name: "one of many", devicePath: "/dev/spidev0.0",
			ignorePaths: []string{"/dev/ttyACM0", "/dev/spidev0.0"}, expected: true,
		},
		{name: "relative components", devicePath: "/dev/../dev/ttyACM0", ignorePaths: []string{"/dev/ttyACM0"}, expected: true},
		{name: "blank entries", devicePath: "/dev/ttyACM0", ignorePaths: []string{"", "/dev/ttyACM0"}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsPathIgnored(tt.devicePath, tt.ignorePaths))
		})
	}
}

func TestNormalizeVIDPID(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"0451:bef3":     "0451:BEF3",
		" 451:BEF3 ":    "0451:BEF3",
		"0x0451:0x16a8": "0451:16A8",
		"0451":          "",
		"zzzz:0001":     "",
		"12345:0001":    "",
		":0001":         "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeVIDPID(in), in)
	}
	assert.Equal(t, "10C4:EA60", FormatVIDPID("10c4", "ea60"))
}

func TestIsBlocked(t *testing.T) {
	t.Parallel()

	assert.True(t, IsBlocked("1a86:7523", DefaultBlocklist()))
	assert.False(t, IsBlocked("0451:BEF3", DefaultBlocklist()))
	assert.False(t, IsBlocked("", DefaultBlocklist()))
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	assert.Equal(t, Passive, opts.Mode)
	assert.Nil(t, opts.IgnorePaths)
	assert.NotEmpty(t, opts.Blocklist)
}

//nolint:paralleltest // replaces the global registry
func TestDetectAllFiltersAndSorts(t *testing.T) {
	withDetectors(t,
		&fakeDetector{transport: "uart", devices: []DeviceInfo{
			{Transport: "uart", Path: "/dev/ttyUSB0", Confidence: Low},
			{Transport: "uart", Path: "/dev/ttyACM0", Confidence: High},
			{Transport: "uart", Path: "/dev/ttyUSB1", Confidence: Medium,
				Metadata: map[string]string{"vidpid": "1A86:7523"}},
		}},
		&fakeDetector{transport: "spi", devices: []DeviceInfo{
			{Transport: "spi", Path: "/dev/spidev0.0", Confidence: Medium},
		}},
	)

	opts := DefaultOptions()
	opts.IgnorePaths = []string{"/dev/ttyUSB0"}
	devices, err := DetectAll(&opts)
	require.NoError(t, err)

	var paths []string
	for _, d := range devices {
		paths = append(paths, d.Path)
	}
	assert.Equal(t, []string{"/dev/ttyACM0", "/dev/spidev0.0"}, paths)
}

//nolint:paralleltest // replaces the global registry
func TestDetectAllNothingFound(t *testing.T) {
	boom := errors.New("permission denied")
	withDetectors(t,
		&fakeDetector{transport: "spi", err: ErrUnsupportedPlatform},
		&fakeDetector{transport: "uart", err: boom},
	)

	_, err := DetectAll(nil)
	require.ErrorIs(t, err, ErrNoDevicesFound)
	assert.ErrorIs(t, err, boom)
}

//nolint:paralleltest // replaces the global registry
func TestDetectAllContextCancelled(t *testing.T) {
	withDetectors(t, &fakeDetector{transport: "uart"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := DetectAllContext(ctx, nil)
	assert.ErrorIs(t, err, ErrDetectionTimeout)
}

func TestModeAndConfidenceStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "passive", Passive.String())
	assert.Equal(t, "safe", Safe.String())
	assert.Equal(t, "high", High.String())
	assert.Equal(t, "confidence(9)", Confidence(9).String())
	assert.Equal(t, "uart:/dev/ttyACM0", DeviceInfo{Transport: "uart", Path: "/dev/ttyACM0"}.String())
}
