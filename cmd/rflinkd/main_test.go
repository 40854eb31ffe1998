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
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(ctx context.Context, args ...string) (string, error) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestDecodeCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(context.Background(), "decode", "01 02 C3 0A D8", "--lqi", "42")
	require.NoError(t, err)

	assert.Contains(t, out, "power:     0xC3 -> high (code 0x38D3)")
	assert.Contains(t, out, "length:    10 -> 10")
	assert.Contains(t, out, "rssi:      -40 dBm")
	assert.Contains(t, out, "reply:     01 04 64 28 2A 55 55 55 55 55")
}

func TestDecodeCommandClampsLength(t *testing.T) {
	t.Parallel()

	out, err := execute(context.Background(), "decode", "0x010200FF00")
	require.NoError(t, err)
	assert.Contains(t, out, "0x00 -> default (code 0x0041)")
	assert.Contains(t, out, "length:    255 -> 62")
}

func TestDecodeCommandErrors(t *testing.T) {
	t.Parallel()

	_, err := execute(context.Background(), "decode", "zz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid hex frame")

	_, err = execute(context.Background(), "decode", "0102")
	require.Error(t, err)

	_, err = execute(context.Background(), "decode")
	require.Error(t, err)
}

func TestParseHex(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"0102c30ad8", "01:02:C3:0A:D8", "0x01 02 c3 0a d8", "01-02-C3-0A-D8"} {
		buf, err := parseHex(in)
		require.NoError(t, err, in)
		assert.Equal(t, []byte{0x01, 0x02, 0xC3, 0x0A, 0xD8}, buf, in)
	}
}

func TestGuessTransport(t *testing.T) {
	t.Parallel()

	assert.Equal(t, transportSPI, guessTransport("/dev/spidev0.0"))
	assert.Equal(t, transportSPI, guessTransport("SPI0.0"))
	assert.Equal(t, transportUART, guessTransport("/dev/ttyACM0"))
	assert.Equal(t, transportUART, guessTransport("COM3"))
}

func TestRunRejectsUnknownTransport(t *testing.T) {
	t.Parallel()

	_, err := execute(context.Background(), "run", "--transport", "carrier-pigeon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported transport type")
}

func TestRunSPINeedsGDO0(t *testing.T) {
	t.Parallel()

	_, err := execute(context.Background(), "run", "--transport", "spi", "--spi-bus", "SPI0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--gdo0")
}

func TestRunSimulatorUntilCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err := execute(ctx, "run", "--transport", "sim", "--peer-interval", "5ms")
	assert.NoError(t, err)
}

func TestFanoutHandler(t *testing.T) {
	t.Parallel()

	var text, js bytes.Buffer
	h := fanout{
		slog.NewTextHandler(&text, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&js, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}
	logger := slog.New(h).With("run_id", "abc")

	logger.Debug("only json")
	logger.Info("both", "cycles", 3)

	assert.NotContains(t, text.String(), "only json")
	assert.Contains(t, text.String(), "run_id=abc")

	lines := strings.Split(strings.TrimSpace(js.String()), "\n")
	require.Len(t, lines, 2)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "both", rec["msg"])
	assert.Equal(t, "abc", rec["run_id"])
	assert.InDelta(t, 3, rec["cycles"], 0)
}
