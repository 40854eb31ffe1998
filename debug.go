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

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

var (
	debugEnabled atomic.Bool
	debugMu      sync.RWMutex
	debugLogger  = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
)

// SetDebugEnabled turns low-level transceiver tracing on or off
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// DebugEnabled reports whether tracing is on
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// SetDebugLogger replaces the logger tracing is written to
func SetDebugLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	debugMu.Lock()
	debugLogger = logger
	debugMu.Unlock()
}

// Debugf writes a trace line when debugging is enabled. Drivers in other
// packages use it so all tracing ends up in one place.
func Debugf(format string, args ...any) {
	if !debugEnabled.Load() {
		return
	}
	debugMu.RLock()
	logger := debugLogger
	debugMu.RUnlock()
	logger.Log(context.Background(), slog.LevelDebug, fmt.Sprintf(format, args...))
}

// Debugln writes its arguments as one trace line when debugging is enabled
func Debugln(args ...any) {
	if !debugEnabled.Load() {
		return
	}
	Debugf("%s", fmt.Sprint(args...))
}

func debugf(format string, args ...any) {
	Debugf(format, args...)
}
