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
	"path/filepath"
	"strings"
)

// KnownBridges maps the USB IDs of supported radio bridges to a name.
// Keys are VID:PID in upper-case hex.
var KnownBridges = map[string]string{
	"0451:16A8": "TI CC2531 USB dongle",
	"0451:BEF3": "TI LaunchPad XDS110",
	"0451:16C8": "TI CC1111 USB dongle",
	"10C4:EA60": "Silicon Labs CP210x bridge",
	"0403:6015": "FTDI FT231X bridge",
}

// DefaultBlocklist returns USB devices that must never be opened during
// detection. Format: VID:PID in hex, case-insensitive.
func DefaultBlocklist() []string {
	return []string{
		"1A86:7523", // CH340 modems answer garbage to the bridge framing
		"2341:0043", // Arduino Uno resets when the port opens
	}
}

// IsBlocked reports whether vidpid is in blocklist
func IsBlocked(vidpid string, blocklist []string) bool {
	vidpid = NormalizeVIDPID(vidpid)
	if vidpid == "" {
		return false
	}
	for _, blocked := range blocklist {
		if NormalizeVIDPID(blocked) == vidpid {
			return true
		}
	}
	return false
}

// NormalizeVIDPID returns vid:pid as four-digit upper-case hex pairs, or ""
// when the input is not two hex numbers separated by a colon.
func NormalizeVIDPID(s string) string {
	vid, pid, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return ""
	}
	vid, pid = padHex(vid), padHex(pid)
	if vid == "" || pid == "" {
		return ""
	}
	return vid + ":" + pid
}

// FormatVIDPID joins the hex strings reported by a USB enumerator
func FormatVIDPID(vid, pid string) string {
	return NormalizeVIDPID(vid + ":" + pid)
}

func padHex(s string) string {
	s = strings.ToUpper(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x"))
	if s == "" || len(s) > 4 {
		return ""
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'A' || r > 'F') {
			return ""
		}
	}
	return strings.Repeat("0", 4-len(s)) + s
}

// IsPathIgnored reports whether devicePath matches one of ignorePaths after
// cleaning, ignoring case.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}
	device := normalizedPath(devicePath)
	for _, p := range ignorePaths {
		if p != "" && normalizedPath(p) == device {
			return true
		}
	}
	return false
}

func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
