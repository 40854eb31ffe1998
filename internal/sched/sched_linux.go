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

//go:build linux

package sched

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Lower raises the nice value of the calling thread by delta. The caller
// must hold runtime.LockOSThread; the thread keeps the new value for life.
func Lower(delta int) error {
	if delta <= 0 {
		return nil
	}
	cur, err := Nice()
	if err != nil {
		return err
	}
	if err := unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), lowered(cur, delta)); err != nil {
		return fmt.Errorf("setpriority: %w", err)
	}
	return nil
}

// Nice returns the nice value of the calling thread
func Nice() (int, error) {
	// the raw syscall reports 20 - nice
	prio, err := unix.Getpriority(unix.PRIO_PROCESS, unix.Gettid())
	if err != nil {
		return 0, fmt.Errorf("getpriority: %w", err)
	}
	return 20 - prio, nil
}
