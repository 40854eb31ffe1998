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

// Package sched adjusts the scheduling priority of link task threads.
//
// Go has no goroutine priorities. A task that needs one locks itself to its
// OS thread and changes that thread's nice value. Only lowering is supported,
// since raising priority needs privileges the daemon does not run with.
package sched

// MaxNice is the weakest nice value the kernel accepts
const MaxNice = 19

// lowered computes the nice value after lowering cur by delta
func lowered(cur, delta int) int {
	n := cur + delta
	if n > MaxNice {
		return MaxNice
	}
	return n
}
