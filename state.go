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

// TaskState is the position of a link task in its loop
type TaskState int32

const (
	// TaskIdle is the state before setup completes
	TaskIdle TaskState = iota
	// TaskListening means the receive task is waiting on the radio
	TaskListening
	// TaskFrameReady means a frame was decoded and the reply is being prepared
	TaskFrameReady
	// TaskAwaitSignal means the task is waiting for the outbound buffer
	TaskAwaitSignal
	// TaskSending means the transmit task is on the air
	TaskSending
	// TaskStopped means the task has exited
	TaskStopped
)

func (s TaskState) String() string {
	switch s {
	case TaskIdle:
		return "idle"
	case TaskListening:
		return "listening"
	case TaskFrameReady:
		return "frame-ready"
	case TaskAwaitSignal:
		return "await-signal"
	case TaskSending:
		return "sending"
	case TaskStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
