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

import "fmt"

// appendedBytes are the bytes a receive entry carries besides the payload:
// the length header, the RSSI and the status byte.
const appendedBytes = 3

// rxQueue is a fixed ring of receive entries carved out of one buffer. The
// driver fills the current entry; the session copies it out and recycles it.
type rxQueue struct {
	buf       []byte
	entrySize int
	entries   int
	current   int
}

func defineQueue(buf []byte, entries, entrySize int) (*rxQueue, error) {
	if entries < 1 || entrySize <= appendedBytes {
		return nil, fmt.Errorf("%w: %d entries of %d bytes", ErrQueueAllocation, entries, entrySize)
	}
	if len(buf) < entries*entrySize {
		return nil, fmt.Errorf("%w: %d entries of %d bytes do not fit in %d bytes",
			ErrQueueAllocation, entries, entrySize, len(buf))
	}
	return &rxQueue{
		buf:       buf[:entries*entrySize],
		entries:   entries,
		entrySize: entrySize,
	}, nil
}

// entry returns the entry the driver fills next
func (q *rxQueue) entry() []byte {
	off := q.current * q.entrySize
	return q.buf[off : off+q.entrySize]
}

// next marks the current entry free and advances
func (q *rxQueue) next() {
	q.entry()[0] = 0
	q.current = (q.current + 1) % q.entries
}
