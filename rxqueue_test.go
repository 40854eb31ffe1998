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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefineQueue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		bufSize   int
		entries   int
		entrySize int
		wantErr   bool
	}{
		{name: "exact fit", bufSize: 130, entries: 2, entrySize: 65},
		{name: "spare room", bufSize: 200, entries: 2, entrySize: 65},
		{name: "too small", bufSize: 129, entries: 2, entrySize: 65, wantErr: true},
		{name: "no entries", bufSize: 130, entries: 0, entrySize: 65, wantErr: true},
		{name: "entry without payload room", bufSize: 30, entries: 10, entrySize: appendedBytes, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			q, err := defineQueue(make([]byte, tt.bufSize), tt.entries, tt.entrySize)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrQueueAllocation)
				assert.Nil(t, q)
				return
			}
			require.NoError(t, err)
			assert.Len(t, q.entry(), tt.entrySize)
		})
	}
}

func TestQueueRecyclesEntries(t *testing.T) {
	t.Parallel()

	q, err := defineQueue(make([]byte, 20), 2, 10)
	require.NoError(t, err)

	first := q.entry()
	first[0] = 5
	q.next()
	assert.Zero(t, first[0], "recycled entry is marked free")

	second := q.entry()
	assert.NotSame(t, &first[0], &second[0])

	q.next()
	assert.Same(t, &first[0], &q.entry()[0])
}
