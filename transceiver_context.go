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
	"time"
)

// TransceiverContext extends Transceiver with context support for
// cancellation and deadlines on the blocking operations.
type TransceiverContext interface {
	Transceiver

	// ReceiveContext receives one data entry, honoring ctx
	ReceiveContext(ctx context.Context, entry []byte) (int, error)

	// TransmitContext transmits pkt, honoring ctx
	TransmitContext(ctx context.Context, pkt []byte, powerCode uint16) (TxStatus, error)
}

// transceiverContextAdapter wraps a Transceiver to provide context support.
// The blocking call runs in a goroutine; busy keeps a call that was abandoned
// on cancellation from overlapping the next one.
type transceiverContextAdapter struct {
	Transceiver
	busy chan struct{}
}

// AsTransceiverContext converts a Transceiver to TransceiverContext
func AsTransceiverContext(t Transceiver) TransceiverContext {
	if tc, ok := t.(TransceiverContext); ok {
		return tc
	}
	return &transceiverContextAdapter{
		Transceiver: t,
		busy:        make(chan struct{}, 1),
	}
}

func (t *transceiverContextAdapter) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before radio operation: %w", err)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled before radio operation: %w", ctx.Err())
	case t.busy <- struct{}{}:
		return nil
	}
}

func (t *transceiverContextAdapter) release() {
	<-t.busy
}

func (t *transceiverContextAdapter) applyDeadline(ctx context.Context) {
	if deadline, ok := ctx.Deadline(); ok {
		if timeout := time.Until(deadline); timeout > 0 {
			_ = t.SetTimeout(timeout)
		}
	}
}

// ReceiveContext implements TransceiverContext. The driver fills a private
// buffer that is copied into entry only on success, so an abandoned receive
// never writes into memory the caller has moved on with.
func (t *transceiverContextAdapter) ReceiveContext(ctx context.Context, entry []byte) (int, error) {
	if err := t.acquire(ctx); err != nil {
		return 0, err
	}
	t.applyDeadline(ctx)

	type result struct {
		err  error
		data []byte
	}
	resultChan := make(chan result, 1)

	go func() {
		defer t.release()
		buf := make([]byte, len(entry))
		n, err := t.Receive(buf)
		if err != nil {
			resultChan <- result{err: err}
			return
		}
		resultChan <- result{data: buf[:n]}
	}()

	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("context cancelled while waiting for radio receive: %w", ctx.Err())
	case res := <-resultChan:
		if res.err != nil {
			return 0, res.err
		}
		return copy(entry, res.data), nil
	}
}

// TransmitContext implements TransceiverContext
func (t *transceiverContextAdapter) TransmitContext(
	ctx context.Context, pkt []byte, powerCode uint16,
) (TxStatus, error) {
	if err := t.acquire(ctx); err != nil {
		return TxStatusUnknown, err
	}
	t.applyDeadline(ctx)

	type result struct {
		err    error
		status TxStatus
	}
	resultChan := make(chan result, 1)
	data := append([]byte(nil), pkt...)

	go func() {
		defer t.release()
		status, err := t.Transmit(data, powerCode)
		resultChan <- result{status: status, err: err}
	}()

	select {
	case <-ctx.Done():
		return TxStatusUnknown, fmt.Errorf("context cancelled while waiting for radio transmit: %w", ctx.Err())
	case res := <-resultChan:
		return res.status, res.err
	}
}
