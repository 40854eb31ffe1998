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
	"errors"
	"runtime"
	"time"

	"github.com/ZaparooProject/go-rflink/frame"
)

// receiveErrorBackoff spaces out listens after a driver failure
const receiveErrorBackoff = 20 * time.Millisecond

// receiveTask listens for requests, adapts the radio to each one and hands
// the slot to the transmit task. It runs at the configured receive priority,
// which is the process default; only the transmit thread is lowered.
func (l *Link) receiveTask(ctx context.Context, txReady chan<- *slot, rxReady <-chan *slot) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer l.rxState.Store(int32(TaskStopped))

	l.rxState.Store(int32(TaskIdle))
	h, err := l.setup(ctx, "receive")
	if err != nil {
		return err
	}

	// The first slot arrives once the transmit task has finished its setup
	l.rxState.Store(int32(TaskAwaitSignal))
	var s *slot
	select {
	case <-ctx.Done():
		return ctx.Err()
	case s = <-rxReady:
	}

	for {
		l.rxState.Store(int32(TaskListening))
		in, ok, err := l.listen(ctx, h)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		l.rxState.Store(int32(TaskFrameReady))
		l.indicator.Toggle(LEDReceive)
		l.prepareReply(s, in)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case txReady <- s:
		}

		l.rxState.Store(int32(TaskAwaitSignal))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s = <-rxReady:
		}
	}
}

// listen waits for one decodable frame. ok is false when the listen should
// simply be repeated; err is set only when the task must stop.
func (l *Link) listen(ctx context.Context, h Handle) (in frame.Inbound, ok bool, err error) {
	f, err := l.session.ReceiveOne(ctx, h)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return in, false, ctx.Err()
		case errors.Is(err, ErrRadioTimeout):
			l.counters.receiveTimeouts.Add(1)
			return in, false, nil
		case errors.Is(err, frame.ErrShortFrame):
			l.counters.shortFrames.Add(1)
			l.logger.Debug("malformed receive entry skipped", "error", err)
			return in, false, nil
		case errors.Is(err, ErrClosed), errors.Is(err, ErrNotOpen):
			return in, false, fatal("receive", err)
		}

		l.counters.receiveErrors.Add(1)
		l.logger.Warn("receive failed", "error", err)
		select {
		case <-ctx.Done():
			return in, false, ctx.Err()
		case <-time.After(receiveErrorBackoff):
		}
		return in, false, nil
	}

	l.counters.framesReceived.Add(1)
	in, err = f.Decode()
	if err != nil {
		l.counters.shortFrames.Add(1)
		l.logger.Debug("short frame skipped", "length", len(f.Bytes()))
		return in, false, nil
	}

	l.logger.Debug("frame received", "frame", in.String(), "status", f.Status)
	return in, true, nil
}

// prepareReply applies the request's power and length to the session and
// stamps the RSSI echo. The caller holds s.
func (l *Link) prepareReply(s *slot, in frame.Inbound) {
	power := in.Power()
	l.session.SetPowerLevel(power)
	length := l.session.SetPayloadLength(int(in.RequestedLength))

	s.out.SetRSSIEcho(in.RSSI)
	s.out.SetLength(length)
	s.inbound = in
	s.receivedAt = time.Now()

	l.counters.lastRSSI.Store(int32(in.RSSI))
	l.counters.lastPower.Store(uint32(power))
	l.counters.lastReplyLength.Store(int64(length))
}
