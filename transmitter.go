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
	"runtime"
	"time"

	"github.com/ZaparooProject/go-rflink/frame"
	"github.com/ZaparooProject/go-rflink/internal/sched"
)

// transmitTask builds the reply buffer, then sends one reply for every slot
// the receive task hands over.
func (l *Link) transmitTask(ctx context.Context, txReady <-chan *slot, rxReady chan<- *slot) error {
	runtime.LockOSThread()
	if err := sched.Lower(l.config.RxTaskPriority - l.config.TxTaskPriority); err != nil {
		runtime.UnlockOSThread()
		l.logger.Debug("transmit priority not applied", "error", err)
	}
	// A lowered thread is not unlocked; it is discarded when the task exits.
	defer l.txState.Store(int32(TaskStopped))

	l.txState.Store(int32(TaskIdle))
	h, err := l.setup(ctx, "transmit")
	if err != nil {
		return err
	}

	out, err := frame.NewOutbound(l.config.OutboundFields(), l.config.MaxPayloadLength)
	if err != nil {
		return fatal("build outbound frame", err)
	}

	s := &slot{out: out}
	for {
		l.txState.Store(int32(TaskAwaitSignal))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rxReady <- s:
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case s = <-txReady:
		}

		l.txState.Store(int32(TaskSending))
		if err := l.send(ctx, h, s); err != nil {
			return err
		}
	}
}

// send stamps the link quality and transmits the slot's frame
func (l *Link) send(ctx context.Context, h Handle, s *slot) error {
	lqi, err := l.session.ReadLinkQuality(ctx, h)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.logger.Warn("link quality unavailable", "error", err)
		lqi = 0
	}
	s.out.SetLinkQuality(lqi)

	start := time.Now()
	radio, status, err := l.session.transmit(ctx, h, s.out.Bytes())
	latency := time.Since(start)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	cycle := l.counters.cycles.Add(1)
	l.counters.lastTransmitLatency.Store(latency.Nanoseconds())
	l.counters.lastLinkQuality.Store(uint32(lqi))

	// Transmit results end here. A failed reply is never retried.
	l.discardTxResult(cycle, status, err)

	l.indicator.Toggle(LEDTransmit)

	if l.onCycle != nil {
		l.onCycle(CycleReport{
			Cycle:       cycle,
			Inbound:     s.inbound,
			ReceivedAt:  s.receivedAt,
			Power:       radio.Power,
			PowerCode:   l.config.PowerCode(radio.Power),
			LinkQuality: lqi,
			Reply:       append([]byte(nil), s.out.Bytes()[:min(s.out.Len(), radio.PayloadLength)]...),
			Status:      status,
			Err:         err,
			Latency:     latency,
		})
	}
	return nil
}

func (l *Link) discardTxResult(cycle int64, status TxStatus, err error) {
	if err == nil && status.OK() {
		return
	}
	l.counters.txFailuresIgnored.Add(1)
	l.logger.Warn("transmit did not complete",
		"cycle", cycle,
		"status", status.String(),
		"error", err)
	if l.onTxFailure != nil {
		l.onTxFailure(TxFailure{Cycle: cycle, Status: status, Err: err})
	}
}
