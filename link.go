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
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/go-rflink/frame"
)

// slot is the outbound buffer plus what the receive task learned about the
// request it answers. Exactly one task holds the slot at a time; passing it
// over a channel is the hand-off.
type slot struct {
	receivedAt time.Time
	out        *frame.Outbound
	inbound    frame.Inbound
}

// Link runs the receive and transmit tasks over one shared radio session
type Link struct {
	driver      Transceiver
	config      *Config
	logger      *slog.Logger
	indicator   Indicator
	onTxFailure func(TxFailure)
	onCycle     func(CycleReport)
	session     *Session

	cancel  context.CancelFunc
	done    chan struct{}
	lastErr error

	counters linkCounters
	rxState  atomic.Int32
	txState  atomic.Int32
	stopMu   sync.Mutex
	running  atomic.Bool
}

// NewLink creates a link over driver. The radio is not touched until Run.
func NewLink(driver Transceiver, opts ...Option) (*Link, error) {
	if driver == nil {
		return nil, errors.New("transceiver cannot be nil")
	}

	l := &Link{
		driver:    driver,
		config:    DefaultConfig(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		indicator: nopIndicator{},
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}

	session, err := NewSession(l.driver, l.config, l.logger)
	if err != nil {
		return nil, err
	}
	l.session = session
	l.rxState.Store(int32(TaskStopped))
	l.txState.Store(int32(TaskStopped))
	return l, nil
}

// Session returns the shared radio session
func (l *Link) Session() *Session {
	return l.session
}

// Config returns the link configuration
func (l *Link) Config() *Config {
	return l.config
}

// Metrics returns a snapshot of the link counters
func (l *Link) Metrics() LinkMetrics {
	return l.counters.snapshot()
}

// ReceiveState returns the receive task state
func (l *Link) ReceiveState() TaskState {
	return TaskState(l.rxState.Load())
}

// TransmitState returns the transmit task state
func (l *Link) TransmitState() TaskState {
	return TaskState(l.txState.Load())
}

// IsRunning returns whether the tasks are active
func (l *Link) IsRunning() bool {
	return l.running.Load()
}

// Run starts both tasks and blocks until ctx is done or a task hits a fatal
// error. It returns the fatal error, or ctx.Err() after a clean stop.
func (l *Link) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)
	return l.run(ctx)
}

// Start runs the link in the background (non-blocking)
func (l *Link) Start(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	l.stopMu.Lock()
	l.cancel = cancel
	l.done = done
	l.lastErr = nil
	l.stopMu.Unlock()

	go func() {
		defer close(done)
		err := l.run(runCtx)

		l.stopMu.Lock()
		l.lastErr = err
		l.cancel = nil
		l.stopMu.Unlock()
		l.running.Store(false)
	}()

	return nil
}

// Stop cancels a link started with Start and waits for both tasks to exit.
// It returns the fatal error that ended the link, if any.
func (l *Link) Stop() error {
	l.stopMu.Lock()
	cancel := l.cancel
	done := l.done
	l.stopMu.Unlock()

	if done == nil {
		return ErrNotRunning
	}
	if cancel != nil {
		cancel()
	}
	<-done

	return l.Err()
}

// Done is closed when a link started with Start has stopped
func (l *Link) Done() <-chan struct{} {
	l.stopMu.Lock()
	defer l.stopMu.Unlock()
	return l.done
}

// Err returns the fatal error that stopped a link started with Start.
// A cancelled link reports nil.
func (l *Link) Err() error {
	l.stopMu.Lock()
	defer l.stopMu.Unlock()
	if IsFatal(l.lastErr) {
		return l.lastErr
	}
	return nil
}

func (l *Link) run(ctx context.Context) error {
	if err := l.indicator.Init(); err != nil {
		return fatal("init indicator", fmt.Errorf("%w: %w", ErrPeripheralInit, err))
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// txReady carries the slot to the transmit task, rxReady brings it back
	txReady := make(chan *slot)
	rxReady := make(chan *slot)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs <- l.receiveTask(taskCtx, txReady, rxReady)
	}()
	go func() {
		defer wg.Done()
		errs <- l.transmitTask(taskCtx, txReady, rxReady)
	}()

	first := <-errs
	cancel()
	wg.Wait()
	second := <-errs

	if err := l.session.Close(); err != nil {
		l.logger.Warn("closing radio session", "error", err)
	}

	for _, err := range []error{first, second} {
		if IsFatal(err) {
			l.logger.Error("link halted", "error", err)
			return err
		}
	}
	l.logger.Info("link stopped", "cycles", l.counters.cycles.Load())
	if err := ctx.Err(); err != nil {
		return err
	}
	return first
}

// setup opens the shared session and tunes it. Both tasks run it; the session
// makes the second call a no-op.
func (l *Link) setup(ctx context.Context, task string) (Handle, error) {
	h, err := l.session.Open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fatal(task+" setup", err)
	}
	if err := l.session.SetFrequency(ctx, h); err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fatal(task+" setup", err)
	}
	return h, nil
}
