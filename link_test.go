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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ZaparooProject/go-rflink/frame"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingIndicator struct {
	initErr error
	rx      atomic.Int64
	tx      atomic.Int64
}

func (c *countingIndicator) Init() error { return c.initErr }

func (c *countingIndicator) Toggle(led LED) {
	if led == LEDReceive {
		c.rx.Add(1)
		return
	}
	c.tx.Add(1)
}

// startLink runs a link over mock until the test ends
func startLink(t *testing.T, mock *MockTransceiver, opts ...Option) *Link {
	t.Helper()

	link, err := NewLink(mock, opts...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- link.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errc:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(2 * time.Second):
			t.Error("link did not stop")
		}
	})
	return link
}

func waitSent(t *testing.T, mock *MockTransceiver) SentPacket {
	t.Helper()
	select {
	case p := <-mock.Sent():
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("no packet transmitted")
		return SentPacket{}
	}
}

func TestLinkHighPowerScenario(t *testing.T) {
	t.Parallel()

	mock := NewMockTransceiver()
	mock.SetRegister(0x2A, nil)
	link := startLink(t, mock)

	mock.InjectFrame([]byte{0x01, 0x02, 0xC3, 10}, -40)
	p := waitSent(t, mock)

	require.Len(t, p.Data, 10)
	assert.Equal(t, byte(0x01), p.Data[frame.OutboundAddressIndex])
	assert.Equal(t, byte(0x04), p.Data[frame.OutboundControlIndex])
	assert.Equal(t, byte('d'), p.Data[frame.OutboundDeviceIDIndex])
	assert.Equal(t, byte(40), p.Data[frame.OutboundRSSIIndex])
	assert.Equal(t, byte(0x2A), p.Data[frame.OutboundLQIIndex])
	for i := frame.OutboundHeaderSize; i < len(p.Data); i++ {
		assert.Equal(t, byte(frame.FillerByte), p.Data[i], "filler at %d", i)
	}
	assert.Equal(t, uint16(0x38D3), p.PowerCode)
	assert.Equal(t, frame.PowerHigh, link.Session().RadioConfig().Power)
	assert.Equal(t, 10, link.Session().RadioConfig().PayloadLength)
}

func TestLinkDefaultPowerScenario(t *testing.T) {
	t.Parallel()

	mock := NewMockTransceiver()
	link := startLink(t, mock)

	mock.InjectFrame([]byte{0x01, 0x02, 0x00, 10}, -40)
	p := waitSent(t, mock)

	require.Len(t, p.Data, 10)
	assert.Equal(t, byte(40), p.Data[frame.OutboundRSSIIndex])
	assert.Equal(t, uint16(0x0041), p.PowerCode)
	assert.Equal(t, frame.PowerDefault, link.Session().RadioConfig().Power)
}

func TestLinkHandOffOrdering(t *testing.T) {
	t.Parallel()

	type request struct {
		power  byte
		length byte
		rssi   int8
	}
	requests := make([]request, 0, 60)
	for i := range 60 {
		power := byte(0x00)
		if i%3 == 0 {
			power = frame.HighPowerSentinel
		}
		requests = append(requests, request{
			power:  power,
			length: byte(i*7) % 80,
			rssi:   int8(-10 - i),
		})
	}

	var (
		mu      sync.Mutex
		reports []CycleReport
	)
	mock := NewMockTransceiver()
	link := startLink(t, mock, WithCycleHook(func(r CycleReport) {
		mu.Lock()
		reports = append(reports, r)
		mu.Unlock()
	}))

	go func() {
		for _, r := range requests {
			mock.InjectFrame([]byte{0x01, 0x02, r.power, r.length}, r.rssi)
		}
	}()

	sent := make([]SentPacket, 0, len(requests))
	for range requests {
		sent = append(sent, waitSent(t, mock))
	}

	for i, r := range requests {
		p := sent[i]
		wantLen := frame.ClampLength(int(r.length), frame.MaxLength)
		require.Len(t, p.Data, wantLen, "cycle %d", i)
		if wantLen > frame.OutboundRSSIIndex {
			assert.Equal(t, frame.EchoRSSI(r.rssi), p.Data[frame.OutboundRSSIIndex], "cycle %d", i)
		}
		wantPower := link.Config().PowerCode(frame.PowerLevelFromCode(r.power))
		assert.Equal(t, wantPower, p.PowerCode, "cycle %d", i)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(reports) == len(requests)
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for i, rep := range reports {
		assert.Equal(t, int64(i+1), rep.Cycle)
		assert.Equal(t, frame.ClampLength(int(rep.Inbound.RequestedLength), frame.MaxLength), len(rep.Reply))
		assert.Equal(t, frame.PowerLevelFromCode(requests[i].power), rep.Power, "cycle %d", i)
		assert.Equal(t, sent[i].PowerCode, rep.PowerCode, "cycle %d", i)
		assert.Equal(t, sent[i].Data, rep.Reply, "cycle %d", i)
		if len(rep.Reply) > frame.OutboundRSSIIndex {
			assert.Equal(t, frame.EchoRSSI(rep.Inbound.RSSI), rep.Reply[frame.OutboundRSSIIndex])
		}
	}
	assert.Zero(t, mock.Overlaps(), "receive and transmit overlapped")
}

func TestLinkIgnoredTransmitFailureKeepsRunning(t *testing.T) {
	t.Parallel()

	var failures atomic.Int64
	mock := NewMockTransceiver()
	mock.FailNextTransmits(2)
	link := startLink(t, mock, WithTxFailureHook(func(f TxFailure) {
		assert.Equal(t, TxStatusFailed, f.Status)
		failures.Add(1)
	}))

	for range 3 {
		mock.InjectFrame([]byte{0x01, 0x02, 0x00, 8}, -60)
		waitSent(t, mock)
	}

	require.Eventually(t, func() bool {
		return link.Metrics().Cycles == 3
	}, 2*time.Second, 5*time.Millisecond)
	m := link.Metrics()
	assert.Equal(t, int64(2), m.TxFailuresIgnored)
	assert.Equal(t, int64(2), failures.Load())
	assert.True(t, link.IsRunning())
}

func TestLinkTransmitErrorIsIgnored(t *testing.T) {
	t.Parallel()

	mock := NewMockTransceiver()
	mock.SetTransmitResult(TxStatusAborted, ErrRadioWrite)
	link := startLink(t, mock)

	mock.InjectFrame([]byte{0x01, 0x02, 0x00, 8}, -60)
	waitSent(t, mock)
	mock.InjectFrame([]byte{0x01, 0x02, 0x00, 8}, -60)
	waitSent(t, mock)

	require.Eventually(t, func() bool {
		return link.Metrics().TxFailuresIgnored == 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestLinkSkipsShortFrames(t *testing.T) {
	t.Parallel()

	mock := NewMockTransceiver()
	link := startLink(t, mock)

	mock.InjectFrame([]byte{0x01, 0x02}, -40)
	mock.InjectRaw([]byte{40, 0x01, 0xD8, 0x80})
	mock.InjectFrame([]byte{0x01, 0x02, 0x00, 6}, -30)

	p := waitSent(t, mock)
	assert.Len(t, p.Data, 6)
	assert.Equal(t, byte(30), p.Data[frame.OutboundRSSIIndex])

	require.Eventually(t, func() bool {
		return link.Metrics().Cycles == 1
	}, 2*time.Second, 5*time.Millisecond)
	m := link.Metrics()
	assert.Equal(t, int64(2), m.ShortFrames)
	assert.Equal(t, int64(2), m.FramesReceived)
	assert.Len(t, mock.SentPackets(), 1)
}

func TestLinkCountsReceiveTimeouts(t *testing.T) {
	t.Parallel()

	mock := NewMockTransceiver()
	link := startLink(t, mock, WithReceiveTimeout(5*time.Millisecond))

	require.Eventually(t, func() bool {
		return link.Metrics().ReceiveTimeouts >= 2
	}, 2*time.Second, 5*time.Millisecond)

	mock.InjectFrame([]byte{0x01, 0x02, 0x00, 5}, -30)
	waitSent(t, mock)
}

func TestLinkSetupOpensAndTunesOnce(t *testing.T) {
	t.Parallel()

	mock := NewMockTransceiver()
	link := startLink(t, mock)

	mock.InjectFrame([]byte{0x01, 0x02, 0x00, 5}, -30)
	waitSent(t, mock)

	assert.Equal(t, int64(1), mock.Opens())
	assert.Equal(t, int64(1), mock.Tunes())
	assert.Equal(t, uint32(868_000_000), mock.Frequency())
	assert.Equal(t, int64(1), link.Session().Opens())
}

func TestLinkIndicatorToggles(t *testing.T) {
	t.Parallel()

	ind := &countingIndicator{}
	mock := NewMockTransceiver()
	link := startLink(t, mock, WithIndicator(ind))

	for range 4 {
		mock.InjectFrame([]byte{0x01, 0x02, 0x00, 5}, -30)
		waitSent(t, mock)
	}

	require.Eventually(t, func() bool {
		return link.Metrics().Cycles == 4
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(4), ind.rx.Load())
	assert.Equal(t, int64(4), ind.tx.Load())
}

func TestLinkRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	mock := NewMockTransceiver()
	link, err := NewLink(mock)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- link.Run(ctx) }()

	require.Eventually(t, func() bool {
		return link.ReceiveState() == TaskListening && link.TransmitState() == TaskAwaitSignal
	}, 2*time.Second, time.Millisecond)

	require.ErrorIs(t, link.Run(ctx), ErrAlreadyRunning)

	cancel()
	select {
	case err := <-errc:
		require.ErrorIs(t, err, context.Canceled)
		assert.False(t, IsFatal(err))
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}

	assert.Equal(t, TaskStopped, link.ReceiveState())
	assert.Equal(t, TaskStopped, link.TransmitState())
	assert.Equal(t, int64(1), mock.Closes())
	assert.False(t, link.IsRunning())
}

func TestLinkFatalStartup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		setup   func(*MockTransceiver) []Option
		wantErr error
		name    string
	}{
		{
			name: "receive queue does not fit",
			setup: func(*MockTransceiver) []Option {
				cfg := DefaultConfig()
				cfg.RxBufferSize = 64
				return []Option{WithConfig(cfg)}
			},
			wantErr: ErrQueueAllocation,
		},
		{
			name: "radio open fails",
			setup: func(m *MockTransceiver) []Option {
				m.SetOpenError(ErrDeviceNotFound)
				return nil
			},
			wantErr: ErrDeviceNotFound,
		},
		{
			name: "tune fails",
			setup: func(m *MockTransceiver) []Option {
				m.SetTuneError(ErrInvalidParameter)
				return nil
			},
			wantErr: ErrInvalidParameter,
		},
		{
			name: "indicator init fails",
			setup: func(*MockTransceiver) []Option {
				return []Option{WithIndicator(&countingIndicator{initErr: errors.New("gpio busy")})}
			},
			wantErr: ErrPeripheralInit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mock := NewMockTransceiver()
			link, err := NewLink(mock, tt.setup(mock)...)
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			err = link.Run(ctx)
			require.Error(t, err)
			assert.True(t, IsFatal(err), "got %v", err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, mock.SentPackets())
		})
	}
}

func TestLinkStartStop(t *testing.T) {
	t.Parallel()

	mock := NewMockTransceiver()
	link, err := NewLink(mock, WithTransmitTimeout(100*time.Millisecond))
	require.NoError(t, err)

	require.ErrorIs(t, link.Stop(), ErrNotRunning)
	require.NoError(t, link.Start(context.Background()))
	require.ErrorIs(t, link.Start(context.Background()), ErrAlreadyRunning)
	assert.True(t, link.IsRunning())

	mock.InjectFrame([]byte{0x01, 0x02, 0xC3, 12}, -70)
	p := waitSent(t, mock)
	assert.Len(t, p.Data, 12)

	require.NoError(t, link.Stop())
	<-link.Done()
	assert.False(t, link.IsRunning())
	require.NoError(t, link.Err())

	// a stopped link can be started again on a fresh session
	require.NoError(t, link.Start(context.Background()))
	mock.InjectFrame([]byte{0x01, 0x02, 0x00, 7}, -20)
	p = waitSent(t, mock)
	assert.Len(t, p.Data, 7)
	require.NoError(t, link.Stop())
	assert.Equal(t, int64(2), mock.Opens())
}

func TestLinkStartReportsFatal(t *testing.T) {
	t.Parallel()

	mock := NewMockTransceiver()
	mock.SetOpenError(ErrDeviceNotFound)
	link, err := NewLink(mock)
	require.NoError(t, err)

	require.NoError(t, link.Start(context.Background()))
	select {
	case <-link.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("link did not stop")
	}
	err = link.Stop()
	assert.True(t, IsFatal(err))
	assert.ErrorIs(t, link.Err(), ErrDeviceNotFound)
}

func TestNewLinkRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, err := NewLink(nil)
	require.Error(t, err)

	cfg := DefaultConfig()
	cfg.MaxPayloadLength = 2
	_, err = NewLink(NewMockTransceiver(), WithConfig(cfg))
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewLink(NewMockTransceiver(), WithReceiveTimeout(-time.Second))
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewLink(NewMockTransceiver(), WithLogger(nil))
	assert.Error(t, err)
}

func TestLinkWithRetryConfigWrapsDriver(t *testing.T) {
	t.Parallel()

	mock := NewMockTransceiver()
	link, err := NewLink(mock, WithRetryConfig(DefaultRetryConfig()))
	require.NoError(t, err)

	_, ok := link.driver.(*TransceiverWithRetry)
	assert.True(t, ok)
}
