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

// Package uart provides the transceiver for a radio bridge on a serial port
package uart

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	rflink "github.com/ZaparooProject/go-rflink"
	"github.com/ZaparooProject/go-rflink/internal/bridge"
	"github.com/ZaparooProject/go-rflink/internal/retry"
)

const (
	// DefaultBaudRate is the bridge firmware's fixed line rate
	DefaultBaudRate = 115200

	ackTimeout      = 100 * time.Millisecond
	replyTimeout    = 500 * time.Millisecond
	pollInterval    = 20 * time.Millisecond
	maxNackRetries  = 3
	readChunkSize   = 64
	receiveSlackPad = 200 * time.Millisecond
)

// port is the part of serial.Port the transport uses
type port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// Transport implements rflink.TransceiverContext for the radio bridge
type Transport struct {
	port     port
	portName string
	rx       []byte
	timeout  time.Duration
	mu       sync.Mutex
}

// New opens portName at DefaultBaudRate
func New(portName string) (*Transport, error) {
	mode := &serial.Mode{
		BaudRate: DefaultBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	p, err := serial.Open(portName, mode)
	if err != nil {
		return nil, rflink.NewRadioError("open", portName,
			fmt.Errorf("%w: %w", rflink.ErrDeviceNotFound, err), rflink.ErrorTypePermanent)
	}

	t := newWithPort(p, portName)
	if err := p.SetReadTimeout(pollInterval); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", portName, err)
	}
	return t, nil
}

func newWithPort(p port, portName string) *Transport {
	return &Transport{
		port:     p,
		portName: portName,
		rx:       make([]byte, 0, 2*bridge.MaxDataLength),
	}
}

// Open implements rflink.Transceiver
func (t *Transport) Open(setup rflink.RadioSetup) error {
	args := make([]byte, 0, 7)
	args = binary.LittleEndian.AppendUint32(args, setup.FrequencyHz)
	args = binary.LittleEndian.AppendUint16(args, setup.PowerCode)
	args = append(args, byte(setup.MaxPacketLength))

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.port.ResetInputBuffer(); err != nil {
		return rflink.NewRadioError("open", t.portName, err, rflink.ErrorTypeTransient)
	}
	t.rx = t.rx[:0]

	_, err := t.command(context.Background(), "open", bridge.CmdOpen, args, replyTimeout)
	return err
}

// Tune implements rflink.Transceiver
func (t *Transport) Tune(frequencyHz uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	args := binary.LittleEndian.AppendUint32(nil, frequencyHz)
	_, err := t.command(context.Background(), "tune", bridge.CmdTune, args, replyTimeout)
	return err
}

// Receive implements rflink.Transceiver
func (t *Transport) Receive(entry []byte) (int, error) {
	return t.ReceiveContext(context.Background(), entry)
}

// ReceiveContext waits for one packet. On cancellation the bridge is told to
// abort its receive so the next command finds it idle.
func (t *Transport) ReceiveContext(ctx context.Context, entry []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	timeout := t.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); timeout == 0 || remaining < timeout {
			timeout = remaining
		}
	}

	args := binary.LittleEndian.AppendUint32(nil, uint32(timeout.Milliseconds()))
	wait := time.Duration(0)
	if timeout > 0 {
		wait = timeout + receiveSlackPad
	}

	if err := t.send(ctx, "receive", bridge.CmdReceive, args); err != nil {
		return 0, err
	}
	payload, err := t.await(ctx, "receive", bridge.CmdReceive, wait)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, rflink.ErrRadioTimeout) {
			t.abort()
		}
		return 0, err
	}
	if len(payload) > len(entry) {
		return 0, rflink.NewDataTooLargeError("receive", t.portName)
	}
	return copy(entry, payload), nil
}

// Transmit implements rflink.Transceiver
func (t *Transport) Transmit(pkt []byte, powerCode uint16) (rflink.TxStatus, error) {
	return t.TransmitContext(context.Background(), pkt, powerCode)
}

// TransmitContext sends pkt and returns the status the bridge reports
func (t *Transport) TransmitContext(ctx context.Context, pkt []byte, powerCode uint16) (rflink.TxStatus, error) {
	if len(pkt) > bridge.MaxDataLength-4 {
		return rflink.TxStatusUnknown, rflink.NewDataTooLargeError("transmit", t.portName)
	}

	args := make([]byte, 0, 2+len(pkt))
	args = binary.LittleEndian.AppendUint16(args, powerCode)
	args = append(args, pkt...)

	t.mu.Lock()
	defer t.mu.Unlock()

	payload, err := t.command(ctx, "transmit", bridge.CmdTransmit, args, replyTimeout)
	if err != nil {
		return rflink.TxStatusUnknown, err
	}
	if len(payload) < 1 {
		return rflink.TxStatusUnknown, rflink.NewFrameCorruptedError("transmit", t.portName)
	}
	return rflink.TxStatus(payload[0]), nil
}

// ReadRegister implements rflink.Transceiver
func (t *Transport) ReadRegister(addr uint16) (uint32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	args := binary.LittleEndian.AppendUint16(nil, addr)
	payload, err := t.command(context.Background(), "read register", bridge.CmdReadRegister, args, replyTimeout)
	if err != nil {
		return 0, err
	}
	if len(payload) < 4 {
		return 0, rflink.NewFrameCorruptedError("read register", t.portName)
	}
	return binary.LittleEndian.Uint32(payload), nil
}

// Probe checks that a bridge answers on the port. It sends an abort, which
// leaves an idle bridge unchanged.
func (t *Transport) Probe(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, err := t.command(ctx, "probe", bridge.CmdAbort, nil, ackTimeout)
	return err
}

// SetTimeout sets the receive timeout passed to the bridge (0 = forever)
func (t *Transport) SetTimeout(timeout time.Duration) error {
	if timeout < 0 {
		return rflink.ErrInvalidParameter
	}
	t.mu.Lock()
	t.timeout = timeout
	t.mu.Unlock()
	return nil
}

// Close closes the serial port. A pending Receive returns ErrClosed.
func (t *Transport) Close() error {
	if t.port == nil {
		return nil
	}
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", t.portName, err)
	}
	return nil
}

// Type returns the transceiver type
func (*Transport) Type() rflink.TransceiverType {
	return rflink.TransceiverUART
}

// PortName returns the serial port the transport is bound to
func (t *Transport) PortName() string {
	return t.portName
}

// command sends one bridge command and returns the reply payload after the
// result code. wait bounds the reply; 0 waits until ctx is done.
func (t *Transport) command(ctx context.Context, op string, cmd byte, args []byte, wait time.Duration) ([]byte, error) {
	if err := t.send(ctx, op, cmd, args); err != nil {
		return nil, err
	}
	return t.await(ctx, op, cmd, wait)
}

// send writes the command frame
func (t *Transport) send(ctx context.Context, op string, cmd byte, args []byte) error {
	if t.port == nil {
		return rflink.NewRadioError(op, t.portName, rflink.ErrNotOpen, rflink.ErrorTypePermanent)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	frm, err := bridge.BuildFrame(cmd, args)
	if err != nil {
		return rflink.NewRadioError(op, t.portName, fmt.Errorf("%w: %w", rflink.ErrDataTooLarge, err),
			rflink.ErrorTypePermanent)
	}
	if rflink.DebugEnabled() {
		rflink.Debugf("uart %s > % X", op, frm)
	}
	return t.write(op, frm)
}

// await collects the ACK and the reply to a command already sent
func (t *Transport) await(ctx context.Context, op string, cmd byte, wait time.Duration) ([]byte, error) {
	if err := t.waitAck(ctx, op); err != nil {
		return nil, err
	}

	reply, err := retry.WithRetry(ctx, retry.Config{
		Description: op,
		Port:        t.portName,
		MaxRetries:  maxNackRetries,
		OnRetry: func() error {
			return t.write(op, bridge.NackFrame)
		},
	}, func() (bridge.Frame, bool, error) {
		return t.readReply(ctx, op, cmd+1, wait)
	})
	if err != nil {
		return nil, err
	}

	if reply.Command() != cmd+1 {
		return nil, rflink.NewFrameCorruptedError(op, t.portName)
	}
	return t.result(op, reply.Payload())
}

// result maps the reply's leading result code
func (t *Transport) result(op string, payload []byte) ([]byte, error) {
	if len(payload) < 1 {
		return nil, rflink.NewFrameCorruptedError(op, t.portName)
	}
	switch payload[0] {
	case bridge.ResultOK:
		return payload[1:], nil
	case bridge.ResultTimeout:
		return nil, rflink.NewTimeoutError(op, t.portName)
	case bridge.ResultUnsupported:
		return nil, rflink.ErrNotSupported
	default:
		return nil, rflink.NewRadioError(op, t.portName,
			fmt.Errorf("%w: bridge result 0x%02X", rflink.ErrCommunicationFailed, payload[0]),
			rflink.ErrorTypeTransient)
	}
}

func (t *Transport) write(op string, data []byte) error {
	n, err := t.port.Write(data)
	if err != nil {
		return rflink.NewRadioError(op, t.portName, fmt.Errorf("%w: %w", rflink.ErrRadioWrite, err),
			rflink.ErrorTypeTransient)
	}
	if n != len(data) {
		return rflink.NewRadioError(op, t.portName, rflink.ErrRadioWrite, rflink.ErrorTypeTransient)
	}
	return nil
}

func (t *Transport) waitAck(ctx context.Context, op string) error {
	deadline := time.Now().Add(ackTimeout)
	for {
		frm, err := t.nextFrame(ctx, op, deadline)
		if err != nil {
			if errors.Is(err, rflink.ErrRadioTimeout) {
				return rflink.NewNoACKError(op, t.portName)
			}
			return err
		}
		switch frm.Kind {
		case bridge.KindAck:
			return nil
		case bridge.KindNack:
			return rflink.NewNoACKError(op, t.portName)
		case bridge.KindData:
			rflink.Debugf("uart %s: dropping stale reply 0x%02X", op, frm.Command())
		}
	}
}

// readReply reads the reply with the given code. A damaged frame asks for a
// retry; replies left over from an aborted command are dropped.
func (t *Transport) readReply(ctx context.Context, op string, code byte, wait time.Duration) (bridge.Frame, bool, error) {
	var deadline time.Time
	if wait > 0 {
		deadline = time.Now().Add(wait)
	}
	for {
		frm, err := t.nextFrame(ctx, op, deadline)
		switch {
		case errors.Is(err, bridge.ErrDataChecksum), errors.Is(err, bridge.ErrLengthChecksum):
			rflink.Debugf("uart %s: %v, sending NACK", op, err)
			return frm, true, nil
		case err != nil:
			return frm, false, err
		case frm.Kind != bridge.KindData:
		case frm.Command() != code:
			rflink.Debugf("uart %s: dropping stale reply 0x%02X", op, frm.Command())
		default:
			return frm, false, nil
		}
	}
}

// nextFrame returns the next parsed frame, reading from the port as needed.
// A zero deadline waits until ctx is done.
func (t *Transport) nextFrame(ctx context.Context, op string, deadline time.Time) (bridge.Frame, error) {
	buf := make([]byte, readChunkSize)
	for {
		if len(t.rx) > 0 {
			frm, n, err := bridge.ParseReply(t.rx)
			t.rx = append(t.rx[:0], t.rx[n:]...)
			if errors.Is(err, bridge.ErrUnexpectedTFI) {
				rflink.Debugln("uart ", op, ": skipping host frame ", err)
				continue
			}
			if !errors.Is(err, bridge.ErrIncomplete) {
				if err == nil {
					rflink.Debugf("uart %s < %v % X", op, frm.Kind, frm.Data)
				}
				return frm, err
			}
		}

		if err := ctx.Err(); err != nil {
			return bridge.Frame{}, err
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return bridge.Frame{}, rflink.NewTimeoutError(op, t.portName)
		}

		n, err := t.port.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) || isClosed(err) {
				return bridge.Frame{}, rflink.NewRadioError(op, t.portName, rflink.ErrClosed, rflink.ErrorTypePermanent)
			}
			return bridge.Frame{}, rflink.NewRadioError(op, t.portName,
				fmt.Errorf("%w: %w", rflink.ErrRadioRead, err), rflink.ErrorTypeTransient)
		}
		t.rx = append(t.rx, buf[:n]...)
	}
}

// abort best-effort returns the bridge to idle after a cancelled receive
func (t *Transport) abort() {
	frm, err := bridge.BuildFrame(bridge.CmdAbort, nil)
	if err != nil {
		return
	}
	_ = t.write("abort", frm)
	t.rx = t.rx[:0]
}

func isClosed(err error) bool {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		return portErr.Code() == serial.PortClosed
	}
	return false
}

var _ rflink.TransceiverContext = (*Transport)(nil)
