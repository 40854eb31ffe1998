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

// Package spi provides the transceiver for a CC1101 radio on an SPI bus.
//
// The GDO0 pin signals packet boundaries: it rises on the sync word and
// falls once the packet, with its two appended status bytes, is in the
// RX FIFO. The FIFO then holds exactly the entry layout rflink expects:
// length, payload, RSSI, LQI|CRC_OK.
package spi

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	rflink "github.com/ZaparooProject/go-rflink"
	"github.com/ZaparooProject/go-rflink/internal/retry"
)

const (
	// Max SPI clock for burst access
	maxClockFreq = 6500 * physic.KiloHertz

	edgeSlice       = 50 * time.Millisecond
	calibrateWait   = 5 * time.Millisecond
	transmitTimeout = 250 * time.Millisecond
	statePoll       = time.Millisecond
	maxTXPayload    = 62
	maxRXPayload    = 61
)

// Transport implements rflink.TransceiverContext for a CC1101
type Transport struct {
	conn    conn.Conn
	gdo0    gpio.PinIn
	port    spi.PortCloser
	closed  chan struct{}
	busName string
	timeout time.Duration
	mu      sync.Mutex
	stateMu sync.Mutex
	maxLen  int
	open    bool
}

// New initializes the periph host, opens busName and binds the GDO0 pin
func New(busName, gdo0Name string) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	port, err := spireg.Open(busName)
	if err != nil {
		return nil, rflink.NewRadioError("open", busName,
			fmt.Errorf("%w: %w", rflink.ErrDeviceNotFound, err), rflink.ErrorTypePermanent)
	}

	c, err := port.Connect(maxClockFreq, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to configure SPI bus %s: %w", busName, err)
	}

	pin := gpioreg.ByName(gdo0Name)
	if pin == nil {
		_ = port.Close()
		return nil, fmt.Errorf("%w: GDO0 pin %q", rflink.ErrDeviceNotFound, gdo0Name)
	}

	t := NewWithConn(c, pin)
	t.port = port
	t.busName = busName
	return t, nil
}

// NewWithConn builds a transport over an already configured connection
func NewWithConn(c conn.Conn, gdo0 gpio.PinIn) *Transport {
	closed := make(chan struct{})
	close(closed)
	return &Transport{
		conn:    c,
		gdo0:    gdo0,
		closed:  closed,
		busName: c.String(),
	}
}

// Open resets the chip, checks its version and loads the packet profile
func (t *Transport) Open(setup rflink.RadioSetup) error {
	if setup.MaxPacketLength < 1 || setup.MaxPacketLength > maxTXPayload {
		return rflink.NewDataTooLargeError("open", t.busName)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.gdo0.In(gpio.Float, gpio.FallingEdge); err != nil {
		return rflink.NewRadioError("open", t.busName,
			fmt.Errorf("%w: GDO0: %w", rflink.ErrPeripheralInit, err), rflink.ErrorTypePermanent)
	}
	if err := t.strobe(strobeReset); err != nil {
		return err
	}
	time.Sleep(time.Millisecond)

	version, err := t.readStatus(regVERSION)
	if err != nil {
		return err
	}
	if !chipVersions[version] {
		return rflink.NewRadioError("open", t.busName,
			fmt.Errorf("%w: unexpected chip version 0x%02X", rflink.ErrDeviceNotFound, version),
			rflink.ErrorTypePermanent)
	}
	rflink.Debugf("cc1101 on %s: version 0x%02X", t.busName, version)

	for _, rv := range baseSettings {
		if err := t.writeReg(rv.addr, rv.value); err != nil {
			return err
		}
	}
	if err := t.writeReg(regPKTLEN, byte(min(setup.MaxPacketLength, maxRXPayload))); err != nil {
		return err
	}
	if err := t.writeReg(regPATABLE, byte(setup.PowerCode)); err != nil {
		return err
	}
	if err := t.tune(context.Background(), setup.FrequencyHz); err != nil {
		return err
	}

	t.stateMu.Lock()
	t.maxLen = setup.MaxPacketLength
	if !t.open {
		t.closed = make(chan struct{})
		t.open = true
	}
	t.stateMu.Unlock()
	return nil
}

// Tune implements rflink.Transceiver
func (t *Transport) Tune(frequencyHz uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tune(context.Background(), frequencyHz)
}

func (t *Transport) tune(ctx context.Context, frequencyHz uint32) error {
	if frequencyHz == 0 {
		return rflink.ErrInvalidParameter
	}
	if err := t.strobe(strobeIdle); err != nil {
		return err
	}
	w := frequencyWord(frequencyHz)
	if err := t.writeBurst(regFREQ2, w[:]); err != nil {
		return err
	}
	if err := t.strobe(strobeCalibrate); err != nil {
		return err
	}
	_, err := t.waitState(ctx, "tune", calibrateWait, marcIdle)
	return err
}

// Receive implements rflink.Transceiver
func (t *Transport) Receive(entry []byte) (int, error) {
	return t.ReceiveContext(context.Background(), entry)
}

// ReceiveContext arms the receiver and waits for the end-of-packet edge on
// GDO0. The RSSI byte is rewritten to dBm before it is returned.
func (t *Transport) ReceiveContext(ctx context.Context, entry []byte) (int, error) {
	closed, err := t.checkOpen("receive")
	if err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, s := range []byte{strobeIdle, strobeFlushRX, strobeRX} {
		if err := t.strobe(s); err != nil {
			return 0, err
		}
	}

	var deadline time.Time
	if t.timeout > 0 {
		deadline = time.Now().Add(t.timeout)
	}
	for !t.gdo0.WaitForEdge(edgeSlice) {
		select {
		case <-closed:
			return 0, rflink.NewRadioError("receive", t.busName, rflink.ErrClosed, rflink.ErrorTypePermanent)
		default:
		}
		if err := ctx.Err(); err != nil {
			_ = t.strobe(strobeIdle)
			return 0, err
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			_ = t.strobe(strobeIdle)
			return 0, rflink.NewTimeoutError("receive", t.busName)
		}
	}

	return t.readPacket(entry)
}

// readPacket drains one packet from the RX FIFO into entry
func (t *Transport) readPacket(entry []byte) (int, error) {
	rxBytes, err := t.readStatus(regRXBYTES)
	if err != nil {
		return 0, err
	}
	n := int(rxBytes & fifoBytesMask)
	if rxBytes&fifoOverflowFlag != 0 || n < 1+appendedStatusBytes {
		_ = t.strobe(strobeIdle)
		_ = t.strobe(strobeFlushRX)
		return 0, rflink.NewFrameCorruptedError("receive", t.busName)
	}

	data, err := t.readBurst(regFIFO, n)
	if err != nil {
		return 0, err
	}
	if int(data[0])+1+appendedStatusBytes != n {
		_ = t.strobe(strobeFlushRX)
		return 0, rflink.NewFrameCorruptedError("receive", t.busName)
	}
	if data[n-1]&statusCRCOK == 0 {
		return 0, rflink.NewChecksumMismatchError("receive", t.busName)
	}
	if n > len(entry) {
		return 0, rflink.NewDataTooLargeError("receive", t.busName)
	}

	data[n-2] = byte(rssiDBm(data[n-2]))
	return copy(entry, data), nil
}

// Transmit implements rflink.Transceiver
func (t *Transport) Transmit(pkt []byte, powerCode uint16) (rflink.TxStatus, error) {
	return t.TransmitContext(context.Background(), pkt, powerCode)
}

// TransmitContext loads pkt into the TX FIFO, strobes TX and waits for the
// radio to drop back to idle. The low byte of powerCode goes to PATABLE.
func (t *Transport) TransmitContext(ctx context.Context, pkt []byte, powerCode uint16) (rflink.TxStatus, error) {
	if _, err := t.checkOpen("transmit"); err != nil {
		return rflink.TxStatusUnknown, err
	}
	t.stateMu.Lock()
	maxLen := t.maxLen
	t.stateMu.Unlock()
	if len(pkt) == 0 || len(pkt) > maxLen {
		return rflink.TxStatusUnknown, rflink.NewDataTooLargeError("transmit", t.busName)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.strobe(strobeIdle); err != nil {
		return rflink.TxStatusUnknown, err
	}
	if err := t.strobe(strobeFlushTX); err != nil {
		return rflink.TxStatusUnknown, err
	}
	if err := t.writeReg(regPATABLE, byte(powerCode)); err != nil {
		return rflink.TxStatusUnknown, err
	}
	fifo := append([]byte{byte(len(pkt))}, pkt...)
	if err := t.writeBurst(regFIFO, fifo); err != nil {
		return rflink.TxStatusUnknown, err
	}
	if err := t.strobe(strobeTX); err != nil {
		return rflink.TxStatusUnknown, err
	}

	state, err := t.waitState(ctx, "transmit", transmitTimeout, marcIdle, marcTXUnderflow)
	switch {
	case err != nil:
		_ = t.strobe(strobeIdle)
		return rflink.TxStatusAborted, err
	case state == marcTXUnderflow:
		_ = t.strobe(strobeFlushTX)
		return rflink.TxStatusFailed, nil
	default:
		return rflink.TxStatusDone, nil
	}
}

// ReadRegister reads a configuration or status register. Status registers
// (0x30-0x3D) need the burst bit; the LQI register is masked to its 7-bit
// link quality value.
func (t *Transport) ReadRegister(addr uint16) (uint32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case addr <= regLastCfg:
		v, err := t.readReg(byte(addr))
		return uint32(v), err
	case addr == regLQI:
		v, err := t.readStatus(regLQI)
		return uint32(v & statusLQIMask), err
	case addr >= regPARTNUM && addr <= regLastStat:
		v, err := t.readStatus(byte(addr))
		return uint32(v), err
	default:
		return 0, rflink.ErrNotSupported
	}
}

// SetTimeout sets the receive timeout (0 = wait forever)
func (t *Transport) SetTimeout(timeout time.Duration) error {
	if timeout < 0 {
		return rflink.ErrInvalidParameter
	}
	t.mu.Lock()
	t.timeout = timeout
	t.mu.Unlock()
	return nil
}

// Close stops a pending receive, powers the radio down and releases the bus
func (t *Transport) Close() error {
	t.stateMu.Lock()
	wasOpen := t.open
	if t.open {
		t.open = false
		close(t.closed)
	}
	t.stateMu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()

	if wasOpen {
		_ = t.strobe(strobeIdle)
		_ = t.strobe(strobePowerDown)
	}
	if t.port != nil {
		if err := t.port.Close(); err != nil {
			return fmt.Errorf("failed to close SPI bus %s: %w", t.busName, err)
		}
		t.port = nil
	}
	return nil
}

// Type returns the transceiver type
func (*Transport) Type() rflink.TransceiverType {
	return rflink.TransceiverSPI
}

func (t *Transport) checkOpen(op string) (<-chan struct{}, error) {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	if !t.open {
		return nil, rflink.NewRadioError(op, t.busName, rflink.ErrNotOpen, rflink.ErrorTypePermanent)
	}
	return t.closed, nil
}

// waitState polls MARCSTATE until it reaches one of want
func (t *Transport) waitState(ctx context.Context, op string, timeout time.Duration, want ...byte) (byte, error) {
	state, err := retry.Poll(ctx, timeout, statePoll, func() (byte, bool, error) {
		v, err := t.readStatus(regMARCSTATE)
		if err != nil {
			return 0, false, err
		}
		v &= marcStateMask
		for _, w := range want {
			if v == w {
				return v, false, nil
			}
		}
		return v, true, nil
	})
	if err != nil && errors.Is(err, rflink.ErrRadioTimeout) {
		return 0, rflink.NewTimeoutError(op, t.busName)
	}
	return state, err
}

func (t *Transport) strobe(cmd byte) error {
	return t.tx("strobe", []byte{cmd}, nil)
}

func (t *Transport) writeReg(addr, value byte) error {
	return t.tx("write register", []byte{addr, value}, nil)
}

func (t *Transport) writeBurst(addr byte, data []byte) error {
	w := make([]byte, 0, 1+len(data))
	w = append(w, addr|flagBurst)
	w = append(w, data...)
	return t.tx("write burst", w, nil)
}

func (t *Transport) readReg(addr byte) (byte, error) {
	r := make([]byte, 2)
	if err := t.tx("read register", []byte{addr | flagRead, 0}, r); err != nil {
		return 0, err
	}
	return r[1], nil
}

func (t *Transport) readStatus(addr byte) (byte, error) {
	r := make([]byte, 2)
	if err := t.tx("read status", []byte{addr | flagRead | flagBurst, 0}, r); err != nil {
		return 0, err
	}
	return r[1], nil
}

func (t *Transport) readBurst(addr byte, n int) ([]byte, error) {
	w := make([]byte, 1+n)
	w[0] = addr | flagRead | flagBurst
	r := make([]byte, 1+n)
	if err := t.tx("read burst", w, r); err != nil {
		return nil, err
	}
	return r[1:], nil
}

func (t *Transport) tx(op string, w, r []byte) error {
	if err := t.conn.Tx(w, r); err != nil {
		return rflink.NewRadioError(op, t.busName, fmt.Errorf("%w: %w", rflink.ErrCommunicationFailed, err),
			rflink.ErrorTypeTransient)
	}
	return nil
}

var _ rflink.TransceiverContext = (*Transport)(nil)

// ChipVersion reads the VERSION register over c and reports whether it
// belongs to a CC1101. It touches no other register, so it is safe on a bus
// whose device is unknown.
func ChipVersion(c conn.Conn) (version byte, ok bool, err error) {
	t := &Transport{conn: c, busName: c.String()}
	version, err = t.readStatus(regVERSION)
	if err != nil {
		return 0, false, err
	}
	return version, chipVersions[version], nil
}
