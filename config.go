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
	"fmt"
	"time"

	"github.com/ZaparooProject/go-rflink/frame"
)

// Config holds the node identity and radio parameters. The zero value is
// not usable; start from DefaultConfig.
type Config struct {
	// NodeAddress is written to byte 0 of every reply
	NodeAddress byte `toml:"node_address" yaml:"node_address"`
	// ControlByte is written to byte 1 of every reply (peer LED bitmask)
	ControlByte byte `toml:"control_byte" yaml:"control_byte"`
	// DeviceID is written to byte 2 of every reply
	DeviceID byte `toml:"device_id" yaml:"device_id"`

	// PowerDefaultCode and PowerHighCode are the radio-specific encodings
	// programmed for PowerDefault and PowerHigh.
	PowerDefaultCode uint16 `toml:"power_default_code" yaml:"power_default_code"`
	PowerHighCode    uint16 `toml:"power_high_code" yaml:"power_high_code"`

	MaxPayloadLength int    `toml:"max_payload_length" yaml:"max_payload_length"`
	FrequencyHz      uint32 `toml:"frequency_hz" yaml:"frequency_hz"`

	// LQIRegister is the register read for link quality before each reply
	LQIRegister uint16 `toml:"lqi_register" yaml:"lqi_register"`

	RxQueueEntries int `toml:"rx_queue_entries" yaml:"rx_queue_entries"`
	// RxBufferSize overrides the receive queue buffer size. 0 sizes it to fit.
	RxBufferSize int `toml:"rx_buffer_size" yaml:"rx_buffer_size"`

	// Task priorities. The receive task must outrank the transmit task.
	RxTaskPriority int `toml:"rx_task_priority" yaml:"rx_task_priority"`
	TxTaskPriority int `toml:"tx_task_priority" yaml:"tx_task_priority"`

	// ReceiveTimeout bounds one listen. 0 waits forever.
	ReceiveTimeout  time.Duration `toml:"receive_timeout" yaml:"receive_timeout"`
	TransmitTimeout time.Duration `toml:"transmit_timeout" yaml:"transmit_timeout"`
}

// DefaultConfig returns the configuration matching the deployed peer
func DefaultConfig() *Config {
	return &Config{
		NodeAddress:      0x01,
		ControlByte:      0x04,
		DeviceID:         'd',
		PowerDefaultCode: 0x0041,
		PowerHighCode:    0x38D3,
		MaxPayloadLength: frame.MaxLength,
		FrequencyHz:      868_000_000,
		LQIRegister:      0x5268,
		RxQueueEntries:   2,
		RxTaskPriority:   3,
		TxTaskPriority:   2,
		ReceiveTimeout:   0,
		TransmitTimeout:  time.Second,
	}
}

// Validate checks the configuration for values the link cannot run with
func (c *Config) Validate() error {
	if c.MaxPayloadLength < frame.OutboundHeaderSize || c.MaxPayloadLength > frame.LengthLimit {
		return fmt.Errorf("%w: max payload length %d outside [%d, %d]",
			ErrInvalidParameter, c.MaxPayloadLength, frame.OutboundHeaderSize, frame.LengthLimit)
	}
	if c.RxQueueEntries < 1 {
		return fmt.Errorf("%w: rx queue needs at least one entry", ErrInvalidParameter)
	}
	if c.RxBufferSize < 0 {
		return fmt.Errorf("%w: negative rx buffer size", ErrInvalidParameter)
	}
	if c.RxTaskPriority <= c.TxTaskPriority {
		return fmt.Errorf("%w: rx priority %d must be above tx priority %d",
			ErrInvalidParameter, c.RxTaskPriority, c.TxTaskPriority)
	}
	if c.FrequencyHz == 0 {
		return fmt.Errorf("%w: frequency not set", ErrInvalidParameter)
	}
	if c.ReceiveTimeout < 0 || c.TransmitTimeout < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalidParameter)
	}
	return nil
}

// PowerCode returns the radio encoding for level
func (c *Config) PowerCode(level frame.PowerLevel) uint16 {
	if level == frame.PowerHigh {
		return c.PowerHighCode
	}
	return c.PowerDefaultCode
}

// OutboundFields returns the reply header fields fixed by this configuration
func (c *Config) OutboundFields() frame.OutboundFields {
	return frame.OutboundFields{
		Address:  c.NodeAddress,
		Control:  c.ControlByte,
		DeviceID: c.DeviceID,
	}
}

// rxEntrySize is the size of one receive queue entry
func (c *Config) rxEntrySize() int {
	return c.MaxPayloadLength + appendedBytes
}

// rxBufferSize is the receive queue buffer size, computed when not set
func (c *Config) rxBufferSize() int {
	if c.RxBufferSize > 0 {
		return c.RxBufferSize
	}
	return c.RxQueueEntries * c.rxEntrySize()
}
