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
	"errors"
	"fmt"
)

// Radio errors
var (
	// ErrRadioTimeout is returned when a blocking radio operation hits its deadline
	ErrRadioTimeout = errors.New("radio operation timeout")
	// ErrRadioRead is returned when reading from the transceiver fails
	ErrRadioRead = errors.New("radio read failed")
	// ErrRadioWrite is returned when writing to the transceiver fails
	ErrRadioWrite = errors.New("radio write failed")
	// ErrCommunicationFailed is returned when the transceiver stops answering
	ErrCommunicationFailed = errors.New("communication with transceiver failed")
	// ErrNoACK is returned when the transceiver does not acknowledge a command
	ErrNoACK = errors.New("no ACK received from transceiver")
	// ErrFrameCorrupted is returned when a transceiver response cannot be parsed
	ErrFrameCorrupted = errors.New("frame corrupted")
	// ErrChecksumMismatch is returned when a transceiver response fails its checksum
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrBusy is returned when the radio is asked to receive and transmit at once
	ErrBusy = errors.New("radio busy")
	// ErrNotSupported is returned for operations the platform cannot supply
	ErrNotSupported = errors.New("operation not supported by transceiver")
)

// Session and link errors
var (
	ErrDeviceNotFound   = errors.New("transceiver not found")
	ErrDataTooLarge     = errors.New("data too large")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNotOpen          = errors.New("radio session not open")
	ErrInvalidHandle    = errors.New("invalid radio handle")
	ErrClosed           = errors.New("transceiver closed")
	ErrAlreadyRunning   = errors.New("link is already running")
	ErrNotRunning       = errors.New("link is not running")
)

// Fatal startup conditions
var (
	// ErrQueueAllocation is returned when the receive queue cannot be defined.
	// It indicates a misconfigured buffer and is never retried.
	ErrQueueAllocation = errors.New("failed to allocate receive queue")
	// ErrPeripheralInit is returned when board peripherals fail to initialize
	ErrPeripheralInit = errors.New("peripheral initialization failed")
)

// ErrorType categorizes errors for retry decisions
type ErrorType int

const (
	// ErrorTypePermanent indicates an error that should not be retried
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient indicates an error that may clear on retry
	ErrorTypeTransient
	// ErrorTypeTimeout indicates a deadline was reached
	ErrorTypeTimeout
)

// String returns the error type name
func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypePermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// RadioError wraps a transceiver error with the operation and port it came from
type RadioError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

func (e *RadioError) Error() string {
	if e.Port == "" {
		return fmt.Sprintf("radio %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("radio %s on %s: %v", e.Op, e.Port, e.Err)
}

func (e *RadioError) Unwrap() error {
	return e.Err
}

// NewRadioError creates a RadioError; transient and timeout errors are retryable
func NewRadioError(op, port string, err error, errType ErrorType) *RadioError {
	return &RadioError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// NewTimeoutError creates a retryable timeout error
func NewTimeoutError(op, port string) *RadioError {
	return NewRadioError(op, port, ErrRadioTimeout, ErrorTypeTimeout)
}

// NewFrameCorruptedError creates a retryable corrupted-frame error
func NewFrameCorruptedError(op, port string) *RadioError {
	return NewRadioError(op, port, ErrFrameCorrupted, ErrorTypeTransient)
}

// NewChecksumMismatchError creates a retryable checksum error
func NewChecksumMismatchError(op, port string) *RadioError {
	return NewRadioError(op, port, ErrChecksumMismatch, ErrorTypeTransient)
}

// NewNoACKError creates a retryable missing-ACK error
func NewNoACKError(op, port string) *RadioError {
	return NewRadioError(op, port, ErrNoACK, ErrorTypeTransient)
}

// NewDataTooLargeError creates a permanent error for oversized payloads
func NewDataTooLargeError(op, port string) *RadioError {
	return NewRadioError(op, port, ErrDataTooLarge, ErrorTypePermanent)
}

// IsRetryable reports whether an error may succeed if the operation is repeated
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var radioErr *RadioError
	if errors.As(err, &radioErr) {
		return radioErr.Retryable
	}

	switch {
	case errors.Is(err, ErrRadioTimeout),
		errors.Is(err, ErrRadioRead),
		errors.Is(err, ErrRadioWrite),
		errors.Is(err, ErrCommunicationFailed),
		errors.Is(err, ErrNoACK),
		errors.Is(err, ErrFrameCorrupted),
		errors.Is(err, ErrChecksumMismatch),
		errors.Is(err, ErrBusy):
		return true
	default:
		return false
	}
}

// GetErrorType returns the category of an error
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var radioErr *RadioError
	if errors.As(err, &radioErr) {
		return radioErr.Type
	}

	switch {
	case errors.Is(err, ErrRadioTimeout):
		return ErrorTypeTimeout
	case IsRetryable(err):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}

// FatalError marks a startup failure the node cannot continue from.
// The daemon halts when Run returns one.
type FatalError struct {
	Err error
	Op  string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err is or wraps a FatalError
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

func fatal(op string, err error) error {
	if IsFatal(err) {
		return err
	}
	return &FatalError{Op: op, Err: err}
}
