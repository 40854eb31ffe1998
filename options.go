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
	"log/slog"
	"time"
)

// Option is a functional option for configuring a Link
type Option func(*Link) error

// WithConfig replaces the whole configuration. Options applied after it
// adjust the copy.
func WithConfig(config *Config) Option {
	return func(l *Link) error {
		if config == nil {
			return errors.New("config cannot be nil")
		}
		cfg := *config
		l.config = &cfg
		return nil
	}
}

// WithLogger sets the structured logger for link events
func WithLogger(logger *slog.Logger) Option {
	return func(l *Link) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		l.logger = logger
		return nil
	}
}

// WithIndicator sets the status indicator toggled on receive and transmit
func WithIndicator(indicator Indicator) Option {
	return func(l *Link) error {
		if indicator == nil {
			indicator = nopIndicator{}
		}
		l.indicator = indicator
		return nil
	}
}

// WithTxFailureHook registers a callback for transmit results that were not OK
func WithTxFailureHook(hook func(TxFailure)) Option {
	return func(l *Link) error {
		l.onTxFailure = hook
		return nil
	}
}

// WithCycleHook registers a callback run after every completed reply
func WithCycleHook(hook func(CycleReport)) Option {
	return func(l *Link) error {
		l.onCycle = hook
		return nil
	}
}

// WithReceiveTimeout bounds one listen; 0 waits forever
func WithReceiveTimeout(timeout time.Duration) Option {
	return func(l *Link) error {
		if timeout < 0 {
			return ErrInvalidParameter
		}
		l.config.ReceiveTimeout = timeout
		return nil
	}
}

// WithTransmitTimeout bounds one transmit
func WithTransmitTimeout(timeout time.Duration) Option {
	return func(l *Link) error {
		if timeout < 0 {
			return ErrInvalidParameter
		}
		l.config.TransmitTimeout = timeout
		return nil
	}
}

// WithRetryConfig wraps the driver so its configuration calls are retried
func WithRetryConfig(config *RetryConfig) Option {
	return func(l *Link) error {
		if tr, ok := l.driver.(*TransceiverWithRetry); ok {
			tr.SetRetryConfig(config)
			return nil
		}
		l.driver = NewTransceiverWithRetry(l.driver, config)
		return nil
	}
}
