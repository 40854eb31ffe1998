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

/*
Package rflink implements the reply side of a half-duplex sub-GHz radio link.

A node listens for request frames from its peer, adapts its transmit power and
reply length to each request, and answers with a fixed-layout frame carrying
its identity, an echo of the request's RSSI and the link quality it measured.
Two tasks share one radio session: the receive task decodes and adapts, the
transmit task stamps the link quality and sends. They take strict turns by
passing the one outbound buffer between them.

Features:
  - Byte-exact frame codec (see the frame package)
  - UART bridge, SPI CC1101 and in-memory simulator transceivers
  - Per-request power and length adaptation
  - Structured logging with log/slog
  - TOML and YAML configuration with environment overrides
  - Retry logic with configurable backoff for radio configuration calls

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-rflink"
	    "github.com/ZaparooProject/go-rflink/transport/uart"
	)

	radio, err := uart.New("/dev/ttyACM0")
	if err != nil {
	    log.Fatal(err)
	}

	link, err := rflink.NewLink(radio,
	    rflink.WithLogger(slog.Default()),
	    rflink.WithTransmitTimeout(500*time.Millisecond),
	)
	if err != nil {
	    log.Fatal(err)
	}

	// Run blocks until ctx is cancelled or a fatal error occurs
	if err := link.Run(ctx); rflink.IsFatal(err) {
	    log.Fatal(err)
	}

Transceiver Selection:

  - UART: radio bridge firmware on a USB serial port
  - SPI: CC1101 wired to the host SPI bus with GDO0 on a GPIO
  - Sim: in-memory radio for bring-up and tests

Error Handling:

Startup failures (receive queue, radio open, indicator init) are returned as
*FatalError and end the link. Everything after startup is counted and logged,
and the link keeps listening. A transmit that does not complete is reported
through WithTxFailureHook and never retried.

	if errors.Is(err, rflink.ErrQueueAllocation) {
	    // misconfigured receive buffer
	}

Thread Safety:

Link and Session are safe for concurrent use. Drivers are only ever called
with the session's radio lock held.
*/
package rflink
