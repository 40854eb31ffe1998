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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	rflink "github.com/ZaparooProject/go-rflink"
	"github.com/ZaparooProject/go-rflink/indicator"
	"github.com/ZaparooProject/go-rflink/transport/sim"
)

type runFlags struct {
	radio        radioFlags
	ledRx        string
	ledTx        string
	peerInterval time.Duration
	seed         uint64
}

func runCmd(g *globalFlags) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the reply link until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLink(cmd.Context(), g, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.radio.transport, "transport", "", "Transceiver: sim, uart or spi (default: detect)")
	fl.StringVar(&f.radio.device, "device", "", "Serial port or SPI bus of the radio")
	fl.StringVar(&f.radio.spiBus, "spi-bus", "", "SPI bus name (e.g. SPI0.0)")
	fl.StringVar(&f.radio.gdo0, "gdo0", "", "GPIO pin wired to the CC1101 GDO0 output")
	fl.StringVar(&f.ledRx, "led-rx", "", "GPIO pin of the receive LED")
	fl.StringVar(&f.ledTx, "led-tx", "", "GPIO pin of the transmit LED")
	fl.DurationVar(&f.peerInterval, "peer-interval", 200*time.Millisecond, "Request interval of the simulated peer")
	fl.Uint64Var(&f.seed, "seed", 1, "Seed of the simulated peer")
	return cmd
}

func runLink(ctx context.Context, g *globalFlags, f *runFlags) error {
	logger, closer := newLogger(os.Stderr, g.logFile, g.debug)
	defer func() { _ = closer.Close() }()

	cfg, err := rflink.LoadConfig(g.configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver, simRadio, err := newTransceiver(ctx, f.radio, cfg)
	if err != nil {
		return err
	}

	var ind rflink.Indicator = indicator.Nop{}
	if f.ledRx != "" || f.ledTx != "" {
		ind = indicator.NewGPIO(f.ledRx, f.ledTx)
	}

	link, err := rflink.NewLink(driver,
		rflink.WithConfig(cfg),
		rflink.WithLogger(logger),
		rflink.WithIndicator(ind),
		rflink.WithRetryConfig(rflink.DefaultRetryConfig()),
		rflink.WithCycleHook(func(r rflink.CycleReport) {
			logger.Debug("reply sent",
				"cycle", r.Cycle,
				"request", r.Inbound.String(),
				"len", len(r.Reply),
				"lqi", r.LinkQuality,
				"latency", r.Latency)
		}),
	)
	if err != nil {
		_ = driver.Close()
		return err
	}

	peerDone := make(chan struct{})
	if simRadio != nil {
		peer := sim.NewPeer(simRadio, logger.With("component", "peer"), f.seed)
		peer.Interval = f.peerInterval
		go func() {
			defer close(peerDone)
			_ = peer.Run(ctx)
		}()
	} else {
		close(peerDone)
	}

	logger.Info("link starting",
		"transport", driver.Type(),
		"frequency_hz", cfg.FrequencyHz,
		"node", cfg.NodeAddress)

	err = link.Run(ctx)
	stop()
	<-peerDone

	m := link.Metrics()
	logger.Info("link summary",
		"cycles", m.Cycles,
		"frames", m.FramesReceived,
		"short_frames", m.ShortFrames,
		"tx_failures_ignored", m.TxFailuresIgnored)

	if rflink.IsFatal(err) {
		return err
	}
	return nil
}
