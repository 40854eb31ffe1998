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
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ZaparooProject/go-rflink/detection"
)

func portsCmd(_ *globalFlags) *cobra.Command {
	var (
		probe  bool
		ignore []string
	)
	cmd := &cobra.Command{
		Use:   "ports",
		Short: "List radios attached to this host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := detection.DefaultOptions()
			opts.IgnorePaths = ignore
			if probe {
				opts.Mode = detection.Safe
			}

			devices, err := detection.DetectAllContext(cmd.Context(), &opts)
			if errors.Is(err, detection.ErrNoDevicesFound) && len(devices) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no radios found")
				return nil
			}
			if err != nil {
				return err
			}
			return printDevices(cmd, devices)
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", false, "Open each candidate and check that a radio answers")
	cmd.Flags().StringSliceVar(&ignore, "ignore", nil, "Device paths to skip")
	return cmd
}

func printDevices(cmd *cobra.Command, devices []detection.DeviceInfo) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TRANSPORT\tPATH\tCONFIDENCE\tNAME")
	for _, d := range devices {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Transport, d.Path, d.Confidence, d.Name)
	}
	return w.Flush()
}
