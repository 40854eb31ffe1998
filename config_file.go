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
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings
const (
	EnvNodeAddress      = "RFLINK_NODE_ADDRESS"
	EnvDeviceID         = "RFLINK_DEVICE_ID"
	EnvFrequencyHz      = "RFLINK_FREQUENCY_HZ"
	EnvMaxPayloadLength = "RFLINK_MAX_PAYLOAD_LENGTH"
	EnvReceiveTimeout   = "RFLINK_RECEIVE_TIMEOUT"
	EnvTransmitTimeout  = "RFLINK_TRANSMIT_TIMEOUT"
)

// LoadConfig reads a TOML or YAML file (chosen by extension) over the
// defaults, applies RFLINK_* environment overrides and validates the result.
// An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			if _, err := toml.Decode(string(data), cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		default:
			return nil, fmt.Errorf("%w: unknown config format %q", ErrInvalidParameter, filepath.Ext(path))
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvNodeAddress); v != "" {
		n, err := strconv.ParseUint(v, 0, 8)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvNodeAddress, err)
		}
		cfg.NodeAddress = byte(n)
	}
	if v := os.Getenv(EnvDeviceID); v != "" {
		// a single character is taken literally, anything else as a number
		if len(v) == 1 {
			cfg.DeviceID = v[0]
		} else {
			n, err := strconv.ParseUint(v, 0, 8)
			if err != nil {
				return fmt.Errorf("%s: %w", EnvDeviceID, err)
			}
			cfg.DeviceID = byte(n)
		}
	}
	if v := os.Getenv(EnvFrequencyHz); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvFrequencyHz, err)
		}
		cfg.FrequencyHz = uint32(n)
	}
	if v := os.Getenv(EnvMaxPayloadLength); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxPayloadLength, err)
		}
		cfg.MaxPayloadLength = n
	}
	if v := os.Getenv(EnvReceiveTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvReceiveTimeout, err)
		}
		cfg.ReceiveTimeout = d
	}
	if v := os.Getenv(EnvTransmitTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTransmitTimeout, err)
		}
		cfg.TransmitTimeout = d
	}
	return nil
}
