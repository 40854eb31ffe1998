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

package spi

// CC1101 command strobes
const (
	strobeReset     = 0x30
	strobeCalibrate = 0x33
	strobeRX        = 0x34
	strobeTX        = 0x35
	strobeIdle      = 0x36
	strobeFlushRX   = 0x3A
	strobeFlushTX   = 0x3B
	strobePowerDown = 0x39
)

// Header bits of the first byte of every SPI transaction
const (
	flagRead  = 0x80
	flagBurst = 0x40
)

// Configuration registers
const (
	regIOCFG0   = 0x02
	regFIFOTHR  = 0x03
	regPKTLEN   = 0x06
	regPKTCTRL1 = 0x07
	regPKTCTRL0 = 0x08
	regFSCTRL1  = 0x0B
	regFREQ2    = 0x0D
	regMDMCFG4  = 0x10
	regMDMCFG3  = 0x11
	regMDMCFG2  = 0x12
	regDEVIATN  = 0x15
	regMCSM1    = 0x17
	regMCSM0    = 0x18
	regFOCCFG   = 0x19
	regLastCfg  = 0x2E
	regPATABLE  = 0x3E
	regFIFO     = 0x3F
)

// Status registers, read with the burst bit set
const (
	regPARTNUM   = 0x30
	regVERSION   = 0x31
	regLQI       = 0x33
	regMARCSTATE = 0x35
	regRXBYTES   = 0x3B
	regLastStat  = 0x3D
)

// MARCSTATE values
const (
	marcIdle            = 0x01
	marcTXUnderflow     = 0x16
	marcStateMask       = 0x1F
	fifoOverflowFlag    = 0x80
	fifoBytesMask       = 0x7F
	statusCRCOK         = 0x80
	statusLQIMask       = 0x7F
	crystalHz           = 26_000_000
	appendedStatusBytes = 2
)

// LQIRegister is the status register holding the last packet's link quality.
// Point rflink.Config.LQIRegister here when using this driver.
const LQIRegister = regLQI

// chipVersions lists the VERSION values of known CC1101 silicon
var chipVersions = map[byte]bool{0x04: true, 0x07: true, 0x14: true}

type regValue struct {
	addr  byte
	value byte
}

// baseSettings is a 38.4 kBaud GFSK profile. GDO0 asserts on sync word and
// deasserts at the end of the packet; the radio returns to idle after both
// receive and transmit.
var baseSettings = []regValue{
	{regIOCFG0, 0x06},
	{regFIFOTHR, 0x47},
	{regPKTCTRL1, 0x04}, // APPEND_STATUS
	{regPKTCTRL0, 0x05}, // CRC, variable length
	{regFSCTRL1, 0x06},
	{regMDMCFG4, 0xCA},
	{regMDMCFG3, 0x83},
	{regMDMCFG2, 0x13},
	{regDEVIATN, 0x35},
	{regMCSM1, 0x30},
	{regMCSM0, 0x18},
	{regFOCCFG, 0x16},
}

// frequencyWord converts Hz to the 24-bit FREQ2..FREQ0 value
func frequencyWord(hz uint32) [3]byte {
	w := (uint64(hz) << 16) / crystalHz
	return [3]byte{byte(w >> 16), byte(w >> 8), byte(w)}
}

// rssiDBm converts the raw RSSI byte the radio appends to dBm
func rssiDBm(raw byte) int8 {
	dbm := int(int8(raw))/2 - 74
	if dbm < -128 {
		dbm = -128
	}
	return int8(dbm)
}
