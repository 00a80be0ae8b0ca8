// Copyright © 2026 The ec2-newer Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package protocol

import "strings"

// ModeType selects the low-level debug protocol family used to talk to the
// target. The two families are mutually exclusive per connection.
type ModeType int

const (
	// ModeAuto probes C2 first and falls back to JTAG by reconnecting.
	ModeAuto ModeType = iota
	ModeC2
	ModeJTAG
)

func (m ModeType) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeC2:
		return "C2"
	case ModeJTAG:
		return "JTAG"
	default:
		return "invalid mode"
	}
}

// ParseMode interprets a --mode style flag value.
func ParseMode(s string) (ModeType, bool) {
	switch strings.ToLower(s) {
	case "", "auto":
		return ModeAuto, true
	case "c2":
		return ModeC2, true
	case "jtag":
		return ModeJTAG, true
	default:
		return ModeAuto, false
	}
}

// mode is the capability set both protocol families implement. The byte
// encodings differ per family; the semantics (address ranges, return
// values) are identical. The session holds the one active implementation
// and is the only place that dispatches over it.
//
// Addresses passed to readSFR/writeSFR have already had the hardware
// fix-up applied by the session.
type mode interface {
	name() ModeType

	connectTarget() error
	disconnectTarget() error
	deviceID() (uint16, error)
	uniqueDeviceID() (uint16, error)

	readSFR(addr uint8, buf []byte) error
	writeSFR(addr uint8, data []byte) error
	readRAM(addr uint8, buf []byte) error
	writeRAM(addr uint8, data []byte) error
	readXRAM(addr uint16, buf []byte) error
	writeXRAM(addr uint16, data []byte) error

	readFlash(addr uint32, buf []byte, scratchpad bool) error
	writeFlash(addr uint32, data []byte, scratchpad bool) error
	eraseFlash() error
	eraseFlashSector(addr uint32, scratchpad bool) error

	setBreakpoint(slot int, addr uint32) error
	writeBreakpointMask(mask uint8) error

	targetGo() error
	targetHalt() error
	targetHaltPoll() (bool, error)
	targetReset() error
	coreSuspend() error

	readPC() (uint16, error)
	setPC(addr uint16) error
	step() (uint16, error)
}
