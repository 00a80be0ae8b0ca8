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

import (
	"errors"
	"fmt"
)

var (
	ErrTimeout      = errors.New("Read timed out")
	ErrNotConnected = errors.New("Not connected to an adaptor")
	ErrNoTarget     = errors.New("Debug adaptor not connected to a microprocessor")

	ErrBreakpointTableFull  = errors.New("All hardware breakpoint slots in use")
	ErrBreakpointNotFound   = errors.New("No breakpoint set at address")
	ErrDuplicateBreakpoint  = errors.New("Breakpoint already set at address")
	ErrTargetWouldNotStop   = errors.New("Target would not stop after halt request")
	ErrScratchpadNotPresent = errors.New("Device has no scratchpad flash")
	ErrWrongLockType        = errors.New("Device does not have this flash lock scheme")
	ErrCancelled            = errors.New("Cancelled by caller")
)

// MismatchError reports an exchange whose reply did not match the expected
// bytes. The channel state after a mismatch is undefined, so these are never
// retried automatically.
type MismatchError struct {
	Tx   []byte
	Want []byte
	Got  []byte
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("Reply mismatch for % 02x: got % 02x, want % 02x",
		e.Tx, e.Got, e.Want)
}

// RangeError reports a flash or scratchpad access that falls outside the
// device's memory or intersects its reserved region. It is raised before any
// bytes reach the wire.
type RangeError struct {
	Region string
	Addr   uint32
	Len    uint32
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("Invalid %s range [0x%05x, 0x%05x]",
		e.Region, e.Addr, e.Addr+e.Len-1)
}

// IncompatibleFirmwareError reports adaptor firmware older than the minimum
// this driver can talk to.
type IncompatibleFirmwareError struct {
	Adaptor AdaptorType
	Version uint8
	Min     uint8
	Max     uint8
}

func (e *IncompatibleFirmwareError) Error() string {
	return fmt.Sprintf("Incompatible %s firmware version 0x%02x, versions 0x%02x to 0x%02x are supported",
		e.Adaptor, e.Version, e.Min, e.Max)
}
