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
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/setarcos/ec2-newer/target"
)

// SFR page-select register, present on paged-SFR devices.
const sfrPageReg = 0x84

// numBreakpoints is the hardware comparator count; all supported devices
// have four.
const numBreakpoints = 4

// ProgressFunc receives coarse completion milestones (0-100) during long
// flash operations. It runs synchronously on the calling goroutine and must
// not re-enter the session.
type ProgressFunc func(percent uint8)

// Session is one connection to a debug adaptor and, through it, a target
// device. A session is owned by a single goroutine: the wire protocol is
// half duplex, and interleaved operations from two callers desynchronise
// the reply stream beyond recovery. Serialise access externally if needed.
type Session struct {
	transport Transport
	ch        *Channel
	impl      mode

	adaptor   AdaptorType
	modeReq   ModeType // mode requested at connect, may be ModeAuto
	dev       *target.Definition
	port      string
	connected bool

	bpAddr [numBreakpoints]uint32
	bpMask uint8

	progress   uint8
	progressFn ProgressFunc

	debug bool
	log   *logrus.Entry
}

// NewSession creates a disconnected session. Connect populates it.
func NewSession() *Session {
	return &Session{
		log: logrus.WithField("pkg", "protocol"),
	}
}

// SetDebug enables wire-level trace logging for this session.
func (s *Session) SetDebug(on bool) {
	s.debug = on
	if s.ch != nil {
		s.ch.SetTrace(on)
	}
}

// SetProgressFunc installs the progress callback. A nil callback disables
// reporting.
func (s *Session) SetProgressFunc(fn ProgressFunc) {
	s.progressFn = fn
}

// Progress returns the last reported completion percentage.
func (s *Session) Progress() uint8 {
	return s.progress
}

func (s *Session) updateProgress(percent uint8) {
	s.progress = percent
	if s.progressFn != nil {
		s.progressFn(percent)
	}
}

// Connected reports whether Connect has completed and Disconnect has not
// yet run.
func (s *Session) Connected() bool {
	return s.connected
}

// Adaptor returns the generation of the connected adaptor.
func (s *Session) Adaptor() AdaptorType {
	return s.adaptor
}

// Mode returns the debug mode the session settled on at connect time.
func (s *Session) Mode() ModeType {
	if s.impl == nil {
		return ModeAuto
	}
	return s.impl.name()
}

// Device returns the resolved device profile, nil before connect.
func (s *Session) Device() *target.Definition {
	return s.dev
}

func (s *Session) requireConnected() error {
	if !s.connected || s.impl == nil {
		return ErrNotConnected
	}
	return nil
}

// sfrFixup translates the SFR addresses the debug hardware misreports.
// Accessing PSW (0xD0) and ACC (0xE0) at their datasheet addresses returns
// wrong data on every supported device; the debug circuit exposes them low
// in the register file instead. Applies to both protocol families.
func sfrFixup(addr uint8) uint8 {
	switch addr {
	case 0xD0:
		return 0x23
	case 0xE0:
		return 0x22
	default:
		return addr
	}
}

// ReadSFR reads one Special Function Register. addr must be 0x80-0xFF.
func (s *Session) ReadSFR(addr uint8) (uint8, error) {
	if err := s.requireConnected(); err != nil {
		return 0, err
	}
	if addr < 0x80 {
		return 0, fmt.Errorf("address 0x%02x is not in the SFR space", addr)
	}
	var buf [1]byte
	if err := s.impl.readSFR(sfrFixup(addr), buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// WriteSFR writes one Special Function Register. addr must be 0x80-0xFF.
// Some SFRs accept the write but take no effect; this is a limitation of
// the debug hardware, not of the driver.
func (s *Session) WriteSFR(addr, value uint8) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	if addr < 0x80 {
		return fmt.Errorf("address 0x%02x is not in the SFR space", addr)
	}
	return s.impl.writeSFR(sfrFixup(addr), []byte{value})
}

// SFRReg names a paged Special Function Register.
type SFRReg struct {
	Page uint8
	Addr uint8
}

// ReadPagedSFR reads an SFR on a specific page, saving and restoring the
// page-select register around the access. On devices without paged SFRs
// the page is ignored.
func (s *Session) ReadPagedSFR(reg SFRReg) (uint8, error) {
	if err := s.requireConnected(); err != nil {
		return 0, err
	}
	if !s.dev.HasPagedSFR {
		return s.ReadSFR(reg.Addr)
	}

	saved, err := s.ReadSFR(sfrPageReg)
	if err != nil {
		return 0, err
	}
	if err := s.WriteSFR(sfrPageReg, reg.Page); err != nil {
		return 0, err
	}
	value, err := s.ReadSFR(reg.Addr)
	if restoreErr := s.WriteSFR(sfrPageReg, saved); err == nil {
		err = restoreErr
	}
	return value, err
}

// WritePagedSFR writes an SFR on a specific page.
func (s *Session) WritePagedSFR(reg SFRReg, value uint8) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	if !s.dev.HasPagedSFR {
		return s.WriteSFR(reg.Addr, value)
	}

	saved, err := s.ReadSFR(sfrPageReg)
	if err != nil {
		return err
	}
	if err := s.WriteSFR(sfrPageReg, reg.Page); err != nil {
		return err
	}
	err = s.WriteSFR(reg.Addr, value)
	if restoreErr := s.WriteSFR(sfrPageReg, saved); err == nil {
		err = restoreErr
	}
	return err
}

func checkDirectRange(addr uint8, n int) error {
	if n == 0 || int(addr)+n-1 > 0xFF {
		return fmt.Errorf("direct range [0x%02x, +%d] exceeds 0xFF", addr, n)
	}
	return nil
}

// ReadRAM reads from internal data RAM (0x00-0xFF).
func (s *Session) ReadRAM(addr uint8, buf []byte) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	if err := checkDirectRange(addr, len(buf)); err != nil {
		return err
	}
	return s.impl.readRAM(addr, buf)
}

// WriteRAM writes to internal data RAM (0x00-0xFF).
func (s *Session) WriteRAM(addr uint8, data []byte) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	if err := checkDirectRange(addr, len(data)); err != nil {
		return err
	}
	return s.impl.writeRAM(addr, data)
}

// ReadXRAM reads from external/extended data memory (0x0000-0xFFFF).
func (s *Session) ReadXRAM(addr uint16, buf []byte) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	if len(buf) == 0 || int(addr)+len(buf)-1 > 0xFFFF {
		return fmt.Errorf("xdata range [0x%04x, +%d] exceeds 0xFFFF", addr, len(buf))
	}
	return s.impl.readXRAM(addr, buf)
}

// WriteXRAM writes to external/extended data memory (0x0000-0xFFFF).
func (s *Session) WriteXRAM(addr uint16, data []byte) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	if len(data) == 0 || int(addr)+len(data)-1 > 0xFFFF {
		return fmt.Errorf("xdata range [0x%04x, +%d] exceeds 0xFFFF", addr, len(data))
	}
	return s.impl.writeXRAM(addr, data)
}

// DeviceID reads the 16-bit device identity (family byte high, revision
// byte low).
func (s *Session) DeviceID() (uint16, error) {
	if err := s.requireConnected(); err != nil {
		return 0, err
	}
	return s.impl.deviceID()
}

// UniqueDeviceID reads the device's unique identity value, used to select
// closer-matching device profiles.
func (s *Session) UniqueDeviceID() (uint16, error) {
	if err := s.requireConnected(); err != nil {
		return 0, err
	}
	return s.impl.uniqueDeviceID()
}

// CoreSuspend suspends the target core.
func (s *Session) CoreSuspend() error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	return s.impl.coreSuspend()
}
