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

	"github.com/setarcos/ec2-newer/target"
)

// Device identity sentinels. All-ones is what a C2 probe of a JTAG-only
// device reads; 0xFF00 is reported when no processor is wired to the
// adaptor at all.
const (
	identityNoC2    = 0xFFFF
	identityNoChip  = 0xFF00
	ec2HandshakeTx  = 0x55
	ec2HandshakeRx  = 0x5A
	bootPageAppEC2  = 0x03
	bootPageAppEC3  = 0x0C
)

// openTransport is swapped out by tests to substitute a simulated adaptor.
var openTransport = OpenTransport

// Connect opens the adaptor named by port and brings the target under
// debugger control. mode may be ModeAuto, in which case C2 is probed first
// and the connection is torn down and reopened once in JTAG if the probe
// reads the all-ones identity. On success the session is Connected and the
// target is halted at its reset vector.
//
// Disconnect must be called before process exit: the EC3 is left in an
// undefined state for the next session otherwise.
func (s *Session) Connect(port string, mode ModeType) error {
	s.port = port
	s.modeReq = mode
	s.progress = 0

	if mode == ModeAuto {
		s.log.Warn("Auto mode detection may differ from the vendor IDE bring-up; " +
			"specify C2 or JTAG if the connection misbehaves")
	}

	return s.connect(port, mode, mode == ModeAuto)
}

func (s *Session) connect(port string, mode ModeType, allowFallback bool) error {
	t, adaptor, err := openTransport(port)
	if err != nil {
		return fmt.Errorf("connect %s: %w", port, err)
	}

	s.transport = t
	s.adaptor = adaptor
	s.ch = NewChannel(t)
	s.ch.SetTrace(s.debug)
	s.connected = true

	if err := s.bringUp(); err != nil {
		s.teardown()
		return err
	}

	probe := mode
	if probe == ModeAuto {
		probe = ModeC2
	}
	s.impl = s.newMode(probe)

	if err := s.impl.connectTarget(); err != nil {
		s.teardown()
		return err
	}

	idrev, err := s.impl.deviceID()
	if err != nil {
		s.teardown()
		return err
	}

	if mode == ModeAuto && idrev == identityNoC2 && allowFallback {
		// The device does not answer C2; presume JTAG. Switching
		// families on a live connection is unreliable, so restart
		// the whole connection in JTAG. One attempt only.
		s.log.Info("No C2 device found, reconnecting in JTAG mode")
		s.Disconnect()
		return s.connect(port, ModeJTAG, false)
	}

	if idrev == identityNoChip || idrev == identityNoC2 {
		s.teardown()
		return ErrNoTarget
	}

	if err := s.resolveDevice(idrev); err != nil {
		s.teardown()
		return err
	}

	if err := s.impl.targetReset(); err != nil {
		s.teardown()
		return err
	}

	s.log.Infof("Connected to %s via %s in %s mode", s.dev, s.adaptor, s.Mode())
	return nil
}

func (s *Session) newMode(m ModeType) mode {
	if m == ModeJTAG {
		return newJTAGMode(s.ch)
	}
	return newC2Mode(s.ch)
}

// bringUp walks the adaptor from power-on to a running debug application
// and gates on its firmware version.
func (s *Session) bringUp() error {
	if err := s.transport.HardwareReset(); err != nil {
		return err
	}

	appPage := uint8(bootPageAppEC3)
	if s.adaptor == EC2 {
		appPage = bootPageAppEC2
		// Fixed handshake confirming the bootloader is listening.
		if err := s.ch.Exchange(
			[]byte{ec2HandshakeTx}, []byte{ec2HandshakeRx}); err != nil {
			return fmt.Errorf("EC2 handshake: %w", err)
		}
	}

	bootVer, err := bootGetVersion(s.ch)
	if err != nil {
		return err
	}
	s.log.Debugf("%s bootloader version 0x%02x", s.adaptor, bootVer)

	if err := bootSelectFlashPage(s.ch, appPage); err != nil {
		return err
	}

	fwVer, err := bootRunApp(s.ch)
	if err != nil {
		return err
	}
	s.log.Infof("%s firmware version 0x%02x", s.adaptor, fwVer)

	min, max := firmwareWindow(s.adaptor)
	if fwVer < min {
		return &IncompatibleFirmwareError{
			Adaptor: s.adaptor, Version: fwVer, Min: min, Max: max,
		}
	}
	if fwVer > max {
		s.log.Warnf("%s firmware 0x%02x is newer than the tested versions "+
			"(0x%02x to 0x%02x); proceeding anyway", s.adaptor, fwVer, min, max)
	}
	return nil
}

// resolveDevice maps the identity words onto a device profile. The unique
// identity selects derivative-level profiles where the family identity is
// ambiguous.
func (s *Session) resolveDevice(idrev uint16) error {
	dev := target.ByID(uint8(idrev>>8), uint8(idrev))

	if uid, err := s.impl.uniqueDeviceID(); err == nil {
		if d := target.ByUniqueID(uid); d != nil {
			dev = d
		}
	}

	if dev == nil {
		return fmt.Errorf("unsupported device, identity 0x%04x", idrev)
	}
	s.dev = dev
	return nil
}

// Disconnect releases the adaptor. For the EC3 the target is detached and
// the adaptor parked in its idle state first; skipping that leaves it
// answering the next session with garbage until replugged. Safe to call on
// a session that never connected.
func (s *Session) Disconnect() {
	if !s.connected {
		return
	}
	s.connected = false

	if s.adaptor == EC3 {
		if s.impl != nil {
			s.impl.disconnectTarget()
		}
		if p, ok := s.transport.(interface{ park() error }); ok {
			if err := p.park(); err != nil {
				s.log.Warnf("Parking adaptor failed: %v", err)
			}
		}
	}

	s.teardown()
}

func (s *Session) teardown() {
	if s.transport != nil {
		s.transport.Close()
	}
	s.transport = nil
	s.ch = nil
	s.impl = nil
	s.dev = nil
	s.connected = false
	s.bpMask = 0
	s.bpAddr = [numBreakpoints]uint32{}
}
