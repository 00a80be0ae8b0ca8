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
	"testing"

	"github.com/setarcos/ec2-newer/target"
	_ "github.com/setarcos/ec2-newer/target/all"
)

// simAdaptor models an adaptor with an attached device well enough to
// exercise the full session surface: the bootloader bring-up, both
// protocol families, and a flash that can only clear bits on write.
type simAdaptor struct {
	adaptor AdaptorType
	bootVer uint8
	fwVer   uint8

	// Chip identity. c2 selects which family the chip answers; a C2
	// identity probe of a JTAG chip reads all ones. noChip makes the
	// identity read as if nothing is wired to the adaptor.
	id, rev uint8
	uid     uint16
	c2      bool
	noChip  bool

	appRunning bool
	opens      int
	closes     int
	resets     int

	flash      []byte
	scratch    []byte
	sectorSize uint32
	scratchSec uint32

	sfr  [0x100]byte
	ram  [0x100]byte
	xram [0x10000]byte

	pc     uint16
	halted bool

	// Polls left before a pending stop lands. stopLatency is armed into
	// pendingStop by a halt command; goStopAfter by a go command, to
	// model a breakpoint hit.
	pendingStop int
	stopLatency int
	goStopAfter int

	bpAddr [4]uint32
	bpMask uint8

	sends    int
	failNext error // next Send fails with this, once

	rx []byte
}

func newSimAdaptor(dev *target.Definition) *simAdaptor {
	s := &simAdaptor{
		adaptor:    EC2,
		bootVer:    0x02,
		fwVer:      minEC2Version,
		id:         dev.ID,
		rev:        0x01,
		uid:        0x1234,
		c2:         dev.C2,
		sectorSize: dev.FlashSectorSize,
		flash:      make([]byte, dev.FlashSize),
		halted:     true,
	}
	for i := range s.flash {
		s.flash[i] = 0xFF
	}
	if dev.HasScratchpad {
		s.scratch = make([]byte, dev.ScratchpadLen)
		s.scratchSec = dev.ScratchpadSectorSize
		for i := range s.scratch {
			s.scratch[i] = 0xFF
		}
	}
	return s
}

// install points the session connect path at this simulator and restores
// the real transport opener on test cleanup.
func (s *simAdaptor) install(t *testing.T) {
	t.Helper()
	saved := openTransport
	openTransport = func(port string) (Transport, AdaptorType, error) {
		s.opens++
		return s, s.adaptor, nil
	}
	t.Cleanup(func() { openTransport = saved })
}

func (s *simAdaptor) reply(b ...byte) {
	s.rx = append(s.rx, b...)
}

func (s *simAdaptor) identity() (uint8, uint8) {
	if s.noChip {
		return 0xFF, 0x00
	}
	return s.id, s.rev
}

func (s *simAdaptor) Send(buf []byte) error {
	if len(buf) == 0 {
		return fmt.Errorf("sim: empty send")
	}
	s.sends++
	if err := s.failNext; err != nil {
		s.failNext = nil
		return err
	}

	if !s.appRunning {
		return s.bootCommand(buf)
	}

	op := buf[0]
	switch {
	case op >= 0x20:
		return s.c2Command(buf)
	default:
		return s.jtagCommand(buf)
	}
}

func (s *simAdaptor) bootCommand(buf []byte) error {
	switch buf[0] {
	case ec2HandshakeTx:
		if len(buf) == 1 && s.adaptor == EC2 {
			s.reply(ec2HandshakeRx)
			return nil
		}
	case bootCmdGetVersion:
		s.reply(s.bootVer)
		return nil
	case bootCmdSelectFlashPage:
		s.reply(bootAck)
		return nil
	case bootCmdRunApp:
		s.appRunning = true
		s.reply(s.fwVer)
		return nil
	}
	return fmt.Errorf("sim: bad bootloader command % 02x", buf)
}

func (s *simAdaptor) pollStatus() byte {
	if s.pendingStop > 0 {
		s.pendingStop--
		if s.pendingStop == 0 {
			s.halted = true
		}
	}
	if s.halted {
		return 0x01
	}
	return 0x00
}

func (s *simAdaptor) haltRequest() {
	if s.stopLatency > 0 {
		s.pendingStop = s.stopLatency
	} else if s.stopLatency == 0 {
		s.halted = true
	}
	// Negative latency: the target refuses to stop.
}

func (s *simAdaptor) goRequest() {
	s.halted = false
	s.pendingStop = s.goStopAfter
}

func (s *simAdaptor) c2Command(buf []byte) error {
	switch buf[0] {
	case c2CmdConnect, c2CmdDisconnect:
		s.reply(0x0D)
	case c2CmdDeviceID:
		if !s.c2 && !s.noChip {
			s.reply(0xFF, 0xFF)
			return nil
		}
		id, rev := s.identity()
		s.reply(id, rev)
	case c2CmdUniqueID:
		s.reply(byte(s.uid>>8), byte(s.uid))
	case c2CmdTargetReset:
		s.pc = 0
		s.halted = true
		s.resets++
		s.reply(0x0D)
	case c2CmdTargetGo:
		s.goRequest()
		s.reply(0x0D)
	case c2CmdStep:
		s.pc++
		s.reply(0x0D)
	case c2CmdTargetHalt:
		s.haltRequest()
		s.reply(0x0D)
	case c2CmdHaltPoll:
		s.reply(s.pollStatus())
	case c2CmdReadReg:
		if buf[1] == c2RegPCLow && buf[2] == 0x02 {
			s.reply(byte(s.pc), byte(s.pc>>8))
			return nil
		}
		return fmt.Errorf("sim: unsupported register read % 02x", buf)
	case c2CmdWriteReg:
		switch buf[1] {
		case c2RegPCLow:
			s.pc = s.pc&0xFF00 | uint16(buf[3])
		case c2RegPCHigh:
			s.pc = s.pc&0x00FF | uint16(buf[3])<<8
		default:
			return fmt.Errorf("sim: unsupported register write % 02x", buf)
		}
		s.reply(0x0D)
	case c2CmdCoreSuspend:
		s.reply(0x0D)
	case c2CmdReadSFR:
		s.reply(s.sfr[buf[1] : int(buf[1])+int(buf[2])]...)
	case c2CmdWriteSFR:
		copy(s.sfr[buf[1]:], buf[3:3+int(buf[2])])
		s.reply(0x0D)
	case c2CmdReadRAM:
		s.reply(s.ram[buf[1] : int(buf[1])+int(buf[2])]...)
	case c2CmdWriteRAM:
		copy(s.ram[buf[1]:], buf[3:3+int(buf[2])])
		s.reply(0x0D)
	case c2CmdReadXRAM:
		a := int(buf[1]) | int(buf[2])<<8
		s.reply(s.xram[a : a+int(buf[3])]...)
	case c2CmdWriteXRAM:
		a := int(buf[1]) | int(buf[2])<<8
		copy(s.xram[a:], buf[4:4+int(buf[3])])
		s.reply(0x0D)
	case c2CmdReadFlash:
		a := flashAddr(buf[1:])
		s.reply(s.flash[a : a+uint32(buf[4])]...)
	case c2CmdWriteFlash:
		s.flashWrite(s.flash, flashAddr(buf[1:]), buf[5:5+int(buf[4])])
		s.reply(0x0D)
	case c2CmdEraseSector:
		s.eraseSector(s.flash, flashAddr(buf[1:]), s.sectorSize)
		s.reply(0x0D)
	case c2CmdDeviceErase:
		for i := range s.flash {
			s.flash[i] = 0xFF
		}
		s.reply(0x0D)
	case c2CmdReadScratch:
		a := flashAddr(buf[1:])
		s.reply(s.scratch[a : a+uint32(buf[4])]...)
	case c2CmdWriteScratch:
		s.flashWrite(s.scratch, flashAddr(buf[1:]), buf[5:5+int(buf[4])])
		s.reply(0x0D)
	case c2CmdEraseScratch:
		s.eraseSector(s.scratch, flashAddr(buf[1:]), s.scratchSec)
		s.reply(0x0D)
	case c2CmdSetBreakpoint:
		s.bpAddr[buf[1]] = flashAddr(buf[2:])
		s.reply(0x0D)
	case c2CmdBPMask:
		s.bpMask = buf[1]
		s.reply(0x0D)
	default:
		return fmt.Errorf("sim: bad C2 command % 02x", buf)
	}
	return nil
}

func (s *simAdaptor) jtagCommand(buf []byte) error {
	switch buf[0] {
	case jtagCmdSelect, 0x1A, 0x1B:
		s.reply(0x0D)
	case 0x0E: // reset pulse
		s.pc = 0
		s.halted = true
		s.pendingStop = 0
		s.resets++
		s.reply(0x0D)
	case jtagCmdIdent:
		if buf[1] == 0x02 {
			s.reply(byte(s.uid>>8), byte(s.uid))
			return nil
		}
		id, rev := s.identity()
		s.reply(id, rev)
	case jtagCmdStatusPoll:
		s.reply(s.pollStatus())
	case jtagCmdGo:
		s.goRequest()
		s.reply(0x0D)
	case jtagCmdHalt:
		s.haltRequest()
		s.reply(0x0D)
	case jtagCmdStep:
		s.pc++
		s.halted = true
		s.reply(0x0D)
	case jtagCmdSuspend:
		s.reply(0x0D)
	case jtagCmdRead:
		mem := &s.ram
		if buf[1] == jtagClassSFR {
			mem = &s.sfr
		}
		if buf[1] == jtagClassSFR && buf[2] == jtagRegPCLow && buf[3] == 0x02 {
			s.reply(byte(s.pc), byte(s.pc>>8))
			return nil
		}
		s.reply(mem[buf[2] : int(buf[2])+int(buf[3])]...)
	case jtagCmdWrite:
		switch {
		case buf[1] == jtagClassSFR && buf[2] == jtagRegPCLow:
			s.pc = s.pc&0xFF00 | uint16(buf[3])
		case buf[1] == jtagClassSFR && buf[2] == jtagRegPCHigh:
			s.pc = s.pc&0x00FF | uint16(buf[3])<<8
		case buf[1] == jtagClassSFR:
			s.sfr[buf[2]] = buf[3]
		default:
			s.ram[buf[2]] = buf[3]
		}
		s.reply(0x0D)
	case jtagCmdReadXRAM:
		a := s.dptr()
		s.reply(s.xram[a : a+int(buf[1])]...)
	case jtagCmdWriteXRAM:
		copy(s.xram[s.dptr():], buf[2:2+int(buf[1])])
		s.reply(0x0D)
	case jtagCmdReadFlash:
		mem := s.flashRegion(buf[5])
		a := flashAddr(buf[1:])
		s.reply(mem[a : a+uint32(buf[4])]...)
	case jtagCmdWriteFlash:
		s.flashWrite(s.flashRegion(buf[5]), flashAddr(buf[1:]), buf[6:6+int(buf[4])])
		s.reply(0x0D)
	case jtagCmdEraseSect:
		if buf[4] != 0 {
			s.eraseSector(s.scratch, flashAddr(buf[1:]), s.scratchSec)
		} else {
			s.eraseSector(s.flash, flashAddr(buf[1:]), s.sectorSize)
		}
		s.reply(0x0D)
	case jtagCmdEraseAll:
		for i := range s.flash {
			s.flash[i] = 0xFF
		}
		s.reply(0x0D)
	case jtagCmdSetBP:
		s.bpAddr[buf[1]] = flashAddr(buf[2:])
		s.reply(0x0D)
	case jtagCmdBPMask:
		s.bpMask = buf[1]
		s.reply(0x0D)
	default:
		return fmt.Errorf("sim: bad JTAG command % 02x", buf)
	}
	return nil
}

func (s *simAdaptor) dptr() int {
	return int(s.sfr[sfrDPL]) | int(s.sfr[sfrDPH])<<8
}

func (s *simAdaptor) flashRegion(flag byte) []byte {
	if flag != 0 {
		return s.scratch
	}
	return s.flash
}

// flashWrite clears bits only, as the hardware does.
func (s *simAdaptor) flashWrite(mem []byte, addr uint32, data []byte) {
	for i, b := range data {
		mem[addr+uint32(i)] &= b
	}
}

func (s *simAdaptor) eraseSector(mem []byte, addr uint32, size uint32) {
	base := addr / size * size
	for i := base; i < base+size; i++ {
		mem[i] = 0xFF
	}
}

func flashAddr(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

func (s *simAdaptor) Receive(buf []byte) error {
	if len(s.rx) < len(buf) {
		return ErrTimeout
	}
	copy(buf, s.rx)
	s.rx = s.rx[len(buf):]
	return nil
}

func (s *simAdaptor) HardwareReset() error {
	s.appRunning = false
	s.rx = nil
	return nil
}

func (s *simAdaptor) Close() error {
	s.closes++
	s.appRunning = false
	s.rx = nil
	return nil
}

// connectSim brings a session up against a simulated device.
func connectSim(t *testing.T, devName string, mode ModeType) (*Session, *simAdaptor) {
	t.Helper()
	dev := target.ByName(devName)
	if dev == nil {
		t.Fatalf("no device profile %q", devName)
	}
	sim := newSimAdaptor(dev)
	sim.install(t)

	sess := NewSession()
	if err := sess.Connect("/dev/ttySIM", mode); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(sess.Disconnect)
	return sess, sim
}
