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

// C2-family protocol. Commands are single-opcode request/response
// exchanges acknowledged with 0x0D unless they return data.

const (
	c2CmdConnect       = 0x20
	c2CmdDisconnect    = 0x21
	c2CmdDeviceID      = 0x22
	c2CmdUniqueID      = 0x23
	c2CmdTargetReset   = 0x24
	c2CmdTargetGo      = 0x25
	c2CmdStep          = 0x26
	c2CmdTargetHalt    = 0x27
	c2CmdReadReg       = 0x28
	c2CmdWriteReg      = 0x29
	c2CmdCoreSuspend   = 0x2A
	c2CmdReadSFR       = 0x2B
	c2CmdWriteSFR      = 0x2C
	c2CmdReadRAM       = 0x2D
	c2CmdWriteRAM      = 0x2E
	c2CmdHaltPoll      = 0x2F
	c2CmdReadFlash     = 0x30
	c2CmdWriteFlash    = 0x31
	c2CmdEraseSector   = 0x32
	c2CmdDeviceErase   = 0x33
	c2CmdReadXRAM      = 0x34
	c2CmdWriteXRAM     = 0x35
	c2CmdSetBreakpoint = 0x36
	c2CmdBPMask        = 0x37
	c2CmdReadScratch   = 0x38
	c2CmdWriteScratch  = 0x39
	c2CmdEraseScratch  = 0x3A

	// Debug register file offsets used through c2CmdReadReg/WriteReg.
	c2RegPCLow  = 0x20
	c2RegPCHigh = 0x21
)

var ack = []byte{0x0D}

// Largest data block per exchange. Bounded by the EC3 frame: one length
// byte, up to five header bytes, the rest payload.
const maxC2Block = 0x3A

// Direct and SFR space accesses are further limited by the adaptor
// firmware to 12 bytes per command.
const maxDirectBlock = 0x0C

type c2Mode struct {
	c *Channel
}

func newC2Mode(c *Channel) *c2Mode {
	return &c2Mode{c: c}
}

func (m *c2Mode) name() ModeType {
	return ModeC2
}

func (m *c2Mode) connectTarget() error {
	return m.c.Exchange([]byte{c2CmdConnect}, ack)
}

func (m *c2Mode) disconnectTarget() error {
	return m.c.Exchange([]byte{c2CmdDisconnect}, ack)
}

func (m *c2Mode) deviceID() (uint16, error) {
	rx, err := m.c.Request([]byte{c2CmdDeviceID}, 2)
	if err != nil {
		return 0, err
	}
	return uint16(rx[0])<<8 | uint16(rx[1]), nil
}

func (m *c2Mode) uniqueDeviceID() (uint16, error) {
	rx, err := m.c.Request([]byte{c2CmdUniqueID}, 2)
	if err != nil {
		return 0, err
	}
	return uint16(rx[0])<<8 | uint16(rx[1]), nil
}

// readBlocks issues {op, addr, len} reads of at most max bytes each.
func (m *c2Mode) readBlocks(op byte, addr uint8, buf []byte, max int) error {
	for off := 0; off < len(buf); off += max {
		n := len(buf) - off
		if n > max {
			n = max
		}
		rx, err := m.c.Request([]byte{op, addr + uint8(off), byte(n)}, n)
		if err != nil {
			return err
		}
		copy(buf[off:], rx)
	}
	return nil
}

// writeBlocks issues {op, addr, len, data...} writes of at most max bytes.
func (m *c2Mode) writeBlocks(op byte, addr uint8, data []byte, max int) error {
	for off := 0; off < len(data); off += max {
		n := len(data) - off
		if n > max {
			n = max
		}
		tx := append([]byte{op, addr + uint8(off), byte(n)}, data[off:off+n]...)
		if err := m.c.Exchange(tx, ack); err != nil {
			return err
		}
	}
	return nil
}

func (m *c2Mode) readSFR(addr uint8, buf []byte) error {
	return m.readBlocks(c2CmdReadSFR, addr, buf, maxDirectBlock)
}

func (m *c2Mode) writeSFR(addr uint8, data []byte) error {
	return m.writeBlocks(c2CmdWriteSFR, addr, data, maxDirectBlock)
}

func (m *c2Mode) readRAM(addr uint8, buf []byte) error {
	return m.readBlocks(c2CmdReadRAM, addr, buf, maxDirectBlock)
}

func (m *c2Mode) writeRAM(addr uint8, data []byte) error {
	return m.writeBlocks(c2CmdWriteRAM, addr, data, maxDirectBlock)
}

func (m *c2Mode) readXRAM(addr uint16, buf []byte) error {
	for off := 0; off < len(buf); off += maxC2Block {
		n := len(buf) - off
		if n > maxC2Block {
			n = maxC2Block
		}
		a := addr + uint16(off)
		rx, err := m.c.Request([]byte{c2CmdReadXRAM, byte(a), byte(a >> 8), byte(n)}, n)
		if err != nil {
			return err
		}
		copy(buf[off:], rx)
	}
	return nil
}

func (m *c2Mode) writeXRAM(addr uint16, data []byte) error {
	for off := 0; off < len(data); off += maxC2Block {
		n := len(data) - off
		if n > maxC2Block {
			n = maxC2Block
		}
		a := addr + uint16(off)
		tx := append([]byte{c2CmdWriteXRAM, byte(a), byte(a >> 8), byte(n)}, data[off:off+n]...)
		if err := m.c.Exchange(tx, ack); err != nil {
			return err
		}
	}
	return nil
}

func (m *c2Mode) readFlash(addr uint32, buf []byte, scratchpad bool) error {
	op := byte(c2CmdReadFlash)
	if scratchpad {
		op = c2CmdReadScratch
	}
	for off := 0; off < len(buf); off += maxC2Block {
		n := len(buf) - off
		if n > maxC2Block {
			n = maxC2Block
		}
		a := addr + uint32(off)
		rx, err := m.c.Request([]byte{op, byte(a), byte(a >> 8), byte(a >> 16), byte(n)}, n)
		if err != nil {
			return err
		}
		copy(buf[off:], rx)
	}
	return nil
}

func (m *c2Mode) writeFlash(addr uint32, data []byte, scratchpad bool) error {
	op := byte(c2CmdWriteFlash)
	if scratchpad {
		op = c2CmdWriteScratch
	}
	for off := 0; off < len(data); off += maxC2Block {
		n := len(data) - off
		if n > maxC2Block {
			n = maxC2Block
		}
		a := addr + uint32(off)
		tx := append([]byte{op, byte(a), byte(a >> 8), byte(a >> 16), byte(n)}, data[off:off+n]...)
		if err := m.c.Exchange(tx, ack); err != nil {
			return err
		}
	}
	return nil
}

func (m *c2Mode) eraseFlash() error {
	return m.c.Exchange([]byte{c2CmdDeviceErase}, ack)
}

func (m *c2Mode) eraseFlashSector(addr uint32, scratchpad bool) error {
	op := byte(c2CmdEraseSector)
	if scratchpad {
		op = c2CmdEraseScratch
	}
	return m.c.Exchange([]byte{op, byte(addr), byte(addr >> 8), byte(addr >> 16)}, ack)
}

func (m *c2Mode) setBreakpoint(slot int, addr uint32) error {
	tx := []byte{c2CmdSetBreakpoint, byte(slot),
		byte(addr), byte(addr >> 8), byte(addr >> 16)}
	return m.c.Exchange(tx, ack)
}

func (m *c2Mode) writeBreakpointMask(mask uint8) error {
	return m.c.Exchange([]byte{c2CmdBPMask, mask}, ack)
}

func (m *c2Mode) targetGo() error {
	return m.c.Exchange([]byte{c2CmdTargetGo}, ack)
}

func (m *c2Mode) targetHalt() error {
	return m.c.Exchange([]byte{c2CmdTargetHalt}, ack)
}

func (m *c2Mode) targetHaltPoll() (bool, error) {
	rx, err := m.c.Request([]byte{c2CmdHaltPoll}, 1)
	if err != nil {
		return false, err
	}
	return rx[0] == 0x01, nil
}

func (m *c2Mode) targetReset() error {
	return m.c.Exchange([]byte{c2CmdTargetReset}, ack)
}

func (m *c2Mode) coreSuspend() error {
	return m.c.Exchange([]byte{c2CmdCoreSuspend}, ack)
}

func (m *c2Mode) readPC() (uint16, error) {
	rx, err := m.c.Request([]byte{c2CmdReadReg, c2RegPCLow, 0x02}, 2)
	if err != nil {
		return 0, err
	}
	return uint16(rx[1])<<8 | uint16(rx[0]), nil
}

func (m *c2Mode) setPC(addr uint16) error {
	if err := m.c.Exchange(
		[]byte{c2CmdWriteReg, c2RegPCLow, 0x01, byte(addr)}, ack); err != nil {
		return err
	}
	return m.c.Exchange(
		[]byte{c2CmdWriteReg, c2RegPCHigh, 0x01, byte(addr >> 8)}, ack)
}

func (m *c2Mode) step() (uint16, error) {
	if err := m.c.Exchange([]byte{c2CmdStep}, ack); err != nil {
		return 0, err
	}
	return m.readPC()
}
