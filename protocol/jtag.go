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

// JTAG-family protocol. Register-file style: reads are
// {0x02, class, addr, len}, writes are {0x03, class, addr, value} one byte
// at a time. Block operations (flash, XRAM) have their own opcodes.

const (
	jtagCmdRead       = 0x02
	jtagCmdWrite      = 0x03
	jtagCmdSelect     = 0x04
	jtagCmdReadXRAM   = 0x06
	jtagCmdWriteXRAM  = 0x07
	jtagCmdStep       = 0x09
	jtagCmdHalt       = 0x0A
	jtagCmdGo         = 0x0B
	jtagCmdReadFlash  = 0x11
	jtagCmdWriteFlash = 0x12
	jtagCmdStatusPoll = 0x13
	jtagCmdEraseSect  = 0x14
	jtagCmdEraseAll   = 0x15
	jtagCmdIdent      = 0x16
	jtagCmdSetBP      = 0x17
	jtagCmdBPMask     = 0x18
	jtagCmdSuspend    = 0x19

	// Read/write classes.
	jtagClassRAM = 0x01
	jtagClassSFR = 0x02

	// Debug register file offsets, accessed through the SFR class.
	jtagRegPCLow  = 0x20
	jtagRegPCHigh = 0x21

	// DPTR halves for the XRAM harness.
	sfrDPL = 0x82
	sfrDPH = 0x83

	jtagHalted = 0x01
)

// Bring-up script run after the bootloader hands over: select the JTAG
// electrical mode, then program the scan chain timing. Run as one sequence
// so a half-initialised adaptor is still walked through the remaining
// steps.
var jtagConnectScript = []Step{
	{Tx: []byte{jtagCmdSelect}, Rx: []byte{0x0D}},
	{Tx: []byte{0x1A, 0x06, 0x00}, Rx: []byte{0x0D}},
	{Tx: []byte{0x1B, 0x00}, Rx: []byte{0x0D}},
}

// Target reset script: pulse /RST through the adaptor, re-arm the debug
// circuit, leave the core halted at the reset vector.
var jtagResetScript = []Step{
	{Tx: []byte{jtagCmdSelect}, Rx: []byte{0x0D}},
	{Tx: []byte{0x0E, 0x00}, Rx: []byte{0x0D}},
	{Tx: []byte{jtagCmdStatusPoll, 0x00}, Rx: []byte{jtagHalted}},
}

const maxJTAGBlock = 0x3A

type jtagMode struct {
	c *Channel
}

func newJTAGMode(c *Channel) *jtagMode {
	return &jtagMode{c: c}
}

func (m *jtagMode) name() ModeType {
	return ModeJTAG
}

func (m *jtagMode) connectTarget() error {
	return m.c.Sequence(jtagConnectScript)
}

func (m *jtagMode) disconnectTarget() error {
	return m.c.Exchange([]byte{jtagCmdSelect, 0x00}, ack)
}

func (m *jtagMode) ident(sel byte) (uint16, error) {
	rx, err := m.c.Request([]byte{jtagCmdIdent, sel}, 2)
	if err != nil {
		return 0, err
	}
	return uint16(rx[0])<<8 | uint16(rx[1]), nil
}

func (m *jtagMode) deviceID() (uint16, error) {
	return m.ident(0x01)
}

func (m *jtagMode) uniqueDeviceID() (uint16, error) {
	return m.ident(0x02)
}

func (m *jtagMode) readClass(class byte, addr uint8, buf []byte) error {
	for off := 0; off < len(buf); off += maxDirectBlock {
		n := len(buf) - off
		if n > maxDirectBlock {
			n = maxDirectBlock
		}
		rx, err := m.c.Request(
			[]byte{jtagCmdRead, class, addr + uint8(off), byte(n)}, n)
		if err != nil {
			return err
		}
		copy(buf[off:], rx)
	}
	return nil
}

// writeClass writes one byte per exchange; the JTAG register file has no
// block write form.
func (m *jtagMode) writeClass(class byte, addr uint8, data []byte) error {
	for i, b := range data {
		tx := []byte{jtagCmdWrite, class, addr + uint8(i), b}
		if err := m.c.Exchange(tx, ack); err != nil {
			return err
		}
	}
	return nil
}

func (m *jtagMode) readSFR(addr uint8, buf []byte) error {
	return m.readClass(jtagClassSFR, addr, buf)
}

func (m *jtagMode) writeSFR(addr uint8, data []byte) error {
	return m.writeClass(jtagClassSFR, addr, data)
}

func (m *jtagMode) readRAM(addr uint8, buf []byte) error {
	return m.readClass(jtagClassRAM, addr, buf)
}

func (m *jtagMode) writeRAM(addr uint8, data []byte) error {
	return m.writeClass(jtagClassRAM, addr, data)
}

// setDPTR points the target's data pointer at an XRAM address for the
// block transfer commands.
func (m *jtagMode) setDPTR(addr uint16) error {
	if err := m.writeSFR(sfrDPL, []byte{byte(addr)}); err != nil {
		return err
	}
	return m.writeSFR(sfrDPH, []byte{byte(addr >> 8)})
}

func (m *jtagMode) readXRAM(addr uint16, buf []byte) error {
	for off := 0; off < len(buf); off += maxJTAGBlock {
		n := len(buf) - off
		if n > maxJTAGBlock {
			n = maxJTAGBlock
		}
		if err := m.setDPTR(addr + uint16(off)); err != nil {
			return err
		}
		rx, err := m.c.Request([]byte{jtagCmdReadXRAM, byte(n)}, n)
		if err != nil {
			return err
		}
		copy(buf[off:], rx)
	}
	return nil
}

func (m *jtagMode) writeXRAM(addr uint16, data []byte) error {
	for off := 0; off < len(data); off += maxJTAGBlock {
		n := len(data) - off
		if n > maxJTAGBlock {
			n = maxJTAGBlock
		}
		if err := m.setDPTR(addr + uint16(off)); err != nil {
			return err
		}
		tx := append([]byte{jtagCmdWriteXRAM, byte(n)}, data[off:off+n]...)
		if err := m.c.Exchange(tx, ack); err != nil {
			return err
		}
	}
	return nil
}

func flashFlag(scratchpad bool) byte {
	if scratchpad {
		return 0x01
	}
	return 0x00
}

func (m *jtagMode) readFlash(addr uint32, buf []byte, scratchpad bool) error {
	for off := 0; off < len(buf); off += maxJTAGBlock {
		n := len(buf) - off
		if n > maxJTAGBlock {
			n = maxJTAGBlock
		}
		a := addr + uint32(off)
		tx := []byte{jtagCmdReadFlash,
			byte(a), byte(a >> 8), byte(a >> 16), byte(n), flashFlag(scratchpad)}
		rx, err := m.c.Request(tx, n)
		if err != nil {
			return err
		}
		copy(buf[off:], rx)
	}
	return nil
}

func (m *jtagMode) writeFlash(addr uint32, data []byte, scratchpad bool) error {
	for off := 0; off < len(data); off += maxJTAGBlock {
		n := len(data) - off
		if n > maxJTAGBlock {
			n = maxJTAGBlock
		}
		a := addr + uint32(off)
		tx := append([]byte{jtagCmdWriteFlash,
			byte(a), byte(a >> 8), byte(a >> 16), byte(n), flashFlag(scratchpad)},
			data[off:off+n]...)
		if err := m.c.Exchange(tx, ack); err != nil {
			return err
		}
	}
	return nil
}

// eraseFlash duplicates part of the bring-up the connect path already ran.
// The adaptor treats re-running those steps as idempotent, and the IDE's
// own all-flash erase does the same.
func (m *jtagMode) eraseFlash() error {
	steps := append([]Step{}, jtagConnectScript...)
	steps = append(steps, Step{Tx: []byte{jtagCmdEraseAll}, Rx: []byte{0x0D}})
	return m.c.Sequence(steps)
}

func (m *jtagMode) eraseFlashSector(addr uint32, scratchpad bool) error {
	tx := []byte{jtagCmdEraseSect,
		byte(addr), byte(addr >> 8), byte(addr >> 16), flashFlag(scratchpad)}
	return m.c.Exchange(tx, ack)
}

func (m *jtagMode) setBreakpoint(slot int, addr uint32) error {
	tx := []byte{jtagCmdSetBP, byte(slot),
		byte(addr), byte(addr >> 8), byte(addr >> 16)}
	return m.c.Exchange(tx, ack)
}

func (m *jtagMode) writeBreakpointMask(mask uint8) error {
	return m.c.Exchange([]byte{jtagCmdBPMask, mask}, ack)
}

func (m *jtagMode) targetGo() error {
	return m.c.Exchange([]byte{jtagCmdGo, 0x00}, ack)
}

func (m *jtagMode) targetHalt() error {
	return m.c.Exchange([]byte{jtagCmdHalt, 0x00}, ack)
}

func (m *jtagMode) targetHaltPoll() (bool, error) {
	rx, err := m.c.Request([]byte{jtagCmdStatusPoll, 0x00}, 1)
	if err != nil {
		return false, err
	}
	return rx[0] == jtagHalted, nil
}

func (m *jtagMode) targetReset() error {
	return m.c.Sequence(jtagResetScript)
}

func (m *jtagMode) coreSuspend() error {
	return m.c.Exchange([]byte{jtagCmdSuspend, 0x00}, ack)
}

func (m *jtagMode) readPC() (uint16, error) {
	rx, err := m.c.Request(
		[]byte{jtagCmdRead, jtagClassSFR, jtagRegPCLow, 0x02}, 2)
	if err != nil {
		return 0, err
	}
	return uint16(rx[1])<<8 | uint16(rx[0]), nil
}

func (m *jtagMode) setPC(addr uint16) error {
	if err := m.c.Exchange(
		[]byte{jtagCmdWrite, jtagClassSFR, jtagRegPCLow, byte(addr)}, ack); err != nil {
		return err
	}
	return m.c.Exchange(
		[]byte{jtagCmdWrite, jtagClassSFR, jtagRegPCHigh, byte(addr >> 8)}, ack)
}

func (m *jtagMode) step() (uint16, error) {
	if err := m.c.Exchange([]byte{jtagCmdStep, 0x00}, ack); err != nil {
		return 0, err
	}
	// The step completes asynchronously; the status poll answering
	// "halted" confirms it has landed before the PC is sampled.
	if err := m.c.Exchange([]byte{jtagCmdStatusPoll, 0x00}, []byte{jtagHalted}); err != nil {
		return 0, err
	}
	return m.readPC()
}
