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

import "github.com/setarcos/ec2-newer/target"

const blankByte = 0xFF

// sectorSpan returns the first and last sector index touched by a range.
// The caller must have validated the range against the region first.
func sectorSpan(addr, n, sectorSize uint32) (first, last uint32) {
	return addr / sectorSize, (addr + n - 1) / sectorSize
}

// checkFlashRange validates a main-flash range: entirely inside the
// device's flash and disjoint from its reserved region. Runs before any
// wire traffic; a violating operation sends nothing to the hardware.
func (s *Session) checkFlashRange(addr uint32, n int) error {
	bad := &RangeError{Region: "flash", Addr: addr, Len: uint32(n)}
	if n <= 0 || addr >= s.dev.FlashSize || uint64(n) > uint64(s.dev.FlashSize-addr) {
		return bad
	}
	top := addr + uint32(n) - 1
	if s.dev.FlashReservedBottom <= s.dev.FlashReservedTop &&
		top >= s.dev.FlashReservedBottom && addr <= s.dev.FlashReservedTop {
		s.log.Errorf("Attempt to access reserved flash area [0x%05x, 0x%05x]",
			s.dev.FlashReservedBottom, s.dev.FlashReservedTop)
		return bad
	}
	return nil
}

// checkScratchpadRange validates a scratchpad range. Scratchpad addresses
// start at zero and run to the scratchpad length.
func (s *Session) checkScratchpadRange(addr uint32, n int) error {
	bad := &RangeError{Region: "scratchpad", Addr: addr, Len: uint32(n)}
	if !s.dev.HasScratchpad {
		return ErrScratchpadNotPresent
	}
	if n <= 0 || addr >= s.dev.ScratchpadLen || uint64(n) > uint64(s.dev.ScratchpadLen-addr) {
		return bad
	}
	return nil
}

// ReadFlash reads from code memory.
func (s *Session) ReadFlash(addr uint32, buf []byte) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	if err := s.checkFlashRange(addr, len(buf)); err != nil {
		return err
	}
	return s.impl.readFlash(addr, buf, false)
}

// WriteFlash writes to code memory, assuming the destination is already
// erased. Flash writes can only clear bits: writing over non-erased data
// yields the AND of old and new contents. That is how the hardware works,
// not a driver defect; use WriteFlashAutoErase or WriteFlashAutoKeep when
// the prior contents are unknown.
func (s *Session) WriteFlash(addr uint32, data []byte) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	if err := s.checkFlashRange(addr, len(data)); err != nil {
		return err
	}
	return s.impl.writeFlash(addr, data, false)
}

// WriteFlashAutoErase erases every sector the range touches, then writes.
// Fast, but destroys unrelated data sharing a sector with the range.
func (s *Session) WriteFlashAutoErase(addr uint32, data []byte) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	if err := s.checkFlashRange(addr, len(data)); err != nil {
		return err
	}

	first, last := sectorSpan(addr, uint32(len(data)), s.dev.FlashSectorSize)
	for sec := first; sec <= last; sec++ {
		if err := s.impl.eraseFlashSector(sec*s.dev.FlashSectorSize, false); err != nil {
			return err
		}
	}
	return s.impl.writeFlash(addr, data, false)
}

// WriteFlashAutoKeep writes a range while preserving all other bytes in
// the sectors it touches: the affected sectors are read out in full,
// sectors that are not already blank are erased, the new data is merged
// over the read-back image, and the whole span is written back. Blank
// sectors are never erased. This is the only policy safe for
// partial-sector updates.
func (s *Session) WriteFlashAutoKeep(addr uint32, data []byte) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	if err := s.checkFlashRange(addr, len(data)); err != nil {
		return err
	}

	secSize := s.dev.FlashSectorSize
	first, last := sectorSpan(addr, uint32(len(data)), secSize)
	spanAddr := first * secSize
	span := make([]byte, (last-first+1)*secSize)

	if err := s.impl.readFlash(spanAddr, span, false); err != nil {
		return err
	}

	for sec := first; sec <= last; sec++ {
		off := (sec - first) * secSize
		if isBlank(span[off : off+secSize]) {
			continue
		}
		if err := s.impl.eraseFlashSector(sec*secSize, false); err != nil {
			return err
		}
	}

	copy(span[addr-spanAddr:], data)
	return s.impl.writeFlash(spanAddr, span, false)
}

func isBlank(buf []byte) bool {
	for _, b := range buf {
		if b != blankByte {
			return false
		}
	}
	return true
}

// EraseFlash erases all user code memory in one operation.
func (s *Session) EraseFlash() error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	return s.impl.eraseFlash()
}

// EraseFlashSector erases the sector containing addr. Any address inside
// the sector selects it.
func (s *Session) EraseFlashSector(addr uint32) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	base := addr / s.dev.FlashSectorSize * s.dev.FlashSectorSize
	if err := s.checkFlashRange(base, int(s.dev.FlashSectorSize)); err != nil {
		return err
	}
	return s.impl.eraseFlashSector(base, false)
}

// ReadScratchpad reads from the scratchpad flash region. Scratchpad
// addresses start at zero.
func (s *Session) ReadScratchpad(addr uint32, buf []byte) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	if err := s.checkScratchpadRange(addr, len(buf)); err != nil {
		return err
	}
	return s.impl.readFlash(addr, buf, true)
}

// WriteScratchpad writes to the scratchpad, assuming the destination has
// been erased. Same AND-on-write behaviour as WriteFlash.
func (s *Session) WriteScratchpad(addr uint32, data []byte) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	if err := s.checkScratchpadRange(addr, len(data)); err != nil {
		return err
	}
	return s.impl.writeFlash(addr, data, true)
}

// WriteScratchpadMerge writes a range into the scratchpad while
// preserving every other byte. The scratchpad is small enough to buffer
// whole: read it all, merge, erase, write it all back. Progress is
// reported at the read/erase/write milestones.
func (s *Session) WriteScratchpadMerge(addr uint32, data []byte) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	if err := s.checkScratchpadRange(addr, len(data)); err != nil {
		return err
	}

	whole := make([]byte, s.dev.ScratchpadLen)

	s.updateProgress(0)
	if err := s.impl.readFlash(0, whole, true); err != nil {
		return err
	}
	copy(whole[addr:], data)

	s.updateProgress(45)
	if err := s.eraseScratchpadSectors(); err != nil {
		return err
	}

	s.updateProgress(55)
	if err := s.impl.writeFlash(0, whole, true); err != nil {
		return err
	}

	s.updateProgress(100)
	return nil
}

// EraseScratchpad erases the whole scratchpad, sector by sector.
func (s *Session) EraseScratchpad() error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	if !s.dev.HasScratchpad {
		return ErrScratchpadNotPresent
	}
	return s.eraseScratchpadSectors()
}

func (s *Session) eraseScratchpadSectors() error {
	for addr := uint32(0); addr < s.dev.ScratchpadLen; addr += s.dev.ScratchpadSectorSize {
		if err := s.impl.eraseFlashSector(addr, true); err != nil {
			return err
		}
	}
	return nil
}

// EraseScratchpadSector erases the scratchpad sector containing addr.
func (s *Session) EraseScratchpadSector(addr uint32) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	if err := s.checkScratchpadRange(addr, 1); err != nil {
		return err
	}
	sector := addr / s.dev.ScratchpadSectorSize
	return s.impl.eraseFlashSector(sector*s.dev.ScratchpadSectorSize, true)
}

// FlashLockByte reads the combined lock byte on single-lock devices. The
// lock bytes live at the top of the reserved area.
func (s *Session) FlashLockByte() (uint8, error) {
	if err := s.requireConnected(); err != nil {
		return 0, err
	}
	if s.dev.Lock != target.LockSingle && s.dev.Lock != target.LockSingleAlt {
		return 0, ErrWrongLockType
	}
	var buf [1]byte
	err := s.impl.readFlash(s.dev.FlashReservedTop, buf[:], false)
	return buf[0], err
}

// FlashReadLock reads the read lock byte on dual-lock devices.
func (s *Session) FlashReadLock() (uint8, error) {
	return s.dualLockByte(0)
}

// FlashWriteEraseLock reads the write/erase lock byte on dual-lock
// devices.
func (s *Session) FlashWriteEraseLock() (uint8, error) {
	return s.dualLockByte(1)
}

func (s *Session) dualLockByte(offsetFromTop uint32) (uint8, error) {
	if err := s.requireConnected(); err != nil {
		return 0, err
	}
	if s.dev.Lock != target.LockReadWrite && s.dev.Lock != target.LockReadWriteAlt {
		return 0, ErrWrongLockType
	}
	var buf [1]byte
	err := s.impl.readFlash(s.dev.FlashReservedTop-offsetFromTop, buf[:], false)
	return buf[0], err
}
