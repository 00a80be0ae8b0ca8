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

// The breakpoint table mirrors the adaptor's four hardware comparator
// slots. The in-memory table and the hardware are kept in step by always
// programming the slot's address register first and then pushing the
// complete enable mask in a single exchange, so no caller can observe a
// half-updated state between an add/remove call and its return.

// Breakpoint is one slot of the session's breakpoint table.
type Breakpoint struct {
	Addr    uint32
	Enabled bool
}

// Breakpoints returns a snapshot of the breakpoint table.
func (s *Session) Breakpoints() [numBreakpoints]Breakpoint {
	var out [numBreakpoints]Breakpoint
	for i := range out {
		out[i] = Breakpoint{
			Addr:    s.bpAddr[i],
			Enabled: s.bpMask&(1<<i) != 0,
		}
	}
	return out
}

// findBreakpoint returns the enabled slot holding addr, or -1.
func (s *Session) findBreakpoint(addr uint32) int {
	for i := 0; i < numBreakpoints; i++ {
		if s.bpAddr[i] == addr && s.bpMask&(1<<i) != 0 {
			return i
		}
	}
	return -1
}

// freeBreakpointSlot returns the first disabled slot, or -1.
func (s *Session) freeBreakpointSlot() int {
	for i := 0; i < numBreakpoints; i++ {
		if s.bpMask&(1<<i) == 0 {
			return i
		}
	}
	return -1
}

// setBreakpointMask flips one slot's enable bit locally, then pushes the
// whole mask to the hardware.
func (s *Session) setBreakpointMask(slot int, enable bool) error {
	old := s.bpMask
	if enable {
		s.bpMask |= 1 << slot
	} else {
		s.bpMask &^= 1 << slot
	}
	if err := s.impl.writeBreakpointMask(s.bpMask); err != nil {
		s.bpMask = old
		return err
	}
	return nil
}

// AddBreakpoint sets a breakpoint at addr in the first free slot. Fails
// with ErrDuplicateBreakpoint if addr already has an enabled slot and with
// ErrBreakpointTableFull if all four slots are taken.
func (s *Session) AddBreakpoint(addr uint32) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	if s.findBreakpoint(addr) != -1 {
		return ErrDuplicateBreakpoint
	}
	slot := s.freeBreakpointSlot()
	if slot == -1 {
		return ErrBreakpointTableFull
	}

	if err := s.impl.setBreakpoint(slot, addr); err != nil {
		return err
	}
	s.bpAddr[slot] = addr
	return s.setBreakpointMask(slot, true)
}

// RemoveBreakpoint clears the breakpoint at addr. Fails with
// ErrBreakpointNotFound if no enabled slot holds addr.
func (s *Session) RemoveBreakpoint(addr uint32) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	slot := s.findBreakpoint(addr)
	if slot == -1 {
		return ErrBreakpointNotFound
	}
	return s.setBreakpointMask(slot, false)
}

// BreakpointIsSet reports whether addr has an enabled breakpoint.
func (s *Session) BreakpointIsSet(addr uint32) bool {
	return s.findBreakpoint(addr) != -1
}

// ClearAllBreakpoints disables every slot, in the table and in hardware.
func (s *Session) ClearAllBreakpoints() error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	s.bpMask = 0
	s.bpAddr = [numBreakpoints]uint32{}
	return s.impl.writeBreakpointMask(0)
}
