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
	"sync/atomic"
	"time"
)

const (
	// Retries after a halt request before giving up. The adaptor's stop
	// is asynchronous; a loaded target can take a few polls to land.
	haltRetries = 8

	// Poll interval while waiting for a breakpoint.
	runPollInterval = 250 * time.Millisecond
)

// TargetGo resumes execution from the current program counter.
func (s *Session) TargetGo() error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	return s.impl.targetGo()
}

// TargetHalt requests a stop and polls a bounded number of times for the
// target to actually halt. ErrTargetWouldNotStop is non-fatal: the session
// remains usable and the target may still stop later.
func (s *Session) TargetHalt() error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	if err := s.impl.targetHalt(); err != nil {
		return err
	}
	for i := 0; i < haltRetries; i++ {
		halted, err := s.impl.targetHaltPoll()
		if err != nil {
			return err
		}
		if halted {
			return nil
		}
	}
	return ErrTargetWouldNotStop
}

// TargetHaltPoll reports whether the target has halted, either at a
// breakpoint or after TargetHalt.
func (s *Session) TargetHaltPoll() (bool, error) {
	if err := s.requireConnected(); err != nil {
		return false, err
	}
	return s.impl.targetHaltPoll()
}

// TargetReset resets the target processor, leaving it halted at the reset
// vector.
func (s *Session) TargetReset() error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	return s.impl.targetReset()
}

// RunToBreakpoint resumes the target and polls until it halts, then
// returns the program counter it stopped at. There is no built-in
// timeout: cancel is checked once per poll interval, and setting it (from
// any goroutine, via cancel.Store(true)) makes the call return
// ErrCancelled within one interval. Callers needing responsiveness should
// run this on its own goroutine.
func (s *Session) RunToBreakpoint(cancel *atomic.Bool) (uint16, error) {
	if err := s.requireConnected(); err != nil {
		return 0, err
	}
	if err := s.impl.targetGo(); err != nil {
		return 0, err
	}

	for {
		if cancel != nil && cancel.Load() {
			return 0, ErrCancelled
		}
		halted, err := s.impl.targetHaltPoll()
		if err != nil {
			return 0, err
		}
		if halted {
			return s.impl.readPC()
		}
		time.Sleep(runPollInterval)
	}
}

// ReadPC reads the target's program counter.
func (s *Session) ReadPC() (uint16, error) {
	if err := s.requireConnected(); err != nil {
		return 0, err
	}
	return s.impl.readPC()
}

// SetPC sets the target's program counter.
func (s *Session) SetPC(addr uint16) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	return s.impl.setPC(addr)
}

// Step executes one instruction and returns the resulting program
// counter. The PC must point at valid code first.
func (s *Session) Step() (uint16, error) {
	if err := s.requireConnected(); err != nil {
		return 0, err
	}
	return s.impl.step()
}
