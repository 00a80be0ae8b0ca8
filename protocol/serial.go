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
	"time"

	"go.bug.st/serial"
)

const (
	serialBaudRate    = 115200
	serialReadTimeout = 5 * time.Second
)

// serialTransport drives an EC2 over its serial line. The adaptor is reset
// by toggling DTR; RTS must stay asserted to keep the line powered.
type serialTransport struct {
	port serial.Port
	path string
}

func openSerial(path string) (*serialTransport, error) {
	mode := &serial.Mode{
		BaudRate: serialBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := port.SetReadTimeout(serialReadTimeout); err != nil {
		port.Close()
		return nil, err
	}

	// RTS powers the adaptor, DTR held high until a reset is wanted.
	if err := port.SetRTS(true); err != nil {
		port.Close()
		return nil, err
	}
	if err := port.SetDTR(true); err != nil {
		port.Close()
		return nil, err
	}

	return &serialTransport{port: port, path: path}, nil
}

func (t *serialTransport) Send(buf []byte) error {
	// Drop anything queued in either direction first. A stale byte left
	// over from an interrupted exchange permanently desynchronises the
	// reply stream otherwise.
	t.port.ResetOutputBuffer()
	t.port.ResetInputBuffer()

	n, err := t.port.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("short write to %s: %d of %d bytes", t.path, n, len(buf))
	}
	return t.port.Drain()
}

func (t *serialTransport) Receive(buf []byte) error {
	for got := 0; got < len(buf); {
		n, err := t.port.Read(buf[got:])
		if err != nil {
			return err
		}
		if n == 0 {
			// go.bug.st/serial signals an expired read timeout as a
			// zero-length read.
			return ErrTimeout
		}
		got += n
	}
	return nil
}

func (t *serialTransport) HardwareReset() error {
	time.Sleep(100 * time.Microsecond)
	if err := t.port.SetDTR(false); err != nil {
		return err
	}
	time.Sleep(100 * time.Microsecond)
	if err := t.port.SetDTR(true); err != nil {
		return err
	}
	// The adaptor needs about 8ms to come out of reset.
	time.Sleep(10 * time.Millisecond)
	return nil
}

func (t *serialTransport) Close() error {
	// Leaving DTR asserted keeps the adaptor in reset for some boards.
	t.port.SetDTR(false)
	return t.port.Close()
}
