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

	"github.com/google/gousb"
)

const (
	ec3VendorID  = 0x10C4
	ec3ProductID = 0x8044

	ec3OutEndpoint = 0x02
	ec3InEndpoint  = 0x81

	ec3FrameLength = 64
)

var ErrNoAdaptorFound = errors.New("No EC3 debug adaptor found")

// usbTransport drives an EC3 over its interrupt endpoints. Writes carry a
// one-byte payload length prefix; replies arrive in fixed 64-byte frames
// with the same prefix, which Receive strips.
type usbTransport struct {
	ctx *gousb.Context
	dev *gousb.Device
	cfg *gousb.Config
	ifc *gousb.Interface
	in  *gousb.InEndpoint
	out *gousb.OutEndpoint

	pending []byte
}

// openUSB opens the EC3 with the given serial number, or the first one found
// when serial is empty.
func openUSB(serial string) (*usbTransport, error) {
	ctx := gousb.NewContext()

	t := &usbTransport{ctx: ctx}
	if err := t.open(serial); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

func (t *usbTransport) open(serial string) error {
	devs, err := t.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == ec3VendorID && desc.Product == ec3ProductID
	})
	if err != nil {
		return err
	}

	for _, dev := range devs {
		if t.dev == nil && serialMatches(dev, serial) {
			t.dev = dev
			continue
		}
		dev.Close()
	}
	if t.dev == nil {
		return ErrNoAdaptorFound
	}

	// The HID class driver owns the adaptor on most hosts. Auto-detach
	// asks the kernel to let go before we claim; platforms that cannot do
	// this return an error we ignore and find out at claim time.
	t.dev.SetAutoDetach(true)

	if t.cfg, err = t.dev.Config(1); err != nil {
		return err
	}
	if t.ifc, err = t.cfg.Interface(0, 0); err != nil {
		return err
	}
	if t.in, err = t.ifc.InEndpoint(ec3InEndpoint); err != nil {
		return err
	}
	if t.out, err = t.ifc.OutEndpoint(ec3OutEndpoint); err != nil {
		return err
	}
	return nil
}

func serialMatches(dev *gousb.Device, want string) bool {
	if want == "" {
		return true
	}
	got, err := dev.SerialNumber()
	return err == nil && got == want
}

func (t *usbTransport) Send(buf []byte) error {
	if len(buf) > ec3FrameLength-1 {
		return fmt.Errorf("payload of %d bytes exceeds EC3 frame", len(buf))
	}

	t.pending = nil

	frame := make([]byte, len(buf)+1)
	frame[0] = byte(len(buf))
	copy(frame[1:], buf)

	n, err := t.out.Write(frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return fmt.Errorf("short USB write: %d of %d bytes", n, len(frame))
	}
	return nil
}

func (t *usbTransport) Receive(buf []byte) error {
	for len(t.pending) < len(buf) {
		frame := make([]byte, ec3FrameLength)
		n, err := t.in.Read(frame)
		if err != nil {
			if errors.Is(err, gousb.TransferTimedOut) {
				return ErrTimeout
			}
			return err
		}
		if n < 1 {
			return ErrTimeout
		}
		plen := int(frame[0])
		if plen > n-1 {
			plen = n - 1
		}
		t.pending = append(t.pending, frame[1:1+plen]...)
	}

	copy(buf, t.pending[:len(buf)])
	t.pending = t.pending[len(buf):]
	return nil
}

// HardwareReset is a no-op on the EC3: the adaptor is reset by protocol
// command, not by a modem control line.
func (t *usbTransport) HardwareReset() error {
	return nil
}

// park places the adaptor in its idle state. Skipping this leaves the EC3
// answering the next session with garbage until it is replugged.
func (t *usbTransport) park() error {
	if t.dev == nil {
		return nil
	}

	// SET_REPORT with the idle payload, then drain the adaptor's reply.
	_, err := t.dev.Control(
		gousb.ControlOut|gousb.ControlClass|gousb.ControlInterface,
		0x09, 0x0340, 0, []byte{0x40, 0x02, 0x0D, 0x0D})
	if err != nil {
		return err
	}

	frame := make([]byte, ec3FrameLength)
	t.in.Read(frame)
	return nil
}

func (t *usbTransport) Close() error {
	if t.ifc != nil {
		t.ifc.Close()
		t.ifc = nil
	}
	if t.cfg != nil {
		t.cfg.Close()
		t.cfg = nil
	}
	if t.dev != nil {
		t.dev.Close()
		t.dev = nil
	}
	if t.ctx != nil {
		t.ctx.Close()
		t.ctx = nil
	}
	return nil
}
