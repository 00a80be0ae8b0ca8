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

import "strings"

// Transport carries raw command bytes between the host and a debug adaptor.
// The protocol is strictly half duplex: every Send is followed by zero or
// more Receive calls before the next Send.
type Transport interface {
	// Send transmits buf in one unit.
	Send(buf []byte) error

	// Receive fills buf completely or fails. A reply that does not arrive
	// within the transport's timeout is ErrTimeout, distinct from a short
	// read or any other I/O failure.
	Receive(buf []byte) error

	// HardwareReset resets the adaptor itself (DTR toggle on the EC2,
	// no-op on the EC3 where reset is a protocol command).
	HardwareReset() error

	Close() error
}

// AdaptorType identifies the debug adaptor generation.
type AdaptorType int

const (
	EC2 AdaptorType = iota // serial adaptor
	EC3                    // USB adaptor
)

func (a AdaptorType) String() string {
	switch a {
	case EC2:
		return "EC2"
	case EC3:
		return "EC3"
	default:
		return "unknown adaptor"
	}
}

const usbPortPrefix = "USB"

// ParsePort interprets a connection target string. "USB" selects the first
// EC3 found, "USB:12345678" selects the EC3 with that serial number, and
// anything else is a serial device path for an EC2.
func ParsePort(port string) (adaptor AdaptorType, addr string, ok bool) {
	if !strings.HasPrefix(port, usbPortPrefix) {
		return EC2, port, port != ""
	}

	rest := port[len(usbPortPrefix):]
	switch {
	case rest == "":
		return EC3, "", true
	case rest[0] == ':':
		return EC3, rest[1:], true
	default:
		return EC3, "", false
	}
}

// OpenTransport opens the transport described by a connection target string.
func OpenTransport(port string) (Transport, AdaptorType, error) {
	adaptor, addr, ok := ParsePort(port)
	if !ok {
		return nil, adaptor, &PortError{Port: port}
	}

	var (
		t   Transport
		err error
	)
	if adaptor == EC3 {
		t, err = openUSB(addr)
	} else {
		t, err = openSerial(addr)
	}
	if err != nil {
		return nil, adaptor, err
	}
	return t, adaptor, nil
}

// PortError reports a connection target string the driver cannot interpret.
type PortError struct {
	Port string
}

func (e *PortError) Error() string {
	return "Invalid port specifier \"" + e.Port + "\""
}
