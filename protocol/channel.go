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
	"bytes"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Step is one element of a fixed command script: transmit Tx, expect
// exactly Rx back.
type Step struct {
	Tx []byte
	Rx []byte
}

// Channel builds the request/response primitive every higher-level
// operation is composed of. It owns the wire trace; enable it with
// SetTrace or a session debug flag.
type Channel struct {
	t     Transport
	log   *logrus.Entry
	trace bool
}

func NewChannel(t Transport) *Channel {
	return &Channel{
		t:   t,
		log: logrus.WithField("pkg", "protocol"),
	}
}

func (c *Channel) SetTrace(on bool) {
	c.trace = on
}

func (c *Channel) Transport() Transport {
	return c.t
}

// Exchange sends tx and reads exactly len(want) bytes. It succeeds only if
// the reply matches want byte for byte. A mismatch leaves the channel state
// undefined and is never retried here.
func (c *Channel) Exchange(tx, want []byte) error {
	got, err := c.Request(tx, len(want))
	if err != nil {
		return err
	}
	if !bytes.Equal(got, want) {
		err := &MismatchError{Tx: tx, Want: want, Got: got}
		if c.trace {
			c.log.Warn(err)
		}
		return err
	}
	return nil
}

// Request sends tx and reads exactly n reply bytes.
func (c *Channel) Request(tx []byte, n int) ([]byte, error) {
	if err := c.t.Send(tx); err != nil {
		return nil, fmt.Errorf("send % 02x: %w", tx, err)
	}
	if c.trace {
		c.log.Debugf("TX: % 02x", tx)
	}
	if n == 0 {
		return nil, nil
	}

	rx := make([]byte, n)
	if err := c.t.Receive(rx); err != nil {
		return nil, fmt.Errorf("receive reply to % 02x: %w", tx, err)
	}
	if c.trace {
		c.log.Debugf("RX: % 02x", rx)
	}
	return rx, nil
}

// Sequence runs a fixed script of exchanges back to back. It does not stop
// at the first failure: later steps may be what leaves the adaptor in a
// recoverable state. The first failure is returned.
func (c *Channel) Sequence(steps []Step) error {
	var first error
	for _, s := range steps {
		if err := c.Exchange(s.Tx, s.Rx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
