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

// Adaptor bootloader commands. Every adaptor powers up in its bootloader;
// connect talks to it just long enough to check the firmware version and
// start the debug application. Firmware replacement itself is out of scope,
// but it would reuse these same exchanges.

const (
	bootCmdGetVersion      = 0x00
	bootCmdSelectFlashPage = 0x01
	bootCmdRunApp          = 0x06

	bootAck = 0x0D
)

// Firmware version windows per adaptor generation. Versions below the
// minimum do not implement the command set we rely on; versions above the
// maximum have simply not been tested and are allowed with a warning.
const (
	minEC2Version = 0x13
	maxEC2Version = 0x13
	minEC3Version = 0x07
	maxEC3Version = 0x0A
)

func firmwareWindow(adaptor AdaptorType) (min, max uint8) {
	if adaptor == EC2 {
		return minEC2Version, maxEC2Version
	}
	return minEC3Version, maxEC3Version
}

// bootGetVersion reads the bootloader's own version byte.
func bootGetVersion(c *Channel) (uint8, error) {
	rx, err := c.Request([]byte{bootCmdGetVersion, 0x00, 0x00}, 1)
	if err != nil {
		return 0, err
	}
	return rx[0], nil
}

// bootSelectFlashPage selects the adaptor firmware page subsequent
// bootloader operations act on. Connect selects the debug application's
// entry page before starting it.
func bootSelectFlashPage(c *Channel, page uint8) error {
	return c.Exchange([]byte{bootCmdSelectFlashPage, page}, []byte{bootAck})
}

// bootRunApp leaves the bootloader and starts the debug application. The
// reply is the application firmware version, which connect gates on.
func bootRunApp(c *Channel) (uint8, error) {
	rx, err := c.Request([]byte{bootCmdRunApp, 0x00, 0x00}, 1)
	if err != nil {
		return 0, err
	}
	return rx[0], nil
}
