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

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// idCmd represents the id command
var idCmd = &cobra.Command{
	Use:   "id",
	Short: "Identify the connected target",
	Long:  `Connect to the adaptor and report the attached device`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := connectToTarget()
		if err != nil {
			return err
		}
		defer resetAndCloseSession(sess)

		idrev, err := sess.DeviceID()
		if err != nil {
			return err
		}

		dev := sess.Device()
		fmt.Printf("Adaptor:   %s\n", sess.Adaptor())
		fmt.Printf("Interface: %s\n", sess.Mode())
		fmt.Printf("Device:    %s (id %02X rev %02X)\n", dev.Name, uint8(idrev>>8), uint8(idrev))

		if uid, err := sess.UniqueDeviceID(); err == nil {
			fmt.Printf("Unique ID: %04X\n", uid)
		}
		fmt.Printf("Flash:     %d bytes (%d byte sectors)\n", dev.FlashSize, dev.FlashSectorSize)
		if dev.HasScratchpad {
			fmt.Printf("Scratchpad: %d bytes\n", dev.ScratchpadLen)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(idCmd)
}
