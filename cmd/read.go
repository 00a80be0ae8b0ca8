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
	"github.com/setarcos/ec2-newer/ihex"
	"github.com/spf13/cobra"
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read [outfile.ihx]",
	Short: "Read device flash contents",
	Long:  `Read out the contents of the device's flash to an Intel hex file`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := connectToTarget()
		if err != nil {
			return err
		}
		defer resetAndCloseSession(sess)

		dev := sess.Device()
		size := dev.FlashSize
		if dev.FlashReservedTop != 0 {
			size = dev.FlashReservedBottom
		}

		data := make([]byte, size)
		if err := sess.ReadFlash(0, data); err != nil {
			return err
		}

		return ihex.Save(args[0], data, 0)
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
}
