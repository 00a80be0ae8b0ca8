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

// eraseCmd represents the erase command
var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Erase the device's flash",
	Long:  `Erase the whole of the device's code flash, including lock bytes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := connectToTarget()
		if err != nil {
			return err
		}
		defer resetAndCloseSession(sess)

		scratch, _ := cmd.Flags().GetBool("scratchpad")
		if scratch {
			if err := sess.EraseScratchpad(); err != nil {
				return err
			}
			fmt.Println("Scratchpad erased")
			return nil
		}

		if err := sess.EraseFlash(); err != nil {
			return err
		}
		fmt.Println("Flash erased")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eraseCmd)
	eraseCmd.Flags().BoolP("scratchpad", "s", false, "erase the scratchpad instead of code flash")
}
