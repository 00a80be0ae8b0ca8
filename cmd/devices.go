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

	"github.com/fatih/color"
	"github.com/setarcos/ec2-newer/target"
	"github.com/spf13/cobra"
)

// devicesCmd represents the devices command
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List supported target devices",
	Long:  `List the device profiles this tool can identify and program`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bold := color.New(color.Bold)

		for _, name := range target.Names() {
			dev := target.ByName(name)
			iface := "JTAG"
			if dev.C2 {
				iface = "C2"
			}

			bold.Printf("%-12s", name)
			fmt.Printf(" %-4s flash %6d", iface, dev.FlashSize)
			if dev.HasScratchpad {
				fmt.Printf("  scratchpad %d", dev.ScratchpadLen)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
