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
	"strconv"

	"github.com/spf13/cobra"
)

// sfrCmd represents the sfr command
var sfrCmd = &cobra.Command{
	Use:   "sfr [addr] [value]",
	Short: "Read or write a special function register",
	Long: `Read a special function register, or write one when a value is
given. Addresses are hex and must be 80 or above`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := strconv.ParseUint(args[0], 16, 8)
		if err != nil {
			return fmt.Errorf("bad SFR address %q: %w", args[0], err)
		}

		sess, err := connectToTarget()
		if err != nil {
			return err
		}
		defer sess.Disconnect()

		if len(args) == 2 {
			value, err := strconv.ParseUint(args[1], 16, 8)
			if err != nil {
				return fmt.Errorf("bad SFR value %q: %w", args[1], err)
			}
			return sess.WriteSFR(uint8(addr), uint8(value))
		}

		value, err := sess.ReadSFR(uint8(addr))
		if err != nil {
			return err
		}
		fmt.Printf("SFR %02X = %02X\n", addr, value)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sfrCmd)
}
