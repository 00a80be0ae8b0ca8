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

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Resume target execution",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := connectToTarget()
		if err != nil {
			return err
		}
		defer sess.Disconnect()

		return sess.TargetGo()
	},
}

// haltCmd represents the halt command
var haltCmd = &cobra.Command{
	Use:   "halt",
	Short: "Halt the target core",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := connectToTarget()
		if err != nil {
			return err
		}
		defer sess.Disconnect()

		if err := sess.TargetHalt(); err != nil {
			return err
		}
		pc, err := sess.ReadPC()
		if err != nil {
			return err
		}
		fmt.Printf("Halted at %04X\n", pc)
		return nil
	},
}

// stepCmd represents the step command
var stepCmd = &cobra.Command{
	Use:   "step",
	Short: "Single-step the target core",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := connectToTarget()
		if err != nil {
			return err
		}
		defer sess.Disconnect()

		pc, err := sess.Step()
		if err != nil {
			return err
		}
		fmt.Printf("PC = %04X\n", pc)
		return nil
	},
}

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the target core",
	Long:  `Reset the target core and leave it halted at its reset vector`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := connectToTarget()
		if err != nil {
			return err
		}
		defer sess.Disconnect()

		run, _ := cmd.Flags().GetBool("run")
		if err := sess.TargetReset(); err != nil {
			return err
		}
		if run {
			return sess.TargetGo()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(haltCmd)
	rootCmd.AddCommand(stepCmd)
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().BoolP("run", "r", false, "resume execution after reset")
}
