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
	"bytes"
	"errors"
	"fmt"

	"github.com/setarcos/ec2-newer/ihex"
	"github.com/spf13/cobra"
)

// programCmd represents the program command
var programCmd = &cobra.Command{
	Use:   "program [image.ihx]",
	Short: "Program a target device",
	Long: `Write an Intel hex image into the device's flash. Sectors the
image touches are erased first; with --keep, bytes the image does not
cover survive`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keep, _ := cmd.Flags().GetBool("keep")
		verify, _ := cmd.Flags().GetBool("verify")

		image, start, _, err := ihex.Load(args[0])
		if err != nil {
			return err
		}

		sess, err := connectToTarget()
		if err != nil {
			return err
		}
		defer resetAndCloseSession(sess)

		if keep {
			err = sess.WriteFlashAutoKeep(start, image)
		} else {
			err = sess.WriteFlashAutoErase(start, image)
		}
		if err != nil {
			return err
		}

		if verify {
			check := make([]byte, len(image))
			if err := sess.ReadFlash(start, check); err != nil {
				return err
			}
			if !bytes.Equal(check, image) {
				return errors.New("verify failed: flash contents do not match image")
			}
		}

		fmt.Printf("Programmed %d bytes at %04X\n", len(image), start)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(programCmd)
	programCmd.Flags().BoolP("keep", "k", false, "preserve flash contents the image does not cover")
	programCmd.Flags().BoolP("verify", "V", true, "verify flash contents after writing")
}
