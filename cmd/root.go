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
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	_ "github.com/setarcos/ec2-newer/target/all"
)

var portName string
var modeName string
var debug bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ec2tool",
	Short: "Silicon Labs EC2/EC3 debug adaptor tool",
	Long: `A tool for programming and debugging Silicon Labs C8051
devices through the EC2 serial and EC3 USB debug adaptors`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			logrus.SetLevel(logrus.DebugLevel)
		} else {
			logrus.SetLevel(logrus.WarnLevel)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "USB", "adaptor port (USB, USB:serial or a serial device path)")
	rootCmd.PersistentFlags().StringVarP(&modeName, "mode", "m", "auto", "debug interface (auto, c2 or jtag)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "log raw adaptor traffic")
}
