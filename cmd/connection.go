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

	"github.com/setarcos/ec2-newer/protocol"
)

func connectToTarget() (*protocol.Session, error) {
	mode, ok := protocol.ParseMode(modeName)
	if !ok {
		return nil, fmt.Errorf("unknown mode %q (want auto, c2 or jtag)", modeName)
	}

	sess := protocol.NewSession()
	sess.SetDebug(debug)
	if err := sess.Connect(portName, mode); err != nil {
		return nil, err
	}
	return sess, nil
}

// resetAndCloseSession leaves the target running its own firmware before
// dropping the adaptor.
func resetAndCloseSession(sess *protocol.Session) {
	sess.TargetReset()
	sess.TargetGo()
	sess.Disconnect()
}
