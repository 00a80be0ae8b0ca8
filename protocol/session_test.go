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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWriteSFR(t *testing.T) {
	sess, sim := connectSim(t, "C8051F330", ModeC2)

	require.NoError(t, sess.WriteSFR(0x98, 0x42))
	assert.Equal(t, byte(0x42), sim.sfr[0x98])

	v, err := sess.ReadSFR(0x98)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x42), v)
}

// PSW and ACC read wrong through their datasheet addresses; the debug
// hardware exposes them low in the register file instead.
func TestSFRFixup(t *testing.T) {
	sess, sim := connectSim(t, "C8051F330", ModeC2)

	sim.sfr[0x23] = 0x11 // PSW as the debug circuit exposes it
	sim.sfr[0x22] = 0x22 // ACC
	sim.sfr[0xD0] = 0x99 // stale datasheet locations
	sim.sfr[0xE0] = 0x99

	psw, err := sess.ReadSFR(0xD0)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x11), psw)

	acc, err := sess.ReadSFR(0xE0)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x22), acc)

	require.NoError(t, sess.WriteSFR(0xE0, 0x55))
	assert.Equal(t, byte(0x55), sim.sfr[0x22])
	assert.Equal(t, byte(0x99), sim.sfr[0xE0])
}

func TestSFRRejectsDirectAddresses(t *testing.T) {
	sess, _ := connectSim(t, "C8051F330", ModeC2)

	_, err := sess.ReadSFR(0x7F)
	assert.Error(t, err)
	assert.Error(t, sess.WriteSFR(0x00, 0x01))
}

// Paged access saves and restores the page-select register around the
// register access.
func TestPagedSFR(t *testing.T) {
	sess, sim := connectSim(t, "C8051F040", ModeJTAG)

	sim.sfr[sfrPageReg] = 0x0F
	sim.sfr[0xA9] = 0x33

	v, err := sess.ReadPagedSFR(SFRReg{Page: 0x02, Addr: 0xA9})
	require.NoError(t, err)
	assert.Equal(t, uint8(0x33), v)
	assert.Equal(t, byte(0x0F), sim.sfr[sfrPageReg], "page register restored")

	require.NoError(t, sess.WritePagedSFR(SFRReg{Page: 0x02, Addr: 0xA9}, 0x44))
	assert.Equal(t, byte(0x44), sim.sfr[0xA9])
	assert.Equal(t, byte(0x0F), sim.sfr[sfrPageReg])
}

// On devices without paged SFRs the page is simply ignored.
func TestPagedSFRUnpagedDevice(t *testing.T) {
	sess, sim := connectSim(t, "C8051F330", ModeC2)

	sim.sfr[0x98] = 0x77
	v, err := sess.ReadPagedSFR(SFRReg{Page: 0x05, Addr: 0x98})
	require.NoError(t, err)
	assert.Equal(t, uint8(0x77), v)
}

func TestReadWriteRAM(t *testing.T) {
	sess, sim := connectSim(t, "C8051F330", ModeC2)

	// Longer than one direct-access block, so it chunks.
	data := make([]byte, 20)
	for i := range data {
		data[i] = byte(0x30 + i)
	}
	require.NoError(t, sess.WriteRAM(0x40, data))
	assert.Equal(t, data, sim.ram[0x40:0x40+len(data)])

	got := make([]byte, len(data))
	require.NoError(t, sess.ReadRAM(0x40, got))
	assert.Equal(t, data, got)

	// Range must stay inside 0x00-0xFF.
	assert.Error(t, sess.ReadRAM(0xF0, make([]byte, 0x20)))
}

func TestReadWriteXRAM(t *testing.T) {
	for _, tc := range []struct {
		dev  string
		mode ModeType
	}{
		{"C8051F330", ModeC2},
		{"C8051F020", ModeJTAG},
	} {
		t.Run(tc.dev, func(t *testing.T) {
			sess, sim := connectSim(t, tc.dev, tc.mode)

			data := make([]byte, 150)
			for i := range data {
				data[i] = byte(i * 3)
			}
			require.NoError(t, sess.WriteXRAM(0x0120, data))
			assert.Equal(t, data, sim.xram[0x0120:0x0120+len(data)])

			got := make([]byte, len(data))
			require.NoError(t, sess.ReadXRAM(0x0120, got))
			assert.Equal(t, data, got)
		})
	}
}

func TestMemoryRequiresConnection(t *testing.T) {
	sess := NewSession()

	_, err := sess.ReadSFR(0x80)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, sess.ReadRAM(0, make([]byte, 1)), ErrNotConnected)
	assert.ErrorIs(t, sess.ReadXRAM(0, make([]byte, 1)), ErrNotConnected)
	assert.ErrorIs(t, sess.ReadFlash(0, make([]byte, 1)), ErrNotConnected)
	_, err = sess.DeviceID()
	assert.ErrorIs(t, err, ErrNotConnected)
}
