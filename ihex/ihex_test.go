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
package ihex

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const simpleImage = `:03000000020150AA
:0401500075813AC7B4
:00000001FF
`

func TestRead(t *testing.T) {
	data, start, end, err := Read(strings.NewReader(simpleImage))
	require.NoError(t, err)

	assert.Equal(t, uint32(0x0000), start)
	assert.Equal(t, uint32(0x0153), end)
	assert.Equal(t, []byte{0x02, 0x01, 0x50}, data[0:3])
	assert.Equal(t, []byte{0x75, 0x81, 0x3A, 0xC7}, data[0x150:0x154])

	// The gap between records reads as erased flash.
	for _, b := range data[3:0x150] {
		require.Equal(t, byte(0xFF), b)
	}
}

func TestReadExtendedLinearAddress(t *testing.T) {
	image := ":02000004000AF0\n" +
		":02000000DEAD73\n" +
		":00000001FF\n"

	data, start, end, err := Read(strings.NewReader(image))
	require.NoError(t, err)
	assert.Equal(t, uint32(0x000A0000), start)
	assert.Equal(t, uint32(0x000A0001), end)
	assert.Equal(t, []byte{0xDE, 0xAD}, data)
}

func TestReadExtendedSegmentAddress(t *testing.T) {
	image := ":020000021000EC\n" +
		":0100000055AA\n" +
		":00000001FF\n"

	_, start, _, err := Read(strings.NewReader(image))
	require.NoError(t, err)
	assert.Equal(t, uint32(0x10000), start)
}

func TestReadErrors(t *testing.T) {
	_, _, _, err := Read(strings.NewReader("02000000DEADF3\n"))
	assert.ErrorIs(t, err, ErrInvalidPrefix)

	// Corrupted checksum.
	_, _, _, err = Read(strings.NewReader(":02000000DEADF4\n"))
	assert.ErrorIs(t, err, ErrInvalidChecksum)

	// Length byte disagrees with the payload.
	_, _, _, err = Read(strings.NewReader(":03000000DEADF3\n"))
	assert.ErrorIs(t, err, ErrInvalidRecord)

	// Nothing but an end record.
	_, _, _, err = Read(strings.NewReader(":00000001FF\n"))
	assert.ErrorIs(t, err, ErrNoData)
}

func TestWriteReadRoundTrip(t *testing.T) {
	data := make([]byte, 300)
	for i := range data {
		data[i] = byte(i * 7)
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, data, 0x1200))

	got, start, end, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1200), start)
	assert.Equal(t, uint32(0x1200+299), end)
	assert.Equal(t, data, got)
}

// Data crossing a 64k boundary needs an extended linear address record
// mid-stream; no data record may straddle the boundary.
func TestWriteCrosses64kBoundary(t *testing.T) {
	data := make([]byte, 0x30)
	for i := range data {
		data[i] = byte(i)
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, data, 0xFFF0))

	text := buf.String()
	assert.Contains(t, text, ":020000040001F9", "missing mid-stream address record")

	got, start, _, err := Read(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, uint32(0xFFF0), start)
	assert.Equal(t, data, got)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.ihx")
	data := []byte{0x01, 0x02, 0x03, 0x04}

	require.NoError(t, Save(path, data, 0x400))

	got, start, end, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x400), start)
	assert.Equal(t, uint32(0x403), end)
	assert.Equal(t, data, got)
}
