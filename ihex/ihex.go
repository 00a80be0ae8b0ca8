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

// Package ihex reads and writes Intel HEX images as contiguous byte
// buffers plus an address range.
package ihex

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	ErrInvalidPrefix   = errors.New("Colon prefix missing")
	ErrInvalidChecksum = errors.New("Invalid record checksum")
	ErrInvalidRecord   = errors.New("Malformed record")
	ErrNoData          = errors.New("No data records in file")
)

type recordType byte

const (
	recData recordType = iota
	recEOF
	recExtSegmentAddr
	recStartSegmentAddr
	recExtLinearAddr
	recStartLinearAddr
)

type record struct {
	typ  recordType
	addr uint16
	data []byte
}

func parseRecord(line string) (record, error) {
	line = strings.TrimRight(line, "\r\n")
	if len(line) == 0 {
		return record{}, ErrInvalidRecord
	}
	if line[0] != ':' {
		return record{}, ErrInvalidPrefix
	}

	raw, err := hex.DecodeString(line[1:])
	if err != nil || len(raw) < 5 {
		return record{}, ErrInvalidRecord
	}

	count := int(raw[0])
	if len(raw) != count+5 {
		return record{}, ErrInvalidRecord
	}

	var sum byte
	for _, b := range raw {
		sum += b
	}
	if sum != 0 {
		return record{}, ErrInvalidChecksum
	}

	return record{
		typ:  recordType(raw[3]),
		addr: uint16(raw[1])<<8 | uint16(raw[2]),
		data: raw[4 : 4+count],
	}, nil
}

func writeRecord(w io.Writer, r record) error {
	raw := make([]byte, 0, len(r.data)+5)
	raw = append(raw, byte(len(r.data)), byte(r.addr>>8), byte(r.addr), byte(r.typ))
	raw = append(raw, r.data...)

	var sum byte
	for _, b := range raw {
		sum += b
	}
	raw = append(raw, -sum)

	_, err := fmt.Fprintf(w, ":%s\n", strings.ToUpper(hex.EncodeToString(raw)))
	return err
}

// Block is one contiguous run of data bytes at an absolute address.
type Block struct {
	Address uint32
	Data    []byte
}

// Reader yields data blocks from an Intel HEX stream, resolving extended
// segment and linear address records.
type Reader struct {
	s    *bufio.Scanner
	base uint32
	eof  bool
}

func NewReader(r io.Reader) *Reader {
	return &Reader{s: bufio.NewScanner(r)}
}

// Next returns the next data block, or io.EOF after the end-of-file
// record.
func (r *Reader) Next() (Block, error) {
	for !r.eof {
		if !r.s.Scan() {
			if err := r.s.Err(); err != nil {
				return Block{}, err
			}
			return Block{}, io.EOF
		}
		line := strings.TrimSpace(r.s.Text())
		if line == "" {
			continue
		}

		rec, err := parseRecord(line)
		if err != nil {
			return Block{}, err
		}

		switch rec.typ {
		case recData:
			return Block{Address: r.base + uint32(rec.addr), Data: rec.data}, nil
		case recEOF:
			r.eof = true
		case recExtSegmentAddr:
			if len(rec.data) != 2 {
				return Block{}, ErrInvalidRecord
			}
			r.base = uint32(rec.data[0])<<12 | uint32(rec.data[1])<<4
		case recExtLinearAddr:
			if len(rec.data) != 2 {
				return Block{}, ErrInvalidRecord
			}
			r.base = uint32(rec.data[0])<<24 | uint32(rec.data[1])<<16
		case recStartSegmentAddr, recStartLinearAddr:
			// Entry point records carry nothing we load.
		default:
			return Block{}, ErrInvalidRecord
		}
	}
	return Block{}, io.EOF
}

// Read assembles all data blocks in the stream into one contiguous buffer
// covering [start, end]. Gaps between blocks are filled with 0xFF, the
// erased-flash value.
func Read(r io.Reader) (data []byte, start, end uint32, err error) {
	rd := NewReader(r)

	var blocks []Block
	first := true
	for {
		b, err := rd.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, 0, err
		}
		if len(b.Data) == 0 {
			continue
		}

		top := b.Address + uint32(len(b.Data)) - 1
		if first {
			start, end = b.Address, top
			first = false
		} else {
			if b.Address < start {
				start = b.Address
			}
			if top > end {
				end = top
			}
		}
		blocks = append(blocks, b)
	}
	if first {
		return nil, 0, 0, ErrNoData
	}

	data = make([]byte, end-start+1)
	for i := range data {
		data[i] = 0xFF
	}
	for _, b := range blocks {
		copy(data[b.Address-start:], b.Data)
	}
	return data, start, end, nil
}

// Load reads an Intel HEX file into a contiguous buffer plus its address
// range.
func Load(path string) (data []byte, start, end uint32, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()
	return Read(f)
}

// Line length of emitted data records.
const writeChunk = 32

// Write emits data at the given start address as Intel HEX, inserting
// extended linear address records at 64k boundaries.
func Write(w io.Writer, data []byte, start uint32) error {
	base := uint32(0xFFFFFFFF) // force an ELA record if start >= 64k

	for off := 0; off < len(data); {
		addr := start + uint32(off)

		if addr&0xFFFF0000 != base {
			base = addr & 0xFFFF0000
			if base != 0 || addr >= 0x10000 {
				if err := writeRecord(w, record{
					typ:  recExtLinearAddr,
					data: []byte{byte(base >> 24), byte(base >> 16)},
				}); err != nil {
					return err
				}
			}
		}

		n := len(data) - off
		if n > writeChunk {
			n = writeChunk
		}
		// Stop records at 64k boundaries so the offset never wraps.
		if rem := 0x10000 - int(addr&0xFFFF); n > rem {
			n = rem
		}

		if err := writeRecord(w, record{
			typ:  recData,
			addr: uint16(addr),
			data: data[off : off+n],
		}); err != nil {
			return err
		}
		off += n
	}

	return writeRecord(w, record{typ: recEOF})
}

// Save writes data to an Intel HEX file at the given start address.
func Save(path string, data []byte, start uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, data, start); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
