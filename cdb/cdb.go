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

// Package cdb parses SDCC CDB debug symbol files. The driver itself never
// consumes these; they map addresses to names for whoever sits on top of
// it.
package cdb

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var ErrMalformedRecord = errors.New("malformed CDB record")

// Scope of a symbol record.
type Scope int

const (
	ScopeGlobal Scope = iota
	ScopeFile
	ScopeLocal
)

// Symbol is one S: or F: record. Addr is filled in later by the matching
// L: linker record.
type Symbol struct {
	Name  string
	Scope Scope
	// Enclosing function for local scope, file name for file scope.
	ScopeName string
	Level     int
	Block     int

	Addr    uint32
	HasAddr bool
}

// Function is an F: record: a symbol plus interrupt handler metadata.
type Function struct {
	Symbol
	Interrupt    bool
	InterruptNum int
	RegBank      int
}

// SourceLine maps one C source line to a code address (an L:C record).
type SourceLine struct {
	File string
	Line int
	Addr uint32
}

// SymTab holds everything parsed out of one CDB file.
type SymTab struct {
	Modules   []string
	Symbols   map[string]*Symbol
	Functions map[string]*Function
	Lines     []SourceLine
}

func NewSymTab() *SymTab {
	return &SymTab{
		Symbols:   map[string]*Symbol{},
		Functions: map[string]*Function{},
	}
}

// LoadFile parses a CDB file from disk.
func LoadFile(path string) (*SymTab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads CDB records line by line. Record kinds we do not consume
// (type records, register details) are skipped, not rejected.
func Parse(r io.Reader) (*SymTab, error) {
	tab := NewSymTab()
	s := bufio.NewScanner(r)
	lineNo := 0

	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		if err := tab.parseRecord(line); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return tab, nil
}

func (t *SymTab) parseRecord(line string) error {
	if len(line) < 2 || line[1] != ':' {
		return ErrMalformedRecord
	}

	body := line[2:]
	switch line[0] {
	case 'M':
		t.Modules = append(t.Modules, body)
		return nil
	case 'F':
		return t.parseFunction(body)
	case 'S':
		return t.parseSymbol(body)
	case 'L':
		return t.parseLinker(body)
	case 'T':
		// Type records; nothing here needs them.
		return nil
	default:
		return nil
	}
}

// parseScopeName decodes the <scope>$<name>$ prefix shared by symbol,
// function and linker records: G$ for global, F<file>$ for file scope,
// L<function>$ for function-local.
func parseScopeName(body string) (scope Scope, scopeName, name, rest string, err error) {
	parts := strings.SplitN(body, "$", 3)
	if len(parts) < 3 || parts[0] == "" {
		return 0, "", "", "", ErrMalformedRecord
	}

	switch parts[0][0] {
	case 'G':
		scope = ScopeGlobal
	case 'F':
		scope = ScopeFile
		scopeName = parts[0][1:]
	case 'L':
		scope = ScopeLocal
		scopeName = parts[0][1:]
	default:
		return 0, "", "", "", ErrMalformedRecord
	}
	return scope, scopeName, parts[1], parts[2], nil
}

// levelBlock decodes the <level>$<block> pair that follows the name. The
// trailing portion (type descriptor onwards) is returned unparsed.
func levelBlock(rest string) (level, block int, tail string, err error) {
	i := strings.IndexByte(rest, '$')
	if i < 0 {
		return 0, 0, "", ErrMalformedRecord
	}
	level64, err := strconv.ParseInt(rest[:i], 10, 32)
	if err != nil {
		return 0, 0, "", ErrMalformedRecord
	}

	tail = rest[i+1:]
	j := strings.IndexAny(tail, "($:,")
	blockStr := tail
	if j >= 0 {
		blockStr = tail[:j]
		tail = tail[j:]
	} else {
		tail = ""
	}
	block64, err := strconv.ParseInt(blockStr, 10, 32)
	if err != nil {
		return 0, 0, "", ErrMalformedRecord
	}
	return int(level64), int(block64), tail, nil
}

func (t *SymTab) parseSymbol(body string) error {
	scope, scopeName, name, rest, err := parseScopeName(body)
	if err != nil {
		return err
	}
	level, block, _, err := levelBlock(rest)
	if err != nil {
		return err
	}

	t.Symbols[name] = &Symbol{
		Name:      name,
		Scope:     scope,
		ScopeName: scopeName,
		Level:     level,
		Block:     block,
	}
	return nil
}

func (t *SymTab) parseFunction(body string) error {
	scope, scopeName, name, rest, err := parseScopeName(body)
	if err != nil {
		return err
	}
	level, block, tail, err := levelBlock(rest)
	if err != nil {
		return err
	}

	fn := &Function{Symbol: Symbol{
		Name:      name,
		Scope:     scope,
		ScopeName: scopeName,
		Level:     level,
		Block:     block,
	}}

	// ...(type),space,onstack,stack,interrupt,intnum,regbank
	if i := strings.LastIndexByte(tail, ')'); i >= 0 {
		fields := strings.Split(tail[i+1:], ",")
		if len(fields) >= 7 {
			fn.Interrupt = fields[4] == "1"
			fn.InterruptNum, _ = strconv.Atoi(fields[5])
			fn.RegBank, _ = strconv.Atoi(fields[6])
		}
	}

	t.Functions[name] = fn
	t.Symbols[name] = &fn.Symbol
	return nil
}

// parseLinker handles L: records, which attach addresses to earlier
// symbol records or map source lines to code.
func (t *SymTab) parseLinker(body string) error {
	i := strings.LastIndexByte(body, ':')
	if i < 0 {
		return ErrMalformedRecord
	}
	addr64, err := strconv.ParseUint(strings.TrimSpace(body[i+1:]), 16, 32)
	if err != nil {
		return ErrMalformedRecord
	}
	addr := uint32(addr64)
	ref := body[:i]

	switch {
	case strings.HasPrefix(ref, "A$"):
		// Asm line records are not kept.
		return nil
	case strings.HasPrefix(ref, "C$"):
		parts := strings.Split(ref[2:], "$")
		if len(parts) < 2 {
			return ErrMalformedRecord
		}
		lineNum, err := strconv.Atoi(parts[1])
		if err != nil {
			return ErrMalformedRecord
		}
		t.Lines = append(t.Lines, SourceLine{
			File: parts[0],
			Line: lineNum,
			Addr: addr,
		})
		return nil
	default:
		_, _, name, _, err := parseScopeName(ref)
		if err != nil {
			return err
		}
		if sym, ok := t.Symbols[name]; ok {
			sym.Addr = addr
			sym.HasAddr = true
		}
		return nil
	}
}

// AddressOf returns the linked address of a named symbol.
func (t *SymTab) AddressOf(name string) (uint32, bool) {
	sym, ok := t.Symbols[name]
	if !ok || !sym.HasAddr {
		return 0, false
	}
	return sym.Addr, true
}

// LineAt returns the source line whose address is the closest at or below
// addr.
func (t *SymTab) LineAt(addr uint32) (SourceLine, bool) {
	var best SourceLine
	found := false
	for _, l := range t.Lines {
		if l.Addr <= addr && (!found || l.Addr > best.Addr) {
			best = l
			found = true
		}
	}
	return best, found
}
