// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cpgindex assigns a stable, dense integer id to every CpG site
// a run encounters, either freely (any CpG seen gets an id on first
// sight) or restricted to a pre-declared BED set.
package cpgindex

import (
	"bufio"
	"context"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// ID is a dense, run-local CpG identifier. IDs are assigned in
// position-sorted encounter order per reference (Open mode) or in BED-row
// order (Restricted mode); callers must not compare IDs across runs.
type ID uint32

// Position is a single CpG site: a reference id paired with a zero-based
// coordinate on that reference. RefID matches the BAM header's own
// reference numbering (sam.Reference.ID()).
type Position struct {
	RefID uint32
	Pos   uint32
}

// Index maps (RefID, Pos) pairs to dense IDs.
//
// An Index is built incrementally by a single-threaded decode.Decoder and
// read only by metric kernels afterwards; it is not safe for concurrent
// writes, matching the single-threaded reader/decoder stage of the
// pipeline.
type Index struct {
	restricted bool
	byPos      map[Position]ID
	positions  []Position // id -> Position
}

// Open returns an Index that assigns a fresh id to any CpG seen for the
// first time via Lookup.
func Open() *Index {
	return &Index{byPos: make(map[Position]ID)}
}

// Restricted returns an Index pre-populated from a 3+-column BED file
// (zero-based, half-open; only the first three columns are read). IDs are
// assigned in file order. refIDFor resolves a BED reference-name column to
// the BAM header's numbering (e.g. sam.Header.Refs()'s ID()); a name with
// no match is skipped with its rows dropped. Lookups for positions outside
// the BED set return ok=false.
func Restricted(ctx context.Context, bedPath string, refIDFor func(name string) (uint32, bool)) (*Index, error) {
	f, err := file.Open(ctx, bedPath)
	if err != nil {
		return nil, errors.E(errors.NotExist, "cpgindex: opening BED file", bedPath, err)
	}
	defer func() { _ = f.Close(ctx) }()

	idx := &Index{restricted: true, byPos: make(map[Position]ID)}
	scanner := bufio.NewScanner(f.Reader(ctx))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}
		fields := splitTabOrSpace(line)
		if len(fields) < 3 {
			return nil, errors.E(errors.Invalid, "cpgindex: malformed BED line", bedPath, strconv.Itoa(lineNo))
		}
		refID, ok := refIDFor(fields[0])
		if !ok {
			continue
		}
		start, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return nil, errors.E(errors.Invalid, "cpgindex: malformed BED start coordinate", bedPath, strconv.Itoa(lineNo), err)
		}
		pos := Position{RefID: refID, Pos: uint32(start)}
		if _, exists := idx.byPos[pos]; exists {
			continue
		}
		id := ID(len(idx.positions))
		idx.byPos[pos] = id
		idx.positions = append(idx.positions, pos)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.E(errors.IO, "cpgindex: reading BED file", bedPath, err)
	}
	return idx, nil
}

// Lookup returns the id for (refID, pos). In Open mode an id is minted on
// first sight; in Restricted mode only pre-populated positions match.
func (x *Index) Lookup(refID uint32, pos uint32) (ID, bool) {
	key := Position{RefID: refID, Pos: pos}
	if id, ok := x.byPos[key]; ok {
		return id, true
	}
	if x.restricted {
		return 0, false
	}
	id := ID(len(x.positions))
	x.byPos[key] = id
	x.positions = append(x.positions, key)
	return id, true
}

// Position returns the (RefID, Pos) a previously assigned id refers to.
func (x *Index) Position(id ID) Position {
	return x.positions[id]
}

// Len returns the number of distinct CpG sites assigned so far.
func (x *Index) Len() int {
	return len(x.positions)
}

// splitTabOrSpace tokenizes a BED line into whitespace- or tab-separated
// fields; no quoting is supported.
func splitTabOrSpace(line string) []string {
	var fields []string
	start := -1
	for i := 0; i < len(line); i++ {
		c := line[i]
		isSep := c == '\t' || c == ' '
		if isSep {
			if start >= 0 {
				fields = append(fields, line[start:i])
				start = -1
			}
		} else if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		fields = append(fields, line[start:])
	}
	return fields
}
