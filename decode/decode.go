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

// Package decode converts one BAM record into a compact per-read
// methylation observation: a sparse, CpG-id-sorted list of
// (cpg id, state) pairs, plus the summary fields the metric kernels
// need (span, concordance class).
package decode

import (
	"github.com/biogo/hts/sam"
	"github.com/grailbio/bsmethyl/cpgindex"
)

// State is a CpG methylation call. Only Methylated and Unmethylated ever
// appear in a Read's Obs; any other call-string symbol is dropped by the
// decoder before it reaches an Observation.
type State uint8

const (
	Unmethylated State = iota
	Methylated
)

// Observation is a single CpG call a read carries.
type Observation struct {
	CpGID cpgindex.ID
	State State
}

// Concordance classifies a read by the states it carries.
type Concordance uint8

const (
	AllMethylated Concordance = iota
	AllUnmethylated
	Discordant
)

// Read is a decoded alignment record, reduced to what the pileup engine
// and metric kernels need. Once built, a Read is immutable and safe to
// share by pointer across every CpG bucket it participates in.
type Read struct {
	RefID       int
	LeftPos     int // 0-based, inclusive
	RightPos    int // 0-based, exclusive (one past the last reference base consumed)
	MapQ        byte
	Obs         []Observation // sorted by CpGID, no duplicate CpGID
	Concordance Concordance
}

// FirstCpG and LastCpG are convenience accessors; callers needing them
// frequently may prefer to cache r.Obs[0].CpGID / r.Obs[len(r.Obs)-1].CpGID
// directly.
func (r *Read) FirstCpG() cpgindex.ID { return r.Obs[0].CpGID }
func (r *Read) LastCpG() cpgindex.ID  { return r.Obs[len(r.Obs)-1].CpGID }

// HasPair reports whether r carries at least two CpG observations, the
// precondition LPMD/MHL/FDRP/qFDRP require of a usable read.
func (r *Read) HasPair() bool { return len(r.Obs) >= 2 }

// StateAt does a binary search for id within r.Obs and reports whether it
// was observed, and if so its state and its index in Obs.
func (r *Read) StateAt(id cpgindex.ID) (state State, idx int, ok bool) {
	lo, hi := 0, len(r.Obs)
	for lo < hi {
		mid := (lo + hi) / 2
		if r.Obs[mid].CpGID < id {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(r.Obs) && r.Obs[lo].CpGID == id {
		return r.Obs[lo].State, lo, true
	}
	return 0, -1, false
}

// DropReason names why the decoder rejected a record.
type DropReason int

const (
	DropUnmapped DropReason = iota
	DropLowMapQ
	DropSecondaryOrSupplementary
	DropMissingCallTag
	DropMalformedCallString
	DropNoCpGObserved
)

// Counters tallies why records were dropped, for an end-of-run summary.
// Per-record decode failures never abort a run; they are only
// aggregated, never logged per record.
type Counters struct {
	Unmapped                 int64
	LowMapQ                  int64
	SecondaryOrSupplementary int64
	MissingCallTag           int64
	MalformedCallString      int64
	NoCpGObserved            int64
	Accepted                 int64
}

func (c *Counters) count(reason DropReason) {
	switch reason {
	case DropUnmapped:
		c.Unmapped++
	case DropLowMapQ:
		c.LowMapQ++
	case DropSecondaryOrSupplementary:
		c.SecondaryOrSupplementary++
	case DropMissingCallTag:
		c.MissingCallTag++
	case DropMalformedCallString:
		c.MalformedCallString++
	case DropNoCpGObserved:
		c.NoCpGObserved++
	}
}

// callTag is the aux tag carrying the per-base methylation call string,
// using the Bismark convention: 'Z' methylated CpG, 'z' unmethylated CpG,
// any other symbol is a non-CpG (or masked) position and is skipped.
var callTag = sam.NewTag("XM")

// Decoder turns sam.Records into Reads, assigning CpG ids via index.
//
// A Decoder is not safe for concurrent use: it owns the single CpG
// index-building pass the pipeline makes over a coordinate-sorted input.
type Decoder struct {
	index    *cpgindex.Index
	minQual  byte
	Counters Counters
}

// New returns a Decoder rejecting records with mapping quality < minQual.
func New(index *cpgindex.Index, minQual byte) *Decoder {
	return &Decoder{index: index, minQual: minQual}
}

// Decode converts one record into a Read. ok is false if the record was
// dropped; the reason is tallied in d.Counters and never surfaces as an
// error — a malformed call string is a per-record condition, not a fatal
// one.
func (d *Decoder) Decode(rec *sam.Record) (*Read, bool) {
	if rec.Flags&sam.Unmapped != 0 {
		d.Counters.count(DropUnmapped)
		return nil, false
	}
	if rec.MapQ < d.minQual {
		d.Counters.count(DropLowMapQ)
		return nil, false
	}
	if rec.Flags&(sam.Secondary|sam.Supplementary) != 0 {
		d.Counters.count(DropSecondaryOrSupplementary)
		return nil, false
	}
	auxVal, ok := rec.Tag(callTag[:])
	if !ok {
		d.Counters.count(DropMissingCallTag)
		return nil, false
	}
	callString, ok := auxVal.Value().(string)
	if !ok {
		d.Counters.count(DropMalformedCallString)
		return nil, false
	}

	obs, malformed := d.walk(rec, callString)
	if malformed {
		d.Counters.count(DropMalformedCallString)
		return nil, false
	}
	if len(obs) == 0 {
		d.Counters.count(DropNoCpGObserved)
		return nil, false
	}

	d.Counters.Accepted++
	return &Read{
		RefID:       rec.Ref.ID(),
		LeftPos:     rec.Start(),
		RightPos:    rec.End(),
		MapQ:        rec.MapQ,
		Obs:         obs,
		Concordance: concordanceOf(obs),
	}, true
}

// walk advances queryIdx/refPos through rec's CIGAR in lockstep, the same
// way sam.Record.End() walks Cigar in github.com/biogo/hts/sam/record.go,
// consulting callString at every query-consuming operation and recording
// an Observation at every operation that also consumes the reference.
func (d *Decoder) walk(rec *sam.Record, callString string) (obs []Observation, malformed bool) {
	refID := uint32(rec.Ref.ID())
	queryIdx := 0
	refPos := rec.Pos
	lastID := cpgindex.ID(0)
	haveLast := false
	for _, co := range rec.Cigar {
		consume := co.Type().Consumes()
		n := co.Len()
		for i := 0; i < n; i++ {
			if consume.Query != 0 {
				if queryIdx >= len(callString) {
					return obs, true
				}
				sym := callString[queryIdx]
				if consume.Reference != 0 {
					if state, known := symbolState(sym); known {
						if id, found := d.index.Lookup(refID, uint32(refPos)); found {
							if !haveLast || id != lastID {
								obs = append(obs, Observation{CpGID: id, State: state})
								lastID = id
								haveLast = true
							}
						}
					}
				}
				queryIdx++
			}
			if consume.Reference != 0 {
				refPos++
			}
		}
	}
	return obs, false
}

func symbolState(sym byte) (State, bool) {
	switch sym {
	case 'Z':
		return Methylated, true
	case 'z':
		return Unmethylated, true
	default:
		return 0, false
	}
}

func concordanceOf(obs []Observation) Concordance {
	sawM, sawU := false, false
	for _, o := range obs {
		if o.State == Methylated {
			sawM = true
		} else {
			sawU = true
		}
	}
	switch {
	case sawM && sawU:
		return Discordant
	case sawM:
		return AllMethylated
	default:
		return AllUnmethylated
	}
}
