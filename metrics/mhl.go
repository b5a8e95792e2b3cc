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
package metrics

import (
	"github.com/grailbio/bsmethyl/cpgindex"
	"github.com/grailbio/bsmethyl/decode"
	"github.com/grailbio/bsmethyl/pileup"
)

// MHL implements the Methylation Haplotype Load kernel. Stretch assembly
// is shared in shape with PDR (same consecutive-id, already-depth-filtered
// bucket stream), but the per-stretch math differs entirely.
//
// h_k/t_k are counted at the segment level: for every contiguous k-CpG
// window starting within the stretch (there are L-k+1 of them, L the
// stretch length), every read carrying observations at all k ids in that
// window contributes one to t_k, and one to h_k if all k are methylated.
// A read can contribute to t_k more than once per k if it spans multiple
// qualifying windows, matching the haplotype-load literature's
// per-segment accounting rather than a per-read boolean (see DESIGN.md).
type MHL struct {
	MinCpGs int
	RefName RefNamer
	Writer  RowWriter

	haveRun  bool
	startID  cpgindex.ID
	startPos cpgindex.Position
	prevID   cpgindex.ID
	prevPos  cpgindex.Position
	reads    map[*decode.Read]struct{}
	err      error
}

var _ pileup.Sink = (*MHL)(nil)

// Err returns the first error a WriteStretchRow call returned, if any.
func (m *MHL) Err() error { return m.err }

// HandleBucket implements pileup.Sink.
func (m *MHL) HandleBucket(b pileup.Bucket) {
	if m.haveRun && b.Position.RefID == m.prevPos.RefID && b.CpGID == m.prevID+1 {
		// continues
	} else {
		m.emit()
		m.haveRun = true
		m.startID = b.CpGID
		m.startPos = b.Position
		m.reads = make(map[*decode.Read]struct{})
	}
	for _, r := range b.Reads {
		if !r.HasPair() {
			continue
		}
		m.reads[r] = struct{}{}
	}
	m.prevID = b.CpGID
	m.prevPos = b.Position
}

// Finish flushes the final stretch, if any.
func (m *MHL) Finish() {
	m.emit()
}

func (m *MHL) emit() {
	if !m.haveRun {
		return
	}
	defer func() { m.haveRun = false }()

	length := int(m.prevID-m.startID) + 1
	if length < m.MinCpGs {
		return
	}
	reads := make([]*decode.Read, 0, len(m.reads))
	for r := range m.reads {
		reads = append(reads, r)
	}
	if len(reads) == 0 {
		return
	}

	denom := float64(length * (length + 1) / 2)
	var mhl float64
	for k := 1; k <= length; k++ {
		hk, tk := windowCounts(reads, m.startID, length, k)
		if tk == 0 {
			continue
		}
		wk := float64(k) / denom
		mhl += wk * float64(hk) / float64(tk)
	}

	if m.err != nil {
		return
	}
	m.err = m.Writer.WriteStretchRow(
		m.RefName(int(m.startPos.RefID)),
		m.startPos.Pos,
		m.prevPos.Pos+1,
		mhl, len(reads), 0, false,
	)
}

// windowCounts returns (h_k, t_k) for every length-k window starting
// within a stretch of the given length, anchored at startID.
func windowCounts(reads []*decode.Read, startID cpgindex.ID, stretchLen, k int) (hk, tk int) {
	for s := 0; s+k <= stretchLen; s++ {
		winStart := startID + cpgindex.ID(s)
		winEnd := winStart + cpgindex.ID(k) - 1
		for _, r := range reads {
			full, allMethylated := windowState(r, winStart, winEnd)
			if full {
				tk++
				if allMethylated {
					hk++
				}
			}
		}
	}
	return hk, tk
}

// windowState reports whether r has an observation at every id in
// [lo, hi], and if so whether all of them are methylated.
func windowState(r *decode.Read, lo, hi cpgindex.ID) (full, allMethylated bool) {
	allMethylated = true
	for id := lo; id <= hi; id++ {
		state, _, ok := r.StateAt(id)
		if !ok {
			return false, false
		}
		if state != decode.Methylated {
			allMethylated = false
		}
	}
	return true, allMethylated
}
