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

// Package metrics implements the seven methylation heterogeneity
// kernels: PDR, LPMD, MHL, PM, ME, FDRP and qFDRP. Each kernel is a pure
// function of the bucket (or read) it is handed; none touch global
// state, so distinct buckets could be computed concurrently even though
// the orchestrator currently invokes one at a time.
package metrics

import (
	"sort"

	"github.com/grailbio/bsmethyl/cpgindex"
	"github.com/grailbio/bsmethyl/decode"
)

// RefNamer resolves a BAM header RefID to its display name.
type RefNamer func(refID int) string

// quartet is a 4-bit epiallele pattern: bit k set means the k-th CpG in
// the 4-CpG window was observed methylated.
type quartet uint8

// quartetAt extracts the 4-CpG epiallele window anchored at r's
// observation of cpg. ok is false if r does not have three more
// observations after cpg.
func quartetAt(r *decode.Read, cpg cpgindex.ID) (q quartet, ok bool) {
	_, idx, found := r.StateAt(cpg)
	if !found || idx+3 >= len(r.Obs) {
		return 0, false
	}
	for k := 0; k < 4; k++ {
		if r.Obs[idx+k].State == decode.Methylated {
			q |= 1 << uint(k)
		}
	}
	return q, true
}

// quartetFrequencies counts how many of reads contribute a quartet
// anchored at cpg, and the frequency of each of the 16 possible
// quartets among those contributions.
func quartetFrequencies(reads []*decode.Read, cpg cpgindex.ID) (counts [16]int, total int) {
	for _, r := range reads {
		if q, ok := quartetAt(r, cpg); ok {
			counts[q]++
			total++
		}
	}
	return counts, total
}

// observationsInRange returns the subslice of r.Obs whose CpGID falls in
// [lo, hi], inclusive.
func observationsInRange(r *decode.Read, lo, hi cpgindex.ID) []decode.Observation {
	start := sort.Search(len(r.Obs), func(i int) bool { return r.Obs[i].CpGID >= lo })
	end := sort.Search(len(r.Obs), func(i int) bool { return r.Obs[i].CpGID > hi })
	if start >= end {
		return nil
	}
	return r.Obs[start:end]
}

// isDiscordantInRange reports whether r carries both methylation states
// among its observations in [lo, hi].
func isDiscordantInRange(r *decode.Read, lo, hi cpgindex.ID) bool {
	sawM, sawU := false, false
	for _, o := range observationsInRange(r, lo, hi) {
		if o.State == decode.Methylated {
			sawM = true
		} else {
			sawU = true
		}
		if sawM && sawU {
			return true
		}
	}
	return false
}

// sharedCpGs walks a.Obs and b.Obs in sorted order (a merge, since both
// are sorted by CpGID) and invokes fn for every CpGID the two reads both
// observed. fn's return stops the walk early when it returns false.
func sharedCpGs(a, b *decode.Read, fn func(stateA, stateB decode.State) bool) (n int) {
	i, j := 0, 0
	for i < len(a.Obs) && j < len(b.Obs) {
		switch {
		case a.Obs[i].CpGID < b.Obs[j].CpGID:
			i++
		case a.Obs[i].CpGID > b.Obs[j].CpGID:
			j++
		default:
			n++
			if !fn(a.Obs[i].State, b.Obs[j].State) {
				return n
			}
			i++
			j++
		}
	}
	return n
}

// overlapBases returns the number of reference bases two reads' spans
// have in common.
func overlapBases(a, b *decode.Read) int {
	lo := a.LeftPos
	if b.LeftPos > lo {
		lo = b.LeftPos
	}
	hi := a.RightPos
	if b.RightPos < hi {
		hi = b.RightPos
	}
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// pairCount returns C(n, 2), the number of unordered pairs among n items.
func pairCount(n int) int {
	if n < 2 {
		return 0
	}
	return n * (n - 1) / 2
}

// unrankPair maps a linear pair index idx in [0, C(n,2)) to the
// corresponding unordered pair (i, j), i < j, in lexicographic row
// order: idx enumerates (0,1),(0,2),...,(0,n-1),(1,2),...
func unrankPair(n, idx int) (i, j int) {
	remaining := idx
	for i = 0; ; i++ {
		rowLen := n - i - 1
		if remaining < rowLen {
			return i, i + 1 + remaining
		}
		remaining -= rowLen
	}
}
