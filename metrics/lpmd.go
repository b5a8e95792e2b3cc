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
	"sort"

	"github.com/grailbio/bsmethyl/cpgindex"
	"github.com/grailbio/bsmethyl/decode"
)

// pairKey identifies one (cpg_a, cpg_b) pair for the optional per-pair
// report, always ordered a < b.
type pairKey struct {
	a, b cpgindex.ID
}

type pairTally struct {
	nDiscordant int
	nTotal      int
}

// LPMD implements the Local Pairwise Methylation Disorder kernel as a
// decode.ReadSink: every decoded read is examined directly, with no
// pileup bucketing, since LPMD only ever looks at one read's own sorted
// observation list.
type LPMD struct {
	Index       *cpgindex.Index
	MinDistance uint32
	MaxDistance uint32
	RefName     RefNamer
	Writer      LPMDWriter
	PairWriter  LPMDPairWriter // nil unless a per-pair report was requested

	nDiscordant int64
	nTotal      int64
	pairs       map[pairKey]*pairTally
	err         error
}

var _ decode.ReadSink = (*LPMD)(nil)

// NewLPMD returns an LPMD kernel ready to receive reads via HandleRead.
// pairWriter may be nil to skip the optional per-pair report.
func NewLPMD(index *cpgindex.Index, minDistance, maxDistance uint32, refName RefNamer, w LPMDWriter, pairWriter LPMDPairWriter) *LPMD {
	l := &LPMD{
		Index:       index,
		MinDistance: minDistance,
		MaxDistance: maxDistance,
		RefName:     refName,
		Writer:      w,
		PairWriter:  pairWriter,
	}
	if pairWriter != nil {
		l.pairs = make(map[pairKey]*pairTally)
	}
	return l
}

// Err returns the first error a write call returned, if any.
func (l *LPMD) Err() error { return l.err }

// HandleRead implements decode.ReadSink.
func (l *LPMD) HandleRead(r *decode.Read) {
	obs := r.Obs
	for i := 0; i < len(obs); i++ {
		posA := l.Index.Position(obs[i].CpGID)
		for j := i + 1; j < len(obs); j++ {
			posB := l.Index.Position(obs[j].CpGID)
			if posA.RefID != posB.RefID {
				continue
			}
			dist := posB.Pos - posA.Pos
			if dist < l.MinDistance || dist > l.MaxDistance {
				continue
			}
			discordant := obs[i].State != obs[j].State
			l.nTotal++
			if discordant {
				l.nDiscordant++
			}
			if l.pairs != nil {
				key := pairKey{a: obs[i].CpGID, b: obs[j].CpGID}
				t, ok := l.pairs[key]
				if !ok {
					t = &pairTally{}
					l.pairs[key] = t
				}
				t.nTotal++
				if discordant {
					t.nDiscordant++
				}
			}
		}
	}
}

// Finish writes the global summary line, and the per-pair report if
// enabled. Rows are emitted in ascending (cpg_a, cpg_b) order.
func (l *LPMD) Finish() {
	if l.nTotal == 0 {
		return
	}
	lpmd := float64(l.nDiscordant) / float64(l.nTotal)
	if err := l.Writer.WriteLPMDSummary(l.nDiscordant, l.nTotal, lpmd); err != nil {
		l.err = err
		return
	}
	if l.pairs == nil {
		return
	}
	keys := make([]pairKey, 0, len(l.pairs))
	for k := range l.pairs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a != keys[j].a {
			return keys[i].a < keys[j].a
		}
		return keys[i].b < keys[j].b
	})
	for _, k := range keys {
		t := l.pairs[k]
		posA := l.Index.Position(k.a)
		posB := l.Index.Position(k.b)
		if err := l.PairWriter.WriteLPMDPairRow(
			l.RefName(int(posA.RefID)), posA.Pos,
			l.RefName(int(posB.RefID)), posB.Pos,
			t.nDiscordant, t.nTotal,
		); err != nil {
			l.err = err
			return
		}
	}
}

