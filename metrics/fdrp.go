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
	"github.com/grailbio/bsmethyl/decode"
	"github.com/grailbio/bsmethyl/pileup"
	"github.com/grailbio/bsmethyl/workerpool"
)

// pairQualifies reports whether a and b qualify for FDRP/qFDRP pairing:
// sharing at least minOverlap reference bases and at least one CpG
// position. mismatches/shared describe their agreement over every CpG
// the two reads have in common (not just the bucket's own CpG), since a
// qualifying pair's discordance is judged over their full shared
// observation set.
func pairQualifies(a, b *decode.Read, minOverlap int) (qualifies bool, shared, mismatches int) {
	if overlapBases(a, b) < minOverlap {
		return false, 0, 0
	}
	shared = sharedCpGs(a, b, func(sa, sb decode.State) bool {
		if sa != sb {
			mismatches++
		}
		return true
	})
	return shared > 0, shared, mismatches
}

// FDRP implements the Fraction of Discordant Read Pairs kernel.
type FDRP struct {
	MinOverlap int
	MaxDepth   int
	Pool       *workerpool.Pool
	Sampler    *Sampler
	RefName    RefNamer
	Writer     RowWriter
	err        error
}

var _ pileup.Sink = (*FDRP)(nil)

// Err returns the first error a WriteCpGRow call returned, if any.
func (f *FDRP) Err() error { return f.err }

// HandleBucket implements pileup.Sink.
func (f *FDRP) HandleBucket(b pileup.Bucket) {
	usable := make([]*decode.Read, 0, len(b.Reads))
	for _, r := range b.Reads {
		if r.HasPair() {
			usable = append(usable, r)
		}
	}
	reads := f.Sampler.Sample(usable, f.MaxDepth)
	n := pairCount(len(reads))
	if n == 0 {
		return
	}
	nQualifying, nDiscordant, _ := f.Pool.Reduce(n, func(idx int) (qualifies, discordant bool, distance float64) {
		i, j := unrankPair(len(reads), idx)
		qualifies, _, mismatches := pairQualifies(reads[i], reads[j], f.MinOverlap)
		if !qualifies {
			return false, false, 0
		}
		return true, mismatches > 0, 0
	})
	if nQualifying == 0 {
		return
	}
	fdrp := float64(nDiscordant) / float64(nQualifying)
	if f.err != nil {
		return
	}
	f.err = f.Writer.WriteCpGRow(f.RefName(int(b.Position.RefID)), b.Position.Pos, fdrp, len(reads))
}
