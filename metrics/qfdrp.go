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

// QFDRP implements the quantitative Fraction of Discordant Read Pairs
// kernel: the same pairing/qualification rule as FDRP, but instead of a
// binary discordant/concordant call per pair it averages each qualifying
// pair's normalized Hamming distance (mismatches / shared CpGs) over all
// qualifying pairs in the bucket.
type QFDRP struct {
	MinOverlap int
	MaxDepth   int
	Pool       *workerpool.Pool
	Sampler    *Sampler
	RefName    RefNamer
	Writer     RowWriter
	err        error
}

var _ pileup.Sink = (*QFDRP)(nil)

// Err returns the first error a WriteCpGRow call returned, if any.
func (q *QFDRP) Err() error { return q.err }

// HandleBucket implements pileup.Sink.
func (q *QFDRP) HandleBucket(b pileup.Bucket) {
	usable := make([]*decode.Read, 0, len(b.Reads))
	for _, r := range b.Reads {
		if r.HasPair() {
			usable = append(usable, r)
		}
	}
	reads := q.Sampler.Sample(usable, q.MaxDepth)
	n := pairCount(len(reads))
	if n == 0 {
		return
	}
	nQualifying, _, sumDistance := q.Pool.Reduce(n, func(idx int) (qualifies, discordant bool, distance float64) {
		i, j := unrankPair(len(reads), idx)
		ok, shared, mismatches := pairQualifies(reads[i], reads[j], q.MinOverlap)
		if !ok {
			return false, false, 0
		}
		return true, mismatches > 0, float64(mismatches) / float64(shared)
	})
	if nQualifying == 0 {
		return
	}
	qfdrp := sumDistance / float64(nQualifying)
	if q.err != nil {
		return
	}
	q.err = q.Writer.WriteCpGRow(q.RefName(int(b.Position.RefID)), b.Position.Pos, qfdrp, len(reads))
}
