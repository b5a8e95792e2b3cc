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

import "github.com/grailbio/bsmethyl/pileup"

// PM implements the Epipolymorphism kernel. Bucket depth is already
// enforced by the pileup.Engine that feeds this Sink (it only delivers
// buckets whose depth meets min_depth); PM additionally skips a CpG if
// no read in the bucket has three more observations after it.
type PM struct {
	RefName RefNamer
	Writer  RowWriter
	err     error
}

var _ pileup.Sink = (*PM)(nil)

// Err returns the first error a WriteCpGRow call returned, if any.
func (p *PM) Err() error { return p.err }

// HandleBucket implements pileup.Sink.
func (p *PM) HandleBucket(b pileup.Bucket) {
	counts, total := quartetFrequencies(b.Reads, b.CpGID)
	if total == 0 {
		return
	}
	var sumSq float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		f := float64(c) / float64(total)
		sumSq += f * f
	}
	pm := 1 - sumSq
	if p.err != nil {
		return
	}
	p.err = p.Writer.WriteCpGRow(p.RefName(int(b.Position.RefID)), b.Position.Pos, pm, total)
}
