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
	"math"

	"github.com/grailbio/bsmethyl/pileup"
)

// ME implements the Methylation Entropy kernel, sharing quartet
// extraction with PM.
type ME struct {
	RefName RefNamer
	Writer  RowWriter
	err     error
}

var _ pileup.Sink = (*ME)(nil)

// Err returns the first error a WriteCpGRow call returned, if any.
func (m *ME) Err() error { return m.err }

// HandleBucket implements pileup.Sink.
func (m *ME) HandleBucket(b pileup.Bucket) {
	counts, total := quartetFrequencies(b.Reads, b.CpGID)
	if total == 0 {
		return
	}
	var sum float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		f := float64(c) / float64(total)
		sum += f * math.Log2(f)
	}
	me := -sum / 4
	if m.err != nil {
		return
	}
	m.err = m.Writer.WriteCpGRow(m.RefName(int(b.Position.RefID)), b.Position.Pos, me, total)
}
