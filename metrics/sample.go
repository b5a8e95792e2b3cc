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
	"math/rand"

	"github.com/grailbio/bsmethyl/decode"
)

// samplingSeed is fixed so that FDRP/qFDRP sampling is reproducible
// across runs and independent of --threads. The pipeline is
// single-threaded up to the point a bucket's pairs are handed to
// workerpool.Pool, so a single shared *rand.Rand advancing in
// bucket-flush order is enough to guarantee the same sample every run
// with the same input, regardless of worker count.
const samplingSeed = 0x6273_6d65 // "bsme" in hex, arbitrary but fixed

// Sampler draws a deterministic, seeded, without-replacement sample of at
// most maxDepth reads from a bucket.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler returns a Sampler seeded deterministically for one pipeline
// run.
func NewSampler() *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(samplingSeed))}
}

// Sample returns reads unchanged if len(reads) <= maxDepth; otherwise it
// returns a uniformly-sampled subset of size maxDepth, via a partial
// Fisher-Yates shuffle that leaves reads' own backing array untouched.
func (s *Sampler) Sample(reads []*decode.Read, maxDepth int) []*decode.Read {
	if maxDepth <= 0 || len(reads) <= maxDepth {
		return reads
	}
	scratch := make([]*decode.Read, len(reads))
	copy(scratch, reads)
	for i := 0; i < maxDepth; i++ {
		j := i + s.rng.Intn(len(scratch)-i)
		scratch[i], scratch[j] = scratch[j], scratch[i]
	}
	return scratch[:maxDepth]
}
