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

// Package workerpool is a process-wide, configurable-width executor used
// only by FDRP/qFDRP to reduce a commutative (count, sum) accumulator
// over O(n^2) read pairs, via the traverse.Each(parallelism, func(jobIdx
// int) error {...}) contiguous-range-partitioning idiom.
package workerpool

import "github.com/grailbio/base/traverse"

// Pool holds the process-wide concurrency configuration: how many
// workers to use, and the minimum pair count at which it is worth paying
// goroutine fan-out cost at all.
type Pool struct {
	// Workers is the worker count; 0 or 1 means "run sequentially".
	Workers int
	// Threshold is the minimum item count that triggers parallel
	// evaluation; below it, Reduce always runs sequentially.
	Threshold int
}

// Eval is evaluated once per pair index; it reports whether the pair
// qualified at all, whether a qualifying pair was discordant, and (for
// qFDRP) its normalized Hamming distance.
type Eval func(pairIdx int) (qualifies, discordant bool, distance float64)

// Reduce evaluates eval over every index in [0, n), returning the number
// of qualifying pairs, how many of those were discordant, and the sum of
// distance over qualifying pairs.
//
// Below Threshold (or with Workers <= 1), evaluation is sequential.
// Otherwise [0, n) is split into Workers contiguous ranges, each reduced
// by its own goroutine into a private slot, and slots are then summed in
// job-index order — a deterministic reduction order independent of
// goroutine completion order, which is what lets two runs differing only
// in --threads agree bitwise on the discordant count and agree on the
// qFDRP sum up to floating-point associativity.
func (p *Pool) Reduce(n int, eval Eval) (nQualifying, nDiscordant int, sumDistance float64) {
	if n == 0 {
		return 0, 0, 0
	}
	if p.Workers <= 1 || n < p.Threshold {
		for i := 0; i < n; i++ {
			qualifies, disc, d := eval(i)
			if !qualifies {
				continue
			}
			nQualifying++
			if disc {
				nDiscordant++
			}
			sumDistance += d
		}
		return nQualifying, nDiscordant, sumDistance
	}

	workers := p.Workers
	if workers > n {
		workers = n
	}
	type partial struct {
		nQualifying int
		nDiscordant int
		sumDistance float64
	}
	partials := make([]partial, workers)
	// traverse.Each's error return is unused here: eval never errors.
	_ = traverse.Each(workers, func(job int) error {
		start := job * n / workers
		end := (job + 1) * n / workers
		var pd partial
		for i := start; i < end; i++ {
			qualifies, disc, d := eval(i)
			if !qualifies {
				continue
			}
			pd.nQualifying++
			if disc {
				pd.nDiscordant++
			}
			pd.sumDistance += d
		}
		partials[job] = pd
		return nil
	})
	for _, pd := range partials {
		nQualifying += pd.nQualifying
		nDiscordant += pd.nDiscordant
		sumDistance += pd.sumDistance
	}
	return nQualifying, nDiscordant, sumDistance
}
