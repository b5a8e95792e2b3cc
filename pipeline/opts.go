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

// Package pipeline assembles the reader, decoder, pileup engine (or bare
// read stream), a metric kernel, and a report.Writer into one
// per-subcommand run, the orchestration layer each cmd/bsmethyl
// subcommand calls into.
package pipeline

import "runtime"

// GlobalOpts are the flags shared by every subcommand.
type GlobalOpts struct {
	// BamPath is the input coordinate-sorted BAM file.
	BamPath string
	// OutPath is the output TSV path.
	OutPath string
	// BedPath, if non-empty, restricts the CpG Index to the positions it
	// names instead of assigning ids to any CpG encountered.
	BedPath string
	// MinQual is the minimum mapping quality a record must carry.
	MinQual byte
	// MinDepth is the minimum bucket depth a CpG must reach to be
	// reported.
	MinDepth int
	// Threads is the FDRP/qFDRP worker count; 0 means auto (all logical
	// cores), resolved by resolveThreads before it reaches workerpool.Pool.
	Threads int
	// ParallelThreshold is the minimum sampled-pair count at which
	// FDRP/qFDRP dispatch to the worker pool at all.
	ParallelThreshold int
}

// StretchOpts configures the stretch-based kernels (PDR, MHL).
type StretchOpts struct {
	GlobalOpts
	MinCpGs int
}

// PairedOpts configures the pair-sampling kernels (FDRP, qFDRP).
type PairedOpts struct {
	GlobalOpts
	MinOverlap int
	MaxDepth   int
}

// LPMDOpts configures the LPMD kernel. PairsPath, if non-empty, requests
// a second, separate per-CpG-pair discordance report at that path.
type LPMDOpts struct {
	GlobalOpts
	MinDistance uint32
	MaxDistance uint32
	PairsPath   string
}

// resolveThreads turns the user-facing "0 = auto" convention into an actual
// worker count: 0 or fewer resolves to every logical core, matching the
// grailbio-bio pileup pipeline's rawOpts.Parallelism <= 0 fallback.
func resolveThreads(threads int) int {
	if threads <= 0 {
		return runtime.NumCPU()
	}
	return threads
}
