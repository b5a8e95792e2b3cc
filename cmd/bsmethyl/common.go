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
package main

import (
	"fmt"

	"github.com/grailbio/bsmethyl/pipeline"
	"v.io/x/lib/cmdline"
)

// globalFlags holds the flag variables every subcommand shares: input/output
// paths, the optional CpG restriction set, and the quality/depth/threading
// knobs.
type globalFlags struct {
	bamPath           *string
	outPath           *string
	bedPath           *string
	minQual           *int
	minDepth          *int
	threads           *int
	parallelThreshold *int
}

// registerGlobalFlags attaches the flags every subcommand accepts to cmd,
// returning the bound variables.
func registerGlobalFlags(cmd *cmdline.Command) *globalFlags {
	return &globalFlags{
		bamPath:           cmd.Flags.String("i", "", "Input coordinate-sorted BAM path (required)"),
		outPath:           cmd.Flags.String("o", "", "Output TSV path (required)"),
		bedPath:           cmd.Flags.String("cpg-set", "", "Restrict to CpGs named in this BED file instead of assigning ids to every CpG seen"),
		minQual:           cmd.Flags.Int("min-qual", 10, "Minimum mapping quality a record must carry"),
		minDepth:          cmd.Flags.Int("min-depth", 10, "Minimum read depth a CpG (or stretch) must reach to be reported"),
		threads:           cmd.Flags.Int("threads", 0, "Worker count for FDRP/qFDRP pair reduction (0 = auto, all logical cores)"),
		parallelThreshold: cmd.Flags.Int("parallel-threshold", 100, "Minimum sampled-pair count at which FDRP/qFDRP dispatch to the worker pool"),
	}
}

// opts validates the required -i/-o flags and builds the shared GlobalOpts.
func (g *globalFlags) opts() (pipeline.GlobalOpts, error) {
	if *g.bamPath == "" || *g.outPath == "" {
		return pipeline.GlobalOpts{}, fmt.Errorf("both -i and -o are required")
	}
	return pipeline.GlobalOpts{
		BamPath:           *g.bamPath,
		OutPath:           *g.outPath,
		BedPath:           *g.bedPath,
		MinQual:           byte(*g.minQual),
		MinDepth:          *g.minDepth,
		Threads:           *g.threads,
		ParallelThreshold: *g.parallelThreshold,
	}, nil
}

// noArgs rejects any positional argument; every bsmethyl subcommand takes
// all its input through flags.
func noArgs(argv []string) error {
	if len(argv) != 0 {
		return fmt.Errorf("unexpected arguments: %v", argv)
	}
	return nil
}
