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

/*
bsmethyl computes read-level bisulfite-sequencing methylation
heterogeneity metrics from a coordinate-sorted, Bismark-tagged BAM
file: pdr, lpmd, mhl, pm, me, fdrp, qfdrp, plus a tag subcommand that
derives the Bismark XM tag itself from a reference FASTA when the
input wasn't already tagged by an aligner, and a faidx subcommand
that builds the .fai index tag uses to load that FASTA quickly.
*/
package main

import (
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/vcontext"
	"v.io/x/lib/cmdline"
)

func main() {
	shutdown := grail.Init()
	defer shutdown()
	_ = vcontext.Background() // each subcommand derives its own context per invocation

	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(&cmdline.Command{
		Name:  "bsmethyl",
		Short: "Compute bisulfite-sequencing methylation heterogeneity metrics",
		Long: `bsmethyl reads a coordinate-sorted BAM file carrying Bismark-style XM
methylation-call tags and writes a tab-separated metric report. Each
subcommand computes one metric; see 'bsmethyl help <command>'.`,
		Children: []*cmdline.Command{
			newCmdPDR(),
			newCmdMHL(),
			newCmdPM(),
			newCmdME(),
			newCmdFDRP(),
			newCmdQFDRP(),
			newCmdLPMD(),
			newCmdTag(),
			newCmdFaidx(),
		},
	})
}
