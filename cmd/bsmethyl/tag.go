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

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/bsmethyl/tagger"
	"v.io/x/lib/cmdline"
)

func newCmdTag() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "tag",
		Short: "Derive an XM methylation-call tag from a reference FASTA",
		Long: `tag walks each record's CIGAR against a reference FASTA and writes an
XM aux tag in Bismark convention, for input that wasn't already tagged
by an aligner or methylation caller.`,
	}
	bamIn := cmd.Flags.String("i", "", "Input BAM path (required)")
	faPath := cmd.Flags.String("fasta", "", "Reference FASTA path (required; .fai alongside it is used when present)")
	bamOut := cmd.Flags.String("o", "", "Output BAM path (required)")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if err := noArgs(argv); err != nil {
			return err
		}
		if *bamIn == "" || *faPath == "" || *bamOut == "" {
			return fmt.Errorf("-i, -fasta, and -o are all required")
		}
		return tagger.Tag(vcontext.Background(), *bamIn, *faPath, *bamOut)
	})
	return cmd
}
