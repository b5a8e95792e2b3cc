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
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/bsmethyl/encoding/fasta"
	"v.io/x/lib/cmdline"
)

func newCmdFaidx() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "faidx",
		Short: "Generate a .fai index alongside a reference FASTA",
		Long: `faidx writes a samtools-compatible .fai index for a reference FASTA file.
The tag subcommand uses this index, when present, to load the reference much
faster than it would by scanning the whole file.`,
	}
	faPath := cmd.Flags.String("fasta", "", "Reference FASTA path (required)")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if err := noArgs(argv); err != nil {
			return err
		}
		if *faPath == "" {
			return fmt.Errorf("-fasta is required")
		}
		ctx := vcontext.Background()
		in, err := file.Open(ctx, *faPath)
		if err != nil {
			return errors.E(errors.NotExist, "faidx: opening reference FASTA", *faPath, err)
		}
		defer func() { _ = in.Close(ctx) }()

		out, err := file.Create(ctx, *faPath+".fai")
		if err != nil {
			return errors.E(errors.NotExist, "faidx: creating index", *faPath+".fai", err)
		}
		defer func() { _ = out.Close(ctx) }()

		if err := fasta.GenerateIndex(out.Writer(ctx), in.Reader(ctx)); err != nil {
			return errors.E(errors.Invalid, "faidx: generating index", *faPath, err)
		}
		return nil
	})
	return cmd
}
