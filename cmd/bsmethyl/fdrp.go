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
	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/bsmethyl/pipeline"
	"v.io/x/lib/cmdline"
)

func registerPairedFlags(cmd *cmdline.Command) (minOverlap, maxDepth *int) {
	minOverlap = cmd.Flags.Int("min-overlap", 35, "Minimum reference bases a read pair's spans must share to qualify")
	maxDepth = cmd.Flags.Int("max-depth", 40, "Maximum reads sampled per bucket before pairing")
	return
}

func newCmdFDRP() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "fdrp",
		Short: "Compute the Fraction of Discordant Read Pairs",
	}
	g := registerGlobalFlags(cmd)
	minOverlap, maxDepth := registerPairedFlags(cmd)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if err := noArgs(argv); err != nil {
			return err
		}
		base, err := g.opts()
		if err != nil {
			return err
		}
		return pipeline.RunFDRP(vcontext.Background(), pipeline.PairedOpts{
			GlobalOpts: base,
			MinOverlap: *minOverlap,
			MaxDepth:   *maxDepth,
		})
	})
	return cmd
}
