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

func newCmdPDR() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "pdr",
		Short: "Compute the Proportion of Discordant Reads",
	}
	g := registerGlobalFlags(cmd)
	minCpGs := cmd.Flags.Int("min-cpgs", 10, "Minimum consecutive qualifying CpGs in a reported stretch")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if err := noArgs(argv); err != nil {
			return err
		}
		base, err := g.opts()
		if err != nil {
			return err
		}
		return pipeline.RunPDR(vcontext.Background(), pipeline.StretchOpts{GlobalOpts: base, MinCpGs: *minCpGs})
	})
	return cmd
}
