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
	"github.com/grailbio/bsmethyl/pipeline"
	"v.io/x/lib/cmdline"
)

func newCmdLPMD() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "lpmd",
		Short: "Compute Local Pairwise Methylation Disorder",
	}
	g := registerGlobalFlags(cmd)
	pairsPath := cmd.Flags.String("pairs", "", "If set, also report a per-CpG-pair discordance table at this path")
	minDistance := cmd.Flags.Int("min-distance", 2, "Minimum reference distance between a CpG pair")
	maxDistance := cmd.Flags.Int("max-distance", 16, "Maximum reference distance between a CpG pair")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if err := noArgs(argv); err != nil {
			return err
		}
		base, err := g.opts()
		if err != nil {
			return err
		}
		if *minDistance > *maxDistance {
			return fmt.Errorf("--min-distance (%d) must not exceed --max-distance (%d)", *minDistance, *maxDistance)
		}
		opts := pipeline.LPMDOpts{
			GlobalOpts:  base,
			MinDistance: uint32(*minDistance),
			MaxDistance: uint32(*maxDistance),
			PairsPath:   *pairsPath,
		}
		return pipeline.RunLPMD(vcontext.Background(), opts)
	})
	return cmd
}
