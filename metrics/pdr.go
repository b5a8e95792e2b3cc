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
	"github.com/grailbio/bsmethyl/cpgindex"
	"github.com/grailbio/bsmethyl/decode"
	"github.com/grailbio/bsmethyl/pileup"
)

// PDR implements the Proportion of Discordant Reads kernel as a
// pileup.Sink. A stretch is a maximal run of at least MinCpGs consecutive
// CpG ids, each already known (by construction of the pileup engine that
// feeds this Sink) to have depth >= min_depth; see DESIGN.md's "Open
// Question resolutions (c)" for why PDR consumes the bucket-flush stream
// rather than a bespoke raw-read stream.
type PDR struct {
	MinCpGs int
	RefName RefNamer
	Writer  RowWriter

	haveRun  bool
	startID  cpgindex.ID
	startPos cpgindex.Position
	prevID   cpgindex.ID
	prevPos  cpgindex.Position
	reads    map[*decode.Read]struct{}
	err      error
}

// Err returns the first error a WriteStretchRow call returned, if any.
func (p *PDR) Err() error { return p.err }

var _ pileup.Sink = (*PDR)(nil)

// HandleBucket implements pileup.Sink.
func (p *PDR) HandleBucket(b pileup.Bucket) {
	if p.haveRun && b.Position.RefID == p.prevPos.RefID && b.CpGID == p.prevID+1 {
		// Continues the current run.
	} else {
		p.emit()
		p.haveRun = true
		p.startID = b.CpGID
		p.startPos = b.Position
		p.reads = make(map[*decode.Read]struct{})
	}
	for _, r := range b.Reads {
		p.reads[r] = struct{}{}
	}
	p.prevID = b.CpGID
	p.prevPos = b.Position
}

// Finish flushes the final stretch, if any. Callers must call this after
// the pileup.Engine's own Finish.
func (p *PDR) Finish() {
	p.emit()
}

func (p *PDR) emit() {
	if !p.haveRun {
		return
	}
	defer func() { p.haveRun = false }()

	length := int(p.prevID-p.startID) + 1
	if length < p.MinCpGs {
		return
	}
	nTotal := len(p.reads)
	if nTotal == 0 {
		return
	}
	nDiscordant := 0
	for r := range p.reads {
		if isDiscordantInRange(r, p.startID, p.prevID) {
			nDiscordant++
		}
	}
	pdr := float64(nDiscordant) / float64(nTotal)
	if p.err != nil {
		return
	}
	p.err = p.Writer.WriteStretchRow(
		p.RefName(int(p.startPos.RefID)),
		p.startPos.Pos,
		p.prevPos.Pos+1,
		pdr, nTotal, nDiscordant, true,
	)
}
