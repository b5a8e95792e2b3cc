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
package pipeline

import (
	"context"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/bsmethyl/bsbam"
	"github.com/grailbio/bsmethyl/cpgindex"
	"github.com/grailbio/bsmethyl/decode"
	"github.com/grailbio/bsmethyl/metrics"
	"github.com/grailbio/bsmethyl/pileup"
	"github.com/grailbio/bsmethyl/report"
	"github.com/grailbio/bsmethyl/workerpool"
)

// session holds the components every subcommand assembles the same way:
// an open reader, a CpG index scoped to this run, a decoder over that
// index, and a reference-id-to-name resolver.
type session struct {
	reader  *bsbam.Reader
	index   *cpgindex.Index
	decoder *decode.Decoder
	refName metrics.RefNamer
}

func openSession(ctx context.Context, g GlobalOpts) (*session, error) {
	reader, err := bsbam.Open(ctx, g.BamPath)
	if err != nil {
		return nil, err
	}
	header := reader.Header()
	refName := func(refID int) string {
		refs := header.Refs()
		if refID < 0 || refID >= len(refs) {
			return "*"
		}
		return refs[refID].Name()
	}

	var index *cpgindex.Index
	if g.BedPath != "" {
		refIDFor := func(name string) (uint32, bool) {
			for i, ref := range header.Refs() {
				if ref.Name() == name {
					return uint32(i), true
				}
			}
			return 0, false
		}
		index, err = cpgindex.Restricted(ctx, g.BedPath, refIDFor)
		if err != nil {
			_ = reader.Close()
			return nil, err
		}
	} else {
		index = cpgindex.Open()
	}

	return &session{
		reader:  reader,
		index:   index,
		decoder: decode.New(index, g.MinQual),
		refName: refName,
	}, nil
}

func (s *session) close() error {
	return s.reader.Close()
}

// runBucketed decodes every record, feeds it to a pileup.Engine wired to
// sink, and drives the engine and sink to completion. It is shared by
// every metric except LPMD, which needs no bucketing. setRefName binds
// the session's reference-name resolver onto the kernel before any
// bucket is flushed.
func runBucketed(ctx context.Context, g GlobalOpts, sink pileup.Sink, setRefName func(metrics.RefNamer), finish func(), sinkErr func() error) error {
	s, err := openSession(ctx, g)
	if err != nil {
		return err
	}
	defer func() { _ = s.close() }()
	setRefName(s.refName)

	engine := pileup.NewEngine(s.index, g.MinDepth, sink)
	for s.reader.Next() {
		rec := s.reader.Record()
		r, ok := s.decoder.Decode(rec)
		if !ok {
			continue
		}
		engine.Process(r)
	}
	if err := s.reader.Err(); err != nil {
		return err
	}
	engine.Finish()
	if finish != nil {
		finish()
	}
	if err := sinkErr(); err != nil {
		return errors.E(errors.IO, "pipeline: writing output", err)
	}
	log.Debug.Printf("pipeline: decoded=%d dropped unmapped=%d lowMapQ=%d secondaryOrSupplementary=%d missingTag=%d malformed=%d noCpG=%d",
		s.decoder.Counters.Accepted, s.decoder.Counters.Unmapped, s.decoder.Counters.LowMapQ,
		s.decoder.Counters.SecondaryOrSupplementary, s.decoder.Counters.MissingCallTag,
		s.decoder.Counters.MalformedCallString, s.decoder.Counters.NoCpGObserved)
	return nil
}

// closeWith closes w, preferring to report a prior error over a close
// error so a failed run never gets masked by its own cleanup.
func closeWith(w *report.Writer, err error) error {
	if cerr := w.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// RunPDR computes the Proportion of Discordant Reads.
func RunPDR(ctx context.Context, opts StretchOpts) error {
	w, err := report.Create(ctx, opts.OutPath, "")
	if err != nil {
		return err
	}
	kernel := &metrics.PDR{MinCpGs: opts.MinCpGs, Writer: w}
	setRefName := func(rn metrics.RefNamer) { kernel.RefName = rn }
	err = runBucketed(ctx, opts.GlobalOpts, kernel, setRefName, kernel.Finish, kernel.Err)
	return closeWith(w, err)
}

// RunMHL computes the Methylation Haplotype Load.
func RunMHL(ctx context.Context, opts StretchOpts) error {
	w, err := report.Create(ctx, opts.OutPath, "")
	if err != nil {
		return err
	}
	kernel := &metrics.MHL{MinCpGs: opts.MinCpGs, Writer: w}
	setRefName := func(rn metrics.RefNamer) { kernel.RefName = rn }
	err = runBucketed(ctx, opts.GlobalOpts, kernel, setRefName, kernel.Finish, kernel.Err)
	return closeWith(w, err)
}

// RunPM computes Epipolymorphism.
func RunPM(ctx context.Context, opts GlobalOpts) error {
	w, err := report.Create(ctx, opts.OutPath, "")
	if err != nil {
		return err
	}
	kernel := &metrics.PM{Writer: w}
	setRefName := func(rn metrics.RefNamer) { kernel.RefName = rn }
	err = runBucketed(ctx, opts, kernel, setRefName, nil, kernel.Err)
	return closeWith(w, err)
}

// RunME computes Methylation Entropy.
func RunME(ctx context.Context, opts GlobalOpts) error {
	w, err := report.Create(ctx, opts.OutPath, "")
	if err != nil {
		return err
	}
	kernel := &metrics.ME{Writer: w}
	setRefName := func(rn metrics.RefNamer) { kernel.RefName = rn }
	err = runBucketed(ctx, opts, kernel, setRefName, nil, kernel.Err)
	return closeWith(w, err)
}

// RunFDRP computes the Fraction of Discordant Read Pairs.
func RunFDRP(ctx context.Context, opts PairedOpts) error {
	w, err := report.Create(ctx, opts.OutPath, "")
	if err != nil {
		return err
	}
	kernel := &metrics.FDRP{
		MinOverlap: opts.MinOverlap,
		MaxDepth:   opts.MaxDepth,
		Pool:       &workerpool.Pool{Workers: resolveThreads(opts.Threads), Threshold: opts.ParallelThreshold},
		Sampler:    metrics.NewSampler(),
		Writer:     w,
	}
	setRefName := func(rn metrics.RefNamer) { kernel.RefName = rn }
	err = runBucketed(ctx, opts.GlobalOpts, kernel, setRefName, nil, kernel.Err)
	return closeWith(w, err)
}

// RunQFDRP computes the quantitative FDRP.
func RunQFDRP(ctx context.Context, opts PairedOpts) error {
	w, err := report.Create(ctx, opts.OutPath, "")
	if err != nil {
		return err
	}
	kernel := &metrics.QFDRP{
		MinOverlap: opts.MinOverlap,
		MaxDepth:   opts.MaxDepth,
		Pool:       &workerpool.Pool{Workers: resolveThreads(opts.Threads), Threshold: opts.ParallelThreshold},
		Sampler:    metrics.NewSampler(),
		Writer:     w,
	}
	setRefName := func(rn metrics.RefNamer) { kernel.RefName = rn }
	err = runBucketed(ctx, opts.GlobalOpts, kernel, setRefName, nil, kernel.Err)
	return closeWith(w, err)
}

// RunLPMD computes Local Pairwise Methylation Disorder. Unlike the other
// kernels it consumes decoded reads directly, bypassing the pileup
// engine entirely.
func RunLPMD(ctx context.Context, opts LPMDOpts) error {
	w, err := report.Create(ctx, opts.OutPath, "")
	if err != nil {
		return err
	}

	var pairWriter *report.Writer
	if opts.PairsPath != "" {
		pairWriter, err = report.Create(ctx, opts.PairsPath, "")
		if err != nil {
			return closeWith(w, err)
		}
	}

	s, err := openSession(ctx, opts.GlobalOpts)
	if err != nil {
		if pairWriter != nil {
			err = closeWith(pairWriter, err)
		}
		return closeWith(w, err)
	}
	defer func() { _ = s.close() }()

	var pw metrics.LPMDPairWriter
	if pairWriter != nil {
		pw = pairWriter
	}
	kernel := metrics.NewLPMD(s.index, opts.MinDistance, opts.MaxDistance, s.refName, w, pw)
	for s.reader.Next() {
		rec := s.reader.Record()
		r, ok := s.decoder.Decode(rec)
		if !ok {
			continue
		}
		if !r.HasPair() {
			continue
		}
		kernel.HandleRead(r)
	}
	err = s.reader.Err()
	if err == nil {
		kernel.Finish()
		if kerr := kernel.Err(); kerr != nil {
			err = errors.E(errors.IO, "pipeline: writing output", kerr)
		}
	}
	if pairWriter != nil {
		err = closeWith(pairWriter, err)
	}
	return closeWith(w, err)
}
