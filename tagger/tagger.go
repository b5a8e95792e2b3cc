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

// Package tagger derives a Bismark-style XM methylation-call tag for
// every aligned, CpG-context base of a BAM record by walking its CIGAR
// against a loaded reference FASTA, and writes the retagged records to
// a new BAM file. It exists so bsmethyl can consume a reference
// alignment that hasn't already been through a bisulfite-aware aligner
// or methylation caller; it is not a replacement for one.
package tagger

import (
	"context"
	"io"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/bsmethyl/encoding/fasta"
)

// callTag is the aux tag Tag writes, matching the convention decode.Decoder
// reads back: 'Z' methylated CpG, 'z' unmethylated CpG, '.' elsewhere.
var callTag = sam.NewTag("XM")

const (
	callMethylated   = 'Z'
	callUnmethylated = 'z'
	callOther        = '.'
)

// Tag reads bamIn, loads the reference FASTA at faPath (using its
// adjacent .fai index, if present, for the faster indexed load path),
// computes an XM call string per record by walking CIGAR against the
// reference, and writes every record with that call string attached as
// an XM aux tag to bamOut. Records with no reference (unmapped) are
// copied through untouched.
func Tag(ctx context.Context, bamIn, faPath, bamOut string) error {
	ref, err := loadReference(ctx, faPath)
	if err != nil {
		return err
	}

	inFile, err := file.Open(ctx, bamIn)
	if err != nil {
		return errors.E(errors.NotExist, "tagger: opening input BAM", bamIn, err)
	}
	defer func() { _ = inFile.Close(ctx) }()

	reader, err := bam.NewReader(inFile.Reader(ctx), 0)
	if err != nil {
		return errors.E(errors.Invalid, "tagger: decoding BAM header", bamIn, err)
	}

	outFile, err := file.Create(ctx, bamOut)
	if err != nil {
		return errors.E(errors.NotExist, "tagger: creating output BAM", bamOut, err)
	}
	defer func() { _ = outFile.Close(ctx) }()

	writer, err := bam.NewWriter(outFile.Writer(ctx), reader.Header(), 0)
	if err != nil {
		return errors.E(errors.Invalid, "tagger: writing BAM header", bamOut, err)
	}

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.E(errors.IO, "tagger: reading record", bamIn, err)
		}
		if rec.Ref != nil && rec.Flags&sam.Unmapped == 0 {
			call, err := callString(ref, rec)
			if err != nil {
				return errors.E(errors.Invalid, "tagger: walking reference", rec.Ref.Name(), err)
			}
			aux, err := sam.NewAux(callTag, call)
			if err != nil {
				return errors.E(errors.Invalid, "tagger: building XM tag", err)
			}
			rec.AuxFields = append(rec.AuxFields, aux)
		}
		if err := writer.Write(rec); err != nil {
			return errors.E(errors.IO, "tagger: writing record", bamOut, err)
		}
	}
	if err := writer.Close(); err != nil {
		return errors.E(errors.IO, "tagger: flushing output BAM", bamOut, err)
	}
	return nil
}

func loadReference(ctx context.Context, faPath string) (fasta.Fasta, error) {
	faiFile, faiErr := file.Open(ctx, faPath+".fai")
	if faiErr == nil {
		defer func() { _ = faiFile.Close(ctx) }()
		index, err := io.ReadAll(faiFile.Reader(ctx))
		if err != nil {
			return nil, errors.E(errors.IO, "tagger: reading FASTA index", faPath+".fai", err)
		}
		f, err := file.Open(ctx, faPath)
		if err != nil {
			return nil, errors.E(errors.NotExist, "tagger: opening reference FASTA", faPath, err)
		}
		defer func() { _ = f.Close(ctx) }()
		ref, err := fasta.New(f.Reader(ctx), fasta.OptIndex(index), fasta.OptClean)
		if err != nil {
			return nil, errors.E(errors.Invalid, "tagger: parsing indexed reference FASTA", faPath, err)
		}
		return ref, nil
	}

	f, err := file.Open(ctx, faPath)
	if err != nil {
		return nil, errors.E(errors.NotExist, "tagger: opening reference FASTA", faPath, err)
	}
	defer func() { _ = f.Close(ctx) }()
	ref, err := fasta.New(f.Reader(ctx), fasta.OptClean)
	if err != nil {
		return nil, errors.E(errors.Invalid, "tagger: parsing reference FASTA", faPath, err)
	}
	return ref, nil
}

// callString walks rec's CIGAR against ref in lockstep, the same way
// decode.Decoder.walk walks a call string against CIGAR, and emits one
// call byte per query-consuming operation. A position is a CpG context
// if, on the record's sequenced strand, the reference base at that
// position and its 3' neighbor read CG; the base actually sequenced
// there then decides methylated vs. unmethylated.
func callString(ref fasta.Fasta, rec *sam.Record) (string, error) {
	seqName := rec.Ref.Name()
	refLen, err := ref.Len(seqName)
	if err != nil {
		return "", err
	}
	seq := rec.Seq.Expand()
	call := make([]byte, len(seq))
	for i := range call {
		call[i] = callOther
	}

	reverse := rec.Flags&sam.Reverse != 0
	queryIdx := 0
	refPos := rec.Pos
	for _, co := range rec.Cigar {
		consume := co.Type().Consumes()
		n := co.Len()
		for i := 0; i < n; i++ {
			if consume.Query != 0 && consume.Reference != 0 {
				cpg, err := isCpGContext(ref, seqName, refPos, reverse, refLen)
				if err != nil {
					return "", err
				}
				if cpg {
					call[queryIdx] = classify(seq[queryIdx], reverse)
				}
			}
			if consume.Query != 0 {
				queryIdx++
			}
			if consume.Reference != 0 {
				refPos++
			}
		}
	}
	return string(call), nil
}

// isCpGContext reports whether refPos sits in a CG dinucleotide as seen
// from the record's sequenced strand: forward reads look at
// (refPos, refPos+1); reverse reads look at (refPos-1, refPos), since a
// reverse-strand read's methylation call lands on the G of the CG pair.
func isCpGContext(ref fasta.Fasta, seqName string, refPos int, reverse bool, refLen uint64) (bool, error) {
	var start, end uint64
	if reverse {
		if refPos == 0 {
			return false, nil
		}
		start, end = uint64(refPos-1), uint64(refPos+1)
	} else {
		start, end = uint64(refPos), uint64(refPos+2)
	}
	if end > refLen {
		return false, nil
	}
	dinuc, err := ref.Get(seqName, start, end)
	if err != nil {
		return false, err
	}
	if len(dinuc) != 2 {
		return false, nil
	}
	return upper(dinuc[0]) == 'C' && upper(dinuc[1]) == 'G', nil
}

// classify turns the sequenced base at a known CpG position into a
// call byte. Forward-strand reads report an unconverted C as
// methylated and a bisulfite-converted T as unmethylated; reverse-
// strand reads see the complementary G/A instead.
func classify(base byte, reverse bool) byte {
	base = upper(base)
	if reverse {
		switch base {
		case 'G':
			return callMethylated
		case 'A':
			return callUnmethylated
		default:
			return callOther
		}
	}
	switch base {
	case 'C':
		return callMethylated
	case 'T':
		return callUnmethylated
	default:
		return callOther
	}
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}
