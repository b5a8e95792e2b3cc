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
package tagger

import (
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/bsmethyl/encoding/fasta"
	"github.com/stretchr/testify/require"
)

// fakeFasta serves a single fixed sequence, enough to exercise callString's
// reference walk without parsing a real FASTA file.
type fakeFasta struct {
	name string
	seq  string
}

func (f *fakeFasta) Get(seqName string, start, end uint64) (string, error) {
	return f.seq[start:end], nil
}

func (f *fakeFasta) Len(seqName string) (uint64, error) { return uint64(len(f.seq)), nil }

func (f *fakeFasta) SeqNames() []string { return []string{f.name} }

var _ fasta.Fasta = (*fakeFasta)(nil)

func newRecord(t *testing.T, ref *sam.Reference, pos int, seq string, reverse bool) *sam.Record {
	t.Helper()
	cigar := sam.Cigar{sam.NewCigarOp(sam.CigarMatch, len(seq))}
	rec, err := sam.NewRecord("r", ref, nil, pos, -1, 0, 60, cigar, []byte(seq), nil, nil)
	require.NoError(t, err)
	if reverse {
		rec.Flags |= sam.Reverse
	}
	return rec
}

func newChr1(t *testing.T) *sam.Reference {
	t.Helper()
	ref, err := sam.NewReference("chr1", "", "", 4, nil, nil)
	require.NoError(t, err)
	_, err = sam.NewHeader(nil, []*sam.Reference{ref})
	require.NoError(t, err)
	return ref
}

func TestCallStringForwardStrandMethylatedCpG(t *testing.T) {
	ref := newChr1(t)
	refFasta := &fakeFasta{name: "chr1", seq: "ACGT"}
	rec := newRecord(t, ref, 0, "ACGT", false)

	call, err := callString(refFasta, rec)
	require.NoError(t, err)
	require.Equal(t, ".Z..", call, "only refPos 1 sits in a CG dinucleotide; unconverted C reads methylated")
}

func TestCallStringForwardStrandUnmethylatedCpG(t *testing.T) {
	ref := newChr1(t)
	refFasta := &fakeFasta{name: "chr1", seq: "ACGT"}
	rec := newRecord(t, ref, 0, "ATGT", false)

	call, err := callString(refFasta, rec)
	require.NoError(t, err)
	require.Equal(t, ".z..", call, "bisulfite-converted T at the CpG position reads unmethylated")
}

func TestCallStringReverseStrandLandsOnG(t *testing.T) {
	ref := newChr1(t)
	refFasta := &fakeFasta{name: "chr1", seq: "ACGT"}
	rec := newRecord(t, ref, 0, "ACGT", true)

	call, err := callString(refFasta, rec)
	require.NoError(t, err)
	require.Equal(t, "..Z.", call, "reverse reads call at refPos 2, the G of the CG pair")
}

func TestCallStringSkipsOutOfCpGContextBases(t *testing.T) {
	ref, err := sam.NewReference("chr1", "", "", 4, nil, nil)
	require.NoError(t, err)
	_, err = sam.NewHeader(nil, []*sam.Reference{ref})
	require.NoError(t, err)
	refFasta := &fakeFasta{name: "chr1", seq: "AAAA"}
	rec := newRecord(t, ref, 0, "CCCC", false)

	call, err := callString(refFasta, rec)
	require.NoError(t, err)
	require.Equal(t, "....", call, "no CG dinucleotide anywhere in the reference window")
}
