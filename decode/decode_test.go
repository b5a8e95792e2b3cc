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
package decode_test

import (
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/bsmethyl/cpgindex"
	"github.com/grailbio/bsmethyl/decode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRef builds a reference and registers it with a header, since
// sam.NewRecord rejects a reference that was never attached to one.
func newRef(t *testing.T, name string, length int) *sam.Reference {
	t.Helper()
	ref, err := sam.NewReference(name, "", "", length, nil, nil)
	require.NoError(t, err)
	h, err := sam.NewHeader(nil, []*sam.Reference{ref})
	require.NoError(t, err)
	h.SortOrder = sam.Coordinate
	return ref
}

func withCallTag(t *testing.T, rec *sam.Record, call string) *sam.Record {
	t.Helper()
	aux, err := sam.NewAux(sam.NewTag("XM"), call)
	require.NoError(t, err)
	rec.AuxFields = append(rec.AuxFields, aux)
	return rec
}

func newMappedRecord(t *testing.T, ref *sam.Reference, pos int, mapQ byte, cigar sam.Cigar, call string) *sam.Record {
	t.Helper()
	rec, err := sam.NewRecord("r", ref, nil, pos, -1, 0, mapQ, cigar, nil, nil, nil)
	require.NoError(t, err)
	return withCallTag(t, rec, call)
}

func TestDecodeSimpleMatch(t *testing.T) {
	ref := newRef(t, "chr1", 1000)
	idx := cpgindex.Open()
	d := decode.New(idx, 0)

	cigar := sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 10)}
	// Bismark call string: 'Z' methylated CpG, 'z' unmethylated CpG, '.' elsewhere.
	rec := newMappedRecord(t, ref, 100, 60, cigar, "..Z...z...")

	r, ok := d.Decode(rec)
	require.True(t, ok)
	require.Len(t, r.Obs, 2)
	assert.Equal(t, decode.Methylated, r.Obs[0].State)
	assert.Equal(t, decode.Unmethylated, r.Obs[1].State)
	assert.Equal(t, decode.Discordant, r.Concordance)
	assert.Equal(t, 100, r.LeftPos)
	assert.Equal(t, 110, r.RightPos)
	assert.Equal(t, int64(1), d.Counters.Accepted)
}

func TestDecodeDropsUnmapped(t *testing.T) {
	ref := newRef(t, "chr1", 1000)
	idx := cpgindex.Open()
	d := decode.New(idx, 0)
	rec, err := sam.NewRecord("r", nil, nil, -1, -1, 0, 0, nil, nil, nil, nil)
	require.NoError(t, err)
	rec.Flags |= sam.Unmapped
	_ = withCallTag(t, rec, "Z")

	_, ok := d.Decode(rec)
	assert.False(t, ok)
	assert.Equal(t, int64(1), d.Counters.Unmapped)
	_ = ref
}

func TestDecodeDropsLowMapQ(t *testing.T) {
	ref := newRef(t, "chr1", 1000)
	idx := cpgindex.Open()
	d := decode.New(idx, 30)
	cigar := sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 4)}
	rec := newMappedRecord(t, ref, 0, 10, cigar, "Z...")

	_, ok := d.Decode(rec)
	assert.False(t, ok)
	assert.Equal(t, int64(1), d.Counters.LowMapQ)
}

func TestDecodeDropsSecondaryAndSupplementary(t *testing.T) {
	ref := newRef(t, "chr1", 1000)
	idx := cpgindex.Open()
	d := decode.New(idx, 0)
	cigar := sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 4)}
	rec := newMappedRecord(t, ref, 0, 60, cigar, "Z...")
	rec.Flags |= sam.Secondary

	_, ok := d.Decode(rec)
	assert.False(t, ok)
	assert.Equal(t, int64(1), d.Counters.SecondaryOrSupplementary)
}

func TestDecodeDropsMissingCallTag(t *testing.T) {
	ref := newRef(t, "chr1", 1000)
	idx := cpgindex.Open()
	d := decode.New(idx, 0)
	cigar := sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 4)}
	rec, err := sam.NewRecord("r", ref, nil, 0, -1, 0, 60, cigar, nil, nil, nil)
	require.NoError(t, err)

	_, ok := d.Decode(rec)
	assert.False(t, ok)
	assert.Equal(t, int64(1), d.Counters.MissingCallTag)
}

func TestDecodeDropsNoCpGObserved(t *testing.T) {
	ref := newRef(t, "chr1", 1000)
	idx := cpgindex.Open()
	d := decode.New(idx, 0)
	cigar := sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 4)}
	rec := newMappedRecord(t, ref, 0, 60, cigar, "....")

	_, ok := d.Decode(rec)
	assert.False(t, ok)
	assert.Equal(t, int64(1), d.Counters.NoCpGObserved)
}

func TestDecodeHandlesInsertionsAndDeletions(t *testing.T) {
	ref := newRef(t, "chr1", 1000)
	idx := cpgindex.Open()
	d := decode.New(idx, 0)
	// 2M (ref 100,101) 2I (no ref advance) 2M (ref 102,103) 1D (ref 104, no query) 2M (ref 105,106)
	cigar := sam.Cigar{
		sam.NewCigarOp(sam.CigarMatch, 2),
		sam.NewCigarOp(sam.CigarInsertion, 2),
		sam.NewCigarOp(sam.CigarMatch, 2),
		sam.NewCigarOp(sam.CigarDeletion, 1),
		sam.NewCigarOp(sam.CigarMatch, 2),
	}
	// query has 2+2+2+2 = 8 bases (deletion consumes no query).
	rec := newMappedRecord(t, ref, 100, 60, cigar, ".ZNN.Z..")

	r, ok := d.Decode(rec)
	require.True(t, ok)
	require.Len(t, r.Obs, 2)
	// First CpG call ('Z') lands at query index 1, ref pos 101.
	pos0 := idx.Position(r.Obs[0].CpGID)
	assert.Equal(t, uint32(101), pos0.Pos)
	// Second call lands after the insertion+match, at ref pos 103 (query index 5, 'Z').
	pos1 := idx.Position(r.Obs[1].CpGID)
	assert.Equal(t, uint32(103), pos1.Pos)
}

func TestStateAtBinarySearch(t *testing.T) {
	ref := newRef(t, "chr1", 1000)
	idx := cpgindex.Open()
	d := decode.New(idx, 0)
	cigar := sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 6)}
	rec := newMappedRecord(t, ref, 0, 60, cigar, "Z.z.Z.")

	r, ok := d.Decode(rec)
	require.True(t, ok)
	require.Len(t, r.Obs, 3)

	state, idxPos, ok := r.StateAt(r.Obs[1].CpGID)
	require.True(t, ok)
	assert.Equal(t, 1, idxPos)
	assert.Equal(t, decode.Unmethylated, state)

	_, _, ok = r.StateAt(cpgindex.ID(9999))
	assert.False(t, ok)
}
