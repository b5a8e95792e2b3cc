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
package bsbam_test

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/grailbio/bsmethyl/bsbam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempBAM(t *testing.T, sortOrder sam.SortOrder, records []*sam.Record) string {
	t.Helper()
	ref, err := sam.NewReference("chr1", "", "", 1000, nil, nil)
	require.NoError(t, err)
	h, err := sam.NewHeader(nil, []*sam.Reference{ref})
	require.NoError(t, err)
	h.SortOrder = sortOrder

	dir, err := ioutil.TempDir("", "bsbam-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	path := filepath.Join(dir, "in.bam")

	f, err := os.Create(path)
	require.NoError(t, err)
	bw, err := bam.NewWriter(f, h, 1)
	require.NoError(t, err)
	for _, rec := range records {
		require.NoError(t, bw.Write(rec))
	}
	require.NoError(t, bw.Close())
	require.NoError(t, f.Close())
	return path
}

func mappedAt(t *testing.T, ref *sam.Reference, pos int) *sam.Record {
	t.Helper()
	cigar := sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 10)}
	rec, err := sam.NewRecord("r", ref, nil, pos, -1, 0, 60, cigar, nil, nil, nil)
	require.NoError(t, err)
	return rec
}

func TestOpenRejectsNonCoordinateSortOrder(t *testing.T) {
	path := writeTempBAM(t, sam.Unsorted, nil)
	ctx := context.Background()
	_, err := bsbam.Open(ctx, path)
	assert.Error(t, err)
}

func TestOpenRejectsMissingFile(t *testing.T) {
	ctx := context.Background()
	_, err := bsbam.Open(ctx, "/no/such/file.bam")
	assert.Error(t, err)
}

func TestReaderIteratesRecordsInOrder(t *testing.T) {
	ref, err := sam.NewReference("chr1", "", "", 1000, nil, nil)
	require.NoError(t, err)
	_, err = sam.NewHeader(nil, []*sam.Reference{ref})
	require.NoError(t, err)

	records := []*sam.Record{mappedAt(t, ref, 100), mappedAt(t, ref, 200), mappedAt(t, ref, 300)}
	path := writeTempBAM(t, sam.Coordinate, records)

	ctx := context.Background()
	r, err := bsbam.Open(ctx, path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	var positions []int
	for r.Next() {
		positions = append(positions, r.Record().Pos)
	}
	require.NoError(t, r.Err())
	assert.Equal(t, []int{100, 200, 300}, positions)
}

func TestReaderRejectsOutOfOrderRecords(t *testing.T) {
	ref, err := sam.NewReference("chr1", "", "", 1000, nil, nil)
	require.NoError(t, err)
	_, err = sam.NewHeader(nil, []*sam.Reference{ref})
	require.NoError(t, err)

	// Declared coordinate-sorted in the header, but not actually sorted.
	records := []*sam.Record{mappedAt(t, ref, 300), mappedAt(t, ref, 100)}
	path := writeTempBAM(t, sam.Coordinate, records)

	ctx := context.Background()
	r, err := bsbam.Open(ctx, path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	for r.Next() {
	}
	assert.Error(t, r.Err())
}
