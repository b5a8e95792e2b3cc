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
package cpgindex_test

import (
	"context"
	"io/ioutil"
	"os"
	"testing"

	"github.com/grailbio/bsmethyl/cpgindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAssignsIDsOnFirstSight(t *testing.T) {
	idx := cpgindex.Open()
	id0, ok := idx.Lookup(0, 100)
	require.True(t, ok)
	assert.Equal(t, cpgindex.ID(0), id0)

	// Same position again returns the same id.
	id0Again, ok := idx.Lookup(0, 100)
	require.True(t, ok)
	assert.Equal(t, id0, id0Again)

	// A new position gets the next dense id.
	id1, ok := idx.Lookup(0, 200)
	require.True(t, ok)
	assert.Equal(t, cpgindex.ID(1), id1)

	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, cpgindex.Position{RefID: 0, Pos: 100}, idx.Position(id0))
	assert.Equal(t, cpgindex.Position{RefID: 0, Pos: 200}, idx.Position(id1))
}

func writeTempBED(t *testing.T, contents string) string {
	t.Helper()
	f, err := ioutil.TempFile("", "cpgindex-*.bed")
	require.NoError(t, err)
	_, err = f.WriteString(contents)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	t.Cleanup(func() { _ = os.Remove(f.Name()) })
	return f.Name()
}

func TestRestrictedOnlyMatchesPrepopulatedPositions(t *testing.T) {
	ctx := context.Background()
	bed := writeTempBED(t, "chr1\t100\t102\nchr1\t200\t202\n# a comment\nchr2\t5\t7\n")

	refIDFor := func(name string) (uint32, bool) {
		switch name {
		case "chr1":
			return 0, true
		case "chr2":
			return 1, true
		default:
			return 0, false
		}
	}
	idx, err := cpgindex.Restricted(ctx, bed, refIDFor)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())

	id, ok := idx.Lookup(0, 100)
	require.True(t, ok)
	assert.Equal(t, cpgindex.ID(0), id)

	id, ok = idx.Lookup(1, 5)
	require.True(t, ok)
	assert.Equal(t, cpgindex.ID(2), id)

	_, ok = idx.Lookup(0, 999)
	assert.False(t, ok, "a position outside the BED set must not be minted")
}

func TestRestrictedSkipsUnresolvableReferenceNames(t *testing.T) {
	ctx := context.Background()
	bed := writeTempBED(t, "chrUn\t1\t3\nchr1\t10\t12\n")
	refIDFor := func(name string) (uint32, bool) {
		if name == "chr1" {
			return 0, true
		}
		return 0, false
	}
	idx, err := cpgindex.Restricted(ctx, bed, refIDFor)
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())
	_, ok := idx.Lookup(0, 10)
	assert.True(t, ok)
}

func TestRestrictedRejectsMalformedLine(t *testing.T) {
	ctx := context.Background()
	bed := writeTempBED(t, "chr1\t100\n")
	_, err := cpgindex.Restricted(ctx, bed, func(string) (uint32, bool) { return 0, true })
	assert.Error(t, err)
}

func TestRestrictedRejectsMissingFile(t *testing.T) {
	ctx := context.Background()
	_, err := cpgindex.Restricted(ctx, "/no/such/file.bed", func(string) (uint32, bool) { return 0, true })
	assert.Error(t, err)
}

func TestRestrictedDeduplicatesRepeatedPosition(t *testing.T) {
	ctx := context.Background()
	bed := writeTempBED(t, "chr1\t100\t102\nchr1\t100\t102\n")
	idx, err := cpgindex.Restricted(ctx, bed, func(string) (uint32, bool) { return 0, true })
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())
}
