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

// Internal (white-box) tests for the package-private helpers shared_test.go
// exercises directly, since they aren't reachable from outside the package.
package metrics

import (
	"testing"

	"github.com/grailbio/bsmethyl/cpgindex"
	"github.com/grailbio/bsmethyl/decode"
	"github.com/stretchr/testify/assert"
)

func obsRead(states ...decode.State) *decode.Read {
	obs := make([]decode.Observation, len(states))
	for i, s := range states {
		obs[i] = decode.Observation{CpGID: cpgindex.ID(i), State: s}
	}
	return &decode.Read{Obs: obs}
}

func TestPairCount(t *testing.T) {
	assert.Equal(t, 0, pairCount(0))
	assert.Equal(t, 0, pairCount(1))
	assert.Equal(t, 1, pairCount(2))
	assert.Equal(t, 6, pairCount(4))
	assert.Equal(t, 45, pairCount(10))
}

func TestUnrankPairEnumeratesLexOrder(t *testing.T) {
	n := 5
	want := [][2]int{{0, 1}, {0, 2}, {0, 3}, {0, 4}, {1, 2}, {1, 3}, {1, 4}, {2, 3}, {2, 4}, {3, 4}}
	for idx, pair := range want {
		i, j := unrankPair(n, idx)
		assert.Equal(t, pair[0], i, "idx %d", idx)
		assert.Equal(t, pair[1], j, "idx %d", idx)
	}
}

func TestQuartetAtRequiresFourObservations(t *testing.T) {
	r := obsRead(decode.Methylated, decode.Unmethylated, decode.Methylated)
	_, ok := quartetAt(r, cpgindex.ID(0))
	assert.False(t, ok, "only 3 observations after (and including) id 0, need 4")
}

func TestQuartetAtBuildsBitmask(t *testing.T) {
	r := obsRead(decode.Methylated, decode.Unmethylated, decode.Methylated, decode.Methylated)
	q, ok := quartetAt(r, cpgindex.ID(0))
	assert.True(t, ok)
	assert.Equal(t, quartet(0b1101), q)
}

func TestIsDiscordantInRange(t *testing.T) {
	r := obsRead(decode.Methylated, decode.Methylated, decode.Unmethylated)
	assert.False(t, isDiscordantInRange(r, cpgindex.ID(0), cpgindex.ID(1)))
	assert.True(t, isDiscordantInRange(r, cpgindex.ID(0), cpgindex.ID(2)))
}

func TestSharedCpGsWalksOnlyCommonIDs(t *testing.T) {
	a := &decode.Read{Obs: []decode.Observation{
		{CpGID: 0, State: decode.Methylated},
		{CpGID: 1, State: decode.Unmethylated},
		{CpGID: 3, State: decode.Methylated},
	}}
	b := &decode.Read{Obs: []decode.Observation{
		{CpGID: 1, State: decode.Methylated},
		{CpGID: 2, State: decode.Methylated},
		{CpGID: 3, State: decode.Methylated},
	}}
	var mismatches int
	n := sharedCpGs(a, b, func(sa, sb decode.State) bool {
		if sa != sb {
			mismatches++
		}
		return true
	})
	assert.Equal(t, 2, n, "only CpG 1 and 3 are shared")
	assert.Equal(t, 1, mismatches, "CpG 1 disagrees, CpG 3 agrees")
}

func TestOverlapBases(t *testing.T) {
	a := &decode.Read{LeftPos: 100, RightPos: 150}
	b := &decode.Read{LeftPos: 120, RightPos: 200}
	assert.Equal(t, 30, overlapBases(a, b))

	c := &decode.Read{LeftPos: 200, RightPos: 250}
	assert.Equal(t, 0, overlapBases(a, c), "disjoint spans overlap by 0")
}
