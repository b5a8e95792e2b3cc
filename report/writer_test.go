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
package report_test

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/bsmethyl/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempPath(t *testing.T, name string) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "report-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, name)
}

func TestWriterWritesHeaderAndRows(t *testing.T) {
	ctx := context.Background()
	path := tempPath(t, "cpg.tsv")

	w, err := report.Create(ctx, path, "reference\tposition\tvalue\tn_reads")
	require.NoError(t, err)
	require.NoError(t, w.WriteCpGRow("chr1", 100, 0.25, 4))
	require.NoError(t, w.WriteCpGRow("chr1", 200, 0.5, 8))
	require.NoError(t, w.Close())

	got, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	want := "reference\tposition\tvalue\tn_reads\n" +
		"chr1\t100\t0.250000\t4\n" +
		"chr1\t200\t0.500000\t8\n"
	assert.Equal(t, want, string(got))
}

func TestWriterSkipsHeaderWhenEmpty(t *testing.T) {
	ctx := context.Background()
	path := tempPath(t, "nohead.tsv")

	w, err := report.Create(ctx, path, "")
	require.NoError(t, err)
	require.NoError(t, w.WriteStretchRow("chr1", 10, 20, 0.1, 5, 2, true))
	require.NoError(t, w.Close())

	got, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "chr1\t10\t20\t0.100000\t5\t2\n", string(got))
}

func TestWriterOmitsDiscordantColumnWhenNotApplicable(t *testing.T) {
	ctx := context.Background()
	path := tempPath(t, "mhl.tsv")

	w, err := report.Create(ctx, path, "")
	require.NoError(t, err)
	require.NoError(t, w.WriteStretchRow("chr1", 10, 20, 0.75, 5, 0, false))
	require.NoError(t, w.Close())

	got, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "chr1\t10\t20\t0.750000\t5\n", string(got))
}

func TestWriterLPMDRows(t *testing.T) {
	ctx := context.Background()
	path := tempPath(t, "lpmd.tsv")

	w, err := report.Create(ctx, path, "n_discordant\tn_total\tlpmd")
	require.NoError(t, err)
	require.NoError(t, w.WriteLPMDSummary(3, 10, 0.3))
	require.NoError(t, w.Close())

	got, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "n_discordant\tn_total\tlpmd\n3\t10\t0.300000\n", string(got))
}

func TestWriterLPMDPairRows(t *testing.T) {
	ctx := context.Background()
	path := tempPath(t, "lpmd-pairs.tsv")

	w, err := report.Create(ctx, path, "")
	require.NoError(t, err)
	require.NoError(t, w.WriteLPMDPairRow("chr1", 100, "chr1", 110, 1, 4))
	require.NoError(t, w.Close())

	got, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "chr1\t100\tchr1\t110\t1\t4\n", string(got))
}
