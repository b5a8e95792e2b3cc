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

// Package report is the buffered tab-separated writer every metric
// kernel writes its rows through.
package report

import (
	"bufio"
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// Writer writes tab-separated rows through a line-buffered writer: each
// row is flushed to the underlying file.File as soon as it is complete.
// It implements metrics.RowWriter and
// metrics.LPMDWriter so every kernel can share one concrete type.
type Writer struct {
	ctx context.Context
	f   file.File
	buf *bufio.Writer
	err errors.Once
}

// Create opens path for writing and emits header as the first line (pass
// "" to skip the header).
func Create(ctx context.Context, path, header string) (*Writer, error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.E(errors.NotExist, "report: creating", path, err)
	}
	w := &Writer{ctx: ctx, f: f, buf: bufio.NewWriter(f.Writer(ctx))}
	if header != "" {
		w.err.Set(w.writeLine(header))
	}
	return w, nil
}

func (w *Writer) writeLine(line string) error {
	if _, err := w.buf.WriteString(line); err != nil {
		return err
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return err
	}
	return w.buf.Flush()
}

// WriteCpGRow writes one per-CpG metric row (PM, ME, FDRP, qFDRP).
func (w *Writer) WriteCpGRow(ref string, pos uint32, value float64, nReads int) error {
	err := w.writeLine(fmt.Sprintf("%s\t%d\t%.6f\t%d", ref, pos, value, nReads))
	w.err.Set(err)
	return err
}

// WriteStretchRow writes one per-stretch metric row (PDR, MHL).
// hasDiscordant is false for kernels (MHL) that don't report a
// discordant-read count; nDiscordant is then omitted from the row.
func (w *Writer) WriteStretchRow(ref string, start, end uint32, value float64, nReads, nDiscordant int, hasDiscordant bool) error {
	var line string
	if hasDiscordant {
		line = fmt.Sprintf("%s\t%d\t%d\t%.6f\t%d\t%d", ref, start, end, value, nReads, nDiscordant)
	} else {
		line = fmt.Sprintf("%s\t%d\t%d\t%.6f\t%d", ref, start, end, value, nReads)
	}
	err := w.writeLine(line)
	w.err.Set(err)
	return err
}

// WriteLPMDSummary writes the single global LPMD summary line.
func (w *Writer) WriteLPMDSummary(nDiscordant, nTotal int64, lpmd float64) error {
	err := w.writeLine(fmt.Sprintf("%d\t%d\t%.6f", nDiscordant, nTotal, lpmd))
	w.err.Set(err)
	return err
}

// WriteLPMDPairRow writes one row of the optional LPMD per-pair report.
func (w *Writer) WriteLPMDPairRow(refA string, posA uint32, refB string, posB uint32, nDiscordant, nTotal int) error {
	err := w.writeLine(fmt.Sprintf("%s\t%d\t%s\t%d\t%d\t%d", refA, posA, refB, posB, nDiscordant, nTotal))
	w.err.Set(err)
	return err
}

// Close flushes buffered output and closes the underlying file. It
// returns the first error encountered across every prior write or the
// flush/close itself.
func (w *Writer) Close() error {
	w.err.Set(w.buf.Flush())
	w.err.Set(w.f.Close(w.ctx))
	return w.err.Err()
}
