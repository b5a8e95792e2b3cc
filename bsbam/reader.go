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

// Package bsbam is the streaming Alignment Reader: a thin layer over
// github.com/biogo/hts/bam that exposes a position-sorted record
// iterator and rejects inputs that are not declared coordinate-sorted.
package bsbam

import (
	"context"
	"io"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// Reader iterates records of a coordinate-sorted BAM file in file order.
type Reader struct {
	f      file.File
	ctx    context.Context
	br     *bam.Reader
	rec    *sam.Record
	err    error
	lastRf int
	lastPs int
	began  bool
}

// Open opens path as a coordinate-sorted BAM file. It returns an
// errors.E error of kind errors.NotExist/errors.Invalid/errors.Precondition
// when the file is missing, unreadable, or not declared coordinate-sorted.
func Open(ctx context.Context, path string) (*Reader, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(errors.NotExist, "bsbam: opening", path, err)
	}
	br, err := bam.NewReader(f.Reader(ctx), 0)
	if err != nil {
		_ = f.Close(ctx)
		return nil, errors.E(errors.Invalid, "bsbam: decoding BAM header", path, err)
	}
	if br.Header().SortOrder != sam.Coordinate {
		_ = f.Close(ctx)
		return nil, errors.E(errors.Precondition, "bsbam: input is not declared coordinate-sorted (SO tag)", path)
	}
	return &Reader{f: f, ctx: ctx, br: br, lastRf: -1, lastPs: -1}, nil
}

// Header returns the BAM header, giving access to the reference name
// table via Header().Refs().
func (r *Reader) Header() *sam.Header {
	return r.br.Header()
}

// Next advances to the next record, returning false at end of stream or
// on error (distinguish via Err).
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	rec, err := r.br.Read()
	if err == io.EOF {
		return false
	}
	if err != nil {
		r.err = errors.E(errors.IO, "bsbam: reading record", err)
		return false
	}
	if rec.Ref == nil && rec.Flags&sam.Unmapped == 0 {
		// Defensive: a mapped record must carry a valid reference.
		r.err = errors.E(errors.Invalid, "bsbam: mapped record with no reference")
		return false
	}
	if rec.Ref != nil && rec.Flags&sam.Unmapped == 0 {
		refID, pos := rec.Ref.ID(), rec.Pos
		if r.began && (refID < r.lastRf || (refID == r.lastRf && pos < r.lastPs)) {
			r.err = errors.E(errors.Precondition, "bsbam: input is not actually coordinate-sorted")
			return false
		}
		r.lastRf, r.lastPs = refID, pos
		r.began = true
	}
	r.rec = rec
	return true
}

// Record returns the record most recently yielded by Next.
func (r *Reader) Record() *sam.Record {
	return r.rec
}

// Err returns the first error encountered, if any.
func (r *Reader) Err() error {
	return r.err
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.f.Close(r.ctx)
}
