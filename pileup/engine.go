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
package pileup

import (
	"container/heap"

	"github.com/grailbio/bsmethyl/cpgindex"
	"github.com/grailbio/bsmethyl/decode"
)

// Bucket is the set of reads covering one CpG, handed to a Sink once the
// engine proves no future record can extend it further.
type Bucket struct {
	CpGID    cpgindex.ID
	Position cpgindex.Position
	Reads    []*decode.Read
}

// Sink receives flushed buckets in strictly ascending (reference,
// position) order.
type Sink interface {
	HandleBucket(Bucket)
}

// idHeap is a container/heap min-heap over active CpG ids. Because the
// CpG index assigns ids in non-decreasing genomic order per reference,
// and references are processed one at a time on a coordinate-sorted
// stream, a single global heap correctly orders flushes across reference
// boundaries too.
type idHeap []cpgindex.ID

func (h idHeap) Len() int            { return len(h) }
func (h idHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x interface{}) { *h = append(*h, x.(cpgindex.ID)) }
func (h *idHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// Engine is the sliding-window pileup. Process and Finish must be called
// from a single goroutine; a Sink's HandleBucket may do its own internal
// fan-out (as FDRP/qFDRP do) but Engine itself is strictly sequential.
type Engine struct {
	index    *cpgindex.Index
	minDepth int
	sink     Sink

	active idHeap
	reads  map[cpgindex.ID][]*decode.Read

	frontierRef int
	frontierPos uint32
}

// NewEngine returns an Engine that flushes a CpG's bucket to sink once its
// depth is known and compares it against minDepth before delivering it;
// buckets below minDepth are still evicted, just never delivered.
func NewEngine(index *cpgindex.Index, minDepth int, sink Sink) *Engine {
	return &Engine{
		index:    index,
		minDepth: minDepth,
		sink:     sink,
		reads:    make(map[cpgindex.ID][]*decode.Read),
	}
}

// Process admits one decoded read's observations into the engine and
// drains any buckets the read's position has proven complete.
func (e *Engine) Process(r *decode.Read) {
	e.frontierRef = r.RefID
	e.frontierPos = uint32(r.LeftPos)
	for _, ob := range r.Obs {
		lst, exists := e.reads[ob.CpGID]
		if !exists {
			heap.Push(&e.active, ob.CpGID)
		}
		e.reads[ob.CpGID] = append(lst, r)
	}
	e.drain()
}

// drain flushes every active bucket whose position is strictly behind the
// current frontier.
func (e *Engine) drain() {
	for e.active.Len() > 0 {
		id := e.active[0]
		pos := e.index.Position(id)
		if int(pos.RefID) > e.frontierRef {
			break
		}
		if int(pos.RefID) == e.frontierRef && pos.Pos >= e.frontierPos {
			break
		}
		heap.Pop(&e.active)
		e.flush(id, pos)
	}
}

// Finish flushes every remaining bucket in ascending id order, as at
// end-of-stream.
func (e *Engine) Finish() {
	for e.active.Len() > 0 {
		id := heap.Pop(&e.active).(cpgindex.ID)
		e.flush(id, e.index.Position(id))
	}
}

func (e *Engine) flush(id cpgindex.ID, pos cpgindex.Position) {
	reads := e.reads[id]
	delete(e.reads, id)
	if len(reads) < e.minDepth {
		return
	}
	e.sink.HandleBucket(Bucket{CpGID: id, Position: pos, Reads: reads})
}
