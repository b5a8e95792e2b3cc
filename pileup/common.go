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

// Package pileup is the streaming read-pileup engine: it walks decoded
// reads in coordinate order, keeps a sliding window of CpG buckets, and
// flushes each bucket once no future read can extend it.
package pileup

// PosType is the integer type used to represent genomic positions.
type PosType = int32

// PosTypeMax is the maximum value representable by a PosType.
const PosTypeMax = PosType(1<<31 - 1)
