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
package metrics

// RowWriter is implemented by report.Writer; kernels depend on this
// narrow interface rather than the concrete writer so that metrics stays
// free of any output-format detail and each kernel remains a pure
// function of its input reads.
type RowWriter interface {
	WriteCpGRow(ref string, pos uint32, value float64, nReads int) error
	WriteStretchRow(ref string, start, end uint32, value float64, nReads, nDiscordant int, hasDiscordant bool) error
}

// LPMDWriter is the narrow interface LPMD needs for its one mandatory
// global summary line.
type LPMDWriter interface {
	WriteLPMDSummary(nDiscordant, nTotal int64, lpmd float64) error
}

// LPMDPairWriter is the narrow interface LPMD needs for its optional
// per-CpG-pair discordance table, written to a separate report when
// requested.
type LPMDPairWriter interface {
	WriteLPMDPairRow(refA string, posA uint32, refB string, posB uint32, nDiscordant, nTotal int) error
}
