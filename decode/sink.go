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
package decode

// ReadSink receives every decoded Read directly, independent of the pileup
// engine's bucketing. LPMD is the one metric kernel that needs this: it
// only ever looks at a single read's own sorted Obs, so there is nothing
// for bucketing by CpG depth to add.
type ReadSink interface {
	HandleRead(*Read)
}
