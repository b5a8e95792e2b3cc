// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package biosimd provides small byte-array helpers for cleaning up raw
// FASTA sequence data before it's indexed.
package biosimd
