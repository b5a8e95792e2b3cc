// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package biosimd_test

import (
	"testing"

	"github.com/grailbio/bsmethyl/biosimd"
	"github.com/stretchr/testify/assert"
)

func TestCleanASCIISeqInplaceCapitalizes(t *testing.T) {
	seq := []byte("acgtACGT")
	biosimd.CleanASCIISeqInplace(seq)
	assert.Equal(t, "ACGTACGT", string(seq))
}

func TestCleanASCIISeqInplaceReplacesNonACGTWithN(t *testing.T) {
	seq := []byte("ACGTNRYWacgtnryw")
	biosimd.CleanASCIISeqInplace(seq)
	assert.Equal(t, "ACGTNNNNACGTNNNN", string(seq))
}

func TestCleanASCIISeqInplaceEmpty(t *testing.T) {
	seq := []byte{}
	biosimd.CleanASCIISeqInplace(seq)
	assert.Empty(t, seq)
}
