// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEBuildsKindAndOp(t *testing.T) {
	err := E("Get", "mykey", IO, Str("disk full"))
	require.Error(t, err)
	assert.Equal(t, "Get: key mykey: I/O error: disk full", err.Error())
	assert.True(t, Is(err, IO))
	assert.False(t, Is(err, NotExist))
}

func TestEPullsUpInnerKind(t *testing.T) {
	inner := E("load", Corrupt, Str("bad varint"))
	outer := E("Open", inner)
	assert.True(t, Is(outer, Corrupt))
	assert.Equal(t, []string{"Open", "load"}, Ops(outer))
}

func TestEDedupesRepeatedKeyAndKind(t *testing.T) {
	inner := E("Get", "k1", IO, Str("eof"))
	outer := E("Get", "k1", IO, inner)
	// The duplicated key/kind on the inner error is suppressed so the
	// message doesn't repeat itself.
	msg := outer.Error()
	assert.Equal(t, 1, countOccurrences(msg, "key k1"))
}

func countOccurrences(s, substr string) int {
	n := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			n++
			i += len(substr) - 1
		}
	}
	return n
}

func TestIsReturnsFalseForPlainError(t *testing.T) {
	assert.False(t, Is(Str("boom"), IO))
	assert.False(t, Is(nil, IO))
}
