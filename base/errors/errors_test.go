// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLog(t *testing.T) {
	assert.NoError(t, Log(nil))
	err := New("oops")
	assert.Equal(t, err, Log(err))
}

func TestLog1(t *testing.T) {
	assert.Equal(t, 3, Log1(3, nil))
	assert.Equal(t, "x", Log1("x", New("oops")))
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil, "ctx"))
	err := New("inner")
	wrapped := Wrap(err, "ctx")
	assert.True(t, Is(wrapped, err))
	assert.Equal(t, "ctx: inner", wrapped.Error())
}
