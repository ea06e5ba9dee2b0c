// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package base

import (
	"testing"

	"github.com/agusmaps/mapsurface/base/errors"
	"github.com/stretchr/testify/assert"
)

func TestMaterializerRunsOnce(t *testing.T) {
	var m Materializer
	calls := 0
	f := func() error { calls++; return nil }

	assert.NoError(t, m.Do(f))
	assert.NoError(t, m.Do(f))
	assert.Equal(t, 1, calls)
	assert.True(t, m.Done())
}

func TestMaterializerRetriesAfterFailure(t *testing.T) {
	var m Materializer
	calls := 0
	fail := errors.New("context not ready")
	f := func() error {
		calls++
		if calls < 3 {
			return fail
		}
		return nil
	}

	assert.Error(t, m.Do(f))
	assert.False(t, m.Done())
	assert.Error(t, m.Do(f))
	assert.NoError(t, m.Do(f))
	assert.True(t, m.Done())
	assert.Equal(t, 3, calls)
}

func TestMaterializerReset(t *testing.T) {
	var m Materializer
	calls := 0
	f := func() error { calls++; return nil }
	assert.NoError(t, m.Do(f))
	m.Reset()
	assert.False(t, m.Done())
	assert.NoError(t, m.Do(f))
	assert.Equal(t, 2, calls)
}
