// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package base

import (
	"testing"

	"github.com/agusmaps/mapsurface/surface"
	"github.com/stretchr/testify/assert"
)

func TestPendingResizeEmpty(t *testing.T) {
	var p PendingResize
	_, ok := p.Take()
	assert.False(t, ok)
	_, ok = p.Peek()
	assert.False(t, ok)
}

func TestPendingResizeCoalesces(t *testing.T) {
	var p PendingResize
	p.Request(100, 200)
	p.Request(300, 400)
	p.Request(500, 600)

	e, ok := p.Take()
	assert.True(t, ok)
	assert.Equal(t, surface.Extent{Width: 500, Height: 600}, e)

	// drained: second take is empty
	_, ok = p.Take()
	assert.False(t, ok)
}

func TestPendingResizeIgnoresDegenerate(t *testing.T) {
	var p PendingResize
	p.Request(0, 100)
	p.Request(100, 0)
	p.Request(-5, -5)
	_, ok := p.Peek()
	assert.False(t, ok)

	// a degenerate request does not clobber a valid pending one
	p.Request(640, 480)
	p.Request(0, 0)
	e, ok := p.Peek()
	assert.True(t, ok)
	assert.Equal(t, surface.Extent{Width: 640, Height: 480}, e)
}

func TestPendingResizeLargeSizes(t *testing.T) {
	var p PendingResize
	p.Request(16384, 16384)
	e, ok := p.Take()
	assert.True(t, ok)
	assert.Equal(t, surface.Extent{Width: 16384, Height: 16384}, e)
}
