// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlayEmpty(t *testing.T) {
	var o Overlay
	assert.Nil(t, o.Render())
	assert.Empty(t, o.Lines())
}

func TestOverlayLinesOrder(t *testing.T) {
	var o Overlay
	o.SetStatus("Renderer: llvmpipe", "Transfer: CPU copy (glReadPixels)")
	o.SetCustom([]string{"fps: 60"})
	assert.Equal(t, []string{
		"Renderer: llvmpipe",
		"Transfer: CPU copy (glReadPixels)",
		"fps: 60",
	}, o.Lines())
}

func TestOverlayGeneration(t *testing.T) {
	var o Overlay
	g0 := o.Generation()
	o.SetStatus("a")
	g1 := o.Generation()
	assert.Greater(t, g1, g0)
	o.SetCustom([]string{"b"})
	assert.Greater(t, o.Generation(), g1)
}

func TestOverlayRenderGeometry(t *testing.T) {
	var o Overlay
	o.SetStatus("Surface: 800x600", "Rendered: 640x480")
	img := o.Render()
	assert.NotNil(t, img)
	assert.Equal(t, 2*lineHeight+2*padY, img.Rect.Dy())
	assert.Greater(t, img.Rect.Dx(), 2*padX)

	// panel background is translucent black at a corner pixel
	_, _, _, a := img.At(0, 0).RGBA()
	assert.NotZero(t, a)

	// longer lines widen the panel
	o.SetStatus("Surface: 800x600", "Rendered: 640x480", "Keyed mutex: Off (set MAPSURFACE_KEYED_MUTEX=1)")
	img2 := o.Render()
	assert.Greater(t, img2.Rect.Dx(), img.Rect.Dx())
}

func TestOverlayReplaceNotAppend(t *testing.T) {
	var o Overlay
	o.SetStatus("a", "b")
	o.SetStatus("c")
	assert.Equal(t, []string{"c"}, o.Lines())
	o.SetCustom([]string{"x"})
	o.SetCustom(nil)
	assert.Equal(t, []string{"c"}, o.Lines())
}
