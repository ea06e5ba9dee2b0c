// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package overlay renders the diagnostics overlay: a small panel of
// text lines (GPU renderer, transfer path, surface and rendered
// extents, exclusivity state) composited into the corner of each
// frame before it is handed to the host. The overlay is best-effort
// debug aid only; any failure here must not affect frame delivery.
package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	padX       = 6
	padY       = 4
	lineHeight = 14
)

var (
	panelColor = color.RGBA{0, 0, 0, 176}
	textColor  = color.RGBA{255, 255, 255, 255}
)

// Overlay accumulates status and custom text lines and rasterizes
// them into an RGBA panel. Status lines come from the backend; custom
// lines from the embedding application. Both can be updated from any
// goroutine.
type Overlay struct {
	mu     sync.Mutex
	status []string
	custom []string
	gen    uint64
}

// SetStatus replaces the backend status lines.
func (o *Overlay) SetStatus(lines ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status = append(o.status[:0], lines...)
	o.gen++
}

// SetCustom replaces the application-provided lines, shown below the
// status lines.
func (o *Overlay) SetCustom(lines []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.custom = append(o.custom[:0], lines...)
	o.gen++
}

// Lines returns a copy of all current lines, status first.
func (o *Overlay) Lines() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.status)+len(o.custom))
	out = append(out, o.status...)
	out = append(out, o.custom...)
	return out
}

// Generation increments on every content change, letting the GL
// compositor skip texture re-uploads for unchanged content.
func (o *Overlay) Generation() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gen
}

// Render rasterizes the current lines onto a translucent panel.
// It returns nil when there are no lines.
func (o *Overlay) Render() *image.RGBA {
	lines := o.Lines()
	if len(lines) == 0 {
		return nil
	}
	face := basicfont.Face7x13

	w := 0
	for _, ln := range lines {
		if adv := font.MeasureString(face, ln).Ceil(); adv > w {
			w = adv
		}
	}
	w += 2 * padX
	h := len(lines)*lineHeight + 2*padY

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(panelColor), image.Point{}, draw.Src)

	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: face,
	}
	for i, ln := range lines {
		d.Dot = fixed.P(padX, padY+i*lineHeight+face.Ascent)
		d.DrawString(ln)
	}
	return img
}
