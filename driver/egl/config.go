// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package egl

// ConfigTier is one attempt in the progressive relaxation of config
// requirements: implementations that cannot serve the preferred
// depth/stencil sizes still get a usable context with less precision.
type ConfigTier struct {
	Depth   int32
	Stencil int32
}

// ConfigTiers is tried in order; the first tier the display accepts
// wins.
var ConfigTiers = []ConfigTier{
	{Depth: 24, Stencil: 8},
	{Depth: 16, Stencil: 8},
	{Depth: 16, Stencil: 0},
	{Depth: 0, Stencil: 0},
}

// Attribs returns the EGL config attribute list for the tier.
// Pbuffer rendering and an ES2-capable RGBA8888 config are always
// required; only depth and stencil relax.
func (t ConfigTier) Attribs() []int32 {
	return []int32{
		SURFACE_TYPE, PBUFFER_BIT,
		RENDERABLE_TYPE, OPENGL_ES2_BIT,
		RED_SIZE, 8,
		GREEN_SIZE, 8,
		BLUE_SIZE, 8,
		ALPHA_SIZE, 8,
		DEPTH_SIZE, t.Depth,
		STENCIL_SIZE, t.Stencil,
		NONE,
	}
}

// chooseConfig walks the tiers on the given display and returns the
// first accepted config along with the tier that produced it.
func chooseConfig(l *Lib, dpy uintptr) (uintptr, ConfigTier, bool) {
	for _, tier := range ConfigTiers {
		attribs := tier.Attribs()
		var config uintptr
		var num int32
		if l.ChooseConfig(dpy, &attribs[0], &config, 1, &num) == TRUE && num > 0 {
			return config, tier, true
		}
	}
	return 0, ConfigTier{}, false
}
