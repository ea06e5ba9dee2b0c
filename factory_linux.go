// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package mapsurface

import (
	"github.com/agusmaps/mapsurface/driver/egl"
	"github.com/agusmaps/mapsurface/surface"
)

func newPlatformFactory(desc surface.Descriptor, opts surface.Options) (surface.Factory, error) {
	return egl.NewFactory(desc, opts)
}
