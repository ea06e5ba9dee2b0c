// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build windows

package mapsurface

import (
	"github.com/agusmaps/mapsurface/driver/wgl"
	"github.com/agusmaps/mapsurface/surface"
)

func newPlatformFactory(desc surface.Descriptor, opts surface.Options) (surface.Factory, error) {
	return wgl.NewFactory(desc, opts)
}
