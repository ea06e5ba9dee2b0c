// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !android

package mapsurface

import "github.com/agusmaps/mapsurface/surface"

// platformSink returns nil on platforms without a built-in bridge;
// hosts install their sink with [RegisterFrameReadyCallback].
func platformSink() surface.Sink {
	return nil
}
