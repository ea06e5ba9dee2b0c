// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build android

package mapsurface

import (
	"github.com/agusmaps/mapsurface/driver/android"
	"github.com/agusmaps/mapsurface/surface"
)

// platformSink wires new surfaces to the process JNI bridge, so that
// frame events reach the managed runtime without the host installing
// a sink explicitly.
func platformSink() surface.Sink {
	return android.TheBridge
}
