// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package surface

import (
	"os"
	"strconv"
)

// Environment variables controlling backend behavior at surface
// creation. They are read once per surface, not watched.
const (
	// OverlayEnv toggles the diagnostics overlay. Default on for
	// backends that support it.
	OverlayEnv = "MAPSURFACE_OVERLAY"

	// KeyedMutexEnv toggles keyed-mutex exclusivity on the shared
	// interop texture. Default off: hosts that never acquire the
	// mutex would stall the producer, whereas the unsynchronized
	// default risks at most a single-frame tear.
	KeyedMutexEnv = "MAPSURFACE_KEYED_MUTEX"
)

// Options are per-surface runtime toggles.
type Options struct {
	// Overlay composites diagnostic text into each frame before it
	// is handed to the host.
	Overlay bool

	// KeyedMutex guards the shared interop texture with a keyed
	// mutex acquired for a bounded time each present.
	KeyedMutex bool
}

// OptionsFromEnv returns Options with defaults overridden by the
// process environment.
func OptionsFromEnv() Options {
	return Options{
		Overlay:    envBool(OverlayEnv, true),
		KeyedMutex: envBool(KeyedMutexEnv, false),
	}
}

func envBool(name string, def bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
