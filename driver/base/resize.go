// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package base

import (
	"sync/atomic"

	"github.com/agusmaps/mapsurface/surface"
)

// PendingResize is the deferred resize slot. Host threads record the
// latest requested size with Request, which stores two packed atomics
// and nothing else; the render goroutine drains the slot with Take at
// the one safe point in its present cycle. Intermediate sizes are
// coalesced: only the newest request survives.
type PendingResize struct {
	// packed holds width<<32 | height, or 0 when no resize is
	// pending. Both halves are always positive in a stored value, so
	// 0 is unambiguous.
	packed atomic.Uint64
}

// Request records a resize to the given size. Non-positive sizes are
// ignored. Safe from any goroutine, performs no GPU work.
func (p *PendingResize) Request(w, h int32) {
	if w <= 0 || h <= 0 {
		return
	}
	p.packed.Store(uint64(uint32(w))<<32 | uint64(uint32(h)))
}

// Take drains the slot, returning the pending size if one was
// recorded since the last Take.
func (p *PendingResize) Take() (surface.Extent, bool) {
	v := p.packed.Swap(0)
	if v == 0 {
		return surface.Extent{}, false
	}
	return unpack(v), true
}

// Peek returns the pending size without draining it.
func (p *PendingResize) Peek() (surface.Extent, bool) {
	v := p.packed.Load()
	if v == 0 {
		return surface.Extent{}, false
	}
	return unpack(v), true
}

func unpack(v uint64) surface.Extent {
	return surface.Extent{
		Width:  int32(uint32(v >> 32)),
		Height: int32(uint32(v)),
	}
}
