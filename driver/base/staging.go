// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package base

import (
	"sync"

	"github.com/agusmaps/mapsurface/surface"
)

// StagingBuffer hands CPU frames from the render goroutine to the
// host. The render goroutine publishes read-back pixels; the host
// copies them out through CopyTo, which involves no GPU work and at
// worst waits for one in-progress publish. Two buffers alternate so a
// publish never reallocates while the host still references the
// previous frame's memory layout.
type StagingBuffer struct {
	mu sync.Mutex

	// SwizzleBGRA converts published RGBA bytes to BGRA order, for
	// hosts compositing BGRA surfaces.
	SwizzleBGRA bool

	front, back []byte
	extent      surface.Extent
	hasFrame    bool
}

// Publish stores a frame. src holds tightly packed RGBA rows at w by
// h with the bottom row first, as read back from a GL framebuffer;
// rows are flipped to top-first while copying. Called from the render
// goroutine only.
func (s *StagingBuffer) Publish(src []byte, w, h int32) {
	if w <= 0 || h <= 0 || len(src) < int(w)*int(h)*4 {
		return
	}
	rowBytes := int(w) * 4
	need := rowBytes * int(h)

	s.mu.Lock()
	defer s.mu.Unlock()
	if cap(s.back) < need {
		s.back = make([]byte, need)
	}
	dst := s.back[:need]
	for row := 0; row < int(h); row++ {
		srcRow := src[(int(h)-1-row)*rowBytes : (int(h)-row)*rowBytes]
		dstRow := dst[row*rowBytes : (row+1)*rowBytes]
		if s.SwizzleBGRA {
			for i := 0; i < rowBytes; i += 4 {
				dstRow[i] = srcRow[i+2]
				dstRow[i+1] = srcRow[i+1]
				dstRow[i+2] = srcRow[i]
				dstRow[i+3] = srcRow[i+3]
			}
		} else {
			copy(dstRow, srcRow)
		}
	}
	s.front, s.back = dst, s.front
	s.extent = surface.Extent{Width: w, Height: h}
	s.hasFrame = true
}

// HasFrame reports whether a frame has been published.
func (s *StagingBuffer) HasFrame() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasFrame
}

// Extent returns the size of the published frame.
func (s *StagingBuffer) Extent() surface.Extent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extent
}

// CopyTo copies the published frame into dst, a w by h pixel buffer
// with the given row stride in bytes. When the published frame is
// smaller than dst (the rendered extent trails a requested resize),
// the covered region is copied and the stale right and bottom margins
// are cleared, so the host never composites leftover pixels. It
// reports false, leaving dst untouched, when nothing has been
// published yet or the arguments are degenerate.
func (s *StagingBuffer) CopyTo(dst []byte, w, h, stride int32) bool {
	if w <= 0 || h <= 0 || stride < w*4 || len(dst) < int(stride)*int(h) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasFrame {
		return false
	}
	copyW := min(w, s.extent.Width)
	copyH := min(h, s.extent.Height)
	srcRowBytes := int(s.extent.Width) * 4
	copyRowBytes := int(copyW) * 4
	for row := 0; row < int(copyH); row++ {
		d := dst[row*int(stride):]
		copy(d[:copyRowBytes], s.front[row*srcRowBytes:])
		clear(d[copyRowBytes : int(w)*4])
	}
	for row := int(copyH); row < int(h); row++ {
		clear(dst[row*int(stride) : row*int(stride)+int(w)*4])
	}
	return true
}
