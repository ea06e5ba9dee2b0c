// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"testing"
	"unsafe"

	"github.com/agusmaps/mapsurface/surface"
	"github.com/stretchr/testify/assert"
)

// fakeGL records enough GL state to exercise the framebuffer manager
// without a context.
type fakeGL struct {
	*Functions

	nextName uint32

	boundFBO      uint32
	viewport      [4]int32
	scissor       [4]int32
	texSizes      map[uint32][2]int32
	rbFormat      map[uint32]uint32
	attachments   map[uint32]uint32 // attachment point -> object name
	reattachCount int
	failRBFormats map[uint32]bool // formats RenderbufferStorage rejects
	lastErr       uint32
	deletedFBOs   int
	deletedTex    int
	deletedRB     int
	status        uint32
	curTex        uint32
	curRB         uint32
}

func newFakeGL() *fakeGL {
	f := &fakeGL{
		texSizes:      map[uint32][2]int32{},
		rbFormat:      map[uint32]uint32{},
		attachments:   map[uint32]uint32{},
		failRBFormats: map[uint32]bool{},
		status:        FRAMEBUFFER_COMPLETE,
	}
	gen := func(n int32, names *uint32) {
		out := unsafe.Slice(names, n)
		for i := range out {
			f.nextName++
			out[i] = f.nextName
		}
	}
	f.Functions = &Functions{
		GetError: func() uint32 {
			e := f.lastErr
			f.lastErr = 0
			return e
		},
		Finish:         func() {},
		Flush:          func() {},
		Viewport:       func(x, y, w, h int32) { f.viewport = [4]int32{x, y, w, h} },
		Scissor:        func(x, y, w, h int32) { f.scissor = [4]int32{x, y, w, h} },
		GenTextures:    gen,
		DeleteTextures: func(n int32, names *uint32) { f.deletedTex += int(n) },
		BindTexture:    func(target, tex uint32) { f.curTex = tex },
		TexParameteri:  func(target, pname uint32, param int32) {},
		TexImage2D: func(target uint32, level, internal, w, h, border int32, format, typ uint32, pixels unsafe.Pointer) {
			f.texSizes[f.curTex] = [2]int32{w, h}
		},
		PixelStorei: func(pname uint32, param int32) {},
		ReadPixels: func(x, y, w, h int32, format, typ uint32, pixels unsafe.Pointer) {
			out := unsafe.Slice((*byte)(pixels), w*h*4)
			for i := range out {
				out[i] = 0xAB
			}
		},
		GenRenderbuffers:    gen,
		DeleteRenderbuffers: func(n int32, names *uint32) { f.deletedRB += int(n) },
		BindRenderbuffer:    func(target, rb uint32) { f.curRB = rb },
		RenderbufferStorage: func(target, internal uint32, w, h int32) {
			if f.failRBFormats[internal] {
				f.lastErr = 0x0501 // INVALID_VALUE
				return
			}
			f.rbFormat[f.curRB] = internal
		},
		GenFramebuffers:    gen,
		DeleteFramebuffers: func(n int32, names *uint32) { f.deletedFBOs += int(n) },
		BindFramebuffer:    func(target, fbo uint32) { f.boundFBO = fbo },
		FramebufferTexture2D: func(target, attachment, textarget, tex uint32, level int32) {
			f.attachments[attachment] = tex
			f.reattachCount++
		},
		FramebufferRenderbuffer: func(target, attachment, rbtarget, rb uint32) {
			f.attachments[attachment] = rb
			f.reattachCount++
		},
		CheckFramebufferStatus: func(target uint32) uint32 { return f.status },
	}
	return f
}

func TestFramebufferCreate(t *testing.T) {
	f := newFakeGL()
	fb := &Framebuffer{}
	assert.NoError(t, fb.Create(f.Functions, 640, 480))
	assert.True(t, fb.Created())
	assert.Equal(t, surface.Extent{Width: 640, Height: 480}, fb.Size)
	assert.Equal(t, [2]int32{640, 480}, f.texSizes[fb.ColorTexture()])
	assert.Equal(t, fb.ColorTexture(), f.attachments[COLOR_ATTACHMENT0])
	assert.Equal(t, [4]int32{0, 0, 640, 480}, f.viewport)
	assert.Equal(t, [4]int32{0, 0, 640, 480}, f.scissor)
	// depth and stencil both served by the packed renderbuffer
	assert.NotZero(t, f.attachments[DEPTH_ATTACHMENT])
	assert.Equal(t, f.attachments[DEPTH_ATTACHMENT], f.attachments[STENCIL_ATTACHMENT])

	// second create is a no-op
	assert.NoError(t, fb.Create(f.Functions, 100, 100))
	assert.Equal(t, surface.Extent{Width: 640, Height: 480}, fb.Size)
}

func TestFramebufferCreateBadSize(t *testing.T) {
	f := newFakeGL()
	fb := &Framebuffer{}
	assert.Error(t, fb.Create(f.Functions, 0, 480))
	assert.False(t, fb.Created())
}

func TestFramebufferDepthFallback(t *testing.T) {
	f := newFakeGL()
	f.failRBFormats[DEPTH24_STENCIL8] = true
	f.failRBFormats[DEPTH_COMPONENT24] = true
	fb := &Framebuffer{}
	assert.NoError(t, fb.Create(f.Functions, 64, 64))
	assert.Equal(t, uint32(DEPTH_COMPONENT16), f.rbFormat[f.attachments[DEPTH_ATTACHMENT]])
	// no stencil attachment with a depth-only format
	assert.Zero(t, f.attachments[STENCIL_ATTACHMENT])
}

func TestFramebufferNoDepthAtAll(t *testing.T) {
	f := newFakeGL()
	f.failRBFormats[DEPTH24_STENCIL8] = true
	f.failRBFormats[DEPTH_COMPONENT24] = true
	f.failRBFormats[DEPTH_COMPONENT16] = true
	fb := &Framebuffer{}
	assert.NoError(t, fb.Create(f.Functions, 64, 64))
	assert.Zero(t, f.attachments[DEPTH_ATTACHMENT])
}

func TestFramebufferResizeReattaches(t *testing.T) {
	f := newFakeGL()
	fb := &Framebuffer{}
	assert.NoError(t, fb.Create(f.Functions, 320, 200))
	before := f.reattachCount

	fb.Resize(800, 600)
	assert.Equal(t, surface.Extent{Width: 800, Height: 600}, fb.Size)
	assert.Equal(t, [2]int32{800, 600}, f.texSizes[fb.ColorTexture()])
	assert.Greater(t, f.reattachCount, before, "resize must re-attach")
	assert.Equal(t, [4]int32{0, 0, 800, 600}, f.viewport)

	// same-size resize is a no-op
	before = f.reattachCount
	fb.Resize(800, 600)
	assert.Equal(t, before, f.reattachCount)

	// degenerate sizes ignored
	fb.Resize(0, -3)
	assert.Equal(t, surface.Extent{Width: 800, Height: 600}, fb.Size)
}

func TestFramebufferIncompleteContinues(t *testing.T) {
	f := newFakeGL()
	f.status = 0x8CD6 // incomplete attachment
	fb := &Framebuffer{}
	assert.NoError(t, fb.Create(f.Functions, 64, 64))
	assert.True(t, fb.Created())
}

func TestFramebufferReadPixels(t *testing.T) {
	f := newFakeGL()
	fb := &Framebuffer{}
	assert.Error(t, fb.ReadPixels(make([]byte, 16)))

	assert.NoError(t, fb.Create(f.Functions, 4, 2))
	small := make([]byte, 4)
	assert.Error(t, fb.ReadPixels(small))

	dst := make([]byte, 4*2*4)
	assert.NoError(t, fb.ReadPixels(dst))
	assert.Equal(t, byte(0xAB), dst[0])
	assert.Equal(t, byte(0xAB), dst[len(dst)-1])
}

func TestFramebufferRelease(t *testing.T) {
	f := newFakeGL()
	fb := &Framebuffer{}
	fb.Release() // before create: no-op
	assert.NoError(t, fb.Create(f.Functions, 32, 32))
	fb.Release()
	assert.False(t, fb.Created())
	assert.Equal(t, 1, f.deletedFBOs)
	assert.Equal(t, 1, f.deletedTex)
	assert.Equal(t, 1, f.deletedRB)
	fb.Release() // idempotent
	assert.Equal(t, 1, f.deletedFBOs)
}
