// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/agusmaps/mapsurface/base/errors"
	"github.com/agusmaps/mapsurface/surface"
)

// depthStencilFormats are tried in order when allocating the
// depth/stencil attachment; later entries trade precision for
// compatibility with weaker contexts.
var depthStencilFormats = []struct {
	format  uint32
	stencil bool
}{
	{DEPTH24_STENCIL8, true},
	{DEPTH_COMPONENT24, false},
	{DEPTH_COMPONENT16, false},
	{0, false},
}

// Framebuffer is the offscreen render target the engine draws into:
// an RGBA color texture plus a depth/stencil renderbuffer bound to one
// framebuffer object. All methods must be called on the goroutine that
// owns the GL context. Create is deferred until the first frame so
// that constructing the owning factory never binds a context.
type Framebuffer struct {
	gl *Functions

	// Size is the current allocation of the attachments.
	Size surface.Extent

	fbo      uint32
	colorTex uint32
	depthRB  uint32

	// chosen depth/stencil storage format; 0 when the context could
	// not allocate any depth storage
	depthFormat uint32

	created bool
}

// Create allocates the attachments and framebuffer object at the
// given size. Incompleteness is logged and tolerated: rendering
// continues on a best-effort basis, matching how transient
// incompleteness behaves during reconfiguration.
func (fb *Framebuffer) Create(gl *Functions, w, h int32) error {
	if fb.created {
		return nil
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("gpu: framebuffer size %dx%d not positive", w, h)
	}
	fb.gl = gl

	gl.GenTextures(1, &fb.colorTex)
	gl.BindTexture(TEXTURE_2D, fb.colorTex)
	gl.TexParameteri(TEXTURE_2D, TEXTURE_MIN_FILTER, LINEAR)
	gl.TexParameteri(TEXTURE_2D, TEXTURE_MAG_FILTER, LINEAR)
	gl.TexParameteri(TEXTURE_2D, TEXTURE_WRAP_S, CLAMP_TO_EDGE)
	gl.TexParameteri(TEXTURE_2D, TEXTURE_WRAP_T, CLAMP_TO_EDGE)
	gl.TexImage2D(TEXTURE_2D, 0, RGBA, w, h, 0, RGBA, UNSIGNED_BYTE, nil)
	gl.BindTexture(TEXTURE_2D, 0)

	fb.allocDepth(w, h)

	gl.GenFramebuffers(1, &fb.fbo)
	gl.BindFramebuffer(FRAMEBUFFER, fb.fbo)
	fb.attach()
	fb.checkComplete("create")

	gl.Viewport(0, 0, w, h)
	gl.Scissor(0, 0, w, h)

	fb.Size = surface.Extent{Width: w, Height: h}
	fb.created = true
	return nil
}

// Created reports whether Create has completed.
func (fb *Framebuffer) Created() bool { return fb.created }

// FBO returns the framebuffer object name, 0 before Create.
func (fb *Framebuffer) FBO() uint32 { return fb.fbo }

// ColorTexture returns the color attachment texture name.
func (fb *Framebuffer) ColorTexture() uint32 { return fb.colorTex }

// Bind makes the framebuffer the render target.
func (fb *Framebuffer) Bind() {
	if fb.created {
		fb.gl.BindFramebuffer(FRAMEBUFFER, fb.fbo)
	}
}

// Resize reallocates the attachment storage in place and re-attaches
// both attachments to the framebuffer object. Re-attachment is
// required: resized storage is not picked up by a stale attachment on
// every driver. The viewport and scissor are updated to the new size.
func (fb *Framebuffer) Resize(w, h int32) {
	if !fb.created || w <= 0 || h <= 0 {
		return
	}
	if fb.Size.Width == w && fb.Size.Height == h {
		return
	}
	gl := fb.gl

	gl.BindTexture(TEXTURE_2D, fb.colorTex)
	gl.TexImage2D(TEXTURE_2D, 0, RGBA, w, h, 0, RGBA, UNSIGNED_BYTE, nil)
	gl.BindTexture(TEXTURE_2D, 0)

	if fb.depthFormat != 0 {
		gl.BindRenderbuffer(RENDERBUFFER, fb.depthRB)
		gl.RenderbufferStorage(RENDERBUFFER, fb.depthFormat, w, h)
		gl.BindRenderbuffer(RENDERBUFFER, 0)
	}

	gl.BindFramebuffer(FRAMEBUFFER, fb.fbo)
	fb.attach()
	fb.checkComplete("resize")

	gl.Viewport(0, 0, w, h)
	gl.Scissor(0, 0, w, h)

	fb.Size = surface.Extent{Width: w, Height: h}
}

// ReadPixels reads the full current contents of the framebuffer as
// tightly packed RGBA rows, bottom row first, into dst, which must
// hold at least 4*Size.Width*Size.Height bytes.
func (fb *Framebuffer) ReadPixels(dst []byte) error {
	if !fb.created {
		return errors.New("gpu: framebuffer not created")
	}
	need := int(fb.Size.Width) * int(fb.Size.Height) * 4
	if len(dst) < need {
		return fmt.Errorf("gpu: read buffer %d bytes, need %d", len(dst), need)
	}
	gl := fb.gl
	gl.BindFramebuffer(FRAMEBUFFER, fb.fbo)
	gl.PixelStorei(PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, fb.Size.Width, fb.Size.Height, RGBA, UNSIGNED_BYTE, unsafe.Pointer(&dst[0]))
	return nil
}

// Release deletes the framebuffer object and its attachments. Safe to
// call before Create or more than once.
func (fb *Framebuffer) Release() {
	if !fb.created {
		return
	}
	gl := fb.gl
	gl.BindFramebuffer(FRAMEBUFFER, 0)
	gl.DeleteFramebuffers(1, &fb.fbo)
	gl.DeleteTextures(1, &fb.colorTex)
	if fb.depthRB != 0 {
		gl.DeleteRenderbuffers(1, &fb.depthRB)
	}
	fb.fbo, fb.colorTex, fb.depthRB = 0, 0, 0
	fb.created = false
}

// allocDepth allocates depth/stencil storage using the first format
// the context accepts.
func (fb *Framebuffer) allocDepth(w, h int32) {
	gl := fb.gl
	for _, df := range depthStencilFormats {
		if df.format == 0 {
			fb.depthFormat = 0
			slog.Warn("gpu: no depth storage available, rendering without depth")
			return
		}
		if fb.depthRB == 0 {
			gl.GenRenderbuffers(1, &fb.depthRB)
		}
		gl.BindRenderbuffer(RENDERBUFFER, fb.depthRB)
		gl.GetError() // clear prior state
		gl.RenderbufferStorage(RENDERBUFFER, df.format, w, h)
		err := gl.GetError()
		gl.BindRenderbuffer(RENDERBUFFER, 0)
		if err == NO_ERROR {
			fb.depthFormat = df.format
			return
		}
	}
}

// attach binds the current attachments to the bound framebuffer.
func (fb *Framebuffer) attach() {
	gl := fb.gl
	gl.FramebufferTexture2D(FRAMEBUFFER, COLOR_ATTACHMENT0, TEXTURE_2D, fb.colorTex, 0)
	switch fb.depthFormat {
	case 0:
	case DEPTH24_STENCIL8:
		gl.FramebufferRenderbuffer(FRAMEBUFFER, DEPTH_ATTACHMENT, RENDERBUFFER, fb.depthRB)
		gl.FramebufferRenderbuffer(FRAMEBUFFER, STENCIL_ATTACHMENT, RENDERBUFFER, fb.depthRB)
	default:
		gl.FramebufferRenderbuffer(FRAMEBUFFER, DEPTH_ATTACHMENT, RENDERBUFFER, fb.depthRB)
	}
}

func (fb *Framebuffer) checkComplete(op string) {
	status := fb.gl.CheckFramebufferStatus(FRAMEBUFFER)
	if status != FRAMEBUFFER_COMPLETE {
		slog.Warn("gpu: framebuffer incomplete, continuing", "op", op, "status", fmt.Sprintf("0x%04x", status))
	}
}
