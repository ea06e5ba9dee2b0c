// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gpu provides the minimal OpenGL ES surface the backends
// need: a function table resolved at runtime through a backend
// supplied proc-address resolver, and an offscreen framebuffer whose
// attachments can be resized and re-attached in place.
package gpu

// OpenGL ES enum values used by the backends. Only the subset this
// module calls is defined.
const (
	TEXTURE_2D         = 0x0DE1
	TEXTURE0           = 0x84C0
	RGBA               = 0x1908
	BGRA               = 0x80E1
	UNSIGNED_BYTE      = 0x1401
	TEXTURE_MIN_FILTER = 0x2801
	TEXTURE_MAG_FILTER = 0x2800
	TEXTURE_WRAP_S     = 0x2802
	TEXTURE_WRAP_T     = 0x2803
	LINEAR             = 0x2601
	NEAREST            = 0x2600
	CLAMP_TO_EDGE      = 0x812F

	FRAMEBUFFER              = 0x8D40
	READ_FRAMEBUFFER         = 0x8CA8
	DRAW_FRAMEBUFFER         = 0x8CA9
	RENDERBUFFER             = 0x8D41
	COLOR_ATTACHMENT0        = 0x8CE0
	DEPTH_ATTACHMENT         = 0x8D00
	STENCIL_ATTACHMENT       = 0x8D20
	DEPTH_STENCIL_ATTACHMENT = 0x821A
	FRAMEBUFFER_COMPLETE     = 0x8CD5

	DEPTH24_STENCIL8  = 0x88F0
	DEPTH_COMPONENT24 = 0x81A6
	DEPTH_COMPONENT16 = 0x81A5
	STENCIL_INDEX8    = 0x8D48

	COLOR_BUFFER_BIT   = 0x4000
	DEPTH_BUFFER_BIT   = 0x0100
	STENCIL_BUFFER_BIT = 0x0400

	ARRAY_BUFFER    = 0x8892
	STATIC_DRAW     = 0x88E4
	TRIANGLE_STRIP  = 0x0005
	FLOAT           = 0x1406
	VERTEX_SHADER   = 0x8B31
	FRAGMENT_SHADER = 0x8B30
	COMPILE_STATUS  = 0x8B81
	LINK_STATUS     = 0x8B82

	BLEND               = 0x0BE2
	SCISSOR_TEST        = 0x0C11
	SRC_ALPHA           = 0x0302
	ONE_MINUS_SRC_ALPHA = 0x0303

	UNPACK_ALIGNMENT = 0x0CF5
	PACK_ALIGNMENT   = 0x0D05

	VENDOR     = 0x1F00
	RENDERER   = 0x1F01
	VERSION    = 0x1F02
	EXTENSIONS = 0x1F03

	NO_ERROR = 0
	TRUE     = 1
	FALSE    = 0
)
