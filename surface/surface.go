// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package surface defines the core types shared by the platform
// rendering backends: the surface descriptor, GPU context and factory
// interfaces, the lifecycle state machine, runtime options, the process
// handle registry, and the event contract used to notify the host
// runtime across the language boundary.
package surface

import "fmt"

// Descriptor describes the host-visible surface a backend renders into.
// Width and Height are in device pixels.
type Descriptor struct {
	Width  int32
	Height int32

	// Density is the device pixel ratio reported by the host.
	Density float32
}

// Extent is a width/height pair in device pixels.
type Extent struct {
	Width  int32
	Height int32
}

// IsZero reports whether either dimension is not positive.
func (e Extent) IsZero() bool {
	return e.Width <= 0 || e.Height <= 0
}

func (e Extent) String() string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}

// Clamp returns e limited to at most max in each dimension.
func (e Extent) Clamp(max Extent) Extent {
	if e.Width > max.Width {
		e.Width = max.Width
	}
	if e.Height > max.Height {
		e.Height = max.Height
	}
	return e
}

// Context is a GPU context bound to at most one goroutine at a time.
// The rendering engine calls MakeCurrent before issuing commands and
// Present at the end of a frame on the draw context.
type Context interface {
	// MakeCurrent binds the context on the calling goroutine. It
	// reports whether the bind succeeded; on failure the caller must
	// skip GPU work for this cycle.
	MakeCurrent() bool

	// DoneCurrent releases the context from the calling goroutine.
	DoneCurrent()

	// Present finishes the current frame and hands it to the host.
	// On the draw context this is where a pending resize is applied
	// and the frame is transferred (GPU interop or CPU read-back).
	// It reports whether a frame was actually delivered.
	Present() bool

	// SetFramebuffer selects the framebuffer object subsequent draw
	// commands target. 0 selects the backend's offscreen framebuffer.
	SetFramebuffer(fb uint32)
}

// Factory owns a surface's contexts and its backing GPU resources.
// Context accessors are idempotent: the first call on each constructs
// the context, later calls return the same one. Heavyweight GPU
// resources (framebuffers, interop registrations) are not created by
// the accessors; they materialize on the render goroutine during the
// first draw, so that constructing a factory never binds a context on
// the caller's thread.
type Factory interface {
	// DrawContext returns the context frames are rendered on.
	DrawContext() Context

	// UploadContext returns the context resources are uploaded on.
	// It shares GPU object namespaces with the draw context.
	UploadContext() Context

	// IsDrawContextCreated reports whether DrawContext has been called.
	IsDrawContextCreated() bool

	// IsUploadContextCreated reports whether UploadContext has been called.
	IsUploadContextCreated() bool

	// RequestResize records a new target size. It performs no GPU
	// work and is safe to call from any goroutine at any lifecycle
	// stage; the resize is applied on the render goroutine during the
	// next present cycle.
	RequestResize(w, h int32)

	// ApplyPendingResizeIfAny applies the most recent requested
	// resize, if one is pending. It must be called on the render
	// goroutine with the draw context current, at the start of a
	// present cycle; it reallocates and re-attaches the offscreen
	// attachments and only then updates RenderedExtent.
	ApplyPendingResizeIfAny()

	// RenderedExtent returns the size of the most recently completed
	// frame, which trails the requested size until a resize has been
	// applied.
	RenderedExtent() Extent

	// CopyToPixelBuffer copies the most recent completed frame into
	// dst, which holds stride*h bytes of RGBA (or the host's native
	// byte order). It never touches the GPU and never blocks on the
	// render goroutine. It reports false if no frame has completed
	// yet or the destination does not match the staged frame.
	CopyToPixelBuffer(dst []byte, w, h, stride int32) bool

	// Destroy releases the contexts and GPU resources. It is safe to
	// call from any goroutine, returns in bounded time, and further
	// method calls after it are no-ops.
	Destroy()
}
