// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mapsurface

import (
	"github.com/agusmaps/mapsurface/base/errors"
	"github.com/agusmaps/mapsurface/surface"
)

// InvalidHandle is returned by [CreateSurface] when the surface
// cannot be created. It is the only failure sentinel; valid handles
// are positive.
const InvalidHandle int64 = -1

// surfaces is the process registry of live surfaces. Host runtimes
// hold only the opaque handles.
var surfaces = surface.NewRegistry[*Surface]()

// factoryFor builds the platform backend; replaceable in tests.
var factoryFor = newPlatformFactory

// CreateSurface creates a surface of the given size and device pixel
// ratio, starts its render goroutine, and returns its handle, or
// [InvalidHandle] if the platform backend cannot be initialized.
// Creation never makes a GPU context current on the calling thread.
func CreateSurface(engine Engine, width, height int32, density float32) int64 {
	if engine == nil || width <= 0 || height <= 0 {
		errors.Log(errors.New("mapsurface: invalid surface parameters"))
		return InvalidHandle
	}
	desc := surface.Descriptor{Width: width, Height: height, Density: density}
	opts := surface.OptionsFromEnv()
	f, err := factoryFor(desc, opts)
	if err != nil {
		errors.Log(err)
		return InvalidHandle
	}
	s := newSurface(f, engine, desc)
	if sink := platformSink(); sink != nil {
		s.notifier.SetSink(sink)
	}
	h := surfaces.Add(s)
	s.start()
	return h
}

// OnSizeChanged records the host surface's new size. The resize is
// deferred to the render goroutine; this call touches no GPU state.
func OnSizeChanged(handle int64, width, height int32) {
	if s, ok := surfaces.Get(handle); ok {
		s.RequestResize(width, height)
	}
}

// SetVisualScale updates the device pixel ratio for the surface.
func SetVisualScale(handle int64, scale float32) {
	if s, ok := surfaces.Get(handle); ok {
		s.SetVisualScale(scale)
	}
}

// OnSurfaceDestroyed tears the surface down: callbacks are silenced
// first, then the render goroutine is stopped and the GPU resources
// released. Unknown handles are ignored, so hosts may call this from
// multiple teardown paths.
func OnSurfaceDestroyed(handle int64) {
	if s, ok := surfaces.Remove(handle); ok {
		s.Destroy()
	}
}

// RegisterFrameReadyCallback installs the host sink receiving frame
// and map events for the surface. A nil sink unregisters; frames
// keep rendering either way.
func RegisterFrameReadyCallback(handle int64, sink surface.Sink) {
	if s, ok := surfaces.Get(handle); ok {
		s.notifier.SetSink(sink)
	}
}

// CopyToPixelBuffer copies the latest completed frame into dst, a
// width x height pixel buffer with the given row stride in bytes. It
// never blocks on rendering and reports false if no frame has
// completed yet. Copying acknowledges the outstanding frame-ready
// notification.
func CopyToPixelBuffer(handle int64, dst []byte, width, height, stride int32) bool {
	s, ok := surfaces.Get(handle)
	if !ok {
		return false
	}
	return s.CopyToPixelBuffer(dst, width, height, stride)
}

// RenderedSize returns the extent of the most recently completed
// frame, which trails the requested size until a pending resize has
// been applied.
func RenderedSize(handle int64) (width, height int32) {
	if s, ok := surfaces.Get(handle); ok {
		e := s.factory.RenderedExtent()
		return e.Width, e.Height
	}
	return 0, 0
}

// Invalidate forces a redraw of the surface.
func Invalidate(handle int64) {
	if s, ok := surfaces.Get(handle); ok {
		s.Invalidate()
	}
}

// DispatchEvent forwards a map event (place page, positioning mode,
// routing progress) through the surface's sink to the host runtime,
// unthrottled. With no sink registered the event is dropped.
func DispatchEvent(handle int64, ev surface.Event) {
	if s, ok := surfaces.Get(handle); ok {
		s.notifier.Dispatch(ev)
	}
}

// SetOverlayLines installs application diagnostic lines on the
// surface's overlay, below the backend status lines. A no-op on
// backends without an overlay or when the overlay is disabled.
func SetOverlayLines(handle int64, lines []string) {
	s, ok := surfaces.Get(handle)
	if !ok {
		return
	}
	if o, ok := s.factory.(interface{ SetOverlayLines([]string) }); ok {
		o.SetOverlayLines(lines)
	}
}

// SharedTextureHandle returns the platform shared-texture handle for
// surfaces whose backend exports one (the D3D11 shared handle on
// Windows), or 0 elsewhere. The handle changes after a resize; hosts
// re-query it on every frame-ready.
func SharedTextureHandle(handle int64) uintptr {
	s, ok := surfaces.Get(handle)
	if !ok {
		return 0
	}
	if sh, ok := s.factory.(interface{ SharedHandle() uintptr }); ok {
		return sh.SharedHandle()
	}
	return 0
}
