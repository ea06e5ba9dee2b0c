// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mapsurface embeds a vector-map rendering engine into a host
// application's compositor. The host creates a surface, receives
// throttled frame-ready notifications, and consumes frames either as
// CPU pixel buffers or, on Windows, through a shared D3D11 texture;
// the engine renders on a dedicated goroutine against platform
// contexts it never has to know the details of.
package mapsurface

import (
	"log/slog"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agusmaps/mapsurface/driver/base"
	"github.com/agusmaps/mapsurface/surface"
)

// Engine is the rendering engine behind a surface. Attach and
// Release run on the render goroutine with the draw context current;
// Render runs there every frame with the offscreen framebuffer
// bound. Resize and SetVisualScale also arrive on the render
// goroutine, already serialized with Render. The engine may use the
// factory's upload context from its own goroutines.
type Engine interface {
	// Attach binds the engine to the surface's contexts.
	Attach(f surface.Factory, desc surface.Descriptor)

	// Render draws the current frame at the given size into the
	// bound framebuffer. It reports whether the engine is animating
	// and wants another frame scheduled.
	Render(size surface.Extent) bool

	// Resize informs the engine that the drawable size changed.
	Resize(size surface.Extent)

	// SetVisualScale updates the device pixel ratio.
	SetVisualScale(scale float32)

	// Release frees engine resources.
	Release()
}

// minFramePeriod paces the render loop when the engine animates
// continuously.
const minFramePeriod = 16 * time.Millisecond

// destroyTimeout bounds how long Destroy waits for the render
// goroutine; a wedged GPU driver must not hang the host's teardown
// path.
const destroyTimeout = 2 * time.Second

// Surface is one embedded map surface: a platform factory, the
// engine rendering into it, and the render goroutine driving frames.
type Surface struct {
	desc    surface.Descriptor
	factory surface.Factory
	engine  Engine

	notifier *base.FrameNotifier
	scale    atomic.Uint32

	redraw chan struct{}
	quit   chan struct{}
	done   chan struct{}

	destroyOnce sync.Once
}

func newSurface(f surface.Factory, engine Engine, desc surface.Descriptor) *Surface {
	s := &Surface{
		desc:     desc,
		factory:  f,
		engine:   engine,
		notifier: base.NewFrameNotifier(),
		redraw:   make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.scale.Store(math.Float32bits(desc.Density))
	return s
}

func (s *Surface) start() {
	go s.renderLoop()
	s.Invalidate()
}

// Invalidate schedules a redraw. Safe from any goroutine; redundant
// calls coalesce.
func (s *Surface) Invalidate() {
	select {
	case s.redraw <- struct{}{}:
	default:
	}
}

// Notifier returns the surface's frame notifier, for installing the
// host sink.
func (s *Surface) Notifier() *base.FrameNotifier { return s.notifier }

// Factory returns the platform factory.
func (s *Surface) Factory() surface.Factory { return s.factory }

// RequestResize forwards the host's new surface size and pings the
// loop so the resize is applied promptly.
func (s *Surface) RequestResize(w, h int32) {
	s.factory.RequestResize(w, h)
	s.Invalidate()
}

// SetVisualScale updates the device pixel ratio. Changes smaller
// than 1e-4 are ignored, since hosts resend the same scale on every
// metrics event.
func (s *Surface) SetVisualScale(scale float32) {
	old := math.Float32frombits(s.scale.Load())
	if math.Abs(float64(scale-old)) < 1e-4 {
		return
	}
	s.scale.Store(math.Float32bits(scale))
	s.Invalidate()
}

// CopyToPixelBuffer copies the latest completed frame into the host
// buffer.
func (s *Surface) CopyToPixelBuffer(dst []byte, w, h, stride int32) bool {
	return s.factory.CopyToPixelBuffer(dst, w, h, stride)
}

// Destroy stops the render goroutine and releases the factory. It
// returns in bounded time even if the render goroutine is stuck in a
// driver call, in which case the factory teardown is skipped and the
// OS reclaims the resources at process exit.
func (s *Surface) Destroy() {
	s.destroyOnce.Do(func() {
		// silence notifications before teardown so the host never
		// sees a frame-ready for a dying surface
		s.notifier.SetSink(nil)
		close(s.quit)
		select {
		case <-s.done:
			s.factory.Destroy()
		case <-time.After(destroyTimeout):
			slog.Warn("mapsurface: render goroutine did not stop, leaking GPU resources to process exit")
		}
	})
}

// renderLoop owns the draw context. One frame per wakeup: apply any
// pending resize, let the engine draw, present, notify. The loop
// re-schedules itself while the engine animates or the keep-alive
// budget after startup is unspent.
func (s *Surface) renderLoop() {
	runtime.LockOSThread()
	defer close(s.done)

	ctx := s.factory.DrawContext()
	if ctx == nil {
		return
	}
	attached := false
	lastSize := surface.Extent{}
	lastScale := float32(0)

	for {
		select {
		case <-s.quit:
			if attached && ctx.MakeCurrent() {
				s.engine.Release()
				ctx.DoneCurrent()
			}
			return
		case <-s.redraw:
		}
		start := time.Now()

		if !ctx.MakeCurrent() {
			// transient bind failure: re-arm so the loop retries on
			// its own instead of stalling until the host pokes it
			time.Sleep(minFramePeriod)
			s.Invalidate()
			continue
		}
		if !attached {
			s.engine.Attach(s.factory, s.desc)
			attached = true
		}
		s.factory.ApplyPendingResizeIfAny()
		size := s.factory.RenderedExtent()
		if size.IsZero() {
			continue
		}
		if size != lastSize {
			s.engine.Resize(size)
			lastSize = size
		}
		if scale := math.Float32frombits(s.scale.Load()); scale != lastScale {
			s.engine.SetVisualScale(scale)
			lastScale = scale
		}

		ctx.SetFramebuffer(0)
		active := s.engine.Render(size)
		if ctx.Present() {
			s.notifier.FrameReady(active)
		}

		if s.notifier.KeepAliveTick() || active {
			s.Invalidate()
		}
		if d := minFramePeriod - time.Since(start); d > 0 {
			time.Sleep(d)
		}
	}
}
