// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package egl

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/agusmaps/mapsurface/base/errors"
	"github.com/agusmaps/mapsurface/driver/base"
	"github.com/agusmaps/mapsurface/gpu"
	"github.com/agusmaps/mapsurface/overlay"
	"github.com/agusmaps/mapsurface/surface"
)

// process-wide EGL library and display, refcounted across factories
// so that destroying one surface never terminates the display under
// another.
var (
	libOnce sync.Once
	lib     *Lib
	libErr  error

	dpyMu       sync.Mutex
	dpyHandle   uintptr
	dpyRefs     int
	surfaceless bool
)

func sharedLib() (*Lib, error) {
	libOnce.Do(func() { lib, libErr = Load() })
	return lib, libErr
}

// acquireDisplay initializes the default display, falling back to the
// surfaceless platform only when the client advertises it.
func acquireDisplay(l *Lib) (uintptr, bool, error) {
	dpyMu.Lock()
	defer dpyMu.Unlock()
	if dpyRefs > 0 {
		dpyRefs++
		return dpyHandle, surfaceless, nil
	}
	var major, minor int32
	dpy := l.GetDisplay(DEFAULT_DISPLAY)
	if dpy != NO_DISPLAY && l.Initialize(dpy, &major, &minor) == TRUE {
		slog.Info("egl: initialized default display", "version", fmt.Sprintf("%d.%d", major, minor))
		dpyHandle, surfaceless, dpyRefs = dpy, false, 1
		return dpy, false, nil
	}
	exts := l.ClientExtensions()
	if l.GetPlatformDisplayEXT == nil || !HasExtension(exts, "EGL_MESA_platform_surfaceless") {
		return NO_DISPLAY, false, errors.New("egl: no default display and no surfaceless platform")
	}
	dpy = l.GetPlatformDisplayEXT(PLATFORM_SURFACELESS_MESA, DEFAULT_DISPLAY, nil)
	if dpy == NO_DISPLAY || l.Initialize(dpy, &major, &minor) != TRUE {
		return NO_DISPLAY, false, l.Err("eglInitialize(surfaceless)")
	}
	slog.Info("egl: initialized surfaceless display", "version", fmt.Sprintf("%d.%d", major, minor))
	dpyHandle, surfaceless, dpyRefs = dpy, true, 1
	return dpy, true, nil
}

func releaseDisplay(l *Lib) {
	dpyMu.Lock()
	defer dpyMu.Unlock()
	if dpyRefs == 0 {
		return
	}
	dpyRefs--
	if dpyRefs == 0 {
		l.Terminate(dpyHandle)
		dpyHandle = NO_DISPLAY
	}
}

// Factory is the offscreen EGL implementation of [surface.Factory].
// Frames render into a framebuffer object; the pbuffer (or no
// surface, on surfaceless displays) exists only to make the context
// current. Completed frames are read back and staged for the host.
type Factory struct {
	opts surface.Options
	life surface.Lifecycle

	egl    *Lib
	dpy    uintptr
	config uintptr
	tier   ConfigTier
	noSurf bool

	mu     sync.Mutex
	draw   *Context
	upload *Context

	gl  *gpu.Functions
	fb  gpu.Framebuffer
	mat base.Materializer

	pending  base.PendingResize
	staging  base.StagingBuffer
	rendered atomic.Uint64
	reqSize  atomic.Uint64

	overlay overlay.Overlay
	comp    overlay.Compositor
	scratch []byte

	renderer string
}

// NewFactory creates a factory for a surface of the given initial
// size. No context is made current here; GPU objects materialize on
// the render goroutine at the first draw.
func NewFactory(desc surface.Descriptor, opts surface.Options) (*Factory, error) {
	l, err := sharedLib()
	if err != nil {
		return nil, err
	}
	dpy, noSurf, err := acquireDisplay(l)
	if err != nil {
		return nil, err
	}
	if l.BindAPI(OPENGL_ES_API) != TRUE {
		releaseDisplay(l)
		return nil, l.Err("eglBindAPI")
	}
	config, tier, ok := chooseConfig(l, dpy)
	if !ok {
		releaseDisplay(l)
		return nil, errors.New("egl: no config accepted at any depth/stencil tier")
	}
	f := &Factory{
		opts:   opts,
		egl:    l,
		dpy:    dpy,
		config: config,
		tier:   tier,
		noSurf: noSurf,
	}
	f.pending.Request(desc.Width, desc.Height)
	f.storeSize(&f.reqSize, surface.Extent{Width: desc.Width, Height: desc.Height})
	return f, nil
}

// Context is one EGL context of a [Factory].
type Context struct {
	f      *Factory
	ctx    uintptr
	surf   uintptr
	isDraw bool
}

// DrawContext returns the rendering context, creating it on first
// call.
func (f *Factory) DrawContext() surface.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.life.State() == surface.Destroyed {
		return nil
	}
	if err := f.ensureDrawLocked(); err != nil {
		errors.Log(err)
		return nil
	}
	return f.draw
}

// UploadContext returns the resource upload context, which shares
// object namespaces with the draw context, creating both on first
// call if needed.
func (f *Factory) UploadContext() surface.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.life.State() == surface.Destroyed {
		return nil
	}
	if err := f.ensureDrawLocked(); err != nil {
		errors.Log(err)
		return nil
	}
	if f.upload == nil {
		ctx, surf, err := f.createContextLocked(f.draw.ctx)
		if err != nil {
			errors.Log(err)
			return nil
		}
		f.upload = &Context{f: f, ctx: ctx, surf: surf}
	}
	return f.upload
}

// IsDrawContextCreated reports whether the draw context exists.
func (f *Factory) IsDrawContextCreated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draw != nil
}

// IsUploadContextCreated reports whether the upload context exists.
func (f *Factory) IsUploadContextCreated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upload != nil
}

func (f *Factory) ensureDrawLocked() error {
	if f.draw != nil {
		return nil
	}
	ctx, surf, err := f.createContextLocked(NO_CONTEXT)
	if err != nil {
		return err
	}
	f.draw = &Context{f: f, ctx: ctx, surf: surf, isDraw: true}
	return nil
}

func (f *Factory) createContextLocked(share uintptr) (ctx, surf uintptr, err error) {
	ctxAttribs := []int32{CONTEXT_CLIENT_VERSION, 2, NONE}
	ctx = f.egl.CreateContext(f.dpy, f.config, share, &ctxAttribs[0])
	if ctx == NO_CONTEXT {
		return 0, 0, f.egl.Err("eglCreateContext")
	}
	if f.noSurf {
		return ctx, NO_SURFACE, nil
	}
	// a 1x1 pbuffer: rendering goes to the framebuffer object, the
	// surface only carries the MakeCurrent
	surfAttribs := []int32{WIDTH, 1, HEIGHT, 1, NONE}
	surf = f.egl.CreatePbufferSurface(f.dpy, f.config, &surfAttribs[0])
	if surf == NO_SURFACE {
		f.egl.DestroyContext(f.dpy, ctx)
		return 0, 0, f.egl.Err("eglCreatePbufferSurface")
	}
	return ctx, surf, nil
}

// MakeCurrent binds the context. On the draw context the first
// successful bind also materializes the GL function table and the
// framebuffer, which is deliberately deferred off the factory
// constructor so that creating a surface never steals the host's
// current context.
func (c *Context) MakeCurrent() bool {
	f := c.f
	if f.life.State() == surface.Destroyed {
		return false
	}
	if f.egl.MakeCurrent(f.dpy, c.surf, c.surf, c.ctx) != TRUE {
		errors.Log(f.egl.Err("eglMakeCurrent"))
		return false
	}
	if c.isDraw {
		if err := f.materialize(); err != nil {
			errors.Log(err)
			return false
		}
	}
	return true
}

// DoneCurrent unbinds any context from the calling goroutine.
func (c *Context) DoneCurrent() {
	c.f.egl.MakeCurrent(c.f.dpy, NO_SURFACE, NO_SURFACE, NO_CONTEXT)
}

// SetFramebuffer binds the engine's requested framebuffer; 0 selects
// the offscreen framebuffer object.
func (c *Context) SetFramebuffer(fb uint32) {
	f := c.f
	if f.gl == nil {
		return
	}
	if fb == 0 {
		f.fb.Bind()
		return
	}
	f.gl.BindFramebuffer(gpu.FRAMEBUFFER, fb)
}

// Present completes the frame: applies a pending resize, composites
// the overlay, reads the pixels back, and stages them for the host.
// On the upload context it just flushes.
func (c *Context) Present() bool {
	if !c.isDraw {
		if c.f.gl != nil {
			c.f.gl.Flush()
		}
		return false
	}
	return c.f.present()
}

func (f *Factory) materialize() error {
	return f.mat.Do(func() error {
		f.life.Transition(surface.Uninitialized, surface.Initializing)
		gl, err := gpu.Load(f.egl.GLProc)
		if err != nil {
			return err
		}
		f.gl = gl
		size, ok := f.pending.Take()
		if !ok {
			size = f.loadSize(&f.reqSize)
		}
		if err := f.fb.Create(gl, size.Width, size.Height); err != nil {
			return err
		}
		f.storeSize(&f.rendered, f.fb.Size)
		f.renderer = gpu.GoString(gl.GetString(gpu.RENDERER))
		slog.Info("egl: materialized", "renderer", f.renderer,
			"size", f.fb.Size, "depth", f.tier.Depth, "stencil", f.tier.Stencil,
			"surfaceless", f.noSurf)
		f.updateStatus()
		f.life.Transition(surface.Initializing, surface.Ready)
		return nil
	})
}

func (f *Factory) present() bool {
	if f.life.State() != surface.Ready {
		return false
	}
	ext := f.fb.Size
	if ext.IsZero() {
		return false
	}
	if f.opts.Overlay {
		f.fb.Bind()
		f.comp.Draw(f.gl, &f.overlay, ext.Width, ext.Height)
	}
	need := int(ext.Width) * int(ext.Height) * 4
	if cap(f.scratch) < need {
		f.scratch = make([]byte, need)
	}
	if err := f.fb.ReadPixels(f.scratch[:need]); err != nil {
		errors.Log(err)
		return false
	}
	f.staging.Publish(f.scratch[:need], ext.Width, ext.Height)
	return true
}

// ApplyPendingResizeIfAny drains the resize slot on the render
// goroutine. This is the only place attachment storage changes, and
// the rendered extent is updated only after the re-attach, so the
// host never copies a frame at a size the attachments do not have.
func (f *Factory) ApplyPendingResizeIfAny() {
	if f.life.State() != surface.Ready {
		return
	}
	size, ok := f.pending.Take()
	if !ok {
		return
	}
	f.fb.Resize(size.Width, size.Height)
	f.storeSize(&f.rendered, f.fb.Size)
	f.updateStatus()
}

// RequestResize records the new size; applied on the render
// goroutine at the next present.
func (f *Factory) RequestResize(w, h int32) {
	if f.life.State() == surface.Destroyed {
		return
	}
	f.storeSize(&f.reqSize, surface.Extent{Width: w, Height: h})
	f.pending.Request(w, h)
}

// RenderedExtent returns the size of the last completed frame.
func (f *Factory) RenderedExtent() surface.Extent {
	return f.loadSize(&f.rendered)
}

// CopyToPixelBuffer copies the staged frame into the host buffer.
func (f *Factory) CopyToPixelBuffer(dst []byte, w, h, stride int32) bool {
	return f.staging.CopyTo(dst, w, h, stride)
}

// SetOverlayLines installs application diagnostic lines.
func (f *Factory) SetOverlayLines(lines []string) {
	f.overlay.SetCustom(lines)
}

// Destroy releases the contexts and display reference. The caller
// must have stopped the render goroutine; no context may be current
// on another thread. Destroying the contexts releases every GL object
// in their share group, so no per-object cleanup is needed.
func (f *Factory) Destroy() {
	if !f.life.Destroy() {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.egl.MakeCurrent(f.dpy, NO_SURFACE, NO_SURFACE, NO_CONTEXT)
	for _, c := range []*Context{f.upload, f.draw} {
		if c == nil {
			continue
		}
		f.egl.DestroyContext(f.dpy, c.ctx)
		if c.surf != NO_SURFACE {
			f.egl.DestroySurface(f.dpy, c.surf)
		}
	}
	f.draw, f.upload = nil, nil
	releaseDisplay(f.egl)
	slog.Info("egl: destroyed")
}

func (f *Factory) updateStatus() {
	if !f.opts.Overlay {
		return
	}
	req := f.loadSize(&f.reqSize)
	ren := f.loadSize(&f.rendered)
	f.overlay.SetStatus(
		"Renderer: "+f.renderer,
		"Transfer: CPU copy (glReadPixels)",
		"Surface: "+req.String(),
		"Rendered: "+ren.String(),
	)
}

func (f *Factory) storeSize(a *atomic.Uint64, e surface.Extent) {
	a.Store(uint64(uint32(e.Width))<<32 | uint64(uint32(e.Height)))
}

func (f *Factory) loadSize(a *atomic.Uint64) surface.Extent {
	v := a.Load()
	return surface.Extent{Width: int32(uint32(v >> 32)), Height: int32(uint32(v))}
}
