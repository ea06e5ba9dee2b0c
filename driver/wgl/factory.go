// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build windows

package wgl

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/agusmaps/mapsurface/base/errors"
	"github.com/agusmaps/mapsurface/driver/base"
	"github.com/agusmaps/mapsurface/gpu"
	"github.com/agusmaps/mapsurface/overlay"
	"github.com/agusmaps/mapsurface/surface"
	"github.com/go-gl/glfw/v3.3/glfw"
)

var (
	glfwOnce sync.Once
	glfwErr  error
)

func initGLFW() error {
	glfwOnce.Do(func() { glfwErr = glfw.Init() })
	return glfwErr
}

// Factory is the Windows implementation of [surface.Factory]. Frames
// render into a framebuffer object on a hidden-window WGL context and
// reach the host through a shared D3D11 texture: blitted directly via
// NV_DX_interop when the driver exposes it, read back and uploaded on
// the CPU otherwise. The host opens the texture with [Factory.SharedHandle].
type Factory struct {
	opts surface.Options
	life surface.Lifecycle

	mu        sync.Mutex
	drawWin   *glfw.Window
	uploadWin *glfw.Window
	draw      *Context
	upload    *Context

	gl  *gpu.Functions
	fb  gpu.Framebuffer
	mat base.Materializer

	pending  base.PendingResize
	staging  base.StagingBuffer
	rendered atomic.Uint64
	reqSize  atomic.Uint64

	overlay overlay.Overlay
	comp    overlay.Compositor

	scratch    []byte
	hostPixels []byte

	dev       *d3dDevice
	sharedTex uintptr
	shared    atomic.Uintptr
	km        *keyedMutex
	it        *interop

	renderer string
}

// NewFactory creates the hidden windows and nothing else: no context
// is made current and no D3D device exists until the first draw on
// the render goroutine.
func NewFactory(desc surface.Descriptor, opts surface.Options) (*Factory, error) {
	if err := initGLFW(); err != nil {
		return nil, errors.Wrap(err, "wgl: glfw init")
	}
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	drawWin, err := glfw.CreateWindow(16, 16, "mapsurface-draw", nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "wgl: hidden draw window")
	}
	uploadWin, err := glfw.CreateWindow(16, 16, "mapsurface-upload", nil, drawWin)
	if err != nil {
		drawWin.Destroy()
		return nil, errors.Wrap(err, "wgl: hidden upload window")
	}
	f := &Factory{opts: opts, drawWin: drawWin, uploadWin: uploadWin}
	f.staging.SwizzleBGRA = true
	f.pending.Request(desc.Width, desc.Height)
	f.storeSize(&f.reqSize, surface.Extent{Width: desc.Width, Height: desc.Height})
	return f, nil
}

// Context is one WGL context of a [Factory].
type Context struct {
	f      *Factory
	win    *glfw.Window
	isDraw bool
}

// DrawContext returns the rendering context.
func (f *Factory) DrawContext() surface.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.life.State() == surface.Destroyed {
		return nil
	}
	if f.draw == nil {
		f.draw = &Context{f: f, win: f.drawWin, isDraw: true}
	}
	return f.draw
}

// UploadContext returns the resource upload context, sharing objects
// with the draw context.
func (f *Factory) UploadContext() surface.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.life.State() == surface.Destroyed {
		return nil
	}
	if f.upload == nil {
		f.upload = &Context{f: f, win: f.uploadWin}
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

// MakeCurrent binds the context; the first bind of the draw context
// materializes the GL table, framebuffer, D3D device, shared texture,
// and interop bridge.
func (c *Context) MakeCurrent() bool {
	f := c.f
	if f.life.State() == surface.Destroyed {
		return false
	}
	c.win.MakeContextCurrent()
	if c.isDraw {
		if err := f.materialize(); err != nil {
			errors.Log(err)
			return false
		}
	}
	return true
}

// DoneCurrent detaches any context from the calling goroutine.
func (c *Context) DoneCurrent() {
	glfw.DetachCurrentContext()
}

// SetFramebuffer binds the requested framebuffer; 0 selects the
// offscreen framebuffer object.
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

// Present completes the frame and transfers it into the shared
// texture. On the upload context it just flushes.
func (c *Context) Present() bool {
	if !c.isDraw {
		if c.f.gl != nil {
			c.f.gl.Flush()
		}
		return false
	}
	return c.f.present()
}

func glfwProc(name string) uintptr {
	return uintptr(glfw.GetProcAddress(name))
}

func (f *Factory) materialize() error {
	return f.mat.Do(func() error {
		f.life.Transition(surface.Uninitialized, surface.Initializing)
		gl, err := gpu.Load(glfwProc)
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

		dev, err := newD3DDevice(f.renderer)
		if err != nil {
			return err
		}
		f.dev = dev
		if err := f.createSharedTexture(f.fb.Size); err != nil {
			return err
		}
		f.it = openInterop(gl, glfwProc, dev.device, f.sharedTex)
		slog.Info("wgl: materialized", "renderer", f.renderer, "size", f.fb.Size,
			"zeroCopy", f.it != nil, "keyedMutex", f.km != nil)
		f.updateStatus()
		f.life.Transition(surface.Initializing, surface.Ready)
		return nil
	})
}

func (f *Factory) createSharedTexture(size surface.Extent) error {
	misc := uint32(d3d11ResourceMiscShared)
	if f.opts.KeyedMutex {
		misc = d3d11ResourceMiscSharedKeyedMutex
	}
	desc := d3d11Texture2DDesc{
		Width:      uint32(size.Width),
		Height:     uint32(size.Height),
		MipLevels:  1,
		ArraySize:  1,
		Format:     dxgiFormatB8G8R8A8Unorm,
		SampleDesc: dxgiSampleDesc{Count: 1},
		Usage:      d3d11UsageDefault,
		BindFlags:  d3d11BindRenderTarget | d3d11BindShaderResource,
		MiscFlags:  misc,
	}
	tex, err := f.dev.createTexture2D(&desc)
	if err != nil {
		return err
	}
	h, err := sharedHandle(tex)
	if err != nil {
		comRelease(tex)
		return err
	}
	f.sharedTex = tex
	f.shared.Store(h)
	if f.opts.KeyedMutex {
		km, err := newKeyedMutex(tex)
		if err != nil {
			// fall back to unsynchronized sharing rather than fail
			errors.Log(err)
		}
		f.km = km
	}
	return nil
}

func (f *Factory) releaseSharedTexture() {
	if f.it != nil {
		f.it.close()
		f.it = nil
	}
	if f.km != nil {
		f.km.close()
		f.km = nil
	}
	if f.sharedTex != 0 {
		comRelease(f.sharedTex)
		f.sharedTex = 0
	}
	f.shared.Store(0)
}

func (f *Factory) present() bool {
	if f.life.State() != surface.Ready {
		return false
	}
	ext := f.fb.Size
	if ext.IsZero() || f.sharedTex == 0 {
		return false
	}
	if f.opts.Overlay {
		f.fb.Bind()
		f.comp.Draw(f.gl, &f.overlay, ext.Width, ext.Height)
	}
	if f.it != nil {
		return f.presentZeroCopy(ext)
	}
	return f.presentCPU(ext)
}

func (f *Factory) presentZeroCopy(ext surface.Extent) bool {
	f.gl.Finish()
	if f.km != nil && !f.km.acquire() {
		// host still holds the texture; drop this frame
		return false
	}
	ok := f.it.blit(f.fb.FBO(), ext.Width, ext.Height)
	if f.km != nil {
		f.km.release()
	}
	return ok
}

func (f *Factory) presentCPU(ext surface.Extent) bool {
	need := int(ext.Width) * int(ext.Height) * 4
	if cap(f.scratch) < need {
		f.scratch = make([]byte, need)
	}
	if err := f.fb.ReadPixels(f.scratch[:need]); err != nil {
		errors.Log(err)
		return false
	}
	f.staging.Publish(f.scratch[:need], ext.Width, ext.Height)

	if cap(f.hostPixels) < need {
		f.hostPixels = make([]byte, need)
	}
	if !f.staging.CopyTo(f.hostPixels[:need], ext.Width, ext.Height, ext.Width*4) {
		return false
	}
	if f.km != nil && !f.km.acquire() {
		return false
	}
	f.dev.updateSubresource(f.sharedTex, f.hostPixels[:need], uint32(ext.Width)*4)
	if f.km != nil {
		f.km.release()
	}
	f.dev.flush()
	return true
}

// ApplyPendingResizeIfAny resizes the framebuffer and recreates the
// shared texture at the new size on the render goroutine. The shared
// handle changes; hosts re-query it after every resize.
func (f *Factory) ApplyPendingResizeIfAny() {
	if f.life.State() != surface.Ready {
		return
	}
	size, ok := f.pending.Take()
	if !ok {
		return
	}
	f.fb.Resize(size.Width, size.Height)
	f.releaseSharedTexture()
	if err := f.createSharedTexture(f.fb.Size); err != nil {
		errors.Log(err)
	} else {
		f.it = openInterop(f.gl, glfwProc, f.dev.device, f.sharedTex)
	}
	f.storeSize(&f.rendered, f.fb.Size)
	f.updateStatus()
}

// RequestResize records the new size; applied at the next present.
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

// SharedHandle returns the DXGI shared handle of the current shared
// texture, or 0 before materialization. It changes after a resize.
func (f *Factory) SharedHandle() uintptr {
	return f.shared.Load()
}

// CopyToPixelBuffer copies the staged CPU frame into the host buffer,
// in BGRA order. On the zero-copy path no CPU frame is staged and it
// reports false; the host reads the shared texture instead.
func (f *Factory) CopyToPixelBuffer(dst []byte, w, h, stride int32) bool {
	return f.staging.CopyTo(dst, w, h, stride)
}

// SetOverlayLines installs application diagnostic lines.
func (f *Factory) SetOverlayLines(lines []string) {
	f.overlay.SetCustom(lines)
}

// Destroy releases the contexts, interop bridge, D3D objects, and
// hidden windows. The caller must have stopped the render goroutine.
func (f *Factory) Destroy() {
	if !f.life.Destroy() {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.it != nil {
		// interop teardown needs the GL context current
		f.drawWin.MakeContextCurrent()
		f.it.close()
		f.it = nil
		glfw.DetachCurrentContext()
	}
	if f.km != nil {
		f.km.close()
		f.km = nil
	}
	if f.sharedTex != 0 {
		comRelease(f.sharedTex)
		f.sharedTex = 0
	}
	f.shared.Store(0)
	if f.dev != nil {
		f.dev.release()
		f.dev = nil
	}
	f.uploadWin.Destroy()
	f.drawWin.Destroy()
	f.draw, f.upload = nil, nil
	slog.Info("wgl: destroyed")
}

func (f *Factory) updateStatus() {
	if !f.opts.Overlay {
		return
	}
	transfer := "Transfer: CPU copy (glReadPixels)"
	if f.it != nil {
		transfer = "Transfer: Zero-copy (WGL_NV_DX_interop)"
	}
	km := "Keyed mutex: Off"
	if f.km != nil {
		km = "Keyed mutex: On"
	}
	req := f.loadSize(&f.reqSize)
	ren := f.loadSize(&f.rendered)
	f.overlay.SetStatus(
		"Renderer: "+f.renderer,
		transfer,
		"Surface: "+req.String(),
		"Rendered: "+ren.String(),
		km,
	)
}

func (f *Factory) storeSize(a *atomic.Uint64, e surface.Extent) {
	a.Store(uint64(uint32(e.Width))<<32 | uint64(uint32(e.Height)))
}

func (f *Factory) loadSize(a *atomic.Uint64) surface.Extent {
	v := a.Load()
	return surface.Extent{Width: int32(uint32(v >> 32)), Height: int32(uint32(v))}
}
