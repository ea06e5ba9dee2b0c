// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build windows

package wgl

import (
	"github.com/agusmaps/mapsurface/base/errors"
	"github.com/agusmaps/mapsurface/gpu"
	"github.com/ebitengine/purego"
)

// NV_DX_interop access and object-type constants.
const (
	wglAccessReadWriteNV    = 0x0001
	wglAccessWriteDiscardNV = 0x0002
)

// interopFns is the WGL_NV_DX_interop entry-point table, resolved
// through the context's proc resolver once the GL context is current.
type interopFns struct {
	OpenDevice       func(dxDevice uintptr) uintptr
	CloseDevice      func(hDevice uintptr) int32
	RegisterObject   func(hDevice, dxObject uintptr, name uint32, typ uint32, access uint32) uintptr
	UnregisterObject func(hDevice, hObject uintptr) int32
	LockObjects      func(hDevice uintptr, count int32, hObjects *uintptr) int32
	UnlockObjects    func(hDevice uintptr, count int32, hObjects *uintptr) int32
}

func loadInterop(getProc gpu.ProcResolver) *interopFns {
	f := &interopFns{}
	ok := true
	bind := func(fptr any, name string) {
		addr := getProc(name)
		if addr == 0 {
			ok = false
			return
		}
		purego.RegisterFunc(fptr, addr)
	}
	bind(&f.OpenDevice, "wglDXOpenDeviceNV")
	bind(&f.CloseDevice, "wglDXCloseDeviceNV")
	bind(&f.RegisterObject, "wglDXRegisterObjectNV")
	bind(&f.UnregisterObject, "wglDXUnregisterObjectNV")
	bind(&f.LockObjects, "wglDXLockObjectsNV")
	bind(&f.UnlockObjects, "wglDXUnlockObjectsNV")
	if !ok {
		return nil
	}
	return f
}

// interop is an open NV_DX_interop bridge: the shared D3D texture
// registered as a GL texture, plus a framebuffer wrapping it as the
// blit destination.
type interop struct {
	fns     *interopFns
	gl      *gpu.Functions
	hDevice uintptr
	hObject uintptr
	glTex   uint32
	blitFBO uint32
	isRB    bool // registered as renderbuffer, not texture
}

// openInterop registers the shared texture with the GL context. The
// texture target is tried first; drivers that refuse it get the
// renderbuffer target as a fallback. A nil return means the driver
// cannot interop and the caller must use the CPU path.
func openInterop(gl *gpu.Functions, getProc gpu.ProcResolver, dxDevice, dxTexture uintptr) *interop {
	fns := loadInterop(getProc)
	if fns == nil {
		return nil
	}
	hDev := fns.OpenDevice(dxDevice)
	if hDev == 0 {
		return nil
	}
	it := &interop{fns: fns, gl: gl, hDevice: hDev}

	gl.GenTextures(1, &it.glTex)
	it.hObject = fns.RegisterObject(hDev, dxTexture, it.glTex, gpu.TEXTURE_2D, wglAccessWriteDiscardNV)
	if it.hObject == 0 {
		gl.DeleteTextures(1, &it.glTex)
		it.glTex = 0
		var rb uint32
		gl.GenRenderbuffers(1, &rb)
		it.hObject = fns.RegisterObject(hDev, dxTexture, rb, gpu.RENDERBUFFER, wglAccessWriteDiscardNV)
		if it.hObject == 0 {
			gl.DeleteRenderbuffers(1, &rb)
			fns.CloseDevice(hDev)
			return nil
		}
		it.glTex = rb
		it.isRB = true
	}

	gl.GenFramebuffers(1, &it.blitFBO)
	gl.BindFramebuffer(gpu.FRAMEBUFFER, it.blitFBO)
	if it.isRB {
		gl.FramebufferRenderbuffer(gpu.FRAMEBUFFER, gpu.COLOR_ATTACHMENT0, gpu.RENDERBUFFER, it.glTex)
	} else {
		gl.FramebufferTexture2D(gpu.FRAMEBUFFER, gpu.COLOR_ATTACHMENT0, gpu.TEXTURE_2D, it.glTex, 0)
	}
	gl.BindFramebuffer(gpu.FRAMEBUFFER, 0)
	return it
}

// blit copies the rendered framebuffer into the shared texture with
// the vertical flip D3D consumers expect, inside a lock/unlock pair.
// It reports whether the frame landed in the texture.
func (it *interop) blit(srcFBO uint32, w, h int32) bool {
	if it.gl.BlitFramebuffer == nil {
		return false
	}
	if it.fns.LockObjects(it.hDevice, 1, &it.hObject) == 0 {
		errors.Log(errors.New("wgl: wglDXLockObjectsNV failed"))
		return false
	}
	gl := it.gl
	gl.BindFramebuffer(gpu.READ_FRAMEBUFFER, srcFBO)
	gl.BindFramebuffer(gpu.DRAW_FRAMEBUFFER, it.blitFBO)
	gl.Disable(gpu.SCISSOR_TEST)
	gl.BlitFramebuffer(0, h, w, 0, 0, 0, w, h, gpu.COLOR_BUFFER_BIT, gpu.NEAREST)
	gl.Enable(gpu.SCISSOR_TEST)
	gl.BindFramebuffer(gpu.FRAMEBUFFER, 0)
	it.fns.UnlockObjects(it.hDevice, 1, &it.hObject)
	gl.Flush()
	return true
}

// close unregisters the object and closes the interop device. Must
// run with the GL context current.
func (it *interop) close() {
	if it.hObject != 0 {
		it.fns.UnregisterObject(it.hDevice, it.hObject)
		it.hObject = 0
	}
	if it.blitFBO != 0 {
		it.gl.DeleteFramebuffers(1, &it.blitFBO)
		it.blitFBO = 0
	}
	if it.glTex != 0 {
		if it.isRB {
			it.gl.DeleteRenderbuffers(1, &it.glTex)
		} else {
			it.gl.DeleteTextures(1, &it.glTex)
		}
		it.glTex = 0
	}
	if it.hDevice != 0 {
		it.fns.CloseDevice(it.hDevice)
		it.hDevice = 0
	}
}
