// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

// Package egl is the offscreen rendering backend for hosts that
// composite CPU pixel buffers: frames render into a framebuffer
// object on a headless EGL context and are read back and staged for
// the host to copy. The default EGL display with a pbuffer surface is
// preferred; a surfaceless platform display is used only when the
// implementation advertises it.
package egl

import (
	"fmt"
	"strings"

	"github.com/ebitengine/purego"
)

// EGL constants, limited to what the backend calls.
const (
	DEFAULT_DISPLAY = 0
	NO_DISPLAY      = 0
	NO_CONTEXT      = 0
	NO_SURFACE      = 0
	NO_CONFIG       = 0

	TRUE  = 1
	FALSE = 0

	OPENGL_ES_API = 0x30A0

	SURFACE_TYPE    = 0x3033
	PBUFFER_BIT     = 0x0001
	RENDERABLE_TYPE = 0x3040
	OPENGL_ES2_BIT  = 0x0004
	RED_SIZE        = 0x3024
	GREEN_SIZE      = 0x3023
	BLUE_SIZE       = 0x3022
	ALPHA_SIZE      = 0x3021
	DEPTH_SIZE      = 0x3025
	STENCIL_SIZE    = 0x3026
	NONE            = 0x3038
	WIDTH           = 0x3057
	HEIGHT          = 0x3056

	CONTEXT_CLIENT_VERSION = 0x3098

	VENDOR     = 0x3053
	VERSION    = 0x3054
	EXTENSIONS = 0x3055

	PLATFORM_SURFACELESS_MESA = 0x31DD

	SUCCESS = 0x3000
)

// Lib is the loaded EGL library with the entry points the backend
// uses. GLES core functions are resolved separately through
// [Lib.GLProc].
type Lib struct {
	handle   uintptr
	glHandle uintptr

	GetError             func() int32
	GetDisplay           func(nativeDisplay uintptr) uintptr
	Initialize           func(dpy uintptr, major, minor *int32) uint32
	Terminate            func(dpy uintptr) uint32
	BindAPI              func(api uint32) uint32
	QueryString          func(dpy uintptr, name int32) string
	ChooseConfig         func(dpy uintptr, attribs *int32, configs *uintptr, configSize int32, numConfig *int32) uint32
	CreateContext        func(dpy, config, shareContext uintptr, attribs *int32) uintptr
	DestroyContext       func(dpy, ctx uintptr) uint32
	CreatePbufferSurface func(dpy, config uintptr, attribs *int32) uintptr
	DestroySurface       func(dpy, surf uintptr) uint32
	MakeCurrent          func(dpy, draw, read, ctx uintptr) uint32
	SwapBuffers          func(dpy, surf uintptr) uint32
	GetProcAddress       func(name string) uintptr

	// EGL_EXT_platform_base; nil when not exposed
	GetPlatformDisplayEXT func(platform uint32, nativeDisplay uintptr, attribs *int32) uintptr
}

var eglNames = []string{"libEGL.so.1", "libEGL.so"}
var glesNames = []string{"libGLESv2.so.2", "libGLESv2.so"}

// Load opens libEGL and libGLESv2 and resolves the table. It is
// called once per process by the factory.
func Load() (*Lib, error) {
	l := &Lib{}
	var err error
	l.handle, err = dlopenFirst(eglNames)
	if err != nil {
		return nil, err
	}
	l.glHandle, err = dlopenFirst(glesNames)
	if err != nil {
		return nil, err
	}

	purego.RegisterLibFunc(&l.GetError, l.handle, "eglGetError")
	purego.RegisterLibFunc(&l.GetDisplay, l.handle, "eglGetDisplay")
	purego.RegisterLibFunc(&l.Initialize, l.handle, "eglInitialize")
	purego.RegisterLibFunc(&l.Terminate, l.handle, "eglTerminate")
	purego.RegisterLibFunc(&l.BindAPI, l.handle, "eglBindAPI")
	purego.RegisterLibFunc(&l.QueryString, l.handle, "eglQueryString")
	purego.RegisterLibFunc(&l.ChooseConfig, l.handle, "eglChooseConfig")
	purego.RegisterLibFunc(&l.CreateContext, l.handle, "eglCreateContext")
	purego.RegisterLibFunc(&l.DestroyContext, l.handle, "eglDestroyContext")
	purego.RegisterLibFunc(&l.CreatePbufferSurface, l.handle, "eglCreatePbufferSurface")
	purego.RegisterLibFunc(&l.DestroySurface, l.handle, "eglDestroySurface")
	purego.RegisterLibFunc(&l.MakeCurrent, l.handle, "eglMakeCurrent")
	purego.RegisterLibFunc(&l.SwapBuffers, l.handle, "eglSwapBuffers")
	purego.RegisterLibFunc(&l.GetProcAddress, l.handle, "eglGetProcAddress")

	if addr, dlerr := purego.Dlsym(l.handle, "eglGetPlatformDisplayEXT"); dlerr == nil && addr != 0 {
		purego.RegisterFunc(&l.GetPlatformDisplayEXT, addr)
	}
	return l, nil
}

// GLProc resolves a GLES entry point, preferring the client library
// symbol over eglGetProcAddress, which some implementations reserve
// for extensions only.
func (l *Lib) GLProc(name string) uintptr {
	if addr, err := purego.Dlsym(l.glHandle, name); err == nil && addr != 0 {
		return addr
	}
	return l.GetProcAddress(name)
}

// ClientExtensions returns the display-less extension string, which
// is where platform extensions such as surfaceless are advertised.
func (l *Lib) ClientExtensions() string {
	return l.QueryString(NO_DISPLAY, EXTENSIONS)
}

// HasClientExtension reports whether the display-less extension
// string contains the given name.
func HasExtension(extensions, name string) bool {
	for _, e := range strings.Fields(extensions) {
		if e == name {
			return true
		}
	}
	return false
}

// Err wraps the current EGL error as a Go error for the given
// operation.
func (l *Lib) Err(op string) error {
	return fmt.Errorf("egl: %s failed: 0x%04x", op, l.GetError())
}

func dlopenFirst(names []string) (uintptr, error) {
	var lastErr error
	for _, n := range names {
		h, err := purego.Dlopen(n, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			return h, nil
		}
		lastErr = err
	}
	return 0, fmt.Errorf("egl: cannot load %v: %w", names, lastErr)
}
