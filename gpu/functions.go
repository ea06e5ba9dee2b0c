// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"
)

// Functions is the GL ES function table. Fields are plain func values
// so that tests can install fakes; Load fills them from a real context
// through a proc-address resolver. Functions tagged optional may be
// nil on contexts that do not expose them.
type Functions struct {
	GetError    func() uint32
	GetString   func(name uint32) *byte
	GetIntegerv func(pname uint32, data *int32)
	Finish      func()
	Flush       func()

	Viewport   func(x, y, w, h int32)
	Scissor    func(x, y, w, h int32)
	Enable     func(capability uint32)
	Disable    func(capability uint32)
	ClearColor func(r, g, b, a float32)
	Clear      func(mask uint32)

	GenTextures    func(n int32, textures *uint32)
	DeleteTextures func(n int32, textures *uint32)
	BindTexture    func(target, texture uint32)
	ActiveTexture  func(texture uint32)
	TexParameteri  func(target, pname uint32, param int32)
	TexImage2D     func(target uint32, level, internalFormat, width, height, border int32, format, typ uint32, pixels unsafe.Pointer)
	TexSubImage2D  func(target uint32, level, xoffset, yoffset, width, height int32, format, typ uint32, pixels unsafe.Pointer)
	PixelStorei    func(pname uint32, param int32)
	ReadPixels     func(x, y, width, height int32, format, typ uint32, pixels unsafe.Pointer)

	GenRenderbuffers    func(n int32, renderbuffers *uint32)
	DeleteRenderbuffers func(n int32, renderbuffers *uint32)
	BindRenderbuffer    func(target, renderbuffer uint32)
	RenderbufferStorage func(target, internalFormat uint32, width, height int32)

	GenFramebuffers         func(n int32, framebuffers *uint32)
	DeleteFramebuffers      func(n int32, framebuffers *uint32)
	BindFramebuffer         func(target, framebuffer uint32)
	FramebufferTexture2D    func(target, attachment, textarget, texture uint32, level int32)
	FramebufferRenderbuffer func(target, attachment, rbtarget, renderbuffer uint32)
	CheckFramebufferStatus  func(target uint32) uint32

	CreateShader  func(typ uint32) uint32
	DeleteShader  func(shader uint32)
	ShaderSource  func(shader uint32, count int32, source **byte, length *int32)
	CompileShader func(shader uint32)
	GetShaderiv   func(shader, pname uint32, params *int32)
	CreateProgram func() uint32
	DeleteProgram func(program uint32)
	AttachShader  func(program, shader uint32)
	LinkProgram   func(program uint32)
	GetProgramiv  func(program, pname uint32, params *int32)
	UseProgram    func(program uint32)

	GetAttribLocation        func(program uint32, name *byte) int32
	GetUniformLocation       func(program uint32, name *byte) int32
	Uniform1i                func(location, v int32)
	EnableVertexAttribArray  func(index uint32)
	DisableVertexAttribArray func(index uint32)
	VertexAttribPointer      func(index uint32, size int32, typ uint32, normalized uint8, stride int32, pointer unsafe.Pointer)
	BlendFunc                func(sfactor, dfactor uint32)
	DrawArrays               func(mode uint32, first, count int32)

	GenBuffers    func(n int32, buffers *uint32)
	DeleteBuffers func(n int32, buffers *uint32)
	BindBuffer    func(target, buffer uint32)
	BufferData    func(target uint32, size uintptr, data unsafe.Pointer, usage uint32)

	// optional; nil on contexts without framebuffer blit support
	BlitFramebuffer func(srcX0, srcY0, srcX1, srcY1, dstX0, dstY0, dstX1, dstY1 int32, mask, filter uint32)
}

// ProcResolver returns the address of a named GL entry point, or 0
// if the context does not provide it.
type ProcResolver func(name string) uintptr

// Load resolves every function in the table through getProc. It
// returns an error naming the first required entry point that could
// not be resolved.
func Load(getProc ProcResolver) (*Functions, error) {
	f := &Functions{}
	var missing string
	req := func(fptr any, name string) {
		addr := getProc(name)
		if addr == 0 {
			if missing == "" {
				missing = name
			}
			return
		}
		purego.RegisterFunc(fptr, addr)
	}
	opt := func(fptr any, name string) {
		if addr := getProc(name); addr != 0 {
			purego.RegisterFunc(fptr, addr)
		}
	}

	req(&f.GetError, "glGetError")
	req(&f.GetString, "glGetString")
	req(&f.GetIntegerv, "glGetIntegerv")
	req(&f.Finish, "glFinish")
	req(&f.Flush, "glFlush")
	req(&f.Viewport, "glViewport")
	req(&f.Scissor, "glScissor")
	req(&f.Enable, "glEnable")
	req(&f.Disable, "glDisable")
	req(&f.ClearColor, "glClearColor")
	req(&f.Clear, "glClear")
	req(&f.GenTextures, "glGenTextures")
	req(&f.DeleteTextures, "glDeleteTextures")
	req(&f.BindTexture, "glBindTexture")
	req(&f.ActiveTexture, "glActiveTexture")
	req(&f.TexParameteri, "glTexParameteri")
	req(&f.TexImage2D, "glTexImage2D")
	req(&f.TexSubImage2D, "glTexSubImage2D")
	req(&f.PixelStorei, "glPixelStorei")
	req(&f.ReadPixels, "glReadPixels")
	req(&f.GenRenderbuffers, "glGenRenderbuffers")
	req(&f.DeleteRenderbuffers, "glDeleteRenderbuffers")
	req(&f.BindRenderbuffer, "glBindRenderbuffer")
	req(&f.RenderbufferStorage, "glRenderbufferStorage")
	req(&f.GenFramebuffers, "glGenFramebuffers")
	req(&f.DeleteFramebuffers, "glDeleteFramebuffers")
	req(&f.BindFramebuffer, "glBindFramebuffer")
	req(&f.FramebufferTexture2D, "glFramebufferTexture2D")
	req(&f.FramebufferRenderbuffer, "glFramebufferRenderbuffer")
	req(&f.CheckFramebufferStatus, "glCheckFramebufferStatus")
	req(&f.CreateShader, "glCreateShader")
	req(&f.DeleteShader, "glDeleteShader")
	req(&f.ShaderSource, "glShaderSource")
	req(&f.CompileShader, "glCompileShader")
	req(&f.GetShaderiv, "glGetShaderiv")
	req(&f.CreateProgram, "glCreateProgram")
	req(&f.DeleteProgram, "glDeleteProgram")
	req(&f.AttachShader, "glAttachShader")
	req(&f.LinkProgram, "glLinkProgram")
	req(&f.GetProgramiv, "glGetProgramiv")
	req(&f.UseProgram, "glUseProgram")
	req(&f.GetAttribLocation, "glGetAttribLocation")
	req(&f.GetUniformLocation, "glGetUniformLocation")
	req(&f.Uniform1i, "glUniform1i")
	req(&f.EnableVertexAttribArray, "glEnableVertexAttribArray")
	req(&f.DisableVertexAttribArray, "glDisableVertexAttribArray")
	req(&f.VertexAttribPointer, "glVertexAttribPointer")
	req(&f.BlendFunc, "glBlendFunc")
	req(&f.DrawArrays, "glDrawArrays")
	req(&f.GenBuffers, "glGenBuffers")
	req(&f.DeleteBuffers, "glDeleteBuffers")
	req(&f.BindBuffer, "glBindBuffer")
	req(&f.BufferData, "glBufferData")
	opt(&f.BlitFramebuffer, "glBlitFramebuffer")

	if missing != "" {
		return nil, fmt.Errorf("gpu: required GL entry point %q not found", missing)
	}
	return f, nil
}

// GoString converts a NUL-terminated C string returned by GetString
// into a Go string. It returns "" for nil.
func GoString(p *byte) string {
	if p == nil {
		return ""
	}
	var n int
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}

// CString returns s as a NUL-terminated byte slice for passing to GL
// entry points taking C strings.
func CString(s string) *byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return &b[0]
}
