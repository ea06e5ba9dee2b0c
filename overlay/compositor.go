// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package overlay

import (
	"image"
	"log/slog"
	"unsafe"

	"github.com/agusmaps/mapsurface/gpu"
)

const vertexSrc = `attribute vec2 aPos;
attribute vec2 aUV;
varying vec2 vUV;
void main() {
	vUV = aUV;
	gl_Position = vec4(aPos, 0.0, 1.0);
}
`

const fragmentSrc = `precision mediump float;
varying vec2 vUV;
uniform sampler2D uTex;
void main() {
	gl_FragColor = texture2D(uTex, vUV);
}
`

// Compositor draws the rasterized overlay panel into the top-left
// corner of the bound framebuffer with a textured, alpha-blended
// quad. All methods run on the render goroutine with a current
// context. A compile or link failure disables the compositor for the
// rest of the surface's life; frames continue without the overlay.
type Compositor struct {
	gl   *gpu.Functions
	prog uint32
	tex  uint32
	vbo  uint32

	attrPos int32
	attrUV  int32

	texW, texH int32
	lastGen    uint64
	disabled   bool
	created    bool
}

// Draw composites the overlay onto the current framebuffer of the
// given size. It lazily creates its GL objects on first use.
func (c *Compositor) Draw(gl *gpu.Functions, o *Overlay, surfW, surfH int32) {
	if c.disabled || surfW <= 0 || surfH <= 0 {
		return
	}
	if !c.created {
		if !c.create(gl) {
			return
		}
	}
	gen := o.Generation()
	if gen != c.lastGen {
		img := o.Render()
		if img == nil {
			c.lastGen = gen
			c.texW = 0
			return
		}
		c.upload(img)
		c.lastGen = gen
	}
	if c.texW == 0 || c.texH == 0 {
		return
	}
	c.drawQuad(surfW, surfH)
}

// Release deletes the GL objects. Must run with the owning context
// current.
func (c *Compositor) Release() {
	if !c.created {
		return
	}
	gl := c.gl
	gl.DeleteProgram(c.prog)
	gl.DeleteTextures(1, &c.tex)
	gl.DeleteBuffers(1, &c.vbo)
	c.created = false
	c.texW, c.texH = 0, 0
}

func (c *Compositor) create(gl *gpu.Functions) bool {
	c.gl = gl
	vs, ok := compileShader(gl, gpu.VERTEX_SHADER, vertexSrc)
	if !ok {
		c.disabled = true
		return false
	}
	fs, ok := compileShader(gl, gpu.FRAGMENT_SHADER, fragmentSrc)
	if !ok {
		gl.DeleteShader(vs)
		c.disabled = true
		return false
	}
	prog := gl.CreateProgram()
	gl.AttachShader(prog, vs)
	gl.AttachShader(prog, fs)
	gl.LinkProgram(prog)
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)
	var linked int32
	gl.GetProgramiv(prog, gpu.LINK_STATUS, &linked)
	if linked != gpu.TRUE {
		slog.Warn("overlay: program link failed, overlay disabled")
		gl.DeleteProgram(prog)
		c.disabled = true
		return false
	}
	c.prog = prog
	c.attrPos = gl.GetAttribLocation(prog, gpu.CString("aPos"))
	c.attrUV = gl.GetAttribLocation(prog, gpu.CString("aUV"))

	gl.GenTextures(1, &c.tex)
	gl.BindTexture(gpu.TEXTURE_2D, c.tex)
	gl.TexParameteri(gpu.TEXTURE_2D, gpu.TEXTURE_MIN_FILTER, gpu.NEAREST)
	gl.TexParameteri(gpu.TEXTURE_2D, gpu.TEXTURE_MAG_FILTER, gpu.NEAREST)
	gl.TexParameteri(gpu.TEXTURE_2D, gpu.TEXTURE_WRAP_S, gpu.CLAMP_TO_EDGE)
	gl.TexParameteri(gpu.TEXTURE_2D, gpu.TEXTURE_WRAP_T, gpu.CLAMP_TO_EDGE)
	gl.BindTexture(gpu.TEXTURE_2D, 0)

	gl.GenBuffers(1, &c.vbo)
	c.created = true
	return true
}

func (c *Compositor) upload(img *image.RGBA) {
	gl := c.gl
	w := int32(img.Rect.Dx())
	h := int32(img.Rect.Dy())
	gl.BindTexture(gpu.TEXTURE_2D, c.tex)
	gl.PixelStorei(gpu.UNPACK_ALIGNMENT, 1)
	if w != c.texW || h != c.texH {
		gl.TexImage2D(gpu.TEXTURE_2D, 0, gpu.RGBA, w, h, 0, gpu.RGBA, gpu.UNSIGNED_BYTE, unsafe.Pointer(&img.Pix[0]))
		c.texW, c.texH = w, h
	} else {
		gl.TexSubImage2D(gpu.TEXTURE_2D, 0, 0, 0, w, h, gpu.RGBA, gpu.UNSIGNED_BYTE, unsafe.Pointer(&img.Pix[0]))
	}
	gl.BindTexture(gpu.TEXTURE_2D, 0)
}

func (c *Compositor) drawQuad(surfW, surfH int32) {
	gl := c.gl

	// panel in the top-left corner, NDC. The framebuffer's row order
	// is flipped relative to the host, so "top" is y = +1 here and
	// the V coordinates run 0 at the top of the panel.
	const margin = 8
	x0 := float32(-1) + 2*float32(margin)/float32(surfW)
	y1 := float32(1) - 2*float32(margin)/float32(surfH)
	x1 := x0 + 2*float32(c.texW)/float32(surfW)
	y0 := y1 - 2*float32(c.texH)/float32(surfH)

	verts := [16]float32{
		x0, y0, 0, 1,
		x1, y0, 1, 1,
		x0, y1, 0, 0,
		x1, y1, 1, 0,
	}

	gl.UseProgram(c.prog)
	gl.ActiveTexture(gpu.TEXTURE0)
	gl.BindTexture(gpu.TEXTURE_2D, c.tex)
	gl.Uniform1i(gl.GetUniformLocation(c.prog, gpu.CString("uTex")), 0)

	gl.BindBuffer(gpu.ARRAY_BUFFER, c.vbo)
	gl.BufferData(gpu.ARRAY_BUFFER, unsafe.Sizeof(verts), unsafe.Pointer(&verts[0]), gpu.STATIC_DRAW)

	gl.EnableVertexAttribArray(uint32(c.attrPos))
	gl.VertexAttribPointer(uint32(c.attrPos), 2, gpu.FLOAT, gpu.FALSE, 16, nil)
	gl.EnableVertexAttribArray(uint32(c.attrUV))
	gl.VertexAttribPointer(uint32(c.attrUV), 2, gpu.FLOAT, gpu.FALSE, 16, unsafe.Pointer(uintptr(8)))

	gl.Enable(gpu.BLEND)
	gl.BlendFunc(gpu.SRC_ALPHA, gpu.ONE_MINUS_SRC_ALPHA)
	gl.Disable(gpu.SCISSOR_TEST)

	gl.DrawArrays(gpu.TRIANGLE_STRIP, 0, 4)

	gl.Disable(gpu.BLEND)
	gl.Enable(gpu.SCISSOR_TEST)
	gl.DisableVertexAttribArray(uint32(c.attrPos))
	gl.DisableVertexAttribArray(uint32(c.attrUV))
	gl.BindBuffer(gpu.ARRAY_BUFFER, 0)
	gl.BindTexture(gpu.TEXTURE_2D, 0)
	gl.UseProgram(0)
}

func compileShader(gl *gpu.Functions, typ uint32, src string) (uint32, bool) {
	sh := gl.CreateShader(typ)
	p := gpu.CString(src)
	gl.ShaderSource(sh, 1, &p, nil)
	gl.CompileShader(sh)
	var ok int32
	gl.GetShaderiv(sh, gpu.COMPILE_STATUS, &ok)
	if ok != gpu.TRUE {
		slog.Warn("overlay: shader compile failed, overlay disabled", "type", typ)
		gl.DeleteShader(sh)
		return 0, false
	}
	return sh, true
}
