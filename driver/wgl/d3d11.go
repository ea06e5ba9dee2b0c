// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build windows

// Package wgl is the zero-copy rendering backend for Windows hosts
// compositing D3D11 textures: frames render on a hidden-window WGL
// context and are handed to the host through a shared D3D11 texture,
// via NV_DX_interop when the driver exposes it and a CPU copy
// otherwise.
package wgl

import (
	"fmt"
	"strings"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modD3D11 = windows.NewLazySystemDLL("d3d11.dll")
	modDXGI  = windows.NewLazySystemDLL("dxgi.dll")

	procD3D11CreateDevice = modD3D11.NewProc("D3D11CreateDevice")
	procCreateDXGIFactory = modDXGI.NewProc("CreateDXGIFactory1")
)

const (
	d3dDriverTypeUnknown  = 0
	d3dDriverTypeHardware = 1

	d3d11SDKVersion = 7

	d3d11CreateDeviceBGRASupport = 0x20

	dxgiFormatB8G8R8A8Unorm = 87

	d3d11UsageDefault = 0
	d3d11UsageStaging = 3

	d3d11BindRenderTarget   = 0x20
	d3d11BindShaderResource = 0x8

	d3d11CPUAccessWrite = 0x10000

	d3d11ResourceMiscShared           = 0x2
	d3d11ResourceMiscSharedKeyedMutex = 0x10

	dxgiErrorWaitTimeout = 0x887A0027

	// bounded exclusivity: a host that holds the texture longer than
	// this forfeits the frame rather than stalling the render loop
	keyedMutexAcquireMS = 100
)

var (
	iidIDXGIFactory1   = windows.GUID{Data1: 0x770aae78, Data2: 0xf26f, Data3: 0x4dba, Data4: [8]byte{0xa8, 0x29, 0x25, 0x3c, 0x83, 0xd1, 0xb3, 0x87}}
	iidIDXGIResource   = windows.GUID{Data1: 0x035f3ab4, Data2: 0x482e, Data3: 0x4e50, Data4: [8]byte{0xb4, 0x1f, 0x8a, 0x7f, 0x8b, 0xd8, 0x96, 0x0b}}
	iidIDXGIKeyedMutex = windows.GUID{Data1: 0x9d8e1289, Data2: 0xd7b3, Data3: 0x465f, Data4: [8]byte{0x81, 0x26, 0x25, 0x0e, 0x34, 0x9a, 0xf8, 0x5d}}
)

// comVtblFn returns the function pointer at the given index in the
// object's vtable.
func comVtblFn(obj uintptr, index int) uintptr {
	vtbl := *(*uintptr)(unsafe.Pointer(obj))
	return *(*uintptr)(unsafe.Pointer(vtbl + uintptr(index)*unsafe.Sizeof(uintptr(0))))
}

func comRelease(obj uintptr) {
	if obj != 0 {
		syscall.SyscallN(comVtblFn(obj, 2), obj)
	}
}

func comQueryInterface(obj uintptr, iid *windows.GUID) (uintptr, error) {
	var out uintptr
	hr, _, _ := syscall.SyscallN(comVtblFn(obj, 0), obj,
		uintptr(unsafe.Pointer(iid)), uintptr(unsafe.Pointer(&out)))
	if hr != 0 {
		return 0, fmt.Errorf("wgl: QueryInterface failed: 0x%08x", uint32(hr))
	}
	return out, nil
}

type dxgiSampleDesc struct {
	Count   uint32
	Quality uint32
}

type d3d11Texture2DDesc struct {
	Width          uint32
	Height         uint32
	MipLevels      uint32
	ArraySize      uint32
	Format         uint32
	SampleDesc     dxgiSampleDesc
	Usage          uint32
	BindFlags      uint32
	CPUAccessFlags uint32
	MiscFlags      uint32
}

type dxgiAdapterDesc1 struct {
	Description           [128]uint16
	VendorID              uint32
	DeviceID              uint32
	SubSysID              uint32
	Revision              uint32
	DedicatedVideoMemory  uintptr
	DedicatedSystemMemory uintptr
	SharedSystemMemory    uintptr
	AdapterLuid           int64
	Flags                 uint32
}

// d3dDevice wraps the ID3D11Device and its immediate context.
type d3dDevice struct {
	device  uintptr
	context uintptr
}

// enumAdapterDescriptions returns the description string and COM
// pointer of every DXGI adapter. Callers own the returned adapter
// references.
func enumAdapters() (adapters []uintptr, descs []string, err error) {
	var factory uintptr
	hr, _, _ := procCreateDXGIFactory.Call(
		uintptr(unsafe.Pointer(&iidIDXGIFactory1)),
		uintptr(unsafe.Pointer(&factory)))
	if hr != 0 {
		return nil, nil, fmt.Errorf("wgl: CreateDXGIFactory1 failed: 0x%08x", uint32(hr))
	}
	defer comRelease(factory)

	for i := uint32(0); ; i++ {
		var adapter uintptr
		// IDXGIFactory1::EnumAdapters1
		hr, _, _ := syscall.SyscallN(comVtblFn(factory, 12), factory,
			uintptr(i), uintptr(unsafe.Pointer(&adapter)))
		if hr != 0 {
			break
		}
		var desc dxgiAdapterDesc1
		// IDXGIAdapter1::GetDesc1
		syscall.SyscallN(comVtblFn(adapter, 10), adapter, uintptr(unsafe.Pointer(&desc)))
		adapters = append(adapters, adapter)
		descs = append(descs, windows.UTF16ToString(desc.Description[:]))
	}
	return adapters, descs, nil
}

// matchAdapter picks the adapter whose description appears as a
// substring of the GL renderer string (case-insensitive), so that the
// D3D11 device lands on the same GPU the GL context renders on. It
// returns -1 when no description matches.
func matchAdapter(glRenderer string, descs []string) int {
	renderer := strings.ToLower(glRenderer)
	for i, d := range descs {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" && strings.Contains(renderer, d) {
			return i
		}
	}
	return -1
}

// newD3DDevice creates the D3D11 device, preferring the adapter that
// matches the GL renderer and falling back to the default hardware
// adapter.
func newD3DDevice(glRenderer string) (*d3dDevice, error) {
	adapters, descs, err := enumAdapters()
	if err == nil {
		defer func() {
			for _, a := range adapters {
				comRelease(a)
			}
		}()
		if i := matchAdapter(glRenderer, descs); i >= 0 {
			if dev, err := createDevice(adapters[i], d3dDriverTypeUnknown); err == nil {
				return dev, nil
			}
		}
	}
	return createDevice(0, d3dDriverTypeHardware)
}

func createDevice(adapter uintptr, driverType uint32) (*d3dDevice, error) {
	var dev, ctx uintptr
	hr, _, _ := procD3D11CreateDevice.Call(
		adapter,
		uintptr(driverType),
		0, // software module
		d3d11CreateDeviceBGRASupport,
		0, 0, // default feature levels
		d3d11SDKVersion,
		uintptr(unsafe.Pointer(&dev)),
		0, // chosen feature level
		uintptr(unsafe.Pointer(&ctx)))
	if hr != 0 {
		return nil, fmt.Errorf("wgl: D3D11CreateDevice failed: 0x%08x", uint32(hr))
	}
	return &d3dDevice{device: dev, context: ctx}, nil
}

func (d *d3dDevice) release() {
	comRelease(d.context)
	comRelease(d.device)
	d.context, d.device = 0, 0
}

// createTexture2D creates a texture with the given desc.
func (d *d3dDevice) createTexture2D(desc *d3d11Texture2DDesc) (uintptr, error) {
	var tex uintptr
	// ID3D11Device::CreateTexture2D
	hr, _, _ := syscall.SyscallN(comVtblFn(d.device, 5), d.device,
		uintptr(unsafe.Pointer(desc)), 0, uintptr(unsafe.Pointer(&tex)))
	if hr != 0 {
		return 0, fmt.Errorf("wgl: CreateTexture2D %dx%d failed: 0x%08x", desc.Width, desc.Height, uint32(hr))
	}
	return tex, nil
}

// sharedHandle returns the DXGI shared handle the host opens the
// texture with.
func sharedHandle(tex uintptr) (uintptr, error) {
	res, err := comQueryInterface(tex, &iidIDXGIResource)
	if err != nil {
		return 0, err
	}
	defer comRelease(res)
	var h uintptr
	// IDXGIResource::GetSharedHandle
	hr, _, _ := syscall.SyscallN(comVtblFn(res, 8), res, uintptr(unsafe.Pointer(&h)))
	if hr != 0 {
		return 0, fmt.Errorf("wgl: GetSharedHandle failed: 0x%08x", uint32(hr))
	}
	return h, nil
}

// keyedMutex wraps the texture's IDXGIKeyedMutex.
type keyedMutex struct {
	mutex uintptr
}

// IDXGIKeyedMutex vtable: IUnknown contributes slots 0-2, IDXGIObject
// slots 3-6 (the private-data methods and GetParent), and
// IDXGIDeviceSubObject::GetDevice slot 7; AcquireSync and ReleaseSync
// follow.
const (
	vtblKeyedMutexAcquireSync = 8
	vtblKeyedMutexReleaseSync = 9
)

func newKeyedMutex(tex uintptr) (*keyedMutex, error) {
	m, err := comQueryInterface(tex, &iidIDXGIKeyedMutex)
	if err != nil {
		return nil, err
	}
	return &keyedMutex{mutex: m}, nil
}

// acquire takes the producer key with the bounded timeout, reporting
// whether the texture is ours for this frame. A timeout means the
// host is holding the texture; the frame is skipped, never waited
// for.
func (k *keyedMutex) acquire() bool {
	// AcquireSync(Key, dwMilliseconds); the UINT64 key is a single
	// register argument on win64
	hr, _, _ := syscall.SyscallN(comVtblFn(k.mutex, vtblKeyedMutexAcquireSync), k.mutex,
		0, uintptr(keyedMutexAcquireMS))
	return hr == 0
}

// release hands the texture to the consumer key.
func (k *keyedMutex) release() {
	// ReleaseSync(1)
	syscall.SyscallN(comVtblFn(k.mutex, vtblKeyedMutexReleaseSync), k.mutex, 1)
}

func (k *keyedMutex) close() {
	comRelease(k.mutex)
	k.mutex = 0
}

// updateSubresource uploads a full CPU pixel buffer into the texture.
func (d *d3dDevice) updateSubresource(tex uintptr, pixels []byte, rowPitch uint32) {
	// ID3D11DeviceContext::UpdateSubresource
	syscall.SyscallN(comVtblFn(d.context, 48), d.context,
		tex, 0, 0, uintptr(unsafe.Pointer(&pixels[0])), uintptr(rowPitch), 0)
}

// flush submits queued commands so the host sees the new contents.
func (d *d3dDevice) flush() {
	// ID3D11DeviceContext::Flush
	syscall.SyscallN(comVtblFn(d.context, 111), d.context)
}
