// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build windows

package wgl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchAdapter(t *testing.T) {
	descs := []string{
		"Intel(R) UHD Graphics 630",
		"NVIDIA GeForce RTX 3060",
		"Microsoft Basic Render Driver",
	}
	// GL renderer strings usually embed the adapter name with extra
	// driver decoration around it
	assert.Equal(t, 1, matchAdapter("NVIDIA GeForce RTX 3060/PCIe/SSE2", descs))
	assert.Equal(t, 0, matchAdapter("intel(r) uhd graphics 630 (CFL GT2)", descs))
	assert.Equal(t, -1, matchAdapter("llvmpipe (LLVM 15.0.7, 256 bits)", descs))
	assert.Equal(t, -1, matchAdapter("", descs))
	// empty descriptions never match
	assert.Equal(t, -1, matchAdapter("anything", []string{"", "  "}))
}

func TestSharedTextureDesc(t *testing.T) {
	desc := d3d11Texture2DDesc{
		Width:      800,
		Height:     600,
		MipLevels:  1,
		ArraySize:  1,
		Format:     dxgiFormatB8G8R8A8Unorm,
		SampleDesc: dxgiSampleDesc{Count: 1},
		Usage:      d3d11UsageDefault,
		BindFlags:  d3d11BindRenderTarget | d3d11BindShaderResource,
		MiscFlags:  d3d11ResourceMiscShared,
	}
	assert.Equal(t, uint32(87), desc.Format)
	assert.Equal(t, uint32(0x28), desc.BindFlags)
}

func TestKeyedMutexVtableSlots(t *testing.T) {
	// IUnknown carries 3 methods, IDXGIObject 4 (SetPrivateData,
	// SetPrivateDataInterface, GetPrivateData, GetParent) and
	// IDXGIDeviceSubObject 1 (GetDevice); AcquireSync and ReleaseSync
	// come right after.
	const iUnknown, idxgiObject, deviceSubObject = 3, 4, 1
	assert.Equal(t, iUnknown+idxgiObject+deviceSubObject, vtblKeyedMutexAcquireSync)
	assert.Equal(t, vtblKeyedMutexAcquireSync+1, vtblKeyedMutexReleaseSync)
}

func TestFactorySmoke(t *testing.T) {
	t.Skip("Need D3D11-capable GPU on CI")
}
