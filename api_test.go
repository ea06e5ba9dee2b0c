// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mapsurface

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agusmaps/mapsurface/base/errors"
	"github.com/agusmaps/mapsurface/driver/base"
	"github.com/agusmaps/mapsurface/surface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFactory implements [surface.Factory] on the real protocol
// pieces, with synthetic frames instead of GPU work.
type fakeFactory struct {
	pending base.PendingResize
	staging base.StagingBuffer

	mu     sync.Mutex
	size   surface.Extent
	draw   *fakeContext
	upload *fakeContext

	destroyed   atomic.Bool
	presents    atomic.Int32
	failCurrent atomic.Int32
}

type fakeContext struct {
	f      *fakeFactory
	isDraw bool
}

func newFakeFactory(desc surface.Descriptor, _ surface.Options) (*fakeFactory, error) {
	return &fakeFactory{size: surface.Extent{Width: desc.Width, Height: desc.Height}}, nil
}

func (f *fakeFactory) DrawContext() surface.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.draw == nil {
		f.draw = &fakeContext{f: f, isDraw: true}
	}
	return f.draw
}

func (f *fakeFactory) UploadContext() surface.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upload == nil {
		f.upload = &fakeContext{f: f}
	}
	return f.upload
}

func (f *fakeFactory) IsDrawContextCreated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draw != nil
}

func (f *fakeFactory) IsUploadContextCreated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upload != nil
}

func (f *fakeFactory) RequestResize(w, h int32) { f.pending.Request(w, h) }

func (f *fakeFactory) ApplyPendingResizeIfAny() {
	if e, ok := f.pending.Take(); ok {
		f.mu.Lock()
		f.size = e
		f.mu.Unlock()
	}
}

func (f *fakeFactory) RenderedExtent() surface.Extent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

func (f *fakeFactory) CopyToPixelBuffer(dst []byte, w, h, stride int32) bool {
	return f.staging.CopyTo(dst, w, h, stride)
}

func (f *fakeFactory) Destroy() { f.destroyed.Store(true) }

func (c *fakeContext) MakeCurrent() bool {
	if c.f.failCurrent.Load() > 0 {
		c.f.failCurrent.Add(-1)
		return false
	}
	return !c.f.destroyed.Load()
}
func (c *fakeContext) DoneCurrent()          {}
func (c *fakeContext) SetFramebuffer(uint32) {}

func (c *fakeContext) Present() bool {
	if !c.isDraw {
		return false
	}
	f := c.f
	e := f.RenderedExtent()
	n := f.presents.Add(1)
	buf := make([]byte, int(e.Width)*int(e.Height)*4)
	for i := range buf {
		buf[i] = byte(n)
	}
	f.staging.Publish(buf, e.Width, e.Height)
	return true
}

// fakeEngine records lifecycle calls.
type fakeEngine struct {
	mu       sync.Mutex
	attached bool
	released bool
	resizes  []surface.Extent
	scales   []float32
	renders  atomic.Int32
	active   atomic.Bool
}

func (e *fakeEngine) Attach(surface.Factory, surface.Descriptor) {
	e.mu.Lock()
	e.attached = true
	e.mu.Unlock()
}

func (e *fakeEngine) Render(size surface.Extent) bool {
	e.renders.Add(1)
	return e.active.Load()
}

func (e *fakeEngine) Resize(size surface.Extent) {
	e.mu.Lock()
	e.resizes = append(e.resizes, size)
	e.mu.Unlock()
}

func (e *fakeEngine) SetVisualScale(scale float32) {
	e.mu.Lock()
	e.scales = append(e.scales, scale)
	e.mu.Unlock()
}

func (e *fakeEngine) Release() {
	e.mu.Lock()
	e.released = true
	e.mu.Unlock()
}

func createTestSurface(t *testing.T, engine *fakeEngine) (int64, *fakeFactory) {
	t.Helper()
	var created *fakeFactory
	orig := factoryFor
	factoryFor = func(desc surface.Descriptor, opts surface.Options) (surface.Factory, error) {
		f, err := newFakeFactory(desc, opts)
		created = f
		return f, err
	}
	t.Cleanup(func() { factoryFor = orig })

	h := CreateSurface(engine, 320, 240, 2.0)
	require.Greater(t, h, int64(0))
	require.NotNil(t, created)
	t.Cleanup(func() { OnSurfaceDestroyed(h) })
	return h, created
}

func TestCreateSurfaceInvalidParams(t *testing.T) {
	assert.Equal(t, InvalidHandle, CreateSurface(nil, 100, 100, 1))
	assert.Equal(t, InvalidHandle, CreateSurface(&fakeEngine{}, 0, 100, 1))
	assert.Equal(t, InvalidHandle, CreateSurface(&fakeEngine{}, 100, -1, 1))
}

func TestCreateSurfaceBackendFailure(t *testing.T) {
	orig := factoryFor
	factoryFor = func(surface.Descriptor, surface.Options) (surface.Factory, error) {
		return nil, errors.New("no display")
	}
	t.Cleanup(func() { factoryFor = orig })
	assert.Equal(t, InvalidHandle, CreateSurface(&fakeEngine{}, 100, 100, 1))
}

func TestSurfaceRendersAndNotifies(t *testing.T) {
	engine := &fakeEngine{}
	h, _ := createTestSurface(t, engine)

	events := make(chan surface.Event, 64)
	RegisterFrameReadyCallback(h, surface.SinkFunc(func(ev surface.Event) {
		select {
		case events <- ev:
		default:
		}
	}))
	Invalidate(h)

	select {
	case ev := <-events:
		assert.Equal(t, surface.EventFrameReady, ev.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("no frame-ready notification")
	}

	dst := make([]byte, 320*240*4)
	assert.Eventually(t, func() bool {
		return CopyToPixelBuffer(h, dst, 320, 240, 320*4)
	}, 2*time.Second, 10*time.Millisecond)
	assert.NotZero(t, dst[0])

	w, hh := RenderedSize(h)
	assert.Equal(t, int32(320), w)
	assert.Equal(t, int32(240), hh)
}

func TestSurfaceDeferredResize(t *testing.T) {
	engine := &fakeEngine{}
	h, f := createTestSurface(t, engine)

	OnSizeChanged(h, 640, 480)
	assert.Eventually(t, func() bool {
		w, hh := RenderedSize(h)
		return w == 640 && hh == 480
	}, 2*time.Second, 10*time.Millisecond)

	engine.mu.Lock()
	resizes := append([]surface.Extent{}, engine.resizes...)
	engine.mu.Unlock()
	assert.Contains(t, resizes, surface.Extent{Width: 640, Height: 480})
	assert.False(t, f.destroyed.Load())
}

func TestSurfaceVisualScale(t *testing.T) {
	engine := &fakeEngine{}
	h, _ := createTestSurface(t, engine)

	assert.Eventually(t, func() bool {
		engine.mu.Lock()
		defer engine.mu.Unlock()
		return len(engine.scales) > 0 && engine.scales[0] == 2.0
	}, 2*time.Second, 10*time.Millisecond)

	// sub-epsilon change is ignored
	SetVisualScale(h, 2.00001)
	// real change propagates
	SetVisualScale(h, 3.0)
	assert.Eventually(t, func() bool {
		engine.mu.Lock()
		defer engine.mu.Unlock()
		return len(engine.scales) == 2 && engine.scales[1] == 3.0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSurfaceKeepAliveRendersWithoutInvalidate(t *testing.T) {
	engine := &fakeEngine{}
	_, _ = createTestSurface(t, engine)

	// the keep-alive budget schedules frames beyond the initial one
	// without any host invalidation
	assert.Eventually(t, func() bool {
		return engine.renders.Load() > 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSurfaceDestroy(t *testing.T) {
	engine := &fakeEngine{}
	h, f := createTestSurface(t, engine)

	assert.Eventually(t, func() bool { return engine.renders.Load() > 0 },
		2*time.Second, 10*time.Millisecond)

	OnSurfaceDestroyed(h)
	assert.True(t, f.destroyed.Load())
	engine.mu.Lock()
	released := engine.released
	engine.mu.Unlock()
	assert.True(t, released)

	// destroyed handles become inert
	assert.False(t, CopyToPixelBuffer(h, make([]byte, 16), 2, 2, 8))
	w, hh := RenderedSize(h)
	assert.Zero(t, w)
	assert.Zero(t, hh)
	OnSizeChanged(h, 10, 10)
	OnSurfaceDestroyed(h) // idempotent
}

func TestSurfaceDestroyBeforeFirstDraw(t *testing.T) {
	engine := &fakeEngine{}
	h, f := createTestSurface(t, engine)

	// no wait for a render: teardown must be safe before the first
	// frame ever draws
	OnSurfaceDestroyed(h)
	assert.True(t, f.destroyed.Load())

	engine.mu.Lock()
	attached, released := engine.attached, engine.released
	engine.mu.Unlock()
	if attached {
		assert.True(t, released)
	}

	assert.False(t, CopyToPixelBuffer(h, make([]byte, 16), 2, 2, 8))
	w, hh := RenderedSize(h)
	assert.Zero(t, w)
	assert.Zero(t, hh)
}

func TestTransferExtentAcrossResize(t *testing.T) {
	f, err := newFakeFactory(surface.Descriptor{Width: 320, Height: 240}, surface.Options{})
	require.NoError(t, err)
	ctx := f.DrawContext()
	require.True(t, ctx.Present())

	// a pending resize changes nothing the host can observe yet
	f.RequestResize(640, 480)
	assert.Equal(t, surface.Extent{Width: 320, Height: 240}, f.RenderedExtent())
	dst := make([]byte, 640*480*4)
	assert.True(t, f.CopyToPixelBuffer(dst, 320, 240, 320*4))

	// applying the resize advances the extent, but the transferable
	// frame stays the pre-resize one until the next present
	f.ApplyPendingResizeIfAny()
	assert.Equal(t, surface.Extent{Width: 640, Height: 480}, f.RenderedExtent())
	assert.Equal(t, surface.Extent{Width: 320, Height: 240}, f.staging.Extent())

	require.True(t, ctx.Present())
	assert.Equal(t, surface.Extent{Width: 640, Height: 480}, f.staging.Extent())
	assert.True(t, f.CopyToPixelBuffer(dst, 640, 480, 640*4))
}

func TestSurfaceRecoversFromTransientBindFailure(t *testing.T) {
	engine := &fakeEngine{}
	var created *fakeFactory
	orig := factoryFor
	factoryFor = func(desc surface.Descriptor, opts surface.Options) (surface.Factory, error) {
		f, err := newFakeFactory(desc, opts)
		f.failCurrent.Store(3)
		created = f
		return f, err
	}
	t.Cleanup(func() { factoryFor = orig })

	h := CreateSurface(engine, 320, 240, 2.0)
	require.Greater(t, h, int64(0))
	require.NotNil(t, created)
	t.Cleanup(func() { OnSurfaceDestroyed(h) })

	// no host invalidation beyond creation: the loop retries the
	// failed binds on its own
	assert.Eventually(t, func() bool { return engine.renders.Load() > 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestUnknownHandleOpsAreNoOps(t *testing.T) {
	OnSizeChanged(999999, 10, 10)
	SetVisualScale(999999, 1)
	Invalidate(999999)
	SetOverlayLines(999999, []string{"x"})
	assert.Zero(t, SharedTextureHandle(999999))
	assert.False(t, CopyToPixelBuffer(999999, nil, 0, 0, 0))
}

func TestDispatchEvent(t *testing.T) {
	engine := &fakeEngine{}
	h, _ := createTestSurface(t, engine)

	events := make(chan surface.Event, 64)
	RegisterFrameReadyCallback(h, surface.SinkFunc(func(ev surface.Event) {
		select {
		case events <- ev:
		default:
		}
	}))
	DispatchEvent(h, surface.Event{Kind: surface.EventRouting, Arg0: 1, Arg1: 0})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Kind == surface.EventRouting {
				assert.Equal(t, int32(1), ev.Arg0)
				return
			}
		case <-deadline:
			t.Fatal("routing event not delivered")
		}
	}
}

func TestSharedTextureHandleFake(t *testing.T) {
	engine := &fakeEngine{}
	h, _ := createTestSurface(t, engine)
	// fake factory exports no shared handle
	assert.Zero(t, SharedTextureHandle(h))
}
