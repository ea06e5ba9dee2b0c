// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package base

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agusmaps/mapsurface/surface"
	"github.com/stretchr/testify/assert"
)

// clock is a manual time source for the notifier.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestNotifier() (*FrameNotifier, *clock, *[]surface.Event) {
	c := &clock{t: time.Unix(1000, 0)}
	n := NewFrameNotifier()
	n.now = c.now
	events := &[]surface.Event{}
	n.SetSink(surface.SinkFunc(func(ev surface.Event) {
		*events = append(*events, ev)
	}))
	return n, c, events
}

func TestNotifierNoSink(t *testing.T) {
	n := NewFrameNotifier()
	assert.False(t, n.HasSink())
	assert.False(t, n.FrameReady(false)) // silently disabled, no panic
	n.Dispatch(surface.Event{Kind: surface.EventPlacePage})
}

func TestNotifierThrottleWindow(t *testing.T) {
	n, c, events := newTestNotifier()

	assert.True(t, n.FrameReady(false))

	// inside the window: suppressed
	c.advance(5 * time.Millisecond)
	assert.False(t, n.FrameReady(false))

	c.advance(12 * time.Millisecond)
	assert.True(t, n.FrameReady(false))
	assert.Len(t, *events, 2)
}

// A host that consumes frames from the shared texture never copies
// through the staging buffer, so the notifier must keep announcing
// frames on the strength of the throttle window alone.
func TestNotifierStaysLiveAcrossFrames(t *testing.T) {
	n, c, events := newTestNotifier()
	for iter := 0; iter < 10; iter++ {
		assert.True(t, n.FrameReady(false))
		c.advance(time.Second)
	}
	assert.Len(t, *events, 10)
}

func TestNotifierOverlappingDispatchSuppressed(t *testing.T) {
	c := &clock{t: time.Unix(1000, 0)}
	n := NewFrameNotifier()
	n.now = c.now

	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	var dispatched atomic.Int32
	n.SetSink(surface.SinkFunc(func(ev surface.Event) {
		dispatched.Add(1)
		entered <- struct{}{}
		<-release
	}))

	done := make(chan struct{})
	go func() {
		assert.True(t, n.FrameReady(false))
		close(done)
	}()
	<-entered

	// a frame completing while the host callback is still running is
	// not announced, even outside the throttle window
	c.advance(time.Second)
	assert.False(t, n.FrameReady(false))
	assert.Equal(t, int32(1), dispatched.Load())

	close(release)
	<-done
	c.advance(time.Second)
	assert.True(t, n.FrameReady(false))
	assert.Equal(t, int32(2), dispatched.Load())
}

func TestNotifierActiveFlag(t *testing.T) {
	n, c, events := newTestNotifier()
	assert.True(t, n.FrameReady(true))
	assert.Equal(t, int32(1), (*events)[0].Arg0)
	c.advance(time.Second)
	assert.True(t, n.FrameReady(false))
	assert.Equal(t, int32(0), (*events)[1].Arg0)
}

func TestNotifierDispatchUnthrottled(t *testing.T) {
	n, _, events := newTestNotifier()
	for iter := 0; iter < 5; iter++ {
		n.Dispatch(surface.Event{Kind: surface.EventRouting, Arg0: 1})
	}
	assert.Len(t, *events, 5)
}

func TestNotifierSinkRemoval(t *testing.T) {
	n, c, events := newTestNotifier()
	assert.True(t, n.FrameReady(false))
	n.SetSink(nil)
	c.advance(time.Second)
	assert.False(t, n.FrameReady(false))
	assert.Len(t, *events, 1)
}

func TestKeepAliveBudget(t *testing.T) {
	n := NewFrameNotifier()
	count := 0
	for n.KeepAliveTick() {
		count++
	}
	assert.Equal(t, DefaultKeepAliveFrames, count)
	assert.False(t, n.KeepAliveTick())

	n.SetKeepAlive(3)
	count = 0
	for n.KeepAliveTick() {
		count++
	}
	assert.Equal(t, 3, count)
}

func TestKeepAliveConcurrent(t *testing.T) {
	n := NewFrameNotifier()
	n.SetKeepAlive(1000)
	var wg sync.WaitGroup
	var mu sync.Mutex
	total := 0
	for iter := 0; iter < 8; iter++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := 0
			for n.KeepAliveTick() {
				local++
			}
			mu.Lock()
			total += local
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1000, total)
}
