// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package base holds the protocol pieces shared by all platform
// backends: frame-ready throttling, the deferred resize slot, the CPU
// staging buffer for read-back frames, and once-per-context deferred
// materialization.
package base

import (
	"sync/atomic"
	"time"

	"github.com/agusmaps/mapsurface/surface"
)

// DefaultMinNotifyInterval is the minimum spacing between frame-ready
// notifications, about one display refresh.
const DefaultMinNotifyInterval = 16 * time.Millisecond

// DefaultKeepAliveFrames is how many presents after engine creation
// keep requesting active frames, so that the initial tile uploads are
// scheduled before the render loop is allowed to go quiet.
const DefaultKeepAliveFrames = 120

// FrameNotifier throttles frame-ready events toward the host runtime.
// Notifications are spaced at least MinInterval apart, and at most one
// dispatch runs at a time: a frame completing while a slow host
// callback is still executing is simply not announced, because the
// host will pick it up when it copies the next announced frame.
type FrameNotifier struct {
	// MinInterval is the spacing floor between notifications.
	MinInterval time.Duration

	sink      atomic.Pointer[sinkBox]
	inFlight  atomic.Bool
	lastNanos atomic.Int64
	keepAlive atomic.Int32

	// now is replaceable in tests.
	now func() time.Time
}

type sinkBox struct{ s surface.Sink }

// NewFrameNotifier returns a notifier with the default interval and
// keep-alive budget.
func NewFrameNotifier() *FrameNotifier {
	n := &FrameNotifier{MinInterval: DefaultMinNotifyInterval, now: time.Now}
	n.keepAlive.Store(DefaultKeepAliveFrames)
	return n
}

// SetSink installs the host sink. A nil sink disables notification
// without error; frames keep rendering.
func (n *FrameNotifier) SetSink(s surface.Sink) {
	if s == nil {
		n.sink.Store(nil)
		return
	}
	n.sink.Store(&sinkBox{s: s})
}

// HasSink reports whether a sink is installed.
func (n *FrameNotifier) HasSink() bool { return n.sink.Load() != nil }

// FrameReady announces a completed frame to the host, subject to the
// throttle. active marks frames the engine produced while animating,
// which tells the host to keep scheduling redraws. It reports whether
// a notification was actually dispatched.
func (n *FrameNotifier) FrameReady(active bool) bool {
	box := n.sink.Load()
	if box == nil {
		return false
	}
	nowNanos := n.now().UnixNano()
	last := n.lastNanos.Load()
	if last != 0 && time.Duration(nowNanos-last) < n.MinInterval {
		return false
	}
	if !n.inFlight.CompareAndSwap(false, true) {
		return false
	}
	n.lastNanos.Store(nowNanos)
	arg := int32(0)
	if active {
		arg = 1
	}
	box.s.Dispatch(surface.Event{Kind: surface.EventFrameReady, Arg0: arg})
	n.inFlight.Store(false)
	return true
}

// Dispatch forwards a non-frame event to the sink unthrottled. With
// no sink installed it is dropped.
func (n *FrameNotifier) Dispatch(ev surface.Event) {
	if box := n.sink.Load(); box != nil {
		box.s.Dispatch(ev)
	}
}

// SetKeepAlive resets the keep-alive budget.
func (n *FrameNotifier) SetKeepAlive(frames int32) {
	n.keepAlive.Store(frames)
}

// KeepAliveTick consumes one unit of the keep-alive budget and
// reports whether the budget was still positive, in which case the
// caller should request another active frame from the engine.
func (n *FrameNotifier) KeepAliveTick() bool {
	for {
		v := n.keepAlive.Load()
		if v <= 0 {
			return false
		}
		if n.keepAlive.CompareAndSwap(v, v-1) {
			return true
		}
	}
}
