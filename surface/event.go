// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package surface

// EventKind identifies a notification delivered to the host runtime.
type EventKind int32

const (
	// EventFrameReady signals that a new frame is available for the
	// host to copy or composite. Arg0 is 1 for an active frame (the
	// engine wants to keep animating) and 0 otherwise.
	EventFrameReady EventKind = iota

	// EventPlacePage signals the place page opening (Arg0 = 1) or
	// closing (Arg0 = 0).
	EventPlacePage

	// EventPositionMode signals a positioning mode change; Arg0 is
	// the new mode.
	EventPositionMode

	// EventRouting signals route building progress. Arg0 is the
	// phase (0 build started, 1 build ready, 2 build failed,
	// 3 rebuild started) and Arg1 is the result code.
	EventRouting
)

func (k EventKind) String() string {
	switch k {
	case EventFrameReady:
		return "FrameReady"
	case EventPlacePage:
		return "PlacePage"
	case EventPositionMode:
		return "PositionMode"
	case EventRouting:
		return "Routing"
	}
	return "Invalid"
}

// Event is a single notification crossing into the host runtime. It
// carries only primitive arguments so that any bridge (JNI, FFI, or a
// test fake) can marshal it without allocation.
type Event struct {
	Kind EventKind
	Arg0 int32
	Arg1 int32
}

// Sink delivers events to the host runtime. Implementations must be
// callable from the render goroutine and must never block it for
// longer than a bounded marshaling call; a sink with no registered
// host endpoint silently drops events.
type Sink interface {
	Dispatch(ev Event)
}

// SinkFunc adapts a function to the [Sink] interface.
type SinkFunc func(ev Event)

// Dispatch calls f(ev).
func (f SinkFunc) Dispatch(ev Event) { f(ev) }
