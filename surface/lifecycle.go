// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package surface

import "sync/atomic"

// State is a stage in a factory's lifecycle. Transitions only move
// forward: Uninitialized -> Initializing -> Ready -> Destroyed.
type State int32

const (
	// Uninitialized is the state before any GPU resource exists.
	Uninitialized State = iota

	// Initializing is the state while GPU resources materialize on
	// the render goroutine.
	Initializing

	// Ready is the state in which frames can be produced.
	Ready

	// Destroyed is terminal; all operations become no-ops.
	Destroyed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Initializing:
		return "Initializing"
	case Ready:
		return "Ready"
	case Destroyed:
		return "Destroyed"
	}
	return "Invalid"
}

// Lifecycle is an atomic lifecycle state machine shared between the
// render goroutine and host threads.
type Lifecycle struct {
	state atomic.Int32
}

// State returns the current state.
func (l *Lifecycle) State() State {
	return State(l.state.Load())
}

// Transition moves from one state to the next if the current state
// matches, reporting whether it did. Backward transitions are refused
// regardless of the current state.
func (l *Lifecycle) Transition(from, to State) bool {
	if to < from {
		return false
	}
	return l.state.CompareAndSwap(int32(from), int32(to))
}

// Destroy moves to Destroyed from whatever state is current, reporting
// whether this call was the one that performed the transition.
func (l *Lifecycle) Destroy() bool {
	for {
		cur := l.state.Load()
		if State(cur) == Destroyed {
			return false
		}
		if l.state.CompareAndSwap(cur, int32(Destroyed)) {
			return true
		}
	}
}
