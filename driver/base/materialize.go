// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package base

import (
	"sync"
	"sync/atomic"
)

// Materializer defers heavyweight GPU setup to the render goroutine.
// Context accessors stay cheap and thread-neutral; the first draw
// calls Do with the real setup, which runs exactly once on success.
// A failed attempt is retried on the next call, so a transiently
// unavailable context recovers on a later frame.
type Materializer struct {
	mu   sync.Mutex
	done atomic.Bool
}

// Do runs f if materialization has not yet succeeded. Concurrent
// callers serialize; later calls after a success return nil without
// calling f.
func (m *Materializer) Do(f func() error) error {
	if m.done.Load() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done.Load() {
		return nil
	}
	if err := f(); err != nil {
		return err
	}
	m.done.Store(true)
	return nil
}

// Done reports whether materialization has succeeded.
func (m *Materializer) Done() bool { return m.done.Load() }

// Reset clears the done flag, for teardown paths that release the
// materialized resources.
func (m *Materializer) Reset() { m.done.Store(false) }
