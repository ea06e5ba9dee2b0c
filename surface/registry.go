// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package surface

import "sync"

// Registry maps positive int64 handles to live instances of T. It
// replaces ambient package-level singletons: the host runtime holds
// only opaque handles, and every entry point resolves its target
// through a registry owned by the embedding package. Handles are never
// reused within a process.
type Registry[T any] struct {
	mu    sync.Mutex
	next  int64
	items map[int64]T
}

// NewRegistry returns an empty registry. Handles start at 1, so that
// -1 and 0 are always invalid.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{items: map[int64]T{}}
}

// Add stores v and returns its new handle.
func (r *Registry[T]) Add(v T) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.items[r.next] = v
	return r.next
}

// Get returns the instance for the given handle, if present.
func (r *Registry[T]) Get(h int64) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.items[h]
	return v, ok
}

// Remove deletes and returns the instance for the given handle.
// Removing an unknown handle is a no-op.
func (r *Registry[T]) Remove(h int64) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.items[h]
	if ok {
		delete(r.items, h)
	}
	return v, ok
}

// Len returns the number of live instances.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
