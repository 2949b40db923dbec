// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package poolid allocates dense, reusable pool identifiers for vkmem's
// user pools, with identifier 0 reserved. It is adapted from core/track's
// dense-index-plus-free-list allocator: a growing counter backed by a free
// list so that destroyed pool slots are recycled instead of leaking
// identifier space. A freed identifier is handed out again before the
// counter grows, so identifiers are not issued in increasing order once
// any pool has been freed.
package poolid

import "sync"

// Reserved is the identifier that means "no pool" (spec.md §4.6).
const Reserved = 0

// Allocator hands out pool identifiers starting at 1, reusing freed ones.
type Allocator struct {
	mu   sync.Mutex
	next uint32
	free []uint32
}

// New returns an Allocator whose first Alloc returns 1.
func New() *Allocator {
	return &Allocator{next: Reserved + 1}
}

// Alloc returns a fresh identifier, preferring one released by Free.
func (a *Allocator) Alloc() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		return id
	}
	id := a.next
	a.next++
	return id
}

// Free releases id for reuse by a future Alloc. Freeing Reserved or an id
// never handed out is a caller bug and is ignored.
func (a *Allocator) Free(id uint32) {
	if id == Reserved {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if id >= a.next {
		return
	}
	a.free = append(a.free, id)
}

// Live returns how many identifiers are currently allocated and not freed.
func (a *Allocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int(a.next) - 1 - len(a.free)
}
