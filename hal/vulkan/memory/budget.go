// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package memory

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/vkmem/hal/vulkan/driver"
)

// HeapBudget is the sanitized view of one heap's live usage against its
// ceiling, returned to callers (spec.md §3 "Budget").
type HeapBudget struct {
	Usage  uint64
	Budget uint64
}

func subU64(a *atomic.Uint64, v uint64) {
	if v == 0 {
		return
	}
	a.Add(^(v - 1))
}

// budgetTracker holds the per-heap atomic counters spec.md §4.5 describes.
// Everything but the periodic driver re-poll (updateBudget) is lock-free;
// the re-poll takes mu's write side, queries take the read side.
type budgetTracker struct {
	drv            driver.Driver
	physicalDevice driver.PhysicalDevice
	hasCap         bool
	heapSizes      []uint64
	heapLimits     []uint64 // 0 means unlimited

	blockBytes      []atomic.Uint64
	allocationBytes []atomic.Uint64
	opsSinceFetch   atomic.Uint32

	mu                sync.RWMutex
	vulkanUsage       []uint64
	vulkanBudget      []uint64
	blockBytesAtFetch []uint64
}

func newBudgetTracker(drv driver.Driver, physicalDevice driver.PhysicalDevice, heaps []driver.MemoryHeap, heapLimits []uint64, hasBudgetCap bool) *budgetTracker {
	n := len(heaps)
	b := &budgetTracker{
		drv:               drv,
		physicalDevice:    physicalDevice,
		hasCap:            hasBudgetCap,
		heapSizes:         make([]uint64, n),
		heapLimits:        make([]uint64, n),
		blockBytes:        make([]atomic.Uint64, n),
		allocationBytes:   make([]atomic.Uint64, n),
		vulkanUsage:       make([]uint64, n),
		vulkanBudget:      make([]uint64, n),
		blockBytesAtFetch: make([]uint64, n),
	}
	for i, h := range heaps {
		b.heapSizes[i] = h.Size
	}
	copy(b.heapLimits, heapLimits)
	if hasBudgetCap {
		b.updateBudget()
	}
	return b
}

// tryReserveBlock enforces a per-heap byte limit, if one was configured, via
// a compare-and-swap loop against block_bytes (spec.md §4.5). When no limit
// is set the reservation always succeeds.
func (b *budgetTracker) tryReserveBlock(heapIndex uint32, size uint64) bool {
	limit := b.heapLimits[heapIndex]
	if limit == 0 {
		b.blockBytes[heapIndex].Add(size)
		b.maybeRepoll()
		return true
	}
	for {
		cur := b.blockBytes[heapIndex].Load()
		if cur+size > limit {
			return false
		}
		if b.blockBytes[heapIndex].CompareAndSwap(cur, cur+size) {
			b.maybeRepoll()
			return true
		}
	}
}

func (b *budgetTracker) releaseBlock(heapIndex uint32, size uint64) {
	subU64(&b.blockBytes[heapIndex], size)
}

func (b *budgetTracker) addAllocationBytes(heapIndex uint32, size uint64) {
	b.allocationBytes[heapIndex].Add(size)
}

func (b *budgetTracker) subAllocationBytes(heapIndex uint32, size uint64) {
	subU64(&b.allocationBytes[heapIndex], size)
}

func (b *budgetTracker) blockBytesFor(heapIndex uint32) uint64 {
	return b.blockBytes[heapIndex].Load()
}

func (b *budgetTracker) allocationBytesFor(heapIndex uint32) uint64 {
	return b.allocationBytes[heapIndex].Load()
}

// maybeRepoll triggers a driver re-poll after opsBeforeRepoll successful
// operations. Two threads crossing the threshold together both triggering
// updateBudget is harmless: the re-poll is idempotent.
func (b *budgetTracker) maybeRepoll() {
	if !b.hasCap {
		return
	}
	if b.opsSinceFetch.Add(1) >= opsBeforeRepoll {
		b.updateBudget()
	}
}

func (b *budgetTracker) updateBudget() {
	budgets, ok := b.drv.GetPhysicalDeviceMemoryBudget(b.physicalDevice)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.vulkanUsage {
		if i >= len(budgets) {
			break
		}
		b.vulkanUsage[i] = budgets[i].Usage
		b.vulkanBudget[i] = budgets[i].Budget
		b.blockBytesAtFetch[i] = b.blockBytes[i].Load()
	}
	b.opsSinceFetch.Store(0)
}

// HeapBudget returns the sanitized usage/budget pair for one heap,
// applying spec.md §4.5's driver-anomaly corrections.
func (b *budgetTracker) HeapBudget(heapIndex uint32) HeapBudget {
	heapSize := b.heapSizes[heapIndex]
	if !b.hasCap {
		return HeapBudget{
			Usage:  b.blockBytes[heapIndex].Load(),
			Budget: heapSize * 8 / 10,
		}
	}

	b.mu.RLock()
	usage := b.vulkanUsage[heapIndex]
	budget := b.vulkanBudget[heapIndex]
	atFetch := b.blockBytesAtFetch[heapIndex]
	b.mu.RUnlock()

	current := b.blockBytes[heapIndex].Load()

	switch {
	case budget == 0:
		budget = heapSize * 8 / 10
	case budget > heapSize:
		budget = heapSize
	}
	if usage == 0 && atFetch > 0 {
		usage = atFetch
	}
	if current > atFetch {
		usage += current - atFetch
	}
	return HeapBudget{Usage: usage, Budget: budget}
}
