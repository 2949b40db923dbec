// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package memory

import (
	"sort"
	"sync"

	"github.com/gogpu/vkmem/hal/vulkan/driver"
)

// dedicatedSet is the per-memory-type sorted set of whole-block allocations
// (spec.md §3 "DedicatedSet"). Reads (stats, validation) are frequent;
// writes (insert/remove on allocate/free) are rare, so a reader-writer
// lock guards it, mirroring spec.md §5's lock table.
type dedicatedSet struct {
	mu      sync.RWMutex
	entries []*Allocation // ordered by ascending driver memory handle
}

func (s *dedicatedSet) insert(a *Allocation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].memory >= a.memory
	})
	s.entries = append(s.entries, nil)
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = a
}

func (s *dedicatedSet) remove(a *Allocation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e == a {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (s *dedicatedSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// dedicatedAllocator implements spec.md §4.3's dedicated path: a whole
// driver allocation backing exactly one handle.
type dedicatedAllocator struct {
	drv            driver.Driver
	device         driver.Device
	budget         *budgetTracker
	withDeviceAddr bool
}

func (d *dedicatedAllocator) allocate(typeIndex, heapIndex uint32, size uint64, dedicated *driver.DedicatedResource, flags AllocationFlags, deviceAddressEligible bool) (*Allocation, *AllocError) {
	if flags.has(FlagWithinBudget) {
		hb := d.budget.HeapBudget(heapIndex)
		if hb.Usage+size > hb.Budget {
			return nil, newErr("dedicatedAllocate", KindOutOfDeviceMemory, ErrBudgetExceeded)
		}
	}

	// A dedicated allocation counts as its own "block" against the heap limit.
	if !d.budget.tryReserveBlock(heapIndex, size) {
		return nil, newErr("dedicatedAllocate", KindOutOfDeviceMemory, ErrBudgetExceeded)
	}

	info := driver.AllocateInfo{
		Size:              size,
		MemoryTypeIndex:   typeIndex,
		Dedicated:         dedicated,
		WithDeviceAddress: d.withDeviceAddr && deviceAddressEligible,
	}
	mem, res := d.drv.AllocateMemory(d.device, info)
	if res != driver.Success {
		d.budget.releaseBlock(heapIndex, size)
		return nil, wrapDriver("AllocateMemory", res)
	}

	alloc := &Allocation{
		kind:      kindDedicated,
		typeIndex: typeIndex,
		size:      size,
		memory:    mem,
	}
	alloc.lastUseFrame.Store(0)

	if flags.has(FlagMapped) {
		ptr, mres := d.drv.MapMemory(d.device, mem, 0, driver.WholeSize)
		if mres != driver.Success {
			d.drv.FreeMemory(d.device, mem)
			d.budget.releaseBlock(heapIndex, size)
			return nil, wrapDriver("MapMemory", mres)
		}
		alloc.dedicatedMapPtr = ptr
		alloc.dedicatedMaps = 1
	}

	d.budget.addAllocationBytes(heapIndex, size)
	return alloc, nil
}

func (d *dedicatedAllocator) free(a *Allocation, heapIndex uint32) {
	if a.dedicatedMaps > 0 {
		d.drv.UnmapMemory(d.device, a.memory)
	}
	d.drv.FreeMemory(d.device, a.memory)
	d.budget.releaseBlock(heapIndex, a.size)
	d.budget.subAllocationBytes(heapIndex, a.size)
}
