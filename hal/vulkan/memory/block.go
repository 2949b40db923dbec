// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package memory

import (
	"sync"

	"github.com/gogpu/vkmem/hal/vulkan/driver"
)

// DeviceBlock owns one driver memory allocation, its sub-allocation
// metadata, and an optional persistent mapping (spec.md §3). mapCount is
// the number of live mappings across every Allocation carved from this
// block; the driver is asked to map only on the first and unmap only on
// the last (spec.md §4.7).
type DeviceBlock struct {
	memory    driver.DeviceMemory
	size      uint64
	typeIndex uint32
	metadata  *blockMetadata

	mapMu     sync.Mutex
	mapCount  int
	mappedPtr uintptr
}

func (b *DeviceBlock) mapRef(drv driver.Driver, device driver.Device) (uintptr, *AllocError) {
	b.mapMu.Lock()
	defer b.mapMu.Unlock()
	if b.mapCount == 0 {
		ptr, res := drv.MapMemory(device, b.memory, 0, driver.WholeSize)
		if res != driver.Success {
			return 0, wrapDriver("MapMemory", res)
		}
		b.mappedPtr = ptr
	}
	b.mapCount++
	return b.mappedPtr, nil
}

func (b *DeviceBlock) unmapRef(drv driver.Driver, device driver.Device) {
	b.mapMu.Lock()
	defer b.mapMu.Unlock()
	if b.mapCount == 0 {
		return
	}
	b.mapCount--
	if b.mapCount == 0 {
		drv.UnmapMemory(device, b.memory)
		b.mappedPtr = 0
	}
}

// IsMapped reports whether any allocation in this block currently holds a
// live mapping.
func (b *DeviceBlock) IsMapped() bool {
	b.mapMu.Lock()
	defer b.mapMu.Unlock()
	return b.mapCount > 0
}
