// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package memory

import (
	"github.com/gogpu/vkmem/hal/vulkan/driver"
)

func (a *Allocator) isCoherent(typeIndex uint32) bool {
	return a.memProps.MemoryTypes[typeIndex].PropertyFlags&driver.MemoryPropertyHostCoherentBit != 0
}

// Map implements spec.md §4.7: a block-backed handle goes through the
// block's reference-counted mapping; a dedicated handle maps its own
// memory directly.
func (a *Allocator) Map(alloc *Allocation) (uintptr, error) {
	if alloc.IsLost() {
		return 0, newErr("Map", KindInvalidState, ErrHandleAlreadyFreed)
	}
	if alloc.kind == kindDedicated {
		alloc.mu.Lock()
		defer alloc.mu.Unlock()
		if alloc.dedicatedMaps == 0 {
			ptr, res := a.cfg.Driver.MapMemory(a.cfg.Device, alloc.memory, 0, driver.WholeSize)
			if res != driver.Success {
				return 0, wrapDriver("MapMemory", res)
			}
			alloc.dedicatedMapPtr = ptr
		}
		alloc.dedicatedMaps++
		return alloc.dedicatedMapPtr, nil
	}
	base, aerr := alloc.block.mapRef(a.cfg.Driver, a.cfg.Device)
	if aerr != nil {
		return 0, aerr
	}
	return base + uintptr(alloc.offset), nil
}

// Unmap releases one mapping obtained from Map.
func (a *Allocator) Unmap(alloc *Allocation) {
	if alloc.kind == kindDedicated {
		alloc.mu.Lock()
		defer alloc.mu.Unlock()
		if alloc.dedicatedMaps == 0 {
			return
		}
		alloc.dedicatedMaps--
		if alloc.dedicatedMaps == 0 {
			a.cfg.Driver.UnmapMemory(a.cfg.Device, alloc.memory)
			alloc.dedicatedMapPtr = 0
		}
		return
	}
	alloc.block.unmapRef(a.cfg.Driver, a.cfg.Device)
}

// flushOrInvalidate computes the aligned mapped-memory range spec.md §4.7
// describes and, for a non-coherent memory type, issues the driver call.
func (a *Allocator) flushOrInvalidate(alloc *Allocation, offset, size uint64, invalidate bool) error {
	if alloc.IsLost() {
		return nil
	}
	if a.isCoherent(alloc.typeIndex) {
		return nil
	}
	if size == driver.WholeSize {
		size = alloc.Size() - offset
	}

	atom := a.cfg.NonCoherentAtomSize
	rangeBegin := (offset / atom) * atom
	rangeEndUnclamped := offset + size
	rangeEnd := ((rangeEndUnclamped + atom - 1) / atom) * atom
	if rangeEnd > alloc.Size() {
		rangeEnd = alloc.Size()
	}

	var deviceMemory driver.DeviceMemory
	var blockOffset uint64
	if alloc.kind == kindDedicated {
		deviceMemory = alloc.memory
		blockOffset = 0
	} else {
		deviceMemory = alloc.block.memory
		blockOffset = alloc.offset
	}

	mr := []driver.MappedRange{{
		Memory: deviceMemory,
		Offset: blockOffset + rangeBegin,
		Size:   rangeEnd - rangeBegin,
	}}

	var res driver.Result
	if invalidate {
		res = a.cfg.Driver.InvalidateMappedMemoryRanges(a.cfg.Device, mr)
	} else {
		res = a.cfg.Driver.FlushMappedMemoryRanges(a.cfg.Device, mr)
	}
	if res != driver.Success {
		op := "FlushMappedMemoryRanges"
		if invalidate {
			op = "InvalidateMappedMemoryRanges"
		}
		return wrapDriver(op, res)
	}
	return nil
}

// Flush implements spec.md §4.7's Flush(offset, size).
func (a *Allocator) Flush(alloc *Allocation, offset, size uint64) error {
	return a.flushOrInvalidate(alloc, offset, size, false)
}

// Invalidate implements spec.md §4.7's Invalidate(offset, size).
func (a *Allocator) Invalidate(alloc *Allocation, offset, size uint64) error {
	return a.flushOrInvalidate(alloc, offset, size, true)
}
