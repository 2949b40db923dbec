// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package memory

import (
	"testing"

	"github.com/gogpu/vkmem/hal/vulkan/driver"
)

// nonCoherentHeapProps is a single memory type that is host-visible but not
// host-coherent, forcing Flush/Invalidate to reach the driver.
func nonCoherentHeapProps(heapSize uint64) driver.MemoryProperties {
	return driver.MemoryProperties{
		MemoryTypes: []driver.MemoryType{
			{PropertyFlags: driver.MemoryPropertyHostVisibleBit | driver.MemoryPropertyHostCachedBit, HeapIndex: 0},
		},
		MemoryHeaps: []driver.MemoryHeap{{Size: heapSize}},
	}
}

func TestFlushNonCoherentReachesDriver(t *testing.T) {
	drv := newFakeDriver(nonCoherentHeapProps(1 << 30))
	cfg := DefaultConfig(drv, driver.Device(1), driver.PhysicalDevice(1))
	cfg.NonCoherentAtomSize = 64
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	alloc, err := a.Allocate(
		driver.MemoryRequirements{Size: 4096, Alignment: 256, MemoryTypeBits: 0xFFFFFFFF},
		driver.DedicatedRequirements{}, nil,
		CreateInfo{RequestInfo: RequestInfo{RequiredFlags: driver.MemoryPropertyHostVisibleBit}},
		SuballocationBuffer,
	)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if _, err := a.Map(alloc); err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if err := a.Flush(alloc, 10, 20); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if drv.flushCalls != 1 {
		t.Fatalf("expected Flush to reach the driver once, got %d calls", drv.flushCalls)
	}
	if err := a.Invalidate(alloc, 0, driver.WholeSize); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if drv.invalidateCalls != 1 {
		t.Fatalf("expected Invalidate to reach the driver once, got %d calls", drv.invalidateCalls)
	}
	a.Unmap(alloc)
}

func TestMapRefCountsAcrossAllocationsInTheSameBlock(t *testing.T) {
	drv := newFakeDriver(singleHeapProps(1 << 30))
	a := newTestAllocator(t, drv)

	a1, err := a.Allocate(
		driver.MemoryRequirements{Size: 4096, Alignment: 256, MemoryTypeBits: 0xFFFFFFFF},
		driver.DedicatedRequirements{}, nil,
		CreateInfo{RequestInfo: RequestInfo{Usage: UsageGpuOnly}},
		SuballocationBuffer,
	)
	if err != nil {
		t.Fatalf("Allocate a1 failed: %v", err)
	}
	a2, err := a.Allocate(
		driver.MemoryRequirements{Size: 4096, Alignment: 256, MemoryTypeBits: 0xFFFFFFFF},
		driver.DedicatedRequirements{}, nil,
		CreateInfo{RequestInfo: RequestInfo{Usage: UsageGpuOnly}},
		SuballocationBuffer,
	)
	if err != nil {
		t.Fatalf("Allocate a2 failed: %v", err)
	}
	if a1.block != a2.block {
		t.Fatal("both small allocations should land in the same block")
	}

	p1, err := a.Map(a1)
	if err != nil {
		t.Fatalf("Map a1 failed: %v", err)
	}
	p2, err := a.Map(a2)
	if err != nil {
		t.Fatalf("Map a2 failed: %v", err)
	}
	if p1 == p2 {
		t.Fatal("two allocations at different offsets should map to different pointers")
	}
	if !a1.block.IsMapped() {
		t.Fatal("block should report mapped while any allocation holds a reference")
	}
	a.Unmap(a1)
	if !a1.block.IsMapped() {
		t.Fatal("block should still be mapped while a2's reference is live")
	}
	a.Unmap(a2)
	if a1.block.IsMapped() {
		t.Fatal("block should be unmapped once every reference is released")
	}
}
