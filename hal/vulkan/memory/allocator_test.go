// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package memory

import (
	"errors"
	"testing"

	"github.com/gogpu/vkmem/hal/vulkan/driver"
)

func newTestAllocator(t *testing.T, drv *fakeDriver) *Allocator {
	t.Helper()
	cfg := DefaultConfig(drv, driver.Device(1), driver.PhysicalDevice(1))
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return a
}

func TestAllocatorAllocateFreeRoundTrip(t *testing.T) {
	drv := newFakeDriver(singleHeapProps(1 << 30))
	a := newTestAllocator(t, drv)

	alloc, err := a.Allocate(
		driver.MemoryRequirements{Size: 4096, Alignment: 256, MemoryTypeBits: 0xFFFFFFFF},
		driver.DedicatedRequirements{},
		nil,
		CreateInfo{RequestInfo: RequestInfo{Usage: UsageGpuOnly}},
		SuballocationBuffer,
	)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if alloc.TypeIndex() != 0 {
		t.Fatalf("expected GpuOnly to land on type 0, got %d", alloc.TypeIndex())
	}
	if err := a.Free(alloc); err != nil {
		t.Fatalf("Free failed: %v", err)
	}
	// Freeing twice must be idempotent.
	if err := a.Free(alloc); err != nil {
		t.Fatalf("second Free should be a no-op, got: %v", err)
	}
}

func TestAllocatorZeroSizeRejected(t *testing.T) {
	drv := newFakeDriver(singleHeapProps(1 << 30))
	a := newTestAllocator(t, drv)

	_, err := a.Allocate(driver.MemoryRequirements{Size: 0, Alignment: 1, MemoryTypeBits: 0xFFFFFFFF},
		driver.DedicatedRequirements{}, nil, CreateInfo{}, SuballocationBuffer)
	var aerr *AllocError
	if !errors.As(err, &aerr) || !errors.Is(aerr, ErrZeroSize) {
		t.Fatalf("expected ErrZeroSize, got %v", err)
	}
}

func TestAllocatorInvalidAlignmentRejected(t *testing.T) {
	drv := newFakeDriver(singleHeapProps(1 << 30))
	a := newTestAllocator(t, drv)

	_, err := a.Allocate(driver.MemoryRequirements{Size: 4096, Alignment: 3, MemoryTypeBits: 0xFFFFFFFF},
		driver.DedicatedRequirements{}, nil, CreateInfo{}, SuballocationBuffer)
	var aerr *AllocError
	if !errors.As(err, &aerr) || !errors.Is(aerr, ErrInvalidAlignment) {
		t.Fatalf("expected ErrInvalidAlignment, got %v", err)
	}
}

func TestAllocatorIncompatibleFlagsRejected(t *testing.T) {
	drv := newFakeDriver(singleHeapProps(1 << 30))
	a := newTestAllocator(t, drv)

	reqs := driver.MemoryRequirements{Size: 4096, Alignment: 256, MemoryTypeBits: 0xFFFFFFFF}
	tests := []struct {
		name  string
		flags AllocationFlags
	}{
		{"dedicated+never-allocate", FlagDedicatedMemory | FlagNeverAllocate},
		{"mapped+can-become-lost", FlagMapped | FlagCanBecomeLost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Allocate(reqs, driver.DedicatedRequirements{}, nil,
				CreateInfo{Flags: tt.flags}, SuballocationBuffer)
			var aerr *AllocError
			if !errors.As(err, &aerr) || !errors.Is(aerr, ErrIncompatibleFlags) {
				t.Fatalf("expected ErrIncompatibleFlags, got %v", err)
			}
		})
	}
}

func TestAllocatorNoSuitableMemoryType(t *testing.T) {
	drv := newFakeDriver(singleHeapProps(1 << 30))
	a := newTestAllocator(t, drv)

	_, err := a.Allocate(
		driver.MemoryRequirements{Size: 4096, Alignment: 256, MemoryTypeBits: 0xFFFFFFFF},
		driver.DedicatedRequirements{}, nil,
		CreateInfo{RequestInfo: RequestInfo{RequiredFlags: driver.MemoryPropertyProtectedBit}},
		SuballocationBuffer,
	)
	var aerr *AllocError
	if !errors.As(err, &aerr) || aerr.Kind != KindFeatureNotPresent {
		t.Fatalf("expected KindFeatureNotPresent, got %v", err)
	}
}

func TestAllocatorLargeRequestRoutesDedicated(t *testing.T) {
	drv := newFakeDriver(singleHeapProps(1 << 30))
	a := newTestAllocator(t, drv)

	big := a.blockSizeForHeap(0)/2 + 1
	alloc, err := a.Allocate(
		driver.MemoryRequirements{Size: big, Alignment: 256, MemoryTypeBits: 0xFFFFFFFF},
		driver.DedicatedRequirements{}, nil,
		CreateInfo{RequestInfo: RequestInfo{Usage: UsageGpuOnly}},
		SuballocationBuffer,
	)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if a.dedicatedSets[alloc.TypeIndex()].len() != 1 {
		t.Fatal("a request over half the block size should take the dedicated path")
	}
	if err := a.Free(alloc); err != nil {
		t.Fatalf("Free failed: %v", err)
	}
	if a.dedicatedSets[alloc.TypeIndex()].len() != 0 {
		t.Fatal("dedicated set should be empty after Free")
	}
}

func TestAllocatorDriverRequiredDedicated(t *testing.T) {
	drv := newFakeDriver(singleHeapProps(1 << 30))
	a := newTestAllocator(t, drv)

	alloc, err := a.Allocate(
		driver.MemoryRequirements{Size: 4096, Alignment: 256, MemoryTypeBits: 0xFFFFFFFF},
		driver.DedicatedRequirements{RequiresDedicatedAllocation: true}, nil,
		CreateInfo{RequestInfo: RequestInfo{Usage: UsageGpuOnly}},
		SuballocationBuffer,
	)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if a.dedicatedSets[alloc.TypeIndex()].len() != 1 {
		t.Fatal("a driver-required-dedicated resource should take the dedicated path even when small")
	}
}

func TestAllocatorPoolPlusDedicatedRequiredRejected(t *testing.T) {
	drv := newFakeDriver(singleHeapProps(1 << 30))
	a := newTestAllocator(t, drv)

	pool, err := a.CreatePool(PoolCreateInfo{TypeIndex: 0})
	if err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}
	_, err = a.Allocate(
		driver.MemoryRequirements{Size: 4096, Alignment: 256, MemoryTypeBits: 0xFFFFFFFF},
		driver.DedicatedRequirements{RequiresDedicatedAllocation: true}, nil,
		CreateInfo{Pool: pool},
		SuballocationBuffer,
	)
	var aerr *AllocError
	if !errors.As(err, &aerr) || !errors.Is(aerr, ErrIncompatibleFlags) {
		t.Fatalf("expected ErrIncompatibleFlags when a pool request needs a dedicated allocation, got %v", err)
	}
}

func TestAllocatorPoolLifecycle(t *testing.T) {
	drv := newFakeDriver(singleHeapProps(1 << 30))
	a := newTestAllocator(t, drv)

	pool, err := a.CreatePool(PoolCreateInfo{TypeIndex: 0})
	if err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}
	alloc, err := a.Allocate(
		driver.MemoryRequirements{Size: 4096, Alignment: 256, MemoryTypeBits: 0xFFFFFFFF},
		driver.DedicatedRequirements{}, nil,
		CreateInfo{Pool: pool},
		SuballocationBuffer,
	)
	if err != nil {
		t.Fatalf("pool Allocate failed: %v", err)
	}
	if err := a.DestroyPool(pool); err == nil {
		t.Fatal("DestroyPool should fail while the pool still has a live allocation")
	}
	if err := a.Free(alloc); err != nil {
		t.Fatalf("Free failed: %v", err)
	}
	if err := a.DestroyPool(pool); err != nil {
		t.Fatalf("DestroyPool should succeed once the pool is empty: %v", err)
	}
}

func TestAllocatorDisposeRejectsLivePools(t *testing.T) {
	drv := newFakeDriver(singleHeapProps(1 << 30))
	a := newTestAllocator(t, drv)

	pool, err := a.CreatePool(PoolCreateInfo{TypeIndex: 0})
	if err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}
	if err := a.Dispose(); err == nil {
		t.Fatal("Dispose should fail with a live pool")
	}
	if err := a.DestroyPool(pool); err != nil {
		t.Fatalf("DestroyPool failed: %v", err)
	}
	if err := a.Dispose(); err != nil {
		t.Fatalf("Dispose should succeed with no live pools or dedicated allocations: %v", err)
	}
}

func TestAllocatorStatsRollup(t *testing.T) {
	drv := newFakeDriver(singleHeapProps(1 << 30))
	a := newTestAllocator(t, drv)

	alloc, err := a.Allocate(
		driver.MemoryRequirements{Size: 4096, Alignment: 256, MemoryTypeBits: 0xFFFFFFFF},
		driver.DedicatedRequirements{}, nil,
		CreateInfo{RequestInfo: RequestInfo{Usage: UsageGpuOnly}},
		SuballocationBuffer,
	)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	stats := a.Stats()
	if stats.PerType[alloc.TypeIndex()].AllocationCount != 1 {
		t.Fatalf("Stats().PerType[%d].AllocationCount = %d, want 1", alloc.TypeIndex(), stats.PerType[alloc.TypeIndex()].AllocationCount)
	}
}

func TestAllocatorMapUnmapAndFlush(t *testing.T) {
	drv := newFakeDriver(singleHeapProps(1 << 30))
	a := newTestAllocator(t, drv)

	alloc, err := a.Allocate(
		driver.MemoryRequirements{Size: 4096, Alignment: 256, MemoryTypeBits: 0xFFFFFFFF},
		driver.DedicatedRequirements{}, nil,
		CreateInfo{RequestInfo: RequestInfo{Usage: UsageCpuOnly}},
		SuballocationBuffer,
	)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	ptr, err := a.Map(alloc)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if ptr == 0 {
		t.Fatal("Map returned a nil pointer")
	}
	if err := a.Flush(alloc, 0, driver.WholeSize); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if err := a.Invalidate(alloc, 0, driver.WholeSize); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	a.Unmap(alloc)
}

func TestAllocatorFlushSkipsCoherentMemory(t *testing.T) {
	drv := newFakeDriver(singleHeapProps(1 << 30))
	a := newTestAllocator(t, drv)

	// UsageCpuOnly requires HostCoherent, so type 1 (the only host-visible
	// type in the fixture) is coherent: Flush/Invalidate should be no-ops.
	alloc, err := a.Allocate(
		driver.MemoryRequirements{Size: 4096, Alignment: 256, MemoryTypeBits: 0xFFFFFFFF},
		driver.DedicatedRequirements{}, nil,
		CreateInfo{RequestInfo: RequestInfo{Usage: UsageCpuOnly}},
		SuballocationBuffer,
	)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if _, err := a.Map(alloc); err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if err := a.Flush(alloc, 0, 100); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if drv.flushCalls != 0 {
		t.Fatalf("Flush on coherent memory should not reach the driver, got %d calls", drv.flushCalls)
	}
}

func TestAllocatorAdvanceFrame(t *testing.T) {
	drv := newFakeDriver(singleHeapProps(1 << 30))
	a := newTestAllocator(t, drv)

	if a.CurrentFrame() != 0 {
		t.Fatalf("CurrentFrame() = %d, want 0", a.CurrentFrame())
	}
	a.AdvanceFrame()
	a.AdvanceFrame()
	if a.CurrentFrame() != 2 {
		t.Fatalf("CurrentFrame() = %d, want 2", a.CurrentFrame())
	}
}
