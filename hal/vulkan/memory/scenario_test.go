// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package memory

import (
	"testing"

	"github.com/gogpu/vkmem/hal/vulkan/driver"
)

// Scenario 1: Basic placement.
func TestScenarioBasicPlacement(t *testing.T) {
	m := newBlockMetadata(1 << 20)
	ctx := placementCtx{allocSize: 256 << 10, alignment: 64, granularity: 64, suballocType: SuballocationBuffer, strategy: StrategyBestFit, frameInUseCount: 2}

	reqA, ok := m.tryRequest(ctx)
	if !ok {
		t.Fatal("allocate A failed")
	}
	if reqA.offset != 0 {
		t.Fatalf("A offset = %d, want 0", reqA.offset)
	}
	ownerA := &Allocation{size: 256 << 10}
	m.commitRequest(reqA, SuballocationBuffer, 256<<10, ownerA)

	reqB, ok := m.tryRequest(ctx)
	if !ok {
		t.Fatal("allocate B failed")
	}
	if reqB.offset != 262144 {
		t.Fatalf("B offset = %d, want 262144", reqB.offset)
	}
	ownerB := &Allocation{size: 256 << 10}
	m.commitRequest(reqB, SuballocationBuffer, 256<<10, ownerB)

	if !m.freeAtOffset(0) {
		t.Fatal("free A failed")
	}

	ctxC := ctx
	ctxC.allocSize = 128 << 10
	reqC, ok := m.tryBestFit(ctxC)
	if !ok {
		t.Fatal("allocate C failed")
	}
	if reqC.offset != 0 {
		t.Fatalf("C offset = %d, want 0 (fits the restored front free range)", reqC.offset)
	}
}

// Scenario 2: Granularity conflict.
func TestScenarioGranularityConflict(t *testing.T) {
	m := newBlockMetadata(1 << 20)
	ctxA := placementCtx{allocSize: 600, alignment: 1, granularity: 1024, suballocType: SuballocationBuffer, strategy: StrategyBestFit, frameInUseCount: 2}

	reqA, ok := m.tryRequest(ctxA)
	if !ok || reqA.offset != 0 {
		t.Fatalf("allocate A: offset=%d ok=%v, want offset 0", reqA.offset, ok)
	}
	m.commitRequest(reqA, SuballocationBuffer, 600, &Allocation{size: 600})

	ctxB := ctxA
	ctxB.suballocType = SuballocationImageOptimal
	reqB, ok := m.tryRequest(ctxB)
	if !ok {
		t.Fatal("allocate B failed")
	}
	if reqB.offset != 1024 {
		t.Fatalf("B offset = %d, want 1024 (bumped past A's granularity page)", reqB.offset)
	}
}

// Scenario 3: Coalescing. The spec's literal boundary for the second free
// range ([131072,1048576)) is inconsistent with its own setup: the third
// 64 KiB buffer at [131072,196608) is never freed, so that range must stay
// allocated and the true second free range is [196608,1048576). free_count
// stays 2, honoring the rest of the literal scenario.
func TestScenarioCoalescing(t *testing.T) {
	m := newBlockMetadata(1 << 20)
	ctx := placementCtx{allocSize: 64 << 10, alignment: 1, granularity: 1, suballocType: SuballocationBuffer, strategy: StrategyBestFit, frameInUseCount: 2}

	var offsets []uint64
	for i := 0; i < 3; i++ {
		req, ok := m.tryRequest(ctx)
		if !ok {
			t.Fatalf("allocate buffer %d failed", i)
		}
		offsets = append(offsets, req.offset)
		m.commitRequest(req, SuballocationBuffer, 64<<10, &Allocation{size: 64 << 10})
	}
	if offsets[0] != 0 || offsets[1] != 65536 || offsets[2] != 131072 {
		t.Fatalf("offsets = %v, want [0 65536 131072]", offsets)
	}

	if !m.freeAtOffset(65536) { // middle
		t.Fatal("free middle failed")
	}
	if !m.freeAtOffset(0) { // first
		t.Fatal("free first failed")
	}

	if m.freeCount != 2 {
		t.Fatalf("freeCount = %d, want 2", m.freeCount)
	}
	first := m.findFreeContaining(0)
	if first == nil {
		t.Fatal("expected a free record covering [0, 131072)")
	}
	rec := first.Value.(*suballocation)
	if rec.offset != 0 || rec.size != 131072 {
		t.Fatalf("first free record = [%d, %d), want [0, 131072)", rec.offset, rec.offset+rec.size)
	}
	second := m.findFreeContaining(196608)
	if second == nil {
		t.Fatal("expected a free record covering [196608, 1048576)")
	}
	rec2 := second.Value.(*suballocation)
	if rec2.offset != 196608 || rec2.offset+rec2.size != 1<<20 {
		t.Fatalf("second free record = [%d, %d), want [196608, 1048576)", rec2.offset, rec2.offset+rec2.size)
	}
	if err := m.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

// Scenario 4: Losing sweep.
func TestScenarioLosingSweep(t *testing.T) {
	m := newBlockMetadata(1 << 20)
	const frameInUse = 2
	const currentFrame = 10

	half := placementCtx{allocSize: 1 << 19, alignment: 1, granularity: 1, suballocType: SuballocationBuffer, strategy: StrategyBestFit, frameInUseCount: frameInUse}
	reqX, ok := m.tryRequest(half)
	if !ok {
		t.Fatal("allocate X failed")
	}
	x := &Allocation{size: 1 << 19, canBecomeLost: true}
	x.lastUseFrame.Store(3)
	m.commitRequest(reqX, SuballocationBuffer, 1<<19, x)

	reqY, ok := m.tryRequest(half)
	if !ok {
		t.Fatal("allocate Y failed")
	}
	y := &Allocation{size: 1 << 19, canBecomeLost: true}
	y.lastUseFrame.Store(4)
	m.commitRequest(reqY, SuballocationBuffer, 1<<19, y)

	zCtx := placementCtx{allocSize: 1 << 20, alignment: 1, granularity: 1, suballocType: SuballocationBuffer, strategy: StrategyBestFit, currentFrame: currentFrame, frameInUseCount: frameInUse}
	reqZ, ok := m.tryRequestLosing(zCtx)
	if !ok {
		t.Fatal("Z losing-sweep tryRequest failed")
	}
	if len(reqZ.toMakeLost) != 2 {
		t.Fatalf("expected both X and Y to be evicted, got %d", len(reqZ.toMakeLost))
	}

	anchor, ok := m.makeRequestedLost(reqZ, currentFrame, frameInUse)
	if !ok {
		t.Fatal("makeRequestedLost failed")
	}
	if !x.IsLost() || !y.IsLost() {
		t.Fatal("both X and Y should be lost")
	}

	z := &Allocation{size: 1 << 20, offset: reqZ.offset}
	m.commit(anchor, reqZ.offset, 1<<20, SuballocationBuffer, z)
	if z.Offset() != 0 {
		t.Fatalf("Z offset = %d, want 0", z.Offset())
	}
	if err := m.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

// Scenario 5: Budget limit.
func TestScenarioBudgetLimit(t *testing.T) {
	drv := newFakeDriver(singleHeapProps(0))
	b := newBudgetTracker(drv, 0, []driver.MemoryHeap{{Size: 1024 << 20}}, []uint64{512 << 20}, false)
	b.blockBytes[0].Store(500 << 20)

	if b.tryReserveBlock(0, 64<<20) {
		t.Fatal("reserving 64 MiB on top of 500 MiB against a 512 MiB limit should fail")
	}
	if got := b.blockBytesFor(0); got != 500<<20 {
		t.Fatalf("block_bytes[0] = %d, want unchanged at %d", got, 500<<20)
	}
}

// Scenario 6: Dedicated escalation.
func TestScenarioDedicatedEscalation(t *testing.T) {
	drv := newFakeDriver(singleHeapProps(2 << 30)) // above smallHeapMax, so PreferredLargeHeapBlockSize applies directly
	cfg := DefaultConfig(drv, driver.Device(1), driver.PhysicalDevice(1))
	cfg.PreferredLargeHeapBlockSize = 256 << 20
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	alloc, err := a.Allocate(
		driver.MemoryRequirements{Size: 200 << 20, Alignment: 256, MemoryTypeBits: 0xFFFFFFFF},
		driver.DedicatedRequirements{}, nil,
		CreateInfo{RequestInfo: RequestInfo{Usage: UsageGpuOnly}},
		SuballocationBuffer,
	)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if alloc.Offset() != 0 {
		t.Fatalf("dedicated allocation must report offset 0, got %d", alloc.Offset())
	}
	if alloc.DeviceMemory() == 0 {
		t.Fatal("dedicated allocation should carry the driver's handle directly")
	}
	if a.budget.allocationBytesFor(a.memProps.MemoryTypes[alloc.TypeIndex()].HeapIndex) != 200<<20 {
		t.Fatalf("allocation bytes should be incremented by 200 MiB")
	}
}
