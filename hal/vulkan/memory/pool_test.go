// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package memory

import (
	"testing"

	"github.com/gogpu/vkmem/hal/vulkan/driver"
)

func TestPoolMakeAllocationsLost(t *testing.T) {
	drv := newFakeDriver(singleHeapProps(1 << 30))
	a := newTestAllocator(t, drv)

	pool, err := a.CreatePool(PoolCreateInfo{TypeIndex: 0, FrameInUseCount: 2})
	if err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}
	alloc, err := a.Allocate(
		driver.MemoryRequirements{Size: 4096, Alignment: 256, MemoryTypeBits: 0xFFFFFFFF},
		driver.DedicatedRequirements{}, nil,
		CreateInfo{Pool: pool, Flags: FlagCanBecomeLost},
		SuballocationBuffer,
	)
	if err != nil {
		t.Fatalf("pool Allocate failed: %v", err)
	}
	alloc.Touch(0)

	a.AdvanceFrame() // frame 1: still within frameInUse=2 of frame 0, not stale yet
	if lost := pool.MakeAllocationsLost(a.CurrentFrame()); lost != 0 {
		t.Fatalf("MakeAllocationsLost at frame 1 = %d, want 0 (not stale yet)", lost)
	}

	for i := 0; i < 5; i++ {
		a.AdvanceFrame()
	}
	if lost := pool.MakeAllocationsLost(a.CurrentFrame()); lost != 1 {
		t.Fatalf("MakeAllocationsLost at frame %d = %d, want 1", a.CurrentFrame(), lost)
	}
	if !alloc.IsLost() {
		t.Fatal("allocation should be marked lost")
	}
	if !pool.IsEmpty() {
		t.Fatal("pool should be empty after its only allocation is lost")
	}
}

func TestPoolIDUnique(t *testing.T) {
	drv := newFakeDriver(singleHeapProps(1 << 30))
	a := newTestAllocator(t, drv)

	p1, err := a.CreatePool(PoolCreateInfo{TypeIndex: 0})
	if err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}
	p2, err := a.CreatePool(PoolCreateInfo{TypeIndex: 1})
	if err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}
	if p1.ID() == p2.ID() || p1.ID() == 0 || p2.ID() == 0 {
		t.Fatalf("expected distinct non-zero pool ids, got %d and %d", p1.ID(), p2.ID())
	}
}
