// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"testing"

	"github.com/gogpu/vkmem/hal/vulkan/driver"
	"github.com/gogpu/vkmem/hal/vulkan/memory"
	"github.com/gogpu/vkmem/hal/vulkan/simdriver"
)

func newTestAllocator(t *testing.T) (*simdriver.Driver, *memory.Allocator) {
	t.Helper()
	drv := simdriver.NewDriver()
	cfg := memory.DefaultConfig(drv, driver.Device(1), driver.PhysicalDevice(1))
	a, err := memory.New(cfg)
	if err != nil {
		t.Fatalf("memory.New failed: %v", err)
	}
	return drv, a
}

func TestCreateBufferRoundTrip(t *testing.T) {
	drv, a := newTestAllocator(t)

	buf, err := CreateBuffer(drv, driver.Device(1), a,
		driver.BufferCreateInfo{Size: 65536, Usage: 0x20}, // VK_BUFFER_USAGE_STORAGE_BUFFER_BIT
		memory.CreateInfo{RequestInfo: memory.RequestInfo{Usage: memory.UsageGpuOnly}},
	)
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}
	if buf.Handle() == 0 {
		t.Fatal("expected non-zero buffer handle")
	}
	if buf.Allocation().Size() < 65536 {
		t.Fatalf("allocation size = %d, want >= 65536", buf.Allocation().Size())
	}

	DestroyBuffer(drv, driver.Device(1), a, buf)
	if buf.handle != 0 || buf.alloc != nil {
		t.Fatal("DestroyBuffer should clear both handle and allocation")
	}
}

func TestCreateImageRoundTrip(t *testing.T) {
	drv, a := newTestAllocator(t)

	img, err := CreateImage(drv, driver.Device(1), a,
		driver.ImageCreateInfo{Width: 256, Height: 256, Depth: 1, MipLevels: 1, ArrayLayers: 1, Optimal: true},
		memory.CreateInfo{RequestInfo: memory.RequestInfo{Usage: memory.UsageGpuOnly}},
	)
	if err != nil {
		t.Fatalf("CreateImage failed: %v", err)
	}
	if img.Handle() == 0 {
		t.Fatal("expected non-zero image handle")
	}

	DestroyImage(drv, driver.Device(1), a, img)
	if img.handle != 0 || img.alloc != nil {
		t.Fatal("DestroyImage should clear both handle and allocation")
	}
}

func TestCreateBufferAllocationFailureRollsBack(t *testing.T) {
	drv, a := newTestAllocator(t)

	// A zero-size buffer request is rejected by the allocator before any
	// driver bind call, exercising the rollback path without needing to
	// fake a bind failure inside simdriver itself.
	_, err := CreateBuffer(drv, driver.Device(1), a,
		driver.BufferCreateInfo{Size: 0},
		memory.CreateInfo{RequestInfo: memory.RequestInfo{Usage: memory.UsageGpuOnly}},
	)
	if err == nil {
		t.Fatal("expected error allocating zero-size buffer")
	}
}
