// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Command allocdemo exercises the allocator end to end against the
// in-process simulated driver: a buffer, an image, a custom pool, and an
// allocator stats report, narrated step by step.
package main

import (
	"fmt"
	"os"

	"github.com/gogpu/vkmem/hal/vulkan/driver"
	"github.com/gogpu/vkmem/hal/vulkan/memory"
	"github.com/gogpu/vkmem/hal/vulkan/resource"
	"github.com/gogpu/vkmem/hal/vulkan/simdriver"
)

const (
	device         = driver.Device(1)
	physicalDevice = driver.PhysicalDevice(1)
)

func main() {
	fmt.Println("=== vkmem Allocator Demo ===")
	fmt.Println()

	fmt.Print("1. Starting simulated driver... ")
	drv := simdriver.NewDriver()
	fmt.Println("OK")

	fmt.Print("2. Building allocator... ")
	cfg := memory.DefaultConfig(drv, device, physicalDevice)
	alloc, err := memory.New(cfg)
	if err != nil {
		fail("allocator.New", err)
	}
	defer alloc.Dispose()
	fmt.Println("OK")

	fmt.Print("3. Allocating a 64 KiB GPU-only buffer... ")
	buf, err := resource.CreateBuffer(drv, device, alloc,
		driver.BufferCreateInfo{Size: 64 << 10, Usage: 0x20},
		memory.CreateInfo{RequestInfo: memory.RequestInfo{Usage: memory.UsageGpuOnly}},
	)
	if err != nil {
		fail("CreateBuffer", err)
	}
	fmt.Printf("OK (type %d, offset %d)\n", buf.Allocation().TypeIndex(), buf.Allocation().Offset())

	fmt.Print("4. Allocating a 256x256 optimal-tiling image... ")
	img, err := resource.CreateImage(drv, device, alloc,
		driver.ImageCreateInfo{Width: 256, Height: 256, Depth: 1, MipLevels: 1, ArrayLayers: 1, Optimal: true, Usage: 0x10},
		memory.CreateInfo{RequestInfo: memory.RequestInfo{Usage: memory.UsageGpuOnly}},
	)
	if err != nil {
		fail("CreateImage", err)
	}
	fmt.Printf("OK (type %d, offset %d)\n", img.Allocation().TypeIndex(), img.Allocation().Offset())

	fmt.Print("5. Creating a custom pool and allocating from it... ")
	pool, err := alloc.CreatePool(memory.PoolCreateInfo{
		TypeIndex: 1, // host-visible + coherent, per simdriver.DefaultMemoryProperties
		BlockSize: 4 << 20,
	})
	if err != nil {
		fail("CreatePool", err)
	}
	poolAlloc, err := alloc.Allocate(
		driver.MemoryRequirements{Size: 1 << 20, Alignment: 256, MemoryTypeBits: 0xFFFFFFFF},
		driver.DedicatedRequirements{}, nil,
		memory.CreateInfo{RequestInfo: memory.RequestInfo{Usage: memory.UsageCpuToGpu}, Pool: pool},
		memory.SuballocationBuffer,
	)
	if err != nil {
		fail("Allocate from pool", err)
	}
	fmt.Printf("OK (offset %d)\n", poolAlloc.Offset())

	fmt.Print("6. Reporting allocator stats... ")
	stats := alloc.Stats()
	var usedBytes uint64
	var allocationCount int
	for _, s := range stats.PerType {
		usedBytes += s.UsedBytes
		allocationCount += s.AllocationCount
	}
	fmt.Printf("OK (%d bytes used across %d live allocations in the default pools)\n", usedBytes, allocationCount)

	fmt.Print("7. Freeing everything... ")
	_ = alloc.Free(poolAlloc)
	if err := alloc.DestroyPool(pool); err != nil {
		fail("DestroyPool", err)
	}
	resource.DestroyImage(drv, device, alloc, img)
	resource.DestroyBuffer(drv, device, alloc, buf)
	fmt.Println("OK")

	fmt.Println()
	fmt.Println("=== Demo complete ===")
}

func fail(step string, err error) {
	fmt.Printf("FAILED at %s: %v\n", step, err)
	os.Exit(1)
}
