// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"fmt"

	"github.com/gogpu/vkmem/hal/vulkan/driver"
	"github.com/gogpu/vkmem/hal/vulkan/memory"
)

// Buffer is a driver buffer bound to allocator-owned memory.
type Buffer struct {
	handle driver.Buffer
	alloc  *memory.Allocation
	size   uint64
}

// Handle returns the underlying VkBuffer.
func (b *Buffer) Handle() driver.Buffer { return b.handle }

// Allocation returns the memory backing the buffer.
func (b *Buffer) Allocation() *memory.Allocation { return b.alloc }

// Size returns the buffer's requested size in bytes.
func (b *Buffer) Size() uint64 { return b.size }

// CreateBuffer creates a VkBuffer via drv, allocates memory for it through
// alloc, and binds the two together. On any failure past vkCreateBuffer it
// rolls back everything it already did.
func CreateBuffer(drv driver.Driver, device driver.Device, alloc *memory.Allocator, info driver.BufferCreateInfo, create memory.CreateInfo) (*Buffer, error) {
	handle, result := drv.CreateBuffer(device, info)
	if result != driver.Success {
		return nil, fmt.Errorf("resource: vkCreateBuffer failed: %s", result)
	}

	reqs, dedicatedReqs := drv.GetBufferMemoryRequirements(device, handle)

	var dedicated *driver.DedicatedResource
	if dedicatedReqs.RequiresDedicatedAllocation || dedicatedReqs.PrefersDedicatedAllocation {
		dedicated = &driver.DedicatedResource{Buffer: handle}
	}

	a, err := alloc.Allocate(reqs, dedicatedReqs, dedicated, create, memory.SuballocationBuffer)
	if err != nil {
		drv.DestroyBuffer(device, handle)
		return nil, fmt.Errorf("resource: failed to allocate buffer memory: %w", err)
	}

	if result := drv.BindBufferMemory(device, handle, a.DeviceMemory(), a.Offset()); result != driver.Success {
		_ = alloc.Free(a)
		drv.DestroyBuffer(device, handle)
		return nil, fmt.Errorf("resource: vkBindBufferMemory failed: %s", result)
	}

	return &Buffer{handle: handle, alloc: a, size: info.Size}, nil
}

// DestroyBuffer destroys the buffer and frees its backing memory.
func DestroyBuffer(drv driver.Driver, device driver.Device, alloc *memory.Allocator, b *Buffer) {
	if b == nil {
		return
	}
	if b.handle != 0 {
		drv.DestroyBuffer(device, b.handle)
		b.handle = 0
	}
	if b.alloc != nil {
		_ = alloc.Free(b.alloc)
		b.alloc = nil
	}
}
