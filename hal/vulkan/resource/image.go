// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"fmt"

	"github.com/gogpu/vkmem/hal/vulkan/driver"
	"github.com/gogpu/vkmem/hal/vulkan/memory"
)

// Image is a driver image bound to allocator-owned memory.
type Image struct {
	handle driver.Image
	alloc  *memory.Allocation
}

// Handle returns the underlying VkImage.
func (im *Image) Handle() driver.Image { return im.handle }

// Allocation returns the memory backing the image.
func (im *Image) Allocation() *memory.Allocation { return im.alloc }

// CreateImage creates a VkImage via drv, allocates memory for it through
// alloc, and binds the two together, rolling back on any failure past
// vkCreateImage. The suballocation type follows info.Optimal so the
// allocator's page-granularity conflict check sees the right tiling.
func CreateImage(drv driver.Driver, device driver.Device, alloc *memory.Allocator, info driver.ImageCreateInfo, create memory.CreateInfo) (*Image, error) {
	handle, result := drv.CreateImage(device, info)
	if result != driver.Success {
		return nil, fmt.Errorf("resource: vkCreateImage failed: %s", result)
	}

	reqs, dedicatedReqs := drv.GetImageMemoryRequirements(device, handle)

	var dedicated *driver.DedicatedResource
	if dedicatedReqs.RequiresDedicatedAllocation || dedicatedReqs.PrefersDedicatedAllocation {
		dedicated = &driver.DedicatedResource{Image: handle}
	}

	suballocType := memory.SuballocationImageOptimal
	if !info.Optimal {
		suballocType = memory.SuballocationImageLinear
	}

	a, err := alloc.Allocate(reqs, dedicatedReqs, dedicated, create, suballocType)
	if err != nil {
		drv.DestroyImage(device, handle)
		return nil, fmt.Errorf("resource: failed to allocate image memory: %w", err)
	}

	if result := drv.BindImageMemory(device, handle, a.DeviceMemory(), a.Offset()); result != driver.Success {
		_ = alloc.Free(a)
		drv.DestroyImage(device, handle)
		return nil, fmt.Errorf("resource: vkBindImageMemory failed: %s", result)
	}

	return &Image{handle: handle, alloc: a}, nil
}

// DestroyImage destroys the image and frees its backing memory.
func DestroyImage(drv driver.Driver, device driver.Device, alloc *memory.Allocator, im *Image) {
	if im == nil {
		return
	}
	if im.handle != 0 {
		drv.DestroyImage(device, im.handle)
		im.handle = 0
	}
	if im.alloc != nil {
		_ = alloc.Free(im.alloc)
		im.alloc = nil
	}
}
