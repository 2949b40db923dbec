// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package memory

import (
	"fmt"

	"github.com/gogpu/vkmem/hal/vulkan/driver"
)

// Config collects every construction option spec.md §6 recognizes, plus
// the concrete driver/device handles the allocator talks to. It is a
// plain struct with a DefaultConfig constructor, matching
// hal/vulkan/memory/allocator.go's AllocatorConfig/DefaultConfig — this
// corpus never uses the functional-options pattern.
type Config struct {
	Driver         driver.Driver
	Device         driver.Device
	PhysicalDevice driver.PhysicalDevice

	// PreferredLargeHeapBlockSize is used for heaps larger than
	// smallHeapMax; smaller heaps instead use heap_size/8, rounded up to
	// preferredBlockSizeAlignment (spec.md §6).
	PreferredLargeHeapBlockSize uint64
	// FrameInUseCount is the staleness window the lost-allocation policy
	// measures against.
	FrameInUseCount uint64
	// HeapSizeLimits gives a per-heap byte ceiling; index i applies to
	// heap i, a missing or zero entry means unlimited.
	HeapSizeLimits []uint64
	// MemoryTypeMinAlignment gives a per-type minimum alignment the
	// driver requires independent of any one resource's requirements;
	// index i applies to memory type i, a missing or zero entry means 1.
	MemoryTypeMinAlignment []uint64
	// BufferImageGranularity is VkPhysicalDeviceLimits.bufferImageGranularity;
	// 0 is treated as 1 (no page-granularity conflicts are possible).
	BufferImageGranularity uint64
	// NonCoherentAtomSize is VkPhysicalDeviceLimits.nonCoherentAtomSize,
	// the alignment Flush/Invalidate round mapped ranges to (spec.md
	// §4.7). 0 is treated as 1.
	NonCoherentAtomSize uint64

	// BudgetCapability is true when the driver exposes
	// VK_EXT_memory_budget.
	BudgetCapability bool
	// AllowAMDDeviceCoherent opts AMD device-coherent/uncached memory
	// types into the selectable set (spec.md §4.4).
	AllowAMDDeviceCoherent bool
	// BufferDeviceAddressCapability allows AllocateInfo.WithDeviceAddress
	// to be set on eligible dedicated allocations.
	BufferDeviceAddressCapability bool
	// IsIntegratedGPU changes the GpuOnly/CpuToGpu usage presets (spec.md
	// §4.4's "unless integrated GPU requested host-visible").
	IsIntegratedGPU bool
}

// DefaultConfig returns a Config with spec.md §6's documented defaults:
// 256 MiB preferred large-heap block size and a 2-frame lost-allocation
// window.
func DefaultConfig(drv driver.Driver, device driver.Device, physicalDevice driver.PhysicalDevice) Config {
	return Config{
		Driver:                      drv,
		Device:                      device,
		PhysicalDevice:              physicalDevice,
		PreferredLargeHeapBlockSize: defaultPreferredBlockSize,
		FrameInUseCount:             2,
		BufferImageGranularity:      1,
		NonCoherentAtomSize:         1,
	}
}

func (c Config) validate() error {
	if c.Driver == nil {
		return fmt.Errorf("vkmem: Config.Driver must not be nil")
	}
	if c.PreferredLargeHeapBlockSize == 0 {
		return fmt.Errorf("vkmem: Config.PreferredLargeHeapBlockSize must be non-zero")
	}
	return nil
}
