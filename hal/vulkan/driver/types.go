// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package driver declares the contract between the vkmem allocator core
// and the underlying Vulkan driver. Only the operations the allocator
// needs are modeled: memory allocate/free/map, resource memory-requirement
// queries and binds, mapped-range flush/invalidate, and memory/heap
// property and budget queries.
//
// The allocator core (hal/vulkan/memory) depends only on the Driver
// interface declared here, never on a concrete binding. hal/vulkan/vk
// implements it against a real Vulkan loader via goffi; hal/vulkan/simdriver
// implements it in-process for tests and demos.
package driver

import "fmt"

// Device is an opaque VkDevice handle.
type Device uint64

// PhysicalDevice is an opaque VkPhysicalDevice handle.
type PhysicalDevice uint64

// DeviceMemory is an opaque VkDeviceMemory handle.
type DeviceMemory uint64

// Buffer is an opaque VkBuffer handle.
type Buffer uint64

// Image is an opaque VkImage handle.
type Image uint64

// Result mirrors VkResult. Zero is success; negative values are errors.
type Result int32

// Result codes the allocator distinguishes. Other negative values are
// surfaced verbatim via memory.KindDriverError.
const (
	Success                   Result = 0
	ErrorOutOfHostMemory      Result = -1
	ErrorOutOfDeviceMemory    Result = -2
	ErrorInitializationFailed Result = -3
	ErrorTooManyObjects       Result = -10
	ErrorMemoryMapFailed      Result = -10000 // allocator-internal, not a real VkResult
)

func (r Result) String() string {
	switch r {
	case Success:
		return "VK_SUCCESS"
	case ErrorOutOfHostMemory:
		return "VK_ERROR_OUT_OF_HOST_MEMORY"
	case ErrorOutOfDeviceMemory:
		return "VK_ERROR_OUT_OF_DEVICE_MEMORY"
	case ErrorInitializationFailed:
		return "VK_ERROR_INITIALIZATION_FAILED"
	case ErrorTooManyObjects:
		return "VK_ERROR_TOO_MANY_OBJECTS"
	default:
		return fmt.Sprintf("VkResult(%d)", int32(r))
	}
}

// MemoryPropertyFlags mirrors VkMemoryPropertyFlags.
type MemoryPropertyFlags uint32

const (
	MemoryPropertyDeviceLocalBit     MemoryPropertyFlags = 0x00000001
	MemoryPropertyHostVisibleBit     MemoryPropertyFlags = 0x00000002
	MemoryPropertyHostCoherentBit    MemoryPropertyFlags = 0x00000004
	MemoryPropertyHostCachedBit      MemoryPropertyFlags = 0x00000008
	MemoryPropertyLazilyAllocatedBit MemoryPropertyFlags = 0x00000010
	MemoryPropertyProtectedBit       MemoryPropertyFlags = 0x00000020
	MemoryPropertyDeviceCoherentAMD  MemoryPropertyFlags = 0x00000040
	MemoryPropertyDeviceUncachedAMD  MemoryPropertyFlags = 0x00000080
)

// MemoryHeapFlags mirrors VkMemoryHeapFlags.
type MemoryHeapFlags uint32

const (
	MemoryHeapDeviceLocalBit MemoryHeapFlags = 0x00000001
)

// MaxMemoryTypes and MaxMemoryHeaps mirror the Vulkan spec's fixed limits.
const (
	MaxMemoryTypes = 32
	MaxMemoryHeaps = 16
)

// WholeSize mirrors VK_WHOLE_SIZE: passed as a MapMemory/MappedRange size,
// it means "to the end of the allocation".
const WholeSize uint64 = ^uint64(0)

// MemoryType mirrors one entry of VkPhysicalDeviceMemoryProperties.memoryTypes.
type MemoryType struct {
	PropertyFlags MemoryPropertyFlags
	HeapIndex     uint32
}

// MemoryHeap mirrors one entry of VkPhysicalDeviceMemoryProperties.memoryHeaps.
type MemoryHeap struct {
	Size  uint64
	Flags MemoryHeapFlags
}

// MemoryProperties mirrors VkPhysicalDeviceMemoryProperties.
type MemoryProperties struct {
	MemoryTypes []MemoryType
	MemoryHeaps []MemoryHeap
}

// HeapBudget mirrors one entry of VkPhysicalDeviceMemoryBudgetPropertiesEXT,
// per heap: bytes the driver reports as already used across all processes,
// and the ceiling it is willing to grant this process.
type HeapBudget struct {
	Usage  uint64
	Budget uint64
}

// MemoryRequirements mirrors VkMemoryRequirements.
type MemoryRequirements struct {
	Size           uint64
	Alignment      uint64
	MemoryTypeBits uint32
}

// DedicatedRequirements mirrors VkMemoryDedicatedRequirements: whether the
// driver requires or merely prefers a dedicated allocation for a resource.
type DedicatedRequirements struct {
	RequiresDedicatedAllocation bool
	PrefersDedicatedAllocation  bool
}

// DedicatedResource names the single resource a dedicated allocation backs
// (VkMemoryDedicatedAllocateInfo carries at most one of the two).
type DedicatedResource struct {
	Buffer Buffer // zero if backing an image
	Image  Image  // zero if backing a buffer
}

// AllocateInfo mirrors VkMemoryAllocateInfo plus the pNext extensions the
// allocator attaches: a dedicated-allocation descriptor (§4.3) and a
// device-address opt-in flag (§6).
type AllocateInfo struct {
	Size               uint64
	MemoryTypeIndex    uint32
	Dedicated          *DedicatedResource
	WithDeviceAddress  bool
}

// MappedRange mirrors VkMappedMemoryRange.
type MappedRange struct {
	Memory DeviceMemory
	Offset uint64
	Size   uint64
}

// BufferCreateInfo is the minimal subset of VkBufferCreateInfo the resource
// glue (hal/vulkan/resource) needs to create a buffer ahead of binding.
type BufferCreateInfo struct {
	Size               uint64
	Usage              uint32
	ExclusiveQueueOnly bool
}

// ImageCreateInfo is the minimal subset of VkImageCreateInfo the resource
// glue needs. Optimal is true for VK_IMAGE_TILING_OPTIMAL, false for LINEAR.
type ImageCreateInfo struct {
	Width, Height, Depth uint32
	MipLevels            uint32
	ArrayLayers          uint32
	Format               uint32
	Usage                uint32
	Optimal              bool
}

// DriverError wraps a non-zero Result returned by a driver call that does
// not map to one of the allocator's own error kinds.
type DriverError struct {
	Op     string
	Result Result
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("driver: %s failed: %s", e.Op, e.Result)
}
