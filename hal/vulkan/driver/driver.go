// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package driver

// Driver is the contract the vkmem allocator core requires from a Vulkan
// binding. Every method maps to exactly one external collaborator listed in
// spec.md §6; none of them may block longer than the underlying driver call
// itself (spec.md §5).
type Driver interface {
	// AllocateMemory wraps vkAllocateMemory.
	AllocateMemory(device Device, info AllocateInfo) (DeviceMemory, Result)

	// FreeMemory wraps vkFreeMemory.
	FreeMemory(device Device, memory DeviceMemory)

	// MapMemory wraps vkMapMemory. size == ^uint64(0) means "to end of
	// allocation" per VK_WHOLE_SIZE.
	MapMemory(device Device, memory DeviceMemory, offset, size uint64) (uintptr, Result)

	// UnmapMemory wraps vkUnmapMemory.
	UnmapMemory(device Device, memory DeviceMemory)

	// FlushMappedMemoryRanges wraps vkFlushMappedMemoryRanges.
	FlushMappedMemoryRanges(device Device, ranges []MappedRange) Result

	// InvalidateMappedMemoryRanges wraps vkInvalidateMappedMemoryRanges.
	InvalidateMappedMemoryRanges(device Device, ranges []MappedRange) Result

	// GetBufferMemoryRequirements wraps vkGetBufferMemoryRequirements2,
	// returning the base requirements and the dedicated-allocation hint
	// from the chained VkMemoryDedicatedRequirements.
	GetBufferMemoryRequirements(device Device, buffer Buffer) (MemoryRequirements, DedicatedRequirements)

	// GetImageMemoryRequirements wraps vkGetImageMemoryRequirements2.
	GetImageMemoryRequirements(device Device, image Image) (MemoryRequirements, DedicatedRequirements)

	// BindBufferMemory wraps vkBindBufferMemory.
	BindBufferMemory(device Device, buffer Buffer, memory DeviceMemory, offset uint64) Result

	// BindImageMemory wraps vkBindImageMemory.
	BindImageMemory(device Device, image Image, memory DeviceMemory, offset uint64) Result

	// CreateBuffer wraps vkCreateBuffer.
	CreateBuffer(device Device, info BufferCreateInfo) (Buffer, Result)

	// DestroyBuffer wraps vkDestroyBuffer.
	DestroyBuffer(device Device, buffer Buffer)

	// CreateImage wraps vkCreateImage.
	CreateImage(device Device, info ImageCreateInfo) (Image, Result)

	// DestroyImage wraps vkDestroyImage.
	DestroyImage(device Device, image Image)

	// GetPhysicalDeviceMemoryProperties wraps
	// vkGetPhysicalDeviceMemoryProperties2.
	GetPhysicalDeviceMemoryProperties(physicalDevice PhysicalDevice) MemoryProperties

	// GetPhysicalDeviceMemoryBudget wraps vkGetPhysicalDeviceMemoryProperties2
	// with a chained VkPhysicalDeviceMemoryBudgetPropertiesEXT. ok is false
	// when the driver lacks VK_EXT_memory_budget, in which case the caller
	// falls back to the heuristic in spec.md §4.5.
	GetPhysicalDeviceMemoryBudget(physicalDevice PhysicalDevice) (budgets []HeapBudget, ok bool)
}
