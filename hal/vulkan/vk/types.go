// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package vk

import "unsafe"

// Handle types. Vulkan dispatchable and non-dispatchable handles are both
// representable as a 64-bit value on every platform goffi targets.
type (
	Instance       uint64
	PhysicalDevice uint64
	Device         uint64
	DeviceMemory   uint64
	Buffer         uint64
	Image          uint64
)

// Result mirrors VkResult; only the values the allocator distinguishes are
// named, everything else passes through as its raw int32.
type Result int32

const (
	Success                Result = 0
	ErrorOutOfHostMemory   Result = -1
	ErrorOutOfDeviceMemory Result = -2
	ErrorInitFailed        Result = -3
	ErrorTooManyObjects    Result = -10
)

// Structure type tags this package needs. Values match the Vulkan
// registry's VkStructureType enum.
const (
	StructureTypeMemoryAllocateInfo              int32 = 5
	StructureTypeMappedMemoryRange                int32 = 6
	StructureTypeBufferCreateInfo                 int32 = 12
	StructureTypeImageCreateInfo                  int32 = 14
	StructureTypePhysicalDeviceMemoryProperties2  int32 = 1000059006
	StructureTypeMemoryRequirements2              int32 = 1000146003
	StructureTypeBufferMemoryRequirementsInfo2     int32 = 1000146000
	StructureTypeImageMemoryRequirementsInfo2      int32 = 1000146001
	StructureTypeMemoryDedicatedRequirements       int32 = 1000127000
	StructureTypeMemoryDedicatedAllocateInfo       int32 = 1000127001
	StructureTypePhysicalDeviceMemoryBudgetPropsEXT int32 = 1000237000
)

// MemoryAllocateInfo mirrors VkMemoryAllocateInfo.
type MemoryAllocateInfo struct {
	SType           int32
	_               [4]byte
	PNext           unsafe.Pointer
	AllocationSize  uint64
	MemoryTypeIndex uint32
	_               [4]byte
}

// MemoryDedicatedAllocateInfo mirrors VkMemoryDedicatedAllocateInfo, chained
// from MemoryAllocateInfo.PNext when the allocator requests a dedicated
// allocation tied to one resource.
type MemoryDedicatedAllocateInfo struct {
	SType  int32
	_      [4]byte
	PNext  unsafe.Pointer
	Image  Image
	Buffer Buffer
}

// MemoryAllocateFlagsInfo mirrors VkMemoryAllocateFlagsInfo, chained from
// MemoryAllocateInfo.PNext when the allocator honors
// Config.BufferDeviceAddressCapability for a given request.
type MemoryAllocateFlagsInfo struct {
	SType     int32
	_         [4]byte
	PNext     unsafe.Pointer
	Flags     uint32
	DeviceMask uint32
}

// memoryAllocateFlagDeviceAddressBit mirrors
// VK_MEMORY_ALLOCATE_DEVICE_ADDRESS_BIT.
const memoryAllocateFlagDeviceAddressBit uint32 = 0x00000002

// StructureTypeMemoryAllocateFlagsInfo mirrors VkStructureType's
// VK_STRUCTURE_TYPE_MEMORY_ALLOCATE_FLAGS_INFO.
const StructureTypeMemoryAllocateFlagsInfo int32 = 1000060000

// MemoryRequirements mirrors VkMemoryRequirements.
type MemoryRequirements struct {
	Size           uint64
	Alignment      uint64
	MemoryTypeBits uint32
	_              [4]byte
}

// MemoryRequirements2 mirrors VkMemoryRequirements2; PNext is expected to
// point at a MemoryDedicatedRequirements when queried through this package.
type MemoryRequirements2 struct {
	SType  int32
	_      [4]byte
	PNext  unsafe.Pointer
	Memory MemoryRequirements
}

// MemoryDedicatedRequirements mirrors VkMemoryDedicatedRequirements.
type MemoryDedicatedRequirements struct {
	SType                       int32
	_                           [4]byte
	PNext                       unsafe.Pointer
	PrefersDedicatedAllocation  uint32
	RequiresDedicatedAllocation uint32
}

// BufferMemoryRequirementsInfo2 mirrors VkBufferMemoryRequirementsInfo2.
type BufferMemoryRequirementsInfo2 struct {
	SType  int32
	_      [4]byte
	PNext  unsafe.Pointer
	Buffer Buffer
}

// ImageMemoryRequirementsInfo2 mirrors VkImageMemoryRequirementsInfo2.
type ImageMemoryRequirementsInfo2 struct {
	SType int32
	_     [4]byte
	PNext unsafe.Pointer
	Image Image
}

// MappedMemoryRange mirrors VkMappedMemoryRange.
type MappedMemoryRange struct {
	SType  int32
	_      [4]byte
	PNext  unsafe.Pointer
	Memory DeviceMemory
	Offset uint64
	Size   uint64
}

// BufferCreateInfo mirrors the subset of VkBufferCreateInfo the resource
// glue populates. Sharing mode is always EXCLUSIVE (0): the allocator never
// needs queue-family-concurrent buffers.
type BufferCreateInfo struct {
	SType                 int32
	_                     [4]byte
	PNext                 unsafe.Pointer
	Flags                 uint32
	_                     [4]byte
	Size                  uint64
	Usage                 uint32
	SharingMode           int32
	QueueFamilyIndexCount uint32
	_                     [4]byte
	PQueueFamilyIndices   unsafe.Pointer
}

// Extent3D mirrors VkExtent3D.
type Extent3D struct {
	Width, Height, Depth uint32
}

// ImageCreateInfo mirrors the subset of VkImageCreateInfo the resource glue
// populates.
type ImageCreateInfo struct {
	SType                 int32
	_                     [4]byte
	PNext                 unsafe.Pointer
	Flags                 uint32
	ImageType             int32
	Format                int32
	Extent                Extent3D
	MipLevels             uint32
	ArrayLayers           uint32
	Samples               int32
	Tiling                int32
	Usage                 uint32
	SharingMode           int32
	QueueFamilyIndexCount uint32
	_                     [4]byte
	PQueueFamilyIndices   unsafe.Pointer
	InitialLayout         int32
	_                     [4]byte
}

// MemoryType mirrors one entry of VkPhysicalDeviceMemoryProperties.memoryTypes.
type MemoryType struct {
	PropertyFlags uint32
	HeapIndex     uint32
}

// MemoryHeap mirrors one entry of VkPhysicalDeviceMemoryProperties.memoryHeaps.
type MemoryHeap struct {
	Size  uint64
	Flags uint32
	_     [4]byte
}

// PhysicalDeviceMemoryProperties mirrors VkPhysicalDeviceMemoryProperties:
// fixed-size arrays per the Vulkan spec's MaxMemoryTypes/MaxMemoryHeaps.
type PhysicalDeviceMemoryProperties struct {
	MemoryTypeCount uint32
	MemoryTypes     [32]MemoryType
	MemoryHeapCount uint32
	MemoryHeaps     [16]MemoryHeap
}

// PhysicalDeviceMemoryProperties2 mirrors VkPhysicalDeviceMemoryProperties2;
// PNext is expected to point at a PhysicalDeviceMemoryBudgetPropertiesEXT
// when queried through this package.
type PhysicalDeviceMemoryProperties2 struct {
	SType      int32
	_          [4]byte
	PNext      unsafe.Pointer
	Properties PhysicalDeviceMemoryProperties
}

// PhysicalDeviceMemoryBudgetPropertiesEXT mirrors
// VkPhysicalDeviceMemoryBudgetPropertiesEXT.
type PhysicalDeviceMemoryBudgetPropertiesEXT struct {
	SType     int32
	_         [4]byte
	PNext     unsafe.Pointer
	HeapBudget [16]uint64
	HeapUsage  [16]uint64
}
