// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package vk

import (
	"unsafe"

	"github.com/gogpu/vkmem/hal/vulkan/driver"
)

// VulkanDriver implements hal/vulkan/driver.Driver against a loaded Vulkan
// library via goffi. Callers must run Init, create an instance and device
// through their own bootstrap path, then call NewVulkanDriver with the
// resulting handles.
type VulkanDriver struct {
	cmds *Commands
}

// NewVulkanDriver resolves every function pointer the allocator needs
// against instance and device, which the caller has already created.
func NewVulkanDriver(instance Instance, device Device) (*VulkanDriver, error) {
	cmds := NewCommands()
	if err := cmds.LoadInstance(instance); err != nil {
		return nil, err
	}
	if err := cmds.LoadDevice(device); err != nil {
		return nil, err
	}
	return &VulkanDriver{cmds: cmds}, nil
}

func toResult(r Result) driver.Result {
	return driver.Result(r)
}

func (d *VulkanDriver) AllocateMemory(device driver.Device, info driver.AllocateInfo) (driver.DeviceMemory, driver.Result) {
	var dedicated MemoryDedicatedAllocateInfo
	var flags MemoryAllocateFlagsInfo
	var pNext unsafe.Pointer

	if info.WithDeviceAddress {
		flags = MemoryAllocateFlagsInfo{
			SType: StructureTypeMemoryAllocateFlagsInfo,
			Flags: memoryAllocateFlagDeviceAddressBit,
		}
		pNext = unsafe.Pointer(&flags)
	}

	if info.Dedicated != nil {
		dedicated = MemoryDedicatedAllocateInfo{
			SType:  StructureTypeMemoryDedicatedAllocateInfo,
			PNext:  pNext,
			Image:  Image(info.Dedicated.Image),
			Buffer: Buffer(info.Dedicated.Buffer),
		}
		pNext = unsafe.Pointer(&dedicated)
	}

	allocInfo := MemoryAllocateInfo{
		SType:           StructureTypeMemoryAllocateInfo,
		PNext:           pNext,
		AllocationSize:  info.Size,
		MemoryTypeIndex: info.MemoryTypeIndex,
	}

	mem, res := d.cmds.AllocateMemory(Device(device), &allocInfo)
	return driver.DeviceMemory(mem), toResult(res)
}

func (d *VulkanDriver) FreeMemory(device driver.Device, memory driver.DeviceMemory) {
	d.cmds.FreeMemory(Device(device), DeviceMemory(memory))
}

func (d *VulkanDriver) MapMemory(device driver.Device, memory driver.DeviceMemory, offset, size uint64) (uintptr, driver.Result) {
	ptr, res := d.cmds.MapMemory(Device(device), DeviceMemory(memory), offset, size)
	return uintptr(ptr), toResult(res)
}

func (d *VulkanDriver) UnmapMemory(device driver.Device, memory driver.DeviceMemory) {
	d.cmds.UnmapMemory(Device(device), DeviceMemory(memory))
}

func toVkRanges(ranges []driver.MappedRange) []MappedMemoryRange {
	out := make([]MappedMemoryRange, len(ranges))
	for i, r := range ranges {
		out[i] = MappedMemoryRange{
			SType:  StructureTypeMappedMemoryRange,
			Memory: DeviceMemory(r.Memory),
			Offset: r.Offset,
			Size:   r.Size,
		}
	}
	return out
}

func (d *VulkanDriver) FlushMappedMemoryRanges(device driver.Device, ranges []driver.MappedRange) driver.Result {
	return toResult(d.cmds.FlushMappedMemoryRanges(Device(device), toVkRanges(ranges)))
}

func (d *VulkanDriver) InvalidateMappedMemoryRanges(device driver.Device, ranges []driver.MappedRange) driver.Result {
	return toResult(d.cmds.InvalidateMappedMemoryRanges(Device(device), toVkRanges(ranges)))
}

func toDedicatedRequirements(r *MemoryDedicatedRequirements) driver.DedicatedRequirements {
	return driver.DedicatedRequirements{
		RequiresDedicatedAllocation: r.RequiresDedicatedAllocation != 0,
		PrefersDedicatedAllocation:  r.PrefersDedicatedAllocation != 0,
	}
}

func (d *VulkanDriver) GetBufferMemoryRequirements(device driver.Device, buffer driver.Buffer) (driver.MemoryRequirements, driver.DedicatedRequirements) {
	var dedicated MemoryDedicatedRequirements
	dedicated.SType = StructureTypeMemoryDedicatedRequirements

	var reqs2 MemoryRequirements2
	reqs2.SType = StructureTypeMemoryRequirements2
	reqs2.PNext = unsafe.Pointer(&dedicated)

	info := BufferMemoryRequirementsInfo2{
		SType:  StructureTypeBufferMemoryRequirementsInfo2,
		Buffer: Buffer(buffer),
	}
	d.cmds.GetBufferMemoryRequirements2(Device(device), &info, &reqs2)

	out := driver.MemoryRequirements{
		Size:           reqs2.Memory.Size,
		Alignment:      reqs2.Memory.Alignment,
		MemoryTypeBits: reqs2.Memory.MemoryTypeBits,
	}
	return out, toDedicatedRequirements(&dedicated)
}

func (d *VulkanDriver) GetImageMemoryRequirements(device driver.Device, image driver.Image) (driver.MemoryRequirements, driver.DedicatedRequirements) {
	var dedicated MemoryDedicatedRequirements
	dedicated.SType = StructureTypeMemoryDedicatedRequirements

	var reqs2 MemoryRequirements2
	reqs2.SType = StructureTypeMemoryRequirements2
	reqs2.PNext = unsafe.Pointer(&dedicated)

	info := ImageMemoryRequirementsInfo2{
		SType: StructureTypeImageMemoryRequirementsInfo2,
		Image: Image(image),
	}
	d.cmds.GetImageMemoryRequirements2(Device(device), &info, &reqs2)

	out := driver.MemoryRequirements{
		Size:           reqs2.Memory.Size,
		Alignment:      reqs2.Memory.Alignment,
		MemoryTypeBits: reqs2.Memory.MemoryTypeBits,
	}
	return out, toDedicatedRequirements(&dedicated)
}

func (d *VulkanDriver) BindBufferMemory(device driver.Device, buffer driver.Buffer, memory driver.DeviceMemory, offset uint64) driver.Result {
	return toResult(d.cmds.BindBufferMemory(Device(device), Buffer(buffer), DeviceMemory(memory), offset))
}

func (d *VulkanDriver) BindImageMemory(device driver.Device, image driver.Image, memory driver.DeviceMemory, offset uint64) driver.Result {
	return toResult(d.cmds.BindImageMemory(Device(device), Image(image), DeviceMemory(memory), offset))
}

func (d *VulkanDriver) CreateBuffer(device driver.Device, info driver.BufferCreateInfo) (driver.Buffer, driver.Result) {
	sharingMode := int32(0) // VK_SHARING_MODE_EXCLUSIVE; ExclusiveQueueOnly carries no other effect here
	_ = info.ExclusiveQueueOnly

	vkInfo := BufferCreateInfo{
		SType:       StructureTypeBufferCreateInfo,
		Size:        info.Size,
		Usage:       info.Usage,
		SharingMode: sharingMode,
	}
	buf, res := d.cmds.CreateBuffer(Device(device), &vkInfo)
	return driver.Buffer(buf), toResult(res)
}

func (d *VulkanDriver) DestroyBuffer(device driver.Device, buffer driver.Buffer) {
	d.cmds.DestroyBuffer(Device(device), Buffer(buffer))
}

// imageTilingOptimal and imageTilingLinear mirror VkImageTiling.
const (
	imageTilingOptimal int32 = 0
	imageTilingLinear  int32 = 1
)

// imageTypeFor2D and sampleCount1 mirror VkImageType/VkSampleCountFlagBits
// for the single-sample 2D images the resource layer creates; 3D/array
// textures with custom sample counts are outside this binding's scope.
const (
	imageType2D  int32 = 1
	sampleCount1 int32 = 1
)

func (d *VulkanDriver) CreateImage(device driver.Device, info driver.ImageCreateInfo) (driver.Image, driver.Result) {
	tiling := imageTilingOptimal
	if !info.Optimal {
		tiling = imageTilingLinear
	}

	vkInfo := ImageCreateInfo{
		SType:       StructureTypeImageCreateInfo,
		ImageType:   imageType2D,
		Format:      int32(info.Format),
		Extent:      Extent3D{Width: info.Width, Height: info.Height, Depth: info.Depth},
		MipLevels:   info.MipLevels,
		ArrayLayers: info.ArrayLayers,
		Samples:     sampleCount1,
		Tiling:      tiling,
		Usage:       info.Usage,
		SharingMode: 0, // VK_SHARING_MODE_EXCLUSIVE
	}
	img, res := d.cmds.CreateImage(Device(device), &vkInfo)
	return driver.Image(img), toResult(res)
}

func (d *VulkanDriver) DestroyImage(device driver.Device, image driver.Image) {
	d.cmds.DestroyImage(Device(device), Image(image))
}

func (d *VulkanDriver) GetPhysicalDeviceMemoryProperties(physicalDevice driver.PhysicalDevice) driver.MemoryProperties {
	var props PhysicalDeviceMemoryProperties2
	props.SType = StructureTypePhysicalDeviceMemoryProperties2
	d.cmds.GetPhysicalDeviceMemoryProperties2(PhysicalDevice(physicalDevice), &props)
	return convertMemoryProperties(&props.Properties)
}

func convertMemoryProperties(p *PhysicalDeviceMemoryProperties) driver.MemoryProperties {
	out := driver.MemoryProperties{
		MemoryTypes: make([]driver.MemoryType, p.MemoryTypeCount),
		MemoryHeaps: make([]driver.MemoryHeap, p.MemoryHeapCount),
	}
	for i := uint32(0); i < p.MemoryTypeCount; i++ {
		out.MemoryTypes[i] = driver.MemoryType{
			PropertyFlags: driver.MemoryPropertyFlags(p.MemoryTypes[i].PropertyFlags),
			HeapIndex:     p.MemoryTypes[i].HeapIndex,
		}
	}
	for i := uint32(0); i < p.MemoryHeapCount; i++ {
		out.MemoryHeaps[i] = driver.MemoryHeap{
			Size:  p.MemoryHeaps[i].Size,
			Flags: driver.MemoryHeapFlags(p.MemoryHeaps[i].Flags),
		}
	}
	return out
}

func (d *VulkanDriver) GetPhysicalDeviceMemoryBudget(physicalDevice driver.PhysicalDevice) ([]driver.HeapBudget, bool) {
	var budget PhysicalDeviceMemoryBudgetPropertiesEXT
	budget.SType = StructureTypePhysicalDeviceMemoryBudgetPropsEXT

	var props PhysicalDeviceMemoryProperties2
	props.SType = StructureTypePhysicalDeviceMemoryProperties2
	props.PNext = unsafe.Pointer(&budget)

	d.cmds.GetPhysicalDeviceMemoryProperties2(PhysicalDevice(physicalDevice), &props)

	// vkGetPhysicalDeviceMemoryProperties2 silently ignores an unrecognized
	// pNext struct on drivers without VK_EXT_memory_budget, leaving both
	// arrays zeroed; a genuinely idle heap reports a zero budget too, but
	// only when its heap size itself is zero, which never happens in
	// practice, so the caller treats a clean read as "extension present".
	heapCount := int(props.Properties.MemoryHeapCount)
	out := make([]driver.HeapBudget, heapCount)
	anyNonZero := false
	for i := 0; i < heapCount; i++ {
		out[i] = driver.HeapBudget{
			Usage:  budget.HeapUsage[i],
			Budget: budget.HeapBudget[i],
		}
		if out[i].Budget != 0 {
			anyNonZero = true
		}
	}
	return out, anyNonZero
}
