// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package vk

import (
	"unsafe"

	"github.com/go-webgpu/goffi/ffi"
)

// AllocateMemory wraps vkAllocateMemory.
func (c *Commands) AllocateMemory(device Device, info *MemoryAllocateInfo) (DeviceMemory, Result) {
	var result int32
	var memory DeviceMemory

	dev := uint64(device)
	infoPtr := unsafe.Pointer(info)
	var allocatorPtr unsafe.Pointer
	memPtr := unsafe.Pointer(&memory)

	args := [4]unsafe.Pointer{
		unsafe.Pointer(&dev),
		unsafe.Pointer(&infoPtr),
		unsafe.Pointer(&allocatorPtr),
		unsafe.Pointer(&memPtr),
	}
	ffi.CallFunction(&sigResultPtrPtrPtr, c.allocateMemory, unsafe.Pointer(&result), args[:])
	return memory, Result(result)
}

// FreeMemory wraps vkFreeMemory.
func (c *Commands) FreeMemory(device Device, memory DeviceMemory) {
	dev := uint64(device)
	mem := uint64(memory)
	var allocatorPtr unsafe.Pointer

	args := [3]unsafe.Pointer{
		unsafe.Pointer(&dev),
		unsafe.Pointer(&mem),
		unsafe.Pointer(&allocatorPtr),
	}
	ffi.CallFunction(&sigVoidHandlePtr, c.freeMemory, nil, args[:])
}

// MapMemory wraps vkMapMemory.
func (c *Commands) MapMemory(device Device, memory DeviceMemory, offset, size uint64) (unsafe.Pointer, Result) {
	var result int32
	var data unsafe.Pointer

	dev := uint64(device)
	mem := uint64(memory)
	var flags uint32
	dataPtr := unsafe.Pointer(&data)

	args := [6]unsafe.Pointer{
		unsafe.Pointer(&dev),
		unsafe.Pointer(&mem),
		unsafe.Pointer(&offset),
		unsafe.Pointer(&size),
		unsafe.Pointer(&flags),
		unsafe.Pointer(&dataPtr),
	}
	ffi.CallFunction(&sigMapMemory, c.mapMemory, unsafe.Pointer(&result), args[:])
	return data, Result(result)
}

// UnmapMemory wraps vkUnmapMemory.
func (c *Commands) UnmapMemory(device Device, memory DeviceMemory) {
	dev := uint64(device)
	mem := uint64(memory)

	args := [2]unsafe.Pointer{
		unsafe.Pointer(&dev),
		unsafe.Pointer(&mem),
	}
	ffi.CallFunction(&sigVoidHandleHandle, c.unmapMemory, nil, args[:])
}

// FlushMappedMemoryRanges wraps vkFlushMappedMemoryRanges.
func (c *Commands) FlushMappedMemoryRanges(device Device, ranges []MappedMemoryRange) Result {
	return c.mappedRangesCall(c.flushMappedMemoryRanges, device, ranges)
}

// InvalidateMappedMemoryRanges wraps vkInvalidateMappedMemoryRanges.
func (c *Commands) InvalidateMappedMemoryRanges(device Device, ranges []MappedMemoryRange) Result {
	return c.mappedRangesCall(c.invalidateMappedMemoryRanges, device, ranges)
}

func (c *Commands) mappedRangesCall(fn unsafe.Pointer, device Device, ranges []MappedMemoryRange) Result {
	var result int32
	dev := uint64(device)
	count := uint32(len(ranges))
	var rangesPtr unsafe.Pointer
	if count > 0 {
		rangesPtr = unsafe.Pointer(&ranges[0])
	}

	args := [3]unsafe.Pointer{
		unsafe.Pointer(&dev),
		unsafe.Pointer(&count),
		unsafe.Pointer(&rangesPtr),
	}
	ffi.CallFunction(&sigMappedRanges, fn, unsafe.Pointer(&result), args[:])
	return Result(result)
}

// GetBufferMemoryRequirements2 wraps vkGetBufferMemoryRequirements2.
func (c *Commands) GetBufferMemoryRequirements2(device Device, info *BufferMemoryRequirementsInfo2, out *MemoryRequirements2) {
	dev := uint64(device)
	infoPtr := unsafe.Pointer(info)
	outPtr := unsafe.Pointer(out)

	args := [3]unsafe.Pointer{
		unsafe.Pointer(&dev),
		unsafe.Pointer(&infoPtr),
		unsafe.Pointer(&outPtr),
	}
	ffi.CallFunction(&sigGetMemoryRequirements2, c.getBufferMemoryRequirements2, nil, args[:])
}

// GetImageMemoryRequirements2 wraps vkGetImageMemoryRequirements2.
func (c *Commands) GetImageMemoryRequirements2(device Device, info *ImageMemoryRequirementsInfo2, out *MemoryRequirements2) {
	dev := uint64(device)
	infoPtr := unsafe.Pointer(info)
	outPtr := unsafe.Pointer(out)

	args := [3]unsafe.Pointer{
		unsafe.Pointer(&dev),
		unsafe.Pointer(&infoPtr),
		unsafe.Pointer(&outPtr),
	}
	ffi.CallFunction(&sigGetMemoryRequirements2, c.getImageMemoryRequirements2, nil, args[:])
}

// BindBufferMemory wraps vkBindBufferMemory.
func (c *Commands) BindBufferMemory(device Device, buffer Buffer, memory DeviceMemory, offset uint64) Result {
	var result int32
	dev := uint64(device)
	buf := uint64(buffer)
	mem := uint64(memory)

	args := [4]unsafe.Pointer{
		unsafe.Pointer(&dev),
		unsafe.Pointer(&buf),
		unsafe.Pointer(&mem),
		unsafe.Pointer(&offset),
	}
	ffi.CallFunction(&sigBindMemory, c.bindBufferMemory, unsafe.Pointer(&result), args[:])
	return Result(result)
}

// BindImageMemory wraps vkBindImageMemory.
func (c *Commands) BindImageMemory(device Device, image Image, memory DeviceMemory, offset uint64) Result {
	var result int32
	dev := uint64(device)
	img := uint64(image)
	mem := uint64(memory)

	args := [4]unsafe.Pointer{
		unsafe.Pointer(&dev),
		unsafe.Pointer(&img),
		unsafe.Pointer(&mem),
		unsafe.Pointer(&offset),
	}
	ffi.CallFunction(&sigBindMemory, c.bindImageMemory, unsafe.Pointer(&result), args[:])
	return Result(result)
}

// CreateBuffer wraps vkCreateBuffer.
func (c *Commands) CreateBuffer(device Device, info *BufferCreateInfo) (Buffer, Result) {
	var result int32
	var buffer Buffer

	dev := uint64(device)
	infoPtr := unsafe.Pointer(info)
	var allocatorPtr unsafe.Pointer
	bufPtr := unsafe.Pointer(&buffer)

	args := [4]unsafe.Pointer{
		unsafe.Pointer(&dev),
		unsafe.Pointer(&infoPtr),
		unsafe.Pointer(&allocatorPtr),
		unsafe.Pointer(&bufPtr),
	}
	ffi.CallFunction(&sigResultPtrPtrPtr, c.createBuffer, unsafe.Pointer(&result), args[:])
	return buffer, Result(result)
}

// DestroyBuffer wraps vkDestroyBuffer.
func (c *Commands) DestroyBuffer(device Device, buffer Buffer) {
	dev := uint64(device)
	buf := uint64(buffer)
	var allocatorPtr unsafe.Pointer

	args := [3]unsafe.Pointer{
		unsafe.Pointer(&dev),
		unsafe.Pointer(&buf),
		unsafe.Pointer(&allocatorPtr),
	}
	ffi.CallFunction(&sigVoidHandlePtr, c.destroyBuffer, nil, args[:])
}

// CreateImage wraps vkCreateImage.
func (c *Commands) CreateImage(device Device, info *ImageCreateInfo) (Image, Result) {
	var result int32
	var image Image

	dev := uint64(device)
	infoPtr := unsafe.Pointer(info)
	var allocatorPtr unsafe.Pointer
	imgPtr := unsafe.Pointer(&image)

	args := [4]unsafe.Pointer{
		unsafe.Pointer(&dev),
		unsafe.Pointer(&infoPtr),
		unsafe.Pointer(&allocatorPtr),
		unsafe.Pointer(&imgPtr),
	}
	ffi.CallFunction(&sigResultPtrPtrPtr, c.createImage, unsafe.Pointer(&result), args[:])
	return image, Result(result)
}

// DestroyImage wraps vkDestroyImage.
func (c *Commands) DestroyImage(device Device, image Image) {
	dev := uint64(device)
	img := uint64(image)
	var allocatorPtr unsafe.Pointer

	args := [3]unsafe.Pointer{
		unsafe.Pointer(&dev),
		unsafe.Pointer(&img),
		unsafe.Pointer(&allocatorPtr),
	}
	ffi.CallFunction(&sigVoidHandlePtr, c.destroyImage, nil, args[:])
}

// GetPhysicalDeviceMemoryProperties2 wraps vkGetPhysicalDeviceMemoryProperties2.
func (c *Commands) GetPhysicalDeviceMemoryProperties2(pd PhysicalDevice, out *PhysicalDeviceMemoryProperties2) {
	dev := uint64(pd)
	outPtr := unsafe.Pointer(out)

	args := [2]unsafe.Pointer{
		unsafe.Pointer(&dev),
		unsafe.Pointer(&outPtr),
	}
	ffi.CallFunction(&sigGetPhysicalDeviceMemoryProperties2, c.getPhysicalDeviceMemoryProperties2, nil, args[:])
}
