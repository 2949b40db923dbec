// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package vk

import (
	"github.com/go-webgpu/goffi/ffi"
	"github.com/go-webgpu/goffi/types"
)

// Signature templates, one per distinct calling shape among the handful of
// Vulkan functions this package wraps. Every Vulkan handle and VkDeviceSize
// travels as a 64-bit value regardless of its C type.
var (
	// VkResult(device, pInfo, pAllocator, pHandle) - vkAllocateMemory,
	// vkCreateBuffer, vkCreateImage.
	sigResultPtrPtrPtr types.CallInterface

	// void(device, handle, pAllocator) - vkFreeMemory, vkDestroyBuffer,
	// vkDestroyImage.
	sigVoidHandlePtr types.CallInterface

	// VkResult(device, memory, offset, size, flags, ppData) - vkMapMemory.
	sigMapMemory types.CallInterface

	// void(device, memory) - vkUnmapMemory.
	sigVoidHandleHandle types.CallInterface

	// VkResult(device, count, pRanges) - vkFlushMappedMemoryRanges,
	// vkInvalidateMappedMemoryRanges.
	sigMappedRanges types.CallInterface

	// void(device, pInfo, pRequirements2) - vkGetBufferMemoryRequirements2,
	// vkGetImageMemoryRequirements2.
	sigGetMemoryRequirements2 types.CallInterface

	// VkResult(device, resource, memory, offset) - vkBindBufferMemory,
	// vkBindImageMemory.
	sigBindMemory types.CallInterface

	// void(physicalDevice, pProperties2) - vkGetPhysicalDeviceMemoryProperties2.
	sigGetPhysicalDeviceMemoryProperties2 types.CallInterface
)

func initSignatures() error {
	ptr := types.PointerTypeDescriptor
	u32 := types.UInt32TypeDescriptor
	u64 := types.UInt64TypeDescriptor
	voidRet := types.VoidTypeDescriptor
	resultRet := types.SInt32TypeDescriptor

	var err error

	err = ffi.PrepareCallInterface(&sigResultPtrPtrPtr, types.DefaultCall, resultRet,
		[]*types.TypeDescriptor{u64, ptr, ptr, ptr})
	if err != nil {
		return err
	}

	err = ffi.PrepareCallInterface(&sigVoidHandlePtr, types.DefaultCall, voidRet,
		[]*types.TypeDescriptor{u64, u64, ptr})
	if err != nil {
		return err
	}

	err = ffi.PrepareCallInterface(&sigMapMemory, types.DefaultCall, resultRet,
		[]*types.TypeDescriptor{u64, u64, u64, u64, u32, ptr})
	if err != nil {
		return err
	}

	err = ffi.PrepareCallInterface(&sigVoidHandleHandle, types.DefaultCall, voidRet,
		[]*types.TypeDescriptor{u64, u64})
	if err != nil {
		return err
	}

	err = ffi.PrepareCallInterface(&sigMappedRanges, types.DefaultCall, resultRet,
		[]*types.TypeDescriptor{u64, u32, ptr})
	if err != nil {
		return err
	}

	err = ffi.PrepareCallInterface(&sigGetMemoryRequirements2, types.DefaultCall, voidRet,
		[]*types.TypeDescriptor{u64, ptr, ptr})
	if err != nil {
		return err
	}

	err = ffi.PrepareCallInterface(&sigBindMemory, types.DefaultCall, resultRet,
		[]*types.TypeDescriptor{u64, u64, u64, u64})
	if err != nil {
		return err
	}

	err = ffi.PrepareCallInterface(&sigGetPhysicalDeviceMemoryProperties2, types.DefaultCall, voidRet,
		[]*types.TypeDescriptor{u64, ptr})
	if err != nil {
		return err
	}

	return nil
}
