// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package vk

import (
	"fmt"
	"unsafe"
)

// Commands holds the function pointers this package resolves through
// vkGetInstanceProcAddr/vkGetDeviceProcAddr. Unlike a full binding's
// generated table, only the allocator's collaborators are tracked.
type Commands struct {
	getPhysicalDeviceMemoryProperties2 unsafe.Pointer

	allocateMemory                unsafe.Pointer
	freeMemory                    unsafe.Pointer
	mapMemory                     unsafe.Pointer
	unmapMemory                   unsafe.Pointer
	flushMappedMemoryRanges       unsafe.Pointer
	invalidateMappedMemoryRanges  unsafe.Pointer
	getBufferMemoryRequirements2  unsafe.Pointer
	bindBufferMemory              unsafe.Pointer
	getImageMemoryRequirements2   unsafe.Pointer
	bindImageMemory               unsafe.Pointer
	createBuffer                  unsafe.Pointer
	destroyBuffer                 unsafe.Pointer
	createImage                   unsafe.Pointer
	destroyImage                  unsafe.Pointer
}

// NewCommands returns an empty Commands; LoadInstance and LoadDevice must
// both run before the driver built from it is usable.
func NewCommands() *Commands {
	return &Commands{}
}

// LoadInstance resolves the one instance-level function this package needs.
func (c *Commands) LoadInstance(instance Instance) error {
	if instance == 0 {
		return fmt.Errorf("vk: invalid instance handle")
	}
	c.getPhysicalDeviceMemoryProperties2 = GetInstanceProcAddr(uint64(instance), "vkGetPhysicalDeviceMemoryProperties2")
	if c.getPhysicalDeviceMemoryProperties2 == nil {
		c.getPhysicalDeviceMemoryProperties2 = GetInstanceProcAddr(uint64(instance), "vkGetPhysicalDeviceMemoryProperties2KHR")
	}
	if c.getPhysicalDeviceMemoryProperties2 == nil {
		return fmt.Errorf("vk: vkGetPhysicalDeviceMemoryProperties2 not available")
	}
	return nil
}

// LoadDevice resolves every device-level function the allocator driver
// calls through.
func (c *Commands) LoadDevice(device Device) error {
	if device == 0 {
		return fmt.Errorf("vk: invalid device handle")
	}

	c.allocateMemory = GetDeviceProcAddr(uint64(device), "vkAllocateMemory")
	c.freeMemory = GetDeviceProcAddr(uint64(device), "vkFreeMemory")
	c.mapMemory = GetDeviceProcAddr(uint64(device), "vkMapMemory")
	c.unmapMemory = GetDeviceProcAddr(uint64(device), "vkUnmapMemory")
	c.flushMappedMemoryRanges = GetDeviceProcAddr(uint64(device), "vkFlushMappedMemoryRanges")
	c.invalidateMappedMemoryRanges = GetDeviceProcAddr(uint64(device), "vkInvalidateMappedMemoryRanges")
	c.getBufferMemoryRequirements2 = GetDeviceProcAddr(uint64(device), "vkGetBufferMemoryRequirements2")
	c.bindBufferMemory = GetDeviceProcAddr(uint64(device), "vkBindBufferMemory")
	c.getImageMemoryRequirements2 = GetDeviceProcAddr(uint64(device), "vkGetImageMemoryRequirements2")
	c.bindImageMemory = GetDeviceProcAddr(uint64(device), "vkBindImageMemory")
	c.createBuffer = GetDeviceProcAddr(uint64(device), "vkCreateBuffer")
	c.destroyBuffer = GetDeviceProcAddr(uint64(device), "vkDestroyBuffer")
	c.createImage = GetDeviceProcAddr(uint64(device), "vkCreateImage")
	c.destroyImage = GetDeviceProcAddr(uint64(device), "vkDestroyImage")

	if c.allocateMemory == nil || c.freeMemory == nil || c.mapMemory == nil {
		return fmt.Errorf("vk: failed to load critical device memory functions")
	}
	return nil
}
