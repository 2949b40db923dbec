// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package simdriver

import "github.com/gogpu/vkmem/hal/vulkan/driver"

// DefaultMemoryProperties returns a two-heap, four-type layout modeling a
// discrete GPU with a dedicated VRAM heap and a host-visible staging heap,
// close enough to real hardware that the allocator's memory-type selection
// and budget logic are exercised the way they would be against a driver.
func DefaultMemoryProperties() driver.MemoryProperties {
	return driver.MemoryProperties{
		MemoryHeaps: []driver.MemoryHeap{
			{Size: 4 << 30, Flags: driver.MemoryHeapDeviceLocalBit}, // heap 0: device-local VRAM
			{Size: 2 << 30, Flags: 0},                               // heap 1: host-visible system memory
		},
		MemoryTypes: []driver.MemoryType{
			{PropertyFlags: driver.MemoryPropertyDeviceLocalBit, HeapIndex: 0},
			{
				PropertyFlags: driver.MemoryPropertyHostVisibleBit | driver.MemoryPropertyHostCoherentBit,
				HeapIndex:     1,
			},
			{
				PropertyFlags: driver.MemoryPropertyHostVisibleBit | driver.MemoryPropertyHostCoherentBit | driver.MemoryPropertyHostCachedBit,
				HeapIndex:     1,
			},
			{
				PropertyFlags: driver.MemoryPropertyDeviceLocalBit | driver.MemoryPropertyHostVisibleBit | driver.MemoryPropertyHostCoherentBit,
				HeapIndex:     0,
			},
		},
	}
}
