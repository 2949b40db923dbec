// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package memory

import (
	"sync"
	"unsafe"

	"github.com/gogpu/vkmem/hal/vulkan/driver"
)

// fakeDriver is an in-process driver.Driver used by the memory package's own
// tests. It never talks to a real GPU: memory "allocations" are plain Go
// byte slices, mapped by taking their address.
type fakeDriver struct {
	mu sync.Mutex

	props   driver.MemoryProperties
	budgets []driver.HeapBudget
	hasBudget bool

	nextHandle driver.DeviceMemory
	backing    map[driver.DeviceMemory][]byte

	// failAllocateOnHeap, if non-nil, forces AllocateMemory to fail with
	// the given result whenever the requested type's heap matches.
	failAllocateOnHeap map[uint32]driver.Result

	allocateCalls int
	freeCalls     int
	flushCalls    int
	invalidateCalls int
}

func newFakeDriver(props driver.MemoryProperties) *fakeDriver {
	return &fakeDriver{
		props:   props,
		backing: make(map[driver.DeviceMemory][]byte),
	}
}

func (d *fakeDriver) AllocateMemory(device driver.Device, info driver.AllocateInfo) (driver.DeviceMemory, driver.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.allocateCalls++
	heapIndex := d.props.MemoryTypes[info.MemoryTypeIndex].HeapIndex
	if d.failAllocateOnHeap != nil {
		if res, fail := d.failAllocateOnHeap[heapIndex]; fail {
			return 0, res
		}
	}
	d.nextHandle++
	h := d.nextHandle
	d.backing[h] = make([]byte, info.Size)
	return h, driver.Success
}

func (d *fakeDriver) FreeMemory(device driver.Device, memory driver.DeviceMemory) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.freeCalls++
	delete(d.backing, memory)
}

func (d *fakeDriver) MapMemory(device driver.Device, memory driver.DeviceMemory, offset, size uint64) (uintptr, driver.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf, ok := d.backing[memory]
	if !ok || len(buf) == 0 {
		return 0, driver.ErrorMemoryMapFailed
	}
	return uintptr(unsafe.Pointer(&buf[0])) + uintptr(offset), driver.Success
}

func (d *fakeDriver) UnmapMemory(device driver.Device, memory driver.DeviceMemory) {}

func (d *fakeDriver) FlushMappedMemoryRanges(device driver.Device, ranges []driver.MappedRange) driver.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flushCalls++
	return driver.Success
}

func (d *fakeDriver) InvalidateMappedMemoryRanges(device driver.Device, ranges []driver.MappedRange) driver.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.invalidateCalls++
	return driver.Success
}

func (d *fakeDriver) GetBufferMemoryRequirements(device driver.Device, buffer driver.Buffer) (driver.MemoryRequirements, driver.DedicatedRequirements) {
	return driver.MemoryRequirements{Size: 65536, Alignment: 256, MemoryTypeBits: 0xFFFFFFFF}, driver.DedicatedRequirements{}
}

func (d *fakeDriver) GetImageMemoryRequirements(device driver.Device, image driver.Image) (driver.MemoryRequirements, driver.DedicatedRequirements) {
	return driver.MemoryRequirements{Size: 65536, Alignment: 256, MemoryTypeBits: 0xFFFFFFFF}, driver.DedicatedRequirements{}
}

func (d *fakeDriver) BindBufferMemory(device driver.Device, buffer driver.Buffer, memory driver.DeviceMemory, offset uint64) driver.Result {
	return driver.Success
}

func (d *fakeDriver) BindImageMemory(device driver.Device, image driver.Image, memory driver.DeviceMemory, offset uint64) driver.Result {
	return driver.Success
}

func (d *fakeDriver) CreateBuffer(device driver.Device, info driver.BufferCreateInfo) (driver.Buffer, driver.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return driver.Buffer(1), driver.Success
}

func (d *fakeDriver) DestroyBuffer(device driver.Device, buffer driver.Buffer) {}

func (d *fakeDriver) CreateImage(device driver.Device, info driver.ImageCreateInfo) (driver.Image, driver.Result) {
	return driver.Image(1), driver.Success
}

func (d *fakeDriver) DestroyImage(device driver.Device, image driver.Image) {}

func (d *fakeDriver) GetPhysicalDeviceMemoryProperties(physicalDevice driver.PhysicalDevice) driver.MemoryProperties {
	return d.props
}

func (d *fakeDriver) GetPhysicalDeviceMemoryBudget(physicalDevice driver.PhysicalDevice) ([]driver.HeapBudget, bool) {
	if !d.hasBudget {
		return nil, false
	}
	return d.budgets, true
}

var _ driver.Driver = (*fakeDriver)(nil)

// singleHeapProps returns a minimal MemoryProperties fixture: one
// device-local-only type and one host-visible+coherent type, each on its
// own heap.
func singleHeapProps(heapSize uint64) driver.MemoryProperties {
	return driver.MemoryProperties{
		MemoryTypes: []driver.MemoryType{
			{PropertyFlags: driver.MemoryPropertyDeviceLocalBit, HeapIndex: 0},
			{PropertyFlags: driver.MemoryPropertyHostVisibleBit | driver.MemoryPropertyHostCoherentBit, HeapIndex: 1},
		},
		MemoryHeaps: []driver.MemoryHeap{
			{Size: heapSize, Flags: driver.MemoryHeapDeviceLocalBit},
			{Size: heapSize},
		},
	}
}
