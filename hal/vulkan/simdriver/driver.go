// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package simdriver

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/vkmem/hal/vulkan/driver"
)

// allocationRecord tracks one simulated VkDeviceMemory.
type allocationRecord struct {
	page      *mmapPage
	heapIndex uint32
	mapped    bool
}

// resourceRecord tracks one simulated VkBuffer or VkImage: just enough to
// answer a memory-requirements query consistently with how it was created.
type resourceRecord struct {
	size       uint64
	alignment  uint64
	typeBits   uint32
	dedicated  bool // requiresDedicatedAllocation, simulating e.g. an external-memory resource
}

// Driver implements hal/vulkan/driver.Driver entirely in-process.
type Driver struct {
	props driver.MemoryProperties

	mu          sync.Mutex
	allocations map[driver.DeviceMemory]*allocationRecord
	buffers     map[driver.Buffer]*resourceRecord
	images      map[driver.Image]*resourceRecord
	heapUsage   []uint64

	nextMemory atomic.Uint64
	nextBuffer atomic.Uint64
	nextImage  atomic.Uint64
}

// NewDriver returns a Driver using DefaultMemoryProperties.
func NewDriver() *Driver {
	return NewDriverWithProperties(DefaultMemoryProperties())
}

// NewDriverWithProperties returns a Driver reporting the given memory
// layout, for tests that need to exercise a specific heap/type shape.
func NewDriverWithProperties(props driver.MemoryProperties) *Driver {
	return &Driver{
		props:       props,
		allocations: make(map[driver.DeviceMemory]*allocationRecord),
		buffers:     make(map[driver.Buffer]*resourceRecord),
		images:      make(map[driver.Image]*resourceRecord),
		heapUsage:   make([]uint64, len(props.MemoryHeaps)),
	}
}

func (d *Driver) AllocateMemory(_ driver.Device, info driver.AllocateInfo) (driver.DeviceMemory, driver.Result) {
	if int(info.MemoryTypeIndex) >= len(d.props.MemoryTypes) {
		return 0, driver.ErrorInitializationFailed
	}
	heapIndex := d.props.MemoryTypes[info.MemoryTypeIndex].HeapIndex

	page, err := newPage(info.Size)
	if err != nil {
		return 0, driver.ErrorOutOfHostMemory
	}

	d.mu.Lock()
	if d.heapUsage[heapIndex]+info.Size > d.props.MemoryHeaps[heapIndex].Size {
		d.mu.Unlock()
		page.Close()
		return 0, driver.ErrorOutOfDeviceMemory
	}
	d.heapUsage[heapIndex] += info.Size
	d.mu.Unlock()

	handle := driver.DeviceMemory(d.nextMemory.Add(1))

	d.mu.Lock()
	d.allocations[handle] = &allocationRecord{page: page, heapIndex: heapIndex}
	d.mu.Unlock()

	return handle, driver.Success
}

func (d *Driver) FreeMemory(_ driver.Device, memory driver.DeviceMemory) {
	d.mu.Lock()
	rec, ok := d.allocations[memory]
	if !ok {
		d.mu.Unlock()
		return
	}
	delete(d.allocations, memory)
	d.heapUsage[rec.heapIndex] -= uint64(len(rec.page.Bytes()))
	d.mu.Unlock()

	rec.page.Close()
}

func (d *Driver) MapMemory(_ driver.Device, memory driver.DeviceMemory, offset, size uint64) (uintptr, driver.Result) {
	d.mu.Lock()
	rec, ok := d.allocations[memory]
	d.mu.Unlock()
	if !ok {
		return 0, driver.ErrorMemoryMapFailed
	}

	bytes := rec.page.Bytes()
	if offset > uint64(len(bytes)) {
		return 0, driver.ErrorMemoryMapFailed
	}
	return uintptr(ptrOf(bytes[offset:])), driver.Success
}

func (d *Driver) UnmapMemory(_ driver.Device, _ driver.DeviceMemory) {}

func (d *Driver) FlushMappedMemoryRanges(_ driver.Device, _ []driver.MappedRange) driver.Result {
	// Anonymous mmap'd pages are always coherent from the process's own
	// point of view; nothing to synchronize without a second agent reading.
	return driver.Success
}

func (d *Driver) InvalidateMappedMemoryRanges(_ driver.Device, _ []driver.MappedRange) driver.Result {
	return driver.Success
}

func (d *Driver) GetBufferMemoryRequirements(_ driver.Device, buffer driver.Buffer) (driver.MemoryRequirements, driver.DedicatedRequirements) {
	d.mu.Lock()
	rec, ok := d.buffers[buffer]
	d.mu.Unlock()
	if !ok {
		return driver.MemoryRequirements{}, driver.DedicatedRequirements{}
	}
	return driver.MemoryRequirements{Size: rec.size, Alignment: rec.alignment, MemoryTypeBits: rec.typeBits},
		driver.DedicatedRequirements{RequiresDedicatedAllocation: rec.dedicated, PrefersDedicatedAllocation: rec.dedicated}
}

func (d *Driver) GetImageMemoryRequirements(_ driver.Device, image driver.Image) (driver.MemoryRequirements, driver.DedicatedRequirements) {
	d.mu.Lock()
	rec, ok := d.images[image]
	d.mu.Unlock()
	if !ok {
		return driver.MemoryRequirements{}, driver.DedicatedRequirements{}
	}
	return driver.MemoryRequirements{Size: rec.size, Alignment: rec.alignment, MemoryTypeBits: rec.typeBits},
		driver.DedicatedRequirements{RequiresDedicatedAllocation: rec.dedicated, PrefersDedicatedAllocation: rec.dedicated}
}

func (d *Driver) BindBufferMemory(_ driver.Device, buffer driver.Buffer, memory driver.DeviceMemory, offset uint64) driver.Result {
	d.mu.Lock()
	_, bufOK := d.buffers[buffer]
	rec, memOK := d.allocations[memory]
	d.mu.Unlock()
	if !bufOK || !memOK {
		return driver.ErrorInitializationFailed
	}
	if offset > uint64(len(rec.page.Bytes())) {
		return driver.ErrorInitializationFailed
	}
	return driver.Success
}

func (d *Driver) BindImageMemory(_ driver.Device, image driver.Image, memory driver.DeviceMemory, offset uint64) driver.Result {
	d.mu.Lock()
	_, imgOK := d.images[image]
	rec, memOK := d.allocations[memory]
	d.mu.Unlock()
	if !imgOK || !memOK {
		return driver.ErrorInitializationFailed
	}
	if offset > uint64(len(rec.page.Bytes())) {
		return driver.ErrorInitializationFailed
	}
	return driver.Success
}

// bufferAlignment and imageAlignment simulate VkPhysicalDeviceLimits
// values a real Vulkan driver would report; 256 matches a common
// minStorageBufferOffsetAlignment/nonCoherentAtomSize value on desktop GPUs.
const (
	bufferAlignment = 256
	imageAlignment  = 4096 // matches a typical optimal-tiling page size
)

func (d *Driver) CreateBuffer(_ driver.Device, info driver.BufferCreateInfo) (driver.Buffer, driver.Result) {
	handle := driver.Buffer(d.nextBuffer.Add(1))
	d.mu.Lock()
	d.buffers[handle] = &resourceRecord{
		size:      alignUp(info.Size, bufferAlignment),
		alignment: bufferAlignment,
		typeBits:  d.allTypeBits(),
	}
	d.mu.Unlock()
	return handle, driver.Success
}

func (d *Driver) DestroyBuffer(_ driver.Device, buffer driver.Buffer) {
	d.mu.Lock()
	delete(d.buffers, buffer)
	d.mu.Unlock()
}

func (d *Driver) CreateImage(_ driver.Device, info driver.ImageCreateInfo) (driver.Image, driver.Result) {
	size := uint64(info.Width) * uint64(info.Height) * uint64(info.Depth) * 4 // assume 4 bytes/texel
	if info.MipLevels > 1 {
		size += size / 3 // rough mip-chain overhead, never exercised exactly
	}
	handle := driver.Image(d.nextImage.Add(1))
	d.mu.Lock()
	d.images[handle] = &resourceRecord{
		size:      alignUp(size, imageAlignment),
		alignment: imageAlignment,
		typeBits:  d.deviceLocalTypeBits(),
		dedicated: info.Optimal && size > 16<<20, // large optimal-tiling images often prefer dedicated allocations
	}
	d.mu.Unlock()
	return handle, driver.Success
}

func (d *Driver) DestroyImage(_ driver.Device, image driver.Image) {
	d.mu.Lock()
	delete(d.images, image)
	d.mu.Unlock()
}

func (d *Driver) GetPhysicalDeviceMemoryProperties(_ driver.PhysicalDevice) driver.MemoryProperties {
	return d.props
}

func (d *Driver) GetPhysicalDeviceMemoryBudget(_ driver.PhysicalDevice) ([]driver.HeapBudget, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	budgets := make([]driver.HeapBudget, len(d.props.MemoryHeaps))
	for i, heap := range d.props.MemoryHeaps {
		budgets[i] = driver.HeapBudget{Usage: d.heapUsage[i], Budget: heap.Size}
	}
	return budgets, true
}

func (d *Driver) allTypeBits() uint32 {
	return (uint32(1) << uint32(len(d.props.MemoryTypes))) - 1
}

func (d *Driver) deviceLocalTypeBits() uint32 {
	var bits uint32
	for i, t := range d.props.MemoryTypes {
		if t.PropertyFlags&driver.MemoryPropertyDeviceLocalBit != 0 {
			bits |= 1 << uint32(i)
		}
	}
	if bits == 0 {
		return d.allTypeBits()
	}
	return bits
}

func alignUp(v, align uint64) uint64 {
	if align == 0 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}
