// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package memory

import (
	"math/bits"

	"github.com/gogpu/vkmem/hal/vulkan/driver"
)

// Usage is the caller-facing hint spec.md §4.4's preset table keys off.
type Usage int

const (
	UsageUnknown Usage = iota
	UsageGpuOnly
	UsageCpuOnly
	UsageCpuToGpu
	UsageGpuToCpu
	UsageCpuCopy
	UsageGpuLazilyAllocated
)

// RequestInfo is the subset of an allocation request the type selector
// consumes (spec.md §4.4's create_info).
type RequestInfo struct {
	Usage          Usage
	RequiredFlags  driver.MemoryPropertyFlags
	PreferredFlags driver.MemoryPropertyFlags
	MemoryTypeBits uint32 // 0 means "no additional restriction"
}

// typeSelector picks the best memory type index for a request (spec.md
// §4.4). It holds the allocator-global mask (every type index, minus AMD
// device-coherent types unless explicitly opted into) and whether the
// physical device is integrated, which changes the GpuOnly/CpuToGpu
// presets.
type typeSelector struct {
	memTypes       []driver.MemoryType
	globalMask     uint32
	isIntegratedGPU bool
}

func newTypeSelector(props driver.MemoryProperties, allowAMDCoherent, isIntegratedGPU bool) *typeSelector {
	ts := &typeSelector{memTypes: props.MemoryTypes, isIntegratedGPU: isIntegratedGPU}
	for i, t := range ts.memTypes {
		if !allowAMDCoherent && t.PropertyFlags&(driver.MemoryPropertyDeviceCoherentAMD|driver.MemoryPropertyDeviceUncachedAMD) != 0 {
			continue
		}
		ts.globalMask |= 1 << uint(i)
	}
	return ts
}

// applyUsagePreset returns the required/preferred/not-preferred flag sets
// for req, after folding in the usage-driven adjustments from spec.md
// §4.4's table.
func (ts *typeSelector) applyUsagePreset(req RequestInfo) (required, preferred, notPreferred driver.MemoryPropertyFlags) {
	required = req.RequiredFlags
	preferred = req.PreferredFlags

	addDeviceLocalPreferred := func() {
		if ts.isIntegratedGPU && hasFlag(required, driver.MemoryPropertyHostVisibleBit) {
			return
		}
		preferred |= driver.MemoryPropertyDeviceLocalBit
	}

	switch req.Usage {
	case UsageGpuOnly:
		addDeviceLocalPreferred()
	case UsageCpuOnly:
		required |= driver.MemoryPropertyHostVisibleBit | driver.MemoryPropertyHostCoherentBit
	case UsageCpuToGpu:
		required |= driver.MemoryPropertyHostVisibleBit
		addDeviceLocalPreferred()
	case UsageGpuToCpu:
		required |= driver.MemoryPropertyHostVisibleBit
		preferred |= driver.MemoryPropertyHostCachedBit
	case UsageCpuCopy:
		notPreferred |= driver.MemoryPropertyDeviceLocalBit
	case UsageGpuLazilyAllocated:
		required |= driver.MemoryPropertyLazilyAllocatedBit
	}

	if required&(driver.MemoryPropertyDeviceCoherentAMD|driver.MemoryPropertyDeviceUncachedAMD) == 0 &&
		preferred&(driver.MemoryPropertyDeviceCoherentAMD|driver.MemoryPropertyDeviceUncachedAMD) == 0 {
		notPreferred |= driver.MemoryPropertyDeviceCoherentAMD
	}
	return required, preferred, notPreferred
}

func hasFlag(flags, bit driver.MemoryPropertyFlags) bool { return flags&bit != 0 }

// selectType returns the lowest-cost, lowest-index memory type satisfying req
// and the requirements mask memoryTypeBits, or ok=false if none qualify
// (spec.md §4.4, §7 FeatureNotPresent).
func (ts *typeSelector) selectType(memoryTypeBits uint32, req RequestInfo) (index uint32, ok bool) {
	mask := ts.globalMask & memoryTypeBits
	if req.MemoryTypeBits != 0 {
		mask &= req.MemoryTypeBits
	}
	required, preferred, notPreferred := ts.applyUsagePreset(req)

	bestCost := -1
	bestIndex := uint32(0)
	for i := 0; i < len(ts.memTypes); i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		flags := ts.memTypes[i].PropertyFlags
		if flags&required != required {
			continue
		}
		cost := bits.OnesCount32(uint32(preferred&^flags)) + bits.OnesCount32(uint32(flags&notPreferred))
		if bestCost == -1 || cost < bestCost {
			bestCost = cost
			bestIndex = uint32(i)
			if cost == 0 {
				break
			}
		}
	}
	if bestCost == -1 {
		return 0, false
	}
	return bestIndex, true
}
