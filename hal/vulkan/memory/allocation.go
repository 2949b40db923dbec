// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package memory

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/vkmem/hal/vulkan/driver"
)

type allocKind int

const (
	kindBlockBacked allocKind = iota
	kindDedicated
)

// Allocation is the opaque handle spec.md §3 calls "Allocation handle": a
// discriminated union over a block-backed suballocation and a whole
// dedicated driver allocation. Callers never see the two variants directly;
// they call the methods below, which branch on kind.
//
// lastUseFrame is the single atomic word the lost-allocation machinery
// operates on (spec.md §9): it starts as the frame the allocation was
// created on, is bumped by Touch, and is moved to lostSentinel exactly
// once, by a compare-and-swap in blockMetadata.makeRequestedLost or
// BlockList.makePoolAllocationsLost, never reversed.
type Allocation struct {
	mu            sync.Mutex
	kind          allocKind
	typeIndex     uint32
	size          uint64
	alignment     uint64
	suballocType  SuballocationType
	canBecomeLost bool
	lastUseFrame  atomic.Uint64
	userData      atomic.Value

	// Block-backed fields. block.mapMu guards mapping; offset never changes
	// after commit (a future defragmenter would rewrite it under the
	// owning BlockList's lock, per spec.md §9). list is the BlockList that
	// owns block, so Free can route back to it without a reverse index.
	block  *DeviceBlock
	offset uint64
	list   *BlockList

	// Dedicated fields.
	memory          driver.DeviceMemory
	dedicatedMapPtr uintptr
	dedicatedMaps   int
}

type userDataBox struct{ v any }

// UserData returns the opaque tag the caller attached at allocation time or
// via SetUserData, or nil if none was set. Not part of spec.md's own data
// model; added per SPEC_FULL.md's supplemented-features section since the
// handle already carries a user_data field with no accessor.
func (a *Allocation) UserData() any {
	if box, ok := a.userData.Load().(userDataBox); ok {
		return box.v
	}
	return nil
}

// SetUserData replaces the caller's opaque tag.
func (a *Allocation) SetUserData(v any) {
	a.userData.Store(userDataBox{v: v})
}

// IsLost reports whether this allocation's range was reclaimed by a
// CanMakeOtherLost request (spec.md GLOSSARY "Lost allocation").
func (a *Allocation) IsLost() bool {
	return a.lastUseFrame.Load() == lostSentinel
}

func (a *Allocation) markLost() {
	a.size = 0
}

// Size returns 0 for a lost allocation, its real size otherwise.
func (a *Allocation) Size() uint64 {
	if a.IsLost() {
		return 0
	}
	return a.size
}

// Offset returns the byte offset within the owning block, or 0 for a
// dedicated allocation (spec.md §3).
func (a *Allocation) Offset() uint64 {
	if a.kind != kindBlockBacked {
		return 0
	}
	return a.offset
}

// TypeIndex returns the memory type this allocation was placed in.
func (a *Allocation) TypeIndex() uint32 { return a.typeIndex }

// DeviceMemory returns the driver memory handle backing this allocation:
// the dedicated allocation itself, or the owning block's, and the zero
// handle if lost.
func (a *Allocation) DeviceMemory() driver.DeviceMemory {
	if a.IsLost() {
		return 0
	}
	if a.kind == kindDedicated {
		return a.memory
	}
	return a.block.memory
}

// Touch records that the allocation was used on currentFrame, resetting
// the staleness window the lost-allocation policy measures against. It is
// a no-op on a lost or non-losable allocation.
func (a *Allocation) Touch(currentFrame uint64) {
	if !a.canBecomeLost {
		return
	}
	for {
		observed := a.lastUseFrame.Load()
		if observed == lostSentinel {
			return
		}
		if observed >= currentFrame {
			return
		}
		if a.lastUseFrame.CompareAndSwap(observed, currentFrame) {
			return
		}
	}
}

// CanBecomeLost reports whether this allocation was created with
// FlagCanBecomeLost.
func (a *Allocation) CanBecomeLost() bool { return a.canBecomeLost }
