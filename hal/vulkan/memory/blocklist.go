// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package memory

import (
	"sort"
	"sync"

	"github.com/gogpu/vkmem/hal/vulkan/driver"
)

// BlockList owns the dynamic pool of device blocks for one memory type —
// either the allocator's default pool for that type, or a user Pool
// (spec.md §3, §9 "Pool as a thin wrapper around BlockList"). Blocks are
// kept sorted by descending sum_free so the first scan in allocate checks
// the emptiest block first.
type BlockList struct {
	mu sync.Mutex

	drv            driver.Driver
	device         driver.Device
	typeIndex      uint32
	heapIndex      uint32
	budget         *budgetTracker
	preferredBlock uint64
	minBlocks      int
	maxBlocks      int
	granularity    uint64
	frameInUse     uint64
	fixedSize      bool
	persistentMap  bool

	blocks []*DeviceBlock
}

// BlockListConfig configures one BlockList instance (used for both the
// default per-type pools and user Pools).
type BlockListConfig struct {
	Driver              driver.Driver
	Device              driver.Device
	TypeIndex           uint32
	HeapIndex           uint32
	Budget              *budgetTracker
	PreferredBlockSize  uint64
	MinBlocks           int
	MaxBlocks           int
	Granularity         uint64
	FrameInUseCount     uint64
	FixedSize           bool
	PersistentlyMapped  bool
}

func newBlockList(cfg BlockListConfig) *BlockList {
	return &BlockList{
		drv:            cfg.Driver,
		device:         cfg.Device,
		typeIndex:      cfg.TypeIndex,
		heapIndex:      cfg.HeapIndex,
		budget:         cfg.Budget,
		preferredBlock: cfg.PreferredBlockSize,
		minBlocks:      cfg.MinBlocks,
		maxBlocks:      cfg.MaxBlocks,
		granularity:    cfg.Granularity,
		frameInUse:     cfg.FrameInUseCount,
		fixedSize:      cfg.FixedSize,
		persistentMap:  cfg.PersistentlyMapped,
	}
}

// createMinBlocks eagerly creates blocks up to minBlocks, per spec.md
// §4.2's public contract. Called when a pool is created with a positive
// MinBlockCount.
func (bl *BlockList) createMinBlocks() error {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	for len(bl.blocks) < bl.minBlocks {
		size := bl.preferredBlock
		if bl.fixedSize && size == 0 {
			size = defaultPreferredBlockSize
		}
		block, aerr := bl.createBlock(size)
		if aerr != nil {
			return aerr
		}
		bl.insertBlockSorted(block)
	}
	return nil
}

func (bl *BlockList) blockSizeCandidates(allocSize uint64) []uint64 {
	floor := bl.preferredBlock / 8
	if allocSize > floor {
		floor = allocSize
	}
	size := bl.preferredBlock
	if size < allocSize {
		size = allocSize
	}
	var sizes []uint64
	for {
		sizes = append(sizes, size)
		if size <= floor {
			break
		}
		next := size / 2
		if next < floor {
			next = floor
		}
		if next == size {
			break
		}
		size = next
	}
	return sizes
}

// createBlock allocates one new block of exactly size bytes, reserving
// budget first and releasing it if the driver call fails.
func (bl *BlockList) createBlock(size uint64) (*DeviceBlock, *AllocError) {
	if !bl.budget.tryReserveBlock(bl.heapIndex, size) {
		return nil, newErr("createBlock", KindOutOfDeviceMemory, ErrBudgetExceeded)
	}
	mem, res := bl.drv.AllocateMemory(bl.device, driver.AllocateInfo{Size: size, MemoryTypeIndex: bl.typeIndex})
	if res != driver.Success {
		bl.budget.releaseBlock(bl.heapIndex, size)
		return nil, wrapDriver("AllocateMemory", res)
	}
	block := &DeviceBlock{memory: mem, size: size, typeIndex: bl.typeIndex, metadata: newBlockMetadata(size)}
	if bl.persistentMap {
		if _, aerr := block.mapRef(bl.drv, bl.device); aerr != nil {
			bl.drv.FreeMemory(bl.device, mem)
			bl.budget.releaseBlock(bl.heapIndex, size)
			return nil, aerr
		}
	}
	return block, nil
}

// createNewBlockForAlloc tries each candidate size from largest to
// smallest, halving on out-of-device-memory (spec.md §4.2 step 6), and
// returns the first block that both allocates successfully and is large
// enough to host allocSize.
func (bl *BlockList) createNewBlockForAlloc(allocSize uint64) (*DeviceBlock, *AllocError) {
	if len(bl.blocks) >= bl.maxBlocks {
		return nil, newErr("createNewBlockForAlloc", KindOutOfDeviceMemory, ErrBlockListExhausted)
	}
	var lastErr *AllocError
	for _, size := range bl.blockSizeCandidates(allocSize) {
		block, aerr := bl.createBlock(size)
		if aerr == nil {
			return block, nil
		}
		lastErr = aerr
		if aerr.Kind != KindOutOfDeviceMemory {
			return nil, aerr
		}
	}
	if lastErr == nil {
		lastErr = newErr("createNewBlockForAlloc", KindOutOfDeviceMemory, ErrBlockListExhausted)
	}
	return nil, lastErr
}

func (bl *BlockList) insertBlockSorted(block *DeviceBlock) {
	bl.blocks = append(bl.blocks, block)
	bl.reorderFrom(len(bl.blocks) - 1)
}

// reorderFrom restores descending-sum_free order after the block at index
// i changes (commit/free both shrink or grow its free space).
func (bl *BlockList) reorderFrom(i int) {
	sort.SliceStable(bl.blocks, func(a, b int) bool {
		return bl.blocks[a].metadata.sumFree > bl.blocks[b].metadata.sumFree
	})
}

// Allocate implements spec.md §4.2's ordered allocation policy.
func (bl *BlockList) Allocate(currentFrame, size, alignment uint64, suballocType SuballocationType, strategy Strategy, flags AllocationFlags) (*Allocation, *AllocError) {
	bl.mu.Lock()
	defer bl.mu.Unlock()

	canMakeOtherLost := flags.has(FlagCanMakeOtherLost) && !flags.has(FlagNeverAllocate)
	ctx := placementCtx{
		allocSize:       size,
		alignment:       alignment,
		granularity:     bl.granularity,
		suballocType:    suballocType,
		strategy:        strategy,
		currentFrame:    currentFrame,
		frameInUseCount: bl.frameInUse,
	}

	// First scan: every existing block, cannot lose others.
	for i, block := range bl.blocks {
		if req, ok := block.metadata.tryRequest(ctx); ok {
			alloc := bl.commitOn(block, req, size, alignment, suballocType, currentFrame, flags)
			bl.reorderFrom(i)
			return alloc, nil
		}
	}

	if flags.has(FlagNeverAllocate) {
		return nil, newErr("Allocate", KindOutOfDeviceMemory, ErrBlockListExhausted)
	}

	// Create-new-block attempt.
	if block, aerr := bl.createNewBlockForAlloc(size); aerr == nil {
		ctx.canMakeOtherLost = false
		req, ok := block.metadata.tryRequest(ctx)
		if !ok {
			// Newly created to size, must fit; defensive only.
			bl.drv.FreeMemory(bl.device, block.memory)
			bl.budget.releaseBlock(bl.heapIndex, block.size)
			return nil, newErr("Allocate", KindOutOfDeviceMemory, ErrBlockListExhausted)
		}
		alloc := bl.commitOn(block, req, size, alignment, suballocType, currentFrame, flags)
		bl.insertBlockSorted(block)
		return alloc, nil
	} else if aerr.Kind != KindOutOfDeviceMemory {
		return nil, aerr
	}

	// Second scan: may lose others.
	if !canMakeOtherLost {
		return nil, newErr("Allocate", KindOutOfDeviceMemory, ErrBlockListExhausted)
	}
	var bestBlock *DeviceBlock
	var bestIdx int
	var bestReq *allocationRequest
	var bestCost uint64
	for i, block := range bl.blocks {
		req, ok := block.metadata.tryRequestLosing(ctx)
		if !ok {
			continue
		}
		cost := req.calcCost()
		if bestReq == nil || cost < bestCost {
			bestBlock, bestIdx, bestReq, bestCost = block, i, req, cost
		}
	}
	if bestReq == nil {
		return nil, newErr("Allocate", KindOutOfDeviceMemory, ErrBlockListExhausted)
	}
	node, ok := bestBlock.metadata.makeRequestedLost(bestReq, currentFrame, bl.frameInUse)
	if !ok {
		return nil, newErr("Allocate", KindOutOfDeviceMemory, ErrBlockListExhausted)
	}
	bestReq.anchor = node
	alloc := bl.commitOn(bestBlock, bestReq, size, alignment, suballocType, currentFrame, flags)
	bl.reorderFrom(bestIdx)
	return alloc, nil
}

func (bl *BlockList) commitOn(block *DeviceBlock, req *allocationRequest, size, alignment uint64, suballocType SuballocationType, currentFrame uint64, flags AllocationFlags) *Allocation {
	alloc := &Allocation{
		kind:          kindBlockBacked,
		typeIndex:     bl.typeIndex,
		size:          size,
		alignment:     alignment,
		suballocType:  suballocType,
		canBecomeLost: flags.has(FlagCanBecomeLost),
		block:         block,
		offset:        req.offset,
		list:          bl,
	}
	alloc.lastUseFrame.Store(currentFrame)
	block.metadata.commitRequest(req, suballocType, size, alloc)
	bl.budget.addAllocationBytes(bl.heapIndex, size)
	return alloc
}

// Free implements spec.md §4.2's free path: remove the suballocation, and
// destroy the block if it became empty and the list is above min_blocks.
func (bl *BlockList) Free(alloc *Allocation) {
	bl.mu.Lock()
	defer bl.mu.Unlock()

	block := alloc.block
	size := alloc.size
	// A handle freed before may name an offset that now belongs to another
	// allocation; only the record this handle owns is released.
	if e, ok := block.metadata.offsetIndex[alloc.offset]; !ok || e.Value.(*suballocation).owner != alloc {
		return
	}
	if !block.metadata.freeAtOffset(alloc.offset) {
		return
	}
	bl.budget.subAllocationBytes(bl.heapIndex, size)

	for i, b := range bl.blocks {
		if b != block {
			continue
		}
		if b.metadata.isEmpty() && len(bl.blocks) > bl.minBlocks && !bl.fixedSize {
			bl.drv.FreeMemory(bl.device, b.memory)
			bl.budget.releaseBlock(bl.heapIndex, b.size)
			bl.blocks = append(bl.blocks[:i], bl.blocks[i+1:]...)
			return
		}
		bl.reorderFrom(i)
		return
	}
}

// makePoolAllocationsLost walks every block flipping lost-eligible
// allocations to the sentinel, used by Pool's bulk eviction entry point.
func (bl *BlockList) makePoolAllocationsLost(currentFrame uint64) int {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	lost := 0
	for _, block := range bl.blocks {
		for e := block.metadata.list.Front(); e != nil; {
			next := e.Next()
			rec := e.Value.(*suballocation)
			if rec.typ != SuballocationFree && rec.owner != nil && rec.owner.canBecomeLost {
				observed, ok := block.metadata.lostEligible(rec, placementCtx{currentFrame: currentFrame, frameInUseCount: bl.frameInUse})
				if ok && rec.owner.lastUseFrame.CompareAndSwap(observed, lostSentinel) {
					rec.owner.markLost()
					block.metadata.freeNode(e)
					lost++
				}
			}
			e = next
		}
	}
	return lost
}

// dispose frees every block unconditionally. Called only once the owning
// Allocator/Pool has verified there are no live allocations left.
func (bl *BlockList) dispose() {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	for _, b := range bl.blocks {
		if b.IsMapped() {
			bl.drv.UnmapMemory(bl.device, b.memory)
		}
		bl.drv.FreeMemory(bl.device, b.memory)
		bl.budget.releaseBlock(bl.heapIndex, b.size)
	}
	bl.blocks = nil
}

// BlockListStats aggregates the rollup spec.md §4.2's add_stats/pool_stats
// entry points expose, generalized from the teacher's BuddyStats/
// AllocatorStats structs (SPEC_FULL.md "Supplemented features").
type BlockListStats struct {
	BlockCount      int
	AllocationCount int
	UsedBytes       uint64
	FreeBytes       uint64
}

func (bl *BlockList) Stats() BlockListStats {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	var s BlockListStats
	s.BlockCount = len(bl.blocks)
	for _, b := range bl.blocks {
		s.FreeBytes += b.metadata.sumFree
		s.UsedBytes += b.size - b.metadata.sumFree
		for e := b.metadata.list.Front(); e != nil; e = e.Next() {
			if e.Value.(*suballocation).typ != SuballocationFree {
				s.AllocationCount++
			}
		}
	}
	return s
}

func (bl *BlockList) isEmpty() bool {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	for _, b := range bl.blocks {
		if !b.metadata.isEmpty() {
			return false
		}
	}
	return true
}
