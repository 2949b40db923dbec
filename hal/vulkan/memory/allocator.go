// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package memory

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/gogpu/vkmem/hal/vulkan/driver"
	"github.com/gogpu/vkmem/hal/vulkan/poolid"
)

// Allocator is the entry point (spec.md §2 "Allocator facade"): it routes
// requests to the type selector, a per-type default block list, a user
// Pool's block list, or the dedicated path, and owns every pool and the
// per-heap budget tracker.
type Allocator struct {
	cfg      Config
	memProps driver.MemoryProperties
	typeSel  *typeSelector
	budget   *budgetTracker

	defaultPools  []*BlockList
	dedicatedSets []*dedicatedSet
	dedicated     *dedicatedAllocator

	poolsMu sync.RWMutex
	pools   map[uint32]*Pool
	poolIDs *poolid.Allocator

	currentFrame atomic.Uint64
}

// CreateInfo is the remainder of an allocation request beyond the driver's
// own MemoryRequirements (spec.md §4.6).
type CreateInfo struct {
	RequestInfo
	Flags    AllocationFlags
	Strategy Strategy
	Pool     *Pool
	UserData any
}

// New builds an Allocator from cfg, querying the driver's memory
// properties once and sizing every internal structure from them.
func New(cfg Config) (*Allocator, error) {
	if err := cfg.validate(); err != nil {
		return nil, &AllocError{Kind: KindInvalidArgument, Op: "New", Err: err}
	}
	if cfg.BufferImageGranularity == 0 {
		cfg.BufferImageGranularity = 1
	}
	if cfg.NonCoherentAtomSize == 0 {
		cfg.NonCoherentAtomSize = 1
	}

	props := cfg.Driver.GetPhysicalDeviceMemoryProperties(cfg.PhysicalDevice)

	a := &Allocator{
		cfg:      cfg,
		memProps: props,
		typeSel:  newTypeSelector(props, cfg.AllowAMDDeviceCoherent, cfg.IsIntegratedGPU),
		budget:   newBudgetTracker(cfg.Driver, cfg.PhysicalDevice, props.MemoryHeaps, cfg.HeapSizeLimits, cfg.BudgetCapability),
		pools:    make(map[uint32]*Pool),
		poolIDs:  poolid.New(),
	}
	a.dedicated = &dedicatedAllocator{drv: cfg.Driver, device: cfg.Device, budget: a.budget, withDeviceAddr: cfg.BufferDeviceAddressCapability}

	a.defaultPools = make([]*BlockList, len(props.MemoryTypes))
	a.dedicatedSets = make([]*dedicatedSet, len(props.MemoryTypes))
	for i, t := range props.MemoryTypes {
		a.dedicatedSets[i] = &dedicatedSet{}
		a.defaultPools[i] = newBlockList(BlockListConfig{
			Driver:             cfg.Driver,
			Device:             cfg.Device,
			TypeIndex:          uint32(i),
			HeapIndex:          t.HeapIndex,
			Budget:             a.budget,
			PreferredBlockSize: a.blockSizeForHeap(t.HeapIndex),
			MinBlocks:          0,
			MaxBlocks:          math.MaxInt32,
			Granularity:        cfg.BufferImageGranularity,
			FrameInUseCount:    cfg.FrameInUseCount,
		})
	}
	return a, nil
}

func (a *Allocator) blockSizeForHeap(heapIndex uint32) uint64 {
	heapSize := a.memProps.MemoryHeaps[heapIndex].Size
	if heapSize <= smallHeapMax {
		return alignUp(heapSize/8, preferredBlockSizeAlignment)
	}
	return a.cfg.PreferredLargeHeapBlockSize
}

func (a *Allocator) typeMinAlignment(typeIndex uint32) uint64 {
	if int(typeIndex) < len(a.cfg.MemoryTypeMinAlignment) {
		if v := a.cfg.MemoryTypeMinAlignment[typeIndex]; v > 0 {
			return v
		}
	}
	return 1
}

func validateFlags(flags AllocationFlags, pool *Pool, dedicatedRequired bool) *AllocError {
	if flags.has(FlagDedicatedMemory) && flags.has(FlagNeverAllocate) {
		return newErr("Allocate", KindInvalidArgument, ErrIncompatibleFlags)
	}
	if flags.has(FlagMapped) && flags.has(FlagCanBecomeLost) {
		return newErr("Allocate", KindInvalidArgument, ErrIncompatibleFlags)
	}
	if pool != nil && flags.has(FlagDedicatedMemory) {
		return newErr("Allocate", KindInvalidArgument, ErrIncompatibleFlags)
	}
	if pool != nil && dedicatedRequired {
		return newErr("Allocate", KindInvalidArgument, ErrIncompatibleFlags)
	}
	return nil
}

// AdvanceFrame bumps the externally-driven frame counter the
// lost-allocation machinery reads (spec.md §4.6).
func (a *Allocator) AdvanceFrame() uint64 { return a.currentFrame.Add(1) }

// CurrentFrame returns the current frame index.
func (a *Allocator) CurrentFrame() uint64 { return a.currentFrame.Load() }

// Allocate implements spec.md §4.6's allocate_memory.
func (a *Allocator) Allocate(reqs driver.MemoryRequirements, dedicatedReqs driver.DedicatedRequirements, dedicated *driver.DedicatedResource, create CreateInfo, suballocType SuballocationType) (*Allocation, error) {
	if reqs.Size == 0 {
		return nil, newErr("Allocate", KindInvalidArgument, ErrZeroSize)
	}
	if !isPowerOfTwo(reqs.Alignment) {
		return nil, newErr("Allocate", KindInvalidArgument, ErrInvalidAlignment)
	}
	if aerr := validateFlags(create.Flags, create.Pool, dedicatedReqs.RequiresDedicatedAllocation); aerr != nil {
		return nil, aerr
	}

	if create.Pool != nil {
		if int(create.Pool.typeIndex) >= len(a.defaultPools) {
			return nil, newErr("Allocate", KindInvalidArgument, ErrInvalidPool)
		}
		alloc, aerr := create.Pool.blockList.Allocate(a.currentFrame.Load(), reqs.Size, reqs.Alignment, suballocType, create.Strategy, create.Flags)
		if aerr != nil {
			return nil, aerr
		}
		if create.UserData != nil {
			alloc.SetUserData(create.UserData)
		}
		return alloc, nil
	}

	typeIndex, ok := a.typeSel.selectType(reqs.MemoryTypeBits, create.RequestInfo)
	if !ok {
		return nil, newErr("Allocate", KindFeatureNotPresent, ErrNoSuitableMemoryType)
	}
	heapIndex := a.memProps.MemoryTypes[typeIndex].HeapIndex

	alignment := reqs.Alignment
	if minAlign := a.typeMinAlignment(typeIndex); minAlign > alignment {
		alignment = minAlign
	}

	needsDedicated := dedicatedReqs.RequiresDedicatedAllocation ||
		dedicatedReqs.PrefersDedicatedAllocation ||
		create.Flags.has(FlagDedicatedMemory) ||
		create.Usage == UsageGpuLazilyAllocated ||
		reqs.Size > a.blockSizeForHeap(heapIndex)/2

	if needsDedicated {
		if create.Flags.has(FlagNeverAllocate) {
			return nil, newErr("Allocate", KindInvalidArgument, ErrIncompatibleFlags)
		}
		alloc, aerr := a.dedicated.allocate(typeIndex, heapIndex, reqs.Size, dedicated, create.Flags, a.cfg.BufferDeviceAddressCapability)
		if aerr != nil {
			return nil, aerr
		}
		a.dedicatedSets[typeIndex].insert(alloc)
		if create.UserData != nil {
			alloc.SetUserData(create.UserData)
		}
		return alloc, nil
	}

	alloc, aerr := a.defaultPools[typeIndex].Allocate(a.currentFrame.Load(), reqs.Size, alignment, suballocType, create.Strategy, create.Flags)
	if aerr != nil {
		if aerr.Kind == KindOutOfDeviceMemory && !create.Flags.has(FlagNeverAllocate) {
			dalloc, derr := a.dedicated.allocate(typeIndex, heapIndex, reqs.Size, dedicated, create.Flags, a.cfg.BufferDeviceAddressCapability)
			if derr != nil {
				return nil, aerr
			}
			a.dedicatedSets[typeIndex].insert(dalloc)
			if create.UserData != nil {
				dalloc.SetUserData(create.UserData)
			}
			return dalloc, nil
		}
		return nil, aerr
	}
	if create.UserData != nil {
		alloc.SetUserData(create.UserData)
	}
	return alloc, nil
}

// Free implements spec.md §4.6's free_memory: idempotent for an
// already-lost or already-freed handle, routed by variant.
func (a *Allocator) Free(alloc *Allocation) error {
	if alloc == nil || alloc.IsLost() {
		return nil
	}
	if alloc.kind == kindDedicated {
		if !a.dedicatedSets[alloc.typeIndex].remove(alloc) {
			return nil // already removed: idempotent
		}
		heapIndex := a.memProps.MemoryTypes[alloc.typeIndex].HeapIndex
		a.dedicated.free(alloc, heapIndex)
		return nil
	}
	alloc.list.Free(alloc)
	return nil
}

// CreatePool implements spec.md §4.6's pool lifecycle.
func (a *Allocator) CreatePool(info PoolCreateInfo) (*Pool, error) {
	if int(info.TypeIndex) >= len(a.defaultPools) {
		return nil, newErr("CreatePool", KindInvalidArgument, ErrInvalidHeapIndex)
	}
	heapIndex := a.memProps.MemoryTypes[info.TypeIndex].HeapIndex
	blockSize := info.BlockSize
	if blockSize == 0 {
		blockSize = a.blockSizeForHeap(heapIndex)
	}
	maxBlocks := info.MaxBlockCount
	if maxBlocks == 0 {
		maxBlocks = math.MaxInt32
	}
	bl := newBlockList(BlockListConfig{
		Driver:             a.cfg.Driver,
		Device:             a.cfg.Device,
		TypeIndex:          info.TypeIndex,
		HeapIndex:          heapIndex,
		Budget:             a.budget,
		PreferredBlockSize: blockSize,
		MinBlocks:          info.MinBlockCount,
		MaxBlocks:          maxBlocks,
		Granularity:        a.cfg.BufferImageGranularity,
		FrameInUseCount:    info.FrameInUseCount,
		FixedSize:          info.BlockSize != 0,
		PersistentlyMapped: info.PersistentlyMapped,
	})
	if info.MinBlockCount > 0 {
		if err := bl.createMinBlocks(); err != nil {
			return nil, err
		}
	}
	id := a.poolIDs.Alloc()
	pool := &Pool{id: id, typeIndex: info.TypeIndex, blockList: bl}
	a.poolsMu.Lock()
	a.pools[id] = pool
	a.poolsMu.Unlock()
	return pool, nil
}

// DestroyPool implements spec.md §4.6: destruction requires the pool to be
// empty.
func (a *Allocator) DestroyPool(p *Pool) error {
	if !p.IsEmpty() {
		return newErr("DestroyPool", KindInvalidState, ErrPoolNotEmpty)
	}
	a.poolsMu.Lock()
	delete(a.pools, p.id)
	a.poolsMu.Unlock()
	p.blockList.dispose()
	a.poolIDs.Free(p.id)
	return nil
}

// HeapBudget returns the sanitized per-heap usage/budget pair (spec.md
// §4.5).
func (a *Allocator) HeapBudget(heapIndex uint32) HeapBudget {
	return a.budget.HeapBudget(heapIndex)
}

// Dispose releases the allocator. Per spec.md §7 this is an InvalidState
// error if any pool or dedicated allocation is still live.
func (a *Allocator) Dispose() error {
	a.poolsMu.RLock()
	livePools := len(a.pools)
	a.poolsMu.RUnlock()
	liveDedicated := 0
	for _, s := range a.dedicatedSets {
		liveDedicated += s.len()
	}
	if livePools > 0 || liveDedicated > 0 {
		return newErr("Dispose", KindInvalidState, ErrAllocatorHasLivePools)
	}
	for _, bl := range a.defaultPools {
		bl.dispose()
	}
	return nil
}

// AllocatorStats is the top-level aggregate rollup (SPEC_FULL.md
// supplemented features).
type AllocatorStats struct {
	PerType []BlockListStats
}

// Stats returns a per-memory-type rollup of every default pool.
func (a *Allocator) Stats() AllocatorStats {
	stats := AllocatorStats{PerType: make([]BlockListStats, len(a.defaultPools))}
	for i, bl := range a.defaultPools {
		stats.PerType[i] = bl.Stats()
	}
	return stats
}
