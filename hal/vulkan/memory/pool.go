// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package memory

// Pool is a user-configured block list for one memory type, distinct from
// the allocator's default per-type pool (spec.md §9 "Pool as a thin
// wrapper around BlockList"). It is created with its own min/max block
// count and an optional fixed block size.
type Pool struct {
	id        uint32
	typeIndex uint32
	blockList *BlockList
}

// PoolCreateInfo configures a new Pool (spec.md §4.6).
type PoolCreateInfo struct {
	TypeIndex         uint32
	BlockSize         uint64 // 0 uses the allocator's preferred block size
	MinBlockCount     int
	MaxBlockCount     int // 0 means unlimited
	FrameInUseCount   uint64
	PersistentlyMapped bool
}

// ID returns the pool's identifier, non-zero and unique among the live
// pools of its allocator (spec.md §4.6).
func (p *Pool) ID() uint32 { return p.id }

// TypeIndex returns the memory type this pool allocates from.
func (p *Pool) TypeIndex() uint32 { return p.typeIndex }

// MakeAllocationsLost evicts every lost-eligible allocation in this pool,
// per spec.md §4.2's make_pool_allocations_lost, returning the count freed.
func (p *Pool) MakeAllocationsLost(currentFrame uint64) int {
	return p.blockList.makePoolAllocationsLost(currentFrame)
}

// IsEmpty reports whether every block in the pool holds only free space.
func (p *Pool) IsEmpty() bool { return p.blockList.isEmpty() }

// Stats returns the pool's aggregate rollup (SPEC_FULL.md supplemented
// features).
func (p *Pool) Stats() BlockListStats { return p.blockList.Stats() }
