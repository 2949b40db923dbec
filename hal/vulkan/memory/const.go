// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package memory

// Constants fixed by spec.md §6.
const (
	// smallHeapMax is the ceiling below which a heap is considered
	// "small" for preferred-block-size derivation.
	smallHeapMax = 1 << 30 // 1 GiB

	// lostAllocationCost is the fixed per-item penalty added to a
	// can-make-other-lost candidate's placement cost.
	lostAllocationCost = 1 << 20 // 1,048,576

	// opsBeforeRepoll is the number of successful allocations between
	// automatic driver budget re-polls.
	opsBeforeRepoll = 30

	// preferredBlockSizeAlignment is the granularity a derived small-heap
	// block size is rounded up to.
	preferredBlockSizeAlignment = 32

	// defaultPreferredBlockSize is DefaultConfig's
	// PreferredLargeHeapBlockSize, and the block size createMinBlocks falls
	// back to when a list has no preferred block size.
	defaultPreferredBlockSize = 256 << 20 // 256 MiB

	// minFreeSuballocSizeToRegister is the build-time threshold below
	// which a free record is not added to the size-indexed secondary
	// index (spec.md §3, §9); it still lives in the ordered list.
	minFreeSuballocSizeToRegister = 16

	// debugMargin pads every placement by this many bytes on each side.
	// Zero in this build; kept as a named knob per spec.md §6.
	debugMargin = 0

	// lostSentinel is the value last_use_frame is moved to, atomically
	// and irreversibly, when an allocation is reclaimed by a
	// CanMakeOtherLost request (spec.md §9).
	lostSentinel = ^uint64(0)

	// unknownUsageSentinel marks a buffer/image usage mask as "not
	// supplied", equal to all-ones per spec.md §6.
	unknownUsageSentinel = ^uint32(0)
)

// Strategy selects how BlockMetadata.tryRequest picks among candidate free
// records (spec.md §4.1). MinOffset is internal-only and nothing in this
// package selects it; the losing sweep (BlockList.tryRequestLosing) walks
// the ordered list itself rather than going through a Strategy.
type Strategy int

const (
	// StrategyBestFit scans the size-ordered free index ascending from
	// the smallest record that could fit. Default strategy.
	StrategyBestFit Strategy = iota
	// StrategyFirstFit and StrategyWorstFit both scan the size-ordered
	// free index from the largest record downward, accepting the first
	// candidate that passes the placement check (spec.md §4.1).
	StrategyFirstFit
	StrategyWorstFit
	// strategyMinOffset walks the suballocation list in offset order.
	strategyMinOffset
)

func (s Strategy) String() string {
	switch s {
	case StrategyBestFit:
		return "BestFit"
	case StrategyFirstFit:
		return "FirstFit"
	case StrategyWorstFit:
		return "WorstFit"
	case strategyMinOffset:
		return "MinOffset"
	default:
		return "Invalid"
	}
}

// AllocationFlags mirrors the create-info flag bits spec.md §4.6 validates
// combinations of.
type AllocationFlags uint32

const (
	FlagDedicatedMemory AllocationFlags = 1 << iota
	FlagNeverAllocate
	FlagMapped
	FlagCanBecomeLost
	FlagCanMakeOtherLost
	FlagWithinBudget
)

func (f AllocationFlags) has(bit AllocationFlags) bool { return f&bit != 0 }

func alignUp(v, alignment uint64) uint64 {
	if alignment == 0 {
		return v
	}
	return (v + alignment - 1) &^ (alignment - 1)
}

func isPowerOfTwo(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}

func samePage(offsetA, offsetB, granularity uint64) bool {
	if granularity <= 1 {
		return false
	}
	return offsetA/granularity == offsetB/granularity
}
