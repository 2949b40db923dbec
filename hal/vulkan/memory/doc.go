// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package memory implements a Vulkan device-memory suballocator: one
// VkDeviceMemory object backs many Buffer/Image bindings, carved up and
// reclaimed without a driver round trip on every allocation.
//
// # Architecture
//
// The allocator is organized in layers, each depending only on the one
// below it:
//
//	┌─────────────────────────────────────────────────────────┐
//	│                      Allocator                           │
//	│  (facade: validation, type selection, pool/dedicated     │
//	│   routing, mapping, Stats)                                │
//	├─────────────────────────────────────────────────────────┤
//	│      typeSelector       │   budgetTracker  │  Pool        │
//	│  (usage → type index)   │  (per-heap caps) │  (named      │
//	│                         │                  │   BlockList) │
//	├─────────────────────────────────────────────────────────┤
//	│                       BlockList                          │
//	│  (one per memory type: owns a set of DeviceBlocks,        │
//	│   grows/shrinks them, runs the placement policy)          │
//	├─────────────────────────────────────────────────────────┤
//	│                     DeviceBlock                           │
//	│  (one VkDeviceMemory, one blockMetadata, ref-counted map) │
//	├─────────────────────────────────────────────────────────┤
//	│                    blockMetadata                          │
//	│  (ordered suballocation list + size-indexed free index)  │
//	├─────────────────────────────────────────────────────────┤
//	│            hal/vulkan/driver.Driver (contract)            │
//	│  (vkAllocateMemory, vkMapMemory, vkFlushMappedMemoryRanges,│
//	│   vkBindBufferMemory, ...)                                 │
//	└─────────────────────────────────────────────────────────┘
//
// dedicatedAllocator sits beside BlockList: large or driver-flagged
// resources get a whole VkDeviceMemory of their own instead of a
// suballocation.
//
// # Block metadata
//
// Each block's free space is tracked by an ordered doubly-linked list of
// suballocation records (container/list), kept free of adjacent Free
// neighbours by eager coalescing, plus a size-sorted secondary index over
// the Free records above minFreeSuballocSizeToRegister for fast placement
// search. BestFit binary-searches the size index; FirstFit and WorstFit
// scan it from one end; the can-make-other-lost path falls back to a
// full list walk when no free space alone would satisfy the request.
//
// # Memory type selection
//
// Vulkan exposes multiple memory types with different properties:
//   - DeviceLocal: fast GPU access, no guaranteed CPU access
//   - HostVisible: CPU can map and access
//   - HostCoherent: no flush/invalidate needed
//   - HostCached: CPU reads are cached
//
// typeSelector scores each candidate type against a usage preset's
// required/preferred/not-preferred flag sets and picks the cheapest.
//
// # Allocation strategies
//
//   - Block-backed: the common case, suballocated from a BlockList.
//   - Dedicated: large or driver-required resources get their own
//     VkDeviceMemory, tracked against the same per-heap budget.
//
// # Thread safety
//
// Allocator is safe for concurrent use. Each BlockList and the budget
// tracker hold their own locks; an individual Allocation's mapping state
// is also safe for concurrent Map/Unmap, but callers must not use a
// handle after it has been freed.
package memory
