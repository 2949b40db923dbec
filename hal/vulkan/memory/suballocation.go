// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package memory

// SuballocationType tags a suballocation record so BlockMetadata can detect
// buffer/image page-granularity conflicts (spec.md §3, §4.1).
type SuballocationType int

const (
	// SuballocationFree marks an unused range. Never conflicts with anything.
	SuballocationFree SuballocationType = iota
	// SuballocationUnknown is used for resources whose tiling is not known
	// to the allocator. Conflicts with every non-free neighbour.
	SuballocationUnknown
	// SuballocationBuffer backs a VkBuffer.
	SuballocationBuffer
	// SuballocationImageLinear backs a VK_IMAGE_TILING_LINEAR image.
	SuballocationImageLinear
	// SuballocationImageOptimal backs a VK_IMAGE_TILING_OPTIMAL image.
	SuballocationImageOptimal
	// SuballocationImageUnknown backs an image whose tiling could not be
	// determined ahead of placement.
	SuballocationImageUnknown
)

func (t SuballocationType) String() string {
	switch t {
	case SuballocationFree:
		return "Free"
	case SuballocationUnknown:
		return "Unknown"
	case SuballocationBuffer:
		return "Buffer"
	case SuballocationImageLinear:
		return "ImageLinear"
	case SuballocationImageOptimal:
		return "ImageOptimal"
	case SuballocationImageUnknown:
		return "ImageUnknown"
	default:
		return "Invalid"
	}
}

func (t SuballocationType) isImage() bool {
	return t == SuballocationImageLinear || t == SuballocationImageOptimal || t == SuballocationImageUnknown
}

// suballocationsConflict reports whether two suballocation types may not
// share a single buffer/image-granularity page (spec.md §3). The table is
// symmetric: any Image* conflicts with Buffer and with any different Image*
// tag except an identical one; Free never conflicts; Unknown conflicts with
// everything non-free, including itself.
func suballocationsConflict(a, b SuballocationType) bool {
	if a == SuballocationFree || b == SuballocationFree {
		return false
	}
	if a == SuballocationUnknown || b == SuballocationUnknown {
		return true
	}
	if a == SuballocationBuffer && b == SuballocationBuffer {
		return false
	}
	aImg, bImg := a.isImage(), b.isImage()
	if aImg && b == SuballocationBuffer {
		return true
	}
	if bImg && a == SuballocationBuffer {
		return true
	}
	if aImg && bImg {
		return a != b
	}
	return false
}

// suballocation is one contiguous range within a device block: either free
// or owned by an Allocation (spec.md §3). It is always held as the Value of
// a container/list.Element inside blockMetadata's ordered list, never
// copied out, so that the list node can be used as a stable identity for
// commit/free/make-lost bookkeeping.
type suballocation struct {
	offset uint64
	size   uint64
	typ    SuballocationType
	owner  *Allocation // nil iff typ == SuballocationFree
}
