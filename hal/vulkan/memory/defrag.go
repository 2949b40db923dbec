// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package memory

// DefragmentationInfo configures a defragmentation pass. It exists so the
// four entry points below have a stable signature to grow into; none of
// their fields are consulted yet.
type DefragmentationInfo struct {
	MaxBytesPerPass       uint64
	MaxAllocationsPerPass int
}

// DefragmentationStats reports what a pass moved. Always zero in this
// build.
type DefragmentationStats struct {
	BytesMoved       uint64
	AllocationsMoved int
	BytesFreed       uint64
	BlocksFreed      int
}

// DefragmentationContext is returned by BeginDefragmentation and threaded
// through the remaining three entry points.
type DefragmentationContext struct{}

// BeginDefragmentation starts a defragmentation session. The data model
// already tolerates a later compaction pass: handles store (block, offset),
// not a raw suballocation-node pointer, so a defragmenter could rewrite
// offset under the owning BlockList's lock (spec.md §9). No such pass is
// implemented yet.
func (a *Allocator) BeginDefragmentation(info DefragmentationInfo) (*DefragmentationContext, error) {
	return nil, newErr("BeginDefragmentation", KindUnsupported, ErrDefragUnsupported)
}

// BeginDefragmentationPass starts one pass within a session.
func (a *Allocator) BeginDefragmentationPass(ctx *DefragmentationContext) error {
	return newErr("BeginDefragmentationPass", KindUnsupported, ErrDefragUnsupported)
}

// EndDefragmentationPass ends one pass, reporting what it moved.
func (a *Allocator) EndDefragmentationPass(ctx *DefragmentationContext) (DefragmentationStats, error) {
	return DefragmentationStats{}, newErr("EndDefragmentationPass", KindUnsupported, ErrDefragUnsupported)
}

// EndDefragmentation ends the session.
func (a *Allocator) EndDefragmentation(ctx *DefragmentationContext) (DefragmentationStats, error) {
	return DefragmentationStats{}, newErr("EndDefragmentation", KindUnsupported, ErrDefragUnsupported)
}
