// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package memory

import (
	"container/list"
	"fmt"
	"sort"
)

// placementCtx carries everything BlockMetadata needs to place one request,
// matching spec.md §4.1's `ctx` parameter to try_request.
type placementCtx struct {
	allocSize        uint64
	alignment        uint64
	granularity      uint64
	suballocType     SuballocationType
	strategy         Strategy
	currentFrame     uint64
	frameInUseCount  uint64
	canMakeOtherLost bool
}

// lostItem is one non-free neighbour a can-make-other-lost candidate would
// have to evict, captured with the frame index observed at check time so
// make_requested_lost can CAS from exactly that value.
type lostItem struct {
	elem          *list.Element
	observedFrame uint64
}

// allocationRequest is the result of a successful tryRequest: a place to
// put a new allocation, plus whatever neighbours must first be made lost.
type allocationRequest struct {
	anchor      *list.Element // a Free record; commit mutates it in place
	offset      uint64        // aligned, granularity-adjusted placement offset
	toMakeLost  []lostItem
	sumItemSize uint64
}

// calcCost implements spec.md §4.2's candidate ranking for the losing-sweep
// second scan: bytes displaced plus a fixed penalty per evicted neighbour.
func (r *allocationRequest) calcCost() uint64 {
	return r.sumItemSize + uint64(len(r.toMakeLost))*lostAllocationCost
}

// blockMetadata sub-allocates within one device block (spec.md §3, §4.1).
// The ordered suballocation list is a container/list.List kept in offset
// order with no gaps and no overlap; a parallel offset index gives O(1)
// free-by-offset lookup, and a size-sorted slice of the registered Free
// records (those at or above the registration threshold) supports the
// BestFit/FirstFit/WorstFit binary search. None of blockMetadata's methods
// take a lock of their own: the owning BlockList's mutex serializes all
// access (spec.md §5).
type blockMetadata struct {
	size        uint64
	list        *list.List
	offsetIndex map[uint64]*list.Element
	freeIndex   []*list.Element // ascending by size; subset of list's Free nodes
	sumFree     uint64
	freeCount   int
}

func newBlockMetadata(size uint64) *blockMetadata {
	m := &blockMetadata{
		size:        size,
		list:        list.New(),
		offsetIndex: make(map[uint64]*list.Element),
	}
	root := &suballocation{offset: 0, size: size, typ: SuballocationFree}
	elem := m.list.PushBack(root)
	m.offsetIndex[0] = elem
	m.sumFree = size
	m.freeCount = 1
	m.registerFree(elem)
	return m
}

func (m *blockMetadata) isEmpty() bool {
	return m.list.Len() == 1 && m.freeCount == 1
}

func (m *blockMetadata) registerFree(e *list.Element) {
	rec := e.Value.(*suballocation)
	if rec.size < minFreeSuballocSizeToRegister {
		return
	}
	i := sort.Search(len(m.freeIndex), func(i int) bool {
		return m.freeIndex[i].Value.(*suballocation).size >= rec.size
	})
	m.freeIndex = append(m.freeIndex, nil)
	copy(m.freeIndex[i+1:], m.freeIndex[i:])
	m.freeIndex[i] = e
}

func (m *blockMetadata) unregisterFree(e *list.Element) {
	rec := e.Value.(*suballocation)
	i := sort.Search(len(m.freeIndex), func(i int) bool {
		return m.freeIndex[i].Value.(*suballocation).size >= rec.size
	})
	for j := i; j < len(m.freeIndex); j++ {
		if m.freeIndex[j] == e {
			m.freeIndex = append(m.freeIndex[:j], m.freeIndex[j+1:]...)
			return
		}
		if m.freeIndex[j].Value.(*suballocation).size != rec.size {
			break
		}
	}
}

// lostEligible reports whether rec's owner satisfies the stale-frame
// condition (spec.md §4.1 point 6), returning the frame index observed so
// the caller can CAS from exactly that value later.
func (m *blockMetadata) lostEligible(rec *suballocation, ctx placementCtx) (uint64, bool) {
	if rec.owner == nil {
		return 0, false
	}
	observed := rec.owner.lastUseFrame.Load()
	if observed == lostSentinel {
		return 0, false
	}
	if observed+ctx.frameInUseCount >= ctx.currentFrame {
		return 0, false
	}
	return observed, true
}

// check implements spec.md §4.1's per-candidate placement check. start may
// be a Free record (the common case) or, only when ctx.canMakeOtherLost,
// a non-free lost-eligible record that the request would itself evict.
func (m *blockMetadata) check(start *list.Element, ctx placementCtx) (*allocationRequest, bool) {
	rec := start.Value.(*suballocation)

	var toMakeLost []lostItem
	var sumItemSize uint64

	if rec.typ != SuballocationFree {
		if !ctx.canMakeOtherLost {
			return nil, false
		}
		observed, ok := m.lostEligible(rec, ctx)
		if !ok {
			return nil, false
		}
		toMakeLost = append(toMakeLost, lostItem{elem: start, observedFrame: observed})
		sumItemSize += rec.size
	}

	proposedOffset := alignUp(rec.offset+debugMargin, ctx.alignment)

	// Backward granularity conflict (spec.md §4.1 point 3).
	if prev := start.Prev(); prev != nil {
		prevRec := prev.Value.(*suballocation)
		if prevRec.typ != SuballocationFree &&
			samePage(prevRec.offset+prevRec.size-1, proposedOffset, ctx.granularity) &&
			suballocationsConflict(prevRec.typ, ctx.suballocType) {
			proposedOffset = alignUp(proposedOffset, ctx.granularity)
		}
	}

	neededEnd := proposedOffset + ctx.allocSize + debugMargin
	availEnd := rec.offset + rec.size
	cur := start
	for neededEnd > availEnd {
		next := cur.Next()
		if next == nil {
			return nil, false
		}
		nextRec := next.Value.(*suballocation)
		if nextRec.typ == SuballocationFree {
			// Cannot happen under the no-adjacent-free invariant when cur
			// is the original Free start, but a freshly-evicted neighbour
			// earlier in this same walk could in principle border one;
			// handled defensively.
			availEnd = nextRec.offset + nextRec.size
			cur = next
			continue
		}
		if !ctx.canMakeOtherLost {
			return nil, false
		}
		observed, ok := m.lostEligible(nextRec, ctx)
		if !ok {
			return nil, false
		}
		toMakeLost = append(toMakeLost, lostItem{elem: next, observedFrame: observed})
		sumItemSize += nextRec.size
		availEnd = nextRec.offset + nextRec.size
		cur = next
	}

	// Forward granularity conflict (spec.md §4.1 point 5).
	if after := cur.Next(); after != nil {
		afterRec := after.Value.(*suballocation)
		if afterRec.typ != SuballocationFree &&
			samePage(proposedOffset+ctx.allocSize-1, afterRec.offset, ctx.granularity) &&
			suballocationsConflict(ctx.suballocType, afterRec.typ) {
			if !ctx.canMakeOtherLost {
				return nil, false
			}
			observed, ok := m.lostEligible(afterRec, ctx)
			if !ok {
				return nil, false
			}
			toMakeLost = append(toMakeLost, lostItem{elem: after, observedFrame: observed})
			sumItemSize += afterRec.size
		}
	}

	return &allocationRequest{
		anchor:      start,
		offset:      proposedOffset,
		toMakeLost:  toMakeLost,
		sumItemSize: sumItemSize,
	}, true
}

func (m *blockMetadata) tryRequest(ctx placementCtx) (*allocationRequest, bool) {
	switch ctx.strategy {
	case StrategyBestFit:
		return m.tryBestFit(ctx)
	case strategyMinOffset:
		return m.tryMinOffset(ctx)
	default: // StrategyFirstFit, StrategyWorstFit
		return m.tryLargestDown(ctx)
	}
}

func (m *blockMetadata) tryBestFit(ctx placementCtx) (*allocationRequest, bool) {
	needed := ctx.allocSize + 2*debugMargin
	idx := sort.Search(len(m.freeIndex), func(i int) bool {
		return m.freeIndex[i].Value.(*suballocation).size >= needed
	})
	for i := idx; i < len(m.freeIndex); i++ {
		if req, ok := m.check(m.freeIndex[i], ctx); ok {
			return req, true
		}
	}
	return nil, false
}

func (m *blockMetadata) tryLargestDown(ctx placementCtx) (*allocationRequest, bool) {
	for i := len(m.freeIndex) - 1; i >= 0; i-- {
		if req, ok := m.check(m.freeIndex[i], ctx); ok {
			return req, true
		}
	}
	return nil, false
}

func (m *blockMetadata) tryMinOffset(ctx placementCtx) (*allocationRequest, bool) {
	for e := m.list.Front(); e != nil; e = e.Next() {
		if e.Value.(*suballocation).typ != SuballocationFree {
			continue
		}
		if req, ok := m.check(e, ctx); ok {
			return req, true
		}
	}
	return nil, false
}

// tryRequestLosing is the §4.2 "second scan": every position in the block
// — free or lost-eligible — is evaluated and the lowest-cost candidate
// wins, letting a single allocation evict more than one stale neighbour
// (or, with no free space at all, evict a fully-packed block's worth).
func (m *blockMetadata) tryRequestLosing(ctx placementCtx) (*allocationRequest, bool) {
	ctx.canMakeOtherLost = true
	var best *allocationRequest
	var bestCost uint64
	for e := m.list.Front(); e != nil; e = e.Next() {
		req, ok := m.check(e, ctx)
		if !ok {
			continue
		}
		cost := req.calcCost()
		if best == nil || cost < bestCost {
			best, bestCost = req, cost
		}
	}
	return best, best != nil
}

// commit mutates node (a Free record) in place to hold the new allocation,
// splitting off up to two padding Free fragments (spec.md §4.1 "Commit").
func (m *blockMetadata) commit(node *list.Element, offset, size uint64, typ SuballocationType, owner *Allocation) {
	rec := node.Value.(*suballocation)
	m.unregisterFree(node)

	origOffset, origSize := rec.offset, rec.size
	paddingBegin := offset - origOffset
	paddingEnd := (origOffset + origSize) - (offset + size)

	m.sumFree -= origSize
	m.freeCount--
	delete(m.offsetIndex, origOffset)

	rec.offset = offset
	rec.size = size
	rec.typ = typ
	rec.owner = owner
	m.offsetIndex[offset] = node

	if paddingBegin > 0 {
		left := &suballocation{offset: origOffset, size: paddingBegin, typ: SuballocationFree}
		leftElem := m.list.InsertBefore(left, node)
		m.offsetIndex[origOffset] = leftElem
		m.sumFree += paddingBegin
		m.freeCount++
		m.registerFree(leftElem)
	}
	if paddingEnd > 0 {
		rightOffset := offset + size
		right := &suballocation{offset: rightOffset, size: paddingEnd, typ: SuballocationFree}
		rightElem := m.list.InsertAfter(right, node)
		m.offsetIndex[rightOffset] = rightElem
		m.sumFree += paddingEnd
		m.freeCount++
		m.registerFree(rightElem)
	}
}

func (m *blockMetadata) commitRequest(req *allocationRequest, typ SuballocationType, size uint64, owner *Allocation) {
	m.commit(req.anchor, req.offset, size, typ, owner)
}

// freeNode marks e Free and coalesces eagerly with a free left and/or right
// neighbour, always surviving as whichever element absorbs the other
// (spec.md §4.1 "Free").
func (m *blockMetadata) freeNode(e *list.Element) *list.Element {
	rec := e.Value.(*suballocation)
	rec.typ = SuballocationFree
	rec.owner = nil
	m.sumFree += rec.size
	m.freeCount++

	if prev := e.Prev(); prev != nil {
		prevRec := prev.Value.(*suballocation)
		if prevRec.typ == SuballocationFree {
			m.unregisterFree(prev)
			prevRec.size += rec.size
			delete(m.offsetIndex, rec.offset)
			m.list.Remove(e)
			m.freeCount--
			e, rec = prev, prevRec
		}
	}
	if next := e.Next(); next != nil {
		nextRec := next.Value.(*suballocation)
		if nextRec.typ == SuballocationFree {
			m.unregisterFree(next)
			rec.size += nextRec.size
			delete(m.offsetIndex, nextRec.offset)
			m.list.Remove(next)
			m.freeCount--
		}
	}
	m.registerFree(e)
	return e
}

// freeAtOffset implements spec.md §4.1's free_at_offset: handles do not
// carry raw list-node pointers (spec.md §9), only (block, offset).
func (m *blockMetadata) freeAtOffset(offset uint64) bool {
	elem, ok := m.offsetIndex[offset]
	if !ok {
		return false
	}
	if elem.Value.(*suballocation).typ == SuballocationFree {
		return false
	}
	m.freeNode(elem)
	return true
}

// findFreeContaining locates the Free record spanning offset. Used after a
// losing sweep, since the evicted chain's surviving element is whichever
// node the coalescing in freeNode happened to keep.
func (m *blockMetadata) findFreeContaining(offset uint64) *list.Element {
	for e := m.list.Front(); e != nil; e = e.Next() {
		rec := e.Value.(*suballocation)
		if rec.typ == SuballocationFree && rec.offset <= offset && offset < rec.offset+rec.size {
			return e
		}
	}
	return nil
}

// makeRequestedLost executes spec.md §4.2's "losing sweep": each
// neighbour the request would evict is CAS'd from its observed frame index
// to the lost sentinel and, on success, freed in this metadata. A CAS
// failure (the neighbour was touched since check()) aborts immediately;
// whatever was already evicted in this sweep stays evicted, since losing
// is publish-once and never reverses (spec.md §9).
func (m *blockMetadata) makeRequestedLost(req *allocationRequest, currentFrame, frameInUseCount uint64) (*list.Element, bool) {
	if len(req.toMakeLost) == 0 {
		return req.anchor, true
	}
	for _, item := range req.toMakeLost {
		rec := item.elem.Value.(*suballocation)
		if rec.typ == SuballocationFree {
			continue // already absorbed by an earlier merge in this sweep
		}
		owner := rec.owner
		if item.observedFrame+frameInUseCount >= currentFrame {
			return nil, false
		}
		if !owner.lastUseFrame.CompareAndSwap(item.observedFrame, lostSentinel) {
			return nil, false
		}
		owner.markLost()
		m.freeNode(item.elem)
	}
	node := m.findFreeContaining(req.offset)
	if node == nil {
		return nil, false
	}
	return node, true
}

// validate checks the invariants spec.md §4.1/§8 describe. It is a debug
// aid for tests, not called on any hot path.
func (m *blockMetadata) validate() error {
	var sumFree uint64
	var freeCount int
	prevFree := false
	offset := uint64(0)
	for e := m.list.Front(); e != nil; e = e.Next() {
		rec := e.Value.(*suballocation)
		if rec.offset != offset {
			return fmt.Errorf("non-contiguous offset at %d, want %d", rec.offset, offset)
		}
		if rec.typ == SuballocationFree {
			if prevFree {
				return fmt.Errorf("adjacent free records at offset %d", rec.offset)
			}
			sumFree += rec.size
			freeCount++
			prevFree = true
		} else {
			if rec.owner == nil {
				return fmt.Errorf("non-free record at %d has no owner", rec.offset)
			}
			prevFree = false
		}
		offset += rec.size
	}
	if offset != m.size {
		return fmt.Errorf("records cover %d bytes, want %d", offset, m.size)
	}
	if sumFree != m.sumFree {
		return fmt.Errorf("sum_free mismatch: tracked %d, computed %d", m.sumFree, sumFree)
	}
	if freeCount != m.freeCount {
		return fmt.Errorf("free_count mismatch: tracked %d, computed %d", m.freeCount, freeCount)
	}
	prevSize := uint64(0)
	for i, e := range m.freeIndex {
		rec := e.Value.(*suballocation)
		if rec.typ != SuballocationFree {
			return fmt.Errorf("free index entry %d is not free", i)
		}
		if rec.size < minFreeSuballocSizeToRegister {
			return fmt.Errorf("free index entry %d below registration threshold", i)
		}
		if rec.size < prevSize {
			return fmt.Errorf("free index entry %d out of order", i)
		}
		prevSize = rec.size
	}
	return nil
}
