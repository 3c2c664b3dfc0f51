package gc

import "unsafe"

// pinnedRegion is C5: a growing sequence of arenas plus a single
// address-sorted, doubly-linked free list threaded through the freed
// blocks' own payload bytes (freeListNode, see placeholder.go). Blocks
// here never move; freeze migrates an object in, unfreeze migrates it
// back out (see Collector.Freeze/Unfreeze in collector.go, which also
// retargets C9 weak entries; C7/C8 slots are rewritten by
// GCUpdatePointers or the next GC).
type pinnedRegion struct {
	arenas        []*arena
	freeHead      *Header
	store         backingStore
	lastArenaSize uintptr
}

func newPinnedRegion(initialSize uintptr, store backingStore) *pinnedRegion {
	return &pinnedRegion{
		arenas:        []*arena{newArena(initialSize, store)},
		store:         store,
		lastArenaSize: initialSize,
	}
}

func freeNode(h *Header) *freeListNode { return (*freeListNode)(h.payload()) }

// alloc satisfies a freeze migration's storage need: first from the
// free-list (splitting if the match is oversized by at least
// MinBlockSize), then by bump-allocating in an existing arena, finally
// by appending a new arena sized to at least the request and the
// previous arena's size ceiled to quantum (spec §4.4 steps 1–2).
func (r *pinnedRegion) alloc(usz uintptr, typ *ObjectType, quantum uintptr) *Header {
	sz := blockSize(usz)

	h := r.findFree(sz)
	if h != nil {
		h.Usz = usz
		h.Type = typ
	} else {
		for _, a := range r.arenas {
			if h = a.alloc(usz, typ); h != nil {
				break
			}
		}
	}

	if h == nil {
		newSize := alignUp(sz, quantum)
		if r.lastArenaSize > newSize {
			newSize = alignUp(r.lastArenaSize, quantum)
		}

		na := newArena(newSize, r.store)
		r.arenas = append(r.arenas, na)
		r.lastArenaSize = newSize

		h = na.alloc(usz, typ)
		if h == nil {
			fatalf("pinnedRegion.alloc: freshly appended arena of size %d cannot hold %d bytes", newSize, usz)
		}
	}

	h.State = Frozen
	h.Fcnt = 1
	h.P = h.payload()

	return h
}

// findFree removes and returns a free block of at least sz bytes,
// splitting off and re-inserting the remainder if it would still be at
// least MinBlockSize.
func (r *pinnedRegion) findFree(sz uintptr) *Header {
	for cur := r.freeHead; cur != nil; cur = freeNode(cur).next {
		if cur.Sz >= sz {
			return r.takeFree(cur, sz)
		}
	}

	return nil
}

func (r *pinnedRegion) unlinkFree(h *Header) {
	n := freeNode(h)
	if n.prev != nil {
		freeNode(n.prev).next = n.next
	} else {
		r.freeHead = n.next
	}

	if n.next != nil {
		freeNode(n.next).prev = n.prev
	}
}

func (r *pinnedRegion) takeFree(h *Header, sz uintptr) *Header {
	r.unlinkFree(h)

	if h.Sz >= sz+MinBlockSize {
		remainder := h.Sz - sz
		h.Sz = remainder
		*h.tail() = Tail{Sz: remainder, Magic: TailMagic}
		r.insertFree(h)

		nh := (*Header)(unsafe.Add(unsafe.Pointer(h), remainder))
		*nh = Header{Magic: BlockMagic, Sz: sz}
		*nh.tail() = Tail{Sz: sz, Magic: TailMagic}

		return nh
	}

	return h
}

// release marks h free and threads it onto the sorted free list,
// coalescing with any physically adjacent free neighbor. Must only run
// when the mutator is re-entered, never mid-collection (spec §4.4: "never
// performed inside collection, to avoid invalidating weak-reference
// headers mid-fix-up").
func (r *pinnedRegion) release(h *Header) {
	h.State = FRemoved
	h.Fcnt = 0
	h.P = nil
	*freeNode(h) = freeListNode{}
	r.insertFree(h)
}

// insertFree links h into the address-sorted free list and coalesces it
// with a physically-adjacent predecessor and/or successor (spec §4.4,
// I5).
func (r *pinnedRegion) insertFree(h *Header) {
	addr := uintptr(unsafe.Pointer(h))

	var prev, next *Header

	for cur := r.freeHead; cur != nil; cur = freeNode(cur).next {
		if uintptr(unsafe.Pointer(cur)) > addr {
			next = cur

			break
		}

		prev = cur
	}

	node := freeNode(h)
	node.prev = prev
	node.next = next

	if prev != nil {
		freeNode(prev).next = h
	} else {
		r.freeHead = h
	}

	if next != nil {
		freeNode(next).prev = h
	}

	if next != nil && addr+h.Sz == uintptr(unsafe.Pointer(next)) {
		r.mergeInto(h, next)
	}

	if prev != nil && uintptr(unsafe.Pointer(prev))+prev.Sz == addr {
		r.mergeInto(prev, h)
	}
}

// mergeInto absorbs the higher-addressed victim into the lower-addressed
// survivor. victim is unlinked and marked FMerged, "left in place" so a
// stray interior pointer into it still resolves to survivor via linear
// scan (spec §4.4).
func (r *pinnedRegion) mergeInto(survivor, victim *Header) {
	r.unlinkFree(victim)

	survivor.Sz += victim.Sz
	*survivor.tail() = Tail{Sz: survivor.Sz, Magic: TailMagic}
	victim.State = FMerged
	victim.P = nil
}

// iterate walks every block, live or free, across every arena in this
// region, in arena-append order. Used by registration's slotRefused probe
// and by the collector's walk roots (every Frozen block is itself a GC root: spec
// §4.3 step 2 folds in "walk roots contributed by... pinned... regions").
func (r *pinnedRegion) iterate(visit func(h *Header)) {
	for _, a := range r.arenas {
		a.iterate(visit)
	}
}
