package gc

import "unsafe"

// largeRegion is C6: individually-allocated oversized objects, tracked by
// a flat table, never moved. Pinning (Fcnt) never relocates anything
// here — it only protects the entry from the mark phase's unreachability
// test.
type largeRegion struct {
	blocks map[*Header][]byte
	store  backingStore
}

func newLargeRegion(store backingStore) *largeRegion {
	return &largeRegion{blocks: make(map[*Header][]byte), store: store}
}

func (r *largeRegion) alloc(usz uintptr, typ *ObjectType) *Header {
	sz := blockSize(usz)
	buf := r.store.alloc(sz)

	h := (*Header)(unsafe.Pointer(&buf[0]))
	*h = Header{
		Magic: BlockMagic,
		State: LObj,
		Sz:    sz,
		Usz:   usz,
		Type:  typ,
	}
	h.P = h.payload()
	*h.tail() = Tail{Sz: sz, Magic: TailMagic}

	r.blocks[h] = buf

	return h
}

// iterate visits every tracked header regardless of state (live or
// LRemoved-pending-release).
func (r *largeRegion) iterate(visit func(h *Header)) {
	for h := range r.blocks {
		visit(h)
	}
}

// markPhase is pass A of the split large-object sweep (spec §4.5 /
// SPEC_FULL §4.2): any LObj entry that is unpinned (Fcnt == 0) and was
// never visited during this collection's walk is unreachable. Its
// finalizer runs now and it is demoted to LRemoved, but its storage is
// kept until releasePhase so weak-reference fix-up can still observe the
// transitional dead state.
func (r *largeRegion) markPhase() {
	for h := range r.blocks {
		if h.State == LObj && h.Fcnt == 0 && !h.Visited {
			if h.Type != nil && h.Type.finalize != nil {
				h.Type.finalize(h.payload())
			}

			writeRemoved(h.payload())
			h.State = LRemoved
			h.P = nil
		}

		h.clearVisited()
	}
}

// releasePhase is pass B: return storage for every LRemoved entry.
func (r *largeRegion) releasePhase() {
	for h, buf := range r.blocks {
		if h.State == LRemoved {
			r.store.free(buf)
			delete(r.blocks, h)
		}
	}
}

// remove deletes a single explicitly-deallocated entry immediately
// (driver.deallocate's LObj path, spec §4.8), bypassing the two-phase
// collection sweep.
func (r *largeRegion) remove(h *Header) {
	buf, ok := r.blocks[h]
	if !ok {
		return
	}

	r.store.free(buf)
	delete(r.blocks, h)
}
