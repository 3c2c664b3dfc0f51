package gc

// copyingRegion is C4: two equal-sized arenas, active and spare. New
// objects are bump-allocated from active; Collector.GC swaps the pair
// (swap) and copies every reachable object from the old active (now
// spare) into the new, empty active.
type copyingRegion struct {
	active *arena
	spare  *arena
	size   uintptr
	store  backingStore
}

func newCopyingRegion(initialSize uintptr, store backingStore) *copyingRegion {
	return &copyingRegion{
		active: newArena(initialSize, store),
		spare:  newArena(initialSize, store),
		size:   initialSize,
		store:  store,
	}
}

func (r *copyingRegion) alloc(usz uintptr, typ *ObjectType) *Header {
	return r.active.alloc(usz, typ)
}

// swap exchanges active and spare ahead of a collection (spec §4.3 step
// 1) and returns the arena that now holds every previously-live object
// (the collector walks it next). The new active starts empty.
func (r *copyingRegion) swap() *arena {
	old := r.active
	r.active, r.spare = r.spare, old
	r.active.reset()

	return old
}

// growSpare replaces the (currently unused, post-sweep) spare arena with
// one sized to the next multiple of quantum holding at least minCapacity
// bytes. Calling this just before a second swap+collect makes that
// collect copy the live set into the newly-grown arena — see
// Collector.Allocate and Collector.Resize for the two-step growth
// protocol this supports (spec
// §4.3 step 4, resolved per DESIGN.md's Open Question 2).
func (r *copyingRegion) growSpare(minCapacity, quantum uintptr) uintptr {
	newSize := alignUp(minCapacity, quantum)
	if newSize < quantum {
		newSize = quantum
	}

	if newSize <= r.size {
		newSize = r.size + quantum
	}

	r.spare.release()
	r.spare = newArena(newSize, r.store)

	return newSize
}

// matchSpareSize replaces the spare arena (assumed freshly emptied by a
// swap+sweep) with one of newSize, so both arenas end a growth cycle at
// the same capacity.
func (r *copyingRegion) matchSpareSize(newSize uintptr) {
	r.spare.release()
	r.spare = newArena(newSize, r.store)
	r.size = newSize
}
