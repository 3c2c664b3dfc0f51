package gc

import (
	"log"
	"unsafe"
)

// Collector is C10: the driver that owns the singleton state and
// orchestrates allocation, collection, freeze/unfreeze, and pointer
// validation. A *Collector is not safe for concurrent use by more than
// one mutator (spec §5) — it performs no internal locking beyond the
// inGC reentrancy assertion.
type Collector struct {
	cfg            *Config
	store          backingStore
	copying        *copyingRegion
	pinned         *pinnedRegion
	large          *largeRegion
	roots          *rootTable
	walkers        *walkerTable
	weak           *weakTable
	largeThreshold uintptr
	inGC           bool
	stats          Stats
	logger         *log.Logger
}

// New builds a Collector with the given options applied over the
// defaults (spec §4.8: 128 KiB threshold, 4 KiB floor).
func New(opts ...Option) *Collector {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}

	store := newBackingStore(cfg.BackingStore)

	return &Collector{
		cfg:            cfg,
		store:          store,
		copying:        newCopyingRegion(cfg.CopyingArenaSize, store),
		pinned:         newPinnedRegion(cfg.PinnedArenaSize, store),
		large:          newLargeRegion(store),
		roots:          newRootTable(),
		walkers:        newWalkerTable(),
		weak:           newWeakTable(),
		largeThreshold: clampThreshold(cfg.LargeThreshold, cfg.CopyingArenaSize),
		logger:         log.Default(),
	}
}

func clampThreshold(want, arenaSize uintptr) uintptr {
	if want < MinLargeThreshold {
		return MinLargeThreshold
	}

	if max := arenaSize / 2; want > max && max >= MinLargeThreshold {
		return max
	}

	return want
}

func (c *Collector) assertNotInGC(op string) {
	if c.inGC {
		fatalf("%s: illegal reentry into collector during gc()", op)
	}
}

// Allocate is allocate(usz): routes to the large region at or above the
// threshold, otherwise the copying region, triggering a collection (and,
// if still insufficient, a resize) on exhaustion (spec §4.3 step 4,
// §4.8).
func (c *Collector) Allocate(usz uintptr, typ *ObjectType) Ptr {
	c.assertNotInGC("allocate")

	if usz >= c.largeThreshold {
		h := c.large.alloc(usz, typ)
		if c.cfg.TrackStats {
			c.stats.alloc(h.Sz, h.Usz)
		}

		return Ptr(h.payload())
	}

	h := c.copying.alloc(usz, typ)
	if h == nil {
		c.GC()
		h = c.copying.alloc(usz, typ)
	}

	if h == nil {
		live := c.copying.active.cursor
		minCap := live + usz
		if 2*live > minCap {
			minCap = 2 * live
		}

		newSize := c.copying.growSpare(minCap, c.cfg.GrowthQuantum)
		c.logger.Printf("gc: growing copying region to %d bytes", newSize)
		c.GC()
		c.copying.matchSpareSize(newSize)
		h = c.copying.alloc(usz, typ)
	}

	if h == nil {
		panic(newOutOfMemoryError(usz))
	}

	if c.cfg.TrackStats {
		c.stats.alloc(h.Sz, h.Usz)
	}

	return Ptr(h.payload())
}

// Deallocate is deallocate(payload): the client-initiated finalization
// path. Dispatches by state; already-dead states are idempotent no-ops
// (spec P7); forwarded states recurse through the forwarding pointer
// (spec §4.8).
func (c *Collector) Deallocate(p Ptr) bool {
	c.assertNotInGC("deallocate")

	if p == nil {
		return false
	}

	h := headerOf(unsafe.Pointer(p))
	c.checkHeader(h, "deallocate")

	for h.State.forwarded() {
		h = headerOf(h.P)
	}

	reclaimed := false

	switch h.State {
	case GcObj:
		c.finalize(h)
		writeRemoved(h.payload())
		poisonGap(h, unsafe.Sizeof(removedPlaceholder{}))
		h.State = GcRm
		h.P = nil
		reclaimed = true

		if c.cfg.TrackStats {
			c.stats.dealloc(h.Sz, h.Usz)
		}
	case Frozen:
		c.finalize(h)
		sz, usz := h.Sz, h.Usz
		c.pinned.release(h)

		if c.cfg.TrackStats {
			c.stats.dealloc(sz, usz)
		}

		reclaimed = true
	case LObj:
		c.finalize(h)
		writeRemoved(h.payload())
		poisonGap(h, unsafe.Sizeof(removedPlaceholder{}))
		sz, usz := h.Sz, h.Usz
		h.State = LRemoved
		h.P = nil
		c.large.remove(h)

		if c.cfg.TrackStats {
			c.stats.dealloc(sz, usz)
		}

		reclaimed = true
	case GcRm, FRemoved, FMerged, LRemoved:
		reclaimed = false
	default:
		fatalf("deallocate: unknown state %s", h.State)
	}

	c.GCUpdatePointers()

	return reclaimed
}

func (c *Collector) finalize(h *Header) {
	if h.Type != nil && h.Type.finalize != nil {
		h.Type.finalize(h.payload())
	}
}

func (c *Collector) checkHeader(h *Header, op string) {
	if (debugBuild || c.cfg.DebugChecks) && !h.check() {
		fatalf("%s: corrupt header", op)
	}
}

// walkSlot reads *slot, traces it via walkPtr, and writes the (possibly
// new) address back — the "caller stores the result back into the slot
// it loaded from" contract of spec §4.10.
func (c *Collector) walkSlot(label string, slot *Ptr) {
	*slot = c.walkPtr(label, *slot)
}

// walkPtr is the sole mechanism by which references are traced (spec
// §4.10).
func (c *Collector) walkPtr(label string, p Ptr) Ptr {
	if p == nil {
		return nil
	}

	h := headerOf(unsafe.Pointer(p))
	c.checkHeader(h, "walk")

	if h.Visited {
		return Ptr(h.P)
	}

	h.setVisited()

	switch h.State {
	case GcObj:
		return c.moveToCopying(h, label)
	case Frozen, LObj:
		if h.Type != nil {
			h.Type.walk(h.payload(), c.walkSlot)
		}

		return Ptr(h.P)
	case Unfrozen, GcFrozen, GcMoved:
		next := headerOf(h.P)

		return c.walkPtr(label, Ptr(next.payload()))
	case GcRm, FRemoved, FMerged, LRemoved:
		panic(newDanglingReferenceError(label))
	default:
		fatalf("walk: unknown state %s reached via %q", h.State, label)

		return nil
	}
}

// moveToCopying copies h's payload into the active arena, overlays a
// Moved placeholder on the old payload, and recurses into the new
// payload's walker (spec §4.10, GcObj case).
func (c *Collector) moveToCopying(h *Header, label string) Ptr {
	newH := c.copying.active.alloc(h.Usz, h.Type)
	if newH == nil {
		fatalf("walk: active arena exhausted mid-collection copying %q", label)
	}

	copy(unsafe.Slice((*byte)(newH.payload()), h.Usz), unsafe.Slice((*byte)(h.payload()), h.Usz))
	h.forwardTo(GcMoved, newH.payload())

	if newH.Type != nil {
		newH.Type.walk(newH.payload(), c.walkSlot)
	}

	return Ptr(newH.payload())
}

// GC is gc(): a full stop-the-world collection (spec §4.3).
func (c *Collector) GC() {
	c.assertNotInGC("gc")
	c.inGC = true

	start := realClock{}.now()

	oldActive := c.copying.swap()

	c.roots.walk(c.walkSlot)
	c.walkers.walk(c.walkSlot)

	c.pinned.iterate(func(h *Header) {
		if h.State == Frozen && h.Type != nil {
			h.Type.walk(h.payload(), c.walkSlot)
		}
	})

	c.large.iterate(func(h *Header) {
		if h.State == LObj && h.Fcnt > 0 && h.Type != nil {
			h.setVisited()
			h.Type.walk(h.payload(), c.walkSlot)
		}
	})

	oldActive.reclaimUnvisited(GcObj, func(h *Header) {
		c.finalize(h)
		writeRemoved(h.payload())
		poisonGap(h, unsafe.Sizeof(removedPlaceholder{}))
		h.State = GcRm
		h.P = nil

		if c.cfg.TrackStats {
			c.stats.dealloc(h.Sz, h.Usz)
		}
	})

	c.copying.active.clearVisitedAll()

	if c.cfg.TrackStats {
		c.large.iterate(func(h *Header) {
			if h.State == LObj && h.Fcnt == 0 && !h.Visited {
				c.stats.dealloc(h.Sz, h.Usz)
			}
		})
	}

	c.large.markPhase()
	c.weak.updatePointers()
	c.large.releasePhase()

	c.inGC = false

	if c.cfg.TrackStats {
		c.stats.gcAdd(realClock{}.now().Sub(start))
	}
}

// GCUpdatePointers is gc_update_pointers(): follows forwarding chains to
// rewrite slots without moving anything. It rewrites only registered root,
// walker and weak slots; references stored inside managed objects are not
// traversed here and are rewritten by the next GC. Used after
// freeze/unfreeze/deallocate (spec §4.10).
func (c *Collector) GCUpdatePointers() {
	c.roots.walk(c.updateOnlySlot)
	c.walkers.walk(c.updateOnlySlot)
	c.weak.updatePointers()
}

// updateOnlySlot chases *slot's forwarding chain without moving anything
// and without participating in the visited-bit protocol (that protocol
// exists to make a copying pass idempotent under cycles; a pure
// chase-and-rewrite needs no such guard since it never mutates the
// blocks it visits).
func (c *Collector) updateOnlySlot(label string, slot *Ptr) {
	p := *slot
	if p == nil {
		return
	}

	h := headerOf(unsafe.Pointer(p))

	for h.State.forwarded() {
		h = headerOf(h.P)
	}

	if h.State.dead() {
		*slot = nil
	} else {
		*slot = Ptr(h.P)
	}
}

// RegisterRoot is register_root(label, slot). Silently refused if slot
// falls inside a managed block but outside its payload (spec §4.7, §6).
func (c *Collector) RegisterRoot(label string, slot *Ptr) bool {
	if c.slotRefused(unsafe.Pointer(slot)) {
		return false
	}

	c.roots.register(label, slot)

	return true
}

func (c *Collector) UnregisterRoot(slot *Ptr) bool { return c.roots.unregister(slot) }

func (c *Collector) UnregisterAllRootsFor(slot *Ptr) int { return c.roots.unregisterAllFor(slot) }

func (c *Collector) UnregisterAllRoots() { c.roots.unregisterAll() }

// RegisterWalker is register_walker(label, object, walker_fn).
func (c *Collector) RegisterWalker(label string, object unsafe.Pointer, fn WalkerFunc) bool {
	if c.slotRefused(object) {
		return false
	}

	c.walkers.register(label, object, fn)

	return true
}

func (c *Collector) UnregisterWalker(object unsafe.Pointer) bool {
	return c.walkers.unregister(object)
}

func (c *Collector) UnregisterAllWalkersFor(object unsafe.Pointer) int {
	return c.walkers.unregisterAllFor(object)
}

// RegisterWeak is register_weak(slot).
func (c *Collector) RegisterWeak(slot *Ptr) bool {
	if c.slotRefused(unsafe.Pointer(slot)) {
		return false
	}

	p := *slot
	if p == nil {
		return true
	}

	c.weak.register(headerOf(unsafe.Pointer(p)), slot)

	return true
}

func (c *Collector) UnregisterWeak(slot *Ptr) bool { return c.weak.unregister(slot) }

// slotRefused implements the registration silent-ignore rule: refuse iff
// the address falls inside some known block's extent but outside its
// payload (spec §4.7: "protects the collector from interior
// headers/tails being treated as roots").
func (c *Collector) slotRefused(addr unsafe.Pointer) bool {
	p := uintptr(addr)
	end := p + unsafe.Sizeof(Ptr(nil))

	refused := false

	probe := func(h *Header) {
		if refused || h.inBlock(p, end) == Outside {
			return
		}

		if h.inPayload(p, end) != Fully {
			refused = true
		}
	}

	c.copying.active.iterate(probe)
	c.copying.spare.iterate(probe)
	c.pinned.iterate(probe)
	c.large.iterate(probe)

	return refused
}

// Freeze is freeze(slot, do_update_pointers) (spec §4.9).
func (c *Collector) Freeze(slot *Ptr, doUpdate bool) error {
	c.assertNotInGC("freeze")

	p := *slot
	if p == nil {
		return newInvalidStateError("freeze", GcRm)
	}

	h := headerOf(unsafe.Pointer(p))

	switch h.State {
	case GcObj:
		newH := c.migrateToPinned(h)
		*slot = Ptr(newH.payload())
	case Frozen:
		h.Fcnt++
	case LObj:
		h.Fcnt++
	default:
		// Mirrors fatal_error("Cannot freeze obj") in the original: a
		// dead or forwarding state here means the slot was stale before
		// the caller ever reached us, which this package treats as
		// corruption rather than a recoverable usage error.
		fatalf("freeze: illegal in state %s", h.State)
	}

	if doUpdate {
		c.GCUpdatePointers()
	}

	return nil
}

// migrateToPinned moves a GcObj block into the pinned region, leaving a
// GcFrozen forwarding stub behind, and notifies the weak table (C9) of
// the address change via update_pp's delta shift (spec §4.4 step 3).
// Root and walker slots (C7/C8) are not notified here; they follow the
// forwarding stub in GCUpdatePointers or the next GC.
func (c *Collector) migrateToPinned(h *Header) *Header {
	newH := c.pinned.alloc(h.Usz, h.Type, PinnedGrowthQuantum)
	copy(unsafe.Slice((*byte)(newH.payload()), h.Usz), unsafe.Slice((*byte)(h.payload()), h.Usz))

	delta := int(uintptr(unsafe.Pointer(newH)) - uintptr(unsafe.Pointer(h)))
	h.forwardTo(GcFrozen, newH.payload())
	c.weak.updatePinMigration(h, newH, delta)

	if c.cfg.TrackStats {
		c.stats.freeze(newH.Sz, newH.Usz)
	}

	return newH
}

// Unfreeze is unfreeze(slot, do_update_pointers) (spec §4.9).
func (c *Collector) Unfreeze(slot *Ptr, doUpdate bool) error {
	c.assertNotInGC("unfreeze")

	p := *slot
	if p == nil {
		return newInvalidStateError("unfreeze", GcRm)
	}

	h := headerOf(unsafe.Pointer(p))

	switch h.State {
	case Frozen:
		h.Fcnt--
		if h.Fcnt > 0 {
			break
		}

		newH := c.migrateToCopyingFromPinned(h)
		*slot = Ptr(newH.payload())
	case LObj:
		if h.Fcnt > 0 {
			h.Fcnt--
		}
	case GcObj:
		// Nothing to do; reported non-fatal per spec §4.9.
		return nil
	case GcMoved, GcFrozen, Unfrozen:
		// *slot was read before a GC or an earlier Freeze/Unfreeze moved
		// the object; chase the forwarding pointer and retry against its
		// new home, same as the original's "object has moved, delegate
		// to new place".
		*slot = Ptr(h.P)

		return c.Unfreeze(slot, doUpdate)
	case GcRm, FRemoved, LRemoved:
		// Already removed. The original returns null here without
		// updating statistics; it is not an error, just nothing left to
		// unfreeze.
		*slot = nil

		return nil
	default:
		// FMerged and anything else land here: a live slot should never
		// point at a coalesced free-list block, so treat it as
		// corruption, matching fatal_error("Cannot unfreeze obj").
		fatalf("unfreeze: illegal in state %s", h.State)
	}

	if doUpdate {
		c.GCUpdatePointers()
	}

	return nil
}

func (c *Collector) migrateToCopyingFromPinned(h *Header) *Header {
	newH := c.copying.active.alloc(h.Usz, h.Type)
	if newH == nil {
		c.GC()

		newH = c.copying.active.alloc(h.Usz, h.Type)
		if newH == nil {
			panic(newOutOfMemoryError(h.Usz))
		}
	}

	copy(unsafe.Slice((*byte)(newH.payload()), h.Usz), unsafe.Slice((*byte)(h.payload()), h.Usz))

	delta := int(uintptr(unsafe.Pointer(newH)) - uintptr(unsafe.Pointer(h)))

	if c.cfg.TrackStats {
		c.stats.unfreeze(h.Sz, h.Usz)
	}

	h.State = Unfrozen
	h.P = newH.payload()
	h.Fcnt = 0
	*freeNode(h) = freeListNode{}
	c.pinned.insertFree(h)
	c.weak.updatePinMigration(h, newH, delta)

	return newH
}

// PointerOk is pointer_ok(p): true iff p is exactly a live payload
// address.
func (c *Collector) PointerOk(p unsafe.Pointer) bool {
	if p == nil {
		return false
	}

	h := c.findContaining(uintptr(p), uintptr(p)+1)
	if h == nil || h == badBlock {
		return false
	}

	return h.payload() == p && !h.State.dead() && !h.State.forwarded()
}

// DataOk is data_ok(p, size_or_end): true iff [p, p+size) lies fully
// inside one live block's payload.
func (c *Collector) DataOk(p unsafe.Pointer, size uintptr) bool {
	if p == nil {
		return false
	}

	start := uintptr(p)
	end := start + size

	h := c.findContaining(start, end)
	if h == nil || h == badBlock || h.State.dead() || h.State.forwarded() {
		return false
	}

	return h.inPayload(start, end) == Fully
}

func (c *Collector) findContaining(p, end uintptr) *Header {
	if h, ov := c.copying.active.getBlockHead(p, end); ov != Outside {
		return h
	}

	if h, ov := c.copying.spare.getBlockHead(p, end); ov != Outside {
		return h
	}

	for _, a := range c.pinned.arenas {
		if h, ov := a.getBlockHead(p, end); ov != Outside {
			return h
		}
	}

	var found *Header

	c.large.iterate(func(h *Header) {
		if found != nil {
			return
		}

		if h.inBlock(p, end) != Outside {
			found = h
		}
	})

	return found
}

// SetLargeThreshold is set_large_threshold(bytes); clamps silently to
// [MinLargeThreshold, arenaSize/2] (spec §6, SPEC_FULL §4.4).
func (c *Collector) SetLargeThreshold(bytes uintptr) uintptr {
	prev := c.largeThreshold
	c.largeThreshold = clampThreshold(bytes, c.copying.size)

	return prev
}

// Resize is resize(new_total): always runs a full gc() first so the live
// set is known, then grows only the copying region to at least
// new_total/2 per arena (SPEC_FULL §4, supplemented feature 5 / Open
// Question 2).
func (c *Collector) Resize(newTotal uintptr) {
	if newTotal < MinResizeTotal {
		newTotal = MinResizeTotal
	}

	c.GC()

	perArena := newTotal / 2
	if perArena <= c.copying.size {
		return
	}

	newSize := c.copying.growSpare(perArena, c.cfg.GrowthQuantum)
	c.GC()
	c.copying.matchSpareSize(newSize)
}

// Stats returns a snapshot of collection statistics (SPEC_FULL §4.1).
func (c *Collector) Stats() Stats { return c.stats.snapshot() }
