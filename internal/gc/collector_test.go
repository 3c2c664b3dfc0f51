package gc

import (
	"testing"
	"unsafe"
)

// node is the shared test payload type: an int plus one outgoing managed
// reference, enough to build chains and cycles.
type node struct {
	Val  int
	Next Ptr
}

func (n *node) Walk(visit func(string, *Ptr)) { visit("next", &n.Next) }

var nodeType = Register[node]()

func newNode(c *Collector, val int) (*node, Ptr) {
	p := c.Allocate(unsafe.Sizeof(node{}), nodeType)
	n := (*node)(unsafe.Pointer(p))
	n.Val = val

	return n, p
}

func TestAllocateAndReadBack(t *testing.T) {
	c := New(WithArenaSize(64 * 1024))

	_, p := newNode(c, 42)
	n := (*node)(unsafe.Pointer(p))

	if n.Val != 42 {
		t.Fatalf("Val = %d, want 42", n.Val)
	}
}

func TestGCReclaimsUnreachable(t *testing.T) {
	c := New(WithArenaSize(64 * 1024))

	newNode(c, 1)

	before := c.Stats().CurAllocCount()
	c.GC()
	after := c.Stats().CurAllocCount()

	if after >= before {
		t.Fatalf("CurAllocCount before=%d after=%d, want a decrease for an unrooted object", before, after)
	}
}

func TestRootKeepsObjectAlive(t *testing.T) {
	c := New(WithArenaSize(64 * 1024))

	n, p := newNode(c, 7)
	_ = n

	slot := new(Ptr)
	*slot = p

	if !c.RegisterRoot("root", slot) {
		t.Fatal("RegisterRoot should succeed for a fresh stack slot")
	}

	c.GC()

	if *slot == nil {
		t.Fatal("rooted object must survive a collection")
	}

	survivor := (*node)(unsafe.Pointer(*slot))
	if survivor.Val != 7 {
		t.Fatalf("Val after GC = %d, want 7 (relocation must preserve payload bytes)", survivor.Val)
	}
}

func TestCycleIsCollectedWithoutRoot(t *testing.T) {
	c := New(WithArenaSize(64 * 1024))

	a, pa := newNode(c, 1)
	b, pb := newNode(c, 2)
	a.Next = pb
	b.Next = pa

	before := c.Stats().CurAllocCount()
	c.GC()
	after := c.Stats().CurAllocCount()

	if after >= before {
		t.Fatal("an unrooted cycle must still be collected (no refcounting)")
	}
}

func TestCycleSurvivesWhenRooted(t *testing.T) {
	c := New(WithArenaSize(64 * 1024))

	a, pa := newNode(c, 1)
	b, pb := newNode(c, 2)
	a.Next = pb
	b.Next = pa

	slot := new(Ptr)
	*slot = pa
	c.RegisterRoot("a", slot)

	c.GC()

	n := (*node)(unsafe.Pointer(*slot))
	next := (*node)(unsafe.Pointer(n.Next))

	if n.Val != 1 || next.Val != 2 {
		t.Fatalf("cycle corrupted across GC: n.Val=%d next.Val=%d", n.Val, next.Val)
	}
}

func TestDeallocateThenDeallocateAgainIsIdempotent(t *testing.T) {
	c := New(WithArenaSize(64 * 1024))

	_, p := newNode(c, 1)

	if !c.Deallocate(p) {
		t.Fatal("first Deallocate should report reclaimed=true")
	}

	if c.Deallocate(p) {
		t.Fatal("second Deallocate of the same pointer should report reclaimed=false")
	}
}

func TestDanglingWalkPanics(t *testing.T) {
	c := New(WithArenaSize(64 * 1024))

	a, pa := newNode(c, 1)
	_, pb := newNode(c, 2)
	a.Next = pb

	c.Deallocate(pb)

	slot := new(Ptr)
	*slot = pa
	c.RegisterRoot("a", slot)

	defer func() {
		if recover() == nil {
			t.Fatal("GC walking into an explicitly deallocated referent should panic with a dangling-reference error")
		}
	}()

	c.GC()
}

func TestFreezeMigratesAndSurvivesGC(t *testing.T) {
	c := New(WithArenaSize(64 * 1024))

	_, p := newNode(c, 9)
	slot := new(Ptr)
	*slot = p

	if err := c.Freeze(slot, true); err != nil {
		t.Fatalf("Freeze failed: %v", err)
	}

	h := headerOf(unsafe.Pointer(*slot))
	if h.State != Frozen {
		t.Fatalf("state after Freeze = %s, want Frozen", h.State)
	}

	addrBefore := *slot
	c.GC()

	if *slot != addrBefore {
		t.Fatal("a frozen block must never move across a collection")
	}
}

func TestUnfreezeMigratesBackToCopying(t *testing.T) {
	c := New(WithArenaSize(64 * 1024))

	_, p := newNode(c, 3)
	slot := new(Ptr)
	*slot = p

	if err := c.Freeze(slot, true); err != nil {
		t.Fatalf("Freeze failed: %v", err)
	}

	if err := c.Unfreeze(slot, true); err != nil {
		t.Fatalf("Unfreeze failed: %v", err)
	}

	h := headerOf(unsafe.Pointer(*slot))
	if h.State != GcObj {
		t.Fatalf("state after Unfreeze = %s, want GcObj", h.State)
	}
}

func TestUnfreezeOnPlainObjectIsNonFatalNoop(t *testing.T) {
	c := New(WithArenaSize(64 * 1024))

	_, p := newNode(c, 3)
	slot := new(Ptr)
	*slot = p

	if err := c.Unfreeze(slot, false); err != nil {
		t.Fatalf("Unfreeze on a never-frozen GcObj should be a non-fatal no-op, got %v", err)
	}
}

func TestFreezeTwiceRefcounts(t *testing.T) {
	c := New(WithArenaSize(64 * 1024))

	_, p := newNode(c, 5)
	slot := new(Ptr)
	*slot = p

	c.Freeze(slot, false)
	c.Freeze(slot, false)

	h := headerOf(unsafe.Pointer(*slot))
	if h.Fcnt != 2 {
		t.Fatalf("Fcnt after two freezes = %d, want 2", h.Fcnt)
	}

	c.Unfreeze(slot, false)
	if headerOf(unsafe.Pointer(*slot)).State != Frozen {
		t.Fatal("block should remain Frozen after only one of two Unfreeze calls")
	}

	c.Unfreeze(slot, true)
	if headerOf(unsafe.Pointer(*slot)).State != GcObj {
		t.Fatal("block should migrate back to GcObj once Fcnt reaches zero")
	}
}

func TestLargeObjectRoutesToLargeRegion(t *testing.T) {
	c := New(WithArenaSize(64*1024), WithLargeThreshold(4096))

	p := c.Allocate(8192, nil)
	h := headerOf(unsafe.Pointer(p))

	if h.State != LObj {
		t.Fatalf("state = %s, want LObj for an allocation above the threshold", h.State)
	}
}

func TestLargeObjectNeverMovesAcrossGC(t *testing.T) {
	c := New(WithArenaSize(64*1024), WithLargeThreshold(4096))

	p := c.Allocate(8192, nil)
	slot := new(Ptr)
	*slot = p
	c.RegisterRoot("large", slot)

	c.GC()

	if *slot != p {
		t.Fatal("a large-region object must never move across a collection")
	}
}

func TestWeakReferenceClearedWhenUnreachable(t *testing.T) {
	c := New(WithArenaSize(64 * 1024))

	_, p := newNode(c, 1)
	weakSlot := new(Ptr)
	*weakSlot = p
	c.RegisterWeak(weakSlot)

	c.GC()

	if *weakSlot != nil {
		t.Fatal("a weak reference to an unreachable object must be cleared by GC")
	}
}

func TestWeakReferenceFollowsRootedSurvivor(t *testing.T) {
	c := New(WithArenaSize(64 * 1024))

	_, p := newNode(c, 1)

	rootSlot := new(Ptr)
	*rootSlot = p
	c.RegisterRoot("root", rootSlot)

	weakSlot := new(Ptr)
	*weakSlot = p
	c.RegisterWeak(weakSlot)

	c.GC()

	if *weakSlot == nil {
		t.Fatal("a weak reference to a rooted survivor must remain non-nil")
	}

	if *weakSlot != *rootSlot {
		t.Fatal("a weak reference must track the object's new address after relocation")
	}
}

func TestPointerOkAndDataOk(t *testing.T) {
	c := New(WithArenaSize(64 * 1024))

	_, p := newNode(c, 1)

	if !c.PointerOk(unsafe.Pointer(p)) {
		t.Fatal("PointerOk should be true for a fresh live payload address")
	}

	if !c.DataOk(unsafe.Pointer(p), unsafe.Sizeof(node{})) {
		t.Fatal("DataOk should be true for the full payload extent")
	}

	interior := unsafe.Add(unsafe.Pointer(p), 4)
	if c.PointerOk(interior) {
		t.Fatal("PointerOk should be false for an interior (non-base) address")
	}

	c.Deallocate(p)

	if c.PointerOk(unsafe.Pointer(p)) {
		t.Fatal("PointerOk should be false once the block has been reclaimed")
	}
}

func TestRegisterRootRefusesInteriorSlot(t *testing.T) {
	c := New(WithArenaSize(64 * 1024))

	_, p := newNode(c, 1)
	h := headerOf(unsafe.Pointer(p))
	interior := (*Ptr)(unsafe.Add(unsafe.Pointer(h), 4))

	if c.RegisterRoot("bad", interior) {
		t.Fatal("RegisterRoot should refuse a slot inside a block's header, outside its payload")
	}
}

func TestSetLargeThresholdClamps(t *testing.T) {
	c := New(WithArenaSize(64 * 1024))

	// New clamps the default threshold to half the 64 KiB arena.
	prev := c.SetLargeThreshold(1)
	if prev != 32*1024 {
		t.Fatalf("previous threshold = %d, want clamped default %d", prev, 32*1024)
	}

	p := c.Allocate(MinLargeThreshold, nil)
	if headerOf(unsafe.Pointer(p)).State != LObj {
		t.Fatal("after clamping to the floor, an allocation at the floor size should route to the large region")
	}
}

func TestResizeGrowsCopyingRegion(t *testing.T) {
	c := New(WithArenaSize(4096), WithGrowthQuantum(4096))

	before := c.copying.size
	c.Resize(MinResizeTotal)

	if c.copying.size <= before {
		t.Fatalf("copying region size after Resize = %d, want > %d", c.copying.size, before)
	}
}

func TestVerifyPassesOnHealthyHeap(t *testing.T) {
	c := New(WithArenaSize(64 * 1024))

	_, p := newNode(c, 1)
	slot := new(Ptr)
	*slot = p
	c.RegisterRoot("root", slot)
	c.GC()

	if err := c.Verify(); err != nil {
		t.Fatalf("Verify on a healthy heap returned an error: %v", err)
	}
}
