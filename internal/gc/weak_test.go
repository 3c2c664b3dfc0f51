package gc

import (
	"testing"
	"unsafe"
)

func TestWeakRegisterAndUpdatePointersLive(t *testing.T) {
	a := newArena(4096, heapBackingStore{})
	h := a.alloc(16, nil)

	wt := newWeakTable()
	slot := new(Ptr)
	*slot = Ptr(h.payload())

	wt.register(h, slot)
	wt.updatePointers()

	if *slot != Ptr(h.payload()) {
		t.Fatalf("live weak slot rewritten to %v, want unchanged", *slot)
	}
}

func TestWeakUpdatePointersClearsDeadReferent(t *testing.T) {
	a := newArena(4096, heapBackingStore{})
	h := a.alloc(16, nil)
	h.State = GcRm
	h.P = nil

	wt := newWeakTable()
	slot := new(Ptr)
	*slot = Ptr(h.payload())

	wt.register(h, slot)
	wt.updatePointers()

	if *slot != nil {
		t.Fatalf("weak slot over a dead referent = %v, want nil", *slot)
	}
}

func TestWeakUpdatePointersChasesForwarding(t *testing.T) {
	a := newArena(4096, heapBackingStore{})
	h := a.alloc(16, nil)
	newH := a.alloc(16, nil)

	h.forwardTo(GcMoved, newH.payload())

	wt := newWeakTable()
	slot := new(Ptr)
	*slot = Ptr(h.payload())

	wt.register(h, slot)
	wt.updatePointers()

	if *slot != Ptr(newH.payload()) {
		t.Fatalf("weak slot after forwarding = %v, want new payload %v", *slot, newH.payload())
	}
}

func TestWeakUnregister(t *testing.T) {
	a := newArena(4096, heapBackingStore{})
	h := a.alloc(16, nil)

	wt := newWeakTable()
	slot := new(Ptr)
	wt.register(h, slot)

	if !wt.unregister(slot) {
		t.Fatal("unregister should find a just-registered slot")
	}

	if wt.unregister(slot) {
		t.Fatal("unregistering twice should report false the second time")
	}
}

func TestWeakUpdatePinMigrationRetargetsRun(t *testing.T) {
	a := newArena(4096, heapBackingStore{})
	h1 := a.alloc(64, nil)
	h2 := a.alloc(64, nil)

	wt := newWeakTable()
	s1 := (*Ptr)(h1.payload())
	s2 := (*Ptr)(unsafe.Add(h1.payload(), 8))

	wt.register(h1, s1)
	wt.register(h1, s2)

	wt.updatePinMigration(h1, h2, 8)

	for _, e := range wt.entries {
		if e.header != h2 {
			t.Fatalf("entry header after migration = %v, want h2", e.header)
		}
	}
}
