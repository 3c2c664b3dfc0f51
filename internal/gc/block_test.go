package gc

import (
	"testing"
	"unsafe"
)

func TestAlignUp(t *testing.T) {
	cases := []struct{ n, align, want uintptr }{
		{0, 8, 0},
		{1, 8, 8},
		{8, 8, 8},
		{9, 8, 16},
		{3, 4, 4},
	}

	for _, c := range cases {
		if got := alignUp(c.n, c.align); got != c.want {
			t.Errorf("alignUp(%d,%d) = %d, want %d", c.n, c.align, got, c.want)
		}
	}
}

func TestStateDeadForwarded(t *testing.T) {
	dead := []State{GcRm, FRemoved, FMerged, LRemoved}
	for _, s := range dead {
		if !s.dead() {
			t.Errorf("%s.dead() = false, want true", s)
		}
	}

	forwarded := []State{GcMoved, GcFrozen, Unfrozen}
	for _, s := range forwarded {
		if !s.forwarded() {
			t.Errorf("%s.forwarded() = false, want true", s)
		}
	}

	live := []State{GcObj, Frozen, LObj}
	for _, s := range live {
		if s.dead() || s.forwarded() {
			t.Errorf("%s should be neither dead nor forwarded", s)
		}
	}
}

func TestHeaderCheck(t *testing.T) {
	a := newArena(4096, heapBackingStore{})
	h := a.alloc(16, nil)
	if h == nil {
		t.Fatal("alloc returned nil")
	}

	if !h.check() {
		t.Fatal("freshly allocated header should check ok")
	}

	h.Magic = 0
	if h.check() {
		t.Fatal("corrupted magic should fail check")
	}

	h.Magic = BlockMagic
	if !h.check() {
		t.Fatal("restored magic should check ok again")
	}
}

func TestInBlockInPayload(t *testing.T) {
	a := newArena(4096, heapBackingStore{})
	h := a.alloc(32, nil)

	base := uintptr(h.payload())
	if ov := h.inPayload(base, base+8); ov != Fully {
		t.Errorf("interior range: got %v, want Fully", ov)
	}

	if ov := h.inPayload(base-8, base+8); ov != Partial {
		t.Errorf("straddling range: got %v, want Partial", ov)
	}

	if ov := h.inPayload(base+10000, base+10008); ov != Outside {
		t.Errorf("far-outside range: got %v, want Outside", ov)
	}
}

func TestForwardToAndReadMoved(t *testing.T) {
	a := newArena(4096, heapBackingStore{})
	h := a.alloc(16, nil)
	newPayload := unsafe.Pointer(uintptr(1234))

	h.forwardTo(GcMoved, newPayload)

	if h.State != GcMoved {
		t.Fatalf("state = %s, want GcMoved", h.State)
	}

	if h.P != newPayload {
		t.Fatalf("P = %v, want %v", h.P, newPayload)
	}

	if got := readMoved(h.payload()); got != newPayload {
		t.Fatalf("readMoved = %v, want %v", got, newPayload)
	}
}

func TestForwardToRejectsNonForwardingState(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic forwarding to a non-forwarding state")
		}
	}()

	a := newArena(4096, heapBackingStore{})
	h := a.alloc(16, nil)
	h.forwardTo(GcObj, h.payload())
}
