package gc

import "unsafe"

// Fixed payload overlays written onto a block's payload bytes once the
// block has left the GcObj/Frozen/LObj states. Spec §9 calls for these to
// be "fixed structs whose interpretation is driven by the state tag"
// rather than objects answering a virtual walker — the state tag lives in
// Header.State, so these structs are written but never type-asserted
// against; walk() and iterate() dispatch purely on Header.State.

// movedPlaceholder overlays the old payload of a GcMoved/GcFrozen/
// Unfrozen block. New holds the same address as the block's Header.P; a
// re-entrant walk that lands on this payload (visited bit already set, or
// reached before the owning slot was rewritten) follows Header.P instead
// of recursing into stale client data, so New is only read by readMoved.
type movedPlaceholder struct {
	New unsafe.Pointer
}

// removedPlaceholder overlays the payload of a GcRm/LRemoved block after
// its finalizer has run. It carries no state; its only purpose is giving
// reclaimed memory a fixed, recognizable footprint for debug-build
// poisoning (check_debug.go) distinct from a live object's bytes.
type removedPlaceholder struct {
	_ uintptr
}

// freeListNode overlays the payload of a pinned-region block in state
// FRemoved. Chaining free blocks is intrusive (the node lives inside the
// freed payload, same as the teacher's pool.go free-list chunks) so that
// freeing never itself allocates. next/prev reference the neighboring
// free blocks' Headers directly, kept in ascending address order.
type freeListNode struct {
	next *Header
	prev *Header
}

func writeMoved(payload unsafe.Pointer, usz uintptr, newPayload unsafe.Pointer) {
	if usz < unsafe.Sizeof(movedPlaceholder{}) {
		fatalf("writeMoved: payload too small for Moved placeholder (usz=%d)", usz)
	}

	(*movedPlaceholder)(payload).New = newPayload
}

func readMoved(payload unsafe.Pointer) unsafe.Pointer {
	return (*movedPlaceholder)(payload).New
}

func writeRemoved(payload unsafe.Pointer) {
	*(*removedPlaceholder)(payload) = removedPlaceholder{}
}

func asFreeListNode(payload unsafe.Pointer) *freeListNode {
	return (*freeListNode)(payload)
}
