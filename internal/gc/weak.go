package gc

import (
	"sort"
	"unsafe"
)

// weakEntry is one C9 registration: the header cached at registration
// time, and the address of the slot to clear or retarget.
type weakEntry struct {
	header *Header
	slot   *Ptr
}

// weakTable is C9: weak references, kept sorted by slot address so a
// single block's contiguous run of weak fields can be spliced in one
// move during a freeze/unfreeze migration (spec §4.6, design note
// "Weak-reference sort ordering").
type weakTable struct {
	entries []weakEntry
}

func newWeakTable() *weakTable {
	return &weakTable{entries: make([]weakEntry, 0, 16)}
}

func slotAddr(s *Ptr) uintptr { return uintptr(unsafe.Pointer(s)) }

func (t *weakTable) searchIndex(slot *Ptr) int {
	addr := slotAddr(slot)

	return sort.Search(len(t.entries), func(i int) bool { return slotAddr(t.entries[i].slot) >= addr })
}

func (t *weakTable) insertSorted(e weakEntry) {
	idx := t.searchIndex(e.slot)

	if len(t.entries) == cap(t.entries) {
		grown := make([]weakEntry, len(t.entries), grownCap(cap(t.entries)))
		copy(grown, t.entries)
		t.entries = grown
	}

	t.entries = append(t.entries, weakEntry{})
	copy(t.entries[idx+1:], t.entries[idx:])
	t.entries[idx] = e
}

func (t *weakTable) register(h *Header, slot *Ptr) {
	t.insertSorted(weakEntry{header: h, slot: slot})
}

func (t *weakTable) unregister(slot *Ptr) bool {
	idx := t.searchIndex(slot)
	if idx < len(t.entries) && t.entries[idx].slot == slot {
		t.entries = append(t.entries[:idx], t.entries[idx+1:]...)

		return true
	}

	return false
}

// updatePointers is gc_update_wptrs: chase each entry's forwarding chain
// and write null (dead referent) or the live address back into the slot
// (spec §4.6). Run at the end of every collection.
func (t *weakTable) updatePointers() {
	for i := range t.entries {
		e := &t.entries[i]
		h := e.header

		for h.State.forwarded() {
			h = headerOf(h.P)
		}

		e.header = h

		if h.State.dead() {
			*e.slot = nil
		} else {
			*e.slot = Ptr(h.P)
		}
	}
}

// updatePinMigration is update_pp: a single freeze/unfreeze just moved
// block h1 to h2, shifting every field within it by delta bytes. Every
// weak entry whose cached header is h1 is retargeted to h2 and its slot
// address shifted by delta, then re-spliced into sorted position (spec
// §4.6).
func (t *weakTable) updatePinMigration(h1, h2 *Header, delta int) {
	start, end := -1, -1

	for i := range t.entries {
		if t.entries[i].header == h1 {
			if start == -1 {
				start = i
			}

			end = i + 1
		} else if start != -1 {
			break
		}
	}

	if start == -1 {
		return
	}

	run := make([]weakEntry, end-start)
	copy(run, t.entries[start:end])
	t.entries = append(t.entries[:start:start], t.entries[end:]...)

	for i := range run {
		run[i].header = h2
		run[i].slot = (*Ptr)(unsafe.Add(unsafe.Pointer(run[i].slot), delta))
	}

	for _, e := range run {
		t.insertSorted(e)
	}
}
