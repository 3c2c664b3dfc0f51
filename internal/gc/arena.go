package gc

import "unsafe"

// badBlock is the poison sentinel getBlockHead returns when a probed
// range straddles a block boundary — neither cleanly inside one block's
// extent nor outside every block (spec §4.2).
var badBlock = &Header{Magic: 0, State: GcRm}

// backingStore obtains and releases the raw byte buffers arenas are
// carved from. Selected by Config.BackingStore; see backing_unix.go and
// backing_generic.go.
type backingStore interface {
	alloc(n uintptr) []byte
	free(buf []byte)
}

// arena is a contiguous, bump-allocated byte buffer: C3 of spec.md. Every
// region (copying, pinned) is built from one or more arenas.
type arena struct {
	buf     []byte
	base    uintptr
	cursor  uintptr
	store   backingStore
}

func newArena(size uintptr, store backingStore) *arena {
	buf := store.alloc(size)

	return &arena{
		buf:   buf,
		base:  uintptr(unsafe.Pointer(&buf[0])),
		store: store,
	}
}

func (a *arena) size() uintptr { return uintptr(len(a.buf)) }

func (a *arena) available() uintptr { return a.size() - a.cursor }

// release returns this arena's backing memory to its store. The arena
// must not be used afterwards.
func (a *arena) release() {
	a.store.free(a.buf)
	a.buf = nil
}

// blockSize computes the word-aligned total size of a block holding usz
// payload bytes, at least MinBlockSize.
func blockSize(usz uintptr) uintptr {
	sz := headerSize + alignUp(usz, wordSize) + tailSize
	if sz < MinBlockSize {
		sz = MinBlockSize
	}

	return sz
}

// alloc reserves header+payload+tail for a usz-byte payload, initializes
// the block in GcObj state, and returns its Header, or nil if the arena
// is exhausted. Alignment is machine-word (spec §4.2).
func (a *arena) alloc(usz uintptr, typ *ObjectType) *Header {
	sz := blockSize(usz)
	if a.cursor+sz > a.size() {
		return nil
	}

	h := (*Header)(unsafe.Pointer(&a.buf[a.cursor]))
	*h = Header{
		Magic: BlockMagic,
		State: GcObj,
		Sz:    sz,
		Usz:   usz,
		Mp:    unsafe.Pointer(a),
		Type:  typ,
	}
	h.P = h.payload()
	*h.tail() = Tail{Sz: sz, Magic: TailMagic}

	a.cursor += sz

	return h
}

// reset rewinds the bump cursor to zero without zeroing memory; used only
// when an arena is known to hold no live blocks (e.g. a freshly swapped-in
// spare arena after a prior collection already reclaimed everything in
// it, or test setup).
func (a *arena) reset() { a.cursor = 0 }

// iterate walks every block header from the arena's start in allocation
// order, trusting Header.Sz to advance. A malformed header (bad magic,
// size that would overrun the arena) is fatal corruption (spec §4.2).
func (a *arena) iterate(visit func(h *Header)) {
	var off uintptr

	for off < a.cursor {
		h := (*Header)(unsafe.Pointer(&a.buf[off]))
		if h.Magic != BlockMagic {
			fatalf("arena.iterate: bad magic at offset %d", off)
		}

		if h.Sz == 0 || off+h.Sz > a.cursor {
			fatalf("arena.iterate: header size %d overruns arena at offset %d", h.Sz, off)
		}

		visit(h)
		off += h.Sz
	}
}

// getBlockHead returns the header containing [p,end), classified by
// Overlap, or badBlock with Partial if the range straddles a block
// boundary or lies within the arena's bounds but past its last block.
// Used only off the hot path: registration and membership tests (spec §9).
func (a *arena) getBlockHead(p, end uintptr) (*Header, Overlap) {
	if p < a.base || end > a.base+a.size() {
		return nil, Outside
	}

	var found *Header

	var verdict Overlap

	a.iterate(func(h *Header) {
		if found != nil {
			return
		}

		if ov := h.inBlock(p, end); ov != Outside {
			found = h
			verdict = ov
		}
	})

	if found == nil || verdict == Partial {
		return badBlock, Partial
	}

	return found, verdict
}

// clearVisitedAll clears the transient visited bit on every block.
func (a *arena) clearVisitedAll() {
	a.iterate(func(h *Header) { h.clearVisited() })
}

// reclaimUnvisited invokes reclaim on every block matching state that was
// never visited during the traversal just completed, then clears the
// visited bit on every block regardless of state. The caller
// (Collector.GC, for the copying region's old active arena) supplies the
// state to match and the reclaim action.
func (a *arena) reclaimUnvisited(state State, reclaim func(h *Header)) {
	a.iterate(func(h *Header) {
		if h.State == state && !h.Visited {
			reclaim(h)
		}

		h.clearVisited()
	})
}
