package gc

import (
	"fmt"
	"unsafe"
)

// BlockMagic and TailMagic identify a live header/tail. Values chosen to
// match the constants the teacher's block manager already used for the
// same purpose (internal/runtime/block_manager.go).
const (
	BlockMagic = 0xDEADBEEF
	TailMagic  = 0xCAFEBABE
	// MinBlockSize is the floor every block's Sz is rounded up to, large
	// enough to host the widest placeholder payload (FreeListNode).
	MinBlockSize = unsafe.Sizeof(Header{}) + unsafe.Sizeof(Tail{}) + unsafe.Sizeof(freeListNode{})
	wordSize     = unsafe.Sizeof(uintptr(0))
)

// State names the region/state nibble of spec.md §3. visited/moved/
// removed/in-free-list are expressed here as derivable facts of the named
// state plus the transient Header.Visited bit, rather than as separate
// orthogonal mask bits — the named states already partition those
// properties exhaustively (see State.dead/State.forwarded below).
type State uint8

const (
	GcObj State = iota
	GcMoved
	GcRm
	GcFrozen
	Frozen
	Unfrozen
	FRemoved
	FMerged
	LObj
	LRemoved
)

func (s State) String() string {
	switch s {
	case GcObj:
		return "GcObj"
	case GcMoved:
		return "GcMoved"
	case GcRm:
		return "GcRm"
	case GcFrozen:
		return "GcFrozen"
	case Frozen:
		return "Frozen"
	case Unfrozen:
		return "Unfrozen"
	case FRemoved:
		return "FRemoved"
	case FMerged:
		return "FMerged"
	case LObj:
		return "LObj"
	case LRemoved:
		return "LRemoved"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// dead reports whether Header.P must be nil in this state (spec I2).
func (s State) dead() bool {
	switch s {
	case GcRm, FRemoved, FMerged, LRemoved:
		return true
	default:
		return false
	}
}

// forwarded reports whether this state's P is a forwarding address rather
// than a self-pointer (spec I3).
func (s State) forwarded() bool {
	switch s {
	case GcMoved, GcFrozen, Unfrozen:
		return true
	default:
		return false
	}
}

// ObjectType is the per-type descriptor a client registers once via
// Register[T]. It plays the role the teacher's region_alloc.go TypeInfo
// (ID/Name/Size/HasPointers/Methods) plays for the block manager: a
// small, explicit vtable substituting for dynamic dispatch through
// freshly-overlaid memory (spec §9, "Cyclic object graphs" design note).
type ObjectType struct {
	Name     string
	Size     uintptr
	walk     func(payload unsafe.Pointer, visit func(label string, slot *Ptr))
	finalize func(payload unsafe.Pointer)
}

// Object is implemented by every managed payload type. Walk must invoke
// visit once for every outgoing managed reference the object owns,
// passing the address of the field so the collector can rewrite it in
// place after a move.
type Object interface {
	Walk(visit func(label string, slot *Ptr))
}

// Finalizer is optionally implemented by a managed payload type; Finalize
// runs exactly once, at the transition into GcRm/FRemoved/LRemoved
// (spec: "the walker destructor... runs exactly once before its storage
// is reused").
type Finalizer interface {
	Finalize()
}

// Register builds the ObjectType descriptor for T. Call once per type,
// typically in an init() or package var, and reuse the *ObjectType across
// every Allocate call for T.
func Register[T any]() *ObjectType {
	var zero T

	_, isObject := any(&zero).(Object)
	if !isObject {
		fatalf("gc.Register: *%T does not implement gc.Object", zero)
	}

	ot := &ObjectType{
		Name: fmt.Sprintf("%T", zero),
		Size: unsafe.Sizeof(zero),
	}

	ot.walk = func(payload unsafe.Pointer, visit func(string, *Ptr)) {
		any((*T)(payload)).(Object).Walk(visit)
	}

	if _, ok := any(&zero).(Finalizer); ok {
		ot.finalize = func(payload unsafe.Pointer) {
			any((*T)(payload)).(Finalizer).Finalize()
		}
	}

	return ot
}

// Ptr is a managed reference: the address of a live block's payload, or
// nil. Client Object.Walk implementations store Ptr-typed fields for
// every outgoing reference and hand their address to visit.
type Ptr unsafe.Pointer

// Header precedes every block's payload. Field order matches the
// teacher's BlockHeader (internal/runtime/block_manager.go) habit of
// grouping identity fields first, then accounting fields, then links.
type Header struct {
	Magic    uint32
	State    State
	Visited  bool
	Fcnt     int32
	Sz       uintptr // total block size: header + payload(+gap) + tail
	Usz      uintptr // user payload size
	P        unsafe.Pointer
	Mp       unsafe.Pointer // owning arena, nil for large-region blocks
	Type     *ObjectType
	GuardLo  uint32
}

// Tail trails every block's payload. Duplicated Sz lets an interior
// pointer reach Header from the far end and lets check() detect
// corruption that only clobbers one copy of the size.
type Tail struct {
	Sz    uintptr
	Magic uint32
}

// headerSize/tailSize are word-aligned so payload always starts and ends
// on a machine-word boundary.
var (
	headerSize = alignUp(unsafe.Sizeof(Header{}), wordSize)
	tailSize   = alignUp(unsafe.Sizeof(Tail{}), wordSize)
)

func alignUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}

// payload returns the address immediately following h.
func (h *Header) payload() unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(h), headerSize)
}

// tail returns this block's Tail, located Usz bytes (plus any alignment
// gap folded into Sz) after the payload start.
func (h *Header) tail() *Tail {
	off := headerSize + (h.Sz - headerSize - tailSize)

	return (*Tail)(unsafe.Add(unsafe.Pointer(h), off))
}

// headerOf recovers a block's Header from an interior pointer already
// known to be Fully inside some payload. The caller must have validated
// membership first (spec §4.1: "the caller must have already validated
// membership").
func headerOf(p unsafe.Pointer) *Header {
	return (*Header)(unsafe.Add(p, -int(headerSize)))
}

// Overlap is the three-valued membership verdict of in_block/in_payload.
type Overlap int

const (
	Outside Overlap = iota
	Partial
	Fully
)

// inRange classifies [p, end) against [base, base+size).
func inRange(p, end uintptr, base, size uintptr) Overlap {
	lo, hi := base, base+size
	if end <= lo || p >= hi {
		return Outside
	}

	if p >= lo && end <= hi {
		return Fully
	}

	return Partial
}

// inBlock classifies [p,end) against this block's full extent (header
// through tail).
func (h *Header) inBlock(p, end uintptr) Overlap {
	return inRange(p, end, uintptr(unsafe.Pointer(h)), h.Sz)
}

// inPayload classifies [p,end) against this block's user payload only.
func (h *Header) inPayload(p, end uintptr) Overlap {
	return inRange(p, end, uintptr(h.payload()), h.Usz)
}

// check verifies magics and the state-dependent invariants of spec §3
// (I1–I3). Called unconditionally by the debug build (check_debug.go)
// and opt-in via Config.DebugChecks elsewhere (check_release.go).
func (h *Header) check() bool {
	if h.Magic != BlockMagic {
		return false
	}

	t := h.tail()
	if t.Magic != TailMagic || t.Sz != h.Sz {
		return false
	}

	if h.State.dead() && h.P != nil {
		return false
	}

	if h.State.forwarded() && h.P == nil {
		return false
	}

	return true
}

func (h *Header) setVisited()   { h.Visited = true }
func (h *Header) clearVisited() { h.Visited = false }

// forwardTo overlays a Moved placeholder on the old payload, retargets
// this header's forwarding pointer, and sets the named destination state
// (GcMoved, GcFrozen, or Unfrozen depending on the caller). The mutator
// is paused for the duration of every call into this package (spec §5),
// so no further synchronization is needed here.
func (h *Header) forwardTo(state State, newPayload unsafe.Pointer) {
	if !state.forwarded() {
		fatalf("forwardTo: %s is not a forwarding state", state)
	}

	writeMoved(h.payload(), h.Sz-headerSize-tailSize, newPayload)
	h.State = state
	h.P = newPayload
}
