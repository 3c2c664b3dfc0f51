package gc

import (
	"fmt"
	"io"
	"time"
)

// Stats mirrors the original collector's statistics struct (private/
// gcstat.hxx/.cxx) restored per SPEC_FULL §4 supplemented feature 1: raw
// cumulative counters plus derived "current live" accessors, grounded
// structurally on the teacher's internal/runtime/metrics.go
// RegionMetrics (counter struct + snapshot + textual report), but with
// the original's exact counter semantics.
type Stats struct {
	UszAlloc    uintptr
	UszDealloc  uintptr
	UszFreeze   uintptr
	UszUnfreeze uintptr
	SzAlloc     uintptr
	SzDealloc   uintptr
	SzFreeze    uintptr
	SzUnfreeze  uintptr
	NFreeze     int
	NUnfreeze   int
	NAlloc      int
	NDealloc    int
	NGC         int
	GCTime      time.Duration
}

// CurAllocUsz, CurAllocSz, CurAllocCount are size_cur_allocated /
// num_cur_allocs (spec §6, §8 scenario assertions).
func (s Stats) CurAllocUsz() uintptr { return s.UszAlloc - s.UszDealloc }
func (s Stats) CurAllocSz() uintptr  { return s.SzAlloc - s.SzDealloc }
func (s Stats) CurAllocCount() int   { return s.NAlloc - s.NDealloc }

func (s Stats) CurFrozenUsz() uintptr { return s.UszFreeze - s.UszUnfreeze }
func (s Stats) CurFrozenSz() uintptr  { return s.SzFreeze - s.SzUnfreeze }
func (s Stats) CurFrozenCount() int   { return s.NFreeze - s.NUnfreeze }

// TimeGC is time_gc(): cumulative collector wall-clock time.
func (s Stats) TimeGC() time.Duration { return s.GCTime }

func (s *Stats) alloc(sz, usz uintptr) {
	s.NAlloc++
	s.SzAlloc += sz
	s.UszAlloc += usz
}

func (s *Stats) dealloc(sz, usz uintptr) {
	s.NDealloc++
	s.SzDealloc += sz
	s.UszDealloc += usz
}

func (s *Stats) freeze(sz, usz uintptr) {
	s.NFreeze++
	s.SzFreeze += sz
	s.UszFreeze += usz
}

func (s *Stats) unfreeze(sz, usz uintptr) {
	s.NUnfreeze++
	s.SzUnfreeze += sz
	s.UszUnfreeze += usz
}

func (s *Stats) gcAdd(d time.Duration) {
	s.NGC++
	s.GCTime += d
}

func (s *Stats) snapshot() Stats { return *s }

// ResetNumGC zeroes the GC-count/timing fields of this Stats value
// without touching allocation counters (original's reset_num_gc).
// Collector.Stats returns a copy, so resetting that copy leaves the
// Collector's own counters unchanged.
func (s *Stats) ResetNumGC() {
	s.NGC = 0
	s.GCTime = 0
}

// Report writes a human-readable summary, in the spirit of the teacher's
// MetricsCollector textual reports.
func (s Stats) Report(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"gc: allocs=%d (%d bytes) cur=%d (%d bytes) freezes=%d cur_frozen=%d gcs=%d gc_time=%s\n",
		s.NAlloc, s.SzAlloc, s.CurAllocCount(), s.CurAllocSz(),
		s.NFreeze, s.CurFrozenCount(), s.NGC, s.GCTime,
	)

	return err
}
