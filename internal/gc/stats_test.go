package gc

import (
	"bytes"
	"testing"
	"time"
)

func TestStatsCurrentAccessors(t *testing.T) {
	var s Stats

	s.alloc(64, 48)
	s.alloc(64, 48)
	s.dealloc(64, 48)

	if got := s.CurAllocCount(); got != 1 {
		t.Fatalf("CurAllocCount = %d, want 1", got)
	}

	if got := s.CurAllocSz(); got != 64 {
		t.Fatalf("CurAllocSz = %d, want 64", got)
	}

	if got := s.CurAllocUsz(); got != 48 {
		t.Fatalf("CurAllocUsz = %d, want 48", got)
	}
}

func TestStatsFreezeUnfreeze(t *testing.T) {
	var s Stats

	s.freeze(32, 16)
	s.freeze(32, 16)
	s.unfreeze(32, 16)

	if got := s.CurFrozenCount(); got != 1 {
		t.Fatalf("CurFrozenCount = %d, want 1", got)
	}
}

func TestStatsGCAddAndReset(t *testing.T) {
	var s Stats

	s.gcAdd(10 * time.Millisecond)
	s.gcAdd(5 * time.Millisecond)

	if s.NGC != 2 {
		t.Fatalf("NGC = %d, want 2", s.NGC)
	}

	if s.TimeGC() != 15*time.Millisecond {
		t.Fatalf("TimeGC = %s, want 15ms", s.TimeGC())
	}

	s.ResetNumGC()

	if s.NGC != 0 || s.GCTime != 0 {
		t.Fatal("ResetNumGC should zero NGC and GCTime")
	}
}

func TestStatsReportWrites(t *testing.T) {
	var s Stats

	s.alloc(64, 48)

	var buf bytes.Buffer
	if err := s.Report(&buf); err != nil {
		t.Fatalf("Report returned error: %v", err)
	}

	if buf.Len() == 0 {
		t.Fatal("Report should write a non-empty summary")
	}
}

func TestStatsSnapshotIsIndependentCopy(t *testing.T) {
	var s Stats

	s.alloc(64, 48)
	snap := s.snapshot()

	s.alloc(64, 48)

	if snap.NAlloc != 1 {
		t.Fatalf("snapshot NAlloc = %d, want 1 (unaffected by later mutation)", snap.NAlloc)
	}
}
