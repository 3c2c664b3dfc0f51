//go:build gcdebug

package gc

import "unsafe"

// debugBuild enables header/tail validation (Header.check) on every walk
// and deallocate, unconditionally (spec §9 design note "check() vs.
// performance": gated behind a compile-time flag).
const debugBuild = true

// poisonGap fills the payload bytes beyond the overlay placeholder with
// a fixed poison byte, so a use-after-reclaim read is visibly wrong
// instead of silently returning stale data (SPEC_FULL §4 supplemented
// feature 3, grounded on internal/runtime/block_manager.go's
// BlockGuardValue canary pattern).
func poisonGap(h *Header, placeholderSize uintptr) {
	cap := h.Sz - headerSize - tailSize
	if cap <= placeholderSize {
		return
	}

	gap := unsafe.Slice((*byte)(unsafe.Add(h.payload(), placeholderSize)), cap-placeholderSize)
	for i := range gap {
		gap[i] = 0xDE
	}
}
