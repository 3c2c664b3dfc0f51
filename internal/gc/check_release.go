//go:build !gcdebug

package gc

// debugBuild is false in release builds: per-walk/per-deallocate
// header/tail validation only runs where Config.DebugChecks opts a single
// Collector into it at runtime (collector.go checkHeader); Verify checks
// every header regardless. Matches the teacher's
// block_manager_debug_off.go no-op twin of block_manager_debug.go.
const debugBuild = false

// poisonGap is a no-op in release builds — paying the fill cost on every
// reclaim is a debug-only diagnostic, not a release-path feature.
func poisonGap(h *Header, placeholderSize uintptr) {}
