// Package gcrt is the public entry point for the managed-heap collector.
// It mirrors the thin global-singleton wrapper the teacher's allocator
// package exposes (internal/allocator's GlobalAllocator/Initialize),
// adapted to this package's single-collector, functional-options model.
package gcrt

import (
	"sync"

	"github.com/orizon-lang/gcrt/internal/gc"
)

// Re-exported so callers never need to import internal/gc directly.
type (
	Collector  = gc.Collector
	Config     = gc.Config
	Option     = gc.Option
	ObjectType = gc.ObjectType
	Object     = gc.Object
	Finalizer  = gc.Finalizer
	Ptr        = gc.Ptr
	Stats      = gc.Stats
)

// Register builds the ObjectType descriptor for T, re-exporting
// gc.Register so callers never import internal/gc directly.
func Register[T any]() *ObjectType { return gc.Register[T]() }

var (
	globalMu   sync.Mutex
	globalColl *Collector
)

// Initialize sets up the process-wide default Collector. Calling it a
// second time replaces the previous global without releasing its
// memory — callers that need more than one independent collector should
// construct their own via gc.New instead of using the global.
func Initialize(opts ...Option) {
	globalMu.Lock()
	defer globalMu.Unlock()

	globalColl = gc.New(opts...)
}

// Default returns the process-wide Collector, lazily initializing it
// with default options on first use (spec §4.8 defaults).
func Default() *Collector {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalColl == nil {
		globalColl = gc.New()
	}

	return globalColl
}

// New is a convenience re-export of gc.New for callers that want an
// independent Collector instead of the process-wide default.
func New(opts ...Option) *Collector { return gc.New(opts...) }

func ensureGlobal() *Collector { return Default() }

// Allocate allocates a usz-byte object of the given type on the default
// Collector.
func Allocate(usz uintptr, typ *ObjectType) Ptr {
	return ensureGlobal().Allocate(usz, typ)
}

// Collect runs a full collection on the default Collector.
func Collect() { ensureGlobal().GC() }

// GlobalStats reports the default Collector's cumulative statistics.
func GlobalStats() Stats { return ensureGlobal().Stats() }
