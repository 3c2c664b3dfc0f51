package gc

import (
	"fmt"

	stderrors "github.com/orizon-lang/gcrt/internal/errors"
)

// Category re-exports the subset of internal/errors's ErrorCategory this
// package raises, so callers can match on gc.Category without importing
// internal/errors directly.
type Category = stderrors.ErrorCategory

const (
	CategoryDangling     Category = "DANGLING"
	CategoryOOM          Category = stderrors.CategoryMemory
	CategoryCorruption   Category = stderrors.CategorySystem
	CategoryInvalidState Category = stderrors.CategoryValidation
)

// DanglingReferenceError is raised via panic by the collection walk (GC)
// when a traversal reaches a block in a dead state (spec §7.1). It is the
// one error kind in this package a client is expected to recover from.
type DanglingReferenceError struct {
	*stderrors.StandardError
	Label string
}

func newDanglingReferenceError(label string) *DanglingReferenceError {
	return &DanglingReferenceError{
		StandardError: stderrors.NewStandardError(CategoryDangling, "DANGLING_REFERENCE",
			fmt.Sprintf("dangling reference via %q", label), map[string]interface{}{"label": label}, 1),
		Label: label,
	}
}

// OutOfMemoryError is raised via panic when an allocation fails after both
// a collection and a resize (spec §7.3).
type OutOfMemoryError struct {
	*stderrors.StandardError
	Requested uintptr
}

func newOutOfMemoryError(requested uintptr) *OutOfMemoryError {
	return &OutOfMemoryError{
		StandardError: stderrors.NewStandardError(CategoryOOM, "OUT_OF_MEMORY",
			fmt.Sprintf("allocation of %d bytes failed after collect and resize", requested),
			map[string]interface{}{"requested": requested}, 1),
		Requested: requested,
	}
}

// CorruptionError represents fatal corruption: magic mismatch, size
// mismatch, unknown state, or illegal reentry into collection (spec
// §7.2). Raised via panic; there is no useful recovery path, only
// orderly shutdown logging.
type CorruptionError struct {
	*stderrors.StandardError
	Reason string
}

// fatalf panics with a CorruptionError. Named like the teacher's fatal
// constructors (internal/errors.PointerArithmetic, NullPointer) which are
// also used at call sites that abort rather than propagate.
func fatalf(format string, args ...interface{}) {
	reason := fmt.Sprintf(format, args...)
	panic(&CorruptionError{
		StandardError: stderrors.NewStandardError(CategoryCorruption, "CORRUPTION", reason, nil, 1),
		Reason:        reason,
	})
}

// InvalidStateError is returned when Freeze or Unfreeze is called with a
// slot that already holds nil — there is no object to act on. It is not
// used for a live slot in a bad state: spec §4.9 calls that case fatal,
// and Freeze/Unfreeze raise it via fatalf instead, matching the
// original's fatal_error("Cannot freeze/unfreeze obj").
type InvalidStateError struct {
	*stderrors.StandardError
	Operation string
	State     State
}

func newInvalidStateError(op string, s State) *InvalidStateError {
	return &InvalidStateError{
		StandardError: stderrors.NewStandardError(CategoryInvalidState, "INVALID_STATE",
			fmt.Sprintf("%s: illegal in state %s", op, s),
			map[string]interface{}{"operation": op, "state": s.String()}, 1),
		Operation: op,
		State:     s,
	}
}
