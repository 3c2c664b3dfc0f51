package gc

import (
	"errors"
	"testing"
)

func TestFatalfPanicsWithCorruptionError(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("fatalf should panic")
		}

		var ce *CorruptionError
		if !errors.As(r.(error), &ce) {
			t.Fatalf("panic value %v is not a *CorruptionError", r)
		}
	}()

	fatalf("boom %d", 7)
}

func TestErrorConstructorsFormatMessages(t *testing.T) {
	if err := newDanglingReferenceError("field"); err.Error() == "" {
		t.Error("DanglingReferenceError.Error() should not be empty")
	}

	if err := newOutOfMemoryError(1024); err.Error() == "" {
		t.Error("OutOfMemoryError.Error() should not be empty")
	}

	if err := newInvalidStateError("freeze", GcRm); err.Error() == "" {
		t.Error("InvalidStateError.Error() should not be empty")
	}
}
