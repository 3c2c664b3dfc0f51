// Package errors provides standardized error messaging shared across the
// collector's error types (internal/gc/errors.go builds its DanglingReferenceError,
// OutOfMemoryError, CorruptionError, and InvalidStateError on top of StandardError
// rather than hand-rolling another formatted-string error shape).
package errors

import (
	"fmt"
	"runtime"
)

// ErrorCategory represents different categories of errors.
type ErrorCategory string

const (
	CategoryMemory     ErrorCategory = "MEMORY"
	CategorySecurity   ErrorCategory = "SECURITY"
	CategoryBounds     ErrorCategory = "BOUNDS"
	CategoryOverflow   ErrorCategory = "OVERFLOW"
	CategoryValidation ErrorCategory = "VALIDATION"
	CategorySystem     ErrorCategory = "SYSTEM"
)

// StandardError provides a consistent error format: category, code,
// message, free-form context, and the caller that raised it.
type StandardError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Context  map[string]interface{}
	Caller   string
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("[%s:%s] %s (caller: %s)", e.Category, e.Code, e.Message, e.Caller)
}

// NewStandardError creates a new standardized error, capturing its
// caller's name via runtime.Caller(skip+1) relative to this function.
func NewStandardError(category ErrorCategory, code, message string, context map[string]interface{}, skip int) *StandardError {
	pc, _, _, ok := runtime.Caller(1 + skip)

	caller := "unknown"
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}

	return &StandardError{
		Category: category,
		Code:     code,
		Message:  message,
		Context:  context,
		Caller:   caller,
	}
}
