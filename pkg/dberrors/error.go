// Package dberrors defines the typed error kinds the heap-file storage
// core surfaces to callers, distinct from the programming-error assertions
// in assert.go. Every HeapError wraps its cause with github.com/pkg/errors
// so a stack trace survives across package boundaries without hand-rolled
// runtime.Callers bookkeeping.
package dberrors

import (
	"github.com/pkg/errors"
)

// Kind classifies a HeapError so callers can branch on it with Is/As
// without string-matching messages.
type Kind int

const (
	// OutOfMemory is raised by heap insert when the buffer pool refuses to
	// allocate a new page.
	OutOfMemory Kind = iota
	// TupleTooLarge is raised by heap insert when a tuple can never fit any
	// freshly-initialized page, regardless of chain traversal.
	TupleTooLarge
	// DoesNotFit is raised by heap update when the new tuple image no longer
	// fits in its current page even after reclaiming the old tuple's space.
	DoesNotFit
	// InvalidRID is raised by read/mark/update when a slot id is out of
	// range, free, or (for reads and updates) marked-deleted.
	InvalidRID
)

func (k Kind) String() string {
	switch k {
	case OutOfMemory:
		return "OUT_OF_MEMORY"
	case TupleTooLarge:
		return "TUPLE_TOO_LARGE"
	case DoesNotFit:
		return "DOES_NOT_FIT"
	case InvalidRID:
		return "INVALID_RID"
	default:
		return "UNKNOWN"
	}
}

// HeapError is the error type every exported heap-file operation returns on
// a legitimate (non-programming-error) failure.
type HeapError struct {
	Kind    Kind
	Op      string
	Message string
	cause   error
}

func (e *HeapError) Error() string {
	if e.Message != "" {
		return e.Op + ": " + e.Kind.String() + ": " + e.Message
	}
	return e.Op + ": " + e.Kind.String()
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *HeapError) Unwrap() error { return e.cause }

// New builds a HeapError of the given kind, capturing a stack trace at the
// call site via github.com/pkg/errors.
func New(kind Kind, op, message string) *HeapError {
	return &HeapError{Kind: kind, Op: op, Message: message, cause: errors.New(message)}
}

// Wrap attaches kind/op context to an existing error, preserving its stack
// trace (or attaching one now if the cause didn't already carry one).
func Wrap(cause error, kind Kind, op, message string) *HeapError {
	return &HeapError{Kind: kind, Op: op, Message: message, cause: errors.Wrap(cause, message)}
}

// Is reports whether err is a HeapError of the given kind.
func Is(err error, kind Kind) bool {
	var he *HeapError
	if errors.As(err, &he) {
		return he.Kind == kind
	}
	return false
}
