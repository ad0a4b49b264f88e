package dberrors

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Assert panics when cond is false. It is reserved for programming errors
// spelled out by the storage core's contract — a size-0 tuple insert, a
// double mark-delete, an operation against the wrong page's RID, a non-nil
// log manager paired with a nil transaction context, an apply-delete on a
// free slot. None of these are recoverable at the call site; they indicate
// the caller violated the pin/latch/logging discipline.
func Assert(cond bool, format string, args ...any) {
	if cond {
		return
	}
	logrus.WithField("component", "assert").Errorf(format, args...)
	panic(newAssertion(format, args...))
}

// Assertion is the panic value raised by Assert, distinguishing programming
// errors from typed HeapError values a caller is expected to handle.
type Assertion struct {
	msg string
}

func newAssertion(format string, args ...any) *Assertion {
	return &Assertion{msg: fmt.Sprintf(format, args...)}
}

func (a *Assertion) Error() string { return "assertion failed: " + a.msg }
