// Package fault reports internal-consistency faults: states the engine
// assumes can never be reached, such as a malformed type descriptor after
// upstream verification or a class that must already be loaded.
//
// Faults are distinct from user-triggerable errors. They are never used as
// ordinary control flow.
package fault

import (
	"errors"
	"fmt"
)

// ErrInternal is matched by every *Internal via errors.Is.
var ErrInternal = errors.New("unexpected internal fault")

// Internal wraps the cause of an internal-consistency fault.
type Internal struct {
	Msg string
	Err error
}

// New creates an *Internal with a formatted message.
func New(format string, args ...any) *Internal {
	return &Internal{Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Internal around err.
func Wrap(err error, format string, args ...any) *Internal {
	return &Internal{Msg: fmt.Sprintf(format, args...), Err: err}
}

func (e *Internal) Error() string {
	if e.Err == nil {
		return "internal fault: " + e.Msg
	}
	return fmt.Sprintf("internal fault: %s: %v", e.Msg, e.Err)
}

func (e *Internal) Unwrap() error { return e.Err }

// Is reports true for ErrInternal.
func (e *Internal) Is(target error) bool { return target == ErrInternal }

// Panic aborts with an *Internal. It is reserved for construction paths
// whose inputs were verified upstream.
func Panic(err error, format string, args ...any) {
	panic(Wrap(err, format, args...))
}

// Recover converts a recovered *Internal panic into an error. Any other
// panic value is re-raised.
//
//	defer fault.Recover(&err)
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if f, ok := r.(*Internal); ok {
		*errp = f
		return
	}
	panic(r)
}
