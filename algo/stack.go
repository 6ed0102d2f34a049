package algo

import (
	"context"

	"github.com/podhmo/symvm/lazyinit"
	"github.com/podhmo/symvm/state"
	"github.com/podhmo/symvm/value"
)

// Nop does nothing.
func Nop(_ context.Context, s *state.State, _ *Context) (*lazyinit.Result, error) {
	return advance(s, 1)
}

// Pop discards the top of the operand stack.
func Pop(_ context.Context, s *state.State, _ *Context) (*lazyinit.Result, error) {
	if _, err := s.Pop(); err != nil {
		return lazyinit.VerificationFailure(err), nil
	}
	return advance(s, 1)
}

// Return leaves the current method. Returning from the root frame ends the
// path.
type Return struct {
	// Value is set for the instructions returning the top of the operand
	// stack.
	Value bool
}

func (r Return) Exec(_ context.Context, s *state.State, _ *Context) (*lazyinit.Result, error) {
	var v value.Value
	if r.Value {
		var err error
		if v, err = s.Pop(); err != nil {
			return lazyinit.VerificationFailure(err), nil
		}
	}
	if err := s.PopFrame(); err != nil {
		return lazyinit.VerificationFailure(err), nil
	}
	if s.StackSize() == 0 {
		s.SetStuckReturn(v)
		return lazyinit.Continue(s), nil
	}
	if v != nil {
		if err := s.Push(v); err != nil {
			return lazyinit.VerificationFailure(err), nil
		}
	}
	// the caller resumes after its invoke instruction
	return advance(s, 3)
}
