package algo

import (
	"context"
	"fmt"

	"github.com/podhmo/symvm/lazyinit"
	"github.com/podhmo/symvm/state"
	"github.com/podhmo/symvm/value"
)

// Load pushes a local variable, resolving it first when it is a pending
// symbolic reference.
type Load struct {
	// Slot is the local variable; a negative slot is read from the
	// one-byte operand.
	Slot int
	// Reference is set for aload, which requires a reference.
	Reference bool
}

func (l Load) Exec(ctx context.Context, s *state.State, c *Context) (*lazyinit.Result, error) {
	slot, length := l.Slot, 1
	if slot < 0 {
		n, err := s.ImmediateU8(1)
		if err != nil {
			return lazyinit.VerificationFailure(err), nil
		}
		slot, length = n, 2
	}
	v, err := s.Local(slot)
	if err != nil {
		return lazyinit.VerificationFailure(err), nil
	}
	if _, isRef := v.(value.Reference); isRef != l.Reference {
		return lazyinit.VerificationFailure(fmt.Errorf("local %d holds %s", slot, v)), nil
	}
	res, err := c.Generator.Generate(ctx, s, lazyinit.Request{Value: v, PCOffset: length})
	if err != nil {
		return nil, err
	}
	return initializeExpanded(res), nil
}

// Const pushes a constant.
type Const struct {
	Value value.Value
}

func (k Const) Exec(_ context.Context, s *state.State, _ *Context) (*lazyinit.Result, error) {
	if err := s.Push(k.Value); err != nil {
		return lazyinit.VerificationFailure(err), nil
	}
	return advance(s, 1)
}
