// Package decision enumerates the admissible resolutions of a pending
// symbolic reference.
//
// An Oracle reasons over the path condition of a state and returns the
// alternatives the resolution engine forks on. Procedure is the default
// oracle; callers may supply their own (FuncOracle adapts a function).
package decision

import (
	"context"
	"errors"
	"strconv"

	"github.com/podhmo/symvm/state"
	"github.com/podhmo/symvm/value"
)

// ErrInvalidInput reports a pending value that cannot be resolved, such as
// a reference whose static type names an unknown class.
var ErrInvalidInput = errors.New("invalid input")

// Alternative is one admissible resolution of a pending reference.
type Alternative interface {
	String() string
	alternative()
}

// Null resolves the reference to null.
type Null struct{}

// Aliases resolves the reference to an object already in the heap.
type Aliases struct {
	ObjectID     int64
	ObjectOrigin string
}

// Expands resolves the reference to a fresh object of Type.
type Expands struct {
	Type value.Type
}

// Resolved carries a value that needs no resolution: a concrete reference,
// a primitive, or a symbolic reference committed earlier on the path.
type Resolved struct {
	Value value.Value
}

func (Null) String() string { return "Null" }
func (a Aliases) String() string {
	return "Aliases(#" + strconv.FormatInt(a.ObjectID, 10) + ":" + a.ObjectOrigin + ")"
}
func (e Expands) String() string { return "Expands(" + e.Type.ClassName() + ")" }
func (r Resolved) String() string {
	return "Resolved(" + r.Value.String() + ")"
}

func (Null) alternative()     {}
func (Aliases) alternative()  {}
func (Expands) alternative()  {}
func (Resolved) alternative() {}

// Oracle decides how a pending value may be resolved in a state.
type Oracle interface {
	// ResolveLoad returns the alternatives for v, in the order successors
	// are to be explored. The state must not be modified.
	ResolveLoad(ctx context.Context, s *state.State, v value.Value) ([]Alternative, error)
}

// FuncOracle adapts a function to the Oracle interface.
type FuncOracle func(ctx context.Context, s *state.State, v value.Value) ([]Alternative, error)

func (f FuncOracle) ResolveLoad(ctx context.Context, s *state.State, v value.Value) ([]Alternative, error) {
	return f(ctx, s, v)
}
