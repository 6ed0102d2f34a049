// Package meta holds the meta-level implementations of methods: Go
// functions executed in place of the bytecode of a method.
package meta

import (
	"context"

	"github.com/podhmo/symvm/lazyinit"
	"github.com/podhmo/symvm/state"
)

// Func executes a method invocation on s. The receiver and the arguments
// are on the operand stack; the invoking instruction is the current one.
type Func func(ctx context.Context, s *state.State) (*lazyinit.Result, error)

// Registry holds the meta-level methods in a layered stack, keyed by
// method signature ("class:descriptor:name"). Layers pushed later shadow
// the earlier ones.
type Registry struct {
	layers []map[string]Func
}

// New creates a registry with a single base layer.
func New() *Registry {
	return &Registry{
		layers: []map[string]Func{make(map[string]Func)},
	}
}

// Register adds fn to the top-most layer.
func (r *Registry) Register(signature string, fn Func) {
	r.layers[len(r.layers)-1][signature] = fn
}

// Get looks up signature from the top-most layer down.
func (r *Registry) Get(signature string) (Func, bool) {
	for i := len(r.layers) - 1; i >= 0; i-- {
		if fn, ok := r.layers[i][signature]; ok {
			return fn, true
		}
	}
	return nil, false
}

// Push adds an empty layer.
func (r *Registry) Push() {
	r.layers = append(r.layers, make(map[string]Func))
}
