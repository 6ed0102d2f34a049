// Package algo implements the instructions of the executor.
//
// An Algorithm executes the current instruction of a state and returns its
// successors as a lazyinit.Result. The state passed to Exec is consumed:
// handlers that do not fork advance it in place and return it as the only
// successor, handlers that read a value delegate to a lazyinit.Generator.
package algo

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/podhmo/symvm/algo/meta"
	"github.com/podhmo/symvm/decision"
	"github.com/podhmo/symvm/internal/fault"
	"github.com/podhmo/symvm/lazyinit"
	"github.com/podhmo/symvm/state"
)

// ErrUnsupported reports an instruction or an invocation the executor
// cannot run.
var ErrUnsupported = errors.New("unsupported")

// Context is what the algorithms share.
type Context struct {
	Generator *lazyinit.Generator
	Meta      *meta.Registry
	Logger    *slog.Logger
}

// NewContext returns a Context with a default Procedure oracle and the
// built-in meta-level methods.
func NewContext() *Context {
	c := &Context{
		Generator: lazyinit.New(decision.NewProcedure()),
		Meta:      meta.New(),
		Logger:    slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	}
	RegisterMeta(c.Meta)
	return c
}

// Algorithm executes one instruction.
type Algorithm interface {
	Exec(ctx context.Context, s *state.State, c *Context) (*lazyinit.Result, error)
}

// Func adapts a function to the Algorithm interface.
type Func func(ctx context.Context, s *state.State, c *Context) (*lazyinit.Result, error)

func (f Func) Exec(ctx context.Context, s *state.State, c *Context) (*lazyinit.Result, error) {
	return f(ctx, s, c)
}

// throw ends s with a fresh exception of class.
func throw(s *state.State, class string) (*lazyinit.Result, error) {
	if err := s.Throw(class); err != nil {
		return lazyinit.InternalFault(fault.Wrap(err, "throwing %s", class)), nil
	}
	return lazyinit.Continue(s), nil
}

// advance moves s past an instruction n bytes long.
func advance(s *state.State, n int) (*lazyinit.Result, error) {
	if err := s.IncPC(n); err != nil {
		return lazyinit.VerificationFailure(err), nil
	}
	return lazyinit.Continue(s), nil
}

// initializeExpanded initializes the class of every object created by an
// expansion in res.
func initializeExpanded(res *lazyinit.Result) *lazyinit.Result {
	if res.Kind != lazyinit.CONTINUE || res.ReferenceNotExpanded() {
		return res
	}
	for _, b := range res.Branches {
		e, ok := b.Alternative.(decision.Expands)
		if !ok || e.Type.IsArray() {
			continue
		}
		if _, err := b.State.EnsureKlass(e.Type.ClassName()); err != nil {
			return lazyinit.InternalFault(fault.Wrap(err, "initializing %s", e.Type.ClassName()))
		}
	}
	return res
}
