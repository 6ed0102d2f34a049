// Package lazyinit resolves symbolic references at their first use.
//
// When an instruction is about to use a symbolic reference that the path
// has not committed yet, the Generator asks a decision.Oracle for the
// admissible alternatives and forks the state once per alternative: the
// reference becomes null, an alias of an existing object, or a fresh
// object whose fields are new symbols. Every successor then stores the
// resolved value into the destination and advances the program counter.
package lazyinit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/podhmo/symvm/classfile"
	"github.com/podhmo/symvm/decision"
	"github.com/podhmo/symvm/heap"
	"github.com/podhmo/symvm/internal/fault"
	"github.com/podhmo/symvm/state"
	"github.com/podhmo/symvm/value"
	"golang.org/x/sync/errgroup"
)

// Destination is where a resolved value is committed.
type Destination interface {
	Store(s *state.State, v value.Value) error
}

// OperandStack pushes the resolved value.
type OperandStack struct{}

func (OperandStack) Store(s *state.State, v value.Value) error { return s.Push(v) }

// LocalSlot stores the resolved value into a local variable.
type LocalSlot int

func (l LocalSlot) Store(s *state.State, v value.Value) error { return s.SetLocal(int(l), v) }

// Request describes one pending value.
type Request struct {
	// Value is the value about to be used.
	Value value.Value
	// Destination receives the resolved value. Nil means OperandStack.
	Destination Destination
	// PCOffset is the length of the instruction; 0 leaves the program
	// counter where it is.
	PCOffset int
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// WithParallelRefine refines the successors concurrently.
func WithParallelRefine(parallel bool) Option {
	return func(g *Generator) { g.parallel = parallel }
}

// Generator forks states on pending symbolic references.
type Generator struct {
	oracle   decision.Oracle
	logger   *slog.Logger
	parallel bool
}

// New returns a Generator asking oracle for alternatives.
func New(oracle decision.Oracle, opts ...Option) *Generator {
	g := &Generator{oracle: oracle}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	return g
}

// Generate resolves req.Value in s and returns the successors. s itself is
// never modified.
//
// An error is returned only when the oracle fails; it is returned as is.
// A pending value the oracle rejects as invalid yields a
// VERIFICATION_FAILURE result and an empty alternative set yields an
// INTERNAL_FAULT result.
func (g *Generator) Generate(ctx context.Context, s *state.State, req Request) (*Result, error) {
	if req.Destination == nil {
		req.Destination = OperandStack{}
	}
	if req.Value == nil {
		return VerificationFailure(fmt.Errorf("%w: no pending value", decision.ErrInvalidInput)), nil
	}

	alts, pending, err := g.decide(ctx, s, req.Value)
	if err != nil {
		if errors.Is(err, decision.ErrInvalidInput) || errors.Is(err, classfile.ErrClassFileNotFound) {
			g.logger.DebugContext(ctx, "verification failure", slog.String("value", req.Value.String()), slog.Any("error", err))
			return VerificationFailure(err), nil
		}
		return nil, err
	}
	if len(alts) == 0 {
		err := fault.New("no alternative for %s in state %s: the path should have been pruned", req.Value, s.History())
		g.logger.ErrorContext(ctx, "internal fault", slog.Any("error", err))
		return InternalFault(err), nil
	}

	res := &Result{Kind: CONTINUE, Branches: make([]Branch, len(alts)), pending: pending}
	if pending != nil {
		res.notExpanded = true
		for _, a := range alts {
			if _, ok := a.(decision.Expands); ok {
				res.notExpanded = false
				break
			}
		}
	}

	// Clones are taken before refining: cloning touches the source.
	for i, a := range alts {
		succ := s.Clone()
		if len(alts) > 1 {
			succ.Branch(i + 1)
		}
		res.Branches[i] = Branch{Alternative: a, State: succ}
	}

	if g.parallel && len(alts) > 1 {
		// the first failing branch cancels its siblings
		eg, egCtx := errgroup.WithContext(ctx)
		for i := range res.Branches {
			b := res.Branches[i]
			eg.Go(func() error { return g.refine(egCtx, b, pending, req) })
		}
		err = eg.Wait()
	} else {
		for _, b := range res.Branches {
			if err = g.refine(ctx, b, pending, req); err != nil {
				break
			}
		}
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, err
		}
		g.logger.ErrorContext(ctx, "internal fault", slog.Any("error", err))
		return InternalFault(err), nil
	}
	return res, nil
}

// decide returns the alternatives for v and, when v is a reference the
// oracle was asked about, v as a symbolic reference. The oracle is not
// consulted for values that need no resolution.
func (g *Generator) decide(ctx context.Context, s *state.State, v value.Value) ([]decision.Alternative, value.ReferenceSymbolic, error) {
	ref, ok := value.AsReferenceSymbolic(v)
	if !ok || v.Kind() == value.KindKlassPseudoReference {
		return []decision.Alternative{decision.Resolved{Value: v}}, nil, nil
	}
	if target, ok := s.Resolved(ref); ok {
		return []decision.Alternative{decision.Resolved{Value: target}}, nil, nil
	}
	alts, err := g.oracle.ResolveLoad(ctx, s, v)
	if err != nil {
		return nil, nil, err
	}
	g.logger.DebugContext(ctx, "decision",
		slog.String("pending", ref.Origin()),
		slog.Int("alternatives", len(alts)),
	)
	return alts, ref, nil
}

// refine applies the alternative of b to its state and commits the
// resolved value. It stops on a canceled context. Any other failure here
// is an internal fault: the oracle vouched for the alternative.
func (g *Generator) refine(ctx context.Context, b Branch, pending value.ReferenceSymbolic, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := b.State
	var resolved value.Value
	switch a := b.Alternative.(type) {
	case decision.Resolved:
		resolved = a.Value
	case decision.Null:
		if pending == nil {
			return fault.New("null alternative for a resolved value")
		}
		s.AssumeNull(pending)
		resolved = value.Null
	case decision.Aliases:
		if pending == nil {
			return fault.New("aliases alternative for a resolved value")
		}
		if err := s.AssumeAliases(pending, a.ObjectID); err != nil {
			return fault.Wrap(err, "refining %s", a)
		}
		resolved = value.ReferenceConcrete{ID: a.ObjectID}
	case decision.Expands:
		if pending == nil {
			return fault.New("expands alternative for a resolved value")
		}
		id, err := s.AssumeExpands(pending, a.Type)
		if err != nil {
			return fault.Wrap(err, "refining %s", a)
		}
		resolved = value.ReferenceConcrete{ID: id}
	default:
		return fault.New("unknown alternative %T", b.Alternative)
	}
	if err := req.Destination.Store(s, resolved); err != nil {
		return fault.Wrap(err, "committing %s", resolved)
	}
	if req.PCOffset != 0 {
		if err := s.IncPC(req.PCOffset); err != nil {
			return fault.Wrap(err, "committing %s", resolved)
		}
	}
	g.logger.DebugContext(ctx, "refined",
		slog.String("state", s.History().String()),
		slog.String("alternative", b.Alternative.String()),
	)
	return nil
}

// ExpandedObject returns the object a branch's reference was expanded to.
func ExpandedObject(b Branch) (*heap.Object, bool) {
	if _, ok := b.Alternative.(decision.Expands); !ok {
		return nil, false
	}
	v, err := b.State.Top()
	if err != nil {
		return nil, false
	}
	_, o, err := b.State.Deref(v)
	if err != nil {
		return nil, false
	}
	return o, true
}
