// Package symvm explores the execution paths of a method symbolically.
//
// Reference-typed inputs start as symbols and are resolved lazily, at their
// first use: the explorer forks the state once per admissible resolution
// (null, an alias of an object seen earlier on the path, a fresh object of
// a compatible class) and visits every path depth first.
package symvm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/google/uuid"
	"github.com/podhmo/symvm/algo"
	"github.com/podhmo/symvm/algo/meta"
	"github.com/podhmo/symvm/classfile"
	"github.com/podhmo/symvm/decision"
	"github.com/podhmo/symvm/internal/fault"
	"github.com/podhmo/symvm/lazyinit"
	"github.com/podhmo/symvm/state"
)

// ErrStateLimit reports that Run stopped at the configured number of
// visited states.
var ErrStateLimit = errors.New("state limit reached")

// Option configures an Explorer.
type Option func(*Explorer)

// WithConfig sets the configuration. Options applied after it override
// the settings derived from it.
func WithConfig(c *Config) Option {
	return func(e *Explorer) { e.config = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Explorer) { e.logger = l }
}

// WithOracle replaces the default decision procedure.
func WithOracle(o decision.Oracle) Option {
	return func(e *Explorer) { e.oracle = o }
}

// WithMeta registers a meta-level implementation of the method named
// signature ("class:descriptor:name").
func WithMeta(signature string, fn meta.Func) Option {
	return func(e *Explorer) {
		e.metas = append(e.metas, registration{signature: signature, fn: fn})
	}
}

type registration struct {
	signature string
	fn        meta.Func
}

// Explorer runs methods of a class hierarchy.
type Explorer struct {
	hier       *classfile.Hierarchy
	config     *Config
	logger     *slog.Logger
	oracle     decision.Oracle
	metas      []registration
	dispatcher *algo.Dispatcher
	runID      string
}

// New returns an Explorer for hier.
func New(hier *classfile.Hierarchy, opts ...Option) (*Explorer, error) {
	if hier == nil {
		return nil, fmt.Errorf("explorer needs a class hierarchy")
	}
	e := &Explorer{hier: hier, runID: uuid.NewString()}
	for _, opt := range opts {
		opt(e)
	}
	if e.config == nil {
		e.config = DefaultConfig()
	}
	if err := e.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if e.logger == nil {
		level, _ := e.config.Level()
		e.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	e.logger = e.logger.With(slog.String("run", e.runID))
	if e.oracle == nil {
		e.oracle = decision.NewProcedure(
			decision.WithRules(e.config.DecisionRules()),
			decision.WithLogger(e.logger),
		)
	}

	registry := meta.New()
	algo.RegisterMeta(registry)
	// user registrations shadow the built-ins
	registry.Push()
	for _, r := range e.metas {
		registry.Register(r.signature, r.fn)
	}
	e.dispatcher = algo.NewDispatcher(&algo.Context{
		Generator: lazyinit.New(e.oracle,
			lazyinit.WithLogger(e.logger),
			lazyinit.WithParallelRefine(e.config.Engine.ParallelRefine),
		),
		Meta:   registry,
		Logger: e.logger,
	})
	return e, nil
}

// RunID identifies the explorer in its log records.
func (e *Explorer) RunID() string { return e.runID }

// Config returns the configuration in use.
func (e *Explorer) Config() *Config { return e.config }

// InitialState returns the state at the entry of the method named by
// signature ("class:descriptor:name"), with symbolic arguments.
func (e *Explorer) InitialState(signature string) (*state.State, error) {
	sig, err := classfile.ParseSignature(signature)
	if err != nil {
		return nil, err
	}
	m, err := e.hier.Method(sig)
	if err != nil {
		return nil, err
	}
	if len(m.Code) == 0 {
		return nil, fmt.Errorf("method %s has no code", sig)
	}
	return state.New(e.hier, m, state.WithClassInit(state.ClassInit(e.config.Engine.ClassInit)))
}

// Step executes the current instruction of s and returns its successors.
// s is consumed. A stuck state has no successors.
//
// A verification failure ends the path with a VerifyError; the stuck state
// is the only successor. An internal fault is returned as an error
// matching fault.ErrInternal.
func (e *Explorer) Step(ctx context.Context, s *state.State) ([]*state.State, error) {
	if _, ok := s.Stuck(); ok {
		return nil, nil
	}
	res, err := e.dispatcher.Exec(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("step %s: %w", s.History(), err)
	}
	var succs []*state.State
	switch res.Kind {
	case lazyinit.VERIFICATION_FAILURE:
		e.logc(ctx, slog.LevelDebug, "verification failure", slog.String("state", s.History().String()), slog.Any("error", res.Err))
		if err := s.ThrowVerifyError(); err != nil {
			return nil, fault.Wrap(err, "throwing verify error in %s", s.History())
		}
		succs = []*state.State{s}
	case lazyinit.INTERNAL_FAULT:
		e.logc(ctx, slog.LevelError, "internal fault", slog.String("state", s.History().String()), slog.Any("error", res.Err))
		return nil, fmt.Errorf("step %s: %w", s.History(), res.Err)
	default:
		succs = res.States()
	}
	for _, succ := range succs {
		succ.Tick()
	}
	return succs, nil
}

// Run visits every state reachable from s depth first, the successors of
// a fork in the order of their alternatives. States deeper than
// engine.max_depth are visited but not expanded. Run stops with
// ErrStateLimit after engine.max_states visits, and with the first error
// returned by visit.
func (e *Explorer) Run(ctx context.Context, s *state.State, visit func(*state.State) error) error {
	stack := []*state.State{s}
	visited := 0
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited >= e.config.Engine.MaxStates {
			e.logc(ctx, slog.LevelWarn, "state limit reached", slog.Int("visited", visited))
			return fmt.Errorf("%w: %d", ErrStateLimit, visited)
		}
		visited++
		if err := visit(cur); err != nil {
			return err
		}
		if cur.Depth() > e.config.Engine.MaxDepth {
			e.logc(ctx, slog.LevelInfo, "depth bound reached", slog.String("state", cur.History().String()))
			continue
		}

		succs, err := e.Step(ctx, cur)
		if err != nil {
			return err
		}
		if len(succs) > 1 {
			e.logc(ctx, slog.LevelDebug, "fork", slog.String("state", cur.History().String()), slog.Int("successors", len(succs)))
		}
		slices.Reverse(succs)
		stack = append(stack, succs...)
	}
	e.logc(ctx, slog.LevelDebug, "done", slog.Int("visited", visited))
	return nil
}
