package decision

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	"github.com/podhmo/symvm/heap"
	"github.com/podhmo/symvm/state"
	"github.com/podhmo/symvm/value"
	"github.com/tidwall/match"
)

// Rules restrict the alternatives of references by provenance. Patterns are
// globs over origin strings where '*' matches any sequence and '?' any
// character, e.g. "{ROOT}:this" or "{ROOT}:list.*".
type Rules struct {
	// NotNull references are never resolved to null.
	NotNull []string
	// NeverAlias references are never resolved to an existing object.
	NeverAlias []string
	// ExpandTo restricts the classes a reference may be expanded to. The
	// first matching rule applies.
	ExpandTo []ExpandRule
}

// ExpandRule allows expansion of the references matching Origin to Classes
// only.
type ExpandRule struct {
	Origin  string
	Classes []string
}

func matchAny(origin string, patterns []string) bool {
	for _, p := range patterns {
		if match.Match(origin, p) {
			return true
		}
	}
	return false
}

// Option configures a Procedure.
type Option func(*Procedure)

// WithRules sets the provenance rules.
func WithRules(r Rules) Option {
	return func(p *Procedure) { p.rules = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Procedure) { p.logger = l }
}

// Procedure is the default Oracle. It enumerates the candidate
// resolutions of a reference (null, every assignable object created by an
// earlier expansion, a fresh object of every concrete subclass of the
// static type) and keeps the candidates that are satisfiable together with
// the path condition and the rules.
type Procedure struct {
	rules  Rules
	logger *slog.Logger
}

// NewProcedure returns a Procedure.
func NewProcedure(opts ...Option) *Procedure {
	p := &Procedure{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	return p
}

// ResolveLoad implements Oracle. Alternatives are ordered Null first, then
// Aliases by ascending object id, then Expands by class name.
func (p *Procedure) ResolveLoad(ctx context.Context, s *state.State, v value.Value) ([]Alternative, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("%w: no pending value", ErrInvalidInput)
	}
	ref, ok := value.AsReferenceSymbolic(v)
	if !ok || v.Kind() == value.KindKlassPseudoReference {
		return []Alternative{Resolved{Value: v}}, nil
	}
	if target, ok := s.Resolved(ref); ok {
		return []Alternative{Resolved{Value: target}}, nil
	}

	static := ref.StaticType()
	if static.IsClass() {
		if _, err := s.Hierarchy().ClassFile(static.ClassName()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidInput, ref.Origin(), err)
		}
	}

	candidates := p.candidates(s, static)
	admissible := p.solve(s, ref, candidates)

	p.logger.DebugContext(ctx, "resolve load",
		slog.String("pending", ref.Origin()),
		slog.Int("candidates", len(candidates)),
		slog.Any("alternatives", admissible),
	)
	return admissible, nil
}

func (p *Procedure) candidates(s *state.State, static value.Type) []Alternative {
	hier := s.Hierarchy()
	out := []Alternative{Null{}}
	s.Heap().Scan(func(id int64, o *heap.Object) bool {
		if o.IsSymbolic() && o.Kind() != heap.KLASS && hier.AssignableTo(o.Type(), static) {
			out = append(out, Aliases{ObjectID: id, ObjectOrigin: o.Origin()})
		}
		return true
	})
	for _, name := range hier.ConcreteSubclasses(static.ClassName()) {
		out = append(out, Expands{Type: value.ClassType(name)})
	}
	return out
}

// solve keeps the candidates that are satisfiable together with the rules
// and the path condition.
//
// The formula describes what the pending reference denotes: null, one of
// the existing objects, or a fresh object, and the dynamic class of that
// object. Expands(T) is a fresh object of class T and Aliases(#k) inherits
// the class of #k, so a class restriction rules out aliases as well as
// expansions. An object committed on the path to a reference matching a
// NeverAlias rule is owned by that reference and cannot be aliased.
func (p *Procedure) solve(s *state.State, ref value.ReferenceSymbolic, candidates []Alternative) []Alternative {
	if len(candidates) == 0 {
		return nil
	}
	origin := ref.Origin()
	c := logic.NewC()
	implies := func(a, b z.Lit) z.Lit { return c.Or(a.Not(), b) }

	isNull, fresh := c.Lit(), c.Lit()
	shapes := []z.Lit{isNull, fresh}
	targets := map[int64]z.Lit{}
	classes := map[string]z.Lit{}
	var classOrder []string
	class := func(name string) z.Lit {
		l, ok := classes[name]
		if !ok {
			l = c.Lit()
			classes[name] = l
			classOrder = append(classOrder, name)
		}
		return l
	}

	var facts, expansions []z.Lit
	lits := make([]z.Lit, len(candidates))
	for i, a := range candidates {
		switch a := a.(type) {
		case Null:
			lits[i] = isNull
		case Aliases:
			t := c.Lit()
			targets[a.ObjectID] = t
			shapes = append(shapes, t)
			lits[i] = t
			if o, ok := s.Heap().Lookup(a.ObjectID); ok {
				facts = append(facts, implies(t, class(o.Type().ClassName())))
			}
		case Expands:
			cl := class(a.Type.ClassName())
			expansions = append(expansions, cl)
			lits[i] = c.And(fresh, cl)
		}
	}

	// exactly one shape
	facts = append(facts, c.Ors(shapes...))
	for i := range shapes {
		for j := i + 1; j < len(shapes); j++ {
			facts = append(facts, c.Or(shapes[i].Not(), shapes[j].Not()))
		}
	}
	// at most one class, none for null
	for i, a := range classOrder {
		facts = append(facts, implies(isNull, classes[a].Not()))
		for _, b := range classOrder[i+1:] {
			facts = append(facts, c.Or(classes[a].Not(), classes[b].Not()))
		}
	}
	if len(expansions) == 0 {
		facts = append(facts, fresh.Not())
	} else {
		facts = append(facts, implies(fresh, c.Ors(expansions...)))
	}

	// rules and path condition
	notNull := matchAny(origin, p.rules.NotNull)
	for _, cl := range s.Clauses() {
		switch cl := cl.(type) {
		case state.ClauseNotNull:
			if cl.Ref.Origin() == origin {
				notNull = true
			}
		case state.ClauseAliases:
			if t, ok := targets[cl.ObjectID]; ok && matchAny(cl.Ref.Origin(), p.rules.NeverAlias) {
				facts = append(facts, t.Not())
			}
		case state.ClauseExpands:
			if t, ok := targets[cl.ObjectID]; ok && matchAny(cl.Ref.Origin(), p.rules.NeverAlias) {
				facts = append(facts, t.Not())
			}
		}
	}
	if notNull {
		facts = append(facts, isNull.Not())
	}
	if matchAny(origin, p.rules.NeverAlias) {
		for _, t := range targets {
			facts = append(facts, t.Not())
		}
	}
	for _, r := range p.rules.ExpandTo {
		if match.Match(origin, r.Origin) {
			for _, name := range classOrder {
				if !slices.Contains(r.Classes, name) {
					facts = append(facts, classes[name].Not())
				}
			}
			break
		}
	}
	formula := c.Ands(facts...)

	g := gini.New()
	c.ToCnf(g)
	var out []Alternative
	for i, lit := range lits {
		g.Assume(formula, lit)
		if g.Solve() == 1 {
			out = append(out, candidates[i])
		}
	}
	return out
}
