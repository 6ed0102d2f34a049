package value

import (
	"strings"
)

// PrimitiveSymbolicApply is the primitive result of applying a pure
// function to existing values. It is never re-evaluated.
type PrimitiveSymbolicApply struct {
	typ      Type
	hp       HistoryPoint
	operator string
	args     []Value
	calc     *Calculator
	hash     uint64
	str      string
}

// NewPrimitiveSymbolicApply builds an applied primitive symbol as it is,
// without canonicalization. Use Calculator.ApplyPrimitive to get the
// canonical form.
func NewPrimitiveSymbolicApply(typ Type, hp HistoryPoint, calc *Calculator, operator string, args ...Value) (*PrimitiveSymbolicApply, error) {
	if !typ.IsPrimitive() {
		return nil, &InvalidTypeError{Type: typ, Reason: "applied primitive with non-primitive type"}
	}
	copied, err := copyArgs(operator, args)
	if err != nil {
		return nil, err
	}
	if calc == nil {
		calc = DefaultCalculator
	}
	p := &PrimitiveSymbolicApply{typ: typ, hp: hp, operator: operator, args: copied, calc: calc}
	p.hash = hashApply(KindSymbolicAppliedPrimitive, operator, copied, hp)
	p.str = renderApply(operator, copied, hp, Value.String)
	return p, nil
}

func (p *PrimitiveSymbolicApply) Kind() Kind                 { return KindSymbolicAppliedPrimitive }
func (p *PrimitiveSymbolicApply) Type() Type                 { return p.typ }
func (p *PrimitiveSymbolicApply) HistoryPoint() HistoryPoint { return p.hp }
func (p *PrimitiveSymbolicApply) Operator() string           { return p.operator }
func (p *PrimitiveSymbolicApply) String() string             { return p.str }
func (p *PrimitiveSymbolicApply) Hash() uint64               { return p.hash }
func (p *PrimitiveSymbolicApply) sealed()                    {}
func (p *PrimitiveSymbolicApply) primitive()                 {}

// Args returns a copy of the arguments.
func (p *PrimitiveSymbolicApply) Args() []Value {
	return append([]Value(nil), p.args...)
}

// Origin renders the provenance, recursing into symbolic arguments.
func (p *PrimitiveSymbolicApply) Origin() string {
	return renderApply(p.operator, p.args, p.hp, renderOrigin)
}

func (p *PrimitiveSymbolicApply) Equal(other Value) bool {
	o, ok := other.(*PrimitiveSymbolicApply)
	if !ok {
		return false
	}
	if p == o {
		return true
	}
	return p.hash == o.hash && p.typ == o.typ && equalApply(p.operator, p.args, p.hp, o.operator, o.args, o.hp)
}

// Replace returns the symbol obtained by replacing every argument equal to
// from with to, recursing into applied arguments. The result is rebuilt
// through the calculator, so canonicalization applies again and the
// result may be concrete.
func (p *PrimitiveSymbolicApply) Replace(from, to Value) (Primitive, error) {
	args, err := replaceArgs(p.args, from, to)
	if err != nil {
		return nil, err
	}
	return p.calc.ApplyPrimitive(p.typ, p.hp, p.operator, args...)
}

// ReferenceSymbolicApply is the reference result of applying a pure
// function to existing values.
type ReferenceSymbolicApply struct {
	staticType Type
	hp         HistoryPoint
	operator   string
	args       []Value
	hash       uint64
	str        string
}

// NewReferenceSymbolicApply builds an applied reference symbol.
func NewReferenceSymbolicApply(staticType Type, hp HistoryPoint, operator string, args ...Value) (*ReferenceSymbolicApply, error) {
	if !staticType.IsReference() {
		return nil, &InvalidTypeError{Type: staticType, Reason: "applied reference with non-reference type"}
	}
	copied, err := copyArgs(operator, args)
	if err != nil {
		return nil, err
	}
	r := &ReferenceSymbolicApply{staticType: staticType, hp: hp, operator: operator, args: copied}
	r.hash = hashApply(KindSymbolicAppliedReference, operator, copied, hp)
	r.str = renderApply(operator, copied, hp, Value.String)
	return r, nil
}

func (r *ReferenceSymbolicApply) Kind() Kind                 { return KindSymbolicAppliedReference }
func (r *ReferenceSymbolicApply) Type() Type                 { return r.staticType }
func (r *ReferenceSymbolicApply) StaticType() Type           { return r.staticType }
func (r *ReferenceSymbolicApply) HistoryPoint() HistoryPoint { return r.hp }
func (r *ReferenceSymbolicApply) Operator() string           { return r.operator }
func (r *ReferenceSymbolicApply) String() string             { return r.str }
func (r *ReferenceSymbolicApply) Hash() uint64               { return r.hash }
func (r *ReferenceSymbolicApply) sealed()                    {}
func (r *ReferenceSymbolicApply) reference()                 {}

// Root of an applied reference is the reference itself: it has no
// container to walk.
func (r *ReferenceSymbolicApply) Root() ReferenceSymbolic { return r }

// Args returns a copy of the arguments.
func (r *ReferenceSymbolicApply) Args() []Value {
	return append([]Value(nil), r.args...)
}

// Origin renders the provenance, recursing into symbolic arguments.
func (r *ReferenceSymbolicApply) Origin() string {
	return renderApply(r.operator, r.args, r.hp, renderOrigin)
}

func (r *ReferenceSymbolicApply) Equal(other Value) bool {
	o, ok := other.(*ReferenceSymbolicApply)
	if !ok {
		return false
	}
	if r == o {
		return true
	}
	return r.hash == o.hash && r.staticType == o.staticType && equalApply(r.operator, r.args, r.hp, o.operator, o.args, o.hp)
}

// Replace works as PrimitiveSymbolicApply.Replace.
func (r *ReferenceSymbolicApply) Replace(from, to Value) (*ReferenceSymbolicApply, error) {
	args, err := replaceArgs(r.args, from, to)
	if err != nil {
		return nil, err
	}
	return NewReferenceSymbolicApply(r.staticType, r.hp, r.operator, args...)
}

func copyArgs(operator string, args []Value) ([]Value, error) {
	copied := make([]Value, len(args))
	for i, a := range args {
		if absent(a) {
			return nil, &InvalidOperandError{Operator: operator, Index: i}
		}
		copied[i] = a
	}
	return copied, nil
}

func replaceArgs(args []Value, from, to Value) ([]Value, error) {
	replaced := make([]Value, len(args))
	for i, a := range args {
		switch {
		case a.Equal(from):
			replaced[i] = to
		case a.Kind() == KindSymbolicAppliedPrimitive:
			v, err := a.(*PrimitiveSymbolicApply).Replace(from, to)
			if err != nil {
				return nil, err
			}
			replaced[i] = v
		case a.Kind() == KindSymbolicAppliedReference:
			v, err := a.(*ReferenceSymbolicApply).Replace(from, to)
			if err != nil {
				return nil, err
			}
			replaced[i] = v
		default:
			replaced[i] = a
		}
	}
	return replaced, nil
}

func renderApply(operator string, args []Value, hp HistoryPoint, render func(Value) string) string {
	var b strings.Builder
	b.WriteString(operator)
	b.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(render(a))
	}
	b.WriteByte(')')
	if !hp.IsZero() {
		b.WriteByte('@')
		b.WriteString(hp.String())
	}
	return b.String()
}

func hashApply(k Kind, operator string, args []Value, hp HistoryPoint) uint64 {
	hs := newHasher(k).str(operator).uint(uint64(len(args)))
	for _, a := range args {
		hs.uint(a.Hash())
	}
	return hs.history(hp).sum()
}

func equalApply(op1 string, args1 []Value, hp1 HistoryPoint, op2 string, args2 []Value, hp2 HistoryPoint) bool {
	if op1 != op2 || hp1 != hp2 || len(args1) != len(args2) {
		return false
	}
	for i := range args1 {
		if !args1[i].Equal(args2[i]) {
			return false
		}
	}
	return true
}
