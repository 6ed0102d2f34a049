package value

import (
	"cmp"
	"math"
)

// Pure functions implemented by java.lang.StrictMath.
const (
	OpAbsDouble = "java/lang/StrictMath:(D)D:abs"
	OpAbsFloat  = "java/lang/StrictMath:(F)F:abs"
	OpAbsInt    = "java/lang/StrictMath:(I)I:abs"
	OpAbsLong   = "java/lang/StrictMath:(J)J:abs"
	OpSin       = "java/lang/StrictMath:(D)D:sin"
	OpCos       = "java/lang/StrictMath:(D)D:cos"
	OpTan       = "java/lang/StrictMath:(D)D:tan"
	OpAsin      = "java/lang/StrictMath:(D)D:asin"
	OpAcos      = "java/lang/StrictMath:(D)D:acos"
	OpAtan      = "java/lang/StrictMath:(D)D:atan"
	OpSqrt      = "java/lang/StrictMath:(D)D:sqrt"
	OpPow       = "java/lang/StrictMath:(DD)D:pow"
	OpExp       = "java/lang/StrictMath:(D)D:exp"
	OpMinDouble = "java/lang/StrictMath:(DD)D:min"
	OpMinFloat  = "java/lang/StrictMath:(FF)F:min"
	OpMinInt    = "java/lang/StrictMath:(II)I:min"
	OpMinLong   = "java/lang/StrictMath:(JJ)J:min"
	OpMax       = "max"
	OpMaxDouble = "java/lang/StrictMath:(DD)D:max"
	OpMaxFloat  = "java/lang/StrictMath:(FF)F:max"
	OpMaxInt    = "java/lang/StrictMath:(II)I:max"
	OpMaxLong   = "java/lang/StrictMath:(JJ)J:max"
)

// Pure functions with a reference result.
const (
	OpToString = "toString"
	OpEquals   = "equals"
)

// Rule describes how the calculator canonicalizes applications of one
// operator.
type Rule struct {
	// Fold evaluates the operator on concrete arguments.
	Fold func(args []Simplex) (Simplex, bool)
	// Idempotent operators collapse f(f(x)) to f(x).
	Idempotent bool
	// Selection operators (min, max) collapse f(x, x) to x.
	Selection bool
}

// Calculator builds applied primitive symbols in canonical form.
type Calculator struct {
	rules map[string]Rule
}

// DefaultCalculator knows the StrictMath pure functions.
var DefaultCalculator = NewCalculator()

// NewCalculator returns a calculator with the StrictMath rules registered.
func NewCalculator() *Calculator {
	c := &Calculator{rules: make(map[string]Rule)}
	for op, r := range strictMathRules() {
		c.Register(op, r)
	}
	return c
}

// Register adds or replaces the rule of an operator.
func (c *Calculator) Register(operator string, r Rule) {
	c.rules[operator] = r
}

// Known reports whether operator has a registered rule.
func (c *Calculator) Known(operator string) bool {
	_, ok := c.rules[operator]
	return ok
}

// ApplyPrimitive returns the canonical value of operator applied to args.
// Unknown operators are accepted and never simplified.
func (c *Calculator) ApplyPrimitive(typ Type, hp HistoryPoint, operator string, args ...Value) (Primitive, error) {
	if !typ.IsPrimitive() {
		return nil, &InvalidTypeError{Type: typ, Reason: "applied primitive with non-primitive type"}
	}
	for i, a := range args {
		if absent(a) {
			return nil, &InvalidOperandError{Operator: operator, Index: i}
		}
	}
	if v, ok := c.simplify(operator, args); ok {
		return v, nil
	}
	return NewPrimitiveSymbolicApply(typ, hp, c, operator, args...)
}

func (c *Calculator) simplify(operator string, args []Value) (Primitive, bool) {
	r, ok := c.rules[operator]
	if !ok {
		return nil, false
	}
	if r.Fold != nil {
		if concrete, ok := allSimplex(args); ok {
			if v, ok := r.Fold(concrete); ok {
				return v, true
			}
		}
	}
	if r.Idempotent && len(args) == 1 {
		if inner, ok := args[0].(*PrimitiveSymbolicApply); ok && inner.operator == operator {
			return inner, true
		}
	}
	if r.Selection && len(args) == 2 && args[0].Equal(args[1]) {
		if p, ok := args[0].(Primitive); ok {
			return p, true
		}
	}
	return nil, false
}

func allSimplex(args []Value) ([]Simplex, bool) {
	out := make([]Simplex, len(args))
	for i, a := range args {
		s, ok := a.(Simplex)
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}

func strictMathRules() map[string]Rule {
	unaryD := func(f func(float64) float64) Rule {
		return Rule{Fold: func(args []Simplex) (Simplex, bool) {
			if len(args) != 1 || args[0].Typ != DOUBLE {
				return Simplex{}, false
			}
			return Double(f(args[0].Val.(float64))), true
		}}
	}
	abs := Rule{Idempotent: true, Fold: foldAbs}
	minR := Rule{Selection: true, Fold: foldSelect(func(c int) bool { return c <= 0 })}
	maxR := Rule{Selection: true, Fold: foldSelect(func(c int) bool { return c >= 0 })}
	return map[string]Rule{
		OpAbsDouble: abs,
		OpAbsFloat:  abs,
		OpAbsInt:    abs,
		OpAbsLong:   abs,
		OpSin:       unaryD(math.Sin),
		OpCos:       unaryD(math.Cos),
		OpTan:       unaryD(math.Tan),
		OpAsin:      unaryD(math.Asin),
		OpAcos:      unaryD(math.Acos),
		OpAtan:      unaryD(math.Atan),
		OpSqrt:      unaryD(math.Sqrt),
		OpExp:       unaryD(math.Exp),
		OpPow: {Fold: func(args []Simplex) (Simplex, bool) {
			if len(args) != 2 || args[0].Typ != DOUBLE || args[1].Typ != DOUBLE {
				return Simplex{}, false
			}
			return Double(math.Pow(args[0].Val.(float64), args[1].Val.(float64))), true
		}},
		OpMinDouble: minR,
		OpMinFloat:  minR,
		OpMinInt:    minR,
		OpMinLong:   minR,
		OpMax:       maxR,
		OpMaxDouble: maxR,
		OpMaxFloat:  maxR,
		OpMaxInt:    maxR,
		OpMaxLong:   maxR,
	}
}

// foldAbs follows Java: abs(MIN_VALUE) is MIN_VALUE for int and long.
func foldAbs(args []Simplex) (Simplex, bool) {
	if len(args) != 1 {
		return Simplex{}, false
	}
	switch v := args[0].Val.(type) {
	case int32:
		if v < 0 {
			v = -v
		}
		return Int(v), true
	case int64:
		if v < 0 {
			v = -v
		}
		return Long(v), true
	case float32:
		return Float(float32(math.Abs(float64(v)))), true
	case float64:
		return Double(math.Abs(v)), true
	}
	return Simplex{}, false
}

func foldSelect(keepFirst func(c int) bool) func([]Simplex) (Simplex, bool) {
	return func(args []Simplex) (Simplex, bool) {
		if len(args) != 2 || args[0].Typ != args[1].Typ {
			return Simplex{}, false
		}
		c, ok := compareSimplex(args[0], args[1])
		if !ok {
			return Simplex{}, false
		}
		if keepFirst(c) {
			return args[0], true
		}
		return args[1], true
	}
}

// compareSimplex orders two numeric values of the same type. NaN is not
// ordered.
func compareSimplex(a, b Simplex) (int, bool) {
	switch x := a.Val.(type) {
	case int32:
		return cmp.Compare(x, b.Val.(int32)), true
	case int64:
		return cmp.Compare(x, b.Val.(int64)), true
	case float32:
		y := b.Val.(float32)
		if x != x || y != y {
			return 0, false
		}
		return cmp.Compare(x, y), true
	case float64:
		y := b.Val.(float64)
		if math.IsNaN(x) || math.IsNaN(y) {
			return 0, false
		}
		return cmp.Compare(x, y), true
	}
	return 0, false
}
