package value

import (
	"fmt"
	"math"
	"strconv"
)

// Simplex is a concrete primitive value. Val holds the Go representation
// matching Typ: bool, int8, uint16, int16, int32, int64, float32 or float64.
type Simplex struct {
	Typ Type
	Val any
}

func Bool(v bool) Simplex      { return Simplex{Typ: BOOLEAN, Val: v} }
func Byte(v int8) Simplex      { return Simplex{Typ: BYTE, Val: v} }
func Char(v uint16) Simplex    { return Simplex{Typ: CHAR, Val: v} }
func Short(v int16) Simplex    { return Simplex{Typ: SHORT, Val: v} }
func Int(v int32) Simplex      { return Simplex{Typ: INT, Val: v} }
func Long(v int64) Simplex     { return Simplex{Typ: LONG, Val: v} }
func Float(v float32) Simplex  { return Simplex{Typ: FLOAT, Val: v} }
func Double(v float64) Simplex { return Simplex{Typ: DOUBLE, Val: v} }

// Zero returns the default value of a primitive type.
func Zero(t Type) (Simplex, error) {
	switch t {
	case BOOLEAN:
		return Bool(false), nil
	case BYTE:
		return Byte(0), nil
	case CHAR:
		return Char(0), nil
	case SHORT:
		return Short(0), nil
	case INT:
		return Int(0), nil
	case LONG:
		return Long(0), nil
	case FLOAT:
		return Float(0), nil
	case DOUBLE:
		return Double(0), nil
	}
	return Simplex{}, &InvalidTypeError{Type: t, Reason: "not a primitive type"}
}

func (s Simplex) Kind() Kind { return KindConcretePrimitive }
func (s Simplex) Type() Type { return s.Typ }
func (s Simplex) sealed()    {}
func (s Simplex) primitive() {}

func (s Simplex) String() string {
	switch v := s.Val.(type) {
	case bool:
		return strconv.FormatBool(v)
	case uint16:
		return fmt.Sprintf("'%c'", rune(v))
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32) + "f"
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64) + "d"
	case int64:
		return strconv.FormatInt(v, 10) + "L"
	}
	return fmt.Sprint(s.Val)
}

func (s Simplex) Equal(other Value) bool {
	o, ok := other.(Simplex)
	return ok && s.Typ == o.Typ && s.Val == o.Val
}

func (s Simplex) Hash() uint64 {
	return newHasher(KindConcretePrimitive).str(string(s.Typ)).str(s.String()).sum()
}

// AsFloat64 widens a numeric Simplex.
func (s Simplex) AsFloat64() (float64, bool) {
	switch v := s.Val.(type) {
	case int8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return math.NaN(), false
}

// ReferenceConcrete points to a heap object by id.
type ReferenceConcrete struct {
	ID int64
}

func (r ReferenceConcrete) Kind() Kind     { return KindConcreteReference }
func (r ReferenceConcrete) Type() Type     { return OBJECT }
func (r ReferenceConcrete) String() string { return "Object[" + strconv.FormatInt(r.ID, 10) + "]" }
func (r ReferenceConcrete) sealed()        {}
func (r ReferenceConcrete) reference()     {}

func (r ReferenceConcrete) Equal(other Value) bool {
	o, ok := other.(ReferenceConcrete)
	return ok && o.ID == r.ID
}

func (r ReferenceConcrete) Hash() uint64 {
	return newHasher(KindConcreteReference).uint(uint64(r.ID)).sum()
}

// NullReference is the type of Null.
type NullReference struct{}

// Null is the null reference.
var Null = NullReference{}

func (NullReference) Kind() Kind     { return KindNull }
func (NullReference) Type() Type     { return NULLREF }
func (NullReference) String() string { return "null" }
func (NullReference) sealed()        {}
func (NullReference) reference()     {}

func (NullReference) Equal(other Value) bool {
	_, ok := other.(NullReference)
	return ok
}

func (NullReference) Hash() uint64 { return newHasher(KindNull).sum() }
