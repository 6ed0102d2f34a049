// Package value is the algebra of values manipulated by the symbolic
// executor: concrete and symbolic primitives and references, leaf symbols
// identified by their provenance, and applied symbols standing for
// uninterpreted pure-function calls.
//
// Values are immutable once constructed and are shared read-only by every
// state that reaches them.
package value

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"
)

// Kind tags the closed set of value variants.
type Kind int

const (
	KindConcretePrimitive Kind = iota
	KindSymbolicLeafPrimitive
	KindSymbolicAppliedPrimitive
	KindConcreteReference
	KindSymbolicLeafReference
	KindSymbolicAppliedReference
	KindNull
	KindKlassPseudoReference
)

var kindNames = [...]string{
	KindConcretePrimitive:        "CONCRETE_PRIMITIVE",
	KindSymbolicLeafPrimitive:    "SYMBOLIC_LEAF_PRIMITIVE",
	KindSymbolicAppliedPrimitive: "SYMBOLIC_APPLIED_PRIMITIVE",
	KindConcreteReference:        "CONCRETE_REFERENCE",
	KindSymbolicLeafReference:    "SYMBOLIC_LEAF_REFERENCE",
	KindSymbolicAppliedReference: "SYMBOLIC_APPLIED_REFERENCE",
	KindNull:                     "NULL",
	KindKlassPseudoReference:     "KLASS_PSEUDO_REFERENCE",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "UNKNOWN"
	}
	return kindNames[k]
}

// IsSymbolic reports whether values of kind k are symbolic.
func (k Kind) IsSymbolic() bool {
	switch k {
	case KindSymbolicLeafPrimitive, KindSymbolicAppliedPrimitive,
		KindSymbolicLeafReference, KindSymbolicAppliedReference,
		KindKlassPseudoReference:
		return true
	}
	return false
}

// IsReference reports whether values of kind k are references.
func (k Kind) IsReference() bool {
	switch k {
	case KindConcreteReference, KindSymbolicLeafReference, KindSymbolicAppliedReference,
		KindNull, KindKlassPseudoReference:
		return true
	}
	return false
}

// Value is implemented by every member of the closed value union.
type Value interface {
	// Kind returns the variant tag.
	Kind() Kind
	// Type returns the (static) type descriptor.
	Type() Type
	// String returns the textual form of the value.
	String() string
	// Equal reports structural equality.
	Equal(other Value) bool
	// Hash is consistent with Equal.
	Hash() uint64

	sealed()
}

// Primitive is a primitive-typed value.
type Primitive interface {
	Value
	primitive()
}

// Reference is a reference-typed value.
type Reference interface {
	Value
	reference()
}

// Symbolic is a value standing for an unknown.
type Symbolic interface {
	Value
	// HistoryPoint is the creation timestamp of the symbol.
	HistoryPoint() HistoryPoint
	// Origin renders the provenance of the symbol.
	Origin() string
}

// ReferenceSymbolic is a symbolic reference, the payload of lazy
// initialization.
type ReferenceSymbolic interface {
	Reference
	Symbolic
	// StaticType is the declared type of the slot the reference came from.
	StaticType() Type
	// Root is the outermost symbolic container on the provenance chain.
	Root() ReferenceSymbolic
}

// IsSymbolic reports whether v is symbolic.
func IsSymbolic(v Value) bool { return v != nil && v.Kind().IsSymbolic() }

// AsReferenceSymbolic returns v as a ReferenceSymbolic when it is one.
func AsReferenceSymbolic(v Value) (ReferenceSymbolic, bool) {
	r, ok := v.(ReferenceSymbolic)
	return r, ok
}

// absent reports whether v is nil, including a nil pointer of one of the
// pointer variants.
func absent(v Value) bool {
	switch v := v.(type) {
	case nil:
		return true
	case *PrimitiveSymbolicLeaf:
		return v == nil
	case *ReferenceSymbolicLeaf:
		return v == nil
	case *PrimitiveSymbolicApply:
		return v == nil
	case *ReferenceSymbolicApply:
		return v == nil
	case *KlassPseudoReference:
		return v == nil
	}
	return false
}

// Equal compares two possibly nil values.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}

// hasher accumulates a structural hash.
type hasher struct {
	h   *xxh3.Hasher
	buf [8]byte
}

func newHasher(k Kind) *hasher {
	hs := &hasher{h: xxh3.New()}
	hs.uint(uint64(k))
	return hs
}

func (hs *hasher) uint(v uint64) *hasher {
	binary.LittleEndian.PutUint64(hs.buf[:], v)
	hs.h.Write(hs.buf[:])
	return hs
}

func (hs *hasher) str(s string) *hasher {
	hs.uint(uint64(len(s)))
	hs.h.WriteString(s)
	return hs
}

func (hs *hasher) history(h HistoryPoint) *hasher {
	return hs.str(h.Branch).uint(uint64(h.Seq))
}

func (hs *hasher) sum() uint64 { return hs.h.Sum64() }
