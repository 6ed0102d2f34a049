package value

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidOrigin reports a provenance whose container was created after
// the symbol it contains.
var ErrInvalidOrigin = errors.New("invalid origin")

// Origin is the provenance of a leaf symbol.
type Origin interface {
	// String renders the provenance.
	String() string
	// Container is the symbolic reference the origin hangs from, or nil.
	Container() ReferenceSymbolic
	origin()
}

// LocalVariable is the origin of a symbol read from a root-frame local.
type LocalVariable struct {
	Name string
}

func (o LocalVariable) String() string               { return "{ROOT}:" + o.Name }
func (o LocalVariable) Container() ReferenceSymbolic { return nil }
func (LocalVariable) origin()                        {}

// MemberField is the origin of a symbol read from an object field.
type MemberField struct {
	Of    ReferenceSymbolic
	Field string
}

func (o MemberField) String() string               { return o.Of.Origin() + "." + o.Field }
func (o MemberField) Container() ReferenceSymbolic { return o.Of }
func (MemberField) origin()                        {}

// MemberArrayElement is the origin of a symbol read from an array slot.
// Index may itself be symbolic.
type MemberArrayElement struct {
	Of    ReferenceSymbolic
	Index Primitive
}

func (o MemberArrayElement) String() string {
	return o.Of.Origin() + "[" + renderOrigin(o.Index) + "]"
}
func (o MemberArrayElement) Container() ReferenceSymbolic { return o.Of }
func (MemberArrayElement) origin()                        {}

// MemberArrayLength is the origin of the length of a symbolic array.
type MemberArrayLength struct {
	Of ReferenceSymbolic
}

func (o MemberArrayLength) String() string               { return o.Of.Origin() + ".length" }
func (o MemberArrayLength) Container() ReferenceSymbolic { return o.Of }
func (MemberArrayLength) origin()                        {}

// IdentityHash is the origin of an object's identity hash code. Owner is
// the provenance of the owning object.
type IdentityHash struct {
	Owner string
}

func (o IdentityHash) String() string               { return o.Owner + ".<identityHashCode>" }
func (o IdentityHash) Container() ReferenceSymbolic { return nil }
func (IdentityHash) origin()                        {}

func renderOrigin(v Value) string {
	if s, ok := v.(Symbolic); ok {
		return s.Origin()
	}
	return v.String()
}

func checkOrigin(origin Origin, hp HistoryPoint) error {
	if origin == nil {
		return fmt.Errorf("%w: nil origin", ErrInvalidOrigin)
	}
	if c := origin.Container(); c != nil && !c.HistoryPoint().WeaklyBefore(hp) {
		return fmt.Errorf("%w: container %s created at %s, after %s", ErrInvalidOrigin, c, c.HistoryPoint(), hp)
	}
	return nil
}

// PrimitiveSymbolicLeaf is a primitive symbol identified by its origin.
type PrimitiveSymbolicLeaf struct {
	id     int
	typ    Type
	hp     HistoryPoint
	origin Origin
}

// NewPrimitiveSymbolicLeaf creates a primitive leaf symbol.
func NewPrimitiveSymbolicLeaf(id int, typ Type, hp HistoryPoint, origin Origin) (*PrimitiveSymbolicLeaf, error) {
	if !typ.IsPrimitive() {
		return nil, &InvalidTypeError{Type: typ, Reason: "primitive symbol with non-primitive type"}
	}
	if err := checkOrigin(origin, hp); err != nil {
		return nil, err
	}
	return &PrimitiveSymbolicLeaf{id: id, typ: typ, hp: hp, origin: origin}, nil
}

func (p *PrimitiveSymbolicLeaf) Kind() Kind                 { return KindSymbolicLeafPrimitive }
func (p *PrimitiveSymbolicLeaf) Type() Type                 { return p.typ }
func (p *PrimitiveSymbolicLeaf) ID() int                    { return p.id }
func (p *PrimitiveSymbolicLeaf) HistoryPoint() HistoryPoint { return p.hp }
func (p *PrimitiveSymbolicLeaf) Provenance() Origin         { return p.origin }
func (p *PrimitiveSymbolicLeaf) Origin() string             { return p.origin.String() }
func (p *PrimitiveSymbolicLeaf) String() string             { return "{V" + strconv.Itoa(p.id) + "}" }
func (p *PrimitiveSymbolicLeaf) sealed()                    {}
func (p *PrimitiveSymbolicLeaf) primitive()                 {}

func (p *PrimitiveSymbolicLeaf) Equal(other Value) bool {
	o, ok := other.(*PrimitiveSymbolicLeaf)
	if !ok {
		return false
	}
	if p == o {
		return true
	}
	return p.id == o.id && p.typ == o.typ && p.hp == o.hp && p.Origin() == o.Origin()
}

func (p *PrimitiveSymbolicLeaf) Hash() uint64 {
	return newHasher(KindSymbolicLeafPrimitive).uint(uint64(p.id)).str(string(p.typ)).history(p.hp).sum()
}

// ReferenceSymbolicLeaf is a reference symbol identified by its origin.
type ReferenceSymbolicLeaf struct {
	id         int
	staticType Type
	hp         HistoryPoint
	origin     Origin
}

// NewReferenceSymbolicLeaf creates a reference leaf symbol.
func NewReferenceSymbolicLeaf(id int, staticType Type, hp HistoryPoint, origin Origin) (*ReferenceSymbolicLeaf, error) {
	if err := ValidateType(staticType); err != nil {
		return nil, err
	}
	if !staticType.IsReference() {
		return nil, &InvalidTypeError{Type: staticType, Reason: "reference symbol with non-reference type"}
	}
	if err := checkOrigin(origin, hp); err != nil {
		return nil, err
	}
	return &ReferenceSymbolicLeaf{id: id, staticType: staticType, hp: hp, origin: origin}, nil
}

func (r *ReferenceSymbolicLeaf) Kind() Kind                 { return KindSymbolicLeafReference }
func (r *ReferenceSymbolicLeaf) Type() Type                 { return r.staticType }
func (r *ReferenceSymbolicLeaf) StaticType() Type           { return r.staticType }
func (r *ReferenceSymbolicLeaf) ID() int                    { return r.id }
func (r *ReferenceSymbolicLeaf) HistoryPoint() HistoryPoint { return r.hp }
func (r *ReferenceSymbolicLeaf) Provenance() Origin         { return r.origin }
func (r *ReferenceSymbolicLeaf) Origin() string             { return r.origin.String() }
func (r *ReferenceSymbolicLeaf) String() string             { return "{R" + strconv.Itoa(r.id) + "}" }
func (r *ReferenceSymbolicLeaf) sealed()                    {}
func (r *ReferenceSymbolicLeaf) reference()                 {}

// Root walks the provenance chain up to the outermost container.
func (r *ReferenceSymbolicLeaf) Root() ReferenceSymbolic {
	if c := r.origin.Container(); c != nil {
		return c.Root()
	}
	return r
}

func (r *ReferenceSymbolicLeaf) Equal(other Value) bool {
	o, ok := other.(*ReferenceSymbolicLeaf)
	if !ok {
		return false
	}
	if r == o {
		return true
	}
	return r.id == o.id && r.staticType == o.staticType && r.hp == o.hp && r.Origin() == o.Origin()
}

func (r *ReferenceSymbolicLeaf) Hash() uint64 {
	return newHasher(KindSymbolicLeafReference).uint(uint64(r.id)).str(string(r.staticType)).history(r.hp).sum()
}

// KlassPseudoReference denotes the static storage of a class. Its identity
// is the class name; it takes no id from the factory counters.
type KlassPseudoReference struct {
	class string
	hp    HistoryPoint
}

// NewKlassPseudoReference creates the pseudo-reference of a class.
func NewKlassPseudoReference(className string, hp HistoryPoint) *KlassPseudoReference {
	return &KlassPseudoReference{class: className, hp: hp}
}

func (k *KlassPseudoReference) Kind() Kind                 { return KindKlassPseudoReference }
func (k *KlassPseudoReference) Type() Type                 { return ClassType(k.class) }
func (k *KlassPseudoReference) StaticType() Type           { return ClassType(k.class) }
func (k *KlassPseudoReference) ClassName() string          { return k.class }
func (k *KlassPseudoReference) HistoryPoint() HistoryPoint { return k.hp }
func (k *KlassPseudoReference) Origin() string             { return "[" + k.class + "]" }
func (k *KlassPseudoReference) String() string             { return "[" + k.class + "]" }
func (k *KlassPseudoReference) Root() ReferenceSymbolic    { return k }
func (k *KlassPseudoReference) sealed()                    {}
func (k *KlassPseudoReference) reference()                 {}

func (k *KlassPseudoReference) Equal(other Value) bool {
	o, ok := other.(*KlassPseudoReference)
	return ok && o.class == k.class
}

func (k *KlassPseudoReference) Hash() uint64 {
	return newHasher(KindKlassPseudoReference).str(k.class).sum()
}
