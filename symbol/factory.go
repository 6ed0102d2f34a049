// Package symbol mints the leaf symbols of an exploration.
//
// A Factory owns two counters, one for reference symbols and one for
// primitive symbols. Every creation call increments exactly one of them,
// except for class pseudo-references, which are identified by the class
// name. Factories are never shared between exploration contexts: a forked
// context gets its own copy through Duplicate.
package symbol

import (
	"fmt"

	"github.com/podhmo/symvm/internal/fault"
	"github.com/podhmo/symvm/value"
)

// HashOwner is an object whose identity hash code can be symbolic.
type HashOwner interface {
	// HistoryPoint is the creation time of the object.
	HistoryPoint() value.HistoryPoint
	// Origin is the provenance of the object.
	Origin() string
}

// Factory creates leaf symbols with fresh identities.
type Factory struct {
	nextRef  int
	nextPrim int
}

// New returns a factory whose counters start at zero.
func New() *Factory {
	return &Factory{}
}

// NextReferenceID returns the id the next reference symbol will get.
func (f *Factory) NextReferenceID() int { return f.nextRef }

// NextPrimitiveID returns the id the next primitive symbol will get.
func (f *Factory) NextPrimitiveID() int { return f.nextPrim }

// Duplicate returns an independent factory with the same counters.
//
// The copy and the receiver continue from the same numbers, so symbols
// minted on both sides after the duplication have colliding ids. The
// caller that needs distinct numbering must re-synchronize.
func (f *Factory) Duplicate() *Factory {
	d := *f
	return &d
}

// LocalVariable creates the symbol for the initial value of a local
// variable of the root frame. The result is a primitive or a reference
// leaf depending on staticType.
func (f *Factory) LocalVariable(hp value.HistoryPoint, staticType value.Type, name string) value.Symbolic {
	return f.leaf(staticType, hp, value.LocalVariable{Name: name})
}

// KlassPseudoReference creates the pseudo-reference to the static storage
// of className. No counter is touched.
func (f *Factory) KlassPseudoReference(hp value.HistoryPoint, className string) *value.KlassPseudoReference {
	if err := value.ValidateType(value.ClassType(className)); err != nil {
		fault.Panic(err, "klass pseudo-reference")
	}
	return value.NewKlassPseudoReference(className, hp)
}

// MemberField creates the symbol for the initial value of field name of
// container. The symbol inherits the history point of its container.
func (f *Factory) MemberField(staticType value.Type, container value.ReferenceSymbolic, name string) value.Symbolic {
	if container == nil {
		fault.Panic(nil, "member field %s of nil container", name)
	}
	if container.StaticType().IsArray() {
		fault.Panic(nil, "member field %s of array container %s", name, container.Origin())
	}
	return f.leaf(staticType, container.HistoryPoint(), value.MemberField{Of: container, Field: name})
}

// MemberArray creates the symbol for the initial value of the element at
// index of the array container. The index may be symbolic.
func (f *Factory) MemberArray(staticType value.Type, container value.ReferenceSymbolic, index value.Primitive) value.Symbolic {
	if container == nil {
		fault.Panic(nil, "array element of nil container")
	}
	if !container.StaticType().IsArray() {
		fault.Panic(nil, "array element of non-array container %s", container.Origin())
	}
	if index == nil {
		fault.Panic(value.ErrInvalidOperand, "array element of %s with nil index", container.Origin())
	}
	return f.leaf(staticType, container.HistoryPoint(), value.MemberArrayElement{Of: container, Index: index})
}

// ArrayLength creates the symbol for the length of the array container.
func (f *Factory) ArrayLength(container value.ReferenceSymbolic) *value.PrimitiveSymbolicLeaf {
	if container == nil {
		fault.Panic(nil, "array length of nil container")
	}
	if !container.StaticType().IsArray() {
		fault.Panic(nil, "array length of non-array container %s", container.Origin())
	}
	return f.primitive(value.INT, container.HistoryPoint(), value.MemberArrayLength{Of: container})
}

// IdentityHash creates the symbol for the identity hash code of owner.
// The symbol is stamped with the owner's history point.
func (f *Factory) IdentityHash(owner HashOwner) *value.PrimitiveSymbolicLeaf {
	if owner == nil {
		fault.Panic(nil, "identity hash of nil object")
	}
	return f.primitive(value.INT, owner.HistoryPoint(), value.IdentityHash{Owner: owner.Origin()})
}

func (f *Factory) leaf(staticType value.Type, hp value.HistoryPoint, origin value.Origin) value.Symbolic {
	if err := value.ValidateType(staticType); err != nil {
		fault.Panic(err, "symbol %s", origin)
	}
	if staticType.IsPrimitive() {
		return f.primitive(staticType, hp, origin)
	}
	id := f.nextRef
	r, err := value.NewReferenceSymbolicLeaf(id, staticType, hp, origin)
	if err != nil {
		fault.Panic(err, "symbol %s", origin)
	}
	f.nextRef++
	return r
}

func (f *Factory) primitive(typ value.Type, hp value.HistoryPoint, origin value.Origin) *value.PrimitiveSymbolicLeaf {
	id := f.nextPrim
	p, err := value.NewPrimitiveSymbolicLeaf(id, typ, hp, origin)
	if err != nil {
		fault.Panic(err, "symbol %s", origin)
	}
	f.nextPrim++
	return p
}

func (f *Factory) String() string {
	return fmt.Sprintf("Factory{ref:%d, prim:%d}", f.nextRef, f.nextPrim)
}
