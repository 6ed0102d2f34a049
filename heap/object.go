// Package heap stores the objects of one program state.
//
// Objects are immutable: every modification returns a new *Object, and a
// Heap maps ids to the current version. Cloning a heap is a copy-on-write
// snapshot, so forking a state does not copy its objects.
package heap

import (
	"fmt"
	"strconv"

	"github.com/podhmo/symvm/classfile"
	"github.com/podhmo/symvm/value"
)

// Kind distinguishes the object layouts.
type Kind int

const (
	INSTANCE Kind = iota
	ARRAY
	KLASS
)

func (k Kind) String() string {
	switch k {
	case INSTANCE:
		return "INSTANCE"
	case ARRAY:
		return "ARRAY"
	case KLASS:
		return "KLASS"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Slot is a field of an object with its current value.
type Slot struct {
	Sig   classfile.Signature
	Value value.Value
}

// Object is an instance, an array or the static storage of a class.
type Object struct {
	kind   Kind
	typ    value.Type
	id     int64
	hp     value.HistoryPoint
	origin value.ReferenceSymbolic
	fields []Slot
	length value.Primitive
}

// NewInstance creates an instance of typ. origin is the symbolic reference
// the object was expanded from, or nil for a concrete allocation.
func NewInstance(typ value.Type, hp value.HistoryPoint, origin value.ReferenceSymbolic, fields []Slot) *Object {
	return &Object{kind: INSTANCE, typ: typ, id: -1, hp: hp, origin: origin, fields: append([]Slot(nil), fields...)}
}

// NewArray creates an array of typ with the given length.
func NewArray(typ value.Type, hp value.HistoryPoint, origin value.ReferenceSymbolic, length value.Primitive) *Object {
	return &Object{kind: ARRAY, typ: typ, id: -1, hp: hp, origin: origin, length: length}
}

// NewKlass creates the static storage of a class.
func NewKlass(class string, hp value.HistoryPoint, origin value.ReferenceSymbolic, fields []Slot) *Object {
	return &Object{kind: KLASS, typ: value.ClassType(class), id: -1, hp: hp, origin: origin, fields: append([]Slot(nil), fields...)}
}

func (o *Object) Kind() Kind                       { return o.kind }
func (o *Object) Type() value.Type                 { return o.typ }
func (o *Object) HistoryPoint() value.HistoryPoint { return o.hp }

// ID returns the heap id, or -1 for an object not yet allocated. Klass
// objects are not heap-allocated and keep -1.
func (o *Object) ID() int64 { return o.id }

// IsSymbolic reports whether the object was created by expanding a
// symbolic reference.
func (o *Object) IsSymbolic() bool { return o.origin != nil }

// SymbolicOrigin returns the reference the object was expanded from.
func (o *Object) SymbolicOrigin() value.ReferenceSymbolic { return o.origin }

// Origin renders the provenance of the object.
func (o *Object) Origin() string {
	if o.origin != nil {
		return o.origin.Origin()
	}
	if o.kind == KLASS {
		return "[" + o.typ.ClassName() + "]"
	}
	return value.ReferenceConcrete{ID: o.id}.String()
}

// Length returns the length of an array.
func (o *Object) Length() value.Primitive { return o.length }

// Fields returns a copy of the slots in declaration order.
func (o *Object) Fields() []Slot {
	return append([]Slot(nil), o.fields...)
}

// Field returns the value of the field sig.
func (o *Object) Field(sig classfile.Signature) (value.Value, bool) {
	for _, s := range o.fields {
		if s.Sig == sig {
			return s.Value, true
		}
	}
	return nil, false
}

// FieldByName returns the value of the first field called name.
func (o *Object) FieldByName(name string) (value.Value, bool) {
	for _, s := range o.fields {
		if s.Sig.Name == name {
			return s.Value, true
		}
	}
	return nil, false
}

// WithField returns a copy of o where field sig holds v. The field must
// exist.
func (o *Object) WithField(sig classfile.Signature, v value.Value) (*Object, error) {
	for i, s := range o.fields {
		if s.Sig == sig {
			c := *o
			c.fields = append([]Slot(nil), o.fields...)
			c.fields[i].Value = v
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s in %s", classfile.ErrFieldNotFound, sig, o.typ)
}

func (o *Object) withID(id int64) *Object {
	c := *o
	c.id = id
	return &c
}

func (o *Object) String() string {
	return fmt.Sprintf("%s %s (%s)", o.kind, o.typ, o.Origin())
}
