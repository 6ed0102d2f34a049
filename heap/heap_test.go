package heap

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/podhmo/symvm/classfile"
	"github.com/podhmo/symvm/value"
)

var (
	nodeType = value.ClassType("pkg/Node")
	nextSig  = classfile.Signature{Class: "pkg/Node", Descriptor: "Lpkg/Node;", Name: "next"}
	valSig   = classfile.Signature{Class: "pkg/Node", Descriptor: "I", Name: "val"}
)

func newNode() *Object {
	return NewInstance(nodeType, value.RootHistoryPoint(), nil, []Slot{
		{Sig: nextSig, Value: value.Null},
		{Sig: valSig, Value: value.Int(0)},
	})
}

func TestHeapAllocateLookup(t *testing.T) {
	h := New()
	var ids []int64
	for i := 0; i < 3; i++ {
		ids = append(ids, h.Allocate(newNode()))
	}
	if diff := cmp.Diff([]int64{0, 1, 2}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	o, ok := h.Lookup(1)
	if !ok {
		t.Fatalf("object 1 not found")
	}
	if want, got := int64(1), o.ID(); want != got {
		t.Errorf("ID wrong. want=%d, got=%d", want, got)
	}
	if want, got := "Object[1]", o.Origin(); want != got {
		t.Errorf("Origin wrong. want=%q, got=%q", want, got)
	}
	if _, ok := h.Lookup(3); ok {
		t.Errorf("object 3 must not exist")
	}
	if err := h.Store(7, newNode()); !errors.Is(err, ErrNoObject) {
		t.Errorf("want ErrNoObject, got %v", err)
	}
}

func TestHeapCloneIsolation(t *testing.T) {
	h := New()
	id := h.Allocate(newNode())

	c := h.Clone()
	o, _ := c.Lookup(id)
	o2, err := o.WithField(valSig, value.Int(42))
	if err != nil {
		t.Fatalf("WithField() failed: %v", err)
	}
	if err := c.Store(id, o2); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
	c.Allocate(newNode())

	orig, _ := h.Lookup(id)
	if v, _ := orig.Field(valSig); !v.Equal(value.Int(0)) {
		t.Errorf("original heap changed: val=%s", v)
	}
	if v, _ := o.Field(valSig); !v.Equal(value.Int(0)) {
		t.Errorf("object mutated in place: val=%s", v)
	}
	cloned, _ := c.Lookup(id)
	if v, _ := cloned.Field(valSig); !v.Equal(value.Int(42)) {
		t.Errorf("cloned heap not updated: val=%s", v)
	}
	if h.Len() != 1 || c.Len() != 2 {
		t.Errorf("Len wrong. want=1,2, got=%d,%d", h.Len(), c.Len())
	}
	if h.NextID() != 1 || c.NextID() != 2 {
		t.Errorf("NextID wrong. want=1,2, got=%d,%d", h.NextID(), c.NextID())
	}
}

func TestHeapScanOrder(t *testing.T) {
	h := New()
	for i := 0; i < 5; i++ {
		h.Allocate(newNode())
	}
	var got []int64
	h.Scan(func(id int64, o *Object) bool {
		got = append(got, id)
		return id < 2
	})
	if diff := cmp.Diff([]int64{0, 1, 2}, got); diff != "" {
		t.Errorf("scan order mismatch (-want +got):\n%s", diff)
	}
}

func TestObjectWithUnknownField(t *testing.T) {
	o := newNode()
	_, err := o.WithField(classfile.Signature{Class: "pkg/Node", Descriptor: "I", Name: "nope"}, value.Int(1))
	if !errors.Is(err, classfile.ErrFieldNotFound) {
		t.Errorf("want ErrFieldNotFound, got %v", err)
	}
}

func TestStaticAreaClone(t *testing.T) {
	a := NewStaticArea()
	a.Set("pkg/A", NewKlass("pkg/A", value.RootHistoryPoint(), nil, nil))
	c := a.Clone()
	c.Set("pkg/B", NewKlass("pkg/B", value.RootHistoryPoint(), nil, nil))

	if _, ok := a.Get("pkg/B"); ok {
		t.Errorf("original static area changed")
	}
	k, ok := c.Get("pkg/A")
	if !ok {
		t.Fatalf("pkg/A missing from clone")
	}
	if want, got := "[pkg/A]", k.Origin(); want != got {
		t.Errorf("Origin wrong. want=%q, got=%q", want, got)
	}
	var names []string
	c.Scan(func(class string, _ *Object) bool {
		names = append(names, class)
		return true
	})
	if diff := cmp.Diff([]string{"pkg/A", "pkg/B"}, names); diff != "" {
		t.Errorf("classes mismatch (-want +got):\n%s", diff)
	}
}
