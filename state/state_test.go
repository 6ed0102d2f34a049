package state

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/podhmo/symvm/classfile"
	"github.com/podhmo/symvm/value"
)

const program = `
version: v1.0.0
classes:
  - name: pkg/Node
    fields:
      - {name: next, type: Lpkg/Node;}
      - {name: val, type: I}
  - name: pkg/Config
    fields:
      - {name: LIMIT, type: I, static: true}
      - {name: head, type: Lpkg/Node;, static: true}
  - name: pkg/Main
    methods:
      - name: run
        descriptor: (Lpkg/Node;J)V
        static: true
        locals:
          - {slot: 0, name: o, type: Lpkg/Node;}
          - {slot: 1, name: n, type: J}
        code: [aload_0, pop, return]
`

func newState(t *testing.T, opts ...Option) *State {
	t.Helper()
	h, err := classfile.Load(strings.NewReader(program))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	m, err := h.Method(classfile.Signature{Class: "pkg/Main", Descriptor: "(Lpkg/Node;J)V", Name: "run"})
	if err != nil {
		t.Fatalf("Method() failed: %v", err)
	}
	s, err := New(h, m, opts...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return s
}

func localRef(t *testing.T, s *State, slot int) value.ReferenceSymbolic {
	t.Helper()
	v, err := s.Local(slot)
	if err != nil {
		t.Fatalf("Local(%d) failed: %v", slot, err)
	}
	ref, ok := value.AsReferenceSymbolic(v)
	if !ok {
		t.Fatalf("local %d is not a symbolic reference: %s", slot, v)
	}
	return ref
}

func TestNewInitializesLocals(t *testing.T) {
	s := newState(t)
	o := localRef(t, s, 0)
	if want, got := "{ROOT}:o", o.Origin(); want != got {
		t.Errorf("Origin wrong. want=%q, got=%q", want, got)
	}
	n, err := s.Local(1)
	if err != nil {
		t.Fatalf("Local(1) failed: %v", err)
	}
	if n.Kind() != value.KindSymbolicLeafPrimitive || n.Type() != value.LONG {
		t.Errorf("local n wrong: %s %s", n.Kind(), n.Type())
	}
	// slot 2 is the upper half of n
	if _, err := s.Local(2); !errors.Is(err, ErrInvalidSlot) {
		t.Errorf("want ErrInvalidSlot, got %v", err)
	}
	if want, got := ".1[0]", s.History().String(); want != got {
		t.Errorf("History wrong. want=%q, got=%q", want, got)
	}
}

func TestAssumeExpandsInitializesFields(t *testing.T) {
	s := newState(t)
	o := localRef(t, s, 0)

	id, err := s.AssumeExpands(o, value.ClassType("pkg/Node"))
	if err != nil {
		t.Fatalf("AssumeExpands() failed: %v", err)
	}
	target, ok := s.Resolved(o)
	if !ok || !target.Equal(value.ReferenceConcrete{ID: id}) {
		t.Fatalf("o not resolved to Object[%d]: %v", id, target)
	}
	_, obj, err := s.Deref(o)
	if err != nil {
		t.Fatalf("Deref() failed: %v", err)
	}
	var origins []string
	for _, slot := range obj.Fields() {
		origins = append(origins, slot.Value.(value.Symbolic).Origin())
	}
	if diff := cmp.Diff([]string{"{ROOT}:o.next", "{ROOT}:o.val"}, origins); diff != "" {
		t.Errorf("field origins mismatch (-want +got):\n%s", diff)
	}
	if want, got := "{ROOT}:o == Object[0] (fresh pkg/Node)", s.Clauses()[0].String(); want != got {
		t.Errorf("clause wrong. want=%q, got=%q", want, got)
	}
}

func TestCloneIsolation(t *testing.T) {
	s := newState(t)
	o := localRef(t, s, 0)
	if err := s.Push(o); err != nil {
		t.Fatalf("Push() failed: %v", err)
	}

	c := s.Clone()
	c.Branch(2)
	c.AssumeNull(o)
	if _, err := c.Pop(); err != nil {
		t.Fatalf("Pop() failed: %v", err)
	}
	if err := c.SetLocal(0, value.Null); err != nil {
		t.Fatalf("SetLocal() failed: %v", err)
	}

	if _, ok := s.Resolved(o); ok {
		t.Errorf("resolution leaked into the original state")
	}
	if len(s.Clauses()) != 0 {
		t.Errorf("clauses leaked into the original state: %v", s.Clauses())
	}
	if top, err := s.Top(); err != nil || !top.Equal(o) {
		t.Errorf("operand stack changed: %v, %v", top, err)
	}
	if v, _ := s.Local(0); !v.Equal(o) {
		t.Errorf("locals changed: %s", v)
	}
	if want, got := ".1.2", c.Identifier(); want != got {
		t.Errorf("Identifier wrong. want=%q, got=%q", want, got)
	}
	if c.Depth() != 1 || s.Depth() != 0 {
		t.Errorf("Depth wrong. want=1,0, got=%d,%d", c.Depth(), s.Depth())
	}

	// the factories were duplicated, not shared
	c.Factory().LocalVariable(c.History(), value.INT, "x")
	if s.Factory().NextPrimitiveID() == c.Factory().NextPrimitiveID() {
		t.Errorf("factory shared between clones")
	}
}

func TestEnsureKlass(t *testing.T) {
	t.Run("symbolic", func(t *testing.T) {
		s := newState(t)
		initialized, err := s.EnsureKlass("pkg/Config")
		if err != nil {
			t.Fatalf("EnsureKlass() failed: %v", err)
		}
		if !initialized {
			t.Errorf("first EnsureKlass must initialize")
		}
		v, err := s.GetStatic(classfile.Signature{Class: "pkg/Config", Descriptor: "Lpkg/Node;", Name: "head"})
		if err != nil {
			t.Fatalf("GetStatic() failed: %v", err)
		}
		if want, got := "[pkg/Config].head", v.(value.Symbolic).Origin(); want != got {
			t.Errorf("Origin wrong. want=%q, got=%q", want, got)
		}
		if again, _ := s.EnsureKlass("pkg/Config"); again {
			t.Errorf("second EnsureKlass must not initialize")
		}
		// superclass first
		if _, ok := s.Statics().Get(classfile.JAVA_OBJECT); !ok {
			t.Errorf("superclass not initialized")
		}
	})
	t.Run("default", func(t *testing.T) {
		s := newState(t, WithClassInit(CLASS_INIT_DEFAULT))
		if _, err := s.EnsureKlass("pkg/Config"); err != nil {
			t.Fatalf("EnsureKlass() failed: %v", err)
		}
		limit := classfile.Signature{Class: "pkg/Config", Descriptor: "I", Name: "LIMIT"}
		v, _ := s.GetStatic(limit)
		if !v.Equal(value.Int(0)) {
			t.Errorf("default value wrong. want=0, got=%s", v)
		}
		if err := s.PutStatic(limit, value.Int(7)); err != nil {
			t.Fatalf("PutStatic() failed: %v", err)
		}
		if v, _ := s.GetStatic(limit); !v.Equal(value.Int(7)) {
			t.Errorf("PutStatic not visible: %s", v)
		}
	})
	t.Run("missing", func(t *testing.T) {
		s := newState(t)
		if _, err := s.EnsureKlass("pkg/Nope"); !errors.Is(err, classfile.ErrClassFileNotFound) {
			t.Errorf("want ErrClassFileNotFound, got %v", err)
		}
	})
}

func TestProgramCounter(t *testing.T) {
	s := newState(t)
	op, err := s.Instruction(0)
	if err != nil || op != classfile.OP_ALOAD_0 {
		t.Fatalf("Instruction(0) wrong: %#x, %v", op, err)
	}
	if err := s.IncPC(2); err != nil {
		t.Fatalf("IncPC() failed: %v", err)
	}
	if op, _ := s.Instruction(0); op != classfile.OP_RETURN {
		t.Errorf("Instruction after IncPC wrong: %#x", op)
	}
	if err := s.IncPC(1); !errors.Is(err, ErrInvalidProgramCounter) {
		t.Errorf("want ErrInvalidProgramCounter, got %v", err)
	}
	if _, err := s.Instruction(5); !errors.Is(err, ErrInvalidProgramCounter) {
		t.Errorf("want ErrInvalidProgramCounter, got %v", err)
	}
}

func TestOperandStackAndFrames(t *testing.T) {
	s := newState(t)
	if _, err := s.Pop(); !errors.Is(err, ErrOperandStackEmpty) {
		t.Errorf("want ErrOperandStackEmpty, got %v", err)
	}
	if err := s.PopFrame(); err != nil {
		t.Fatalf("PopFrame() failed: %v", err)
	}
	if err := s.Push(value.Int(1)); !errors.Is(err, ErrThreadStackEmpty) {
		t.Errorf("want ErrThreadStackEmpty, got %v", err)
	}
}

func TestThrowAndDeref(t *testing.T) {
	s := newState(t)
	o := localRef(t, s, 0)
	if _, _, err := s.Deref(o); !errors.Is(err, ErrUnresolved) {
		t.Errorf("want ErrUnresolved, got %v", err)
	}
	s.AssumeNull(o)
	if _, _, err := s.Deref(o); !errors.Is(err, ErrNullDereference) {
		t.Errorf("want ErrNullDereference, got %v", err)
	}

	if err := s.ThrowVerifyError(); err != nil {
		t.Fatalf("ThrowVerifyError() failed: %v", err)
	}
	stuck, ok := s.Stuck()
	if !ok {
		t.Fatalf("state not stuck")
	}
	if want, got := classfile.VERIFY_ERROR, stuck.ExceptionClass; want != got {
		t.Errorf("exception wrong. want=%q, got=%q", want, got)
	}
	_, exc, err := s.Deref(*stuck.Exception)
	if err != nil {
		t.Fatalf("Deref() failed: %v", err)
	}
	if v, ok := exc.FieldByName(classfile.JAVA_THROWABLE_STACK_TRACE); !ok || !v.Equal(value.Null) {
		t.Errorf("stackTrace wrong: %v", v)
	}
}
