package lazyinit_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/podhmo/symvm/classfile"
	"github.com/podhmo/symvm/decision"
	"github.com/podhmo/symvm/heap"
	"github.com/podhmo/symvm/internal/fault"
	"github.com/podhmo/symvm/lazyinit"
	"github.com/podhmo/symvm/state"
	"github.com/podhmo/symvm/symvmtest"
	"github.com/podhmo/symvm/value"
)

const program = `
classes:
  - name: pkg/T
    fields:
      - {name: field, type: I}
  - name: pkg/Main
    methods:
      - name: run
        descriptor: (Lpkg/T;)V
        static: true
        locals:
          - {slot: 0, name: o, type: Lpkg/T;}
        code: [aload_0, pop, return]
`

const run = "pkg/Main:(Lpkg/T;)V:run"

// newState returns the initial state of run with n unrelated objects
// already in the heap.
func newState(t *testing.T, n int) *state.State {
	t.Helper()
	h := symvmtest.LoadHierarchy(t, program)
	s := symvmtest.NewState(t, h, run)
	for range n {
		s.Heap().Allocate(heap.NewInstance(value.ClassType("pkg/T"), s.History(), nil, nil))
	}
	return s
}

func top(t *testing.T, s *state.State) value.Value {
	t.Helper()
	v, err := s.Top()
	if err != nil {
		t.Fatalf("Top() failed: %v", err)
	}
	return v
}

func TestGenerateForksOncePerAlternative(t *testing.T) {
	ctx := context.Background()
	for _, parallel := range []bool{false, true} {
		t.Run(fmt.Sprintf("parallel=%v", parallel), func(t *testing.T) {
			s := newState(t, 4)
			o := symvmtest.LocalRef(t, s, 0)
			oracle := symvmtest.Fixed(
				decision.Null{},
				decision.Aliases{ObjectID: 3, ObjectOrigin: "Object[3]"},
				decision.Expands{Type: value.ClassType("pkg/T")},
			)
			g := lazyinit.New(oracle, lazyinit.WithParallelRefine(parallel))

			res, err := g.Generate(ctx, s, lazyinit.Request{Value: o, PCOffset: 1})
			if err != nil {
				t.Fatalf("Generate() failed: %v", err)
			}
			symvmtest.AssertSuccessors(t, res, "Null", "Aliases(#3:Object[3])", "Expands(pkg/T)")
			if res.ReferenceNotExpanded() {
				t.Errorf("ReferenceNotExpanded must be false when an expansion was produced")
			}

			var ids []string
			for _, b := range res.Branches {
				ids = append(ids, b.State.Identifier())
				if b.State.Depth() != 1 {
					t.Errorf("Depth wrong. want=1, got=%d", b.State.Depth())
				}
				if pc, _ := b.State.PC(); pc != 1 {
					t.Errorf("PC wrong. want=1, got=%d", pc)
				}
			}
			symvmtest.AssertEqual(t, []string{".1.1", ".1.2", ".1.3"}, ids)

			// each successor committed o to its own alternative
			wants := []value.Value{value.Null, value.ReferenceConcrete{ID: 3}, value.ReferenceConcrete{ID: 4}}
			for i, b := range res.Branches {
				if got := top(t, b.State); !got.Equal(wants[i]) {
					t.Errorf("branch %d: pushed value wrong. want=%s, got=%s", i, wants[i], got)
				}
				if got, ok := b.State.Resolved(o); !ok || !got.Equal(wants[i]) {
					t.Errorf("branch %d: resolution wrong. want=%s, got=%v", i, wants[i], got)
				}
				if want, got := 1, len(b.State.Clauses()); want != got {
					t.Errorf("branch %d: clauses wrong. want=%d, got=%d", i, want, got)
				}
			}

			expanded, ok := lazyinit.ExpandedObject(res.Branches[2])
			if !ok {
				t.Fatalf("ExpandedObject() found nothing")
			}
			field, _ := expanded.FieldByName("field")
			if want, got := "{ROOT}:o.field", field.(value.Symbolic).Origin(); want != got {
				t.Errorf("field origin wrong. want=%q, got=%q", want, got)
			}
			if _, ok := lazyinit.ExpandedObject(res.Branches[0]); ok {
				t.Errorf("ExpandedObject() on a null branch")
			}

			// the input state is untouched
			if pc, _ := s.PC(); pc != 0 {
				t.Errorf("input PC changed: %d", pc)
			}
			if _, err := s.Top(); !errors.Is(err, state.ErrOperandStackEmpty) {
				t.Errorf("input operand stack changed: %v", err)
			}
			if len(s.Clauses()) != 0 || s.Heap().Len() != 4 {
				t.Errorf("input path condition or heap changed")
			}
		})
	}
}

func TestGenerateSingleAlternativeDoesNotBranch(t *testing.T) {
	s := newState(t, 0)
	o := symvmtest.LocalRef(t, s, 0)
	g := lazyinit.New(symvmtest.Fixed(decision.Null{}))

	res, err := g.Generate(context.Background(), s, lazyinit.Request{Value: o})
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	symvmtest.AssertSuccessors(t, res, "Null")
	succ := res.Branches[0].State
	if want, got := ".1", succ.Identifier(); want != got {
		t.Errorf("Identifier wrong. want=%q, got=%q", want, got)
	}
	if succ.Depth() != 0 {
		t.Errorf("Depth wrong. want=0, got=%d", succ.Depth())
	}
	if succ == s {
		t.Errorf("the successor must be a copy")
	}

	if !res.ReferenceNotExpanded() {
		t.Fatalf("ReferenceNotExpanded must be true without an expansion")
	}
	if want, got := value.ClassType("pkg/T"), res.NonExpandedReferenceType(); want != got {
		t.Errorf("NonExpandedReferenceType wrong. want=%q, got=%q", want, got)
	}
	if want, got := "{ROOT}:o", res.NonExpandedReferenceOrigin(); want != got {
		t.Errorf("NonExpandedReferenceOrigin wrong. want=%q, got=%q", want, got)
	}
}

func TestGenerateResolutionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newState(t, 0)
	o := symvmtest.LocalRef(t, s, 0)
	oracle := symvmtest.Fixed(decision.Null{}, decision.Expands{Type: value.ClassType("pkg/T")})
	g := lazyinit.New(oracle)

	first, err := g.Generate(ctx, s, lazyinit.Request{Value: o, PCOffset: 1})
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	for i, b := range first.Branches {
		again, err := g.Generate(ctx, b.State, lazyinit.Request{Value: o})
		if err != nil {
			t.Fatalf("Generate() failed: %v", err)
		}
		want := []string{"Resolved(null)", "Resolved(Object[0])"}[i]
		symvmtest.AssertSuccessors(t, again, want)
		if again.ReferenceNotExpanded() {
			t.Errorf("a committed reference is not pending")
		}
		if want, got := b.State.Identifier(), again.Branches[0].State.Identifier(); want != got {
			t.Errorf("Identifier wrong. want=%q, got=%q", want, got)
		}
	}
	if want, got := 1, oracle.Calls(); want != got {
		t.Errorf("oracle calls wrong. want=%d, got=%d", want, got)
	}
}

func TestGenerateResolvedValues(t *testing.T) {
	s := newState(t, 0)
	oracle := symvmtest.Fixed(decision.Null{})
	g := lazyinit.New(oracle)

	res, err := g.Generate(context.Background(), s, lazyinit.Request{Value: value.Int(3), Destination: lazyinit.LocalSlot(0)})
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	symvmtest.AssertSuccessors(t, res, "Resolved(3)")
	if v, _ := res.Branches[0].State.Local(0); !v.Equal(value.Int(3)) {
		t.Errorf("local not stored: %s", v)
	}
	if oracle.Calls() != 0 {
		t.Errorf("oracle consulted for a concrete value")
	}
}

func TestGenerateVerificationFailure(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name   string
		oracle decision.Oracle
	}{
		{name: "invalid input", oracle: symvmtest.Failing(fmt.Errorf("bad: %w", decision.ErrInvalidInput))},
		{name: "class file not found", oracle: symvmtest.Failing(fmt.Errorf("%w: pkg/Nope", classfile.ErrClassFileNotFound))},
		{name: "procedure", oracle: decision.NewProcedure()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newState(t, 0)
			pending := symvmtest.LocalRef(t, s, 0)
			if tc.name == "procedure" {
				pending = s.Factory().LocalVariable(s.History(), value.ClassType("pkg/Nope"), "x").(value.ReferenceSymbolic)
			}
			res, err := lazyinit.New(tc.oracle).Generate(ctx, s, lazyinit.Request{Value: pending})
			if err != nil {
				t.Fatalf("Generate() failed: %v", err)
			}
			symvmtest.AssertVerificationFailure(t, res)
		})
	}
}

func TestGenerateEmptyAlternativesIsInternalFault(t *testing.T) {
	s := newState(t, 0)
	res, err := lazyinit.New(symvmtest.Fixed()).Generate(context.Background(), s, lazyinit.Request{Value: symvmtest.LocalRef(t, s, 0)})
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if res.Kind != lazyinit.INTERNAL_FAULT {
		t.Fatalf("kind wrong. want=%s, got=%s", lazyinit.INTERNAL_FAULT, res.Kind)
	}
	if !errors.Is(res.Err, fault.ErrInternal) {
		t.Errorf("want ErrInternal, got %v", res.Err)
	}
	if len(res.Branches) != 0 {
		t.Errorf("internal fault with successors")
	}
}

func TestGenerateBadAliasIsInternalFault(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		t.Run(fmt.Sprintf("parallel=%v", parallel), func(t *testing.T) {
			s := newState(t, 1)
			oracle := symvmtest.Fixed(decision.Null{}, decision.Aliases{ObjectID: 9}, decision.Aliases{ObjectID: 0}, decision.Expands{Type: value.ClassType("pkg/T")})
			g := lazyinit.New(oracle, lazyinit.WithParallelRefine(parallel))
			res, err := g.Generate(context.Background(), s, lazyinit.Request{Value: symvmtest.LocalRef(t, s, 0)})
			if err != nil {
				t.Fatalf("Generate() failed: %v", err)
			}
			if res.Kind != lazyinit.INTERNAL_FAULT {
				t.Fatalf("kind wrong. want=%s, got=%s", lazyinit.INTERNAL_FAULT, res.Kind)
			}
			// the fault is reported, not the cancellation of the siblings
			if !errors.Is(res.Err, heap.ErrNoObject) {
				t.Errorf("want ErrNoObject, got %v", res.Err)
			}
			if errors.Is(res.Err, context.Canceled) {
				t.Errorf("cancellation reported instead of the fault: %v", res.Err)
			}
		})
	}
}

func TestGenerateCanceled(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		t.Run(fmt.Sprintf("parallel=%v", parallel), func(t *testing.T) {
			s := newState(t, 0)
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			g := lazyinit.New(symvmtest.Fixed(decision.Null{}, decision.Expands{Type: value.ClassType("pkg/T")}), lazyinit.WithParallelRefine(parallel))
			res, err := g.Generate(ctx, s, lazyinit.Request{Value: symvmtest.LocalRef(t, s, 0)})
			if !errors.Is(err, context.Canceled) {
				t.Errorf("want context.Canceled, got %v", err)
			}
			if res != nil {
				t.Errorf("result must be nil on error: %+v", res)
			}
		})
	}
}

func TestGenerateOracleErrorIsPropagated(t *testing.T) {
	boom := errors.New("boom")
	s := newState(t, 0)
	res, err := lazyinit.New(symvmtest.Failing(boom)).Generate(context.Background(), s, lazyinit.Request{Value: symvmtest.LocalRef(t, s, 0)})
	if err != boom {
		t.Errorf("error wrong. want=%v, got=%v", boom, err)
	}
	if res != nil {
		t.Errorf("result must be nil on error: %+v", res)
	}
}
