package format

import (
	"testing"

	"github.com/podhmo/symvm/classfile"
	"github.com/podhmo/symvm/symvmtest"
	"github.com/podhmo/symvm/value"
)

const program = `
classes:
  - name: pkg/Main
    methods:
      - name: run
        descriptor: (I)I
        static: true
        locals: [{slot: 0, name: n, type: I}]
        code: [iload_0, ireturn]
        lines: [{pc: 0, line: 12}]
`

func TestTrace(t *testing.T) {
	h := symvmtest.LoadHierarchy(t, program)

	t.Run("running", func(t *testing.T) {
		s := symvmtest.NewState(t, h, "pkg/Main:(I)I:run")
		if want, got := ".1[0] 0,0 pkg/Main:(I)I:run 12 0 iload_0", Trace(s); want != got {
			t.Errorf("Trace wrong. want=%q, got=%q", want, got)
		}
	})
	t.Run("branched", func(t *testing.T) {
		s := symvmtest.NewState(t, h, "pkg/Main:(I)I:run")
		s.Branch(2)
		s.Tick()
		if err := s.IncPC(1); err != nil {
			t.Fatalf("IncPC() failed: %v", err)
		}
		if want, got := ".1.2[1] 1,1 pkg/Main:(I)I:run 12 1 ireturn", Trace(s); want != got {
			t.Errorf("Trace wrong. want=%q, got=%q", want, got)
		}
	})
	t.Run("return", func(t *testing.T) {
		s := symvmtest.NewState(t, h, "pkg/Main:(I)I:run")
		s.SetStuckReturn(value.Int(7))
		if want, got := ".1[0] 0,0 LEAF return 7", Trace(s); want != got {
			t.Errorf("Trace wrong. want=%q, got=%q", want, got)
		}
	})
	t.Run("exception", func(t *testing.T) {
		s := symvmtest.NewState(t, h, "pkg/Main:(I)I:run")
		if err := s.Throw(classfile.NULL_POINTER_EXCEPTION); err != nil {
			t.Fatalf("Throw() failed: %v", err)
		}
		tr := &Tracer{Leaf: "END", Sep: "|"}
		if want, got := ".1[0]|0,0|END|exception|java/lang/NullPointerException", tr.Format(s); want != got {
			t.Errorf("Format wrong. want=%q, got=%q", want, got)
		}
	})
	t.Run("void", func(t *testing.T) {
		s := symvmtest.NewState(t, h, "pkg/Main:(I)I:run")
		s.SetStuckReturn(nil)
		if want, got := ".1[0] 0,0 LEAF", Trace(s); want != got {
			t.Errorf("Trace wrong. want=%q, got=%q", want, got)
		}
	})
}
