// Package format renders states as text.
package format

import (
	"strconv"
	"strings"

	"github.com/podhmo/symvm/classfile"
	"github.com/podhmo/symvm/state"
	"github.com/podhmo/symvm/value"
)

// Tracer renders a state as one trace line:
//
//	<id>[<seq>] <depth>,<count> <method> <row> <pc> <bytecode>
//
// or, for a stuck state,
//
//	<id>[<seq>] <depth>,<count> LEAF [exception <class> | return <value>]
type Tracer struct {
	Leaf string
	Sep  string
}

// NewTracer returns a Tracer with the default markers.
func NewTracer() *Tracer {
	return &Tracer{Leaf: "LEAF", Sep: " "}
}

// Trace renders s with the default markers.
func Trace(s *state.State) string {
	return NewTracer().Format(s)
}

// Format renders s.
func (t *Tracer) Format(s *state.State) string {
	var b strings.Builder
	b.WriteString(s.Identifier())
	b.WriteString("[" + strconv.Itoa(s.Sequence()) + "]")
	b.WriteString(t.Sep)
	b.WriteString(strconv.Itoa(s.Depth()) + "," + strconv.Itoa(s.Count()))
	b.WriteString(t.Sep)

	if stuck, ok := s.Stuck(); ok {
		b.WriteString(t.Leaf)
		switch {
		case stuck.Exception != nil:
			b.WriteString(t.Sep + "exception" + t.Sep + returned(s, *stuck.Exception))
		case stuck.Return != nil:
			b.WriteString(t.Sep + "return" + t.Sep + returned(s, stuck.Return))
		}
		return b.String()
	}

	m, err := s.CurrentMethod()
	if err != nil {
		// no frame yet
		return strings.TrimSuffix(b.String(), t.Sep)
	}
	pc, _ := s.PC()
	b.WriteString(m.Signature().String())
	b.WriteString(t.Sep + strconv.Itoa(s.SourceRow()))
	b.WriteString(t.Sep + strconv.Itoa(pc))
	b.WriteString(t.Sep + classfile.Disassemble(m.Code, pc))
	return b.String()
}

// returned renders a primitive as itself and a reference as the class of
// the object it points to.
func returned(s *state.State, v value.Value) string {
	if _, ok := v.(value.Primitive); ok {
		return v.String()
	}
	if _, o, err := s.Deref(v); err == nil {
		return o.Type().ClassName()
	}
	return v.String()
}
