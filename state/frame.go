package state

import (
	"github.com/podhmo/symvm/classfile"
	"github.com/podhmo/symvm/value"
)

// Frame is the activation record of a method.
type Frame struct {
	method   *classfile.Method
	pc       int
	locals   []value.Value
	operands []value.Value
}

func newFrame(m *classfile.Method) *Frame {
	return &Frame{method: m, locals: make([]value.Value, m.MaxLocals)}
}

// Method returns the executing method.
func (f *Frame) Method() *classfile.Method { return f.method }

// PC returns the program counter.
func (f *Frame) PC() int { return f.pc }

// Operands returns a copy of the operand stack, bottom first.
func (f *Frame) Operands() []value.Value {
	return append([]value.Value(nil), f.operands...)
}

func (f *Frame) clone() *Frame {
	c := *f
	c.locals = append([]value.Value(nil), f.locals...)
	c.operands = append([]value.Value(nil), f.operands...)
	return &c
}
