package algo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/podhmo/symvm/classfile"
	"github.com/podhmo/symvm/lazyinit"
	"github.com/podhmo/symvm/state"
	"github.com/podhmo/symvm/value"
)

// Dispatcher maps opcodes to algorithms.
type Dispatcher struct {
	table map[byte]Algorithm
	ctx   *Context
}

// NewDispatcher returns a Dispatcher for every instruction of the
// executor. A nil c means NewContext().
func NewDispatcher(c *Context) *Dispatcher {
	if c == nil {
		c = NewContext()
	}
	d := &Dispatcher{table: make(map[byte]Algorithm), ctx: c}

	d.Register(classfile.OP_NOP, Func(Nop))
	d.Register(classfile.OP_ACONST_NULL, Const{Value: value.Null})
	for i := range 7 {
		d.Register(classfile.OP_ICONST_M1+byte(i), Const{Value: value.Int(int32(i - 1))})
	}
	d.Register(classfile.OP_ILOAD, Load{Slot: -1})
	d.Register(classfile.OP_LLOAD, Load{Slot: -1})
	d.Register(classfile.OP_FLOAD, Load{Slot: -1})
	d.Register(classfile.OP_DLOAD, Load{Slot: -1})
	d.Register(classfile.OP_ALOAD, Load{Slot: -1, Reference: true})
	for i := range 4 {
		d.Register(classfile.OP_ILOAD_0+byte(i), Load{Slot: i})
		d.Register(classfile.OP_LLOAD_0+byte(i), Load{Slot: i})
		d.Register(classfile.OP_FLOAD_0+byte(i), Load{Slot: i})
		d.Register(classfile.OP_DLOAD_0+byte(i), Load{Slot: i})
		d.Register(classfile.OP_ALOAD_0+byte(i), Load{Slot: i, Reference: true})
	}
	d.Register(classfile.OP_POP, Func(Pop))
	d.Register(classfile.OP_RETURN, Return{})
	d.Register(classfile.OP_IRETURN, Return{Value: true})
	d.Register(classfile.OP_ARETURN, Return{Value: true})
	d.Register(classfile.OP_GETFIELD, Func(GetField))
	d.Register(classfile.OP_GETSTATIC, Func(GetStatic))
	d.Register(classfile.OP_PUTSTATIC, Func(PutStatic))
	d.Register(classfile.OP_INVOKEVIRTUAL, Func(InvokeVirtual))
	return d
}

// Register sets the algorithm of op, replacing any previous one.
func (d *Dispatcher) Register(op byte, a Algorithm) {
	d.table[op] = a
}

// Lookup returns the algorithm of op.
func (d *Dispatcher) Lookup(op byte) (Algorithm, bool) {
	a, ok := d.table[op]
	return a, ok
}

// Context returns the context passed to the algorithms.
func (d *Dispatcher) Context() *Context { return d.ctx }

// Exec executes the current instruction of s.
func (d *Dispatcher) Exec(ctx context.Context, s *state.State) (*lazyinit.Result, error) {
	op, err := s.Instruction(0)
	if err != nil {
		return lazyinit.VerificationFailure(err), nil
	}
	a, ok := d.table[op]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, classfile.Mnemonic(op))
	}
	if d.ctx.Logger != nil {
		d.ctx.Logger.DebugContext(ctx, "exec",
			slog.String("state", s.History().String()),
			slog.String("op", classfile.Mnemonic(op)),
		)
	}
	return a.Exec(ctx, s, d.ctx)
}
