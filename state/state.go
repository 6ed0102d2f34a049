// Package state holds the program state of one exploration path: heap,
// static area, thread stack, path condition and the symbol factory that
// mints the path's symbols.
//
// A State is owned by one goroutine at a time. Forking is explicit: Clone
// duplicates every piece of mutable state, including the factory counters.
package state

import (
	"errors"
	"fmt"

	"github.com/podhmo/symvm/classfile"
	"github.com/podhmo/symvm/heap"
	"github.com/podhmo/symvm/internal/fault"
	"github.com/podhmo/symvm/symbol"
	"github.com/podhmo/symvm/value"
	"github.com/tidwall/btree"
)

var (
	ErrInvalidProgramCounter = errors.New("invalid program counter")
	ErrOperandStackEmpty     = errors.New("operand stack empty")
	ErrThreadStackEmpty      = errors.New("thread stack empty")
	ErrInvalidSlot           = errors.New("invalid local variable slot")
	ErrNullDereference       = errors.New("null dereference")
	ErrUnresolved            = errors.New("unresolved symbolic reference")
)

// ClassInit selects how the static fields of a class are initialized the
// first time the class is used.
type ClassInit string

const (
	// CLASS_INIT_SYMBOLIC gives static fields symbolic initial values.
	CLASS_INIT_SYMBOLIC ClassInit = "symbolic"
	// CLASS_INIT_DEFAULT gives static fields their default values.
	CLASS_INIT_DEFAULT ClassInit = "default"
)

// Stuck describes how a path ended.
type Stuck struct {
	// Exception is the thrown object, when the path ended by an exception.
	Exception      *value.ReferenceConcrete
	ExceptionClass string
	// Return is the returned value; nil for a void return.
	Return value.Value
}

// Option configures a new State.
type Option func(*State)

// WithClassInit sets the static initialization mode.
func WithClassInit(mode ClassInit) Option {
	return func(s *State) { s.classInit = mode }
}

// WithFactory makes the state mint symbols with f.
func WithFactory(f *symbol.Factory) Option {
	return func(s *State) { s.factory = f }
}

// State is the program state of one path.
type State struct {
	hp    value.HistoryPoint
	depth int
	count int

	hier     *classfile.Hierarchy
	heap     *heap.Heap
	statics  *heap.StaticArea
	frames   []*Frame
	clauses  []Clause
	resolved *btree.Map[string, value.Reference]
	factory  *symbol.Factory

	classInit ClassInit
	stuck     *Stuck
}

// New returns the initial state of an exploration starting at method. The
// locals described by the method's local variable table are initialized
// with fresh symbols.
func New(hier *classfile.Hierarchy, method *classfile.Method, opts ...Option) (s *State, err error) {
	if hier == nil || method == nil {
		return nil, fmt.Errorf("state needs a hierarchy and a method")
	}
	s = &State{
		hp:        value.RootHistoryPoint(),
		hier:      hier,
		heap:      heap.New(),
		statics:   heap.NewStaticArea(),
		resolved:  new(btree.Map[string, value.Reference]),
		classInit: CLASS_INIT_SYMBOLIC,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.factory == nil {
		s.factory = symbol.New()
	}

	defer fault.Recover(&err)
	f := newFrame(method)
	for _, l := range method.Locals {
		if l.Slot < 0 || l.Slot >= len(f.locals) {
			return nil, fmt.Errorf("%w: %d in %s", ErrInvalidSlot, l.Slot, method.Signature())
		}
		f.locals[l.Slot] = s.factory.LocalVariable(s.hp, l.Type, l.Name)
	}
	// the receiver of an instance method is never null
	if !method.Static && len(f.locals) > 0 {
		if this, ok := value.AsReferenceSymbolic(f.locals[0]); ok {
			s.AssumeNotNull(this)
		}
	}
	s.frames = []*Frame{f}
	return s, nil
}

// Clone returns an independent copy of s. The factory is duplicated, so
// both states continue numbering symbols from the same counters.
func (s *State) Clone() *State {
	c := *s
	c.heap = s.heap.Clone()
	c.statics = s.statics.Clone()
	c.frames = make([]*Frame, len(s.frames))
	for i, f := range s.frames {
		c.frames[i] = f.clone()
	}
	c.clauses = append([]Clause(nil), s.clauses...)
	c.resolved = s.resolved.Copy()
	c.factory = s.factory.Duplicate()
	return &c
}

// Branch moves s to the start of its n-th (1-based) sub-branch.
func (s *State) Branch(n int) {
	s.hp = s.hp.Child(n)
	s.depth++
}

// Tick advances the history point by one step.
func (s *State) Tick() {
	s.hp = s.hp.Next()
	s.count++
}

func (s *State) History() value.HistoryPoint     { return s.hp }
func (s *State) Identifier() string              { return s.hp.Branch }
func (s *State) Sequence() int                   { return s.hp.Seq }
func (s *State) Depth() int                      { return s.depth }
func (s *State) Count() int                      { return s.count }
func (s *State) Hierarchy() *classfile.Hierarchy { return s.hier }
func (s *State) Heap() *heap.Heap                { return s.heap }
func (s *State) Statics() *heap.StaticArea       { return s.statics }
func (s *State) Factory() *symbol.Factory        { return s.factory }
func (s *State) ClassInit() ClassInit            { return s.classInit }

// Clauses returns a copy of the path condition.
func (s *State) Clauses() []Clause {
	return append([]Clause(nil), s.clauses...)
}

// Resolved returns the value ref was committed to on this path.
func (s *State) Resolved(ref value.ReferenceSymbolic) (value.Reference, bool) {
	return s.resolved.Get(ref.Origin())
}

// AssumeNull commits ref to null.
func (s *State) AssumeNull(ref value.ReferenceSymbolic) {
	s.clauses = append(s.clauses, ClauseNull{Ref: ref})
	s.resolved.Set(ref.Origin(), value.Null)
}

// AssumeAliases commits ref to the existing object id.
func (s *State) AssumeAliases(ref value.ReferenceSymbolic, id int64) error {
	o, ok := s.heap.Lookup(id)
	if !ok {
		return fmt.Errorf("aliasing %s: %w: %d", ref.Origin(), heap.ErrNoObject, id)
	}
	s.clauses = append(s.clauses, ClauseAliases{Ref: ref, ObjectID: id, ObjectOrigin: o.Origin()})
	s.resolved.Set(ref.Origin(), value.ReferenceConcrete{ID: id})
	return nil
}

// AssumeExpands commits ref to a fresh object of typ and returns its id.
func (s *State) AssumeExpands(ref value.ReferenceSymbolic, typ value.Type) (int64, error) {
	id, err := s.ExpandSymbolic(ref, typ)
	if err != nil {
		return 0, err
	}
	s.clauses = append(s.clauses, ClauseExpands{Ref: ref, ObjectID: id, Type: typ})
	s.resolved.Set(ref.Origin(), value.ReferenceConcrete{ID: id})
	return id, nil
}

// AssumeNotNull records that ref is not null without resolving it.
func (s *State) AssumeNotNull(ref value.ReferenceSymbolic) {
	s.clauses = append(s.clauses, ClauseNotNull{Ref: ref})
}

// ExpandSymbolic allocates a fresh object of typ standing for the target of
// ref. Its fields are initialized with fresh symbols whose provenance is
// the corresponding field of ref.
func (s *State) ExpandSymbolic(ref value.ReferenceSymbolic, typ value.Type) (id int64, err error) {
	defer fault.Recover(&err)
	if typ.IsArray() {
		length := s.factory.ArrayLength(ref)
		return s.heap.Allocate(heap.NewArray(typ, s.hp, ref, length)), nil
	}
	sigs, err := s.hier.InstanceFields(typ.ClassName())
	if err != nil {
		return 0, fmt.Errorf("expanding %s to %s: %w", ref.Origin(), typ.ClassName(), err)
	}
	slots := make([]heap.Slot, len(sigs))
	for i, sig := range sigs {
		slots[i] = heap.Slot{Sig: sig, Value: s.factory.MemberField(value.Type(sig.Descriptor), ref, sig.Name)}
	}
	return s.heap.Allocate(heap.NewInstance(typ, s.hp, ref, slots)), nil
}

// EnsureKlass initializes class and its superclasses if they are not
// initialized yet. It reports whether class was initialized by this call.
func (s *State) EnsureKlass(class string) (initialized bool, err error) {
	if _, ok := s.statics.Get(class); ok {
		return false, nil
	}
	c, err := s.hier.ClassFile(class)
	if err != nil {
		return false, err
	}
	if c.Super != "" {
		if _, err := s.EnsureKlass(c.Super); err != nil {
			return false, err
		}
	}
	sigs, err := s.hier.StaticFields(class)
	if err != nil {
		return false, err
	}

	defer fault.Recover(&err)
	var origin value.ReferenceSymbolic
	slots := make([]heap.Slot, len(sigs))
	switch s.classInit {
	case CLASS_INIT_DEFAULT:
		for i, sig := range sigs {
			slots[i] = heap.Slot{Sig: sig, Value: defaultValue(value.Type(sig.Descriptor))}
		}
	default:
		pseudo := s.factory.KlassPseudoReference(s.hp, class)
		origin = pseudo
		for i, sig := range sigs {
			slots[i] = heap.Slot{Sig: sig, Value: s.factory.MemberField(value.Type(sig.Descriptor), pseudo, sig.Name)}
		}
	}
	s.statics.Set(class, heap.NewKlass(class, s.hp, origin, slots))
	s.clauses = append(s.clauses, ClauseClassInitialized{Class: class})
	return true, nil
}

// GetStatic reads the static field sig of an initialized class.
func (s *State) GetStatic(sig classfile.Signature) (value.Value, error) {
	k, ok := s.statics.Get(sig.Class)
	if !ok {
		return nil, fault.New("class %s is not initialized", sig.Class)
	}
	v, ok := k.Field(sig)
	if !ok {
		return nil, fmt.Errorf("%w: %s", classfile.ErrFieldNotFound, sig)
	}
	return v, nil
}

// PutStatic writes the static field sig of an initialized class.
func (s *State) PutStatic(sig classfile.Signature, v value.Value) error {
	k, ok := s.statics.Get(sig.Class)
	if !ok {
		return fault.New("class %s is not initialized", sig.Class)
	}
	k, err := k.WithField(sig, v)
	if err != nil {
		return err
	}
	s.statics.Set(sig.Class, k)
	return nil
}

// Deref returns the heap object ref points to on this path.
func (s *State) Deref(ref value.Value) (int64, *heap.Object, error) {
	var id int64
	switch r := ref.(type) {
	case value.ReferenceConcrete:
		id = r.ID
	case value.NullReference:
		return 0, nil, ErrNullDereference
	case value.ReferenceSymbolic:
		target, ok := s.Resolved(r)
		if !ok {
			return 0, nil, fmt.Errorf("%w: %s", ErrUnresolved, r.Origin())
		}
		return s.Deref(target)
	default:
		return 0, nil, fmt.Errorf("dereferencing non-reference %s", ref)
	}
	o, ok := s.heap.Lookup(id)
	if !ok {
		return 0, nil, fmt.Errorf("%w: %d", heap.ErrNoObject, id)
	}
	return id, o, nil
}

// CurrentFrame returns the topmost frame.
func (s *State) CurrentFrame() (*Frame, error) {
	if len(s.frames) == 0 {
		return nil, ErrThreadStackEmpty
	}
	return s.frames[len(s.frames)-1], nil
}

// CurrentMethod returns the method of the topmost frame.
func (s *State) CurrentMethod() (*classfile.Method, error) {
	f, err := s.CurrentFrame()
	if err != nil {
		return nil, err
	}
	return f.method, nil
}

// PopFrame removes the topmost frame.
func (s *State) PopFrame() error {
	if len(s.frames) == 0 {
		return ErrThreadStackEmpty
	}
	s.frames = s.frames[:len(s.frames)-1]
	return nil
}

// StackSize returns the number of frames.
func (s *State) StackSize() int { return len(s.frames) }

// Push pushes v on the operand stack.
func (s *State) Push(v value.Value) error {
	f, err := s.CurrentFrame()
	if err != nil {
		return err
	}
	f.operands = append(f.operands, v)
	return nil
}

// Pop pops the operand stack.
func (s *State) Pop() (value.Value, error) {
	f, err := s.CurrentFrame()
	if err != nil {
		return nil, err
	}
	if len(f.operands) == 0 {
		return nil, ErrOperandStackEmpty
	}
	v := f.operands[len(f.operands)-1]
	f.operands = f.operands[:len(f.operands)-1]
	return v, nil
}

// Top returns the top of the operand stack without popping it.
func (s *State) Top() (value.Value, error) {
	f, err := s.CurrentFrame()
	if err != nil {
		return nil, err
	}
	if len(f.operands) == 0 {
		return nil, ErrOperandStackEmpty
	}
	return f.operands[len(f.operands)-1], nil
}

// Local reads a local variable. An unset slot is an error.
func (s *State) Local(slot int) (value.Value, error) {
	f, err := s.CurrentFrame()
	if err != nil {
		return nil, err
	}
	if slot < 0 || slot >= len(f.locals) || f.locals[slot] == nil {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	return f.locals[slot], nil
}

// SetLocal writes a local variable.
func (s *State) SetLocal(slot int, v value.Value) error {
	f, err := s.CurrentFrame()
	if err != nil {
		return err
	}
	if slot < 0 || slot >= len(f.locals) {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	f.locals[slot] = v
	return nil
}

// PC returns the program counter of the topmost frame.
func (s *State) PC() (int, error) {
	f, err := s.CurrentFrame()
	if err != nil {
		return 0, err
	}
	return f.pc, nil
}

// Instruction returns the byte at pc+offset of the current method.
func (s *State) Instruction(offset int) (byte, error) {
	f, err := s.CurrentFrame()
	if err != nil {
		return 0, err
	}
	at := f.pc + offset
	if at < 0 || at >= len(f.method.Code) {
		return 0, fmt.Errorf("%w: %d in %s", ErrInvalidProgramCounter, at, f.method.Signature())
	}
	return f.method.Code[at], nil
}

// ImmediateU8 reads the unsigned byte operand at pc+offset.
func (s *State) ImmediateU8(offset int) (int, error) {
	b, err := s.Instruction(offset)
	return int(b), err
}

// ImmediateU16 reads the big-endian two-byte operand at pc+offset.
func (s *State) ImmediateU16(offset int) (int, error) {
	hi, err := s.Instruction(offset)
	if err != nil {
		return 0, err
	}
	lo, err := s.Instruction(offset + 1)
	if err != nil {
		return 0, err
	}
	return int(hi)<<8 | int(lo), nil
}

// IncPC advances the program counter by n bytes.
func (s *State) IncPC(n int) error {
	f, err := s.CurrentFrame()
	if err != nil {
		return err
	}
	at := f.pc + n
	if at < 0 || at >= len(f.method.Code) {
		return fmt.Errorf("%w: %d in %s", ErrInvalidProgramCounter, at, f.method.Signature())
	}
	f.pc = at
	return nil
}

// SourceRow returns the source line of the current instruction, or -1.
func (s *State) SourceRow() int {
	f, err := s.CurrentFrame()
	if err != nil {
		return -1
	}
	return f.method.SourceRow(f.pc)
}

// Throw allocates an exception of class and ends the path with it.
func (s *State) Throw(class string) error {
	sigs, err := s.hier.InstanceFields(class)
	if err != nil {
		return err
	}
	slots := make([]heap.Slot, len(sigs))
	for i, sig := range sigs {
		slots[i] = heap.Slot{Sig: sig, Value: defaultValue(value.Type(sig.Descriptor))}
	}
	id := s.heap.Allocate(heap.NewInstance(value.ClassType(class), s.hp, nil, slots))
	s.stuck = &Stuck{Exception: &value.ReferenceConcrete{ID: id}, ExceptionClass: class}
	return nil
}

// ThrowVerifyError ends the path with a java/lang/VerifyError.
func (s *State) ThrowVerifyError() error {
	return s.Throw(classfile.VERIFY_ERROR)
}

// SetStuckReturn ends the path returning v; v is nil for a void return.
func (s *State) SetStuckReturn(v value.Value) {
	s.stuck = &Stuck{Return: v}
}

// Stuck returns how the path ended, if it did.
func (s *State) Stuck() (*Stuck, bool) {
	return s.stuck, s.stuck != nil
}

func defaultValue(t value.Type) value.Value {
	if z, err := value.Zero(t); err == nil {
		return z
	}
	return value.Null
}
