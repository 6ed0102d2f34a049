package algo

import (
	"context"
	"errors"

	"github.com/podhmo/symvm/classfile"
	"github.com/podhmo/symvm/heap"
	"github.com/podhmo/symvm/internal/fault"
	"github.com/podhmo/symvm/lazyinit"
	"github.com/podhmo/symvm/state"
)

// fieldConstant reads the field reference named by the two-byte operand
// of the current instruction. It also returns the current class.
func fieldConstant(s *state.State) (classfile.Signature, string, error) {
	index, err := s.ImmediateU16(1)
	if err != nil {
		return classfile.Signature{}, "", err
	}
	m, err := s.CurrentMethod()
	if err != nil {
		return classfile.Signature{}, "", err
	}
	current := m.Signature().Class
	k, err := s.Hierarchy().Constant(current, index, classfile.CONSTANT_FIELD)
	if err != nil {
		return classfile.Signature{}, "", err
	}
	return k.Signature(), current, nil
}

// resolveField resolves sig from current. A resolution failure the virtual
// machine reports with an exception is returned as the exception class.
func resolveField(s *state.State, current string, sig classfile.Signature) (classfile.Signature, *classfile.ClassFile, *classfile.Field, string) {
	decl, f, err := s.Hierarchy().ResolveField(current, sig)
	switch {
	case errors.Is(err, classfile.ErrClassFileNotFound):
		return sig, nil, nil, classfile.NO_CLASS_DEF_FOUND_ERROR
	case errors.Is(err, classfile.ErrFieldNotFound):
		return sig, nil, nil, classfile.NO_SUCH_FIELD_ERROR
	case errors.Is(err, classfile.ErrFieldNotAccessible):
		return sig, nil, nil, classfile.ILLEGAL_ACCESS_ERROR
	case err != nil:
		return sig, nil, nil, classfile.INCOMPATIBLE_CLASS_CHANGE
	}
	resolved := classfile.Signature{Class: decl.Name, Descriptor: string(f.Type), Name: f.Name}
	return resolved, decl, f, ""
}

func isStatic(decl *classfile.ClassFile, f *classfile.Field) bool {
	return f.Static || decl.Interface
}

// GetField pushes a field of the object on top of the operand stack.
func GetField(ctx context.Context, s *state.State, c *Context) (*lazyinit.Result, error) {
	sig, current, err := fieldConstant(s)
	if err != nil {
		return lazyinit.VerificationFailure(err), nil
	}
	resolved, decl, f, exc := resolveField(s, current, sig)
	if exc != "" {
		return throw(s, exc)
	}
	if isStatic(decl, f) {
		return throw(s, classfile.INCOMPATIBLE_CLASS_CHANGE)
	}

	ref, err := s.Pop()
	if err != nil {
		return lazyinit.VerificationFailure(err), nil
	}
	_, obj, err := s.Deref(ref)
	switch {
	case errors.Is(err, state.ErrNullDereference):
		return throw(s, classfile.NULL_POINTER_EXCEPTION)
	case errors.Is(err, state.ErrUnresolved), errors.Is(err, heap.ErrNoObject):
		return lazyinit.InternalFault(fault.Wrap(err, "getfield %s", resolved)), nil
	case err != nil:
		return lazyinit.VerificationFailure(err), nil
	}
	v, ok := obj.Field(resolved)
	if !ok {
		return throw(s, classfile.NO_SUCH_FIELD_ERROR)
	}

	res, err := c.Generator.Generate(ctx, s, lazyinit.Request{Value: v, PCOffset: 3})
	if err != nil {
		return nil, err
	}
	return initializeExpanded(res), nil
}

// GetStatic pushes a static field, initializing its class first.
func GetStatic(ctx context.Context, s *state.State, c *Context) (*lazyinit.Result, error) {
	sig, current, err := fieldConstant(s)
	if err != nil {
		return lazyinit.VerificationFailure(err), nil
	}
	resolved, decl, f, exc := resolveField(s, current, sig)
	if exc != "" {
		return throw(s, exc)
	}
	if !isStatic(decl, f) {
		return throw(s, classfile.INCOMPATIBLE_CLASS_CHANGE)
	}
	if _, err := s.EnsureKlass(decl.Name); err != nil {
		return lazyinit.InternalFault(fault.Wrap(err, "getstatic %s", resolved)), nil
	}
	v, err := s.GetStatic(resolved)
	if err != nil {
		return lazyinit.InternalFault(fault.Wrap(err, "getstatic %s", resolved)), nil
	}

	res, err := c.Generator.Generate(ctx, s, lazyinit.Request{Value: v, PCOffset: 3})
	if err != nil {
		return nil, err
	}
	return initializeExpanded(res), nil
}

// PutStatic stores the top of the operand stack into a static field. A
// final field may only be written by its declaring class.
func PutStatic(_ context.Context, s *state.State, _ *Context) (*lazyinit.Result, error) {
	sig, current, err := fieldConstant(s)
	if err != nil {
		return lazyinit.VerificationFailure(err), nil
	}
	resolved, decl, f, exc := resolveField(s, current, sig)
	if exc != "" {
		return throw(s, exc)
	}
	if !isStatic(decl, f) {
		return throw(s, classfile.INCOMPATIBLE_CLASS_CHANGE)
	}
	if f.Final && decl.Name != current {
		return throw(s, classfile.ILLEGAL_ACCESS_ERROR)
	}

	v, err := s.Pop()
	if err != nil {
		return lazyinit.VerificationFailure(err), nil
	}
	if _, err := s.EnsureKlass(decl.Name); err != nil {
		return lazyinit.InternalFault(fault.Wrap(err, "putstatic %s", resolved)), nil
	}
	if err := s.PutStatic(resolved, v); err != nil {
		return lazyinit.InternalFault(fault.Wrap(err, "putstatic %s", resolved)), nil
	}
	return advance(s, 3)
}
