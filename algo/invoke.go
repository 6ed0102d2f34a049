package algo

import (
	"context"
	"errors"
	"fmt"

	"github.com/podhmo/symvm/algo/meta"
	"github.com/podhmo/symvm/classfile"
	"github.com/podhmo/symvm/lazyinit"
	"github.com/podhmo/symvm/state"
	"github.com/podhmo/symvm/value"
)

// FILL_IN_STACK_TRACE is the signature of Throwable.fillInStackTrace.
var FILL_IN_STACK_TRACE = classfile.Signature{
	Class:      classfile.JAVA_THROWABLE,
	Descriptor: "()L" + classfile.JAVA_THROWABLE + ";",
	Name:       classfile.JAVA_THROWABLE_FILL_IN_NAME,
}

// RegisterMeta registers the built-in meta-level methods.
func RegisterMeta(r *meta.Registry) {
	r.Register(FILL_IN_STACK_TRACE.String(), FillInStackTrace)
}

// InvokeVirtual runs the meta-level implementation of the invoked method.
// The method is looked up by the referenced signature, then by the
// signature of the method it resolves to.
func InvokeVirtual(ctx context.Context, s *state.State, c *Context) (*lazyinit.Result, error) {
	index, err := s.ImmediateU16(1)
	if err != nil {
		return lazyinit.VerificationFailure(err), nil
	}
	m, err := s.CurrentMethod()
	if err != nil {
		return lazyinit.VerificationFailure(err), nil
	}
	k, err := s.Hierarchy().Constant(m.Signature().Class, index, classfile.CONSTANT_METHOD)
	if err != nil {
		return lazyinit.VerificationFailure(err), nil
	}
	sig := k.Signature()
	fn, ok := c.Meta.Get(sig.String())
	if !ok {
		if target, err := s.Hierarchy().Method(sig); err == nil {
			fn, ok = c.Meta.Get(target.Signature().String())
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: invokevirtual %s", ErrUnsupported, sig)
	}
	return fn(ctx, s)
}

// FillInStackTrace clears the stack trace of the receiver and returns it.
func FillInStackTrace(_ context.Context, s *state.State) (*lazyinit.Result, error) {
	this, err := s.Pop()
	if err != nil {
		return lazyinit.VerificationFailure(err), nil
	}
	id, obj, err := s.Deref(this)
	switch {
	case errors.Is(err, state.ErrNullDereference):
		return throw(s, classfile.NULL_POINTER_EXCEPTION)
	case err != nil:
		return lazyinit.VerificationFailure(err), nil
	}
	stackTrace := classfile.Signature{
		Class:      classfile.JAVA_THROWABLE,
		Descriptor: "[L" + classfile.JAVA_STACK_TRACE_ELEMENT + ";",
		Name:       classfile.JAVA_THROWABLE_STACK_TRACE,
	}
	updated, err := obj.WithField(stackTrace, value.Null)
	if err != nil {
		return lazyinit.VerificationFailure(err), nil
	}
	if err := s.Heap().Store(id, updated); err != nil {
		return lazyinit.VerificationFailure(err), nil
	}
	if err := s.Push(this); err != nil {
		return lazyinit.VerificationFailure(err), nil
	}
	return advance(s, 3)
}
