package value

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOperand is matched by *InvalidOperandError.
	ErrInvalidOperand = errors.New("invalid operand")
	// ErrInvalidType is matched by *InvalidTypeError.
	ErrInvalidType = errors.New("invalid type")
)

// InvalidOperandError signals an absent argument to an applied symbol.
type InvalidOperandError struct {
	Operator string
	Index    int
}

func (e *InvalidOperandError) Error() string {
	return fmt.Sprintf("invalid operand: argument %d of %s is nil", e.Index, e.Operator)
}

func (e *InvalidOperandError) Is(target error) bool { return target == ErrInvalidOperand }

// InvalidTypeError signals a wrong category tag or a malformed descriptor.
type InvalidTypeError struct {
	Type   Type
	Reason string
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("invalid type %q: %s", string(e.Type), e.Reason)
}

func (e *InvalidTypeError) Is(target error) bool { return target == ErrInvalidType }
