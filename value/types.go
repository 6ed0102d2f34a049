package value

import (
	"fmt"
	"strings"
)

// Type is a JVM field descriptor, e.g. "I", "Ljava/lang/Object;" or "[J".
type Type string

// Primitive type descriptors.
const (
	BOOLEAN Type = "Z"
	BYTE    Type = "B"
	CHAR    Type = "C"
	SHORT   Type = "S"
	INT     Type = "I"
	LONG    Type = "J"
	FLOAT   Type = "F"
	DOUBLE  Type = "D"
	VOID    Type = "V"
)

// Reference type descriptors used by the engine itself.
const (
	OBJECT Type = "Ljava/lang/Object;"
	STRING Type = "Ljava/lang/String;"
	// NULLREF is the type of the null reference.
	NULLREF Type = "0"
)

// IsPrimitive reports whether t is a (non-void) primitive descriptor.
func (t Type) IsPrimitive() bool {
	if len(t) != 1 {
		return false
	}
	switch t {
	case BOOLEAN, BYTE, CHAR, SHORT, INT, LONG, FLOAT, DOUBLE:
		return true
	}
	return false
}

// IsReference reports whether t is a class or array descriptor.
func (t Type) IsReference() bool {
	return t.IsClass() || t.IsArray()
}

// IsClass reports whether t has the form "L<name>;".
func (t Type) IsClass() bool {
	return len(t) > 2 && t[0] == 'L' && t[len(t)-1] == ';'
}

// IsArray reports whether t has the form "[<member>".
func (t Type) IsArray() bool {
	return len(t) > 1 && t[0] == '['
}

// ClassName returns the internal class name of a class descriptor
// ("Ljava/lang/Object;" → "java/lang/Object"). Array descriptors are
// returned unchanged, as the JVM names array classes by descriptor.
func (t Type) ClassName() string {
	if t.IsClass() {
		return string(t[1 : len(t)-1])
	}
	return string(t)
}

// ArrayMemberType returns the member type of an array descriptor.
func (t Type) ArrayMemberType() (Type, bool) {
	if !t.IsArray() {
		return "", false
	}
	return t[1:], true
}

// ClassType builds the descriptor of an internal class name. Array class
// names are already descriptors and are returned as they are.
func ClassType(className string) Type {
	if strings.HasPrefix(className, "[") {
		return Type(className)
	}
	return Type("L" + className + ";")
}

// ValidateType checks that t is a well-formed primitive, class or array
// descriptor.
func ValidateType(t Type) error {
	if err := validate(t); err != nil {
		return &InvalidTypeError{Type: t, Reason: err.Error()}
	}
	return nil
}

func validate(t Type) error {
	switch {
	case t == "":
		return fmt.Errorf("empty descriptor")
	case t.IsPrimitive():
		return nil
	case t.IsArray():
		member, _ := t.ArrayMemberType()
		return validate(member)
	case t.IsClass():
		name := t.ClassName()
		if strings.ContainsAny(name, ";[.") {
			return fmt.Errorf("malformed class name %q", name)
		}
		return nil
	}
	return fmt.Errorf("unrecognized descriptor")
}
