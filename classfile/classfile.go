// Package classfile is the class-metadata service of the executor: class
// descriptions, field and method resolution, and the subtype queries the
// decision procedure and the instruction handlers rely on.
//
// Class descriptions are loaded from YAML program files (see Load) rather
// than parsed from binary class files.
package classfile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/podhmo/symvm/value"
)

var (
	// ErrClassFileNotFound reports a class missing from the hierarchy.
	ErrClassFileNotFound = errors.New("class file not found")
	// ErrFieldNotFound reports a failed field resolution.
	ErrFieldNotFound = errors.New("field not found")
	// ErrFieldNotAccessible reports a private field accessed from another class.
	ErrFieldNotAccessible = errors.New("field not accessible")
	// ErrMethodNotFound reports a failed method resolution.
	ErrMethodNotFound = errors.New("method not found")
	// ErrInvalidIndex reports a constant pool index out of range or of the
	// wrong kind.
	ErrInvalidIndex = errors.New("invalid constant pool index")
)

// Well-known class names.
const (
	JAVA_OBJECT                 = "java/lang/Object"
	JAVA_STRING                 = "java/lang/String"
	JAVA_THROWABLE              = "java/lang/Throwable"
	JAVA_STACK_TRACE_ELEMENT    = "java/lang/StackTraceElement"
	VERIFY_ERROR                = "java/lang/VerifyError"
	NO_SUCH_FIELD_ERROR         = "java/lang/NoSuchFieldError"
	ILLEGAL_ACCESS_ERROR        = "java/lang/IllegalAccessError"
	INCOMPATIBLE_CLASS_CHANGE   = "java/lang/IncompatibleClassChangeError"
	NO_CLASS_DEF_FOUND_ERROR    = "java/lang/NoClassDefFoundError"
	NULL_POINTER_EXCEPTION      = "java/lang/NullPointerException"
	JAVA_THROWABLE_STACK_TRACE  = "stackTrace"
	JAVA_THROWABLE_FILL_IN_NAME = "fillInStackTrace"
)

// Signature names a field or a method: the declaring (or referring) class,
// the descriptor and the name.
type Signature struct {
	Class      string
	Descriptor string
	Name       string
}

// String renders the signature as "Class:Descriptor:Name".
func (s Signature) String() string {
	return s.Class + ":" + s.Descriptor + ":" + s.Name
}

// ParseSignature parses the "Class:Descriptor:Name" form.
func ParseSignature(s string) (Signature, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Signature{}, fmt.Errorf("malformed signature %q", s)
	}
	return Signature{Class: parts[0], Descriptor: parts[1], Name: parts[2]}, nil
}

// Field is a field declaration.
type Field struct {
	Name    string     `yaml:"name"`
	Type    value.Type `yaml:"type"`
	Static  bool       `yaml:"static"`
	Final   bool       `yaml:"final"`
	Private bool       `yaml:"private"`
}

// LocalVariable is an entry of a method's local variable table.
type LocalVariable struct {
	Slot int        `yaml:"slot"`
	Name string     `yaml:"name"`
	Type value.Type `yaml:"type"`
}

// LineNumber maps the instruction at PC to a source line.
type LineNumber struct {
	PC   int `yaml:"pc"`
	Line int `yaml:"line"`
}

// Method is a method declaration with its bytecode.
type Method struct {
	Name       string          `yaml:"name"`
	Descriptor string          `yaml:"descriptor"`
	Static     bool            `yaml:"static"`
	Abstract   bool            `yaml:"abstract"`
	MaxLocals  int             `yaml:"max_locals"`
	Locals     []LocalVariable `yaml:"locals"`
	Lines      []LineNumber    `yaml:"lines"`
	Source     []string        `yaml:"code"`
	Code       []byte          `yaml:"-"`

	class string
}

// Signature returns the signature of m in its declaring class.
func (m *Method) Signature() Signature {
	return Signature{Class: m.class, Descriptor: m.Descriptor, Name: m.Name}
}

// SourceRow returns the source line of the instruction at pc, or -1.
func (m *Method) SourceRow(pc int) int {
	row := -1
	best := -1
	for _, ln := range m.Lines {
		if ln.PC <= pc && ln.PC > best {
			best = ln.PC
			row = ln.Line
		}
	}
	return row
}

// ConstantKind tags constant pool entries.
type ConstantKind string

const (
	CONSTANT_CLASS  ConstantKind = "class"
	CONSTANT_FIELD  ConstantKind = "field"
	CONSTANT_METHOD ConstantKind = "method"
)

// Constant is a symbolic constant pool entry.
type Constant struct {
	Kind       ConstantKind `yaml:"kind"`
	Class      string       `yaml:"class"`
	Name       string       `yaml:"name"`
	Descriptor string       `yaml:"descriptor"`
}

// Signature returns the member signature of a field or method constant.
func (c Constant) Signature() Signature {
	return Signature{Class: c.Class, Descriptor: c.Descriptor, Name: c.Name}
}

// ClassFile describes one class or interface.
type ClassFile struct {
	Name         string     `yaml:"name"`
	Super        string     `yaml:"super"`
	Interfaces   []string   `yaml:"interfaces"`
	Abstract     bool       `yaml:"abstract"`
	Interface    bool       `yaml:"interface"`
	Fields       []Field    `yaml:"fields"`
	Methods      []*Method  `yaml:"methods"`
	ConstantPool []Constant `yaml:"constant_pool"`
}

// IsArray reports whether c is an array class.
func (c *ClassFile) IsArray() bool {
	return len(c.Name) > 0 && c.Name[0] == '['
}

// Type returns the descriptor of c.
func (c *ClassFile) Type() value.Type {
	return value.ClassType(c.Name)
}

// Constant returns the constant pool entry at the 1-based index.
func (c *ClassFile) Constant(index int) (Constant, error) {
	if index < 1 || index > len(c.ConstantPool) {
		return Constant{}, fmt.Errorf("%w: %d in %s", ErrInvalidIndex, index, c.Name)
	}
	return c.ConstantPool[index-1], nil
}

// DeclaredField returns the field declared by c with the given name and
// descriptor.
func (c *ClassFile) DeclaredField(name string, descriptor string) (*Field, bool) {
	for i := range c.Fields {
		f := &c.Fields[i]
		if f.Name == name && string(f.Type) == descriptor {
			return f, true
		}
	}
	return nil, false
}

// DeclaredMethod returns the method declared by c with the given name and
// descriptor.
func (c *ClassFile) DeclaredMethod(name string, descriptor string) (*Method, bool) {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == descriptor {
			return m, true
		}
	}
	return nil, false
}
