package classfile

import (
	"fmt"
	"slices"

	"github.com/podhmo/symvm/value"
)

// Hierarchy is the set of classes known to an exploration. It is built
// once and shared read-only by every state.
type Hierarchy struct {
	classes map[string]*ClassFile
}

// NewHierarchy returns a hierarchy holding the bootstrap classes plus the
// given ones. A class declared twice is an error.
func NewHierarchy(classes ...*ClassFile) (*Hierarchy, error) {
	h := &Hierarchy{classes: make(map[string]*ClassFile)}
	for _, c := range bootstrapClasses() {
		h.add(c)
	}
	for _, c := range classes {
		if c.Name == "" {
			return nil, fmt.Errorf("class without a name")
		}
		if _, dup := h.classes[c.Name]; dup && !isBootstrap(c.Name) {
			return nil, fmt.Errorf("class %s declared twice", c.Name)
		}
		if c.Super == "" && c.Name != JAVA_OBJECT {
			c.Super = JAVA_OBJECT
		}
		h.add(c)
	}
	for _, c := range h.classes {
		if c.Super != "" {
			if _, ok := h.classes[c.Super]; !ok {
				return nil, fmt.Errorf("class %s: superclass %s: %w", c.Name, c.Super, ErrClassFileNotFound)
			}
		}
		for _, i := range c.Interfaces {
			if _, ok := h.classes[i]; !ok {
				return nil, fmt.Errorf("class %s: interface %s: %w", c.Name, i, ErrClassFileNotFound)
			}
		}
	}
	return h, nil
}

func (h *Hierarchy) add(c *ClassFile) {
	for _, m := range c.Methods {
		m.class = c.Name
	}
	h.classes[c.Name] = c
}

// ClassFile returns the class named name. Array classes are synthesized on
// demand.
func (h *Hierarchy) ClassFile(name string) (*ClassFile, error) {
	if c, ok := h.classes[name]; ok {
		return c, nil
	}
	if t := value.Type(name); t.IsArray() {
		if err := value.ValidateType(t); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrClassFileNotFound, err)
		}
		return &ClassFile{Name: name, Super: JAVA_OBJECT}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrClassFileNotFound, name)
}

// Classes returns the names of all known classes in ascending order.
func (h *Hierarchy) Classes() []string {
	names := make([]string, 0, len(h.classes))
	for name := range h.classes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsSubclass reports whether sub is sup or inherits from it, through
// superclasses or superinterfaces.
func (h *Hierarchy) IsSubclass(sub, sup string) bool {
	if sub == sup || sup == JAVA_OBJECT {
		return true
	}
	c, ok := h.classes[sub]
	if !ok {
		return false
	}
	if c.Super != "" && h.IsSubclass(c.Super, sup) {
		return true
	}
	for _, i := range c.Interfaces {
		if h.IsSubclass(i, sup) {
			return true
		}
	}
	return false
}

// AssignableTo reports whether a value of type from can be stored in a
// slot of type to.
func (h *Hierarchy) AssignableTo(from, to value.Type) bool {
	if from == to {
		return true
	}
	if from == value.NULLREF {
		return to.IsReference()
	}
	if !from.IsReference() || !to.IsReference() {
		return false
	}
	if to == value.OBJECT {
		return true
	}
	switch {
	case from.IsArray() && to.IsArray():
		fm, _ := from.ArrayMemberType()
		tm, _ := to.ArrayMemberType()
		if fm.IsPrimitive() || tm.IsPrimitive() {
			return fm == tm
		}
		return h.AssignableTo(fm, tm)
	case from.IsArray():
		return false
	case to.IsArray():
		return false
	}
	return h.IsSubclass(from.ClassName(), to.ClassName())
}

// ConcreteSubclasses returns the names of the instantiable classes
// assignable to the class named name, in ascending order. For an array
// class this is the class itself.
func (h *Hierarchy) ConcreteSubclasses(name string) []string {
	if value.Type(name).IsArray() {
		return []string{name}
	}
	var out []string
	for n, c := range h.classes {
		if c.Abstract || c.Interface {
			continue
		}
		if h.IsSubclass(n, name) {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return out
}

// ResolveField resolves the field referred to by sig from the class
// accessor: the class named in sig, then its superinterfaces, then its
// superclasses. It returns the declaring class and the field.
func (h *Hierarchy) ResolveField(accessor string, sig Signature) (*ClassFile, *Field, error) {
	c, err := h.ClassFile(sig.Class)
	if err != nil {
		return nil, nil, err
	}
	decl, f := h.lookupField(c, sig.Name, sig.Descriptor)
	if f == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrFieldNotFound, sig)
	}
	if f.Private && decl.Name != accessor {
		return nil, nil, fmt.Errorf("%w: %s from %s", ErrFieldNotAccessible, sig, accessor)
	}
	return decl, f, nil
}

func (h *Hierarchy) lookupField(c *ClassFile, name, descriptor string) (*ClassFile, *Field) {
	if f, ok := c.DeclaredField(name, descriptor); ok {
		return c, f
	}
	for _, i := range c.Interfaces {
		if ic, ok := h.classes[i]; ok {
			if decl, f := h.lookupField(ic, name, descriptor); f != nil {
				return decl, f
			}
		}
	}
	if sc, ok := h.classes[c.Super]; ok && c.Super != "" {
		return h.lookupField(sc, name, descriptor)
	}
	return nil, nil
}

// InstanceFields returns the signatures of the instance fields of the
// class named name, superclass fields first.
func (h *Hierarchy) InstanceFields(name string) ([]Signature, error) {
	c, err := h.ClassFile(name)
	if err != nil {
		return nil, err
	}
	var out []Signature
	if c.Super != "" {
		inherited, err := h.InstanceFields(c.Super)
		if err != nil {
			return nil, err
		}
		out = inherited
	}
	for _, f := range c.Fields {
		if !f.Static {
			out = append(out, Signature{Class: c.Name, Descriptor: string(f.Type), Name: f.Name})
		}
	}
	return out, nil
}

// StaticFields returns the signatures of the static fields declared by the
// class named name.
func (h *Hierarchy) StaticFields(name string) ([]Signature, error) {
	c, err := h.ClassFile(name)
	if err != nil {
		return nil, err
	}
	var out []Signature
	for _, f := range c.Fields {
		if f.Static {
			out = append(out, Signature{Class: c.Name, Descriptor: string(f.Type), Name: f.Name})
		}
	}
	return out, nil
}

// Method resolves the method sig in its class or a superclass.
func (h *Hierarchy) Method(sig Signature) (*Method, error) {
	for name := sig.Class; name != ""; {
		c, err := h.ClassFile(name)
		if err != nil {
			return nil, err
		}
		if m, ok := c.DeclaredMethod(sig.Name, sig.Descriptor); ok {
			return m, nil
		}
		name = c.Super
	}
	return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, sig)
}

// Constant returns the entry at the 1-based index of the constant pool of
// the class named class, checking its kind.
func (h *Hierarchy) Constant(class string, index int, kind ConstantKind) (Constant, error) {
	c, err := h.ClassFile(class)
	if err != nil {
		return Constant{}, err
	}
	k, err := c.Constant(index)
	if err != nil {
		return Constant{}, err
	}
	if k.Kind != kind {
		return Constant{}, fmt.Errorf("%w: %d in %s is a %s, not a %s", ErrInvalidIndex, index, class, k.Kind, kind)
	}
	return k, nil
}
