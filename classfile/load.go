package classfile

import (
	"fmt"
	"io"
	"os"

	"github.com/podhmo/symvm/value"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// ProgramVersion is the newest program file format understood by Load.
const ProgramVersion = "v1.0.0"

// Program is the content of a program file: a versioned list of classes.
type Program struct {
	Version string       `yaml:"version"`
	Classes []*ClassFile `yaml:"classes"`
}

// LoadFile reads the program file at path and builds its hierarchy.
func LoadFile(path string) (*Hierarchy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open program: %w", err)
	}
	defer f.Close()
	h, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return h, nil
}

// Load decodes a YAML program, validates it, assembles the bytecode of its
// methods and builds the hierarchy.
func Load(r io.Reader) (*Hierarchy, error) {
	var p Program
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode program: %w", err)
	}
	if err := checkVersion(p.Version); err != nil {
		return nil, err
	}
	for _, c := range p.Classes {
		if err := prepare(c); err != nil {
			return nil, fmt.Errorf("class %s: %w", c.Name, err)
		}
	}
	return NewHierarchy(p.Classes...)
}

func checkVersion(v string) error {
	if v == "" {
		return fmt.Errorf("program version is missing")
	}
	if !semver.IsValid(v) {
		return fmt.Errorf("program version %q is not a semantic version", v)
	}
	if semver.Major(v) != semver.Major(ProgramVersion) || semver.Compare(v, ProgramVersion) > 0 {
		return fmt.Errorf("program version %s is not supported (want <= %s)", v, ProgramVersion)
	}
	return nil
}

func prepare(c *ClassFile) error {
	if err := value.ValidateType(value.ClassType(c.Name)); err != nil {
		return err
	}
	for _, f := range c.Fields {
		if err := value.ValidateType(f.Type); err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
	}
	for i, k := range c.ConstantPool {
		switch k.Kind {
		case CONSTANT_CLASS, CONSTANT_FIELD, CONSTANT_METHOD:
		default:
			return fmt.Errorf("constant %d: unknown kind %q", i+1, k.Kind)
		}
	}
	for _, m := range c.Methods {
		code, err := Assemble(m.Source)
		if err != nil {
			return fmt.Errorf("method %s%s: %w", m.Name, m.Descriptor, err)
		}
		m.Code = code
		if !m.Static && !hasSlot(m.Locals, 0) {
			m.Locals = append([]LocalVariable{{Slot: 0, Name: "this", Type: c.Type()}}, m.Locals...)
		}
		for _, l := range m.Locals {
			if err := value.ValidateType(l.Type); err != nil {
				return fmt.Errorf("method %s%s: local %s: %w", m.Name, m.Descriptor, l.Name, err)
			}
			if l.Slot >= m.MaxLocals {
				m.MaxLocals = l.Slot + 1
				if l.Type == value.LONG || l.Type == value.DOUBLE {
					m.MaxLocals++
				}
			}
		}
	}
	return nil
}

func hasSlot(locals []LocalVariable, slot int) bool {
	for _, l := range locals {
		if l.Slot == slot {
			return true
		}
	}
	return false
}
