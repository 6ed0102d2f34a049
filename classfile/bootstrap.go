package classfile

import "github.com/podhmo/symvm/value"

var bootstrapNames = map[string]bool{}

func init() {
	for _, c := range bootstrapClasses() {
		bootstrapNames[c.Name] = true
	}
}

func isBootstrap(name string) bool { return bootstrapNames[name] }

// bootstrapClasses returns fresh copies of the classes every hierarchy
// knows. A program may redeclare them.
func bootstrapClasses() []*ClassFile {
	sub := func(name, super string) *ClassFile {
		return &ClassFile{Name: name, Super: super}
	}
	return []*ClassFile{
		{Name: JAVA_OBJECT},
		{Name: JAVA_STRING, Super: JAVA_OBJECT},
		{Name: JAVA_STACK_TRACE_ELEMENT, Super: JAVA_OBJECT},
		{
			Name:  JAVA_THROWABLE,
			Super: JAVA_OBJECT,
			Fields: []Field{
				{Name: JAVA_THROWABLE_STACK_TRACE, Type: value.Type("[L" + JAVA_STACK_TRACE_ELEMENT + ";"), Private: true},
			},
			Methods: []*Method{
				// implemented by a meta algorithm
				{Name: JAVA_THROWABLE_FILL_IN_NAME, Descriptor: "()L" + JAVA_THROWABLE + ";", MaxLocals: 1},
			},
		},
		sub("java/lang/Error", JAVA_THROWABLE),
		sub("java/lang/LinkageError", "java/lang/Error"),
		sub(VERIFY_ERROR, "java/lang/LinkageError"),
		sub(NO_CLASS_DEF_FOUND_ERROR, "java/lang/LinkageError"),
		sub(INCOMPATIBLE_CLASS_CHANGE, "java/lang/LinkageError"),
		sub(NO_SUCH_FIELD_ERROR, INCOMPATIBLE_CLASS_CHANGE),
		sub(ILLEGAL_ACCESS_ERROR, INCOMPATIBLE_CLASS_CHANGE),
		sub("java/lang/Exception", JAVA_THROWABLE),
		sub("java/lang/RuntimeException", "java/lang/Exception"),
		sub(NULL_POINTER_EXCEPTION, "java/lang/RuntimeException"),
	}
}
