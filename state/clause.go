package state

import (
	"fmt"

	"github.com/podhmo/symvm/value"
)

// Clause is an assumption on the path condition of a state.
type Clause interface {
	String() string
	clause()
}

// ClauseNull assumes a symbolic reference is null.
type ClauseNull struct {
	Ref value.ReferenceSymbolic
}

// ClauseAliases assumes a symbolic reference points to an object that
// already exists in the heap.
type ClauseAliases struct {
	Ref          value.ReferenceSymbolic
	ObjectID     int64
	ObjectOrigin string
}

// ClauseExpands assumes a symbolic reference points to a fresh object.
type ClauseExpands struct {
	Ref      value.ReferenceSymbolic
	ObjectID int64
	Type     value.Type
}

// ClauseNotNull assumes a symbolic reference is not null. It restricts the
// alternatives of a later resolution.
type ClauseNotNull struct {
	Ref value.ReferenceSymbolic
}

// ClauseClassInitialized records the initialization of a class.
type ClauseClassInitialized struct {
	Class string
}

func (c ClauseNull) String() string { return c.Ref.Origin() + " == null" }
func (c ClauseAliases) String() string {
	return fmt.Sprintf("%s == Object[%d] (aliases %s)", c.Ref.Origin(), c.ObjectID, c.ObjectOrigin)
}
func (c ClauseExpands) String() string {
	return fmt.Sprintf("%s == Object[%d] (fresh %s)", c.Ref.Origin(), c.ObjectID, c.Type.ClassName())
}
func (c ClauseNotNull) String() string          { return c.Ref.Origin() + " != null" }
func (c ClauseClassInitialized) String() string { return "pre_init(" + c.Class + ")" }

func (ClauseNull) clause()             {}
func (ClauseAliases) clause()          {}
func (ClauseExpands) clause()          {}
func (ClauseNotNull) clause()          {}
func (ClauseClassInitialized) clause() {}
