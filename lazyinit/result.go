package lazyinit

import (
	"github.com/podhmo/symvm/decision"
	"github.com/podhmo/symvm/state"
	"github.com/podhmo/symvm/value"
)

// ResultKind tells the caller how to continue after a generation.
type ResultKind int

const (
	// CONTINUE means the successors are in Branches.
	CONTINUE ResultKind = iota
	// VERIFICATION_FAILURE means the pending value could not be identified.
	// There are no successors; the caller throws a verify error.
	VERIFICATION_FAILURE
	// INTERNAL_FAULT means the engine reached a state it assumes
	// unreachable. There are no successors.
	INTERNAL_FAULT
)

func (k ResultKind) String() string {
	switch k {
	case CONTINUE:
		return "CONTINUE"
	case VERIFICATION_FAILURE:
		return "VERIFICATION_FAILURE"
	case INTERNAL_FAULT:
		return "INTERNAL_FAULT"
	}
	return "UNKNOWN"
}

// Branch is one successor with the alternative it was refined with. The
// alternative is nil for steps that resolved nothing.
type Branch struct {
	Alternative decision.Alternative
	State       *state.State
}

// Result is the outcome of a generation.
type Result struct {
	Kind     ResultKind
	Branches []Branch
	// Err is the cause of a VERIFICATION_FAILURE or an INTERNAL_FAULT.
	Err error

	pending     value.ReferenceSymbolic
	notExpanded bool
}

// Continue returns a result whose only successor is s.
func Continue(s *state.State) *Result {
	return &Result{Kind: CONTINUE, Branches: []Branch{{State: s}}}
}

// VerificationFailure returns a result without successors caused by err.
func VerificationFailure(err error) *Result {
	return &Result{Kind: VERIFICATION_FAILURE, Err: err}
}

// InternalFault returns a result without successors caused by err.
func InternalFault(err error) *Result {
	return &Result{Kind: INTERNAL_FAULT, Err: err}
}

// States returns the successor states in exploration order.
func (r *Result) States() []*state.State {
	out := make([]*state.State, len(r.Branches))
	for i, b := range r.Branches {
		out[i] = b.State
	}
	return out
}

// ReferenceNotExpanded reports whether the pending value was a symbolic
// reference for which no expansion alternative was produced.
func (r *Result) ReferenceNotExpanded() bool { return r.notExpanded }

// NonExpandedReferenceType returns the static type of the pending reference
// when ReferenceNotExpanded is true, or "".
func (r *Result) NonExpandedReferenceType() value.Type {
	if !r.notExpanded {
		return ""
	}
	return r.pending.StaticType()
}

// NonExpandedReferenceOrigin returns the provenance of the pending
// reference when ReferenceNotExpanded is true, or "".
func (r *Result) NonExpandedReferenceOrigin() string {
	if !r.notExpanded {
		return ""
	}
	return r.pending.Origin()
}
