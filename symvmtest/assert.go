package symvmtest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/podhmo/symvm/lazyinit"
	"github.com/podhmo/symvm/state"
)

// AssertEqual fails the test if want and got differ.
func AssertEqual[T any](t *testing.T, want, got T, opts ...cmp.Option) {
	t.Helper()
	if diff := cmp.Diff(want, got, opts...); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

// AssertSuccessors fails the test unless res continues with one successor
// per alternative, in the given order. "-" stands for a successor without
// an alternative.
func AssertSuccessors(t *testing.T, res *lazyinit.Result, alternatives ...string) {
	t.Helper()
	if res == nil {
		t.Fatalf("expected successors, but got a nil result")
	}
	if res.Kind != lazyinit.CONTINUE {
		t.Fatalf("kind wrong. want=%s, got=%s (%v)", lazyinit.CONTINUE, res.Kind, res.Err)
	}
	got := make([]string, len(res.Branches))
	for i, b := range res.Branches {
		got[i] = "-"
		if b.Alternative != nil {
			got[i] = b.Alternative.String()
		}
	}
	if diff := cmp.Diff(alternatives, got); diff != "" {
		t.Errorf("alternatives mismatch (-want +got):\n%s", diff)
	}
}

// AssertVerificationFailure fails the test unless res is a verification
// failure without successors.
func AssertVerificationFailure(t *testing.T, res *lazyinit.Result) {
	t.Helper()
	if res == nil {
		t.Fatalf("expected a verification failure, but got a nil result")
	}
	if res.Kind != lazyinit.VERIFICATION_FAILURE {
		t.Fatalf("kind wrong. want=%s, got=%s", lazyinit.VERIFICATION_FAILURE, res.Kind)
	}
	if len(res.Branches) != 0 {
		t.Errorf("verification failure with %d successors", len(res.Branches))
	}
}

// AssertThrown fails the test unless s ended by throwing class.
func AssertThrown(t *testing.T, s *state.State, class string) {
	t.Helper()
	stuck, ok := s.Stuck()
	if !ok {
		t.Fatalf("state %s is not stuck", s.History())
	}
	if stuck.Exception == nil {
		t.Fatalf("state %s returned instead of throwing %s", s.History(), class)
	}
	if stuck.ExceptionClass != class {
		t.Errorf("exception wrong. want=%q, got=%q", class, stuck.ExceptionClass)
	}
}
