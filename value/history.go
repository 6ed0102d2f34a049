package value

import (
	"strconv"
	"strings"
)

// HistoryPoint is the logical timestamp of a value's creation. Branch
// identifies the exploration branch (".1.2" is the second child of the
// first root branch) and Seq counts the steps taken on that branch.
//
// The zero HistoryPoint means "no history point".
type HistoryPoint struct {
	Branch string
	Seq    int
}

// RootHistoryPoint is the history point of an initial state.
func RootHistoryPoint() HistoryPoint {
	return HistoryPoint{Branch: ".1"}
}

// IsZero reports whether h is absent.
func (h HistoryPoint) IsZero() bool { return h.Branch == "" && h.Seq == 0 }

// Next returns the history point one step later on the same branch.
func (h HistoryPoint) Next() HistoryPoint {
	return HistoryPoint{Branch: h.Branch, Seq: h.Seq + 1}
}

// Child returns the start of the n-th (1-based) sub-branch of h.
func (h HistoryPoint) Child(n int) HistoryPoint {
	return HistoryPoint{Branch: h.Branch + "." + strconv.Itoa(n)}
}

// WeaklyBefore reports whether h precedes or equals other: either both lie
// on the same branch with h not later, or h's branch is an ancestor of
// other's branch.
func (h HistoryPoint) WeaklyBefore(other HistoryPoint) bool {
	if h.IsZero() {
		return true
	}
	if h.Branch == other.Branch {
		return h.Seq <= other.Seq
	}
	return strings.HasPrefix(other.Branch, h.Branch+".")
}

func (h HistoryPoint) String() string {
	if h.IsZero() {
		return ""
	}
	return h.Branch + "[" + strconv.Itoa(h.Seq) + "]"
}
