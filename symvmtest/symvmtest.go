// Package symvmtest provides helpers for tests that explore small programs.
package symvmtest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/podhmo/symvm/classfile"
	"github.com/podhmo/symvm/decision"
	"github.com/podhmo/symvm/state"
	"github.com/podhmo/symvm/value"
)

// LoadHierarchy loads an inline YAML program. A missing version line is
// filled in.
func LoadHierarchy(t *testing.T, program string) *classfile.Hierarchy {
	t.Helper()
	if !strings.Contains(program, "version:") {
		program = "version: " + classfile.ProgramVersion + "\n" + program
	}
	h, err := classfile.Load(strings.NewReader(program))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	return h
}

// NewState returns the initial state of the method named by sig, in the
// "class:descriptor:name" form.
func NewState(t *testing.T, h *classfile.Hierarchy, sig string, opts ...state.Option) *state.State {
	t.Helper()
	parsed, err := classfile.ParseSignature(sig)
	if err != nil {
		t.Fatalf("ParseSignature(%q) failed: %v", sig, err)
	}
	m, err := h.Method(parsed)
	if err != nil {
		t.Fatalf("Method(%q) failed: %v", sig, err)
	}
	s, err := state.New(h, m, opts...)
	if err != nil {
		t.Fatalf("state.New() failed: %v", err)
	}
	return s
}

// LocalRef returns the symbolic reference held by a local variable.
func LocalRef(t *testing.T, s *state.State, slot int) value.ReferenceSymbolic {
	t.Helper()
	v, err := s.Local(slot)
	if err != nil {
		t.Fatalf("Local(%d) failed: %v", slot, err)
	}
	ref, ok := value.AsReferenceSymbolic(v)
	if !ok {
		t.Fatalf("local %d is not a symbolic reference: %s", slot, v)
	}
	return ref
}

// CountingOracle wraps an oracle and counts its invocations.
type CountingOracle struct {
	Oracle decision.Oracle
	calls  atomic.Int64
}

// Fixed returns an oracle that always answers alts.
func Fixed(alts ...decision.Alternative) *CountingOracle {
	return &CountingOracle{Oracle: decision.FuncOracle(func(context.Context, *state.State, value.Value) ([]decision.Alternative, error) {
		return append([]decision.Alternative(nil), alts...), nil
	})}
}

// Failing returns an oracle that always fails with err.
func Failing(err error) *CountingOracle {
	return &CountingOracle{Oracle: decision.FuncOracle(func(context.Context, *state.State, value.Value) ([]decision.Alternative, error) {
		return nil, err
	})}
}

func (o *CountingOracle) ResolveLoad(ctx context.Context, s *state.State, v value.Value) ([]decision.Alternative, error) {
	o.calls.Add(1)
	return o.Oracle.ResolveLoad(ctx, s, v)
}

// Calls returns the number of invocations so far.
func (o *CountingOracle) Calls() int { return int(o.calls.Load()) }

// WriteFiles writes files into a fresh temporary directory and returns it.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("MkdirAll(%q): %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile(%q): %v", path, err)
		}
	}
	return dir
}
