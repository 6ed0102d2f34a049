package symvm

import (
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/podhmo/symvm/decision"
	"github.com/podhmo/symvm/symvmtest"
)

func TestLoadConfig(t *testing.T) {
	c, err := LoadConfig("testdata/configs/symvm.toml")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	want := EngineConfig{
		ParallelRefine: true,
		MaxDepth:       8,
		MaxStates:      100,
		ClassInit:      "default",
		LogLevel:       "debug",
	}
	symvmtest.AssertEqual(t, want, c.Engine)

	wantRules := decision.Rules{
		NotNull:    []string{"{ROOT}:o"},
		NeverAlias: []string{"{ROOT}:o.*"},
		ExpandTo:   []decision.ExpandRule{{Origin: "{ROOT}:o.next", Classes: []string{"pkg/Node"}}},
	}
	symvmtest.AssertEqual(t, wantRules, c.DecisionRules())

	level, err := c.Level()
	if err != nil {
		t.Fatalf("Level() failed: %v", err)
	}
	if level != slog.LevelDebug {
		t.Errorf("Level wrong. want=%v, got=%v", slog.LevelDebug, level)
	}
}

func TestDecodeConfigDefaults(t *testing.T) {
	c, err := DecodeConfig(strings.NewReader(`version = "v1.0.0"`))
	if err != nil {
		t.Fatalf("DecodeConfig() failed: %v", err)
	}
	symvmtest.AssertEqual(t, DefaultConfig(), c)
}

func TestDecodeConfigErrors(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		contains string
	}{
		{name: "syntax", input: `version = `, contains: "parse error"},
		{name: "unknown key", input: "version = \"v1.0.0\"\n[engine]\nspeed = 3", contains: "unknown keys: engine.speed"},
		{name: "bad version", input: `version = "1.0"`, contains: "invalid version"},
		{name: "major version", input: `version = "v2.0.0"`, contains: "unsupported version"},
		{name: "max depth", input: "version = \"v1.0.0\"\n[engine]\nmax_depth = 0", contains: "max_depth"},
		{name: "max states", input: "version = \"v1.0.0\"\n[engine]\nmax_states = -1", contains: "max_states"},
		{name: "class init", input: "version = \"v1.0.0\"\n[engine]\nclass_init = \"lazy\"", contains: "class_init"},
		{name: "log level", input: "version = \"v1.0.0\"\n[engine]\nlog_level = \"loud\"", contains: "log_level"},
		{name: "expand to", input: "version = \"v1.0.0\"\n[[rules.expand_to]]\nclasses = [\"pkg/A\"]", contains: "origin is missing"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeConfig(strings.NewReader(tc.input))
			if err == nil {
				t.Fatalf("DecodeConfig() succeeded, want an error containing %q", tc.contains)
			}
			if !strings.Contains(err.Error(), tc.contains) {
				t.Errorf("error %q does not contain %q", err, tc.contains)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	dir := symvmtest.WriteFiles(t, map[string]string{"other.toml": ""})
	if _, err := LoadConfig(filepath.Join(dir, "symvm.toml")); err == nil {
		t.Errorf("LoadConfig() of a missing file succeeded")
	}
	// an empty file keeps the defaults
	c, err := LoadConfig(filepath.Join(dir, "other.toml"))
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	symvmtest.AssertEqual(t, DefaultConfig(), c)
}
