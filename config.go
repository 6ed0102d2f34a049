package symvm

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/podhmo/symvm/decision"
	"github.com/podhmo/symvm/state"
	"golang.org/x/mod/semver"
)

// ConfigVersion is the newest configuration format understood by
// DecodeConfig. Files with the same major version are accepted.
const ConfigVersion = "v1.0.0"

// Config holds the settings of an exploration. The zero value is not
// usable; start from DefaultConfig.
type Config struct {
	Version string       `toml:"version"`
	Engine  EngineConfig `toml:"engine"`
	Rules   RulesConfig  `toml:"rules"`
}

// EngineConfig holds the settings of the explorer itself.
type EngineConfig struct {
	// ParallelRefine refines the successors of a fork concurrently.
	ParallelRefine bool `toml:"parallel_refine"`
	// MaxDepth bounds the branch depth of the explored states.
	MaxDepth int `toml:"max_depth"`
	// MaxStates bounds the number of visited states.
	MaxStates int `toml:"max_states"`
	// ClassInit is "symbolic" or "default".
	ClassInit string `toml:"class_init"`
	LogLevel  string `toml:"log_level"`
}

// RulesConfig restricts the resolution of references by provenance. See
// decision.Rules.
type RulesConfig struct {
	NotNull    []string         `toml:"not_null"`
	NeverAlias []string         `toml:"never_alias"`
	ExpandTo   []ExpandToConfig `toml:"expand_to"`
}

// ExpandToConfig is one [[rules.expand_to]] table.
type ExpandToConfig struct {
	Origin  string   `toml:"origin"`
	Classes []string `toml:"classes"`
}

// DefaultConfig returns the default settings.
func DefaultConfig() *Config {
	return &Config{
		Version: ConfigVersion,
		Engine: EngineConfig{
			MaxDepth:  64,
			MaxStates: 4096,
			ClassInit: string(state.CLASS_INIT_SYMBOLIC),
			LogLevel:  "warn",
		},
	}
}

// LoadConfig reads the TOML file at path on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	defer f.Close()
	c, err := DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// DecodeConfig reads TOML from r on top of the defaults and validates the
// result. Unknown keys are an error.
func DecodeConfig(r io.Reader) (*Config, error) {
	c := DefaultConfig()
	md, err := toml.NewDecoder(r).Decode(c)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the settings.
func (c *Config) Validate() error {
	if !semver.IsValid(c.Version) {
		return fmt.Errorf("invalid version %q", c.Version)
	}
	if semver.Major(c.Version) != semver.Major(ConfigVersion) {
		return fmt.Errorf("unsupported version %s, want %s.x", c.Version, semver.Major(ConfigVersion))
	}
	if c.Engine.MaxDepth <= 0 {
		return fmt.Errorf("engine.max_depth must be positive, got %d", c.Engine.MaxDepth)
	}
	if c.Engine.MaxStates <= 0 {
		return fmt.Errorf("engine.max_states must be positive, got %d", c.Engine.MaxStates)
	}
	switch state.ClassInit(c.Engine.ClassInit) {
	case state.CLASS_INIT_SYMBOLIC, state.CLASS_INIT_DEFAULT:
	default:
		return fmt.Errorf("engine.class_init must be %q or %q, got %q", state.CLASS_INIT_SYMBOLIC, state.CLASS_INIT_DEFAULT, c.Engine.ClassInit)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	for i, r := range c.Rules.ExpandTo {
		if r.Origin == "" {
			return fmt.Errorf("rules.expand_to[%d]: origin is missing", i)
		}
	}
	return nil
}

// Level returns the log level.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Engine.LogLevel)); err != nil {
		return 0, fmt.Errorf("engine.log_level: %w", err)
	}
	return l, nil
}

// DecisionRules converts the rules for decision.Procedure.
func (c *Config) DecisionRules() decision.Rules {
	r := decision.Rules{
		NotNull:    c.Rules.NotNull,
		NeverAlias: c.Rules.NeverAlias,
	}
	for _, e := range c.Rules.ExpandTo {
		r.ExpandTo = append(r.ExpandTo, decision.ExpandRule{Origin: e.Origin, Classes: e.Classes})
	}
	return r
}
