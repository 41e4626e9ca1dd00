// Package config loads exploration settings from a YAML file and applies
// CLI --set overrides on top of it, the way a small ops-facing tool
// layers "defaults file + punctual overrides" rather than inventing a
// bespoke flag for every knob.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tidwall/sjson"
	"go.yaml.in/yaml/v2"

	"github.com/concolic-go/concolic/engine"
	"github.com/concolic-go/concolic/scheduler"
)

// Settings is the on-disk/CLI-overridable shape of an exploration run's
// configuration; durations are stored as strings (time.ParseDuration
// syntax) since neither YAML nor JSON round-trips time.Duration cleanly.
type Settings struct {
	Workers          int      `yaml:"workers" json:"workers"`
	SchedulingPolicy string   `yaml:"scheduling_policy" json:"scheduling_policy"`
	Solver           string   `yaml:"solver" json:"solver"`
	Ladder           []string `yaml:"ladder" json:"ladder"`
	PathTimeout      string   `yaml:"path_timeout" json:"path_timeout"`
	CoveragePruningWindow int `yaml:"coverage_pruning_window" json:"coverage_pruning_window"`
	MaxIterations    int      `yaml:"max_iterations" json:"max_iterations"`
	WallClockBudget  string   `yaml:"wall_clock_budget" json:"wall_clock_budget"`
	PerQueryTimeout  string   `yaml:"per_query_timeout" json:"per_query_timeout"`

	QueryStoreDir  string `yaml:"query_store_dir" json:"query_store_dir"`
	GraphOutput    string `yaml:"graph_output" json:"graph_output"`
	DotOutput      string `yaml:"dot_output" json:"dot_output"`

	Emitter string `yaml:"emitter" json:"emitter"` // "null" | "log" | "log-json" | "otel"
	Metrics bool   `yaml:"metrics" json:"metrics"`
	Seed    int64  `yaml:"seed" json:"seed"`
}

// Default returns the settings a bare CLI invocation would run with,
// mirroring engine.defaultConfig's values where one exists.
func Default() Settings {
	ladder := make([]string, len(engine.DefaultLadder))
	for i, d := range engine.DefaultLadder {
		ladder[i] = d.String()
	}
	return Settings{
		Workers:          4,
		SchedulingPolicy: "central_queue",
		Solver:           "z3",
		Ladder:           ladder,
		Emitter:          "null",
		Seed:             1,
	}
}

// Load reads path (if non-empty and present) as a YAML file on top of
// Default(), then applies each "key.path=value" override in sets via
// sjson, the same dotted-path addressing sjson.Set expects.
func Load(path string, sets []string) (Settings, error) {
	settings := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return settings, fmt.Errorf("config: reading %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &settings); err != nil {
			return settings, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if len(sets) == 0 {
		return settings, nil
	}

	doc, err := json.Marshal(settings)
	if err != nil {
		return settings, fmt.Errorf("config: marshalling for overrides: %w", err)
	}
	for _, kv := range sets {
		key, value, err := splitSet(kv)
		if err != nil {
			return settings, err
		}
		doc, err = sjson.SetBytes(doc, key, value)
		if err != nil {
			return settings, fmt.Errorf("config: applying --set %s: %w", kv, err)
		}
	}
	if err := json.Unmarshal(doc, &settings); err != nil {
		return settings, fmt.Errorf("config: re-parsing overridden settings: %w", err)
	}
	return settings, nil
}

func splitSet(kv string) (key, value string, err error) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("config: --set value %q must be key=value", kv)
}

// ParseLadder converts the Settings' string durations into the
// []time.Duration engine.WithLadder expects.
func (s Settings) ParseLadder() ([]time.Duration, error) {
	out := make([]time.Duration, 0, len(s.Ladder))
	for _, raw := range s.Ladder {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("config: invalid ladder entry %q: %w", raw, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// EngineOptions builds the subset of engine.Option values Settings can
// produce on its own; solver adapters, the emitter, and the store are
// wired by the caller (cmd/concolic) since they need process-level
// resources (files, network) this package has no business touching.
func (s Settings) EngineOptions() ([]engine.Option, error) {
	var opts []engine.Option

	if s.Workers > 0 {
		opts = append(opts, engine.WithWorkers(s.Workers))
	}
	if s.SchedulingPolicy != "" {
		if _, ok := scheduler.ByName(s.SchedulingPolicy); !ok {
			return nil, fmt.Errorf("config: unknown scheduling policy %q", s.SchedulingPolicy)
		}
		opts = append(opts, engine.WithSchedulingPolicy(s.SchedulingPolicy))
	}
	if len(s.Ladder) > 0 {
		ladder, err := s.ParseLadder()
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithLadder(ladder))
	}
	if s.PathTimeout != "" {
		d, err := time.ParseDuration(s.PathTimeout)
		if err != nil {
			return nil, fmt.Errorf("config: invalid path_timeout %q: %w", s.PathTimeout, err)
		}
		opts = append(opts, engine.WithPathTimeout(d))
	}
	if s.CoveragePruningWindow > 0 {
		opts = append(opts, engine.WithCoveragePruningWindow(s.CoveragePruningWindow))
	}
	if s.MaxIterations > 0 {
		opts = append(opts, engine.WithMaxIterations(s.MaxIterations))
	}
	if s.WallClockBudget != "" {
		d, err := time.ParseDuration(s.WallClockBudget)
		if err != nil {
			return nil, fmt.Errorf("config: invalid wall_clock_budget %q: %w", s.WallClockBudget, err)
		}
		opts = append(opts, engine.WithWallClockBudget(d))
	}
	if s.PerQueryTimeout != "" {
		d, err := time.ParseDuration(s.PerQueryTimeout)
		if err != nil {
			return nil, fmt.Errorf("config: invalid per_query_timeout %q: %w", s.PerQueryTimeout, err)
		}
		opts = append(opts, engine.WithPerQueryTimeout(d))
	}
	opts = append(opts, engine.WithSeed(s.Seed))
	return opts, nil
}
