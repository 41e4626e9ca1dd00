package engine

import (
	"fmt"
	"time"

	"github.com/concolic-go/concolic/emit"
	"github.com/concolic-go/concolic/scheduler"
	"github.com/concolic-go/concolic/solver"
	"github.com/concolic-go/concolic/store"
)

// DefaultLadder is the escalating timeout ladder used when no explicit
// ladder is configured.
var DefaultLadder = []time.Duration{
	130 * time.Millisecond, 260 * time.Millisecond, 520 * time.Millisecond,
	1040 * time.Millisecond, 2080 * time.Millisecond, 4160 * time.Millisecond,
	8320 * time.Millisecond, 16640 * time.Millisecond, 33280 * time.Millisecond,
}

// Config holds everything the exploration engine needs besides the
// invocation itself, built through the functional-option constructors
// below (Workers count, scheduling policy, timeout ladder, budgets,
// solver selection, observability).
type Config struct {
	Workers               int
	Policy                scheduler.Policy
	Ladder                []time.Duration
	PathTimeout            time.Duration
	CoveragePruningWindow  int
	MaxIterations          int
	WallClockBudget        time.Duration
	PerQueryTimeoutDefault time.Duration

	SolverName string // "z3" | "cvc" | "z3str2" | "multi"
	Adapters   map[string]solver.Adapter

	Emitter emit.Emitter
	Store   store.Store
	Metrics *Metrics

	seed int64
}

// Option configures an Engine at construction, mirroring the functional
// options style used throughout this codebase's configuration surfaces.
type Option func(*Config) error

func defaultConfig() Config {
	return Config{
		Workers:    4,
		Policy:     scheduler.CentralQueue,
		Ladder:     DefaultLadder,
		SolverName: "z3",
		Adapters:   map[string]solver.Adapter{},
		Emitter:    emit.NewNullEmitter(),
		Store:      store.NewMemStore(),
		seed:       1,
	}
}

// WithStore sets the persistence backend used to snapshot the
// constraint tree after each SAT-driven re-execution; defaults to an
// in-memory store.
func WithStore(s store.Store) Option {
	return func(c *Config) error {
		if s == nil {
			return fmt.Errorf("engine: store must not be nil")
		}
		c.Store = s
		return nil
	}
}

func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return fmt.Errorf("engine: worker count must be >= 1, got %d", n)
		}
		c.Workers = n
		return nil
	}
}

func WithSchedulingPolicy(name string) Option {
	return func(c *Config) error {
		p, ok := scheduler.ByName(name)
		if !ok {
			return fmt.Errorf("engine: unknown scheduling policy %q", name)
		}
		c.Policy = p
		return nil
	}
}

func WithLadder(ladder []time.Duration) Option {
	return func(c *Config) error {
		if len(ladder) == 0 {
			return fmt.Errorf("engine: timeout ladder must not be empty")
		}
		for i := 1; i < len(ladder); i++ {
			if ladder[i] <= ladder[i-1] {
				return fmt.Errorf("engine: timeout ladder must be strictly increasing")
			}
		}
		c.Ladder = ladder
		return nil
	}
}

func WithPathTimeout(d time.Duration) Option {
	return func(c *Config) error { c.PathTimeout = d; return nil }
}

func WithCoveragePruningWindow(k int) Option {
	return func(c *Config) error {
		if k < 0 {
			return fmt.Errorf("engine: coverage pruning window must be >= 0")
		}
		c.CoveragePruningWindow = k
		return nil
	}
}

func WithMaxIterations(n int) Option {
	return func(c *Config) error { c.MaxIterations = n; return nil }
}

func WithWallClockBudget(d time.Duration) Option {
	return func(c *Config) error { c.WallClockBudget = d; return nil }
}

// WithPerQueryTimeout overrides the ladder's first rung: the timeout a
// freshly discovered constraint is queued with before any escalation.
// Applied after WithLadder, so order Options accordingly.
func WithPerQueryTimeout(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return fmt.Errorf("engine: per-query timeout must be > 0")
		}
		if len(c.Ladder) > 1 && d >= c.Ladder[1] {
			return fmt.Errorf("engine: per-query timeout must be below the ladder's second rung")
		}
		ladder := make([]time.Duration, len(c.Ladder))
		copy(ladder, c.Ladder)
		ladder[0] = d
		c.Ladder = ladder
		c.PerQueryTimeoutDefault = d
		return nil
	}
}

func WithSolver(name string, adapters map[string]solver.Adapter) Option {
	return func(c *Config) error {
		switch name {
		case "z3", "cvc", "z3str2":
			if _, ok := adapters[name]; !ok {
				return fmt.Errorf("engine: no adapter registered for solver %q", name)
			}
		case "multi":
			for _, need := range []string{"z3", "cvc", "z3str2"} {
				if _, ok := adapters[need]; !ok {
					return fmt.Errorf("engine: multi-solver mode requires a %q adapter", need)
				}
			}
		default:
			return fmt.Errorf("engine: unknown solver %q", name)
		}
		c.SolverName = name
		c.Adapters = adapters
		return nil
	}
}

func WithEmitter(e emit.Emitter) Option {
	return func(c *Config) error { c.Emitter = e; return nil }
}

// WithMetrics attaches a Prometheus-backed Metrics instance; omit for no
// metrics recording (the default).
func WithMetrics(m *Metrics) Option {
	return func(c *Config) error { c.Metrics = m; return nil }
}

// WithSeed fixes the PRNG seed the preemptive scheduling policy uses, for
// reproducible tests.
func WithSeed(seed int64) Option {
	return func(c *Config) error { c.seed = seed; return nil }
}
