package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/concolic-go/concolic/config"
	"github.com/concolic-go/concolic/emit"
	"github.com/concolic-go/concolic/engine"
	"github.com/concolic-go/concolic/invocation"
	"github.com/concolic-go/concolic/recorder"
	"github.com/concolic-go/concolic/solver"
	"github.com/concolic-go/concolic/store"
)

var exploreFlags struct {
	configPath string
	sets       []string

	workers          int
	schedulingPolicy string
	solverName       string
	maxIterations    int
	wallClockBudget  string
	pathTimeout      string
	perQueryTimeout  string
	coverageWindow   int

	z3Bin     string
	cvcBin    string
	z3str2Bin string
	queryDir  string

	jsonLog bool
	metrics bool

	graphOutput string
	dotOutput   string
}

var exploreCmd = &cobra.Command{
	Use:   "explore <program>",
	Short: "Explore one of the bundled instrumented programs",
	Args:  cobra.ExactArgs(1),
	RunE:  runExplore,
}

func init() {
	f := exploreCmd.Flags()
	f.StringVar(&exploreFlags.configPath, "config", "", "YAML settings file (defaults are used for anything absent)")
	f.StringArrayVar(&exploreFlags.sets, "set", nil, "override a setting, e.g. --set workers=8 (repeatable)")

	f.IntVar(&exploreFlags.workers, "workers", 0, "number of solver worker slots (0: use config/default)")
	f.StringVar(&exploreFlags.schedulingPolicy, "scheduling-policy", "", "central_queue|tags|express_checkout|preemptive")
	f.StringVar(&exploreFlags.solverName, "solver", "", "z3|cvc|z3str2|multi")
	f.IntVar(&exploreFlags.maxIterations, "max-iterations", 0, "stop after this many re-executions (0: unbounded)")
	f.StringVar(&exploreFlags.wallClockBudget, "wall-clock-budget", "", "e.g. 30s, 2m (empty: unbounded)")
	f.StringVar(&exploreFlags.pathTimeout, "path-timeout", "", "per-path time budget the pruner enforces")
	f.StringVar(&exploreFlags.perQueryTimeout, "per-query-timeout", "", "first rung of the escalation ladder, e.g. 250ms")
	f.IntVar(&exploreFlags.coverageWindow, "coverage-pruning-window", 0, "prune a branch after this many re-executions with no new coverage (0: use config/default)")

	f.StringVar(&exploreFlags.z3Bin, "z3-bin", "", "path to a real z3 binary (absent: use the built-in reference solver)")
	f.StringVar(&exploreFlags.cvcBin, "cvc-bin", "", "path to a real cvc binary")
	f.StringVar(&exploreFlags.z3str2Bin, "z3str2-bin", "", "path to a real z3str2 binary")
	f.StringVar(&exploreFlags.queryDir, "query-store-dir", "", "directory to persist every SMT-LIB2 query script (empty: don't persist)")

	f.BoolVar(&exploreFlags.jsonLog, "json-log", false, "emit events as JSON lines instead of text")
	f.BoolVar(&exploreFlags.metrics, "metrics", false, "record Prometheus metrics on the default registry")

	f.StringVar(&exploreFlags.graphOutput, "graph-output", "", "write the binary execution graph to this path")
	f.StringVar(&exploreFlags.dotOutput, "dot-output", "", "write a Graphviz DOT export of the execution graph to this path")
}

func runExplore(cmd *cobra.Command, args []string) error {
	programName := args[0]
	specFn, ok := fixtureRegistry[programName]
	if !ok {
		return fmt.Errorf("unknown program %q (run 'concolic list' for the available ones)", programName)
	}
	spec := specFn()

	settings, err := config.Load(exploreFlags.configPath, exploreFlags.sets)
	if err != nil {
		return err
	}
	applyFlagOverrides(&settings)

	opts, err := settings.EngineOptions()
	if err != nil {
		return err
	}

	adapters := buildAdapters(settings)
	solverName := settings.Solver
	if solverName == "" {
		solverName = "z3"
	}
	opts = append(opts, engine.WithSolver(solverName, adapters))

	jsonLog := exploreFlags.jsonLog || settings.Emitter == "log-json"
	switch {
	case settings.Emitter == "null":
		opts = append(opts, engine.WithEmitter(emit.NewNullEmitter()))
	case jsonLog:
		opts = append(opts, engine.WithEmitter(emit.NewLogEmitter(cmd.OutOrStdout(), true, ^uintptr(0))))
	default:
		opts = append(opts, engine.WithEmitter(emit.NewLogEmitter(cmd.ErrOrStderr(), false, os.Stderr.Fd())))
	}
	if settings.Metrics {
		opts = append(opts, engine.WithMetrics(engine.NewMetrics(nil)))
	}
	opts = append(opts, engine.WithStore(store.NewMemStore()))

	inv := invocation.New(spec)
	e, err := engine.New(inv, spec.InitialValues, opts...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res, err := e.Explore(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "iterations=%d solve_time=%.3fs nodes=%d discovered=%v\n",
		res.Iterations, res.TotalSolveTime, len(res.Tree.Nodes()), res.DiscoveredResults)
	if len(res.PolicyViolations) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "policy_violations=%v\n", res.PolicyViolations)
	}

	if err := writeOutputs(res, settings); err != nil {
		return err
	}

	if spec.ExpectedResultSet != nil && !oraclePassed(spec.ExpectedResultSet(), res.DiscoveredResults) {
		return fmt.Errorf("oracle failed: expected result set not fully discovered")
	}
	return nil
}

func applyFlagOverrides(s *config.Settings) {
	if exploreFlags.workers > 0 {
		s.Workers = exploreFlags.workers
	}
	if exploreFlags.schedulingPolicy != "" {
		s.SchedulingPolicy = exploreFlags.schedulingPolicy
	}
	if exploreFlags.solverName != "" {
		s.Solver = exploreFlags.solverName
	}
	if exploreFlags.maxIterations > 0 {
		s.MaxIterations = exploreFlags.maxIterations
	}
	if exploreFlags.wallClockBudget != "" {
		s.WallClockBudget = exploreFlags.wallClockBudget
	}
	if exploreFlags.pathTimeout != "" {
		s.PathTimeout = exploreFlags.pathTimeout
	}
	if exploreFlags.perQueryTimeout != "" {
		s.PerQueryTimeout = exploreFlags.perQueryTimeout
	}
	if exploreFlags.coverageWindow > 0 {
		s.CoveragePruningWindow = exploreFlags.coverageWindow
	}
	if exploreFlags.queryDir != "" {
		s.QueryStoreDir = exploreFlags.queryDir
	}
	if exploreFlags.graphOutput != "" {
		s.GraphOutput = exploreFlags.graphOutput
	}
	if exploreFlags.dotOutput != "" {
		s.DotOutput = exploreFlags.dotOutput
	}
	if exploreFlags.metrics {
		s.Metrics = true
	}
}

// buildAdapters wires a SubprocessAdapter for every solver a binary path
// was given for, falling back to a single shared ReferenceAdapter for
// the rest, so "concolic explore" runs out of the box without z3/cvc5
// installed.
func buildAdapters(s config.Settings) map[string]solver.Adapter {
	qs := solver.QueryStore{Dir: s.QueryStoreDir}
	ref := solver.NewReferenceAdapter()
	adapters := map[string]solver.Adapter{"z3": ref, "cvc": ref, "z3str2": ref}

	if exploreFlags.z3Bin != "" {
		adapters["z3"] = solver.NewZ3Adapter(exploreFlags.z3Bin, qs)
	}
	if exploreFlags.cvcBin != "" {
		adapters["cvc"] = solver.NewCVCAdapter(exploreFlags.cvcBin, qs)
	}
	if exploreFlags.z3str2Bin != "" {
		adapters["z3str2"] = solver.NewZ3Str2Adapter(exploreFlags.z3str2Bin, qs)
	}
	return adapters
}

func writeOutputs(res *engine.Result, s config.Settings) error {
	if s.GraphOutput != "" {
		data, err := store.EncodeGraph(store.Snapshot(res.Tree))
		if err != nil {
			return err
		}
		if err := os.WriteFile(s.GraphOutput, data, 0o644); err != nil {
			return fmt.Errorf("writing graph output: %w", err)
		}
	}
	if s.DotOutput != "" {
		if err := os.WriteFile(s.DotOutput, []byte(recorder.ToDot(res.Tree)), 0o644); err != nil {
			return fmt.Errorf("writing dot output: %w", err)
		}
	}
	return nil
}

func oraclePassed(expected map[interface{}]struct{}, discovered []interface{}) bool {
	have := make(map[interface{}]struct{}, len(discovered))
	for _, d := range discovered {
		have[d] = struct{}{}
	}
	for want := range expected {
		if _, ok := have[want]; !ok {
			return false
		}
	}
	return true
}

