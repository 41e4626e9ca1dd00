package fixtures

import (
	"context"
	"testing"
	"time"

	"github.com/concolic-go/concolic/engine"
	"github.com/concolic-go/concolic/invocation"
	"github.com/concolic-go/concolic/solver"
)

// smallAdapters returns a reference adapter bounded to a small integer
// range, keeping the int-argument fixtures' exhaustive search fast.
func smallAdapters(intRange int) map[string]solver.Adapter {
	ref := &solver.ReferenceAdapter{IntRange: intRange}
	return map[string]solver.Adapter{"z3": ref, "cvc": ref, "z3str2": ref}
}

func stringAdapters() map[string]solver.Adapter {
	ref := solver.NewReferenceAdapter()
	return map[string]solver.Adapter{"z3": ref, "cvc": ref, "z3str2": ref}
}

func resultSet(results []interface{}) map[interface{}]bool {
	set := make(map[interface{}]bool, len(results))
	for _, r := range results {
		set[r] = true
	}
	return set
}

func explore(t *testing.T, spec invocation.FuncSpec, initial map[string]interface{}, adapters map[string]solver.Adapter) []interface{} {
	t.Helper()
	inv := invocation.New(spec)
	e, err := engine.New(inv, initial,
		engine.WithSolver("z3", adapters),
		engine.WithWorkers(2),
		engine.WithMaxIterations(200),
		engine.WithWallClockBudget(10*time.Second),
	)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	res, err := e.Explore(context.Background())
	if err != nil {
		t.Fatalf("Explore: %v", err)
	}
	return res.DiscoveredResults
}

func TestRomanToIntDiscoversValidInvalidAndEmpty(t *testing.T) {
	results := explore(t, RomanToIntSpec(), map[string]interface{}{"in1": "XIV"}, stringAdapters())
	set := resultSet(results)
	if !set[int64(14)] {
		t.Errorf("expected 14 (the seed's own value) among discovered results, got %v", results)
	}
	if !set[int64(-1)] {
		t.Errorf("expected -1 (invalid input) among discovered results, got %v", results)
	}
	if !set[int64(0)] {
		t.Errorf("expected 0 (empty input) among discovered results, got %v", results)
	}
}

func TestEscapeDiscoversAllThreeOutcomes(t *testing.T) {
	results := explore(t, EscapeSpec(), map[string]interface{}{"string": "foo"}, stringAdapters())
	set := resultSet(results)
	for _, want := range []int64{0, 1, 2} {
		if !set[want] {
			t.Errorf("expected %d among discovered results, got %v", want, results)
		}
	}
}

func TestStrLowerDiscoversAllThreeOutcomes(t *testing.T) {
	results := explore(t, StrLowerSpec(), map[string]interface{}{"s": "foo"}, stringAdapters())
	set := resultSet(results)
	for _, want := range []int64{0, 1, 2} {
		if !set[want] {
			t.Errorf("expected %d among discovered results, got %v", want, results)
		}
	}
}

func TestStrSplitDiscoversBothOutcomes(t *testing.T) {
	results := explore(t, StrSplitSpec(), map[string]interface{}{"s": "foo"}, stringAdapters())
	set := resultSet(results)
	for _, want := range []int64{0, 1} {
		if !set[want] {
			t.Errorf("expected %d among discovered results, got %v", want, results)
		}
	}
}

func TestPolicyLogsViolationAndFindsZero(t *testing.T) {
	initial := map[string]interface{}{"a": int64(0), "b": int64(0), "c": int64(3)}
	results := explore(t, PolicySpec(), initial, smallAdapters(8))
	set := resultSet(results)
	if !set[int64(1)] {
		t.Errorf("expected the seed's non-zero-sum outcome (1, logged as a policy violation) among discovered results, got %v", results)
	}
	if !set[int64(0)] {
		t.Errorf("expected the sum-equals-six outcome (0) among discovered results, got %v", results)
	}
}

func TestPreconditionRejectsSomeInputs(t *testing.T) {
	initial := map[string]interface{}{"a": int64(0), "b": int64(2), "c": int64(3)}
	inv := invocation.New(PreconditionSpec())
	e, err := engine.New(inv, initial,
		engine.WithSolver("z3", smallAdapters(8)),
		engine.WithWorkers(2),
		engine.WithMaxIterations(200),
		engine.WithWallClockBudget(10*time.Second),
	)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	res, err := e.Explore(context.Background())
	if err != nil {
		t.Fatalf("Explore: %v", err)
	}

	if len(res.DiscoveredResults) == 0 {
		t.Fatalf("expected at least one discovered result, got none")
	}
	// Precondition rejections show up as a "false" entry in
	// DiscoveredResults (see oneExecution's PreconditionFailed case): the
	// all-ones witness a=b=c=1 has no argument equal to 2.
	if !resultSet(res.DiscoveredResults)[false] {
		t.Errorf("expected a precondition rejection (false) among discovered results, got %v", res.DiscoveredResults)
	}
}
