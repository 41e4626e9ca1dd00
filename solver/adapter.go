// Package solver defines the abstract solver-adapter contract the
// exploration engine drives, plus a bounded-enumeration reference
// implementation and a subprocess adapter that shells out to a real
// SMT-LIB2-speaking binary (z3, cvc5) when one is available on PATH.
package solver

import (
	"context"
	"time"

	"github.com/concolic-go/concolic/constraint"
)

// Outcome is the three-valued result an adapter reports for a query.
type Outcome int

const (
	UNSAT Outcome = iota
	SAT
	UNKNOWN
)

func (o Outcome) String() string {
	switch o {
	case SAT:
		return "SAT"
	case UNSAT:
		return "UNSAT"
	default:
		return "UNKNOWN"
	}
}

// Model maps an input name to the base-type value (int64 or string) an
// adapter found satisfies the query, when the outcome is SAT.
type Model map[string]interface{}

// Adapter is the abstract contract every solver back end satisfies: given
// an ordered list of assertions and a query predicate plus a soft timeout,
// return an outcome, a model (when SAT), and the CPU time spent.
//
// Implementations must treat timeout as a soft upper bound: exceeding it
// must surface as UNKNOWN, never a crash or a hang. The engine invokes
// each call in its own goroutine under a per-slot cancellable context
// (see Engine.launch); an adapter itself never needs to implement
// cancellation beyond honouring ctx.Done().
type Adapter interface {
	Name() string
	FindCounterexample(ctx context.Context, asserts []constraint.Predicate, query constraint.Predicate, timeout time.Duration) (Outcome, Model, float64, error)
}

// PairForInputs implements the multi-solver mode's pairing rule from the
// exploration engine's design: string-containing queries pair (cvc,
// z3str2); everything else pairs (z3, cvc).
func PairForInputs(hasStringInput bool, registry map[string]Adapter) (Adapter, Adapter) {
	if hasStringInput {
		return registry["cvc"], registry["z3str2"]
	}
	return registry["z3"], registry["cvc"]
}
