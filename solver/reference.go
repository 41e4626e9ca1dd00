package solver

import (
	"context"
	"strings"
	"time"

	"github.com/concolic-go/concolic/constraint"
	"github.com/concolic-go/concolic/symbolic"
)

// ReferenceAdapter is a small, deterministic stand-in for a real SMT
// solver: it enumerates a bounded candidate space (a fixed integer range
// plus every string literal mentioned in the asserts or the query, lightly
// mutated) and returns the first candidate that satisfies every assert and
// the negation of the query.
// It exists because real back ends are explicitly out of scope; it is
// what lets this repository's engine and end-to-end tests run without an
// installed z3/cvc5 binary.
type ReferenceAdapter struct {
	IntRange int // enumerate [-IntRange, IntRange]; 0 means use the default
}

func NewReferenceAdapter() *ReferenceAdapter {
	return &ReferenceAdapter{IntRange: 64}
}

func (r *ReferenceAdapter) Name() string { return "reference" }

func (r *ReferenceAdapter) FindCounterexample(ctx context.Context, asserts []constraint.Predicate, query constraint.Predicate, timeout time.Duration) (Outcome, Model, float64, error) {
	start := time.Now()
	deadline := start.Add(timeout)

	// A solve looks for a counterexample to the query while the asserts
	// hold: the query's own direction is negated, so a SAT model takes
	// the opposite branch from the one recorded at this node.
	exprs := make([]*symbolic.Expr, 0, len(asserts)+1)
	for _, a := range asserts {
		exprs = append(exprs, a.AsQueryExpr())
	}
	exprs = append(exprs, query.AsQueryExpr().Negate())

	sorts := symbolic.InferVarSorts(exprs...)
	names := symbolic.SortedVarNames(sorts)

	strLiterals := collectStringLiterals(exprs)

	intRange := r.IntRange
	if intRange <= 0 {
		intRange = 64
	}

	found := make(map[string]interface{}, len(names))
	ok := r.search(ctx, deadline, exprs, sorts, names, 0, found, strLiterals, intRange)
	cpu := time.Since(start).Seconds()

	if ctx.Err() != nil {
		return UNKNOWN, nil, cpu, nil
	}
	if time.Now().After(deadline) {
		return UNKNOWN, nil, cpu, nil
	}
	if !ok {
		return UNSAT, nil, cpu, nil
	}
	model := Model{}
	for k, v := range found {
		model[k] = v
	}
	return SAT, model, cpu, nil
}

func (r *ReferenceAdapter) search(ctx context.Context, deadline time.Time, exprs []*symbolic.Expr, sorts map[string]string, names []string, idx int, assignment map[string]interface{}, strLiterals []string, intRange int) bool {
	if idx == len(names) {
		return allSatisfied(exprs, assignment)
	}
	name := names[idx]
	if ctx.Err() != nil || time.Now().After(deadline) {
		return false
	}
	switch sorts[name] {
	case "String":
		candidates := append([]string{""}, strLiterals...)
		for _, c := range candidates {
			assignment[name] = c
			if r.search(ctx, deadline, exprs, sorts, names, idx+1, assignment, strLiterals, intRange) {
				return true
			}
		}
		delete(assignment, name)
		return false
	default:
		for v := -intRange; v <= intRange; v++ {
			if ctx.Err() != nil || time.Now().After(deadline) {
				return false
			}
			assignment[name] = int64(v)
			if r.search(ctx, deadline, exprs, sorts, names, idx+1, assignment, strLiterals, intRange) {
				return true
			}
		}
		delete(assignment, name)
		return false
	}
}

func allSatisfied(exprs []*symbolic.Expr, env map[string]interface{}) bool {
	for _, e := range exprs {
		v, err := symbolic.Eval(e, env)
		if err != nil {
			return false
		}
		b, ok := v.(bool)
		if !ok || !b {
			return false
		}
	}
	return true
}

func collectStringLiterals(exprs []*symbolic.Expr) []string {
	seen := map[string]struct{}{}
	var lits []string
	var walk func(e *symbolic.Expr)
	walk = func(e *symbolic.Expr) {
		if e == nil {
			return
		}
		if e.Kind == symbolic.KindConstString {
			if _, ok := seen[e.StrVal]; !ok {
				seen[e.StrVal] = struct{}{}
				lits = append(lits, e.StrVal)
				// also try a couple of cheap mutations: drop-last, upper,
				// so negated-length/content queries have something to find.
				if len(e.StrVal) > 0 {
					trimmed := e.StrVal[:len(e.StrVal)-1]
					if _, ok := seen[trimmed]; !ok {
						seen[trimmed] = struct{}{}
						lits = append(lits, trimmed)
					}
				}
				upper := strings.ToUpper(e.StrVal)
				if _, ok := seen[upper]; !ok {
					seen[upper] = struct{}{}
					lits = append(lits, upper)
				}
			}
		}
		for _, c := range e.Children {
			walk(c)
		}
	}
	for _, e := range exprs {
		walk(e)
	}
	return lits
}
