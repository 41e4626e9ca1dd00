package engine

import (
	"time"

	"github.com/concolic-go/concolic/constraint"
)

// Pruned reports whether constraint c should be dropped before dispatch.
// pathTimeout <= 0 disables the path-time rule; coverageWindow <= 0
// disables the coverage-stagnation rule. Either rule independently
// returns "not pruned" when disabled.
func Pruned(c *constraint.Constraint, pathTimeout time.Duration, coverageWindow int) bool {
	if pathTimeout > 0 && pathTimeExceeded(c, pathTimeout) {
		return true
	}
	if coverageWindow > 0 && coverageStagnant(c, coverageWindow) {
		return true
	}
	return false
}

// pathTimeExceeded sums solving_time from c to the root, counting a node
// only when its Inputs differ from the node it was reached from — one
// contribution per distinct input frontier, so repeated re-executions
// that extend the same frontier aren't double counted.
func pathTimeExceeded(c *constraint.Constraint, budget time.Duration) bool {
	var total float64
	var prev *constraint.Constraint
	for n := c; n != nil; n = n.Parent {
		if prev == nil || !inputsEqual(n.Inputs, prev.Inputs) {
			total += n.SolvingTime
		}
		prev = n
	}
	return time.Duration(total*float64(time.Second)) > budget
}

// coverageStagnant scans the last K distinct-input ancestors of c (K =
// coverageWindow). If fewer than K distinct-input ancestors exist, the
// ancestor chain is too short and the rule does not prune — per the
// design note calling out this exact edge case. Otherwise, if the union
// of those ancestors' coverage is a non-empty superset of c's own
// coverage, extensions from here are judged unlikely to add anything new.
func coverageStagnant(c *constraint.Constraint, k int) bool {
	ancestors := distinctInputAncestors(c, k)
	if len(ancestors) < k {
		return false
	}
	union := constraint.NewCoverageSet()
	for _, a := range ancestors {
		union = union.Union(a.Coverage)
	}
	if len(union.Lines) == 0 && len(union.Branches) == 0 {
		return false
	}
	return union.Superset(c.Coverage)
}

func distinctInputAncestors(c *constraint.Constraint, limit int) []*constraint.Constraint {
	var out []*constraint.Constraint
	prevInputs := c.Inputs
	for n := c.Parent; n != nil && len(out) < limit; n = n.Parent {
		if !inputsEqual(n.Inputs, prevInputs) {
			out = append(out, n)
			prevInputs = n.Inputs
		}
	}
	return out
}

func inputsEqual(a, b map[string]constraint.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		bv, ok := b[k]
		if !ok || bv != v {
			return false
		}
	}
	return true
}
