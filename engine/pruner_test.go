package engine

import (
	"testing"
	"time"

	"github.com/concolic-go/concolic/constraint"
)

func withInputsAndSolvingTime(parent *constraint.Constraint, id int, inputs map[string]constraint.Value, solvingTime float64) *constraint.Constraint {
	p := constraint.NewPredicate(nil, true)
	n := &constraint.Constraint{ID: id, Parent: parent, Predicate: &p, Inputs: inputs, SolvingTime: solvingTime, Coverage: constraint.NewCoverageSet()}
	if parent != nil {
		parent.Children = append(parent.Children, n)
	}
	return n
}

func TestPathTimeExceededDedupsSameFrontier(t *testing.T) {
	tree := constraint.NewTree()
	in1 := map[string]constraint.Value{"x": int64(1)}
	a := withInputsAndSolvingTime(tree.Root, 1, in1, 0.5)
	b := withInputsAndSolvingTime(a, 2, in1, 0.5) // same inputs: should not double count
	c := withInputsAndSolvingTime(b, 3, map[string]constraint.Value{"x": int64(2)}, 0.5)

	if !Pruned(c, 900*time.Millisecond, 0) {
		t.Fatalf("expected prune: two distinct frontiers contribute 0.5+0.5=1.0s > 0.9s budget")
	}
	if Pruned(c, 1500*time.Millisecond, 0) {
		t.Fatalf("expected no prune under a looser budget")
	}
	if Pruned(c, 0, 0) {
		t.Fatalf("pathTimeout<=0 must disable the rule")
	}
}

func TestCoverageStagnationRequiresFullWindow(t *testing.T) {
	tree := constraint.NewTree()
	cov := constraint.NewCoverageSet()
	cov.Lines["f.go"] = map[int]struct{}{1: {}}

	a := withInputsAndSolvingTime(tree.Root, 1, map[string]constraint.Value{"x": int64(1)}, 0)
	a.Coverage = cov
	c := withInputsAndSolvingTime(a, 2, map[string]constraint.Value{"x": int64(2)}, 0)
	c.Coverage = cov

	// Only 2 distinct-input ancestors exist (a, and the input-less root);
	// K=3 requires 3, so no prune.
	if Pruned(c, 0, 3) {
		t.Fatalf("ancestor chain shorter than K must not prune")
	}
	if !Pruned(c, 0, 1) {
		t.Fatalf("expected prune when the single ancestor's coverage is a superset of c's")
	}
}

func TestCoverageStagnationDisabledWhenKZero(t *testing.T) {
	tree := constraint.NewTree()
	c := withInputsAndSolvingTime(tree.Root, 1, map[string]constraint.Value{"x": int64(1)}, 0)
	if Pruned(c, 0, 0) {
		t.Fatalf("K<=0 must disable the coverage rule")
	}
}
