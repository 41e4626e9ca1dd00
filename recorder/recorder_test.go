package recorder

import (
	"testing"

	"github.com/concolic-go/concolic/constraint"
	"github.com/concolic-go/concolic/symbolic"
)

func cond(n int64, dir bool) (bool, *symbolic.Expr) {
	return dir, symbolic.Lt(symbolic.Var("x"), symbolic.ConstInt(n))
}

func TestWhichBranchGrowsTree(t *testing.T) {
	tree := constraint.NewTree()
	r := New(tree)
	r.Reset(nil)

	dir, expr := cond(10, true)
	r.WhichBranch(dir, expr)

	if len(tree.Root.Children) != 1 {
		t.Fatalf("expected 1 child after first branch, got %d", len(tree.Root.Children))
	}
	if r.Current() != tree.Root.Children[0] {
		t.Fatalf("cursor should advance to the new child")
	}
	fresh := r.DrainNew()
	if len(fresh) != 1 {
		t.Fatalf("expected 1 newly recorded constraint, got %d", len(fresh))
	}
}

func TestWhichBranchBothChildrenMarksProcessed(t *testing.T) {
	tree := constraint.NewTree()
	r := New(tree)

	r.Reset(nil)
	dir, expr := cond(10, true)
	r.WhichBranch(dir, expr)
	first := r.Current()

	r.Reset(nil)
	_, expr2 := cond(10, true)
	r.WhichBranch(false, expr2) // opposite direction, same expression

	if !first.Processed {
		t.Fatalf("first child should be processed once its sibling exists")
	}
	if len(tree.Root.Children) != 2 {
		t.Fatalf("expected both directions recorded as children, got %d", len(tree.Root.Children))
	}
	for _, c := range tree.Root.Children {
		if !c.Processed {
			t.Fatalf("all children should be processed once both directions are present")
		}
	}
}

func TestReplayMismatchIsRecordedNotFatal(t *testing.T) {
	tree := constraint.NewTree()
	r := New(tree)

	r.Reset(nil)
	_, expr := cond(10, true)
	r.WhichBranch(true, expr)
	target := r.Current()

	r.Reset(target)
	_, expr2 := cond(10, true)
	r.WhichBranch(true, expr2) // replay expects the target's branch flipped; retracing it is a mismatch

	if len(r.Mismatches) == 0 {
		t.Fatalf("expected a recorded mismatch")
	}
}

func TestIdempotentReplay(t *testing.T) {
	tree := constraint.NewTree()
	r := New(tree)

	r.Reset(nil)
	_, expr := cond(10, true)
	r.WhichBranch(true, expr)
	target := r.Current()

	r.Reset(target)
	_, expr2 := cond(10, true)
	r.WhichBranch(true, expr2)

	if r.Current() != target {
		t.Fatalf("replaying the identical path should land on the same node")
	}
	if len(r.Mismatches) != 1 {
		t.Fatalf("expected exactly one mismatch (the unflipped target branch) when the path is retraced identically, got %v", r.Mismatches)
	}
}
