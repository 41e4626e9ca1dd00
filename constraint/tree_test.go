package constraint

import (
	"testing"

	"github.com/concolic-go/concolic/symbolic"
)

func xEq(n int64) Predicate {
	return NewPredicate(symbolic.Eq(symbolic.Var("x"), symbolic.ConstInt(n)), true)
}

func TestTreeIntegrityOnFreshTree(t *testing.T) {
	tree := NewTree()
	if err := tree.CheckIntegrity(); err != nil {
		t.Fatalf("fresh tree should be valid: %v", err)
	}
	if tree.Root.Parent != nil {
		t.Fatalf("root must have nil parent")
	}
}

func TestAddChildAndFindChild(t *testing.T) {
	tree := NewTree()
	p := xEq(14)
	if got := tree.Root.FindChild(p); got != nil {
		t.Fatalf("expected no child yet, got %v", got)
	}
	child := tree.AddChild(tree.Root, p)
	if got := tree.Root.FindChild(p); got != child {
		t.Fatalf("FindChild did not return the added child")
	}
	if err := tree.CheckIntegrity(); err != nil {
		t.Fatalf("tree should stay valid: %v", err)
	}
}

func TestAddChildDuplicatePanics(t *testing.T) {
	tree := NewTree()
	p := xEq(14)
	tree.AddChild(tree.Root, p)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on duplicate child predicate")
		}
	}()
	tree.AddChild(tree.Root, p)
}

func TestGetAssertsAndQuery(t *testing.T) {
	tree := NewTree()
	p1 := xEq(1)
	p2 := xEq(2)
	c1 := tree.AddChild(tree.Root, p1)
	c2 := tree.AddChild(c1, p2)

	asserts, query := c2.GetAssertsAndQuery()
	if len(asserts) != 1 {
		t.Fatalf("expected 1 assert (depth-1), got %d", len(asserts))
	}
	if !asserts[0].Equal(p1) {
		t.Fatalf("expected parent's predicate as the assert")
	}
	if !query.Equal(p2) {
		t.Fatalf("expected node's own predicate as the query")
	}
	if !c2.Processed {
		t.Fatalf("GetAssertsAndQuery must mark the node processed")
	}
}

func TestCoverageSupersetAndUnion(t *testing.T) {
	a := NewCoverageSet()
	a.Lines["f.go"] = map[int]struct{}{1: {}, 2: {}}
	b := NewCoverageSet()
	b.Lines["f.go"] = map[int]struct{}{1: {}}

	if !a.Superset(b) {
		t.Fatalf("a should be a superset of b")
	}
	if b.Superset(a) {
		t.Fatalf("b should not be a superset of a")
	}

	u := a.Union(b)
	if len(u.Lines["f.go"]) != 2 {
		t.Fatalf("union should have 2 lines, got %d", len(u.Lines["f.go"]))
	}
}
