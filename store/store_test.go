package store

import (
	"context"
	"testing"

	"github.com/concolic-go/concolic/constraint"
	"github.com/concolic-go/concolic/emit"
	"github.com/concolic-go/concolic/symbolic"
)

func buildSampleTree() *constraint.Tree {
	tree := constraint.NewTree()
	p := constraint.NewPredicate(symbolic.Lt(symbolic.Var("x"), symbolic.ConstInt(10)), true)
	child := tree.AddChild(tree.Root, p)
	child.Inputs = map[string]interface{}{"x": int64(3)}
	child.SolvingTime = 0.02
	child.BranchID = "n1"
	return tree
}

func testStoreRoundTrip(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	nodes := Snapshot(buildSampleTree())

	if err := s.SaveTree(ctx, "run-1", nodes); err != nil {
		t.Fatalf("SaveTree: %v", err)
	}
	got, err := s.LoadTree(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadTree: %v", err)
	}
	if len(got) != len(nodes) {
		t.Fatalf("expected %d nodes, got %d", len(nodes), len(got))
	}

	if _, err := s.LoadTree(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.SaveEvents(ctx, "run-1", []emit.Event{{RunID: "run-1", Msg: "seed"}}); err != nil {
		t.Fatalf("SaveEvents: %v", err)
	}
	pending, err := s.PendingEvents(ctx, 10)
	if err != nil {
		t.Fatalf("PendingEvents: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending event, got %d", len(pending))
	}
	if err := s.MarkEventsEmitted(ctx, []string{pending[0].ID}); err != nil {
		t.Fatalf("MarkEventsEmitted: %v", err)
	}
	pending, err = s.PendingEvents(ctx, 10)
	if err != nil {
		t.Fatalf("PendingEvents after mark: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending events after marking, got %d", len(pending))
	}
}

func TestMemStoreRoundTrip(t *testing.T) {
	testStoreRoundTrip(t, NewMemStore())
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	testStoreRoundTrip(t, s)
}

func TestSnapshotFlattensTree(t *testing.T) {
	nodes := Snapshot(buildSampleTree())
	if len(nodes) != 2 {
		t.Fatalf("expected root + one child, got %d", len(nodes))
	}
	root := nodes[0]
	if root.HasPredicate {
		t.Fatalf("expected root to have no predicate")
	}
	child := nodes[1]
	if !child.HasPredicate || !child.Result {
		t.Fatalf("expected child predicate with Result=true, got %+v", child)
	}
	if child.ExprSMT == "" {
		t.Fatalf("expected non-empty SMT-LIB2 rendering")
	}
}
