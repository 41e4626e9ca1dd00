package engine

import (
	"testing"
	"time"

	"github.com/concolic-go/concolic/constraint"
)

func chain(depth int) *constraint.Constraint {
	tree := constraint.NewTree()
	n := tree.Root
	for i := 0; i < depth; i++ {
		p := constraint.NewPredicate(nil, i%2 == 0)
		// nil Expr is fine here: depth-only test, predicates are never
		// compared structurally by FindChild in this helper.
		child := &constraint.Constraint{ID: i + 1, Parent: n, Predicate: &p}
		n.Children = append(n.Children, child)
		n = child
	}
	return n
}

func TestQueueOrdersBySmallerTimeoutFirst(t *testing.T) {
	q := NewQueue()
	shallow := chain(1)
	deep := chain(5)
	q.Push(shallow, 2*time.Second)
	q.Push(deep, 1*time.Second)

	c, timeout, ok := q.Pop()
	if !ok || c != deep || timeout != time.Second {
		t.Fatalf("expected the smaller-timeout entry first")
	}
}

func TestQueueTieBreaksDeepestFirst(t *testing.T) {
	q := NewQueue()
	shallow := chain(1)
	deep := chain(5)
	q.Push(shallow, time.Second)
	q.Push(deep, time.Second)

	c, _, ok := q.Pop()
	if !ok || c != deep {
		t.Fatalf("expected the deeper node to win the timeout tie-break")
	}
}

func TestQueueEmptyPop(t *testing.T) {
	q := NewQueue()
	_, _, ok := q.Pop()
	if ok {
		t.Fatalf("expected Pop on empty queue to report not-ok")
	}
}
