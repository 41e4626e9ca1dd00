package solver

import (
	"context"
	"testing"
	"time"

	"github.com/concolic-go/concolic/constraint"
	"github.com/concolic-go/concolic/symbolic"
)

func TestReferenceAdapterFindsSatisfyingInt(t *testing.T) {
	r := NewReferenceAdapter()
	// The recorded direction is x != 7; its counterexample is x == 7.
	query := constraint.NewPredicate(symbolic.Eq(symbolic.Var("x"), symbolic.ConstInt(7)), false)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	outcome, model, _, err := r.FindCounterexample(ctx, nil, query, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != SAT {
		t.Fatalf("expected SAT, got %v", outcome)
	}
	if model["x"] != int64(7) {
		t.Fatalf("expected x=7, got %v", model["x"])
	}
}

func TestReferenceAdapterUnsat(t *testing.T) {
	r := NewReferenceAdapter()
	r.IntRange = 2
	asserts := []constraint.Predicate{
		constraint.NewPredicate(symbolic.Eq(symbolic.Var("x"), symbolic.ConstInt(0)), true),
	}
	// Counterexample to "x != 1" is x == 1, which contradicts the assert.
	query := constraint.NewPredicate(symbolic.Eq(symbolic.Var("x"), symbolic.ConstInt(1)), false)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	outcome, model, _, err := r.FindCounterexample(ctx, asserts, query, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != UNSAT {
		t.Fatalf("expected UNSAT, got %v", outcome)
	}
	if model != nil {
		t.Fatalf("expected nil model for UNSAT")
	}
}

func TestReferenceAdapterStringQuery(t *testing.T) {
	r := NewReferenceAdapter()
	// The recorded direction is s != "foo"; its counterexample is s == "foo".
	query := constraint.NewPredicate(symbolic.Eq(symbolic.Var("s"), symbolic.ConstStr("foo")), false)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	outcome, model, _, err := r.FindCounterexample(ctx, nil, query, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != SAT || model["s"] != "foo" {
		t.Fatalf("expected SAT s=foo, got %v %v", outcome, model)
	}
}

func TestPairForInputs(t *testing.T) {
	registry := map[string]Adapter{
		"z3":     NewReferenceAdapter(),
		"cvc":    NewReferenceAdapter(),
		"z3str2": NewReferenceAdapter(),
	}
	a, b := PairForInputs(true, registry)
	if a != registry["cvc"] || b != registry["z3str2"] {
		t.Fatalf("expected (cvc, z3str2) pairing for string inputs")
	}
	a, b = PairForInputs(false, registry)
	if a != registry["z3"] || b != registry["cvc"] {
		t.Fatalf("expected (z3, cvc) pairing for non-string inputs")
	}
}
