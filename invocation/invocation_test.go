package invocation

import (
	"testing"

	"github.com/concolic-go/concolic/constraint"
	"github.com/concolic-go/concolic/recorder"
)

func newTree() *recorder.PathRecorder {
	return recorder.New(constraint.NewTree())
}

func TestCallFunctionBasic(t *testing.T) {
	spec := FuncSpec{
		Name:          "double",
		ArgNames:      []string{"x"},
		InitialValues: map[string]interface{}{"x": int64(0)},
		Entry: func(rec *recorder.PathRecorder, args map[string]SymValue) (interface{}, error) {
			return args["x"].Concrete.(int64) * 2, nil
		},
	}
	inv := New(spec)
	rec := newTree()
	rec.Reset(nil)

	result, err := inv.CallFunction(rec, map[string]interface{}{"x": int64(4)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != int64(8) {
		t.Fatalf("expected 8, got %v", result)
	}
}

func TestCallFunctionFallsBackToInitialValue(t *testing.T) {
	spec := FuncSpec{
		ArgNames:      []string{"x"},
		InitialValues: map[string]interface{}{"x": int64(42)},
		Entry: func(rec *recorder.PathRecorder, args map[string]SymValue) (interface{}, error) {
			return args["x"].Concrete, nil
		},
	}
	inv := New(spec)
	rec := newTree()
	rec.Reset(nil)

	result, err := inv.CallFunction(rec, map[string]interface{}{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != int64(42) {
		t.Fatalf("expected fallback to initial value 42, got %v", result)
	}
}

func TestPreconditionShortCircuits(t *testing.T) {
	called := false
	spec := FuncSpec{
		ArgNames: []string{"a", "b"},
		Precondition: func(v interface{}) bool {
			return v == int64(2)
		},
		Entry: func(rec *recorder.PathRecorder, args map[string]SymValue) (interface{}, error) {
			called = true
			return 0, nil
		},
	}
	inv := New(spec)
	rec := newTree()
	rec.Reset(nil)

	_, err := inv.CallFunction(rec, map[string]interface{}{"a": int64(0), "b": int64(1)})
	if err == nil {
		t.Fatalf("expected precondition failure")
	}
	if _, ok := err.(*PreconditionFailed); !ok {
		t.Fatalf("expected PreconditionFailed, got %T", err)
	}
	if called {
		t.Fatalf("entry point must not run when precondition rejects all args")
	}

	_, err = inv.CallFunction(rec, map[string]interface{}{"a": int64(2), "b": int64(1)})
	if err != nil {
		t.Fatalf("expected precondition to pass when one arg satisfies it: %v", err)
	}
	if !called {
		t.Fatalf("entry point should have run")
	}
}

func TestPolicyViolationIsNonFatal(t *testing.T) {
	spec := FuncSpec{
		ArgNames: []string{"x"},
		Policy: func(result interface{}) bool {
			return result == int64(0)
		},
		Entry: func(rec *recorder.PathRecorder, args map[string]SymValue) (interface{}, error) {
			return int64(1), nil
		},
	}
	inv := New(spec)
	rec := newTree()
	rec.Reset(nil)

	result, err := inv.CallFunction(rec, map[string]interface{}{"x": int64(0)})
	if result != int64(1) {
		t.Fatalf("expected the result to still be returned, got %v", result)
	}
	if _, ok := err.(*PolicyViolation); !ok {
		t.Fatalf("expected PolicyViolation, got %T (%v)", err, err)
	}
}

func TestProgramPanicIsCaptured(t *testing.T) {
	spec := FuncSpec{
		ArgNames: []string{"x"},
		Entry: func(rec *recorder.PathRecorder, args map[string]SymValue) (interface{}, error) {
			panic("boom")
		},
	}
	inv := New(spec)
	rec := newTree()
	rec.Reset(nil)

	_, err := inv.CallFunction(rec, map[string]interface{}{"x": int64(0)})
	pp, ok := err.(*ProgramPanic)
	if !ok {
		t.Fatalf("expected ProgramPanic, got %T (%v)", err, err)
	}
	if pp.Value != "boom" {
		t.Fatalf("expected panic value \"boom\", got %v", pp.Value)
	}
}

func TestExitAttemptIsCaptured(t *testing.T) {
	spec := FuncSpec{
		ArgNames: []string{"x"},
		Entry: func(rec *recorder.PathRecorder, args map[string]SymValue) (interface{}, error) {
			Exit(3)
			return nil, nil
		},
	}
	inv := New(spec)
	rec := newTree()
	rec.Reset(nil)

	_, err := inv.CallFunction(rec, map[string]interface{}{"x": int64(0)})
	ea, ok := err.(*ExitAttempt)
	if !ok {
		t.Fatalf("expected ExitAttempt, got %T (%v)", err, err)
	}
	if ea.Code != 3 {
		t.Fatalf("expected code 3, got %d", ea.Code)
	}
}
