// Package invocation wraps a program-under-test's entry point: it
// constructs symbolic argument values from a name->value map and calls
// the function, converting panics and process-exit attempts into
// recoverable results instead of letting them tear down the exploration
// engine. Resetting per-run state and measuring coverage are left to the
// caller.
package invocation

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/concolic-go/concolic/recorder"
	"github.com/concolic-go/concolic/symbolic"
)

// SymValue is the concrete+symbolic pairing a constructed argument
// carries: a concrete value the program actually runs with, and the
// symbolic expression that names it in the path predicate.
type SymValue struct {
	Concrete interface{}
	Sym      *symbolic.Expr
}

// ArgumentConstructor builds a SymValue for argument name from a concrete
// value (which may be nil, meaning "use the spec's initial value").
type ArgumentConstructor func(name string, val interface{}) SymValue

// DefaultConstructor wraps val as-is with a fresh symbolic variable.
func DefaultConstructor(name string, val interface{}) SymValue {
	return SymValue{Concrete: val, Sym: symbolic.Var(name)}
}

// EntryPoint is the instrumented program's entry function: given the
// recorder it must report branches to, and a name->SymValue argument map,
// it returns the program's result.
type EntryPoint func(rec *recorder.PathRecorder, args map[string]SymValue) (interface{}, error)

// FuncSpec describes one program under test.
type FuncSpec struct {
	Name          string
	ArgNames      []string
	InitialValues map[string]interface{}
	Constructors  map[string]ArgumentConstructor
	Entry         EntryPoint

	// Precondition, if set, is evaluated against every argument's
	// concrete value; CallFunction returns a precondition failure unless
	// at least one argument satisfies it. This mirrors the
	// any(precondition(arg) for arg in args.values()) short-circuit.
	Precondition func(val interface{}) bool

	// Policy, if set, is evaluated against the result; a false result is
	// logged by the engine as a policy violation but never stops
	// exploration.
	Policy func(result interface{}) bool

	// ExpectedResult and ExpectedResultSet are the end-of-exploration
	// oracles: a bag (possibly repeating values) or a set. At most one
	// is normally set; both are optional.
	ExpectedResult    func() []interface{}
	ExpectedResultSet func() map[interface{}]struct{}
}

// Invocation is a FuncSpec bound to the recorder it will drive.
type Invocation struct {
	Spec FuncSpec
}

func New(spec FuncSpec) *Invocation {
	return &Invocation{Spec: spec}
}

// CreateArgumentValue builds the SymValue for one argument, falling back
// to the spec's initial value when val is nil.
func (inv *Invocation) CreateArgumentValue(name string, val interface{}) SymValue {
	if val == nil {
		val = inv.Spec.InitialValues[name]
	}
	ctor := inv.Spec.Constructors[name]
	if ctor == nil {
		ctor = DefaultConstructor
	}
	return ctor(name, val)
}

// PreconditionFailed is returned (not panicked) by CallFunction when the
// precondition rejects every supplied argument.
type PreconditionFailed struct {
	Args map[string]interface{}
}

func (e *PreconditionFailed) Error() string {
	return fmt.Sprintf("invocation: precondition rejected all arguments: %v", e.Args)
}

// PolicyViolation is returned alongside a valid result when Policy
// rejects it; the engine logs it and continues exploring.
type PolicyViolation struct {
	Result interface{}
}

func (e *PolicyViolation) Error() string {
	return fmt.Sprintf("invocation: policy violation on result %v", e.Result)
}

// ProgramPanic wraps a recovered panic from the program under test,
// attaching the first user-source stack frame as a stable id so repeated
// discoveries of the same bug can be correlated.
type ProgramPanic struct {
	Value interface{}
	ID    string
}

func (e *ProgramPanic) Error() string {
	return fmt.Sprintf("invocation: program panicked at %s: %v", e.ID, e.Value)
}

// ExitAttempt is the error CallFunction returns when the program under
// test calls Exit instead of terminating normally. The engine treats it
// exactly like any other captured exception: logged, not fatal.
type ExitAttempt struct {
	Code int
}

func (e *ExitAttempt) Error() string {
	return fmt.Sprintf("invocation: program attempted exit(%d)", e.Code)
}

type exitSignal struct{ code int }

// Exit is what an instrumented program under test must call instead of
// os.Exit: it unwinds via panic/recover so CallFunction can convert it
// into an ExitAttempt, keeping the driver process alive.
func Exit(code int) {
	panic(exitSignal{code: code})
}

// CallFunction resets per-run state is the caller's job (recorder.Reset);
// this method only constructs arguments, checks the precondition, invokes
// the entry point, and classifies the outcome.
func (inv *Invocation) CallFunction(rec *recorder.PathRecorder, concreteArgs map[string]interface{}) (result interface{}, err error) {
	if inv.Spec.Precondition != nil {
		anySatisfied := false
		for _, v := range concreteArgs {
			if inv.Spec.Precondition(v) {
				anySatisfied = true
				break
			}
		}
		if !anySatisfied {
			return nil, &PreconditionFailed{Args: concreteArgs}
		}
	}

	symArgs := make(map[string]SymValue, len(inv.Spec.ArgNames))
	for _, name := range inv.Spec.ArgNames {
		symArgs[name] = inv.CreateArgumentValue(name, concreteArgs[name])
	}

	result, err = inv.call(rec, symArgs)
	if err != nil {
		return result, err
	}
	if inv.Spec.Policy != nil && !inv.Spec.Policy(result) {
		return result, &PolicyViolation{Result: result}
	}
	return result, nil
}

func (inv *Invocation) call(rec *recorder.PathRecorder, args map[string]SymValue) (result interface{}, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if sig, ok := r.(exitSignal); ok {
			err = &ExitAttempt{Code: sig.code}
			return
		}
		err = &ProgramPanic{Value: r, ID: firstUserFrame()}
	}()
	return inv.Spec.Entry(rec, args)
}

// firstUserFrame walks the call stack and returns "file:line" for the
// first frame outside this package and the recorder package — i.e. the
// first frame that belongs to the program under test.
func firstUserFrame() string {
	for skip := 2; skip < 32; skip++ {
		pc, file, line, ok := runtime.Caller(skip)
		if !ok {
			break
		}
		if strings.Contains(file, "/invocation/") || strings.Contains(file, "/recorder/") {
			continue
		}
		fn := runtime.FuncForPC(pc)
		if fn != nil && (strings.Contains(fn.Name(), "concolic/invocation") || strings.HasPrefix(fn.Name(), "runtime.")) {
			continue
		}
		return fmt.Sprintf("%s:%d", file, line)
	}
	return "unknown"
}
