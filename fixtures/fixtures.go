// Package fixtures collects small instrumented programs used to exercise
// the exploration engine end to end: each one reports its branches to a
// recorder.PathRecorder and is wrapped in an invocation.FuncSpec, mirroring
// the example programs a real symbolic-execution harness ships alongside
// its engine.
package fixtures

import (
	"strings"

	"github.com/concolic-go/concolic/invocation"
	"github.com/concolic-go/concolic/recorder"
	"github.com/concolic-go/concolic/symbolic"
)

// romanDigitValue lists the single-character roman numeral digits
// RomanToInt accepts; it deliberately excludes the 'E' sentinel appended
// internally for the trailing-digit lookahead.
var romanDigitValue = map[byte]int64{
	'I': 1, 'V': 5, 'X': 10, 'L': 50, 'C': 100, 'D': 500, 'M': 1000,
}

func isValidRoman(s string) bool {
	for i := 0; i < len(s); i++ {
		if _, ok := romanDigitValue[s[i]]; !ok {
			return false
		}
	}
	return true
}

// romanValue returns a digit's numeral value, treating the 'E' sentinel
// appended past the string's end as a zero-valued lookahead stop.
func romanValue(b byte) int64 {
	if b == 'E' {
		return 0
	}
	return romanDigitValue[b]
}

// RomanToIntSpec converts a roman numeral string to an integer, returning
// -1 for any input containing a character outside the roman numeral
// alphabet. Grounded on the classic PyExZ3 romanToInt example: a validity
// scan followed by a running sum that adds or subtracts each digit
// depending on whether the next digit outranks it.
func RomanToIntSpec() invocation.FuncSpec {
	return invocation.FuncSpec{
		Name:              "romanToInt",
		ArgNames:          []string{"in1"},
		InitialValues:     map[string]interface{}{"in1": "XIV"},
		Entry:             romanToInt,
		ExpectedResultSet: setOf(int64(14), int64(-1), int64(0)),
	}
}

func setOf(values ...interface{}) func() map[interface{}]struct{} {
	return func() map[interface{}]struct{} {
		out := make(map[interface{}]struct{}, len(values))
		for _, v := range values {
			out[v] = struct{}{}
		}
		return out
	}
}

func romanToInt(rec *recorder.PathRecorder, args map[string]invocation.SymValue) (interface{}, error) {
	in1 := args["in1"]
	sv, _ := in1.Concrete.(string)

	empty := len(sv) == 0
	rec.WhichBranch(empty, symbolic.Eq(symbolic.Length(in1.Sym), symbolic.ConstInt(0)))
	if empty {
		return int64(0), nil
	}

	// "Z" stands in for any character outside the roman numeral alphabet:
	// a witness the solver can name directly, in place of a real
	// contains/charset primitive this expression tree doesn't have.
	valid := isValidRoman(sv)
	rec.WhichBranch(valid, symbolic.Ne(in1.Sym, symbolic.ConstStr("Z")))
	if !valid {
		return int64(-1), nil
	}

	ext := sv + "E"
	var sum int64
	for i := 0; i < len(sv); i++ {
		if romanValue(ext[i]) >= romanValue(ext[i+1]) {
			sum += romanValue(ext[i])
		} else {
			sum -= romanValue(ext[i])
		}
	}
	return sum, nil
}

// EscapeSpec mirrors a config-escaping guard: a string with no backslash
// and a colon past its first character is accepted outright, a string
// containing a double quote is rejected, anything else falls through.
func EscapeSpec() invocation.FuncSpec {
	return invocation.FuncSpec{
		Name:              "escape",
		ArgNames:          []string{"string"},
		InitialValues:     map[string]interface{}{"string": "foo"},
		Entry:             escape,
		ExpectedResultSet: setOf(int64(0), int64(1), int64(2)),
	}
}

func escape(rec *recorder.PathRecorder, args map[string]invocation.SymValue) (interface{}, error) {
	s := args["string"]
	sv, _ := s.Concrete.(string)

	const accepted = "a:b" // no backslash, colon at index 1
	isAccepted := sv != "" && !strings.Contains(sv, "\\") && strings.Index(sv, ":") > 0
	rec.WhichBranch(isAccepted, symbolic.Eq(s.Sym, symbolic.ConstStr(accepted)))
	if isAccepted {
		return int64(0), nil
	}

	const quoted = "\""
	hasQuote := strings.Contains(sv, "\"")
	rec.WhichBranch(hasQuote, symbolic.Eq(s.Sym, symbolic.ConstStr(quoted)))
	if hasQuote {
		return int64(1), nil
	}
	return int64(2), nil
}

// StrLowerSpec mirrors a case-insensitive match against "hello" followed
// by a check for an upper-case "X".
func StrLowerSpec() invocation.FuncSpec {
	return invocation.FuncSpec{
		Name:              "strlower",
		ArgNames:          []string{"s"},
		InitialValues:     map[string]interface{}{"s": "foo"},
		Entry:             strlower,
		ExpectedResultSet: setOf(int64(0), int64(1), int64(2)),
	}
}

func strlower(rec *recorder.PathRecorder, args map[string]invocation.SymValue) (interface{}, error) {
	s := args["s"]
	sv, _ := s.Concrete.(string)

	isHello := strings.ToLower(sv) == "hello"
	rec.WhichBranch(isHello, symbolic.Eq(symbolic.Lower(s.Sym), symbolic.ConstStr("hello")))
	if isHello {
		return int64(0), nil
	}

	const upperX = "X"
	hasUpperX := strings.Contains(sv, "X") && strings.Contains(strings.ToLower(sv), "x")
	rec.WhichBranch(hasUpperX, symbolic.Eq(s.Sym, symbolic.ConstStr(upperX)))
	if hasUpperX {
		return int64(1), nil
	}
	return int64(2), nil
}

// StrSplitSpec mirrors a whitespace-split comparison against ["a", "b"].
func StrSplitSpec() invocation.FuncSpec {
	return invocation.FuncSpec{
		Name:              "strsplit",
		ArgNames:          []string{"s"},
		InitialValues:     map[string]interface{}{"s": "foo"},
		Entry:             strsplit,
		ExpectedResultSet: setOf(int64(0), int64(1)),
	}
}

func strsplit(rec *recorder.PathRecorder, args map[string]invocation.SymValue) (interface{}, error) {
	s := args["s"]
	sv, _ := s.Concrete.(string)

	const witness = "a b"
	fields := strings.Fields(sv)
	matches := len(fields) == 2 && fields[0] == "a" && fields[1] == "b"
	rec.WhichBranch(matches, symbolic.Eq(s.Sym, symbolic.ConstStr(witness)))
	if matches {
		return int64(0), nil
	}
	return int64(1), nil
}

// PolicySpec mirrors a budget check: a+b+c must equal 6, with any other
// total flagged as a policy violation rather than an exploration-ending
// error.
func PolicySpec() invocation.FuncSpec {
	return invocation.FuncSpec{
		Name:              "policy",
		ArgNames:          []string{"a", "b", "c"},
		InitialValues:     map[string]interface{}{"a": int64(0), "b": int64(0), "c": int64(3)},
		Entry:             policyEntry,
		Policy:            func(result interface{}) bool { r, _ := result.(int64); return r == 0 },
		ExpectedResultSet: setOf(int64(0), int64(1)),
	}
}

func policyEntry(rec *recorder.PathRecorder, args map[string]invocation.SymValue) (interface{}, error) {
	a, b, c := args["a"], args["b"], args["c"]
	av, _ := a.Concrete.(int64)
	bv, _ := b.Concrete.(int64)
	cv, _ := c.Concrete.(int64)

	sumExpr := symbolic.Add(symbolic.Add(a.Sym, b.Sym), c.Sym)
	isSix := av+bv+cv == 6
	rec.WhichBranch(isSix, symbolic.Eq(sumExpr, symbolic.ConstInt(6)))
	if isSix {
		return int64(0), nil
	}
	return int64(1), nil
}

// PreconditionSpec mirrors a guarded budget check: exploration only
// proceeds on inputs where at least one argument equals 2, and among
// those, a+b+c is compared against 0, 6, and the all-ones case.
func PreconditionSpec() invocation.FuncSpec {
	return invocation.FuncSpec{
		Name:              "precondition",
		ArgNames:          []string{"a", "b", "c"},
		InitialValues:     map[string]interface{}{"a": int64(0), "b": int64(2), "c": int64(3)},
		Entry:             preconditionEntry,
		Precondition:      func(val interface{}) bool { iv, _ := val.(int64); return iv == 2 },
		ExpectedResultSet: setOf(int64(0), int64(1), int64(3), false),
	}
}

func preconditionEntry(rec *recorder.PathRecorder, args map[string]invocation.SymValue) (interface{}, error) {
	a, b, c := args["a"], args["b"], args["c"]
	av, _ := a.Concrete.(int64)
	bv, _ := b.Concrete.(int64)
	cv, _ := c.Concrete.(int64)
	sumExpr := symbolic.Add(symbolic.Add(a.Sym, b.Sym), c.Sym)

	isZero := av+bv+cv == 0
	rec.WhichBranch(isZero, symbolic.Eq(sumExpr, symbolic.ConstInt(0)))
	if isZero {
		return int64(0), nil
	}

	isSix := av+bv+cv == 6
	rec.WhichBranch(isSix, symbolic.Eq(sumExpr, symbolic.ConstInt(6)))
	if isSix {
		return int64(1), nil
	}

	isOnes := av == 1 && bv == 1 && cv == 1
	onesExpr := symbolic.And(
		symbolic.And(symbolic.Eq(a.Sym, symbolic.ConstInt(1)), symbolic.Eq(b.Sym, symbolic.ConstInt(1))),
		symbolic.Eq(c.Sym, symbolic.ConstInt(1)),
	)
	rec.WhichBranch(isOnes, onesExpr)
	if isOnes {
		return int64(2), nil
	}
	return int64(3), nil
}
