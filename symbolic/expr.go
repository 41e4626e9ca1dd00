// Package symbolic implements the concrete symbolic-value library the
// exploration engine treats as an opaque capability: a small tagged-variant
// expression tree over integers and strings, its operator overloads, and
// the SMT-LIB2 rendering a solver adapter needs to build a query.
package symbolic

import (
	"fmt"
	"sort"
	"strings"
)

// Kind tags the shape of an Expr node.
type Kind int

const (
	KindConstInt Kind = iota
	KindConstString
	KindVar
	KindArith
	KindCompare
	KindStringOp
	KindBoolOp
)

// Expr is an immutable node in a symbolic expression tree. It stands in for
// the wrapped integers/strings a real symbolic-value library would provide:
// arithmetic, comparisons, and the handful of string operations the example
// programs in this repository exercise (concat, length, lowercasing,
// substring, character access).
type Expr struct {
	Kind     Kind
	Op       string // "+","-","*","<","<=","==","!=",">",">=","concat","len","lower","at","substr","and","or","not"
	Children []*Expr
	IntVal   int64
	StrVal   string
	Name     string // for KindVar
}

func ConstInt(v int64) *Expr  { return &Expr{Kind: KindConstInt, IntVal: v} }
func ConstStr(v string) *Expr { return &Expr{Kind: KindConstString, StrVal: v} }
func Var(name string) *Expr   { return &Expr{Kind: KindVar, Name: name} }

func arith(op string, a, b *Expr) *Expr {
	return &Expr{Kind: KindArith, Op: op, Children: []*Expr{a, b}}
}

func Add(a, b *Expr) *Expr { return arith("+", a, b) }
func Sub(a, b *Expr) *Expr { return arith("-", a, b) }
func Mul(a, b *Expr) *Expr { return arith("*", a, b) }

func compare(op string, a, b *Expr) *Expr {
	return &Expr{Kind: KindCompare, Op: op, Children: []*Expr{a, b}}
}

func Eq(a, b *Expr) *Expr { return compare("==", a, b) }
func Ne(a, b *Expr) *Expr { return compare("!=", a, b) }
func Lt(a, b *Expr) *Expr { return compare("<", a, b) }
func Le(a, b *Expr) *Expr { return compare("<=", a, b) }
func Gt(a, b *Expr) *Expr { return compare(">", a, b) }
func Ge(a, b *Expr) *Expr { return compare(">=", a, b) }

func stringOp(op string, children ...*Expr) *Expr {
	return &Expr{Kind: KindStringOp, Op: op, Children: children}
}

func Concat(a, b *Expr) *Expr  { return stringOp("concat", a, b) }
func Length(a *Expr) *Expr     { return stringOp("len", a) }
func Lower(a *Expr) *Expr      { return stringOp("lower", a) }
func CharAt(a, i *Expr) *Expr  { return stringOp("at", a, i) }
func Substr(a, i, j *Expr) *Expr { return stringOp("substr", a, i, j) }

func boolOp(op string, children ...*Expr) *Expr {
	return &Expr{Kind: KindBoolOp, Op: op, Children: children}
}

func And(a, b *Expr) *Expr { return boolOp("and", a, b) }
func Or(a, b *Expr) *Expr  { return boolOp("or", a, b) }
func Not(a *Expr) *Expr    { return boolOp("not", a) }

// negatedCompare maps a comparison operator to its logical negation so that
// Negate can avoid wrapping every boolean predicate in a "not".
var negatedCompare = map[string]string{
	"==": "!=", "!=": "==",
	"<": ">=", ">=": "<",
	">": "<=", "<=": ">",
}

// Negate returns the logical negation of a boolean-valued Expr. For
// comparisons it flips the operator directly; for anything else it wraps
// the expression in a boolean "not" node.
func (e *Expr) Negate() *Expr {
	if e.Kind == KindCompare {
		if inv, ok := negatedCompare[e.Op]; ok {
			return &Expr{Kind: KindCompare, Op: inv, Children: e.Children}
		}
	}
	if e.Kind == KindBoolOp && e.Op == "not" {
		return e.Children[0]
	}
	return Not(e)
}

// Vars returns the set of distinct variable names referenced transitively.
func (e *Expr) Vars() map[string]struct{} {
	out := map[string]struct{}{}
	e.collectVars(out)
	return out
}

func (e *Expr) collectVars(out map[string]struct{}) {
	if e == nil {
		return
	}
	if e.Kind == KindVar {
		out[e.Name] = struct{}{}
	}
	for _, c := range e.Children {
		c.collectVars(out)
	}
}

// Equal reports structural equality, the notion spec'd for Predicate
// equality and for Constraint.findChild's duplicate-child detection.
func (e *Expr) Equal(other *Expr) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e.Kind != other.Kind || e.Op != other.Op || e.IntVal != other.IntVal ||
		e.StrVal != other.StrVal || e.Name != other.Name {
		return false
	}
	if len(e.Children) != len(other.Children) {
		return false
	}
	for i := range e.Children {
		if !e.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}

// String renders the expression as an SMT-LIB2 s-expression fragment,
// assuming every free variable is declared with the sort a caller infers
// from context (see InferVarSorts).
func (e *Expr) String() string {
	switch e.Kind {
	case KindConstInt:
		if e.IntVal < 0 {
			return fmt.Sprintf("(- %d)", -e.IntVal)
		}
		return fmt.Sprintf("%d", e.IntVal)
	case KindConstString:
		return fmt.Sprintf("%q", e.StrVal)
	case KindVar:
		return e.Name
	case KindArith, KindCompare, KindBoolOp:
		return e.sexpr(smtOp(e.Op))
	case KindStringOp:
		return e.sexpr(smtStringOp(e.Op))
	}
	return "?"
}

func (e *Expr) sexpr(op string) string {
	parts := make([]string, 0, len(e.Children)+1)
	parts = append(parts, op)
	for _, c := range e.Children {
		parts = append(parts, c.String())
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func smtOp(op string) string {
	switch op {
	case "==":
		return "="
	case "!=":
		return "distinct"
	default:
		return op
	}
}

func smtStringOp(op string) string {
	switch op {
	case "concat":
		return "str.++"
	case "len":
		return "str.len"
	case "lower":
		return "str.lower" // not in core SMT-LIB; adapters that lack it rewrite it away
	case "at":
		return "str.at"
	case "substr":
		return "str.substr"
	default:
		return op
	}
}

// SortOf reports the SMT sort ("Int" or "String") of a value-level
// expression, used when declaring free variables in a query. Variables,
// comparisons and boolean connectives all report "Int".
func (e *Expr) SortOf() string {
	switch e.Kind {
	case KindConstString:
		return "String"
	case KindStringOp:
		if e.Op == "len" {
			return "Int"
		}
		return "String"
	default:
		return "Int"
	}
}

// InferVarSorts walks a set of expressions and returns a deterministic,
// sorted name->sort map for variable declarations.
func InferVarSorts(exprs ...*Expr) map[string]string {
	sorts := map[string]string{}
	var walk func(e *Expr, hint string)
	walk = func(e *Expr, hint string) {
		if e == nil {
			return
		}
		if e.Kind == KindVar {
			if _, ok := sorts[e.Name]; !ok || hint == "String" {
				if existing, ok := sorts[e.Name]; !ok || existing == "" {
					sorts[e.Name] = hint
				}
			}
			return
		}
		childHint := "Int"
		if e.Kind == KindStringOp || e.Kind == KindConstString {
			childHint = "String"
		}
		if e.Kind == KindCompare {
			// a variable compared against a string-valued operand is a String
			for _, c := range e.Children {
				if c.Kind != KindVar && c.SortOf() == "String" {
					childHint = "String"
				}
			}
		}
		for _, c := range e.Children {
			walk(c, childHint)
		}
	}
	for _, e := range exprs {
		walk(e, "Int")
	}
	return sorts
}

// SortedVarNames returns the keys of a var-sort map in deterministic order,
// used to keep generated SMT-LIB2 text (and therefore query_store hashes)
// stable across runs.
func SortedVarNames(sorts map[string]string) []string {
	names := make([]string, 0, len(sorts))
	for n := range sorts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
