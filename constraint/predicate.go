// Package constraint implements the path-predicate tree: the Predicate
// leaf, the Constraint node it attaches to, and the arena-owned tree that
// links nodes together.
package constraint

import "github.com/concolic-go/concolic/symbolic"

// Predicate pairs a symbolic boolean expression with the branch direction
// actually taken. It is immutable after construction; two predicates are
// equal iff their expressions and results are equal.
type Predicate struct {
	Expr   *symbolic.Expr
	Result bool
}

// NewPredicate builds a Predicate from a symbolic expression and the
// direction the program took when it evaluated that expression.
func NewPredicate(expr *symbolic.Expr, result bool) Predicate {
	return Predicate{Expr: expr, Result: result}
}

// Negate returns the predicate for the branch not taken: same expression,
// inverted direction.
func (p Predicate) Negate() Predicate {
	return Predicate{Expr: p.Expr, Result: !p.Result}
}

// Vars returns the input names this predicate's expression references.
func (p Predicate) Vars() map[string]struct{} {
	return p.Expr.Vars()
}

// Equal reports whether two predicates are structurally identical.
func (p Predicate) Equal(other Predicate) bool {
	return p.Result == other.Result && p.Expr.Equal(other.Expr)
}

// AsQueryExpr returns the boolean expression an SMT query must satisfy to
// force this predicate's direction: the raw expression when Result is true,
// its negation when Result is false.
func (p Predicate) AsQueryExpr() *symbolic.Expr {
	if p.Result {
		return p.Expr
	}
	return p.Expr.Negate()
}
