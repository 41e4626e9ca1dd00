// Package recorder implements the path-to-constraint recorder: it mirrors
// a single concrete execution against the shared constraint tree, growing
// the tree on first visit and detecting replay mismatch on re-execution.
package recorder

import (
	"fmt"

	"github.com/concolic-go/concolic/constraint"
	"github.com/concolic-go/concolic/symbolic"
)

// PathRecorder walks the constraint tree in lock-step with one execution
// of the program under test. It is driver-owned: a single goroutine calls
// Reset then WhichBranch repeatedly, then DrainNew before the
// next execution begins.
type PathRecorder struct {
	Tree    *constraint.Tree
	current *constraint.Constraint

	expectedPath []constraint.Predicate
	expectedIdx  int
	flipTarget   *constraint.Predicate
	replaying    bool

	newConstraints []*constraint.Constraint

	// Mismatches accumulates non-fatal replay-mismatch warnings; the
	// engine logs and discards these, never treats them as errors.
	Mismatches []string
}

// New creates a recorder bound to tree, starting at its root.
func New(tree *constraint.Tree) *PathRecorder {
	return &PathRecorder{Tree: tree, current: tree.Root}
}

// Reset arms the recorder for a fresh execution. When expected is non-nil
// it also arms replay mode: the recorder expects the run to retrace the
// path from root to expected, then take the opposite direction on the very
// next branch (the one the solver's model was built to flip).
func (r *PathRecorder) Reset(expected *constraint.Constraint) {
	r.current = r.Tree.Root
	r.newConstraints = nil
	r.expectedPath = nil
	r.expectedIdx = 0
	r.flipTarget = nil
	r.replaying = expected != nil
	if expected == nil {
		return
	}
	r.flipTarget = expected.Predicate
	var reversed []constraint.Predicate
	for n := expected.Parent; n != nil && n.Predicate != nil; n = n.Parent {
		reversed = append(reversed, *n.Predicate)
	}
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	r.expectedPath = reversed
}

// WhichBranch is called by the instrumented program at every symbolic
// branch, reporting the direction actually taken (direction) together with
// the symbolic condition evaluated (expr). It extends the tree on first
// visit, de-duplicates on repeat visits, and advances the cursor.
func (r *PathRecorder) WhichBranch(direction bool, expr *symbolic.Expr) {
	p := constraint.NewPredicate(expr, direction)
	r.checkReplay(p)

	direct := r.current.FindChild(p)
	negated := r.current.FindChild(p.Negate())

	if direct == nil {
		direct = r.Tree.AddChild(r.current, p)
		r.newConstraints = append(r.newConstraints, direct)
		negated = r.current.FindChild(p.Negate())
	}

	if direct != nil && negated != nil {
		direct.Processed = true
		negated.Processed = true
	}

	r.current = direct
}

func (r *PathRecorder) checkReplay(p constraint.Predicate) {
	if !r.replaying {
		return
	}
	if r.expectedIdx < len(r.expectedPath) {
		want := r.expectedPath[r.expectedIdx]
		r.expectedIdx++
		if !want.Equal(p) {
			r.Mismatches = append(r.Mismatches, fmt.Sprintf(
				"replay mismatch at node %d: expected predicate %+v, observed %+v",
				r.current.ID, want, p))
			r.replaying = false
		}
		return
	}
	// Expected-path stack is exhausted: we are at the branch the model
	// was synthesised to flip, so the opposite direction is expected.
	want := r.flipTarget.Negate()
	if !want.Equal(p) {
		r.Mismatches = append(r.Mismatches, fmt.Sprintf(
			"replay mismatch at node %d: expected flipped predicate %+v, observed %+v",
			r.current.ID, want, p))
	}
	r.replaying = false
}

// Current returns the node the recorder's cursor currently sits on.
func (r *PathRecorder) Current() *constraint.Constraint { return r.current }

// DrainNew returns the constraints appended to the tree since the last
// Reset, and clears the internal buffer.
func (r *PathRecorder) DrainNew() []*constraint.Constraint {
	out := r.newConstraints
	r.newConstraints = nil
	return out
}

// ToDot renders the reachable tree as a Graphviz DOT document, one node
// per constraint, edges labelled with the child's recorded inputs and
// solving time, node labels using branch_id.
func (r *PathRecorder) ToDot() string {
	return ToDot(r.Tree)
}

// ToDot renders tree as a Graphviz DOT document. A free function rather
// than a PathRecorder method so callers holding only a finished
// exploration's constraint.Tree (no live recorder) can still export it.
func ToDot(tree *constraint.Tree) string {
	out := "digraph constraints {\n"
	for _, n := range tree.Nodes() {
		label := n.BranchID
		if label == "" {
			label = fmt.Sprintf("n%d", n.ID)
		}
		out += fmt.Sprintf("  n%d [label=%q];\n", n.ID, label)
		for _, child := range n.Children {
			out += fmt.Sprintf("  n%d -> n%d [label=%q];\n", n.ID, child.ID,
				fmt.Sprintf("inputs=%v solving_time=%.3f", child.Inputs, child.SolvingTime))
		}
	}
	out += "}\n"
	return out
}
