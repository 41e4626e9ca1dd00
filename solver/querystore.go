package solver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/concolic-go/concolic/constraint"
	"github.com/concolic-go/concolic/symbolic"
)

// BuildSMTLIB2 renders a self-contained SMT-LIB2 script for the given
// asserts and query: logic selection, options, variable declarations,
// the conjoined assertions, check-sat, and get-value.
//
// A solve looks for a counterexample to the query while the asserts hold
// (the source's own phrasing for findCounterexample): asserts are
// conjoined as given, but the query's direction is negated before being
// asserted, so a SAT model is a witness that takes the *opposite* branch
// from the one recorded at this node.
func BuildSMTLIB2(logic string, options map[string]string, asserts []constraint.Predicate, query constraint.Predicate) string {
	exprs := make([]*symbolic.Expr, 0, len(asserts)+1)
	for _, a := range asserts {
		exprs = append(exprs, a.AsQueryExpr())
	}
	exprs = append(exprs, query.AsQueryExpr().Negate())

	sorts := symbolic.InferVarSorts(exprs...)
	names := symbolic.SortedVarNames(sorts)

	var b strings.Builder
	fmt.Fprintf(&b, "(set-logic %s)\n", logic)
	for _, k := range sortedOptionKeys(options) {
		fmt.Fprintf(&b, "(set-option :%s %s)\n", k, options[k])
	}
	for _, n := range names {
		fmt.Fprintf(&b, "(declare-const %s %s)\n", n, sorts[n])
	}
	for _, e := range exprs {
		fmt.Fprintf(&b, "(assert %s)\n", e.String())
	}
	b.WriteString("(check-sat)\n")
	for _, n := range names {
		fmt.Fprintf(&b, "(get-value (%s))\n", n)
	}
	return b.String()
}

func sortedOptionKeys(options map[string]string) []string {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	// deterministic, not alphabetical-library-dependent: simple insertion
	// sort keeps this file free of an extra import for a handful of keys.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// QueryStore optionally persists every SMT-LIB2 script an adapter builds,
// named by the SHA-224 of the query text — matching the naming scheme the
// original CVC wrapper used so queries are content-addressed and stable
// across runs with identical asserts.
type QueryStore struct {
	Dir string
}

// Save writes script under its SHA-224 hash and returns the path. A zero
// QueryStore (Dir == "") is a no-op, returning "".
func (q QueryStore) Save(script string) (string, error) {
	if q.Dir == "" {
		return "", nil
	}
	if err := os.MkdirAll(q.Dir, 0o755); err != nil {
		return "", fmt.Errorf("solver: creating query store dir: %w", err)
	}
	sum := sha256.Sum224([]byte(script))
	name := hex.EncodeToString(sum[:]) + ".smt2"
	path := filepath.Join(q.Dir, name)
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		return "", fmt.Errorf("solver: writing query store file: %w", err)
	}
	return path, nil
}
