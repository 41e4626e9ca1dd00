package solver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/concolic-go/concolic/constraint"
	"github.com/concolic-go/concolic/symbolic"
)

func TestBuildSMTLIB2Deterministic(t *testing.T) {
	query := constraint.NewPredicate(symbolic.Eq(symbolic.Var("x"), symbolic.ConstInt(1)), true)
	a := BuildSMTLIB2("QF_LIA", map[string]string{"produce-models": "true"}, nil, query)
	b := BuildSMTLIB2("QF_LIA", map[string]string{"produce-models": "true"}, nil, query)
	if a != b {
		t.Fatalf("expected identical SMT-LIB2 text for identical inputs")
	}
}

func TestQueryStoreSavesContentAddressedFile(t *testing.T) {
	dir := t.TempDir()
	store := QueryStore{Dir: dir}
	script := "(set-logic QF_LIA)\n(check-sat)\n"

	path, err := store.Save(script)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("expected file under %s, got %s", dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("file should exist: %v", err)
	}
	if string(data) != script {
		t.Fatalf("saved content mismatch")
	}

	path2, err := store.Save(script)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path2 != path {
		t.Fatalf("identical script should hash to the identical filename")
	}
}

func TestQueryStoreNoopWhenDirEmpty(t *testing.T) {
	store := QueryStore{}
	path, err := store.Save("anything")
	if err != nil || path != "" {
		t.Fatalf("expected no-op for empty dir, got path=%q err=%v", path, err)
	}
}
