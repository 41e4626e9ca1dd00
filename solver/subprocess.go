package solver

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/concolic-go/concolic/constraint"
)

// SubprocessAdapter shells out to a real SMT-LIB2-speaking binary (z3,
// cvc5, or a z3str2-compatible frontend). Each call runs the binary as an
// independent child process, which is what gives the engine's worker pool
// hard-kill semantics: cancelling ctx terminates the process rather than
// merely abandoning a goroutine.
type SubprocessAdapter struct {
	Binary  string
	Dialect Dialect
	Store   QueryStore
}

// Dialect captures the handful of back-end-specific knobs the design
// notes call out: logic selection, solver options, and (for z3) the
// bit-vector width-widening fallback strategy.
type Dialect struct {
	Name    string
	Logic   string
	Options map[string]string
	// BitvectorWidening, when true, retries a query that came back UNKNOWN
	// under logic QF_BV with a "bv-width" option of 32 up to 64, in steps
	// of 8. The script's declarations and terms are not re-encoded as
	// bit-vectors: they stay Int, exactly as BuildSMTLIB2 renders them.
	BitvectorWidening bool
}

func NewZ3Adapter(binary string, store QueryStore) *SubprocessAdapter {
	return &SubprocessAdapter{
		Binary: binary,
		Store:  store,
		Dialect: Dialect{
			Name:              "z3",
			Logic:             "QF_LIA",
			Options:           map[string]string{"produce-models": "true"},
			BitvectorWidening: true,
		},
	}
}

func NewCVCAdapter(binary string, store QueryStore) *SubprocessAdapter {
	return &SubprocessAdapter{
		Binary: binary,
		Store:  store,
		Dialect: Dialect{
			Name:  "cvc",
			Logic: "ALL_SUPPORTED",
			Options: map[string]string{
				"produce-models": "true",
				"strings-exp":    "true",
				"rewrite-divk":   "true",
			},
		},
	}
}

func NewZ3Str2Adapter(binary string, store QueryStore) *SubprocessAdapter {
	return &SubprocessAdapter{
		Binary: binary,
		Store:  store,
		Dialect: Dialect{
			Name:    "z3str2",
			Logic:   "QF_S",
			Options: map[string]string{"produce-models": "true"},
		},
	}
}

func (a *SubprocessAdapter) Name() string { return a.Dialect.Name }

func (a *SubprocessAdapter) FindCounterexample(ctx context.Context, asserts []constraint.Predicate, query constraint.Predicate, timeout time.Duration) (Outcome, Model, float64, error) {
	start := time.Now()
	script := BuildSMTLIB2(a.Dialect.Logic, a.Dialect.Options, asserts, query)
	if _, err := a.Store.Save(script); err != nil {
		return UNKNOWN, nil, 0, err
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outcome, model, err := a.run(runCtx, script)
	if err != nil {
		// Solver crash or non-zero exit: recoverable, treated as UNKNOWN,
		// worker slot is freed by the caller.
		return UNKNOWN, nil, time.Since(start).Seconds(), nil
	}
	if outcome == UNKNOWN && a.Dialect.BitvectorWidening {
		if widened, widenedModel, werr := a.retryWithWidening(runCtx, asserts, query); werr == nil && widened != UNKNOWN {
			outcome, model = widened, widenedModel
		}
	}
	return outcome, model, time.Since(start).Seconds(), nil
}

func (a *SubprocessAdapter) retryWithWidening(ctx context.Context, asserts []constraint.Predicate, query constraint.Predicate) (Outcome, Model, error) {
	for width := 32; width <= 64; width += 8 {
		if ctx.Err() != nil {
			return UNKNOWN, nil, ctx.Err()
		}
		opts := map[string]string{}
		for k, v := range a.Dialect.Options {
			opts[k] = v
		}
		opts["bv-width"] = strconv.Itoa(width)
		script := BuildSMTLIB2("QF_BV", opts, asserts, query)
		outcome, model, err := a.run(ctx, script)
		if err != nil {
			continue
		}
		if outcome != UNKNOWN {
			return outcome, model, nil
		}
	}
	return UNKNOWN, nil, nil
}

func (a *SubprocessAdapter) run(ctx context.Context, script string) (Outcome, Model, error) {
	cmd := exec.CommandContext(ctx, a.Binary, "-in")
	cmd.Stdin = strings.NewReader(script)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return UNKNOWN, nil, fmt.Errorf("solver: %s exited: %w", a.Binary, err)
	}
	return parseSMTOutput(stdout.String())
}

func parseSMTOutput(out string) (Outcome, Model, error) {
	scanner := bufio.NewScanner(strings.NewReader(out))
	outcome := UNKNOWN
	model := Model{}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "sat":
			outcome = SAT
		case line == "unsat":
			outcome = UNSAT
		case line == "unknown":
			outcome = UNKNOWN
		case strings.HasPrefix(line, "(("):
			name, val, ok := parseGetValueLine(line)
			if ok {
				model[name] = val
			}
		}
	}
	if outcome != SAT {
		return outcome, nil, nil
	}
	return outcome, model, nil
}

// parseGetValueLine parses a single-pair "((name value))" get-value
// response line into a name and a best-effort int64/string value.
func parseGetValueLine(line string) (string, interface{}, bool) {
	trimmed := strings.Trim(line, "()")
	fields := strings.SplitN(trimmed, " ", 2)
	if len(fields) != 2 {
		return "", nil, false
	}
	name := strings.TrimSpace(fields[0])
	raw := strings.TrimSpace(fields[1])
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return name, n, true
	}
	return name, strings.Trim(raw, "\""), true
}
