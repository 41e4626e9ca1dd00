package symbolic

import (
	"fmt"
	"strings"
)

// Eval evaluates e under a concrete variable assignment (int64 or string
// values). It is not part of the symbolic-value contract the recorder
// needs — real back ends never evaluate expressions themselves, an SMT
// solver does — but the bounded-enumeration reference adapter in the
// solver package uses it to check candidate models. The instrumented
// example programs compute their concrete branches directly and do not
// call it.
func Eval(e *Expr, env map[string]interface{}) (interface{}, error) {
	if e == nil {
		return nil, fmt.Errorf("symbolic: nil expression")
	}
	switch e.Kind {
	case KindConstInt:
		return e.IntVal, nil
	case KindConstString:
		return e.StrVal, nil
	case KindVar:
		v, ok := env[e.Name]
		if !ok {
			return nil, fmt.Errorf("symbolic: unbound variable %q", e.Name)
		}
		return v, nil
	case KindArith:
		a, err := evalInt(e.Children[0], env)
		if err != nil {
			return nil, err
		}
		b, err := evalInt(e.Children[1], env)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case "+":
			return a + b, nil
		case "-":
			return a - b, nil
		case "*":
			return a * b, nil
		}
		return nil, fmt.Errorf("symbolic: unknown arith op %q", e.Op)
	case KindStringOp:
		return evalStringOp(e, env)
	case KindCompare:
		return evalCompare(e, env)
	case KindBoolOp:
		return evalBoolOp(e, env)
	}
	return nil, fmt.Errorf("symbolic: unknown kind %v", e.Kind)
}

func evalInt(e *Expr, env map[string]interface{}) (int64, error) {
	v, err := Eval(e, env)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("symbolic: expected int64, got %T", v)
	}
	return n, nil
}

func evalString(e *Expr, env map[string]interface{}) (string, error) {
	v, err := Eval(e, env)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("symbolic: expected string, got %T", v)
	}
	return s, nil
}

func evalStringOp(e *Expr, env map[string]interface{}) (interface{}, error) {
	switch e.Op {
	case "concat":
		a, err := evalString(e.Children[0], env)
		if err != nil {
			return nil, err
		}
		b, err := evalString(e.Children[1], env)
		if err != nil {
			return nil, err
		}
		return a + b, nil
	case "len":
		s, err := evalString(e.Children[0], env)
		if err != nil {
			return nil, err
		}
		return int64(len(s)), nil
	case "lower":
		s, err := evalString(e.Children[0], env)
		if err != nil {
			return nil, err
		}
		return strings.ToLower(s), nil
	case "at":
		s, err := evalString(e.Children[0], env)
		if err != nil {
			return nil, err
		}
		i, err := evalInt(e.Children[1], env)
		if err != nil {
			return nil, err
		}
		if i < 0 || int(i) >= len(s) {
			return nil, fmt.Errorf("symbolic: index %d out of range for %q", i, s)
		}
		return string(s[i]), nil
	case "substr":
		s, err := evalString(e.Children[0], env)
		if err != nil {
			return nil, err
		}
		i, err := evalInt(e.Children[1], env)
		if err != nil {
			return nil, err
		}
		j, err := evalInt(e.Children[2], env)
		if err != nil {
			return nil, err
		}
		if i < 0 || j > int64(len(s)) || i > j {
			return nil, fmt.Errorf("symbolic: substr(%d,%d) out of range for %q", i, j, s)
		}
		return s[i:j], nil
	}
	return nil, fmt.Errorf("symbolic: unknown string op %q", e.Op)
}

func evalCompare(e *Expr, env map[string]interface{}) (interface{}, error) {
	av, err := Eval(e.Children[0], env)
	if err != nil {
		return nil, err
	}
	bv, err := Eval(e.Children[1], env)
	if err != nil {
		return nil, err
	}
	switch a := av.(type) {
	case int64:
		b, ok := bv.(int64)
		if !ok {
			return nil, fmt.Errorf("symbolic: comparing int64 with %T", bv)
		}
		switch e.Op {
		case "==":
			return a == b, nil
		case "!=":
			return a != b, nil
		case "<":
			return a < b, nil
		case "<=":
			return a <= b, nil
		case ">":
			return a > b, nil
		case ">=":
			return a >= b, nil
		}
	case string:
		b, ok := bv.(string)
		if !ok {
			return nil, fmt.Errorf("symbolic: comparing string with %T", bv)
		}
		switch e.Op {
		case "==":
			return a == b, nil
		case "!=":
			return a != b, nil
		case "<":
			return a < b, nil
		case "<=":
			return a <= b, nil
		case ">":
			return a > b, nil
		case ">=":
			return a >= b, nil
		}
	}
	return nil, fmt.Errorf("symbolic: unsupported compare operand %T", av)
}

func evalBoolOp(e *Expr, env map[string]interface{}) (interface{}, error) {
	switch e.Op {
	case "not":
		v, err := evalBool(e.Children[0], env)
		if err != nil {
			return nil, err
		}
		return !v, nil
	case "and":
		a, err := evalBool(e.Children[0], env)
		if err != nil {
			return nil, err
		}
		b, err := evalBool(e.Children[1], env)
		if err != nil {
			return nil, err
		}
		return a && b, nil
	case "or":
		a, err := evalBool(e.Children[0], env)
		if err != nil {
			return nil, err
		}
		b, err := evalBool(e.Children[1], env)
		if err != nil {
			return nil, err
		}
		return a || b, nil
	}
	return nil, fmt.Errorf("symbolic: unknown bool op %q", e.Op)
}

func evalBool(e *Expr, env map[string]interface{}) (bool, error) {
	v, err := Eval(e, env)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("symbolic: expected bool, got %T", v)
	}
	return b, nil
}
