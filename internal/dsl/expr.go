package dsl

import (
	"fmt"

	"github.com/durablex/durablex/internal/execution"
)

// ExprKind tags the node type of a pure, side-effect-free Expr tree. Expr
// trees are evaluated both in live mode and on replay, so the language is
// deliberately small: literals, variable and property access, list/object
// construction, and a handful of operators.
type ExprKind string

const (
	ExprLiteral ExprKind = "literal"
	ExprVar     ExprKind = "var"
	ExprProp    ExprKind = "prop"
	ExprIndex   ExprKind = "index"
	ExprBinOp   ExprKind = "binop"
	ExprUnary   ExprKind = "unary"
	ExprList    ExprKind = "list"
	ExprObject  ExprKind = "object"
)

// Expr is one node of the value expression language workflows use to
// compute call_task arguments, branch conditions, loop steps, and return
// values.
type Expr struct {
	Kind ExprKind

	Literal interface{} // ExprLiteral

	Name string // ExprVar, ExprProp (property name)

	Target *Expr // ExprProp, ExprIndex: the expression being accessed
	Index  *Expr // ExprIndex: the index/key expression

	Op          string // ExprBinOp: + - * / % == != < <= > >= && || ; ExprUnary: - !
	Left, Right *Expr  // ExprBinOp
	X           *Expr  // ExprUnary

	Items  []Expr          // ExprList
	Fields map[string]Expr // ExprObject
}

// Lit builds a literal expression.
func Lit(v interface{}) Expr { return Expr{Kind: ExprLiteral, Literal: v} }

// Var builds a variable-reference expression.
func Var(name string) Expr { return Expr{Kind: ExprVar, Name: name} }

// Eval evaluates e against env, the current binding of inputs and workflow
// locals. Evaluation is pure: it never touches the Store or the history.
func Eval(e Expr, env map[string]interface{}) (interface{}, error) {
	switch e.Kind {
	case ExprLiteral:
		return e.Literal, nil

	case ExprVar:
		v, ok := env[e.Name]
		if !ok {
			return nil, fmt.Errorf("dsl: undefined variable %q", e.Name)
		}
		return v, nil

	case ExprProp:
		target, err := Eval(*e.Target, env)
		if err != nil {
			return nil, err
		}
		obj, ok := target.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("dsl: cannot access property %q of non-object value", e.Name)
		}
		return obj[e.Name], nil

	case ExprIndex:
		target, err := Eval(*e.Target, env)
		if err != nil {
			return nil, err
		}
		idx, err := Eval(*e.Index, env)
		if err != nil {
			return nil, err
		}
		return evalIndex(target, idx)

	case ExprUnary:
		x, err := Eval(*e.X, env)
		if err != nil {
			return nil, err
		}
		return evalUnary(e.Op, x)

	case ExprBinOp:
		left, err := Eval(*e.Left, env)
		if err != nil {
			return nil, err
		}
		if e.Op == "&&" {
			if !truthy(left) {
				return false, nil
			}
			right, err := Eval(*e.Right, env)
			return truthy(right), err
		}
		if e.Op == "||" {
			if truthy(left) {
				return true, nil
			}
			right, err := Eval(*e.Right, env)
			return truthy(right), err
		}
		right, err := Eval(*e.Right, env)
		if err != nil {
			return nil, err
		}
		return evalBinOp(e.Op, left, right)

	case ExprList:
		out := make([]interface{}, len(e.Items))
		for i, item := range e.Items {
			v, err := Eval(item, env)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case ExprObject:
		out := make(execution.JSON, len(e.Fields))
		for k, fe := range e.Fields {
			v, err := Eval(fe, env)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil

	default:
		return nil, fmt.Errorf("dsl: unknown expression kind %q", e.Kind)
	}
}

func evalIndex(target, idx interface{}) (interface{}, error) {
	switch t := target.(type) {
	case []interface{}:
		i, ok := asInt(idx)
		if !ok || i < 0 || i >= len(t) {
			return nil, fmt.Errorf("dsl: index %v out of range", idx)
		}
		return t[i], nil
	case map[string]interface{}:
		key, ok := idx.(string)
		if !ok {
			return nil, fmt.Errorf("dsl: non-string key %v on object", idx)
		}
		return t[key], nil
	default:
		return nil, fmt.Errorf("dsl: cannot index non-collection value")
	}
}

func evalUnary(op string, x interface{}) (interface{}, error) {
	switch op {
	case "-":
		f, ok := asFloat(x)
		if !ok {
			return nil, fmt.Errorf("dsl: unary '-' on non-numeric value")
		}
		return -f, nil
	case "!":
		return !truthy(x), nil
	default:
		return nil, fmt.Errorf("dsl: unknown unary operator %q", op)
	}
}

func evalBinOp(op string, left, right interface{}) (interface{}, error) {
	switch op {
	case "==":
		return deepEqual(left, right), nil
	case "!=":
		return !deepEqual(left, right), nil
	}

	lf, lok := asFloat(left)
	rf, rok := asFloat(right)

	switch op {
	case "+":
		if ls, ok := left.(string); ok {
			if rs, ok := right.(string); ok {
				return ls + rs, nil
			}
		}
		if !lok || !rok {
			return nil, fmt.Errorf("dsl: '+' requires two numbers or two strings")
		}
		return lf + rf, nil
	case "-", "*", "/", "%", "<", "<=", ">", ">=":
		if !lok || !rok {
			return nil, fmt.Errorf("dsl: operator %q requires numeric operands", op)
		}
		switch op {
		case "-":
			return lf - rf, nil
		case "*":
			return lf * rf, nil
		case "/":
			if rf == 0 {
				return nil, fmt.Errorf("dsl: division by zero")
			}
			return lf / rf, nil
		case "%":
			if rf == 0 {
				return nil, fmt.Errorf("dsl: modulo by zero")
			}
			return float64(int64(lf) % int64(rf)), nil
		case "<":
			return lf < rf, nil
		case "<=":
			return lf <= rf, nil
		case ">":
			return lf > rf, nil
		case ">=":
			return lf >= rf, nil
		}
	}

	return nil, fmt.Errorf("dsl: unknown binary operator %q", op)
}

func truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case int:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

func asInt(v interface{}) (int, bool) {
	f, ok := asFloat(v)
	return int(f), ok
}

func deepEqual(a, b interface{}) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprint(a) == fmt.Sprint(b) && fmt.Sprintf("%T", a) == fmt.Sprintf("%T", b)
}
