package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/durablex/durablex/internal/execution"
)

func TestEvalArithmetic(t *testing.T) {
	env := execution.JSON{"x": 4.0, "y": 2.0}

	e, err := Parse(`workflow w { return {v: (x + y) * 2 - 1} }`)
	require.NoError(t, err)

	v, err := Eval(e.Statements[0].Result, env)
	require.NoError(t, err)
	out := v.(execution.JSON)
	assert.Equal(t, 11.0, out["v"])
}

func TestEvalPropertyAndIndex(t *testing.T) {
	env := execution.JSON{
		"user": execution.JSON{"name": "ada", "roles": []interface{}{"admin", "editor"}},
	}

	nameExpr := Expr{Kind: ExprProp, Target: ptr(Var("user")), Name: "name"}
	v, err := Eval(nameExpr, env)
	require.NoError(t, err)
	assert.Equal(t, "ada", v)

	idxExpr := Expr{
		Kind:   ExprIndex,
		Target: ptr(Expr{Kind: ExprProp, Target: ptr(Var("user")), Name: "roles"}),
		Index:  ptr(Lit(1.0)),
	}
	v, err = Eval(idxExpr, env)
	require.NoError(t, err)
	assert.Equal(t, "editor", v)
}

func TestEvalShortCircuit(t *testing.T) {
	env := execution.JSON{}
	e := Expr{Kind: ExprBinOp, Op: "||", Left: ptr(Lit(true)), Right: ptr(Var("undefined"))}
	v, err := Eval(e, env)
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestEvalUndefinedVariableErrors(t *testing.T) {
	_, err := Eval(Var("missing"), execution.JSON{})
	assert.Error(t, err)
}

func ptr(e Expr) *Expr { return &e }
