package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleWorkflow(t *testing.T) {
	src := `
workflow greet {
    greeting = call_task("build_greeting", {name: name}, queue="greetings", max_retries=5)
    if greeting.success {
        return {message: greeting.value}
    } else {
        return {message: "failed"}
    }
}
`
	prog, err := Parse(src)
	require.NoError(t, err)
	assert.Equal(t, "greet", prog.Name)
	require.Len(t, prog.Statements, 2)

	call := prog.Statements[0]
	assert.Equal(t, StmtCallTask, call.Kind)
	assert.Equal(t, "build_greeting", call.TaskName)
	assert.Equal(t, "greetings", call.Options.Queue)
	assert.Equal(t, 5, call.Options.MaxRetries)

	branch := prog.Statements[1]
	assert.Equal(t, StmtBranch, branch.Kind)
	require.Len(t, branch.Then, 1)
	require.Len(t, branch.Else, 1)
}

func TestParseSignalAndLoop(t *testing.T) {
	src := `
workflow approvals {
    count = 0
    while count < 3 {
        approved = wait_signal("approval", timeout=60)
        count = count + 1
    }
    return {rounds: count}
}
`
	prog, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.Statements, 3)
	assert.Equal(t, StmtLoop, prog.Statements[1].Kind)
	require.Len(t, prog.Statements[1].Body, 2)
	assert.Equal(t, StmtWaitSignal, prog.Statements[1].Body[0].Kind)
}

func TestParseVersionAndArithmetic(t *testing.T) {
	src := `
workflow versioned {
    v = version("retry-policy-v2", 1, 2)
	total = (1 + 2) * 3 - v
    return {total: total}
}
`
	prog, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.Statements, 3)
	assert.Equal(t, StmtVersion, prog.Statements[0].Kind)
	assert.Equal(t, "retry-policy-v2", prog.Statements[0].ChangeID)
	assert.Equal(t, 2, prog.Statements[0].Max)
}

func TestParseRejectsMalformedSource(t *testing.T) {
	_, err := Parse(`workflow broken { return }`)
	assert.Error(t, err)
}
