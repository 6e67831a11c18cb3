package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, text string) Statement {
	t.Helper()

	stmt, err := Parse(text)
	require.NoError(t, err)
	return stmt
}

func mustParseAll(t *testing.T, lines ...string) []Statement {
	t.Helper()

	var out []Statement
	for _, line := range lines {
		out = append(out, mustParse(t, line))
	}
	return out
}

func TestCollectLoops(t *testing.T) {
	t.Run("complete with nested block", func(t *testing.T) {
		it := NewSliceIterator(mustParseAll(t,
			"echo a",
			"while true",
			"echo b",
			"end",
			"end",
			"echo after",
		))

		var body []Statement
		level := 1
		complete := collectLoops(it, &body, &level)

		assert.True(t, complete)
		assert.Equal(t, 0, level)
		require.Len(t, body, 4)
		assert.IsType(t, &WhileStmt{}, body[1])
		assert.IsType(t, &EndStmt{}, body[3])

		// The statements after the block are untouched.
		next, ok := it.Next()
		require.True(t, ok)
		assert.Equal(t, []string{"echo", "after"}, next.(*PipelinesStmt).Pipelines[0].Jobs[0].Args)
	})

	t.Run("incomplete", func(t *testing.T) {
		it := NewSliceIterator(mustParseAll(t, "echo a", "if true"))

		var body []Statement
		level := 1
		complete := collectLoops(it, &body, &level)

		assert.False(t, complete)
		assert.Equal(t, 2, level)
		assert.Len(t, body, 2)
	})

	t.Run("resumes", func(t *testing.T) {
		var body []Statement
		level := 1

		assert.False(t, collectLoops(NewSliceIterator(mustParseAll(t, "echo a")), &body, &level))
		assert.True(t, collectLoops(NewSliceIterator(mustParseAll(t, "echo b", "end")), &body, &level))
		assert.Len(t, body, 2)
		assert.Equal(t, 0, level)
	})

	t.Run("already complete", func(t *testing.T) {
		it := NewSliceIterator(mustParseAll(t, "echo a"))

		var body []Statement
		level := 0
		assert.True(t, collectLoops(it, &body, &level))
		assert.Empty(t, body)

		_, ok := it.Next()
		assert.True(t, ok)
	})
}

func TestCollectIf(t *testing.T) {
	t.Run("routes branches", func(t *testing.T) {
		it := NewSliceIterator(mustParseAll(t,
			"echo a",
			"else if false",
			"echo b",
			"else if true",
			"echo c",
			"else",
			"echo d",
			"end",
		))

		stmt := &IfStmt{}
		level := 1
		mode, complete, err := collectIf(it, stmt, &level, IfModeSuccess)

		require.NoError(t, err)
		assert.True(t, complete)
		assert.Equal(t, IfModeFailure, mode)
		assert.Len(t, stmt.Success, 1)
		require.Len(t, stmt.ElseIf, 2)
		assert.Len(t, stmt.ElseIf[0].Success, 1)
		assert.Len(t, stmt.ElseIf[1].Success, 1)
		assert.Len(t, stmt.Failure, 1)
	})

	t.Run("nested else stays in body", func(t *testing.T) {
		it := NewSliceIterator(mustParseAll(t,
			"if false",
			"else",
			"echo nested",
			"end",
			"end",
		))

		stmt := &IfStmt{}
		level := 1
		mode, complete, err := collectIf(it, stmt, &level, IfModeSuccess)

		require.NoError(t, err)
		assert.True(t, complete)
		assert.Equal(t, IfModeSuccess, mode)
		assert.Len(t, stmt.Success, 4)
		assert.Empty(t, stmt.Failure)
	})

	t.Run("resumes in saved branch", func(t *testing.T) {
		stmt := &IfStmt{}
		level := 1

		mode, complete, err := collectIf(NewSliceIterator(mustParseAll(t, "echo a", "else")), stmt, &level, IfModeSuccess)
		require.NoError(t, err)
		assert.False(t, complete)
		assert.Equal(t, IfModeFailure, mode)

		mode, complete, err = collectIf(NewSliceIterator(mustParseAll(t, "echo b", "end")), stmt, &level, mode)
		require.NoError(t, err)
		assert.True(t, complete)
		assert.Len(t, stmt.Success, 1)
		assert.Len(t, stmt.Failure, 1)
	})

	t.Run("else after else", func(t *testing.T) {
		it := NewSliceIterator(mustParseAll(t, "else", "echo a", "else"))

		level := 1
		_, _, err := collectIf(it, &IfStmt{}, &level, IfModeSuccess)
		assert.Equal(t, ErrElseGiven, err)
	})

	t.Run("else if after else", func(t *testing.T) {
		it := NewSliceIterator(mustParseAll(t, "else if true"))

		level := 1
		_, _, err := collectIf(it, &IfStmt{}, &level, IfModeFailure)
		assert.Equal(t, ErrElseGiven, err)
	})
}

func TestCloneStatements(t *testing.T) {
	original := mustParseAll(t, "echo $x", "while true")
	clone := cloneStatements(original)

	clone[0].(*PipelinesStmt).Pipelines[0].Jobs[0].Args[1] = "changed"
	clone[1].(*WhileStmt).Statements = append(clone[1].(*WhileStmt).Statements, &BreakStmt{})

	assert.Equal(t, "$x", original[0].(*PipelinesStmt).Pipelines[0].Jobs[0].Args[1])
	assert.Empty(t, original[1].(*WhileStmt).Statements)
}
