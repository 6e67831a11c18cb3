package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectStatements(t *testing.T, input string) ([]Statement, error) {
	t.Helper()

	it := NewStatementIterator(input)
	var out []Statement
	for {
		stmt, ok := it.Next()
		if !ok {
			return out, it.Err()
		}
		out = append(out, stmt)
	}
}

func TestStatementIterator(t *testing.T) {
	statements, err := collectStatements(t, "echo a; echo b\n# comment ; not a statement\n\n  ;; echo 'c;d' # trailing\necho a#b")
	require.NoError(t, err)
	require.Len(t, statements, 4)

	var args [][]string
	for _, stmt := range statements {
		args = append(args, stmt.(*PipelinesStmt).Pipelines[0].Jobs[0].Args)
	}
	assert.Equal(t, [][]string{
		{"echo", "a"},
		{"echo", "b"},
		{"echo", "'c;d'"},
		{"echo", "a#b"},
	}, args)
}

func TestStatementIterator_LineContinuation(t *testing.T) {
	statements, err := collectStatements(t, "echo a \\\n  b")
	require.NoError(t, err)
	require.Len(t, statements, 1)
	assert.Equal(t, []string{"echo", "a", "b"}, statements[0].(*PipelinesStmt).Pipelines[0].Jobs[0].Args)
}

func TestStatementIterator_StopsAtError(t *testing.T) {
	statements, err := collectStatements(t, "echo a; | b; echo c")
	assert.Len(t, statements, 1)
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	t.Run("keywords", func(t *testing.T) {
		assert.IsType(t, &EndStmt{}, mustParse(t, "end"))
		assert.IsType(t, &BreakStmt{}, mustParse(t, "break"))
		assert.IsType(t, &ElseStmt{}, mustParse(t, "else"))
		assert.IsType(t, &PipelinesStmt{}, mustParse(t, "fn"))
		assert.IsType(t, &PipelinesStmt{}, mustParse(t, "'if' true"))
	})

	t.Run("if", func(t *testing.T) {
		stmt := mustParse(t, "if test $x == 1").(*IfStmt)
		assert.Equal(t, []string{"test", "$x", "==", "1"}, stmt.Expression.Jobs[0].Args)
	})

	t.Run("else if", func(t *testing.T) {
		stmt := mustParse(t, "else if false").(*ElseIfStmt)
		assert.Equal(t, "false", stmt.Expression.Jobs[0].Command)
	})

	t.Run("while", func(t *testing.T) {
		stmt := mustParse(t, "while true && false").(*WhileStmt)
		assert.Len(t, stmt.Expression.Jobs, 2)
	})

	t.Run("for", func(t *testing.T) {
		stmt := mustParse(t, "for x in 1..4").(*ForStmt)
		assert.Equal(t, "x", stmt.Variable)
		assert.Equal(t, "1..4", stmt.Values)

		stmt = mustParse(t, "for f in *.txt   'a b'").(*ForStmt)
		assert.Equal(t, "*.txt 'a b'", stmt.Values)
	})

	t.Run("function", func(t *testing.T) {
		stmt := mustParse(t, "fn greet who greeting").(*FunctionStmt)
		assert.Equal(t, "greet", stmt.Name)
		assert.Equal(t, []string{"who", "greeting"}, stmt.Args)
	})

	t.Run("quoted command", func(t *testing.T) {
		stmt := mustParse(t, `"echo" "hi there"`).(*PipelinesStmt)
		job := stmt.Pipelines[0].Jobs[0]
		assert.Equal(t, "echo", job.Command)
		assert.Equal(t, []string{"echo", `"hi there"`}, job.Args)
	})
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"leading pipe":       "| a",
		"trailing pipe":      "a |",
		"trailing and":       "a &&",
		"missing redirect":   "a >",
		"redirect operator":  "a > | b",
		"unterminated quote": `echo "hi`,
		"missing condition":  "if",
		"for without in":     "for x 1 2",
		"for bad variable":   "for 1x in a",
		"fn bad parameter":   "fn f 1bad",
		"else garbage":       "else echo",
	}

	for tn, input := range cases {
		t.Run(tn, func(t *testing.T) {
			_, err := Parse(input)
			require.Error(t, err)
			assert.IsType(t, &SyntaxError{}, err)
		})
	}
}

func TestParsePipeline(t *testing.T) {
	p, err := ParsePipeline("a | b ^| c &| d && e || f & g")
	require.NoError(t, err)

	var kinds []JobKind
	var froms []RedirectFrom
	for _, job := range p.Jobs {
		kinds = append(kinds, job.Kind)
		froms = append(froms, job.From)
	}

	assert.Equal(t, []JobKind{KindPipe, KindPipe, KindPipe, KindAnd, KindOr, KindBackground, KindLast}, kinds)
	assert.Equal(t, []RedirectFrom{RedirectStdout, RedirectStderr, RedirectBoth}, froms[:3])
	assert.Equal(t, "a | b ^| c &| d && e || f & g", p.String())

	chains := p.chains()
	assert.Len(t, chains, 4)
	assert.Len(t, chains[0], 4)
}

func TestParsePipeline_Redirects(t *testing.T) {
	p, err := ParsePipeline("sort < in.txt >> out.txt")
	require.NoError(t, err)

	assert.Equal(t, "in.txt", p.Stdin)
	assert.Equal(t, "out.txt", p.Stdout)
	assert.True(t, p.Append)
	assert.Equal(t, []string{"sort"}, p.Jobs[0].Args)

	p, err = ParsePipeline("echo hi >out.txt")
	require.NoError(t, err)
	assert.Equal(t, "out.txt", p.Stdout)
	assert.False(t, p.Append)
}

func TestParsePipeline_TrailingBackground(t *testing.T) {
	p, err := ParsePipeline("sleep 10 &")
	require.NoError(t, err)
	require.Len(t, p.Jobs, 1)
	assert.Equal(t, KindBackground, p.Jobs[0].Kind)
}
