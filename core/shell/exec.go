package shell

import (
	"regexp"
	"strconv"

	"github.com/josephlewis42/flowsh/core/logger"
)

var (
	rangeRegex = regexp.MustCompile(`^(-?\d+)\.\.(-?\d+)$`)
)

// noBindVariable is the loop variable name that skips binding values.
const noBindVariable = "_"

// Function is a user defined command.
type Function struct {
	Name       string
	Args       []string
	Statements []Statement
}

// executeStatements runs a flattened body, collecting nested blocks as it
// goes. It reports whether a break was requested. A syntax error in the body
// aborts the batch.
func (s *Shell) executeStatements(statements []Statement) bool {
	it := NewSliceIterator(statements)

	for !s.stopped() {
		stmt, ok := it.Next()
		if !ok {
			return false
		}

		if isBlockOpener(stmt) {
			level := 1
			if _, _, err := collectBlock(it, stmt, &level, IfModeSuccess); err != nil {
				s.abort(err)
				return false
			}
		}

		if s.executeStatement(stmt) {
			return true
		}
	}

	return false
}

// executeStatement runs a complete statement. It reports whether a break was
// requested.
func (s *Shell) executeStatement(stmt Statement) bool {
	switch stmt := stmt.(type) {
	case *PipelinesStmt:
		for _, pipeline := range stmt.Pipelines {
			s.RunPipeline(pipeline)
		}
	case *WhileStmt:
		s.executeWhile(stmt)
	case *ForStmt:
		s.executeFor(stmt)
	case *IfStmt:
		return s.executeIf(stmt)
	case *FunctionStmt:
		s.defineFunction(stmt)
	case *BreakStmt:
		return true
	case *EndStmt:
		s.abort(ErrNoBlockToEnd)
	case *ElseStmt, *ElseIfStmt:
		s.abort(ErrNotInIf)
	case *DefaultStmt:
		s.abort(ErrEmptyStatement)
	}

	return false
}

func (s *Shell) executeWhile(stmt *WhileStmt) {
	for !s.stopped() && s.runCondition(stmt.Expression) {
		if s.executeStatements(cloneStatements(stmt.Statements)) {
			return
		}
	}
}

func (s *Shell) executeFor(stmt *ForStmt) {
	for _, value := range s.forValues(stmt.Values) {
		if s.stopped() {
			return
		}
		if stmt.Variable != noBindVariable {
			s.Variables.Set(stmt.Variable, value)
		}
		if s.executeStatements(cloneStatements(stmt.Statements)) {
			return
		}
	}
}

// forValues expands the values of a for loop. A single start..end field is
// treated as the half-open integer range [start, end).
func (s *Shell) forValues(values string) []string {
	var fields []string
	for _, word := range splitWords(values) {
		job := &Job{Args: []string{"for", word}}
		job.Expand(s)
		fields = append(fields, job.Args[1:]...)
	}

	if len(fields) == 1 {
		if match := rangeRegex.FindStringSubmatch(fields[0]); match != nil {
			start, startErr := strconv.Atoi(match[1])
			end, endErr := strconv.Atoi(match[2])
			if startErr == nil && endErr == nil {
				var out []string
				for i := start; i < end; i++ {
					out = append(out, strconv.Itoa(i))
				}
				return out
			}
		}
	}

	return fields
}

func (s *Shell) executeIf(stmt *IfStmt) bool {
	if s.runCondition(stmt.Expression) {
		return s.executeStatements(cloneStatements(stmt.Success))
	}

	for _, branch := range stmt.ElseIf {
		if s.runCondition(branch.Expression) {
			return s.executeStatements(cloneStatements(branch.Success))
		}
	}

	return s.executeStatements(cloneStatements(stmt.Failure))
}

// runCondition runs a copy of the pipeline and reports whether it succeeded.
func (s *Shell) runCondition(expression *Pipeline) bool {
	if expression == nil {
		return false
	}
	status, ok := s.RunPipeline(expression.Clone())
	return ok && status == StatusSuccess
}

func (s *Shell) defineFunction(stmt *FunctionStmt) {
	s.Functions[stmt.Name] = &Function{
		Name:       stmt.Name,
		Args:       stmt.Args,
		Statements: stmt.Statements,
	}

	s.recordEvent(&logger.DefineFunction{Name: stmt.Name, Args: stmt.Args})
}

// callFunction binds args to the function's parameters and runs its body.
func (s *Shell) callFunction(fn *Function, args []string) int {
	if given := len(args) - 1; given != len(fn.Args) {
		s.errorf("%s: expected %d arguments, got %d", fn.Name, len(fn.Args), given)
		return StatusFailure
	}

	for i, name := range fn.Args {
		s.Variables.Set(name, args[i+1])
	}

	// A break can't escape the function.
	_ = s.executeStatements(cloneStatements(fn.Statements))
	return s.previousStatus
}
