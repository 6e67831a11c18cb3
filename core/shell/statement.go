package shell

// Statement is a single parsed unit of shell input. The set of
// implementations is closed.
type Statement interface {
	isStatement()
}

// PipelinesStmt runs each pipeline in order, independent of their statuses.
type PipelinesStmt struct {
	Pipelines []*Pipeline
}

// WhileStmt runs Statements for as long as Expression succeeds.
type WhileStmt struct {
	Expression *Pipeline
	Statements []Statement
}

// ForStmt binds Variable to every value Values expands to, running
// Statements for each one. Values is kept unexpanded until the loop runs.
type ForStmt struct {
	Variable   string
	Values     string
	Statements []Statement
}

// IfStmt runs exactly one of its branches.
type IfStmt struct {
	Expression *Pipeline
	Success    []Statement
	ElseIf     []*ElseIfStmt
	Failure    []Statement
}

// ElseIfStmt is an alternate branch of an IfStmt.
type ElseIfStmt struct {
	Expression *Pipeline
	Success    []Statement
}

// ElseStmt starts the failure branch of an IfStmt.
type ElseStmt struct{}

// FunctionStmt registers a function when executed.
type FunctionStmt struct {
	Name       string
	Args       []string
	Statements []Statement
}

// EndStmt terminates the innermost open block.
type EndStmt struct{}

// BreakStmt exits the innermost loop.
type BreakStmt struct{}

// DefaultStmt is an empty placeholder.
type DefaultStmt struct{}

func (*PipelinesStmt) isStatement() {}
func (*WhileStmt) isStatement()     {}
func (*ForStmt) isStatement()       {}
func (*IfStmt) isStatement()        {}
func (*ElseIfStmt) isStatement()    {}
func (*ElseStmt) isStatement()      {}
func (*FunctionStmt) isStatement()  {}
func (*EndStmt) isStatement()       {}
func (*BreakStmt) isStatement()     {}
func (*DefaultStmt) isStatement()   {}

// isBlockOpener reports whether the statement needs a matching end.
func isBlockOpener(stmt Statement) bool {
	switch stmt.(type) {
	case *WhileStmt, *ForStmt, *IfStmt, *FunctionStmt:
		return true
	default:
		return false
	}
}

// cloneStatements makes a deep copy of the statements so executing the copy
// can't change the original.
func cloneStatements(statements []Statement) []Statement {
	if statements == nil {
		return nil
	}

	out := make([]Statement, len(statements))
	for i, stmt := range statements {
		out[i] = cloneStatement(stmt)
	}
	return out
}

func cloneStatement(stmt Statement) Statement {
	switch stmt := stmt.(type) {
	case *PipelinesStmt:
		pipelines := make([]*Pipeline, len(stmt.Pipelines))
		for i, p := range stmt.Pipelines {
			pipelines[i] = p.Clone()
		}
		return &PipelinesStmt{Pipelines: pipelines}
	case *WhileStmt:
		return &WhileStmt{
			Expression: stmt.Expression.Clone(),
			Statements: cloneStatements(stmt.Statements),
		}
	case *ForStmt:
		return &ForStmt{
			Variable:   stmt.Variable,
			Values:     stmt.Values,
			Statements: cloneStatements(stmt.Statements),
		}
	case *IfStmt:
		var elseIf []*ElseIfStmt
		for _, branch := range stmt.ElseIf {
			elseIf = append(elseIf, cloneStatement(branch).(*ElseIfStmt))
		}
		return &IfStmt{
			Expression: stmt.Expression.Clone(),
			Success:    cloneStatements(stmt.Success),
			ElseIf:     elseIf,
			Failure:    cloneStatements(stmt.Failure),
		}
	case *ElseIfStmt:
		return &ElseIfStmt{
			Expression: stmt.Expression.Clone(),
			Success:    cloneStatements(stmt.Success),
		}
	case *FunctionStmt:
		return &FunctionStmt{
			Name:       stmt.Name,
			Args:       append([]string(nil), stmt.Args...),
			Statements: cloneStatements(stmt.Statements),
		}
	case *ElseStmt:
		return &ElseStmt{}
	case *EndStmt:
		return &EndStmt{}
	case *BreakStmt:
		return &BreakStmt{}
	default:
		return &DefaultStmt{}
	}
}
