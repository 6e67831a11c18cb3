package shell

// IfMode is the branch of an if statement being collected.
type IfMode int

const (
	IfModeSuccess IfMode = iota
	IfModeElseIf
	IfModeFailure
)

func (m IfMode) String() string {
	switch m {
	case IfModeElseIf:
		return "else-if"
	case IfModeFailure:
		return "failure"
	default:
		return "success"
	}
}

// collectLoops moves statements from it into body until the block opened at
// *level is closed. Nested block openers and their ends are kept in the body,
// only the final end is consumed. It reports whether the block was closed
// before the statements ran out.
func collectLoops(it StatementIterator, body *[]Statement, level *int) bool {
	for *level > 0 {
		stmt, ok := it.Next()
		if !ok {
			return false
		}

		switch {
		case isBlockOpener(stmt):
			*level++
		case isEnd(stmt):
			*level--
			if *level == 0 {
				return true
			}
		}

		*body = append(*body, stmt)
	}

	return true
}

// collectIf is collectLoops for if statements. Else and else-if markers that
// belong to stmt switch the branch statements are routed to. It returns the
// branch being collected so collection can resume later.
func collectIf(it StatementIterator, stmt *IfStmt, level *int, mode IfMode) (IfMode, bool, error) {
	for *level > 0 {
		next, ok := it.Next()
		if !ok {
			return mode, false, nil
		}

		switch marker := next.(type) {
		case *WhileStmt, *ForStmt, *IfStmt, *FunctionStmt:
			*level++
		case *EndStmt:
			*level--
			if *level == 0 {
				return mode, true, nil
			}
		case *ElseStmt:
			if *level == 1 {
				if mode == IfModeFailure {
					return mode, false, ErrElseGiven
				}
				mode = IfModeFailure
				continue
			}
		case *ElseIfStmt:
			if *level == 1 {
				if mode == IfModeFailure {
					return mode, false, ErrElseGiven
				}
				mode = IfModeElseIf
				stmt.ElseIf = append(stmt.ElseIf, marker)
				continue
			}
		}

		switch mode {
		case IfModeSuccess:
			stmt.Success = append(stmt.Success, next)
		case IfModeElseIf:
			branch := stmt.ElseIf[len(stmt.ElseIf)-1]
			branch.Success = append(branch.Success, next)
		case IfModeFailure:
			stmt.Failure = append(stmt.Failure, next)
		}
	}

	return mode, true, nil
}

// collectBlock fills in the body of a block opener with the statements from
// it, starting at the given depth and branch.
func collectBlock(it StatementIterator, block Statement, level *int, mode IfMode) (IfMode, bool, error) {
	switch block := block.(type) {
	case *IfStmt:
		return collectIf(it, block, level, mode)
	case *WhileStmt:
		return mode, collectLoops(it, &block.Statements, level), nil
	case *ForStmt:
		return mode, collectLoops(it, &block.Statements, level), nil
	case *FunctionStmt:
		return mode, collectLoops(it, &block.Statements, level), nil
	default:
		*level = 0
		return mode, true, nil
	}
}

func isEnd(stmt Statement) bool {
	_, ok := stmt.(*EndStmt)
	return ok
}
