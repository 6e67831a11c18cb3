package shell

// FlowControl holds a block that's still waiting for input to complete.
type FlowControl struct {
	// Level is the number of unterminated blocks, 0 if nothing is pending.
	Level int
	// CurrentStatement is the block being collected.
	CurrentStatement Statement
	// CurrentIfMode is the branch being collected if CurrentStatement is an
	// IfStmt.
	CurrentIfMode IfMode
}

// Pending reports whether a block is waiting for more input.
func (f *FlowControl) Pending() bool {
	return f.Level > 0
}

func (f *FlowControl) reset() {
	f.Level = 0
	f.CurrentStatement = &DefaultStmt{}
	f.CurrentIfMode = IfModeSuccess
}

// take removes the current statement leaving the placeholder behind.
func (f *FlowControl) take() Statement {
	stmt := f.CurrentStatement
	f.reset()
	return stmt
}

// ResetFlowControl discards any partially collected block.
func (s *Shell) ResetFlowControl() {
	s.Flow.reset()
}

// OnCommand parses and runs a batch of input. Blocks left open at the end of
// the input are kept until a later batch closes them.
func (s *Shell) OnCommand(input string) {
	s.OnStatements(NewStatementIterator(input))
}

// OnStatements runs every complete statement from it. Syntax errors are
// reported, abort the rest of the batch and discard any pending block.
func (s *Shell) OnStatements(it StatementIterator) {
	s.aborted = false

	err := s.onStatements(it)
	if err != nil {
		s.reportSyntaxError(err)
	}
	if err != nil || s.aborted {
		s.Flow.reset()
		s.aborted = false
	}
}

func (s *Shell) onStatements(it StatementIterator) error {
	if s.Flow.Pending() {
		complete, err := s.collectPending(it)
		if err != nil || !complete {
			return firstErr(err, it.Err())
		}
		s.executeToplevel(s.Flow.take())
	}

	for !s.stopped() {
		stmt, ok := it.Next()
		if !ok {
			return it.Err()
		}

		switch stmt.(type) {
		case *WhileStmt, *ForStmt, *IfStmt, *FunctionStmt:
			s.Flow.Level = 1
			s.Flow.CurrentStatement = stmt
			s.Flow.CurrentIfMode = IfModeSuccess

			complete, err := s.collectPending(it)
			if err != nil || !complete {
				return firstErr(err, it.Err())
			}
			s.executeToplevel(s.Flow.take())

		case *EndStmt:
			return ErrNoBlockToEnd

		case *ElseStmt, *ElseIfStmt:
			return ErrNotInIf

		default:
			s.executeToplevel(stmt)
		}
	}

	return nil
}

func (s *Shell) collectPending(it StatementIterator) (bool, error) {
	mode, complete, err := collectBlock(it, s.Flow.CurrentStatement, &s.Flow.Level, s.Flow.CurrentIfMode)
	s.Flow.CurrentIfMode = mode
	return complete, err
}

// executeToplevel runs a complete statement outside of any loop.
func (s *Shell) executeToplevel(stmt Statement) {
	// A break outside of a loop has nothing to stop.
	_ = s.executeStatement(stmt)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
