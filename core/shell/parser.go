package shell

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/anmitsu/go-shlex"
	"github.com/josephlewis42/flowsh/core/vars"
)

// StatementIterator yields parsed statements one at a time, similar to
// bufio.Scanner. Once Next returns false, Err reports why.
type StatementIterator interface {
	// Next gets the next statement or false if there are no more.
	Next() (Statement, bool)
	// Err returns the error that stopped the iterator, nil if the input ran out.
	Err() error
}

// NewStatementIterator lazily parses the statements in input.
func NewStatementIterator(input string) StatementIterator {
	return &parseIterator{splitter: statementSplitter{input: []rune(input)}}
}

type parseIterator struct {
	splitter statementSplitter
	err      error
}

func (p *parseIterator) Next() (Statement, bool) {
	if p.err != nil {
		return nil, false
	}

	text, ok, err := p.splitter.next()
	if err != nil {
		p.err = err
		return nil, false
	}
	if !ok {
		return nil, false
	}

	stmt, err := Parse(text)
	if err != nil {
		p.err = err
		return nil, false
	}
	return stmt, true
}

func (p *parseIterator) Err() error {
	return p.err
}

// NewSliceIterator iterates over already parsed statements.
func NewSliceIterator(statements []Statement) StatementIterator {
	return &sliceIterator{statements: statements}
}

type sliceIterator struct {
	statements []Statement
}

func (s *sliceIterator) Next() (Statement, bool) {
	if len(s.statements) == 0 {
		return nil, false
	}
	next := s.statements[0]
	s.statements = s.statements[1:]
	return next, true
}

func (s *sliceIterator) Err() error {
	return nil
}

// statementSplitter breaks input into statements on unquoted semicolons and
// newlines. Comments and blank statements are dropped.
type statementSplitter struct {
	input []rune
	pos   int
}

func (sp *statementSplitter) next() (string, bool, error) {
	for sp.pos < len(sp.input) {
		text, err := sp.scanStatement()
		if err != nil {
			return "", false, err
		}
		if text = strings.TrimSpace(text); text != "" {
			return text, true, nil
		}
	}
	return "", false, nil
}

func (sp *statementSplitter) scanStatement() (string, error) {
	var (
		sb          strings.Builder
		quote       rune
		atWordStart = true
	)

	for ; sp.pos < len(sp.input); sp.pos++ {
		r := sp.input[sp.pos]

		switch {
		case quote != 0:
			sb.WriteRune(r)
			if r == '\\' && quote == '"' && sp.pos+1 < len(sp.input) {
				sp.pos++
				sb.WriteRune(sp.input[sp.pos])
				continue
			}
			if r == quote {
				quote = 0
			}

		case r == '\\':
			if sp.pos+1 < len(sp.input) {
				sp.pos++
				// Line continuation.
				if sp.input[sp.pos] == '\n' {
					sb.WriteRune(' ')
					atWordStart = true
					continue
				}
				sb.WriteRune(r)
				sb.WriteRune(sp.input[sp.pos])
			} else {
				sb.WriteRune(r)
			}
			atWordStart = false

		case r == ';' || r == '\n':
			sp.pos++
			return sb.String(), nil

		case r == '#' && atWordStart:
			for sp.pos < len(sp.input) && sp.input[sp.pos] != '\n' {
				sp.pos++
			}
			sp.pos--

		case r == '\'' || r == '"':
			quote = r
			sb.WriteRune(r)
			atWordStart = false

		default:
			sb.WriteRune(r)
			atWordStart = unicode.IsSpace(r) || strings.ContainsRune("|&<>", r)
		}
	}

	if quote != 0 {
		return "", &SyntaxError{fmt.Sprintf("unterminated %c quote", quote)}
	}
	return sb.String(), nil
}

type tokenKind int

const (
	tokWord tokenKind = iota
	tokPipe
	tokPipeStderr
	tokPipeBoth
	tokAnd
	tokOr
	tokBackground
	tokRedirectIn
	tokRedirectOut
	tokRedirectAppend
)

type token struct {
	kind tokenKind
	text string
}

// tokenize splits a statement into raw words and operators. Quotes and
// escapes are kept in the words so expansion can honor them.
func tokenize(text string) ([]token, error) {
	var (
		tokens []token
		word   strings.Builder
		inWord bool
		quote  rune
	)

	flush := func() {
		if inWord {
			tokens = append(tokens, token{tokWord, word.String()})
			word.Reset()
			inWord = false
		}
	}
	operator := func(kind tokenKind, text string) {
		flush()
		tokens = append(tokens, token{kind, text})
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		var peek rune
		if i+1 < len(runes) {
			peek = runes[i+1]
		}

		switch {
		case quote != 0:
			word.WriteRune(r)
			if r == '\\' && quote == '"' && i+1 < len(runes) {
				i++
				word.WriteRune(runes[i])
				continue
			}
			if r == quote {
				quote = 0
			}
		case r == '\\':
			inWord = true
			word.WriteRune(r)
			if i+1 < len(runes) {
				i++
				word.WriteRune(runes[i])
			}
		case r == '\'' || r == '"':
			inWord = true
			quote = r
			word.WriteRune(r)
		case unicode.IsSpace(r):
			flush()
		case r == '|' && peek == '|':
			operator(tokOr, "||")
			i++
		case r == '|':
			operator(tokPipe, "|")
		case r == '^' && peek == '|':
			operator(tokPipeStderr, "^|")
			i++
		case r == '&' && peek == '&':
			operator(tokAnd, "&&")
			i++
		case r == '&' && peek == '|':
			operator(tokPipeBoth, "&|")
			i++
		case r == '&':
			operator(tokBackground, "&")
		case r == '>' && peek == '>':
			operator(tokRedirectAppend, ">>")
			i++
		case r == '>':
			operator(tokRedirectOut, ">")
		case r == '<':
			operator(tokRedirectIn, "<")
		default:
			inWord = true
			word.WriteRune(r)
		}
	}

	if quote != 0 {
		return nil, &SyntaxError{fmt.Sprintf("unterminated %c quote", quote)}
	}
	flush()
	return tokens, nil
}

// splitWords splits text into raw words, ignoring operators.
func splitWords(text string) []string {
	tokens, err := tokenize(text)
	if err != nil {
		return strings.Fields(text)
	}

	var out []string
	for _, tok := range tokens {
		if tok.kind == tokWord {
			out = append(out, tok.text)
		}
	}
	return out
}

// dequote removes the quotes from a word without expanding it.
func dequote(word string) string {
	fields, err := shlex.Split(word, true)
	if err != nil || len(fields) != 1 {
		return word
	}
	return fields[0]
}

// Parse converts the text of a single statement into a Statement.
func Parse(text string) (Statement, error) {
	tokens, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return &DefaultStmt{}, nil
	}

	if tokens[0].kind == tokWord {
		rest := tokens[1:]

		switch tokens[0].text {
		case "end":
			return &EndStmt{}, nil

		case "break":
			return &BreakStmt{}, nil

		case "else":
			if len(rest) == 0 {
				return &ElseStmt{}, nil
			}
			if rest[0].kind != tokWord || rest[0].text != "if" {
				return nil, &SyntaxError{fmt.Sprintf("else: unexpected %q", rest[0].text)}
			}
			expression, err := parsePipeline(rest[1:])
			if err != nil {
				return nil, prefixError("else if", err)
			}
			return &ElseIfStmt{Expression: expression}, nil

		case "if":
			expression, err := parsePipeline(rest)
			if err != nil {
				return nil, prefixError("if", err)
			}
			return &IfStmt{Expression: expression}, nil

		case "while":
			expression, err := parsePipeline(rest)
			if err != nil {
				return nil, prefixError("while", err)
			}
			return &WhileStmt{Expression: expression}, nil

		case "for":
			return parseFor(rest)

		case "fn":
			// A bare fn lists the defined functions.
			if len(rest) > 0 {
				return parseFunction(rest)
			}
		}
	}

	pipeline, err := parsePipeline(tokens)
	if err != nil {
		return nil, err
	}
	return &PipelinesStmt{Pipelines: []*Pipeline{pipeline}}, nil
}

// ParsePipeline parses text as a single pipeline.
func ParsePipeline(text string) (*Pipeline, error) {
	tokens, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	return parsePipeline(tokens)
}

func parseFor(tokens []token) (Statement, error) {
	if len(tokens) < 2 || tokens[1].kind != tokWord || tokens[1].text != "in" {
		return nil, &SyntaxError{"for: expected VARIABLE in VALUES"}
	}

	variable := tokens[0].text
	if variable != noBindVariable && !vars.IsValidName(variable) {
		return nil, &SyntaxError{fmt.Sprintf("for: invalid variable name %q", variable)}
	}

	var values []string
	for _, tok := range tokens[2:] {
		if tok.kind != tokWord {
			return nil, &SyntaxError{fmt.Sprintf("for: unexpected %q", tok.text)}
		}
		values = append(values, tok.text)
	}

	return &ForStmt{Variable: variable, Values: strings.Join(values, " ")}, nil
}

func parseFunction(tokens []token) (Statement, error) {
	var words []string
	for _, tok := range tokens {
		if tok.kind != tokWord {
			return nil, &SyntaxError{fmt.Sprintf("fn: unexpected %q", tok.text)}
		}
		words = append(words, dequote(tok.text))
	}

	for _, arg := range words[1:] {
		if !vars.IsValidName(arg) {
			return nil, &SyntaxError{fmt.Sprintf("fn: invalid parameter name %q", arg)}
		}
	}

	return &FunctionStmt{Name: words[0], Args: words[1:]}, nil
}

func parsePipeline(tokens []token) (*Pipeline, error) {
	var (
		pipeline = &Pipeline{}
		words    []string
		redirect *token
	)

	addJob := func(kind JobKind, from RedirectFrom, op string) error {
		if len(words) == 0 {
			return &SyntaxError{fmt.Sprintf("expected a command before %q", op)}
		}
		words[0] = dequote(words[0])
		job := NewJob(words, kind)
		job.From = from
		pipeline.Jobs = append(pipeline.Jobs, job)
		words = nil
		return nil
	}

	for i := range tokens {
		tok := tokens[i]

		if redirect != nil {
			if tok.kind != tokWord {
				return nil, &SyntaxError{fmt.Sprintf("expected a file after %q", redirect.text)}
			}
			switch redirect.kind {
			case tokRedirectIn:
				pipeline.Stdin = tok.text
			case tokRedirectOut:
				pipeline.Stdout = tok.text
				pipeline.Append = false
			case tokRedirectAppend:
				pipeline.Stdout = tok.text
				pipeline.Append = true
			}
			redirect = nil
			continue
		}

		var err error
		switch tok.kind {
		case tokWord:
			words = append(words, tok.text)
		case tokPipe:
			err = addJob(KindPipe, RedirectStdout, tok.text)
		case tokPipeStderr:
			err = addJob(KindPipe, RedirectStderr, tok.text)
		case tokPipeBoth:
			err = addJob(KindPipe, RedirectBoth, tok.text)
		case tokAnd:
			err = addJob(KindAnd, RedirectStdout, tok.text)
		case tokOr:
			err = addJob(KindOr, RedirectStdout, tok.text)
		case tokBackground:
			err = addJob(KindBackground, RedirectStdout, tok.text)
		case tokRedirectIn, tokRedirectOut, tokRedirectAppend:
			redirect = &tokens[i]
		}
		if err != nil {
			return nil, err
		}
	}

	if redirect != nil {
		return nil, &SyntaxError{fmt.Sprintf("expected a file after %q", redirect.text)}
	}

	switch {
	case len(words) > 0:
		if err := addJob(KindLast, RedirectStdout, ""); err != nil {
			return nil, err
		}
	case len(pipeline.Jobs) == 0:
		return nil, &SyntaxError{"expected a command"}
	default:
		if last := pipeline.Jobs[len(pipeline.Jobs)-1]; last.Kind != KindBackground {
			return nil, &SyntaxError{fmt.Sprintf("expected a command after %q", last.Kind)}
		}
	}

	return pipeline, nil
}

func prefixError(prefix string, err error) error {
	if syntaxErr, ok := err.(*SyntaxError); ok {
		return &SyntaxError{prefix + ": " + syntaxErr.Msg}
	}
	return err
}
