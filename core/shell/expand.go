package shell

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/anmitsu/go-shlex"
	"github.com/spf13/afero"
)

var _ Expander = (*Shell)(nil)

// ExpandString expands a raw word into the values of its fields.
func (s *Shell) ExpandString(word string) []string {
	var out []string
	for _, field := range s.ExpandWord(word) {
		out = append(out, field.Value)
	}
	return out
}

// ExpandWord expands a raw word into fields. Brace lists produce a field per
// entry, then variables and tildes are substituted and quotes removed.
// A word made only of variables that are all empty produces no fields.
func (s *Shell) ExpandWord(word string) []Field {
	var out []Field
	for _, alternative := range expandBraces(word) {
		sub := s.substitute(alternative)
		value, err := unquote(sub.value.String())
		if err != nil {
			out = append(out, Field{Value: alternative, Pattern: escapeGlob(alternative)})
			continue
		}
		if value == "" && sub.onlyVars && sub.allVarsEmpty {
			continue
		}

		field := Field{Value: value, Pattern: escapeGlob(value)}
		if sub.glob {
			if pattern, err := unquote(sub.pattern.String()); err == nil {
				field.Pattern, field.Glob = pattern, true
			}
		}
		out = append(out, field)
	}
	return out
}

func unquote(word string) (string, error) {
	fields, err := shlex.Split(word, true)
	if err != nil {
		return "", err
	}
	return strings.Join(fields, ""), nil
}

// escapeGlob escapes the characters Glob treats specially.
func escapeGlob(text string) string {
	var out strings.Builder
	for _, r := range text {
		if strings.ContainsRune(globChars, r) || r == '\\' {
			out.WriteRune('\\')
		}
		out.WriteRune(r)
	}
	return out.String()
}

// Glob matches pattern against the shell's filesystem. Relative patterns are
// matched from the working directory and the matches are relative too.
func (s *Shell) Glob(pattern string) ([]string, error) {
	cwd := s.Directories.Current()
	relative := !filepath.IsAbs(pattern)
	if relative {
		pattern = filepath.Join(escapeGlob(cwd), pattern)
	}

	matches, err := afero.Glob(s.Fs, pattern)
	if err != nil {
		return nil, err
	}

	if relative {
		for i, match := range matches {
			if rel, err := filepath.Rel(cwd, match); err == nil {
				matches[i] = rel
			}
		}
	}
	return matches, nil
}

// substitution is a word with its variables and tildes replaced, still
// quoted. value reads back as the expanded text. pattern reads back as the
// same text with every glob character that came from quoted or escaped
// source, or from a quoted variable, escaped.
type substitution struct {
	value   strings.Builder
	pattern strings.Builder
	// glob is set if an unquoted glob character made it into pattern.
	glob bool

	onlyVars     bool
	allVarsEmpty bool
}

// literal writes text that must be taken as-is to pattern. quote is the
// quoting in effect at this point of the output.
func (sub *substitution) literal(text string, quote rune) {
	quoted := singleQuote(escapeGlob(text))
	if quote == '"' {
		quoted = `"` + quoted + `"`
	}
	sub.pattern.WriteString(quoted)
}

// both writes raw text to value and pattern.
func (sub *substitution) both(text string) {
	sub.value.WriteString(text)
	sub.pattern.WriteString(text)
}

// substitute replaces variables and tildes in word. Substituted values are
// single quoted so they're taken literally. It also tracks whether the word
// consisted of nothing but empty variables.
func (s *Shell) substitute(word string) *substitution {
	sub := &substitution{onlyVars: true, allVarsEmpty: true}
	var quote rune

	runes := []rune(word)
	i := 0

	if len(runes) > 0 && runes[0] == '~' {
		end := 1
		for end < len(runes) && runes[end] != '/' {
			end++
		}
		if dir, ok := s.expandTilde(string(runes[1:end])); ok {
			sub.value.WriteString(singleQuote(dir))
			sub.literal(dir, 0)
			sub.onlyVars = false
			i = end
		}
	}

	for ; i < len(runes); i++ {
		r := runes[i]

		switch {
		case quote == '\'':
			sub.value.WriteRune(r)
			if r == '\'' {
				quote = 0
				sub.pattern.WriteRune(r)
			} else {
				// Still inside the single quotes, the escape is kept.
				sub.pattern.WriteString(escapeGlob(string(r)))
			}

		case r == '\\':
			sub.onlyVars = false
			sub.value.WriteRune(r)
			if i+1 >= len(runes) {
				sub.pattern.WriteRune(r)
				continue
			}
			i++
			next := runes[i]
			sub.value.WriteRune(next)

			// Inside double quotes only \\ and \" lose the backslash.
			text := string(next)
			if quote == '"' && next != '\\' && next != '"' {
				text = `\` + text
			}
			sub.literal(text, quote)

		case r == '\'' && quote == 0:
			sub.onlyVars = false
			quote = r
			sub.both(string(r))

		case r == '"':
			sub.onlyVars = false
			if quote == 0 {
				quote = r
			} else {
				quote = 0
			}
			sub.both(string(r))

		case r == '$':
			value, consumed, ok := s.expandVariable(runes[i+1:])
			if !ok {
				sub.onlyVars = false
				sub.both(string(r))
				continue
			}
			if value != "" {
				sub.allVarsEmpty = false
			}
			if quote == '"' {
				// Close the double quotes around the literal value.
				sub.value.WriteString(`"` + singleQuote(value) + `"`)
				sub.literal(value, quote)
			} else {
				sub.value.WriteString(singleQuote(value))
				sub.pattern.WriteString(singleQuote(strings.ReplaceAll(value, `\`, `\\`)))
				if strings.ContainsAny(value, globChars) {
					sub.glob = true
				}
			}
			i += consumed

		default:
			sub.onlyVars = false
			sub.value.WriteRune(r)
			switch {
			case quote == '"' && strings.ContainsRune(globChars, r):
				sub.literal(string(r), quote)
			case quote == 0 && strings.ContainsRune(globChars, r):
				sub.pattern.WriteRune(r)
				sub.glob = true
			default:
				sub.pattern.WriteRune(r)
			}
		}
	}

	return sub
}

// expandVariable reads a variable reference from the runes following a $.
// It returns the value and how many runes the reference used.
func (s *Shell) expandVariable(runes []rune) (string, int, bool) {
	if len(runes) == 0 {
		return "", 0, false
	}

	switch r := runes[0]; {
	case r == '?':
		return s.Variables.Get(EnvStatus), 1, true
	case r == '$':
		return strconv.Itoa(os.Getpid()), 1, true
	case r == '{':
		for end, c := range runes {
			if c == '}' {
				return s.lookupReference(string(runes[1:end])), end + 1, true
			}
		}
		return "", 0, false
	case r == '_' || unicode.IsLetter(r):
		end := 1
		for end < len(runes) && (runes[end] == '_' || unicode.IsLetter(runes[end]) || unicode.IsDigit(runes[end])) {
			end++
		}
		return s.Variables.Get(string(runes[:end])), end, true
	default:
		return "", 0, false
	}
}

// lookupReference resolves the contents of ${...}: NAME, NAME[index] or
// NAME[start..end] where indexes select whitespace separated fields.
func (s *Shell) lookupReference(ref string) string {
	open := strings.IndexRune(ref, '[')
	if open < 0 || !strings.HasSuffix(ref, "]") {
		if ref == EnvStatus {
			return s.Variables.Get(EnvStatus)
		}
		return s.Variables.Get(ref)
	}

	name, index := ref[:open], ref[open+1:len(ref)-1]
	if match := rangeRegex.FindStringSubmatch(index); match != nil {
		start, _ := strconv.Atoi(match[1])
		end, _ := strconv.Atoi(match[2])
		return strings.Join(s.Variables.Range(name, start, end), " ")
	}

	i, err := strconv.Atoi(index)
	if err != nil {
		return ""
	}
	if fields := s.Variables.List(name); i >= 0 && i < len(fields) {
		return fields[i]
	}
	return ""
}

// expandTilde resolves ~, ~+ and ~- prefixes.
func (s *Shell) expandTilde(suffix string) (string, bool) {
	switch suffix {
	case "":
		home, ok := s.Variables.Lookup(EnvHome)
		return home, ok
	case "+":
		return s.Directories.Current(), true
	case "-":
		prev := s.Directories.Previous()
		return prev, prev != ""
	default:
		return "", false
	}
}

// expandBraces expands the first unquoted {a,b,...} list in word, recursing
// into the results.
func expandBraces(word string) []string {
	start, end, ok := findBraces(word)
	if !ok {
		return []string{word}
	}

	prefix, body, suffix := word[:start], word[start+1:end], word[end+1:]

	var out []string
	for _, alternative := range splitBraceBody(body) {
		out = append(out, expandBraces(prefix+alternative+suffix)...)
	}
	return out
}

// findBraces locates an unquoted brace pair with a top level comma.
func findBraces(word string) (int, int, bool) {
	var quote byte
	start, depth, hasComma := -1, 0, false

	for i := 0; i < len(word); i++ {
		c := word[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\\':
			i++
		case c == '\'' || c == '"':
			quote = c
		case c == '$' && i+1 < len(word) && word[i+1] == '{':
			// Skip variable references.
			if close := strings.IndexByte(word[i:], '}'); close > 0 {
				i += close
			}
		case c == '{':
			if depth == 0 {
				start = i
				hasComma = false
			}
			depth++
		case c == ',' && depth == 1:
			hasComma = true
		case c == '}' && depth > 0:
			depth--
			if depth == 0 && hasComma {
				return start, i, true
			}
		}
	}
	return 0, 0, false
}

func splitBraceBody(body string) []string {
	var (
		out   []string
		depth int
		last  int
	)
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, body[last:i])
				last = i + 1
			}
		}
	}
	return append(out, body[last:])
}

// singleQuote quotes value so the shell reads it back literally.
func singleQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

// expandRedirect expands the target of a redirection to a single path.
func (s *Shell) expandRedirect(word string) (string, error) {
	fields := s.ExpandString(word)
	if len(fields) != 1 || fields[0] == "" {
		return "", fmt.Errorf("%s: ambiguous redirect", word)
	}
	return s.Directories.Resolve(fields[0]), nil
}
