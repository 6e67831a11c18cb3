package shell

import (
	"os/exec"
)

// JobKind is the operator joining a job to the one after it.
type JobKind int

const (
	// KindLast marks the final job of a pipeline.
	KindLast JobKind = iota
	// KindAnd runs the next job only if this one succeeds.
	KindAnd
	// KindOr runs the next job only if this one fails.
	KindOr
	// KindPipe feeds this job's output to the next job.
	KindPipe
	// KindBackground doesn't wait for the job before moving on.
	KindBackground
)

func (k JobKind) String() string {
	switch k {
	case KindAnd:
		return "&&"
	case KindOr:
		return "||"
	case KindPipe:
		return "|"
	case KindBackground:
		return "&"
	default:
		return ""
	}
}

// RedirectFrom is the stream a piped job sends to the next job.
type RedirectFrom int

const (
	RedirectStdout RedirectFrom = iota
	RedirectStderr
	RedirectBoth
)

// globChars are the characters that cause a word to be matched against the
// filesystem.
const globChars = "?*["

// Field is a word after expansion.
type Field struct {
	Value string
	// Pattern is Value with the glob characters that were quoted escaped.
	Pattern string
	// Glob is set if Pattern has unquoted glob characters.
	Glob bool
}

// Expander turns raw words into the arguments passed to programs.
type Expander interface {
	// ExpandWord expands a single raw word into zero or more fields.
	ExpandWord(word string) []Field
	// Glob returns the paths matching pattern.
	Glob(pattern string) ([]string, error)
}

// Job is a single command invocation.
type Job struct {
	// Command is the program name, it's always Args[0] until the job is built.
	Command string
	Args    []string
	Kind    JobKind
	// From is only meaningful when Kind is KindPipe.
	From RedirectFrom
}

// NewJob creates a job running args. It panics if args is empty.
func NewJob(args []string, kind JobKind) *Job {
	if len(args) == 0 {
		panic("shell: job has no arguments")
	}

	return &Job{
		Command: args[0],
		Args:    args,
		Kind:    kind,
	}
}

// Clone returns a copy of the job that shares no state with the original.
func (j *Job) Clone() *Job {
	out := *j
	out.Args = append([]string(nil), j.Args...)
	return &out
}

// Expand replaces every argument after the program name with its expansion.
// Fields with unquoted glob characters are replaced by every matching path,
// or kept as-is if nothing matches.
func (j *Job) Expand(e Expander) {
	if len(j.Args) == 0 {
		return
	}

	expanded := []string{j.Args[0]}
	for _, arg := range j.Args[1:] {
		for _, field := range e.ExpandWord(arg) {
			if field.Glob {
				if matches, err := e.Glob(field.Pattern); err == nil && len(matches) > 0 {
					expanded = append(expanded, matches...)
					continue
				}
			}
			expanded = append(expanded, field.Value)
		}
	}

	j.Args = expanded
	j.Command = expanded[0]
}

// BuildCommand creates the process for the job, consuming its arguments.
// Building the same job a second time results in a command with no
// arguments.
func (j *Job) BuildCommand() *exec.Cmd {
	var args []string
	if len(j.Args) > 1 {
		args = j.Args[1:]
	}
	j.Args = nil

	return exec.Command(j.Command, args...)
}
