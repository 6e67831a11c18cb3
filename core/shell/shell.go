// Package shell implements the statement engine of flowsh: parsing input into
// statements, collecting multi-line blocks across input batches and running
// pipelines of builtins, functions and programs.
package shell

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/josephlewis42/flowsh/core/logger"
	"github.com/josephlewis42/flowsh/core/vars"
	"github.com/spf13/afero"
)

// Exit statuses.
const (
	StatusSuccess  = 0
	StatusFailure  = 1
	StatusUsage    = 2
	StatusNotFound = 127
)

// Variable names the shell maintains.
const (
	EnvHome   = "HOME"
	EnvPWD    = "PWD"
	EnvOldPWD = "OLDPWD"
	EnvStatus = "?"
)

// SyntaxError is returned for input the shell can't make sense of.
type SyntaxError struct {
	Msg string
}

func (e *SyntaxError) Error() string {
	return "syntax error: " + e.Msg
}

var (
	ErrNoBlockToEnd   = &SyntaxError{"no block to end"}
	ErrNotInIf        = &SyntaxError{"not in an if statement"}
	ErrElseGiven      = &SyntaxError{"else block already given"}
	ErrEmptyStatement = &SyntaxError{"empty statement"}
)

// EventRecorder receives the events of a session, *logger.SessionLogger
// satisfies it.
type EventRecorder interface {
	Record(event logger.Event) error
}

// Config holds the options for creating a Shell.
type Config struct {
	// Fs is the filesystem used for globbing, redirects and directory changes.
	// Defaults to the OS filesystem.
	Fs afero.Fs
	// Dir is the starting directory, defaults to the process's directory.
	Dir string
	// Environ seeds the shell variables, in KEY=VALUE form.
	Environ []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Events, if set, records what the shell does.
	Events EventRecorder
	// Color enables colored diagnostics.
	Color bool
}

// Shell holds the state of one shell session.
type Shell struct {
	Variables   *vars.Variables
	Functions   map[string]*Function
	Directories *DirectoryStack
	Flow        FlowControl
	Fs          afero.Fs

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Events EventRecorder

	// History holds previously entered lines, newest last.
	History []string
	// OnClearHistory is called when the history builtin clears the history.
	OnClearHistory func()

	// Set to true to quit the shell
	Quit bool
	// ExitStatus is the status the shell quit with.
	ExitStatus int

	previousStatus int
	diagnostic     *color.Color

	// aborted is set when a syntax error inside a running block stops the
	// rest of the batch.
	aborted bool
	// jobs tracks background chains that haven't exited.
	jobs sync.WaitGroup
}

// New creates a shell.
func New(cfg Config) *Shell {
	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	dir := cfg.Dir
	if dir == "" {
		if wd, err := os.Getwd(); err == nil {
			dir = wd
		} else {
			dir = "/"
		}
	}

	diagnostic := color.New(color.FgRed, color.Bold)
	if cfg.Color {
		diagnostic.EnableColor()
	} else {
		diagnostic.DisableColor()
	}

	s := &Shell{
		Variables:   vars.NewFromEnviron(cfg.Environ),
		Functions:   make(map[string]*Function),
		Directories: NewDirectoryStack(dir),
		Fs:          fs,
		Stdin:       cfg.Stdin,
		Events:      cfg.Events,
		diagnostic:  diagnostic,
	}

	if s.Stdin == nil {
		s.Stdin = strings.NewReader("")
	}
	s.Stdout, s.Stderr = syncWriters(cfg.Stdout, cfg.Stderr)

	s.Flow.reset()
	s.Variables.Set(EnvPWD, dir)
	s.setStatus(StatusSuccess, true)

	return s
}

// syncWriters guards the shell's output so background programs can share it
// with the shell. Files are passed through so programs inherit them directly.
func syncWriters(stdout, stderr io.Writer) (io.Writer, io.Writer) {
	mu := &sync.Mutex{}
	wrap := func(w io.Writer) io.Writer {
		switch w := w.(type) {
		case nil:
			return io.Discard
		case *os.File:
			return w
		default:
			return &syncWriter{mu: mu, w: w}
		}
	}
	return wrap(stdout), wrap(stderr)
}

type syncWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (sw *syncWriter) Write(p []byte) (int, error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.w.Write(p)
}

// WaitJobs blocks until every background job has exited.
func (s *Shell) WaitJobs() {
	s.jobs.Wait()
}

// PreviousStatus gets the status of the last pipeline to run.
func (s *Shell) PreviousStatus() int {
	return s.previousStatus
}

// AddHistory appends a line to the history.
func (s *Shell) AddHistory(line string) {
	s.History = append(s.History, line)
}

func (s *Shell) setStatus(status int, ok bool) {
	if !ok {
		status = StatusFailure
	}
	s.previousStatus = status
	s.Variables.Set(EnvStatus, fmt.Sprintf("%d", status))
}

func (s *Shell) recordEvent(event logger.Event) {
	if s.Events == nil {
		return
	}
	// Logging failures shouldn't interrupt the session.
	_ = s.Events.Record(event)
}

// errorf writes a diagnostic to stderr.
func (s *Shell) errorf(format string, a ...interface{}) {
	fmt.Fprintf(s.Stderr, "%s %s\n", s.diagnostic.Sprint("flowsh:"), fmt.Sprintf(format, a...))
}

func (s *Shell) reportSyntaxError(err error) {
	s.errorf("%v", err)
	s.recordEvent(&logger.SyntaxError{Error: err.Error()})
}

// abort reports a syntax error found while running a block and stops the
// rest of the batch.
func (s *Shell) abort(err error) {
	s.reportSyntaxError(err)
	s.aborted = true
}

// stopped reports whether running statements should unwind.
func (s *Shell) stopped() bool {
	return s.Quit || s.aborted
}
