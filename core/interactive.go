package core

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"
	"github.com/josephlewis42/flowsh/core/config"
	"github.com/josephlewis42/flowsh/core/logger"
	"github.com/josephlewis42/flowsh/core/shell"
	"github.com/spf13/afero"
)

const (
	// continuationIndent is repeated once per open block while a block is
	// being collected.
	continuationIndent = "    "
	defaultWidth       = 80
)

// Terminal is the I/O a session is attached to.
type Terminal struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	IsTerminal bool
	// ClientRaw is set when the far end already puts the terminal in raw
	// mode, as SSH clients do.
	ClientRaw bool
	// Width reports the current terminal width, nil means 80 columns.
	Width func() int
}

// SessionOptions configure a single interactive session.
type SessionOptions struct {
	User       string
	Hostname   string
	RemoteAddr string

	// Fs and Dir set the shell's filesystem and starting directory.
	Fs      afero.Fs
	Dir     string
	Environ []string

	// Events receives the session's events, nil disables event logging.
	Events shell.EventRecorder

	Terminal Terminal
}

// Session is an interactive shell reading lines with readline.
type Session struct {
	Shell    *shell.Shell
	Readline *readline.Instance

	configuration *config.Configuration
	options       SessionOptions
	userColor     *color.Color
	dirColor      *color.Color
}

// NewSession creates a shell attached to the terminal in opts.
func NewSession(configuration *config.Configuration, opts SessionOptions) (*Session, error) {
	term := opts.Terminal
	colorize := configuration.ShouldColor(term.IsTerminal)

	sh := shell.New(shell.Config{
		Fs:      opts.Fs,
		Dir:     opts.Dir,
		Environ: opts.Environ,
		Stdin:   term.Stdin,
		Stdout:  term.Stdout,
		Stderr:  term.Stderr,
		Events:  opts.Events,
		Color:   colorize,
	})

	historyLimit := configuration.History.Limit
	if !configuration.History.Enabled {
		historyLimit = -1
	}

	cfg := &readline.Config{
		Stdin:        readline.NewCancelableStdin(term.Stdin),
		Stdout:       term.Stdout,
		Stderr:       term.Stderr,
		HistoryFile:  configuration.HistoryPath(),
		HistoryLimit: historyLimit,
		FuncGetWidth: func() int {
			if term.Width == nil {
				return defaultWidth
			}
			return term.Width()
		},
		FuncIsTerminal: func() bool {
			return term.IsTerminal
		},
	}

	if term.ClientRaw {
		cfg.FuncMakeRaw = func() error { return nil }
		cfg.FuncExitRaw = func() error { return nil }
	}

	if err := cfg.Init(); err != nil {
		return nil, err
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}

	session := newSession(configuration, opts, sh, colorize)
	session.Readline = rl
	sh.OnClearHistory = rl.Operation.ResetHistory

	if history, err := configuration.ReadHistory(); err != nil {
		log.Printf("Couldn't read history: %v", err)
	} else {
		sh.History = history
	}

	return session, nil
}

func newSession(configuration *config.Configuration, opts SessionOptions, sh *shell.Shell, colorize bool) *Session {
	userColor := color.New(color.FgGreen, color.Bold)
	dirColor := color.New(color.FgBlue, color.Bold)
	for _, c := range []*color.Color{userColor, dirColor} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return &Session{
		Shell:         sh,
		configuration: configuration,
		options:       opts,
		userColor:     userColor,
		dirColor:      dirColor,
	}
}

// Prompt renders the configured prompt, or the continuation prompt while a
// block is pending.
func (s *Session) Prompt() string {
	if s.Shell.Flow.Pending() {
		return strings.Repeat(continuationIndent, s.Shell.Flow.Level)
	}

	pwd := s.Shell.Directories.Current()
	home := s.Shell.Variables.Get(shell.EnvHome)
	if home != "" && (pwd == home || strings.HasPrefix(pwd, home+"/")) {
		pwd = "~" + strings.TrimPrefix(pwd, home)
	}

	sign := "$"
	if s.options.User == "root" {
		sign = "#"
	}

	return strings.NewReplacer(
		`\u`, s.userColor.Sprint(s.options.User),
		`\h`, s.userColor.Sprint(s.options.Hostname),
		`\w`, s.dirColor.Sprint(pwd),
		`\$`, sign,
	).Replace(s.configuration.Prompt)
}

// RunInitFile feeds the configured init script through the shell. A block
// left open by the script is discarded.
func (s *Session) RunInitFile() {
	contents, err := s.configuration.ReadInitFile()
	if err != nil {
		log.Printf("Couldn't read init file: %v", err)
		return
	}
	if len(contents) == 0 {
		return
	}

	s.Shell.OnCommand(string(contents))
	if s.Shell.Flow.Pending() {
		s.Shell.ResetFlowControl()
		fmt.Fprintf(s.Shell.Stderr, "flowsh: %s: unterminated block\n", s.configuration.InitFile)
	}
}

// Run reads and executes lines until the shell exits or the input closes.
// It returns the shell's exit status.
func (s *Session) Run() int {
	defer s.Readline.Close()

	s.record(&logger.SessionStart{
		User:        s.options.User,
		RemoteAddr:  s.options.RemoteAddr,
		Interactive: s.options.Terminal.IsTerminal,
	})

	s.RunInitFile()

	for !s.Shell.Quit {
		s.Readline.SetPrompt(s.Prompt())
		line, err := s.Readline.Readline()

		switch {
		case err == io.EOF:
			// Input closed, quit with the last status.
			s.Shell.Quit = true
			s.Shell.ExitStatus = s.Shell.PreviousStatus()

		case err == readline.ErrInterrupt:
			// Interrupt clears the line and any pending block.
			s.Shell.ResetFlowControl()

		case err != nil:
			log.Printf("Error readline: %v", err)
			s.Shell.Quit = true
			s.Shell.ExitStatus = shell.StatusFailure

		case strings.TrimSpace(line) == "":
			continue

		default:
			s.Shell.AddHistory(line)
			s.Shell.OnCommand(line)
		}
	}

	s.record(&logger.SessionEnd{Status: s.Shell.ExitStatus})
	return s.Shell.ExitStatus
}

func (s *Session) record(event logger.Event) {
	if s.options.Events == nil {
		return
	}
	if err := s.options.Events.Record(event); err != nil {
		log.Printf("Couldn't record event: %v", err)
	}
}
