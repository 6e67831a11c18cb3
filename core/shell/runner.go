package shell

import (
	"bytes"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/josephlewis42/flowsh/core/logger"
)

// RunPipeline expands and runs every job in the pipeline. Chains joined by &&
// and || are skipped following the usual shell rules. It returns the status
// of the last chain to run, or false if that chain didn't report one.
func (s *Shell) RunPipeline(p *Pipeline) (int, bool) {
	stdin, stdout, closer, err := s.openRedirects(p)
	if err != nil {
		s.errorf("%v", err)
		s.setStatus(StatusFailure, true)
		return StatusFailure, true
	}

	// Redirected files stay open until background chains using them exit.
	var (
		background    sync.WaitGroup
		hasBackground bool
	)
	defer func() {
		if !hasBackground {
			closer.Close()
			return
		}
		go func() {
			background.Wait()
			closer.Close()
		}()
	}()

	var (
		status = StatusSuccess
		ok     = true
		run    = true
	)

	chains := p.chains()
	for i, chain := range chains {
		if s.stopped() {
			break
		}

		op := chain[len(chain)-1].Kind

		chainIn, chainOut := s.Stdin, s.Stdout
		if op == KindBackground {
			// Background jobs don't compete with the shell for input.
			chainIn = bytes.NewReader(nil)
		}
		if i == 0 && p.Stdin != "" {
			chainIn = stdin
		}
		if i == len(chains)-1 {
			chainOut = stdout
		}

		if run {
			var jobs *sync.WaitGroup
			if op == KindBackground {
				jobs, hasBackground = &background, true
			}
			status, ok = s.runChain(chain, chainIn, chainOut, jobs)
			s.setStatus(status, ok)
		}

		succeeded := ok && status == StatusSuccess
		switch op {
		case KindAnd:
			run = succeeded
		case KindOr:
			run = !succeeded
		default:
			run = true
		}
	}

	return status, ok
}

// openRedirects opens the files the pipeline reads from and writes to.
func (s *Shell) openRedirects(p *Pipeline) (io.Reader, io.Writer, listCloser, error) {
	var (
		stdin   io.Reader = s.Stdin
		stdout  io.Writer = s.Stdout
		toClose listCloser
	)

	if p.Stdin != "" {
		path, err := s.expandRedirect(p.Stdin)
		if err != nil {
			return nil, nil, nil, err
		}
		fd, err := s.Fs.Open(path)
		if err != nil {
			return nil, nil, nil, err
		}
		toClose = append(toClose, fd)
		stdin = fd
	}

	if p.Stdout != "" {
		path, err := s.expandRedirect(p.Stdout)
		if err != nil {
			toClose.Close()
			return nil, nil, nil, err
		}
		flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if p.Append {
			flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		}
		fd, err := s.Fs.OpenFile(path, flags, 0644)
		if err != nil {
			toClose.Close()
			return nil, nil, nil, err
		}
		toClose = append(toClose, fd)
		stdout = fd
	}

	return stdin, stdout, toClose, nil
}

// stage is one job of a chain while it runs.
type stage struct {
	argv   []string
	cmd    *exec.Cmd
	status int
	ok     bool
}

// runChain runs jobs connected by pipes. Functions and builtins run in the
// shell, their piped output is buffered for the next job. Programs run
// concurrently connected by OS pipes. If background is set the chain's
// programs aren't waited for, background is done once they exit.
func (s *Shell) runChain(chain []*Job, stdin io.Reader, stdout io.Writer, background *sync.WaitGroup) (int, bool) {
	var (
		stages []*stage
		next   = stdin
		// prevPipe is the read end of the last OS pipe, the parent's copy is
		// closed once the reader has it.
		prevPipe *os.File
	)

	closePrev := func() {
		if prevPipe != nil {
			prevPipe.Close()
			prevPipe = nil
		}
	}
	defer closePrev()

	for i, job := range chain {
		job.Expand(s)
		st := &stage{argv: append([]string(nil), job.Args...), ok: true}
		stages = append(stages, st)

		last := i == len(chain)-1
		out, errOut := stdout, s.Stderr
		if !last {
			out = s.Stdout
		}

		if fn, builtin, inProcess := s.lookupInProcess(job.Command); inProcess {
			var buf *bytes.Buffer
			if !last {
				buf = &bytes.Buffer{}
				out, errOut = pipeTargets(job.From, buf, out, errOut)
			}

			st.status = s.runInProcess(next, out, errOut, func() int {
				if fn != nil {
					return s.callFunction(fn, st.argv)
				}
				return builtin.Main(s, st.argv)
			})

			closePrev()
			if buf != nil {
				next = buf
			}
			continue
		}

		if last {
			st.cmd = s.buildCommand(job, next, out, errOut)
			err := st.cmd.Start()
			closePrev()
			if err != nil {
				s.commandNotFound(st, err)
			}
			continue
		}

		r, w, err := os.Pipe()
		if err != nil {
			s.errorf("%v", err)
			st.status = StatusFailure
			break
		}
		out, errOut = pipeTargets(job.From, w, out, errOut)
		st.cmd = s.buildCommand(job, next, out, errOut)
		err = st.cmd.Start()

		// The child holds its own copies of the pipe now.
		w.Close()
		closePrev()
		prevPipe, next = r, r
		if err != nil {
			s.commandNotFound(st, err)
		}
	}

	if background != nil {
		for _, st := range stages {
			s.recordEvent(&logger.RunCommand{Command: st.argv, Status: st.status, Background: true})
		}

		background.Add(1)
		s.jobs.Add(1)
		go func() {
			defer s.jobs.Done()
			defer background.Done()
			s.wait(stages)
		}()
		return StatusSuccess, true
	}

	s.wait(stages)
	for _, st := range stages {
		s.recordEvent(&logger.RunCommand{Command: st.argv, Status: st.status})
	}

	final := stages[len(stages)-1]
	return final.status, final.ok
}

// wait collects the status of every started process.
func (s *Shell) wait(stages []*stage) {
	for _, st := range stages {
		if st.cmd == nil || st.cmd.Process == nil {
			continue
		}

		// Non-zero exits are reported through the process state.
		_ = st.cmd.Wait()
		if st.cmd.ProcessState == nil {
			st.status, st.ok = StatusFailure, false
			continue
		}
		code := st.cmd.ProcessState.ExitCode()
		st.status, st.ok = code, code >= 0
	}
}

func (s *Shell) buildCommand(job *Job, stdin io.Reader, stdout, stderr io.Writer) *exec.Cmd {
	cmd := job.BuildCommand()
	cmd.Dir = s.Directories.Current()
	cmd.Env = s.Variables.Environ()
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd
}

func (s *Shell) commandNotFound(st *stage, err error) {
	s.errorf("%s: command not found", st.argv[0])
	s.recordEvent(&logger.UnknownCommand{Command: st.argv, Error: err.Error()})
	st.cmd = nil
	st.status = StatusNotFound
}

// lookupInProcess finds the function or builtin to run for name. Functions
// shadow builtins.
func (s *Shell) lookupInProcess(name string) (*Function, ShellBuiltin, bool) {
	if fn, ok := s.Functions[name]; ok {
		return fn, nil, true
	}
	if builtin, ok := AllBuiltins[name]; ok {
		return nil, builtin, true
	}
	return nil, nil, false
}

// runInProcess runs fn with the shell's streams swapped out.
func (s *Shell) runInProcess(stdin io.Reader, stdout, stderr io.Writer, fn func() int) int {
	oldIn, oldOut, oldErr := s.Stdin, s.Stdout, s.Stderr
	s.Stdin, s.Stdout, s.Stderr = stdin, stdout, stderr
	defer func() {
		s.Stdin, s.Stdout, s.Stderr = oldIn, oldOut, oldErr
	}()

	return fn()
}

// pipeTargets routes the streams selected by from into the pipe.
func pipeTargets(from RedirectFrom, pipe, stdout, stderr io.Writer) (io.Writer, io.Writer) {
	switch from {
	case RedirectStderr:
		return stdout, pipe
	case RedirectBoth:
		return pipe, pipe
	default:
		return pipe, stderr
	}
}

type listCloser []io.Closer

func (lc listCloser) Close() error {
	var lastErr error
	for _, v := range lc {
		if err := v.Close(); err != nil {
			lastErr = err
		}
	}

	return lastErr
}
