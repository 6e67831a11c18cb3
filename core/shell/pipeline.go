package shell

import (
	"strings"
)

// Pipeline is a sequence of jobs evaluated as a unit.
type Pipeline struct {
	Jobs []*Job

	// Stdin is a file to read the first job's input from.
	Stdin string
	// Stdout is a file the last job's output is written to.
	Stdout string
	// Append to Stdout rather than truncating it.
	Append bool
}

// Clone returns a deep copy of the pipeline.
func (p *Pipeline) Clone() *Pipeline {
	if p == nil {
		return nil
	}

	out := *p
	out.Jobs = make([]*Job, len(p.Jobs))
	for i, job := range p.Jobs {
		out.Jobs[i] = job.Clone()
	}
	return &out
}

// String formats the pipeline similar to how it was written.
func (p *Pipeline) String() string {
	var sb strings.Builder
	for i, job := range p.Jobs {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(strings.Join(job.Args, " "))

		switch {
		case job.Kind == KindPipe && job.From == RedirectStderr:
			sb.WriteString(" ^|")
		case job.Kind == KindPipe && job.From == RedirectBoth:
			sb.WriteString(" &|")
		case job.Kind != KindLast:
			sb.WriteString(" " + job.Kind.String())
		}
	}

	if p.Stdin != "" {
		sb.WriteString(" < " + p.Stdin)
	}
	if p.Stdout != "" {
		if p.Append {
			sb.WriteString(" >> ")
		} else {
			sb.WriteString(" > ")
		}
		sb.WriteString(p.Stdout)
	}
	return sb.String()
}

// chains splits the jobs into runs connected by pipes. The last job of each
// chain holds the operator joining it to the next chain.
func (p *Pipeline) chains() [][]*Job {
	var out [][]*Job
	start := 0
	for i, job := range p.Jobs {
		if job.Kind == KindPipe && i < len(p.Jobs)-1 {
			continue
		}
		out = append(out, p.Jobs[start:i+1])
		start = i + 1
	}
	return out
}
