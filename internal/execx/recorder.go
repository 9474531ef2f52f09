package execx

import "context"

// Recorder is a fake Executor. It records every command and answers with
// Respond when set, else a zero exit with empty output. Used by pipeline
// tests and by --dry-run.
type Recorder struct {
	Commands []Command
	Respond  func(Command) (Result, error)
}

func (r *Recorder) Run(_ context.Context, cmd Command) (Result, error) {
	r.Commands = append(r.Commands, cmd)
	if r.Respond != nil {
		return r.Respond(cmd)
	}
	return Result{ExitCode: 0}, nil
}

// Argvs returns the recorded argv lines, for sequence assertions.
func (r *Recorder) Argvs() []string {
	out := make([]string, 0, len(r.Commands))
	for _, c := range r.Commands {
		out = append(out, c.String())
	}
	return out
}
