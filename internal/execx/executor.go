// Package execx shells out to the external toolchain (vcs, rosdep, colcon).
// Pipeline logic depends on the Executor interface, so tests substitute a
// Recorder and assert on the invocation sequence instead of real processes.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Command is one toolchain invocation.
type Command struct {
	Argv []string
	Dir  string // working directory; empty means inherit
}

// Result is the observed outcome of a command that actually ran.
type Result struct {
	ExitCode int
	Output   string // combined stdout+stderr
}

// Executor runs commands. Run returns an error only when the command could
// not be started or the context was canceled; a nonzero exit is reported
// through Result.ExitCode so callers decide what is fatal.
type Executor interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// String renders the command for logs.
func (c Command) String() string {
	return strings.Join(c.Argv, " ")
}

// Ok reports a zero exit.
func (r Result) Ok() bool { return r.ExitCode == 0 }

// Shell is the real Executor. When Setups is non-empty every invocation is
// wrapped in a bash shell that sources each setup script first, so the
// toolchain sees the ROS binary installation's environment.
type Shell struct {
	Setups []string // setup scripts sourced before every command
	Logger *slog.Logger
	Stdout io.Writer // live output mirror; nil means os.Stdout
}

// Run executes the command, capturing combined output and mirroring it to
// Stdout so the CI log stays live.
func (s *Shell) Run(ctx context.Context, cmd Command) (Result, error) {
	if len(cmd.Argv) == 0 {
		return Result{}, fmt.Errorf("execx: empty argv")
	}

	var c *exec.Cmd
	if len(s.Setups) > 0 {
		c = exec.CommandContext(ctx, "bash", "-c", s.script(cmd.Argv))
	} else {
		c = exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	}
	c.Dir = cmd.Dir

	stdout := s.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	var buf bytes.Buffer
	sink := io.MultiWriter(&buf, stdout)
	c.Stdout = sink
	c.Stderr = sink

	if s.Logger != nil {
		s.Logger.Debug("exec", "cmd", cmd.String(), "dir", cmd.Dir)
	}

	err := c.Run()
	if err == nil {
		return Result{ExitCode: 0, Output: buf.String()}, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{ExitCode: exitErr.ExitCode(), Output: buf.String()}, nil
	}
	return Result{ExitCode: -1, Output: buf.String()}, fmt.Errorf("start %s: %w", cmd.Argv[0], err)
}

// script builds the bash line sourcing each setup script before the command.
func (s *Shell) script(argv []string) string {
	var b strings.Builder
	for _, setup := range s.Setups {
		b.WriteString("source ")
		b.WriteString(shQuote(setup))
		b.WriteString(" && ")
	}
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = shQuote(a)
	}
	b.WriteString(strings.Join(quoted, " "))
	return b.String()
}

func shQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n\"'`$\\&|;<>()*?[]#~%{}!") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// goos is swapped in tests.
var goos = runtime.GOOS

// SourceSetups maps a list of ROS distribution names to the setup scripts a
// Shell must source. Sourcing binary installations is only supported on
// Linux; requesting it anywhere else is a fatal configuration error.
func SourceSetups(distros []string) ([]string, error) {
	if len(distros) == 0 {
		return nil, nil
	}
	if goos != "linux" {
		return nil, fmt.Errorf("sourcing a ROS binary installation is only supported on Linux, not %s", goos)
	}
	setups := make([]string, 0, len(distros))
	for _, d := range distros {
		setups = append(setups, fmt.Sprintf("/opt/ros/%s/setup.sh", d))
	}
	return setups, nil
}
