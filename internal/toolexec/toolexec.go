// Package toolexec runs the external build tools (installer, packager) as
// subprocesses, streaming their output to the operator while keeping a short
// tail of it for diagnostics.
package toolexec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/epubbuild/internal/logfields"
)

// ErrToolNotFound is returned when the executable cannot be resolved.
var ErrToolNotFound = errors.New("tool not found")

// waitDelay bounds how long Wait blocks on output pipes after the process was
// killed on cancellation.
const waitDelay = 5 * time.Second

// Command describes one tool invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory. Relative tool paths containing a
	// separator resolve against it.
	Dir string
	Env []string
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Outcome is the result of one invocation.
type Outcome struct {
	// ExitCode is the process exit status, -1 when the process did not exit
	// on its own (not started, killed).
	ExitCode int
	// Output holds the last lines the tool printed on stdout and stderr.
	Output   string
	Duration time.Duration
	Canceled bool
	Err      error
}

// Succeeded reports a clean zero exit.
func (o Outcome) Succeeded() bool {
	return o.Err == nil && o.ExitCode == 0
}

// Runner executes commands. The zero value streams to os.Stdout/os.Stderr.
type Runner struct {
	Stdout    io.Writer
	Stderr    io.Writer
	TailLines int
}

// NewRunner creates a runner streaming to the given writers.
func NewRunner(stdout, stderr io.Writer) *Runner {
	return &Runner{Stdout: stdout, Stderr: stderr, TailLines: DefaultTailLines}
}

// Run executes cmd synchronously. No timeout is applied; cancelling ctx
// kills the process.
func (r *Runner) Run(ctx context.Context, cmd Command) Outcome {
	bin, err := resolve(cmd)
	if err != nil {
		return Outcome{ExitCode: -1, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return Outcome{ExitCode: -1, Canceled: true, Err: fmt.Errorf("%s not started: %w", cmd.Name, err)}
	}

	tail := newTailBuffer(r.tailLines())
	c := exec.CommandContext(ctx, bin, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	c.Stdout, c.Stderr = r.outputs(tail)
	c.WaitDelay = waitDelay

	slog.Debug("Running tool", logfields.Tool(bin), logfields.Args(cmd.Args), logfields.Path(cmd.Dir))
	start := time.Now()
	runErr := c.Run()
	out := Outcome{Duration: time.Since(start), Output: tail.String()}

	if ctxErr := ctx.Err(); ctxErr != nil {
		out.ExitCode = -1
		out.Canceled = true
		out.Err = fmt.Errorf("%s interrupted: %w", cmd.Name, ctxErr)
		return out
	}
	if runErr != nil {
		out.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
		}
		out.Err = fmt.Errorf("%s failed: %w", cmd.Name, runErr)
	}
	return out
}

// outputs builds the process writers. os/exec serializes writes only when
// Stdout and Stderr are the same writer, so a destination shared by both
// streams gets a single MultiWriter.
func (r *Runner) outputs(tail io.Writer) (io.Writer, io.Writer) {
	stdout := orDefault(r.Stdout, os.Stdout)
	stderr := orDefault(r.Stderr, os.Stderr)
	if sameWriter(stdout, stderr) {
		w := io.MultiWriter(stdout, tail)
		return w, w
	}
	return io.MultiWriter(stdout, tail), io.MultiWriter(stderr, tail)
}

// sameWriter compares writers without panicking on non-comparable types.
func sameWriter(a, b io.Writer) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

func (r *Runner) tailLines() int {
	if r.TailLines > 0 {
		return r.TailLines
	}
	return DefaultTailLines
}

func resolve(cmd Command) (string, error) {
	name := cmd.Name
	if name == "" {
		return "", fmt.Errorf("%w: empty command", ErrToolNotFound)
	}
	if !filepath.IsAbs(name) && strings.ContainsRune(filepath.ToSlash(name), '/') && cmd.Dir != "" {
		name = filepath.Join(cmd.Dir, name)
	}
	bin, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrToolNotFound, cmd.Name, err)
	}
	return bin, nil
}

func orDefault(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}
