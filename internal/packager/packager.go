// Package packager invokes the external packaging tool that turns the
// application into a standalone executable.
package packager

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	ferrors "git.home.luguber.info/inful/epubbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/epubbuild/internal/logfields"
	"git.home.luguber.info/inful/epubbuild/internal/toolexec"
)

// Sentinel errors wrapped by Result.Err.
var (
	ErrPackagerNotFound = errors.New("packaging tool not found")
	ErrPackagingFailed  = errors.New("packaging tool failed")
)

// Descriptor is the immutable packaging input of one run.
type Descriptor struct {
	// WorkDir is the directory the packager runs in.
	WorkDir string
	// SpecFile is the packaging configuration handed to the tool.
	SpecFile string
	// OutputDir receives the produced artifact.
	OutputDir string
}

// Resolve returns p relative to the descriptor's working directory.
func (d Descriptor) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(d.WorkDir, p)
}

// Result is what the packager reported. A failed result does not stop the
// pipeline: whether an artifact exists decides the build.
type Result struct {
	Succeeded bool
	// ExitCode is -1 when the tool never exited on its own.
	ExitCode int
	// Diagnostics is the tail of the tool's output.
	Diagnostics string
	Duration    time.Duration
	Canceled    bool
	Err         error
}

// Invoker runs the packaging step.
type Invoker interface {
	Package(ctx context.Context, d Descriptor) Result
}

// CommandInvoker runs a packaging command line. Arguments may reference
// {spec} and {output}, both resolved against the descriptor's working
// directory.
type CommandInvoker struct {
	command []string
	runner  *toolexec.Runner
}

// NewCommandInvoker creates an invoker for command.
func NewCommandInvoker(command []string, runner *toolexec.Runner) *CommandInvoker {
	if runner == nil {
		runner = &toolexec.Runner{}
	}
	return &CommandInvoker{command: command, runner: runner}
}

// Package runs the tool synchronously. No timeout is applied; cancelling ctx
// kills the tool and leaves any partial output in place.
func (i *CommandInvoker) Package(ctx context.Context, d Descriptor) Result {
	if len(i.command) == 0 {
		return Result{ExitCode: -1, Err: ferrors.PackagingToolError("no packaging command configured").Build()}
	}

	args := toolexec.Expand(i.command[1:], map[string][]string{
		"spec":   {d.Resolve(d.SpecFile)},
		"output": {d.Resolve(d.OutputDir)},
	})
	cmd := toolexec.Command{Name: i.command[0], Args: args, Dir: d.WorkDir}
	slog.Info("Invoking packager", logfields.Tool(cmd.Name), logfields.Path(d.Resolve(d.SpecFile)))

	out := i.runner.Run(ctx, cmd)
	res := Result{
		Succeeded:   out.Succeeded(),
		ExitCode:    out.ExitCode,
		Diagnostics: out.Output,
		Duration:    out.Duration,
		Canceled:    out.Canceled,
	}

	switch {
	case out.Canceled:
		res.Err = ferrors.WrapError(out.Err, ferrors.CategoryCanceled, "packaging interrupted").Build()
	case errors.Is(out.Err, toolexec.ErrToolNotFound):
		res.Err = ferrors.WrapError(errors.Join(ErrPackagerNotFound, out.Err), ferrors.CategoryPackager, "packaging tool not available").
			WithContext("tool", cmd.Name).
			Build()
		slog.Error("Packaging tool not found", logfields.Tool(cmd.Name), logfields.Error(out.Err))
	case out.Err != nil:
		res.Err = ferrors.WrapError(errors.Join(ErrPackagingFailed, out.Err), ferrors.CategoryPackager, "packaging tool failed").
			WithContext("tool", cmd.Name).
			WithContext("exit_code", out.ExitCode).
			Build()
		slog.Error("Packager exited with an error",
			logfields.Tool(cmd.Name),
			logfields.ExitCode(out.ExitCode),
			slog.String("output", out.Output))
	default:
		slog.Info("Packager finished", logfields.DurationMS(float64(out.Duration.Milliseconds())))
	}
	return res
}
