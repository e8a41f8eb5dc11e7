// Package provision installs the packaged application's runtime dependencies
// before packaging.
//
// Provisioning is best-effort: a failing installer is reported and logged but
// never stops the build. The final status is decided by whether an artifact
// was produced.
package provision

import (
	"context"
	"log/slog"
	"time"

	ferrors "git.home.luguber.info/inful/epubbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/epubbuild/internal/logfields"
	"git.home.luguber.info/inful/epubbuild/internal/manifest"
	"git.home.luguber.info/inful/epubbuild/internal/toolexec"
)

// Provisioner ensures a dependency set is installed in the build environment.
// Implementations can target a sandbox (virtualenv, container) instead of the
// ambient interpreter.
type Provisioner interface {
	Ensure(ctx context.Context, deps manifest.DependencySet) Result
}

// Result describes one provisioning attempt.
type Result struct {
	Dependencies int
	// Skipped is set when no installer ran.
	Skipped  bool
	ExitCode int
	Output   string
	Duration time.Duration
	Canceled bool
	// Err is a classified provisioning error (warning severity) or a
	// cancellation error.
	Err error
}

// Failed reports whether the installer ran and did not succeed.
func (r Result) Failed() bool {
	return r.Err != nil
}

// CommandProvisioner runs an installer command. Arguments may reference
// {manifest} (the manifest path) and {deps} (one argument per dependency).
type CommandProvisioner struct {
	command []string
	dir     string
	runner  *toolexec.Runner
}

// NewCommandProvisioner creates a provisioner running command in dir.
func NewCommandProvisioner(command []string, dir string, runner *toolexec.Runner) *CommandProvisioner {
	if runner == nil {
		runner = &toolexec.Runner{}
	}
	return &CommandProvisioner{command: command, dir: dir, runner: runner}
}

// Ensure runs the installer for deps. An empty set does not start the
// installer.
func (p *CommandProvisioner) Ensure(ctx context.Context, deps manifest.DependencySet) Result {
	res := Result{Dependencies: deps.Len()}
	if deps.Empty() {
		slog.Info("No dependencies declared, skipping installer", logfields.Path(deps.Source))
		res.Skipped = true
		return res
	}
	if len(p.command) == 0 {
		res.Skipped = true
		res.Err = ferrors.ProvisioningError("no installer command configured").Build()
		return res
	}

	args := toolexec.Expand(p.command[1:], map[string][]string{
		"manifest": {deps.Source},
		"deps":     deps.Items,
	})
	cmd := toolexec.Command{Name: p.command[0], Args: args, Dir: p.dir}
	slog.Info("Installing dependencies",
		logfields.Tool(cmd.Name),
		logfields.Dependencies(deps.Len()),
		logfields.Path(deps.Source))

	out := p.runner.Run(ctx, cmd)
	res.ExitCode = out.ExitCode
	res.Output = out.Output
	res.Duration = out.Duration
	res.Canceled = out.Canceled

	switch {
	case out.Canceled:
		res.Err = ferrors.WrapError(out.Err, ferrors.CategoryCanceled, "dependency installation interrupted").Build()
	case out.Err != nil:
		res.Err = ferrors.WrapError(out.Err, ferrors.CategoryProvision, "dependency installation failed").
			Warning().
			WithContext("tool", cmd.Name).
			WithContext("exit_code", out.ExitCode).
			WithContext("manifest", deps.Source).
			Build()
		slog.Warn("Dependency installation failed, continuing with packaging",
			logfields.Tool(cmd.Name),
			logfields.ExitCode(out.ExitCode),
			logfields.Error(out.Err))
	}
	return res
}

// NoopProvisioner reports every set as skipped.
type NoopProvisioner struct{}

// Ensure implements Provisioner.
func (NoopProvisioner) Ensure(_ context.Context, deps manifest.DependencySet) Result {
	return Result{Dependencies: deps.Len(), Skipped: true}
}
