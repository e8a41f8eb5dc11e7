package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/epubbuild/internal/artifact"
	"git.home.luguber.info/inful/epubbuild/internal/build"
	"git.home.luguber.info/inful/epubbuild/internal/config"
	ferrors "git.home.luguber.info/inful/epubbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/epubbuild/internal/history"
	"git.home.luguber.info/inful/epubbuild/internal/metrics"
	"git.home.luguber.info/inful/epubbuild/internal/packager"
	"git.home.luguber.info/inful/epubbuild/internal/provision"
	"git.home.luguber.info/inful/epubbuild/internal/report"
	"git.home.luguber.info/inful/epubbuild/internal/toolexec"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	SkipProvision bool   `name:"skip-provision" help:"Do not install dependencies before packaging"`
	Manifest      string `short:"m" help:"Dependency manifest (overrides manifest)"`
	Spec          string `short:"s" help:"Packaging configuration (overrides package.spec)"`
	Output        string `short:"o" help:"Output directory to search for the executable (overrides output.directory)"`
	MetricsFile   string `name:"metrics-file" help:"Write Prometheus metrics to this textfile (overrides metrics.textfile)"`
}

func (b *BuildCmd) Run(ctx context.Context, _ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	b.apply(cfg)
	_, err = RunBuild(ctx, cfg, BuildOptions{SkipProvision: b.SkipProvision, MetricsFile: b.MetricsFile}, os.Stdout, os.Stderr)
	return err
}

// apply layers the flag overrides on top of the loaded configuration.
func (b *BuildCmd) apply(cfg *config.Config) {
	if b.Manifest != "" {
		cfg.Manifest = b.Manifest
	}
	if b.Spec != "" {
		cfg.Package.Spec = b.Spec
	}
	if b.Output != "" {
		cfg.Output.Directory = b.Output
	}
}

// BuildOptions carries the per-invocation switches of RunBuild.
type BuildOptions struct {
	SkipProvision bool
	MetricsFile   string
}

// RunBuild composes the pipeline from cfg and runs it once. Tool output goes
// to stdout/stderr; banners and the outcome go to stdout.
func RunBuild(ctx context.Context, cfg *config.Config, opts BuildOptions, stdout, stderr io.Writer) (*build.BuildResult, error) {
	runner := toolexec.NewRunner(stdout, stderr)

	skip := opts.SkipProvision || cfg.Provision.Skip
	var prov provision.Provisioner = provision.NoopProvisioner{}
	if !skip {
		prov = provision.NewCommandProvisioner(cfg.Provision.Command, cfg.WorkDir, runner)
	}

	locator, err := artifact.NewLocator(artifact.Pattern{Glob: cfg.Artifact.Pattern, Name: cfg.Artifact.Name})
	if err != nil {
		return nil, err
	}

	svc := build.NewBuildService(prov, packager.NewCommandInvoker(cfg.Package.Command, runner), locator, report.NewReporter(stdout))

	textfile := opts.MetricsFile
	if textfile == "" {
		textfile = cfg.Metrics.Textfile
	}
	var recorder *metrics.PrometheusRecorder
	if textfile != "" {
		recorder = metrics.NewPrometheusRecorder(nil)
		svc.WithRecorder(recorder)
	}

	if cfg.History.Enabled {
		store, err := history.Open(cfg.ResolvePath(cfg.History.Path))
		if err != nil {
			slog.Warn("Build history disabled for this run", "error", err)
		} else {
			defer func() { _ = store.Close() }()
			svc.WithHistory(store)
		}
	}

	result, runErr := svc.Run(ctx, build.BuildRequest{
		Descriptor: packager.Descriptor{
			WorkDir:   cfg.WorkDir,
			SpecFile:  cfg.Package.Spec,
			OutputDir: cfg.Output.Directory,
		},
		ManifestPath:  cfg.Manifest,
		SkipProvision: skip,
	})

	if ferrors.HasCategory(runErr, ferrors.CategoryCanceled) {
		slog.Warn("Build interrupted; partial output may remain", "dir", cfg.ResolvePath(cfg.Output.Directory))
	}
	if recorder != nil {
		path := cfg.ResolvePath(textfile)
		if err := recorder.WriteTextfile(path); err != nil {
			slog.Warn("Failed to write metrics textfile", "path", path, "error", err)
		}
	}
	return result, runErr
}
