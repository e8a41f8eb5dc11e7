package build

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/epubbuild/internal/artifact"
	ferrors "git.home.luguber.info/inful/epubbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/epubbuild/internal/history"
	"git.home.luguber.info/inful/epubbuild/internal/logfields"
	"git.home.luguber.info/inful/epubbuild/internal/manifest"
	"git.home.luguber.info/inful/epubbuild/internal/metrics"
	"git.home.luguber.info/inful/epubbuild/internal/observability"
	"git.home.luguber.info/inful/epubbuild/internal/packager"
	"git.home.luguber.info/inful/epubbuild/internal/provision"
	"git.home.luguber.info/inful/epubbuild/internal/report"
)

// ArtifactLocator finds the produced artifact in a directory.
type ArtifactLocator interface {
	Locate(dir string) (*artifact.Match, error)
}

// DefaultBuildService is the standard implementation of BuildService.
type DefaultBuildService struct {
	provisioner provision.Provisioner
	invoker     packager.Invoker
	locator     ArtifactLocator
	reporter    *report.Reporter
	recorder    metrics.Recorder
	history     history.Recorder
	newID       func() string
}

// NewBuildService wires the four stages.
func NewBuildService(p provision.Provisioner, inv packager.Invoker, loc ArtifactLocator, rep *report.Reporter) *DefaultBuildService {
	if rep == nil {
		rep = report.NewReporter(nil)
	}
	return &DefaultBuildService{
		provisioner: p,
		invoker:     inv,
		locator:     loc,
		reporter:    rep,
		recorder:    metrics.NoopRecorder{},
		newID:       uuid.NewString,
	}
}

// WithRecorder sets the metrics recorder.
func (s *DefaultBuildService) WithRecorder(r metrics.Recorder) *DefaultBuildService {
	if r != nil {
		s.recorder = r
	}
	return s
}

// WithHistory enables recording of outcomes. Write failures are logged and
// do not change the outcome.
func (s *DefaultBuildService) WithHistory(h history.Recorder) *DefaultBuildService {
	s.history = h
	return s
}

// WithIDGenerator replaces the build ID generator (for testing).
func (s *DefaultBuildService) WithIDGenerator(gen func() string) *DefaultBuildService {
	s.newID = gen
	return s
}

// Run executes the pipeline.
func (s *DefaultBuildService) Run(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	startTime := time.Now()
	result := &BuildResult{
		BuildID:   s.newID(),
		StartTime: startTime,
	}
	ctx = observability.WithBuildID(ctx, result.BuildID)
	ctx = observability.WithWorkDir(ctx, req.Descriptor.WorkDir)
	observability.InfoContext(ctx, "Starting build",
		logfields.Path(req.Descriptor.Resolve(req.Descriptor.SpecFile)))

	// Stage 1: dependencies
	s.reporter.Banner("Installing dependencies")
	stageCtx := observability.WithStage(ctx, StageProvision)
	s.runProvision(stageCtx, req, result)
	if result.Provision.Canceled {
		return s.finish(ctx, result)
	}

	// Stage 2: packager
	s.reporter.Banner("Building executable")
	stageCtx = observability.WithStage(ctx, StagePackage)
	s.runPackage(stageCtx, req, result)
	if result.Package.Canceled {
		return s.finish(ctx, result)
	}

	// Stage 3: artifact
	stageCtx = observability.WithStage(ctx, StageLocate)
	s.runLocate(stageCtx, req, result)

	return s.finish(ctx, result)
}

func (s *DefaultBuildService) runProvision(ctx context.Context, req BuildRequest, result *BuildResult) {
	stageStart := time.Now()
	if req.SkipProvision {
		observability.InfoContext(ctx, "Dependency installation skipped")
		result.Provision = provision.Result{Skipped: true}
		s.stageDone(result, StageProvision, metrics.ResultSkipped, time.Since(stageStart))
		return
	}

	manifestPath := req.Descriptor.Resolve(req.ManifestPath)
	deps, err := manifest.Load(manifestPath)
	result.Dependencies = deps
	if err != nil {
		perr := ferrors.ProvisioningError("cannot read dependency manifest").
			WithCause(err).
			WithContext("manifest", manifestPath).
			Build()
		observability.NewLogBuilder(ctx).
			With(logfields.KeyPath, manifestPath).
			With(logfields.KeyError, err.Error()).
			Warn("Dependency manifest unreadable, continuing without installing")
		result.Provision = provision.Result{Skipped: true, Err: perr}
		s.stageDone(result, StageProvision, metrics.ResultWarning, time.Since(stageStart))
		return
	}

	s.recorder.SetDependencies(deps.Len())
	observability.NewLogBuilder(ctx).
		With(logfields.KeyDependencies, deps.Len()).
		With(logfields.KeyPath, manifestPath).
		Info("Dependency set loaded")

	res := s.provisioner.Ensure(ctx, deps)
	result.Provision = res
	label := metrics.ResultSuccess
	switch {
	case res.Canceled:
		label = metrics.ResultCanceled
	case res.Err != nil:
		label = metrics.ResultWarning
		observability.WarnContext(ctx, "Dependency installation failed; packaging anyway",
			logfields.ExitCode(res.ExitCode), logfields.Error(res.Err))
	case res.Skipped:
		label = metrics.ResultSkipped
	}
	s.stageDone(result, StageProvision, label, time.Since(stageStart))
}

func (s *DefaultBuildService) runPackage(ctx context.Context, req BuildRequest, result *BuildResult) {
	stageStart := time.Now()
	res := s.invoker.Package(ctx, req.Descriptor)
	result.Package = res
	s.recorder.SetPackagerExitCode(res.ExitCode)

	label := metrics.ResultSuccess
	switch {
	case res.Canceled:
		label = metrics.ResultCanceled
		observability.WarnContext(ctx, "Packaging interrupted")
	case !res.Succeeded:
		label = metrics.ResultFailed
		observability.ErrorContext(ctx, "Packager reported failure",
			logfields.ExitCode(res.ExitCode), logfields.Error(res.Err))
	}
	s.stageDone(result, StagePackage, label, time.Since(stageStart))
}

func (s *DefaultBuildService) runLocate(ctx context.Context, req BuildRequest, result *BuildResult) {
	stageStart := time.Now()
	dir := req.Descriptor.Resolve(req.Descriptor.OutputDir)
	match, err := s.locator.Locate(dir)
	if err != nil {
		observability.WarnContext(ctx, "Output directory could not be scanned",
			logfields.Path(dir), logfields.Error(err))
		match = nil
	}
	result.Match = match

	label := metrics.ResultSuccess
	if match == nil {
		label = metrics.ResultFailed
		observability.WarnContext(ctx, "No artifact found", logfields.Path(dir))
	} else {
		observability.InfoContext(ctx, "Artifact located", logfields.Path(match.Path))
	}
	s.stageDone(result, StageLocate, label, time.Since(stageStart))
}

func (s *DefaultBuildService) stageDone(result *BuildResult, stage string, label metrics.ResultLabel, d time.Duration) {
	s.recorder.ObserveStageDuration(stage, d)
	s.recorder.IncStageResult(stage, label)
	result.Stages = append(result.Stages, report.StageTiming{Stage: stage, Result: string(label), Duration: d})
}

// finish decides, presents and records the outcome.
func (s *DefaultBuildService) finish(ctx context.Context, result *BuildResult) (*BuildResult, error) {
	ctx = observability.WithStage(ctx, StageReport)
	pkg := result.Package
	if result.Provision.Canceled {
		pkg = packager.Result{Canceled: true, ExitCode: -1}
	}
	result.Outcome = report.Decide(pkg, result.Match)
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	s.reporter.Present(result.Outcome, result.Stages)

	var err error
	switch {
	case result.Outcome.Canceled:
		result.Status = BuildStatusCancelled
		s.recorder.IncBuildOutcome(metrics.BuildOutcomeCanceled)
		err = ferrors.WrapError(ErrInterrupted, ferrors.CategoryCanceled, "build interrupted").
			WithContext("build_id", result.BuildID).
			Build()
	case result.Outcome.Succeeded():
		result.Status = BuildStatusSuccess
		s.recorder.IncBuildOutcome(metrics.BuildOutcomeSuccess)
	default:
		result.Status = BuildStatusFailed
		s.recorder.IncBuildOutcome(metrics.BuildOutcomeFailed)
		b := ferrors.ArtifactNotFoundError("build failed: no executable produced").
			WithCause(ErrNoArtifact).
			WithContext("build_id", result.BuildID)
		if result.Package.Err != nil {
			b = b.WithContext("packager_exit_code", result.Package.ExitCode)
		}
		err = b.Build()
	}
	s.recorder.ObserveBuildDuration(result.Duration)
	observability.InfoContext(ctx, "Build finished",
		logfields.Status(string(result.Outcome.Status)),
		logfields.DurationMS(float64(result.Duration.Milliseconds())))

	s.record(ctx, result)
	return result, err
}

func (s *DefaultBuildService) record(ctx context.Context, result *BuildResult) {
	if s.history == nil {
		return
	}
	entry := history.Entry{
		BuildID:          result.BuildID,
		StartedAt:        result.StartTime,
		FinishedAt:       result.EndTime,
		Status:           string(result.Outcome.Status),
		ArtifactPath:     result.Outcome.ArtifactPath,
		PackagerExitCode: result.Package.ExitCode,
		Metadata: map[string]string{
			"dependencies": strconv.Itoa(result.Dependencies.Len()),
			"build_status": string(result.Status),
		},
	}
	if result.Provision.Err != nil {
		entry.ProvisionError = result.Provision.Err.Error()
	}
	// The run may have been interrupted; the entry is still written.
	if err := s.history.Append(context.WithoutCancel(ctx), entry); err != nil {
		observability.WarnContext(ctx, "Failed to record build history", slog.String("error", err.Error()))
	}
}
