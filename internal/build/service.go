package build

import (
	"context"
	"time"

	"git.home.luguber.info/inful/epubbuild/internal/artifact"
	"git.home.luguber.info/inful/epubbuild/internal/manifest"
	"git.home.luguber.info/inful/epubbuild/internal/packager"
	"git.home.luguber.info/inful/epubbuild/internal/provision"
	"git.home.luguber.info/inful/epubbuild/internal/report"
)

// BuildService executes one packaging run.
type BuildService interface {
	// Run executes the pipeline. The result is always non-nil; the error is
	// non-nil when the outcome is not SUCCESS.
	Run(ctx context.Context, req BuildRequest) (*BuildResult, error)
}

// BuildRequest contains the inputs of a run.
type BuildRequest struct {
	Descriptor packager.Descriptor

	// ManifestPath is the dependency manifest, relative to the descriptor's
	// working directory unless absolute.
	ManifestPath string

	// SkipProvision bypasses dependency installation.
	SkipProvision bool
}

// Stage names used in logs, metrics and the summary.
const (
	StageProvision = "provision"
	StagePackage   = "package"
	StageLocate    = "locate"
	StageReport    = "report"
)

// BuildResult contains everything the stages reported.
type BuildResult struct {
	BuildID string
	Status  BuildStatus
	Outcome report.Outcome

	Dependencies manifest.DependencySet
	Provision    provision.Result
	Package      packager.Result
	// Match is nil when no artifact was found.
	Match *artifact.Match

	Stages []report.StageTiming

	Duration  time.Duration
	StartTime time.Time
	EndTime   time.Time
}

// BuildStatus represents the outcome of a build execution.
type BuildStatus string

const (
	BuildStatusSuccess   BuildStatus = "success"
	BuildStatusFailed    BuildStatus = "failed"
	BuildStatusCancelled BuildStatus = "cancelled"
)

// IsSuccess returns true if the build produced an artifact.
func (s BuildStatus) IsSuccess() bool {
	return s == BuildStatusSuccess
}
