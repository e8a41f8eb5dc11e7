// Package report turns the packager result and the located artifact into the
// final build outcome and prints it.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"git.home.luguber.info/inful/epubbuild/internal/artifact"
	"git.home.luguber.info/inful/epubbuild/internal/packager"
)

// Status is the final verdict of a build.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// Outcome is what the operator is told at the end of a run.
type Outcome struct {
	Status  Status
	Message string
	// ArtifactPath is set only on success.
	ArtifactPath string
	// PackagerExitCode and Diagnostics are kept on failure when the packager
	// itself failed.
	PackagerExitCode int
	PackagerFailed   bool
	Diagnostics      string
	Canceled         bool
}

// Succeeded reports a SUCCESS outcome.
func (o Outcome) Succeeded() bool { return o.Status == StatusSuccess }

// Decide derives the outcome. The artifact is the success oracle: a located
// artifact means SUCCESS even when the packager reported an error, and no
// artifact means FAILURE even when it exited cleanly. An interrupted run is
// always a FAILURE.
func Decide(pkg packager.Result, match *artifact.Match) Outcome {
	out := Outcome{PackagerExitCode: pkg.ExitCode, PackagerFailed: !pkg.Succeeded && !pkg.Canceled}
	switch {
	case pkg.Canceled:
		out.Status = StatusFailure
		out.Canceled = true
		out.Message = "Build interrupted. Partial output may remain in the output directory."
	case match != nil:
		out.Status = StatusSuccess
		out.ArtifactPath = match.Path
		out.Message = "Build complete. Executable: " + match.Path
		if out.PackagerFailed {
			out.Message += fmt.Sprintf(" (packager exited with code %d; the artifact may be stale)", pkg.ExitCode)
		}
	default:
		out.Status = StatusFailure
		out.Message = "Build failed: no executable found in the output directory. Check the output above for errors."
		if out.PackagerFailed {
			out.Diagnostics = pkg.Diagnostics
		}
	}
	return out
}

// Reporter prints stage banners and the final outcome.
type Reporter struct {
	out io.Writer
}

// NewReporter creates a reporter writing to w, or stdout when w is nil.
func NewReporter(w io.Writer) *Reporter {
	if w == nil {
		w = os.Stdout
	}
	return &Reporter{out: w}
}

const rule = "========================================"

// Banner prints a stage header.
func (r *Reporter) Banner(title string) {
	_, _ = fmt.Fprintf(r.out, "\n%s\n%s\n%s\n", rule, title, rule)
}

// StageTiming is one line of the run summary.
type StageTiming struct {
	Stage    string
	Result   string
	Duration time.Duration
}

// Present prints the final outcome banner with the per-stage summary.
func (r *Reporter) Present(o Outcome, stages []StageTiming) {
	r.Banner(string(o.Status))
	_, _ = fmt.Fprintln(r.out, o.Message)
	if o.Status == StatusFailure && o.PackagerFailed {
		_, _ = fmt.Fprintf(r.out, "Packager exit code: %d\n", o.PackagerExitCode)
		if o.Diagnostics != "" {
			_, _ = fmt.Fprintln(r.out, "Last packager output:")
			for line := range strings.SplitSeq(o.Diagnostics, "\n") {
				_, _ = fmt.Fprintf(r.out, "  %s\n", line)
			}
		}
	}
	if len(stages) > 0 {
		_, _ = fmt.Fprintln(r.out)
		for _, s := range stages {
			_, _ = fmt.Fprintf(r.out, "  %-10s %-8s %s\n", s.Stage, s.Result, s.Duration.Round(time.Millisecond))
		}
	}
}
