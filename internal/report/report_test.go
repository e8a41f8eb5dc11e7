package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"git.home.luguber.info/inful/epubbuild/internal/artifact"
	"git.home.luguber.info/inful/epubbuild/internal/packager"
)

func TestDecide(t *testing.T) {
	match := &artifact.Match{Path: "/work/dist/App.bin", Name: "App.bin"}
	ok := packager.Result{Succeeded: true}
	failed := packager.Result{ExitCode: 1, Diagnostics: "Traceback\nImportError: alpha"}

	tests := []struct {
		name       string
		pkg        packager.Result
		match      *artifact.Match
		wantStatus Status
		wantPath   string
	}{
		{"artifact and clean exit", ok, match, StatusSuccess, "/work/dist/App.bin"},
		{"no artifact despite clean exit", ok, nil, StatusFailure, ""},
		{"stale artifact after packager failure", failed, match, StatusSuccess, "/work/dist/App.bin"},
		{"packager failure without artifact", failed, nil, StatusFailure, ""},
		{"canceled with leftover artifact", packager.Result{Canceled: true, ExitCode: -1}, match, StatusFailure, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.pkg, tt.match)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantPath, got.ArtifactPath)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestDecideKeepsPackagerDiagnosticsOnFailure(t *testing.T) {
	got := Decide(packager.Result{ExitCode: 2, Diagnostics: "boom"}, nil)
	assert.True(t, got.PackagerFailed)
	assert.Equal(t, 2, got.PackagerExitCode)
	assert.Equal(t, "boom", got.Diagnostics)
	assert.False(t, got.Succeeded())
}

func TestDecideStaleArtifactMentionsExitCode(t *testing.T) {
	got := Decide(packager.Result{ExitCode: 4}, &artifact.Match{Path: "/d/App"})
	assert.True(t, got.Succeeded())
	assert.Contains(t, got.Message, "code 4")
}

func TestPresentSuccess(t *testing.T) {
	var buf bytes.Buffer
	NewReporter(&buf).Present(Outcome{Status: StatusSuccess, Message: "Build complete. Executable: /d/App", ArtifactPath: "/d/App"},
		[]StageTiming{{Stage: "package", Result: "success", Duration: 1500 * time.Millisecond}})

	out := buf.String()
	assert.Contains(t, out, "SUCCESS")
	assert.Contains(t, out, "/d/App")
	assert.Contains(t, out, "package")
	assert.Contains(t, out, "1.5s")
	assert.NotContains(t, out, "Packager exit code")
}

func TestPresentFailureWithDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	o := Decide(packager.Result{ExitCode: 3, Diagnostics: "line one\nline two"}, nil)
	NewReporter(&buf).Present(o, nil)

	out := buf.String()
	assert.Contains(t, out, "FAILURE")
	assert.Contains(t, out, "Check the output above")
	assert.Contains(t, out, "Packager exit code: 3")
	assert.Contains(t, out, "  line two\n")
}

func TestBanner(t *testing.T) {
	var buf bytes.Buffer
	NewReporter(&buf).Banner("Installing dependencies")
	assert.Contains(t, buf.String(), rule+"\nInstalling dependencies\n"+rule)
}
