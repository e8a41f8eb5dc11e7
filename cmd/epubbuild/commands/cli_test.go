package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/epubbuild/internal/build"
	"git.home.luguber.info/inful/epubbuild/internal/config"
	ferrors "git.home.luguber.info/inful/epubbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/epubbuild/internal/report"
	"git.home.luguber.info/inful/epubbuild/internal/testutil/testutils"
)

func newParser(t *testing.T, cli *CLI) *kong.Kong {
	t.Helper()
	parser, err := kong.New(cli,
		kong.Name("epubbuild"),
		kong.Vars{"version": "test"},
		kong.Exit(func(int) {}),
	)
	require.NoError(t, err)
	return parser
}

func TestParseNoArgumentsRunsBuild(t *testing.T) {
	cli := &CLI{}
	kctx, err := newParser(t, cli).Parse([]string{})
	require.NoError(t, err)
	assert.Equal(t, "build", kctx.Command())
	assert.Equal(t, "epubbuild.yaml", filepath.Base(cli.Config))
}

func TestParseBuildFlags(t *testing.T) {
	cli := &CLI{}
	kctx, err := newParser(t, cli).Parse([]string{"build", "--skip-provision", "-o", "out", "--metrics-file", "m.prom"})
	require.NoError(t, err)
	assert.Equal(t, "build", kctx.Command())
	assert.True(t, cli.Build.SkipProvision)
	assert.Equal(t, "out", cli.Build.Output)
	assert.Equal(t, "m.prom", cli.Build.MetricsFile)
}

func TestParseLocateJSON(t *testing.T) {
	cli := &CLI{}
	kctx, err := newParser(t, cli).Parse([]string{"locate", "--json"})
	require.NoError(t, err)
	assert.Equal(t, "locate", kctx.Command())
	assert.True(t, cli.Locate.JSON)
}

func TestParseLogLevel(t *testing.T) {
	t.Setenv("EPUBBUILD_LOG_LEVEL", "warning")
	assert.Equal(t, "WARN", parseLogLevel(false).String())
	assert.Equal(t, "DEBUG", parseLogLevel(true).String())
}

// project lays out a working directory with fake installer and packager.
func project(t *testing.T, packagerBody string, extra string) string {
	t.Helper()
	dir := t.TempDir()
	tools := filepath.Join(dir, "tools")
	pip := testutils.FakeTool(t, tools, "pip", `echo "installing from $2"`)
	pyi := testutils.FakeTool(t, tools, "pyinstaller", packagerBody)
	testutils.WriteFile(t, dir, "requirements.txt", "alpha\nbeta\n", time.Time{})
	testutils.WriteFile(t, dir, "EPUB_Combiner.spec", "# spec", time.Time{})
	yaml := fmt.Sprintf(`provision:
  command: [%q, "-r", "{manifest}"]
package:
  command: [%q, "{output}", "{spec}"]
artifact:
  pattern: "*.bin"
%s`, pip, pyi, extra)
	testutils.WriteFile(t, dir, config.DefaultFile, yaml, time.Time{})
	return dir
}

func loadProject(t *testing.T, dir string) *config.Config {
	t.Helper()
	cfg, err := config.LoadOrDefault(filepath.Join(dir, config.DefaultFile))
	require.NoError(t, err)
	return cfg
}

func TestRunBuildSuccess(t *testing.T) {
	dir := project(t, `mkdir -p "$1" && echo exe > "$1/App.bin"`, "metrics:\n  textfile: metrics.prom\nhistory:\n  enabled: true\n")
	cfg := loadProject(t, dir)
	var stdout bytes.Buffer

	res, err := RunBuild(context.Background(), cfg, BuildOptions{}, &stdout, &stdout)

	require.NoError(t, err)
	assert.Equal(t, build.BuildStatusSuccess, res.Status)
	assert.Equal(t, filepath.Join(dir, "dist", "App.bin"), res.Outcome.ArtifactPath)
	assert.Contains(t, stdout.String(), "installing from "+filepath.Join(dir, "requirements.txt"))
	assert.Contains(t, stdout.String(), "SUCCESS")

	testutils.NewFileAssertions(t, dir).
		AssertFileContains("metrics.prom", `epubbuild_build_outcomes_total{outcome="success"} 1`).
		AssertFileContains("metrics.prom", "epubbuild_dependencies 2").
		AssertFileExists(config.DefaultHistoryPath)

	var out bytes.Buffer
	require.NoError(t, RunHistory(context.Background(), cfg, 5, &out))
	assert.Contains(t, out.String(), "SUCCESS")
	assert.Contains(t, out.String(), res.BuildID)
}

func TestRunBuildFailureExitCode(t *testing.T) {
	dir := project(t, `echo "spec error" >&2; exit 1`, "")
	cfg := loadProject(t, dir)
	var stdout bytes.Buffer

	res, err := RunBuild(context.Background(), cfg, BuildOptions{SkipProvision: true}, &stdout, &stdout)

	require.Error(t, err)
	assert.Equal(t, report.StatusFailure, res.Outcome.Status)
	assert.NotContains(t, stdout.String(), "installing from")
	assert.Contains(t, stdout.String(), "Packager exit code: 1")
	assert.Contains(t, stdout.String(), "spec error")
	assert.Equal(t, ferrors.ExitBuild, ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestRunBuildCanceledExitCode(t *testing.T) {
	dir := project(t, `exec sleep 30`, "")
	cfg := loadProject(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(300*time.Millisecond, cancel)

	res, err := RunBuild(ctx, cfg, BuildOptions{SkipProvision: true}, &bytes.Buffer{}, &bytes.Buffer{})

	require.Error(t, err)
	assert.Equal(t, build.BuildStatusCancelled, res.Status)
	assert.Equal(t, ferrors.ExitCanceled, ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestBuildCmdOverrides(t *testing.T) {
	cfg := config.Default()
	(&BuildCmd{Manifest: "deps.txt", Spec: "other.spec", Output: "out"}).apply(cfg)
	assert.Equal(t, "deps.txt", cfg.Manifest)
	assert.Equal(t, "other.spec", cfg.Package.Spec)
	assert.Equal(t, "out", cfg.Output.Directory)
}

func TestRunLocate(t *testing.T) {
	dir := project(t, "true", "")
	cfg := loadProject(t, dir)
	testutils.WriteFile(t, filepath.Join(dir, "dist"), "App.bin", "x", time.Time{})

	var out bytes.Buffer
	require.NoError(t, RunLocate(cfg, false, &out))
	assert.Equal(t, filepath.Join(dir, "dist", "App.bin")+"\n", out.String())

	out.Reset()
	require.NoError(t, RunLocate(cfg, true, &out))
	var doc map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, true, doc["found"])
	assert.Equal(t, "App.bin", doc["name"])
	assert.Equal(t, cfg.Artifact.Name+" | *.bin", doc["pattern"])
}

func TestRunLocateNoMatch(t *testing.T) {
	cfg := loadProject(t, project(t, "true", ""))

	var out bytes.Buffer
	err := RunLocate(cfg, true, &out)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryArtifact))
	assert.Contains(t, out.String(), `"found": false`)
}

func TestRunHistoryWithoutDatabase(t *testing.T) {
	cfg := loadProject(t, project(t, "true", ""))
	var out bytes.Buffer
	require.NoError(t, RunHistory(context.Background(), cfg, 10, &out))
	assert.True(t, strings.HasPrefix(out.String(), "No build history recorded"))
}

func TestRunInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.DefaultFile)
	var out bytes.Buffer
	require.NoError(t, RunInit(path, false, &out))
	assert.Equal(t, "Wrote default configuration to "+path+"\n", out.String())

	out.Reset()
	err := RunInit(path, false, &out)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
	assert.Contains(t, ferrors.NewCLIErrorAdapter(false, nil).FormatError(err), path)
	assert.Empty(t, out.String())

	require.NoError(t, RunInit(path, true, &out))
	assert.Equal(t, "Overwrote existing configuration at "+path+"\n", out.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pyinstaller")
}
