package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/epubbuild/internal/foundation/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoadOrDefaultWithoutFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadOrDefault(filepath.Join(dir, DefaultFile))
	require.NoError(t, err)

	assert.Empty(t, cfg.Source())
	assert.Equal(t, dir, cfg.WorkDir)
	assert.Equal(t, DefaultManifest, cfg.Manifest)
	assert.Equal(t, DefaultSpec, cfg.Package.Spec)
	assert.Equal(t, []string{"pyinstaller", "--noconfirm", "--distpath", "{output}", "{spec}"}, cfg.Package.Command)
	assert.Equal(t, DefaultOutputDir, cfg.Output.Directory)
	assert.Equal(t, filepath.Join(dir, "dist"), cfg.ResolvePath(cfg.Output.Directory))
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
	assert.False(t, cfg.History.Enabled)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	writeFile(t, path, `
manifest: deps.txt
package:
  command: ["./tools/pack.sh", "{spec}"]
  spec: app.spec
output:
  directory: out
artifact:
  pattern: "*.bin"
logging:
  level: WARNING
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Source())
	assert.Equal(t, "deps.txt", cfg.Manifest)
	assert.Equal(t, []string{"./tools/pack.sh", "{spec}"}, cfg.Package.Command)
	assert.Equal(t, "app.spec", cfg.Package.Spec)
	assert.Equal(t, "*.bin", cfg.Artifact.Pattern)
	assert.Equal(t, LogLevelWarn, cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
	// untouched sections keep conventions
	assert.Equal(t, "python", cfg.Provision.Command[0])
}

func TestLoadRelativeWorkDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	writeFile(t, path, "workdir: app\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "app"), cfg.WorkDir)
	assert.Equal(t, "/abs/spec", cfg.ResolvePath("/abs/spec"))
}

func TestLoadExpandsEnvFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("EPUBBUILD_TEST_SPEC", "")
	require.NoError(t, os.Unsetenv("EPUBBUILD_TEST_SPEC"))
	writeFile(t, filepath.Join(dir, ".env"), "EPUBBUILD_TEST_SPEC=from-env.spec\n")
	path := filepath.Join(dir, DefaultFile)
	writeFile(t, path, "package:\n  spec: ${EPUBBUILD_TEST_SPEC}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.spec", cfg.Package.Spec)
}

func TestLoadProcessEnvWinsOverDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("EPUBBUILD_TEST_OUT", "process")
	writeFile(t, filepath.Join(dir, ".env"), "EPUBBUILD_TEST_OUT=dotenv\n")
	path := filepath.Join(dir, DefaultFile)
	writeFile(t, path, "output:\n  directory: ${EPUBBUILD_TEST_OUT}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "process", cfg.Output.Directory)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.yaml"))
		require.Error(t, err)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		writeFile(t, path, "package: [unterminated\n")
		_, err := Load(path)
		require.Error(t, err)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
	})

	t.Run("invalid log level", func(t *testing.T) {
		path := filepath.Join(dir, "level.yaml")
		writeFile(t, path, "logging:\n  level: chatty\n")
		_, err := Load(path)
		require.Error(t, err)
		ce, ok := ferrors.AsClassified(err)
		require.True(t, ok)
		assert.Contains(t, ce.Context()["valid"], "warning")
	})

	t.Run("bad pattern", func(t *testing.T) {
		path := filepath.Join(dir, "pattern.yaml")
		writeFile(t, path, "artifact:\n  pattern: \"[\"\n")
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "artifact.pattern")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"no packager", func(c *Config) { c.Package.Command = nil }, false},
		{"no spec", func(c *Config) { c.Package.Spec = "" }, false},
		{"no output", func(c *Config) { c.Output.Directory = "" }, false},
		{"no artifact selector", func(c *Config) { c.Artifact = ArtifactConfig{} }, false},
		{"name only", func(c *Config) { c.Artifact = ArtifactConfig{Name: "App.bin"} }, true},
		{"no installer", func(c *Config) { c.Provision.Command = nil }, false},
		{"no installer but skipped", func(c *Config) { c.Provision.Command = nil; c.Provision.Skip = true }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", DefaultFile)

	require.NoError(t, Init(path, false))
	require.Error(t, Init(path, false), "existing file must not be overwritten")
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Package.Command, cfg.Package.Command)
	assert.Equal(t, filepath.Join(dir, "sub"), cfg.WorkDir)
}

func TestInitErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, Init(path, false))

	err := Init(path, false)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))

	blocker := filepath.Join(dir, "blocker")
	writeFile(t, blocker, "file, not a directory")
	err = Init(filepath.Join(blocker, DefaultFile), false)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryFileSystem))
}

func TestNormalizeLogEnums(t *testing.T) {
	assert.Equal(t, LogLevelDebug, NormalizeLogLevel(" Debug "))
	assert.Equal(t, LogLevelInfo, NormalizeLogLevel("bogus"))
	assert.Equal(t, LogFormatJSON, NormalizeLogFormat("JSON"))
	assert.Equal(t, LogFormatText, NormalizeLogFormat(""))
	assert.Equal(t, "DEBUG", LogLevelDebug.SlogLevel().String())
}
