// Package config loads the build orchestrator configuration.
//
// Every setting has a conventional default, so a project without an
// epubbuild.yaml builds with: requirements.txt -> pip, EPUB_Combiner.spec ->
// pyinstaller, artifact looked up in dist/.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/epubbuild/internal/foundation/errors"
)

// DefaultFile is the configuration file looked up when --config is not given.
const DefaultFile = "epubbuild.yaml"

// Config represents the application configuration.
type Config struct {
	// WorkDir is the directory the tools run in and relative paths resolve
	// against. Defaults to the directory holding the configuration file.
	WorkDir   string          `yaml:"workdir,omitempty"`
	Manifest  string          `yaml:"manifest"`
	Provision ProvisionConfig `yaml:"provision"`
	Package   PackageConfig   `yaml:"package"`
	Output    OutputConfig    `yaml:"output"`
	Artifact  ArtifactConfig  `yaml:"artifact"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	History   HistoryConfig   `yaml:"history"`

	source string
}

// ProvisionConfig configures the dependency installer.
// Arguments may use {manifest} and {deps} placeholders.
type ProvisionConfig struct {
	Command []string `yaml:"command"`
	Skip    bool     `yaml:"skip,omitempty"`
}

// PackageConfig configures the packaging tool.
// Arguments may use {spec} and {output} placeholders.
type PackageConfig struct {
	Command []string `yaml:"command"`
	Spec    string   `yaml:"spec"`
}

// OutputConfig represents output configuration.
type OutputConfig struct {
	Directory string `yaml:"directory"`
}

// ArtifactConfig selects the produced binary inside the output directory.
type ArtifactConfig struct {
	Pattern string `yaml:"pattern"`
	Name    string `yaml:"name,omitempty"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// HistoryConfig configures the optional run history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Source returns the file the configuration was read from, or "" for defaults.
func (c *Config) Source() string {
	return c.source
}

// ResolvePath resolves p against the working directory unless it is absolute.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.WorkDir, p)
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	loadEnvFiles(filepath.Dir(configPath))

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ferrors.ConfigError("configuration file not found").
				WithContext("file", configPath).Build()
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	// Expand environment variables in the YAML content
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, ferrors.ConfigError("failed to parse configuration").
			WithCause(err).WithContext("file", configPath).Build()
	}
	cfg.source = configPath
	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Dir(configPath)
	} else if !filepath.IsAbs(cfg.WorkDir) {
		cfg.WorkDir = filepath.Join(filepath.Dir(configPath), cfg.WorkDir)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configPath when it exists and otherwise returns the
// conventional defaults rooted at the file's directory.
func LoadOrDefault(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat config file: %w", err)
	}

	loadEnvFiles(filepath.Dir(configPath))
	slog.Debug("No configuration file, using conventions", "file", configPath)
	cfg := Default()
	cfg.WorkDir = filepath.Dir(configPath)
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// finalize makes WorkDir absolute, normalizes enums and validates.
func (c *Config) finalize() error {
	abs, err := filepath.Abs(c.WorkDir)
	if err != nil {
		return ferrors.ConfigError("cannot resolve working directory").WithCause(err).Build()
	}
	c.WorkDir = abs
	if err := c.normalize(); err != nil {
		return err
	}
	return Validate(c)
}
