// Package commands implements the epubbuild CLI commands.
package commands

import (
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/epubbuild/internal/config"
	"git.home.luguber.info/inful/epubbuild/internal/observability"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (optional; conventions apply when absent)" default:"epubbuild.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" default:"1" help:"Install dependencies, package the application and locate the executable (default)"`
	Locate  LocateCmd  `cmd:"" help:"Locate the packaged executable in the output directory"`
	History HistoryCmd `cmd:"" help:"List recorded build outcomes"`
	Init    InitCmd    `cmd:"" help:"Write a configuration file with the conventional defaults"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	slog.SetDefault(observability.NewLogger(os.Stderr, parseLogLevel(c.Verbose), string(config.LogFormatText)))
	return nil
}

// parseLogLevel resolves the level from --verbose, then EPUBBUILD_LOG_LEVEL.
func parseLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	if raw := strings.TrimSpace(os.Getenv("EPUBBUILD_LOG_LEVEL")); raw != "" {
		return config.NormalizeLogLevel(raw).SlogLevel()
	}
	return slog.LevelInfo
}

// loadConfig loads the configuration and re-applies logging settings from it.
// Flags and EPUBBUILD_LOG_LEVEL win over the file.
func loadConfig(root *CLI) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(root.Config)
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level.SlogLevel()
	if root.Verbose || os.Getenv("EPUBBUILD_LOG_LEVEL") != "" {
		level = parseLogLevel(root.Verbose)
	}
	slog.SetDefault(observability.NewLogger(os.Stderr, level, string(cfg.Logging.Format)))
	if src := cfg.Source(); src != "" {
		slog.Debug("Configuration loaded", "file", src, "workdir", cfg.WorkDir)
	}
	return cfg, nil
}
