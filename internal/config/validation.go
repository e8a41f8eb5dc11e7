package config

import (
	"fmt"
	"path"

	ferrors "git.home.luguber.info/inful/epubbuild/internal/foundation/errors"
)

func (c *Config) normalize() error {
	level, err := logLevelNormalizer.NormalizeWithError(string(c.Logging.Level))
	if err != nil {
		return ferrors.ConfigError("invalid logging.level").
			WithCause(err).WithContext("valid", logLevelNormalizer.ValidKeys()).Build()
	}
	format, err := logFormatNormalizer.NormalizeWithError(string(c.Logging.Format))
	if err != nil {
		return ferrors.ConfigError("invalid logging.format").
			WithCause(err).WithContext("valid", logFormatNormalizer.ValidKeys()).Build()
	}
	c.Logging.Level = level
	c.Logging.Format = format
	if c.History.Path == "" {
		c.History.Path = DefaultHistoryPath
	}
	return nil
}

// Validate checks the settings the pipeline cannot run without.
func Validate(c *Config) error {
	switch {
	case len(c.Package.Command) == 0 || c.Package.Command[0] == "":
		return invalid("package.command must name the packaging tool")
	case c.Package.Spec == "":
		return invalid("package.spec must reference the packaging configuration")
	case c.Output.Directory == "":
		return invalid("output.directory must not be empty")
	case c.Artifact.Pattern == "" && c.Artifact.Name == "":
		return invalid("artifact.pattern or artifact.name is required")
	case !c.Provision.Skip && (len(c.Provision.Command) == 0 || c.Provision.Command[0] == ""):
		return invalid("provision.command must name the installer (or set provision.skip)")
	}
	if c.Artifact.Pattern != "" {
		if _, err := path.Match(c.Artifact.Pattern, ""); err != nil {
			return ferrors.ConfigError("artifact.pattern is not a valid wildcard").
				WithCause(err).WithContext("pattern", c.Artifact.Pattern).Build()
		}
	}
	return nil
}

func invalid(msg string) error {
	return ferrors.ConfigError(fmt.Sprintf("invalid configuration: %s", msg)).Build()
}
