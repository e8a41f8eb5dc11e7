package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/epubbuild/internal/foundation/errors"
)

const initHeader = `# epubbuild configuration.
# Relative paths resolve against workdir (default: this file's directory).
# Placeholders: {manifest} {deps} in provision.command, {spec} {output} in package.command.
`

// Init writes an example configuration file holding the conventional defaults.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return ferrors.ConfigError("configuration file already exists, use --force to overwrite").
			WithContext("file", configPath).Build()
	}

	example := Default()
	example.WorkDir = ""
	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return ferrors.FileSystemError("cannot create configuration directory").
				WithCause(err).WithContext("file", configPath).Build()
		}
	}
	if err := os.WriteFile(configPath, append([]byte(initHeader), data...), 0o600); err != nil {
		return ferrors.FileSystemError("cannot write configuration file").
			WithCause(err).WithContext("file", configPath).Build()
	}
	return nil
}
