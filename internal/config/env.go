package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/joho/godotenv"
)

// envFiles are tried in precedence order; values already present in the
// process environment are never overwritten, so the first file wins.
var envFiles = []string{".env.local", ".env"}

// loadEnvFiles loads .env files from dir so ${VAR} references in the YAML and
// the tools' environment pick them up.
func loadEnvFiles(dir string) {
	for _, name := range envFiles {
		path := filepath.Join(dir, name)
		if err := godotenv.Load(path); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				slog.Warn("Failed to load env file", "path", path, "error", err)
			}
			continue
		}
		slog.Debug("Loaded environment variables", "path", path)
	}
}
