package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"git.home.luguber.info/inful/epubbuild/internal/artifact"
	"git.home.luguber.info/inful/epubbuild/internal/config"
	ferrors "git.home.luguber.info/inful/epubbuild/internal/foundation/errors"
)

// LocateCmd implements the 'locate' command.
type LocateCmd struct {
	JSON   bool   `name:"json" help:"Print the match as JSON"`
	Output string `short:"o" help:"Output directory to search (overrides output.directory)"`
}

func (l *LocateCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if l.Output != "" {
		cfg.Output.Directory = l.Output
	}
	return RunLocate(cfg, l.JSON, os.Stdout)
}

type locateJSON struct {
	Found   bool      `json:"found"`
	Path    string    `json:"path,omitempty"`
	Name    string    `json:"name,omitempty"`
	Size    int64     `json:"size,omitempty"`
	ModTime time.Time `json:"mod_time,omitzero"`
	Dir     string    `json:"dir"`
	Pattern string    `json:"pattern"`
}

// RunLocate runs only the artifact lookup. A missing artifact is an error so
// scripts can rely on the exit code.
func RunLocate(cfg *config.Config, asJSON bool, w io.Writer) error {
	locator, err := artifact.NewLocator(artifact.Pattern{Glob: cfg.Artifact.Pattern, Name: cfg.Artifact.Name})
	if err != nil {
		return err
	}
	pattern := locator.Pattern()
	dir := cfg.ResolvePath(cfg.Output.Directory)
	match, err := locator.Locate(dir)
	if err != nil {
		return err
	}

	if asJSON {
		doc := locateJSON{Found: match != nil, Dir: dir, Pattern: pattern.String()}
		if match != nil {
			doc.Path, doc.Name, doc.Size, doc.ModTime = match.Path, match.Name, match.Size, match.ModTime
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	} else if match != nil {
		_, _ = fmt.Fprintln(w, match.Path)
	}

	if match == nil {
		return ferrors.ArtifactNotFoundError("no executable found").
			WithContext("dir", dir).
			WithContext("pattern", pattern.String()).
			Build()
	}
	return nil
}
