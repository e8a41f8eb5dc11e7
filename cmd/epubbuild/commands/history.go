package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/epubbuild/internal/config"
	"git.home.luguber.info/inful/epubbuild/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int `short:"n" help:"Number of runs to show" default:"20"`
}

func (h *HistoryCmd) Run(ctx context.Context, _ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	return RunHistory(ctx, cfg, h.Limit, os.Stdout)
}

// RunHistory prints the most recent recorded runs.
func RunHistory(ctx context.Context, cfg *config.Config, limit int, w io.Writer) error {
	path := cfg.ResolvePath(cfg.History.Path)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintf(w, "No build history recorded at %s (enable history.enabled in the configuration)\n", path)
		return nil
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, "No builds recorded")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STARTED\tSTATUS\tDURATION\tEXIT\tARTIFACT\tBUILD ID")
	for _, e := range entries {
		artifactPath := e.ArtifactPath
		if artifactPath == "" {
			artifactPath = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			e.StartedAt.Local().Format(time.DateTime), e.Status, e.Duration().Round(time.Millisecond),
			e.PackagerExitCode, artifactPath, e.BuildID)
	}
	return tw.Flush()
}
