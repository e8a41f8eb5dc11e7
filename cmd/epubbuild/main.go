package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/epubbuild/cmd/epubbuild/commands"
	ferrors "git.home.luguber.info/inful/epubbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/epubbuild/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("epubbuild"),
		kong.Description("Provision, package and locate the EPUB Combiner standalone executable."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	// SIGINT/SIGTERM cancel the run; the running tool is killed and the
	// build ends as a failure.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	parser.BindTo(ctx, (*context.Context)(nil))

	err := parser.Run(&commands.Global{Logger: slog.Default()}, cli)
	stop()
	if err != nil {
		ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
