package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/epubbuild/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing configuration file"`
	Output string `short:"o" name:"output" help:"Directory to write epubbuild.yaml into"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	path := root.Config
	if i.Output != "" {
		path = filepath.Join(i.Output, config.DefaultFile)
	}
	return RunInit(path, i.Force, os.Stdout)
}

// RunInit writes the default configuration and reports what it did.
func RunInit(configPath string, force bool, w io.Writer) error {
	_, statErr := os.Stat(configPath)
	existed := statErr == nil

	if err := config.Init(configPath, force); err != nil {
		return err
	}

	abs, err := filepath.Abs(configPath)
	if err != nil {
		abs = configPath
	}
	if existed {
		_, _ = fmt.Fprintf(w, "Overwrote existing configuration at %s\n", abs)
	} else {
		_, _ = fmt.Fprintf(w, "Wrote default configuration to %s\n", abs)
	}
	return nil
}
