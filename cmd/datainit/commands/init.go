package commands

import (
	"fmt"

	"git.home.luguber.info/inful/datainit/internal/config"
)

// InitCmd writes an example configuration to the --config path.
type InitCmd struct {
	Force bool `help:"Overwrite an existing file"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	if err := config.Init(root.Config, i.Force); err != nil {
		return err
	}
	fmt.Fprintf(g.Stdout, "wrote %s\n", root.Config)
	return nil
}
