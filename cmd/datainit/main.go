package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/datainit/cmd/datainit/commands"
	"git.home.luguber.info/inful/datainit/internal/foundation/errors"
	"git.home.luguber.info/inful/datainit/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("datainit"),
		kong.Description("Bootstrap, validate and keep application data fresh."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := parser.Run(&commands.Global{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}, cli)
	if err != nil {
		adapter := errors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
		adapter.Log(err)
		fmt.Fprintln(os.Stderr, adapter.FormatError(err))
		os.Exit(adapter.ExitCodeFor(err))
	}
}
