package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/datainit/internal/config"
)

// Global carries the process streams into subcommands.
type Global struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// CLI definition and global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"datainit.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run      RunCmd      `cmd:"" default:"1" help:"Run the initial data load once and print a summary"`
	Daemon   DaemonCmd   `cmd:"" help:"Load, then keep reloading on change and on an interval"`
	Validate ValidateCmd `cmd:"" help:"Validate the persisted dataset"`
	Journal  JournalCmd  `cmd:"" help:"Show recent bootstrap runs"`
	Init     InitCmd     `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing; it sets up logging until the
// configuration says otherwise.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadConfig loads the configuration and applies its logging settings.
// --verbose always wins over the configured level.
func (c *CLI) loadConfig(stderr io.Writer) (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	logging := cfg.Logging
	if c.Verbose {
		logging.Level = config.LogLevelDebug
	}
	slog.SetDefault(slog.New(logging.Handler(stderr)))
	return cfg, nil
}
