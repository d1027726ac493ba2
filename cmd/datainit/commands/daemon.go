package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/datainit/internal/daemon"
)

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	Listen  string `help:"HTTP listen address (overrides daemon.listen)"`
	Project string `help:"Active project; the initial load also waits until its related data is in"`
	NoWatch bool   `name:"no-watch" help:"Do not reload when the state files change"`
}

func (d *DaemonCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g.Stderr)
	if err != nil {
		return err
	}
	if d.Listen != "" {
		cfg.Daemon.Listen = d.Listen
	}
	if d.NoWatch {
		cfg.Daemon.Watch = false
	}

	a, err := wire(cfg, g, wireOptions{project: d.Project})
	if err != nil {
		return err
	}
	defer a.close()

	srv, err := daemon.New(daemon.Options{
		Config:       cfg.Daemon,
		Orchestrator: a.orchestrator,
		Store:        a.store,
		WatchFiles:   a.watchFiles(),
		Registry:     a.registry,
		History:      a.history,
		AppStore:     a.apps,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	a.start(ctx)

	slog.Info("Starting daemon", slog.String("listen", cfg.Daemon.Listen), slog.String("storage", a.store.Name()))
	return srv.Run(ctx)
}
