package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/datainit/internal/workctx"
)

// RunCmd performs the initial data load once.
type RunCmd struct {
	Project string `help:"Active project; the load also waits until its related data is in"`
}

func (r *RunCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g.Stderr)
	if err != nil {
		return err
	}
	a, err := wire(cfg, g, wireOptions{project: r.Project})
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	a.start(ctx)

	if _, err := a.orchestrator.Readiness().Wait(ctx); err != nil {
		return err
	}
	if err := a.orchestrator.WaitIdle(ctx); err != nil {
		return err
	}

	select {
	case <-a.apps.AllLoaded():
	case <-ctx.Done():
		return ctx.Err()
	}
	stats := a.apps.Stats()
	fmt.Fprintf(g.Stdout, "loads: %d\n", stats.Loads)
	fmt.Fprintf(g.Stdout, "tasks: %d current, %d archived\n", stats.Summary.Tasks, stats.Summary.Archived)
	fmt.Fprintf(g.Stdout, "projects: %d, tags: %d\n", stats.Summary.Projects, stats.Summary.Tags)
	if st := a.tracker.Status(); st.Kind != workctx.KindNone {
		fmt.Fprintf(g.Stdout, "work context: %s %s\n", st.Kind, st.ID)
	}
	return nil
}
