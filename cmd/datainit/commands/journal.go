package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/datainit/internal/eventstore"
	"git.home.luguber.info/inful/datainit/internal/foundation/errors"
)

// JournalCmd prints recent runs from the journal.
type JournalCmd struct {
	Limit int `help:"Number of runs to show" default:"20"`
}

func (j *JournalCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g.Stderr)
	if err != nil {
		return err
	}
	if cfg.Journal.Path == "" {
		return errors.ConfigError("journal is not configured").
			WithContext("field", "journal.path").
			Build()
	}
	store, err := eventstore.NewSQLiteStore(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	history := eventstore.NewRunHistoryProjection(store, j.Limit)
	if err := history.Rebuild(context.Background()); err != nil {
		return err
	}
	return printHistory(g, history.History())
}

func printHistory(g *Global, runs []eventstore.RunSummary) error {
	if len(runs) == 0 {
		fmt.Fprintln(g.Stdout, "no runs recorded")
		return nil
	}
	tw := tabwriter.NewWriter(g.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tRUN\tKIND\tSTATUS\tREASON\tTASKS\tARCHIVED\tDETAIL")
	for _, r := range runs {
		detail := r.Error
		if detail == "" && r.BackupPath != "" {
			detail = "backup " + r.BackupPath
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.StartedAt.Format(time.RFC3339), r.RunID, r.Kind, r.Status, r.Reason, r.Tasks, r.Archived, detail)
	}
	return tw.Flush()
}
