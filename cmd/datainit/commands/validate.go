package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/datainit/internal/foundation/errors"
	"git.home.luguber.info/inful/datainit/internal/validate"
)

// ValidateCmd checks the persisted complete dataset without publishing it.
type ValidateCmd struct{}

func (v *ValidateCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g.Stderr)
	if err != nil {
		return err
	}
	store, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	data, err := store.LoadComplete(context.Background())
	if err != nil {
		return err
	}
	res := validate.New().Validate(data)
	if res.Valid {
		sum := data.Summarize()
		fmt.Fprintf(g.Stdout, "valid: %d tasks, %d archived, %d projects, %d tags\n",
			sum.Tasks, sum.Archived, sum.Projects, sum.Tags)
		return nil
	}

	for _, fe := range res.Errors {
		fmt.Fprintf(g.Stdout, "%s\t%s\t%s\n", fe.Field, fe.Code, fe.Message)
	}
	return errors.ValidationError("persisted dataset is invalid").
		WithContext("problems", len(res.Errors)).
		Build()
}
