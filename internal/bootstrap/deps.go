package bootstrap

import (
	"context"

	"git.home.luguber.info/inful/datainit/internal/appdata"
	"git.home.luguber.info/inful/datainit/internal/backup"
	"git.home.luguber.info/inful/datainit/internal/foundation"
)

// Gateway reads the persisted documents.
type Gateway interface {
	LoadLegacyState(ctx context.Context, skipMigrationCheck bool) (*appdata.LegacyState, error)
	LoadComplete(ctx context.Context) (*appdata.Complete, error)
}

// Migrator brings the legacy state to the current schema, persisting as needed.
type Migrator interface {
	MigrateIfNecessary(ctx context.Context, s *appdata.LegacyState) (*appdata.LegacyState, error)
}

// Validator decides whether a dataset can be published as is.
type Validator interface {
	IsValid(data *appdata.Complete) bool
}

// Repairer fixes invalid datasets after operator confirmation.
type Repairer interface {
	IsRepairPossibleAndConfirmed(ctx context.Context, data *appdata.Complete) bool
	Repair(data *appdata.Complete) *appdata.Complete
}

// BackupLocator finds and reads local backups. Supported reports whether the
// platform keeps local backups at all.
type BackupLocator interface {
	Supported() bool
	IsBackupAvailable(ctx context.Context) (foundation.Option[backup.Meta], error)
	LoadBackup(ctx context.Context, path string) ([]byte, error)
}

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// Publisher notifies downstream consumers.
type Publisher interface {
	PublishLoadAllData(ctx context.Context, data *appdata.Complete, omitTokens bool) error
	PublishAllDataLoaded(ctx context.Context) error
}

// BackupReadPublisher is optionally implemented by a Publisher that also
// announces confirmed backup reads.
type BackupReadPublisher interface {
	PublishBackupRead(ctx context.Context, path string, size int) error
}

// ContextReadiness blocks until the active work context has what it needs.
type ContextReadiness interface {
	WaitReady(ctx context.Context) error
}

// Deps groups the collaborators of an Orchestrator. Backup, Confirmer and
// WorkContext are optional: without Backup no backup check runs, without a
// Confirmer every backup offer is declined, and without WorkContext the
// context gate passes immediately.
type Deps struct {
	Gateway     Gateway
	Migrator    Migrator
	Validator   Validator
	Repairer    Repairer
	Publisher   Publisher
	Backup      BackupLocator
	Confirmer   Confirmer
	WorkContext ContextReadiness
}

func (d Deps) validate() error {
	missing := func(name string) error {
		return ErrMissingDependency.WithContext("dependency", name)
	}
	switch {
	case d.Gateway == nil:
		return missing("gateway")
	case d.Migrator == nil:
		return missing("migrator")
	case d.Validator == nil:
		return missing("validator")
	case d.Repairer == nil:
		return missing("repairer")
	case d.Publisher == nil:
		return missing("publisher")
	}
	return nil
}
