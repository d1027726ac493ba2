package migration

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sort"

	"git.home.luguber.info/inful/datainit/internal/appdata"
	"git.home.luguber.info/inful/datainit/internal/foundation/errors"
	"git.home.luguber.info/inful/datainit/internal/logfields"
	"git.home.luguber.info/inful/datainit/internal/state"
)

// Migrator applies Steps in version order and writes the upgraded state
// through a state.LegacyWriter.
type Migrator struct {
	writer state.LegacyWriter
	steps  []Step
	target int
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithSteps replaces the default step chain.
func WithSteps(steps ...Step) Option {
	return func(m *Migrator) { m.steps = steps }
}

// WithTarget overrides the target version (defaults to appdata.CurrentSchemaVersion).
func WithTarget(version int) Option {
	return func(m *Migrator) { m.target = version }
}

// New creates a Migrator. A nil writer skips persistence, which is only
// useful for dry runs.
func New(writer state.LegacyWriter, opts ...Option) *Migrator {
	m := &Migrator{
		writer: writer,
		steps:  DefaultSteps(),
		target: appdata.CurrentSchemaVersion,
	}
	for _, opt := range opts {
		opt(m)
	}
	sort.SliceStable(m.steps, func(i, j int) bool { return m.steps[i].From < m.steps[j].From })
	return m
}

// MigrateIfNecessary upgrades s to the target version. A state already at the
// target is returned unchanged and nothing is written. The input is never
// modified; the returned state is a new value whenever a step ran.
func (m *Migrator) MigrateIfNecessary(ctx context.Context, s *appdata.LegacyState) (*appdata.LegacyState, error) {
	if s == nil {
		return nil, errors.MigrationError("no legacy state to migrate").Build()
	}
	if s.ModelVersion > m.target {
		return nil, errors.MigrationError("legacy state is newer than this build supports").
			WithContext("stored_version", s.ModelVersion).
			WithContext("current_version", m.target).
			UserAction().
			Build()
	}
	if s.ModelVersion == m.target {
		return s, nil
	}

	out := s.Clone()
	from := out.ModelVersion
	for out.ModelVersion < m.target {
		if err := ctx.Err(); err != nil {
			return nil, errors.WrapError(err, errors.CategoryMigration, "migration canceled").Build()
		}
		step, ok := m.next(out.ModelVersion)
		if !ok {
			return nil, errors.MigrationError("no migration step for schema version").
				WithContext("stored_version", out.ModelVersion).
				WithContext("current_version", m.target).
				Build()
		}
		if err := m.apply(step, out); err != nil {
			return nil, err
		}
		out.ModelVersion = step.To
	}

	if m.writer != nil {
		if err := m.writer.SaveLegacyState(ctx, out); err != nil {
			return nil, errors.WrapError(err, errors.CategoryMigration, "failed to persist migrated state").
				Fatal().
				WithContext("schema_version", out.ModelVersion).
				Build()
		}
	}

	slog.Info("Legacy state migrated",
		slog.Int("from_version", from),
		logfields.Version(out.ModelVersion),
		slog.Int("records", len(out.Entities)))
	return out, nil
}

func (m *Migrator) next(version int) (Step, bool) {
	for _, step := range m.steps {
		if step.From == version && step.To > version {
			return step, true
		}
	}
	return Step{}, false
}

func (m *Migrator) apply(step Step, s *appdata.LegacyState) error {
	for _, id := range slices.Sorted(maps.Keys(s.Entities)) {
		record := s.Entities[id]
		if record == nil {
			record = map[string]any{}
			s.Entities[id] = record
		}
		if err := step.Apply(id, record); err != nil {
			return errors.WrapError(err, errors.CategoryMigration, fmt.Sprintf("migration step %q failed", step.Name)).
				Fatal().
				WithContext("record_id", id).
				WithContext("stored_version", step.From).
				Build()
		}
	}
	return nil
}
