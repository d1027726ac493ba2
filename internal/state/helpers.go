package state

import (
	"context"
	"encoding/json"
	"fmt"

	"git.home.luguber.info/inful/datainit/internal/appdata"
	"git.home.luguber.info/inful/datainit/internal/foundation/errors"
)

// decodeLegacy turns stored bytes into a legacy state. Empty input means the
// document was never written, which is a fresh install at the current schema.
func decodeLegacy(raw []byte, skipMigrationCheck bool) (*appdata.LegacyState, error) {
	if len(raw) == 0 {
		return appdata.NewLegacyState(), nil
	}

	var s appdata.LegacyState
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, wrap(ErrDecodeFailed, err, DocLegacy)
	}
	if s.IDs == nil {
		s.IDs = []string{}
	}
	if s.Entities == nil {
		s.Entities = map[string]map[string]any{}
	}

	if !skipMigrationCheck && s.ModelVersion < appdata.CurrentSchemaVersion {
		return nil, errors.NewError(ErrMigrationRequired.Category(), ErrMigrationRequired.Message()).
			WithSeverity(ErrMigrationRequired.Severity()).
			WithContext("stored_version", s.ModelVersion).
			WithContext("current_version", appdata.CurrentSchemaVersion).
			Build()
	}
	return &s, nil
}

// decodeComplete turns stored bytes into a complete dataset. Empty input yields
// an empty dataset so a fresh install bootstraps without error.
func decodeComplete(raw []byte) (*appdata.Complete, error) {
	data := appdata.NewComplete()
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, wrap(ErrDecodeFailed, err, DocComplete)
	}
	return data, nil
}

func encode(doc string, v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, wrap(ErrWriteFailed, fmt.Errorf("marshal: %w", err), doc)
	}
	return b, nil
}

func checkContext(ctx context.Context, doc string) error {
	if err := ctx.Err(); err != nil {
		return wrap(ErrReadFailed, err, doc)
	}
	return nil
}
