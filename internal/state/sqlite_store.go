package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"git.home.luguber.info/inful/datainit/internal/appdata"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store with one row per document.
type SQLiteStore struct {
	db        *sql.DB
	path      string
	mu        sync.RWMutex
	lastSaved *time.Time
}

// NewSQLiteStore opens (or creates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, wrap(ErrOpenFailed, fmt.Errorf("open sqlite database: %w", err), dbPath)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, path: dbPath}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, wrap(ErrOpenFailed, fmt.Errorf("initialize schema: %w", err), dbPath)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		name TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Name implements Store.
func (s *SQLiteStore) Name() string { return "sqlite" }

// LoadLegacyState implements LegacyLoader.
func (s *SQLiteStore) LoadLegacyState(ctx context.Context, skipMigrationCheck bool) (*appdata.LegacyState, error) {
	raw, err := s.read(ctx, DocLegacy)
	if err != nil {
		return nil, err
	}
	return decodeLegacy(raw, skipMigrationCheck)
}

// SaveLegacyState implements LegacyWriter.
func (s *SQLiteStore) SaveLegacyState(ctx context.Context, st *appdata.LegacyState) error {
	return s.write(ctx, DocLegacy, st)
}

// LoadComplete implements CompleteLoader.
func (s *SQLiteStore) LoadComplete(ctx context.Context) (*appdata.Complete, error) {
	raw, err := s.read(ctx, DocComplete)
	if err != nil {
		return nil, err
	}
	return decodeComplete(raw)
}

// SaveComplete implements CompleteWriter.
func (s *SQLiteStore) SaveComplete(ctx context.Context, data *appdata.Complete) error {
	return s.write(ctx, DocComplete, data)
}

// Health pings the database.
func (s *SQLiteStore) Health(ctx context.Context) StoreHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()

	health := StoreHealth{Status: HealthStatusHealthy, CheckedAt: time.Now(), LastSaved: s.lastSaved}
	if err := s.db.PingContext(ctx); err != nil {
		health.Status = HealthStatusUnhealthy
		health.Message = fmt.Sprintf("database unreachable: %v", err)
		return health
	}
	var size int64
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(LENGTH(data)), 0) FROM documents").Scan(&size); err == nil {
		health.StorageSize = &size
	}
	return health
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func (s *SQLiteStore) read(ctx context.Context, doc string) ([]byte, error) {
	if err := checkContext(ctx, doc); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM documents WHERE name = ?", doc).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap(ErrReadFailed, err, doc)
	}
	return data, nil
}

func (s *SQLiteStore) write(ctx context.Context, doc string, v any) error {
	data, err := encode(doc, v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (name, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		doc, data, now.Unix(),
	)
	if err != nil {
		return wrap(ErrWriteFailed, err, doc)
	}
	s.lastSaved = &now
	return nil
}
