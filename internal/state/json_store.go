package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"git.home.luguber.info/inful/datainit/internal/appdata"
)

// JSONStore implements Store with one JSON file per document in a data directory.
type JSONStore struct {
	dataDir   string
	mu        sync.RWMutex
	lastSaved *time.Time
}

// NewJSONStore creates the data directory if needed and returns a store over it.
func NewJSONStore(dataDir string) (*JSONStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, wrap(ErrOpenFailed, err, dataDir)
	}
	return &JSONStore{dataDir: dataDir}, nil
}

// Name implements Store.
func (js *JSONStore) Name() string { return "json" }

// Path returns the file backing a document.
func (js *JSONStore) Path(doc string) string {
	return filepath.Join(js.dataDir, doc+".json")
}

// LoadLegacyState implements LegacyLoader.
func (js *JSONStore) LoadLegacyState(ctx context.Context, skipMigrationCheck bool) (*appdata.LegacyState, error) {
	raw, err := js.read(ctx, DocLegacy)
	if err != nil {
		return nil, err
	}
	return decodeLegacy(raw, skipMigrationCheck)
}

// SaveLegacyState implements LegacyWriter.
func (js *JSONStore) SaveLegacyState(ctx context.Context, s *appdata.LegacyState) error {
	return js.write(ctx, DocLegacy, s)
}

// LoadComplete implements CompleteLoader.
func (js *JSONStore) LoadComplete(ctx context.Context) (*appdata.Complete, error) {
	raw, err := js.read(ctx, DocComplete)
	if err != nil {
		return nil, err
	}
	return decodeComplete(raw)
}

// SaveComplete implements CompleteWriter.
func (js *JSONStore) SaveComplete(ctx context.Context, data *appdata.Complete) error {
	return js.write(ctx, DocComplete, data)
}

// Health returns the health status of the store.
func (js *JSONStore) Health(_ context.Context) StoreHealth {
	js.mu.RLock()
	defer js.mu.RUnlock()

	health := StoreHealth{Status: HealthStatusHealthy, CheckedAt: time.Now()}
	if _, err := os.Stat(js.dataDir); err != nil {
		health.Status = HealthStatusUnhealthy
		health.Message = fmt.Sprintf("cannot access data directory: %v", err)
		return health
	}
	if size, err := js.calculateStorageSize(); err == nil {
		health.StorageSize = &size
	}
	health.LastSaved = js.lastSaved
	return health
}

// Close implements Store. Every write is already durable, so there is nothing to flush.
func (js *JSONStore) Close() error { return nil }

// read returns nil bytes when the document was never written.
func (js *JSONStore) read(ctx context.Context, doc string) ([]byte, error) {
	if err := checkContext(ctx, doc); err != nil {
		return nil, err
	}

	js.mu.RLock()
	defer js.mu.RUnlock()

	data, err := os.ReadFile(js.Path(doc))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, wrap(ErrReadFailed, err, doc)
	}
	return data, nil
}

func (js *JSONStore) write(ctx context.Context, doc string, v any) error {
	if err := checkContext(ctx, doc); err != nil {
		return err
	}
	data, err := encode(doc, v)
	if err != nil {
		return err
	}

	js.mu.Lock()
	defer js.mu.Unlock()

	path := js.Path(doc)
	tempPath := path + ".tmp"

	// Atomic write using temporary file
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return wrap(ErrWriteFailed, fmt.Errorf("write temporary file: %w", err), doc)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return wrap(ErrWriteFailed, fmt.Errorf("replace file: %w", err), doc)
	}

	now := time.Now()
	js.lastSaved = &now
	return nil
}

func (js *JSONStore) calculateStorageSize() (int64, error) {
	var totalSize int64
	err := filepath.Walk(js.dataDir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	return totalSize, err
}
