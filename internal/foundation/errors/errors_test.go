package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryPersistence, "load complete data").
			WithSeverity(SeverityFatal).
			WithContext("path", "/var/lib/datainit/complete.json").
			Build()

		assert.Equal(t, CategoryPersistence, err.Category())
		assert.Equal(t, SeverityFatal, err.Severity())
		assert.Equal(t, "load complete data", err.Message())

		path, ok := err.Context().GetString("path")
		require.True(t, ok)
		assert.Equal(t, "/var/lib/datainit/complete.json", path)
	})

	t.Run("Wrapped cause is reachable", func(t *testing.T) {
		cause := stderrors.New("disk gone")
		err := WrapError(cause, CategoryMigration, "migrate legacy state").Build()

		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "disk gone")
	})

	t.Run("Found through fmt wrapping", func(t *testing.T) {
		inner := BackupError("read backup").Build()
		outer := fmt.Errorf("backup check: %w", inner)

		classified, ok := AsClassified(outer)
		require.True(t, ok)
		assert.Equal(t, CategoryBackup, classified.Category())
		assert.True(t, HasCategory(outer, CategoryBackup))
		assert.Equal(t, SeverityWarning, classified.Severity())
	})

	t.Run("Sentinel matching", func(t *testing.T) {
		sentinel := PersistenceError("state file unreadable").Build()
		err := PersistenceError("state file unreadable").WithContext("path", "x").Build()

		assert.ErrorIs(t, err, sentinel)
		assert.NotErrorIs(t, err, PersistenceError("other").Build())
	})

	t.Run("Context is copied on WithContext", func(t *testing.T) {
		base := InternalError("boom").Build()
		derived := base.WithContext("stage", "publish")

		_, ok := base.Context().Get("stage")
		assert.False(t, ok)
		stage, _ := derived.Context().GetString("stage")
		assert.Equal(t, "publish", stage)
	})

	t.Run("Unclassified defaults", func(t *testing.T) {
		err := stderrors.New("plain")
		assert.False(t, IsClassified(err))
		assert.False(t, HasCategory(err, CategoryInternal))
	})
}

func TestConvenienceConstructors(t *testing.T) {
	assert.Equal(t, SeverityFatal, PersistenceError("x").Build().Severity())
	assert.True(t, PersistenceError("x").Build().CanRetry())
	assert.Equal(t, SeverityFatal, MigrationError("x").Build().Severity())
	assert.False(t, MigrationError("x").Build().CanRetry())
	assert.False(t, ConfigError("x").Build().CanRetry())
	assert.Equal(t, SeverityWarning, BackupError("x").Build().Severity())
	assert.True(t, PublishError("x").Build().CanRetry())
}

func TestCLIErrorAdapter(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, nil)

	cases := []struct {
		err  error
		code int
	}{
		{nil, 0},
		{stderrors.New("plain"), 1},
		{ValidationError("bad").Build(), 2},
		{ConfigError("bad").Build(), 7},
		{PublishError("nats down").Build(), 8},
		{PersistenceError("unreadable").Build(), 9},
		{MigrationError("throws").Build(), 9},
		{ReadinessError("timed out").Build(), 12},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, adapter.ExitCodeFor(tc.err), "error: %v", tc.err)
	}

	assert.Equal(t, "Error: bad", adapter.FormatError(ConfigError("bad").Build()))
	assert.Contains(t, adapter.FormatError(PersistenceError("unreadable").Build()), "use -v")

	verbose := NewCLIErrorAdapter(true, nil)
	assert.Contains(t, verbose.FormatError(PersistenceError("unreadable").Build()), "[persistence:fatal]")
}

func TestHTTPErrorAdapter(t *testing.T) {
	adapter := NewHTTPErrorAdapter(nil)

	assert.Equal(t, http.StatusOK, adapter.StatusCodeFor(nil))
	assert.Equal(t, http.StatusServiceUnavailable, adapter.StatusCodeFor(ReadinessError("pending").Build()))
	assert.Equal(t, http.StatusBadGateway, adapter.StatusCodeFor(PublishError("x").Build()))
	assert.Equal(t, http.StatusInternalServerError, adapter.StatusCodeFor(stderrors.New("x")))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	adapter.WriteErrorResponse(rec, req, MigrationError("schema too new").WithContext("version", 9).Build())

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"schema too new","code":"migration","details":{"version":9}}`, rec.Body.String())
}
