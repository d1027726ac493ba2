package state

import "git.home.luguber.info/inful/datainit/internal/foundation/errors"

var (
	// ErrMigrationRequired indicates the legacy document is older than the
	// current schema and was loaded without skipping the migration check.
	ErrMigrationRequired = errors.MigrationError("legacy state requires migration").Build()

	// ErrReadFailed indicates a document could not be read from storage.
	ErrReadFailed = errors.PersistenceError("could not read state document").Build()

	// ErrDecodeFailed indicates a stored document is not valid JSON for its type.
	ErrDecodeFailed = errors.PersistenceError("could not decode state document").Build()

	// ErrWriteFailed indicates a document could not be written.
	ErrWriteFailed = errors.PersistenceError("could not write state document").Build()

	// ErrOpenFailed indicates the storage backend could not be opened.
	ErrOpenFailed = errors.PersistenceError("could not open state store").Build()
)

func wrap(sentinel *errors.ClassifiedError, cause error, doc string) error {
	return errors.WrapError(cause, sentinel.Category(), sentinel.Message()).
		WithSeverity(sentinel.Severity()).
		WithRetry(sentinel.RetryStrategy()).
		WithContext("document", doc).
		Build()
}
