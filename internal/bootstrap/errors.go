package bootstrap

import (
	"git.home.luguber.info/inful/datainit/internal/foundation/errors"
)

var (
	// ErrMissingDependency indicates a required collaborator was not supplied.
	ErrMissingDependency = errors.InternalError("bootstrap dependency missing").Build()

	// ErrWaitAbandoned is returned by Readiness.Wait when the observer's own
	// context ends first. The shared load keeps running.
	ErrWaitAbandoned = errors.ReadinessError("stopped waiting for initial data load").Build()
)

// classify makes sure err carries a category, using fallback when it has none.
func classify(err error, fallback errors.ErrorCategory, message string) error {
	if err == nil || errors.IsClassified(err) {
		return err
	}
	return errors.WrapError(err, fallback, message).Build()
}
