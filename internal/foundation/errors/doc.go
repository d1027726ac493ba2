// Package errors provides the classified error primitives used across datainit.
//
// Infrastructure failures (unreadable storage, a throwing migration, a broken
// publisher) are returned as ClassifiedError values so callers can route them by
// category. Business-level outcomes such as invalid-but-unrepairable data are
// not errors at all and never pass through this package.
//
// Example usage:
//
//	err := errors.PersistenceError("load complete data").
//		WithContext("path", statePath).
//		WithCause(ioErr).
//		Build()
package errors
