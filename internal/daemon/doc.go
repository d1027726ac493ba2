// Package daemon keeps a bootstrapped dataset fresh: it reinitializes when the
// persisted dataset changes on disk or on a fixed interval, and serves health,
// readiness, metrics and journal endpoints over HTTP.
package daemon
