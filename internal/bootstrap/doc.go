// Package bootstrap sequences the one-time initial load of the application
// dataset and the explicit reloads that follow it.
//
// An Orchestrator owns a Readiness cell. The first observer to Wait on it
// starts the pipeline: load the legacy project state, migrate it, run one
// Reinitialize, then wait for the active work context to be ready. The cell
// resolves once, every observer sees the same result, and the all-data-loaded
// notification fires once after a successful resolution.
//
// Reinitialize can be called any number of times, concurrently, and never
// touches the Readiness cell. Each call loads the complete dataset, validates
// it, repairs it when the operator agrees, and publishes at most once. A valid
// but empty dataset triggers a detached backup check that may offer a local
// backup to the operator.
//
// Every collaborator is consumed through the small interfaces in deps.go.
package bootstrap
