// Package migration upgrades the legacy project state to the current schema
// version by applying an ordered chain of steps, and persists the result.
package migration
