// Package appdata defines the persisted application dataset that bootstrap
// loads, validates, repairs and publishes.
//
// The dataset is a set of normalized entity collections (ids plus an entity
// map) in the shape the persistence gateway stores them. Bootstrap treats the
// aggregate as opaque except for two counts: current tasks and archived tasks.
package appdata
