// Package state is the persistence gateway for the application dataset.
//
// A Store loads two documents: the versioned legacy project state (input to
// schema migration) and the complete dataset (input to validation and
// publication). Two drivers implement Store: JSONStore keeps one JSON file per
// document in a data directory, SQLiteStore keeps one row per document.
//
// Every Load call reads storage again and returns a fresh value; callers own
// what they get back.
package state
