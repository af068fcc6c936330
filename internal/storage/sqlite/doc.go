// Package sqlite provides a SQLite-backed credential store.
//
// The database is opened with a single-connection writer pool and a small
// reader pool (WAL mode). The schema is managed by golang-migrate with the
// migrations embedded in the binary, so opening a database always brings it
// up to date.
package sqlite
