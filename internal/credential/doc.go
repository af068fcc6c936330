// Package credential owns the persisted account credential: the account name,
// the auth token and the provider-issued session id.
//
// Persistence goes through the Store interface, a key-value namespace whose
// edits commit atomically. FileStore keeps one JSON document per namespace,
// MemoryStore is used by tests and ephemeral servers, and the sqlite package
// provides a database-backed implementation. Values can be encrypted at rest
// by wrapping any Store with NewEncryptedStore.
//
// Manager is the single owner of the in-memory credential. Every transition
// is committed to the store before memory changes, under one mutex, so a
// failed write never leaves the two out of step.
package credential
