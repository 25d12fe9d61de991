// Package store provides the client's local view cache.
//
// The cache holds the subjects, engagements, and notifications the client
// currently believes in, backed by a per-instance SQLite database. Each
// Store owns its database with an explicit Open/Close lifecycle. There
// is no process-global state, so tests construct isolated instances and
// two coordinators never share rows by accident.
//
// The consistency layer mutates the cache optimistically and relies on
// Snapshot/Restore for exact rollback: a snapshot captures the affected
// view tables verbatim and restoring replays them byte-for-byte, never a
// merge of optimistic and prior state.
package store
