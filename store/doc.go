// Package store persists conversation state behind a single storage port.
// Backends:
//
//   - Memory: for tests and local development (default)
//   - Redis: fast ephemeral session storage with TTL
//   - Gorm (Postgres/MySQL/SQLite): durable relational storage
//   - Mongo: durable document storage, one document per session
//
// Every backend guarantees that Append is atomic per call and idempotent by
// turn number: re-appending turns whose numbers are already persisted is a
// no-op, which makes retrying a failed advance call safe.
package store
