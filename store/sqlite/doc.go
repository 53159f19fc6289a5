// Package sqlite provides the durable store backend: the same Store
// contract as the in-memory implementation, backed by a SQLite database.
//
// Each execution is stored wholesale as a JSON payload alongside indexed
// columns (status, start/end time, name) used for SQL-side prefiltering.
// Save is an upsert by id - the caller passes the complete current snapshot
// and the row is overwritten, matching the save-is-wholesale-overwrite
// contract of the store interface. Tag matching, locale-aware name
// ordering, and pagination run through the shared query engine in the
// parent store package, so both backends answer identical queries with
// identical results.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - single writer connection to avoid SQLITE_BUSY
//
// Subscriptions are in-process only: subscribers registered on this Store
// instance see its Saves, not writes from other processes sharing the file.
package sqlite
