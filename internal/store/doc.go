// Package store persists the latest rate snapshot for warm start.
//
// Only one snapshot is kept: the Redis backend writes a single key and the
// Postgres backend upserts a single row. Writer sits between the rate service
// and a backend, coalescing updates and flushing the newest one on a ticker.
package store
