// Package database builds the PostgreSQL connection pool used by the snapshot store.
package database
