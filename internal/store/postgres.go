package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/ratehub/internal/model"
)

// schema holds at most one row; id is pinned to 1.
const schema = `
CREATE TABLE IF NOT EXISTS rate_snapshot (
	id         SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	snapshot   JSONB       NOT NULL,
	source     TEXT        NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres stores the snapshot in the single-row rate_snapshot table.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres creates the table if needed. The pool is owned by the store from
// here on and closed by Close.
func NewPostgres(ctx context.Context, db *pgxpool.Pool) (*Postgres, error) {
	if _, err := db.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("create rate_snapshot table: %w", err)
	}
	return &Postgres{db: db}, nil
}

// Load returns the stored snapshot or ErrNotFound.
func (p *Postgres) Load(ctx context.Context) (*model.Snapshot, error) {
	var data []byte
	err := p.db.QueryRow(ctx, `SELECT snapshot FROM rate_snapshot WHERE id = 1`).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	return decode(data)
}

// Save upserts the snapshot row.
func (p *Postgres) Save(ctx context.Context, snap *model.Snapshot) error {
	data, err := encode(snap)
	if err != nil {
		return err
	}

	_, err = p.db.Exec(ctx, `
		INSERT INTO rate_snapshot (id, snapshot, source, fetched_at, updated_at)
		VALUES (1, $1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE
		SET snapshot = EXCLUDED.snapshot,
		    source = EXCLUDED.source,
		    fetched_at = EXCLUDED.fetched_at,
		    updated_at = EXCLUDED.updated_at
	`, data, string(snap.Source), snap.FetchedAt)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}
