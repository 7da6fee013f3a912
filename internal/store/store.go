package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rickgao/ratehub/internal/model"
)

// ErrNotFound is returned by Load when nothing has been stored yet.
var ErrNotFound = errors.New("store: no snapshot stored")

// Store loads and saves the latest snapshot.
type Store interface {
	Load(ctx context.Context) (*model.Snapshot, error)
	Save(ctx context.Context, snap *model.Snapshot) error
	Close() error
}

func encode(snap *model.Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*model.Snapshot, error) {
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.FetchedAt.IsZero() {
		return nil, fmt.Errorf("decode snapshot: missing fetchedAt")
	}
	return &snap, nil
}
