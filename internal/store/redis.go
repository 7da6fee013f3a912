package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rickgao/ratehub/internal/config"
	"github.com/rickgao/ratehub/internal/model"
)

// Redis stores the snapshot as JSON under a single key.
type Redis struct {
	client redis.UniversalClient
	key    string
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return NewRedisWithClient(client, cfg.Key), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client redis.UniversalClient, key string) *Redis {
	return &Redis{client: client, key: key}
}

// Load returns the stored snapshot or ErrNotFound.
func (r *Redis) Load(ctx context.Context) (*model.Snapshot, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot from redis: %w", err)
	}
	return decode(data)
}

// Save overwrites the stored snapshot.
func (r *Redis) Save(ctx context.Context, snap *model.Snapshot) error {
	data, err := encode(snap)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set snapshot in redis: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
