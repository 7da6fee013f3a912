package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
// An empty upstream.api_key is allowed.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Upstream.RestURL, "http://") && !strings.HasPrefix(c.Upstream.RestURL, "https://") {
		return fmt.Errorf("upstream.rest_url must be an http(s) URL, got %q", c.Upstream.RestURL)
	}
	if !strings.HasPrefix(c.Upstream.WSURL, "ws://") && !strings.HasPrefix(c.Upstream.WSURL, "wss://") {
		return fmt.Errorf("upstream.ws_url must be a ws(s) URL, got %q", c.Upstream.WSURL)
	}
	if c.Upstream.MaxAttempts < 1 {
		return errors.New("upstream.max_attempts must be >= 1")
	}

	if c.Snapshot.TTL <= 0 {
		return errors.New("snapshot.ttl must be positive")
	}
	if c.Snapshot.RefreshInterval < 0 {
		return errors.New("snapshot.refresh_interval must be >= 0")
	}
	if err := validatePairs(c.Snapshot.Pairs); err != nil {
		return err
	}

	if c.Connection.ReconnectFactor < 1 {
		return errors.New("connection.reconnect_factor must be >= 1")
	}
	if c.Connection.ReconnectMaxDelay < c.Connection.ReconnectBaseDelay {
		return errors.New("connection.reconnect_max_delay cannot be below reconnect_base_delay")
	}
	if c.Connection.BufferSize < 1 {
		return errors.New("connection.buffer_size must be >= 1")
	}

	switch c.Store.Driver {
	case StoreNone, StoreRedis:
	case StorePostgres:
		if err := c.Store.Postgres.validate("store.postgres"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("store.driver must be one of none, redis, postgres, got %q", c.Store.Driver)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func validatePairs(pairs []PairConfig) error {
	seen := make(map[string]bool, len(pairs))
	for i, p := range pairs {
		if p.Base == "" || p.Quote == "" {
			return fmt.Errorf("snapshot.pairs[%d]: base and quote are required", i)
		}
		if p.Base == p.Quote {
			return fmt.Errorf("snapshot.pairs[%d]: base and quote must differ", i)
		}
		if p.Decimals < 0 || p.Decimals > 10 {
			return fmt.Errorf("snapshot.pairs[%d]: decimals must be between 0 and 10", i)
		}
		key := p.Base + "_" + p.Quote
		if seen[key] {
			return fmt.Errorf("snapshot.pairs: duplicate pair %s", key)
		}
		seen[key] = true
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
