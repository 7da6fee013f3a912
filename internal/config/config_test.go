package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
upstream:
  rest_url: https://rates.internal.example/v1
  ws_url: wss://rates.internal.example/v1/quotes
  api_key: abc123
  timeout: 3s
snapshot:
  ttl: 1m
  pairs:
    - base: USD
      quote: TRY
      decimals: 4
    - base: EUR
      quote: GBP
      optional: true
      derivable: true
      decimals: 5
store:
  driver: redis
  redis:
    addr: cache:6379
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Upstream.RestURL != "https://rates.internal.example/v1" {
		t.Errorf("Upstream.RestURL = %q", cfg.Upstream.RestURL)
	}
	if cfg.Upstream.Timeout != 3*time.Second {
		t.Errorf("Upstream.Timeout = %v, want 3s", cfg.Upstream.Timeout)
	}
	if cfg.Snapshot.TTL != time.Minute {
		t.Errorf("Snapshot.TTL = %v, want 1m", cfg.Snapshot.TTL)
	}
	if len(cfg.Snapshot.Pairs) != 2 {
		t.Fatalf("len(Snapshot.Pairs) = %d, want 2", len(cfg.Snapshot.Pairs))
	}
	want := PairConfig{Base: "EUR", Quote: "GBP", Optional: true, Derivable: true, Decimals: 5}
	if cfg.Snapshot.Pairs[1] != want {
		t.Errorf("Snapshot.Pairs[1] = %+v, want %+v", cfg.Snapshot.Pairs[1], want)
	}
	if cfg.Store.Driver != StoreRedis || cfg.Store.Redis.Addr != "cache:6379" {
		t.Errorf("Store = %+v", cfg.Store)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_RATES_API_KEY", "secret123")

	path := writeTempFile(t, `
upstream:
  api_key: ${TEST_RATES_API_KEY}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Upstream.APIKey != "secret123" {
		t.Errorf("Upstream.APIKey = %q, want %q", cfg.Upstream.APIKey, "secret123")
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("TEST_RATEHUB_ENV_KEY=from-dotenv\n"), 0644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("TEST_RATEHUB_ENV_KEY", "")
	os.Unsetenv("TEST_RATEHUB_ENV_KEY")

	if err := LoadEnvFile(envPath); err != nil {
		t.Fatalf("LoadEnvFile failed: %v", err)
	}
	if got := os.Getenv("TEST_RATEHUB_ENV_KEY"); got != "from-dotenv" {
		t.Errorf("TEST_RATEHUB_ENV_KEY = %q, want %q", got, "from-dotenv")
	}

	if err := LoadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("LoadEnvFile(missing) = %v, want nil", err)
	}
}

func TestLoadEnvFile_DoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("TEST_RATEHUB_SET_KEY=from-dotenv\n"), 0644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("TEST_RATEHUB_SET_KEY", "from-env")

	if err := LoadEnvFile(envPath); err != nil {
		t.Fatalf("LoadEnvFile failed: %v", err)
	}
	if got := os.Getenv("TEST_RATEHUB_SET_KEY"); got != "from-env" {
		t.Errorf("TEST_RATEHUB_SET_KEY = %q, want %q", got, "from-env")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeTempFile(t, "log:\n  level: debug\n")

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Upstream.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("Upstream.MaxAttempts = %d, want default %d", cfg.Upstream.MaxAttempts, DefaultMaxAttempts)
	}
	if cfg.Snapshot.TTL != DefaultTTL {
		t.Errorf("Snapshot.TTL = %v, want default %v", cfg.Snapshot.TTL, DefaultTTL)
	}
	if cfg.Connection.ReconnectBaseDelay != 750*time.Millisecond {
		t.Errorf("Connection.ReconnectBaseDelay = %v, want 750ms", cfg.Connection.ReconnectBaseDelay)
	}
	if cfg.Connection.ReconnectMaxDelay != 25*time.Second {
		t.Errorf("Connection.ReconnectMaxDelay = %v, want 25s", cfg.Connection.ReconnectMaxDelay)
	}
	if len(cfg.Snapshot.Pairs) != len(DefaultPairs()) {
		t.Errorf("len(Snapshot.Pairs) = %d, want %d", len(cfg.Snapshot.Pairs), len(DefaultPairs()))
	}
	if cfg.Store.Driver != StoreNone {
		t.Errorf("Store.Driver = %q, want %q", cfg.Store.Driver, StoreNone)
	}
	if cfg.Snapshot.RefreshInterval != 0 {
		t.Errorf("Snapshot.RefreshInterval = %v, want 0 (disabled)", cfg.Snapshot.RefreshInterval)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoadAndValidate_MissingAPIKeyIsValid(t *testing.T) {
	path := writeTempFile(t, "server:\n  port: 9000\n")

	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}
	if cfg.Upstream.APIKey != "" {
		t.Errorf("Upstream.APIKey = %q, want empty", cfg.Upstream.APIKey)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil || !strings.Contains(err.Error(), "read config file") {
		t.Errorf("Load(missing) error = %v", err)
	}

	path := writeTempFile(t, "upstream: [not, a, map")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parse config yaml") {
		t.Errorf("Load(bad yaml) error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "defaults are valid",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name:    "bad rest url",
			mutate:  func(c *Config) { c.Upstream.RestURL = "ftp://x" },
			wantErr: `upstream.rest_url must be an http(s) URL, got "ftp://x"`,
		},
		{
			name:    "bad ws url",
			mutate:  func(c *Config) { c.Upstream.WSURL = "https://x" },
			wantErr: `upstream.ws_url must be a ws(s) URL, got "https://x"`,
		},
		{
			name:    "duplicate pair",
			mutate:  func(c *Config) { c.Snapshot.Pairs = append(c.Snapshot.Pairs, PairConfig{Base: "USD", Quote: "TRY"}) },
			wantErr: "snapshot.pairs: duplicate pair USD_TRY",
		},
		{
			name:    "pair without quote",
			mutate:  func(c *Config) { c.Snapshot.Pairs = []PairConfig{{Base: "USD"}} },
			wantErr: "snapshot.pairs[0]: base and quote are required",
		},
		{
			name:    "reconnect factor below one",
			mutate:  func(c *Config) { c.Connection.ReconnectFactor = 0.5 },
			wantErr: "connection.reconnect_factor must be >= 1",
		},
		{
			name:    "unknown store driver",
			mutate:  func(c *Config) { c.Store.Driver = "mongo" },
			wantErr: `store.driver must be one of none, redis, postgres, got "mongo"`,
		},
		{
			name:    "postgres without host",
			mutate:  func(c *Config) { c.Store.Driver = StorePostgres },
			wantErr: "store.postgres.host is required",
		},
		{
			name: "postgres min_conns exceeds max_conns",
			mutate: func(c *Config) {
				c.Store.Driver = StorePostgres
				c.Store.Postgres = DBConfig{Host: "localhost", Name: "db", User: "user", MaxConns: 2, MinConns: 5}
			},
			wantErr: "store.postgres.min_conns (5) cannot exceed max_conns (2)",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port must be between 1 and 65535, got 70000",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: `log.format must be text or json, got "xml"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestFeed(t *testing.T) {
	cfg := Default()
	cfg.Upstream.APIKey = "k"

	feed := cfg.Feed("stream")

	if feed.Name != "stream" {
		t.Errorf("Name = %q, want stream", feed.Name)
	}
	if feed.Client.URL != DefaultWSURL || feed.Client.APIKey != "k" {
		t.Errorf("Client = %+v", feed.Client)
	}
	if feed.Backoff.Base != DefaultReconnectBaseDelay ||
		feed.Backoff.Factor != DefaultReconnectFactor ||
		feed.Backoff.Max != DefaultReconnectMaxDelay {
		t.Errorf("Backoff = %+v", feed.Backoff)
	}
	if feed.Client.PingInterval != DefaultPingInterval {
		t.Errorf("PingInterval = %v, want %v", feed.Client.PingInterval, DefaultPingInterval)
	}
}
