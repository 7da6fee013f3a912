package config

import "time"

// Config is the root configuration for a ratehub instance.
type Config struct {
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
	Connection ConnectionConfig `yaml:"connection"`
	Store      StoreConfig      `yaml:"store"`
	Server     ServerConfig     `yaml:"server"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
}

// UpstreamConfig holds vendor API settings.
type UpstreamConfig struct {
	RestURL        string        `yaml:"rest_url"`
	WSURL          string        `yaml:"ws_url"`
	APIKey         string        `yaml:"api_key"` // sent as the apikey query parameter on REST and push
	Timeout        time.Duration `yaml:"timeout"`
	MaxAttempts    int           `yaml:"max_attempts"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
}

// SnapshotConfig holds RateSnapshotService settings.
type SnapshotConfig struct {
	TTL               time.Duration `yaml:"ttl"`
	LiveWindow        time.Duration `yaml:"live_window"`
	ReferenceCurrency string        `yaml:"reference_currency"`
	GoldSymbol        string        `yaml:"gold_symbol"`
	RefreshInterval   time.Duration `yaml:"refresh_interval"` // keep-warm poll; 0 disables
	Pairs             []PairConfig  `yaml:"pairs"`
}

// PairConfig is one row of the FX pair table.
type PairConfig struct {
	Base      string `yaml:"base"`
	Quote     string `yaml:"quote"`
	Optional  bool   `yaml:"optional"`
	Decimals  int    `yaml:"decimals"`
	Derivable bool   `yaml:"derivable"`
}

// ConnectionConfig holds push connection settings shared by both services.
type ConnectionConfig struct {
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectFactor    float64       `yaml:"reconnect_factor"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	HandshakeTimeout   time.Duration `yaml:"handshake_timeout"`
	PingInterval       time.Duration `yaml:"ping_interval"`
	PingTimeout        time.Duration `yaml:"ping_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	BufferSize         int           `yaml:"buffer_size"`
}

// StoreConfig selects where the latest snapshot is persisted for warm start.
type StoreConfig struct {
	Driver        string        `yaml:"driver"` // none, redis or postgres
	Redis         RedisConfig   `yaml:"redis"`
	Postgres      DBConfig      `yaml:"postgres"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// Store drivers.
const (
	StoreNone     = "none"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// RedisConfig holds a Redis connection.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// ServerConfig holds HTTP bridge settings.
type ServerConfig struct {
	Port              int           `yaml:"port"`
	KeepaliveInterval time.Duration `yaml:"keepalive_interval"`
	MaxStreamDuration time.Duration `yaml:"max_stream_duration"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Path string `yaml:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
