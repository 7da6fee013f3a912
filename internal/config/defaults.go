package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultRestURL            = "https://api.twelvedata.com"
	DefaultWSURL              = "wss://ws.twelvedata.com/v1/quotes/price"
	DefaultAPITimeout         = 10 * time.Second
	DefaultMaxAttempts        = 3
	DefaultRetryBaseDelay     = 500 * time.Millisecond
	DefaultTTL                = 45 * time.Second
	DefaultLiveWindow         = 30 * time.Second
	DefaultReferenceCurrency  = "USD"
	DefaultGoldSymbol         = "XAU/USD"
	DefaultReconnectBaseDelay = 750 * time.Millisecond
	DefaultReconnectFactor    = 1.5
	DefaultReconnectMaxDelay  = 25 * time.Second
	DefaultHandshakeTimeout   = 10 * time.Second
	DefaultPingInterval       = 15 * time.Second
	DefaultPingTimeout        = 45 * time.Second
	DefaultWriteTimeout       = 5 * time.Second
	DefaultBufferSize         = 1000
	DefaultRedisAddr          = "localhost:6379"
	DefaultRedisKey           = "ratehub:snapshot"
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 4
	DefaultMinConns           = 1
	DefaultFlushInterval      = 5 * time.Second
	DefaultServerPort         = 8080
	DefaultKeepaliveInterval  = 15 * time.Second
	DefaultMaxStreamDuration  = 5 * time.Minute
	DefaultMetricsPath        = "/metrics"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
)

// DefaultPairs is the pair table used when snapshot.pairs is empty.
func DefaultPairs() []PairConfig {
	return []PairConfig{
		{Base: "USD", Quote: "TRY", Decimals: 4},
		{Base: "EUR", Quote: "TRY", Decimals: 4},
		{Base: "GBP", Quote: "TRY", Optional: true, Decimals: 4, Derivable: true},
		{Base: "EUR", Quote: "USD", Optional: true, Decimals: 5, Derivable: true},
		{Base: "GBP", Quote: "USD", Optional: true, Decimals: 5},
		{Base: "EUR", Quote: "GBP", Optional: true, Decimals: 5, Derivable: true},
	}
}

func (c *Config) applyDefaults() {
	// Upstream defaults
	if c.Upstream.RestURL == "" {
		c.Upstream.RestURL = DefaultRestURL
	}
	if c.Upstream.WSURL == "" {
		c.Upstream.WSURL = DefaultWSURL
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = DefaultAPITimeout
	}
	if c.Upstream.MaxAttempts == 0 {
		c.Upstream.MaxAttempts = DefaultMaxAttempts
	}
	if c.Upstream.RetryBaseDelay == 0 {
		c.Upstream.RetryBaseDelay = DefaultRetryBaseDelay
	}

	// Snapshot defaults
	if c.Snapshot.TTL == 0 {
		c.Snapshot.TTL = DefaultTTL
	}
	if c.Snapshot.LiveWindow == 0 {
		c.Snapshot.LiveWindow = DefaultLiveWindow
	}
	if c.Snapshot.ReferenceCurrency == "" {
		c.Snapshot.ReferenceCurrency = DefaultReferenceCurrency
	}
	if c.Snapshot.GoldSymbol == "" {
		c.Snapshot.GoldSymbol = DefaultGoldSymbol
	}
	if len(c.Snapshot.Pairs) == 0 {
		c.Snapshot.Pairs = DefaultPairs()
	}

	// Connection defaults
	if c.Connection.ReconnectBaseDelay == 0 {
		c.Connection.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Connection.ReconnectFactor == 0 {
		c.Connection.ReconnectFactor = DefaultReconnectFactor
	}
	if c.Connection.ReconnectMaxDelay == 0 {
		c.Connection.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Connection.HandshakeTimeout == 0 {
		c.Connection.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Connection.PingInterval == 0 {
		c.Connection.PingInterval = DefaultPingInterval
	}
	if c.Connection.PingTimeout == 0 {
		c.Connection.PingTimeout = DefaultPingTimeout
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.BufferSize == 0 {
		c.Connection.BufferSize = DefaultBufferSize
	}

	// Store defaults
	if c.Store.Driver == "" {
		c.Store.Driver = StoreNone
	}
	if c.Store.Redis.Addr == "" {
		c.Store.Redis.Addr = DefaultRedisAddr
	}
	if c.Store.Redis.Key == "" {
		c.Store.Redis.Key = DefaultRedisKey
	}
	applyDBDefaults(&c.Store.Postgres)
	if c.Store.FlushInterval == 0 {
		c.Store.FlushInterval = DefaultFlushInterval
	}

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.KeepaliveInterval == 0 {
		c.Server.KeepaliveInterval = DefaultKeepaliveInterval
	}
	if c.Server.MaxStreamDuration == 0 {
		c.Server.MaxStreamDuration = DefaultMaxStreamDuration
	}

	// Metrics and log defaults
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
