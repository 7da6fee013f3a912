package config

import "github.com/rickgao/ratehub/internal/connection"

// Feed builds the push connection settings for one service. Both services
// share the upstream endpoint and credential but each gets its own socket.
func (c *Config) Feed(name string) connection.FeedConfig {
	return connection.FeedConfig{
		Name: name,
		Client: connection.ClientConfig{
			URL:              c.Upstream.WSURL,
			APIKey:           c.Upstream.APIKey,
			HandshakeTimeout: c.Connection.HandshakeTimeout,
			PingInterval:     c.Connection.PingInterval,
			PingTimeout:      c.Connection.PingTimeout,
			WriteTimeout:     c.Connection.WriteTimeout,
			BufferSize:       c.Connection.BufferSize,
		},
		Backoff: connection.BackoffConfig{
			Base:   c.Connection.ReconnectBaseDelay,
			Factor: c.Connection.ReconnectFactor,
			Max:    c.Connection.ReconnectMaxDelay,
		},
	}
}
