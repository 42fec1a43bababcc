package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultRestURL      = "https://vortex.restapi.asthatrade.com"
	DefaultFeedEndpoint = "wss://wire.asthatrade.com/ws"

	DefaultReconnectMaxTries  = 50
	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultConnectTimeout     = 30 * time.Second
	DefaultPingInterval       = 2500 * time.Millisecond

	DefaultDBPort    = 5432
	DefaultDBSSLMode = "prefer"
	DefaultMaxConns  = 10
	DefaultMinConns  = 2

	DefaultBatchSize     = 500
	DefaultFlushInterval = 1 * time.Second
	DefaultBufferSize    = 10000
)

func (c *RecorderConfig) applyDefaults() {
	if c.Auth.RestURL == "" {
		c.Auth.RestURL = DefaultRestURL
	}

	if c.Feed.Endpoint == "" {
		c.Feed.Endpoint = DefaultFeedEndpoint
	}
	if c.Feed.ReconnectMaxTries == 0 {
		c.Feed.ReconnectMaxTries = DefaultReconnectMaxTries
	}
	if c.Feed.ReconnectMaxDelay == 0 {
		c.Feed.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Feed.ReconnectBaseDelay == 0 {
		c.Feed.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Feed.ConnectTimeout == 0 {
		c.Feed.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Feed.PingInterval == 0 {
		c.Feed.PingInterval = DefaultPingInterval
	}

	applyDBDefaults(&c.Database.Postgres)

	if c.Writer.BatchSize == 0 {
		c.Writer.BatchSize = DefaultBatchSize
	}
	if c.Writer.FlushInterval == 0 {
		c.Writer.FlushInterval = DefaultFlushInterval
	}
	if c.Writer.BufferSize == 0 {
		c.Writer.BufferSize = DefaultBufferSize
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
