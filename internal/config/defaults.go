package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 10
	DefaultMinConns        = 2
	DefaultSubmitTimeout   = 10 * time.Second
	DefaultLockStripes     = 64
	DefaultAPIPort         = 8081
	DefaultAPIReadTimeout  = 10 * time.Second
	DefaultAPIWriteTimeout = 10 * time.Second
	DefaultFeedPort        = 8080
	DefaultFeedPath        = "/feed"
	DefaultSubscriberQueue = 256
	DefaultWriteTimeout    = 10 * time.Second
	DefaultPingInterval    = 15 * time.Second
	DefaultLogLevel        = "info"
	DefaultLogMaxSizeMB    = 10
	DefaultLogMaxBackups   = 3
	DefaultLogMaxAgeDays   = 28
)

func (c *ExchangeConfig) applyDefaults() {
	applyDBDefaults(&c.Database.Postgres)

	// Engine defaults
	if c.Engine.SubmitTimeout == 0 {
		c.Engine.SubmitTimeout = DefaultSubmitTimeout
	}
	if c.Engine.LockStripes == 0 {
		c.Engine.LockStripes = DefaultLockStripes
	}

	// API defaults
	if c.API.Port == 0 {
		c.API.Port = DefaultAPIPort
	}
	if c.API.ReadTimeout == 0 {
		c.API.ReadTimeout = DefaultAPIReadTimeout
	}
	if c.API.WriteTimeout == 0 {
		c.API.WriteTimeout = DefaultAPIWriteTimeout
	}

	// Feed defaults
	if c.Feed.Port == 0 {
		c.Feed.Port = DefaultFeedPort
	}
	if c.Feed.Path == "" {
		c.Feed.Path = DefaultFeedPath
	}
	if c.Feed.SubscriberQueue == 0 {
		c.Feed.SubscriberQueue = DefaultSubscriberQueue
	}
	if c.Feed.WriteTimeout == 0 {
		c.Feed.WriteTimeout = DefaultWriteTimeout
	}
	if c.Feed.PingInterval == 0 {
		c.Feed.PingInterval = DefaultPingInterval
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = DefaultLogMaxBackups
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = DefaultLogMaxAgeDays
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
