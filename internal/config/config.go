package config

import "time"

// ExchangeConfig is the root configuration for an exchange instance.
type ExchangeConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Database DatabaseConfig `yaml:"database"`
	Engine   EngineConfig   `yaml:"engine"`
	API      APIConfig      `yaml:"api"`
	Feed     FeedConfig     `yaml:"feed"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// InstanceConfig identifies this exchange instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// DatabaseConfig holds the PostgreSQL connection for exchange state.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
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

// EngineConfig holds matching engine settings.
type EngineConfig struct {
	// SubmitTimeout bounds a single submit-match-settle pass.
	SubmitTimeout time.Duration `yaml:"submit_timeout"`
	// LockStripes sizes the in-process per-(market, side) lock table.
	LockStripes int `yaml:"lock_stripes"`
}

// APIConfig holds the trading HTTP API settings.
type APIConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// FeedConfig holds live feed (WebSocket push) settings.
type FeedConfig struct {
	Port            int           `yaml:"port"`
	Path            string        `yaml:"path"`
	SubscriberQueue int           `yaml:"subscriber_queue"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	PingInterval    time.Duration `yaml:"ping_interval"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	File       string `yaml:"file"`        // Log file path; empty = stdout only
	MaxSizeMB  int    `yaml:"max_size_mb"` // Rotate after this many megabytes
	MaxBackups int    `yaml:"max_backups"` // Rotated files to keep
	MaxAgeDays int    `yaml:"max_age_days"`
}
