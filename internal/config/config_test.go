package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-exchange
database:
  postgres:
    host: localhost
    port: 5432
    name: exchange_test
    user: testuser
    password: testpass
feed:
  port: 9000
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-exchange" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-exchange")
	}
	if cfg.Database.Postgres.Host != "localhost" {
		t.Errorf("Database.Postgres.Host = %q, want %q", cfg.Database.Postgres.Host, "localhost")
	}
	if cfg.Feed.Port != 9000 {
		t.Errorf("Feed.Port = %d, want 9000", cfg.Feed.Port)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
instance:
  id: test-exchange
database:
  postgres:
    host: localhost
    name: exchange_test
    user: testuser
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Postgres.Password != "secret123" {
		t.Errorf("Database.Postgres.Password = %q, want %q", cfg.Database.Postgres.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-exchange
database:
  postgres:
    host: localhost
    name: exchange_test
    user: testuser
    password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Database.Postgres.Port != DefaultDBPort {
		t.Errorf("Database.Postgres.Port = %d, want default %d", cfg.Database.Postgres.Port, DefaultDBPort)
	}
	if cfg.Database.Postgres.MaxConns != DefaultMaxConns {
		t.Errorf("Database.Postgres.MaxConns = %d, want default %d", cfg.Database.Postgres.MaxConns, DefaultMaxConns)
	}
	if cfg.Engine.SubmitTimeout != DefaultSubmitTimeout {
		t.Errorf("Engine.SubmitTimeout = %v, want default %v", cfg.Engine.SubmitTimeout, DefaultSubmitTimeout)
	}
	if cfg.Feed.Port != DefaultFeedPort {
		t.Errorf("Feed.Port = %d, want default %d", cfg.Feed.Port, DefaultFeedPort)
	}
	if cfg.Logging.Level != DefaultLogLevel {
		t.Errorf("Logging.Level = %q, want default %q", cfg.Logging.Level, DefaultLogLevel)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *ExchangeConfig {
		cfg := &ExchangeConfig{}
		cfg.Instance.ID = "test-exchange"
		cfg.Database.Postgres = DBConfig{
			Host:     "localhost",
			Port:     5432,
			Name:     "exchange_test",
			User:     "testuser",
			Password: "testpass",
			MaxConns: 10,
			MinConns: 2,
		}
		cfg.applyDefaults()
		return cfg
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config failed validation: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*ExchangeConfig)
	}{
		{"missing instance id", func(c *ExchangeConfig) { c.Instance.ID = "" }},
		{"missing db host", func(c *ExchangeConfig) { c.Database.Postgres.Host = "" }},
		{"missing db password", func(c *ExchangeConfig) { c.Database.Postgres.Password = "" }},
		{"min conns above max", func(c *ExchangeConfig) { c.Database.Postgres.MinConns = 20 }},
		{"zero submit timeout", func(c *ExchangeConfig) { c.Engine.SubmitTimeout = 0 }},
		{"bad feed port", func(c *ExchangeConfig) { c.Feed.Port = 70000 }},
		{"bad api port", func(c *ExchangeConfig) { c.API.Port = -1 }},
		{"api and feed port collide", func(c *ExchangeConfig) { c.API.Port = c.Feed.Port }},
		{"bad log level", func(c *ExchangeConfig) { c.Logging.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}
