// Package config loads the cookie server settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backends understood by the server.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config holds every tunable of the server. Zero values are never used directly:
// Load fills envDefaults and Default mirrors them.
type Config struct {
	ListenAddr string `env:"COOKIE_LISTEN_ADDR" envDefault:":8080"`

	// Persistence
	Backend     string `env:"COOKIE_STORAGE_BACKEND" envDefault:"sqlite"`
	SQLitePath  string `env:"COOKIE_SQLITE_PATH" envDefault:"data/cookies.db"`
	PostgresDSN string `env:"COOKIE_POSTGRES_DSN"`
	RedisAddr   string `env:"COOKIE_REDIS_ADDR" envDefault:"localhost:6379"`
	SaveKey     string `env:"COOKIE_SAVE_KEY" envDefault:"cookieClickerSave_v1"`

	// Game loop
	TickInterval     time.Duration `env:"COOKIE_TICK_INTERVAL" envDefault:"1s"`
	AutosaveInterval time.Duration `env:"COOKIE_AUTOSAVE_INTERVAL" envDefault:"5s"`
	CatalogPath      string        `env:"COOKIE_CATALOG_PATH"`

	// Channel buffers and limits
	EventLogCapacity   int `env:"COOKIE_EVENT_LOG_CAPACITY" envDefault:"512"`
	ClientSendBuffer   int `env:"COOKIE_CLIENT_SEND_BUFFER" envDefault:"64"`
	MaxClicksPerSecond int `env:"COOKIE_MAX_CLICKS_PER_SECOND" envDefault:"30"`
	DBMaxOpenConns     int `env:"COOKIE_DB_MAX_OPEN_CONNS" envDefault:"4"`
}

// Default returns the configuration used when no environment is set.
func Default() Config {
	return Config{
		ListenAddr:         ":8080",
		Backend:            BackendSQLite,
		SQLitePath:         "data/cookies.db",
		RedisAddr:          "localhost:6379",
		SaveKey:            "cookieClickerSave_v1",
		TickInterval:       time.Second,
		AutosaveInterval:   5 * time.Second,
		EventLogCapacity:   512,
		ClientSendBuffer:   64,
		MaxClicksPerSecond: 30,
		DBMaxOpenConns:     4,
	}
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("config: sqlite backend needs COOKIE_SQLITE_PATH")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("config: postgres backend needs COOKIE_POSTGRES_DSN")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("config: redis backend needs COOKIE_REDIS_ADDR")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Backend)
	}

	if c.SaveKey == "" {
		return fmt.Errorf("config: save key must not be empty")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("config: tick interval must be positive, got %s", c.TickInterval)
	}
	if c.AutosaveInterval <= 0 {
		return fmt.Errorf("config: autosave interval must be positive, got %s", c.AutosaveInterval)
	}
	if c.MaxClicksPerSecond <= 0 {
		return fmt.Errorf("config: max clicks per second must be positive")
	}
	return nil
}
