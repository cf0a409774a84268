// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/MJE43/galactic-survival/internal/store"
)

// Store backends.
const (
	BackendSQLite    = "sqlite"
	BackendPostgres  = "postgres"
	BackendWarehouse = "warehouse"
)

// Config is the process configuration. CLI flags override these values.
type Config struct {
	Addr    string `env:"GALACTIC_ADDR" envDefault:":8080"`
	Backend string `env:"GALACTIC_STORE" envDefault:"sqlite"`

	SQLitePath  string `env:"GALACTIC_SQLITE_PATH" envDefault:"galactic.db"`
	PostgresDSN string `env:"GALACTIC_POSTGRES_DSN"`

	Catalog          string `env:"GALACTIC_CATALOG" envDefault:"drew_triplett"`
	Schema           string `env:"GALACTIC_SCHEMA" envDefault:"space_explorer"`
	GameTable        string `env:"GALACTIC_GAME_TABLE" envDefault:"galactic_survival_game"`
	LeaderboardTable string `env:"GALACTIC_LEADERBOARD_TABLE" envDefault:"galactic_survival_leaderboard"`

	WarehouseHost    string        `env:"DATABRICKS_HOST"`
	WarehouseID      string        `env:"DATABRICKS_WAREHOUSE_ID"`
	WarehouseToken   string        `env:"DATABRICKS_TOKEN"`
	WarehouseTimeout time.Duration `env:"GALACTIC_WAREHOUSE_TIMEOUT" envDefault:"30s"`

	ServerSeed      string  `env:"GALACTIC_SERVER_SEED"`
	LeaderboardSize int     `env:"GALACTIC_LEADERBOARD_SIZE" envDefault:"5"`
	EventChance     float64 `env:"GALACTIC_EVENT_CHANCE" envDefault:"0.10"`

	Journal     bool   `env:"GALACTIC_JOURNAL" envDefault:"true"`
	JournalPath string `env:"GALACTIC_JOURNAL_PATH" envDefault:"galactic-journal.db"`

	RateLimit float64 `env:"GALACTIC_RATE_LIMIT" envDefault:"10"`
	RateBurst int     `env:"GALACTIC_RATE_BURST" envDefault:"20"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// Desktop only: loopback API for bots. Port 0 disables it.
	LocalAPIPort  int    `env:"GALACTIC_LOCAL_API_PORT" envDefault:"17890"`
	LocalAPIToken string `env:"GALACTIC_LOCAL_API_TOKEN"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates the environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Tables returns the configured table names.
func (c Config) Tables() store.Tables {
	return store.Tables{
		Catalog:     c.Catalog,
		Schema:      c.Schema,
		Game:        c.GameTable,
		Leaderboard: c.LeaderboardTable,
	}
}

// Validate checks settings that would otherwise fail late.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("GALACTIC_SQLITE_PATH is required for the sqlite store")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("GALACTIC_POSTGRES_DSN is required for the postgres store")
		}
	case BackendWarehouse:
		if c.WarehouseHost == "" || c.WarehouseID == "" {
			return fmt.Errorf("DATABRICKS_HOST and DATABRICKS_WAREHOUSE_ID are required for the warehouse store")
		}
	default:
		return fmt.Errorf("unknown store %q (want sqlite, postgres or warehouse)", c.Backend)
	}
	if c.EventChance < 0 || c.EventChance > 1 {
		return fmt.Errorf("GALACTIC_EVENT_CHANCE must be within [0, 1], got %v", c.EventChance)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("GALACTIC_RATE_LIMIT must not be negative")
	}
	if c.LocalAPIPort < 0 || c.LocalAPIPort > 65535 {
		return fmt.Errorf("GALACTIC_LOCAL_API_PORT must be within [0, 65535], got %d", c.LocalAPIPort)
	}
	return c.Tables().Validate()
}
