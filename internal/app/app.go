// Package app assembles the game from configuration: the store backend, the
// turn journal and the session controller. The CLI and the desktop shell
// both start from Open.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/MJE43/galactic-survival/internal/api"
	"github.com/MJE43/galactic-survival/internal/config"
	"github.com/MJE43/galactic-survival/internal/journal"
	"github.com/MJE43/galactic-survival/internal/session"
	"github.com/MJE43/galactic-survival/internal/store"
	"github.com/MJE43/galactic-survival/internal/warehouse"
	"github.com/MJE43/galactic-survival/internal/warehouseauth"
)

// App is an opened game with its resources.
type App struct {
	Config     config.Config
	DB         store.DB
	Journal    *journal.Store
	Controller *session.Controller

	logger *log.Logger
}

// Options adjust Open for callers that need more control.
type Options struct {
	// Keyring resolves the warehouse token when DATABRICKS_TOKEN is empty.
	Keyring *warehouseauth.KeyringStore
	// SkipMigrate opens the store without creating tables.
	SkipMigrate bool
	Session     []session.Option
}

// Open connects the configured backend, migrates it and builds the controller.
func Open(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := log.New(os.Stdout, "[APP] ", log.LstdFlags)

	db, err := OpenStore(ctx, cfg, opts.Keyring)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, DB: db, logger: logger}

	if !opts.SkipMigrate {
		if err := db.Migrate(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrate %s store: %w", cfg.Backend, err)
		}
	}

	sessOpts := append([]session.Option{}, opts.Session...)
	if cfg.Journal {
		j, err := openJournal(ctx, cfg, db)
		if err != nil {
			// The game runs without a journal rather than not at all.
			logger.Printf("journal_disabled error=%q", err)
		} else {
			a.Journal = j
			sessOpts = append(sessOpts, session.WithJournal(j))
		}
	}

	a.Controller, err = session.NewController(db, session.Config{
		ServerSeed:      cfg.ServerSeed,
		LeaderboardSize: cfg.LeaderboardSize,
		EventChance:     eventChance(cfg.EventChance),
	}, sessOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	logger.Printf("app_opened store=%s journal=%t seed_hash=%s", cfg.Backend, a.Journal != nil, a.Controller.SeedHash())
	return a, nil
}

// eventChance maps the configured probability onto games.Engine, where
// zero means "default" and negative disables hazards.
func eventChance(p float64) float64 {
	if p == 0 {
		return -1
	}
	return p
}

// OpenStore connects the configured backend without migrating it.
func OpenStore(ctx context.Context, cfg config.Config, kr *warehouseauth.KeyringStore) (store.DB, error) {
	tables := cfg.Tables()
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := store.NewSQLiteDB(cfg.SQLitePath, tables)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.BackendPostgres:
		db, err := store.NewPostgresDB(ctx, cfg.PostgresDSN, tables)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.BackendWarehouse:
		if kr == nil {
			kr = warehouseauth.NewKeyringStore(warehouseauth.DefaultService, warehouseauth.DefaultFallbackPath())
		}
		token, err := kr.Resolve(cfg.WarehouseToken, cfg.WarehouseHost)
		if errors.Is(err, warehouseauth.ErrNoToken) {
			return nil, fmt.Errorf("no warehouse token: set DATABRICKS_TOKEN or run `galactic auth set`")
		}
		if err != nil {
			return nil, err
		}
		client := warehouse.NewClient(warehouse.Config{
			Host:        cfg.WarehouseHost,
			WarehouseID: cfg.WarehouseID,
			Token:       token,
			Catalog:     cfg.Catalog,
			Schema:      cfg.Schema,
			WaitTimeout: cfg.WarehouseTimeout,
		})
		db, err := warehouse.NewStore(client, tables)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, fmt.Errorf("unknown store %q", cfg.Backend)
}

// openJournal shares the SQLite handle when the game store is SQLite and
// opens its own file otherwise.
func openJournal(ctx context.Context, cfg config.Config, db store.DB) (*journal.Store, error) {
	var j *journal.Store
	if sq, ok := db.(*store.SQLiteDB); ok {
		j = journal.NewFromDB(sq.Handle())
	} else {
		var err error
		if j, err = journal.New(cfg.JournalPath); err != nil {
			return nil, err
		}
	}
	if err := j.Migrate(ctx); err != nil {
		j.Close()
		return nil, err
	}
	return j, nil
}

// Server builds the HTTP API over the app.
func (a *App) Server() *api.Server {
	opts := api.Options{
		DB:        a.DB,
		RateLimit: a.Config.RateLimit,
		RateBurst: a.Config.RateBurst,
	}
	if a.Journal != nil {
		opts.Journal = a.Journal
	}
	return api.NewServer(a.Controller, opts)
}

// Close releases the journal and the store.
func (a *App) Close() error {
	var errs []error
	if a.Journal != nil {
		errs = append(errs, a.Journal.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
