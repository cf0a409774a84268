package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

// schemaDDL holds the per-dialect statements for each schema version.
type schemaDDL struct {
	up   []string
	down []string
}

func sqliteSchema(t Tables) []schemaDDL {
	return []schemaDDL{
		{
			up: []string{
				fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
					player_name TEXT PRIMARY KEY,
					credits INTEGER NOT NULL,
					oxygen INTEGER NOT NULL,
					fuel INTEGER NOT NULL,
					health INTEGER NOT NULL,
					distance_traveled INTEGER NOT NULL,
					days_survived INTEGER NOT NULL,
					current_planet INTEGER NOT NULL,
					last_updated TIMESTAMP NOT NULL
				)`, t.Game),
				fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					player_name TEXT NOT NULL,
					days_survived INTEGER NOT NULL,
					distance_traveled INTEGER NOT NULL
				)`, t.Leaderboard),
				fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_days ON %s(days_survived DESC, id)`, t.Leaderboard, t.Leaderboard),
			},
			down: []string{
				fmt.Sprintf(`DROP TABLE IF EXISTS %s`, t.Leaderboard),
				fmt.Sprintf(`DROP TABLE IF EXISTS %s`, t.Game),
			},
		},
		{
			up: []string{
				fmt.Sprintf(`ALTER TABLE %s ADD COLUMN mission_id TEXT NOT NULL DEFAULT ''`, t.Game),
			},
			down: []string{
				fmt.Sprintf(`ALTER TABLE %s DROP COLUMN mission_id`, t.Game),
			},
		},
		{
			up: []string{
				fmt.Sprintf(`ALTER TABLE %s ADD COLUMN leaderboard_recorded INTEGER NOT NULL DEFAULT 0`, t.Game),
				// Dead ships from before the flag already have their row.
				fmt.Sprintf(`UPDATE %s SET leaderboard_recorded = 1 WHERE health <= 0 OR oxygen <= 0 OR fuel <= 0`, t.Game),
			},
			down: []string{
				fmt.Sprintf(`ALTER TABLE %s DROP COLUMN leaderboard_recorded`, t.Game),
			},
		},
	}
}

func postgresSchema(t Tables) []schemaDDL {
	game, board := t.Qualified(t.Game), t.Qualified(t.Leaderboard)
	return []schemaDDL{
		{
			up: []string{
				fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
					player_name TEXT PRIMARY KEY,
					credits BIGINT NOT NULL,
					oxygen INTEGER NOT NULL,
					fuel INTEGER NOT NULL,
					health INTEGER NOT NULL,
					distance_traveled BIGINT NOT NULL,
					days_survived INTEGER NOT NULL,
					current_planet INTEGER NOT NULL,
					last_updated TIMESTAMPTZ NOT NULL
				)`, game),
				fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
					id BIGSERIAL PRIMARY KEY,
					player_name TEXT NOT NULL,
					days_survived INTEGER NOT NULL,
					distance_traveled BIGINT NOT NULL
				)`, board),
				fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_days ON %s(days_survived DESC, id)`, t.Leaderboard, board),
			},
			down: []string{
				fmt.Sprintf(`DROP TABLE IF EXISTS %s`, board),
				fmt.Sprintf(`DROP TABLE IF EXISTS %s`, game),
			},
		},
		{
			up: []string{
				fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS mission_id TEXT NOT NULL DEFAULT ''`, game),
			},
			down: []string{
				fmt.Sprintf(`ALTER TABLE %s DROP COLUMN IF EXISTS mission_id`, game),
			},
		},
		{
			up: []string{
				fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS leaderboard_recorded BOOLEAN NOT NULL DEFAULT FALSE`, game),
				fmt.Sprintf(`UPDATE %s SET leaderboard_recorded = TRUE WHERE health <= 0 OR oxygen <= 0 OR fuel <= 0`, game),
			},
			down: []string{
				fmt.Sprintf(`ALTER TABLE %s DROP COLUMN IF EXISTS leaderboard_recorded`, game),
			},
		},
	}
}

func execAll(stmts []string) *goose.GoFunc {
	return &goose.GoFunc{
		RunTx: func(ctx context.Context, tx *sql.Tx) error {
			for _, stmt := range stmts {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// newMigrator builds a goose provider whose Go migrations create the
// configured tables.
func newMigrator(dialect goose.Dialect, db *sql.DB, versions []schemaDDL) (*goose.Provider, error) {
	migrations := make([]*goose.Migration, 0, len(versions))
	for i, v := range versions {
		migrations = append(migrations, goose.NewGoMigration(int64(i+1), execAll(v.up), execAll(v.down)))
	}
	return goose.NewProvider(dialect, db, nil,
		goose.WithDisableGlobalRegistry(true),
		goose.WithGoMigrations(migrations...),
	)
}

func runMigrations(ctx context.Context, dialect goose.Dialect, db *sql.DB, versions []schemaDDL) error {
	provider, err := newMigrator(dialect, db, versions)
	if err != nil {
		return fmt.Errorf("migration setup failed: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// schemaVersion reports the applied schema version for a SQL handle.
func schemaVersion(ctx context.Context, dialect goose.Dialect, db *sql.DB, versions []schemaDDL) (int64, error) {
	provider, err := newMigrator(dialect, db, versions)
	if err != nil {
		return 0, err
	}
	return provider.GetDBVersion(ctx)
}
