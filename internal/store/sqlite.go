package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/MJE43/galactic-survival/internal/games"
)

// SQLiteDB implements DB on a local SQLite file.
type SQLiteDB struct {
	db     *sql.DB
	tables Tables
	now    func() time.Time
}

// NewSQLiteDB opens the database at path. ":memory:" gives a private
// in-memory database that lives as long as the handle.
func NewSQLiteDB(path string, tables Tables) (*SQLiteDB, error) {
	if err := tables.Validate(); err != nil {
		return nil, err
	}

	dsn := path
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite is not concurrent for writes

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return &SQLiteDB{db: db, tables: tables, now: time.Now}, nil
}

// Handle exposes the connection for stores that share the file.
func (s *SQLiteDB) Handle() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Migrate brings the schema up to date.
func (s *SQLiteDB) Migrate(ctx context.Context) error {
	return runMigrations(ctx, goose.DialectSQLite3, s.db, sqliteSchema(s.tables))
}

// SchemaVersion returns the applied migration version.
func (s *SQLiteDB) SchemaVersion(ctx context.Context) (int64, error) {
	return schemaVersion(ctx, goose.DialectSQLite3, s.db, sqliteSchema(s.tables))
}

func (s *SQLiteDB) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *SQLiteDB) ReadState(ctx context.Context, playerName string) (games.PlayerState, error) {
	q := fmt.Sprintf(`SELECT player_name, mission_id, credits, oxygen, fuel, health,
		distance_traveled, days_survived, current_planet, last_updated, leaderboard_recorded
		FROM %s WHERE player_name = ?`, s.tables.Game)

	var st games.PlayerState
	err := s.db.QueryRowContext(ctx, q, playerName).Scan(
		&st.PlayerName, &st.MissionID, &st.Credits, &st.Oxygen, &st.Fuel, &st.Health,
		&st.DistanceTraveled, &st.DaysSurvived, &st.CurrentPlanet, &st.LastUpdated, &st.LeaderboardRecorded,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return games.PlayerState{}, ErrNotFound
	}
	if err != nil {
		return games.PlayerState{}, unavailable("read state", err)
	}
	st.LastUpdated = st.LastUpdated.UTC()
	return st, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteDB) upsert(ctx context.Context, ex execer, st games.PlayerState) error {
	q := fmt.Sprintf(`INSERT INTO %s
		(player_name, mission_id, credits, oxygen, fuel, health, distance_traveled, days_survived, current_planet, last_updated, leaderboard_recorded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(player_name) DO UPDATE SET
			mission_id=excluded.mission_id,
			credits=excluded.credits,
			oxygen=excluded.oxygen,
			fuel=excluded.fuel,
			health=excluded.health,
			distance_traveled=excluded.distance_traveled,
			days_survived=excluded.days_survived,
			current_planet=excluded.current_planet,
			last_updated=excluded.last_updated,
			leaderboard_recorded=excluded.leaderboard_recorded`, s.tables.Game)

	_, err := ex.ExecContext(ctx, q,
		st.PlayerName, st.MissionID, st.Credits, st.Oxygen, st.Fuel, st.Health,
		st.DistanceTraveled, st.DaysSurvived, st.CurrentPlanet, s.now().UTC(), st.LeaderboardRecorded,
	)
	if err != nil {
		return unavailable("upsert state", err)
	}
	return nil
}

func (s *SQLiteDB) appendEntry(ctx context.Context, ex execer, e games.LeaderboardEntry) error {
	q := fmt.Sprintf(`INSERT INTO %s (player_name, days_survived, distance_traveled) VALUES (?, ?, ?)`, s.tables.Leaderboard)
	if _, err := ex.ExecContext(ctx, q, e.PlayerName, e.DaysSurvived, e.DistanceTraveled); err != nil {
		return unavailable("append leaderboard", err)
	}
	return nil
}

func (s *SQLiteDB) UpsertState(ctx context.Context, st games.PlayerState) error {
	return s.upsert(ctx, s.db, st)
}

func (s *SQLiteDB) AppendLeaderboard(ctx context.Context, e games.LeaderboardEntry) error {
	return s.appendEntry(ctx, s.db, e)
}

// CommitTurn writes the state and the optional leaderboard row in one transaction.
func (s *SQLiteDB) CommitTurn(ctx context.Context, st games.PlayerState, e *games.LeaderboardEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin turn", err)
	}
	defer tx.Rollback()

	if err := s.upsert(ctx, tx, st); err != nil {
		return err
	}
	if e != nil {
		if err := s.appendEntry(ctx, tx, *e); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return unavailable("commit turn", err)
	}
	return nil
}

func (s *SQLiteDB) ReadLeaderboard(ctx context.Context, limit int) ([]games.LeaderboardEntry, error) {
	q := fmt.Sprintf(`SELECT player_name, days_survived, distance_traveled FROM %s
		ORDER BY days_survived DESC, id ASC LIMIT ?`, s.tables.Leaderboard)

	rows, err := s.db.QueryContext(ctx, q, NormalizeLimit(limit))
	if err != nil {
		return nil, unavailable("read leaderboard", err)
	}
	defer rows.Close()

	entries := []games.LeaderboardEntry{}
	for rows.Next() {
		var e games.LeaderboardEntry
		if err := rows.Scan(&e.PlayerName, &e.DaysSurvived, &e.DistanceTraveled); err != nil {
			return nil, unavailable("scan leaderboard", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("read leaderboard", err)
	}
	return entries, nil
}
