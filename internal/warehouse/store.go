package warehouse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MJE43/galactic-survival/internal/games"
	"github.com/MJE43/galactic-survival/internal/store"
)

// Store implements store.DB on warehouse tables addressed by three-part names.
type Store struct {
	client *Client
	tables store.Tables
}

var _ store.DB = (*Store)(nil)

// NewStore validates the table names and wraps client.
func NewStore(client *Client, tables store.Tables) (*Store, error) {
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	return &Store{client: client, tables: tables}, nil
}

func (s *Store) game() string        { return s.tables.Qualified(s.tables.Game) }
func (s *Store) leaderboard() string { return s.tables.Qualified(s.tables.Leaderboard) }

func (s *Store) exec(ctx context.Context, op, stmt string, params ...Param) (*Result, error) {
	res, err := s.client.Execute(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", store.ErrUnavailable, op, err)
	}
	return res, nil
}

// Close is a no-op; each statement is its own HTTP request.
func (s *Store) Close() error { return nil }

// Migrate creates the Delta tables when they do not exist and adds the
// columns that older game tables lack.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			player_name STRING,
			mission_id STRING,
			credits INT,
			oxygen INT,
			fuel INT,
			health INT,
			distance_traveled INT,
			days_survived INT,
			current_planet INT,
			last_updated TIMESTAMP,
			leaderboard_recorded BOOLEAN
		)`, s.game()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			player_name STRING,
			days_survived INT,
			distance_traveled INT
		)`, s.leaderboard()),
	}
	for _, stmt := range stmts {
		if _, err := s.exec(ctx, "migrate", stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	if err := s.evolveGameTable(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// addedColumns are game table columns introduced after the first release.
var addedColumns = []struct{ name, typ string }{
	{"mission_id", "STRING"},
	{"leaderboard_recorded", "BOOLEAN"},
}

func (s *Store) evolveGameTable(ctx context.Context) error {
	have, err := s.gameColumns(ctx)
	if err != nil {
		return err
	}
	// An invisible table reports no columns; leave it alone.
	if len(have) == 0 {
		return nil
	}

	var missing []string
	recordedAdded := false
	for _, c := range addedColumns {
		if have[c.name] {
			continue
		}
		missing = append(missing, c.name+" "+c.typ)
		if c.name == "leaderboard_recorded" {
			recordedAdded = true
		}
	}
	if len(missing) == 0 {
		return nil
	}

	stmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMNS (%s)`, s.game(), strings.Join(missing, ", "))
	if _, err := s.exec(ctx, "add columns", stmt); err != nil {
		return err
	}
	if recordedAdded {
		// Ships that died before the flag existed already have their row.
		stmt = fmt.Sprintf(`UPDATE %s SET leaderboard_recorded = TRUE
			WHERE health <= 0 OR oxygen <= 0 OR fuel <= 0`, s.game())
		if _, err := s.exec(ctx, "mark recorded", stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) gameColumns(ctx context.Context) (map[string]bool, error) {
	view := "information_schema.columns"
	if s.tables.Catalog != "" {
		view = s.tables.Catalog + "." + view
	}
	schema := "current_schema()"
	params := []Param{StringParam("table_name", strings.ToLower(s.tables.Game))}
	if s.tables.Schema != "" {
		schema = ":table_schema"
		params = append(params, StringParam("table_schema", strings.ToLower(s.tables.Schema)))
	}
	stmt := fmt.Sprintf(`SELECT column_name FROM %s
		WHERE lower(table_schema) = %s AND lower(table_name) = :table_name`, view, schema)

	res, err := s.exec(ctx, "inspect columns", stmt, params...)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, res.Len())
	for i := 0; i < res.Len(); i++ {
		name, err := res.String(i, "column_name")
		if err != nil {
			return nil, fmt.Errorf("%w: inspect columns: %v", store.ErrUnavailable, err)
		}
		have[strings.ToLower(name)] = true
	}
	return have, nil
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.exec(ctx, "ping", "SELECT 1")
	return err
}

func (s *Store) ReadState(ctx context.Context, playerName string) (games.PlayerState, error) {
	// SELECT * keeps rows from tables that predate the newer columns readable.
	stmt := fmt.Sprintf(`SELECT * FROM %s WHERE player_name = :player_name LIMIT 1`, s.game())

	res, err := s.exec(ctx, "read state", stmt, StringParam("player_name", playerName))
	if err != nil {
		return games.PlayerState{}, err
	}
	if res.Len() == 0 {
		return games.PlayerState{}, store.ErrNotFound
	}

	st, err := decodeState(res, 0)
	if err != nil {
		return games.PlayerState{}, fmt.Errorf("%w: read state: %v", store.ErrUnavailable, err)
	}
	return st, nil
}

func decodeState(res *Result, row int) (games.PlayerState, error) {
	var st games.PlayerState
	var err error
	str := func(col string, dst *string) {
		if err == nil {
			*dst, err = res.String(row, col)
		}
	}
	num := func(col string, dst *int) {
		if err == nil {
			*dst, err = res.Int(row, col)
		}
	}

	str("player_name", &st.PlayerName)
	if res.Has("mission_id") {
		str("mission_id", &st.MissionID)
	}
	num("credits", &st.Credits)
	num("oxygen", &st.Oxygen)
	num("fuel", &st.Fuel)
	num("health", &st.Health)
	num("distance_traveled", &st.DistanceTraveled)
	num("days_survived", &st.DaysSurvived)
	num("current_planet", &st.CurrentPlanet)
	if err == nil {
		st.LastUpdated, err = res.Time(row, "last_updated")
	}
	if err == nil && res.Has("leaderboard_recorded") {
		st.LeaderboardRecorded, err = res.Bool(row, "leaderboard_recorded")
	}
	return st, err
}

// UpsertState merges on player_name and stamps last_updated with the
// warehouse clock.
func (s *Store) UpsertState(ctx context.Context, st games.PlayerState) error {
	stmt := fmt.Sprintf(`MERGE INTO %s t
		USING (SELECT
			:player_name AS player_name,
			:mission_id AS mission_id,
			:credits AS credits,
			:oxygen AS oxygen,
			:fuel AS fuel,
			:health AS health,
			:distance_traveled AS distance_traveled,
			:days_survived AS days_survived,
			:current_planet AS current_planet,
			:leaderboard_recorded AS leaderboard_recorded
		) s
		ON t.player_name = s.player_name
		WHEN MATCHED THEN UPDATE SET
			t.mission_id = s.mission_id,
			t.credits = s.credits,
			t.oxygen = s.oxygen,
			t.fuel = s.fuel,
			t.health = s.health,
			t.distance_traveled = s.distance_traveled,
			t.days_survived = s.days_survived,
			t.current_planet = s.current_planet,
			t.last_updated = CURRENT_TIMESTAMP(),
			t.leaderboard_recorded = s.leaderboard_recorded
		WHEN NOT MATCHED THEN INSERT
			(player_name, mission_id, credits, oxygen, fuel, health, distance_traveled, days_survived, current_planet, last_updated, leaderboard_recorded)
		VALUES
			(s.player_name, s.mission_id, s.credits, s.oxygen, s.fuel, s.health, s.distance_traveled, s.days_survived, s.current_planet, CURRENT_TIMESTAMP(), s.leaderboard_recorded)`,
		s.game())

	_, err := s.exec(ctx, "upsert state", stmt,
		StringParam("player_name", st.PlayerName),
		StringParam("mission_id", st.MissionID),
		IntParam("credits", st.Credits),
		IntParam("oxygen", st.Oxygen),
		IntParam("fuel", st.Fuel),
		IntParam("health", st.Health),
		IntParam("distance_traveled", st.DistanceTraveled),
		IntParam("days_survived", st.DaysSurvived),
		IntParam("current_planet", st.CurrentPlanet),
		BoolParam("leaderboard_recorded", st.LeaderboardRecorded),
	)
	return err
}

// CommitTurn appends the leaderboard row before merging the state. Delta
// has no multi-table transaction, so a failed merge after a successful
// append leaves the row in place and a retried turn appends it again.
func (s *Store) CommitTurn(ctx context.Context, st games.PlayerState, e *games.LeaderboardEntry) error {
	if e != nil {
		if err := s.AppendLeaderboard(ctx, *e); err != nil {
			return err
		}
	}
	return s.UpsertState(ctx, st)
}

func (s *Store) AppendLeaderboard(ctx context.Context, e games.LeaderboardEntry) error {
	stmt := fmt.Sprintf(`INSERT INTO %s (player_name, days_survived, distance_traveled)
		VALUES (:player_name, :days_survived, :distance_traveled)`, s.leaderboard())
	_, err := s.exec(ctx, "append leaderboard", stmt,
		StringParam("player_name", e.PlayerName),
		IntParam("days_survived", e.DaysSurvived),
		IntParam("distance_traveled", e.DistanceTraveled),
	)
	return err
}

// ReadLeaderboard orders by days survived only; ties come back in whatever
// order the warehouse scans them.
func (s *Store) ReadLeaderboard(ctx context.Context, limit int) ([]games.LeaderboardEntry, error) {
	stmt := fmt.Sprintf(`SELECT player_name, days_survived, distance_traveled FROM %s
		ORDER BY days_survived DESC LIMIT %d`, s.leaderboard(), store.NormalizeLimit(limit))

	res, err := s.exec(ctx, "read leaderboard", stmt)
	if err != nil {
		return nil, err
	}

	entries := make([]games.LeaderboardEntry, 0, res.Len())
	for i := 0; i < res.Len(); i++ {
		var e games.LeaderboardEntry
		var derr error
		if e.PlayerName, derr = res.String(i, "player_name"); derr == nil {
			if e.DaysSurvived, derr = res.Int(i, "days_survived"); derr == nil {
				e.DistanceTraveled, derr = res.Int(i, "distance_traveled")
			}
		}
		if derr != nil {
			return nil, fmt.Errorf("%w: read leaderboard: %v", store.ErrUnavailable, derr)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// IsAuthError reports whether err was caused by a rejected token.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
