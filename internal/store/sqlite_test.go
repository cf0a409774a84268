package store

import (
	"context"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/galactic-survival/internal/games"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(":memory:", DefaultTables())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func TestReadStateAbsent(t *testing.T) {
	db := newTestDB(t)
	_, err := db.ReadState(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertStateInsertThenReplace(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return first }

	st := games.NewMission("Nova", "m-1")
	require.NoError(t, db.UpsertState(ctx, st))

	got, err := db.ReadState(ctx, "Nova")
	require.NoError(t, err)
	assert.Equal(t, "m-1", got.MissionID)
	assert.Equal(t, 100, got.Fuel)
	assert.True(t, got.LastUpdated.Equal(first), "last_updated = %v", got.LastUpdated)

	second := first.Add(time.Hour)
	db.now = func() time.Time { return second }

	st.Credits = -40
	st.Fuel = 3
	st.DaysSurvived = 9
	st.DistanceTraveled = 1200
	st.CurrentPlanet = 5
	require.NoError(t, db.UpsertState(ctx, st))

	got, err = db.ReadState(ctx, "Nova")
	require.NoError(t, err)
	assert.Equal(t, -40, got.Credits)
	assert.Equal(t, 3, got.Fuel)
	assert.Equal(t, 9, got.DaysSurvived)
	assert.Equal(t, 1200, got.DistanceTraveled)
	assert.Equal(t, 5, got.CurrentPlanet)
	assert.True(t, got.LastUpdated.Equal(second))
}

func TestUpsertKeepsPlayersApart(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	a := games.NewMission("Ana", "m-a")
	b := games.NewMission("Bo", "m-b")
	b.Credits = 7
	require.NoError(t, db.UpsertState(ctx, a))
	require.NoError(t, db.UpsertState(ctx, b))

	got, err := db.ReadState(ctx, "Ana")
	require.NoError(t, err)
	assert.Equal(t, 100, got.Credits)
}

func TestReadLeaderboardOrdering(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	for i, days := range []int{3, 10, 7, 10, 1} {
		require.NoError(t, db.AppendLeaderboard(ctx, games.LeaderboardEntry{
			PlayerName:       string(rune('A' + i)),
			DaysSurvived:     days,
			DistanceTraveled: days * 100,
		}))
	}

	top, err := db.ReadLeaderboard(ctx, 4)
	require.NoError(t, err)
	require.Len(t, top, 4)

	var days []int
	for _, e := range top {
		days = append(days, e.DaysSurvived)
	}
	assert.Equal(t, []int{10, 10, 7, 3}, days)
	assert.ElementsMatch(t, []string{"B", "D"}, []string{top[0].PlayerName, top[1].PlayerName})
}

func TestReadLeaderboardEmptyAndLimits(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	top, err := db.ReadLeaderboard(ctx, 5)
	require.NoError(t, err)
	assert.NotNil(t, top)
	assert.Empty(t, top)

	for i := 0; i < 8; i++ {
		require.NoError(t, db.AppendLeaderboard(ctx, games.LeaderboardEntry{PlayerName: "p", DaysSurvived: i}))
	}
	top, err = db.ReadLeaderboard(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, top, DefaultLeaderboardLimit)
}

func TestLeaderboardAllowsDuplicates(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	e := games.LeaderboardEntry{PlayerName: "Nova", DaysSurvived: 4, DistanceTraveled: 300}
	require.NoError(t, db.AppendLeaderboard(ctx, e))
	require.NoError(t, db.AppendLeaderboard(ctx, e))

	top, err := db.ReadLeaderboard(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []games.LeaderboardEntry{e, e}, top)
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.Migrate(ctx))

	v, err := db.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
}

func TestCustomTableNames(t *testing.T) {
	ctx := context.Background()
	tables := Tables{Game: "state_v2", Leaderboard: "board_v2"}
	db, err := NewSQLiteDB(":memory:", tables)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate(ctx))

	require.NoError(t, db.UpsertState(ctx, games.NewMission("Nova", "m")))
	var n int
	require.NoError(t, db.Handle().QueryRowContext(ctx, `SELECT COUNT(*) FROM state_v2`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestClosedDBIsUnavailable(t *testing.T) {
	ctx := context.Background()
	db, err := NewSQLiteDB(":memory:", DefaultTables())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Close())

	_, err = db.ReadState(ctx, "Nova")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, db.UpsertState(ctx, games.NewMission("Nova", "")), ErrUnavailable)
	assert.ErrorIs(t, db.AppendLeaderboard(ctx, games.LeaderboardEntry{PlayerName: "Nova"}), ErrUnavailable)
	_, err = db.ReadLeaderboard(ctx, 5)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestTablesValidate(t *testing.T) {
	assert.NoError(t, DefaultTables().Validate())
	assert.Error(t, Tables{Game: "g; DROP TABLE x", Leaderboard: "l"}.Validate())
	assert.Error(t, Tables{Game: "g", Leaderboard: "l", Schema: "a.b"}.Validate())
	assert.Equal(t, "drew_triplett.space_explorer.galactic_survival_game", DefaultTables().Qualified("galactic_survival_game"))
	assert.Equal(t, "g", Tables{}.Qualified("g"))
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, 5, NormalizeLimit(-1))
	assert.Equal(t, 3, NormalizeLimit(3))
	assert.Equal(t, MaxLeaderboardLimit, NormalizeLimit(1000))
}

func TestCommitTurnWritesStateAndEntry(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	st := games.NewMission("Nova", "m-1")
	st.Health = 0
	st.DaysSurvived = 4
	st.LeaderboardRecorded = true
	e := st.Entry()
	require.NoError(t, db.CommitTurn(ctx, st, &e))

	got, err := db.ReadState(ctx, "Nova")
	require.NoError(t, err)
	assert.True(t, got.LeaderboardRecorded)
	assert.Equal(t, 0, got.Health)

	top, err := db.ReadLeaderboard(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []games.LeaderboardEntry{e}, top)
}

func TestCommitTurnWithoutEntry(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, db.CommitTurn(ctx, games.NewMission("Nova", "m-1"), nil))

	got, err := db.ReadState(ctx, "Nova")
	require.NoError(t, err)
	assert.False(t, got.LeaderboardRecorded)

	top, err := db.ReadLeaderboard(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestCommitTurnRollsBackStateWhenAppendFails(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	alive := games.NewMission("Nova", "m-1")
	alive.Health = 5
	require.NoError(t, db.UpsertState(ctx, alive))

	_, err := db.Handle().ExecContext(ctx, `DROP TABLE galactic_survival_leaderboard`)
	require.NoError(t, err)

	dead := alive
	dead.Health = 0
	dead.DaysSurvived = 1
	dead.LeaderboardRecorded = true
	e := dead.Entry()
	err = db.CommitTurn(ctx, dead, &e)
	require.ErrorIs(t, err, ErrUnavailable)

	got, err := db.ReadState(ctx, "Nova")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Health)
	assert.Equal(t, 0, got.DaysSurvived)
	assert.False(t, got.LeaderboardRecorded)
}

func TestMigrationMarksLegacyDeadShipsRecorded(t *testing.T) {
	ctx := context.Background()
	db, err := NewSQLiteDB(":memory:", DefaultTables())
	require.NoError(t, err)
	defer db.Close()

	provider, err := newMigrator(goose.DialectSQLite3, db.Handle(), sqliteSchema(DefaultTables()))
	require.NoError(t, err)
	_, err = provider.UpTo(ctx, 2)
	require.NoError(t, err)

	_, err = db.Handle().ExecContext(ctx, `INSERT INTO galactic_survival_game
		(player_name, mission_id, credits, oxygen, fuel, health, distance_traveled, days_survived, current_planet, last_updated)
		VALUES ('Dead', 'm-1', 0, 0, 50, 50, 10, 3, 1, CURRENT_TIMESTAMP),
		       ('Alive', 'm-2', 0, 90, 50, 50, 10, 3, 1, CURRENT_TIMESTAMP)`)
	require.NoError(t, err)

	require.NoError(t, db.Migrate(ctx))

	dead, err := db.ReadState(ctx, "Dead")
	require.NoError(t, err)
	assert.True(t, dead.LeaderboardRecorded)
	alive, err := db.ReadState(ctx, "Alive")
	require.NoError(t, err)
	assert.False(t, alive.LeaderboardRecorded)
}
