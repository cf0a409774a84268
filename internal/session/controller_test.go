package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/galactic-survival/internal/engine"
	"github.com/MJE43/galactic-survival/internal/games"
	"github.com/MJE43/galactic-survival/internal/journal"
	"github.com/MJE43/galactic-survival/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteDB {
	t.Helper()
	db, err := store.NewSQLiteDB(":memory:", store.DefaultTables())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func fixedSource(src *engine.ScriptedSource) Option {
	return WithSource(func(games.PlayerState) engine.Source { return src })
}

func newTestController(t *testing.T, db store.DB, opts ...Option) *Controller {
	t.Helper()
	base := []Option{
		WithLogger(log.New(io.Discard, "", 0)),
		WithMissionIDs(func() string { return "m-1" }),
	}
	c, err := NewController(db, Config{ServerSeed: "test-seed"}, append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func outcome(a games.Action) string {
	r, _ := games.GetRule(a)
	return r.Spec().Outcome
}

func TestStartMission(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	c := newTestController(t, db)

	v, err := c.StartMission(ctx, "  Nova ")
	require.NoError(t, err)

	assert.Equal(t, "Nova", v.Player)
	assert.Equal(t, StatusActive, v.Status)
	require.NotNil(t, v.State)
	assert.Equal(t, 100, v.State.Credits)
	assert.Equal(t, 100, v.State.Oxygen)
	assert.Equal(t, 100, v.State.Fuel)
	assert.Equal(t, 100, v.State.Health)
	assert.Equal(t, 1, v.State.CurrentPlanet)
	assert.Equal(t, "m-1", v.State.MissionID)
	assert.Equal(t, []Notice{{Level: LevelSuccess, Text: MissionStartedText}}, v.Notices)
	assert.NotNil(t, v.Leaderboard)
	assert.Empty(t, v.Leaderboard)
}

func TestStartMissionEmptyNameIsNoop(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	c := newTestController(t, db)

	v, err := c.StartMission(ctx, "   ")
	require.NoError(t, err)
	assert.Equal(t, StatusNoMission, v.Status)
	assert.Nil(t, v.State)
	assert.Empty(t, v.Notices)

	_, err = db.ReadState(ctx, "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStartMissionResetsProgress(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	c := newTestController(t, db, fixedSource(&engine.ScriptedSource{
		Ints:   []int{20, 10, 10},
		Floats: []float64{0.5},
	}))

	_, err := c.StartMission(ctx, "Nova")
	require.NoError(t, err)
	_, err = c.PerformAction(ctx, "Nova", "mine")
	require.NoError(t, err)

	v, err := c.StartMission(ctx, "Nova")
	require.NoError(t, err)
	assert.Equal(t, 0, v.State.DaysSurvived)
	assert.Equal(t, 100, v.State.Credits)
}

func TestPerformActionWithoutMission(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, newTestStore(t))

	_, err := c.PerformAction(ctx, "Ghost", "mine")
	assert.ErrorIs(t, err, ErrNoMission)

	_, err = c.PerformAction(ctx, "", "mine")
	assert.ErrorIs(t, err, ErrNoMission)
}

func TestPerformActionMine(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	c := newTestController(t, db, fixedSource(&engine.ScriptedSource{
		Ints:   []int{20, 10, 10},
		Floats: []float64{0.5},
	}))

	_, err := c.StartMission(ctx, "Nova")
	require.NoError(t, err)

	v, err := c.PerformAction(ctx, "Nova", "mine")
	require.NoError(t, err)

	assert.Equal(t, StatusActive, v.Status)
	assert.Equal(t, 120, v.State.Credits)
	assert.Equal(t, 90, v.State.Oxygen)
	assert.Equal(t, 90, v.State.Fuel)
	assert.Equal(t, 1, v.State.DaysSurvived)
	assert.Empty(t, v.Events)
	assert.Equal(t, []Notice{{Level: LevelSuccess, Text: outcome(games.ActionMine)}}, v.Notices)

	stored, err := db.ReadState(ctx, "Nova")
	require.NoError(t, err)
	assert.Equal(t, 120, stored.Credits)
}

func TestPerformActionUnknownCostsADay(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, newTestStore(t), fixedSource(&engine.ScriptedSource{}))

	_, err := c.StartMission(ctx, "Nova")
	require.NoError(t, err)

	v, err := c.PerformAction(ctx, "Nova", "dance")
	require.NoError(t, err)
	assert.Equal(t, 1, v.State.DaysSurvived)
	assert.Equal(t, 100, v.State.Credits)
	assert.Equal(t, 100, v.State.Oxygen)
	assert.Empty(t, v.Notices)
}

func TestPerformActionHazardNotice(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, newTestStore(t), fixedSource(&engine.ScriptedSource{
		// trade: credits -10, oxygen +20, fuel +20; then alien steals 15
		Ints:   []int{10, 20, 20, 1, 15},
		Floats: []float64{0.05},
	}))

	_, err := c.StartMission(ctx, "Nova")
	require.NoError(t, err)

	v, err := c.PerformAction(ctx, "Nova", "trade")
	require.NoError(t, err)

	assert.Equal(t, 75, v.State.Credits)
	assert.Equal(t, 100, v.State.Oxygen)
	require.Len(t, v.Events, 1)
	assert.Equal(t, games.EventAlien, v.Events[0].Kind)
	assert.Equal(t, []Notice{
		{Level: LevelSuccess, Text: outcome(games.ActionTrade)},
		{Level: LevelWarning, Text: "Alien encounter! Some credits were stolen."},
	}, v.Notices)
}

func TestGameOverRecordsLeaderboardOnce(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	c := newTestController(t, db, fixedSource(&engine.ScriptedSource{
		// rest: health +10, oxygen -5; asteroid for 30
		Ints:   []int{10, 5, 0, 30},
		Floats: []float64{0.01},
	}))

	_, err := c.StartMission(ctx, "Nova")
	require.NoError(t, err)

	st, err := db.ReadState(ctx, "Nova")
	require.NoError(t, err)
	st.Health = 20
	st.DaysSurvived = 6
	st.DistanceTraveled = 700
	require.NoError(t, db.UpsertState(ctx, st))

	v, err := c.PerformAction(ctx, "Nova", "rest")
	require.NoError(t, err)
	assert.Equal(t, StatusGameOver, v.Status)
	assert.Equal(t, 0, v.State.Health)
	assert.Equal(t, 7, v.State.DaysSurvived)
	assert.Contains(t, v.Notices, Notice{Level: LevelError, Text: GameOverText})
	assert.Equal(t, []games.LeaderboardEntry{
		{PlayerName: "Nova", DaysSurvived: 7, DistanceTraveled: 700},
	}, v.Leaderboard)

	// Scripted draws are exhausted, so no hazard fires.
	v, err = c.PerformAction(ctx, "Nova", "mine")
	require.NoError(t, err)
	assert.Equal(t, StatusGameOver, v.Status)
	assert.Contains(t, v.Notices, Notice{Level: LevelError, Text: GameOverText})
	assert.Len(t, v.Leaderboard, 1)
}

func TestRestAloneEndsMission(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	// Exhausted scripted draws take the low end: oxygen -5 per rest.
	c := newTestController(t, db, fixedSource(&engine.ScriptedSource{}))

	_, err := c.StartMission(ctx, "Nova")
	require.NoError(t, err)

	var v View
	for i := 0; i < 20; i++ {
		v, err = c.PerformAction(ctx, "Nova", "rest")
		require.NoError(t, err)
	}
	assert.Equal(t, StatusGameOver, v.Status)
	assert.Equal(t, 0, v.State.Oxygen)
	assert.Equal(t, 20, v.State.DaysSurvived)

	board, err := c.ViewLeaderboard(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []games.LeaderboardEntry{{PlayerName: "Nova", DaysSurvived: 20}}, board)
}

func TestViewStatusIsReadOnly(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, newTestStore(t))

	v, err := c.ViewStatus(ctx, "Nova")
	require.NoError(t, err)
	assert.Equal(t, StatusNoMission, v.Status)

	_, err = c.StartMission(ctx, "Nova")
	require.NoError(t, err)

	first, err := c.ViewStatus(ctx, "Nova")
	require.NoError(t, err)
	second, err := c.ViewStatus(ctx, "Nova")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 0, second.State.DaysSurvived)
	assert.Empty(t, second.Notices)
}

func TestSeededTurnsAreReproducible(t *testing.T) {
	ctx := context.Background()
	actions := []string{"mine", "travel", "trade", "rest", "mine", "travel"}

	play := func() games.PlayerState {
		c := newTestController(t, newTestStore(t))
		_, err := c.StartMission(ctx, "Nova")
		require.NoError(t, err)
		var v View
		for _, a := range actions {
			v, err = c.PerformAction(ctx, "Nova", a)
			require.NoError(t, err)
			if v.Status == StatusGameOver {
				break
			}
		}
		st := *v.State
		st.LastUpdated = time.Time{}
		return st
	}

	assert.Equal(t, play(), play())
}

func TestJournalRecordsEveryTurn(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	j := journal.NewFromDB(db.Handle())
	require.NoError(t, j.Migrate(ctx))

	c := newTestController(t, db, WithJournal(j))
	_, err := c.StartMission(ctx, "Nova")
	require.NoError(t, err)
	_, err = c.PerformAction(ctx, "Nova", "mine")
	require.NoError(t, err)
	_, err = c.PerformAction(ctx, "Nova", "rest")
	require.NoError(t, err)

	entries, err := j.Entries(ctx, "m-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, games.Action(""), entries[0].Turn.Action)
	assert.Equal(t, games.ActionMine, entries[1].Turn.Action)
	assert.Equal(t, games.ActionRest, entries[2].Turn.Action)

	ver, err := j.Verify(ctx, "m-1")
	require.NoError(t, err)
	assert.True(t, ver.Valid)
}

type failingJournal struct{ calls int }

func (f *failingJournal) Append(context.Context, journal.Turn) (journal.Entry, error) {
	f.calls++
	return journal.Entry{}, errors.New("disk full")
}

func TestJournalFailureDoesNotFailTurn(t *testing.T) {
	ctx := context.Background()
	j := &failingJournal{}
	c := newTestController(t, newTestStore(t), WithJournal(j))

	_, err := c.StartMission(ctx, "Nova")
	require.NoError(t, err)
	v, err := c.PerformAction(ctx, "Nova", "mine")
	require.NoError(t, err)
	assert.Equal(t, 1, v.State.DaysSurvived)
	assert.Equal(t, 2, j.calls)
}

func TestStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	c := newTestController(t, db)

	_, err := c.StartMission(ctx, "Nova")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = c.PerformAction(ctx, "Nova", "mine")
	assert.ErrorIs(t, err, store.ErrUnavailable)

	_, err = c.ViewLeaderboard(ctx, 5)
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestNewControllerRequiresStore(t *testing.T) {
	_, err := NewController(nil, Config{})
	assert.Error(t, err)
}

func TestNewControllerGeneratesSeed(t *testing.T) {
	c, err := NewController(newTestStore(t), Config{})
	require.NoError(t, err)
	assert.Len(t, c.SeedHash(), 64)
}

// flakyCommitDB fails the first commit that carries a leaderboard row.
type flakyCommitDB struct {
	store.DB
	failed bool
}

func (f *flakyCommitDB) CommitTurn(ctx context.Context, s games.PlayerState, e *games.LeaderboardEntry) error {
	if e != nil && !f.failed {
		f.failed = true
		return fmt.Errorf("%w: append leaderboard: disk full", store.ErrUnavailable)
	}
	return f.DB.CommitTurn(ctx, s, e)
}

// sequenceSources hands out one scripted source per turn.
func sequenceSources(draws ...engine.ScriptedSource) Option {
	i := 0
	return WithSource(func(games.PlayerState) engine.Source {
		src := &engine.ScriptedSource{}
		if i < len(draws) {
			*src = draws[i]
		}
		i++
		return src
	})
}

func TestFailedLeaderboardWriteLeavesTurnRetryable(t *testing.T) {
	ctx := context.Background()
	base := newTestStore(t)
	db := &flakyCommitDB{DB: base}
	// rest: health +10, oxygen -5; asteroid for 20
	fatal := engine.ScriptedSource{Ints: []int{10, 5, 0, 20}, Floats: []float64{0.01}}
	c := newTestController(t, db, sequenceSources(fatal, fatal))

	_, err := c.StartMission(ctx, "Nova")
	require.NoError(t, err)
	st, err := base.ReadState(ctx, "Nova")
	require.NoError(t, err)
	st.Health = 5
	require.NoError(t, base.UpsertState(ctx, st))

	_, err = c.Turn(ctx, "Nova", "rest")
	require.ErrorIs(t, err, store.ErrUnavailable)

	st, err = base.ReadState(ctx, "Nova")
	require.NoError(t, err)
	assert.Equal(t, 5, st.Health)
	assert.Equal(t, 0, st.DaysSurvived)
	assert.False(t, st.LeaderboardRecorded)

	res, err := c.Turn(ctx, "Nova", "rest")
	require.NoError(t, err)
	assert.True(t, res.Ended)
	assert.True(t, res.State.LeaderboardRecorded)

	top, err := base.ReadLeaderboard(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []games.LeaderboardEntry{{PlayerName: "Nova", DaysSurvived: 1}}, top)
}

func TestRevivedShipIsRankedOnce(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	c := newTestController(t, db, sequenceSources(
		// rest: health +10, oxygen -5; asteroid for 20
		engine.ScriptedSource{Ints: []int{10, 5, 0, 20}, Floats: []float64{0.01}},
		// rest: health +10, oxygen -5; no event
		engine.ScriptedSource{Ints: []int{10, 5}, Floats: []float64{0.5}},
		// rest: health +10, oxygen -5; asteroid for 30
		engine.ScriptedSource{Ints: []int{10, 5, 0, 30}, Floats: []float64{0.01}},
	))

	_, err := c.StartMission(ctx, "Nova")
	require.NoError(t, err)
	st, err := db.ReadState(ctx, "Nova")
	require.NoError(t, err)
	st.Health = 5
	require.NoError(t, db.UpsertState(ctx, st))

	res, err := c.Turn(ctx, "Nova", "rest")
	require.NoError(t, err)
	require.True(t, res.Ended)

	res, err = c.Turn(ctx, "Nova", "rest")
	require.NoError(t, err)
	assert.False(t, res.GameOver, "rest revives the ship")
	assert.True(t, res.State.LeaderboardRecorded)

	res, err = c.Turn(ctx, "Nova", "rest")
	require.NoError(t, err)
	assert.True(t, res.GameOver)
	assert.False(t, res.Ended)

	top, err := db.ReadLeaderboard(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, top, 1)

	// A new mission is ranked again.
	_, err = c.StartMission(ctx, "Nova")
	require.NoError(t, err)
	st, err = db.ReadState(ctx, "Nova")
	require.NoError(t, err)
	assert.False(t, st.LeaderboardRecorded)
}
