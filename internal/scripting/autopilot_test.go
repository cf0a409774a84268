package scripting

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/galactic-survival/internal/engine"
	"github.com/MJE43/galactic-survival/internal/games"
	"github.com/MJE43/galactic-survival/internal/session"
	"github.com/MJE43/galactic-survival/internal/store"
)

// newTestController uses exhausted scripted draws: every range takes its
// low end and no hazard fires.
func newTestController(t *testing.T) *session.Controller {
	t.Helper()
	db, err := store.NewSQLiteDB(":memory:", store.DefaultTables())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	c, err := session.NewController(db, session.Config{ServerSeed: "test"},
		session.WithLogger(log.New(io.Discard, "", 0)),
		session.WithSource(func(games.PlayerState) engine.Source { return &engine.ScriptedSource{} }),
	)
	require.NoError(t, err)
	_, err = c.StartMission(context.Background(), "Nova")
	require.NoError(t, err)
	return c
}

func TestRunStopsWhenScriptCallsStop(t *testing.T) {
	c := newTestController(t)
	script := `
		function decide() {
			if (credits >= 150) {
				log("done on day", days)
				stop()
				return ""
			}
			return MINE
		}
	`
	rep, err := Run(context.Background(), c, "Nova", script, Options{})
	require.NoError(t, err)

	assert.Equal(t, StopScript, rep.Reason)
	assert.Equal(t, 5, rep.Turns)
	assert.Equal(t, 150, rep.Final.Credits)
	assert.Equal(t, 75, rep.Final.Oxygen)
	assert.Len(t, rep.Steps, 5)
	assert.Equal(t, games.ActionMine, rep.Steps[0].Action)
	require.Len(t, rep.Logs, 1)
	assert.Equal(t, "done on day 5", rep.Logs[0].Message)
}

func TestRunEndsOnGameOver(t *testing.T) {
	c := newTestController(t)
	rep, err := Run(context.Background(), c, "Nova", `function decide() { return REST }`, Options{})
	require.NoError(t, err)

	assert.Equal(t, StopGameOver, rep.Reason)
	assert.Equal(t, 20, rep.Turns)
	assert.Equal(t, 0, rep.Final.Oxygen)

	board, err := c.ViewLeaderboard(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, board, 1)

	// A finished mission takes no further turns.
	rep, err = Run(context.Background(), c, "Nova", `function decide() { return REST }`, Options{})
	require.NoError(t, err)
	assert.Equal(t, StopGameOver, rep.Reason)
	assert.Equal(t, 0, rep.Turns)
}

func TestRunHonorsMaxTurns(t *testing.T) {
	c := newTestController(t)
	rep, err := Run(context.Background(), c, "Nova", `function decide() { return "trade" }`, Options{MaxTurns: 3})
	require.NoError(t, err)

	assert.Equal(t, StopMaxTurns, rep.Reason)
	assert.Equal(t, 3, rep.Turns)
	assert.Equal(t, 70, rep.Final.Credits)
}

func TestRunCanceled(t *testing.T) {
	c := newTestController(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := Run(ctx, c, "Nova", `function decide() { return MINE }`, Options{})
	require.NoError(t, err)
	assert.Equal(t, StopCanceled, rep.Reason)
	assert.Equal(t, 0, rep.Turns)
}

func TestRunWithoutMission(t *testing.T) {
	c := newTestController(t)
	_, err := Run(context.Background(), c, "Ghost", `function decide() { return MINE }`, Options{})
	assert.ErrorIs(t, err, session.ErrNoMission)
}

func TestRunRequiresDecide(t *testing.T) {
	c := newTestController(t)
	_, err := Run(context.Background(), c, "Nova", `var x = 1`, Options{})
	assert.ErrorContains(t, err, "decide() function is not defined")
}

func TestRunScriptTimeout(t *testing.T) {
	c := newTestController(t)
	rep, err := Run(context.Background(), c, "Nova", `function decide() { while (true) {} }`,
		Options{CallTimeout: 50 * time.Millisecond})
	assert.ErrorContains(t, err, "timed out")
	assert.Equal(t, 0, rep.Turns)
}

func TestSandboxBlocksGlobals(t *testing.T) {
	for _, src := range []string{
		`require("fs")`,
		`fetch("http://example.com")`,
		`eval("1+1")`,
		`new Function("return 1")`,
	} {
		t.Run(src, func(t *testing.T) {
			vm := NewVM(0)
			assert.Error(t, vm.Execute(src))
		})
	}
}

func TestVMExposesState(t *testing.T) {
	vm := NewVM(0)
	require.NoError(t, vm.Execute(`
		function decide() {
			console.log(credits, oxygen, fuel, health, distance, days, planet, events.length)
			return events.length > 0 ? events[0] : TRAVEL
		}
	`))

	st := games.NewMission("Nova", "m-1")
	st.DistanceTraveled = 300
	st.DaysSurvived = 4
	st.CurrentPlanet = 3
	vm.SetState(st, nil)

	action, err := vm.CallDecide()
	require.NoError(t, err)
	assert.Equal(t, "travel", action)

	vm.SetState(st, []games.Event{{Kind: games.EventAsteroid}})
	action, err = vm.CallDecide()
	require.NoError(t, err)
	assert.Equal(t, "asteroid", action)

	logs := vm.Logs()
	require.Len(t, logs, 2)
	assert.Equal(t, "100 100 100 100 300 4 3 0", logs[0].Message)
}

func TestVMRecoversAfterTimeout(t *testing.T) {
	vm := NewVM(50 * time.Millisecond)
	require.NoError(t, vm.Execute(`
		var spin = true
		function decide() {
			if (spin) { spin = false; while (true) {} }
			return REST
		}
	`))

	_, err := vm.CallDecide()
	require.Error(t, err)

	action, err := vm.CallDecide()
	require.NoError(t, err)
	assert.Equal(t, "rest", action)
}
