// Package bindings is the surface the desktop window calls into. Methods on
// App are bound to the frontend; each one is a thin wrapper over the session
// controller.
package bindings

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/MJE43/galactic-survival/internal/app"
	"github.com/MJE43/galactic-survival/internal/games"
	"github.com/MJE43/galactic-survival/internal/scripting"
	"github.com/MJE43/galactic-survival/internal/session"
)

// Frontend event names.
const (
	EventAutopilotStep     = "autopilot:step"
	EventAutopilotFinished = "autopilot:finished"
)

// Emitter pushes events to the frontend.
type Emitter interface {
	Emit(ctx context.Context, name string, data ...interface{})
}

// App is the Wails-bound game.
type App struct {
	ctx     context.Context
	game    *app.App
	emitter Emitter
	logger  *log.Logger

	// One autopilot at a time; cancel stops it.
	pilotMu sync.Mutex
	cancel  context.CancelFunc
}

// New wraps an opened game. emitter may be nil.
func New(game *app.App, emitter Emitter) *App {
	return &App{
		ctx:     context.Background(),
		game:    game,
		emitter: emitter,
		logger:  log.New(os.Stdout, "[DESKTOP] ", log.LstdFlags),
	}
}

// Startup is called by Wails on application startup.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
}

// Shutdown stops any running autopilot.
func (a *App) Shutdown() {
	a.StopAutopilot()
}

func (a *App) GetActions() []games.ActionSpec {
	return games.ListActions()
}

func (a *App) StartMission(playerName string) (session.View, error) {
	return a.game.Controller.StartMission(a.ctx, playerName)
}

func (a *App) PerformAction(playerName, action string) (session.View, error) {
	return a.game.Controller.PerformAction(a.ctx, playerName, action)
}

func (a *App) ViewStatus(playerName string) (session.View, error) {
	return a.game.Controller.ViewStatus(a.ctx, playerName)
}

func (a *App) GetLeaderboard(limit int) ([]games.LeaderboardEntry, error) {
	entries, err := a.game.Controller.ViewLeaderboard(a.ctx, limit)
	if entries == nil {
		entries = []games.LeaderboardEntry{}
	}
	return entries, err
}

// SeedHash returns the SHA-256 of the server seed, never the seed itself.
func (a *App) SeedHash() string {
	return a.game.Controller.SeedHash()
}

// RunAutopilot flies the player's mission with script and blocks until the
// run ends. Steps are replayed to the frontend as events once the run is done.
func (a *App) RunAutopilot(playerName, script string, maxTurns int) (scripting.Report, error) {
	a.pilotMu.Lock()
	if a.cancel != nil {
		a.pilotMu.Unlock()
		return scripting.Report{}, fmt.Errorf("an autopilot is already running")
	}
	ctx, cancel := context.WithCancel(a.ctx)
	a.cancel = cancel
	a.pilotMu.Unlock()

	defer func() {
		a.pilotMu.Lock()
		a.cancel = nil
		a.pilotMu.Unlock()
		cancel()
	}()

	started := time.Now()
	rep, err := scripting.Run(ctx, a.game.Controller, playerName, script, scripting.Options{
		MaxTurns:    maxTurns,
		CallTimeout: time.Second,
	})
	a.logger.Printf("autopilot_finished turns=%d reason=%s duration=%v err=%v", rep.Turns, rep.Reason, time.Since(started), err)

	if a.emitter != nil {
		for i, step := range rep.Steps {
			a.emitter.Emit(a.ctx, EventAutopilotStep, i+1, step)
		}
		a.emitter.Emit(a.ctx, EventAutopilotFinished, rep)
	}
	return rep, err
}

// StopAutopilot cancels the running autopilot, if any.
func (a *App) StopAutopilot() bool {
	a.pilotMu.Lock()
	defer a.pilotMu.Unlock()
	if a.cancel == nil {
		return false
	}
	a.cancel()
	return true
}
