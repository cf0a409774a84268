// Package scripting runs player-written JavaScript autopilots. A script
// defines decide(), which reads the ship's gauges from globals and returns
// the next action; the autopilot feeds each choice through the session
// controller until the mission ends or the script calls stop().
package scripting

import (
	"context"
	"fmt"
	"time"

	"github.com/MJE43/galactic-survival/internal/games"
	"github.com/MJE43/galactic-survival/internal/session"
)

// StopReason says why an autopilot run ended.
type StopReason string

const (
	StopGameOver StopReason = "game_over"
	StopScript   StopReason = "stopped"
	StopMaxTurns StopReason = "max_turns"
	StopCanceled StopReason = "canceled"
)

const (
	DefaultMaxTurns = 100
	MaxTurnsLimit   = 10000
)

// Player is the part of the session controller an autopilot drives.
type Player interface {
	Turn(ctx context.Context, playerName, action string) (session.TurnResult, error)
	ViewStatus(ctx context.Context, playerName string) (session.View, error)
}

// Options bound a run.
type Options struct {
	MaxTurns    int
	CallTimeout time.Duration
}

// Step is one turn taken by the autopilot.
type Step struct {
	Action games.Action      `json:"action"`
	Events []games.Event     `json:"events"`
	State  games.PlayerState `json:"state"`
}

// Report summarizes a finished run.
type Report struct {
	Player string            `json:"player"`
	Turns  int               `json:"turns"`
	Reason StopReason        `json:"reason"`
	Final  games.PlayerState `json:"final"`
	Steps  []Step            `json:"steps"`
	Logs   []LogEntry        `json:"logs"`
}

// Run plays the player's active mission with the script. The mission must
// already exist. The partial report is returned alongside any error.
func Run(ctx context.Context, p Player, playerName, source string, opts Options) (rep Report, err error) {
	maxTurns := opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if maxTurns > MaxTurnsLimit {
		maxTurns = MaxTurnsLimit
	}

	rep = Report{Player: playerName, Steps: []Step{}}
	view, err := p.ViewStatus(ctx, playerName)
	if err != nil {
		return rep, err
	}
	if view.State == nil {
		return rep, session.ErrNoMission
	}
	rep.Final = *view.State

	vm := NewVM(opts.CallTimeout)
	defer func() { rep.Logs = vm.Logs() }()

	if err := vm.Execute(source); err != nil {
		return rep, err
	}
	if !vm.HasDecide() {
		return rep, fmt.Errorf("decide() function is not defined")
	}

	var events []games.Event
	for {
		if rep.Final.IsGameOver() {
			rep.Reason = StopGameOver
			return rep, nil
		}
		if rep.Turns >= maxTurns {
			rep.Reason = StopMaxTurns
			return rep, nil
		}
		if ctx.Err() != nil {
			rep.Reason = StopCanceled
			return rep, nil
		}

		vm.SetState(rep.Final, events)
		action, err := vm.CallDecide()
		if err != nil {
			return rep, err
		}
		if vm.IsStopRequested() || action == "" {
			rep.Reason = StopScript
			return rep, nil
		}

		res, err := p.Turn(ctx, playerName, action)
		if err != nil {
			return rep, err
		}
		rep.Turns++
		rep.Final = res.State
		rep.Steps = append(rep.Steps, Step{Action: res.Action, Events: res.Events, State: res.State})
		events = res.Events
	}
}
