package session

import "github.com/MJE43/galactic-survival/internal/games"

// Status is where a player's mission stands.
type Status string

const (
	StatusNoMission Status = "no_mission"
	StatusActive    Status = "active"
	StatusGameOver  Status = "game_over"
)

// StatusOf derives the status from a stored state; nil means no mission.
func StatusOf(st *games.PlayerState) Status {
	switch {
	case st == nil:
		return StatusNoMission
	case st.IsGameOver():
		return StatusGameOver
	}
	return StatusActive
}

// Notice levels, matching how the page styles them.
const (
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
	LevelInfo    = "info"
)

// Notice is one message for the player.
type Notice struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Player-facing copy.
const (
	MissionStartedText   = "Mission started! Explore the galaxy!"
	GameOverText         = "Game Over! Your space journey has come to an end."
	EmptyLeaderboardText = "No leaderboard data yet. Be the first to explore the galaxy!"
)

// View is everything needed to render the page after one interaction.
type View struct {
	Player      string                   `json:"player,omitempty"`
	Status      Status                   `json:"status"`
	State       *games.PlayerState       `json:"state,omitempty"`
	Notices     []Notice                 `json:"notices"`
	Events      []games.Event            `json:"events"`
	Leaderboard []games.LeaderboardEntry `json:"leaderboard"`
}

// TurnResult is the outcome of one applied action, before rendering.
type TurnResult struct {
	Action   games.Action      `json:"action"`
	Known    bool              `json:"known"`
	State    games.PlayerState `json:"state"`
	Events   []games.Event     `json:"events"`
	GameOver bool              `json:"game_over"`
	// Ended is true only on the turn that ended the mission.
	Ended bool `json:"ended"`
}

// Notices returns the messages the turn should surface, in display order.
func (r TurnResult) Notices() []Notice {
	var out []Notice
	if r.Known {
		if rule, ok := games.GetRule(r.Action); ok {
			out = append(out, Notice{Level: LevelSuccess, Text: rule.Spec().Outcome})
		}
	}
	for _, e := range r.Events {
		out = append(out, Notice{Level: LevelWarning, Text: e.Message})
	}
	if r.GameOver {
		out = append(out, Notice{Level: LevelError, Text: GameOverText})
	}
	return out
}
