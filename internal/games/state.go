package games

import (
	"strings"
	"time"
)

// Starting values for a fresh mission.
const (
	StartCredits = 100
	StartOxygen  = 100
	StartFuel    = 100
	StartHealth  = 100
	StartPlanet  = 1

	// MaxGauge bounds oxygen, fuel and health after every action.
	MaxGauge = 100

	PlanetCount = 5
)

// PlayerState is the persisted record for one player's mission.
type PlayerState struct {
	PlayerName       string    `json:"player_name"`
	MissionID        string    `json:"mission_id,omitempty"`
	Credits          int       `json:"credits"`
	Oxygen           int       `json:"oxygen"`
	Fuel             int       `json:"fuel"`
	Health           int       `json:"health"`
	DistanceTraveled int       `json:"distance_traveled"`
	DaysSurvived     int       `json:"days_survived"`
	CurrentPlanet    int       `json:"current_planet"`
	LastUpdated      time.Time `json:"last_updated"`

	// LeaderboardRecorded is set once the mission's leaderboard row exists.
	// A ship revived after dying keeps it, so a mission is ranked once.
	LeaderboardRecorded bool `json:"leaderboard_recorded"`
}

// LeaderboardEntry is appended once when a mission ends.
type LeaderboardEntry struct {
	PlayerName       string `json:"player_name"`
	DaysSurvived     int    `json:"days_survived"`
	DistanceTraveled int    `json:"distance_traveled"`
}

// NewMission returns the initial state for a mission. The name is trimmed;
// callers reject empty names before persisting anything.
func NewMission(playerName, missionID string) PlayerState {
	return PlayerState{
		PlayerName:    strings.TrimSpace(playerName),
		MissionID:     missionID,
		Credits:       StartCredits,
		Oxygen:        StartOxygen,
		Fuel:          StartFuel,
		Health:        StartHealth,
		CurrentPlanet: StartPlanet,
	}
}

// IsGameOver reports whether any survival gauge has run out.
func (s PlayerState) IsGameOver() bool {
	return s.Health <= 0 || s.Oxygen <= 0 || s.Fuel <= 0
}

// Entry returns the leaderboard row for the state as it stands.
func (s PlayerState) Entry() LeaderboardEntry {
	return LeaderboardEntry{
		PlayerName:       s.PlayerName,
		DaysSurvived:     s.DaysSurvived,
		DistanceTraveled: s.DistanceTraveled,
	}
}

// HealthRatio is the fill level of the health bar, in [0, 1].
func (s PlayerState) HealthRatio() float64 {
	h := min(s.Health, MaxGauge)
	if h < 0 {
		h = 0
	}
	return float64(h) / MaxGauge
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
