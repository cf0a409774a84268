package api

import (
	"github.com/MJE43/galactic-survival/internal/games"
	"github.com/MJE43/galactic-survival/internal/journal"
	"github.com/MJE43/galactic-survival/internal/session"
)

// APIError represents a structured error response with context
type APIError struct {
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e APIError) Error() string {
	return e.Message
}

// Error types with proper categorization
const (
	// Input validation errors
	ErrTypeValidation = "validation_error"
	ErrTypeBadLimit   = "invalid_limit"

	// Game-related errors
	ErrTypeNoMission = "no_mission"
	ErrTypeScript    = "script_error"
	ErrTypeJournal   = "journal_unavailable"

	// System errors
	ErrTypeTimeout            = "timeout"
	ErrTypeInternal           = "internal_error"
	ErrTypeRateLimit          = "rate_limit_exceeded"
	ErrTypeServiceUnavailable = "service_unavailable"
)

// ErrorCategory represents error categories for monitoring
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryGame       ErrorCategory = "game"
	CategorySystem     ErrorCategory = "system"
	CategoryTimeout    ErrorCategory = "timeout"
)

// GetErrorCategory returns the category for an error type
func GetErrorCategory(errType string) ErrorCategory {
	switch errType {
	case ErrTypeValidation, ErrTypeBadLimit:
		return CategoryValidation
	case ErrTypeNoMission, ErrTypeScript, ErrTypeJournal:
		return CategoryGame
	case ErrTypeTimeout:
		return CategoryTimeout
	default:
		return CategorySystem
	}
}

// VersionInfo contains build version information
type VersionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
}

// StartMissionRequest starts or restarts a mission
type StartMissionRequest struct {
	PlayerName string `json:"player_name"`
}

// ActionRequest performs one turn
type ActionRequest struct {
	Action string `json:"action"`
}

// AutopilotRequest runs a script against the player's mission
type AutopilotRequest struct {
	Script        string `json:"script"`
	MaxTurns      int    `json:"max_turns,omitempty"`
	CallTimeoutMs int    `json:"call_timeout_ms,omitempty"`
}

// ActionsResponse lists the available actions
type ActionsResponse struct {
	Actions []games.ActionSpec `json:"actions"`
	Version string             `json:"version"`
}

// LeaderboardResponse is the top of the leaderboard
type LeaderboardResponse struct {
	Entries []games.LeaderboardEntry `json:"entries"`
	Limit   int                      `json:"limit"`
	Version string                   `json:"version"`
}

// JournalResponse is a mission's recorded turns and chain check
type JournalResponse struct {
	MissionID    string               `json:"mission_id"`
	Entries      []journal.Entry      `json:"entries"`
	Verification journal.Verification `json:"verification"`
}

// SeedResponse publishes the commitment to the server seed
type SeedResponse struct {
	ServerSeedHash string `json:"server_seed_hash"`
	Version        string `json:"version"`
}

// ViewResponse wraps a session view
type ViewResponse struct {
	session.View
	Version string `json:"version"`
}
