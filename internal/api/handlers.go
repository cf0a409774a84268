package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/galactic-survival/internal/games"
	"github.com/MJE43/galactic-survival/internal/scripting"
	"github.com/MJE43/galactic-survival/internal/session"
	"github.com/MJE43/galactic-survival/internal/store"
)

const (
	maxBodyBytes   = 64 << 10
	maxScriptBytes = 32 << 10
)

// decodeBody reads a JSON body; an empty body leaves dst untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, ActionsResponse{
		Actions: games.ListActions(),
		Version: Version,
	})
}

func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, SeedResponse{
		ServerSeedHash: s.game.SeedHash(),
		Version:        Version,
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	// Zero lets the controller apply the configured leaderboard size.
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > store.MaxLeaderboardLimit {
			s.errorHandler.HandleValidationError(w, r, "limit", "limit must be an integer between 1 and 100")
			return
		}
		limit = n
	}

	entries, err := s.game.ViewLeaderboard(r.Context(), limit)
	s.ops.record("leaderboard", start, err)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	if limit == 0 {
		limit = s.game.LeaderboardSize()
	}
	s.writeJSON(w, http.StatusOK, LeaderboardResponse{Entries: entries, Limit: limit, Version: Version})
}

func (s *Server) handleStartMission(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req StartMissionRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.PlayerName) == "" {
		s.errorHandler.HandleValidationError(w, r, "player_name", "player_name is required")
		return
	}

	view, err := s.game.StartMission(r.Context(), req.PlayerName)
	s.ops.record("start_mission", start, err)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}

	s.securityLogger.LogAuditEvent(middleware.GetReqID(r.Context()), "mission_start", "mission", "success",
		map[string]interface{}{"player_name": view.Player})
	s.writeJSON(w, http.StatusCreated, ViewResponse{View: view, Version: Version})
}

func (s *Server) handleMissionStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	view, err := s.game.ViewStatus(r.Context(), chi.URLParam(r, "player"))
	s.ops.record("status", start, err)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	if view.State == nil {
		s.errorHandler.HandleError(w, r, noMission(r), http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, ViewResponse{View: view, Version: Version})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req ActionRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON body")
		return
	}

	player := chi.URLParam(r, "player")
	view, err := s.game.PerformAction(r.Context(), player, req.Action)
	s.ops.record("action", start, err)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}

	s.securityLogger.LogAuditEvent(middleware.GetReqID(r.Context()), "action", "mission", string(view.Status),
		map[string]interface{}{
			"player_name": player,
			"action":      req.Action,
			"events":      len(view.Events),
		})
	s.writeJSON(w, http.StatusOK, ViewResponse{View: view, Version: Version})
}

func (s *Server) handleAutopilot(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req AutopilotRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Script) == "" {
		s.errorHandler.HandleValidationError(w, r, "script", "script is required")
		return
	}
	if len(req.Script) > maxScriptBytes {
		s.errorHandler.HandleValidationError(w, r, "script", "script is too large")
		return
	}

	maxTurns := req.MaxTurns
	if s.maxTurns > 0 && (maxTurns <= 0 || maxTurns > s.maxTurns) {
		maxTurns = s.maxTurns
	}

	player := chi.URLParam(r, "player")
	report, err := scripting.Run(r.Context(), s.game, player, req.Script, scripting.Options{
		MaxTurns:    maxTurns,
		CallTimeout: time.Duration(req.CallTimeoutMs) * time.Millisecond,
	})
	s.ops.record("autopilot", start, err)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) || errors.Is(err, session.ErrNoMission) {
			s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
			return
		}
		s.errorHandler.HandleScriptError(w, r, report.Turns, err)
		return
	}

	s.securityLogger.LogAuditEvent(middleware.GetReqID(r.Context()), "autopilot", "mission", string(report.Reason),
		map[string]interface{}{"player_name": player, "turns": report.Turns})
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if s.journal == nil {
		s.errorHandler.HandleError(w, r,
			NewError(ErrTypeJournal, "Turn journal is disabled").
				WithRequestID(middleware.GetReqID(r.Context())).
				Build(),
			http.StatusNotFound)
		return
	}

	player := chi.URLParam(r, "player")
	view, err := s.game.ViewStatus(r.Context(), player)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	missionID := ""
	if view.State != nil {
		missionID = view.State.MissionID
	}
	if missionID == "" {
		if missionID, err = s.journal.LatestMission(r.Context(), view.Player); err != nil {
			s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
			return
		}
	}
	if missionID == "" {
		s.errorHandler.HandleError(w, r, noMission(r), http.StatusNotFound)
		return
	}

	resp := JournalResponse{MissionID: missionID}
	resp.Entries, err = s.journal.Entries(r.Context(), missionID)
	if err == nil {
		resp.Verification, err = s.journal.Verify(r.Context(), missionID)
	}
	s.ops.record("journal", start, err)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func noMission(r *http.Request) APIError {
	return NewError(ErrTypeNoMission, "No active mission for this player. Start a mission first.").
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("path", routePattern(r)).
		Build()
}
