package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/galactic-survival/internal/games"
	"github.com/MJE43/galactic-survival/internal/journal"
	"github.com/MJE43/galactic-survival/internal/session"
	"github.com/MJE43/galactic-survival/internal/store"
)

// JournalReader is the read side of the turn journal.
type JournalReader interface {
	Entries(ctx context.Context, missionID string) ([]journal.Entry, error)
	Verify(ctx context.Context, missionID string) (journal.Verification, error)
	LatestMission(ctx context.Context, playerName string) (string, error)
}

// Options configure a Server. Zero values disable the optional parts.
type Options struct {
	// DB is pinged by the health endpoints.
	DB      store.DB
	Journal JournalReader

	RateLimit float64
	RateBurst int

	AutopilotMaxTurns int
	RequestTimeout    time.Duration
	Logger            *log.Logger
}

// Server handles HTTP requests
type Server struct {
	game           *session.Controller
	db             store.DB
	journal        JournalReader
	errorHandler   *ErrorHandler
	logger         *log.Logger
	securityLogger *SecurityLogger
	limiter        *clientLimiter
	ops            *opRecorder
	maxTurns       int
	timeout        time.Duration
	startTime      time.Time
}

// NewServer creates a new API server
func NewServer(game *session.Controller, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[API] ", log.LstdFlags|log.Lshortfile)
	}
	securityLogger := NewSecurityLogger()

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	server := &Server{
		game:           game,
		db:             opts.DB,
		journal:        opts.Journal,
		errorHandler:   NewErrorHandler(logger, securityLogger),
		logger:         logger,
		securityLogger: securityLogger,
		ops:            newOpRecorder(),
		maxTurns:       opts.AutopilotMaxTurns,
		timeout:        timeout,
		startTime:      time.Now(),
	}
	if opts.RateLimit > 0 {
		server.limiter = newClientLimiter(opts.RateLimit, opts.RateBurst)
	}

	securityLogger.LogSystemStartup("unknown", map[string]interface{}{
		"actions_available": len(games.ListActions()),
		"store_enabled":     server.db != nil,
		"journal_enabled":   server.journal != nil,
		"rate_limited":      server.limiter != nil,
	})

	return server
}

// Routes sets up the HTTP routes with proper middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.SecurityLoggingMiddleware)
	r.Use(s.errorHandler.RecoveryHandler)
	r.Use(middleware.Timeout(s.timeout))
	if s.limiter != nil {
		r.Use(s.RateLimitMiddleware)
	}

	// Health and monitoring endpoints
	r.Get("/health", s.handleHealthCheck)
	r.Get("/health/ready", s.handleReadiness)
	r.Get("/health/live", s.handleLiveness)
	r.Get("/metrics", s.handleMetrics)

	// Browser page
	r.Get("/", s.handlePage)
	r.Post("/mission", s.handlePageStart)
	r.Post("/action", s.handlePageAction)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.CORSMiddleware)
		r.Get("/actions", s.handleListActions)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/seed", s.handleSeed)
		r.Post("/missions", s.handleStartMission)
		r.Route("/missions/{player}", func(r chi.Router) {
			r.Get("/", s.handleMissionStatus)
			r.Post("/actions", s.handleAction)
			r.Post("/autopilot", s.handleAutopilot)
			r.Get("/journal", s.handleJournal)
		})
	})

	return r
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Galactic-Version", Version)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Printf("response_write_failed error=%q", err)
	}
}
