// Package session runs one player interaction at a time: load the stored
// state, apply the action, persist, detect the end of the mission and
// record it on the leaderboard, then return a fresh view.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MJE43/galactic-survival/internal/engine"
	"github.com/MJE43/galactic-survival/internal/games"
	"github.com/MJE43/galactic-survival/internal/journal"
	"github.com/MJE43/galactic-survival/internal/store"
)

// ErrNoMission is returned for actions by a player who never started one.
var ErrNoMission = errors.New("no active mission")

// Journal receives a record of every persisted turn.
type Journal interface {
	Append(ctx context.Context, turn journal.Turn) (journal.Entry, error)
}

// SourceFunc returns the random source for the next turn of st.
type SourceFunc func(st games.PlayerState) engine.Source

// Config holds the tunables of a controller.
type Config struct {
	// ServerSeed keys the per-turn random streams. Empty picks a random seed.
	ServerSeed string
	// LeaderboardSize is the number of rows a view carries. Defaults to 5.
	LeaderboardSize int
	// EventChance overrides the hazard probability; zero keeps the default.
	EventChance float64
}

// Option customizes a Controller.
type Option func(*Controller)

// WithJournal records every turn in j.
func WithJournal(j Journal) Option {
	return func(c *Controller) { c.journal = j }
}

// WithSource replaces the seeded per-turn random streams.
func WithSource(fn SourceFunc) Option {
	return func(c *Controller) { c.sources = fn }
}

// WithLogger replaces the default stdout logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithMissionIDs replaces the uuid mission id generator.
func WithMissionIDs(fn func() string) Option {
	return func(c *Controller) { c.newID = fn }
}

// Controller is safe for concurrent use by different players. Two
// concurrent turns for the same player race on the stored row.
type Controller struct {
	db              store.DB
	rules           games.Engine
	seed            string
	leaderboardSize int
	journal         Journal
	sources         SourceFunc
	newID           func() string
	logger          *log.Logger
	tracer          trace.Tracer
}

// NewController creates a controller over db.
func NewController(db store.DB, cfg Config, opts ...Option) (*Controller, error) {
	if db == nil {
		return nil, fmt.Errorf("session: store is required")
	}
	seed := cfg.ServerSeed
	if seed == "" {
		var err error
		if seed, err = engine.NewSeed(); err != nil {
			return nil, err
		}
	}

	c := &Controller{
		db:              db,
		rules:           games.Engine{EventChance: cfg.EventChance},
		seed:            seed,
		leaderboardSize: store.NormalizeLimit(cfg.LeaderboardSize),
		newID:           uuid.NewString,
		logger:          log.New(os.Stdout, "[SESSION] ", log.LstdFlags|log.Lshortfile),
		tracer:          otel.Tracer("github.com/MJE43/galactic-survival/internal/session"),
	}
	c.sources = c.seededSource
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard, "", 0)
	}
	return c, nil
}

// SeedHash is the public commitment to the server seed.
func (c *Controller) SeedHash() string {
	return engine.HashSeed(c.seed)
}

func (c *Controller) seededSource(st games.PlayerState) engine.Source {
	client := st.MissionID
	if client == "" {
		client = st.PlayerName
	}
	return engine.NewTurnSource(c.seed, client, st.DaysSurvived)
}

func (c *Controller) startSpan(ctx context.Context, name, player string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "session."+name, trace.WithAttributes(
		attribute.String("player.fingerprint", journal.Fingerprint(player)),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// StartMission resets the player's state. An empty name changes nothing and
// is not an error.
func (c *Controller) StartMission(ctx context.Context, playerName string) (view View, err error) {
	name := strings.TrimSpace(playerName)
	ctx, span := c.startSpan(ctx, "StartMission", name)
	defer func() { endSpan(span, err) }()

	if name == "" {
		return c.render(ctx, "", View{})
	}

	st := games.NewMission(name, c.newID())
	if err := c.db.UpsertState(ctx, st); err != nil {
		c.logger.Printf("mission_start_failed player=%s error=%q", journal.Fingerprint(name), err)
		return View{}, err
	}
	c.record(ctx, journal.Turn{MissionID: st.MissionID, PlayerName: name, State: st})
	c.logger.Printf("mission_started player=%s mission=%s", journal.Fingerprint(name), st.MissionID)

	return c.render(ctx, name, View{Notices: []Notice{{Level: LevelSuccess, Text: MissionStartedText}}})
}

// Turn applies one action and persists it without rendering a view.
func (c *Controller) Turn(ctx context.Context, playerName, action string) (res TurnResult, err error) {
	name := strings.TrimSpace(playerName)
	ctx, span := c.startSpan(ctx, "Turn", name)
	defer func() { endSpan(span, err) }()

	if name == "" {
		return TurnResult{}, ErrNoMission
	}
	prev, err := c.db.ReadState(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return TurnResult{}, ErrNoMission
	}
	if err != nil {
		return TurnResult{}, err
	}

	a, known := games.ParseAction(action)
	next, events := c.rules.Apply(prev, a, c.sources(prev))
	span.SetAttributes(
		attribute.String("action", string(a)),
		attribute.Int("day", next.DaysSurvived),
		attribute.Int("events", len(events)),
	)

	// A revived ship that dies again is not ranked a second time.
	ended := next.IsGameOver() && !prev.LeaderboardRecorded
	var entry *games.LeaderboardEntry
	if ended {
		next.LeaderboardRecorded = true
		e := next.Entry()
		entry = &e
	}
	if err := c.db.CommitTurn(ctx, next, entry); err != nil {
		c.logger.Printf("turn_aborted player=%s action=%s ended=%t error=%q", journal.Fingerprint(name), a, ended, err)
		return TurnResult{}, err
	}

	res = TurnResult{
		Action:   a,
		Known:    known,
		State:    next,
		Events:   events,
		GameOver: next.IsGameOver(),
		Ended:    ended,
	}

	c.record(ctx, journal.Turn{
		MissionID:  next.MissionID,
		PlayerName: name,
		Action:     a,
		Events:     events,
		State:      next,
		GameOver:   res.GameOver,
	})
	c.logger.Printf("turn_applied player=%s action=%s known=%t day=%d events=%d game_over=%t",
		journal.Fingerprint(name), a, known, next.DaysSurvived, len(events), res.GameOver)
	return res, nil
}

// PerformAction runs one turn and returns the refreshed view. Unknown
// actions still cost a day.
func (c *Controller) PerformAction(ctx context.Context, playerName, action string) (View, error) {
	res, err := c.Turn(ctx, playerName, action)
	if err != nil {
		return View{}, err
	}
	return c.render(ctx, strings.TrimSpace(playerName), View{Notices: res.Notices(), Events: res.Events})
}

// ViewStatus renders the player's current state without changing it.
func (c *Controller) ViewStatus(ctx context.Context, playerName string) (view View, err error) {
	name := strings.TrimSpace(playerName)
	ctx, span := c.startSpan(ctx, "ViewStatus", name)
	defer func() { endSpan(span, err) }()
	return c.render(ctx, name, View{})
}

// LeaderboardSize is the row count used when no limit is given.
func (c *Controller) LeaderboardSize() int { return c.leaderboardSize }

// ViewLeaderboard returns the top limit finished missions; limit <= 0
// uses the configured size.
func (c *Controller) ViewLeaderboard(ctx context.Context, limit int) (entries []games.LeaderboardEntry, err error) {
	ctx, span := c.tracer.Start(ctx, "session.ViewLeaderboard")
	defer func() { endSpan(span, err) }()

	if limit <= 0 {
		limit = c.leaderboardSize
	}
	return c.db.ReadLeaderboard(ctx, limit)
}

func (c *Controller) render(ctx context.Context, player string, v View) (View, error) {
	v.Player = player
	v.Status = StatusNoMission
	if player != "" {
		st, err := c.db.ReadState(ctx, player)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return View{}, err
		default:
			v.State = &st
			v.Status = StatusOf(&st)
		}
	}

	board, err := c.db.ReadLeaderboard(ctx, c.leaderboardSize)
	if err != nil {
		return View{}, err
	}
	v.Leaderboard = board
	if v.Notices == nil {
		v.Notices = []Notice{}
	}
	if v.Events == nil {
		v.Events = []games.Event{}
	}
	return v, nil
}

// record journals a turn. Failures are logged and never fail the turn.
func (c *Controller) record(ctx context.Context, turn journal.Turn) {
	if c.journal == nil || turn.MissionID == "" {
		return
	}
	if _, err := c.journal.Append(ctx, turn); err != nil {
		c.logger.Printf("journal_append_failed mission=%s error=%q", turn.MissionID, err)
	}
}
