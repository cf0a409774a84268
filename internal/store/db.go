package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/MJE43/galactic-survival/internal/games"
)

var (
	// ErrNotFound is returned by ReadState when the player has no row.
	ErrNotFound = errors.New("player state not found")
	// ErrUnavailable wraps every failure to reach or use the backing store.
	ErrUnavailable = errors.New("store unavailable")
)

// DB is the persistence boundary of the game.
type DB interface {
	Close() error
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error

	// ReadState returns ErrNotFound when the player has no mission row.
	ReadState(ctx context.Context, playerName string) (games.PlayerState, error)
	// UpsertState inserts or fully replaces the row keyed by player name and
	// refreshes last_updated.
	UpsertState(ctx context.Context, s games.PlayerState) error
	AppendLeaderboard(ctx context.Context, e games.LeaderboardEntry) error
	// CommitTurn upserts s and, when e is non-nil, appends e. Either both
	// writes land or neither does.
	CommitTurn(ctx context.Context, s games.PlayerState, e *games.LeaderboardEntry) error
	// ReadLeaderboard returns at most limit rows by days survived, highest first.
	ReadLeaderboard(ctx context.Context, limit int) ([]games.LeaderboardEntry, error)
}

// Tables names the two game tables. Catalog and Schema are only used by
// backends with three-part names.
type Tables struct {
	Catalog     string
	Schema      string
	Game        string
	Leaderboard string
}

// DefaultTables returns the table names used when nothing is configured.
func DefaultTables() Tables {
	return Tables{
		Catalog:     "drew_triplett",
		Schema:      "space_explorer",
		Game:        "galactic_survival_game",
		Leaderboard: "galactic_survival_leaderboard",
	}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate rejects names that cannot be interpolated into SQL safely.
func (t Tables) Validate() error {
	for field, v := range map[string]string{"game": t.Game, "leaderboard": t.Leaderboard} {
		if !identRe.MatchString(v) {
			return fmt.Errorf("invalid %s table name %q", field, v)
		}
	}
	for field, v := range map[string]string{"catalog": t.Catalog, "schema": t.Schema} {
		if v != "" && !identRe.MatchString(v) {
			return fmt.Errorf("invalid %s name %q", field, v)
		}
	}
	return nil
}

// Qualified returns catalog.schema.name, skipping empty parts.
func (t Tables) Qualified(name string) string {
	out := name
	if t.Schema != "" {
		out = t.Schema + "." + out
	}
	if t.Catalog != "" {
		out = t.Catalog + "." + out
	}
	return out
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

// NormalizeLimit applies the leaderboard page bounds.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLeaderboardLimit
	case limit > MaxLeaderboardLimit:
		return MaxLeaderboardLimit
	}
	return limit
}

const (
	DefaultLeaderboardLimit = 5
	MaxLeaderboardLimit     = 100
)
