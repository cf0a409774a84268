// Package journal keeps an append-only, tamper-evident record of every turn
// of a mission. Each record is JSON, lz4-compressed, and chained to the
// previous one with blake3 so a rewritten or dropped turn breaks Verify.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/MJE43/galactic-survival/internal/games"
)

// Turn is what gets recorded for one step of a mission. Action is empty for
// the mission start record.
type Turn struct {
	MissionID  string            `json:"mission_id"`
	PlayerName string            `json:"player_name"`
	Action     games.Action      `json:"action,omitempty"`
	Events     []games.Event     `json:"events,omitempty"`
	State      games.PlayerState `json:"state"`
	GameOver   bool              `json:"game_over"`
	RecordedAt time.Time         `json:"recorded_at"`
}

// Entry is a stored turn with its chain position.
type Entry struct {
	ID       string `json:"id"`
	Seq      int    `json:"seq"`
	PrevHash string `json:"prev_hash"`
	Hash     string `json:"hash"`
	Size     int    `json:"size"`
	Turn     Turn   `json:"turn"`
}

// Verification is the outcome of recomputing a mission's chain.
type Verification struct {
	MissionID string `json:"mission_id"`
	Entries   int    `json:"entries"`
	Valid     bool   `json:"valid"`
	BrokenAt  int    `json:"broken_at,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Store persists journal entries in SQLite.
type Store struct {
	db    *sql.DB
	owned bool
	now   func() time.Time
}

// New opens a journal in its own SQLite file.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: enable WAL: %w", err)
	}
	return &Store{db: db, owned: true, now: time.Now}, nil
}

// NewFromDB wraps an existing sql.DB, typically the game store's own handle.
func NewFromDB(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Close closes the handle if the journal opened it.
func (s *Store) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}

// Migrate creates the journal table.
func (s *Store) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS mission_journal (
			id TEXT PRIMARY KEY,
			mission_id TEXT NOT NULL,
			player_name TEXT NOT NULL,
			seq INTEGER NOT NULL,
			prev_hash TEXT NOT NULL,
			hash TEXT NOT NULL,
			payload BLOB NOT NULL,
			raw_size INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			UNIQUE (mission_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mission_journal_player ON mission_journal(player_name, created_at)`,
	}
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("journal: migration failed: %w", err)
		}
	}
	return nil
}

// Append records a turn at the end of its mission's chain.
func (s *Store) Append(ctx context.Context, turn Turn) (Entry, error) {
	if turn.MissionID == "" {
		return Entry{}, fmt.Errorf("journal: mission id is required")
	}
	if turn.RecordedAt.IsZero() {
		turn.RecordedAt = s.now().UTC()
	}

	raw, err := json.Marshal(turn)
	if err != nil {
		return Entry{}, fmt.Errorf("journal: encode turn: %w", err)
	}
	payload, err := compress(raw)
	if err != nil {
		return Entry{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("journal: begin: %w", err)
	}
	defer tx.Rollback()

	seq, prev := 0, GenesisHash
	err = tx.QueryRowContext(ctx,
		`SELECT seq, hash FROM mission_journal WHERE mission_id = ? ORDER BY seq DESC LIMIT 1`,
		turn.MissionID).Scan(&seq, &prev)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		seq, prev = 0, GenesisHash
	case err != nil:
		return Entry{}, fmt.Errorf("journal: read chain head: %w", err)
	default:
		seq++
	}

	e := Entry{
		ID:       uuid.NewString(),
		Seq:      seq,
		PrevHash: prev,
		Hash:     hashChain(prev, payload),
		Size:     len(raw),
		Turn:     turn,
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO mission_journal (id, mission_id, player_name, seq, prev_hash, hash, payload, raw_size, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, turn.MissionID, turn.PlayerName, e.Seq, e.PrevHash, e.Hash, payload, e.Size, turn.RecordedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("journal: insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("journal: commit: %w", err)
	}
	return e, nil
}

type storedEntry struct {
	Entry
	payload []byte
}

func (s *Store) load(ctx context.Context, missionID string) ([]storedEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, seq, prev_hash, hash, payload, raw_size FROM mission_journal WHERE mission_id = ? ORDER BY seq`,
		missionID)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	var out []storedEntry
	for rows.Next() {
		var se storedEntry
		if err := rows.Scan(&se.ID, &se.Seq, &se.PrevHash, &se.Hash, &se.payload, &se.Size); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		out = append(out, se)
	}
	return out, rows.Err()
}

// Entries returns a mission's decoded turns in order.
func (s *Store) Entries(ctx context.Context, missionID string) ([]Entry, error) {
	stored, err := s.load(ctx, missionID)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(stored))
	for _, se := range stored {
		raw, err := decompress(se.payload)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &se.Turn); err != nil {
			return nil, fmt.Errorf("journal: decode entry %d: %w", se.Seq, err)
		}
		entries = append(entries, se.Entry)
	}
	return entries, nil
}

// Verify recomputes the hash chain of a mission.
func (s *Store) Verify(ctx context.Context, missionID string) (Verification, error) {
	stored, err := s.load(ctx, missionID)
	if err != nil {
		return Verification{}, err
	}

	v := Verification{MissionID: missionID, Entries: len(stored), Valid: true}
	prev := GenesisHash
	for i, se := range stored {
		switch {
		case se.Seq != i:
			v.Valid, v.BrokenAt, v.Reason = false, i, fmt.Sprintf("expected seq %d, found %d", i, se.Seq)
		case se.PrevHash != prev:
			v.Valid, v.BrokenAt, v.Reason = false, i, "previous hash mismatch"
		case hashChain(prev, se.payload) != se.Hash:
			v.Valid, v.BrokenAt, v.Reason = false, i, "payload hash mismatch"
		}
		if !v.Valid {
			return v, nil
		}
		prev = se.Hash
	}
	return v, nil
}

// LatestMission returns the most recently journaled mission for a player.
func (s *Store) LatestMission(ctx context.Context, playerName string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT mission_id FROM mission_journal WHERE player_name = ? ORDER BY rowid DESC LIMIT 1`,
		playerName).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("journal: latest mission: %w", err)
	}
	return id, nil
}
