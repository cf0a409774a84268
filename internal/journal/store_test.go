package journal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/galactic-survival/internal/games"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func record(t *testing.T, s *Store, mission string, action games.Action, day int) Entry {
	t.Helper()
	st := games.NewMission("Nova", mission)
	st.DaysSurvived = day
	e, err := s.Append(context.Background(), Turn{MissionID: mission, PlayerName: "Nova", Action: action, State: st})
	require.NoError(t, err)
	return e
}

func TestAppendBuildsChain(t *testing.T) {
	s := newTestStore(t)

	first := record(t, s, "m-1", "", 0)
	second := record(t, s, "m-1", games.ActionMine, 1)
	other := record(t, s, "m-2", "", 0)

	assert.Equal(t, 0, first.Seq)
	assert.Equal(t, GenesisHash, first.PrevHash)
	assert.Equal(t, 1, second.Seq)
	assert.Equal(t, first.Hash, second.PrevHash)
	assert.Equal(t, 0, other.Seq, "chains are per mission")
	assert.NotEqual(t, first.Hash, other.Hash)
}

func TestEntriesRoundTrip(t *testing.T) {
	s := newTestStore(t)
	record(t, s, "m-1", "", 0)
	e, err := s.Append(context.Background(), Turn{
		MissionID:  "m-1",
		PlayerName: "Nova",
		Action:     games.ActionRest,
		Events:     []games.Event{{Kind: games.EventAsteroid, Message: "hit", Field: "health", Delta: -12}},
		State:      games.PlayerState{PlayerName: "Nova", Health: -2, DaysSurvived: 1},
		GameOver:   true,
	})
	require.NoError(t, err)
	assert.Greater(t, e.Size, 0)

	entries, err := s.Entries(context.Background(), "m-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	got := entries[1].Turn
	assert.Equal(t, games.ActionRest, got.Action)
	assert.True(t, got.GameOver)
	assert.Equal(t, -2, got.State.Health)
	require.Len(t, got.Events, 1)
	assert.Equal(t, -12, got.Events[0].Delta)
}

func TestVerifyDetectsTampering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for day := 0; day < 4; day++ {
		record(t, s, "m-1", games.ActionTravel, day)
	}

	v, err := s.Verify(ctx, "m-1")
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, 4, v.Entries)

	forged, err := compress([]byte(`{"mission_id":"m-1","player_name":"Nova","state":{"credits":999999}}`))
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, `UPDATE mission_journal SET payload = ? WHERE mission_id = ? AND seq = 2`, forged, "m-1")
	require.NoError(t, err)

	v, err = s.Verify(ctx, "m-1")
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, 2, v.BrokenAt)
	assert.Equal(t, "payload hash mismatch", v.Reason)
}

func TestVerifyDetectsDroppedTurn(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for day := 0; day < 3; day++ {
		record(t, s, "m-1", games.ActionMine, day)
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM mission_journal WHERE mission_id = ? AND seq = 1`, "m-1")
	require.NoError(t, err)

	v, err := s.Verify(ctx, "m-1")
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, 1, v.BrokenAt)
}

func TestVerifyEmptyMission(t *testing.T) {
	s := newTestStore(t)
	v, err := s.Verify(context.Background(), "none")
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Zero(t, v.Entries)
}

func TestAppendRequiresMission(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Append(context.Background(), Turn{PlayerName: "Nova"})
	assert.Error(t, err)
}

func TestLatestMission(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.LatestMission(ctx, "Nova")
	require.NoError(t, err)
	assert.Empty(t, id)

	record(t, s, "m-old", "", 0)
	record(t, s, "m-new", "", 0)
	id, err = s.LatestMission(ctx, "Nova")
	require.NoError(t, err)
	assert.Equal(t, "m-new", id)
}

func TestCompressRoundTrip(t *testing.T) {
	src := []byte(`{"hello":"galaxy","padding":"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}`)
	packed, err := compress(src)
	require.NoError(t, err)
	out, err := decompress(packed)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestFingerprint(t *testing.T) {
	assert.Len(t, Fingerprint("Nova"), 16)
	assert.Equal(t, Fingerprint("Nova"), Fingerprint("Nova"))
	assert.NotEqual(t, Fingerprint("Nova"), Fingerprint("Orion"))
}
