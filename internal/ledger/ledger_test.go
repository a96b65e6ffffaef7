package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	s, err := Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	kst := time.FixedZone("+09:00", 9*3600)
	base := time.Date(2024, 5, 1, 20, 0, 0, 0, kst)

	require.NoError(t, s.Record(ctx, Entry{
		ID: "a", ChannelID: "c1", ChannelName: "streamer", OutputDir: "/rec/a",
		StartedAt: base, Duration: 10 * time.Second, Outcome: OutcomeDiscarded,
	}))
	require.NoError(t, s.Record(ctx, Entry{
		ID: "b", ChannelID: "c1", ChannelName: "streamer", OutputDir: "/rec/b",
		StartedAt: base.Add(time.Hour), Duration: 90 * time.Minute, Outcome: OutcomeKept,
		Chapters: 3, FinalizeError: "mkvpropedit: exit status 2",
	}))

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, OutcomeKept, got[0].Outcome)
	assert.Equal(t, 90*time.Minute, got[0].Duration)
	assert.Equal(t, 3, got[0].Chapters)
	assert.Equal(t, "mkvpropedit: exit status 2", got[0].FinalizeError)
	assert.True(t, got[0].StartedAt.Equal(base.Add(time.Hour)))
	assert.Equal(t, "a", got[1].ID)

	limited, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecordUpsert(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer s.Close()

	e := Entry{ID: "x", ChannelID: "c", ChannelName: "n", OutputDir: "/d", StartedAt: time.Now(), Outcome: OutcomeInterrupted}
	require.NoError(t, s.Record(ctx, e))
	e.Outcome = OutcomeKept
	require.NoError(t, s.Record(ctx, e))

	got, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, OutcomeKept, got[0].Outcome)
}

func TestClosedStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Record(ctx, Entry{ID: "x"}), ErrClosed)
	_, err = s.Recent(ctx, 1)
	assert.ErrorIs(t, err, ErrClosed)

	issues, err := Verify(path)
	require.NoError(t, err)
	assert.Nil(t, issues)
}
