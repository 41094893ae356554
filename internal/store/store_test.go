package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	mode, err := s.pragma("journal_mode")
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)

	timeout, err := s.pragma("busy_timeout")
	require.NoError(t, err)
	assert.Equal(t, "5000", timeout)

	version, err := s.pragma("user_version")
	require.NoError(t, err)
	assert.Equal(t, "1", version)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Record(context.Background(), Execution{ID: "a", Operation: "query", Entity: "task", Outcome: OutcomeSuccess}))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	got, err := s2.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRecordAndRecent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, Execution{
		ID: "r1", RequestKey: "k1", Operation: "query", Entity: "task",
		Strategy: "DirectRead", Outcome: OutcomeSuccess, DurationMs: 42,
		ScriptDigest: "abc", RecordedAt: at,
	}))
	require.NoError(t, s.Record(ctx, Execution{
		ID: "r2", RequestKey: "k1", Operation: "query", Entity: "task",
		Outcome: OutcomeSuccess, FromCache: true, RecordedAt: at.Add(time.Second),
	}))
	require.NoError(t, s.Record(ctx, Execution{
		ID: "r3", Operation: "update", Entity: "task", Strategy: "BridgeEvaluation",
		Outcome: OutcomeFailure, ErrorKind: "ScriptTimeout", RecordedAt: at.Add(2 * time.Second),
	}))

	got, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r3", got[0].ID)
	assert.Equal(t, "ScriptTimeout", got[0].ErrorKind)
	assert.Equal(t, "r2", got[1].ID)
	assert.True(t, got[1].FromCache)
	assert.Greater(t, got[0].Seq, got[1].Seq)

	all, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(42), all[2].DurationMs)
	assert.True(t, at.Equal(all[2].RecordedAt))
}

func TestSummary(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	for _, e := range []Execution{
		{ID: "1", Operation: "query", Entity: "task", Strategy: "DirectRead", Outcome: OutcomeSuccess},
		{ID: "2", Operation: "query", Entity: "task", Strategy: "DirectRead", Outcome: OutcomeSuccess},
		{ID: "3", Operation: "create", Entity: "task", Strategy: "Hybrid", Outcome: OutcomeUnknown},
	} {
		require.NoError(t, s.Record(ctx, e))
	}

	rows, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, []SummaryRow{
		{Strategy: "DirectRead", Outcome: OutcomeSuccess, Count: 2},
		{Strategy: "Hybrid", Outcome: OutcomeUnknown, Count: 1},
	}, rows)
}
