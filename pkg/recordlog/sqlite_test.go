package recordlog_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yapay-ai/token-timeline/pkg/model"
	"github.com/yapay-ai/token-timeline/pkg/recordlog"
)

func openTestLog(t *testing.T) *recordlog.SQLite {
	t.Helper()
	log, err := recordlog.NewSQLite(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return log
}

func TestSQLite_AppendAndReplay(t *testing.T) {
	log := openTestLog(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	records := []model.UsageRecord{
		{Timestamp: base.Add(time.Minute), Provider: "anthropic", Model: "claude-3.5-sonnet", InputTokens: 200, OutputTokens: 80, CostUSD: 0.10},
		{Timestamp: base, Provider: "openai", Model: "gpt-4o", InputTokens: 100, OutputTokens: 40, CacheReadTokens: 10, CostUSD: 0.05},
	}
	require.NoError(t, log.Append(ctx, records))

	got, err := log.Replay(ctx, base.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Replay is ordered by timestamp regardless of insert order.
	assert.Equal(t, "openai", got[0].Provider)
	assert.Equal(t, "anthropic", got[1].Provider)
	assert.Equal(t, int64(100), got[0].InputTokens)
	assert.Equal(t, int64(10), got[0].CacheReadTokens)
	assert.InDelta(t, 0.05, got[0].CostUSD, 1e-9)
	assert.True(t, got[0].Timestamp.Equal(base))
}

func TestSQLite_ReplayHonorsSince(t *testing.T) {
	log := openTestLog(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, log.Append(ctx, []model.UsageRecord{
		{Timestamp: base, Provider: "openai", Model: "gpt-4o", InputTokens: 1},
		{Timestamp: base.Add(2 * time.Hour), Provider: "openai", Model: "gpt-4o", InputTokens: 2},
	}))

	got, err := log.Replay(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].InputTokens)
}

func TestSQLite_AppendEmptyIsNoop(t *testing.T) {
	log := openTestLog(t)
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, nil))

	got, err := log.Replay(ctx, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLite_AppendFillsZeroTimestamp(t *testing.T) {
	log := openTestLog(t)
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, []model.UsageRecord{
		{Provider: "openai", Model: "gpt-4o", InputTokens: 5},
	}))

	got, err := log.Replay(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestSQLite_Prune(t *testing.T) {
	log := openTestLog(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, log.Append(ctx, []model.UsageRecord{
		{Timestamp: base, Provider: "openai", Model: "gpt-4o", InputTokens: 1},
		{Timestamp: base.Add(time.Hour), Provider: "openai", Model: "gpt-4o", InputTokens: 2},
		{Timestamp: base.Add(2 * time.Hour), Provider: "openai", Model: "gpt-4o", InputTokens: 3},
	}))

	removed, err := log.Prune(ctx, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	got, err := log.Replay(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].InputTokens)
}

func TestSQLite_ReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	ctx := context.Background()

	log, err := recordlog.NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, log.Append(ctx, []model.UsageRecord{
		{Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC), Provider: "openai", Model: "gpt-4o", InputTokens: 7},
	}))
	require.NoError(t, log.Close())

	reopened, err := recordlog.NewSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Replay(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].InputTokens)
}
