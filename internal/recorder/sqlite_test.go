package recorder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SMCSentinel/internal/model"
)

func openTemp(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRecorderRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := openTemp(t)
	base := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, r.RecordBias(ctx, model.BiasRecord{
			RunID:           "run-" + string(rune('a'+i)),
			Date:            base.Add(time.Duration(i) * time.Hour),
			Symbol:          "EURUSD",
			Direction:       model.Bullish,
			Confidence:      60 + float64(i),
			ConfidenceLevel: model.ConfidenceMedium,
			BullishScore:    60 + float64(i),
			BearishScore:    5,
			SignalCount:     4 + i,
		}))
	}
	require.NoError(t, r.RecordBias(ctx, model.BiasRecord{
		RunID: "other", Date: base, Symbol: "GBPUSD", Direction: model.Neutral,
		ConfidenceLevel: model.ConfidenceNeutral,
	}))

	got, err := r.RecentBias(ctx, "EURUSD", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "run-c", got[0].RunID)
	assert.Equal(t, base.Add(2*time.Hour), got[0].Date)
	assert.Equal(t, model.Bullish, got[0].Direction)
	assert.Equal(t, model.ConfidenceMedium, got[0].ConfidenceLevel)
	assert.Equal(t, 62.0, got[0].Confidence)
	assert.Equal(t, 6, got[0].SignalCount)
	assert.Equal(t, "run-b", got[1].RunID)

	none, err := r.RecentBias(ctx, "XAUUSD", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecordAnalysis(t *testing.T) {
	ctx := context.Background()
	r := openTemp(t)
	a := &model.Analysis{
		RunID:      "run-1",
		Symbol:     "EURUSD",
		AnalyzedAt: time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC),
		Failures: []model.TimeframeFailure{
			{Timeframe: model.H4, Kind: "insufficient_data", Message: "10 bars"},
			{Timeframe: model.W1, Kind: "fetch", Message: "status 502"},
		},
		Bias: model.NeutralBias(),
	}
	require.NoError(t, RecordAnalysis(ctx, r, a))

	n, err := r.FailureCount(ctx, "EURUSD")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := r.RecentBias(ctx, "EURUSD", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.Neutral, got[0].Direction)
	assert.Zero(t, got[0].SignalCount)
}

func TestSQLiteRecorderReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	r, err := NewSQLiteRecorder(path)
	require.NoError(t, err)
	require.NoError(t, r.RecordBias(ctx, model.BiasRecord{RunID: "x", Date: time.Unix(100, 0), Symbol: "EURUSD"}))
	require.NoError(t, r.Close())

	r, err = NewSQLiteRecorder(path)
	require.NoError(t, err)
	defer r.Close()
	got, err := r.RecentBias(ctx, "EURUSD", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].RunID)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	ctx := context.Background()
	assert.NoError(t, r.RecordBias(ctx, model.BiasRecord{}))
	assert.NoError(t, RecordAnalysis(ctx, r, &model.Analysis{Failures: []model.TimeframeFailure{{}}}))
	got, err := r.RecentBias(ctx, "EURUSD", 5)
	assert.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, r.Close())
}
