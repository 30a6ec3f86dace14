package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SMCSentinel/internal/collector"
	"SMCSentinel/internal/metrics"
	"SMCSentinel/internal/model"
	"SMCSentinel/internal/recorder"
	"SMCSentinel/internal/tracker"
)

type captureNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (c *captureNotifier) Send(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	return nil
}

func (c *captureNotifier) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

var end = time.Date(2024, 6, 7, 20, 0, 0, 0, time.UTC)

func newTestScheduler(t *testing.T, fetcher collector.Fetcher) (*Scheduler, *captureNotifier, *recorder.SQLiteRecorder) {
	t.Helper()
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	col := collector.NewCollector(fetcher, []model.Timeframe{model.D1, model.H4, model.H1}, 120)
	n := &captureNotifier{}
	s := NewScheduler(context.Background(), col, n, rec, metrics.NewMetricsRegistry(), Settings{
		Symbols:  []string{"EURUSD", "GBPUSD"},
		Analysis: model.DefaultAnalysisConfig(),
		Workers:  2,
	})
	return s, n, rec
}

func TestRunNowSendsAndRecords(t *testing.T) {
	s, n, rec := newTestScheduler(t, &collector.MockFetcher{Price: 1.1, End: end})
	s.RunNow()

	msgs := n.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0], "SMC Bias EURUSD")
	assert.Contains(t, msgs[1], "SMC Bias GBPUSD")

	for _, sym := range []string{"EURUSD", "GBPUSD"} {
		got, err := rec.RecentBias(context.Background(), sym, 5)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.NotEmpty(t, got[0].RunID)
		assert.Equal(t, end, got[0].Date)
	}
}

func TestAnalyzeSymbolsMergesCollectionFailures(t *testing.T) {
	mock := &collector.MockFetcher{
		Price: 1.1,
		End:   end,
		Errs:  map[model.Timeframe]error{model.H4: errors.New("upstream down")},
	}
	s, _, rec := newTestScheduler(t, mock)

	results, err := s.AnalyzeSymbols(context.Background(), []string{"EURUSD"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	a := results[0]
	require.Len(t, a.Failures, 1)
	assert.Equal(t, model.H4, a.Failures[0].Timeframe)
	assert.Equal(t, "fetch", a.Failures[0].Kind)
	assert.Len(t, a.Timeframes, 2)

	n, err := rec.FailureCount(context.Background(), "EURUSD")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAnalyzeSymbolsAllTimeframesFail(t *testing.T) {
	boom := errors.New("down")
	mock := &collector.MockFetcher{Errs: map[model.Timeframe]error{model.D1: boom, model.H4: boom, model.H1: boom}}
	s, _, _ := newTestScheduler(t, mock)

	results, err := s.AnalyzeSymbols(context.Background(), []string{"EURUSD"})
	require.NoError(t, err)
	a := results[0]
	assert.Equal(t, model.Neutral, a.Bias.Direction)
	assert.Len(t, a.Failures, 3)
	assert.False(t, a.AnalyzedAt.IsZero())
}

func TestAnalyzeSymbolsCancelled(t *testing.T) {
	s, _, _ := newTestScheduler(t, &collector.MockFetcher{Price: 1.1, End: end})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.AnalyzeSymbols(ctx, []string{"EURUSD"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandleCommand(t *testing.T) {
	s, _, _ := newTestScheduler(t, &collector.MockFetcher{Price: 1.1, End: end})
	ctx := context.Background()

	assert.Contains(t, s.HandleCommand(ctx, "/help"), "/bias [SYMBOL]")
	assert.Contains(t, s.HandleCommand(ctx, "   "), "Available commands")
	assert.Equal(t, "Tracked symbols: EURUSD, GBPUSD", s.HandleCommand(ctx, "/symbols"))
	assert.Contains(t, s.HandleCommand(ctx, "/history"), "usage")
	assert.Contains(t, s.HandleCommand(ctx, "/history eurusd"), "no history recorded yet")

	reply := s.HandleCommand(ctx, "/bias@sentinel_bot xauusd")
	assert.Contains(t, reply, "SMC Bias XAUUSD")
	assert.NotContains(t, reply, "EURUSD")

	all := s.HandleCommand(ctx, "/bias")
	assert.Contains(t, all, "SMC Bias EURUSD")
	assert.Contains(t, all, "SMC Bias GBPUSD")

	history := s.HandleCommand(ctx, "/history XAUUSD 5")
	assert.Contains(t, history, "Bias history XAUUSD")
	assert.NotContains(t, history, "no history recorded yet")
}

func TestRegisterAll(t *testing.T) {
	s, _, _ := newTestScheduler(t, &collector.MockFetcher{Price: 1.1, End: end})
	require.NoError(t, s.RegisterAll("0 5 * * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 1)
	assert.Error(t, s.RegisterAll("not a cron"))

	s.Start()
	s.Stop()
}

func TestNotifyOnChangeOnly(t *testing.T) {
	s, n, _ := newTestScheduler(t, &collector.MockFetcher{Price: 1.1, End: end})
	tr, err := tracker.New(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	s.Tracker = tr
	s.Settings.NotifyOnChangeOnly = true

	s.RunNow()
	require.Len(t, n.messages(), 2, "first run always reports")

	s.RunNow()
	assert.Len(t, n.messages(), 2, "unchanged bias is not reported again")

	st, ok := tr.Get("EURUSD")
	require.True(t, ok)
	assert.Equal(t, 2, st.Streak)
}
