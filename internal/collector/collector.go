package collector

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"SMCSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Bars wins over generated data; Errs fails a timeframe outright.
type MockFetcher struct {
	Price float64
	End   time.Time
	Bars  map[model.Timeframe][]model.Candle
	Errs  map[model.Timeframe]error

	mu    sync.Mutex
	calls int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(_ context.Context, _ string, tf model.Timeframe, count int) ([]model.Candle, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if err, ok := m.Errs[tf]; ok {
		return nil, err
	}
	if bars, ok := m.Bars[tf]; ok {
		return bars, nil
	}
	end := m.End
	if end.IsZero() {
		end = time.Now().UTC().Truncate(tf.Duration())
	}
	return generateMockBars(m.Price, count, tf, end), nil
}

// Calls returns how many times FetchBars was invoked.
func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// generateMockBars draws a gently oscillating uptrend ending at end.
func generateMockBars(basePrice float64, count int, tf model.Timeframe, end time.Time) []model.Candle {
	bars := make([]model.Candle, count)
	prev := basePrice
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001 + 0.004*math.Sin(float64(i)/3))
		bars[i] = model.Candle{
			Time:   end.Add(-time.Duration(count-1-i) * tf.Duration()),
			Open:   prev,
			High:   math.Max(prev, p) * 1.001,
			Low:    math.Min(prev, p) * 0.999,
			Close:  p,
			Volume: 1000000,
		}
		prev = p
	}
	return bars
}

// Collector fetches and cleans every configured timeframe of a symbol.
type Collector struct {
	Fetcher    Fetcher
	Timeframes []model.Timeframe
	Count      int
	logger     zerolog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, timeframes []model.Timeframe, count int) *Collector {
	return &Collector{
		Fetcher:    fetcher,
		Timeframes: timeframes,
		Count:      count,
		logger:     log.With().Str("component", "collector").Logger(),
	}
}

// Collect fetches all timeframes in parallel. Timeframes that cannot be
// fetched or cleaned are reported as failures; the returned series keep the
// configured timeframe order.
func (c *Collector) Collect(ctx context.Context, symbol string) ([]model.Series, []model.TimeframeFailure) {
	series := make([]*model.Series, len(c.Timeframes))
	errs := make([]error, len(c.Timeframes))

	var wg sync.WaitGroup
	for i, tf := range c.Timeframes {
		wg.Add(1)
		go func(i int, tf model.Timeframe) {
			defer wg.Done()
			bars, err := c.Fetcher.FetchBars(ctx, symbol, tf, c.Count)
			if err != nil {
				errs[i] = fmt.Errorf("fetch %s: %w", tf, err)
				return
			}
			bars, err = Clean(bars)
			if err != nil {
				errs[i] = fmt.Errorf("clean %s: %w", tf, err)
				return
			}
			series[i] = &model.Series{Symbol: symbol, Timeframe: tf, Candles: bars}
		}(i, tf)
	}
	wg.Wait()

	var out []model.Series
	var failures []model.TimeframeFailure
	for i, tf := range c.Timeframes {
		if errs[i] != nil {
			c.logger.Warn().Err(errs[i]).Str("symbol", symbol).Str("timeframe", string(tf)).
				Str("source", c.Fetcher.Name()).Msg("timeframe collection failed")
			failures = append(failures, model.TimeframeFailure{
				Timeframe: tf,
				Kind:      model.FailureKind(errs[i]),
				Message:   errs[i].Error(),
			})
			continue
		}
		out = append(out, *series[i])
	}
	return out, failures
}
