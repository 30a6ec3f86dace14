package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SMCSentinel/internal/model"
)

var t0 = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC) // Monday

func hourly(n int) []model.Candle {
	bars := make([]model.Candle, n)
	for i := range bars {
		p := 100 + float64(i)
		bars[i] = model.Candle{
			Time: t0.Add(time.Duration(i) * time.Hour),
			Open: p, High: p + 2, Low: p - 1, Close: p + 1, Volume: 10,
		}
	}
	return bars
}

func TestAggregateBarsH4(t *testing.T) {
	got := aggregateBars(hourly(10), model.H4)
	require.Len(t, got, 3)

	assert.Equal(t, t0, got[0].Time)
	assert.Equal(t, 100.0, got[0].Open)
	assert.Equal(t, 105.0, got[0].High)
	assert.Equal(t, 99.0, got[0].Low)
	assert.Equal(t, 104.0, got[0].Close)
	assert.Equal(t, 40.0, got[0].Volume)

	assert.Equal(t, t0.Add(8*time.Hour), got[2].Time)
	assert.Equal(t, 20.0, got[2].Volume, "partial trailing bucket")
}

func TestAggregateBarsWeekly(t *testing.T) {
	var daily []model.Candle
	for i := 0; i < 14; i++ {
		p := 100 + float64(i)
		daily = append(daily, model.Candle{
			Time: t0.AddDate(0, 0, i).Add(21 * time.Hour),
			Open: p, High: p + 1, Low: p - 1, Close: p, Volume: 1,
		})
	}
	got := aggregateBars(daily, model.W1)
	require.Len(t, got, 2)
	assert.Equal(t, t0, got[0].Time)
	assert.Equal(t, t0.AddDate(0, 0, 7), got[1].Time)
	assert.Equal(t, 7.0, got[0].Volume)
	assert.Equal(t, 106.0, got[0].Close)
	assert.Equal(t, 114.0, got[1].High)
}

func TestAggregateBarsEmpty(t *testing.T) {
	assert.Nil(t, aggregateBars(nil, model.H4))
}

func TestCleanForwardFills(t *testing.T) {
	bars := hourly(20)
	bars[5].Close = math.NaN()
	bars[5].High = math.NaN()

	got, err := Clean(bars)
	require.NoError(t, err)
	require.Len(t, got, 20)
	assert.Equal(t, bars[4].Close, got[5].Close)
	assert.Equal(t, got[5].Open, got[5].High)
	assert.Equal(t, bars[5].Time, got[5].Time)
	assert.Zero(t, got[5].Volume)
	assert.True(t, math.IsNaN(bars[5].Close), "input untouched")
}

func TestCleanRejectsTooManyGaps(t *testing.T) {
	bars := hourly(20)
	bars[3].Close = 0
	bars[9].Low = math.NaN()

	_, err := Clean(bars)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestCleanSortsAndDeduplicates(t *testing.T) {
	bars := hourly(5)
	dup := bars[2]
	dup.Close = 999
	dup.High = 1000
	shuffled := []model.Candle{bars[4], bars[2], bars[0], dup, bars[3], bars[1]}

	got, err := Clean(shuffled)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].Time.After(got[i-1].Time))
	}
	assert.Equal(t, 999.0, got[2].Close)
}

func TestCleanDropsLeadingGaps(t *testing.T) {
	bars := hourly(30)
	bars[0].Open = math.NaN()
	got, err := Clean(bars)
	require.NoError(t, err)
	assert.Len(t, got, 29)
	assert.Equal(t, bars[1].Time, got[0].Time)
}

func TestCleanEmpty(t *testing.T) {
	_, err := Clean(nil)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestYahooSymbolAndRange(t *testing.T) {
	f := NewYahooFetcher("", time.Second)
	assert.Equal(t, "EURUSD=X", f.yahooSymbol("EURUSD"))
	assert.Equal(t, "GC=F", f.yahooSymbol("XAUUSD"))
	assert.Equal(t, "AAPL", f.yahooSymbol("AAPL"))

	assert.Equal(t, "5d", yahooRange(model.M15, 200))
	assert.Equal(t, "1mo", yahooRange(model.M15, 5000))
	assert.Equal(t, "1mo", yahooRange(model.H1, 200))
	assert.Equal(t, "2y", yahooRange(model.D1, 300))
	assert.Equal(t, "10y", yahooRange(model.W1, 9000))
	assert.Equal(t, "10y", yahooRange(model.W1, 12000))
	assert.Equal(t, "10y", yahooRange(model.W1, 100000))
	assert.Equal(t, "10y", yahooRange(model.D1, 80000))
}

const yahooBody = `{"chart":{"result":[{"timestamp":[%d,%d,%d,%d],
"indicators":{"quote":[{"open":[1.0,1.1,%s,1.2],"high":[1.2,1.3,%s,1.4],
"low":[0.9,1.0,%s,1.1],"close":[1.1,1.2,%s,1.3],"volume":[5,6,null,7]}]}}],"error":null}}`

func yahooServer(t *testing.T, gap string) (*httptest.Server, *string) {
	t.Helper()
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/EURUSD=X", r.URL.Path)
		query = r.URL.RawQuery
		ts := t0.Unix()
		fmt.Fprintf(w, yahooBody, ts, ts+3600, ts+7200, ts+10800, gap, gap, gap, gap)
	}))
	t.Cleanup(srv.Close)
	return srv, &query
}

func TestYahooFetchBars(t *testing.T) {
	srv, query := yahooServer(t, "null")
	f := NewYahooFetcher("", time.Second)
	f.BaseURL = srv.URL

	bars, err := f.FetchBars(context.Background(), "EURUSD", model.H1, 3)
	require.NoError(t, err)
	assert.Contains(t, *query, "interval=60m")
	require.Len(t, bars, 3)
	assert.True(t, math.IsNaN(bars[1].Close), "null bar kept for cleaning")
	assert.Zero(t, bars[1].Volume)
}

func TestYahooFetchBarsAggregatesH4(t *testing.T) {
	srv, query := yahooServer(t, "1.15")
	f := NewYahooFetcher("", time.Second)
	f.BaseURL = srv.URL

	h4, err := f.FetchBars(context.Background(), "EURUSD", model.H4, 10)
	require.NoError(t, err)
	assert.Contains(t, *query, "interval=60m")
	require.Len(t, h4, 1)
	assert.Equal(t, t0, h4[0].Time)
	assert.Equal(t, 1.0, h4[0].Open)
	assert.Equal(t, 1.3, h4[0].Close)
	assert.Equal(t, 1.4, h4[0].High)
	assert.Equal(t, 0.9, h4[0].Low)
}

func TestYahooStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewYahooFetcher("", time.Second)
	f.BaseURL = srv.URL
	_, err := f.FetchBars(context.Background(), "NOPE", model.D1, 10)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.False(t, se.Retryable())
}

func TestRESTFetcherFallsBackToAggregation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		switch r.URL.Query().Get("timeframe") {
		case "H4":
			http.Error(w, "unsupported", http.StatusBadRequest)
		case "H1":
			fmt.Fprint(w, "[")
			for i := 7; i >= 0; i-- { // newest first on purpose
				p := 100 + float64(i)
				fmt.Fprintf(w, `{"timestamp":%d,"open":%g,"high":%g,"low":%g,"close":%g,"volume":1}`,
					t0.Add(time.Duration(i)*time.Hour).Unix(), p, p+1, p-1, p+0.5)
				if i > 0 {
					fmt.Fprint(w, ",")
				}
			}
			fmt.Fprint(w, "]")
		}
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL+"/", "key", "", time.Second)
	bars, err := f.FetchBars(context.Background(), "EURUSD", model.H4, 2)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 100.0, bars[0].Open)
	assert.Equal(t, 103.5, bars[0].Close)
	assert.Equal(t, 4.0, bars[1].Volume)
}

// flakyFetcher fails the first n calls with err.
type flakyFetcher struct {
	n     int32
	err   error
	calls atomic.Int32
}

func (f *flakyFetcher) Name() string { return "flaky" }

func (f *flakyFetcher) FetchBars(context.Context, string, model.Timeframe, int) ([]model.Candle, error) {
	if f.calls.Add(1) <= f.n {
		return nil, f.err
	}
	return hourly(3), nil
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		BreakerFailures: 100,
		BreakerTimeout:  time.Minute,
	}
}

func TestResilientFetcherRetries(t *testing.T) {
	next := &flakyFetcher{n: 2, err: &StatusError{Source: "flaky", Code: 503}}
	f := NewResilientFetcher(next, fastPolicy())

	bars, err := f.FetchBars(context.Background(), "EURUSD", model.H1, 3)
	require.NoError(t, err)
	assert.Len(t, bars, 3)
	assert.Equal(t, int32(3), next.calls.Load())
	assert.Equal(t, "flaky", f.Name())
}

func TestResilientFetcherGivesUp(t *testing.T) {
	next := &flakyFetcher{n: 100, err: errors.New("connection reset")}
	f := NewResilientFetcher(next, fastPolicy())

	_, err := f.FetchBars(context.Background(), "EURUSD", model.H1, 3)
	require.Error(t, err)
	assert.Equal(t, int32(4), next.calls.Load(), "one attempt plus three retries")
}

func TestResilientFetcherPermanentErrors(t *testing.T) {
	for _, err := range []error{
		&StatusError{Source: "flaky", Code: 404},
		fmt.Errorf("bad bars: %w", model.ErrInvalidInput),
	} {
		next := &flakyFetcher{n: 100, err: err}
		f := NewResilientFetcher(next, fastPolicy())
		_, got := f.FetchBars(context.Background(), "EURUSD", model.H1, 3)
		assert.ErrorIs(t, got, err)
		assert.Equal(t, int32(1), next.calls.Load())
	}
}

func TestResilientFetcherOpensBreaker(t *testing.T) {
	policy := fastPolicy()
	policy.MaxRetries = 0
	policy.BreakerFailures = 2
	next := &flakyFetcher{n: 100, err: errors.New("timeout")}
	f := NewResilientFetcher(next, policy)

	for i := 0; i < 2; i++ {
		_, err := f.FetchBars(context.Background(), "EURUSD", model.H1, 3)
		require.Error(t, err)
	}
	_, err := f.FetchBars(context.Background(), "EURUSD", model.H1, 3)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestCollect(t *testing.T) {
	mock := &MockFetcher{
		Price: 1.1,
		End:   t0,
		Errs:  map[model.Timeframe]error{model.H4: errors.New("upstream down")},
	}
	c := NewCollector(mock, []model.Timeframe{model.D1, model.H4, model.H1}, 50)

	series, failures := c.Collect(context.Background(), "EURUSD")
	require.Len(t, series, 2)
	assert.Equal(t, model.D1, series[0].Timeframe)
	assert.Equal(t, model.H1, series[1].Timeframe)
	assert.Len(t, series[1].Candles, 50)
	assert.Equal(t, "EURUSD", series[0].Symbol)
	assert.Equal(t, t0, series[0].Candles[49].Time)

	require.Len(t, failures, 1)
	assert.Equal(t, model.H4, failures[0].Timeframe)
	assert.Equal(t, "fetch", failures[0].Kind)
	assert.Equal(t, 3, mock.Calls())
}
