package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"SMCSentinel/internal/model"
)

// RESTFetcher implements Fetcher against a generic bars REST API that
// returns a JSON array of {timestamp, open, high, low, close, volume}.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string, timeout time.Duration) *RESTFetcher {
	return &RESTFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL, timeout),
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape from the bars API.
type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// fallbackSource names the finer timeframe a coarse one can be built from
// when the API does not serve it directly.
var fallbackSource = map[model.Timeframe]struct {
	tf     model.Timeframe
	factor int
}{
	model.H4: {model.H1, 4},
	model.W1: {model.D1, 7},
}

// FetchBars tries the native timeframe endpoint first; H4 and W1 fall back to
// aggregating H1 and D1 bars.
func (f *RESTFetcher) FetchBars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.Candle, error) {
	bars, err := f.fetchBars(ctx, symbol, tf, count)
	if err == nil {
		return bars, nil
	}
	src, ok := fallbackSource[tf]
	if !ok || errors.Is(err, context.Canceled) {
		return nil, err
	}
	fine, fineErr := f.fetchBars(ctx, symbol, src.tf, count*src.factor)
	if fineErr != nil {
		return nil, fmt.Errorf("%s fetch failed: %w; %s fallback also failed: %w", tf, err, src.tf, fineErr)
	}
	if fine, fineErr = Clean(fine); fineErr != nil {
		return nil, fineErr
	}
	bars = aggregateBars(fine, tf)
	if len(bars) > count {
		bars = bars[len(bars)-count:]
	}
	return bars, nil
}

func (f *RESTFetcher) fetchBars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.Candle, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("timeframe", string(tf))
	q.Set("limit", fmt.Sprint(count))
	endpoint := f.BaseURL + "/api/v1/bars?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{Source: "rest", Code: resp.StatusCode, Body: string(body)}
	}
	var raw []restBar
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	bars := make([]model.Candle, len(raw))
	for i, rb := range raw {
		bars[i] = model.Candle{
			Time:   time.Unix(rb.Timestamp, 0).UTC(),
			Open:   rb.Open,
			High:   rb.High,
			Low:    rb.Low,
			Close:  rb.Close,
			Volume: rb.Volume,
		}
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// StatusError is a non-200 response from a data source.
type StatusError struct {
	Source string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("%s: status %d, body: %s", e.Source, e.Code, body)
}

// Retryable reports whether the request may succeed on a later attempt.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}
