package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"SMCSentinel/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using Yahoo Finance public API.
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string, timeout time.Duration) *YahooFetcher {
	return &YahooFetcher{
		BaseURL: yahooBaseURL,
		Client:  newHTTPClient(proxyURL, timeout),
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"NAS100": "^NDX",
			"XAUUSD": "GC=F",
			"XAGUSD": "SI=F",
			"BTCUSD": "BTC-USD",
		},
	}
}

func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooSymbol maps a symbol to its Yahoo ticker. Six-letter currency pairs
// get the "=X" suffix Yahoo uses for FX.
func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	if len(symbol) == 6 && strings.IndexFunc(symbol, func(r rune) bool { return r < 'A' || r > 'Z' }) < 0 {
		return symbol + "=X"
	}
	return symbol
}

// yahooInterval returns the chart interval to request for tf and whether the
// result has to be aggregated up to tf.
func yahooInterval(tf model.Timeframe) (string, bool) {
	switch tf {
	case model.M15:
		return "15m", false
	case model.H1:
		return "60m", false
	case model.H4:
		return "60m", true
	case model.D1:
		return "1d", false
	case model.W1:
		return "1wk", false
	}
	return "", false
}

var yahooRanges = []struct {
	name string
	span time.Duration
}{
	{"5d", 5 * 24 * time.Hour},
	{"1mo", 30 * 24 * time.Hour},
	{"3mo", 90 * 24 * time.Hour},
	{"6mo", 180 * 24 * time.Hour},
	{"1y", 365 * 24 * time.Hour},
	{"2y", 730 * 24 * time.Hour},
	{"5y", 5 * 365 * 24 * time.Hour},
	{"10y", 10 * 365 * 24 * time.Hour},
}

// yahooRange picks the smallest range that covers count candles, allowing
// for weekends. Intraday history is capped by Yahoo at 60 days for 15m and
// two years for 60m.
func yahooRange(tf model.Timeframe, count int) string {
	needHours := float64(count) * 1.5 * tf.Duration().Hours()
	limit := "10y"
	switch tf {
	case model.M15:
		limit = "1mo"
	case model.H1, model.H4:
		limit = "2y"
	}
	for _, r := range yahooRanges {
		if r.span.Hours() >= needHours || r.name == limit {
			return r.name
		}
	}
	return limit
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// at returns the value at i, NaN when absent or null.
func at(vs []*float64, i int) float64 {
	if i >= len(vs) || vs[i] == nil {
		return math.NaN()
	}
	return *vs[i]
}

func (f *YahooFetcher) fetchChart(ctx context.Context, symbol, interval, rng string) ([]model.Candle, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), interval, rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Source: "yahoo", Code: resp.StatusCode, Body: string(body)}
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: yahoo returned no data for %s", model.ErrInsufficientData, symbol)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.Candle, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		vol := at(quote.Volume, i)
		if math.IsNaN(vol) {
			vol = 0
		}
		// null prices are kept as NaN so Clean can decide whether to fill them
		bars = append(bars, model.Candle{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  at(quote.Close, i),
			Volume: vol,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// FetchBars returns the last count candles for tf. H4 is built from hourly
// bars.
func (f *YahooFetcher) FetchBars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.Candle, error) {
	interval, aggregate := yahooInterval(tf)
	if interval == "" {
		return nil, fmt.Errorf("%w: yahoo has no interval for %s", model.ErrConfiguration, tf)
	}
	bars, err := f.fetchChart(ctx, symbol, interval, yahooRange(tf, count))
	if err != nil {
		return nil, err
	}
	if aggregate {
		if bars, err = Clean(bars); err != nil {
			return nil, err
		}
		bars = aggregateBars(bars, tf)
	}
	if len(bars) > count {
		bars = bars[len(bars)-count:]
	}
	return bars, nil
}
