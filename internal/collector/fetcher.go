package collector

import (
	"context"

	"SMCSentinel/internal/model"
)

// Fetcher defines the interface for fetching market data. Implementations
// return up to count candles, oldest first.
type Fetcher interface {
	FetchBars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.Candle, error)
	Name() string
}
