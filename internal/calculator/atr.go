package calculator

import (
	"fmt"
	"math"

	talib "github.com/markcheno/go-talib"

	"SMCSentinel/internal/model"
)

// TrueRange returns the per-candle true range. The first candle has no
// previous close, so its true range is its high-low span.
func TrueRange(candles []model.Candle) []float64 {
	if len(candles) == 0 {
		return []float64{}
	}
	highs, lows, closes := extractHLC(candles)
	tr := talib.TRange(highs, lows, closes)
	tr[0] = highs[0] - lows[0]
	return tr
}

// ComputeATR returns the simple rolling mean of the true range, aligned 1:1
// with candles. The first period-1 entries are NaN.
func ComputeATR(candles []model.Candle, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("%w: atr period must be positive, got %d", model.ErrConfiguration, period)
	}
	if len(candles) < period {
		return nil, fmt.Errorf("%w: atr(%d) needs %d candles, have %d",
			model.ErrInsufficientData, period, period, len(candles))
	}

	atr := talib.Sma(TrueRange(candles), period)
	for i := 0; i < period-1; i++ {
		atr[i] = math.NaN()
	}
	return atr, nil
}

// LastDefined returns the last non-NaN value, or 0.
func LastDefined(values []float64) float64 {
	for i := len(values) - 1; i >= 0; i-- {
		if !math.IsNaN(values[i]) {
			return values[i]
		}
	}
	return 0
}

func extractHLC(candles []model.Candle) (highs, lows, closes []float64) {
	highs = make([]float64, len(candles))
	lows = make([]float64, len(candles))
	closes = make([]float64, len(candles))
	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
	}
	return highs, lows, closes
}

// Closes extracts closing prices.
func Closes(candles []model.Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}
