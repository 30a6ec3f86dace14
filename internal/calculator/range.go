package calculator

import (
	"errors"
	"math"

	"SMCSentinel/internal/model"
)

// RecentRange scans the most recent lookback candles and returns the high and low.
func RecentRange(candles []model.Candle, lookback int) (high, low float64, err error) {
	if len(candles) == 0 {
		return 0, 0, errors.New("no candles provided")
	}
	n := len(candles)
	start := n - lookback
	if start < 0 || lookback <= 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < n; i++ {
		if candles[i].High > high {
			high = candles[i].High
		}
		if candles[i].Low < low {
			low = candles[i].Low
		}
	}
	return high, low, nil
}

// RangePosition returns where price sits within [low, high] (0.0~1.0).
func RangePosition(price, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (price - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}
