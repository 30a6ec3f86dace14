package calculator

import (
	"fmt"

	talib "github.com/markcheno/go-talib"

	"SMCSentinel/internal/model"
)

// CalculateRSI computes the Wilder-smoothed RSI of closes over the given period.
// Requires at least period+1 candles. Returns 50.0 if data is insufficient.
func CalculateRSI(candles []model.Candle, period int) (float64, error) {
	if period < 2 {
		return 0, fmt.Errorf("%w: rsi period must be at least 2, got %d", model.ErrConfiguration, period)
	}
	if len(candles) < period+1 {
		return 50.0, nil
	}

	rsi := talib.Rsi(Closes(candles), period)
	return rsi[len(rsi)-1], nil
}
