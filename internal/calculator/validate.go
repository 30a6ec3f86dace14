package calculator

import (
	"fmt"
	"math"

	"SMCSentinel/internal/model"
)

// ValidateSeries checks the series contract: at least minBars candles,
// strictly ascending timestamps, finite positive prices and high >= low.
func ValidateSeries(series model.Series, minBars int) error {
	n := len(series.Candles)
	if n < minBars {
		return fmt.Errorf("%w: %s %s has %d candles, need %d",
			model.ErrInsufficientData, series.Symbol, series.Timeframe, n, minBars)
	}
	for i, c := range series.Candles {
		for _, v := range [...]float64{c.Open, c.High, c.Low, c.Close} {
			if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
				return fmt.Errorf("%w: candle %d has non-positive or non-finite price", model.ErrInvalidInput, i)
			}
		}
		if c.High < c.Low {
			return fmt.Errorf("%w: candle %d has high %.5f below low %.5f", model.ErrInvalidInput, i, c.High, c.Low)
		}
		if math.IsNaN(c.Volume) || c.Volume < 0 {
			return fmt.Errorf("%w: candle %d has invalid volume", model.ErrInvalidInput, i)
		}
		if i > 0 && !c.Time.After(series.Candles[i-1].Time) {
			return fmt.Errorf("%w: candle %d timestamp %s is not after %s", model.ErrInvalidInput,
				i, c.Time.Format("2006-01-02 15:04"), series.Candles[i-1].Time.Format("2006-01-02 15:04"))
		}
	}
	return nil
}
