package strategy

import (
	"math"

	"SMCSentinel/internal/calculator"
	"SMCSentinel/internal/model"
)

// Aggregate maps detector output onto signals, one per input. Order blocks
// keep their strength, structures their trend strength, and every fair value
// gap gets fvgBaseStrength. Neutral structures carry no direction and are
// skipped.
func Aggregate(blocks []model.OrderBlock, structures []model.MarketStructure, gaps []model.FairValueGap, fvgBaseStrength float64) []model.Signal {
	signals := make([]model.Signal, 0, len(blocks)+len(structures)+len(gaps))
	for _, ob := range blocks {
		signals = append(signals, model.Signal{
			Source:    model.SourceOrderBlock,
			Timeframe: ob.Timeframe,
			Direction: ob.Kind,
			Strength:  clampStrength(ob.Strength),
		})
	}
	for _, ms := range structures {
		if ms.Trend == model.Neutral {
			continue
		}
		signals = append(signals, model.Signal{
			Source:    model.SourceStructure,
			Timeframe: ms.Timeframe,
			Direction: ms.Trend,
			Strength:  clampStrength(ms.Strength),
		})
	}
	for _, g := range gaps {
		signals = append(signals, model.Signal{
			Source:    model.SourceFVG,
			Timeframe: g.Timeframe,
			Direction: g.Kind,
			Strength:  clampStrength(fvgBaseStrength),
		})
	}
	return signals
}

// MomentumSignal votes with the RSI: above 50 is bullish, below is bearish,
// strength is twice the distance from 50.
func MomentumSignal(series model.Series, rsiPeriod int) (model.Signal, bool) {
	rsi, err := calculator.CalculateRSI(series.Candles, rsiPeriod)
	if err != nil || rsi == 50 || math.IsNaN(rsi) {
		return model.Signal{}, false
	}
	dir := model.Bullish
	if rsi < 50 {
		dir = model.Bearish
	}
	return model.Signal{
		Source:    model.SourceMomentum,
		Timeframe: series.Timeframe,
		Direction: dir,
		Strength:  clampStrength(math.Abs(rsi-50) * 2),
	}, true
}

// VolumeSignal votes with the share of volume traded on up-close candles over
// the last lookback candles.
func VolumeSignal(series model.Series, lookback int) (model.Signal, bool) {
	candles := series.Candles
	start := len(candles) - lookback
	if start < 0 {
		start = 0
	}
	var up, down float64
	for _, c := range candles[start:] {
		switch {
		case c.Close > c.Open:
			up += c.Volume
		case c.Close < c.Open:
			down += c.Volume
		}
	}
	total := up + down
	if total <= 0 || up == down {
		return model.Signal{}, false
	}
	share := up / total
	dir := model.Bullish
	if share < 0.5 {
		dir = model.Bearish
	}
	return model.Signal{
		Source:    model.SourceVolume,
		Timeframe: series.Timeframe,
		Direction: dir,
		Strength:  clampStrength(math.Abs(share-0.5) * 200),
	}, true
}

func clampStrength(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
