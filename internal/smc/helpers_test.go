package smc

import (
	"time"

	"SMCSentinel/internal/model"
)

var t0 = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

// fromDeltas builds candles whose closes follow deltas from start. Up candles
// carry a 0.5 upper and 0.2 lower wick, down candles the reverse.
func fromDeltas(start float64, deltas []float64) []model.Candle {
	candles := make([]model.Candle, len(deltas))
	prev := start
	for i, d := range deltas {
		c := model.Candle{
			Time:   t0.Add(time.Duration(i) * time.Hour),
			Open:   prev,
			Close:  prev + d,
			Volume: 1000,
		}
		if d >= 0 {
			c.High = c.Close + 0.5
			c.Low = c.Open - 0.2
		} else {
			c.High = c.Open + 0.2
			c.Low = c.Close - 0.5
		}
		candles[i] = c
		prev = c.Close
	}
	return candles
}

// zigzag repeats legLen moves of impulse followed by legLen moves of pullback.
func zigzag(start float64, n, legLen int, impulse, pullback float64) []model.Candle {
	deltas := make([]float64, n)
	for i := range deltas {
		if i%(2*legLen) < legLen {
			deltas[i] = impulse
		} else {
			deltas[i] = pullback
		}
	}
	return fromDeltas(start, deltas)
}

func bullishTrend() model.Series {
	return model.Series{Symbol: "TEST", Timeframe: model.H1, Candles: zigzag(100, 100, 6, 3, -2)}
}

func bearishTrend() model.Series {
	return model.Series{Symbol: "TEST", Timeframe: model.H1, Candles: zigzag(300, 100, 6, -3, 2)}
}

func hl(rows ...[2]float64) []model.Candle {
	out := make([]model.Candle, len(rows))
	for i, r := range rows {
		mid := (r[0] + r[1]) / 2
		out[i] = model.Candle{
			Time: t0.Add(time.Duration(i) * time.Hour),
			Open: mid, High: r[0], Low: r[1], Close: mid,
		}
	}
	return out
}
