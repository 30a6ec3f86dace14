// Package smc implements the Smart Money Concepts detectors: swing points,
// market structure, order blocks, fair value gaps and liquidity clusters.
// Every function here is pure and safe for concurrent use.
package smc

import "SMCSentinel/internal/model"

// DetectSwings marks candle i as a swing high when its high is strictly above
// every other high in [i-lookback, i+lookback], and as a swing low when its low
// is strictly below every other low in that window. Candles closer than
// lookback to either edge are never swings. Output is ordered by index, with a
// high listed before a low on the same candle.
func DetectSwings(candles []model.Candle, lookback int) []model.SwingPoint {
	swings := []model.SwingPoint{}
	if lookback <= 0 {
		return swings
	}
	for i := lookback; i+lookback < len(candles); i++ {
		if isSwingHigh(candles, i, lookback) {
			swings = append(swings, model.SwingPoint{Index: i, Price: candles[i].High, Kind: model.SwingHigh})
		}
		if isSwingLow(candles, i, lookback) {
			swings = append(swings, model.SwingPoint{Index: i, Price: candles[i].Low, Kind: model.SwingLow})
		}
	}
	return swings
}

func isSwingHigh(candles []model.Candle, i, lookback int) bool {
	h := candles[i].High
	for j := i - lookback; j <= i+lookback; j++ {
		if j != i && candles[j].High >= h {
			return false
		}
	}
	return true
}

func isSwingLow(candles []model.Candle, i, lookback int) bool {
	l := candles[i].Low
	for j := i - lookback; j <= i+lookback; j++ {
		if j != i && candles[j].Low <= l {
			return false
		}
	}
	return true
}

// splitSwings returns swing prices by kind, in index order.
func splitSwings(swings []model.SwingPoint) (highs, lows []model.SwingPoint) {
	for _, s := range swings {
		if s.Kind == model.SwingHigh {
			highs = append(highs, s)
		} else {
			lows = append(lows, s)
		}
	}
	return highs, lows
}
