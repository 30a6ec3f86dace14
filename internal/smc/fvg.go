package smc

import (
	"math"

	"SMCSentinel/internal/model"
)

// DetectFVGs scans every three-candle window (i, i+1, i+2).
// Bullish gap: low(i+2) > high(i), top = low(i+2), bottom = high(i).
// Bearish gap: high(i+2) < low(i), top = low(i), bottom = high(i+2).
// A gap is kept when its size is at least minATRMultiple*atr[i+1]; windows
// whose middle candle has no ATR yet are skipped.
func DetectFVGs(series model.Series, atr []float64, minATRMultiple float64) []model.FairValueGap {
	gaps := []model.FairValueGap{}
	c := series.Candles
	for i := 0; i+2 < len(c); i++ {
		if i+1 >= len(atr) || math.IsNaN(atr[i+1]) {
			continue
		}
		threshold := minATRMultiple * atr[i+1]

		var gap model.FairValueGap
		switch {
		case c[i+2].Low > c[i].High:
			gap = model.FairValueGap{Kind: model.Bullish, Top: c[i+2].Low, Bottom: c[i].High}
		case c[i+2].High < c[i].Low:
			gap = model.FairValueGap{Kind: model.Bearish, Top: c[i].Low, Bottom: c[i+2].High}
		default:
			continue
		}
		gap.Size = gap.Top - gap.Bottom
		if gap.Size < threshold {
			continue
		}
		gap.Timeframe = series.Timeframe
		gap.Index = i
		gaps = append(gaps, gap)
	}
	return gaps
}

// MarkFills returns a copy of gaps with fill state set. A bullish gap is
// filled by the first later candle (from i+3) whose low reaches its bottom, a
// bearish gap by the first later candle whose high reaches its top.
func MarkFills(gaps []model.FairValueGap, candles []model.Candle) []model.FairValueGap {
	out := make([]model.FairValueGap, len(gaps))
	copy(out, gaps)

	lows := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	for i, c := range candles {
		lows[i] = c.Low
		highs[i] = c.High
	}

	for g := range out {
		gap := &out[g]
		gap.Filled = false
		gap.FillIndex = nil
		for j := gap.Index + 3; j < len(candles); j++ {
			if (gap.Kind == model.Bullish && lows[j] <= gap.Bottom) ||
				(gap.Kind == model.Bearish && highs[j] >= gap.Top) {
				idx := j
				gap.Filled = true
				gap.FillIndex = &idx
				break
			}
		}
	}
	return out
}

// OpenGaps returns the gaps that are still unfilled.
func OpenGaps(gaps []model.FairValueGap) []model.FairValueGap {
	open := []model.FairValueGap{}
	for _, g := range gaps {
		if !g.Filled {
			open = append(open, g)
		}
	}
	return open
}
