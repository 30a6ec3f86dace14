package smc

import "SMCSentinel/internal/model"

const classifyDepth = 3

// ClassifyStructure reads the trend from the three most recent swings of each
// kind: higher highs with higher lows is bullish, lower highs with lower lows
// is bearish, anything else is neutral.
//
// Strength is the share of the last window consecutive comparisons per kind
// (highs and lows pooled) that agree with the trend, scaled to 0..100.
// Neutral structures, and structures with fewer than three swings of either
// kind, have strength 0.
func ClassifyStructure(tf model.Timeframe, swings []model.SwingPoint, window int) model.MarketStructure {
	highs, lows := splitSwings(swings)
	ms := model.MarketStructure{
		Timeframe:   tf,
		Trend:       model.Neutral,
		RecentHighs: lastPrices(highs, classifyDepth),
		RecentLows:  lastPrices(lows, classifyDepth),
		Breaks:      []model.StructureBreak{},
	}
	if len(highs) < classifyDepth || len(lows) < classifyDepth {
		return ms
	}

	h, l := ms.RecentHighs, ms.RecentLows
	switch {
	case h[0] < h[1] && h[1] < h[2] && l[0] < l[1] && l[1] < l[2]:
		ms.Trend = model.Bullish
	case h[0] > h[1] && h[1] > h[2] && l[0] > l[1] && l[1] > l[2]:
		ms.Trend = model.Bearish
	default:
		return ms
	}

	agree, total := countAgreement(highs, window, ms.Trend)
	a, t := countAgreement(lows, window, ms.Trend)
	agree += a
	total += t
	if total > 0 {
		ms.Strength = float64(agree) / float64(total) * 100
	}
	return ms
}

// countAgreement compares each of the last window swings with its predecessor.
func countAgreement(points []model.SwingPoint, window int, trend model.Direction) (agree, total int) {
	start := len(points) - window - 1
	if start < 0 {
		start = 0
	}
	for i := start + 1; i < len(points); i++ {
		total++
		prev, cur := points[i-1].Price, points[i].Price
		if (trend == model.Bullish && cur > prev) || (trend == model.Bearish && cur < prev) {
			agree++
		}
	}
	return agree, total
}

func lastPrices(points []model.SwingPoint, n int) []float64 {
	start := len(points) - n
	if start < 0 {
		start = 0
	}
	out := make([]float64, 0, n)
	for _, p := range points[start:] {
		out = append(out, p.Price)
	}
	return out
}

// DetectBreaks walks the candles forward. The most recent swing high and swing
// low before the current candle are the active levels. A high above the
// active swing high is a bullish break, a low below the active swing low is a
// bearish break, and each level is consumed by its first break. A break in
// the direction of the previous break (or the first break) is a BOS; a break
// against it is a CHoCH.
func DetectBreaks(candles []model.Candle, swings []model.SwingPoint) []model.StructureBreak {
	breaks := []model.StructureBreak{}
	var activeHigh, activeLow *model.SwingPoint
	prevailing := model.Neutral
	next := 0

	record := func(i int, sw *model.SwingPoint, dir model.Direction) {
		kind := model.BreakBOS
		if prevailing != model.Neutral && prevailing != dir {
			kind = model.BreakCHoCH
		}
		breaks = append(breaks, model.StructureBreak{
			Index:      i,
			SwingIndex: sw.Index,
			Level:      sw.Price,
			Direction:  dir,
			Kind:       kind,
		})
		prevailing = dir
	}

	for i, c := range candles {
		for next < len(swings) && swings[next].Index < i {
			sw := swings[next]
			if sw.Kind == model.SwingHigh {
				activeHigh = &sw
			} else {
				activeLow = &sw
			}
			next++
		}
		if activeHigh != nil && c.High > activeHigh.Price {
			record(i, activeHigh, model.Bullish)
			activeHigh = nil
		}
		if activeLow != nil && c.Low < activeLow.Price {
			record(i, activeLow, model.Bearish)
			activeLow = nil
		}
	}
	return breaks
}

// AnalyzeStructure classifies the trend and attaches the structure breaks.
func AnalyzeStructure(series model.Series, swings []model.SwingPoint, window int) model.MarketStructure {
	ms := ClassifyStructure(series.Timeframe, swings, window)
	ms.Breaks = DetectBreaks(series.Candles, swings)
	return ms
}
