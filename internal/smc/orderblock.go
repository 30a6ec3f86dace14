package smc

import (
	"math"
	"sort"

	talib "github.com/markcheno/go-talib"

	"SMCSentinel/internal/calculator"
	"SMCSentinel/internal/model"
)

const (
	obBodyWeight   = 0.4
	obFollowWeight = 0.3
	obMomentWeight = 0.3
)

// DetectOrderBlocks finds, for every structure break, the nearest opposing
// candle between the broken swing and the breaking candle. A bullish break
// looks for a down-close candle, a bearish break for an up-close candle, and
// the candle body must cover at least OrderBlockMinBodyRatio of its range.
//
// A candidate is confirmed when none of the next OrderBlockConfirmCandles
// candles lies fully inside it. Unconfirmed candidates and blocks older than
// OrderBlockMaxAge candles (measured from the last candle) are dropped.
func DetectOrderBlocks(series model.Series, ms model.MarketStructure, cfg model.AnalysisConfig) []model.OrderBlock {
	blocks := []model.OrderBlock{}
	candles := series.Candles
	if len(candles) == 0 || len(ms.Breaks) == 0 {
		return blocks
	}

	confirm := cfg.OrderBlockConfirmCandles
	if confirm <= 0 {
		confirm = 1
	}
	last := len(candles) - 1
	roc := talib.Roc(calculator.Closes(candles), confirm)
	baseline := meanAbs(roc, confirm)
	seen := make(map[int]bool)

	for _, brk := range ms.Breaks {
		k := findOpposingCandle(candles, brk, cfg.OrderBlockMinBodyRatio)
		if k < 0 || seen[k] {
			continue
		}
		seen[k] = true

		if last-k > cfg.OrderBlockMaxAge || k+confirm > last {
			continue
		}
		origin := candles[k]
		if !confirmed(candles[k+1:k+confirm+1], origin) {
			continue
		}

		body := math.Min(origin.Body()/origin.Range(), 1) * 100
		follow := followThrough(candles, k, confirm, brk.Direction)
		momentum := momentumScore(roc[k+confirm], baseline, brk.Direction)

		blocks = append(blocks, model.OrderBlock{
			Kind:               brk.Direction,
			PriceHigh:          origin.High,
			PriceLow:           origin.Low,
			Timeframe:          series.Timeframe,
			Strength:           clamp(obBodyWeight*body+obFollowWeight*follow+obMomentWeight*momentum, 0, 100),
			OriginIndex:        k,
			BreakIndex:         brk.Index,
			BodyScore:          body,
			FollowThroughScore: follow,
			MomentumScore:      momentum,
		})
	}

	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].OriginIndex < blocks[j].OriginIndex })
	return blocks
}

// findOpposingCandle scans backward from the candle before the break down to
// the broken swing and returns the first qualifying index, or -1.
func findOpposingCandle(candles []model.Candle, brk model.StructureBreak, minBodyRatio float64) int {
	lo := brk.SwingIndex
	if lo < 0 {
		lo = 0
	}
	for k := brk.Index - 1; k >= lo; k-- {
		c := candles[k]
		rng := c.Range()
		if rng <= 0 {
			continue
		}
		opposing := (brk.Direction == model.Bullish && c.Close < c.Open) ||
			(brk.Direction == model.Bearish && c.Close > c.Open)
		if opposing && c.Body()/rng >= minBodyRatio {
			return k
		}
	}
	return -1
}

func confirmed(next []model.Candle, origin model.Candle) bool {
	for _, c := range next {
		if c.Low >= origin.Low && c.High <= origin.High {
			return false
		}
	}
	return true
}

// followThrough is the share of the next n closes that continue in dir.
func followThrough(candles []model.Candle, k, n int, dir model.Direction) float64 {
	agree := 0
	for j := k + 1; j <= k+n; j++ {
		change := candles[j].Close - candles[j-1].Close
		if (dir == model.Bullish && change > 0) || (dir == model.Bearish && change < 0) {
			agree++
		}
	}
	return float64(agree) / float64(n) * 100
}

// momentumScore maps a rate of change in dir onto 0..100, where the series'
// mean absolute rate of change scores 50.
func momentumScore(roc, baseline float64, dir model.Direction) float64 {
	if dir == model.Bearish {
		roc = -roc
	}
	if baseline <= 0 {
		if roc > 0 {
			return 100
		}
		return 0
	}
	return clamp(50*roc/baseline, 0, 100)
}

func meanAbs(values []float64, from int) float64 {
	sum, n := 0.0, 0
	for i := from; i < len(values); i++ {
		sum += math.Abs(values[i])
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
