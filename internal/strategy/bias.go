package strategy

import (
	"math"
	"sort"

	"SMCSentinel/internal/model"
)

// Sources lists the signal families in scoring order.
var Sources = []model.SignalSource{
	model.SourceStructure,
	model.SourceOrderBlock,
	model.SourceFVG,
	model.SourceMomentum,
	model.SourceVolume,
}

// mapLevel maps a confidence to its level using the configured thresholds.
func mapLevel(confidence float64, t model.Thresholds) model.ConfidenceLevel {
	levels := []struct {
		MinScore float64
		Level    model.ConfidenceLevel
	}{
		{t.High, model.ConfidenceHigh},
		{t.Medium, model.ConfidenceMedium},
		{t.Low, model.ConfidenceLow},
	}
	for _, l := range levels {
		if confidence >= l.MinScore {
			return l.Level
		}
	}
	return model.ConfidenceNeutral
}

// CalculateBias combines signals into a directional bias.
//
// For each source the strengths are averaged per direction and multiplied by
// the source weight; the products summed give the bullish and bearish scores.
// A direction wins when its score is higher and at least MinDirectionalScore.
// Confidence is the larger score. When the timeframes disagree (alignment
// below StrongAlignment) the confidence level drops one step.
func CalculateBias(signals []model.Signal, cfg model.AnalysisConfig) model.Bias {
	if len(signals) == 0 {
		return model.NeutralBias()
	}

	factors := scoreFactors(signals, cfg.Weights)
	bull, bear := totals(factors)

	dir := model.Neutral
	switch {
	case bull > bear && bull >= cfg.MinDirectionalScore:
		dir = model.Bullish
	case bear > bull && bear >= cfg.MinDirectionalScore:
		dir = model.Bearish
	}

	confidence := math.Max(bull, bear)
	level := model.ConfidenceNeutral
	if dir != model.Neutral {
		level = mapLevel(confidence, cfg.Thresholds)
	}

	alignment, confluence := timeframeAlignment(signals, dir, cfg)
	if confluence == model.ConfluenceWeak {
		level = level.Downgrade()
	}

	return model.Bias{
		Direction:       dir,
		Confidence:      confidence,
		ConfidenceLevel: level,
		BullishScore:    bull,
		BearishScore:    bear,
		Alignment:       alignment,
		Confluence:      confluence,
		Factors:         factors,
		Signals:         append([]model.Signal(nil), signals...),
	}
}

func scoreFactors(signals []model.Signal, w model.Weights) []model.FactorScore {
	type acc struct {
		bullSum, bearSum float64
		bullN, bearN     int
	}
	bySource := make(map[model.SignalSource]*acc, len(Sources))
	for _, s := range signals {
		a := bySource[s.Source]
		if a == nil {
			a = &acc{}
			bySource[s.Source] = a
		}
		switch s.Direction {
		case model.Bullish:
			a.bullSum += clampStrength(s.Strength)
			a.bullN++
		case model.Bearish:
			a.bearSum += clampStrength(s.Strength)
			a.bearN++
		}
	}

	factors := make([]model.FactorScore, 0, len(Sources))
	for _, src := range Sources {
		f := model.FactorScore{Source: src, Weight: w.For(src)}
		if a := bySource[src]; a != nil {
			f.BullishCount, f.BearishCount = a.bullN, a.bearN
			if a.bullN > 0 {
				f.BullishAverage = a.bullSum / float64(a.bullN)
			}
			if a.bearN > 0 {
				f.BearishAverage = a.bearSum / float64(a.bearN)
			}
		}
		factors = append(factors, f)
	}
	return factors
}

func totals(factors []model.FactorScore) (bull, bear float64) {
	for _, f := range factors {
		bull += f.Weight * f.BullishAverage
		bear += f.Weight * f.BearishAverage
	}
	return clampStrength(bull), clampStrength(bear)
}

// timeframeAlignment scores each timeframe on its own and returns the share
// that agrees with the overall direction.
func timeframeAlignment(signals []model.Signal, dir model.Direction, cfg model.AnalysisConfig) (float64, string) {
	if dir == model.Neutral {
		return 0, model.ConfluenceNone
	}

	byTF := make(map[model.Timeframe][]model.Signal)
	for _, s := range signals {
		byTF[s.Timeframe] = append(byTF[s.Timeframe], s)
	}
	tfs := make([]model.Timeframe, 0, len(byTF))
	for tf := range byTF {
		tfs = append(tfs, tf)
	}
	sort.Slice(tfs, func(i, j int) bool { return tfs[i] < tfs[j] })

	agree := 0
	for _, tf := range tfs {
		bull, bear := totals(scoreFactors(byTF[tf], cfg.Weights))
		if (dir == model.Bullish && bull > bear) || (dir == model.Bearish && bear > bull) {
			agree++
		}
	}
	alignment := float64(agree) / float64(len(tfs))
	if alignment >= cfg.StrongAlignment {
		return alignment, model.ConfluenceStrong
	}
	return alignment, model.ConfluenceWeak
}
