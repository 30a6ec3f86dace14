// Package analyzer runs the detector pipeline for each timeframe of a symbol
// and joins the results into one bias.
package analyzer

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"SMCSentinel/internal/calculator"
	"SMCSentinel/internal/model"
	"SMCSentinel/internal/smc"
	"SMCSentinel/internal/strategy"
)

// Input is the set of series for one symbol.
type Input struct {
	Symbol string
	Series []model.Series
}

// AnalyzeTimeframe runs validation, ATR, swing and structure detection, order
// blocks, fair value gaps with fills, liquidity clustering and signal
// aggregation for a single series.
func AnalyzeTimeframe(series model.Series, cfg model.AnalysisConfig) (*model.TimeframeAnalysis, error) {
	if err := calculator.ValidateSeries(series, cfg.MinBars); err != nil {
		return nil, err
	}
	atr, err := calculator.ComputeATR(series.Candles, cfg.ATRPeriod)
	if err != nil {
		return nil, fmt.Errorf("atr: %w", err)
	}

	swings := smc.DetectSwings(series.Candles, cfg.SwingLookback)
	structure := smc.AnalyzeStructure(series, swings, cfg.StructureWindow)
	blocks := smc.DetectOrderBlocks(series, structure, cfg)
	gaps := smc.MarkFills(smc.DetectFVGs(series, atr, cfg.FVGMinATRMultiple), series.Candles)
	zones := smc.LiquidityFromSwings(swings, cfg.LiquidityTolerance, cfg.LiquidityMinTouches)

	signals := strategy.Aggregate(blocks, []model.MarketStructure{structure}, gaps, cfg.FVGBaseStrength)
	if cfg.EnableMomentum {
		if s, ok := strategy.MomentumSignal(series, cfg.RSIPeriod); ok {
			signals = append(signals, s)
		}
	}
	if cfg.EnableVolume {
		if s, ok := strategy.VolumeSignal(series, cfg.VolumeLookback); ok {
			signals = append(signals, s)
		}
	}

	last := series.Candles[len(series.Candles)-1]
	high, low, _ := calculator.RecentRange(series.Candles, cfg.MinBars)

	return &model.TimeframeAnalysis{
		Timeframe:   series.Timeframe,
		Bars:        len(series.Candles),
		LastClose:   last.Close,
		RangeHigh:   high,
		RangeLow:    low,
		ATR:         calculator.LastDefined(atr),
		Swings:      swings,
		Structure:   structure,
		OrderBlocks: blocks,
		FVGs:        gaps,
		Liquidity:   zones,
		Signals:     signals,
	}, nil
}

// Analyze runs every timeframe concurrently and combines their signals. A
// timeframe that fails is recorded in Failures and the others carry on; only
// an invalid configuration or a cancelled context is returned as an error.
func Analyze(ctx context.Context, symbol string, series []model.Series, cfg model.AnalysisConfig) (*model.Analysis, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := zerolog.Ctx(ctx).With().Str("symbol", symbol).Logger()

	results := make([]*model.TimeframeAnalysis, len(series))
	errs := make([]error, len(series))

	var g errgroup.Group
	for i, s := range series {
		i, s := i, s
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			results[i], errs[i] = AnalyzeTimeframe(s, cfg)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analyze %s: %w", symbol, err)
	}

	analysis := &model.Analysis{
		Symbol:     symbol,
		Timeframes: []model.TimeframeAnalysis{},
		Failures:   []model.TimeframeFailure{},
	}
	var signals []model.Signal
	for i, s := range series {
		if errs[i] != nil {
			logger.Warn().Err(errs[i]).Str("timeframe", string(s.Timeframe)).Msg("timeframe analysis failed")
			analysis.Failures = append(analysis.Failures, model.TimeframeFailure{
				Timeframe: s.Timeframe,
				Kind:      model.FailureKind(errs[i]),
				Message:   errs[i].Error(),
			})
			continue
		}
		analysis.Timeframes = append(analysis.Timeframes, *results[i])
		signals = append(signals, results[i].Signals...)
		if t := s.Candles[len(s.Candles)-1].Time; t.After(analysis.AnalyzedAt) {
			analysis.AnalyzedAt = t
		}
	}

	sort.SliceStable(analysis.Timeframes, func(i, j int) bool {
		return analysis.Timeframes[i].Timeframe.Rank() > analysis.Timeframes[j].Timeframe.Rank()
	})
	analysis.Bias = strategy.CalculateBias(signals, cfg)

	logger.Debug().
		Str("direction", string(analysis.Bias.Direction)).
		Float64("confidence", analysis.Bias.Confidence).
		Int("signals", len(signals)).
		Int("failures", len(analysis.Failures)).
		Msg("analysis complete")
	return analysis, nil
}

// AnalyzeMany analyzes several symbols with at most workers running at once.
// Results keep the order of inputs.
func AnalyzeMany(ctx context.Context, inputs []Input, cfg model.AnalysisConfig, workers int) ([]*model.Analysis, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 1
	}

	out := make([]*model.Analysis, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			a, err := Analyze(gctx, in.Symbol, in.Series, cfg)
			if err != nil {
				return err
			}
			out[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
