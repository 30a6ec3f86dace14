package model

import (
	"fmt"
	"math"
)

// Weights are the per-source multipliers of the bias calculator.
type Weights struct {
	Structure  float64 `yaml:"structure"`
	OrderBlock float64 `yaml:"order_block"`
	FVG        float64 `yaml:"fvg"`
	Momentum   float64 `yaml:"momentum"`
	Volume     float64 `yaml:"volume"`
}

// For returns the weight of a signal source.
func (w Weights) For(src SignalSource) float64 {
	switch src {
	case SourceStructure:
		return w.Structure
	case SourceOrderBlock:
		return w.OrderBlock
	case SourceFVG:
		return w.FVG
	case SourceMomentum:
		return w.Momentum
	case SourceVolume:
		return w.Volume
	}
	return 0
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.Structure + w.OrderBlock + w.FVG + w.Momentum + w.Volume
}

// Thresholds are the minimum confidences for each level.
type Thresholds struct {
	High   float64 `yaml:"high"`
	Medium float64 `yaml:"medium"`
	Low    float64 `yaml:"low"`
}

// AnalysisConfig is the full parameter set of one analysis call.
type AnalysisConfig struct {
	MinBars                  int        `yaml:"min_bars"`
	SwingLookback            int        `yaml:"swing_lookback"`
	StructureWindow          int        `yaml:"structure_window"`
	ATRPeriod                int        `yaml:"atr_period"`
	FVGMinATRMultiple        float64    `yaml:"fvg_min_atr_multiple"`
	FVGBaseStrength          float64    `yaml:"fvg_base_strength"`
	OrderBlockMaxAge         int        `yaml:"order_block_max_age"`
	OrderBlockMinBodyRatio   float64    `yaml:"order_block_min_body_ratio"`
	OrderBlockConfirmCandles int        `yaml:"order_block_confirm_candles"`
	LiquidityTolerance       float64    `yaml:"liquidity_tolerance"`
	LiquidityMinTouches      int        `yaml:"liquidity_min_touches"`
	Weights                  Weights    `yaml:"weights"`
	Thresholds               Thresholds `yaml:"thresholds"`
	MinDirectionalScore      float64    `yaml:"min_directional_score"`
	StrongAlignment          float64    `yaml:"strong_alignment"`
	EnableMomentum           bool       `yaml:"enable_momentum"`
	EnableVolume             bool       `yaml:"enable_volume"`
	RSIPeriod                int        `yaml:"rsi_period"`
	VolumeLookback           int        `yaml:"volume_lookback"`
}

// DefaultAnalysisConfig returns the stock parameters.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		MinBars:                  30,
		SwingLookback:            5,
		StructureWindow:          6,
		ATRPeriod:                14,
		FVGMinATRMultiple:        0.5,
		FVGBaseStrength:          60,
		OrderBlockMaxAge:         30,
		OrderBlockMinBodyRatio:   0.5,
		OrderBlockConfirmCandles: 3,
		LiquidityTolerance:       0.0002,
		LiquidityMinTouches:      2,
		Weights: Weights{
			Structure:  0.35,
			OrderBlock: 0.30,
			FVG:        0.20,
			Momentum:   0.10,
			Volume:     0.05,
		},
		Thresholds:          Thresholds{High: 75, Medium: 55, Low: 40},
		MinDirectionalScore: 40,
		StrongAlignment:     0.66,
		RSIPeriod:           14,
		VolumeLookback:      20,
	}
}

// Validate checks every parameter and wraps ErrConfiguration on failure.
func (c AnalysisConfig) Validate() error {
	positive := []struct {
		name string
		v    int
	}{
		{"min_bars", c.MinBars},
		{"swing_lookback", c.SwingLookback},
		{"structure_window", c.StructureWindow},
		{"atr_period", c.ATRPeriod},
		{"order_block_max_age", c.OrderBlockMaxAge},
		{"order_block_confirm_candles", c.OrderBlockConfirmCandles},
		{"liquidity_min_touches", c.LiquidityMinTouches},
		{"rsi_period", c.RSIPeriod},
		{"volume_lookback", c.VolumeLookback},
	}
	for _, p := range positive {
		if p.v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrConfiguration, p.name, p.v)
		}
	}

	if !finite(c.FVGMinATRMultiple) || c.FVGMinATRMultiple < 0 {
		return fmt.Errorf("%w: fvg_min_atr_multiple must be >= 0", ErrConfiguration)
	}
	if !inRange(c.FVGBaseStrength, 0, 100) {
		return fmt.Errorf("%w: fvg_base_strength must be within [0, 100]", ErrConfiguration)
	}
	if !inRange(c.OrderBlockMinBodyRatio, 0, 1) {
		return fmt.Errorf("%w: order_block_min_body_ratio must be within [0, 1]", ErrConfiguration)
	}
	if !finite(c.LiquidityTolerance) || c.LiquidityTolerance < 0 {
		return fmt.Errorf("%w: liquidity_tolerance must be >= 0", ErrConfiguration)
	}

	w := c.Weights
	for name, v := range map[string]float64{
		"structure": w.Structure, "order_block": w.OrderBlock, "fvg": w.FVG,
		"momentum": w.Momentum, "volume": w.Volume,
	} {
		if !inRange(v, 0, 1) {
			return fmt.Errorf("%w: weights.%s must be within [0, 1]", ErrConfiguration, name)
		}
	}
	if w.Sum() > 1+1e-9 {
		return fmt.Errorf("%w: weights sum to %.4f, must be <= 1", ErrConfiguration, w.Sum())
	}

	t := c.Thresholds
	if !(t.Low > 0 && t.Low < t.Medium && t.Medium < t.High && t.High <= 100) {
		return fmt.Errorf("%w: thresholds must satisfy 0 < low < medium < high <= 100", ErrConfiguration)
	}
	if !inRange(c.MinDirectionalScore, 0, 100) {
		return fmt.Errorf("%w: min_directional_score must be within [0, 100]", ErrConfiguration)
	}
	if !inRange(c.StrongAlignment, 0, 1) {
		return fmt.Errorf("%w: strong_alignment must be within [0, 1]", ErrConfiguration)
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func inRange(v, lo, hi float64) bool { return finite(v) && v >= lo && v <= hi }
