package model

import "time"

// TimeframeAnalysis holds every detector output for one timeframe.
type TimeframeAnalysis struct {
	Timeframe   Timeframe
	Bars        int
	LastClose   float64
	RangeHigh   float64
	RangeLow    float64
	ATR         float64
	Swings      []SwingPoint
	Structure   MarketStructure
	OrderBlocks []OrderBlock
	FVGs        []FairValueGap
	Liquidity   []LiquidityZone
	Signals     []Signal
}

// TimeframeFailure records a timeframe that produced no analysis.
type TimeframeFailure struct {
	Timeframe Timeframe
	Kind      string
	Message   string
}

// Analysis is the per-symbol result across all timeframes. AnalyzedAt is the
// time of the latest candle seen; RunID is assigned by the caller.
type Analysis struct {
	RunID      string
	Symbol     string
	AnalyzedAt time.Time
	Timeframes []TimeframeAnalysis
	Failures   []TimeframeFailure
	Bias       Bias
}

// BiasRecord is the flat row written to the bias history table.
type BiasRecord struct {
	RunID           string
	Date            time.Time
	Symbol          string
	Direction       Direction
	Confidence      float64
	ConfidenceLevel ConfidenceLevel
	BullishScore    float64
	BearishScore    float64
	SignalCount     int
}

// Record flattens the analysis into a BiasRecord.
func (a *Analysis) Record() BiasRecord {
	return BiasRecord{
		RunID:           a.RunID,
		Date:            a.AnalyzedAt,
		Symbol:          a.Symbol,
		Direction:       a.Bias.Direction,
		Confidence:      a.Bias.Confidence,
		ConfidenceLevel: a.Bias.ConfidenceLevel,
		BullishScore:    a.Bias.BullishScore,
		BearishScore:    a.Bias.BearishScore,
		SignalCount:     len(a.Bias.Signals),
	}
}
