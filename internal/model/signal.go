package model

// Direction is the polarity of a pattern, signal or bias.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
	Neutral Direction = "neutral"
)

// SignalSource names the detector family a signal came from.
type SignalSource string

const (
	SourceOrderBlock SignalSource = "order_block"
	SourceStructure  SignalSource = "structure"
	SourceFVG        SignalSource = "fvg"
	SourceMomentum   SignalSource = "momentum"
	SourceVolume     SignalSource = "volume"
)

// Signal is one directional vote with a strength in [0, 100].
type Signal struct {
	Source    SignalSource
	Timeframe Timeframe
	Direction Direction
	Strength  float64
}

// ConfidenceLevel is the discrete label attached to a bias.
type ConfidenceLevel string

const (
	ConfidenceHigh    ConfidenceLevel = "HIGH"
	ConfidenceMedium  ConfidenceLevel = "MEDIUM"
	ConfidenceLow     ConfidenceLevel = "LOW"
	ConfidenceNeutral ConfidenceLevel = "NEUTRAL"
)

// Downgrade returns the next lower level. Neutral stays Neutral.
func (l ConfidenceLevel) Downgrade() ConfidenceLevel {
	switch l {
	case ConfidenceHigh:
		return ConfidenceMedium
	case ConfidenceMedium:
		return ConfidenceLow
	default:
		return ConfidenceNeutral
	}
}

// Confluence labels how well the timeframes agree with the overall direction.
const (
	ConfluenceStrong = "strong"
	ConfluenceWeak   = "weak"
	ConfluenceNone   = "none"
)

// FactorScore is one signal source's contribution to a bias.
type FactorScore struct {
	Source         SignalSource
	Weight         float64
	BullishCount   int
	BearishCount   int
	BullishAverage float64
	BearishAverage float64
}

// Bias is the final output of the bias calculator.
type Bias struct {
	Direction       Direction
	Confidence      float64
	ConfidenceLevel ConfidenceLevel
	BullishScore    float64
	BearishScore    float64
	Alignment       float64
	Confluence      string
	Factors         []FactorScore
	Signals         []Signal
}

// NeutralBias is the result for an empty signal set.
func NeutralBias() Bias {
	return Bias{
		Direction:       Neutral,
		ConfidenceLevel: ConfidenceNeutral,
		Confluence:      ConfluenceNone,
		Signals:         []Signal{},
	}
}
