package model

// SwingKind distinguishes swing highs from swing lows.
type SwingKind string

const (
	SwingHigh SwingKind = "high"
	SwingLow  SwingKind = "low"
)

// SwingPoint is a local extremum confirmed by a symmetric lookback window.
type SwingPoint struct {
	Index int
	Price float64
	Kind  SwingKind
}

// BreakKind is BOS (continuation) or CHoCH (reversal).
type BreakKind string

const (
	BreakBOS   BreakKind = "BOS"
	BreakCHoCH BreakKind = "CHoCH"
)

// StructureBreak records a candle taking out a prior swing level.
type StructureBreak struct {
	Index      int // breaking candle
	SwingIndex int // swing whose level was taken out
	Level      float64
	Direction  Direction
	Kind       BreakKind
}

// MarketStructure is the trend read of one timeframe.
type MarketStructure struct {
	Timeframe   Timeframe
	Trend       Direction
	Strength    float64
	RecentHighs []float64
	RecentLows  []float64
	Breaks      []StructureBreak
}

// OrderBlock is the last opposing candle before a structure break.
type OrderBlock struct {
	Kind               Direction
	PriceHigh          float64
	PriceLow           float64
	Timeframe          Timeframe
	Strength           float64
	OriginIndex        int
	BreakIndex         int
	BodyScore          float64
	FollowThroughScore float64
	MomentumScore      float64
}

// FairValueGap is a three-candle price imbalance. Index is the first candle.
type FairValueGap struct {
	Kind      Direction
	Top       float64
	Bottom    float64
	Size      float64
	Timeframe Timeframe
	Index     int
	Filled    bool
	FillIndex *int
}

// LiquiditySide tells whether a zone rests above (buy-side) or below (sell-side) price.
type LiquiditySide string

const (
	BuySide  LiquiditySide = "buy_side"
	SellSide LiquiditySide = "sell_side"
)

// LiquidityZone is a cluster of nearly equal price levels.
type LiquidityZone struct {
	Level         float64
	Touches       int
	MemberIndices []int
	Side          LiquiditySide
}
