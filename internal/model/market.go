package model

import (
	"fmt"
	"strings"
	"time"
)

// Candle represents a single candlestick bar.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Body returns the absolute open-close distance.
func (c Candle) Body() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Range returns the high-low distance.
func (c Candle) Range() float64 { return c.High - c.Low }

// Timeframe identifies a candle resolution.
type Timeframe string

const (
	M15 Timeframe = "M15"
	H1  Timeframe = "H1"
	H4  Timeframe = "H4"
	D1  Timeframe = "D1"
	W1  Timeframe = "W1"
)

var timeframeMinutes = map[Timeframe]int{
	M15: 15,
	H1:  60,
	H4:  240,
	D1:  1440,
	W1:  10080,
}

// Rank returns the timeframe length in minutes, 0 when unknown.
func (tf Timeframe) Rank() int { return timeframeMinutes[tf] }

// Duration returns the length of one candle.
func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf.Rank()) * time.Minute
}

// Valid reports whether tf is one of the supported timeframes.
func (tf Timeframe) Valid() bool { return tf.Rank() > 0 }

// Series is the candle history of one symbol on one timeframe, oldest first.
type Series struct {
	Symbol    string
	Timeframe Timeframe
	Candles   []Candle
}

// Len returns the number of candles.
func (s Series) Len() int { return len(s.Candles) }

// ParseTimeframe accepts the canonical names case-insensitively.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(strings.ToUpper(strings.TrimSpace(s)))
	if !tf.Valid() {
		return "", fmt.Errorf("%w: unknown timeframe %q", ErrConfiguration, s)
	}
	return tf, nil
}
