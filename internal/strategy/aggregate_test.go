package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SMCSentinel/internal/model"
)

func TestAggregate(t *testing.T) {
	blocks := []model.OrderBlock{
		{Kind: model.Bullish, Timeframe: model.H1, Strength: 82},
		{Kind: model.Bearish, Timeframe: model.H4, Strength: 130},
	}
	structures := []model.MarketStructure{
		{Timeframe: model.H1, Trend: model.Bullish, Strength: 100},
		{Timeframe: model.H4, Trend: model.Neutral},
	}
	gaps := []model.FairValueGap{
		{Kind: model.Bearish, Timeframe: model.D1, Size: 3},
	}

	signals := Aggregate(blocks, structures, gaps, 60)
	require.Len(t, signals, 4)
	assert.Equal(t, sig(model.SourceOrderBlock, model.H1, model.Bullish, 82), signals[0])
	assert.Equal(t, sig(model.SourceOrderBlock, model.H4, model.Bearish, 100), signals[1], "strength clamped")
	assert.Equal(t, sig(model.SourceStructure, model.H1, model.Bullish, 100), signals[2])
	assert.Equal(t, sig(model.SourceFVG, model.D1, model.Bearish, 60), signals[3])

	assert.Empty(t, Aggregate(nil, nil, nil, 60))
}

func trendSeries(step float64, n int) model.Series {
	t0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, n)
	price := 100.0
	for i := range candles {
		open := price
		price += step
		candles[i] = model.Candle{
			Time: t0.Add(time.Duration(i) * time.Hour), Open: open, Close: price,
			High: max(open, price) + 0.1, Low: min(open, price) - 0.1, Volume: 10,
		}
	}
	return model.Series{Timeframe: model.H1, Candles: candles}
}

func TestMomentumSignal(t *testing.T) {
	s, ok := MomentumSignal(trendSeries(1, 30), 14)
	require.True(t, ok)
	assert.Equal(t, model.SourceMomentum, s.Source)
	assert.Equal(t, model.Bullish, s.Direction)
	assert.InDelta(t, 100.0, s.Strength, 1e-6)

	s, ok = MomentumSignal(trendSeries(-1, 30), 14)
	require.True(t, ok)
	assert.Equal(t, model.Bearish, s.Direction)

	_, ok = MomentumSignal(trendSeries(1, 5), 14)
	assert.False(t, ok, "too short for RSI")
}

func TestVolumeSignal(t *testing.T) {
	series := trendSeries(1, 10)
	series.Candles[9].Open, series.Candles[9].Close = series.Candles[9].Close, series.Candles[9].Open
	series.Candles[9].Volume = 50

	s, ok := VolumeSignal(series, 4)
	require.True(t, ok)
	assert.Equal(t, model.SourceVolume, s.Source)
	assert.Equal(t, model.Bearish, s.Direction)
	assert.InDelta(t, 25.0, s.Strength, 1e-9)

	s, ok = VolumeSignal(trendSeries(1, 10), 4)
	require.True(t, ok)
	assert.Equal(t, model.Bullish, s.Direction)
	assert.InDelta(t, 100.0, s.Strength, 1e-9)

	flat := trendSeries(0, 10)
	_, ok = VolumeSignal(flat, 4)
	assert.False(t, ok)
}
