package calculator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SMCSentinel/internal/model"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func candlesHLC(rows [][3]float64) []model.Candle {
	out := make([]model.Candle, len(rows))
	for i, r := range rows {
		out[i] = model.Candle{
			Time:  t0.Add(time.Duration(i) * time.Hour),
			Open:  r[2],
			High:  r[0],
			Low:   r[1],
			Close: r[2],
		}
	}
	return out
}

func TestTrueRange(t *testing.T) {
	candles := candlesHLC([][3]float64{
		{10, 8, 9},
		{11, 9.5, 10},
		{10.5, 7, 8},
		{12, 8.5, 11},
	})
	tr := TrueRange(candles)
	require.Len(t, tr, 4)
	assert.InDelta(t, 2.0, tr[0], 1e-9, "first candle uses high-low")
	assert.InDelta(t, 2.0, tr[1], 1e-9)
	assert.InDelta(t, 3.5, tr[2], 1e-9)
	assert.InDelta(t, 4.0, tr[3], 1e-9)

	assert.Empty(t, TrueRange(nil))
}

func TestComputeATR(t *testing.T) {
	candles := candlesHLC([][3]float64{
		{10, 8, 9},
		{11, 9.5, 10},
		{10.5, 7, 8},
		{12, 8.5, 11},
	})
	atr, err := ComputeATR(candles, 3)
	require.NoError(t, err)
	require.Len(t, atr, len(candles))
	assert.True(t, math.IsNaN(atr[0]))
	assert.True(t, math.IsNaN(atr[1]))
	assert.InDelta(t, 2.5, atr[2], 1e-9)
	assert.InDelta(t, 9.5/3, atr[3], 1e-9)
	assert.InDelta(t, 9.5/3, LastDefined(atr), 1e-9)
}

func TestComputeATR_PeriodOne(t *testing.T) {
	candles := candlesHLC([][3]float64{{10, 8, 9}, {11, 9.5, 10}})
	atr, err := ComputeATR(candles, 1)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, atr[0], 1e-9)
	assert.InDelta(t, 2.0, atr[1], 1e-9)
}

func TestComputeATR_Errors(t *testing.T) {
	candles := candlesHLC([][3]float64{{10, 8, 9}, {11, 9.5, 10}})

	_, err := ComputeATR(candles, 14)
	assert.ErrorIs(t, err, model.ErrInsufficientData)

	_, err = ComputeATR(candles, 0)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestLastDefined(t *testing.T) {
	assert.Equal(t, 0.0, LastDefined(nil))
	assert.Equal(t, 0.0, LastDefined([]float64{math.NaN()}))
	assert.Equal(t, 2.0, LastDefined([]float64{1, 2, math.NaN()}))
}

func TestCalculateRSI(t *testing.T) {
	rising := make([]model.Candle, 20)
	for i := range rising {
		p := 100 + float64(i)
		rising[i] = model.Candle{Time: t0.Add(time.Duration(i) * time.Hour), Open: p, High: p, Low: p, Close: p}
	}

	rsi, err := CalculateRSI(rising, 14)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, rsi, 1e-6, "only gains")

	rsi, err = CalculateRSI(rising[:10], 14)
	require.NoError(t, err)
	assert.Equal(t, 50.0, rsi, "insufficient data defaults to neutral")

	_, err = CalculateRSI(rising, 1)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestRecentRange(t *testing.T) {
	candles := candlesHLC([][3]float64{
		{20, 1, 10},
		{12, 9, 10},
		{13, 8, 10},
		{11, 9.5, 10},
	})
	high, low, err := RecentRange(candles, 3)
	require.NoError(t, err)
	assert.Equal(t, 13.0, high)
	assert.Equal(t, 8.0, low)

	high, low, err = RecentRange(candles, 100)
	require.NoError(t, err)
	assert.Equal(t, 20.0, high)
	assert.Equal(t, 1.0, low)

	_, _, err = RecentRange(nil, 3)
	assert.Error(t, err)
}

func TestRangePosition(t *testing.T) {
	tests := []struct {
		price, high, low float64
		want             float64
	}{
		{15, 20, 10, 0.5},
		{25, 20, 10, 1},
		{5, 20, 10, 0},
		{10, 10, 10, 0.5},
	}
	for _, tt := range tests {
		got, err := RangePosition(tt.price, tt.high, tt.low)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, 1e-9, "price %.1f in [%.1f, %.1f]", tt.price, tt.low, tt.high)
	}

	_, err := RangePosition(1, 1, 2)
	assert.Error(t, err)
}

func TestValidateSeries(t *testing.T) {
	good := candlesHLC([][3]float64{{10, 8, 9}, {11, 9.5, 10}, {10.5, 7, 8}})
	s := model.Series{Symbol: "EURUSD", Timeframe: model.H1, Candles: good}

	assert.NoError(t, ValidateSeries(s, 3))
	assert.ErrorIs(t, ValidateSeries(s, 30), model.ErrInsufficientData)

	tests := []struct {
		name   string
		mutate func(c []model.Candle)
	}{
		{"duplicate timestamp", func(c []model.Candle) { c[2].Time = c[1].Time }},
		{"descending timestamp", func(c []model.Candle) { c[2].Time = c[0].Time.Add(-time.Hour) }},
		{"zero price", func(c []model.Candle) { c[1].Low = 0 }},
		{"nan price", func(c []model.Candle) { c[1].Close = math.NaN() }},
		{"high below low", func(c []model.Candle) { c[0].High = 7 }},
		{"negative volume", func(c []model.Candle) { c[0].Volume = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := append([]model.Candle(nil), good...)
			tt.mutate(bad)
			err := ValidateSeries(model.Series{Candles: bad}, 1)
			assert.ErrorIs(t, err, model.ErrInvalidInput)
		})
	}
}
