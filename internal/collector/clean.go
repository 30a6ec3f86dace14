package collector

import (
	"fmt"
	"math"
	"sort"

	"SMCSentinel/internal/model"
)

// maxMissingRatio is the share of unusable bars above which a series is
// rejected instead of forward filled.
const maxMissingRatio = 0.10

// Clean sorts bars by time, drops duplicate timestamps (keeping the last),
// trims leading unusable bars and forward fills the rest from the previous
// close. A bar is unusable when any price is missing, non-finite or not
// positive.
func Clean(bars []model.Candle) ([]model.Candle, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no bars returned", model.ErrInsufficientData)
	}

	sorted := make([]model.Candle, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	out := make([]model.Candle, 0, len(sorted))
	for _, b := range sorted {
		if n := len(out); n > 0 && out[n-1].Time.Equal(b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}

	first := 0
	for first < len(out) && !usable(out[first]) {
		first++
	}
	if first == len(out) {
		return nil, fmt.Errorf("%w: every bar is missing prices", model.ErrInvalidInput)
	}

	missing := first
	for i := first + 1; i < len(out); i++ {
		if usable(out[i]) {
			continue
		}
		missing++
	}
	if float64(missing) >= maxMissingRatio*float64(len(out)) && missing > 0 {
		return nil, fmt.Errorf("%w: %d of %d bars missing", model.ErrInvalidInput, missing, len(out))
	}

	out = out[first:]
	for i := 1; i < len(out); i++ {
		if usable(out[i]) {
			continue
		}
		prev := out[i-1].Close
		out[i] = model.Candle{Time: out[i].Time, Open: prev, High: prev, Low: prev, Close: prev}
	}
	return out, nil
}

func usable(c model.Candle) bool {
	for _, p := range [...]float64{c.Open, c.High, c.Low, c.Close} {
		if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
			return false
		}
	}
	return c.High >= c.Low
}
