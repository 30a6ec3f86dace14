package smc

import (
	"math"
	"sort"

	"SMCSentinel/internal/model"
)

type indexedLevel struct {
	price float64
	index int
}

// ClusterLevels groups nearly equal price levels in one sort-and-sweep pass.
// A cluster starts at the lowest remaining level s and takes every following
// level up to s + |s|*tolerance, so tolerance is relative to the cluster's
// first level. Clusters with fewer than minTouches members are dropped. The
// zone level is the mean of its members; MemberIndices index into levels.
// NaN levels are ignored.
func ClusterLevels(levels []float64, tolerance float64, minTouches int) []model.LiquidityZone {
	zones := []model.LiquidityZone{}
	sorted := make([]indexedLevel, 0, len(levels))
	for i, p := range levels {
		if !math.IsNaN(p) {
			sorted = append(sorted, indexedLevel{price: p, index: i})
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].price != sorted[j].price {
			return sorted[i].price < sorted[j].price
		}
		return sorted[i].index < sorted[j].index
	})

	for i := 0; i < len(sorted); {
		start := sorted[i].price
		limit := start + math.Abs(start)*tolerance
		j := i + 1
		for j < len(sorted) && sorted[j].price <= limit {
			j++
		}
		if j-i >= minTouches {
			members := make([]int, 0, j-i)
			sum := 0.0
			for _, lv := range sorted[i:j] {
				members = append(members, lv.index)
				sum += lv.price
			}
			sort.Ints(members)
			zones = append(zones, model.LiquidityZone{
				Level:         sum / float64(j-i),
				Touches:       j - i,
				MemberIndices: members,
			})
		}
		i = j
	}
	return zones
}

// LiquidityFromSwings clusters swing highs into buy-side zones and swing lows
// into sell-side zones. MemberIndices are candle indices.
func LiquidityFromSwings(swings []model.SwingPoint, tolerance float64, minTouches int) []model.LiquidityZone {
	highs, lows := splitSwings(swings)
	zones := sideZones(highs, tolerance, minTouches, model.BuySide)
	return append(zones, sideZones(lows, tolerance, minTouches, model.SellSide)...)
}

func sideZones(points []model.SwingPoint, tolerance float64, minTouches int, side model.LiquiditySide) []model.LiquidityZone {
	levels := make([]float64, len(points))
	for i, p := range points {
		levels[i] = p.Price
	}
	zones := ClusterLevels(levels, tolerance, minTouches)
	for z := range zones {
		zones[z].Side = side
		for m, idx := range zones[z].MemberIndices {
			zones[z].MemberIndices[m] = points[idx].Index
		}
	}
	return zones
}
