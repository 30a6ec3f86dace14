package collector

import (
	"time"

	"SMCSentinel/internal/model"
)

// aggregateBars folds finer candles into tf candles. Weekly buckets follow
// ISO weeks; every other timeframe truncates UTC time to the bucket length.
// Input must be oldest first.
func aggregateBars(bars []model.Candle, tf model.Timeframe) []model.Candle {
	if len(bars) == 0 {
		return nil
	}
	var out []model.Candle
	var cur model.Candle
	var curKey int64
	started := false

	for _, b := range bars {
		key := bucketKey(b.Time, tf)
		if !started || key != curKey {
			if started {
				out = append(out, cur)
			}
			cur = b
			cur.Time = bucketStart(b.Time, tf)
			curKey = key
			started = true
			continue
		}
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
	}
	return append(out, cur)
}

func bucketKey(t time.Time, tf model.Timeframe) int64 {
	if tf == model.W1 {
		y, w := t.UTC().ISOWeek()
		return int64(y*100 + w)
	}
	return bucketStart(t, tf).Unix()
}

func bucketStart(t time.Time, tf model.Timeframe) time.Time {
	t = t.UTC()
	if tf == model.W1 {
		day := t.Truncate(24 * time.Hour)
		offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
		return day.AddDate(0, 0, -offset)
	}
	return t.Truncate(tf.Duration())
}
