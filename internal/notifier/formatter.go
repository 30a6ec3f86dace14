package notifier

import (
	"fmt"
	"html"
	"strings"

	"SMCSentinel/internal/calculator"
	"SMCSentinel/internal/model"
	"SMCSentinel/internal/smc"
	"SMCSentinel/internal/tracker"
)

var directionIcon = map[model.Direction]string{
	model.Bullish: "🟢",
	model.Bearish: "🔴",
	model.Neutral: "⚪",
}

// FormatBiasReport formats a multi-timeframe analysis into a Telegram message.
func FormatBiasReport(a *model.Analysis) string {
	var b strings.Builder
	bias := a.Bias

	b.WriteString(fmt.Sprintf("🧭 <b>SMC Bias %s</b> | %s\n\n",
		html.EscapeString(a.Symbol), a.AnalyzedAt.UTC().Format("2006-01-02 15:04 UTC")))

	b.WriteString(fmt.Sprintf("%s <b>%s</b> (%s, %.1f)\n",
		directionIcon[bias.Direction], strings.ToUpper(string(bias.Direction)), bias.ConfidenceLevel, bias.Confidence))
	b.WriteString(fmt.Sprintf("Scores: bull %.1f | bear %.1f\n", bias.BullishScore, bias.BearishScore))
	if bias.Confluence != model.ConfluenceNone && bias.Confluence != "" {
		b.WriteString(fmt.Sprintf("Alignment: %.0f%% (%s)\n", bias.Alignment*100, bias.Confluence))
	}

	if len(bias.Signals) > 0 {
		b.WriteString("\n📈 <b>Signals:</b>\n")
		for _, f := range bias.Factors {
			if f.BullishCount == 0 && f.BearishCount == 0 {
				continue
			}
			b.WriteString(fmt.Sprintf("  %s: %d bull (avg %.0f) / %d bear (avg %.0f) ×%.2f\n",
				f.Source, f.BullishCount, f.BullishAverage, f.BearishCount, f.BearishAverage, f.Weight))
		}
	}

	if len(a.Timeframes) > 0 || len(a.Failures) > 0 {
		b.WriteString("\n🕒 <b>Timeframes:</b>\n")
	}
	for _, tf := range a.Timeframes {
		writeTimeframe(&b, tf)
	}
	for _, f := range a.Failures {
		b.WriteString(fmt.Sprintf("  ⚠️ no analysis available for timeframe %s (%s)\n", f.Timeframe, f.Kind))
	}

	return b.String()
}

func writeTimeframe(b *strings.Builder, tf model.TimeframeAnalysis) {
	ms := tf.Structure
	line := fmt.Sprintf("  <b>%s</b>: %s %s", tf.Timeframe, directionIcon[ms.Trend], ms.Trend)
	if ms.Trend != model.Neutral {
		line += fmt.Sprintf(" (%.0f)", ms.Strength)
	}
	if pos, err := calculator.RangePosition(tf.LastClose, tf.RangeHigh, tf.RangeLow); err == nil {
		line += fmt.Sprintf(" | range %.0f%%", pos*100)
	}
	b.WriteString(line + "\n")

	if n := len(ms.Breaks); n > 0 {
		last := ms.Breaks[n-1]
		b.WriteString(fmt.Sprintf("    last break: %s %s @ %.5g\n", last.Direction, last.Kind, last.Level))
	}

	if len(tf.OrderBlocks) > 0 {
		var bull, bear int
		for _, ob := range tf.OrderBlocks {
			if ob.Kind == model.Bullish {
				bull++
			} else {
				bear++
			}
		}
		latest := tf.OrderBlocks[len(tf.OrderBlocks)-1]
		b.WriteString(fmt.Sprintf("    OB: %d bull / %d bear, latest %s %.5g-%.5g (%.0f)\n",
			bull, bear, latest.Kind, latest.PriceLow, latest.PriceHigh, latest.Strength))
	}

	if len(tf.FVGs) > 0 {
		open := len(smc.OpenGaps(tf.FVGs))
		b.WriteString(fmt.Sprintf("    FVG: %d open / %d filled\n", open, len(tf.FVGs)-open))
	}

	if len(tf.Liquidity) > 0 {
		var buy, sell []string
		for _, z := range tf.Liquidity {
			lvl := fmt.Sprintf("%.5g×%d", z.Level, z.Touches)
			if z.Side == model.BuySide {
				buy = append(buy, lvl)
			} else {
				sell = append(sell, lvl)
			}
		}
		if len(buy) > 0 {
			b.WriteString("    buy-side liquidity: " + strings.Join(buy, ", ") + "\n")
		}
		if len(sell) > 0 {
			b.WriteString("    sell-side liquidity: " + strings.Join(sell, ", ") + "\n")
		}
	}
}

// FormatHistory formats stored bias records, newest first.
func FormatHistory(symbol string, records []model.BiasRecord) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📜 <b>Bias history %s</b>\n\n", html.EscapeString(symbol)))
	if len(records) == 0 {
		b.WriteString("no history recorded yet")
		return b.String()
	}
	for _, r := range records {
		b.WriteString(fmt.Sprintf("%s %s %s %s %.1f (bull %.1f / bear %.1f, %d signals)\n",
			r.Date.UTC().Format("2006-01-02 15:04"), directionIcon[r.Direction], r.Direction,
			r.ConfidenceLevel, r.Confidence, r.BullishScore, r.BearishScore, r.SignalCount))
	}
	return b.String()
}

// FormatChange describes a bias flip or streak; empty on first observation.
func FormatChange(c tracker.Change) string {
	switch {
	case c.Flipped:
		return fmt.Sprintf("\n🔄 <b>bias changed</b>: %s → %s\n", c.Previous, c.Current)
	case c.Previous != "" && c.Streak > 1:
		return fmt.Sprintf("\n➡️ %s for %d consecutive runs\n", c.Current, c.Streak)
	}
	return ""
}
