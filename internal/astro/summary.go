package astro

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/wonny/astrostocks/internal/contracts"
)

// PlanetarySummary renders the first three influences as
// "P in S (strength)" joined with commas.
func PlanetarySummary(influences []contracts.Influence) string {
	if len(influences) == 0 {
		return "No significant planetary influences"
	}

	parts := make([]string, 0, 3)
	for i := 0; i < len(influences) && i < 3; i++ {
		inf := influences[i]
		parts = append(parts, fmt.Sprintf("%s in %s (%s)", inf.Planet, inf.Sign, inf.Strength))
	}
	return strings.Join(parts, ", ")
}

// TopStocks returns up to n symbols of the sector by 6-month return,
// best first. Ties keep input order.
func TopStocks(sector string, stocks []contracts.StockRecord, n int) []string {
	var inSector []contracts.StockRecord
	for _, s := range stocks {
		if s.Sector == sector {
			inSector = append(inSector, s)
		}
	}
	sort.SliceStable(inSector, func(i, j int) bool {
		return inSector[i].Past6MReturn > inSector[j].Past6MReturn
	})

	out := make([]string, 0, n)
	for i := 0; i < len(inSector) && i < n; i++ {
		out = append(out, inSector[i].Symbol)
	}
	return out
}

// OverallSentiment is Positive when at least 60% of trends are
// bullish, Negative at 40% or less, Neutral otherwise or when empty.
func OverallSentiment(trends []contracts.Trend) string {
	if len(trends) == 0 {
		return "Neutral"
	}

	bullish := 0
	for _, t := range trends {
		if t == contracts.TrendBullish {
			bullish++
		}
	}

	pct := float64(bullish) / float64(len(trends)) * 100
	switch {
	case pct >= 60:
		return "Positive"
	case pct <= 40:
		return "Negative"
	default:
		return "Neutral"
	}
}

// AccuracyEstimate is 65% plus up to 20 points for the exalted share,
// capped at 85% and truncated. "50%" when there are no transits.
func AccuracyEstimate(transits []contracts.Transit) string {
	if len(transits) == 0 {
		return "50%"
	}

	exalted := 0
	for _, t := range transits {
		if t.Dignity == contracts.DignityExalted {
			exalted++
		}
	}

	acc := math.Min(65+float64(exalted)/float64(len(transits))*20, 85)
	return fmt.Sprintf("%d%%", int(acc))
}

// AccuracyFraction converts "72%" to 0.72; malformed input yields 0
func AccuracyFraction(estimate string) float64 {
	var pct int
	if _, err := fmt.Sscanf(strings.TrimSpace(estimate), "%d%%", &pct); err != nil {
		return 0
	}
	return float64(pct) / 100
}

// PredictionConfidence scores a transit set on [0.5, 0.95]:
// 0.6 base, +0.2 × exalted share, +0.1 × direct share, +0.05 for each
// extra planet sharing a sign. Rounded to two decimals.
func PredictionConfidence(transits []contracts.Transit) float64 {
	if len(transits) == 0 {
		return 0.5
	}

	n := float64(len(transits))
	var exalted, direct int
	signCount := make(map[string]int)
	for _, t := range transits {
		if t.Dignity == contracts.DignityExalted {
			exalted++
		}
		if !t.IsRetrograde() {
			direct++
		}
		signCount[t.Sign]++
	}

	conjunction := 0.0
	for _, c := range signCount {
		if c >= 2 {
			conjunction += 0.05 * float64(c-1)
		}
	}

	c := 0.6 + float64(exalted)/n*0.2 + float64(direct)/n*0.1 + conjunction
	c = math.Min(c, 0.95)
	return math.Round(c*100) / 100
}

// MostInfluenced returns up to n sectors ordered by influence count,
// ties in first-seen order.
func MostInfluenced(agg Aggregation, n int) []string {
	sectors := append([]string(nil), agg.Sectors()...)
	sort.SliceStable(sectors, func(i, j int) bool {
		return len(agg.Influences(sectors[i])) > len(agg.Influences(sectors[j]))
	})
	if len(sectors) > n {
		sectors = sectors[:n]
	}
	return sectors
}

// KeyInfluences takes the first perSector influences of every sector,
// in sector order, up to limit.
func KeyInfluences(agg Aggregation, perSector, limit int) []contracts.KeyInfluence {
	out := make([]contracts.KeyInfluence, 0, limit)
	for _, sector := range agg.Sectors() {
		infs := agg.Influences(sector)
		for i := 0; i < len(infs) && i < perSector; i++ {
			if len(out) == limit {
				return out
			}
			inf := infs[i]
			out = append(out, contracts.KeyInfluence{
				Planet:        inf.Planet,
				Sign:          inf.Sign,
				InfluenceType: inf.InfluenceType,
				Strength:      inf.Strength,
				Description:   fmt.Sprintf("%s in %s affects %s sector", inf.Planet, inf.Sign, sector),
			})
		}
	}
	return out
}

// NormalizeTransits fills motion and dignity from the rule table when
// the source omitted them.
func NormalizeTransits(transits []contracts.Transit) []contracts.Transit {
	out := make([]contracts.Transit, len(transits))
	for i, t := range transits {
		if t.Motion == "" {
			t.Motion = contracts.MotionDirect
		}
		if t.Dignity == "" {
			t.Dignity = DignityOf(t.Planet, t.Sign)
		}
		out[i] = t
	}
	return out
}
