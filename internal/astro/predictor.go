package astro

import (
	"fmt"
	"strings"

	"github.com/wonny/astrostocks/internal/contracts"
)

// NoInfluenceReason is the reason of a sector with no influences
const NoInfluenceReason = "No significant planetary influences detected"

// Predict turns a sector's influences into trend and confidence.
// Positive/Challenging are substring matches so "Highly Positive" counts.
func Predict(sector string, influences []contracts.Influence) contracts.SectorForecast {
	if len(influences) == 0 {
		return contracts.SectorForecast{
			Sector:     sector,
			Trend:      contracts.TrendNeutral,
			Confidence: contracts.ConfidenceLow,
			Reason:     NoInfluenceReason,
		}
	}

	var positive, challenging int
	for _, inf := range influences {
		if strings.Contains(inf.InfluenceType, "Positive") {
			positive++
		}
		if strings.Contains(inf.InfluenceType, "Challenging") {
			challenging++
		}
	}

	trend := contracts.TrendNeutral
	confidence := contracts.ConfidenceLow
	switch {
	case positive > challenging:
		trend = contracts.TrendBullish
		if positive > challenging+1 {
			confidence = contracts.ConfidenceMedium
		}
	case challenging > positive:
		trend = contracts.TrendBearish
		if challenging > positive+1 {
			confidence = contracts.ConfidenceMedium
		}
	}

	return contracts.SectorForecast{
		Sector:     sector,
		Trend:      trend,
		Confidence: confidence,
		Reason:     reason(influences),
	}
}

// reason lists up to three planets, then details the first two
// influences in aggregation order.
func reason(influences []contracts.Influence) string {
	planets := make([]string, 0, 3)
	for i := 0; i < len(influences) && i < 3; i++ {
		planets = append(planets, influences[i].Planet)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Influenced by %s. ", strings.Join(planets, ", "))
	for i := 0; i < len(influences) && i < 2; i++ {
		inf := influences[i]
		fmt.Fprintf(&b, "%s in %s (%s). ", inf.Planet, inf.Sign, inf.Strength)
	}
	return strings.TrimSpace(b.String())
}
