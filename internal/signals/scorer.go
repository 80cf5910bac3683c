package signals

import (
	"fmt"
	"sort"

	"github.com/wonny/astrostocks/internal/contracts"
)

const (
	baseScore = 50.0

	buyThreshold  = 70.0
	sellThreshold = 40.0

	unknownSector   = "Unknown"
	noInsightText   = "No astrological insights available"
	defaultInsight  = "Sector analysis based on planetary transits."
	neutralFallback = 0.5
)

// SectorView is the part of a sector prediction the scorer reads
type SectorView struct {
	Trend      contracts.Trend
	Confidence float64 // numeric, see ConfidenceLevel.Numeric
	Insight    string
}

// NeutralView is used for stocks whose sector has no prediction
func NeutralView() SectorView {
	return SectorView{
		Trend:      contracts.TrendNeutral,
		Confidence: neutralFallback,
		Insight:    noInsightText,
	}
}

// Score computes one stock's additive score and signal.
// ⭐ SSOT: stock scoring ladders live here only
//
//	base 50
//	sector   ±40 × confidence (Bullish +, Bearish −)
//	6M       >20 +30, >10 +20, >0 +10, <-20 −30, <-10 −20, else −10
//	today    >2 +20, >0 +10, <-2 −20, <0 −10
//	vol      Low +10, High −10
//
// The raw score is not clamped.
func Score(stock contracts.StockRecord, view SectorView) contracts.StockSignal {
	volatility := stock.VolatilityOrDefault()

	score := baseScore
	score += sectorTerm(view)
	score += returnTerm(stock.Past6MReturn)
	score += momentumTerm(stock.ChangePercent)
	score += volatilityTerm(volatility)

	sector := stock.Sector
	if sector == "" {
		sector = unknownSector
	}

	reasoning := view.Insight
	if reasoning == "" {
		reasoning = defaultInsight
	}

	return contracts.StockSignal{
		StockSummary: contracts.StockSummary{
			Symbol:                stock.Symbol,
			Sector:                sector,
			CurrentPrice:          stock.CurrentPrice,
			ChangePercent:         stock.ChangePercent,
			Signal:                signalFor(score),
			Confidence:            view.Confidence,
			AstrologicalReasoning: reasoning,
			TechnicalSummary: fmt.Sprintf("6M Return: %.1f%%, Today: %+.1f%%, Volatility: %s",
				stock.Past6MReturn, stock.ChangePercent, volatility),
			Past6MReturn: stock.Past6MReturn,
			Volatility:   volatility,
		},
		Score: score,
	}
}

// ScoreAll scores every stock against its sector's view and returns
// them by score, highest first. Equal scores keep input order.
func ScoreAll(stocks []contracts.StockRecord, views map[string]SectorView) []contracts.StockSignal {
	out := make([]contracts.StockSignal, 0, len(stocks))
	for _, st := range stocks {
		view, ok := views[st.Sector]
		if !ok {
			view = NeutralView()
		}
		out = append(out, Score(st, view))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func sectorTerm(view SectorView) float64 {
	switch view.Trend {
	case contracts.TrendBullish:
		return 40 * view.Confidence
	case contracts.TrendBearish:
		return -40 * view.Confidence
	default:
		return 0
	}
}

func returnTerm(r float64) float64 {
	switch {
	case r > 20:
		return 30
	case r > 10:
		return 20
	case r > 0:
		return 10
	case r < -20:
		return -30
	case r < -10:
		return -20
	default:
		return -10
	}
}

func momentumTerm(c float64) float64 {
	switch {
	case c > 2:
		return 20
	case c > 0:
		return 10
	case c < -2:
		return -20
	case c < 0:
		return -10
	default:
		return 0
	}
}

func volatilityTerm(v string) float64 {
	switch v {
	case "Low":
		return 10
	case "High":
		return -10
	default:
		return 0
	}
}

func signalFor(score float64) contracts.Signal {
	switch {
	case score >= buyThreshold:
		return contracts.SignalBuy
	case score <= sellThreshold:
		return contracts.SignalSell
	default:
		return contracts.SignalHold
	}
}
