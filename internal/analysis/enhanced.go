package analysis

import (
	"context"

	"github.com/wonny/astrostocks/internal/astro"
	"github.com/wonny/astrostocks/internal/contracts"
	"github.com/wonny/astrostocks/internal/signals"
)

// enhanced scores every stock against its sector prediction and ranks
// the result
func (s *Service) enhanced(ctx context.Context, r *run) (*contracts.EnhancedResult, []contracts.LivePrediction, error) {
	agg := s.aggregator.Aggregate(r.transits)

	preds, err := s.sectorPredictions(ctx, r, agg, agg.Sectors(), false)
	if err != nil {
		return nil, nil, err
	}

	views := make(map[string]signals.SectorView, len(preds))
	for _, p := range preds {
		views[p.Sector] = signals.SectorView{
			Trend:      p.Trend,
			Confidence: p.Confidence.Numeric(),
			Insight:    p.AIInsights.String(),
		}
	}
	all := signals.ScoreAll(r.stocks, views)

	bySector := make(map[string][]contracts.StockSignal)
	for _, sig := range all {
		bySector[sig.Sector] = append(bySector[sig.Sector], sig)
	}

	sectors := make([]contracts.SectorAnalysis, len(preds))
	live := make([]contracts.LivePrediction, len(preds))
	for i, p := range preds {
		inSector := bySector[p.Sector]
		if inSector == nil {
			inSector = []contracts.StockSignal{}
		}
		confidence := p.Confidence.Numeric()

		sectors[i] = contracts.SectorAnalysis{
			Sector:             p.Sector,
			Trend:              p.Trend,
			PlanetaryInfluence: p.PlanetaryInfluence,
			AIInsights:         p.AIInsights,
			StocksInSector:     inSector,
			Confidence:         confidence,
		}

		top := make([]string, 0, liveTopStocks)
		for j := 0; j < len(inSector) && j < liveTopStocks; j++ {
			top = append(top, inSector[j].Symbol)
		}
		live[i] = contracts.LivePrediction{
			PredictionDate:     r.date,
			Sector:             p.Sector,
			PlanetaryInfluence: p.PlanetaryInfluence,
			Trend:              p.Trend,
			Confidence:         string(p.Confidence),
			Reason:             p.AIInsights.String(),
			AIInsights:         marshalInsight(p.AIInsights),
			TopStocks:          top,
			AccuracyEstimate:   confidence,
		}
	}

	result := &contracts.EnhancedResult{
		TopRecommendations: s.ranker.Rank(all),
		SectorAnalysis:     sectors,
		AllStocks:          all,
		OverallSentiment:   astro.OverallSentiment(trends(preds)),
		Timestamp:          s.now().UTC(),
	}
	return result, live, nil
}
