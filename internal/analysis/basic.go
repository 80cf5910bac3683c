package analysis

import (
	"context"

	"github.com/wonny/astrostocks/internal/astro"
	"github.com/wonny/astrostocks/internal/contracts"
)

// basic predicts every influenced sector, attaching the top supplied
// stocks of each
func (s *Service) basic(ctx context.Context, r *run) (*contracts.BasicResult, []contracts.LivePrediction, error) {
	agg := s.aggregator.Aggregate(r.transits)

	preds, err := s.sectorPredictions(ctx, r, agg, agg.Sectors(), true)
	if err != nil {
		return nil, nil, err
	}

	accuracy := astro.AccuracyEstimate(r.transits)
	result := &contracts.BasicResult{
		SectorPredictions:      preds,
		OverallMarketSentiment: astro.OverallSentiment(trends(preds)),
		AccuracyEstimate:       accuracy,
		Timestamp:              s.now().UTC(),
	}

	fraction := astro.AccuracyFraction(accuracy)
	live := make([]contracts.LivePrediction, len(preds))
	for i, p := range preds {
		live[i] = contracts.LivePrediction{
			PredictionDate:     r.date,
			Sector:             p.Sector,
			PlanetaryInfluence: p.PlanetaryInfluence,
			Trend:              p.Trend,
			Confidence:         string(p.Confidence),
			Reason:             p.Reason,
			AIInsights:         marshalInsight(p.AIInsights),
			TopStocks:          p.TopStocks,
			AccuracyEstimate:   fraction,
		}
	}

	return result, live, nil
}
