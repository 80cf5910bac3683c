package analysis

import (
	"context"

	"github.com/wonny/astrostocks/internal/astro"
	"github.com/wonny/astrostocks/internal/contracts"
	"github.com/wonny/astrostocks/internal/insight"
)

// predict builds the date-keyed market prediction: the most influenced
// sectors, key influences and an overall outlook
func (s *Service) predict(ctx context.Context, r *run) (*contracts.PredictionReport, error) {
	agg := s.aggregator.Aggregate(r.transits)

	preds, err := s.sectorPredictions(ctx, r, agg, astro.MostInfluenced(agg, predictSectors), false)
	if err != nil {
		return nil, err
	}
	sentiment := astro.OverallSentiment(trends(preds))

	overall, err := s.enricher.Overall(ctx, insight.OverallInput{
		Date:      r.date,
		Transits:  r.transits,
		Sectors:   preds,
		Sentiment: sentiment,
	})
	if err != nil {
		return nil, err
	}

	return &contracts.PredictionReport{
		PredictionDate:    r.date.Format("2006-01-02"),
		Timezone:          s.location.String(),
		PlanetaryTransits: r.transits,
		MarketPrediction: contracts.MarketPrediction{
			OverallSentiment:  sentiment,
			SectorPredictions: preds,
			KeyInfluences:     astro.KeyInfluences(agg, keyInfluencesPer, keyInfluencesMax),
			AIAnalysis:        overall,
		},
		Confidence: astro.PredictionConfidence(r.transits),
	}, nil
}
