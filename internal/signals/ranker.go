package signals

import (
	"github.com/wonny/astrostocks/internal/contracts"
	"github.com/wonny/astrostocks/pkg/logger"
)

// Ranker picks the top recommendations from scored stocks
// ⭐ SSOT: recommendation ranking lives here only
type Ranker struct {
	limit  int
	logger *logger.Logger
}

// NewRanker creates a ranker returning at most limit recommendations
func NewRanker(limit int, logger *logger.Logger) *Ranker {
	return &Ranker{
		limit:  limit,
		logger: logger,
	}
}

// Rank takes BUY signals first, then fills with HOLD. SELL is never
// recommended. Input must already be in score order (ScoreAll).
func (r *Ranker) Rank(signals []contracts.StockSignal) []contracts.Recommendation {
	picked := make([]contracts.StockSignal, 0, r.limit)
	for _, want := range []contracts.Signal{contracts.SignalBuy, contracts.SignalHold} {
		for _, s := range signals {
			if len(picked) == r.limit {
				break
			}
			if s.Signal == want {
				picked = append(picked, s)
			}
		}
	}

	recs := make([]contracts.Recommendation, len(picked))
	for i, s := range picked {
		recs[i] = contracts.Recommendation{
			Rank:  i + 1,
			Stock: s.StockSummary,
			Score: s.Score,
		}
	}

	fields := map[string]interface{}{
		"scored":          len(signals),
		"recommendations": len(recs),
	}
	if len(recs) > 0 {
		fields["top_symbol"] = recs[0].Stock.Symbol
		fields["top_score"] = recs[0].Score
	}
	r.logger.WithFields(fields).Debug("Ranking completed")

	return recs
}
