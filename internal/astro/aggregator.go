package astro

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/wonny/astrostocks/internal/contracts"
)

// Aggregation maps sectors to the influences acting on them.
// Sectors appear in first-seen order; sectors nobody touched are absent.
type Aggregation struct {
	order    []string
	bySector map[string][]contracts.Influence
}

// Sectors returns sector names in first-seen order
func (a Aggregation) Sectors() []string {
	return a.order
}

// Influences returns the influences of one sector in transit order
func (a Aggregation) Influences(sector string) []contracts.Influence {
	return a.bySector[sector]
}

// Has reports whether any transit touched the sector
func (a Aggregation) Has(sector string) bool {
	_, ok := a.bySector[sector]
	return ok
}

// Len returns the number of influenced sectors
func (a Aggregation) Len() int {
	return len(a.order)
}

// Aggregator folds transits into sector influences
type Aggregator struct {
	log zerolog.Logger
}

// NewAggregator creates an aggregator
func NewAggregator(log zerolog.Logger) *Aggregator {
	return &Aggregator{
		log: log.With().Str("component", "astro.aggregator").Logger(),
	}
}

// Aggregate analyzes every transit and appends its influence to each
// affected sector. Transits naming an unknown planet are skipped.
func (a *Aggregator) Aggregate(transits []contracts.Transit) Aggregation {
	agg := Aggregation{bySector: make(map[string][]contracts.Influence)}

	for _, t := range transits {
		analysis, err := Analyze(t.Planet, t.Sign, t.Motion)
		if errors.Is(err, contracts.ErrUnknownPlanet) {
			a.log.Warn().
				Str("planet", t.Planet).
				Str("sign", t.Sign).
				Msg("skipping transit for unknown planet")
			continue
		}

		inf := contracts.Influence{
			Planet:        analysis.Planet,
			Sign:          analysis.Sign,
			Strength:      analysis.Strength,
			InfluenceType: analysis.InfluenceType,
			Qualities:     analysis.Qualities,
		}

		for _, sector := range analysis.AffectedSectors {
			if _, ok := agg.bySector[sector]; !ok {
				agg.order = append(agg.order, sector)
			}
			agg.bySector[sector] = append(agg.bySector[sector], inf)
		}
	}

	a.log.Debug().
		Int("transits", len(transits)).
		Int("sectors", agg.Len()).
		Msg("aggregation completed")

	return agg
}
