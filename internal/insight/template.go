package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wonny/astrostocks/internal/contracts"
)

// TemplateGenerator writes insights from the prompt facts alone. It
// makes no network calls and is deterministic, which makes it the
// provider for offline builds and tests.
type TemplateGenerator struct{}

// NewTemplateGenerator creates the offline generator
func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

// Name returns the provider label
func (TemplateGenerator) Name() string {
	return "template"
}

type sectorReply struct {
	Sector            string  `json:"sector"`
	Trend             string  `json:"trend"`
	Reason            string  `json:"reason"`
	Confidence        float64 `json:"confidence"`
	ActionableInsight string  `json:"actionable_insight"`
}

type overallReply struct {
	Date            string `json:"date"`
	MarketSentiment string `json:"market_sentiment"`
	Summary         string `json:"summary"`
}

// Generate renders a JSON insight of the same shape the prompt asks for
func (TemplateGenerator) Generate(ctx context.Context, p Prompt) (contracts.Insight, error) {
	if err := ctx.Err(); err != nil {
		return contracts.Insight{}, err
	}

	var v interface{}
	switch p.Kind {
	case KindSector:
		v = sectorReply{
			Sector:            p.Facts.Sector,
			Trend:             string(p.Facts.Trend),
			Reason:            templateReason(p.Facts.Influences),
			Confidence:        p.Facts.Confidence.Numeric(),
			ActionableInsight: templateAction(p.Facts.Sector, p.Facts.Trend),
		}
	case KindOverall:
		sentiment := p.Facts.Sentiment
		if sentiment == "" {
			sentiment = "Neutral"
		}
		v = overallReply{
			Date:            p.Facts.Date.Format("2006-01-02"),
			MarketSentiment: sentiment,
			Summary:         templateSummary(sentiment, p.Facts.Sectors),
		}
	default:
		return contracts.Insight{}, fmt.Errorf("template generator: unknown prompt kind %q", p.Kind)
	}

	b, err := json.Marshal(v)
	if err != nil {
		return contracts.Insight{}, err
	}
	return contracts.ParseInsight(string(b)), nil
}

func templateReason(influences []contracts.Influence) string {
	if len(influences) == 0 {
		return "No significant planetary influences"
	}
	parts := make([]string, 0, len(influences))
	for _, inf := range influences {
		parts = append(parts, fmt.Sprintf("%s in %s is %s", inf.Planet, inf.Sign, strings.ToLower(inf.InfluenceType)))
	}
	return strings.Join(parts, "; ")
}

func templateAction(sector string, trend contracts.Trend) string {
	switch trend {
	case contracts.TrendBullish:
		return fmt.Sprintf("Accumulate quality %s names on dips", sector)
	case contracts.TrendBearish:
		return fmt.Sprintf("Reduce %s exposure until the transit passes", sector)
	default:
		return fmt.Sprintf("Hold existing %s positions; no fresh trigger", sector)
	}
}

func templateSummary(sentiment string, sectors []contracts.SectorPrediction) string {
	if len(sectors) == 0 {
		return fmt.Sprintf("%s outlook with no dominant sector influence.", sentiment)
	}
	parts := make([]string, 0, len(sectors))
	for _, s := range sectors {
		parts = append(parts, fmt.Sprintf("%s %s", s.Sector, strings.ToLower(string(s.Trend))))
	}
	return fmt.Sprintf("%s outlook. Leading sectors: %s.", sentiment, strings.Join(parts, ", "))
}
