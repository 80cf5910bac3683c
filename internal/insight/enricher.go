package insight

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/wonny/astrostocks/internal/contracts"
	"github.com/wonny/astrostocks/internal/metrics"
)

// Enricher attaches language-model insights to sector predictions.
// A run is all-or-nothing: the first failing call cancels the rest and
// the run fails with contracts.ErrEnrichment.
type Enricher struct {
	gen         Generator
	builder     *Builder
	limiter     *rate.Limiter
	concurrency int
	log         zerolog.Logger
}

// EnricherOptions bounds outgoing calls
type EnricherOptions struct {
	Concurrency   int     // max in-flight calls, default 4
	RatePerSecond float64 // call pacing; <= 0 disables pacing
}

// NewEnricher creates an enricher
func NewEnricher(gen Generator, builder *Builder, opts EnricherOptions, log zerolog.Logger) *Enricher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}

	return &Enricher{
		gen:         gen,
		builder:     builder,
		limiter:     rate.NewLimiter(limit, opts.Concurrency),
		concurrency: opts.Concurrency,
		log: log.With().
			Str("component", "insight.enricher").
			Str("provider", gen.Name()).
			Logger(),
	}
}

// Provider returns the generator's label
func (e *Enricher) Provider() string {
	return e.gen.Name()
}

// EnrichSectors sets AIInsights on every prediction in place. Order of
// the slice is preserved whatever the completion order.
func (e *Enricher) EnrichSectors(ctx context.Context, preds []contracts.SectorPrediction) error {
	if len(preds) == 0 {
		return nil
	}

	prompts := make([]Prompt, len(preds))
	for i, p := range preds {
		prompt, err := e.builder.Sector(SectorInput{
			Sector:     p.Sector,
			Trend:      p.Trend,
			Confidence: p.Confidence,
			Influences: p.Influences,
		})
		if err != nil {
			return fmt.Errorf("%w: %v", contracts.ErrEnrichment, err)
		}
		prompts[i] = prompt
	}

	results := make([]contracts.Insight, len(preds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i := range prompts {
		i := i
		g.Go(func() error {
			in, err := e.call(gctx, prompts[i])
			if err != nil {
				return fmt.Errorf("sector %s: %w", preds[i].Sector, err)
			}
			results[i] = in
			return nil
		})
	}

	start := time.Now()
	if err := g.Wait(); err != nil {
		e.log.Error().Err(err).Int("sectors", len(preds)).Msg("sector enrichment failed")
		return fmt.Errorf("%w: %v", contracts.ErrEnrichment, err)
	}

	for i := range preds {
		preds[i].AIInsights = results[i]
	}

	e.log.Info().
		Int("sectors", len(preds)).
		Dur("duration", time.Since(start)).
		Msg("sector enrichment completed")

	return nil
}

// Overall produces the market-outlook insight of a date prediction
func (e *Enricher) Overall(ctx context.Context, in OverallInput) (contracts.Insight, error) {
	prompt, err := e.builder.Overall(in)
	if err != nil {
		return contracts.Insight{}, fmt.Errorf("%w: %v", contracts.ErrEnrichment, err)
	}

	out, err := e.call(ctx, prompt)
	if err != nil {
		e.log.Error().Err(err).Msg("overall analysis failed")
		return contracts.Insight{}, fmt.Errorf("%w: %v", contracts.ErrEnrichment, err)
	}
	return out, nil
}

func (e *Enricher) call(ctx context.Context, p Prompt) (contracts.Insight, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return contracts.Insight{}, err
	}

	start := time.Now()
	out, err := e.gen.Generate(ctx, p)
	metrics.RecordInsightCall(e.gen.Name(), string(p.Kind), time.Since(start), err)
	if err != nil {
		return contracts.Insight{}, err
	}
	return out, nil
}
