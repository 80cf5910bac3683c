package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/astrostocks/internal/astro"
	"github.com/wonny/astrostocks/internal/cache"
	"github.com/wonny/astrostocks/internal/contracts"
	"github.com/wonny/astrostocks/internal/insight"
	"github.com/wonny/astrostocks/internal/metrics"
	"github.com/wonny/astrostocks/internal/signals"
	"github.com/wonny/astrostocks/pkg/logger"
)

const (
	topStocksPerSector = 3
	liveTopStocks      = 5
	predictSectors     = 5
	keyInfluencesPer   = 2
	keyInfluencesMax   = 5
)

// Options wires a Service. Everything is explicit; nothing is read
// from globals.
type Options struct {
	Coordinator *cache.Coordinator
	Enricher    *insight.Enricher
	Transits    contracts.TransitProvider
	Stocks      contracts.StockProvider

	TrackedStocks       []string
	UseRealData         bool
	RecommendationLimit int
	Location            *time.Location

	Logger *logger.Logger
}

// Service runs astro-market analyses through the cache coordinator
// ⭐ SSOT: the analysis pipeline (transits → sectors → insights → signals) lives here
type Service struct {
	coordinator *cache.Coordinator
	enricher    *insight.Enricher
	transits    contracts.TransitProvider
	stocks      contracts.StockProvider
	aggregator  *astro.Aggregator
	ranker      *signals.Ranker

	tracked     []string
	useRealData bool
	location    *time.Location
	now         func() time.Time

	logger *logger.Logger
}

// NewService creates an analysis service
func NewService(opts Options) *Service {
	limit := opts.RecommendationLimit
	if limit <= 0 {
		limit = 10
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	log := opts.Logger.Component("analysis")

	return &Service{
		coordinator: opts.Coordinator,
		enricher:    opts.Enricher,
		transits:    opts.Transits,
		stocks:      opts.Stocks,
		aggregator:  astro.NewAggregator(log.Zerolog()),
		ranker:      signals.NewRanker(limit, log),
		tracked:     opts.TrackedStocks,
		useRealData: opts.UseRealData,
		location:    loc,
		now:         time.Now,
		logger:      log,
	}
}

// Location is the timezone used to resolve "today"
func (s *Service) Location() *time.Location {
	return s.location
}

// Request is one analysis call
type Request struct {
	Kind        contracts.Kind
	Date        time.Time // zero means today in the service timezone
	Stocks      []contracts.StockRecord
	Transits    []contracts.Transit
	HardRefresh bool
	UseRealData bool // enhanced only; also needs Options.UseRealData
	Observer    Observer
}

// Outcome is the result of Run. Result is *contracts.BasicResult,
// *contracts.EnhancedResult or *contracts.PredictionReport by kind.
type Outcome struct {
	Date     time.Time
	Result   interface{}
	Payload  json.RawMessage
	Cached   bool
	Archived int
}

// run carries the inputs and products of one computation
type run struct {
	req      Request
	date     time.Time
	transits []contracts.Transit
	stocks   []contracts.StockRecord
	result   interface{}
}

// Run serves req from cache or computes it
func (s *Service) Run(ctx context.Context, req Request) (*Outcome, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown analysis kind %q", contracts.ErrInvalidInput, req.Kind)
	}

	date := req.Date
	if date.IsZero() {
		date = s.now().In(s.location)
	}
	key := cache.NewKey(date, req.Kind)
	r := &run{req: req, date: key.Date}

	log := s.logger.WithFields(map[string]interface{}{
		"kind":         string(req.Kind),
		"date":         key.DateString(),
		"hard_refresh": req.HardRefresh,
	})
	log.Info("Starting analysis run")
	req.Observer.emit(Event{Stage: StageStarted, Message: fmt.Sprintf("Starting %s analysis for %s", req.Kind, key.DateString())})

	start := time.Now()
	out, err := s.coordinator.Run(ctx, cache.Job{
		Key:         key,
		HardRefresh: req.HardRefresh,
		Acquire:     func(ctx context.Context) error { return s.acquire(ctx, r) },
		Compute:     func(ctx context.Context) (*cache.Computed, error) { return s.compute(ctx, r) },
	})
	if err != nil {
		metrics.RecordAnalysis(string(req.Kind), false, time.Since(start), err)
		log.WithError(err).Error("Analysis run failed")
		req.Observer.emit(Event{Stage: StageError, Error: err.Error()})
		return nil, err
	}
	metrics.RecordAnalysis(string(req.Kind), out.Cached, time.Since(start), nil)

	outcome := &Outcome{
		Date:     key.Date,
		Result:   r.result,
		Payload:  out.Payload,
		Cached:   out.Cached,
		Archived: out.Archived,
	}
	if out.Cached {
		result, err := decode(req.Kind, out.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: decode cached %s: %v", contracts.ErrPersistence, key, err)
		}
		outcome.Result = result
		req.Observer.emit(Event{Stage: StageCached, Message: "Served from cache"})
	}

	log.WithFields(map[string]interface{}{
		"cached":   outcome.Cached,
		"archived": outcome.Archived,
		"duration": time.Since(start).String(),
	}).Info("Analysis run completed")
	req.Observer.emit(Event{Stage: StageComplete, Data: outcome.Result})

	return outcome, nil
}

// acquire loads transits and stocks before anything is archived
func (s *Service) acquire(ctx context.Context, r *run) error {
	transits, err := s.loadTransits(ctx, r)
	if err != nil {
		return err
	}
	r.transits = transits
	r.req.Observer.emit(Event{Stage: StageTransitsLoaded, Count: len(transits)})

	stocks, err := s.loadStocks(ctx, r)
	if err != nil {
		return err
	}
	r.stocks = stocks
	r.req.Observer.emit(Event{Stage: StageStocksLoaded, Count: len(stocks)})
	return nil
}

func (s *Service) loadTransits(ctx context.Context, r *run) ([]contracts.Transit, error) {
	if len(r.req.Transits) > 0 {
		return astro.NormalizeTransits(r.req.Transits), nil
	}
	if s.transits == nil {
		return nil, fmt.Errorf("%w: no ephemeris configured", contracts.ErrUnavailable)
	}

	transits, err := s.transits.Transits(ctx, r.date)
	if err != nil {
		return nil, unavailable("planetary transits", err)
	}
	if len(transits) == 0 {
		return nil, fmt.Errorf("%w: planetary transit data unavailable", contracts.ErrUnavailable)
	}
	return astro.NormalizeTransits(transits), nil
}

func (s *Service) loadStocks(ctx context.Context, r *run) ([]contracts.StockRecord, error) {
	switch r.req.Kind {
	case contracts.KindPredict:
		return nil, nil
	case contracts.KindBasic:
		return r.req.Stocks, nil
	}

	if !(r.req.UseRealData && s.useRealData) {
		if len(r.req.Stocks) == 0 {
			return nil, fmt.Errorf("%w: stock data is required when real market data is disabled", contracts.ErrInvalidInput)
		}
		return r.req.Stocks, nil
	}

	if len(s.tracked) == 0 {
		return nil, fmt.Errorf("%w: no tracked stocks configured", contracts.ErrInvalidInput)
	}
	if s.stocks == nil {
		return nil, fmt.Errorf("%w: no market data provider configured", contracts.ErrUnavailable)
	}

	stocks, err := s.stocks.Stocks(ctx, s.tracked)
	if err != nil {
		return nil, unavailable("market data", err)
	}
	if len(stocks) == 0 {
		return nil, fmt.Errorf("%w: no stock data available from market data service", contracts.ErrUnavailable)
	}
	return stocks, nil
}

func (s *Service) compute(ctx context.Context, r *run) (*cache.Computed, error) {
	var (
		live []contracts.LivePrediction
		err  error
	)
	switch r.req.Kind {
	case contracts.KindBasic:
		r.result, live, err = s.basic(ctx, r)
	case contracts.KindEnhanced:
		r.result, live, err = s.enhanced(ctx, r)
	case contracts.KindPredict:
		r.result, err = s.predict(ctx, r)
	}
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(r.result)
	if err != nil {
		return nil, fmt.Errorf("marshal %s result: %w", r.req.Kind, err)
	}
	return &cache.Computed{Payload: payload, Live: live}, nil
}

// sectorPredictions runs predictor and enrichment for the given sectors
// of an aggregation. Enrichment is all-or-nothing.
func (s *Service) sectorPredictions(ctx context.Context, r *run, agg astro.Aggregation, sectors []string, withTopStocks bool) ([]contracts.SectorPrediction, error) {
	preds := make([]contracts.SectorPrediction, 0, len(sectors))
	for _, sector := range sectors {
		influences := agg.Influences(sector)
		forecast := astro.Predict(sector, influences)

		p := contracts.SectorPrediction{
			Sector:             sector,
			PlanetaryInfluence: astro.PlanetarySummary(influences),
			Trend:              forecast.Trend,
			Reason:             forecast.Reason,
			Confidence:         forecast.Confidence,
			TopStocks:          []string{},
			Influences:         influences,
		}
		if withTopStocks {
			p.TopStocks = astro.TopStocks(sector, r.stocks, topStocksPerSector)
		}
		preds = append(preds, p)
	}
	r.req.Observer.emit(Event{Stage: StageSectors, Count: len(preds)})

	if err := s.enricher.EnrichSectors(ctx, preds); err != nil {
		return nil, err
	}
	r.req.Observer.emit(Event{Stage: StageEnriched, Count: len(preds), Message: s.enricher.Provider()})

	for i := range preds {
		r.req.Observer.emit(Event{Stage: StageSectorDetail, Index: i, Data: preds[i]})
	}
	return preds, nil
}

func trends(preds []contracts.SectorPrediction) []contracts.Trend {
	out := make([]contracts.Trend, len(preds))
	for i, p := range preds {
		out[i] = p.Trend
	}
	return out
}

func marshalInsight(in contracts.Insight) json.RawMessage {
	if in.IsZero() {
		return nil
	}
	b, err := json.Marshal(in)
	if err != nil {
		return nil
	}
	return b
}

// unavailable maps collaborator failures onto ErrUnavailable, keeping
// cancellation and already-classified errors as they are
func unavailable(what string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, contracts.ErrUnavailable),
		errors.Is(err, contracts.ErrInvalidInput),
		errors.Is(err, contracts.ErrPersistence):
		return err
	}
	return fmt.Errorf("%w: %s: %v", contracts.ErrUnavailable, what, err)
}

func decode(kind contracts.Kind, payload json.RawMessage) (interface{}, error) {
	var dest interface{}
	switch kind {
	case contracts.KindBasic:
		dest = &contracts.BasicResult{}
	case contracts.KindEnhanced:
		dest = &contracts.EnhancedResult{}
	default:
		dest = &contracts.PredictionReport{}
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return nil, err
	}
	return dest, nil
}
