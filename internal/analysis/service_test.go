package analysis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/astrostocks/internal/cache"
	"github.com/wonny/astrostocks/internal/cache/memstore"
	"github.com/wonny/astrostocks/internal/contracts"
	"github.com/wonny/astrostocks/internal/insight"
	"github.com/wonny/astrostocks/pkg/logger"
)

var testDate = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

// countingGenerator wraps the template generator, counting calls and
// optionally failing every one of them
type countingGenerator struct {
	insight.TemplateGenerator
	calls atomic.Int32
	fail  error
}

func (g *countingGenerator) Generate(ctx context.Context, p insight.Prompt) (contracts.Insight, error) {
	g.calls.Add(1)
	if g.fail != nil {
		return contracts.Insight{}, g.fail
	}
	return g.TemplateGenerator.Generate(ctx, p)
}

type fakeTransits struct {
	transits []contracts.Transit
	err      error
	calls    int
}

func (f *fakeTransits) Transits(context.Context, time.Time) ([]contracts.Transit, error) {
	f.calls++
	return f.transits, f.err
}

type fakeStocks struct {
	stocks []contracts.StockRecord
	err    error
	asked  []string
}

func (f *fakeStocks) Stocks(_ context.Context, symbols []string) ([]contracts.StockRecord, error) {
	f.asked = symbols
	return f.stocks, f.err
}

// Jupiter in Cancer and the Sun in Aries are both exalted and touch
// fourteen sectors, Pharmaceuticals twice.
func fixtureTransits() []contracts.Transit {
	return []contracts.Transit{
		{Planet: "Jupiter", Sign: "Cancer", DegreeInSign: 5.2},
		{Planet: "Sun", Sign: "Aries", DegreeInSign: 12.8},
	}
}

func fixtureStocks() []contracts.StockRecord {
	return []contracts.StockRecord{
		{Symbol: "INFY", Sector: "Technology", CurrentPrice: 1500, ChangePercent: -3, Past6MReturn: -25, Volatility: "High"},
		{Symbol: "HDFCBANK", Sector: "Banking", CurrentPrice: 1650, ChangePercent: 3, Past6MReturn: 25, Volatility: "Low"},
		{Symbol: "SUNPHARMA", Sector: "Pharmaceuticals", CurrentPrice: 1200, ChangePercent: 0.5, Past6MReturn: 5, Volatility: "Medium"},
	}
}

type harness struct {
	svc      *Service
	store    *memstore.Store
	gen      *countingGenerator
	transits *fakeTransits
	stocks   *fakeStocks
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()

	builder, err := insight.NewBuilder(0.7)
	require.NoError(t, err)

	h := &harness{
		store:    memstore.New(),
		gen:      &countingGenerator{},
		transits: &fakeTransits{transits: fixtureTransits()},
		stocks:   &fakeStocks{stocks: fixtureStocks()},
	}

	opts := Options{
		Coordinator:         cache.NewCoordinator(h.store, nil, zerolog.Nop()),
		Enricher:            insight.NewEnricher(h.gen, builder, insight.EnricherOptions{Concurrency: 2}, zerolog.Nop()),
		Transits:            h.transits,
		Stocks:              h.stocks,
		TrackedStocks:       []string{"HDFCBANK", "INFY", "SUNPHARMA"},
		UseRealData:         true,
		RecommendationLimit: 10,
		Location:            time.UTC,
		Logger:              logger.Nop(),
	}
	if mutate != nil {
		mutate(&opts)
	}

	h.svc = NewService(opts)
	h.svc.now = func() time.Time { return testDate.Add(9 * time.Hour) }
	return h
}

func TestRun_BasicComputesThenServesFromCache(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	first, err := h.svc.Run(ctx, Request{Kind: contracts.KindBasic, Date: testDate, Stocks: fixtureStocks()})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	result, ok := first.Result.(*contracts.BasicResult)
	require.True(t, ok)
	assert.Len(t, result.SectorPredictions, 14)
	assert.Equal(t, "Positive", result.OverallMarketSentiment)
	assert.Equal(t, "85%", result.AccuracyEstimate)
	assert.Equal(t, int32(14), h.gen.calls.Load())
	assert.Len(t, h.store.Live(), 14)

	for _, p := range result.SectorPredictions {
		assert.NotNil(t, p.TopStocks, p.Sector)
		assert.False(t, p.AIInsights.IsZero(), p.Sector)
		if p.Sector == "Banking" {
			assert.Equal(t, []string{"HDFCBANK"}, p.TopStocks)
		}
		if p.Sector == "Pharmaceuticals" {
			assert.Equal(t, contracts.ConfidenceMedium, p.Confidence)
		}
	}

	second, err := h.svc.Run(ctx, Request{Kind: contracts.KindBasic, Date: testDate, Stocks: fixtureStocks()})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.JSONEq(t, string(first.Payload), string(second.Payload))
	assert.Equal(t, int32(14), h.gen.calls.Load(), "cache hit must not call the model")
	assert.Equal(t, 1, h.transits.calls)

	cached, ok := second.Result.(*contracts.BasicResult)
	require.True(t, ok)
	assert.Len(t, cached.SectorPredictions, 14)
}

func TestRun_HardRefreshArchivesThenReplacesLive(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.svc.Run(ctx, Request{Kind: contracts.KindBasic, Date: testDate})
	require.NoError(t, err)
	require.Len(t, h.store.Live(), 14)

	out, err := h.svc.Run(ctx, Request{Kind: contracts.KindBasic, Date: testDate, HardRefresh: true})
	require.NoError(t, err)
	assert.False(t, out.Cached)
	assert.Equal(t, 14, out.Archived)
	assert.Equal(t, int32(28), h.gen.calls.Load())

	archive := h.store.Archive()
	require.Len(t, archive, 14)
	for _, a := range archive {
		assert.NotEmpty(t, a.BatchID)
	}
	assert.Len(t, h.store.Live(), 14)
	assert.Equal(t, 1, h.store.Calls(memstore.OpArchiveLive))
}

func TestRun_UnavailableTransitsFailFast(t *testing.T) {
	h := newHarness(t, nil)
	h.transits.transits = nil

	_, err := h.svc.Run(context.Background(), Request{Kind: contracts.KindBasic, Date: testDate, HardRefresh: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrUnavailable)
	assert.Zero(t, h.gen.calls.Load())
	assert.Zero(t, h.store.Calls(memstore.OpArchiveLive))
	assert.Zero(t, h.store.Calls(memstore.OpSave))
}

func TestRun_EphemerisErrorIsUnavailable(t *testing.T) {
	h := newHarness(t, nil)
	h.transits.err = errors.New("connection refused")

	_, err := h.svc.Run(context.Background(), Request{Kind: contracts.KindPredict, Date: testDate})
	assert.ErrorIs(t, err, contracts.ErrUnavailable)
	assert.Zero(t, h.gen.calls.Load())
}

func TestRun_HardRefreshKeepsLiveRowsWhenTransitsMissing(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.svc.Run(ctx, Request{Kind: contracts.KindBasic, Date: testDate})
	require.NoError(t, err)

	h.transits.transits = nil
	_, err = h.svc.Run(ctx, Request{Kind: contracts.KindBasic, Date: testDate, HardRefresh: true})
	assert.ErrorIs(t, err, contracts.ErrUnavailable)
	assert.Empty(t, h.store.Archive())
	assert.Len(t, h.store.Live(), 14)
}

func TestRun_EnrichmentFailureSavesNothing(t *testing.T) {
	h := newHarness(t, nil)
	h.gen.fail = errors.New("model overloaded")

	_, err := h.svc.Run(context.Background(), Request{Kind: contracts.KindBasic, Date: testDate})
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrEnrichment)
	assert.Zero(t, h.store.Calls(memstore.OpSave))
	assert.Zero(t, h.store.Calls(memstore.OpInsertLive))
	assert.Empty(t, h.store.Live())
}

func TestRun_EnhancedWithSuppliedStocks(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.UseRealData = false })

	out, err := h.svc.Run(context.Background(), Request{
		Kind:        contracts.KindEnhanced,
		Date:        testDate,
		Stocks:      fixtureStocks(),
		UseRealData: true,
	})
	require.NoError(t, err)
	assert.Nil(t, h.stocks.asked, "real data is disabled in config")

	result, ok := out.Result.(*contracts.EnhancedResult)
	require.True(t, ok)
	require.Len(t, result.AllStocks, 3)
	assert.Equal(t, "HDFCBANK", result.AllStocks[0].Symbol)
	assert.Equal(t, "INFY", result.AllStocks[2].Symbol)
	assert.Equal(t, contracts.SignalSell, result.AllStocks[2].Signal)

	for _, rec := range result.TopRecommendations {
		assert.NotEqual(t, contracts.SignalSell, rec.Stock.Signal)
	}
	require.NotEmpty(t, result.TopRecommendations)
	assert.Equal(t, "HDFCBANK", result.TopRecommendations[0].Stock.Symbol)
	assert.Equal(t, 1, result.TopRecommendations[0].Rank)

	require.Len(t, result.SectorAnalysis, 14)
	for _, sa := range result.SectorAnalysis {
		assert.NotNil(t, sa.StocksInSector, sa.Sector)
		if sa.Sector == "Banking" {
			require.Len(t, sa.StocksInSector, 1)
			assert.Equal(t, "HDFCBANK", sa.StocksInSector[0].Symbol)
		}
	}

	for _, row := range h.store.Live() {
		if row.Sector == "Banking" {
			assert.Equal(t, []string{"HDFCBANK"}, row.TopStocks)
		}
	}
}

func TestRun_EnhancedRequiresStocksWithoutRealData(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.UseRealData = false })

	_, err := h.svc.Run(context.Background(), Request{Kind: contracts.KindEnhanced, Date: testDate})
	assert.ErrorIs(t, err, contracts.ErrInvalidInput)
	assert.Zero(t, h.gen.calls.Load())
}

func TestRun_EnhancedRealData(t *testing.T) {
	h := newHarness(t, nil)

	out, err := h.svc.Run(context.Background(), Request{Kind: contracts.KindEnhanced, Date: testDate, UseRealData: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"HDFCBANK", "INFY", "SUNPHARMA"}, h.stocks.asked)

	result := out.Result.(*contracts.EnhancedResult)
	assert.Len(t, result.AllStocks, 3)
}

func TestRun_EnhancedRealDataEmpty(t *testing.T) {
	h := newHarness(t, nil)
	h.stocks.stocks = nil

	_, err := h.svc.Run(context.Background(), Request{Kind: contracts.KindEnhanced, Date: testDate, UseRealData: true})
	assert.ErrorIs(t, err, contracts.ErrUnavailable)
	assert.Zero(t, h.gen.calls.Load())
}

func TestRun_Predict(t *testing.T) {
	h := newHarness(t, nil)

	out, err := h.svc.Run(context.Background(), Request{Kind: contracts.KindPredict, Date: testDate})
	require.NoError(t, err)

	report, ok := out.Result.(*contracts.PredictionReport)
	require.True(t, ok)
	assert.Equal(t, "2025-03-14", report.PredictionDate)
	assert.Equal(t, "UTC", report.Timezone)
	assert.Len(t, report.PlanetaryTransits, 2)
	assert.InDelta(t, 0.9, report.Confidence, 1e-9)

	preds := report.MarketPrediction.SectorPredictions
	require.Len(t, preds, 5)
	assert.Equal(t, "Pharmaceuticals", preds[0].Sector)
	assert.Equal(t, "Positive", report.MarketPrediction.OverallSentiment)
	assert.Len(t, report.MarketPrediction.KeyInfluences, 5)
	assert.False(t, report.MarketPrediction.AIAnalysis.IsZero())

	// five sectors plus the overall summary
	assert.Equal(t, int32(6), h.gen.calls.Load())
	assert.Empty(t, h.store.Live(), "predictions never write live rows")
}

func TestRun_SuppliedTransitsSkipProvider(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.svc.Run(context.Background(), Request{Kind: contracts.KindBasic, Date: testDate, Transits: fixtureTransits()})
	require.NoError(t, err)
	assert.Zero(t, h.transits.calls)
}

func TestRun_Deterministic(t *testing.T) {
	a := newHarness(t, nil)
	b := newHarness(t, nil)

	outA, err := a.svc.Run(context.Background(), Request{Kind: contracts.KindBasic, Date: testDate, Stocks: fixtureStocks()})
	require.NoError(t, err)
	outB, err := b.svc.Run(context.Background(), Request{Kind: contracts.KindBasic, Date: testDate, Stocks: fixtureStocks()})
	require.NoError(t, err)

	assert.JSONEq(t, string(outA.Payload), string(outB.Payload))
}

func TestRun_InvalidKind(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.svc.Run(context.Background(), Request{Kind: "weekly", Date: testDate})
	assert.ErrorIs(t, err, contracts.ErrInvalidInput)
	assert.Zero(t, h.transits.calls)
}

func TestRun_DefaultsDateToToday(t *testing.T) {
	h := newHarness(t, nil)

	out, err := h.svc.Run(context.Background(), Request{Kind: contracts.KindPredict})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-14", out.Date.Format("2006-01-02"))
}

func TestRun_ObserverStages(t *testing.T) {
	h := newHarness(t, nil)

	var (
		mu     sync.Mutex
		stages []Stage
	)
	observer := func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		if len(stages) == 0 || stages[len(stages)-1] != e.Stage {
			stages = append(stages, e.Stage)
		}
	}

	_, err := h.svc.Run(context.Background(), Request{Kind: contracts.KindBasic, Date: testDate, Observer: observer})
	require.NoError(t, err)
	assert.Equal(t, []Stage{
		StageStarted, StageTransitsLoaded, StageStocksLoaded,
		StageSectors, StageEnriched, StageSectorDetail, StageComplete,
	}, stages)

	stages = nil
	_, err = h.svc.Run(context.Background(), Request{Kind: contracts.KindBasic, Date: testDate, Observer: observer})
	require.NoError(t, err)
	assert.Equal(t, []Stage{StageStarted, StageCached, StageComplete}, stages)
}

func TestRun_ObserverSeesError(t *testing.T) {
	h := newHarness(t, nil)
	h.transits.transits = nil

	var last Event
	_, err := h.svc.Run(context.Background(), Request{
		Kind:     contracts.KindBasic,
		Date:     testDate,
		Observer: func(e Event) { last = e },
	})
	require.Error(t, err)
	assert.Equal(t, StageError, last.Stage)
	assert.NotEmpty(t, last.Error)
}
