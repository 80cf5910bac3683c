package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/astrostocks/internal/analysis"
	"github.com/wonny/astrostocks/internal/cache"
	"github.com/wonny/astrostocks/internal/cache/memstore"
	"github.com/wonny/astrostocks/internal/contracts"
	"github.com/wonny/astrostocks/pkg/logger"
)

type fakeAnalyzer struct {
	got     []analysis.Request
	outcome *analysis.Outcome
	err     error
}

func (f *fakeAnalyzer) Run(_ context.Context, req analysis.Request) (*analysis.Outcome, error) {
	f.got = append(f.got, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.outcome != nil {
		return f.outcome, nil
	}
	return &analysis.Outcome{Payload: json.RawMessage(`{"overall_market_sentiment":"Positive"}`)}, nil
}

func (f *fakeAnalyzer) Location() *time.Location { return time.UTC }

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", contracts.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("x: %w", contracts.ErrUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("x: %w", contracts.ErrEnrichment), http.StatusInternalServerError},
		{fmt.Errorf("x: %w", contracts.ErrPersistence), http.StatusInternalServerError},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestAnalyze_PassesBodyThrough(t *testing.T) {
	fa := &fakeAnalyzer{}
	h := NewAnalysisHandler(fa, logger.Nop())

	body := `{
		"date": "2025-03-14",
		"hard_refresh": true,
		"stocks": [{"symbol": " tcs ", "sector": "Technology", "current_price": 3900, "past_6m_return": 12, "volatility": "Low"}],
		"transits": [{"planet": "Jupiter", "sign": "Cancer", "longitude": 95.2}]
	}`
	rec := httptest.NewRecorder()
	h.Analyze(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"overall_market_sentiment":"Positive"}`, rec.Body.String())

	require.Len(t, fa.got, 1)
	req := fa.got[0]
	assert.Equal(t, contracts.KindBasic, req.Kind)
	assert.True(t, req.HardRefresh)
	assert.False(t, req.UseRealData)
	assert.Equal(t, "2025-03-14", req.Date.Format(dateLayout))
	require.Len(t, req.Stocks, 1)
	assert.Equal(t, "TCS", req.Stocks[0].Symbol)
	require.Len(t, req.Transits, 1)
	assert.Equal(t, "Jupiter", req.Transits[0].Planet)
}

func TestAnalyze_EmptyBody(t *testing.T) {
	fa := &fakeAnalyzer{}
	h := NewAnalysisHandler(fa, logger.Nop())

	rec := httptest.NewRecorder()
	h.Analyze(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, fa.got, 1)
	assert.True(t, fa.got[0].Date.IsZero())
}

func TestAnalyze_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad date", `{"date": "14/03/2025"}`, "Date"},
		{"missing symbol", `{"stocks": [{"sector": "Banking"}]}`, "Stocks[0].Symbol"},
		{"bad volatility", `{"stocks": [{"symbol": "TCS", "volatility": "Wild"}]}`, "Volatility"},
		{"negative price", `{"stocks": [{"symbol": "TCS", "current_price": -1}]}`, "CurrentPrice"},
		{"missing sign", `{"transits": [{"planet": "Mars"}]}`, "Transits[0].Sign"},
		{"unknown field", `{"symbols": ["TCS"]}`, "malformed"},
		{"not json", `{`, "malformed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa := &fakeAnalyzer{}
			h := NewAnalysisHandler(fa, logger.Nop())

			rec := httptest.NewRecorder()
			h.Analyze(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeBody(t, rec)["error"], tt.want)
			assert.Empty(t, fa.got)
		})
	}
}

func TestAnalyzeEnhanced_UseRealData(t *testing.T) {
	fa := &fakeAnalyzer{}
	h := NewAnalysisHandler(fa, logger.Nop())

	rec := httptest.NewRecorder()
	h.AnalyzeEnhanced(rec, httptest.NewRequest(http.MethodPost, "/api/analyze/enhanced", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.AnalyzeEnhanced(rec, httptest.NewRequest(http.MethodPost, "/api/analyze/enhanced?use_real_data=false", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, fa.got, 2)
	assert.Equal(t, contracts.KindEnhanced, fa.got[0].Kind)
	assert.True(t, fa.got[0].UseRealData)
	assert.False(t, fa.got[1].UseRealData)

	rec = httptest.NewRecorder()
	h.AnalyzeEnhanced(rec, httptest.NewRequest(http.MethodPost, "/api/analyze/enhanced?use_real_data=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyze_ErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: planetary transit data unavailable", contracts.ErrUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: model overloaded", contracts.ErrEnrichment), http.StatusInternalServerError},
		{fmt.Errorf("%w: stock data is required", contracts.ErrInvalidInput), http.StatusBadRequest},
	}
	for _, tt := range tests {
		fa := &fakeAnalyzer{err: tt.err}
		h := NewAnalysisHandler(fa, logger.Nop())

		rec := httptest.NewRecorder()
		h.Analyze(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", nil))
		assert.Equal(t, tt.want, rec.Code, tt.err.Error())
		assert.Equal(t, tt.err.Error(), decodeBody(t, rec)["error"])
	}
}

func TestPredict(t *testing.T) {
	fa := &fakeAnalyzer{outcome: &analysis.Outcome{Payload: json.RawMessage(`{"confidence":0.9}`), Cached: true}}
	h := NewAnalysisHandler(fa, logger.Nop())

	rec := httptest.NewRecorder()
	h.Predict(rec, httptest.NewRequest(http.MethodGet, "/api/predict?date=2025-03-14", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"confidence":0.9}`, rec.Body.String())
	require.Len(t, fa.got, 1)
	assert.Equal(t, contracts.KindPredict, fa.got[0].Kind)
	assert.Equal(t, "2025-03-14", fa.got[0].Date.Format(dateLayout))

	rec = httptest.NewRecorder()
	h.Predict(rec, httptest.NewRequest(http.MethodGet, "/api/predict?date=tomorrow", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteOutcome_ArchivedHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	writeOutcome(rec, &analysis.Outcome{Payload: json.RawMessage(`{}`), Archived: 14})
	assert.Equal(t, "14", rec.Header().Get("X-Archived"))
}

type fakeTransitSource struct {
	date time.Time
	hard bool
	err  error
}

func (f *fakeTransitSource) Get(_ context.Context, date time.Time, hard bool) (contracts.TransitSet, error) {
	f.date, f.hard = date, hard
	if f.err != nil {
		return contracts.TransitSet{}, f.err
	}
	return contracts.TransitSet{
		Date:     date,
		Transits: []contracts.Transit{{Planet: "Sun", Sign: "Aries", Dignity: contracts.DignityExalted}},
		Cached:   !hard,
	}, nil
}

func TestGetTransits(t *testing.T) {
	src := &fakeTransitSource{}
	h := NewTransitHandler(src, time.UTC, logger.Nop())
	h.now = func() time.Time { return time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC) }

	rec := httptest.NewRecorder()
	h.GetTransits(rec, httptest.NewRequest(http.MethodGet, "/api/transits", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-03-14", src.date.Format(dateLayout))
	assert.False(t, src.hard)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["cached"])
	assert.Len(t, body["transits"], 1)

	rec = httptest.NewRecorder()
	h.GetTransits(rec, httptest.NewRequest(http.MethodGet, "/api/transits?date=2025-01-01&hard_refresh=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-01-01", src.date.Format(dateLayout))
	assert.True(t, src.hard)
}

func TestGetTransits_Unavailable(t *testing.T) {
	src := &fakeTransitSource{err: fmt.Errorf("%w: no ephemeris", contracts.ErrUnavailable)}
	h := NewTransitHandler(src, time.UTC, logger.Nop())

	rec := httptest.NewRecorder()
	h.GetTransits(rec, httptest.NewRequest(http.MethodGet, "/api/transits", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSectors_LiveAndArchive(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.InsertLive(ctx, []contracts.LivePrediction{
		{PredictionDate: day, Sector: "Banking", Trend: contracts.TrendBullish, Confidence: "Low", TopStocks: []string{"HDFCBANK"}},
		{PredictionDate: day, Sector: "Gold", Trend: contracts.TrendBullish, Confidence: "Low", TopStocks: []string{}},
	}))

	h := NewSectorHandler(store, time.UTC, logger.Nop())

	rec := httptest.NewRecorder()
	h.GetPredictions(rec, httptest.NewRequest(http.MethodGet, "/api/sectors/predictions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decodeBody(t, rec)["count"])

	rec = httptest.NewRecorder()
	h.GetArchive(rec, httptest.NewRequest(http.MethodGet, "/api/sectors/archive", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 0, body["count"])
	assert.NotNil(t, body["archived"], "empty archive is [] not null")

	_, err := store.ArchiveAndDeleteLive(ctx, day)
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	h.GetArchive(rec, httptest.NewRequest(http.MethodGet, "/api/sectors/archive?date=2025-03-14", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decodeBody(t, rec)["count"])

	rec = httptest.NewRecorder()
	h.GetArchive(rec, httptest.NewRequest(http.MethodGet, "/api/sectors/archive?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeStockSource struct {
	symbols []string
	force   bool
}

func (f *fakeStockSource) Get(_ context.Context, symbols []string, force bool) ([]contracts.StockRecord, error) {
	f.symbols, f.force = symbols, force
	// the last symbol has no quote
	out := make([]contracts.StockRecord, 0, len(symbols))
	for _, s := range symbols[:len(symbols)-1] {
		out = append(out, contracts.StockRecord{Symbol: s, Sector: "Technology", CurrentPrice: 100})
	}
	return out, nil
}

func TestGetStocks(t *testing.T) {
	src := &fakeStockSource{}
	h := NewMarketHandler(src, []string{"RELIANCE", "TCS"}, logger.Nop())

	rec := httptest.NewRecorder()
	h.GetStocks(rec, httptest.NewRequest(http.MethodGet, "/api/market/stocks?symbols=tcs,%20infy,TCS,wipro&force_refresh=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"TCS", "INFY", "WIPRO"}, src.symbols)
	assert.True(t, src.force)

	body := decodeBody(t, rec)
	assert.EqualValues(t, 3, body["requested"])
	assert.EqualValues(t, 2, body["count"])

	rec = httptest.NewRecorder()
	h.GetStocks(rec, httptest.NewRequest(http.MethodGet, "/api/market/stocks", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"RELIANCE", "TCS"}, src.symbols)
}

func TestGetStocks_TooMany(t *testing.T) {
	h := NewMarketHandler(&fakeStockSource{}, nil, logger.Nop())

	symbols := make([]string, maxSymbols+1)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("S%d", i)
	}
	rec := httptest.NewRecorder()
	h.GetStocks(rec, httptest.NewRequest(http.MethodGet, "/api/market/stocks?symbols="+strings.Join(symbols, ","), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeMaintainer struct {
	days int
}

func (f *fakeMaintainer) Stats(context.Context) (cache.Stats, error) {
	return cache.Stats{
		AnalysisEntries: map[contracts.Kind]int{contracts.KindBasic: 3, contracts.KindEnhanced: 1},
		LivePredictions: 14,
	}, nil
}

func (f *fakeMaintainer) Cleanup(_ context.Context, days int) (cache.CleanupResult, error) {
	f.days = days
	return cache.CleanupResult{AnalysisDeleted: 2, PredictionDeleted: 1}, nil
}

type fakeClearer struct{ n int }

func (f fakeClearer) ClearExpired(context.Context) (int, error) { return f.n, nil }

func TestCacheHandler(t *testing.T) {
	m := &fakeMaintainer{}
	h := NewCacheHandler(m, fakeClearer{n: 4}, 30, logger.Nop())

	rec := httptest.NewRecorder()
	h.GetStats(rec, httptest.NewRequest(http.MethodGet, "/api/cache/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 14, decodeBody(t, rec)["live_predictions"])

	rec = httptest.NewRecorder()
	h.Cleanup(rec, httptest.NewRequest(http.MethodPost, "/api/cache/cleanup", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30, m.days)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 2, body["analysis_deleted"])
	assert.EqualValues(t, 4, body["market_cleared"])

	rec = httptest.NewRecorder()
	h.Cleanup(rec, httptest.NewRequest(http.MethodPost, "/api/cache/cleanup?days=7", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, m.days)

	rec = httptest.NewRecorder()
	h.Cleanup(rec, httptest.NewRequest(http.MethodPost, "/api/cache/cleanup?days=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSplitSymbols(t *testing.T) {
	assert.Nil(t, splitSymbols(""))
	assert.Nil(t, splitSymbols(" , ,"))
	assert.Equal(t, []string{"A", "B"}, splitSymbols("a,b,A"))
}
