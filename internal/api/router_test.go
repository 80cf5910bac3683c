package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/astrostocks/internal/analysis"
	"github.com/wonny/astrostocks/internal/api/handlers"
	"github.com/wonny/astrostocks/internal/cache"
	"github.com/wonny/astrostocks/internal/cache/memstore"
	"github.com/wonny/astrostocks/internal/contracts"
	"github.com/wonny/astrostocks/pkg/database"
	"github.com/wonny/astrostocks/pkg/logger"
	"github.com/wonny/astrostocks/pkg/tracker"
)

// scriptedAnalyzer emits a fixed stage sequence, or fails after
// transits when err is set
type scriptedAnalyzer struct {
	err error
}

func (s *scriptedAnalyzer) Run(_ context.Context, req analysis.Request) (*analysis.Outcome, error) {
	emit := func(e analysis.Event) {
		if req.Observer != nil {
			req.Observer(e)
		}
	}
	emit(analysis.Event{Stage: analysis.StageStarted, Message: string(req.Kind)})
	if s.err != nil {
		emit(analysis.Event{Stage: analysis.StageError, Error: s.err.Error()})
		return nil, s.err
	}
	emit(analysis.Event{Stage: analysis.StageTransitsLoaded, Count: 9})
	emit(analysis.Event{Stage: analysis.StageComplete, Data: map[string]string{"overall_market_sentiment": "Neutral"}})
	return &analysis.Outcome{Payload: json.RawMessage(`{"overall_market_sentiment":"Neutral"}`)}, nil
}

func (s *scriptedAnalyzer) Location() *time.Location { return time.UTC }

type noTransits struct{}

func (noTransits) Get(context.Context, time.Time, bool) (contracts.TransitSet, error) {
	return contracts.TransitSet{}, fmt.Errorf("%w: no ephemeris", contracts.ErrUnavailable)
}

type staticHealth struct{ healthy bool }

func (s staticHealth) HealthCheck(context.Context) database.HealthStatus {
	return database.HealthStatus{Healthy: s.healthy}
}

func newTestRouter(t *testing.T, an handlers.Analyzer, health HealthChecker) http.Handler {
	t.Helper()
	log := logger.Nop()
	store := memstore.New()

	return NewRouter(Handlers{
		Analysis: handlers.NewAnalysisHandler(an, log),
		Transits: handlers.NewTransitHandler(noTransits{}, time.UTC, log),
		Sectors:  handlers.NewSectorHandler(store, time.UTC, log),
		Cache:    handlers.NewCacheHandler(cache.NewCoordinator(store, nil, log.Zerolog()), nil, 30, log),
		Stream:   handlers.NewStreamHandler(an, []string{"https://astro.example.com"}, log),
		Health:   health,
	}, log, tracker.Disabled())
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, &scriptedAnalyzer{}, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	r = newTestRouter(t, &scriptedAnalyzer{}, staticHealth{healthy: false})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
}

func TestRoutes(t *testing.T) {
	r := newTestRouter(t, &scriptedAnalyzer{}, nil)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodPost, "/api/analyze", http.StatusOK},
		{http.MethodPost, "/api/analyze/enhanced", http.StatusOK},
		{http.MethodGet, "/api/predict?date=2025-03-14", http.StatusOK},
		{http.MethodGet, "/api/transits", http.StatusServiceUnavailable},
		{http.MethodGet, "/api/sectors/predictions", http.StatusOK},
		{http.MethodGet, "/api/sectors/archive", http.StatusOK},
		{http.MethodGet, "/api/cache/stats", http.StatusOK},
		{http.MethodPost, "/api/cache/cleanup?days=7", http.StatusOK},
		{http.MethodGet, "/api/analyze", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRequestID(t *testing.T) {
	r := newTestRouter(t, &scriptedAnalyzer{}, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Len(t, rec.Header().Get(requestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestRecoveryMiddleware(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/panic", func(http.ResponseWriter, *http.Request) {
		panic("nil map write")
	})
	r.Use(recoveryMiddleware(logger.Nop(), tracker.Disabled()))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func readStream(t *testing.T, conn *websocket.Conn) []handlers.StreamMessage {
	t.Helper()
	var msgs []handlers.StreamMessage
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg handlers.StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			require.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected read error: %v", err)
			return msgs
		}
		msgs = append(msgs, msg)
	}
}

func TestAnalyzeStream(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t, &scriptedAnalyzer{}, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/analyze?kind=enhanced"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	msgs := readStream(t, conn)
	require.Len(t, msgs, 3)
	assert.Equal(t, analysis.StageStarted, msgs[0].Event.Stage)
	assert.Equal(t, "enhanced", msgs[0].Event.Message)
	assert.Equal(t, 9, msgs[1].Event.Count)
	assert.Equal(t, analysis.StageComplete, msgs[2].Event.Stage)
}

func TestAnalyzeStream_Error(t *testing.T) {
	an := &scriptedAnalyzer{err: fmt.Errorf("%w: planetary transit data unavailable", contracts.ErrUnavailable)}
	srv := httptest.NewServer(newTestRouter(t, an, nil))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/analyze", nil)
	require.NoError(t, err)
	defer conn.Close()

	msgs := readStream(t, conn)
	require.Len(t, msgs, 2, "failure is reported once")
	assert.Equal(t, analysis.StageError, msgs[1].Event.Stage)
	assert.Contains(t, msgs[1].Event.Error, "unavailable")
}

// silentFailure fails without emitting a stage event
type silentFailure struct{}

func (silentFailure) Run(context.Context, analysis.Request) (*analysis.Outcome, error) {
	return nil, fmt.Errorf("%w: decode cached payload", contracts.ErrPersistence)
}

func (silentFailure) Location() *time.Location { return time.UTC }

func TestAnalyzeStream_ErrorFrameWhenNoStageEvent(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t, silentFailure{}, nil))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/analyze", nil)
	require.NoError(t, err)
	defer conn.Close()

	msgs := readStream(t, conn)
	require.Len(t, msgs, 1)
	assert.Equal(t, "error", msgs[0].Type)
	assert.Contains(t, msgs[0].Error, "decode cached payload")
}

func TestAnalyzeStream_Origins(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t, &scriptedAnalyzer{}, nil))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/analyze?hard_refresh=true"

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{"no origin", "", true},
		{"same origin", srv.URL, true},
		{"configured origin", "https://Astro.example.com/", true},
		{"foreign origin", "https://evil.example.net", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
			if !tt.ok {
				require.Error(t, err)
				require.NotNil(t, resp)
				assert.Equal(t, http.StatusForbidden, resp.StatusCode)
				return
			}
			require.NoError(t, err)
			defer conn.Close()
			assert.NotEmpty(t, readStream(t, conn))
		})
	}
}

func TestAnalyzeStream_BadKind(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t, &scriptedAnalyzer{}, nil))
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/analyze?kind=weekly", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
