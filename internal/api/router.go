package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/astrostocks/internal/api/handlers"
	"github.com/wonny/astrostocks/pkg/database"
	"github.com/wonny/astrostocks/pkg/logger"
	"github.com/wonny/astrostocks/pkg/tracker"
)

// HealthChecker reports dependency health; satisfied by *database.DB
type HealthChecker interface {
	HealthCheck(ctx context.Context) database.HealthStatus
}

// Handlers groups every endpoint handler
type Handlers struct {
	Analysis *handlers.AnalysisHandler
	Transits *handlers.TransitHandler
	Sectors  *handlers.SectorHandler
	Market   *handlers.MarketHandler
	Cache    *handlers.CacheHandler
	Stream   *handlers.StreamHandler
	Health   HealthChecker // optional
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: routes are declared in this function only
func NewRouter(h Handlers, log *logger.Logger, tr *tracker.Tracker) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler(h.Health)).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Analysis
	api.HandleFunc("/analyze", h.Analysis.Analyze).Methods("POST")
	api.HandleFunc("/analyze/enhanced", h.Analysis.AnalyzeEnhanced).Methods("POST")
	api.HandleFunc("/predict", h.Analysis.Predict).Methods("GET")

	// Astro + market data
	api.HandleFunc("/transits", h.Transits.GetTransits).Methods("GET")
	api.HandleFunc("/sectors/predictions", h.Sectors.GetPredictions).Methods("GET")
	api.HandleFunc("/sectors/archive", h.Sectors.GetArchive).Methods("GET")
	if h.Market != nil {
		api.HandleFunc("/market/stocks", h.Market.GetStocks).Methods("GET")
	}

	// Cache maintenance
	api.HandleFunc("/cache/stats", h.Cache.GetStats).Methods("GET")
	api.HandleFunc("/cache/cleanup", h.Cache.Cleanup).Methods("POST")

	// Streaming
	r.HandleFunc("/ws/analyze", h.Stream.HandleAnalyze).Methods("GET")

	// Apply middleware
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(log, tr))
	r.Use(recoveryMiddleware(log, tr))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(hc HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]interface{}{
			"status":  "ok",
			"service": "astrostocks-api",
			"time":    time.Now().UTC().Format(time.RFC3339),
		}

		if hc != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			db := hc.HealthCheck(ctx)
			body["database"] = db
			if !db.Healthy {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
}
