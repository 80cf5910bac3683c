package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/wonny/astrostocks/internal/cache"
	"github.com/wonny/astrostocks/pkg/logger"
)

// Maintainer exposes cache statistics and cleanup; satisfied by *cache.Coordinator
type Maintainer interface {
	Stats(ctx context.Context) (cache.Stats, error)
	Cleanup(ctx context.Context, days int) (cache.CleanupResult, error)
}

// ExpiredClearer drops expired market data; satisfied by *marketdata.Service
type ExpiredClearer interface {
	ClearExpired(ctx context.Context) (int, error)
}

// CacheHandler serves cache maintenance endpoints
type CacheHandler struct {
	cache       Maintainer
	market      ExpiredClearer
	defaultDays int
	logger      *logger.Logger
}

// NewCacheHandler creates a new cache handler. market may be nil.
func NewCacheHandler(m Maintainer, market ExpiredClearer, defaultDays int, log *logger.Logger) *CacheHandler {
	if defaultDays <= 0 {
		defaultDays = 30
	}
	return &CacheHandler{
		cache:       m,
		market:      market,
		defaultDays: defaultDays,
		logger:      log,
	}
}

// GetStats returns cache statistics
// GET /api/cache/stats
func (h *CacheHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cache.Stats(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get cache stats")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve cache statistics")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// Cleanup removes cache entries older than days and expired market data
// POST /api/cache/cleanup?days=30
func (h *CacheHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	days := h.defaultDays
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		d, err := strconv.Atoi(daysStr)
		if err != nil || d <= 0 {
			respondFailure(w, invalidf("days must be a positive integer"))
			return
		}
		days = d
	}

	result, err := h.cache.Cleanup(r.Context(), days)
	if err != nil {
		h.logger.WithError(err).WithField("days", days).Error("Cache cleanup failed")
		respondError(w, http.StatusInternalServerError, "Cache cleanup failed")
		return
	}

	marketCleared := 0
	if h.market != nil {
		n, err := h.market.ClearExpired(r.Context())
		if err != nil {
			h.logger.WithError(err).Warn("Failed to clear expired market data")
		}
		marketCleared = n
	}

	h.logger.WithFields(map[string]interface{}{
		"days":               days,
		"analysis_deleted":   result.AnalysisDeleted,
		"prediction_deleted": result.PredictionDeleted,
		"market_cleared":     marketCleared,
	}).Info("Cache cleanup completed")

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"days":               days,
		"analysis_deleted":   result.AnalysisDeleted,
		"prediction_deleted": result.PredictionDeleted,
		"market_cleared":     marketCleared,
	})
}
