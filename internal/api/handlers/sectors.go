package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/wonny/astrostocks/internal/cache"
	"github.com/wonny/astrostocks/internal/contracts"
	"github.com/wonny/astrostocks/pkg/logger"
)

const defaultArchiveLimit = 100

// SectorHandler lists live and archived sector predictions
type SectorHandler struct {
	store    cache.Store
	location *time.Location
	logger   *logger.Logger
}

// NewSectorHandler creates a new sector handler
func NewSectorHandler(store cache.Store, loc *time.Location, log *logger.Logger) *SectorHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &SectorHandler{
		store:    store,
		location: loc,
		logger:   log,
	}
}

// GetPredictions returns live predictions, optionally for one date
// GET /api/sectors/predictions?date=2025-01-15
func (h *SectorHandler) GetPredictions(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r, "date", h.location)
	if err != nil {
		respondFailure(w, err)
		return
	}

	var filter *time.Time
	if !date.IsZero() {
		filter = &date
	}

	preds, err := h.store.ListLive(r.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list sector predictions")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve sector predictions")
		return
	}
	if preds == nil {
		preds = []contracts.LivePrediction{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":       len(preds),
		"predictions": preds,
	})
}

// GetArchive returns archived predictions
// GET /api/sectors/archive?date=2025-01-15&sector=Banking&limit=100
func (h *SectorHandler) GetArchive(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r, "date", h.location)
	if err != nil {
		respondFailure(w, err)
		return
	}

	filter := cache.ArchiveFilter{
		Sector: r.URL.Query().Get("sector"),
		Limit:  defaultArchiveLimit,
	}
	if !date.IsZero() {
		filter.ArchiveDate = &date
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			respondFailure(w, invalidf("limit must be a positive integer"))
			return
		}
		filter.Limit = limit
	}

	archived, err := h.store.ListArchive(r.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list archived predictions")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve archived predictions")
		return
	}
	if archived == nil {
		archived = []contracts.ArchivedPrediction{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(archived),
		"archived": archived,
	})
}
