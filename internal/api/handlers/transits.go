package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wonny/astrostocks/internal/contracts"
	"github.com/wonny/astrostocks/pkg/logger"
)

// TransitSource serves per-date transits; satisfied by *transits.CachedProvider
type TransitSource interface {
	Get(ctx context.Context, date time.Time, hardRefresh bool) (contracts.TransitSet, error)
}

// TransitHandler serves planetary transits
type TransitHandler struct {
	source   TransitSource
	location *time.Location
	now      func() time.Time
	logger   *logger.Logger
}

// NewTransitHandler creates a new transit handler
func NewTransitHandler(source TransitSource, loc *time.Location, log *logger.Logger) *TransitHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &TransitHandler{
		source:   source,
		location: loc,
		now:      time.Now,
		logger:   log,
	}
}

// GetTransits returns the transits of a date
// GET /api/transits?date=2025-01-15&hard_refresh=false
func (h *TransitHandler) GetTransits(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r, "date", h.location)
	if err != nil {
		respondFailure(w, err)
		return
	}
	if date.IsZero() {
		date = h.now().In(h.location)
	}
	hard, err := parseBool(r, "hard_refresh", false)
	if err != nil {
		respondFailure(w, err)
		return
	}

	set, err := h.source.Get(r.Context(), date, hard)
	if err != nil {
		h.logger.WithError(err).WithField("date", date.Format(dateLayout)).Error("Failed to get transits")
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, set)
}
