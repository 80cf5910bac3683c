package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/wonny/astrostocks/internal/contracts"
)

const dateLayout = "2006-01-02"

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondRaw writes an already encoded payload
func respondRaw(w http.ResponseWriter, status int, payload json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

// StatusFor maps the error taxonomy onto HTTP status codes
// ⭐ SSOT: error → status mapping lives here only
func StatusFor(err error) int {
	switch {
	case errors.Is(err, contracts.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, contracts.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// client went away; nobody reads this
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// respondFailure answers with the mapped status and the error text
func respondFailure(w http.ResponseWriter, err error) {
	respondError(w, StatusFor(err), err.Error())
}

// parseDate reads a YYYY-MM-DD query value; empty yields the zero time
func parseDate(r *http.Request, name string, loc *time.Location) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return time.Time{}, invalidf("%s must be YYYY-MM-DD, got %q", name, raw)
	}
	return d, nil
}

// parseBool reads a boolean query value, defaulting when absent
func parseBool(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, invalidf("%s must be true or false, got %q", name, raw)
	}
	return v, nil
}

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", contracts.ErrInvalidInput, fmt.Sprintf(format, args...))
}
