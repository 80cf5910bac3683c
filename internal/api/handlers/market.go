package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/wonny/astrostocks/internal/contracts"
	"github.com/wonny/astrostocks/pkg/logger"
)

const maxSymbols = 50

// StockSource reads market data; satisfied by *marketdata.Service
type StockSource interface {
	Get(ctx context.Context, symbols []string, forceRefresh bool) ([]contracts.StockRecord, error)
}

// MarketHandler serves live stock data
type MarketHandler struct {
	source  StockSource
	tracked []string
	logger  *logger.Logger
}

// NewMarketHandler creates a new market handler. tracked is used when
// the request names no symbols.
func NewMarketHandler(source StockSource, tracked []string, log *logger.Logger) *MarketHandler {
	return &MarketHandler{
		source:  source,
		tracked: tracked,
		logger:  log,
	}
}

// GetStocks returns market data for symbols
// GET /api/market/stocks?symbols=TCS,INFY&force_refresh=false
func (h *MarketHandler) GetStocks(w http.ResponseWriter, r *http.Request) {
	symbols := splitSymbols(r.URL.Query().Get("symbols"))
	if len(symbols) == 0 {
		symbols = h.tracked
	}
	if len(symbols) == 0 {
		respondFailure(w, invalidf("no symbols requested and none tracked"))
		return
	}
	if len(symbols) > maxSymbols {
		respondFailure(w, invalidf("at most %d symbols per request", maxSymbols))
		return
	}

	force, err := parseBool(r, "force_refresh", false)
	if err != nil {
		respondFailure(w, err)
		return
	}

	stocks, err := h.source.Get(r.Context(), symbols, force)
	if err != nil {
		h.logger.WithError(err).WithField("symbols", len(symbols)).Error("Failed to get market data")
		respondFailure(w, err)
		return
	}
	if stocks == nil {
		stocks = []contracts.StockRecord{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"requested": len(symbols),
		"count":     len(stocks),
		"stocks":    stocks,
	})
}

// splitSymbols parses a comma list, upper-casing and dropping duplicates
func splitSymbols(raw string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		s := strings.ToUpper(strings.TrimSpace(part))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
