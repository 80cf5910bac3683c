package contracts

import (
	"context"
	"time"
)

// TransitProvider yields the transits of a date. An empty result means
// the ephemeris is unavailable.
type TransitProvider interface {
	Transits(ctx context.Context, date time.Time) ([]Transit, error)
}

// StockProvider yields market snapshots. It may return fewer records
// than symbols requested.
type StockProvider interface {
	Stocks(ctx context.Context, symbols []string) ([]StockRecord, error)
}
