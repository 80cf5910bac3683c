package marketdata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/astrostocks/internal/contracts"
	"github.com/wonny/astrostocks/pkg/redis"
)

type memStore struct {
	mu      sync.Mutex
	rows    map[string]contracts.StockRecord
	expires map[string]time.Time
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]contracts.StockRecord{}, expires: map[string]time.Time{}}
}

func (m *memStore) Fresh(_ context.Context, symbol string, now time.Time) (*contracts.StockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[symbol]
	if !ok || !m.expires[symbol].After(now) {
		return nil, nil
	}
	return &rec, nil
}

func (m *memStore) Upsert(_ context.Context, rec contracts.StockRecord, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[rec.Symbol] = rec
	m.expires[rec.Symbol] = expiresAt
	return nil
}

func (m *memStore) ClearExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for sym, exp := range m.expires {
		if !exp.After(now) {
			delete(m.rows, sym)
			delete(m.expires, sym)
			n++
		}
	}
	return n, nil
}

type fakeFetcher struct {
	records map[string]contracts.StockRecord
	fail    map[string]error
	calls   []string
}

func (f *fakeFetcher) FetchStock(_ context.Context, symbol string) (*contracts.StockRecord, error) {
	f.calls = append(f.calls, symbol)
	if err := f.fail[symbol]; err != nil {
		return nil, err
	}
	rec, ok := f.records[symbol]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func newService(store Store, f Fetcher) *Service {
	return NewService(store, f, redis.NewCache(redis.Disabled(), "astro"), time.Hour, zerolog.Nop())
}

func TestGet_FetchesAndCaches(t *testing.T) {
	store := newMemStore()
	f := &fakeFetcher{records: map[string]contracts.StockRecord{
		"TCS":  {Symbol: "TCS", Sector: "TECHNOLOGY", CurrentPrice: 3450},
		"ACME": {Symbol: "ACME", Sector: "HEALTHCARE", CurrentPrice: 10},
	}}
	s := newService(store, f)
	ctx := context.Background()

	got, err := s.Get(ctx, []string{"TCS", "ACME"}, false)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Technology", got[0].Sector)
	assert.Equal(t, "Pharmaceuticals", got[1].Sector)
	assert.NotNil(t, got[0].CachedAt)

	_, err = s.Get(ctx, []string{"TCS", "ACME"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"TCS", "ACME"}, f.calls, "second read served from store")
}

func TestGet_ForceRefreshBypassesCache(t *testing.T) {
	f := &fakeFetcher{records: map[string]contracts.StockRecord{"TCS": {Symbol: "TCS"}}}
	s := newService(newMemStore(), f)
	ctx := context.Background()

	_, err := s.Get(ctx, []string{"TCS"}, false)
	require.NoError(t, err)
	_, err = s.Get(ctx, []string{"TCS"}, true)
	require.NoError(t, err)

	assert.Len(t, f.calls, 2)
}

func TestGet_SkipsSymbolsWithoutQuote(t *testing.T) {
	f := &fakeFetcher{
		records: map[string]contracts.StockRecord{"INFY": {Symbol: "INFY"}},
		fail:    map[string]error{"BAD": errors.New("throttled")},
	}
	got, err := newService(newMemStore(), f).Stocks(context.Background(), []string{"NOPE", "BAD", "INFY"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "INFY", got[0].Symbol)
}

func TestGet_ExpiredEntriesRefetch(t *testing.T) {
	store := newMemStore()
	f := &fakeFetcher{records: map[string]contracts.StockRecord{"TCS": {Symbol: "TCS"}}}
	s := newService(store, f)
	now := time.Date(2025, 10, 3, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := s.Get(ctx, []string{"TCS"}, false)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = s.Get(ctx, []string{"TCS"}, false)
	require.NoError(t, err)
	assert.Len(t, f.calls, 2)

	now = now.Add(2 * time.Hour)
	n, err := s.ClearExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGet_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &fakeFetcher{}
	_, err := newService(newMemStore(), f).Get(ctx, []string{"TCS"}, false)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.calls)
}

func TestNormalizeSector(t *testing.T) {
	tests := []struct {
		symbol, raw, want string
	}{
		{"RELIANCE", "ENERGY", "Oil & Gas"},
		{"tcs.BSE", "", "Technology"},
		{"XYZ", "Financial Services", "Finance"},
		{"XYZ", "Shipping", "Shipping"},
		{"XYZ", " ", "Unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeSector(tt.symbol, tt.raw), tt.symbol+"/"+tt.raw)
	}
}

func TestGet_PinsOverrideSectorAndVolatility(t *testing.T) {
	f := &fakeFetcher{records: map[string]contracts.StockRecord{
		"ADANIENT.BSE": {Symbol: "ADANIENT.BSE", Sector: "INDUSTRIALS", Volatility: "Medium", CurrentPrice: 2400},
		"TCS.BSE":      {Symbol: "TCS.BSE", Sector: "", CurrentPrice: 3900},
	}}
	svc := newService(newMemStore(), f).WithPins(map[string]Pin{
		"adanient": {Sector: "Infrastructure", Volatility: "High"},
	})

	got, err := svc.Get(context.Background(), []string{"ADANIENT.BSE", "TCS.BSE"}, false)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Infrastructure", got[0].Sector)
	assert.Equal(t, "High", got[0].Volatility)
	assert.Equal(t, "Technology", got[1].Sector)
}
