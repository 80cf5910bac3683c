package marketdata

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/astrostocks/internal/contracts"
	"github.com/wonny/astrostocks/pkg/redis"
)

// Fetcher retrieves one live snapshot. A nil record means no quote.
type Fetcher interface {
	FetchStock(ctx context.Context, symbol string) (*contracts.StockRecord, error)
}

// Service serves stock snapshots through Redis, then Postgres, then
// the market-data API.
// ⭐ SSOT: stock snapshots for analysis come from here
type Service struct {
	store   Store
	fetcher Fetcher
	cache   *redis.Cache
	ttl     time.Duration
	pins    map[string]Pin
	logger  zerolog.Logger
	now     func() time.Time
}

// NewService creates the market data service. cache may be nil.
func NewService(store Store, fetcher Fetcher, cache *redis.Cache, ttl time.Duration, log zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = redis.TTLQuote
	}
	return &Service{
		store:   store,
		fetcher: fetcher,
		cache:   cache,
		ttl:     ttl,
		logger:  log.With().Str("component", "marketdata").Logger(),
		now:     time.Now,
	}
}

// Pin fixes the sector and, optionally, the volatility of one symbol
type Pin struct {
	Sector     string
	Volatility string
}

// WithPins overrides sector resolution for the given base symbols
func (s *Service) WithPins(pins map[string]Pin) *Service {
	s.pins = make(map[string]Pin, len(pins))
	for sym, p := range pins {
		s.pins[baseSymbol(sym)] = p
	}
	return s
}

// Stocks implements contracts.StockProvider
func (s *Service) Stocks(ctx context.Context, symbols []string) ([]contracts.StockRecord, error) {
	return s.Get(ctx, symbols, false)
}

// Get returns snapshots in request order. Symbols without a quote are
// skipped; forceRefresh bypasses both cache layers.
func (s *Service) Get(ctx context.Context, symbols []string, forceRefresh bool) ([]contracts.StockRecord, error) {
	out := make([]contracts.StockRecord, 0, len(symbols))
	fromCache, fetched, skipped := 0, 0, 0

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		if !forceRefresh {
			if rec, ok := s.cached(ctx, symbol); ok {
				out = append(out, rec)
				fromCache++
				continue
			}
		}

		rec, err := s.fetcher.FetchStock(ctx, symbol)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Market data fetch failed; skipping")
			skipped++
			continue
		}
		if rec == nil {
			s.logger.Warn().Str("symbol", symbol).Msg("No quote data; skipping")
			skipped++
			continue
		}

		s.applyPin(symbol, rec)
		s.remember(ctx, *rec)
		out = append(out, *rec)
		fetched++
	}

	s.logger.Info().
		Int("requested", len(symbols)).
		Int("cached", fromCache).
		Int("fetched", fetched).
		Int("skipped", skipped).
		Msg("Market data retrieved")

	return out, nil
}

func (s *Service) applyPin(symbol string, rec *contracts.StockRecord) {
	if p, ok := s.pins[baseSymbol(symbol)]; ok {
		if p.Sector != "" {
			rec.Sector = p.Sector
		}
		if p.Volatility != "" {
			rec.Volatility = p.Volatility
		}
		return
	}
	rec.Sector = NormalizeSector(symbol, rec.Sector)
}

// ClearExpired removes expired snapshots from the durable cache
func (s *Service) ClearExpired(ctx context.Context) (int, error) {
	n, err := s.store.ClearExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info().Int("deleted", n).Msg("Cleared expired market data")
	}
	return n, nil
}

func (s *Service) cached(ctx context.Context, symbol string) (contracts.StockRecord, bool) {
	var rec contracts.StockRecord
	if s.cache != nil {
		found, err := s.cache.Get(ctx, redis.QuoteKey(symbol), &rec)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Quote cache read failed")
		}
		if found {
			return rec, true
		}
	}

	stored, err := s.store.Fresh(ctx, symbol, s.now())
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Market data store read failed")
		return rec, false
	}
	if stored == nil {
		return rec, false
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, redis.QuoteKey(symbol), stored, s.ttl); err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to warm quote cache")
		}
	}
	return *stored, true
}

func (s *Service) remember(ctx context.Context, rec contracts.StockRecord) {
	now := s.now()
	rec.CachedAt = &now

	if err := s.store.Upsert(ctx, rec, now.Add(s.ttl)); err != nil {
		s.logger.Error().Err(err).Str("symbol", rec.Symbol).Msg("Failed to store market data")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, redis.QuoteKey(rec.Symbol), rec, s.ttl); err != nil {
			s.logger.Warn().Err(err).Str("symbol", rec.Symbol).Msg("Failed to cache quote")
		}
	}
}
