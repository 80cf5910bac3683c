package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/astrostocks/internal/analysis"
	"github.com/wonny/astrostocks/internal/cache"
	"github.com/wonny/astrostocks/internal/external/alphavantage"
	"github.com/wonny/astrostocks/internal/external/ephemeris"
	"github.com/wonny/astrostocks/internal/insight"
	"github.com/wonny/astrostocks/internal/marketdata"
	"github.com/wonny/astrostocks/internal/transits"
	"github.com/wonny/astrostocks/internal/watchlist"
	"github.com/wonny/astrostocks/pkg/config"
	"github.com/wonny/astrostocks/pkg/database"
	"github.com/wonny/astrostocks/pkg/httputil"
	"github.com/wonny/astrostocks/pkg/logger"
	"github.com/wonny/astrostocks/pkg/redis"
	"github.com/wonny/astrostocks/pkg/tracker"
)

const (
	redisPrefix      = "astro"
	ephemerisTimeout = 20 * time.Second
	marketTimeout    = 30 * time.Second
)

// app holds every wired component of one process
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *database.DB
	redis   *redis.Client
	tracker *tracker.Tracker

	coordinator *cache.Coordinator
	transits    *transits.CachedProvider
	market      *marketdata.Service
	analysis    *analysis.Service
}

// newApp loads config and builds the component graph
// ⭐ SSOT: dependency wiring happens here only
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)
	a := &app{cfg: cfg, log: log}

	a.tracker, err = tracker.New(cfg.SentryDSN, cfg.Env, log)
	if err != nil {
		log.WithError(err).Warn("Error tracking disabled")
		a.tracker = tracker.Disabled()
	}

	a.db, err = database.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	a.redis, err = redis.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without cache and locks")
		a.redis = redis.Disabled()
	}
	rcache := redis.NewCache(a.redis, redisPrefix)

	// Cache coordinator
	store := cache.NewPostgresStore(a.db.Pool)
	a.coordinator = cache.NewCoordinator(store, redis.NewLocker(a.redis, redisPrefix), log.Zerolog()).
		WithLocation(cfg.Location())

	// Transits
	ephem := ephemeris.NewClient(
		httputil.NewWithTimeout(log, ephemerisTimeout),
		cfg.Ephemeris.URL, cfg.Ephemeris.Ayanamsa, log)
	a.transits = transits.NewCachedProvider(transits.NewRepository(a.db.Pool), ephem, rcache, log.Zerolog())

	// Market data, paced by the shared Alpha Vantage budget
	avHTTP := httputil.NewWithTimeout(log, marketTimeout).
		WithRateLimiter(redis.NewRateLimiter(a.redis, redisPrefix), redis.AlphaVantageRateLimit(cfg.AlphaVantage.CallsPerMin))
	av := alphavantage.NewClient(avHTTP, cfg.AlphaVantage, log)
	a.market = marketdata.NewService(marketdata.NewRepository(a.db.Pool), av, rcache, cfg.Market.CacheTTL, log.Zerolog())
	if cfg.Market.WatchlistPath != "" {
		if err := a.applyWatchlist(cfg.Market.WatchlistPath); err != nil {
			a.close()
			return nil, err
		}
	}

	// Insight enrichment
	enricher, err := insight.NewEnricherFromConfig(cfg.Insight, log.Zerolog())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("insight provider: %w", err)
	}

	a.analysis = analysis.NewService(analysis.Options{
		Coordinator:         a.coordinator,
		Enricher:            enricher,
		Transits:            a.transits,
		Stocks:              a.market,
		TrackedStocks:       cfg.Market.TrackedStocks,
		UseRealData:         cfg.Market.UseRealData,
		RecommendationLimit: cfg.Analysis.RecommendationLimit,
		Location:            cfg.Location(),
		Logger:              log,
	})

	log.WithFields(map[string]interface{}{
		"env":       cfg.Env,
		"insight":   enricher.Provider(),
		"redis":     a.redis.Enabled(),
		"ephemeris": ephem.Configured(),
		"real_data": cfg.Market.UseRealData,
	}).Debug("Application wired")

	return a, nil
}

// applyWatchlist replaces the tracked symbols and pins their sectors
func (a *app) applyWatchlist(path string) error {
	wl, warnings, err := watchlist.Load(path)
	if err != nil {
		return fmt.Errorf("watchlist %s: %w", path, err)
	}
	for _, w := range warnings {
		a.log.WithField("code", w.Code).Warn(w.Message)
	}

	pins := make(map[string]marketdata.Pin, len(wl.Stocks))
	for _, e := range wl.Stocks {
		pins[e.Symbol] = marketdata.Pin{Sector: e.Sector, Volatility: e.Volatility}
	}
	a.market.WithPins(pins)
	a.cfg.Market.TrackedStocks = wl.Symbols()

	hash, _ := watchlist.Hash(wl)
	a.log.WithFields(map[string]interface{}{
		"path":   path,
		"name":   wl.Meta.Name,
		"stocks": len(wl.Stocks),
		"hash":   hash,
	}).Info("Watchlist loaded")
	return nil
}

// close releases connections and flushes error reports
func (a *app) close() {
	if a.tracker != nil {
		a.tracker.Flush()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// parseDay reads a --date flag; empty means today in the analysis timezone
func (a *app) parseDay(s string) (time.Time, error) {
	loc := a.cfg.Location()
	if s == "" {
		return time.Now().In(loc), nil
	}
	d, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
	}
	return d, nil
}
