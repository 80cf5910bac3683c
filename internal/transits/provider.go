package transits

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/astrostocks/internal/astro"
	"github.com/wonny/astrostocks/internal/contracts"
	"github.com/wonny/astrostocks/pkg/redis"
)

// MinCachedPlanets is the row count at which a stored date is complete.
// Nine bodies are tracked; one missing row is tolerated.
const MinCachedPlanets = 8

// CachedProvider serves transits per date: Redis, then Postgres, then
// the ephemeris source.
// ⭐ SSOT: transit reads go through here
type CachedProvider struct {
	store  Store
	source contracts.TransitProvider
	cache  *redis.Cache
	logger zerolog.Logger
	now    func() time.Time
}

// NewCachedProvider wires the provider. cache may be nil.
func NewCachedProvider(store Store, source contracts.TransitProvider, cache *redis.Cache, log zerolog.Logger) *CachedProvider {
	return &CachedProvider{
		store:  store,
		source: source,
		cache:  cache,
		logger: log.With().Str("component", "transits").Logger(),
		now:    time.Now,
	}
}

// Transits implements contracts.TransitProvider
func (p *CachedProvider) Transits(ctx context.Context, date time.Time) ([]contracts.Transit, error) {
	set, err := p.Get(ctx, date, false)
	if err != nil {
		return nil, err
	}
	return set.Transits, nil
}

// Get returns the transits of date. hardRefresh discards stored rows
// before recomputing.
func (p *CachedProvider) Get(ctx context.Context, date time.Time, hardRefresh bool) (contracts.TransitSet, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	cacheKey := redis.TransitsKey(day.Format("2006-01-02"))
	log := p.logger.With().Str("date", day.Format("2006-01-02")).Logger()

	if hardRefresh {
		if n, err := p.store.DeleteByDate(ctx, day); err != nil {
			return contracts.TransitSet{}, fmt.Errorf("%w: %v", contracts.ErrPersistence, err)
		} else if n > 0 {
			log.Info().Int("deleted", n).Msg("Hard refresh cleared stored transits")
		}
		if p.cache != nil {
			if err := p.cache.Delete(ctx, cacheKey); err != nil {
				log.Warn().Err(err).Msg("Failed to evict transit cache")
			}
		}
	} else {
		if set, ok := p.lookup(ctx, day, cacheKey, log); ok {
			return set, nil
		}
	}

	fresh, err := p.source.Transits(ctx, day)
	if err != nil {
		return contracts.TransitSet{}, err
	}
	if len(fresh) == 0 {
		return contracts.TransitSet{}, fmt.Errorf("%w: no transits for %s", contracts.ErrUnavailable, day.Format("2006-01-02"))
	}
	fresh = astro.NormalizeTransits(fresh)

	if err := p.store.Replace(ctx, day, fresh); err != nil {
		log.Error().Err(err).Msg("Failed to store transits")
	}

	set := contracts.TransitSet{
		Date:      day,
		Transits:  fresh,
		Cached:    false,
		Timestamp: p.now().UTC(),
	}
	p.remember(ctx, cacheKey, set, log)

	log.Info().Int("count", len(fresh)).Msg("Transits computed")
	return set, nil
}

func (p *CachedProvider) lookup(ctx context.Context, day time.Time, cacheKey string, log zerolog.Logger) (contracts.TransitSet, bool) {
	if p.cache != nil {
		var set contracts.TransitSet
		found, err := p.cache.Get(ctx, cacheKey, &set)
		if err != nil {
			log.Warn().Err(err).Msg("Transit cache read failed")
		}
		if found && len(set.Transits) >= MinCachedPlanets {
			set.Cached = true
			return set, true
		}
	}

	stored, latest, err := p.store.ByDate(ctx, day)
	if err != nil {
		log.Warn().Err(err).Msg("Transit store read failed; recomputing")
		return contracts.TransitSet{}, false
	}
	if len(stored) < MinCachedPlanets {
		if len(stored) > 0 {
			log.Debug().Int("rows", len(stored)).Msg("Partial transits stored; recomputing")
		}
		return contracts.TransitSet{}, false
	}

	set := contracts.TransitSet{
		Date:      day,
		Transits:  stored,
		Cached:    true,
		Timestamp: latest,
	}
	p.remember(ctx, cacheKey, set, log)
	return set, true
}

func (p *CachedProvider) remember(ctx context.Context, cacheKey string, set contracts.TransitSet, log zerolog.Logger) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Set(ctx, cacheKey, set, redis.TTLDaily); err != nil {
		log.Warn().Err(err).Msg("Failed to cache transits")
	}
}
