package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/astrostocks/internal/contracts"
	"github.com/wonny/astrostocks/internal/metrics"
	"github.com/wonny/astrostocks/pkg/redis"
)

// Locker serializes work on one key across processes
type Locker interface {
	Obtain(ctx context.Context, name string, ttl time.Duration) (release func(), err error)
}

type noopLocker struct{}

func (noopLocker) Obtain(context.Context, string, time.Duration) (func(), error) {
	return func() {}, nil
}

// Computed is the product of one fresh computation
type Computed struct {
	Payload json.RawMessage
	Live    []contracts.LivePrediction
}

// Job describes one cache-coordinated run
type Job struct {
	Key         Key
	HardRefresh bool

	// Acquire loads inputs. It runs before anything is archived or
	// deleted, so an unavailable collaborator leaves storage untouched.
	Acquire func(ctx context.Context) error

	// Compute produces the payload and, for kinds that write live rows,
	// the new live predictions.
	Compute func(ctx context.Context) (*Computed, error)
}

// Outcome reports how a job was served
type Outcome struct {
	Payload  json.RawMessage
	Cached   bool
	Archived int
}

// Coordinator guarantees at most one fresh computation per key and
// implements hard refresh with archive-before-delete.
// ⭐ SSOT: cache hit/miss/refresh decisions are made only here
type Coordinator struct {
	store   Store
	locker  Locker
	lockTTL time.Duration
	loc     *time.Location
	now     func() time.Time
	log     zerolog.Logger
}

// NewCoordinator creates a coordinator. A nil locker disables locking.
func NewCoordinator(store Store, locker Locker, log zerolog.Logger) *Coordinator {
	if locker == nil {
		locker = noopLocker{}
	}
	return &Coordinator{
		store:   store,
		locker:  locker,
		lockTTL: 3 * time.Minute,
		loc:     time.UTC,
		now:     time.Now,
		log:     log.With().Str("component", "cache.coordinator").Logger(),
	}
}

// WithLocation sets the timezone that decides "today" for Cleanup
func (c *Coordinator) WithLocation(loc *time.Location) *Coordinator {
	if loc != nil {
		c.loc = loc
	}
	return c
}

// Store exposes the underlying store for read-only listings
func (c *Coordinator) Store() Store {
	return c.store
}

// Run serves the job from cache or computes it.
//
// Without hard refresh a stored payload is returned verbatim. With hard
// refresh of a live-writing kind: move live rows to the archive, compute,
// delete the old entry, save the new one, insert new live rows. Archive
// failure aborts before anything is deleted. Save failures after
// a successful computation are logged and the result is still returned.
func (c *Coordinator) Run(ctx context.Context, job Job) (*Outcome, error) {
	key := job.Key
	log := c.log.With().Str("key", key.String()).Bool("hard_refresh", job.HardRefresh).Logger()

	if !job.HardRefresh {
		if out, ok := c.lookup(ctx, key, log); ok {
			return out, nil
		}
	}

	release, err := c.locker.Obtain(ctx, redis.AnalysisLockKey(key.DateString(), string(key.Kind)), c.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("obtain lock for %s: %w", key, err)
	}
	defer release()

	// another process may have filled the key while we waited
	if !job.HardRefresh {
		if out, ok := c.lookup(ctx, key, log); ok {
			return out, nil
		}
	}

	if job.Acquire != nil {
		if err := job.Acquire(ctx); err != nil {
			return nil, err
		}
	}

	archived := 0
	if job.HardRefresh && key.Kind.WritesLive() {
		archived, err = c.store.ArchiveAndDeleteLive(ctx, key.Date)
		if err != nil {
			log.Error().Err(err).Msg("archive failed, refresh aborted")
			return nil, fmt.Errorf("%w: archive live predictions: %v", contracts.ErrPersistence, err)
		}
		metrics.RecordArchived(archived)

		log.Info().Int("archived", archived).Msg("live predictions archived")
	}

	computed, err := job.Compute(ctx)
	if err != nil {
		return nil, err
	}

	if job.HardRefresh {
		if err := c.store.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Msg("failed to delete old cache entry")
		}
	}

	if err := c.store.Save(ctx, key, computed.Payload); err != nil {
		log.Error().Err(err).Msg("failed to save cache entry; returning computed result")
	}

	if key.Kind.WritesLive() && len(computed.Live) > 0 {
		if err := c.store.InsertLive(ctx, computed.Live); err != nil {
			log.Error().Err(err).Int("rows", len(computed.Live)).Msg("failed to insert live predictions")
		}
	}

	log.Info().Int("payload_bytes", len(computed.Payload)).Msg("fresh result stored")

	return &Outcome{
		Payload:  computed.Payload,
		Archived: archived,
	}, nil
}

// lookup treats read errors as misses
func (c *Coordinator) lookup(ctx context.Context, key Key, log zerolog.Logger) (*Outcome, bool) {
	payload, ok, err := c.store.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Msg("cache read failed, computing fresh")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	log.Debug().Msg("cache hit")
	return &Outcome{Payload: payload, Cached: true}, true
}

// Cleanup removes cache entries keyed to a date more than days before
// today in the coordinator's timezone
func (c *Coordinator) Cleanup(ctx context.Context, days int) (CleanupResult, error) {
	if days < 0 {
		return CleanupResult{}, fmt.Errorf("%w: days must not be negative", contracts.ErrInvalidInput)
	}

	cutoff := Day(c.now().In(c.loc)).AddDate(0, 0, -days)
	res, err := c.store.Cleanup(ctx, cutoff)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("%w: cleanup: %v", contracts.ErrPersistence, err)
	}

	c.log.Info().
		Int("days", days).
		Str("cutoff", cutoff.Format(dateLayout)).
		Int("analysis_deleted", res.AnalysisDeleted).
		Int("prediction_deleted", res.PredictionDeleted).
		Msg("cache cleanup completed")

	return res, nil
}

// Stats returns storage statistics
func (c *Coordinator) Stats(ctx context.Context) (Stats, error) {
	st, err := c.store.Stats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: stats: %v", contracts.ErrPersistence, err)
	}
	return st, nil
}
