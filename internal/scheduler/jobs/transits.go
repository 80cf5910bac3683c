package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/astrostocks/internal/contracts"
	"github.com/wonny/astrostocks/pkg/logger"
)

// TransitSource serves per-date transits; satisfied by *transits.CachedProvider
type TransitSource interface {
	Get(ctx context.Context, date time.Time, hardRefresh bool) (contracts.TransitSet, error)
}

// TransitPrefetchJob stores tomorrow's transits the evening before, so
// the midnight warm-up does not depend on the ephemeris being up.
// Schedule: 23:30 in the analysis timezone
type TransitPrefetchJob struct {
	source   TransitSource
	location *time.Location
	logger   *logger.Logger
	now      func() time.Time
}

// NewTransitPrefetchJob creates a new transit prefetch job
func NewTransitPrefetchJob(source TransitSource, loc *time.Location, log *logger.Logger) *TransitPrefetchJob {
	if loc == nil {
		loc = time.UTC
	}
	return &TransitPrefetchJob{
		source:   source,
		location: loc,
		logger:   log,
		now:      time.Now,
	}
}

// Name returns the job name
func (j *TransitPrefetchJob) Name() string {
	return "transit_prefetch"
}

// Schedule returns the cron schedule (23:30 daily)
func (j *TransitPrefetchJob) Schedule() string {
	return "0 30 23 * * *"
}

// Run fetches and stores tomorrow's transits
func (j *TransitPrefetchJob) Run(ctx context.Context) error {
	tomorrow := j.now().In(j.location).AddDate(0, 0, 1)

	set, err := j.source.Get(ctx, tomorrow, false)
	if err != nil {
		return fmt.Errorf("prefetch transits for %s: %w", tomorrow.Format("2006-01-02"), err)
	}

	j.logger.WithFields(map[string]interface{}{
		"date":    tomorrow.Format("2006-01-02"),
		"planets": len(set.Transits),
		"cached":  set.Cached,
	}).Info("Transits prefetched")

	return nil
}
