package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/astrostocks/internal/cache"
	"github.com/wonny/astrostocks/pkg/logger"
)

// CacheCleaner removes old cache entries; satisfied by *cache.Coordinator
type CacheCleaner interface {
	Cleanup(ctx context.Context, days int) (cache.CleanupResult, error)
}

// CacheCleanupJob removes analysis and prediction cache entries older
// than the retention window
type CacheCleanupJob struct {
	cleaner CacheCleaner
	days    int
	logger  *logger.Logger
}

// NewCacheCleanupJob creates a new cache cleanup job
func NewCacheCleanupJob(cleaner CacheCleaner, days int, log *logger.Logger) *CacheCleanupJob {
	if days <= 0 {
		days = 30
	}
	return &CacheCleanupJob{
		cleaner: cleaner,
		days:    days,
		logger:  log,
	}
}

// Name returns the job name
func (j *CacheCleanupJob) Name() string {
	return "cache_cleanup"
}

// Schedule returns the cron schedule (03:00 daily)
func (j *CacheCleanupJob) Schedule() string {
	return "0 0 3 * * *"
}

// Run executes the cache cleanup
func (j *CacheCleanupJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled cache cleanup")

	res, err := j.cleaner.Cleanup(ctx, j.days)
	if err != nil {
		return fmt.Errorf("cache cleanup: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"days":               j.days,
		"analysis_deleted":   res.AnalysisDeleted,
		"prediction_deleted": res.PredictionDeleted,
	}).Info("Cache cleanup completed")

	return nil
}

// ExpiredClearer drops expired rows; satisfied by *marketdata.Service
type ExpiredClearer interface {
	ClearExpired(ctx context.Context) (int, error)
}

// MarketDataExpiryJob drops expired market data rows
type MarketDataExpiryJob struct {
	clearer ExpiredClearer
	logger  *logger.Logger
}

// NewMarketDataExpiryJob creates a new market data expiry job
func NewMarketDataExpiryJob(clearer ExpiredClearer, log *logger.Logger) *MarketDataExpiryJob {
	return &MarketDataExpiryJob{
		clearer: clearer,
		logger:  log,
	}
}

// Name returns the job name
func (j *MarketDataExpiryJob) Name() string {
	return "market_data_expiry"
}

// Schedule returns the cron schedule (every hour at :15)
func (j *MarketDataExpiryJob) Schedule() string {
	return "0 15 * * * *"
}

// Run executes the expiry sweep
func (j *MarketDataExpiryJob) Run(ctx context.Context) error {
	n, err := j.clearer.ClearExpired(ctx)
	if err != nil {
		return fmt.Errorf("clear expired market data: %w", err)
	}

	if n > 0 {
		j.logger.WithField("removed", n).Info("Expired market data cleared")
	}
	return nil
}
