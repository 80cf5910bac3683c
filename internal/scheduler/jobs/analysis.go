package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/astrostocks/internal/analysis"
	"github.com/wonny/astrostocks/internal/contracts"
	"github.com/wonny/astrostocks/pkg/logger"
)

// Analyzer runs one analysis; satisfied by *analysis.Service
type Analyzer interface {
	Run(ctx context.Context, req analysis.Request) (*analysis.Outcome, error)
	Location() *time.Location
}

// DailyAnalysisJob warms the day's cache entries shortly after midnight
// so the first request of the day is served from cache.
// Schedule: 00:05 in the analysis timezone
type DailyAnalysisJob struct {
	analyzer Analyzer
	kinds    []contracts.Kind
	logger   *logger.Logger
	now      func() time.Time
}

// NewDailyAnalysisJob creates the warm-up job. Enhanced is included
// only when real market data is enabled; without it there are no stocks.
func NewDailyAnalysisJob(analyzer Analyzer, useRealData bool, log *logger.Logger) *DailyAnalysisJob {
	kinds := []contracts.Kind{contracts.KindPredict, contracts.KindBasic}
	if useRealData {
		kinds = append(kinds, contracts.KindEnhanced)
	}
	return &DailyAnalysisJob{
		analyzer: analyzer,
		kinds:    kinds,
		logger:   log,
		now:      time.Now,
	}
}

// Name returns the job name
func (j *DailyAnalysisJob) Name() string {
	return "daily_analysis"
}

// Schedule returns the cron schedule (00:05 daily, with seconds)
func (j *DailyAnalysisJob) Schedule() string {
	return "0 5 0 * * *"
}

// Run computes every kind for today. One failing kind does not stop
// the others; the joined error is returned so the scheduler retries.
// Kinds already cached are cheap hits on retry.
func (j *DailyAnalysisJob) Run(ctx context.Context) error {
	today := j.now().In(j.analyzer.Location())
	j.logger.WithField("date", today.Format("2006-01-02")).Info("Starting scheduled analysis warm-up")

	var errs []error
	for _, kind := range j.kinds {
		start := time.Now()
		out, err := j.analyzer.Run(ctx, analysis.Request{
			Kind:        kind,
			Date:        today,
			UseRealData: kind == contracts.KindEnhanced,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			j.logger.WithError(err).WithField("kind", string(kind)).Error("Warm-up analysis failed")
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
			continue
		}

		j.logger.WithFields(map[string]interface{}{
			"kind":     string(kind),
			"cached":   out.Cached,
			"duration": time.Since(start).String(),
		}).Info("Warm-up analysis done")
	}

	return errors.Join(errs...)
}
