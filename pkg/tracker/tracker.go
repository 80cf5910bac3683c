package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/wonny/astrostocks/pkg/logger"
)

// Tracker reports server errors and panics to Sentry.
// A Tracker built without a DSN only logs.
// ⭐ SSOT: error tracking goes through this type only
type Tracker struct {
	hub    *sentry.Hub
	logger *logger.Logger
}

// New initializes Sentry for dsn. An empty dsn returns a disabled tracker.
func New(dsn, environment string, log *logger.Logger) (*Tracker, error) {
	t := &Tracker{logger: log.Component("tracker")}
	if dsn == "" {
		return t, nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	}); err != nil {
		return nil, fmt.Errorf("failed to init sentry: %w", err)
	}
	t.hub = sentry.CurrentHub()
	t.logger.WithField("environment", environment).Info("Error tracking enabled")

	return t, nil
}

// Disabled returns a tracker that never reports
func Disabled() *Tracker {
	return &Tracker{logger: logger.Nop()}
}

// Enabled reports whether events are sent
func (t *Tracker) Enabled() bool {
	return t != nil && t.hub != nil
}

// CaptureError sends err with tags attached to its scope
func (t *Tracker) CaptureError(_ context.Context, err error, tags map[string]string) {
	if !t.Enabled() || err == nil {
		return
	}

	hub := t.hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
	})
	hub.CaptureException(err)
}

// CapturePanic reports a recovered panic value
func (t *Tracker) CapturePanic(ctx context.Context, recovered interface{}, tags map[string]string) {
	err, ok := recovered.(error)
	if !ok {
		err = fmt.Errorf("panic: %v", recovered)
	}
	t.CaptureError(ctx, err, tags)
}

// Flush waits up to two seconds for queued events
func (t *Tracker) Flush() {
	if !t.Enabled() {
		return
	}
	if !sentry.Flush(2 * time.Second) {
		t.logger.Warn("Sentry flush timed out")
	}
}
