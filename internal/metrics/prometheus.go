package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astro_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "astro_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"route"},
	)

	// Analysis metrics
	AnalysisRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astro_analysis_runs_total",
			Help: "Total number of analysis runs",
		},
		[]string{"kind", "outcome"}, // outcome: fresh|cached|error
	)

	AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "astro_analysis_duration_seconds",
			Help:    "Analysis run duration in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"kind"},
	)

	ArchivedPredictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "astro_archived_predictions_total",
			Help: "Total number of live predictions copied to the archive",
		},
	)

	// Insight metrics
	InsightCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astro_insight_calls_total",
			Help: "Total number of language-model calls",
		},
		[]string{"provider", "kind", "status"}, // status: success|error
	)

	InsightLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "astro_insight_latency_seconds",
			Help:    "Language-model call latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider"},
	)

	// External data metrics
	ExternalCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astro_external_calls_total",
			Help: "Total number of calls to external data services",
		},
		[]string{"service", "status"},
	)

	// Job metrics
	JobExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astro_job_executions_total",
			Help: "Total number of scheduled job executions",
		},
		[]string{"job", "status"},
	)

	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "astro_job_duration_seconds",
			Help:    "Scheduled job duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"job"},
	)

	JobLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "astro_job_last_run_timestamp",
			Help: "Unix timestamp of the last job execution",
		},
		[]string{"job"},
	)
)

var initOnce sync.Once

// Init registers all collectors with the default registry. Safe to call
// more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(HTTPRequests)
		prometheus.MustRegister(HTTPDuration)
		prometheus.MustRegister(AnalysisRuns)
		prometheus.MustRegister(AnalysisDuration)
		prometheus.MustRegister(ArchivedPredictions)
		prometheus.MustRegister(InsightCalls)
		prometheus.MustRegister(InsightLatency)
		prometheus.MustRegister(ExternalCalls)
		prometheus.MustRegister(JobExecutions)
		prometheus.MustRegister(JobDuration)
		prometheus.MustRegister(JobLastRun)
	})
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records one served request
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordAnalysis records one analysis run
func RecordAnalysis(kind string, cached bool, duration time.Duration, err error) {
	outcome := "fresh"
	switch {
	case err != nil:
		outcome = "error"
	case cached:
		outcome = "cached"
	}
	AnalysisRuns.WithLabelValues(kind, outcome).Inc()
	AnalysisDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordArchived adds archived live rows
func RecordArchived(n int) {
	ArchivedPredictions.Add(float64(n))
}

// RecordInsightCall records one language-model call
func RecordInsightCall(provider, kind string, latency time.Duration, err error) {
	InsightCalls.WithLabelValues(provider, kind, status(err)).Inc()
	InsightLatency.WithLabelValues(provider).Observe(latency.Seconds())
}

// RecordExternalCall records one external data call
func RecordExternalCall(service string, err error) {
	ExternalCalls.WithLabelValues(service, status(err)).Inc()
}

// RecordJobExecution records one scheduled job run
func RecordJobExecution(job string, duration time.Duration, err error) {
	JobExecutions.WithLabelValues(job, status(err)).Inc()
	JobDuration.WithLabelValues(job).Observe(duration.Seconds())
	JobLastRun.WithLabelValues(job).Set(float64(time.Now().Unix()))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
