package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	RunsTotal            *prometheus.CounterVec
	RunDuration          prometheus.Histogram
	SubscriptionsChecked prometheus.Counter
	ItemErrorsTotal      *prometheus.CounterVec
	NotificationsTotal   *prometheus.CounterVec
	ExtractionsTotal     *prometheus.CounterVec
	ExtractionDuration   *prometheus.HistogramVec
	ThrottleWait         prometheus.Histogram
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricewatch_runs_total",
				Help: "Scheduler passes by trigger and outcome.",
			},
			[]string{"trigger", "status"}, // status: success, failure, skipped
		),
		RunDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pricewatch_run_duration_seconds",
				Help:    "Wall time of a scheduler pass.",
				Buckets: []float64{1, 10, 30, 60, 120, 300, 600, 1200},
			},
		),
		SubscriptionsChecked: f.NewCounter(
			prometheus.CounterOpts{
				Name: "pricewatch_subscriptions_checked_total",
				Help: "Subscriptions evaluated by the scheduler.",
			},
		),
		ItemErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricewatch_item_errors_total",
				Help: "Per-subscription failures that were logged and skipped.",
			},
			[]string{"stage"},
		),
		NotificationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricewatch_notifications_total",
				Help: "Price-drop notifications by delivery outcome.",
			},
			[]string{"status"},
		),
		ExtractionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricewatch_extractions_total",
				Help: "Extraction attempts by page source and result.",
			},
			[]string{"source", "result"}, // result: valid, weak, failed
		),
		ExtractionDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pricewatch_extraction_duration_seconds",
				Help:    "Duration of a page fetch plus parse.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 15, 30, 60},
			},
			[]string{"source"},
		),
		ThrottleWait: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pricewatch_domain_throttle_wait_seconds",
				Help:    "Time spent waiting for a per-domain slot.",
				Buckets: []float64{0, 0.1, 0.5, 1, 2, 5, 10},
			},
		),
	}
}

func (m *Metrics) ObserveHTTP(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}

func (m *Metrics) ObserveRun(trigger, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(trigger, status).Inc()
	if status != "skipped" {
		m.RunDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) IncChecked() {
	if m == nil {
		return
	}
	m.SubscriptionsChecked.Inc()
}

func (m *Metrics) IncItemError(stage string) {
	if m == nil {
		return
	}
	m.ItemErrorsTotal.WithLabelValues(stage).Inc()
}

func (m *Metrics) IncNotification(status string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveExtraction(source, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.WithLabelValues(source, result).Inc()
	m.ExtractionDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Metrics) ObserveThrottleWait(d time.Duration) {
	if m == nil {
		return
	}
	m.ThrottleWait.Observe(d.Seconds())
}
