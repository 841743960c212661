package outbox

import (
	"strconv"
	"time"

	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector defines the interface for collecting outbox metrics
type MetricsCollector interface {
	RecordEventProcessed(eventType events.Type, success bool, duration time.Duration)
	RecordBatchProcessed(count int, duration time.Duration)
	RecordOutboxLag(pending int, oldest time.Duration)
	RecordPublishAttempt(eventType events.Type, attempt int, success bool)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordEventProcessed(events.Type, bool, time.Duration) {}
func (NoOpMetricsCollector) RecordBatchProcessed(int, time.Duration)               {}
func (NoOpMetricsCollector) RecordOutboxLag(int, time.Duration)                    {}
func (NoOpMetricsCollector) RecordPublishAttempt(events.Type, int, bool)           {}

type PrometheusMetrics struct {
	eventCounter    *prometheus.CounterVec
	eventDuration   *prometheus.HistogramVec
	batchSize       prometheus.Histogram
	batchDuration   prometheus.Histogram
	pending         prometheus.Gauge
	lag             prometheus.Gauge
	publishAttempts *prometheus.CounterVec
}

func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	f := promauto.With(reg)
	return &PrometheusMetrics{
		eventCounter: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "draftroom",
			Subsystem: "outbox",
			Name:      "events_total",
			Help:      "Publish calls by event type and status.",
		}, []string{"event_type", "status"}),
		eventDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "draftroom",
			Subsystem: "outbox",
			Name:      "publish_duration_seconds",
			Help:      "Time spent in a single publish call.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
		batchSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "draftroom",
			Subsystem: "outbox",
			Name:      "drain_events",
			Help:      "Events published per drain.",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 500},
		}),
		batchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "draftroom",
			Subsystem: "outbox",
			Name:      "drain_duration_seconds",
			Help:      "Time spent per drain.",
			Buckets:   prometheus.DefBuckets,
		}),
		pending: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "draftroom",
			Subsystem: "outbox",
			Name:      "pending_events",
			Help:      "Unsent outbox rows after the last drain.",
		}),
		lag: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "draftroom",
			Subsystem: "outbox",
			Name:      "lag_seconds",
			Help:      "Age of the oldest unsent outbox row.",
		}),
		publishAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "draftroom",
			Subsystem: "outbox",
			Name:      "publish_attempts_total",
			Help:      "Publish attempts by attempt number and status.",
		}, []string{"attempt", "status"}),
	}
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func (m *PrometheusMetrics) RecordEventProcessed(eventType events.Type, success bool, duration time.Duration) {
	m.eventCounter.WithLabelValues(string(eventType), status(success)).Inc()
	m.eventDuration.WithLabelValues(string(eventType)).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordBatchProcessed(count int, duration time.Duration) {
	m.batchSize.Observe(float64(count))
	m.batchDuration.Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordOutboxLag(pending int, oldest time.Duration) {
	m.pending.Set(float64(pending))
	m.lag.Set(oldest.Seconds())
}

func (m *PrometheusMetrics) RecordPublishAttempt(_ events.Type, attempt int, success bool) {
	m.publishAttempts.WithLabelValues(strconv.Itoa(attempt), status(success)).Inc()
}

// Events returns the publish counter for one event type and outcome.
func (m *PrometheusMetrics) Events(eventType events.Type, success bool) prometheus.Counter {
	return m.eventCounter.WithLabelValues(string(eventType), status(success))
}

func (m *PrometheusMetrics) Pending() prometheus.Gauge { return m.pending }
func (m *PrometheusMetrics) Lag() prometheus.Gauge     { return m.lag }
