package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics interface {
	Connections(n int)
	FramesSent(n int)
	SlowConsumer()
	DuplicateDropped()
}

type PrometheusMetrics struct {
	connections prometheus.Gauge
	frames      prometheus.Counter
	slow        prometheus.Counter
	duplicates  prometheus.Counter
}

func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	f := promauto.With(reg)
	return &PrometheusMetrics{
		connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "draftroom",
			Subsystem: "gateway",
			Name:      "connections",
			Help:      "Open WebSocket subscriptions.",
		}),
		frames: f.NewCounter(prometheus.CounterOpts{
			Namespace: "draftroom",
			Subsystem: "gateway",
			Name:      "frames_sent_total",
			Help:      "Event frames queued to subscribers.",
		}),
		slow: f.NewCounter(prometheus.CounterOpts{
			Namespace: "draftroom",
			Subsystem: "gateway",
			Name:      "slow_consumers_total",
			Help:      "Connections dropped for falling behind.",
		}),
		duplicates: f.NewCounter(prometheus.CounterOpts{
			Namespace: "draftroom",
			Subsystem: "gateway",
			Name:      "duplicate_events_total",
			Help:      "Redelivered events not fanned out again.",
		}),
	}
}

func (m *PrometheusMetrics) Connections(n int) { m.connections.Set(float64(n)) }
func (m *PrometheusMetrics) FramesSent(n int)  { m.frames.Add(float64(n)) }
func (m *PrometheusMetrics) SlowConsumer()     { m.slow.Inc() }
func (m *PrometheusMetrics) DuplicateDropped() { m.duplicates.Inc() }

func (m *PrometheusMetrics) Duplicates() prometheus.Counter    { return m.duplicates }
func (m *PrometheusMetrics) SlowConsumers() prometheus.Counter { return m.slow }

type noopMetrics struct{}

func (noopMetrics) Connections(int)   {}
func (noopMetrics) FramesSent(int)    {}
func (noopMetrics) SlowConsumer()     {}
func (noopMetrics) DuplicateDropped() {}
