package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Expiry outcomes.
const (
	OutcomeAutoPicked = "auto_picked"
	OutcomeReported   = "reported"
	OutcomeSuperseded = "superseded"
	OutcomeFailed     = "failed"
)

type Metrics interface {
	TurnArmed()
	TurnExpired(outcome string)
	ActiveTurns(n int)
}

type PrometheusMetrics struct {
	armed   prometheus.Counter
	expired *prometheus.CounterVec
	active  prometheus.Gauge
}

func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	f := promauto.With(reg)
	return &PrometheusMetrics{
		armed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "draftroom",
			Subsystem: "orchestrator",
			Name:      "turns_armed_total",
			Help:      "Turn countdowns started or resumed.",
		}),
		expired: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "draftroom",
			Subsystem: "orchestrator",
			Name:      "turns_expired_total",
			Help:      "Expired turns by escalation outcome.",
		}, []string{"outcome"}),
		active: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "draftroom",
			Subsystem: "orchestrator",
			Name:      "active_turns",
			Help:      "Drafts with a live turn on this instance.",
		}),
	}
}

func (m *PrometheusMetrics) TurnArmed()                 { m.armed.Inc() }
func (m *PrometheusMetrics) TurnExpired(outcome string) { m.expired.WithLabelValues(outcome).Inc() }
func (m *PrometheusMetrics) ActiveTurns(n int)          { m.active.Set(float64(n)) }

// Expired returns the expiry counter of one outcome.
func (m *PrometheusMetrics) Expired(outcome string) prometheus.Counter {
	return m.expired.WithLabelValues(outcome)
}

type noopMetrics struct{}

func (noopMetrics) TurnArmed()         {}
func (noopMetrics) TurnExpired(string) {}
func (noopMetrics) ActiveTurns(int)    {}
