package pick

import (
	"errors"

	"github.com/mcdev12/draftroom/go/internal/draft"
	"github.com/mcdev12/draftroom/go/internal/draft/autopick"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics observes pick outcomes.
type Metrics interface {
	PickCommitted(isAutoPick bool)
	PickRejected(reason string)
	AutoPickSelected(source autopick.Source)
	AutoPickRetried()
}

type PrometheusMetrics struct {
	committed *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	autoPicks *prometheus.CounterVec
	retries   prometheus.Counter
}

func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		committed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "draftroom",
			Name:      "picks_committed_total",
			Help:      "Picks committed, by whether the pick was automatic.",
		}, []string{"auto"}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "draftroom",
			Name:      "picks_rejected_total",
			Help:      "Pick attempts rejected, by reason.",
		}, []string{"reason"}),
		autoPicks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "draftroom",
			Name:      "auto_picks_total",
			Help:      "Auto-picks committed, by selection source.",
		}, []string{"source"}),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "draftroom",
			Name:      "auto_pick_retries_total",
			Help:      "Auto-pick commits retried after a collision.",
		}),
	}
}

func (m *PrometheusMetrics) PickCommitted(isAutoPick bool) {
	label := "false"
	if isAutoPick {
		label = "true"
	}
	m.committed.WithLabelValues(label).Inc()
}

func (m *PrometheusMetrics) PickRejected(reason string) {
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *PrometheusMetrics) AutoPickSelected(source autopick.Source) {
	m.autoPicks.WithLabelValues(string(source)).Inc()
}

func (m *PrometheusMetrics) AutoPickRetried() {
	m.retries.Inc()
}

type noopMetrics struct{}

func (noopMetrics) PickCommitted(bool)               {}
func (noopMetrics) PickRejected(string)              {}
func (noopMetrics) AutoPickSelected(autopick.Source) {}
func (noopMetrics) AutoPickRetried()                 {}

// RejectReason labels err for metrics and logs.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, draft.ErrDraftNotActive):
		return "draft_not_active"
	case errors.Is(err, draft.ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, draft.ErrPlayerAlreadyDrafted):
		return "player_already_drafted"
	case errors.Is(err, draft.ErrInvalidPlayer):
		return "invalid_player"
	case errors.Is(err, draft.ErrStaleState):
		return "stale_state"
	case errors.Is(err, draft.ErrNoAvailablePlayer):
		return "no_available_player"
	case errors.Is(err, draft.ErrAutoPickDisabled):
		return "auto_pick_disabled"
	case errors.Is(err, draft.ErrInvalidDraftState):
		return "invalid_draft_state"
	case errors.Is(err, draft.ErrNotFound):
		return "not_found"
	case errors.Is(err, draft.ErrInvalidRequest):
		return "invalid_request"
	}
	return "internal"
}
