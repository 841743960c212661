package outbox

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/httputil"
)

// PendingAlertThreshold marks a backlog large enough to report.
const PendingAlertThreshold = 1000

type HealthStatus struct {
	Healthy           bool      `json:"healthy"`
	EventsProcessed   uint64    `json:"events_processed"`
	PendingEvents     int       `json:"pending_events"`
	LastEventTime     time.Time `json:"last_event_time"`
	DatabaseConnected bool      `json:"database_connected"`
	BusConnected      bool      `json:"bus_connected"`
	ListenerActive    bool      `json:"listener_active"`
	Errors            []string  `json:"errors"`
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthChecker struct {
	relay    *Relay
	db       Pinger
	listener interface{ Active() bool }
	bus      func() bool
	clock    clockwork.Clock
	// threshold is how long pending events may sit without any publish.
	threshold time.Duration
}

// NewHealthChecker builds a checker. bus may be nil when the relay only logs.
func NewHealthChecker(relay *Relay, db Pinger, listener interface{ Active() bool }, bus func() bool, clock clockwork.Clock, threshold time.Duration) *HealthChecker {
	return &HealthChecker{
		relay:     relay,
		db:        db,
		listener:  listener,
		bus:       bus,
		clock:     clock,
		threshold: threshold,
	}
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy:      true,
		BusConnected: true,
		Errors:       []string{},
	}
	status.EventsProcessed, status.LastEventTime = h.relay.Stats()

	if err := h.db.PingContext(ctx); err != nil {
		status.Healthy = false
		status.Errors = append(status.Errors, fmt.Sprintf("database ping failed: %v", err))
	} else {
		status.DatabaseConnected = true
	}

	if h.bus != nil && !h.bus() {
		status.BusConnected = false
		status.Healthy = false
		status.Errors = append(status.Errors, "bus disconnected")
	}

	status.ListenerActive = h.listener.Active()
	if !status.ListenerActive {
		status.Healthy = false
		status.Errors = append(status.Errors, "listener not active")
	}

	if status.DatabaseConnected {
		pending, err := h.relay.store.Pending(ctx)
		if err != nil {
			status.Errors = append(status.Errors, fmt.Sprintf("failed to count pending events: %v", err))
		} else {
			status.PendingEvents = pending.Count
			if pending.Count > PendingAlertThreshold {
				status.Errors = append(status.Errors, fmt.Sprintf("high pending event count: %d", pending.Count))
			}
			// Stuck: rows older than the threshold and nothing published since.
			if pending.Count > 0 && h.clock.Since(pending.Oldest) > h.threshold &&
				(status.LastEventTime.IsZero() || h.clock.Since(status.LastEventTime) > h.threshold) {
				status.Healthy = false
				status.Errors = append(status.Errors, fmt.Sprintf("oldest pending event is %s old", h.clock.Since(pending.Oldest).Round(time.Second)))
			}
		}
	}

	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, code, status)
}
