// Package gateway fans draft events out to WebSocket subscribers and
// serves the state clients re-fetch after reconnecting.
package gateway

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/rs/zerolog/log"
)

// Service is the draft gateway: it consumes bus envelopes, suppresses
// redeliveries through the projections and broadcasts the rest.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	stateProvider     StateProvider
	projections       *Projections
	clock             clockwork.Clock
	metrics           Metrics
}

func NewService(config ConnectionConfig, stateProvider StateProvider, clock clockwork.Clock, metrics Metrics) *Service {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	s := &Service{
		connectionManager: NewConnectionManager(config, metrics),
		stateProvider:     stateProvider,
		projections:       NewProjections(),
		clock:             clock,
		metrics:           metrics,
	}
	s.wsHandler = NewWebSocketHandler(s.connectionManager, s.snapshot)
	s.stateHandler = NewStateHandler(stateProvider, s.projections, clock)
	return s
}

// HandleEvent is the bus handler. The consumer calls it from one
// goroutine, so broadcasts leave in stream order.
func (s *Service) HandleEvent(ctx context.Context, env events.Envelope) error {
	applied, err := s.projections.Apply(env)
	if err != nil {
		log.Warn().Err(err).
			Str("event_id", env.EventID.String()).
			Str("event_type", string(env.EventType)).
			Msg("event payload did not fold into projection")
	}
	if !applied {
		if err == nil {
			s.metrics.DuplicateDropped()
			log.Debug().
				Str("event_id", env.EventID.String()).
				Int64("seq", env.Seq).
				Msg("dropping redelivered event")
		}
		return nil
	}

	frame, err := eventFrame(env, s.clock.Now())
	if err != nil {
		return err
	}
	n := s.connectionManager.BroadcastToDraft(env.DraftID, frame)

	log.Debug().
		Str("event_type", string(env.EventType)).
		Str("draft_id", env.DraftID.String()).
		Int64("seq", env.Seq).
		Int("connections", n).
		Msg("event broadcasted")

	if env.EventType == events.TypeDraftCompleted {
		s.projections.Remove(env.DraftID)
	}
	return nil
}

// snapshot renders the first frame of a connection from the store.
func (s *Service) snapshot(ctx context.Context, draftID uuid.UUID) ([]byte, error) {
	state, err := s.stateProvider.GetDraftState(ctx, draftID)
	if err != nil {
		return nil, err
	}
	s.projections.Seed(state)
	return snapshotFrame(BuildStateResponse(state, s.clock.Now()), s.clock.Now())
}

// RegisterRoutes registers the WebSocket and state routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	log.Info().Msg("draft gateway routes registered")
}

func (s *Service) Stats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}

// Close drops every subscriber. Clients reconnect and re-fetch.
func (s *Service) Close() {
	s.connectionManager.CloseAll()
}
