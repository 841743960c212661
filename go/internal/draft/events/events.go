// Package events holds the draft room's change events: the outbox row
// written inside the committing transaction and the envelope published on
// the bus.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type names a draft event.
type Type string

const (
	TypeDraftStarted   Type = "DraftStarted"
	TypeDraftPaused    Type = "DraftPaused"
	TypeDraftResumed   Type = "DraftResumed"
	TypeDraftCompleted Type = "DraftCompleted"
	TypePickStarted    Type = "PickStarted"
	TypePickMade       Type = "PickMade"
	TypeTurnExpired    Type = "TurnExpired"
)

// SubjectPrefix is the NATS subject namespace; events for one draft are
// published on SubjectPrefix + draftID.
const SubjectPrefix = "draft.events."

func Subject(draftID uuid.UUID) string {
	return SubjectPrefix + draftID.String()
}

// OutboxEvent is a row of draft_outbox. Seq is assigned by the database and
// orders events of the same draft.
type OutboxEvent struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Seq       int64           `json:"seq" db:"seq"`
	DraftID   uuid.UUID       `json:"draft_id" db:"draft_id"`
	EventType Type            `json:"event_type" db:"event_type"`
	Payload   json.RawMessage `json:"payload" db:"payload"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	SentAt    *time.Time      `json:"sent_at,omitempty" db:"sent_at"`
}

// NewOutboxEvent marshals payload into a fresh outbox row.
func NewOutboxEvent(draftID uuid.UUID, eventType Type, payload any, at time.Time) (OutboxEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return OutboxEvent{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return OutboxEvent{
		ID:        uuid.New(),
		DraftID:   draftID,
		EventType: eventType,
		Payload:   data,
		CreatedAt: at,
	}, nil
}

// Envelope is the message published on the bus and fanned out to clients.
type Envelope struct {
	EventID   uuid.UUID       `json:"event_id"`
	EventType Type            `json:"event_type"`
	DraftID   uuid.UUID       `json:"draft_id"`
	Seq       int64           `json:"seq"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

func (e OutboxEvent) Envelope() Envelope {
	return Envelope{
		EventID:   e.ID,
		EventType: e.EventType,
		DraftID:   e.DraftID,
		Seq:       e.Seq,
		Timestamp: e.CreatedAt,
		Payload:   e.Payload,
	}
}

// Snapshot decodes the shared draft snapshot out of the payload.
func (e Envelope) Snapshot() (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(e.Payload, &s); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode %s payload: %w", e.EventType, err)
	}
	return s, nil
}

// Decode unmarshals the payload into the struct matching the event type.
func (e Envelope) Decode() (any, error) {
	var payload any
	switch e.EventType {
	case TypePickStarted:
		payload = &PickStartedPayload{}
	case TypePickMade:
		payload = &PickMadePayload{}
	case TypeTurnExpired:
		payload = &TurnExpiredPayload{}
	case TypeDraftStarted:
		payload = &DraftStartedPayload{}
	case TypeDraftPaused:
		payload = &DraftPausedPayload{}
	case TypeDraftResumed:
		payload = &DraftResumedPayload{}
	case TypeDraftCompleted:
		payload = &DraftCompletedPayload{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", e.EventType)
	}
	if err := json.Unmarshal(e.Payload, payload); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", e.EventType, err)
	}
	return payload, nil
}
