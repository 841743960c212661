package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/models"
)

// Every payload carries the draft row as of the change so subscribers can
// reconcile on Draft.Version alone.

// PickStartedPayload is the payload for a PickStarted event
type PickStartedPayload struct {
	Draft          models.Draft `json:"draft"`
	TeamID         uuid.UUID    `json:"team_id"`
	PickNumber     int          `json:"pick_number"`
	Round          int          `json:"round"`
	StartedAt      time.Time    `json:"started_at"`
	TimeoutAt      time.Time    `json:"timeout_at"`
	TimePerPickSec int          `json:"time_per_pick_sec"`
}

// PickMadePayload is the payload for a PickMade event
type PickMadePayload struct {
	Draft models.Draft     `json:"draft"`
	Pick  models.DraftPick `json:"pick"`
}

// TurnExpiredPayload is emitted when a turn runs out and auto-pick is off
// for the team on the clock. The turn stays open.
type TurnExpiredPayload struct {
	Draft      models.Draft `json:"draft"`
	TeamID     uuid.UUID    `json:"team_id"`
	PickNumber int          `json:"pick_number"`
	ExpiredAt  time.Time    `json:"expired_at"`
}

// DraftStartedPayload is the payload for a DraftStarted event
type DraftStartedPayload struct {
	Draft      models.Draft `json:"draft"`
	StartedAt  time.Time    `json:"started_at"`
	TotalPicks int          `json:"total_picks"`
}

// DraftCompletedPayload is the payload for a DraftCompleted event
type DraftCompletedPayload struct {
	Draft       models.Draft `json:"draft"`
	CompletedAt time.Time    `json:"completed_at"`
	Duration    string       `json:"duration"`
	TotalPicks  int          `json:"total_picks"`
}

// DraftPausedPayload is the payload for a DraftPaused event
type DraftPausedPayload struct {
	Draft    models.Draft `json:"draft"`
	PausedAt time.Time    `json:"paused_at"`
	PausedBy uuid.UUID    `json:"paused_by"`
}

// DraftResumedPayload is the payload for a DraftResumed event
type DraftResumedPayload struct {
	Draft     models.Draft `json:"draft"`
	ResumedAt time.Time    `json:"resumed_at"`
}

// Snapshot is the part every payload shares. Decoding any payload into it
// yields the draft row and, for PickMade, the pick.
type Snapshot struct {
	Draft *models.Draft     `json:"draft"`
	Pick  *models.DraftPick `json:"pick,omitempty"`
}
