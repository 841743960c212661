package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftType defines the pick order scheme of a draft.
type DraftType string

const (
	DraftTypeSnake  DraftType = "SNAKE"
	DraftTypeLinear DraftType = "LINEAR"
)

// DraftStatus defines the lifecycle status of a draft. Pausing is tracked
// separately through Draft.IsPaused.
type DraftStatus string

const (
	DraftStatusScheduled  DraftStatus = "SCHEDULED"
	DraftStatusInProgress DraftStatus = "IN_PROGRESS"
	DraftStatusCompleted  DraftStatus = "COMPLETED"
)

// Draft is the versioned settings row of a league's draft room.
type Draft struct {
	ID              uuid.UUID   `json:"id"`
	LeagueID        uuid.UUID   `json:"league_id"`
	DraftType       DraftType   `json:"draft_type"`
	Status          DraftStatus `json:"status"`
	IsPaused        bool        `json:"is_paused"`
	DraftOrder      []uuid.UUID `json:"draft_order"`
	TotalRounds     int         `json:"total_rounds"`
	CurrentPick     int         `json:"current_pick"`
	CurrentRound    int         `json:"current_round"`
	TimePerPickSec  int         `json:"time_per_pick_sec"`
	AutoPickEnabled bool        `json:"auto_pick_enabled"`
	Version         int64       `json:"version"`
	StartedAt       *time.Time  `json:"started_at,omitempty"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// TeamCount is the number of participants in the draft order.
func (d Draft) TeamCount() int {
	return len(d.DraftOrder)
}

// TotalPicks is the number of slots in the whole draft.
func (d Draft) TotalPicks() int {
	return len(d.DraftOrder) * d.TotalRounds
}

// IsActive reports whether picks can currently be made by team owners.
func (d Draft) IsActive() bool {
	return d.Status == DraftStatusInProgress && !d.IsPaused
}

func (d Draft) TimePerPick() time.Duration {
	return time.Duration(d.TimePerPickSec) * time.Second
}
