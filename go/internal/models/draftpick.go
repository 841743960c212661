package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftPick is a committed selection. Picks are append-only.
type DraftPick struct {
	ID          uuid.UUID `json:"id"`
	DraftID     uuid.UUID `json:"draft_id"`
	TeamID      uuid.UUID `json:"team_id"`
	PlayerID    PlayerID  `json:"player_id"`
	PickNumber  int       `json:"pick_number"`
	RoundNumber int       `json:"round_number"`
	IsAutoPick  bool      `json:"is_auto_pick"`
	PickedAt    time.Time `json:"picked_at"`
}

// QueueEntry is one row of a team's pre-ranked wish list.
type QueueEntry struct {
	TeamID   uuid.UUID `json:"team_id"`
	PlayerID PlayerID  `json:"player_id"`
	Priority int       `json:"priority"`
	// Drafted is computed when the queue is read against a draft's pick log.
	Drafted bool `json:"drafted,omitempty"`
}
