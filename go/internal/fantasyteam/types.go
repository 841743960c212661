package fantasyteam

import (
	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/models"
)

// AddToQueueRequest appends or moves a player in a team's queue. A zero
// Priority appends the player after the current last entry.
type AddToQueueRequest struct {
	TeamID       uuid.UUID
	PlayerID     models.PlayerID
	Priority     int
	ActingUserID uuid.UUID
}

// ReorderQueueRequest replaces a team's queue with PlayerIDs in order.
type ReorderQueueRequest struct {
	TeamID       uuid.UUID
	PlayerIDs    []models.PlayerID
	ActingUserID uuid.UUID
}

// SetAutoPickRequest stores a team's auto-pick preference. A nil Enabled
// clears it so the draft default applies.
type SetAutoPickRequest struct {
	TeamID       uuid.UUID
	Enabled      *bool
	ActingUserID uuid.UUID
}
