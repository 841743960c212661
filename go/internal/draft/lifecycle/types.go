package lifecycle

import (
	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/models"
)

// CreateDraftRequest represents a request to create a new draft
type CreateDraftRequest struct {
	LeagueID        uuid.UUID
	ActingUserID    uuid.UUID
	DraftType       models.DraftType
	DraftOrder      []uuid.UUID
	TotalRounds     int
	TimePerPickSec  int
	AutoPickEnabled bool
}

// DraftState is everything a client needs to rebuild its view of a draft.
type DraftState struct {
	Draft         models.Draft       `json:"draft"`
	Picks         []models.DraftPick `json:"picks"`
	OnClockTeamID *uuid.UUID         `json:"on_clock_team_id,omitempty"`
}
