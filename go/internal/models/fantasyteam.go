package models

import (
	"time"

	"github.com/google/uuid"
)

type FantasyTeam struct {
	ID       uuid.UUID `json:"id"`
	LeagueID uuid.UUID `json:"league_id"`
	OwnerID  uuid.UUID `json:"owner_id"`
	Name     string    `json:"name"`
	// AutoPickPreference is nil when the owner never chose; the draft's
	// AutoPickEnabled applies then.
	AutoPickPreference *bool     `json:"auto_pick_preference,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// AutoPickOn resolves the team's effective auto-pick preference for a draft.
func (t FantasyTeam) AutoPickOn(d Draft) bool {
	if t.AutoPickPreference != nil {
		return *t.AutoPickPreference
	}
	return d.AutoPickEnabled
}
