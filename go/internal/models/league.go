package models

import (
	"time"

	"github.com/google/uuid"
)

// League is the read-only slice of a league the draft room needs.
type League struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	SportID        string    `json:"sport_id"`
	CommissionerID uuid.UUID `json:"commissioner_id"`
	CreatedAt      time.Time `json:"created_at"`
}
