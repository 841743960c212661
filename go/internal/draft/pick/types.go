package pick

import (
	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/draft/autopick"
	"github.com/mcdev12/draftroom/go/internal/models"
)

// SubmitPickRequest represents a request to make a draft pick
type SubmitPickRequest struct {
	DraftID    uuid.UUID
	TeamID     uuid.UUID
	PlayerID   models.PlayerID
	IsAutoPick bool
	// ActingUserID is the user behind the request. It is required unless
	// System is set.
	ActingUserID uuid.UUID
	// System marks a pick made by the draft room itself, such as a timer
	// escalation. It skips the ownership check.
	System bool
	// ExpectedPick, when set, pins the request to a turn. The request fails
	// with ErrStaleState once the draft has moved past it.
	ExpectedPick int
}

// AutoPickRequest asks the engine to pick for the team on the clock.
type AutoPickRequest struct {
	DraftID      uuid.UUID
	TeamID       uuid.UUID
	ActingUserID uuid.UUID
	// System marks a request from the draft room itself. Without it an
	// ActingUserID is required.
	System       bool
	ExpectedPick int
	// RequirePreference makes the request fail with ErrAutoPickDisabled when
	// the team's effective auto-pick preference is off.
	RequirePreference bool
}

// Result is the committed pick and the draft row after the commit.
type Result struct {
	Pick  models.DraftPick
	Draft models.Draft
}

func (r Result) Completed() bool {
	return r.Draft.Status == models.DraftStatusCompleted
}

type AutoPickResult struct {
	Result
	Source   autopick.Source
	Attempts int
}
