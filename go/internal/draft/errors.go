package draft

import "errors"

// Errors returned by the draft room. Callers match them with errors.Is.
var (
	ErrInvalidDraftState    = errors.New("invalid draft state")
	ErrDraftNotActive       = errors.New("draft not active")
	ErrNotYourTurn          = errors.New("not your turn")
	ErrPlayerAlreadyDrafted = errors.New("player already drafted")
	ErrInvalidPlayer        = errors.New("invalid player")
	ErrStaleState           = errors.New("stale draft state")
	ErrNoAvailablePlayer    = errors.New("no available player")
	ErrNotFound             = errors.New("not found")
	ErrNotCommissioner      = errors.New("not league commissioner")
	ErrNotTeamOwner         = errors.New("not team owner")
	ErrAutoPickDisabled     = errors.New("auto-pick disabled for team")
	ErrInvalidRequest       = errors.New("invalid request")
)
