// Package order resolves which team is on the clock for a given pick.
package order

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/draft"
	"github.com/mcdev12/draftroom/go/internal/models"
)

// TeamOnClock returns the team that owns the 1-based overall pick number.
// Snake drafts reverse the order on even rounds.
func TeamOnClock(draftType models.DraftType, teams []uuid.UUID, pick int) (uuid.UUID, error) {
	n := len(teams)
	if n == 0 {
		return uuid.Nil, fmt.Errorf("%w: empty draft order", draft.ErrInvalidDraftState)
	}
	if pick < 1 {
		return uuid.Nil, fmt.Errorf("%w: pick number %d", draft.ErrInvalidDraftState, pick)
	}

	idx := (pick - 1) % n
	switch draftType {
	case models.DraftTypeLinear:
	case models.DraftTypeSnake:
		if RoundForPick(pick, n)%2 == 0 {
			idx = n - 1 - idx
		}
	default:
		return uuid.Nil, fmt.Errorf("%w: unknown draft type %q", draft.ErrInvalidDraftState, draftType)
	}
	return teams[idx], nil
}

// RoundForPick is ceil(pick / teamCount).
func RoundForPick(pick, teamCount int) int {
	if teamCount <= 0 || pick < 1 {
		return 0
	}
	return (pick-1)/teamCount + 1
}

// Current resolves the on-clock team of a draft's current pick.
func Current(d models.Draft) (uuid.UUID, error) {
	return TeamOnClock(d.DraftType, d.DraftOrder, d.CurrentPick)
}

// Slots lists the team owning every pick of the draft, in pick order.
func Slots(d models.Draft) ([]uuid.UUID, error) {
	total := d.TotalPicks()
	if total == 0 {
		return nil, fmt.Errorf("%w: draft has no slots", draft.ErrInvalidDraftState)
	}
	slots := make([]uuid.UUID, 0, total)
	for p := 1; p <= total; p++ {
		team, err := TeamOnClock(d.DraftType, d.DraftOrder, p)
		if err != nil {
			return nil, err
		}
		slots = append(slots, team)
	}
	return slots, nil
}
