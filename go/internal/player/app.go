// Package player serves the draft room's player pool: who is still on the
// board for a draft.
package player

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/draft"
	"github.com/mcdev12/draftroom/go/internal/draft/autopick"
	"github.com/mcdev12/draftroom/go/internal/draft/repository"
	"github.com/mcdev12/draftroom/go/internal/models"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// ListAvailableRequest pages through the players not yet drafted.
type ListAvailableRequest struct {
	DraftID  uuid.UUID
	Position string
	Limit    int
	Offset   int
}

// App handles player pool queries
type App struct {
	store    repository.Store
	selector *autopick.Selector
}

func NewApp(store repository.Store) *App {
	return &App{store: store, selector: autopick.NewSelector(store, nil)}
}

// ListAvailable returns the undrafted players of the draft's sport in the
// same order the auto-pick fallback uses.
func (a *App) ListAvailable(ctx context.Context, req ListAvailableRequest) ([]models.Player, error) {
	if err := a.validateListAvailableRequest(&req); err != nil {
		return nil, err
	}

	var players []models.Player
	err := a.store.View(ctx, func(q repository.Querier) error {
		d, err := q.GetDraft(ctx, req.DraftID)
		if err != nil {
			return err
		}
		league, err := q.GetLeague(ctx, d.LeagueID)
		if err != nil {
			return err
		}
		players, err = q.ListAvailablePlayers(ctx, repository.ListAvailablePlayersParams{
			DraftID:  d.ID,
			SportID:  league.SportID,
			Position: req.Position,
			Limit:    req.Limit,
			Offset:   req.Offset,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list available players: %w", err)
	}
	return players, nil
}

// GetPlayer retrieves a player by ID
func (a *App) GetPlayer(ctx context.Context, id models.PlayerID) (models.Player, error) {
	var p models.Player
	err := a.store.View(ctx, func(q repository.Querier) error {
		var err error
		p, err = q.GetPlayer(ctx, id)
		return err
	})
	if err != nil {
		return models.Player{}, fmt.Errorf("failed to get player: %w", err)
	}
	return p, nil
}

// NextAutoPick returns the player auto-pick would take for the team if its
// turn expired now: the first undrafted queue entry, else the best ranked.
func (a *App) NextAutoPick(ctx context.Context, draftID, teamID uuid.UUID) (models.Player, error) {
	id, err := a.selector.SelectForTeam(ctx, draftID, teamID)
	if err != nil {
		return models.Player{}, fmt.Errorf("failed to select auto-pick: %w", err)
	}
	return a.GetPlayer(ctx, id)
}

func (a *App) validateListAvailableRequest(req *ListAvailableRequest) error {
	if req.DraftID == uuid.Nil {
		return fmt.Errorf("%w: draft id is required", draft.ErrInvalidRequest)
	}
	if req.Limit < 0 || req.Offset < 0 {
		return fmt.Errorf("%w: limit and offset must not be negative", draft.ErrInvalidRequest)
	}
	if req.Limit == 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}
	req.Position = strings.ToUpper(strings.TrimSpace(req.Position))
	return nil
}
