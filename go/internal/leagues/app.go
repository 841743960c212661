// Package leagues exposes the league a draft belongs to: its commissioner
// and the teams a draft order is built from.
package leagues

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/draft/repository"
	"github.com/mcdev12/draftroom/go/internal/models"
)

// LeagueDetails is a league with its teams in join order.
type LeagueDetails struct {
	League models.League        `json:"league"`
	Teams  []models.FantasyTeam `json:"teams"`
}

// App handles leagues business logic
type App struct {
	store repository.Store
}

func NewApp(store repository.Store) *App {
	return &App{store: store}
}

// GetLeague retrieves a league and its teams.
func (a *App) GetLeague(ctx context.Context, id uuid.UUID) (LeagueDetails, error) {
	var details LeagueDetails
	err := a.store.View(ctx, func(q repository.Querier) error {
		league, err := q.GetLeague(ctx, id)
		if err != nil {
			return err
		}
		teams, err := q.ListLeagueTeams(ctx, id)
		if err != nil {
			return err
		}
		details = LeagueDetails{League: league, Teams: teams}
		return nil
	})
	if err != nil {
		return LeagueDetails{}, fmt.Errorf("failed to get league: %w", err)
	}
	if details.Teams == nil {
		details.Teams = []models.FantasyTeam{}
	}
	return details, nil
}
