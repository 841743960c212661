// Package fantasyteam manages the per-team draft inputs: the player queue
// and the auto-pick preference.
package fantasyteam

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/draft"
	"github.com/mcdev12/draftroom/go/internal/draft/repository"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// App handles fantasy team queue and preference logic
type App struct {
	store repository.Store
}

func NewApp(store repository.Store) *App {
	return &App{store: store}
}

// GetQueue returns the team's queue in priority order. When draftID is set,
// players already drafted in that draft are left out.
func (a *App) GetQueue(ctx context.Context, teamID, draftID uuid.UUID) ([]models.QueueEntry, error) {
	var entries []models.QueueEntry
	err := a.store.View(ctx, func(q repository.Querier) error {
		if _, err := q.GetTeam(ctx, teamID); err != nil {
			return err
		}
		all, err := q.ListQueue(ctx, teamID, draftID)
		if err != nil {
			return err
		}
		entries = make([]models.QueueEntry, 0, len(all))
		for _, e := range all {
			if !e.Drafted {
				entries = append(entries, e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get queue: %w", err)
	}
	return entries, nil
}

// AddToQueue inserts a player into the team's queue, or moves it when
// already queued.
func (a *App) AddToQueue(ctx context.Context, req AddToQueueRequest) ([]models.QueueEntry, error) {
	if req.PlayerID.IsNil() {
		return nil, fmt.Errorf("%w: player_id is required", draft.ErrInvalidRequest)
	}
	if req.Priority < 0 {
		return nil, fmt.Errorf("%w: priority must not be negative", draft.ErrInvalidRequest)
	}

	var entries []models.QueueEntry
	err := a.store.InTx(ctx, func(q repository.Querier) error {
		team, err := a.requireOwner(ctx, q, req.TeamID, req.ActingUserID)
		if err != nil {
			return err
		}
		if err := a.requireSameSport(ctx, q, team, req.PlayerID); err != nil {
			return err
		}

		priority := req.Priority
		if priority == 0 {
			current, err := q.ListQueue(ctx, team.ID, uuid.Nil)
			if err != nil {
				return err
			}
			priority = 1
			for _, e := range current {
				if e.PlayerID != req.PlayerID && e.Priority >= priority {
					priority = e.Priority + 1
				}
			}
		}

		if err := q.UpsertQueueEntry(ctx, models.QueueEntry{TeamID: team.ID, PlayerID: req.PlayerID, Priority: priority}); err != nil {
			return err
		}
		entries, err = q.ListQueue(ctx, team.ID, uuid.Nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Debug().Str("team_id", req.TeamID.String()).Str("player_id", req.PlayerID.String()).Msg("player queued")
	return entries, nil
}

// ReorderQueue replaces the team's queue. Priorities follow the order of
// the request, starting at 1.
func (a *App) ReorderQueue(ctx context.Context, req ReorderQueueRequest) ([]models.QueueEntry, error) {
	seen := make(map[models.PlayerID]bool, len(req.PlayerIDs))
	for _, id := range req.PlayerIDs {
		if id.IsNil() {
			return nil, fmt.Errorf("%w: empty player id in queue", draft.ErrInvalidRequest)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: player %s listed twice", draft.ErrInvalidRequest, id)
		}
		seen[id] = true
	}

	var entries []models.QueueEntry
	err := a.store.InTx(ctx, func(q repository.Querier) error {
		team, err := a.requireOwner(ctx, q, req.TeamID, req.ActingUserID)
		if err != nil {
			return err
		}

		next := make([]models.QueueEntry, len(req.PlayerIDs))
		for i, id := range req.PlayerIDs {
			if err := a.requireSameSport(ctx, q, team, id); err != nil {
				return err
			}
			next[i] = models.QueueEntry{TeamID: team.ID, PlayerID: id, Priority: i + 1}
		}
		if err := q.ReplaceQueue(ctx, team.ID, next); err != nil {
			return err
		}
		entries, err = q.ListQueue(ctx, team.ID, uuid.Nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Debug().Str("team_id", req.TeamID.String()).Int("size", len(entries)).Msg("queue reordered")
	return entries, nil
}

// RemoveFromQueue deletes one player from the team's queue.
func (a *App) RemoveFromQueue(ctx context.Context, teamID uuid.UUID, playerID models.PlayerID, actingUserID uuid.UUID) error {
	return a.store.InTx(ctx, func(q repository.Querier) error {
		if _, err := a.requireOwner(ctx, q, teamID, actingUserID); err != nil {
			return err
		}
		return q.DeleteQueueEntry(ctx, teamID, playerID)
	})
}

// SetAutoPick stores the team's auto-pick preference. The team owner or the
// league commissioner may change it.
func (a *App) SetAutoPick(ctx context.Context, req SetAutoPickRequest) (models.FantasyTeam, error) {
	var team models.FantasyTeam
	err := a.store.InTx(ctx, func(q repository.Querier) error {
		current, err := q.GetTeam(ctx, req.TeamID)
		if err != nil {
			return err
		}
		if current.OwnerID != req.ActingUserID || req.ActingUserID == uuid.Nil {
			league, err := q.GetLeague(ctx, current.LeagueID)
			if err != nil {
				return err
			}
			if req.ActingUserID == uuid.Nil || league.CommissionerID != req.ActingUserID {
				return draft.ErrNotTeamOwner
			}
		}
		team, err = q.SetAutoPickPreference(ctx, req.TeamID, req.Enabled)
		return err
	})
	if err != nil {
		return models.FantasyTeam{}, err
	}

	ev := log.Info().Str("team_id", team.ID.String())
	if team.AutoPickPreference != nil {
		ev = ev.Bool("auto_pick", *team.AutoPickPreference)
	}
	ev.Msg("auto-pick preference updated")
	return team, nil
}

func (a *App) requireOwner(ctx context.Context, q repository.Querier, teamID, userID uuid.UUID) (models.FantasyTeam, error) {
	team, err := q.GetTeam(ctx, teamID)
	if err != nil {
		return models.FantasyTeam{}, err
	}
	if userID == uuid.Nil || team.OwnerID != userID {
		return models.FantasyTeam{}, draft.ErrNotTeamOwner
	}
	return team, nil
}

func (a *App) requireSameSport(ctx context.Context, q repository.Querier, team models.FantasyTeam, playerID models.PlayerID) error {
	player, err := q.GetPlayer(ctx, playerID)
	if err != nil {
		if errors.Is(err, draft.ErrNotFound) {
			return fmt.Errorf("%w: unknown player %s", draft.ErrInvalidPlayer, playerID)
		}
		return err
	}
	league, err := q.GetLeague(ctx, team.LeagueID)
	if err != nil {
		return err
	}
	if player.SportID != league.SportID {
		return fmt.Errorf("%w: player %s plays %s, league plays %s", draft.ErrInvalidPlayer, playerID, player.SportID, league.SportID)
	}
	return nil
}
