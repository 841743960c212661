// Package autopick chooses a player on behalf of a team whose turn it is.
package autopick

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

// Source says where an auto-picked player came from.
type Source string

const (
	SourceQueue   Source = "queue"
	SourceRanking Source = "ranking"
)

type Selection struct {
	PlayerID models.PlayerID
	Source   Source
}

// Strategy chooses a player for teamID. It runs on the querier it is given
// so the choice can be made inside the transaction that commits it.
type Strategy interface {
	Select(ctx context.Context, q repository.Querier, d models.Draft, teamID uuid.UUID) (Selection, error)
}

// QueueStrategy takes the team's highest priority undrafted queue entry and
// falls back to the best ranked undrafted player of the league's sport.
type QueueStrategy struct{}

func (QueueStrategy) Select(ctx context.Context, q repository.Querier, d models.Draft, teamID uuid.UUID) (Selection, error) {
	league, err := q.GetLeague(ctx, d.LeagueID)
	if err != nil {
		return Selection{}, fmt.Errorf("failed to load league: %w", err)
	}

	queue, err := q.ListQueue(ctx, teamID, d.ID)
	if err != nil {
		return Selection{}, fmt.Errorf("failed to load queue: %w", err)
	}
	for _, entry := range queue {
		if entry.Drafted {
			continue
		}
		p, err := q.GetPlayer(ctx, entry.PlayerID)
		if errors.Is(err, draft.ErrNotFound) {
			continue
		}
		if err != nil {
			return Selection{}, fmt.Errorf("failed to load queued player: %w", err)
		}
		if p.SportID != league.SportID {
			log.Warn().
				Str("team_id", teamID.String()).
				Str("player_id", p.ID.String()).
				Msg("skipping queued player from another sport")
			continue
		}
		return Selection{PlayerID: entry.PlayerID, Source: SourceQueue}, nil
	}

	p, err := q.TopRankedAvailable(ctx, d.ID, league.SportID)
	if errors.Is(err, draft.ErrNotFound) {
		return Selection{}, draft.ErrNoAvailablePlayer
	}
	if err != nil {
		return Selection{}, fmt.Errorf("failed to load ranked pool: %w", err)
	}
	return Selection{PlayerID: p.ID, Source: SourceRanking}, nil
}

// Selector answers selection queries outside a pick commit.
type Selector struct {
	store    repository.Store
	strategy Strategy
}

func NewSelector(store repository.Store, strategy Strategy) *Selector {
	if strategy == nil {
		strategy = QueueStrategy{}
	}
	return &Selector{store: store, strategy: strategy}
}

// SelectForTeam returns the player auto-pick would take for teamID right now.
func (s *Selector) SelectForTeam(ctx context.Context, draftID, teamID uuid.UUID) (models.PlayerID, error) {
	var sel Selection
	err := s.store.View(ctx, func(q repository.Querier) error {
		d, err := q.GetDraft(ctx, draftID)
		if err != nil {
			return err
		}
		sel, err = s.strategy.Select(ctx, q, d, teamID)
		return err
	})
	if err != nil {
		return models.NilPlayerID, err
	}
	return sel.PlayerID, nil
}
