// Package lifecycle creates, starts, pauses and resumes drafts.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/draft"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/draft/order"
	"github.com/mcdev12/draftroom/go/internal/draft/repository"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// App handles draft business logic
type App struct {
	store repository.Store
	clock clockwork.Clock
}

func NewApp(store repository.Store, clock clockwork.Clock) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &App{store: store, clock: clock}
}

// CreateDraft creates a scheduled draft for a league. Only the league's
// commissioner may create it.
func (a *App) CreateDraft(ctx context.Context, req CreateDraftRequest) (models.Draft, error) {
	if err := a.validateCreateDraftRequest(req); err != nil {
		return models.Draft{}, err
	}

	var d models.Draft
	err := a.store.InTx(ctx, func(q repository.Querier) error {
		if _, err := a.requireCommissioner(ctx, q, req.LeagueID, req.ActingUserID); err != nil {
			return err
		}

		teams, err := q.ListLeagueTeams(ctx, req.LeagueID)
		if err != nil {
			return err
		}
		inLeague := make(map[uuid.UUID]bool, len(teams))
		for _, t := range teams {
			inLeague[t.ID] = true
		}
		for _, id := range req.DraftOrder {
			if !inLeague[id] {
				return fmt.Errorf("%w: team %s is not in league %s", draft.ErrInvalidRequest, id, req.LeagueID)
			}
		}

		d, err = q.CreateDraft(ctx, repository.CreateDraftParams{
			ID:              uuid.New(),
			LeagueID:        req.LeagueID,
			DraftType:       req.DraftType,
			DraftOrder:      req.DraftOrder,
			TotalRounds:     req.TotalRounds,
			TimePerPickSec:  req.TimePerPickSec,
			AutoPickEnabled: req.AutoPickEnabled,
		})
		return err
	})
	if err != nil {
		return models.Draft{}, err
	}

	log.Info().
		Str("draft_id", d.ID.String()).
		Str("league_id", d.LeagueID.String()).
		Str("draft_type", string(d.DraftType)).
		Int("teams", d.TeamCount()).
		Int("rounds", d.TotalRounds).
		Msg("draft created")
	return d, nil
}

// StartDraft moves a scheduled draft to in progress with pick 1 on the clock.
func (a *App) StartDraft(ctx context.Context, draftID, actingUserID uuid.UUID) (models.Draft, error) {
	var d models.Draft
	err := a.store.InTx(ctx, func(q repository.Querier) error {
		current, err := q.GetDraft(ctx, draftID)
		if err != nil {
			return err
		}
		if _, err := a.requireCommissioner(ctx, q, current.LeagueID, actingUserID); err != nil {
			return err
		}
		if current.Status != models.DraftStatusScheduled {
			return fmt.Errorf("%w: draft is %s", draft.ErrInvalidDraftState, current.Status)
		}
		if _, err := order.Slots(current); err != nil {
			return err
		}

		now := a.clock.Now().UTC()
		d, err = q.StartDraft(ctx, draftID, now)
		if err != nil {
			return err
		}
		return insertEvent(ctx, q, d.ID, events.TypeDraftStarted, events.DraftStartedPayload{
			Draft:      d,
			StartedAt:  now,
			TotalPicks: d.TotalPicks(),
		}, now)
	})
	if err != nil {
		return models.Draft{}, err
	}

	log.Info().Str("draft_id", d.ID.String()).Int("total_picks", d.TotalPicks()).Msg("draft started")
	return d, nil
}

// PauseDraft freezes an in-progress draft. Pausing a paused draft is a no-op.
func (a *App) PauseDraft(ctx context.Context, draftID, actingUserID uuid.UUID) (models.Draft, error) {
	return a.setPaused(ctx, draftID, actingUserID, true)
}

// ResumeDraft unfreezes a paused draft. Resuming a running draft is a no-op.
func (a *App) ResumeDraft(ctx context.Context, draftID, actingUserID uuid.UUID) (models.Draft, error) {
	return a.setPaused(ctx, draftID, actingUserID, false)
}

func (a *App) setPaused(ctx context.Context, draftID, actingUserID uuid.UUID, paused bool) (models.Draft, error) {
	var (
		d       models.Draft
		changed bool
	)
	err := a.store.InTx(ctx, func(q repository.Querier) error {
		current, err := q.LockDraft(ctx, draftID)
		if err != nil {
			return err
		}
		if _, err := a.requireCommissioner(ctx, q, current.LeagueID, actingUserID); err != nil {
			return err
		}
		if current.Status != models.DraftStatusInProgress {
			return draft.ErrDraftNotActive
		}
		if current.IsPaused == paused {
			d = current
			return nil
		}

		now := a.clock.Now().UTC()
		d, err = q.SetPauseState(ctx, draftID, paused)
		if err != nil {
			return err
		}
		changed = true
		if paused {
			return insertEvent(ctx, q, d.ID, events.TypeDraftPaused, events.DraftPausedPayload{
				Draft: d, PausedAt: now, PausedBy: actingUserID,
			}, now)
		}
		return insertEvent(ctx, q, d.ID, events.TypeDraftResumed, events.DraftResumedPayload{
			Draft: d, ResumedAt: now,
		}, now)
	})
	if err != nil {
		return models.Draft{}, err
	}

	if changed {
		log.Info().Str("draft_id", d.ID.String()).Bool("paused", paused).Int("current_pick", d.CurrentPick).Msg("draft pause state changed")
	}
	return d, nil
}

// GetDraftState returns the draft row, its pick log and the team on the
// clock. Clients call it after (re)connecting.
func (a *App) GetDraftState(ctx context.Context, draftID uuid.UUID) (DraftState, error) {
	var state DraftState
	err := a.store.View(ctx, func(q repository.Querier) error {
		d, err := q.GetDraft(ctx, draftID)
		if err != nil {
			return err
		}
		picks, err := q.ListPicks(ctx, draftID)
		if err != nil {
			return err
		}
		state = DraftState{Draft: d, Picks: picks}
		if d.Status == models.DraftStatusInProgress {
			if team, err := order.Current(d); err == nil {
				state.OnClockTeamID = &team
			}
		}
		return nil
	})
	if err != nil {
		return DraftState{}, fmt.Errorf("failed to get draft state: %w", err)
	}
	return state, nil
}

// ListActiveDrafts returns every in-progress draft.
func (a *App) ListActiveDrafts(ctx context.Context) ([]models.Draft, error) {
	var drafts []models.Draft
	err := a.store.View(ctx, func(q repository.Querier) error {
		var err error
		drafts, err = q.ListActiveDrafts(ctx)
		return err
	})
	return drafts, err
}

func (a *App) requireCommissioner(ctx context.Context, q repository.Querier, leagueID, userID uuid.UUID) (models.League, error) {
	league, err := q.GetLeague(ctx, leagueID)
	if err != nil {
		return models.League{}, err
	}
	if userID == uuid.Nil || league.CommissionerID != userID {
		return models.League{}, draft.ErrNotCommissioner
	}
	return league, nil
}

func (a *App) validateCreateDraftRequest(req CreateDraftRequest) error {
	if req.LeagueID == uuid.Nil {
		return fmt.Errorf("%w: league_id is required", draft.ErrInvalidRequest)
	}
	switch req.DraftType {
	case models.DraftTypeSnake, models.DraftTypeLinear:
	default:
		return fmt.Errorf("%w: unsupported draft type %q", draft.ErrInvalidRequest, req.DraftType)
	}
	if len(req.DraftOrder) == 0 {
		return fmt.Errorf("%w: draft order is empty", draft.ErrInvalidRequest)
	}
	seen := make(map[uuid.UUID]bool, len(req.DraftOrder))
	for _, id := range req.DraftOrder {
		if seen[id] {
			return fmt.Errorf("%w: team %s appears twice in draft order", draft.ErrInvalidRequest, id)
		}
		seen[id] = true
	}
	if req.TotalRounds <= 0 {
		return fmt.Errorf("%w: total rounds must be positive", draft.ErrInvalidRequest)
	}
	if req.TimePerPickSec <= 0 {
		return fmt.Errorf("%w: time per pick must be positive", draft.ErrInvalidRequest)
	}
	return nil
}

func insertEvent(ctx context.Context, q repository.Querier, draftID uuid.UUID, t events.Type, payload any, at time.Time) error {
	ev, err := events.NewOutboxEvent(draftID, t, payload, at)
	if err != nil {
		return err
	}
	return q.InsertOutboxEvent(ctx, ev)
}
