package pick

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/draft"
	"github.com/mcdev12/draftroom/go/internal/draft/autopick"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/draft/order"
	"github.com/mcdev12/draftroom/go/internal/draft/repository"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// App validates and commits picks. Each pick is recorded, the draft is
// advanced and the change events are queued in one transaction.
type App struct {
	store    repository.Store
	strategy autopick.Strategy
	clock    clockwork.Clock
	metrics  Metrics
}

func NewApp(store repository.Store, strategy autopick.Strategy, clock clockwork.Clock, metrics Metrics) *App {
	if strategy == nil {
		strategy = autopick.QueueStrategy{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &App{
		store:    store,
		strategy: strategy,
		clock:    clock,
		metrics:  metrics,
	}
}

// SubmitPick makes a draft pick. Checks run in order and the first failure
// is returned: draft active, turn, player availability, player validity.
func (a *App) SubmitPick(ctx context.Context, req SubmitPickRequest) (Result, error) {
	if err := a.validateSubmitPickRequest(req); err != nil {
		return Result{}, err
	}

	var res Result
	err := a.store.InTx(ctx, func(q repository.Querier) error {
		var err error
		res, err = a.commit(ctx, q, req)
		return err
	})
	if err != nil {
		a.metrics.PickRejected(RejectReason(err))
		return Result{}, err
	}

	a.metrics.PickCommitted(req.IsAutoPick)
	a.logCommitted(res, "pick committed")
	return res, nil
}

// AutoPick selects and commits a player for the team on the clock. A
// collision at commit time is retried once with a fresh selection.
func (a *App) AutoPick(ctx context.Context, req AutoPickRequest) (AutoPickResult, error) {
	if req.DraftID == uuid.Nil || req.TeamID == uuid.Nil {
		return AutoPickResult{}, fmt.Errorf("%w: draft and team are required", draft.ErrInvalidRequest)
	}
	if req.ActingUserID == uuid.Nil && !req.System {
		return AutoPickResult{}, fmt.Errorf("%w: acting user is required", draft.ErrInvalidRequest)
	}

	var (
		res AutoPickResult
		err error
	)
	for attempt := 1; attempt <= 2; attempt++ {
		res, err = a.autoPickOnce(ctx, req)
		res.Attempts = attempt
		if err == nil {
			break
		}
		if attempt == 2 || !retryable(err) {
			break
		}
		a.metrics.AutoPickRetried()
		log.Warn().
			Err(err).
			Str("draft_id", req.DraftID.String()).
			Str("team_id", req.TeamID.String()).
			Msg("auto-pick collided, retrying once")
	}
	if err != nil {
		a.metrics.PickRejected(RejectReason(err))
		return AutoPickResult{}, err
	}

	a.metrics.PickCommitted(true)
	a.metrics.AutoPickSelected(res.Source)
	a.logCommitted(res.Result, "auto-pick committed")
	return res, nil
}

func retryable(err error) bool {
	return errors.Is(err, draft.ErrPlayerAlreadyDrafted) || errors.Is(err, draft.ErrStaleState)
}

func (a *App) autoPickOnce(ctx context.Context, req AutoPickRequest) (AutoPickResult, error) {
	var res AutoPickResult
	err := a.store.InTx(ctx, func(q repository.Querier) error {
		d, err := q.GetDraft(ctx, req.DraftID)
		if err != nil {
			return err
		}
		if !d.IsActive() {
			return draft.ErrDraftNotActive
		}
		if req.ExpectedPick != 0 && req.ExpectedPick != d.CurrentPick {
			return fmt.Errorf("%w: turn %d already resolved", draft.ErrStaleState, req.ExpectedPick)
		}
		onClock, err := order.Current(d)
		if err != nil {
			return err
		}
		if onClock != req.TeamID {
			return draft.ErrNotYourTurn
		}

		if req.RequirePreference {
			team, err := q.GetTeam(ctx, req.TeamID)
			if err != nil {
				return err
			}
			if !team.AutoPickOn(d) {
				return draft.ErrAutoPickDisabled
			}
		}

		sel, err := a.strategy.Select(ctx, q, d, req.TeamID)
		if err != nil {
			return err
		}

		committed, err := a.commit(ctx, q, SubmitPickRequest{
			DraftID:      d.ID,
			TeamID:       req.TeamID,
			PlayerID:     sel.PlayerID,
			IsAutoPick:   true,
			ActingUserID: req.ActingUserID,
			System:       req.System,
			ExpectedPick: d.CurrentPick,
		})
		if err != nil {
			return err
		}
		res = AutoPickResult{Result: committed, Source: sel.Source}
		return nil
	})
	return res, err
}

// commit runs the checks and writes inside the caller's transaction.
func (a *App) commit(ctx context.Context, q repository.Querier, req SubmitPickRequest) (Result, error) {
	d, err := q.LockDraft(ctx, req.DraftID)
	if err != nil {
		return Result{}, err
	}
	league, err := q.GetLeague(ctx, d.LeagueID)
	if err != nil {
		return Result{}, err
	}
	isCommissioner := req.ActingUserID != uuid.Nil && req.ActingUserID == league.CommissionerID

	if d.Status != models.DraftStatusInProgress || (d.IsPaused && !isCommissioner) {
		return Result{}, draft.ErrDraftNotActive
	}
	if req.ExpectedPick != 0 && req.ExpectedPick != d.CurrentPick {
		return Result{}, fmt.Errorf("%w: turn %d already resolved", draft.ErrStaleState, req.ExpectedPick)
	}

	onClock, err := order.Current(d)
	if err != nil {
		return Result{}, err
	}
	if !isCommissioner {
		if req.TeamID != onClock {
			return Result{}, draft.ErrNotYourTurn
		}
		if !req.System {
			team, err := q.GetTeam(ctx, req.TeamID)
			if err != nil {
				return Result{}, err
			}
			if team.OwnerID != req.ActingUserID {
				return Result{}, fmt.Errorf("%w: user does not own team %s", draft.ErrNotYourTurn, req.TeamID)
			}
		}
	} else if req.TeamID != onClock {
		log.Info().
			Str("draft_id", d.ID.String()).
			Str("requested_team_id", req.TeamID.String()).
			Str("on_clock_team_id", onClock.String()).
			Msg("commissioner pick recorded for team on the clock")
	}

	drafted, err := q.IsPlayerDrafted(ctx, d.ID, req.PlayerID)
	if err != nil {
		return Result{}, err
	}
	if drafted {
		return Result{}, draft.ErrPlayerAlreadyDrafted
	}

	player, err := q.GetPlayer(ctx, req.PlayerID)
	if errors.Is(err, draft.ErrNotFound) {
		return Result{}, fmt.Errorf("%w: unknown player %s", draft.ErrInvalidPlayer, req.PlayerID)
	}
	if err != nil {
		return Result{}, err
	}
	if player.SportID != league.SportID {
		return Result{}, fmt.Errorf("%w: player %s is not in sport %s", draft.ErrInvalidPlayer, req.PlayerID, league.SportID)
	}

	now := a.clock.Now().UTC()
	pick := models.DraftPick{
		ID:          uuid.New(),
		DraftID:     d.ID,
		TeamID:      onClock,
		PlayerID:    req.PlayerID,
		PickNumber:  d.CurrentPick,
		RoundNumber: d.CurrentRound,
		IsAutoPick:  req.IsAutoPick,
		PickedAt:    now,
	}
	if err := q.InsertPick(ctx, pick); err != nil {
		return Result{}, err
	}

	next := d.CurrentPick + 1
	complete := next > d.TotalPicks()
	nextRound := order.RoundForPick(next, d.TeamCount())
	if complete {
		nextRound = d.TotalRounds
	}
	updated, err := q.CompareAndAdvance(ctx, d.ID, d.CurrentPick, next, nextRound)
	if err != nil {
		return Result{}, err
	}
	if complete {
		if updated, err = q.CompleteDraft(ctx, d.ID, now); err != nil {
			return Result{}, err
		}
	}

	if err := insertEvent(ctx, q, d.ID, events.TypePickMade, events.PickMadePayload{Draft: updated, Pick: pick}, now); err != nil {
		return Result{}, err
	}
	if complete {
		var elapsed time.Duration
		if d.StartedAt != nil {
			elapsed = now.Sub(*d.StartedAt)
		}
		payload := events.DraftCompletedPayload{
			Draft:       updated,
			CompletedAt: now,
			Duration:    elapsed.String(),
			TotalPicks:  d.TotalPicks(),
		}
		if err := insertEvent(ctx, q, d.ID, events.TypeDraftCompleted, payload, now); err != nil {
			return Result{}, err
		}
	}

	return Result{Pick: pick, Draft: updated}, nil
}

func insertEvent(ctx context.Context, q repository.Querier, draftID uuid.UUID, t events.Type, payload any, at time.Time) error {
	ev, err := events.NewOutboxEvent(draftID, t, payload, at)
	if err != nil {
		return err
	}
	return q.InsertOutboxEvent(ctx, ev)
}

// ListPicks returns the draft's pick log in pick order.
func (a *App) ListPicks(ctx context.Context, draftID uuid.UUID) ([]models.DraftPick, error) {
	var picks []models.DraftPick
	err := a.store.View(ctx, func(q repository.Querier) error {
		var err error
		picks, err = q.ListPicks(ctx, draftID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list picks: %w", err)
	}
	return picks, nil
}

func (a *App) validateSubmitPickRequest(req SubmitPickRequest) error {
	if req.DraftID == uuid.Nil {
		return fmt.Errorf("%w: draft_id is required", draft.ErrInvalidRequest)
	}
	if req.TeamID == uuid.Nil {
		return fmt.Errorf("%w: team_id is required", draft.ErrInvalidRequest)
	}
	if req.PlayerID.IsNil() {
		return fmt.Errorf("%w: player_id is required", draft.ErrInvalidRequest)
	}
	if req.ExpectedPick < 0 {
		return fmt.Errorf("%w: pick number must be positive", draft.ErrInvalidRequest)
	}
	if req.ActingUserID == uuid.Nil && !req.System {
		return fmt.Errorf("%w: acting user is required", draft.ErrInvalidRequest)
	}
	return nil
}

func (a *App) logCommitted(res Result, msg string) {
	log.Info().
		Str("draft_id", res.Pick.DraftID.String()).
		Str("team_id", res.Pick.TeamID.String()).
		Str("player_id", res.Pick.PlayerID.String()).
		Int("pick_number", res.Pick.PickNumber).
		Int("round", res.Pick.RoundNumber).
		Bool("auto_pick", res.Pick.IsAutoPick).
		Bool("draft_completed", res.Completed()).
		Msg(msg)
}
