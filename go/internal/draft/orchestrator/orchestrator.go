// Package orchestrator runs the turn timers of live drafts. It follows the
// draft event stream, counts down the team on the clock and escalates an
// expired turn to an auto-pick or a TurnExpired report.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/draft"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/draft/order"
	"github.com/mcdev12/draftroom/go/internal/draft/pick"
	"github.com/mcdev12/draftroom/go/internal/draft/repository"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// TickInterval is how often a running turn checks its deadline.
const TickInterval = time.Second

// AutoPicker defines what the orchestrator needs from the pick engine
type AutoPicker interface {
	AutoPick(ctx context.Context, req pick.AutoPickRequest) (pick.AutoPickResult, error)
}

type Config struct {
	NumWorkers int
	// ClaimTTL bounds how long a claimed expiry or PickStarted stays
	// reserved for this instance.
	ClaimTTL time.Duration
	// RetryBackoff is how long an expired turn waits before escalating
	// again after a store or transport failure.
	RetryBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.NumWorkers <= 0 {
		c.NumWorkers = 10
	}
	if c.ClaimTTL <= 0 {
		c.ClaimTTL = 5 * time.Minute
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 5 * time.Second
	}
	return c
}

type Orchestrator struct {
	store   repository.Store
	picker  AutoPicker
	clock   clockwork.Clock
	claimer TurnClaimer
	metrics Metrics
	cfg     Config

	instanceID string

	// ctx outlives any single event; turn timers run under it.
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	turns map[uuid.UUID]*Turn

	workCh     chan expiry
	inFlight   map[TurnKey]bool
	inFlightMu sync.Mutex
	wg         sync.WaitGroup
}

// NewOrchestrator creates an orchestrator. A nil claimer claims locally, a
// nil metrics records nothing.
func NewOrchestrator(store repository.Store, picker AutoPicker, clock clockwork.Clock, claimer TurnClaimer, metrics Metrics, cfg Config) *Orchestrator {
	cfg = cfg.withDefaults()
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if claimer == nil {
		claimer = NewLocalClaimer(clock)
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		store:      store,
		picker:     picker,
		clock:      clock,
		claimer:    claimer,
		metrics:    metrics,
		cfg:        cfg,
		instanceID: uuid.New().String()[:8],
		ctx:        ctx,
		cancel:     cancel,
		turns:      make(map[uuid.UUID]*Turn),
		workCh:     make(chan expiry, cfg.NumWorkers*2),
		inFlight:   make(map[TurnKey]bool),
	}
}

// HandleEvent feeds one draft event into the timers.
func (o *Orchestrator) HandleEvent(ctx context.Context, env events.Envelope) error {
	switch env.EventType {
	case events.TypePickStarted, events.TypeTurnExpired:
		// Written by the orchestrator itself.
		return nil
	}

	snap, err := env.Snapshot()
	if err != nil {
		return err
	}
	if snap.Draft == nil {
		return fmt.Errorf("%s event %s carries no draft snapshot", env.EventType, env.EventID)
	}

	log.Debug().
		Str("instance", o.instanceID).
		Str("event_type", string(env.EventType)).
		Str("draft_id", env.DraftID.String()).
		Int64("version", snap.Draft.Version).
		Msg("handling draft event")

	return o.Sync(ctx, *snap.Draft)
}

// Sync aligns the draft's timer with a draft snapshot. Snapshots older than
// the one the timer was armed from are ignored.
func (o *Orchestrator) Sync(ctx context.Context, d models.Draft) error {
	armed := o.apply(d)
	if armed == nil {
		return nil
	}
	return o.emitPickStarted(ctx, *armed)
}

// apply updates the in-memory turn and returns a copy of it when a
// countdown was (re)armed.
func (o *Orchestrator) apply(d models.Draft) *Turn {
	o.mu.Lock()
	defer o.mu.Unlock()

	cur := o.turns[d.ID]
	if cur != nil && d.Version < cur.Version {
		return nil
	}

	if d.Status != models.DraftStatusInProgress || d.CurrentPick > d.TotalPicks() {
		if cur != nil && cur.State != TurnSuperseded {
			cur.supersede()
			log.Info().Str("draft_id", d.ID.String()).Str("status", string(d.Status)).Msg("draft no longer running, timer dropped")
		}
		// Keep a tombstone so late snapshots of the finished draft are ignored.
		o.turns[d.ID] = &Turn{Key: TurnKey{DraftID: d.ID}, Version: d.Version, State: TurnSuperseded}
		o.metrics.ActiveTurns(o.activeLocked())
		return nil
	}

	key := TurnKey{DraftID: d.ID, PickNumber: d.CurrentPick}
	if cur != nil && cur.Key == key {
		switch {
		case d.IsPaused:
			if cur.State != TurnPaused {
				cur.pause(d.Version)
				log.Info().Str("draft_id", d.ID.String()).Int("pick_number", key.PickNumber).Msg("turn paused")
			}
			cur.Version = d.Version
			return nil
		case cur.State == TurnPaused:
			// Resuming restarts the countdown at full time.
			o.start(cur, d)
			log.Info().Str("draft_id", d.ID.String()).Int("pick_number", key.PickNumber).Time("deadline", cur.Deadline).Msg("turn resumed")
			t := *cur
			return &t
		default:
			cur.Version = d.Version
			return nil
		}
	}

	teamID, err := order.Current(d)
	if err != nil {
		log.Error().Err(err).Str("draft_id", d.ID.String()).Msg("cannot resolve team on the clock")
		return nil
	}
	if cur != nil && cur.State != TurnSuperseded {
		cur.supersede()
		log.Debug().Str("draft_id", d.ID.String()).Int("pick_number", cur.Key.PickNumber).Msg("turn superseded")
	}

	t := &Turn{
		Key:      key,
		TeamID:   teamID,
		Round:    d.CurrentRound,
		Version:  d.Version,
		Duration: d.TimePerPick(),
		State:    TurnPaused,
	}
	o.turns[d.ID] = t
	o.metrics.ActiveTurns(o.activeLocked())
	if d.IsPaused {
		return nil
	}
	o.start(t, d)

	log.Info().
		Str("instance", o.instanceID).
		Str("draft_id", d.ID.String()).
		Int("pick_number", key.PickNumber).
		Str("team_id", teamID.String()).
		Time("deadline", t.Deadline).
		Msg("turn started")
	cp := *t
	return &cp
}

// start arms t from the snapshot and launches its ticker. Caller holds o.mu.
func (o *Orchestrator) start(t *Turn, d models.Draft) {
	t.stop()
	t.arm(d.UpdatedAt, d.Version)
	ctx, cancel := context.WithCancel(o.ctx)
	t.cancel = cancel
	o.metrics.TurnArmed()
	go o.tick(ctx, t)
}

func (o *Orchestrator) tick(ctx context.Context, t *Turn) {
	ticker := o.clock.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			o.mu.Lock()
			now := o.clock.Now()
			if ctx.Err() != nil {
				o.mu.Unlock()
				return
			}
			if !t.expire(now) {
				o.mu.Unlock()
				continue
			}
			exp := expiry{Key: t.Key, TeamID: t.TeamID, Version: t.Version, Attempt: t.Attempt, ExpiredAt: now}
			o.mu.Unlock()

			log.Info().Str("draft_id", t.Key.DraftID.String()).Int("pick_number", t.Key.PickNumber).Msg("turn expired")
			o.enqueue(ctx, exp)
			return
		}
	}
}

func (o *Orchestrator) activeLocked() int {
	n := 0
	for _, t := range o.turns {
		if t.State != TurnSuperseded {
			n++
		}
	}
	return n
}

// Turn returns a copy of the draft's current turn.
func (o *Orchestrator) Turn(draftID uuid.UUID) (Turn, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.turns[draftID]
	if !ok || t.State == TurnSuperseded {
		return Turn{}, false
	}
	cp := *t
	cp.cancel = nil
	return cp, true
}

// emitPickStarted writes the PickStarted event when the turn is still the
// draft's current one.
func (o *Orchestrator) emitPickStarted(ctx context.Context, t Turn) error {
	key := fmt.Sprintf("started:%s:%d:%d", t.Key.DraftID, t.Key.PickNumber, t.Version)
	ok, err := o.claimer.Claim(ctx, key, o.cfg.ClaimTTL)
	if err != nil {
		return fmt.Errorf("failed to claim pick start: %w", err)
	}
	if !ok {
		return nil
	}

	return o.store.InTx(ctx, func(q repository.Querier) error {
		d, err := q.LockDraft(ctx, t.Key.DraftID)
		if err != nil {
			return err
		}
		if d.CurrentPick != t.Key.PickNumber || d.Version != t.Version || !d.IsActive() {
			return nil
		}
		ev, err := events.NewOutboxEvent(d.ID, events.TypePickStarted, events.PickStartedPayload{
			Draft:          d,
			TeamID:         t.TeamID,
			PickNumber:     t.Key.PickNumber,
			Round:          t.Round,
			StartedAt:      t.StartedAt,
			TimeoutAt:      t.Deadline,
			TimePerPickSec: d.TimePerPickSec,
		}, o.clock.Now().UTC())
		if err != nil {
			return err
		}
		return q.InsertOutboxEvent(ctx, ev)
	})
}

// handleExpiry escalates an expired turn. A returned error leaves the
// escalation undone and the worker schedules a retry.
func (o *Orchestrator) handleExpiry(ctx context.Context, exp expiry) error {
	ok, err := o.claimer.Claim(ctx, exp.claimKey(), o.cfg.ClaimTTL)
	if err != nil {
		return fmt.Errorf("failed to claim expiry: %w", err)
	}
	if !ok {
		log.Debug().Str("draft_id", exp.Key.DraftID.String()).Int("pick_number", exp.Key.PickNumber).Msg("expiry claimed by another instance")
		return nil
	}

	res, err := o.picker.AutoPick(ctx, pick.AutoPickRequest{
		DraftID:           exp.Key.DraftID,
		TeamID:            exp.TeamID,
		ExpectedPick:      exp.Key.PickNumber,
		System:            true,
		RequirePreference: true,
	})
	switch {
	case err == nil:
		o.metrics.TurnExpired(OutcomeAutoPicked)
		log.Info().
			Str("draft_id", exp.Key.DraftID.String()).
			Int("pick_number", exp.Key.PickNumber).
			Str("player_id", res.Pick.PlayerID.String()).
			Str("source", string(res.Source)).
			Msg("expired turn auto-picked")
		return nil
	case errors.Is(err, draft.ErrAutoPickDisabled):
		o.metrics.TurnExpired(OutcomeReported)
		return o.reportExpired(ctx, exp)
	case errors.Is(err, draft.ErrNoAvailablePlayer):
		o.metrics.TurnExpired(OutcomeReported)
		log.Error().Err(err).Str("draft_id", exp.Key.DraftID.String()).Msg("auto-pick found no player")
		return o.reportExpired(ctx, exp)
	case errors.Is(err, draft.ErrStaleState),
		errors.Is(err, draft.ErrDraftNotActive),
		errors.Is(err, draft.ErrNotYourTurn):
		o.metrics.TurnExpired(OutcomeSuperseded)
		log.Info().Err(err).Str("draft_id", exp.Key.DraftID.String()).Int("pick_number", exp.Key.PickNumber).Msg("expired turn already moved on")
		return nil
	}
	o.metrics.TurnExpired(OutcomeFailed)
	return fmt.Errorf("failed to auto-pick expired turn %s: %w", exp.Key, err)
}

// retryLater re-arms the expired turn with a short deadline. The next
// attempt claims under its own key, so a claim left behind by the failed
// attempt does not block it.
func (o *Orchestrator) retryLater(exp expiry) {
	o.mu.Lock()
	defer o.mu.Unlock()

	t := o.turns[exp.Key.DraftID]
	if t == nil || t.Key != exp.Key || t.Attempt != exp.Attempt || o.ctx.Err() != nil {
		return
	}
	if !t.retry(o.clock.Now().Add(o.cfg.RetryBackoff)) {
		return
	}
	ctx, cancel := context.WithCancel(o.ctx)
	t.cancel = cancel
	go o.tick(ctx, t)

	log.Warn().
		Str("draft_id", exp.Key.DraftID.String()).
		Int("pick_number", exp.Key.PickNumber).
		Int("attempt", t.Attempt).
		Time("deadline", t.Deadline).
		Msg("expired turn scheduled for retry")
}

// reportExpired records a TurnExpired event and leaves the turn open.
func (o *Orchestrator) reportExpired(ctx context.Context, exp expiry) error {
	return o.store.InTx(ctx, func(q repository.Querier) error {
		d, err := q.LockDraft(ctx, exp.Key.DraftID)
		if err != nil {
			return err
		}
		if d.CurrentPick != exp.Key.PickNumber || !d.IsActive() {
			return nil
		}
		ev, err := events.NewOutboxEvent(d.ID, events.TypeTurnExpired, events.TurnExpiredPayload{
			Draft:      d,
			TeamID:     exp.TeamID,
			PickNumber: exp.Key.PickNumber,
			ExpiredAt:  exp.ExpiredAt.UTC(),
		}, o.clock.Now().UTC())
		if err != nil {
			return err
		}
		log.Info().Str("draft_id", d.ID.String()).Int("pick_number", exp.Key.PickNumber).Str("team_id", exp.TeamID.String()).Msg("turn expired without auto-pick")
		return q.InsertOutboxEvent(ctx, ev)
	})
}
