package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/draft/repository"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Reconcile re-reads every in-progress draft and re-arms missing timers.
// It recovers turns after a restart or a lost event and drops timers of
// drafts that are no longer running.
func (o *Orchestrator) Reconcile(ctx context.Context) error {
	var drafts []models.Draft
	err := o.store.View(ctx, func(q repository.Querier) error {
		var err error
		drafts, err = q.ListActiveDrafts(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to reconcile active drafts: %w", err)
	}

	active := make(map[uuid.UUID]bool, len(drafts))
	for _, d := range drafts {
		active[d.ID] = true
		if err := o.Sync(ctx, d); err != nil {
			log.Error().Err(err).Str("draft_id", d.ID.String()).Msg("failed to sync draft during reconcile")
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	for id, t := range o.turns {
		if active[id] {
			continue
		}
		t.stop()
		delete(o.turns, id)
	}
	o.metrics.ActiveTurns(o.activeLocked())
	return nil
}

// StartSweeper runs Reconcile every interval until the returned scheduler
// is shut down.
func (o *Orchestrator) StartSweeper(ctx context.Context, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithClock(o.clock))
	if err != nil {
		return nil, fmt.Errorf("failed to create sweeper: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := o.Reconcile(ctx); err != nil {
				log.Error().Err(err).Str("instance", o.instanceID).Msg("reconcile failed")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule reconcile: %w", err)
	}

	sched.Start()
	log.Info().Dur("interval", interval).Str("instance", o.instanceID).Msg("reconcile sweeper started")
	return sched, nil
}
