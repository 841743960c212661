package orchestrator

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Run starts the worker pool and blocks until ctx is cancelled. Timers are
// stopped on return.
func (o *Orchestrator) Run(ctx context.Context) error {
	log.Info().
		Str("instance", o.instanceID).
		Int("workers", o.cfg.NumWorkers).
		Msg("orchestrator started")

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	var wg sync.WaitGroup
	for i := 0; i < o.cfg.NumWorkers; i++ {
		wg.Add(1)
		go o.worker(workerCtx, &wg, i)
	}

	<-ctx.Done()
	log.Info().Str("instance", o.instanceID).Msg("orchestrator shutdown requested")

	o.Close()
	cancelWorkers()
	wg.Wait()
	log.Info().Str("instance", o.instanceID).Msg("all workers shut down")
	return nil
}

// Close stops every turn timer.
func (o *Orchestrator) Close() {
	o.cancel()
	o.mu.Lock()
	defer o.mu.Unlock()
	for draftID, t := range o.turns {
		t.stop()
		log.Debug().Str("draft_id", draftID.String()).Msg("cancelled timer on shutdown")
	}
}

// enqueue hands an expiry to the pool unless the same turn is already in
// flight.
func (o *Orchestrator) enqueue(ctx context.Context, exp expiry) {
	o.inFlightMu.Lock()
	if o.inFlight[exp.Key] {
		o.inFlightMu.Unlock()
		log.Debug().Str("turn", exp.Key.String()).Str("instance", o.instanceID).Msg("skipping turn already in flight")
		return
	}
	o.inFlight[exp.Key] = true
	o.inFlightMu.Unlock()

	select {
	case o.workCh <- exp:
		log.Debug().Str("turn", exp.Key.String()).Str("instance", o.instanceID).Msg("queued expiry for worker")
	case <-ctx.Done():
		o.inFlightMu.Lock()
		delete(o.inFlight, exp.Key)
		o.inFlightMu.Unlock()
	}
}

// worker processes expired turns from the work channel
func (o *Orchestrator) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			log.Debug().
				Str("instance", o.instanceID).
				Int("worker_id", workerID).
				Msg("worker shutting down")
			return
		case exp := <-o.workCh:
			log.Info().
				Str("turn", exp.Key.String()).
				Str("instance", o.instanceID).
				Int("worker_id", workerID).
				Msg("worker handling expiry")

			err := o.handleExpiry(ctx, exp)
			if err != nil {
				log.Error().
					Err(err).
					Str("turn", exp.Key.String()).
					Str("instance", o.instanceID).
					Int("worker_id", workerID).
					Msg("expiry handling failed")
			}

			// Clean up in-flight tracking regardless of success/failure
			o.inFlightMu.Lock()
			delete(o.inFlight, exp.Key)
			o.inFlightMu.Unlock()

			if err != nil {
				o.retryLater(exp)
			}
		}
	}
}
