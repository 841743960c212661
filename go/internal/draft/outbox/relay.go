package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/rs/zerolog/log"
)

type Config struct {
	NotifyChannel    string        `envconfig:"OUTBOX_NOTIFY_CHANNEL" default:"draft_outbox_events"`
	FallbackInterval time.Duration `envconfig:"OUTBOX_FALLBACK_INTERVAL" default:"30s"`
	PingInterval     time.Duration `envconfig:"OUTBOX_PING_INTERVAL" default:"90s"`
	MaxRetries       int           `envconfig:"OUTBOX_MAX_RETRIES" default:"5"`
	RetryDelay       time.Duration `envconfig:"OUTBOX_RETRY_DELAY" default:"200ms"`
	BatchSize        int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
}

func DefaultConfig() Config {
	return Config{
		NotifyChannel:    "draft_outbox_events",
		FallbackInterval: 30 * time.Second,
		PingInterval:     90 * time.Second,
		MaxRetries:       5,
		RetryDelay:       200 * time.Millisecond,
		BatchSize:        100,
	}
}

// Relay moves committed outbox rows onto the bus in seq order. A row is
// marked sent only after the publisher accepted it, so delivery is
// at-least-once. When one event of a draft cannot be published, the rest of
// that draft's events wait for the next drain so subscribers never see a
// gap.
type Relay struct {
	store     Store
	publisher Publisher
	metrics   MetricsCollector
	clock     clockwork.Clock
	cfg       Config

	mu        sync.Mutex
	processed atomic.Uint64
	lastSent  atomic.Int64
}

func NewRelay(store Store, publisher Publisher, metrics MetricsCollector, clock clockwork.Clock, cfg Config) *Relay {
	if metrics == nil {
		metrics = NoOpMetricsCollector{}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	return &Relay{
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		clock:     clock,
		cfg:       cfg,
	}
}

// Drain publishes unsent events until the backlog is empty or an event
// fails. It returns how many events were published.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := r.clock.Now()
	total := 0
	defer func() {
		r.metrics.RecordBatchProcessed(total, r.clock.Since(start))
		r.recordLag(ctx)
	}()

	for {
		batch, err := r.store.FetchUnsent(ctx, r.cfg.BatchSize)
		if err != nil {
			return total, err
		}
		if len(batch) == 0 {
			return total, nil
		}

		sent, blocked, err := r.publishBatch(ctx, batch)
		total += sent
		if err != nil {
			return total, err
		}
		if blocked || len(batch) < r.cfg.BatchSize {
			return total, nil
		}
	}
}

func (r *Relay) publishBatch(ctx context.Context, batch []events.OutboxEvent) (int, bool, error) {
	sent := 0
	held := make(map[uuid.UUID]bool)
	for _, ev := range batch {
		if held[ev.DraftID] {
			continue
		}

		if err := r.publishWithRetry(ctx, ev); err != nil {
			if ctx.Err() != nil {
				return sent, true, ctx.Err()
			}
			held[ev.DraftID] = true
			log.Error().Err(err).
				Str("event_id", ev.ID.String()).
				Str("draft_id", ev.DraftID.String()).
				Int64("seq", ev.Seq).
				Msg("failed to publish outbox event, holding draft back")
			continue
		}

		if err := r.store.MarkSent(ctx, ev.ID, r.clock.Now()); err != nil {
			// Published but not marked; the next drain republishes it and
			// the bus drops the duplicate by message id.
			return sent, true, err
		}
		sent++
		r.processed.Add(1)
		r.lastSent.Store(r.clock.Now().UnixNano())

		log.Debug().
			Str("event_id", ev.ID.String()).
			Str("event_type", string(ev.EventType)).
			Int64("seq", ev.Seq).
			Msg("published outbox event")
	}
	return sent, len(held) > 0, nil
}

// publishWithRetry attempts to publish an outbox event with a linearly
// growing delay between attempts.
func (r *Relay) publishWithRetry(ctx context.Context, ev events.OutboxEvent) error {
	var lastErr error

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.clock.After(r.cfg.RetryDelay * time.Duration(attempt)):
			}
		}

		start := r.clock.Now()
		err := r.publisher.Publish(ctx, ev)
		r.metrics.RecordPublishAttempt(ev.EventType, attempt+1, err == nil)
		r.metrics.RecordEventProcessed(ev.EventType, err == nil, r.clock.Since(start))
		if err == nil {
			if attempt > 0 {
				log.Info().
					Int("attempt", attempt+1).
					Str("event_id", ev.ID.String()).
					Msg("publish succeeded after retry")
			}
			return nil
		}

		lastErr = err
		if errors.Is(err, context.Canceled) {
			return err
		}
		log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Str("event_id", ev.ID.String()).
			Msg("failed to publish, retrying")
	}

	return fmt.Errorf("publish failed after %d attempts: %w", r.cfg.MaxRetries+1, lastErr)
}

func (r *Relay) recordLag(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	p, err := r.store.Pending(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read outbox backlog")
		return
	}
	var age time.Duration
	if p.Count > 0 {
		age = r.clock.Since(p.Oldest)
	}
	r.metrics.RecordOutboxLag(p.Count, age)
}

// Stats reports how many events this relay published and when the last one
// went out.
func (r *Relay) Stats() (uint64, time.Time) {
	var last time.Time
	if ns := r.lastSent.Load(); ns != 0 {
		last = time.Unix(0, ns)
	}
	return r.processed.Load(), last
}
