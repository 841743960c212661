package outbox

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// Listener drives a Relay from Postgres LISTEN/NOTIFY. The insert trigger
// on draft_outbox notifies with the draft id; any notification triggers a
// drain. A fallback poll covers notifications lost while the connection
// was down.
type Listener struct {
	relay    *Relay
	listener *pq.Listener
	cfg      Config
	active   atomic.Bool
}

func NewListener(dsn string, relay *Relay, cfg Config) (*Listener, error) {
	l := pq.NewListener(
		dsn,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
			if ev == pq.ListenerEventReconnected {
				log.Info().Msg("listener reconnected")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for notifications")

	return &Listener{
		relay:    relay,
		listener: l,
		cfg:      cfg,
	}, nil
}

func (l *Listener) Start(ctx context.Context) error {
	log.Info().
		Str("channel", l.cfg.NotifyChannel).
		Dur("ping_interval", l.cfg.PingInterval).
		Dur("fallback_interval", l.cfg.FallbackInterval).
		Msg("listener started")

	l.active.Store(true)
	defer l.active.Store(false)

	pingTicker := time.NewTicker(l.cfg.PingInterval)
	fallbackTicker := time.NewTicker(l.cfg.FallbackInterval)
	defer pingTicker.Stop()
	defer fallbackTicker.Stop()

	// Rows committed while no relay was running.
	l.drain(ctx, "startup")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("listener shutting down")
			return l.Stop()
		case note := <-l.listener.Notify:
			if note == nil {
				// nil notification means the connection was re-established
				// and notifications may have been missed
				l.drain(ctx, "reconnect")
				continue
			}
			log.Debug().Str("draft_id", note.Extra).Msg("outbox notification")
			l.drain(ctx, "notify")
		case <-fallbackTicker.C:
			l.drain(ctx, "fallback")
		case <-pingTicker.C:
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

func (l *Listener) drain(ctx context.Context, trigger string) {
	n, err := l.relay.Drain(ctx)
	if err != nil && ctx.Err() == nil {
		log.Error().Err(err).Str("trigger", trigger).Msg("failed to drain outbox")
		return
	}
	if n > 0 {
		log.Info().Int("published", n).Str("trigger", trigger).Msg("drained outbox")
	}
}

// Active reports whether Start is running.
func (l *Listener) Active() bool {
	return l.active.Load()
}

func (l *Listener) Stop() error {
	return l.listener.Close()
}
