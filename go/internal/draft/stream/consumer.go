package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Handler processes one draft event. A returned error naks the message for
// redelivery.
type Handler func(ctx context.Context, env events.Envelope) error

type ConsumerConfig struct {
	// Durable names a durable consumer; empty creates an ephemeral one.
	Durable       string
	Description   string
	DeliverPolicy jetstream.DeliverPolicy
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
}

// Consumer feeds messages from the draft stream to a Handler, one at a
// time, in stream order.
type Consumer struct {
	consumer jetstream.Consumer
	name     string
}

// NewConsumer creates or reuses the consumer described by cfg.
func NewConsumer(ctx context.Context, js jetstream.JetStream, streamName string, cfg ConsumerConfig) (*Consumer, error) {
	if cfg.MaxDeliver == 0 {
		cfg.MaxDeliver = 5
	}
	if cfg.AckWait == 0 {
		cfg.AckWait = 30 * time.Second
	}
	if cfg.MaxAckPending == 0 {
		cfg.MaxAckPending = 100
	}

	cc := jetstream.ConsumerConfig{
		Name:          cfg.Durable,
		Durable:       cfg.Durable,
		Description:   cfg.Description,
		FilterSubject: events.SubjectPrefix + ">",
		DeliverPolicy: cfg.DeliverPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    cfg.MaxDeliver,
		AckWait:       cfg.AckWait,
		MaxAckPending: cfg.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	}
	c, err := js.CreateOrUpdateConsumer(ctx, streamName, cc)
	if err != nil {
		return nil, fmt.Errorf("create consumer: %w", err)
	}

	name := cfg.Durable
	if name == "" {
		name = c.CachedInfo().Name
	}
	log.Info().Str("consumer", name).Str("stream", streamName).Msg("JetStream consumer ready")
	return &Consumer{consumer: c, name: name}, nil
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	msgCh := make(chan jetstream.Msg, 100)

	consumeCtx, err := c.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case msgCh <- msg:
		case <-ctx.Done():
			_ = msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("consumer", c.name).Msg("consumer shutting down")
			return nil
		case msg := <-msgCh:
			if err := c.process(ctx, msg, handle); err != nil {
				log.Error().Err(err).Str("subject", msg.Subject()).Str("consumer", c.name).Msg("failed to process message")
				if nakErr := msg.Nak(); nakErr != nil {
					log.Error().Err(nakErr).Msg("failed to NAK message")
				}
				continue
			}
			if ackErr := msg.Ack(); ackErr != nil {
				log.Error().Err(ackErr).Msg("failed to ACK message")
			}
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg jetstream.Msg, handle Handler) error {
	var env events.Envelope
	if err := json.Unmarshal(msg.Data(), &env); err != nil {
		// A malformed message will never decode; drop it.
		log.Error().Err(err).Str("subject", msg.Subject()).Msg("dropping undecodable event")
		return nil
	}

	log.Debug().
		Str("consumer", c.name).
		Str("event_id", env.EventID.String()).
		Str("event_type", string(env.EventType)).
		Str("draft_id", env.DraftID.String()).
		Int64("seq", env.Seq).
		Msg("processing event")

	if err := handle(ctx, env); err != nil {
		return fmt.Errorf("handle %s: %w", env.EventType, err)
	}
	return nil
}
