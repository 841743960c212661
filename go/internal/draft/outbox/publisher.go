package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Publisher delivers one outbox event to a bus.
type Publisher interface {
	Publish(ctx context.Context, event events.OutboxEvent) error
}

// JetStreamPublisher publishes envelopes on draft.events.<draft_id>. The
// event id is the JetStream message id, so a republished row inside the
// stream's duplicate window is dropped by the server.
type JetStreamPublisher struct {
	js jetstream.JetStream
}

func NewJetStreamPublisher(js jetstream.JetStream) *JetStreamPublisher {
	return &JetStreamPublisher{js: js}
}

func (p *JetStreamPublisher) Publish(ctx context.Context, event events.OutboxEvent) error {
	data, err := json.Marshal(event.Envelope())
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	msg := nats.NewMsg(events.Subject(event.DraftID))
	msg.Data = data
	msg.Header.Set("Event-Type", string(event.EventType))

	ack, err := p.js.PublishMsg(ctx, msg, jetstream.WithMsgID(event.ID.String()))
	if err != nil {
		return fmt.Errorf("failed to publish to JetStream: %w", err)
	}

	log.Debug().
		Str("subject", msg.Subject).
		Str("event_id", event.ID.String()).
		Uint64("stream_seq", ack.Sequence).
		Bool("duplicate", ack.Duplicate).
		Msg("published to JetStream")
	return nil
}

// RabbitMQPublisher mirrors draft events onto a durable topic exchange for
// consumers outside the draft room. Routing key: draft.<draft_id>.<type>.
type RabbitMQPublisher struct {
	mu       sync.Mutex
	ch       *amqp.Channel
	exchange string
}

func NewRabbitMQPublisher(conn *amqp.Connection, exchange string) (*RabbitMQPublisher, error) {
	if conn == nil {
		return nil, errors.New("rabbitmq connection is nil")
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare exchange %q: %w", exchange, err)
	}
	log.Info().Str("exchange", exchange).Msg("rabbitmq exchange declared")

	return &RabbitMQPublisher{ch: ch, exchange: exchange}, nil
}

func RoutingKey(event events.OutboxEvent) string {
	return fmt.Sprintf("draft.%s.%s", event.DraftID, event.EventType)
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, event events.OutboxEvent) error {
	body, err := json.Marshal(event.Envelope())
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx,
		p.exchange,
		RoutingKey(event),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID.String(),
			Type:         string(event.EventType),
			Timestamp:    event.CreatedAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to RabbitMQ: %w", err)
	}
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	return p.ch.Close()
}

// LogPublisher only logs. Useful when running the relay without a bus.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, event events.OutboxEvent) error {
	log.Info().
		Str("event_id", event.ID.String()).
		Str("event_type", string(event.EventType)).
		Str("draft_id", event.DraftID.String()).
		Int64("seq", event.Seq).
		Msg("publishing event")
	return nil
}

// Fanout publishes to every publisher in order. An event counts as
// published only once all of them accepted it; a retry republishes to all,
// so downstream consumers must tolerate duplicates.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event events.OutboxEvent) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
