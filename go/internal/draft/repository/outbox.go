package repository

import (
	"context"
	"fmt"

	"github.com/mcdev12/draftroom/go/internal/draft/events"
)

func (q *Queries) InsertOutboxEvent(ctx context.Context, event events.OutboxEvent) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO draft_outbox (id, draft_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.DraftID, string(event.EventType), string(event.Payload), event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert %s outbox event: %w", event.EventType, mapError(err))
	}
	return nil
}
