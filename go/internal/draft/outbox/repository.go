package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
)

// Store is what the relay needs from draft_outbox.
type Store interface {
	// FetchUnsent returns up to limit unsent events ordered by seq.
	FetchUnsent(ctx context.Context, limit int) ([]events.OutboxEvent, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	Pending(ctx context.Context) (Pending, error)
}

// Pending summarizes the unsent backlog.
type Pending struct {
	Count  int
	Oldest time.Time // zero when Count is 0
}

// Repository reads draft_outbox over database/sql with the lib/pq driver,
// the same connection family the LISTEN side uses.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FetchUnsent(ctx context.Context, limit int) ([]events.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, seq, draft_id, event_type, payload, created_at
		FROM draft_outbox
		WHERE sent_at IS NULL
		ORDER BY seq
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var out []events.OutboxEvent
	for rows.Next() {
		var (
			ev        events.OutboxEvent
			eventType string
			payload   []byte
		)
		if err := rows.Scan(&ev.ID, &ev.Seq, &ev.DraftID, &eventType, &payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		ev.EventType = events.Type(eventType)
		ev.Payload = payload
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read outbox events: %w", err)
	}
	return out, nil
}

func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE draft_outbox SET sent_at = $2 WHERE id = $1 AND sent_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event %s as sent: %w", id, err)
	}
	return nil
}

func (r *Repository) Pending(ctx context.Context) (Pending, error) {
	var (
		p      Pending
		oldest sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*), min(created_at) FROM draft_outbox WHERE sent_at IS NULL`,
	).Scan(&p.Count, &oldest)
	if err != nil {
		return Pending{}, fmt.Errorf("failed to count pending outbox events: %w", err)
	}
	if oldest.Valid {
		p.Oldest = oldest.Time
	}
	return p, nil
}

func (r *Repository) PingContext(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
