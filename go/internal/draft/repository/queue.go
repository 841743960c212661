package repository

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mcdev12/draftroom/go/internal/draft"
	"github.com/mcdev12/draftroom/go/internal/models"
)

func (q *Queries) ListQueue(ctx context.Context, teamID, draftID uuid.UUID) ([]models.QueueEntry, error) {
	var rows []queueRow
	err := pgxscan.Select(ctx, q.db, &rows, `
		SELECT q.team_id, q.player_id, q.priority, (dp.id IS NOT NULL) AS drafted
		FROM draft_queue q
		LEFT JOIN draft_picks dp ON dp.draft_id = $2 AND dp.player_id = q.player_id
		WHERE q.team_id = $1
		ORDER BY q.priority, q.created_at`,
		teamID, draftID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue of team %s: %w", teamID, mapError(err))
	}

	entries := make([]models.QueueEntry, len(rows))
	for i, r := range rows {
		entries[i] = models.QueueEntry{
			TeamID:   r.TeamID,
			PlayerID: models.PlayerID(r.PlayerID),
			Priority: r.Priority,
			Drafted:  r.Drafted,
		}
	}
	return entries, nil
}

const upsertQueueEntry = `
	INSERT INTO draft_queue (team_id, player_id, priority)
	VALUES ($1, $2, $3)
	ON CONFLICT (team_id, player_id) DO UPDATE SET priority = EXCLUDED.priority`

func (q *Queries) UpsertQueueEntry(ctx context.Context, entry models.QueueEntry) error {
	if _, err := q.db.Exec(ctx, upsertQueueEntry, entry.TeamID, entry.PlayerID.UUID(), entry.Priority); err != nil {
		return fmt.Errorf("failed to upsert queue entry: %w", mapError(err))
	}
	return nil
}

func (q *Queries) DeleteQueueEntry(ctx context.Context, teamID uuid.UUID, playerID models.PlayerID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM draft_queue WHERE team_id = $1 AND player_id = $2`, teamID, playerID.UUID())
	if err != nil {
		return fmt.Errorf("failed to delete queue entry: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("queue entry for player %s: %w", playerID, draft.ErrNotFound)
	}
	return nil
}

func (q *Queries) ReplaceQueue(ctx context.Context, teamID uuid.UUID, entries []models.QueueEntry) error {
	if _, err := q.db.Exec(ctx, `DELETE FROM draft_queue WHERE team_id = $1`, teamID); err != nil {
		return fmt.Errorf("failed to clear queue of team %s: %w", teamID, mapError(err))
	}
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(upsertQueueEntry, teamID, e.PlayerID.UUID(), e.Priority)
	}
	results := q.db.SendBatch(ctx, batch)
	defer results.Close()
	for range entries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to write queue of team %s: %w", teamID, mapError(err))
		}
	}
	return nil
}
