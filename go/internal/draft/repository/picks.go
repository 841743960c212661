package repository

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/models"
)

func (q *Queries) InsertPick(ctx context.Context, pick models.DraftPick) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO draft_picks (id, draft_id, team_id, player_id, pick_number, round_number, is_auto_pick, picked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		pick.ID, pick.DraftID, pick.TeamID, pick.PlayerID.UUID(),
		pick.PickNumber, pick.RoundNumber, pick.IsAutoPick, pick.PickedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert pick %d: %w", pick.PickNumber, mapError(err))
	}
	return nil
}

func (q *Queries) ListPicks(ctx context.Context, draftID uuid.UUID) ([]models.DraftPick, error) {
	var rows []pickRow
	err := pgxscan.Select(ctx, q.db, &rows, `
		SELECT id, draft_id, team_id, player_id, pick_number, round_number, is_auto_pick, picked_at
		FROM draft_picks
		WHERE draft_id = $1
		ORDER BY pick_number`,
		draftID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks: %w", mapError(err))
	}

	picks := make([]models.DraftPick, len(rows))
	for i, r := range rows {
		picks[i] = r.toModel()
	}
	return picks, nil
}

func (q *Queries) IsPlayerDrafted(ctx context.Context, draftID uuid.UUID, playerID models.PlayerID) (bool, error) {
	var drafted bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM draft_picks WHERE draft_id = $1 AND player_id = $2)`,
		draftID, playerID.UUID(),
	).Scan(&drafted)
	if err != nil {
		return false, fmt.Errorf("failed to check drafted player: %w", mapError(err))
	}
	return drafted, nil
}
