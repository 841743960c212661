package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/draft"
	"github.com/mcdev12/draftroom/go/internal/models"
)

const draftColumns = `id, league_id, draft_type, status, is_paused, draft_order::text[] AS draft_order,
	total_rounds, current_pick, current_round, time_per_pick_sec, auto_pick_enabled, version,
	started_at, completed_at, created_at, updated_at`

func (q *Queries) getDraftRow(ctx context.Context, sql string, args ...any) (models.Draft, error) {
	var row draftRow
	if err := pgxscan.Get(ctx, q.db, &row, sql, args...); err != nil {
		return models.Draft{}, mapError(err)
	}
	return row.toModel()
}

func (q *Queries) CreateDraft(ctx context.Context, arg CreateDraftParams) (models.Draft, error) {
	d, err := q.getDraftRow(ctx, `
		INSERT INTO draft_settings (id, league_id, draft_type, draft_order, total_rounds, time_per_pick_sec, auto_pick_enabled)
		VALUES ($1, $2, $3, $4::uuid[], $5, $6, $7)
		RETURNING `+draftColumns,
		arg.ID, arg.LeagueID, string(arg.DraftType), uuidStrings(arg.DraftOrder),
		arg.TotalRounds, arg.TimePerPickSec, arg.AutoPickEnabled,
	)
	if err != nil {
		return models.Draft{}, fmt.Errorf("failed to create draft: %w", err)
	}
	return d, nil
}

func (q *Queries) GetDraft(ctx context.Context, id uuid.UUID) (models.Draft, error) {
	d, err := q.getDraftRow(ctx, `SELECT `+draftColumns+` FROM draft_settings WHERE id = $1`, id)
	if err != nil {
		return models.Draft{}, fmt.Errorf("failed to get draft %s: %w", id, err)
	}
	return d, nil
}

func (q *Queries) LockDraft(ctx context.Context, id uuid.UUID) (models.Draft, error) {
	d, err := q.getDraftRow(ctx, `SELECT `+draftColumns+` FROM draft_settings WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return models.Draft{}, fmt.Errorf("failed to lock draft %s: %w", id, err)
	}
	return d, nil
}

func (q *Queries) ListActiveDrafts(ctx context.Context) ([]models.Draft, error) {
	var rows []draftRow
	err := pgxscan.Select(ctx, q.db, &rows,
		`SELECT `+draftColumns+` FROM draft_settings WHERE status = $1 ORDER BY started_at`,
		string(models.DraftStatusInProgress),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active drafts: %w", mapError(err))
	}

	drafts := make([]models.Draft, 0, len(rows))
	for _, r := range rows {
		d, err := r.toModel()
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

func (q *Queries) CompareAndAdvance(ctx context.Context, id uuid.UUID, expectedPick, nextPick, nextRound int) (models.Draft, error) {
	d, err := q.getDraftRow(ctx, `
		UPDATE draft_settings
		SET current_pick = $3, current_round = $4, version = version + 1, updated_at = now()
		WHERE id = $1 AND current_pick = $2 AND status = $5
		RETURNING `+draftColumns,
		id, expectedPick, nextPick, nextRound, string(models.DraftStatusInProgress),
	)
	if errors.Is(err, draft.ErrNotFound) {
		return models.Draft{}, fmt.Errorf("%w: draft %s is no longer at pick %d", draft.ErrStaleState, id, expectedPick)
	}
	if err != nil {
		return models.Draft{}, fmt.Errorf("failed to advance draft %s: %w", id, err)
	}
	return d, nil
}

func (q *Queries) SetPauseState(ctx context.Context, id uuid.UUID, paused bool) (models.Draft, error) {
	d, err := q.getDraftRow(ctx, `
		UPDATE draft_settings
		SET is_paused = $2, version = version + 1, updated_at = now()
		WHERE id = $1
		RETURNING `+draftColumns,
		id, paused,
	)
	if err != nil {
		return models.Draft{}, fmt.Errorf("failed to set pause state of draft %s: %w", id, err)
	}
	return d, nil
}

func (q *Queries) StartDraft(ctx context.Context, id uuid.UUID, startedAt time.Time) (models.Draft, error) {
	d, err := q.getDraftRow(ctx, `
		UPDATE draft_settings
		SET status = $3, current_pick = 1, current_round = 1, is_paused = FALSE, started_at = $2,
		    version = version + 1, updated_at = now()
		WHERE id = $1 AND status = $4
		RETURNING `+draftColumns,
		id, startedAt, string(models.DraftStatusInProgress), string(models.DraftStatusScheduled),
	)
	if errors.Is(err, draft.ErrNotFound) {
		return models.Draft{}, fmt.Errorf("%w: draft %s is not scheduled", draft.ErrStaleState, id)
	}
	if err != nil {
		return models.Draft{}, fmt.Errorf("failed to start draft %s: %w", id, err)
	}
	return d, nil
}

func (q *Queries) CompleteDraft(ctx context.Context, id uuid.UUID, completedAt time.Time) (models.Draft, error) {
	d, err := q.getDraftRow(ctx, `
		UPDATE draft_settings
		SET status = $3, is_paused = FALSE, completed_at = $2, version = version + 1, updated_at = now()
		WHERE id = $1
		RETURNING `+draftColumns,
		id, completedAt, string(models.DraftStatusCompleted),
	)
	if err != nil {
		return models.Draft{}, fmt.Errorf("failed to complete draft %s: %w", id, err)
	}
	return d, nil
}
