package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mcdev12/draftroom/go/internal/draft"
	"github.com/mcdev12/draftroom/go/internal/models"
)

const (
	pgUniqueViolation       = "23505"
	pgForeignKeyViolation   = "23503"
	pgSerializationFailure  = "40001"
	constraintPickSlot      = "draft_picks_slot_key"
	constraintPickPlayer    = "draft_picks_player_key"
	constraintPickPlayerRef = "draft_picks_player_id_fkey"
	constraintQueuePlayer   = "draft_queue_player_id_fkey"
)

// Queries implements Querier on PostgreSQL.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx binds the queries to tx.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// mapError converts driver errors into the draft package's sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return draft.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		switch pgErr.ConstraintName {
		case constraintPickSlot:
			return fmt.Errorf("%w: pick slot already filled", draft.ErrStaleState)
		case constraintPickPlayer:
			return draft.ErrPlayerAlreadyDrafted
		}
	case pgForeignKeyViolation:
		switch pgErr.ConstraintName {
		case constraintPickPlayerRef, constraintQueuePlayer:
			return draft.ErrInvalidPlayer
		}
	case pgSerializationFailure:
		return fmt.Errorf("%w: %s", draft.ErrStaleState, pgErr.Message)
	}
	return err
}

// draftRow mirrors draft_settings. draft_order is read as text[].
type draftRow struct {
	ID              uuid.UUID  `db:"id"`
	LeagueID        uuid.UUID  `db:"league_id"`
	DraftType       string     `db:"draft_type"`
	Status          string     `db:"status"`
	IsPaused        bool       `db:"is_paused"`
	DraftOrder      []string   `db:"draft_order"`
	TotalRounds     int        `db:"total_rounds"`
	CurrentPick     int        `db:"current_pick"`
	CurrentRound    int        `db:"current_round"`
	TimePerPickSec  int        `db:"time_per_pick_sec"`
	AutoPickEnabled bool       `db:"auto_pick_enabled"`
	Version         int64      `db:"version"`
	StartedAt       *time.Time `db:"started_at"`
	CompletedAt     *time.Time `db:"completed_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

func (r draftRow) toModel() (models.Draft, error) {
	order := make([]uuid.UUID, 0, len(r.DraftOrder))
	for _, s := range r.DraftOrder {
		id, err := uuid.Parse(s)
		if err != nil {
			return models.Draft{}, fmt.Errorf("failed to parse draft order entry %q: %w", s, err)
		}
		order = append(order, id)
	}
	return models.Draft{
		ID:              r.ID,
		LeagueID:        r.LeagueID,
		DraftType:       models.DraftType(r.DraftType),
		Status:          models.DraftStatus(r.Status),
		IsPaused:        r.IsPaused,
		DraftOrder:      order,
		TotalRounds:     r.TotalRounds,
		CurrentPick:     r.CurrentPick,
		CurrentRound:    r.CurrentRound,
		TimePerPickSec:  r.TimePerPickSec,
		AutoPickEnabled: r.AutoPickEnabled,
		Version:         r.Version,
		StartedAt:       r.StartedAt,
		CompletedAt:     r.CompletedAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}, nil
}

type pickRow struct {
	ID          uuid.UUID `db:"id"`
	DraftID     uuid.UUID `db:"draft_id"`
	TeamID      uuid.UUID `db:"team_id"`
	PlayerID    uuid.UUID `db:"player_id"`
	PickNumber  int       `db:"pick_number"`
	RoundNumber int       `db:"round_number"`
	IsAutoPick  bool      `db:"is_auto_pick"`
	PickedAt    time.Time `db:"picked_at"`
}

func (r pickRow) toModel() models.DraftPick {
	return models.DraftPick{
		ID:          r.ID,
		DraftID:     r.DraftID,
		TeamID:      r.TeamID,
		PlayerID:    models.PlayerID(r.PlayerID),
		PickNumber:  r.PickNumber,
		RoundNumber: r.RoundNumber,
		IsAutoPick:  r.IsAutoPick,
		PickedAt:    r.PickedAt,
	}
}

type playerRow struct {
	ID       uuid.UUID `db:"id"`
	SportID  string    `db:"sport_id"`
	FullName string    `db:"full_name"`
	Position string    `db:"position"`
	Rank     *int      `db:"rank"`
}

func (r playerRow) toModel() models.Player {
	return models.Player{
		ID:       models.PlayerID(r.ID),
		SportID:  r.SportID,
		FullName: r.FullName,
		Position: r.Position,
		Rank:     r.Rank,
	}
}

type queueRow struct {
	TeamID   uuid.UUID `db:"team_id"`
	PlayerID uuid.UUID `db:"player_id"`
	Priority int       `db:"priority"`
	Drafted  bool      `db:"drafted"`
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
