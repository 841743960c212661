// Package repository is the draft state store: the versioned draft row, the
// append-only pick log, team queues and preferences, and the outbox.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/models"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Querier lists every store operation. Implementations return the
// draft package's sentinel errors for conflicts and missing rows.
type Querier interface {
	CreateDraft(ctx context.Context, arg CreateDraftParams) (models.Draft, error)
	GetDraft(ctx context.Context, id uuid.UUID) (models.Draft, error)
	// LockDraft reads the draft and holds its row until the transaction
	// ends. Writers that act on what they read (picks, pause, timer
	// events) take it so their checks cannot go stale before commit.
	LockDraft(ctx context.Context, id uuid.UUID) (models.Draft, error)
	ListActiveDrafts(ctx context.Context) ([]models.Draft, error)
	// CompareAndAdvance moves current_pick from expectedPick to nextPick.
	// It fails with draft.ErrStaleState when current_pick has moved.
	CompareAndAdvance(ctx context.Context, id uuid.UUID, expectedPick, nextPick, nextRound int) (models.Draft, error)
	SetPauseState(ctx context.Context, id uuid.UUID, paused bool) (models.Draft, error)
	StartDraft(ctx context.Context, id uuid.UUID, startedAt time.Time) (models.Draft, error)
	CompleteDraft(ctx context.Context, id uuid.UUID, completedAt time.Time) (models.Draft, error)

	InsertPick(ctx context.Context, pick models.DraftPick) error
	ListPicks(ctx context.Context, draftID uuid.UUID) ([]models.DraftPick, error)
	IsPlayerDrafted(ctx context.Context, draftID uuid.UUID, playerID models.PlayerID) (bool, error)

	GetLeague(ctx context.Context, id uuid.UUID) (models.League, error)
	GetTeam(ctx context.Context, id uuid.UUID) (models.FantasyTeam, error)
	ListLeagueTeams(ctx context.Context, leagueID uuid.UUID) ([]models.FantasyTeam, error)
	SetAutoPickPreference(ctx context.Context, teamID uuid.UUID, enabled *bool) (models.FantasyTeam, error)

	GetPlayer(ctx context.Context, id models.PlayerID) (models.Player, error)
	// TopRankedAvailable returns the best ranked player of the sport not yet
	// drafted in the draft, or draft.ErrNotFound.
	TopRankedAvailable(ctx context.Context, draftID uuid.UUID, sportID string) (models.Player, error)
	// ListAvailablePlayers pages through the undrafted players of the sport
	// in ranking order. An empty position matches every position.
	ListAvailablePlayers(ctx context.Context, arg ListAvailablePlayersParams) ([]models.Player, error)

	// ListQueue returns the team's queue by ascending priority, flagging
	// entries already drafted in draftID.
	ListQueue(ctx context.Context, teamID, draftID uuid.UUID) ([]models.QueueEntry, error)
	UpsertQueueEntry(ctx context.Context, entry models.QueueEntry) error
	DeleteQueueEntry(ctx context.Context, teamID uuid.UUID, playerID models.PlayerID) error
	ReplaceQueue(ctx context.Context, teamID uuid.UUID, entries []models.QueueEntry) error

	InsertOutboxEvent(ctx context.Context, event events.OutboxEvent) error
}

// Store runs units of work against the draft state.
type Store interface {
	// InTx runs fn in a single transaction. Every write inside fn commits
	// together or not at all.
	InTx(ctx context.Context, fn func(q Querier) error) error
	// View runs read-only fn without a transaction.
	View(ctx context.Context, fn func(q Querier) error) error
}

type ListAvailablePlayersParams struct {
	DraftID  uuid.UUID
	SportID  string
	Position string
	Limit    int
	Offset   int
}

type CreateDraftParams struct {
	ID              uuid.UUID
	LeagueID        uuid.UUID
	DraftType       models.DraftType
	DraftOrder      []uuid.UUID
	TotalRounds     int
	TimePerPickSec  int
	AutoPickEnabled bool
}

// Read returns the current draft row.
func Read(ctx context.Context, s Store, draftID uuid.UUID) (models.Draft, error) {
	var d models.Draft
	err := s.View(ctx, func(q Querier) error {
		var err error
		d, err = q.GetDraft(ctx, draftID)
		return err
	})
	return d, err
}
