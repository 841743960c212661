package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds every unit of work when the caller sets no deadline.
const DefaultTimeout = 5 * time.Second

// PGStore is the PostgreSQL-backed Store.
type PGStore struct {
	pool    *pgxpool.Pool
	queries *Queries
	timeout time.Duration
}

func NewPGStore(pool *pgxpool.Pool, timeout time.Duration) *PGStore {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &PGStore{
		pool:    pool,
		queries: New(pool),
		timeout: timeout,
	}
}

// InTx executes fn inside a pgx transaction.
// If fn returns an error the tx rolls back, else it commits.
func (s *PGStore) InTx(ctx context.Context, fn func(q Querier) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Warn().Err(rbErr).Msg("failed to roll back transaction")
		}
	}()

	if err := fn(s.queries.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapError(err))
	}
	return nil
}

func (s *PGStore) View(ctx context.Context, fn func(q Querier) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return fn(s.queries)
}

func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
