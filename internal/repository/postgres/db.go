package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the query surface repositories run against, satisfied by both
// the pool and a transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store hands out the per-table repositories over one shared pool.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const txMaxAttempts = 3

// RunTx runs fn inside a serializable read-write transaction, rolling
// back on error. The multi-statement writes here (waitlist position
// assignment, participant moves) all want the strict level, so there is
// no options knob. Serializable means concurrent transactions over the
// same rows can abort with a serialization failure; an aborted attempt
// leaves no state behind, so RunTx re-runs fn a bounded number of times
// before giving up.
func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx DB) error) error {
	return withTxRetry(ctx, func(ctx context.Context) error {
		return s.runTxOnce(ctx, fn)
	})
}

func (s *Store) runTxOnce(ctx context.Context, fn func(ctx context.Context, tx DB) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

func withTxRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < txMaxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil || !IsRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (s *Store) Purchases() *PurchaseRepo { return &PurchaseRepo{pool: s.pool} }
func (s *Store) Participants() *ParticipantRepo {
	return &ParticipantRepo{pool: s.pool, store: s}
}
func (s *Store) Waitlist() *WaitlistRepo { return &WaitlistRepo{pool: s.pool, store: s} }
func (s *Store) Catalog() *CatalogRepo   { return &CatalogRepo{pool: s.pool} }
func (s *Store) Contacts() *ContactRepo  { return &ContactRepo{pool: s.pool} }
