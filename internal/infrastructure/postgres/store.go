// Package postgres persists the marketplace entities with pgx. The
// Store binds all repositories to one Querier so that InTx can rebind
// them to a single database transaction.
package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/creditojus/creditojus/internal/domain/offer"
	"github.com/creditojus/creditojus/internal/domain/process"
	"github.com/creditojus/creditojus/internal/domain/transaction"
	"github.com/creditojus/creditojus/internal/store"
)

// Querier is the subset of pgx satisfied by both *pgxpool.Pool and
// pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements store.Store on postgres.
type Store struct {
	pool *pgxpool.Pool
	q    Querier
}

// NewStore creates a store bound to the pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: pool}
}

func (s *Store) Processes() process.Repository        { return &ProcessRepository{q: s.q} }
func (s *Store) Offers() offer.Repository             { return &OfferRepository{q: s.q} }
func (s *Store) Transactions() transaction.Repository { return &TransactionRepository{q: s.q} }

// InTx runs fn with repositories bound to one transaction. Nested calls
// reuse the surrounding transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx store.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Store{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func itoa(n int) string { return strconv.Itoa(n) }
