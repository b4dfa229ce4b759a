// Package store aggregates the entity repositories behind a single unit
// of work. Cascading operations (offer acceptance, transaction start,
// completion, cancellation) run inside InTx so that all linked entities
// move together or not at all.
package store

import (
	"context"

	"github.com/creditojus/creditojus/internal/domain/offer"
	"github.com/creditojus/creditojus/internal/domain/process"
	"github.com/creditojus/creditojus/internal/domain/transaction"
)

// Store exposes the repositories and the transactional boundary.
type Store interface {
	Processes() process.Repository
	Offers() offer.Repository
	Transactions() transaction.Repository

	// InTx runs fn with a Store whose repositories are bound to one
	// database transaction. The transaction commits when fn returns nil
	// and rolls back otherwise; no partial state survives an error.
	InTx(ctx context.Context, fn func(s Store) error) error
}
