package transaction

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines transaction persistence.
type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	GetByID(ctx context.Context, transactionID uuid.UUID) (*Transaction, error)
	GetByOfferID(ctx context.Context, offerID uuid.UUID) (*Transaction, error)
	// ListByParty returns transactions where userID is seller or buyer.
	ListByParty(ctx context.Context, userID uuid.UUID, status *Status, limit, offset int) ([]*Transaction, error)
	Update(ctx context.Context, t *Transaction) error
}
