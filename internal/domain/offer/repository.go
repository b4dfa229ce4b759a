package offer

import (
	"context"

	"github.com/google/uuid"
)

// Filter narrows offer listings.
type Filter struct {
	Status    *Status
	ProcessID *uuid.UUID
}

// Repository defines offer persistence.
type Repository interface {
	Create(ctx context.Context, o *Offer) error
	GetByID(ctx context.Context, offerID uuid.UUID) (*Offer, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, filter Filter, limit, offset int) ([]*Offer, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, filter Filter, limit, offset int) ([]*Offer, error)
	// ListActiveByProcess returns offers with status pending or
	// negotiating on the given process.
	ListActiveByProcess(ctx context.Context, processID uuid.UUID) ([]*Offer, error)
	CountActiveByProcess(ctx context.Context, processID uuid.UUID) (int, error)
	// ExistsActiveForBuyer reports whether the buyer already has a
	// pending or negotiating offer on the process.
	ExistsActiveForBuyer(ctx context.Context, processID, buyerID uuid.UUID) (bool, error)
	Update(ctx context.Context, o *Offer) error
}
