package process

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents process status in the marketplace.
type Status string

const (
	StatusPending       Status = "pending"
	StatusUnderReview   Status = "underReview"
	StatusActive        Status = "active"
	StatusRejected      Status = "rejected"
	StatusOfferAccepted Status = "offerAccepted"
	StatusInTransaction Status = "inTransaction"
	StatusSold          Status = "sold"
	StatusArchived      Status = "archived"
)

var ErrInvalidTransition = errors.New("invalid process status transition")

// StatusChange is one append-only status history entry.
type StatusChange struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

// Process is the judicial case a seller listed. Full case CRUD lives in
// another service; this subsystem owns only the lifecycle fields the
// offer and transaction engines mutate.
type Process struct {
	ID              int64          `json:"id"`
	ProcessID       uuid.UUID      `json:"processId"`
	SellerID        uuid.UUID      `json:"sellerId"`
	Status          Status         `json:"status"`
	EstimatedCents  int64          `json:"estimatedCents"`
	HasOffers       bool           `json:"hasOffers"`
	AcceptedOfferID *uuid.UUID     `json:"acceptedOfferId,omitempty"`
	StatusHistory   []StatusChange `json:"statusHistory"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// CanTransitionTo validates process status transition.
func (p *Process) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusPending:       {StatusUnderReview, StatusArchived},
		StatusUnderReview:   {StatusActive, StatusRejected},
		StatusRejected:      {StatusArchived},
		StatusActive:        {StatusOfferAccepted, StatusArchived},
		StatusOfferAccepted: {StatusInTransaction, StatusActive},
		StatusInTransaction: {StatusSold, StatusActive},
		StatusSold:          {},
		StatusArchived:      {},
	}
	allowed := transitions[p.Status]
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

func (p *Process) transition(target Status, now time.Time, note string) error {
	if !p.CanTransitionTo(target) {
		return ErrInvalidTransition
	}
	p.Status = target
	p.UpdatedAt = now
	p.StatusHistory = append(p.StatusHistory, StatusChange{Status: target, Timestamp: now, Note: note})
	return nil
}

// AcceptOffer records that offerID was accepted on an active process.
func (p *Process) AcceptOffer(offerID uuid.UUID, now time.Time) error {
	if err := p.transition(StatusOfferAccepted, now, "offer accepted"); err != nil {
		return err
	}
	p.AcceptedOfferID = &offerID
	return nil
}

// StartTransaction moves the process into settlement.
func (p *Process) StartTransaction(now time.Time) error {
	return p.transition(StatusInTransaction, now, "transaction started")
}

// CompleteSale marks the process sold.
func (p *Process) CompleteSale(now time.Time) error {
	return p.transition(StatusSold, now, "transaction completed")
}

// ReturnToMarket reverts a cancelled settlement back to active and clears
// the accepted offer reference.
func (p *Process) ReturnToMarket(now time.Time) error {
	if err := p.transition(StatusActive, now, "transaction cancelled"); err != nil {
		return err
	}
	p.AcceptedOfferID = nil
	return nil
}
