// Package event defines the lifecycle notifications emitted after
// successful state transitions. Delivery is fire-and-forget; the engines
// never fail an operation because a notification could not be sent.
package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type identifies a lifecycle event.
type Type string

const (
	TypeOfferCreated         Type = "offer.created"
	TypeOfferAccepted        Type = "offer.accepted"
	TypeOfferRejected        Type = "offer.rejected"
	TypeOfferCancelled       Type = "offer.cancelled"
	TypeCounterOfferMade     Type = "offer.counter_made"
	TypeCounterOfferAnswered Type = "offer.counter_answered"
	TypeTransactionStarted   Type = "transaction.started"
	TypeContractSubmitted    Type = "transaction.contract_submitted"
	TypePaymentRegistered    Type = "transaction.payment_registered"
	TypeTransactionCompleted Type = "transaction.completed"
	TypeTransactionCancelled Type = "transaction.cancelled"
)

// Event is one lifecycle notification. RecipientID is the user the
// notification concerns (the counterparty of the action, usually).
type Event struct {
	Type          Type       `json:"type"`
	ProcessID     uuid.UUID  `json:"processId"`
	OfferID       *uuid.UUID `json:"offerId,omitempty"`
	TransactionID *uuid.UUID `json:"transactionId,omitempty"`
	RecipientID   uuid.UUID  `json:"recipientId"`
	AmountCents   int64      `json:"amountCents,omitempty"`
	OccurredAt    time.Time  `json:"occurredAt"`
}

// Publisher delivers lifecycle events to the notification pipeline.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NopPublisher discards all events.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, ev Event) error { return nil }
func (NopPublisher) Close() error                                { return nil }
