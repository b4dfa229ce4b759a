package offer

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents offer status.
type Status string

const (
	StatusPending       Status = "pending"
	StatusNegotiating   Status = "negotiating"
	StatusAccepted      Status = "accepted"
	StatusRejected      Status = "rejected"
	StatusCancelled     Status = "cancelled"
	StatusInTransaction Status = "inTransaction"
	StatusCompleted     Status = "completed"
)

var ErrInvalidTransition = errors.New("invalid offer status transition")

// DefaultValidity is applied when an offer is created without an
// explicit expiry.
const DefaultValidity = 7 * 24 * time.Hour

// NoteAutoRejected is the history note written on sibling offers when
// another offer on the same process is accepted.
const NoteAutoRejected = "rejected automatically due to acceptance of another offer"

// StatusChange is one append-only status history entry.
type StatusChange struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

// NegotiationKind tags entries in the negotiation history.
type NegotiationKind string

const (
	NegotiationOffer        NegotiationKind = "offer"
	NegotiationCounterOffer NegotiationKind = "counterOffer"
	NegotiationAcceptance   NegotiationKind = "acceptance"
	NegotiationRefusal      NegotiationKind = "refusal"
)

// NegotiationEntry records one value change or decision during a
// counter-offer exchange.
type NegotiationEntry struct {
	Kind         NegotiationKind `json:"kind"`
	AmountCents  int64           `json:"amountCents,omitempty"`
	Message      string          `json:"message,omitempty"`
	SpecialTerms string          `json:"specialTerms,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

// Offer is one buyer's bid on one process.
type Offer struct {
	ID                 int64              `json:"id"`
	OfferID            uuid.UUID          `json:"offerId"`
	ProcessID          uuid.UUID          `json:"processId"`
	SellerID           uuid.UUID          `json:"sellerId"`
	BuyerID            uuid.UUID          `json:"buyerId"`
	AmountCents        int64              `json:"amountCents"`
	Message            string             `json:"message,omitempty"`
	SpecialTerms       string             `json:"specialTerms,omitempty"`
	Status             Status             `json:"status"`
	ValidUntil         time.Time          `json:"validUntil"`
	StatusHistory      []StatusChange     `json:"statusHistory"`
	NegotiationHistory []NegotiationEntry `json:"negotiationHistory"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          *time.Time         `json:"updatedAt,omitempty"`
}

// New creates a pending offer. The expiry defaults to now plus
// DefaultValidity when validUntil is zero.
func New(processID, sellerID, buyerID uuid.UUID, amountCents int64, message, specialTerms string, validUntil time.Time, now time.Time) *Offer {
	if validUntil.IsZero() {
		validUntil = now.Add(DefaultValidity)
	}
	return &Offer{
		OfferID:      uuid.New(),
		ProcessID:    processID,
		SellerID:     sellerID,
		BuyerID:      buyerID,
		AmountCents:  amountCents,
		Message:      message,
		SpecialTerms: specialTerms,
		Status:       StatusPending,
		ValidUntil:   validUntil,
		StatusHistory: []StatusChange{
			{Status: StatusPending, Timestamp: now, Note: "offer created"},
		},
		CreatedAt: now,
	}
}

// CanTransitionTo validates offer status transition.
func (o *Offer) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusPending:       {StatusNegotiating, StatusAccepted, StatusRejected, StatusCancelled},
		StatusNegotiating:   {StatusNegotiating, StatusPending, StatusAccepted, StatusRejected, StatusCancelled},
		StatusAccepted:      {StatusInTransaction},
		StatusInTransaction: {StatusCompleted, StatusCancelled},
		StatusRejected:      {},
		StatusCancelled:     {},
		StatusCompleted:     {},
	}
	allowed := transitions[o.Status]
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// Active reports whether the offer still admits negotiation.
func (o *Offer) Active() bool {
	return o.Status == StatusPending || o.Status == StatusNegotiating
}

// Expired reports whether the offer's validity window has passed.
// Expiry is informational; no transition is driven by it.
func (o *Offer) Expired(now time.Time) bool {
	return now.After(o.ValidUntil)
}

func (o *Offer) transition(target Status, now time.Time, note string) error {
	if !o.CanTransitionTo(target) {
		return ErrInvalidTransition
	}
	o.Status = target
	o.UpdatedAt = &now
	o.StatusHistory = append(o.StatusHistory, StatusChange{Status: target, Timestamp: now, Note: note})
	return nil
}

// lastChangedAt is the timestamp a negotiation snapshot of the current
// values is recorded at: the last update, or creation if never updated.
func (o *Offer) lastChangedAt() time.Time {
	if o.UpdatedAt != nil {
		return *o.UpdatedAt
	}
	return o.CreatedAt
}

// Accept marks the offer accepted by the seller.
func (o *Offer) Accept(now time.Time, note string) error {
	if note == "" {
		note = "offer accepted by the seller"
	}
	return o.transition(StatusAccepted, now, note)
}

// Reject marks the offer rejected by the seller.
func (o *Offer) Reject(now time.Time, reason string) error {
	if reason == "" {
		reason = "offer rejected by the seller"
	}
	return o.transition(StatusRejected, now, reason)
}

// RejectAuto rejects a sibling offer as part of an accept cascade.
func (o *Offer) RejectAuto(now time.Time) error {
	return o.transition(StatusRejected, now, NoteAutoRejected)
}

// Cancel marks the offer cancelled by the buyer.
func (o *Offer) Cancel(now time.Time, reason string) error {
	if reason == "" {
		reason = "offer cancelled by the buyer"
	}
	return o.transition(StatusCancelled, now, reason)
}

// snapshot pushes the current negotiable values into the negotiation
// history before they are overwritten.
func (o *Offer) snapshot(kind NegotiationKind) {
	o.NegotiationHistory = append(o.NegotiationHistory, NegotiationEntry{
		Kind:         kind,
		AmountCents:  o.AmountCents,
		Message:      o.Message,
		SpecialTerms: o.SpecialTerms,
		Timestamp:    o.lastChangedAt(),
	})
}

// CounterBySeller replaces the offer terms with the seller's
// counter-proposal and moves the offer into negotiation. The previous
// terms are preserved in the negotiation history.
func (o *Offer) CounterBySeller(now time.Time, amountCents int64, message, specialTerms string, validUntil time.Time) error {
	if !o.CanTransitionTo(StatusNegotiating) {
		return ErrInvalidTransition
	}
	o.snapshot(NegotiationOffer)
	o.AmountCents = amountCents
	o.Message = message
	o.SpecialTerms = specialTerms
	if !validUntil.IsZero() {
		o.ValidUntil = validUntil
	}
	o.Status = StatusNegotiating
	o.UpdatedAt = &now
	o.StatusHistory = append(o.StatusHistory, StatusChange{Status: StatusNegotiating, Timestamp: now, Note: "counter-offer sent by the seller"})
	o.NegotiationHistory = append(o.NegotiationHistory, NegotiationEntry{
		Kind:         NegotiationCounterOffer,
		AmountCents:  amountCents,
		Message:      message,
		SpecialTerms: specialTerms,
		Timestamp:    now,
	})
	return nil
}

// CounterByBuyer replaces the terms with the buyer's counter while the
// offer stays in negotiation.
func (o *Offer) CounterByBuyer(now time.Time, amountCents int64, message, specialTerms string) error {
	if o.Status != StatusNegotiating {
		return ErrInvalidTransition
	}
	o.snapshot(NegotiationCounterOffer)
	o.AmountCents = amountCents
	o.Message = message
	o.SpecialTerms = specialTerms
	o.UpdatedAt = &now
	o.StatusHistory = append(o.StatusHistory, StatusChange{Status: StatusNegotiating, Timestamp: now, Note: "counter-offer sent by the buyer"})
	o.NegotiationHistory = append(o.NegotiationHistory, NegotiationEntry{
		Kind:         NegotiationCounterOffer,
		AmountCents:  amountCents,
		Message:      message,
		SpecialTerms: specialTerms,
		Timestamp:    now,
	})
	return nil
}

// AcceptCounter records the buyer accepting the seller's counter. The
// offer returns to pending and awaits the seller's final accept.
func (o *Offer) AcceptCounter(now time.Time) error {
	if o.Status != StatusNegotiating {
		return ErrInvalidTransition
	}
	if err := o.transition(StatusPending, now, "counter-offer accepted by the buyer"); err != nil {
		return err
	}
	o.NegotiationHistory = append(o.NegotiationHistory, NegotiationEntry{Kind: NegotiationAcceptance, Timestamp: now})
	return nil
}

// RefuseCounter records the buyer refusing the seller's counter and
// cancels the offer.
func (o *Offer) RefuseCounter(now time.Time) error {
	if o.Status != StatusNegotiating {
		return ErrInvalidTransition
	}
	if err := o.transition(StatusCancelled, now, "counter-offer refused by the buyer"); err != nil {
		return err
	}
	o.NegotiationHistory = append(o.NegotiationHistory, NegotiationEntry{Kind: NegotiationRefusal, Timestamp: now})
	return nil
}

// StartTransaction moves an accepted offer into settlement.
func (o *Offer) StartTransaction(now time.Time) error {
	return o.transition(StatusInTransaction, now, "transaction started")
}

// CompleteFromTransaction marks the offer completed after the
// transaction settles.
func (o *Offer) CompleteFromTransaction(now time.Time) error {
	return o.transition(StatusCompleted, now, "transaction completed")
}

// CancelFromTransaction cancels the offer after its transaction is
// cancelled.
func (o *Offer) CancelFromTransaction(now time.Time) error {
	return o.transition(StatusCancelled, now, "transaction cancelled")
}
