package transaction

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents transaction status.
type Status string

const (
	StatusStarted           Status = "started"
	StatusContractSent      Status = "contractSent"
	StatusContractSigned    Status = "contractSigned"
	StatusAwaitingPayment   Status = "awaitingPayment"
	StatusPaymentRegistered Status = "paymentRegistered"
	StatusCompleted         Status = "completed"
	StatusCancelled         Status = "cancelled"
	// StatusRefunded is reserved; no operation currently reaches it.
	StatusRefunded Status = "refunded"
)

var ErrInvalidTransition = errors.New("invalid transaction status transition")

// CommissionPercent is the marketplace commission, applied once when the
// transaction is created.
const CommissionPercent = 5

// Party identifies which side of the transaction performed an action.
type Party string

const (
	PartySeller Party = "seller"
	PartyBuyer  Party = "buyer"
	PartySystem Party = "system"
)

// StatusChange is one append-only status history entry.
type StatusChange struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

// Document is one contract file attached to the transaction.
type Document struct {
	Name        string    `json:"name"`
	MimeType    string    `json:"mimeType"`
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploadedAt"`
	SubmittedBy Party     `json:"submittedBy"`
}

// Transaction is the settlement workflow created from an accepted offer.
type Transaction struct {
	ID                 int64          `json:"id"`
	TransactionID      uuid.UUID      `json:"transactionId"`
	OfferID            uuid.UUID      `json:"offerId"`
	ProcessID          uuid.UUID      `json:"processId"`
	SellerID           uuid.UUID      `json:"sellerId"`
	BuyerID            uuid.UUID      `json:"buyerId"`
	AmountCents        int64          `json:"amountCents"`
	CommissionCents    int64          `json:"commissionCents"`
	NetAmountCents     int64          `json:"netAmountCents"`
	Status             Status         `json:"status"`
	StatusHistory      []StatusChange `json:"statusHistory"`
	Documents          []Document     `json:"documents"`
	PaymentProof       string         `json:"paymentProof,omitempty"`
	PaymentNote        string         `json:"paymentNote,omitempty"`
	PaymentDate        *time.Time     `json:"paymentDate,omitempty"`
	CompletionDate     *time.Time     `json:"completionDate,omitempty"`
	CancellationDate   *time.Time     `json:"cancellationDate,omitempty"`
	CancellationReason string         `json:"cancellationReason,omitempty"`
	CancelledBy        Party          `json:"cancelledBy,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

// New creates a started transaction from an accepted offer's terms. The
// commission is computed here and never recomputed.
func New(offerID, processID, sellerID, buyerID uuid.UUID, amountCents int64, now time.Time) *Transaction {
	commission := amountCents * CommissionPercent / 100
	return &Transaction{
		TransactionID:   uuid.New(),
		OfferID:         offerID,
		ProcessID:       processID,
		SellerID:        sellerID,
		BuyerID:         buyerID,
		AmountCents:     amountCents,
		CommissionCents: commission,
		NetAmountCents:  amountCents - commission,
		Status:          StatusStarted,
		StatusHistory: []StatusChange{
			{Status: StatusStarted, Timestamp: now, Note: "transaction started"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanTransitionTo validates transaction status transition.
func (t *Transaction) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusStarted:           {StatusContractSent, StatusCancelled},
		StatusContractSent:      {StatusContractSigned, StatusCancelled},
		StatusContractSigned:    {StatusAwaitingPayment, StatusPaymentRegistered, StatusCancelled},
		StatusAwaitingPayment:   {StatusPaymentRegistered, StatusCancelled},
		StatusPaymentRegistered: {StatusCompleted},
		StatusCompleted:         {},
		StatusCancelled:         {},
		StatusRefunded:          {},
	}
	allowed := transitions[t.Status]
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// AcceptsDocuments reports whether contract documents may still be
// submitted.
func (t *Transaction) AcceptsDocuments() bool {
	switch t.Status {
	case StatusStarted, StatusContractSent, StatusContractSigned, StatusAwaitingPayment:
		return true
	}
	return false
}

// Cancellable reports whether the transaction may still be cancelled.
func (t *Transaction) Cancellable() bool {
	switch t.Status {
	case StatusStarted, StatusContractSent, StatusContractSigned, StatusAwaitingPayment:
		return true
	}
	return false
}

// IsParty reports whether userID is the transaction's seller or buyer.
func (t *Transaction) IsParty(userID uuid.UUID) bool {
	return userID == t.SellerID || userID == t.BuyerID
}

// PartyOf maps userID to its side, or PartySystem when it is neither.
func (t *Transaction) PartyOf(userID uuid.UUID) Party {
	switch userID {
	case t.SellerID:
		return PartySeller
	case t.BuyerID:
		return PartyBuyer
	}
	return PartySystem
}

func (t *Transaction) transition(target Status, now time.Time, note string) error {
	if !t.CanTransitionTo(target) {
		return ErrInvalidTransition
	}
	t.Status = target
	t.UpdatedAt = now
	t.StatusHistory = append(t.StatusHistory, StatusChange{Status: target, Timestamp: now, Note: note})
	return nil
}

func (t *Transaction) hasDocumentsFrom(p Party) bool {
	for _, d := range t.Documents {
		if d.SubmittedBy == p {
			return true
		}
	}
	return false
}

// SubmitDocuments appends contract documents from one party and advances
// the contract sub-state: started moves to contractSent on the first
// submission, contractSent moves to contractSigned once documents exist
// from both parties. Later submissions never regress the state.
func (t *Transaction) SubmitDocuments(docs []Document, by Party, now time.Time) error {
	if !t.AcceptsDocuments() {
		return ErrInvalidTransition
	}
	for i := range docs {
		docs[i].UploadedAt = now
		docs[i].SubmittedBy = by
	}
	t.Documents = append(t.Documents, docs...)
	t.UpdatedAt = now

	if t.Status == StatusStarted {
		if err := t.transition(StatusContractSent, now, "contract sent"); err != nil {
			return err
		}
	}
	if t.Status == StatusContractSent && t.hasDocumentsFrom(PartySeller) && t.hasDocumentsFrom(PartyBuyer) {
		return t.transition(StatusContractSigned, now, "contract signed by both parties")
	}
	return nil
}

// RegisterPayment records the buyer's payment proof.
func (t *Transaction) RegisterPayment(proof, note string, now time.Time) error {
	if t.Status != StatusContractSigned && t.Status != StatusAwaitingPayment {
		return ErrInvalidTransition
	}
	if err := t.transition(StatusPaymentRegistered, now, "payment registered by the buyer"); err != nil {
		return err
	}
	t.PaymentProof = proof
	t.PaymentNote = note
	t.PaymentDate = &now
	return nil
}

// Complete records the seller confirming receipt of payment.
func (t *Transaction) Complete(note string, now time.Time) error {
	if note == "" {
		note = "payment receipt confirmed by the seller"
	}
	if err := t.transition(StatusCompleted, now, note); err != nil {
		return err
	}
	t.CompletionDate = &now
	return nil
}

// Cancel aborts the settlement.
func (t *Transaction) Cancel(reason string, by Party, now time.Time) error {
	if !t.Cancellable() {
		return ErrInvalidTransition
	}
	if err := t.transition(StatusCancelled, now, reason); err != nil {
		return err
	}
	t.CancellationDate = &now
	t.CancellationReason = reason
	t.CancelledBy = by
	return nil
}
